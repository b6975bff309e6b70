package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ringline/internal/activity"
	"ringline/internal/app"
	"ringline/internal/config"
	"ringline/internal/domain"
	"ringline/internal/script"
	"ringline/internal/server"
	"ringline/internal/speech"
	"ringline/internal/validate"
	ringlinesdk "ringline/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "rl",
	Short: "Ringline CLI",
	Long: `Ringline places automated phone calls on someone's behalf.
- A call request names the caller, the recipient and what the call is about.
- The server turns the request into a short spoken script and hands it to the voice provider.
- 'rl serve' runs the HTTP API; 'rl call', 'rl batch' and 'rl console' submit requests to it.
- The activity log shows each submission as queued, then success or error.
- Provider credentials come from ringline.yml or TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("RINGLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("provider.account_sid", "RINGLINE_PROVIDER_ACCOUNT_SID", "TWILIO_ACCOUNT_SID")
	_ = viper.BindEnv("provider.auth_token", "RINGLINE_PROVIDER_AUTH_TOKEN", "TWILIO_AUTH_TOKEN")
	_ = viper.BindEnv("provider.from_number", "RINGLINE_PROVIDER_FROM_NUMBER", "TWILIO_PHONE_NUMBER")
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "ringline.yml", "config file (optional)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("server-url", "http://127.0.0.1:8080/api", "API base URL used by client commands")
	rootCmd.PersistentFlags().String("token", "", "bearer token for the API")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")
	for _, name := range []string{"config", "json", "server-url", "token", "log-level", "log-json"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(callCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(consoleCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(scriptCmd())
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.Open(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			handler, err := server.New(server.Config{
				Engine:   a.Engine,
				BasePath: cfg.Server.BasePath,
				Auth:     server.AuthConfig{JWTSecret: cfg.Server.JWTSecret, DevLogin: cfg.Server.DevLogin},
				Log:      log,
				Webhooks: cfg.Webhooks,
				Context:  ctx,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			log.Info().
				Str("addr", cfg.Server.Addr).
				Str("base_path", cfg.Server.BasePath).
				Bool("auth", cfg.Server.JWTSecret != "").
				Bool("dev_login", cfg.Server.DevLogin).
				Int("webhooks", len(cfg.Webhooks)).
				Msgf("serving Ringline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)", cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	cmd.Flags().String("base-path", "", "API base path (overrides server.base_path)")
	cmd.Flags().String("jwt-secret", "", "enable bearer auth with this HS256 secret")
	cmd.Flags().Bool("dev-login", false, "expose the development token route (local testing only)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.base_path", cmd.Flags().Lookup("base-path"))
	_ = viper.BindPFlag("server.jwt_secret", cmd.Flags().Lookup("jwt-secret"))
	_ = viper.BindPFlag("server.dev_login", cmd.Flags().Lookup("dev-login"))
	return cmd
}

func callCmd() *cobra.Command {
	var f requestFlags
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Submit one call request and wait for the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			tracker := activity.NewTracker(app.RemoteSubmitter(newClient()), activity.WithLogger(log))
			pending, issues := tracker.Submit(cmd.Context(), f.request())
			if len(issues) > 0 {
				return errors.New(validate.String(issues))
			}
			entry, err := pending.Wait(cmd.Context())
			if err != nil {
				return err
			}
			if err := renderEntries([]activity.Entry{entry}); err != nil {
				return err
			}
			if entry.Status != domain.StatusSuccess {
				return errors.New(entry.ResponseMessage)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

type batchFile struct {
	Defaults domain.CallRequest   `yaml:"defaults"`
	Calls    []domain.CallRequest `yaml:"calls"`
}

func batchCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Submit every call listed in a YAML file concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var bf batchFile
			if err := yaml.Unmarshal(data, &bf); err != nil {
				return fmt.Errorf("invalid batch yaml: %w", err)
			}
			pool, err := activity.NewPool(workers, log)
			if err != nil {
				return err
			}
			defer pool.Release()
			tracker := activity.NewTracker(app.RemoteSubmitter(newClient()),
				activity.WithRunner(pool),
				activity.WithLogger(log),
			)
			var pending []*activity.Pending
			skipped := 0
			for i, c := range bf.Calls {
				p, issues := tracker.Submit(cmd.Context(), withDefaults(c, bf.Defaults))
				if len(issues) > 0 {
					skipped++
					log.Warn().Int("index", i).Str("recipient", c.RecipientName).Msg(validate.String(issues))
					continue
				}
				pending = append(pending, p)
			}
			for _, p := range pending {
				if _, err := p.Wait(cmd.Context()); err != nil {
					return err
				}
			}
			if err := renderEntries(tracker.Entries()); err != nil {
				return err
			}
			failed := skipped
			for _, e := range tracker.Entries() {
				if e.Status == domain.StatusError {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d calls failed", failed, len(bf.Calls))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent submissions")
	return cmd
}

func withDefaults(r, d domain.CallRequest) domain.CallRequest {
	if strings.TrimSpace(r.CallerName) == "" {
		r.CallerName = d.CallerName
	}
	if strings.TrimSpace(r.CallerNumber) == "" {
		r.CallerNumber = d.CallerNumber
	}
	if strings.TrimSpace(r.Notes) == "" {
		r.Notes = d.Notes
	}
	return r
}

func consoleCmd() *cobra.Command {
	var callerName, callerNumber string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive call form with an activity log",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			tracker := activity.NewTracker(app.RemoteSubmitter(newClient()),
				activity.WithLogger(log),
				activity.WithForm(activity.NewForm(domain.CallRequest{CallerName: callerName, CallerNumber: callerNumber})),
			)
			c := newConsole(os.Stdin, os.Stdout, tracker)
			return c.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&callerName, "caller-name", "", "default caller name")
	cmd.Flags().StringVar(&callerNumber, "caller-number", "", "default callback number")
	return cmd
}

func eventsCmd() *cobra.Command {
	evts := &cobra.Command{Use: "events", Short: "Inspect the server's session audit trail"}
	evts.AddCommand(eventsTailCmd())
	return evts
}

func eventsTailCmd() *cobra.Command {
	var n int
	var evtType, requestID, cursor string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest call events",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := newClient().EventsPage(cmd.Context(), ringlinesdk.EventQuery{
				Type:      evtType,
				RequestID: requestID,
				Limit:     n,
				Cursor:    cursor,
			})
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(page)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Time", "Type", "Request", "Recipient"})
			for _, e := range page.Items {
				tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.RequestID, e.Recipient})
			}
			tw.Render()
			if page.NextCursor != "" {
				fmt.Printf("more: --cursor %s\n", page.NextCursor)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&requestID, "request-id", "", "request id filter")
	cmd.Flags().StringVar(&cursor, "cursor", "", "continue from a previous page")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long:  "Config comes from ringline.yml (optional) overlaid with RINGLINE_* and TWILIO_* environment variables and command flags.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			masked := cfg.Redacted()
			if viper.GetBool("json") {
				return printJSON(masked)
			}
			out, err := yaml.Marshal(masked)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate config and report missing provider credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			var missing []string
			if err == nil {
				missing = cfg.Credentials().Missing()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err), "missing_credentials": missing})
			}
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				fmt.Printf("config OK (provider credentials missing: %s)\n", strings.Join(missing, ", "))
				return nil
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("config")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o600); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func scriptCmd() *cobra.Command {
	s := &cobra.Command{Use: "script", Short: "Work with call scripts"}
	s.AddCommand(scriptPreviewCmd())
	return s
}

func scriptPreviewCmd() *cobra.Command {
	var f requestFlags
	var twiml bool
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the script a request would produce without calling anyone",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := validate.Validate(f.request())
			if err != nil {
				return err
			}
			text := script.Synthesize(req)
			if !twiml {
				fmt.Println(text)
				return nil
			}
			voice := speech.DefaultVoice
			if cfg, err := loadConfig(); err == nil {
				voice = cfg.Voice
			}
			fmt.Println(speech.Say(text, voice))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&twiml, "twiml", false, "print the voice document instead of plain text")
	return cmd
}

// --- helpers ---

type requestFlags struct {
	callerName, callerNumber, recipientName, recipientNumber, objective, notes string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.callerName, "caller-name", "", "who the call is made for")
	cmd.Flags().StringVar(&f.callerNumber, "caller-number", "", "callback number spoken in the script")
	cmd.Flags().StringVar(&f.recipientName, "recipient-name", "", "who is being called")
	cmd.Flags().StringVar(&f.recipientNumber, "to", "", "recipient number in E.164 format")
	cmd.Flags().StringVar(&f.objective, "objective", "", "what the call is about")
	cmd.Flags().StringVar(&f.notes, "notes", "", "additional context")
}

func (f *requestFlags) request() domain.CallRequest {
	return domain.CallRequest{
		CallerName:      f.callerName,
		CallerNumber:    f.callerNumber,
		RecipientName:   f.recipientName,
		RecipientNumber: f.recipientNumber,
		Objective:       f.objective,
		Notes:           f.notes,
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	cfg.Overlay(viper.GetString)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newClient() *ringlinesdk.Client {
	c := ringlinesdk.New(viper.GetString("server-url"))
	c.BearerToken = viper.GetString("token")
	return c
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if viper.GetBool("log-json") {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func renderEntries(entries []activity.Entry) error {
	if viper.GetBool("json") {
		return printJSON(entries)
	}
	writeEntries(os.Stdout, entries)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
