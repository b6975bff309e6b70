// Package app wires configuration, the session audit store and the call
// engine together for the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"ringline/internal/activity"
	"ringline/internal/config"
	"ringline/internal/db"
	"ringline/internal/dispatch"
	"ringline/internal/domain"
	"ringline/internal/engine"
	"ringline/internal/migrate"
	ringlinesdk "ringline/sdk/go"
)

// App holds the live pieces of a server session.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Engine engine.Engine
}

// Open creates a fresh in-memory audit store and an engine dispatching with
// the configured provider credentials.
func Open(cfg *config.Config, log zerolog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	conn, err := db.Open(db.Config{})
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate audit store: %w", err)
	}
	creds := cfg.Credentials()
	if missing := creds.Missing(); len(missing) > 0 {
		log.Warn().Strs("missing", missing).Msg("voice provider credentials incomplete; calls will fail until configured")
	}
	d := dispatch.New(creds, cfg.Voice, log)
	return &App{
		Config: cfg,
		DB:     conn,
		Engine: engine.New(conn, d, log),
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// RemoteSubmitter sends drafts to a running server through the SDK client.
func RemoteSubmitter(c *ringlinesdk.Client) activity.Submitter {
	return func(ctx context.Context, req domain.CallRequest) (activity.Result, error) {
		resp, err := c.PlaceCall(ctx, ringlinesdk.CallRequest{
			CallerName:      req.CallerName,
			CallerNumber:    req.CallerNumber,
			RecipientName:   req.RecipientName,
			RecipientNumber: req.RecipientNumber,
			Objective:       req.Objective,
			Notes:           req.Notes,
		})
		if err != nil {
			return activity.Result{}, err
		}
		return activity.Result{Success: resp.Success, Message: resp.Message}, nil
	}
}
