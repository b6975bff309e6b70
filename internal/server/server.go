package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"ringline/internal/config"
	"ringline/internal/dispatch"
	"ringline/internal/engine"
	"ringline/internal/repo"
	"ringline/internal/validate"
)

const (
	msgConfig   = "Server configuration error: voice provider credentials are not set."
	msgInternal = "An unexpected error occurred while placing the call. Please try again later."
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	Log      zerolog.Logger
	// Webhooks start the outcome webhook dispatcher when non-empty. It
	// stops when Context is done.
	Webhooks []config.WebhookConfig
	Context  context.Context
}

// callError is the failure envelope shared by every route.
type callError struct {
	status  int
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (e *callError) GetStatus() int { return e.status }
func (e *callError) Error() string  { return e.Message }

// New returns an HTTP handler exposing the call API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newCallError(status, firstIssue(msg, errs))
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			// Schema/request validation errors are input errors.
			status = http.StatusBadRequest
		}
		return newCallError(status, firstIssue(msg, errs))
	}

	router := chi.NewRouter()
	router.Use(recoverer(cfg.Log))
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Log))
	hcfg := huma.DefaultConfig("Ringline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerCalls(group, cfg.Engine, cfg.Log)
	registerEvents(group, cfg.Engine)
	registerEvent(group, cfg.Engine)
	if cfg.Auth.devLogin() {
		registerDevAuth(group, cfg.Auth)
	}
	registerOpenAPI(router, api, basePath, cfg.Auth.enabled())

	if len(cfg.Webhooks) > 0 {
		ctx := cfg.Context
		if ctx == nil {
			ctx = context.Background()
		}
		startWebhookDispatcher(ctx, cfg.Engine.Repo, cfg.Webhooks, cfg.Log)
	}
	return router, nil
}

func newCallError(status int, message string) huma.StatusError {
	return &callError{status: status, Success: false, Message: message}
}

// firstIssue reduces framework validation details to the first message.
func firstIssue(msg string, errs []error) string {
	for _, err := range errs {
		if err == nil {
			continue
		}
		var detail *huma.ErrorDetail
		if errors.As(err, &detail) {
			if field := strings.TrimPrefix(detail.Location, "body."); field != "" && field != detail.Location {
				return fmt.Sprintf("%s: %s", field, detail.Message)
			}
			return detail.Message
		}
		return err.Error()
	}
	return msg
}

// handleError maps orchestration failures to the response envelope. Unknown
// errors are logged and replaced with a generic message.
func handleError(log zerolog.Logger, err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var fe *validate.FieldError
	if errors.As(err, &fe) {
		return newCallError(http.StatusBadRequest, fe.Reason)
	}
	var ce *dispatch.ConfigError
	if errors.As(err, &ce) {
		return newCallError(http.StatusInternalServerError, msgConfig)
	}
	var pe *engine.ProviderError
	if errors.As(err, &pe) {
		return newCallError(http.StatusInternalServerError, pe.Reason)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newCallError(http.StatusNotFound, "Event not found.")
	}
	log.Error().Err(err).Msg("unexpected error")
	return newCallError(http.StatusInternalServerError, msgInternal)
}

func recoverer(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error().Str("panic", fmt.Sprint(rec)).Str("path", r.URL.Path).Msg("handler panicked")
					respondStatusError(w, newCallError(http.StatusInternalServerError, msgInternal))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string, withAuth bool) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			if withAuth {
				applyAuthSecurity(oas, basePath)
			}
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{item.Get, item.Post} {
			if op == nil {
				continue
			}
			if isPublicPath(basePath, route, true) {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Ringline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerCalls(api huma.API, e engine.Engine, log zerolog.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "place-call",
		Method:      http.MethodPost,
		Path:        "/call",
		Summary:     "Synthesize a script and place a call",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CallRequestBody `json:"body"`
	}) (*struct {
		Body CallResponse `json:"body"`
	}, error) {
		receipt, err := e.PlaceCall(ctx, input.Body.toDomain())
		if err != nil {
			return nil, handleError(log, err)
		}
		return &struct {
			Body CallResponse `json:"body"`
		}{Body: CallResponse{Success: true, Message: receipt.Message, CallSID: receipt.ExternalID}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List call events recorded in this session",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type      string `query:"type" enum:"call.invalid,call.accepted,call.rejected,call.misconfigured"`
		RequestID string `query:"request_id"`
		Limit     int    `query:"limit" default:"50"`
		Cursor    int64  `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		items, err := e.Repo.LatestEvents(ctx, limit+1, repo.EventFilter{
			Type:      input.Type,
			RequestID: input.RequestID,
			Before:    input.Cursor,
		})
		if err != nil {
			return nil, handleError(e.Log, err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = fmt.Sprintf("%d", items[limit-1].ID)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerEvent(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-event",
		Method:      http.MethodGet,
		Path:        "/events/{id}",
		Summary:     "Get one call event",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body EventResponse `json:"body"`
	}, error) {
		evt, err := e.Repo.GetEvent(ctx, input.ID)
		if err != nil {
			return nil, handleError(e.Log, err)
		}
		return &struct {
			Body EventResponse `json:"body"`
		}{Body: eventResponse(evt)}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		subject := strings.TrimSpace(input.Body.Subject)
		if subject == "" {
			return nil, newCallError(http.StatusBadRequest, "subject is required")
		}
		token, err := signToken(authCfg.JWTSecret, subject, authCfg.ttl())
		if err != nil {
			return nil, newCallError(http.StatusInternalServerError, msgInternal)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
