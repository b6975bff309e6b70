package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ringline/internal/dispatch"
	"ringline/internal/domain"
	"ringline/internal/events"
	"ringline/internal/repo"
	"ringline/internal/script"
	"ringline/internal/validate"
)

// Dispatcher places a call for a script.
type Dispatcher interface {
	Dispatch(ctx context.Context, to, script string) (domain.Outcome, error)
}

// ProviderError carries the reason a provider refused a call.
type ProviderError struct {
	Reason string
}

func (e *ProviderError) Error() string { return e.Reason }

type Engine struct {
	DB         *sql.DB
	Repo       repo.Repo
	Events     events.Writer
	Dispatcher Dispatcher
	Log        zerolog.Logger
	Now        func() time.Time
	NewID      func() string
}

func New(db *sql.DB, d Dispatcher, log zerolog.Logger) Engine {
	return Engine{
		DB:         db,
		Repo:       repo.Repo{DB: db},
		Events:     events.Writer{DB: db},
		Dispatcher: d,
		Log:        log,
		Now:        time.Now,
		NewID:      uuid.NewString,
	}
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

// PlaceCall validates draft, synthesizes its script and dispatches exactly one
// call. Errors are *validate.FieldError, *dispatch.ConfigError or
// *ProviderError; anything else is unexpected.
func (e Engine) PlaceCall(ctx context.Context, draft domain.CallRequest) (domain.CallReceipt, error) {
	requestID := e.newID()
	log := e.Log.With().Str("request_id", requestID).Logger()

	req, err := validate.Validate(draft)
	if err != nil {
		var fe *validate.FieldError
		if errors.As(err, &fe) {
			e.record(ctx, log, events.TypeInvalid, requestID, "", events.EventPayload{"field": fe.Field})
		}
		log.Debug().Err(err).Msg("call request rejected")
		return domain.CallReceipt{}, err
	}

	text := script.Synthesize(req)
	outcome, err := e.Dispatcher.Dispatch(ctx, req.RecipientNumber, text)
	if err != nil {
		var ce *dispatch.ConfigError
		if errors.As(err, &ce) {
			e.record(ctx, log, events.TypeConfig, requestID, req.RecipientNumber, events.EventPayload{"missing": ce.Missing})
			log.Error().Strs("missing", ce.Missing).Msg("voice provider not configured")
			return domain.CallReceipt{}, err
		}
		return domain.CallReceipt{}, fmt.Errorf("dispatch call: %w", err)
	}
	if !outcome.Accepted() {
		e.record(ctx, log, events.TypeRejected, requestID, req.RecipientNumber, events.EventPayload{"reason": outcome.Reason})
		return domain.CallReceipt{}, &ProviderError{Reason: outcome.Reason}
	}
	e.record(ctx, log, events.TypeAccepted, requestID, req.RecipientNumber, events.EventPayload{
		"call_sid":       outcome.ExternalID,
		"recipient_name": req.RecipientName,
		"script_chars":   len(text),
	})
	return domain.CallReceipt{
		RequestID:  requestID,
		ExternalID: outcome.ExternalID,
		Message:    fmt.Sprintf("Call initiated successfully. Call SID: %s", outcome.ExternalID),
	}, nil
}

// record writes to the audit trail. A failed write never changes the
// outcome already reached with the provider.
func (e Engine) record(ctx context.Context, log zerolog.Logger, evtType, requestID, recipient string, payload events.EventPayload) {
	if e.DB == nil {
		return
	}
	w := e.Events
	if w.DB == nil {
		w.DB = e.DB
	}
	if w.Now == nil {
		w.Now = e.Now
	}
	if err := w.Append(ctx, evtType, requestID, recipient, payload); err != nil {
		log.Warn().Err(err).Str("event", evtType).Msg("audit write failed")
	}
}
