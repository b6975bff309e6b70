package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"ringline/internal/domain"
	"ringline/internal/speech"
)

// FallbackReason is reported when the provider fails without a message.
const FallbackReason = "the call provider rejected the request"

// Credentials identify the provider account and the verified source number.
type Credentials struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Missing lists the configuration keys that are empty.
func (c Credentials) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.AccountSID) == "" {
		missing = append(missing, "account_sid")
	}
	if strings.TrimSpace(c.AuthToken) == "" {
		missing = append(missing, "auth_token")
	}
	if strings.TrimSpace(c.FromNumber) == "" {
		missing = append(missing, "from_number")
	}
	return missing
}

// ConfigError means the dispatcher cannot reach the provider at all.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("voice provider not configured: missing %s", strings.Join(e.Missing, ", "))
}

// RejectionError carries a message the provider itself returned for a
// refused call. It is the only provider error whose text reaches users.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string { return e.Message }

// CallParams is a single call placement.
type CallParams struct {
	To    string
	From  string
	Twiml string
}

// Provider places calls. Implementations return the provider's call id.
type Provider interface {
	PlaceCall(ctx context.Context, p CallParams) (string, error)
}

// ProviderFactory builds a provider for a set of credentials.
type ProviderFactory func(Credentials) Provider

// Dispatcher turns a script into exactly one provider call.
type Dispatcher struct {
	Credentials Credentials
	Voice       speech.Voice
	NewProvider ProviderFactory
	Log         zerolog.Logger
}

// New returns a Dispatcher backed by Twilio.
func New(creds Credentials, voice speech.Voice, log zerolog.Logger) Dispatcher {
	return Dispatcher{
		Credentials: creds,
		Voice:       voice,
		NewProvider: NewTwilioProvider,
		Log:         log,
	}
}

// Dispatch speaks script to the destination number. A *ConfigError is returned
// before any provider work when credentials are incomplete. Provider failures
// are folded into a rejected Outcome and never retried; only a
// *RejectionError message is used as the reason.
func (d Dispatcher) Dispatch(ctx context.Context, to, script string) (domain.Outcome, error) {
	if missing := d.Credentials.Missing(); len(missing) > 0 {
		return domain.Outcome{}, &ConfigError{Missing: missing}
	}
	factory := d.NewProvider
	if factory == nil {
		factory = NewTwilioProvider
	}
	provider := factory(d.Credentials)
	params := CallParams{
		To:    to,
		From:  strings.TrimSpace(d.Credentials.FromNumber),
		Twiml: speech.Say(script, d.Voice),
	}
	id, err := provider.PlaceCall(ctx, params)
	if err != nil {
		d.Log.Warn().Err(err).Str("to", to).Msg("provider rejected call")
		return domain.Outcome{Status: domain.OutcomeRejected, Reason: rejectionReason(err)}, nil
	}
	if id == "" {
		d.Log.Warn().Str("to", to).Msg("provider returned no call id")
		return domain.Outcome{Status: domain.OutcomeRejected, Reason: FallbackReason}, nil
	}
	d.Log.Info().Str("to", to).Str("call_sid", id).Msg("call placed")
	return domain.Outcome{Status: domain.OutcomeAccepted, ExternalID: id}, nil
}

// rejectionReason keeps provider messages and hides everything else, such as
// transport errors that embed request URLs or account ids.
func rejectionReason(err error) string {
	var re *RejectionError
	if errors.As(err, &re) {
		if msg := strings.TrimSpace(re.Message); msg != "" {
			return msg
		}
	}
	return FallbackReason
}
