package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioProvider places calls through the Twilio REST API.
type TwilioProvider struct {
	client *twilio.RestClient
}

// NewTwilioProvider satisfies ProviderFactory.
func NewTwilioProvider(c Credentials) Provider {
	return &TwilioProvider{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: c.AccountSID,
			Password: c.AuthToken,
		}),
	}
}

func (p *TwilioProvider) PlaceCall(ctx context.Context, cp CallParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &api.CreateCallParams{}
	params.SetTo(cp.To)
	params.SetFrom(cp.From)
	params.SetTwiml(cp.Twiml)
	call, err := p.client.Api.CreateCall(params)
	if err != nil {
		return "", providerError(err)
	}
	if call == nil || call.Sid == nil {
		return "", nil
	}
	return *call.Sid, nil
}

// providerError turns a REST rejection into a *RejectionError with only the
// provider's human message. Other errors are returned as is and never shown
// to users.
func providerError(err error) error {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		return &RejectionError{Message: strings.TrimSpace(restErr.Message)}
	}
	return err
}
