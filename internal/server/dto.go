package server

import (
	"encoding/json"

	"ringline/internal/domain"
)

// Request payloads

// CallRequestBody is decoded leniently: every field is optional at the schema
// level so the validator can report the first problem in its own order.
type CallRequestBody struct {
	_               struct{} `json:"-" additionalProperties:"true"`
	CallerName      string   `json:"callerName,omitempty" doc:"Name of the person the call is made for" example:"Alice"`
	CallerNumber    string   `json:"callerNumber,omitempty" doc:"Callback number spoken in the script"`
	RecipientName   string   `json:"recipientName,omitempty" example:"Dr. Patel's office"`
	RecipientNumber string   `json:"recipientNumber,omitempty" doc:"E.164 destination" example:"+15551234567"`
	Objective       string   `json:"objective,omitempty" example:"Confirm my appointment on Friday at 10am"`
	Notes           string   `json:"notes,omitempty"`
}

func (b CallRequestBody) toDomain() domain.CallRequest {
	return domain.CallRequest{
		CallerName:      b.CallerName,
		CallerNumber:    b.CallerNumber,
		RecipientName:   b.RecipientName,
		RecipientNumber: b.RecipientNumber,
		Objective:       b.Objective,
		Notes:           b.Notes,
	}
}

type DevLoginRequest struct {
	Subject string `json:"subject"`
}

// Response payloads

type CallResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	CallSID string `json:"callSid,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type EventResponse struct {
	ID        int64          `json:"id"`
	TS        string         `json:"ts" format:"date-time"`
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Recipient string         `json:"recipient,omitempty"`
	Payload   map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func eventResponse(e domain.Event) EventResponse {
	payload := map[string]any{}
	if e.Payload != "" {
		_ = json.Unmarshal([]byte(e.Payload), &payload)
	}
	return EventResponse{
		ID:        e.ID,
		TS:        e.TS,
		Type:      e.Type,
		RequestID: e.RequestID,
		Recipient: e.Recipient,
		Payload:   payload,
	}
}
