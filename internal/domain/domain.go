package domain

// CallRequest describes a call to place. Values arriving from clients are
// untrusted until they pass validate.Validate.
type CallRequest struct {
	CallerName      string `json:"callerName" yaml:"callerName"`
	CallerNumber    string `json:"callerNumber,omitempty" yaml:"callerNumber,omitempty"`
	RecipientName   string `json:"recipientName" yaml:"recipientName"`
	RecipientNumber string `json:"recipientNumber" yaml:"recipientNumber"`
	Objective       string `json:"objective" yaml:"objective"`
	Notes           string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

type OutcomeStatus string

const (
	OutcomeAccepted OutcomeStatus = "accepted"
	OutcomeRejected OutcomeStatus = "rejected"
)

// Outcome is the normalized result of a single provider invocation.
type Outcome struct {
	Status     OutcomeStatus `json:"status"`
	ExternalID string        `json:"external_id,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

func (o Outcome) Accepted() bool { return o.Status == OutcomeAccepted }

// CallReceipt is returned to the caller once the provider accepted a call.
type CallReceipt struct {
	RequestID  string `json:"request_id"`
	ExternalID string `json:"external_id"`
	Message    string `json:"message"`
}

type EntryStatus string

const (
	StatusQueued  EntryStatus = "queued"
	StatusSuccess EntryStatus = "success"
	StatusError   EntryStatus = "error"
)

type Event struct {
	ID        int64  `json:"id"`
	TS        string `json:"ts" format:"date-time"`
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Recipient string `json:"recipient,omitempty"`
	Payload   string `json:"payload_json"`
}
