package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeInvalid  = "call.invalid"
	TypeAccepted = "call.accepted"
	TypeRejected = "call.rejected"
	TypeConfig   = "call.misconfigured"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append records one call event. Recipient numbers are masked before they
// reach the audit trail.
func (w Writer) Append(ctx context.Context, evtType, requestID, recipient string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO events(ts,type,request_id,recipient,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, requestID, nullable(MaskNumber(recipient)), string(data))
	return err
}

// MaskNumber keeps the last four digits of a phone number.
func MaskNumber(n string) string {
	if len(n) <= 4 {
		return n
	}
	masked := make([]byte, len(n))
	for i := range n {
		switch {
		case i >= len(n)-4, n[i] == '+':
			masked[i] = n[i]
		default:
			masked[i] = '*'
		}
	}
	return string(masked)
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
