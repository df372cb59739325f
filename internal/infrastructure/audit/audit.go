// Package audit records authentication attempts for operators.
// Recorded events may distinguish failure reasons; callers of the
// authenticator never see them.
package audit

import (
	"context"
	"time"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
)

// Event describes one login attempt.
type Event struct {
	Email     string    `json:"email"`
	UserID    string    `json:"user_id,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	At        time.Time `json:"at"`
}

// Recorder persists events. Implementations must not block the login path
// for long and must swallow their own failures.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Multi fans an event out to every recorder.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Event) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, e)
		}
	}
}
