package audit

import (
	"context"

	"github.com/sirupsen/logrus"
)

type LogRecorder struct {
	Logger *logrus.Logger
}

func NewLogRecorder(logger *logrus.Logger) *LogRecorder {
	return &LogRecorder{Logger: logger}
}

func (r *LogRecorder) Record(_ context.Context, e Event) {
	if r.Logger == nil {
		return
	}
	entry := r.Logger.WithFields(logrus.Fields{
		"email":      e.Email,
		"outcome":    e.Outcome,
		"ip":         e.IP,
		"request_id": e.RequestID,
	})
	if e.UserID != "" {
		entry = entry.WithField("user_id", e.UserID)
	}
	if e.Outcome == OutcomeSuccess {
		entry.Info("login succeeded")
		return
	}
	entry.WithField("reason", e.Reason).Warn("login denied")
}
