package mailer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	mailtpl "github.com/oksasatya/finboard/pkg/mailer/templates"
)

// Outcome tells the consumer loop what to do with a delivery.
type Outcome int

const (
	Ack     Outcome = iota
	Drop            // nack without requeue
	Requeue         // nack with requeue
)

// Worker renders and sends queued email jobs.
type Worker struct {
	Sender   Sender
	Resolver mailtpl.GeoResolver
	Logger   *logrus.Logger
	Timeout  time.Duration
}

func (w *Worker) Handle(ctx context.Context, body []byte) Outcome {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Logger.WithError(err).Warn("bad email job")
		return Drop
	}
	if job.To == "" {
		w.Logger.Warn("email job without recipient")
		return Drop
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		job.EnsureRecipientAndEmail()
		mailtpl.LocalizeTimesIfPossible(ctx, w.Resolver, job.Data)

		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			w.Logger.WithError(err).WithField("template", job.Template).Error("render failed")
			return Drop
		}
		subject, text, html = s, t, h
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
		w.Logger.WithError(err).WithField("to", job.To).Error("send failed")
		return Requeue
	}
	return Ack
}
