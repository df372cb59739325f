package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/oksasatya/finboard/config"
	"github.com/oksasatya/finboard/internal/application"
	"github.com/oksasatya/finboard/internal/domain/entity"
	"github.com/oksasatya/finboard/pkg/mailer"
	mailtpl "github.com/oksasatya/finboard/pkg/mailer/templates"
)

// LoginMailer queues a "new sign-in" email for the account owner.
type LoginMailer struct {
	Pub     mailer.Publisher
	Cfg     *config.Config
	Timeout time.Duration
	now     func() time.Time
}

func NewLoginMailer(pub mailer.Publisher, cfg *config.Config) *LoginMailer {
	return &LoginMailer{Pub: pub, Cfg: cfg, Timeout: 3 * time.Second, now: time.Now}
}

var _ application.LoginNotifier = (*LoginMailer)(nil)

func (m *LoginMailer) NotifyLogin(ctx context.Context, s entity.SessionView, meta application.AttemptMeta) error {
	if m.Pub == nil || s.User.Email == "" {
		return nil
	}
	data := mailtpl.NewLoginNotificationData(m.Cfg, s.User.Name, s.User.Email,
		mailtpl.WithIP(meta.IP),
		mailtpl.WithUserAgent(meta.UserAgent),
		mailtpl.WithRole(s.User.Role.String()),
		mailtpl.WithTime(m.now()),
	)
	job := mailer.EmailJob{To: s.User.Email, Template: mailtpl.LoginNotification, Data: data}

	// the login request may finish before the broker answers
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.Timeout)
	defer cancel()
	if err := m.Pub.PublishJSON(c, job); err != nil {
		return fmt.Errorf("publish login notification: %w", err)
	}
	return nil
}
