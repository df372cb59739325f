package container

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/finboard/config"
	"github.com/oksasatya/finboard/internal/application"
	repo "github.com/oksasatya/finboard/internal/domain/repository"
	"github.com/oksasatya/finboard/internal/infrastructure/audit"
	"github.com/oksasatya/finboard/internal/infrastructure/notify"
	"github.com/oksasatya/finboard/pkg/helpers"
	"github.com/oksasatya/finboard/pkg/mailer"
)

// Infra holds the clients built in main. Optional ones may be nil.
type Infra struct {
	Users     repo.UserRepository
	Redis     *redis.Client
	ES        *elasticsearch.Client
	Publisher mailer.Publisher
	// Checks are probed by /api/healthz, keyed by dependency name.
	Checks map[string]func(ctx context.Context) error
}

// Container carries the constructed components that route modules wire from.
// It is built once in main and passed down explicitly.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	Infra

	JWT      *helpers.JWTManager
	Cookies  *helpers.Manager
	Recorder audit.Recorder
	Auth     *application.Authenticator
	Service  *application.Service
}

func New(cfg *config.Config, logger *logrus.Logger, infra Infra) *Container {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}

	recorders := audit.Multi{audit.NewLogRecorder(logger)}
	if infra.ES != nil {
		recorders = append(recorders, audit.NewESRecorder(infra.ES, cfg.ESAuditIndex, logger))
	}

	var notifier application.LoginNotifier
	if infra.Publisher != nil {
		notifier = notify.NewLoginMailer(infra.Publisher, cfg)
	}

	jwt := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	auth := application.NewAuthenticator(infra.Users, logger, recorders)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Infra:    infra,
		JWT:      jwt,
		Cookies:  helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
		Recorder: recorders,
		Auth:     auth,
		Service:  application.NewService(auth, infra.Users, jwt, notifier, logger),
	}
}
