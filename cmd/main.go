package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/finboard/config"
	"github.com/oksasatya/finboard/internal/container"
	"github.com/oksasatya/finboard/internal/infrastructure/audit"
	pginfra "github.com/oksasatya/finboard/internal/infrastructure/postgres"
	"github.com/oksasatya/finboard/internal/router"
	"github.com/oksasatya/finboard/pkg/helpers"
	"github.com/oksasatya/finboard/pkg/mailer"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.AppName, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()
	if err := helpers.PingRedis(ctx, rdb); err != nil {
		// rate limiting fails open; keep serving
		helpers.LogError(logger, "redis unreachable", err, logrus.Fields{"addr": cfg.RedisAddr})
	}

	infra := container.Infra{
		Users: pginfra.NewUserRepository(pool),
		Redis: rdb,
		Checks: map[string]func(context.Context) error{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	}

	if cfg.AuditESEnabled {
		infra.ES = newES(ctx, cfg, logger)
	}

	if cfg.MailSendEnabled {
		pub, err := mailer.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			helpers.LogError(logger, "rabbitmq unavailable; login notifications disabled", err, nil)
		} else {
			defer pub.Close()
			infra.Publisher = pub
		}
	}

	c := container.New(cfg, logger, infra)
	r := router.NewEngine(c)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		helpers.LogInfo(logger, "server starting", logrus.Fields{"port": cfg.Port, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	c.Service.Wait()
	logger.Info("server exited properly")
}

func newES(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *elasticsearch.Client {
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		helpers.LogError(logger, "elasticsearch client init failed; audit goes to log only", err, nil)
		return nil
	}
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := audit.EnsureIndex(c, es, cfg.ESAuditIndex); err != nil {
		// index writes still work with dynamic mapping
		helpers.LogError(logger, "audit index setup failed", err, logrus.Fields{"index": cfg.ESAuditIndex})
	}
	return es
}
