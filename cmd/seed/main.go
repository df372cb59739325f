package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/finboard/config"
	"github.com/oksasatya/finboard/internal/domain/entity"
	pginfra "github.com/oksasatya/finboard/internal/infrastructure/postgres"
	"github.com/oksasatya/finboard/pkg/helpers"
	"github.com/oksasatya/finboard/pkg/validation"
)

type seedUser struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,pwd"`
	Role     string `json:"role" validate:"omitempty,role"`
}

// one demo account per dashboard variant, plus a record without a role
// standing in for accounts created before roles existed
func demoUsers(password string) []seedUser {
	users := make([]seedUser, 0, len(entity.Roles())+1)
	for _, r := range entity.Roles() {
		users = append(users, seedUser{
			Email:    r.String() + "@finboard.local",
			Name:     displayNames[r] + " Demo",
			Password: password,
			Role:     r.String(),
		})
	}
	return append(users, seedUser{Email: "legacy@finboard.local", Name: "Legacy Demo", Password: password})
}

var displayNames = map[entity.Role]string{
	entity.RoleStartup:    "Startup",
	entity.RoleSME:        "SME",
	entity.RoleEnterprise: "Enterprise",
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "password123"
	}

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.AppName+"-seed", cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	users := pginfra.NewUserRepository(pool)
	v := validation.New()

	for _, su := range demoUsers(password) {
		if err := v.Struct(su); err != nil {
			logger.WithFields(logrus.Fields{"email": su.Email, "details": validation.ToDetails(err)}).Fatal("invalid seed user")
		}
		hash, err := helpers.HashPassword(su.Password)
		if err != nil {
			logger.WithError(err).Fatal("failed to hash password")
		}
		u := &entity.User{Email: su.Email, Name: su.Name, PasswordHash: hash, Role: entity.Role(su.Role)}
		if err := users.UpsertByEmail(ctx, u); err != nil {
			logger.WithError(err).WithField("email", su.Email).Fatal("failed to seed user")
		}
		role := su.Role
		if role == "" {
			role = "(none)"
		}
		logger.WithFields(logrus.Fields{"id": u.ID, "email": u.Email, "role": role}).Info("seeded user")
	}
}
