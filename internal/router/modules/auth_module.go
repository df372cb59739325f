package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/finboard/internal/interface/http"
	"github.com/oksasatya/finboard/internal/interface/middleware"
)

// AuthModule wires login and session routes.
// Public: POST /api/login, POST /api/refresh, POST /api/logout
// Protected: GET /api/session, GET /api/dashboard
type AuthModule struct {
	Handler    *handlers.AuthHandler
	Sessions   middleware.SessionResolver
	Redis      *redis.Client
	LoginLimit int
}

func NewAuthModule(h *handlers.AuthHandler, sessions middleware.SessionResolver, rdb *redis.Client, loginLimit int) *AuthModule {
	return &AuthModule{Handler: h, Sessions: sessions, Redis: rdb, LoginLimit: loginLimit}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	loginLimiter := middleware.RateLimit(m.Redis, m.LoginLimit, time.Minute, middleware.KeyByIPAndPath(), nil)
	refreshLimiter := middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/login", loginLimiter, m.Handler.Login)
	rg.POST("/refresh", refreshLimiter, m.Handler.Refresh)
	rg.POST("/logout", m.Handler.Logout)

	auth := rg.Group("/")
	auth.Use(middleware.Session(m.Sessions))
	auth.Use(middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/session", m.Handler.Session)
		// display routing only; data endpoints do not check the role
		auth.GET("/dashboard", m.Handler.Dashboard)
	}
}
