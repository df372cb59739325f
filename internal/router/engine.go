package router

import (
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/finboard/internal/container"
	"github.com/oksasatya/finboard/internal/interface/middleware"
	"github.com/oksasatya/finboard/pkg/response"
	"github.com/oksasatya/finboard/pkg/validation"
)

// NewEngine builds the gin engine with global middleware and all modules registered.
func NewEngine(c *container.Container) *gin.Engine {
	validation.Init()

	r := gin.New()
	proxies, bad := middleware.ParseTrustedProxies(c.Config.TrustedProxyList())
	if len(bad) > 0 {
		c.Logger.WithField("entries", bad).Warn("ignoring invalid TRUSTED_PROXIES entries")
	}
	// gin's own ClientIP (access log) follows the same list
	if err := r.SetTrustedProxies(netStrings(proxies)); err != nil {
		c.Logger.WithError(err).Warn("trusted proxies not applied")
	}
	r.Use(middleware.RequestIDMiddleware())
	r.Use(gin.CustomRecovery(func(ctx *gin.Context, rec any) {
		c.Logger.WithField("request_id", ctx.GetString("request_id")).Errorf("panic recovered: %v", rec)
		response.Abort(ctx, http.StatusInternalServerError, "internal server error", nil)
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     c.Config.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if c.Config.HTTPLogEnabled {
		r.Use(gin.Logger())
	}
	r.NoRoute(func(ctx *gin.Context) {
		response.Error[any](ctx, http.StatusNotFound, "not found", nil)
	})

	reg := NewRegistry(r)
	reg.Use(middleware.RealIP(proxies...))
	InitModules(reg, c)
	reg.RegisterAll()
	return r
}

func netStrings(nets []*net.IPNet) []string {
	out := make([]string, 0, len(nets))
	for _, n := range nets {
		out = append(out, n.String())
	}
	return out
}
