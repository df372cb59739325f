package router

import (
	"github.com/oksasatya/finboard/internal/container"
	handlers "github.com/oksasatya/finboard/internal/interface/http"
	"github.com/oksasatya/finboard/internal/router/modules"
)

// InitModules builds every feature module from the container and adds it to the registry.
func InitModules(r *Registry, c *container.Container) {
	authHandler := handlers.NewAuthHandler(c.Service, c.Logger, c.Cookies)
	r.Add(modules.NewAuthModule(authHandler, c.Service, c.Redis, c.Config.LoginRateLimit))

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(c.Checks, c.Logger)))

	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.Redis))
	}
}
