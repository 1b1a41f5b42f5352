// Package router holds the shared route helpers and assembles the /api/v1 tree.
package router

import (
	"github.com/gofiber/fiber/v3"
)

// Router is handed to each domain's RegisterFunc.
type Router struct {
	app *fiber.App
}

// RoutePrefix holds the API path prefixes.
type RoutePrefix struct {
	Base string // /api
	V1   string // /api/v1
}

func NewRoutePrefix() RoutePrefix {
	base := "/api"
	return RoutePrefix{
		Base: base,
		V1:   base + "/v1",
	}
}

func NewRouter(app *fiber.App) *Router {
	return &Router{
		app: app,
	}
}

// App returns the underlying Fiber app.
func (r *Router) App() *fiber.App {
	return r.app
}

// RegisterRouteWithMiddleware registers prefix+path for method with the middlewares
// running before handler. Middlewares are attached to the route itself so two routes
// under the same prefix never run each other's middleware.
func RegisterRouteWithMiddleware(router fiber.Router, prefix string, method string, path string, middlewares []fiber.Handler, handler fiber.Handler) {
	routeGroup := router.Group(prefix)

	chain := make([]fiber.Handler, 0, len(middlewares)+1)
	chain = append(chain, middlewares...)
	chain = append(chain, handler)

	switch method {
	case fiber.MethodGet:
		routeGroup.Get(path, chain[0], chain[1:]...)
	case fiber.MethodPost:
		routeGroup.Post(path, chain[0], chain[1:]...)
	case fiber.MethodPut:
		routeGroup.Put(path, chain[0], chain[1:]...)
	case fiber.MethodDelete:
		routeGroup.Delete(path, chain[0], chain[1:]...)
	}
}

// RegisterFunc registers one domain's routes under v1.
type RegisterFunc func(v1 fiber.Router, r *Router) error

// SetupRoutes creates the /api/v1 group, a health route, and runs every RegisterFunc.
func SetupRoutes(app *fiber.App, regs ...RegisterFunc) error {
	prefix := NewRoutePrefix()
	v1 := app.Group(prefix.V1)
	v1.Get("/system/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	r := NewRouter(app)
	for _, reg := range regs {
		if err := reg(v1, r); err != nil {
			return err
		}
	}
	return nil
}
