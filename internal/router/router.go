package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Tcborder/ethernal-tickets/internal/handler"
	"github.com/Tcborder/ethernal-tickets/internal/middleware"
)

// Handlers bundles every handler the API mounts so RegisterRoutes does
// not grow a parameter per endpoint group.
type Handlers struct {
	Health *handler.HealthHandler
	Auth   *handler.AuthHandler
	Ticket *handler.TicketHandler
	Admin  *handler.AdminHandler
}

// Middleware bundles the optional route-level middleware. A nil entry
// means the concern is disabled and the route is mounted bare.
type Middleware struct {
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// RegisterRoutes mounts the full API surface under /api.
//
// Three tiers: public endpoints (health, sold-seat listings), the auth
// endpoints (register, login), and the authenticated group which
// carries JWT validation. Admin-only endpoints sit in a nested group
// that additionally requires the admin flag; add-balance stays outside
// it because accounts may top up themselves.
func RegisterRoutes(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
	api := e.Group("/api")

	// Public tier. Sold-seat listings are the hottest read path, so the
	// response cache (when enabled) sits only here.
	api.GET("/health", h.Health.Health)
	sold := api.Group("/tickets")
	if mw.Cache != nil {
		sold.Use(mw.Cache)
	}
	sold.GET("/sold", h.Ticket.SoldSeats)
	sold.GET("/sold/:event", h.Ticket.SoldSeatsByEvent)

	// Auth tier. Register and login are the brute-force targets, so the
	// rate limiter (when enabled) guards them.
	if mw.RateLimit != nil {
		api.POST("/register", h.Auth.Register, mw.RateLimit)
		api.POST("/login", h.Auth.Login, mw.RateLimit)
	} else {
		api.POST("/register", h.Auth.Register)
		api.POST("/login", h.Auth.Login)
	}

	// Authenticated tier.
	auth := api.Group("", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", h.Auth.Me)
	auth.POST("/tickets/purchase", h.Ticket.Purchase)
	auth.GET("/my-tickets", h.Ticket.MyTickets)

	// Self-or-admin: the handler decides based on the target email.
	auth.POST("/admin/add-balance", h.Admin.AddBalance)

	// Operator tier.
	admin := auth.Group("/admin", middleware.RequireAdmin())
	admin.POST("/change-password", h.Admin.ChangePassword)
	admin.POST("/set-admin", h.Admin.SetAdmin)
	admin.GET("/users", h.Admin.ListUsers)
	admin.GET("/tickets", h.Admin.ListTickets)
	admin.POST("/tickets/revoke", h.Admin.RevokeTickets)
	admin.POST("/tickets/reset-event", h.Admin.ResetEvent)
	admin.POST("/tickets/reset", h.Admin.ResetAll)
}
