package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness for load balancers and monitoring.
type HealthHandler struct {
	DB *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler { return &HealthHandler{DB: db} }

// Health pings the database with a short timeout so the check reflects
// whether the service can actually serve requests, not just that the
// process is up.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "database": "unreachable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "active", "database": "connected"})
}
