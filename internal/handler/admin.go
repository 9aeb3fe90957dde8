package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Tcborder/ethernal-tickets/internal/middleware"
	"github.com/Tcborder/ethernal-tickets/internal/repository"
	"github.com/Tcborder/ethernal-tickets/internal/reservation"
)

// AdminHandler exposes the operator override endpoints. Except for
// AddBalance (which also serves the self-service Etherion store), all
// routes sit behind the RequireAdmin middleware. Targets are
// addressed by email, matching the operator workflow of the original
// dashboard.
type AdminHandler struct {
	Accounts *repository.AccountRepo
	Tickets  *repository.TicketRepo
	Admin    *reservation.AdminService
}

// NewAdminHandler constructs an AdminHandler. All dependencies must
// be non-nil.
func NewAdminHandler(accounts *repository.AccountRepo, tickets *repository.TicketRepo, admin *reservation.AdminService) *AdminHandler {
	if accounts == nil || tickets == nil || admin == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Accounts: accounts, Tickets: tickets, Admin: admin}
}

// errResponded signals that resolveTarget already wrote the response,
// so the caller should stop without writing another one.
var errResponded = errors.New("response already written")

// resolveTarget loads the account addressed by email in the request
// body, translating a miss into 404.
func (h *AdminHandler) resolveTarget(c echo.Context, email string) (uint64, error) {
	a, err := h.Accounts.GetByEmail(c.Request().Context(), strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
			return 0, errResponded
		}
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		return 0, errResponded
	}
	return a.ID, nil
}

// AddBalance handles POST /api/admin/add-balance. Despite the path it
// doubles as the Etherion store: an account may top up itself, and
// admins may credit anyone. The credit is clamped into [0, ceiling],
// so operators cannot overflow a balance no matter the amount.
func (h *AdminHandler) AddBalance(c echo.Context) error {
	var req struct {
		Email  string `json:"email"`
		Amount int64  `json:"amount"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and amount are required"})
	}

	callerEmail, _ := c.Get("email").(string)
	isSelf := strings.EqualFold(strings.TrimSpace(req.Email), callerEmail)
	if !isSelf && !middleware.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	targetID, err := h.resolveTarget(c, req.Email)
	if err != nil {
		return nil
	}
	balance, err := h.Admin.GrantFunds(c.Request().Context(), targetID, req.Amount)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update balance"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "balance": balance})
}

// ChangePassword handles POST /api/admin/change-password.
func (h *AdminHandler) ChangePassword(c echo.Context) error {
	var req struct {
		Email       string `json:"email"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and new_password are required"})
	}
	targetID, err := h.resolveTarget(c, req.Email)
	if err != nil {
		return nil
	}
	if err := h.Admin.SetPassword(c.Request().Context(), targetID, req.NewPassword); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update password"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// SetAdmin handles POST /api/admin/set-admin.
func (h *AdminHandler) SetAdmin(c echo.Context) error {
	var req struct {
		Email   string `json:"email"`
		IsAdmin bool   `json:"is_admin"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}
	targetID, err := h.resolveTarget(c, req.Email)
	if err != nil {
		return nil
	}
	if err := h.Admin.SetAdminFlag(c.Request().Context(), targetID, req.IsAdmin); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update admin flag"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	accounts, err := h.Accounts.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load accounts"})
	}
	return c.JSON(http.StatusOK, accounts)
}

// ListTickets handles GET /api/admin/tickets.
func (h *AdminHandler) ListTickets(c echo.Context) error {
	tickets, err := h.Tickets.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tickets"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tickets})
}

// RevokeTickets handles POST /api/admin/tickets/revoke. Tickets for
// the listed seats are deleted and their seats released in one unit of
// work, so a revoked seat immediately shows as available again.
func (h *AdminHandler) RevokeTickets(c echo.Context) error {
	var req struct {
		SeatIDs []string `json:"seat_ids"`
	}
	if err := c.Bind(&req); err != nil || len(req.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}
	revoked, err := h.Admin.RevokeTickets(c.Request().Context(), req.SeatIDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to revoke tickets"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "revoked": revoked})
}

// ResetEvent handles POST /api/admin/tickets/reset-event.
func (h *AdminHandler) ResetEvent(c echo.Context) error {
	var req struct {
		EventTitle string `json:"event"`
	}
	if err := c.Bind(&req); err != nil || req.EventTitle == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event is required"})
	}
	if err := h.Admin.ResetEvent(c.Request().Context(), req.EventTitle); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reset event"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ResetAll handles POST /api/admin/tickets/reset.
func (h *AdminHandler) ResetAll(c echo.Context) error {
	if err := h.Admin.ResetAllTickets(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reset tickets"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
