package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Tcborder/ethernal-tickets/internal/model"
	"github.com/Tcborder/ethernal-tickets/internal/queue"
	"github.com/Tcborder/ethernal-tickets/internal/repository"
	"github.com/Tcborder/ethernal-tickets/internal/reservation"
)

// TicketHandler serves the purchase flow and ticket/seat listings. It
// never touches seat or balance state directly: every mutation goes
// through the reservation coordinator so the handler stays a thin
// adapter between HTTP and the core.
type TicketHandler struct {
	Coordinator *reservation.Coordinator
	Seats       *repository.SeatRepo
	Tickets     *repository.TicketRepo
}

// NewTicketHandler constructs a TicketHandler. All dependencies must
// be non-nil.
func NewTicketHandler(coordinator *reservation.Coordinator, seats *repository.SeatRepo, tickets *repository.TicketRepo) *TicketHandler {
	if coordinator == nil || seats == nil || tickets == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{Coordinator: coordinator, Seats: seats, Tickets: tickets}
}

type purchaseReq struct {
	EventTitle string   `json:"event"`
	SeatIDs    []string `json:"seats"`
	TotalPrice int64    `json:"total_price"`
}

// Purchase handles POST /api/tickets/purchase. The request names the
// event, the seat identifiers and the total price; the coordinator
// does the rest. Rejections carry enough detail for an actionable
// client message: 402 for a balance shortfall, 409 with the seat list
// when seats were just taken, 400 for malformed intents.
func (h *TicketHandler) Purchase(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	intent := model.PurchaseIntent{
		AccountID:  accountID,
		EventID:    req.EventTitle,
		SeatIDs:    req.SeatIDs,
		TotalPrice: req.TotalPrice,
	}
	tickets, err := h.Coordinator.Purchase(c.Request().Context(), intent)
	if err != nil {
		var unavailable *reservation.SeatsUnavailableError
		switch {
		case errors.Is(err, reservation.ErrInvalidIntent):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.As(err, &unavailable):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":       "some seats were just taken",
				"unavailable": unavailable.SeatIDs,
			})
		case errors.Is(err, repository.ErrInsufficientFunds):
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "insufficient balance"})
		case errors.Is(err, repository.ErrAccountNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to process purchase"})
	}

	ids := make([]uint64, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	// Notify downstream consumers; a lost notification never fails a
	// committed purchase.
	email, _ := c.Get("email").(string)
	_ = queue.PublishTicketPurchased(c.Request().Context(), queue.TicketPurchasedEvent{
		AccountID:   accountID,
		Email:       email,
		EventID:     intent.EventID,
		SeatIDs:     intent.SeatIDs,
		TicketIDs:   ids,
		TotalPrice:  intent.TotalPrice,
		PurchasedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"ticket_ids": ids,
		"tickets":    tickets,
	})
}

// SoldSeats handles GET /api/tickets/sold. It returns the flat list
// of sold seat identifiers across all events; the public seat map uses
// it to grey out taken seats. The response is a snapshot and may lag
// concurrent purchases by a cache TTL.
func (h *TicketHandler) SoldSeats(c echo.Context) error {
	records, err := h.Seats.QuerySoldAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load sold seats"})
	}
	sold := make([]string, 0, len(records))
	for _, rec := range records {
		sold = append(sold, rec.SeatID)
	}
	return c.JSON(http.StatusOK, sold)
}

// SoldSeatsByEvent handles GET /api/tickets/sold/:event. Same as
// SoldSeats but scoped to one event's inventory.
func (h *TicketHandler) SoldSeatsByEvent(c echo.Context) error {
	eventID := c.Param("event")
	if eventID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event is required"})
	}
	sold, err := h.Seats.QuerySold(c.Request().Context(), eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load sold seats"})
	}
	return c.JSON(http.StatusOK, sold)
}

// MyTickets handles GET /api/my-tickets and returns the caller's
// tickets, newest first.
func (h *TicketHandler) MyTickets(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tickets, err := h.Tickets.ListByAccount(c.Request().Context(), accountID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tickets"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tickets})
}
