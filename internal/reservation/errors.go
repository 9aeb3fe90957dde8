// Package reservation contains the purchase coordinator and the admin
// override service. The coordinator is the only entry point for "buy
// these seats": it composes the seat inventory and the ledger into one
// all-or-nothing operation and is the only place compensation logic
// lives. Other failures propagate to the HTTP boundary unchanged.
package reservation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIntent rejects malformed purchase intents (empty or
// duplicated seat list, negative price). Callers must fix the request
// and resubmit; the error is never retried. Handlers translate it
// into HTTP 400. Use fmt.Errorf("%w: ...", ErrInvalidIntent) to
// attach the concrete reason.
var ErrInvalidIntent = errors.New("invalid purchase intent")

// SeatsUnavailableError is the purchase-level rejection produced when
// the inventory reports a conflict. The inventory's internal conflict
// error is never surfaced verbatim; the coordinator translates it into
// this type so clients get an actionable "these seats were just taken"
// message. Handlers translate it into HTTP 409.
type SeatsUnavailableError struct {
	EventID string
	SeatIDs []string
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable for event %q: %s", e.EventID, strings.Join(e.SeatIDs, ", "))
}
