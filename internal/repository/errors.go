// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as the reservation coordinator and the handlers to distinguish
// between different failure scenarios without string matching. For
// example, ErrInsufficientFunds signals a business-rule rejection of a
// debit, while a SeatConflictError carries the exact seats that caused
// an all-or-nothing reservation to fail.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAccountNotFound is returned when an operation references an
// account ID or email with no matching row. Handlers translate this
// into an HTTP 404 response.
var ErrAccountNotFound = errors.New("account not found")

// ErrEmailExists is returned by AccountRepo.Create when the email is
// already registered. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrInsufficientFunds is returned by AdjustBalance when applying a
// negative delta would drive the balance below zero. The balance is
// left unchanged. Handlers translate this into HTTP 402.
var ErrInsufficientFunds = errors.New("insufficient funds")

// SeatConflictError is returned by SeatRepo.Reserve when one or more
// of the requested seats are already sold. The whole reservation is
// rejected and no seat in the request changes state. The coordinator
// never surfaces this type verbatim; it is translated into a
// SeatsUnavailableError before reaching the HTTP boundary.
type SeatConflictError struct {
	EventID string
	SeatIDs []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats already sold for event %q: %s", e.EventID, strings.Join(e.SeatIDs, ", "))
}
