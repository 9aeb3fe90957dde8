// Package memstore provides in-memory implementations of the
// coordinator's ledger, inventory and ticket-store dependencies. They
// carry the same semantics as the SQL repositories (atomic
// check-and-apply debits, all-or-nothing reservation, clamped credit,
// idempotent release) guarded by mutexes instead of row locks, and are
// used by the concurrency harness and the package tests, where no
// database is available.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Tcborder/ethernal-tickets/internal/model"
	"github.com/Tcborder/ethernal-tickets/internal/repository"
)

// Ledger holds account balances in memory.
type Ledger struct {
	mu       sync.Mutex
	balances map[uint64]int64
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[uint64]int64)}
}

// CreateAccount registers an account with a starting balance.
func (l *Ledger) CreateAccount(id uint64, balance int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[id] = balance
}

// Balance returns the current balance.
func (l *Ledger) Balance(id uint64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[id]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	return b, nil
}

// AdjustBalance applies delta under the lock so the check and the
// write are one atomic step, exactly like the conditional UPDATE of
// the SQL ledger.
func (l *Ledger) AdjustBalance(_ context.Context, id uint64, delta int64, _ string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[id]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	if b+delta < 0 {
		return 0, repository.ErrInsufficientFunds
	}
	l.balances[id] = b + delta
	return b + delta, nil
}

// ClampedCredit adds amount and clamps the result into [0, ceiling].
// Never fails for business reasons, including overflow-scale amounts.
func (l *Ledger) ClampedCredit(_ context.Context, id uint64, amount, ceiling int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[id]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	b = clampAdd(b, amount, ceiling)
	l.balances[id] = b
	return b, nil
}

// clampAdd computes min(max(balance+amount, 0), ceiling) without the
// sum ever wrapping int64: amounts that would overflow are resolved to
// the bound they were heading for before any addition happens.
func clampAdd(balance, amount, ceiling int64) int64 {
	if amount >= ceiling || (amount > 0 && balance > ceiling-amount) {
		return ceiling
	}
	if amount <= -ceiling || balance+amount < 0 {
		return 0
	}
	if b := balance + amount; b < ceiling {
		return b
	}
	return ceiling
}

// Inventory tracks sold seats per event.
type Inventory struct {
	mu   sync.Mutex
	sold map[string]map[string]struct{} // eventID -> seatID set
}

func NewInventory() *Inventory {
	return &Inventory{sold: make(map[string]map[string]struct{})}
}

// Reserve marks all seats sold or none: the conflict check and the
// writes for the whole set happen under one critical section per
// store, which subsumes the per-event section the contract requires.
func (inv *Inventory) Reserve(_ context.Context, eventID string, seatIDs []string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	taken := inv.sold[eventID]
	var conflicts []string
	for _, sid := range seatIDs {
		if _, sold := taken[sid]; sold {
			conflicts = append(conflicts, sid)
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return &repository.SeatConflictError{EventID: eventID, SeatIDs: conflicts}
	}
	if taken == nil {
		taken = make(map[string]struct{})
		inv.sold[eventID] = taken
	}
	for _, sid := range seatIDs {
		taken[sid] = struct{}{}
	}
	return nil
}

// Release marks the seats available again. Releasing an available
// seat is a no-op.
func (inv *Inventory) Release(_ context.Context, eventID string, seatIDs []string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	taken := inv.sold[eventID]
	for _, sid := range seatIDs {
		delete(taken, sid)
	}
	return nil
}

// Sold returns the sold seat identifiers of an event, sorted.
func (inv *Inventory) Sold(eventID string) []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]string, 0, len(inv.sold[eventID]))
	for sid := range inv.sold[eventID] {
		out = append(out, sid)
	}
	sort.Strings(out)
	return out
}

// TicketStore assigns monotonic ticket IDs in memory.
type TicketStore struct {
	mu      sync.Mutex
	nextID  uint64
	tickets []model.Ticket
}

func NewTicketStore() *TicketStore {
	return &TicketStore{nextID: 1}
}

// CreateBatch stores the batch and stamps IDs and purchase times.
func (ts *TicketStore) CreateBatch(_ context.Context, batch []model.Ticket) ([]model.Ticket, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	now := time.Now().UTC()
	for i := range batch {
		batch[i].ID = ts.nextID
		batch[i].PurchasedAt = now
		ts.nextID++
	}
	ts.tickets = append(ts.tickets, batch...)
	return batch, nil
}

// All returns a copy of every stored ticket.
func (ts *TicketStore) All() []model.Ticket {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]model.Ticket, len(ts.tickets))
	copy(out, ts.tickets)
	return out
}
