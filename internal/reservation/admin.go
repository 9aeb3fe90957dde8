package reservation

import (
	"context"
	"database/sql"

	"github.com/Tcborder/ethernal-tickets/internal/repository"
	"github.com/Tcborder/ethernal-tickets/internal/utils"
)

// AdminService carries operator-triggered ledger and inventory
// corrections. These bypass the normal purchase checks but not the
// core invariants: credits are clamped so a balance never leaves
// [0, ceiling], and a ticket is never deleted without its seat being
// released in the same transaction (and vice versa).
type AdminService struct {
	db       *sql.DB
	accounts *repository.AccountRepo
	seats    *repository.SeatRepo
	tickets  *repository.TicketRepo

	ceiling    int64
	bcryptCost int
}

// NewAdminService constructs an AdminService. ceiling is the maximum
// representable balance (the storefront used 10^15); bcryptCost is
// used when operators set passwords.
func NewAdminService(db *sql.DB, accounts *repository.AccountRepo, seats *repository.SeatRepo, tickets *repository.TicketRepo, ceiling int64, bcryptCost int) *AdminService {
	if db == nil || accounts == nil || seats == nil || tickets == nil {
		panic("nil dependency passed to NewAdminService")
	}
	return &AdminService{db: db, accounts: accounts, seats: seats, tickets: tickets, ceiling: ceiling, bcryptCost: bcryptCost}
}

// GrantFunds credits (or debits, for negative amounts) the account and
// clamps the result into [0, ceiling]. It never fails for business
// reasons and reports the post-clamp balance.
func (s *AdminService) GrantFunds(ctx context.Context, accountID uint64, amount int64) (int64, error) {
	return s.accounts.ClampedCredit(ctx, accountID, amount, s.ceiling)
}

// SetPassword hashes the new password and writes it. Idempotent.
func (s *AdminService) SetPassword(ctx context.Context, accountID uint64, newPassword string) error {
	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.accounts.SetPassword(ctx, accountID, hash)
}

// SetAdminFlag grants or revokes admin rights. Idempotent.
func (s *AdminService) SetAdminFlag(ctx context.Context, accountID uint64, isAdmin bool) error {
	return s.accounts.SetAdminFlag(ctx, accountID, isAdmin)
}

// RevokeTickets deletes the tickets matching the given seat
// identifiers (across all events) and releases their seats, both in
// one transaction. It returns the number of tickets revoked.
func (s *AdminService) RevokeTickets(ctx context.Context, seatIDs []string) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	revoked, err := s.tickets.DeleteBySeatsTx(ctx, tx, seatIDs)
	if err != nil {
		return 0, err
	}
	if err := s.seats.ReleaseBySeatsTx(ctx, tx, seatIDs); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return len(revoked), nil
}

// ResetEvent deletes every ticket of the event and releases all of its
// seats in one transaction.
func (s *AdminService) ResetEvent(ctx context.Context, eventID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.tickets.DeleteByEventTx(ctx, tx, eventID); err != nil {
		return err
	}
	if err := s.seats.ReleaseEventTx(ctx, tx, eventID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ResetAllTickets deletes all tickets and releases all seats across
// all events.
func (s *AdminService) ResetAllTickets(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.tickets.DeleteAllTx(ctx, tx); err != nil {
		return err
	}
	if err := s.seats.ReleaseAllTx(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
