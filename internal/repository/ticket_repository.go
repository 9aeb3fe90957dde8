package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Tcborder/ethernal-tickets/internal/model"
)

// TicketRepo provides persistence for purchased tickets. Tickets are
// created only by the reservation coordinator after seats have been
// reserved and the buyer debited, and destroyed only by the admin
// override, which releases the matching seats in the same
// transaction. All timestamps are stored in UTC.
type TicketRepo struct{ DB *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{DB: db} }

// CreateBatch inserts one ticket per seat in a single transaction and
// returns the tickets with their generated IDs and purchase
// timestamps populated. Either every ticket of the batch is created
// or none is.
func (r *TicketRepo) CreateBatch(ctx context.Context, tickets []model.Ticket) ([]model.Ticket, error) {
	if len(tickets) == 0 {
		return tickets, nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	now := time.Now().UTC()
	for i := range tickets {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO tickets (account_id, event_id, seat_id, price, purchased_at) VALUES (?,?,?,?,?)",
			tickets[i].AccountID, tickets[i].EventID, tickets[i].SeatID, tickets[i].Price,
			now.Format("2006-01-02 15:04:05"))
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		tickets[i].ID = uint64(id)
		tickets[i].PurchasedAt = now
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return tickets, nil
}

// ListByAccount returns the account's tickets, newest first.
func (r *TicketRepo) ListByAccount(ctx context.Context, accountID uint64) ([]model.Ticket, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, account_id, event_id, seat_id, price, purchased_at FROM tickets WHERE account_id=? ORDER BY purchased_at DESC, id DESC",
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListAll returns every ticket, newest first. Admin listing only.
func (r *TicketRepo) ListAll(ctx context.Context) ([]model.Ticket, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, account_id, event_id, seat_id, price, purchased_at FROM tickets ORDER BY purchased_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// DeleteBySeatsTx removes tickets matching the given seat identifiers
// (across all events) within the provided transaction and returns the
// deleted tickets so the caller can release the matching seats in the
// same unit of work.
func (r *TicketRepo) DeleteBySeatsTx(ctx context.Context, tx *sql.Tx, seatIDs []string) ([]model.Ticket, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id, account_id, event_id, seat_id, price, purchased_at FROM tickets WHERE seat_id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs))
	for _, sid := range seatIDs {
		args = append(args, sid)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	doomed, err := scanTickets(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	del := `DELETE FROM tickets WHERE seat_id IN (` + placeholders(len(seatIDs)) + `)`
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return nil, err
	}
	return doomed, nil
}

// DeleteByEventTx removes every ticket of one event within the
// provided transaction.
func (r *TicketRepo) DeleteByEventTx(ctx context.Context, tx *sql.Tx, eventID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE event_id=?`, eventID)
	return err
}

// DeleteAllTx removes every ticket across all events.
func (r *TicketRepo) DeleteAllTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM tickets`)
	return err
}

func scanTickets(rows *sql.Rows) ([]model.Ticket, error) {
	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.AccountID, &t.EventID, &t.SeatID, &t.Price, &t.PurchasedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
