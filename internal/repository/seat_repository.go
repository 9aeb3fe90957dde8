package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Tcborder/ethernal-tickets/internal/model"
)

// SeatRepo is the seat inventory: it owns the `event_seats` table and
// tracks which seats are sold per event. A seat is Available when no
// row exists for it and Sold while a row exists; Reserve inserts rows
// and Release deletes them. The unique key on (event_id, seat_id)
// makes a multi-row Reserve statement-atomic: when any requested seat
// already has a row the whole INSERT fails and no row is written, so
// two concurrent reservations naming an overlapping seat can never
// both succeed.
type SeatRepo struct{ DB *sql.DB }

func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{DB: db} }

// QuerySold returns the identifiers of all sold seats for the event.
// The snapshot is read without locking and may lag concurrent writers.
func (r *SeatRepo) QuerySold(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT seat_id FROM event_seats WHERE event_id=? ORDER BY seat_id", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sold := make([]string, 0)
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		sold = append(sold, sid)
	}
	return sold, rows.Err()
}

// QuerySoldAll returns every sold seat across all events.
func (r *SeatRepo) QuerySoldAll(ctx context.Context) ([]model.SeatRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT event_id, seat_id, status, sold_at FROM event_seats ORDER BY event_id, seat_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]model.SeatRecord, 0)
	for rows.Next() {
		var rec model.SeatRecord
		if err := rows.Scan(&rec.EventID, &rec.SeatID, &rec.Status, &rec.SoldAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Reserve marks every listed seat Sold in one atomic step. When any
// seat is already sold, the multi-row INSERT is rejected as a whole by
// the unique key, no seat in the request changes state, and a
// *SeatConflictError naming the offending seats is returned.
func (r *SeatRepo) Reserve(ctx context.Context, eventID string, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `INSERT INTO event_seats (event_id, seat_id, status) VALUES `
	args := make([]interface{}, 0, len(seatIDs)*3)
	for i, sid := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, eventID, sid, model.SeatSold)
	}
	_, err := r.DB.ExecContext(ctx, query, args...)
	if err == nil {
		return nil
	}
	if !strings.Contains(strings.ToLower(err.Error()), "1062") {
		return err
	}
	// Duplicate key: find out which of the requested seats clashed so
	// the caller can report them. Best effort; when the lookup itself
	// fails the original conflict is still reported, just without the
	// seat list.
	taken, qerr := r.soldSubset(ctx, eventID, seatIDs)
	if qerr != nil || len(taken) == 0 {
		taken = seatIDs
	}
	return &SeatConflictError{EventID: eventID, SeatIDs: taken}
}

// Release marks the listed seats Available regardless of current
// state. Releasing an already-available seat is a no-op, not an
// error, so the coordinator may retry compensation freely.
func (r *SeatRepo) Release(ctx context.Context, eventID string, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `DELETE FROM event_seats WHERE event_id=? AND seat_id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, eventID)
	for _, sid := range seatIDs {
		args = append(args, sid)
	}
	_, err := r.DB.ExecContext(ctx, query, args...)
	return err
}

// ReleaseTx is Release inside an existing transaction. Used by the
// admin override so a ticket is never deleted without its seat being
// released in the same unit of work.
func (r *SeatRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, eventID string, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `DELETE FROM event_seats WHERE event_id=? AND seat_id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, eventID)
	for _, sid := range seatIDs {
		args = append(args, sid)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ReleaseBySeatsTx releases the given seat identifiers across all
// events. The original admin revoke addressed seats by identifier
// alone, without naming the event.
func (r *SeatRepo) ReleaseBySeatsTx(ctx context.Context, tx *sql.Tx, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `DELETE FROM event_seats WHERE seat_id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs))
	for _, sid := range seatIDs {
		args = append(args, sid)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ReleaseEventTx releases every seat of one event.
func (r *SeatRepo) ReleaseEventTx(ctx context.Context, tx *sql.Tx, eventID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM event_seats WHERE event_id=?`, eventID)
	return err
}

// ReleaseAllTx releases every seat across all events.
func (r *SeatRepo) ReleaseAllTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM event_seats`)
	return err
}

// soldSubset returns which of the given seats are currently sold for
// the event.
func (r *SeatRepo) soldSubset(ctx context.Context, eventID string, seatIDs []string) ([]string, error) {
	query := `SELECT seat_id FROM event_seats WHERE event_id=? AND seat_id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, eventID)
	for _, sid := range seatIDs {
		args = append(args, sid)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var taken []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		taken = append(taken, sid)
	}
	return taken, rows.Err()
}

// placeholders builds a "?,?,?" list for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
