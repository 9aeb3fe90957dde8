package repository

import (
	"context"
	"database/sql"
	"log"
	"strings"

	"github.com/Tcborder/ethernal-tickets/internal/model"
	"github.com/Tcborder/ethernal-tickets/internal/utils"
)

// AccountRepo is the ledger store: it owns the `users` table and is
// the only component that mutates Etherion balances. Balance changes
// are single conditional UPDATE statements so concurrent callers on
// the same account are serialized by the storage engine row lock; no
// caller can observe a transient negative balance and no update is
// ever lost.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

// Create inserts a new account with the given starting balance and
// returns its ID. The email is lower-cased before insertion so the
// unique index also enforces case-insensitive uniqueness.
func (r *AccountRepo) Create(ctx context.Context, email, password, username string, startingBalance int64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" {
		// Mirror the storefront default: local part of the email.
		if i := strings.IndexByte(email, '@'); i > 0 {
			username = email[:i]
		} else {
			username = email
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, username, etherion_balance) VALUES (?,?,?,?)",
		email, hash, username, startingBalance)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var a model.Account
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,username,etherion_balance,is_admin,created_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Username, &a.Balance, &a.IsAdmin, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrAccountNotFound
	}
	return a, err
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	var a model.Account
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,username,etherion_balance,is_admin,created_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Username, &a.Balance, &a.IsAdmin, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrAccountNotFound
	}
	return a, err
}

// GetBalance returns the current balance for the account.
func (r *AccountRepo) GetBalance(ctx context.Context, id uint64) (int64, error) {
	var balance int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT etherion_balance FROM users WHERE id=? LIMIT 1", id).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrAccountNotFound
	}
	return balance, err
}

// AdjustBalance applies delta (positive or negative) to the account's
// balance and returns the new balance. A negative delta is applied
// only when the resulting balance stays >= 0; otherwise
// ErrInsufficientFunds is returned and the balance is unchanged. The
// check and the write happen in one UPDATE statement, so two
// concurrent debits on the same account cannot both pass the check.
// The follow-up SELECT runs in the same transaction while the row
// lock is still held, so the reported balance is this adjustment's
// own result, never a later caller's. The reason tag is recorded in
// the server log for auditability.
func (r *AccountRepo) AdjustBalance(ctx context.Context, id uint64, delta int64, reason string) (int64, error) {
	if delta == 0 {
		return r.GetBalance(ctx, id)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET etherion_balance = etherion_balance + ? WHERE id = ? AND etherion_balance + ? >= 0",
		delta, id, delta)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	var balance int64
	err = tx.QueryRowContext(ctx,
		"SELECT etherion_balance FROM users WHERE id=? LIMIT 1", id).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		// The account exists, so the debit would have gone negative.
		return 0, ErrInsufficientFunds
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	log.Printf("ledger: account=%d delta=%d reason=%s balance=%d", id, delta, reason, balance)
	return balance, nil
}

// ClampedCredit adds amount to the account's balance and clamps the
// result into [0, ceiling]. It never fails for business reasons; the
// post-clamp balance is always reported. BIGINT arithmetic errors out
// on overflow rather than wrapping, so amounts at or beyond the
// ceiling never reach the additive statement: any balance in
// [0, ceiling] lands exactly on the bound, and the bound is written
// directly.
func (r *AccountRepo) ClampedCredit(ctx context.Context, id uint64, amount, ceiling int64) (int64, error) {
	var err error
	switch {
	case amount >= ceiling:
		_, err = r.DB.ExecContext(ctx,
			"UPDATE users SET etherion_balance = ? WHERE id = ?", ceiling, id)
	case amount <= -ceiling:
		_, err = r.DB.ExecContext(ctx,
			"UPDATE users SET etherion_balance = 0 WHERE id = ?", id)
	default:
		// |amount| < ceiling and the balance never leaves [0, ceiling],
		// so the sum stays far inside the BIGINT range.
		_, err = r.DB.ExecContext(ctx,
			"UPDATE users SET etherion_balance = LEAST(GREATEST(etherion_balance + ?, 0), ?) WHERE id = ?",
			amount, ceiling, id)
	}
	if err != nil {
		return 0, err
	}
	// RowsAffected is 0 both for a missing account and for a no-op
	// clamp, so existence is checked by reading the balance back.
	return r.GetBalance(ctx, id)
}

// SetPassword replaces the account's password hash. The write is
// idempotent and takes effect immediately.
func (r *AccountRepo) SetPassword(ctx context.Context, id uint64, newHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", newHash, id)
	if err != nil {
		return err
	}
	return r.requireAccount(ctx, res, id)
}

// SetAdminFlag grants or revokes admin rights. Idempotent.
func (r *AccountRepo) SetAdminFlag(ctx context.Context, id uint64, isAdmin bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_admin=? WHERE id=?", isAdmin, id)
	if err != nil {
		return err
	}
	return r.requireAccount(ctx, res, id)
}

// ListAll returns every account ordered by id. Password hashes are
// included in the structs but are never serialized (json:"-").
func (r *AccountRepo) ListAll(ctx context.Context) ([]model.Account, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,email,password_hash,username,etherion_balance,is_admin,created_at FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts := make([]model.Account, 0)
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Username, &a.Balance, &a.IsAdmin, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// requireAccount maps a zero-row UPDATE onto ErrAccountNotFound,
// tolerating the MySQL behavior of reporting zero affected rows when
// the new value equals the old one.
func (r *AccountRepo) requireAccount(ctx context.Context, res sql.Result, id uint64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	_, err = r.GetBalance(ctx, id)
	return err
}
