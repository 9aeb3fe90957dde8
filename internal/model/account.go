package model

import "time"

// Account represents a registered user as stored in the `users` table.
// Balances are integers in minor units of Etherions; floating point is
// never used for currency. The Balance field must stay non-negative at
// all times and is mutated only through the repository.AccountRepo
// methods, never by direct SQL from other components.
//
// Fields:
//  ID           – primary key identifier of the account.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Username     – display name shown on tickets.
//  Balance      – Etherion balance in minor units (>= 0).
//  IsAdmin      – whether the account may call admin endpoints.
//  CreatedAt    – timestamp of registration.
type Account struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Username     string    `json:"username"`
	Balance      int64     `json:"balance"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}
