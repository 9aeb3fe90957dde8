package model

import "time"

// Ticket represents a purchased unit of access as stored in the
// `tickets` table. The ID is an auto-increment primary key so ticket
// numbers stay monotonic for readable display (TK-1, TK-2, ...).
// Exactly one ticket may reference a given (event_id, seat_id) pair;
// the table carries the same unique key as event_seats.
//
// Fields:
//  ID          – monotonic primary key.
//  AccountID   – owner of the ticket.
//  EventID     – event partition key (the event title in this system).
//  SeatID      – seat identifier consumed by this ticket.
//  Price       – this ticket's share of the purchase total, minor units.
//  PurchasedAt – when the purchase committed.
type Ticket struct {
	ID          uint64    `json:"id"`
	AccountID   uint64    `json:"account_id"`
	EventID     string    `json:"event_id"`
	SeatID      string    `json:"seat_id"`
	Price       int64     `json:"price"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// PurchaseIntent is the ephemeral unit of work submitted to the
// reservation coordinator. It is never persisted; handlers build one
// from the validated request body.
type PurchaseIntent struct {
	AccountID  uint64
	EventID    string
	SeatIDs    []string
	TotalPrice int64
}
