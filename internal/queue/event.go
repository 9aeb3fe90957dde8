// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// TicketPurchasedEvent is published when a purchase commits. It
// carries enough information for downstream consumers to log, notify
// or feed analytics without querying the primary database.
type TicketPurchasedEvent struct {
	AccountID   uint64   `json:"account_id"`
	Email       string   `json:"email"`
	EventID     string   `json:"event_id"`
	SeatIDs     []string `json:"seats"`
	TicketIDs   []uint64 `json:"ticket_ids"`
	TotalPrice  int64    `json:"total_price"`
	PurchasedAt string   `json:"purchased_at"`
}
