package model

import "time"

// SeatSold is the status stored in event_seats.status. A seat
// identifier with no row in event_seats is Available; inserting a row
// marks it Sold. The unique key on (event_id, seat_id) is what
// enforces the at-most-one-owner rule for concurrent reservations.
const SeatSold = "SOLD"

// SeatRecord mirrors a row of the `event_seats` table: one addressable
// seat within one event's inventory that has been sold. The event ID
// partitions inventories from each other; the same seat identifier may
// exist under many events.
type SeatRecord struct {
	EventID string    `json:"event_id"`
	SeatID  string    `json:"seat_id"`
	Status  string    `json:"status"`
	SoldAt  time.Time `json:"sold_at"`
}
