package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Tcborder/ethernal-tickets/internal/model"
	"github.com/Tcborder/ethernal-tickets/internal/repository"
)

// Ledger is the balance store the coordinator debits. Implemented by
// repository.AccountRepo; tests substitute an in-memory ledger.
type Ledger interface {
	// AdjustBalance applies delta atomically and returns the new
	// balance, or repository.ErrInsufficientFunds when a debit would
	// go negative.
	AdjustBalance(ctx context.Context, accountID uint64, delta int64, reason string) (int64, error)
}

// Inventory is the per-event seat store. Reserve must be
// all-or-nothing across the requested set and return a
// *repository.SeatConflictError when any seat is already sold;
// Release must be idempotent. Implemented by repository.SeatRepo.
type Inventory interface {
	Reserve(ctx context.Context, eventID string, seatIDs []string) error
	Release(ctx context.Context, eventID string, seatIDs []string) error
}

// TicketStore persists the ticket batch of a committed purchase.
// Implemented by repository.TicketRepo.
type TicketStore interface {
	CreateBatch(ctx context.Context, tickets []model.Ticket) ([]model.Ticket, error)
}

// Coordinator composes inventory reservation and ledger debit into one
// logical purchase transaction. Ordering is fixed: reserve, then
// debit, then ticket creation, compensating on failure. The debit
// never runs before the seats are held. Each step is independently atomic; the
// guarantee against double-sold seats and negative balances comes from
// that atomicity plus the compensation below, not from one big lock.
type Coordinator struct {
	ledger  Ledger
	seats   Inventory
	tickets TicketStore

	// Compensation retry policy. A seat left wrongly Sold is a
	// correctness violation, so a failed release is retried with
	// exponential backoff up to retryAttempts before giving up
	// loudly.
	retryAttempts int
	retryBase     time.Duration
}

// NewCoordinator constructs a Coordinator. All dependencies must be
// non-nil.
func NewCoordinator(ledger Ledger, seats Inventory, tickets TicketStore) *Coordinator {
	if ledger == nil || seats == nil || tickets == nil {
		panic("nil dependency passed to NewCoordinator")
	}
	return &Coordinator{
		ledger:        ledger,
		seats:         seats,
		tickets:       tickets,
		retryAttempts: 10,
		retryBase:     50 * time.Millisecond,
	}
}

// Purchase executes a purchase intent end to end and returns the
// created ticket batch. Failure modes, all reported as rejected
// purchases and never retried automatically:
//
//   - ErrInvalidIntent        – malformed intent, nothing happened
//   - *SeatsUnavailableError  – some seats already sold, no ledger effect
//   - repository.ErrInsufficientFunds – reserved seats were released again
//
// There is no partial-success state visible to the caller: the
// purchase is either fully committed (seats sold, tickets created,
// balance debited) or fully rolled back.
func (co *Coordinator) Purchase(ctx context.Context, intent model.PurchaseIntent) ([]model.Ticket, error) {
	if err := validateIntent(intent); err != nil {
		return nil, err
	}

	// Step 1: reserve. All-or-nothing in the inventory; a conflict
	// means no ledger effect and no state change at all.
	if err := co.seats.Reserve(ctx, intent.EventID, intent.SeatIDs); err != nil {
		var conflict *repository.SeatConflictError
		if errors.As(err, &conflict) {
			return nil, &SeatsUnavailableError{EventID: conflict.EventID, SeatIDs: conflict.SeatIDs}
		}
		return nil, fmt.Errorf("reserve seats: %w", err)
	}

	// Step 2: debit. From here on the seats are reserved, so every
	// failure path must drive the flow to a terminal state by
	// releasing them (and refunding, once the debit has applied).
	if _, err := co.ledger.AdjustBalance(ctx, intent.AccountID, -intent.TotalPrice, "purchase:"+intent.EventID); err != nil {
		if relErr := co.releaseWithRetry(ctx, intent.EventID, intent.SeatIDs); relErr != nil {
			return nil, relErr
		}
		if errors.Is(err, repository.ErrInsufficientFunds) || errors.Is(err, repository.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("debit balance: %w", err)
	}

	// Step 3: create one ticket per seat. The price splits evenly;
	// the division remainder goes to the first ticket so the batch
	// always sums to the exact purchase total.
	prices := splitPrice(intent.TotalPrice, len(intent.SeatIDs))
	batch := make([]model.Ticket, 0, len(intent.SeatIDs))
	for i, sid := range intent.SeatIDs {
		batch = append(batch, model.Ticket{
			AccountID: intent.AccountID,
			EventID:   intent.EventID,
			SeatID:    sid,
			Price:     prices[i],
		})
	}
	created, err := co.tickets.CreateBatch(ctx, batch)
	if err != nil {
		// Both compensations run regardless of each other's outcome,
		// so the terminal error names everything still needing manual
		// repair: stuck seats, an unreturned debit, or both.
		relErr := co.releaseWithRetry(ctx, intent.EventID, intent.SeatIDs)
		refErr := co.refundWithRetry(ctx, intent.AccountID, intent.TotalPrice, intent.EventID)
		if relErr != nil || refErr != nil {
			return nil, errors.Join(relErr, refErr)
		}
		return nil, fmt.Errorf("create tickets: %w", err)
	}
	return created, nil
}

// validateIntent checks the intent before any state is touched.
func validateIntent(intent model.PurchaseIntent) error {
	if intent.AccountID == 0 {
		return fmt.Errorf("%w: missing account", ErrInvalidIntent)
	}
	if intent.EventID == "" {
		return fmt.Errorf("%w: missing event", ErrInvalidIntent)
	}
	if len(intent.SeatIDs) == 0 {
		return fmt.Errorf("%w: no seats requested", ErrInvalidIntent)
	}
	if intent.TotalPrice < 0 {
		return fmt.Errorf("%w: negative total price", ErrInvalidIntent)
	}
	seen := make(map[string]struct{}, len(intent.SeatIDs))
	for _, sid := range intent.SeatIDs {
		if sid == "" {
			return fmt.Errorf("%w: empty seat identifier", ErrInvalidIntent)
		}
		if _, dup := seen[sid]; dup {
			return fmt.Errorf("%w: duplicate seat %q", ErrInvalidIntent, sid)
		}
		seen[sid] = struct{}{}
	}
	return nil
}

// splitPrice divides total evenly across n tickets, assigning the
// remainder to the first ticket. The slice always sums to total.
func splitPrice(total int64, n int) []int64 {
	prices := make([]int64, n)
	each := total / int64(n)
	for i := range prices {
		prices[i] = each
	}
	prices[0] += total - each*int64(n)
	return prices
}

// releaseWithRetry undoes a reservation, retrying transient failures
// with exponential backoff. The release runs detached from the
// caller's cancellation: once seats are reserved the flow must reach a
// terminal state even if the requester goes away.
func (co *Coordinator) releaseWithRetry(ctx context.Context, eventID string, seatIDs []string) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	backoff := co.retryBase
	for attempt := 1; attempt <= co.retryAttempts; attempt++ {
		if err = co.seats.Release(ctx, eventID, seatIDs); err == nil {
			return nil
		}
		log.Printf("coordinator: release retry %d/%d event=%s: %v", attempt, co.retryAttempts, eventID, err)
		time.Sleep(backoff)
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("compensating seat release failed after %d attempts, seats %v of event %q need manual release: %w",
		co.retryAttempts, seatIDs, eventID, err)
}

// refundWithRetry returns a debited amount after a post-debit failure,
// with the same retry policy as releaseWithRetry. The refund is a
// plain positive adjustment and cannot hit the insufficient-funds
// check.
func (co *Coordinator) refundWithRetry(ctx context.Context, accountID uint64, amount int64, eventID string) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	backoff := co.retryBase
	for attempt := 1; attempt <= co.retryAttempts; attempt++ {
		if _, err = co.ledger.AdjustBalance(ctx, accountID, amount, "purchase-rollback:"+eventID); err == nil {
			return nil
		}
		log.Printf("coordinator: refund retry %d/%d account=%d: %v", attempt, co.retryAttempts, accountID, err)
		time.Sleep(backoff)
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("compensating refund of %d to account %d failed after %d attempts: %w",
		amount, accountID, co.retryAttempts, err)
}
