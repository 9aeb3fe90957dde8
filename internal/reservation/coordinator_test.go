package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Tcborder/ethernal-tickets/internal/memstore"
	"github.com/Tcborder/ethernal-tickets/internal/model"
	"github.com/Tcborder/ethernal-tickets/internal/repository"
)

func newTestStores() (*memstore.Ledger, *memstore.Inventory, *memstore.TicketStore) {
	return memstore.NewLedger(), memstore.NewInventory(), memstore.NewTicketStore()
}

func newTestCoordinator(ledger Ledger, seats Inventory, tickets TicketStore) *Coordinator {
	co := NewCoordinator(ledger, seats, tickets)
	co.retryBase = time.Millisecond
	return co
}

func TestPurchaseSuccess(t *testing.T) {
	ledger, inv, tickets := newTestStores()
	ledger.CreateAccount(1, 1000)
	co := newTestCoordinator(ledger, inv, tickets)

	created, err := co.Purchase(context.Background(), model.PurchaseIntent{
		AccountID:  1,
		EventID:    "gala-night",
		SeatIDs:    []string{"A-1", "A-2"},
		TotalPrice: 200,
	})
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(created))
	}
	var sum int64
	for _, tk := range created {
		if tk.ID == 0 {
			t.Fatalf("ticket without id: %+v", tk)
		}
		if tk.AccountID != 1 || tk.EventID != "gala-night" {
			t.Fatalf("unexpected ticket: %+v", tk)
		}
		sum += tk.Price
	}
	if sum != 200 {
		t.Fatalf("ticket prices sum to %d, want 200", sum)
	}

	bal, err := ledger.Balance(1)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 800 {
		t.Fatalf("balance = %d, want 800", bal)
	}
	sold := inv.Sold("gala-night")
	if len(sold) != 2 || sold[0] != "A-1" || sold[1] != "A-2" {
		t.Fatalf("sold seats = %v", sold)
	}
}

func TestPurchaseInsufficientFundsReleasesSeats(t *testing.T) {
	ledger, inv, tickets := newTestStores()
	ledger.CreateAccount(1, 500)
	co := newTestCoordinator(ledger, inv, tickets)

	_, err := co.Purchase(context.Background(), model.PurchaseIntent{
		AccountID:  1,
		EventID:    "gala-night",
		SeatIDs:    []string{"B-1", "B-2", "B-3"},
		TotalPrice: 600,
	})
	if !errors.Is(err, repository.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if bal, _ := ledger.Balance(1); bal != 500 {
		t.Fatalf("balance = %d, want 500 (untouched)", bal)
	}
	if sold := inv.Sold("gala-night"); len(sold) != 0 {
		t.Fatalf("seats still sold after rejection: %v", sold)
	}
	if got := tickets.All(); len(got) != 0 {
		t.Fatalf("tickets created for rejected purchase: %v", got)
	}
}

func TestPurchaseSeatConflict(t *testing.T) {
	ledger, inv, tickets := newTestStores()
	ledger.CreateAccount(1, 1000)
	co := newTestCoordinator(ledger, inv, tickets)

	if err := inv.Reserve(context.Background(), "gala-night", []string{"C-2"}); err != nil {
		t.Fatalf("seed reserve: %v", err)
	}

	_, err := co.Purchase(context.Background(), model.PurchaseIntent{
		AccountID:  1,
		EventID:    "gala-night",
		SeatIDs:    []string{"C-1", "C-2"},
		TotalPrice: 100,
	})
	var unavailable *SeatsUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected SeatsUnavailableError, got %v", err)
	}
	if len(unavailable.SeatIDs) != 1 || unavailable.SeatIDs[0] != "C-2" {
		t.Fatalf("conflict names %v, want [C-2]", unavailable.SeatIDs)
	}

	// No partial reservation: C-1 must still be free.
	if sold := inv.Sold("gala-night"); len(sold) != 1 || sold[0] != "C-2" {
		t.Fatalf("sold = %v, want [C-2] only", sold)
	}
	if bal, _ := ledger.Balance(1); bal != 1000 {
		t.Fatalf("balance = %d, want 1000 (untouched)", bal)
	}
}

func TestPurchaseUnknownAccountReleasesSeats(t *testing.T) {
	ledger, inv, tickets := newTestStores()
	co := newTestCoordinator(ledger, inv, tickets)

	_, err := co.Purchase(context.Background(), model.PurchaseIntent{
		AccountID:  42,
		EventID:    "gala-night",
		SeatIDs:    []string{"D-1"},
		TotalPrice: 100,
	})
	if !errors.Is(err, repository.ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
	if sold := inv.Sold("gala-night"); len(sold) != 0 {
		t.Fatalf("seat left sold for unknown account: %v", sold)
	}
}

func TestPurchaseFreeTickets(t *testing.T) {
	ledger, inv, tickets := newTestStores()
	ledger.CreateAccount(1, 0)
	co := newTestCoordinator(ledger, inv, tickets)

	created, err := co.Purchase(context.Background(), model.PurchaseIntent{
		AccountID:  1,
		EventID:    "open-day",
		SeatIDs:    []string{"E-1"},
		TotalPrice: 0,
	})
	if err != nil {
		t.Fatalf("zero-price purchase rejected: %v", err)
	}
	if len(created) != 1 || created[0].Price != 0 {
		t.Fatalf("unexpected tickets: %+v", created)
	}
}

func TestConcurrentPurchaseSingleSeat(t *testing.T) {
	ledger, inv, tickets := newTestStores()
	const buyers = 50
	for i := 1; i <= buyers; i++ {
		ledger.CreateAccount(uint64(i), 1000)
	}
	co := newTestCoordinator(ledger, inv, tickets)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	conflicts := 0

	for i := 1; i <= buyers; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			_, err := co.Purchase(context.Background(), model.PurchaseIntent{
				AccountID:  id,
				EventID:    "gala-night",
				SeatIDs:    []string{"seat-9"},
				TotalPrice: 200,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			default:
				var unavailable *SeatsUnavailableError
				if !errors.As(err, &unavailable) {
					t.Errorf("loser got %v, want SeatsUnavailableError", err)
					return
				}
				conflicts++
			}
		}(uint64(i))
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	if conflicts != buyers-1 {
		t.Fatalf("conflicts = %d, want %d", conflicts, buyers-1)
	}
	if got := len(tickets.All()); got != 1 {
		t.Fatalf("tickets minted = %d, want 1", got)
	}

	debited := 0
	for i := 1; i <= buyers; i++ {
		if bal, _ := ledger.Balance(uint64(i)); bal != 1000 {
			debited++
			if bal != 800 {
				t.Fatalf("account %d balance = %d, want 800", i, bal)
			}
		}
	}
	if debited != 1 {
		t.Fatalf("debited accounts = %d, want exactly 1", debited)
	}
}

func TestValidateIntent(t *testing.T) {
	cases := []struct {
		name   string
		intent model.PurchaseIntent
		wantOK bool
	}{
		{"valid", model.PurchaseIntent{AccountID: 1, EventID: "e", SeatIDs: []string{"a"}, TotalPrice: 10}, true},
		{"zero price", model.PurchaseIntent{AccountID: 1, EventID: "e", SeatIDs: []string{"a"}}, true},
		{"missing account", model.PurchaseIntent{EventID: "e", SeatIDs: []string{"a"}}, false},
		{"missing event", model.PurchaseIntent{AccountID: 1, SeatIDs: []string{"a"}}, false},
		{"no seats", model.PurchaseIntent{AccountID: 1, EventID: "e"}, false},
		{"negative price", model.PurchaseIntent{AccountID: 1, EventID: "e", SeatIDs: []string{"a"}, TotalPrice: -1}, false},
		{"empty seat id", model.PurchaseIntent{AccountID: 1, EventID: "e", SeatIDs: []string{"a", ""}}, false},
		{"duplicate seat", model.PurchaseIntent{AccountID: 1, EventID: "e", SeatIDs: []string{"a", "a"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateIntent(tc.intent)
			if tc.wantOK && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.wantOK {
				if !errors.Is(err, ErrInvalidIntent) {
					t.Fatalf("got %v, want ErrInvalidIntent", err)
				}
			}
		})
	}
}

func TestSplitPrice(t *testing.T) {
	cases := []struct {
		total int64
		n     int
		want  []int64
	}{
		{300, 3, []int64{100, 100, 100}},
		{301, 3, []int64{101, 100, 100}},
		{200, 1, []int64{200}},
		{0, 2, []int64{0, 0}},
		{5, 4, []int64{2, 1, 1, 1}},
	}
	for _, tc := range cases {
		got := splitPrice(tc.total, tc.n)
		if len(got) != len(tc.want) {
			t.Fatalf("splitPrice(%d, %d) = %v, want %v", tc.total, tc.n, got, tc.want)
		}
		var sum int64
		for i := range got {
			sum += got[i]
			if got[i] != tc.want[i] {
				t.Fatalf("splitPrice(%d, %d) = %v, want %v", tc.total, tc.n, got, tc.want)
			}
		}
		if sum != tc.total {
			t.Fatalf("splitPrice(%d, %d) sums to %d", tc.total, tc.n, sum)
		}
	}
}

// flakyInventory fails the first failN Release calls to exercise the
// compensation retry loop.
type flakyInventory struct {
	*memstore.Inventory

	mu       sync.Mutex
	failN    int
	attempts int
}

func (f *flakyInventory) Release(ctx context.Context, eventID string, seatIDs []string) error {
	f.mu.Lock()
	f.attempts++
	fail := f.attempts <= f.failN
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("transient release failure")
	}
	return f.Inventory.Release(ctx, eventID, seatIDs)
}

// failingTicketStore always refuses to persist, forcing the full
// release-and-refund rollback path.
type failingTicketStore struct{}

func (failingTicketStore) CreateBatch(context.Context, []model.Ticket) ([]model.Ticket, error) {
	return nil, fmt.Errorf("ticket store down")
}

func TestTicketFailureRollsBackWithRetries(t *testing.T) {
	ledger, inv, _ := newTestStores()
	ledger.CreateAccount(1, 1000)
	flaky := &flakyInventory{Inventory: inv, failN: 3}
	co := newTestCoordinator(ledger, flaky, failingTicketStore{})

	_, err := co.Purchase(context.Background(), model.PurchaseIntent{
		AccountID:  1,
		EventID:    "gala-night",
		SeatIDs:    []string{"F-1", "F-2"},
		TotalPrice: 400,
	})
	if err == nil {
		t.Fatal("expected purchase to fail")
	}

	if bal, _ := ledger.Balance(1); bal != 1000 {
		t.Fatalf("balance = %d, want 1000 after refund", bal)
	}
	if sold := inv.Sold("gala-night"); len(sold) != 0 {
		t.Fatalf("seats still sold after rollback: %v", sold)
	}
	if flaky.attempts != 4 {
		t.Fatalf("release attempts = %d, want 4 (3 failures then success)", flaky.attempts)
	}
}

func TestReleaseRetryExhaustion(t *testing.T) {
	ledger, inv, _ := newTestStores()
	ledger.CreateAccount(1, 1000)
	flaky := &flakyInventory{Inventory: inv, failN: 1 << 30}
	co := newTestCoordinator(ledger, flaky, failingTicketStore{})
	co.retryAttempts = 3

	_, err := co.Purchase(context.Background(), model.PurchaseIntent{
		AccountID:  1,
		EventID:    "gala-night",
		SeatIDs:    []string{"G-1"},
		TotalPrice: 100,
	})
	if err == nil {
		t.Fatal("expected purchase to fail")
	}
	if flaky.attempts != 3 {
		t.Fatalf("release attempts = %d, want 3", flaky.attempts)
	}
	if !strings.Contains(err.Error(), "manual release") {
		t.Fatalf("terminal error does not name the stuck seats: %v", err)
	}

	// The stuck release must not block the refund.
	if bal, _ := ledger.Balance(1); bal != 1000 {
		t.Fatalf("balance = %d, want 1000 after refund", bal)
	}
}

// refusingRefundLedger rejects positive adjustments so the refund leg
// of the rollback can be forced to fail alongside the release leg.
type refusingRefundLedger struct {
	*memstore.Ledger
}

func (l refusingRefundLedger) AdjustBalance(ctx context.Context, id uint64, delta int64, reason string) (int64, error) {
	if delta > 0 {
		return 0, fmt.Errorf("ledger write rejected")
	}
	return l.Ledger.AdjustBalance(ctx, id, delta, reason)
}

func TestRollbackReportsBothFailedCompensations(t *testing.T) {
	ledger, inv, _ := newTestStores()
	ledger.CreateAccount(1, 1000)
	flaky := &flakyInventory{Inventory: inv, failN: 1 << 30}
	co := newTestCoordinator(refusingRefundLedger{ledger}, flaky, failingTicketStore{})
	co.retryAttempts = 2

	_, err := co.Purchase(context.Background(), model.PurchaseIntent{
		AccountID:  1,
		EventID:    "gala-night",
		SeatIDs:    []string{"G-2"},
		TotalPrice: 100,
	})
	if err == nil {
		t.Fatal("expected purchase to fail")
	}
	if !strings.Contains(err.Error(), "manual release") {
		t.Fatalf("error does not name the stuck seats: %v", err)
	}
	if !strings.Contains(err.Error(), "compensating refund") {
		t.Fatalf("error does not name the failed refund: %v", err)
	}
}

// A purchase cancelled mid-flight must still reach a terminal state:
// compensation runs detached from the request context.
func TestRollbackSurvivesCancelledContext(t *testing.T) {
	ledger, inv, _ := newTestStores()
	ledger.CreateAccount(1, 1000)
	co := newTestCoordinator(ledger, inv, failingTicketStore{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := co.Purchase(ctx, model.PurchaseIntent{
		AccountID:  1,
		EventID:    "gala-night",
		SeatIDs:    []string{"H-1"},
		TotalPrice: 100,
	})
	if err == nil {
		t.Fatal("expected purchase to fail")
	}
	if bal, _ := ledger.Balance(1); bal != 1000 {
		t.Fatalf("balance = %d, want 1000 after refund", bal)
	}
	if sold := inv.Sold("gala-night"); len(sold) != 0 {
		t.Fatalf("seats still sold: %v", sold)
	}
}
