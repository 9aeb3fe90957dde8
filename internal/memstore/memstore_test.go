package memstore

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/Tcborder/ethernal-tickets/internal/model"
	"github.com/Tcborder/ethernal-tickets/internal/repository"
)

func TestLedgerAdjustBalance(t *testing.T) {
	l := NewLedger()
	l.CreateAccount(1, 100)

	if _, err := l.AdjustBalance(context.Background(), 1, -150, "debit"); !errors.Is(err, repository.ErrInsufficientFunds) {
		t.Fatalf("overdraft: got %v, want ErrInsufficientFunds", err)
	}
	if bal, _ := l.Balance(1); bal != 100 {
		t.Fatalf("failed debit changed balance: %d", bal)
	}

	bal, err := l.AdjustBalance(context.Background(), 1, -100, "debit")
	if err != nil || bal != 0 {
		t.Fatalf("exact debit: bal=%d err=%v", bal, err)
	}

	if _, err := l.AdjustBalance(context.Background(), 99, 10, "credit"); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Fatalf("unknown account: got %v", err)
	}
}

func TestLedgerConcurrentDebits(t *testing.T) {
	l := NewLedger()
	l.CreateAccount(1, 100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.AdjustBalance(context.Background(), 1, -30, "debit")
		}()
	}
	wg.Wait()

	// Only three debits of 30 fit into 100.
	if bal, _ := l.Balance(1); bal != 10 {
		t.Fatalf("balance = %d, want 10", bal)
	}
}

// The balance an adjustment reports must be its own result, not a
// later caller's: N concurrent credits of 10 must return the running
// totals 10..N*10 with no value repeated.
func TestLedgerAdjustBalanceReturnsOwnResult(t *testing.T) {
	l := NewLedger()
	l.CreateAccount(1, 0)

	const n = 50
	results := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bal, err := l.AdjustBalance(context.Background(), 1, 10, "credit")
			if err != nil {
				t.Errorf("AdjustBalance: %v", err)
				return
			}
			results[i] = bal
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, bal := range results {
		if bal < 10 || bal > n*10 || bal%10 != 0 || seen[bal] {
			t.Fatalf("returned balances are not the distinct running totals: %v", results)
		}
		seen[bal] = true
	}
}

func TestLedgerClampedCredit(t *testing.T) {
	const ceiling = int64(1_000_000_000_000_000)
	l := NewLedger()
	l.CreateAccount(1, 1000)

	bal, err := l.ClampedCredit(context.Background(), 1, ceiling, ceiling)
	if err != nil || bal != ceiling {
		t.Fatalf("credit above ceiling: bal=%d err=%v", bal, err)
	}

	bal, err = l.ClampedCredit(context.Background(), 1, -2*ceiling, ceiling)
	if err != nil || bal != 0 {
		t.Fatalf("debit below zero: bal=%d err=%v", bal, err)
	}

	bal, err = l.ClampedCredit(context.Background(), 1, 500, ceiling)
	if err != nil || bal != 500 {
		t.Fatalf("plain credit: bal=%d err=%v", bal, err)
	}
}

func TestLedgerClampedCreditOverflowScaleAmounts(t *testing.T) {
	const ceiling = int64(1_000_000_000_000_000)
	l := NewLedger()
	l.CreateAccount(1, 1000)

	// A credit near int64 max must land on the ceiling, not wrap
	// negative and get clamped to zero.
	bal, err := l.ClampedCredit(context.Background(), 1, math.MaxInt64, ceiling)
	if err != nil || bal != ceiling {
		t.Fatalf("max credit: bal=%d err=%v, want %d", bal, err, ceiling)
	}

	bal, err = l.ClampedCredit(context.Background(), 1, math.MinInt64, ceiling)
	if err != nil || bal != 0 {
		t.Fatalf("min debit: bal=%d err=%v, want 0", bal, err)
	}

	bal, err = l.ClampedCredit(context.Background(), 1, ceiling-1, ceiling)
	if err != nil || bal != ceiling-1 {
		t.Fatalf("near-ceiling credit: bal=%d err=%v, want %d", bal, err, ceiling-1)
	}
	bal, err = l.ClampedCredit(context.Background(), 1, 2, ceiling)
	if err != nil || bal != ceiling {
		t.Fatalf("credit past ceiling: bal=%d err=%v, want %d", bal, err, ceiling)
	}
}

func TestInventoryAllOrNothing(t *testing.T) {
	inv := NewInventory()
	ctx := context.Background()

	if err := inv.Reserve(ctx, "show", []string{"A-1", "A-2"}); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	err := inv.Reserve(ctx, "show", []string{"A-2", "A-3"})
	var conflict *repository.SeatConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("got %v, want SeatConflictError", err)
	}
	if len(conflict.SeatIDs) != 1 || conflict.SeatIDs[0] != "A-2" {
		t.Fatalf("conflict names %v, want [A-2]", conflict.SeatIDs)
	}

	// A-3 must not have been taken by the failed reserve.
	if sold := inv.Sold("show"); len(sold) != 2 {
		t.Fatalf("sold = %v, want [A-1 A-2]", sold)
	}
}

func TestInventorySeatsIndependentPerEvent(t *testing.T) {
	inv := NewInventory()
	ctx := context.Background()

	if err := inv.Reserve(ctx, "matinee", []string{"A-1"}); err != nil {
		t.Fatalf("reserve matinee: %v", err)
	}
	if err := inv.Reserve(ctx, "evening", []string{"A-1"}); err != nil {
		t.Fatalf("same seat, other event: %v", err)
	}
}

func TestInventoryReleaseIdempotent(t *testing.T) {
	inv := NewInventory()
	ctx := context.Background()

	if err := inv.Reserve(ctx, "show", []string{"B-1"}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := inv.Release(ctx, "show", []string{"B-1"}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := inv.Release(ctx, "show", []string{"B-1"}); err != nil {
		t.Fatalf("double release: %v", err)
	}
	if err := inv.Release(ctx, "no-such-event", []string{"B-1"}); err != nil {
		t.Fatalf("release on unknown event: %v", err)
	}
	if sold := inv.Sold("show"); len(sold) != 0 {
		t.Fatalf("sold = %v, want empty", sold)
	}
}

func TestTicketStoreAssignsIDs(t *testing.T) {
	ts := NewTicketStore()
	batch := []model.Ticket{
		{AccountID: 1, EventID: "show", SeatID: "A-1", Price: 100},
		{AccountID: 1, EventID: "show", SeatID: "A-2", Price: 100},
	}
	created, err := ts.CreateBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if created[0].ID != 1 || created[1].ID != 2 {
		t.Fatalf("ids = %d,%d, want 1,2", created[0].ID, created[1].ID)
	}
	if created[0].PurchasedAt.IsZero() {
		t.Fatal("purchase time not stamped")
	}
	if got := ts.All(); len(got) != 2 {
		t.Fatalf("stored %d tickets, want 2", len(got))
	}
}
