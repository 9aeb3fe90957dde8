package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Tcborder/ethernal-tickets/internal/memstore"
	"github.com/Tcborder/ethernal-tickets/internal/model"
	"github.com/Tcborder/ethernal-tickets/internal/reservation"
)

// Stress harness for the reservation coordinator: many buyers race for
// the same single seat against the in-memory stores. Exactly one
// purchase must succeed and exactly one balance must shrink.

const (
	totalBuyers = 50
	ticketPrice = 200
	startingBal = 1000
	eventTitle  = "Capacity-1 Stress Test"
	seatID      = "A-1"
)

func simulateRace(co *reservation.Coordinator) int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0

	start := time.Now()

	for i := 0; i < totalBuyers; i++ {
		wg.Add(1)

		go func(buyer int) {
			defer wg.Done()

			accountID := uint64(buyer + 1)
			_, err := co.Purchase(context.Background(), model.PurchaseIntent{
				AccountID:  accountID,
				EventID:    eventTitle,
				SeatIDs:    []string{seatID},
				TotalPrice: ticketPrice,
			})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successCount++
				fmt.Printf("  goroutine %02d  BOUGHT\n", buyer+1)
			} else {
				fmt.Printf("  goroutine %02d  rejected  (%v)\n", buyer+1, err)
			}
		}(i)
	}

	wg.Wait()

	fmt.Println("Total Attempts:      ", totalBuyers)
	fmt.Println("Successful Purchases:", successCount)
	fmt.Println("Time Taken:          ", time.Since(start))
	return successCount
}

func main() {
	ledger := memstore.NewLedger()
	inventory := memstore.NewInventory()
	tickets := memstore.NewTicketStore()

	for i := 1; i <= totalBuyers; i++ {
		ledger.CreateAccount(uint64(i), startingBal)
	}

	co := reservation.NewCoordinator(ledger, inventory, tickets)

	fmt.Println("═══════════════════════════════════════════")
	fmt.Println("  Ethernal Tickets — Concurrency Stress Test")
	fmt.Println("═══════════════════════════════════════════")
	fmt.Printf("Event : %s\nSeat  : %s\n\n", eventTitle, seatID)

	successCount := simulateRace(co)

	// Count how many balances were actually debited.
	debited := 0
	for i := 1; i <= totalBuyers; i++ {
		bal, _ := ledger.Balance(uint64(i))
		if bal != startingBal {
			debited++
		}
	}
	sold := inventory.Sold(eventTitle)
	minted := len(tickets.All())

	fmt.Printf("\nFinal state  →  seats_sold=%d  tickets=%d  balances_debited=%d\n",
		len(sold), minted, debited)

	if successCount == 1 && len(sold) == 1 && minted == 1 && debited == 1 {
		fmt.Println("\nPASS: exactly one purchase succeeded, one seat sold, one balance debited")
	} else {
		fmt.Printf("\nFAIL: expected exactly one winner, got successes=%d sold=%d tickets=%d debited=%d\n",
			successCount, len(sold), minted, debited)
	}
}
