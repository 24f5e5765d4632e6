// Command settlement-inspect opens a settlement worker's database and
// prints a one-shot summary: counts per status or, with -dlq, the
// dead-letter queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nemeth06/settlement-worker/internal/model"
	"github.com/nemeth06/settlement-worker/internal/store"
)

func main() {
	dbPath := flag.String("db", os.Getenv("SETTLEMENT_DB"), "path to the worker's SQLite database")
	showDLQ := flag.Bool("dlq", false, "print dead-letter entries instead of the status summary")
	flag.Parse()

	if *dbPath == "" {
		log.Fatalf("inspect: -db (or SETTLEMENT_DB) is required")
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("inspect: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	if *showDLQ {
		printDLQ(ctx, st)
		return
	}
	printSummary(ctx, st)
}

func printSummary(ctx context.Context, st *store.SQLStore) {
	for _, status := range []model.Status{model.StatusPending, model.StatusProcessing, model.StatusSettled, model.StatusFailed} {
		intents, err := st.GetByStatus(ctx, status)
		if err != nil {
			log.Fatalf("inspect: %v", err)
		}
		fmt.Printf("status=%s count=%d\n", status, len(intents))
	}
}

func printDLQ(ctx context.Context, st *store.SQLStore) {
	entries, err := st.ListDLQ(ctx)
	if err != nil {
		log.Fatalf("inspect: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("dead-letter queue is empty")
		return
	}
	for _, e := range entries {
		fmt.Printf("intent=%s reason=%q enqueuedAt=%s details=%s\n", e.IntentID, e.Reason, e.EnqueuedAt.Format("2006-01-02T15:04:05Z07:00"), e.ErrorDetails)
	}
}
