// Command report-storm hammers an ErrorReporter with concurrent reports of
// a few distinct failures and checks that each one produced exactly one
// live message.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/V4T54L/hookwatch/internal/adapter/repository/sqlite"
	"github.com/V4T54L/hookwatch/internal/adapter/sysinfo"
	"github.com/V4T54L/hookwatch/internal/adapter/webhook"
	"github.com/V4T54L/hookwatch/internal/usecase"
)

func main() {
	dbPath := flag.String("db", ":memory:", "SQLite path for the failure store")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	distinct := flag.Int("k", 5, "Number of distinct failures")
	duration := flag.Duration("d", 10*time.Second, "Duration of the storm")
	rps := flag.Int("rps", 200, "Reports per second limit")
	verbose := flag.Bool("v", false, "Print webhook traffic to stdout")
	flag.Parse()

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	var out io.Writer = io.Discard
	if *verbose {
		out = os.Stdout
	}
	hook := webhook.NewStdoutWebhook("errors", out)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	reporter := usecase.NewErrorReporter(store, hook, sysinfo.NewProbe(), "report-storm", logger, nil)

	runID := uuid.NewString()
	failures := make([]error, *distinct)
	for i := range failures {
		failures[i] = fmt.Errorf("storm %s: failure #%d", runID, i)
	}

	log.Printf("Starting report storm %s", runID)
	log.Printf("Concurrency: %d, Distinct: %d, Duration: %s, RPS: %d", *concurrency, *distinct, *duration, *rps)

	var wg sync.WaitGroup
	var sent, failed atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), *concurrency)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for n := workerID; ; n++ {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				if err := reporter.ReportDefault(ctx, "Storm", failures[n%len(failures)]); err != nil {
					if errors.Is(err, context.DeadlineExceeded) {
						return
					}
					failed.Add(1)
					continue
				}
				sent.Add(1)
			}
		}(i)
	}

	wg.Wait()

	log.Printf("Storm finished")
	log.Printf("Reports: %d, Errors: %d", sent.Load(), failed.Load())
	log.Printf("Live messages: %d (want %d)", hook.Len(), *distinct)
	if hook.Len() != *distinct {
		os.Exit(1)
	}
}
