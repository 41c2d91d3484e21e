package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/V4T54L/hookwatch/internal/domain"
)

func openTestStore(t *testing.T) *FailureRepository {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "failures.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestFailureRepository_Lifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sig := domain.NewSignature("boom")

	if _, _, found, err := store.IncrementIfExists(ctx, sig); err != nil || found {
		t.Fatalf("expected miss on empty store, got found=%v err=%v", found, err)
	}

	id, n, err := store.InsertOrIncrement(ctx, domain.FailureRecord{Signature: sig, FullText: "boom\nstack", MessageID: "m1", Occurrences: 1})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id != "m1" || n != 1 {
		t.Errorf("insert returned (%q, %d), want (m1, 1)", id, n)
	}

	id, n, found, err := store.IncrementIfExists(ctx, sig)
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if id != "m1" || n != 2 {
		t.Errorf("increment returned (%q, %d), want (m1, 2)", id, n)
	}

	text, err := store.FullTextByMessageID(ctx, "m1")
	if err != nil || text != "boom\nstack" {
		t.Errorf("FullTextByMessageID = %q, %v", text, err)
	}
	if _, err := store.FullTextByMessageID(ctx, "m2"); !errors.Is(err, domain.ErrFailureNotFound) {
		t.Errorf("expected ErrFailureNotFound, got %v", err)
	}
}

func TestFailureRepository_InsertConflictIncrementsWinner(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sig := domain.NewSignature("dup")

	if _, _, err := store.InsertOrIncrement(ctx, domain.FailureRecord{Signature: sig, FullText: "dup", MessageID: "winner"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	id, n, err := store.InsertOrIncrement(ctx, domain.FailureRecord{Signature: sig, FullText: "dup", MessageID: "loser"})
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if id != "winner" || n != 2 {
		t.Errorf("got (%q, %d), want (winner, 2)", id, n)
	}
	if _, err := store.FullTextByMessageID(ctx, "loser"); !errors.Is(err, domain.ErrFailureNotFound) {
		t.Errorf("loser message must not be stored, got %v", err)
	}
}

func TestFailureRepository_ConcurrentInsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sig := domain.NewSignature("race")

	const callers = 16
	ids := make([]string, callers)
	counts := make(map[int]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, n, err := store.InsertOrIncrement(ctx, domain.FailureRecord{Signature: sig, FullText: "race", MessageID: fmt.Sprintf("m%d", i)})
			if err != nil {
				t.Errorf("insert %d: %v", i, err)
				return
			}
			mu.Lock()
			ids[i] = id
			counts[n] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	for i, id := range ids {
		if id != ids[0] {
			t.Errorf("caller %d got message %q, want %q", i, id, ids[0])
		}
	}
	for n := 1; n <= callers; n++ {
		if !counts[n] {
			t.Errorf("occurrence count %d was never returned", n)
		}
	}
}

func TestFailureRepository_CanceledContext(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, _, err := store.IncrementIfExists(ctx, domain.NewSignature("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
