package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
)

func TestMemoryCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rev, err := m.Write(ctx, "games/a", []byte(`{"v":1}`), "")
	if err != nil {
		t.Fatalf("create write error: %v", err)
	}
	if rev == "" {
		t.Fatalf("expected a revision")
	}

	if _, err := m.Write(ctx, "games/a", []byte(`{"v":2}`), ""); !errors.Is(err, ErrRevisionMismatch) {
		t.Errorf("second create-only write should fail, got %v", err)
	}

	if _, err := m.Write(ctx, "games/a", []byte(`{"v":2}`), "stale"); !errors.Is(err, ErrRevisionMismatch) {
		t.Errorf("stale revision should fail, got %v", err)
	}

	rev2, err := m.Write(ctx, "games/a", []byte(`{"v":2}`), rev)
	if err != nil {
		t.Fatalf("write with current revision error: %v", err)
	}
	if rev2 == rev {
		t.Errorf("revision must change on every write")
	}

	data, got, err := m.Read(ctx, "games/a")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got != rev2 {
		t.Errorf("expected revision %s, got %s", rev2, got)
	}
	if string(data) != `{"v":2}` {
		t.Errorf("unexpected document: %s", data)
	}
}

func TestMemoryReadMissing(t *testing.T) {
	m := NewMemory()
	if _, _, err := m.Read(context.Background(), "games/none"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemorySubscribe(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var mu sync.Mutex
	var snapshots []string

	cancel, err := m.Subscribe(ctx, "games/a", func(data []byte, rev string) {
		mu.Lock()
		defer mu.Unlock()
		if data == nil {
			snapshots = append(snapshots, "<deleted>")
			return
		}
		snapshots = append(snapshots, string(data))
	})
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	rev, err := m.Write(ctx, "games/a", []byte("one"), "")
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if _, err := m.Write(ctx, "games/a", []byte("two"), rev); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := m.Delete(ctx, "games/a"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	mu.Lock()
	got := append([]string{}, snapshots...)
	mu.Unlock()
	want := []string{"one", "two", "<deleted>"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	cancel()
	if _, err := m.Write(ctx, "games/a", []byte("three"), ""); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	mu.Lock()
	after := len(snapshots)
	mu.Unlock()
	if after != len(want) {
		t.Errorf("cancelled subscriber still receiving snapshots")
	}
}

func TestMemorySubscribeDeliversCurrentSnapshot(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.Write(ctx, "games/a", []byte("existing"), ""); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	var got string
	cancel, err := m.Subscribe(ctx, "games/a", func(data []byte, rev string) {
		got = string(data)
	})
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	defer cancel()

	if got != "existing" {
		t.Errorf("expected current snapshot on subscribe, got %q", got)
	}
}

func TestMemoryGenerateKeyUnique(t *testing.T) {
	m := NewMemory()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := m.GenerateKey("games")
		if key == "" {
			t.Fatalf("empty key")
		}
		if seen[key] {
			t.Fatalf("duplicate key %s", key)
		}
		seen[key] = true
	}
}

// TestMemorySubscribeMonotonicUnderContention races CAS writers against a
// subscriber and checks snapshots arrive in commit order: a delivered
// revision must never be older than the one before it.
func TestMemorySubscribeMonotonicUnderContention(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var mu sync.Mutex
	var revs []int
	cancel, err := m.Subscribe(ctx, "games/a", func(data []byte, rev string) {
		n, convErr := strconv.Atoi(rev)
		if convErr != nil {
			t.Errorf("unexpected revision %q: %v", rev, convErr)
			return
		}
		mu.Lock()
		revs = append(revs, n)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	defer cancel()

	if _, err := m.Write(ctx, "games/a", []byte{'0'}, ""); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				data, rev, err := m.Read(ctx, "games/a")
				if err != nil {
					t.Errorf("Read() error: %v", err)
					return
				}
				next := append(append([]byte{}, data...), 'x')
				if _, err := m.Write(ctx, "games/a", next, rev); err == nil {
					return
				} else if !errors.Is(err, ErrRevisionMismatch) {
					t.Errorf("Write() error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(revs) != 1+writers {
		t.Fatalf("expected %d snapshots, got %d", 1+writers, len(revs))
	}
	for i := 1; i < len(revs); i++ {
		if revs[i] <= revs[i-1] {
			t.Fatalf("snapshots delivered out of order: %v", revs)
		}
	}
}

// TestMemoryConcurrentWriters drives many goroutines through the
// read-retry-write cycle and checks no update is lost.
func TestMemoryConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.Write(ctx, "games/a", []byte{'0'}, ""); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				data, rev, err := m.Read(ctx, "games/a")
				if err != nil {
					t.Errorf("Read() error: %v", err)
					return
				}
				next := append(append([]byte{}, data...), 'x')
				if _, err := m.Write(ctx, "games/a", next, rev); err == nil {
					return
				} else if !errors.Is(err, ErrRevisionMismatch) {
					t.Errorf("Write() error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	data, _, err := m.Read(ctx, "games/a")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(data) != 1+writers {
		t.Errorf("lost updates: expected %d bytes, got %d", 1+writers, len(data))
	}
}
