package store

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and single-machine play. It
// enforces the same compare-and-swap contract as the networked adapters.
type Memory struct {
	mu     sync.Mutex
	docs   map[string]memoryDoc
	subs   map[string]map[int]SnapshotFunc
	fanout map[string]*sync.Mutex
	seq    int64
	subSeq int
}

type memoryDoc struct {
	data []byte
	rev  string
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		docs:   make(map[string]memoryDoc),
		subs:   make(map[string]map[int]SnapshotFunc),
		fanout: make(map[string]*sync.Mutex),
	}
}

// Read implements Store.
func (m *Memory) Read(ctx context.Context, path string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path]
	if !ok {
		return nil, "", ErrNotFound
	}
	return append([]byte(nil), doc.data...), doc.rev, nil
}

// Write implements Store. The per-path delivery mutex is taken before the
// commit lock is released, so racing writers fan out their snapshots in
// commit order and subscribers never observe a revision regression.
func (m *Memory) Write(ctx context.Context, path string, data []byte, expect string) (string, error) {
	m.mu.Lock()
	current := ""
	if doc, ok := m.docs[path]; ok {
		current = doc.rev
	}
	if current != expect {
		m.mu.Unlock()
		return "", ErrRevisionMismatch
	}
	m.seq++
	rev := strconv.FormatInt(m.seq, 10)
	stored := append([]byte(nil), data...)
	m.docs[path] = memoryDoc{data: stored, rev: rev}
	subs := m.snapshotSubs(path)
	fan := m.fanoutLocked(path)
	fan.Lock()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(append([]byte(nil), stored...), rev)
	}
	fan.Unlock()
	return rev, nil
}

// Subscribe implements Store. The current snapshot, when present, is
// delivered before Subscribe returns.
func (m *Memory) Subscribe(ctx context.Context, path string, fn SnapshotFunc) (func(), error) {
	m.mu.Lock()
	if m.subs[path] == nil {
		m.subs[path] = make(map[int]SnapshotFunc)
	}
	m.subSeq++
	id := m.subSeq
	m.subs[path][id] = fn
	doc, ok := m.docs[path]
	fan := m.fanoutLocked(path)
	fan.Lock()
	m.mu.Unlock()

	if ok {
		fn(append([]byte(nil), doc.data...), doc.rev)
	}
	fan.Unlock()

	cancel := func() {
		m.mu.Lock()
		delete(m.subs[path], id)
		m.mu.Unlock()
	}
	return cancel, nil
}

// GenerateKey implements Store. Keys are uuids; parent is not needed for
// uniqueness here.
func (m *Memory) GenerateKey(parent string) string {
	return uuid.NewString()
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	delete(m.docs, path)
	subs := m.snapshotSubs(path)
	fan := m.fanoutLocked(path)
	fan.Lock()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(nil, "")
	}
	fan.Unlock()
	return nil
}

// snapshotSubs copies the subscriber list so callbacks run outside the
// commit lock. Callers must hold mu.
func (m *Memory) snapshotSubs(path string) []SnapshotFunc {
	subs := make([]SnapshotFunc, 0, len(m.subs[path]))
	for _, fn := range m.subs[path] {
		subs = append(subs, fn)
	}
	return subs
}

// fanoutLocked returns the delivery mutex for path, creating it on first
// use. Callers must hold mu.
func (m *Memory) fanoutLocked(path string) *sync.Mutex {
	fan, ok := m.fanout[path]
	if !ok {
		fan = &sync.Mutex{}
		m.fanout[path] = fan
	}
	return fan
}
