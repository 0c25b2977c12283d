// Package session orchestrates game lifecycle against the replicated
// store. Every mutation is a read-modify-write cycle committed with
// compare-and-swap; no caller ever issues a blind overwrite.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"tienlen/internal/domain"
	"tienlen/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrConcurrentModification is surfaced when a mutation keeps losing
	// the compare-and-swap race against other clients.
	ErrConcurrentModification = errors.New("state kept changing during update")
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
)

// DefaultMaxRetries bounds the read-modify-write retry loop.
const DefaultMaxRetries = 5

const gamesRoot = "games"

func sessionPath(id string) string {
	return gamesRoot + "/" + id
}

// Manager mediates all reads and writes of shared game documents.
type Manager struct {
	store      store.Store
	rules      domain.Rules
	log        *zap.Logger
	rng        *rand.Rand
	maxRetries int
}

// NewManager constructs a Manager with the provided rng or a time-seeded
// default. The store value is owned by the caller.
func NewManager(st store.Store, rules domain.Rules, log *zap.Logger, rng *rand.Rand) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:      st,
		rules:      rules,
		log:        log,
		rng:        rng,
		maxRetries: DefaultMaxRetries,
	}
}

// SetMaxRetries overrides the bound on compare-and-swap retries.
func (m *Manager) SetMaxRetries(n int) {
	if n > 0 {
		m.maxRetries = n
	}
}

// Create allocates a new session holding only the host and returns the
// session and host player ids. The write is create-only so a key
// collision cannot clobber an existing session.
func (m *Manager) Create(ctx context.Context, hostName string) (sessionID, playerID string, err error) {
	sessionID = m.store.GenerateKey(gamesRoot)
	playerID = uuid.NewString()

	state := domain.NewGameState(domain.Player{ID: playerID, Name: hostName, IsHost: true})
	data, err := json.Marshal(state)
	if err != nil {
		return "", "", fmt.Errorf("encode state: %w", err)
	}
	if _, err := m.store.Write(ctx, sessionPath(sessionID), data, ""); err != nil {
		return "", "", fmt.Errorf("create session: %w", err)
	}

	m.log.Info("session created",
		zap.String("session", sessionID), zap.String("host", hostName))
	return sessionID, playerID, nil
}

// Join adds a player to a waiting session and returns the new player id.
func (m *Manager) Join(ctx context.Context, sessionID, name string) (string, error) {
	playerID := uuid.NewString()
	err := m.update(ctx, sessionID, func(g *domain.GameState) error {
		return g.AddPlayer(domain.Player{ID: playerID, Name: name})
	})
	if err != nil {
		return "", err
	}
	m.log.Info("player joined",
		zap.String("session", sessionID), zap.String("player", playerID))
	return playerID, nil
}

// Start deals hands and opens play. Only the host may start.
func (m *Manager) Start(ctx context.Context, sessionID, playerID string) error {
	return m.update(ctx, sessionID, func(g *domain.GameState) error {
		p := g.Player(playerID)
		if p == nil {
			return domain.ErrUnknownPlayer
		}
		if !p.IsHost {
			return domain.ErrNotHost
		}
		return g.Start(m.rng)
	})
}

// SubmitPlay plays cards for the given player.
func (m *Manager) SubmitPlay(ctx context.Context, sessionID, playerID string, cards []domain.Card) error {
	return m.update(ctx, sessionID, func(g *domain.GameState) error {
		return g.SubmitPlay(m.rules, playerID, cards)
	})
}

// Pass records a pass for the given player.
func (m *Manager) Pass(ctx context.Context, sessionID, playerID string) error {
	return m.update(ctx, sessionID, func(g *domain.GameState) error {
		return g.Pass(playerID)
	})
}

// Leave removes a player from the session, deleting the whole document
// when the last player departs.
func (m *Manager) Leave(ctx context.Context, sessionID, playerID string) error {
	path := sessionPath(sessionID)
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		g, rev, err := m.read(ctx, path)
		if err != nil {
			return err
		}

		empty, err := g.Leave(playerID)
		if err != nil {
			return err
		}
		if empty {
			if err := m.store.Delete(ctx, path); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			m.log.Info("session destroyed", zap.String("session", sessionID))
			return nil
		}

		if err := m.commit(ctx, path, g, rev); err != nil {
			if errors.Is(err, store.ErrRevisionMismatch) {
				continue
			}
			return err
		}
		return nil
	}
	return ErrConcurrentModification
}

// Snapshot returns the current state of a session.
func (m *Manager) Snapshot(ctx context.Context, sessionID string) (*domain.GameState, error) {
	g, _, err := m.read(ctx, sessionPath(sessionID))
	return g, err
}

// Watch subscribes fn to every observed state snapshot of a session.
// Deletion is delivered as a nil state. Re-delivery of an already seen
// snapshot is harmless; fn must treat each snapshot as the full truth.
func (m *Manager) Watch(ctx context.Context, sessionID string, fn func(*domain.GameState)) (func(), error) {
	return m.store.Subscribe(ctx, sessionPath(sessionID), func(data []byte, _ string) {
		if data == nil {
			fn(nil)
			return
		}
		var g domain.GameState
		if err := json.Unmarshal(data, &g); err != nil {
			m.log.Warn("discarding undecodable snapshot",
				zap.String("session", sessionID), zap.Error(err))
			return
		}
		fn(&g)
	})
}

// update runs the read-modify-write cycle for a mutation. Domain
// precondition failures abort immediately without writing; only
// compare-and-swap conflicts are retried.
func (m *Manager) update(ctx context.Context, sessionID string, apply func(*domain.GameState) error) error {
	path := sessionPath(sessionID)
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		g, rev, err := m.read(ctx, path)
		if err != nil {
			return err
		}
		if err := apply(g); err != nil {
			return err
		}
		if err := m.commit(ctx, path, g, rev); err != nil {
			if errors.Is(err, store.ErrRevisionMismatch) {
				m.log.Debug("lost compare-and-swap, retrying",
					zap.String("session", sessionID), zap.Int("attempt", attempt+1))
				continue
			}
			return err
		}
		return nil
	}
	return ErrConcurrentModification
}

func (m *Manager) read(ctx context.Context, path string) (*domain.GameState, string, error) {
	data, rev, err := m.store.Read(ctx, path)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrSessionNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("read state: %w", err)
	}
	var g domain.GameState
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, "", fmt.Errorf("decode state: %w", err)
	}
	return &g, rev, nil
}

func (m *Manager) commit(ctx context.Context, path string, g *domain.GameState, rev string) error {
	g.Version++
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if _, err := m.store.Write(ctx, path, data, rev); err != nil {
		if errors.Is(err, store.ErrRevisionMismatch) {
			return err
		}
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
