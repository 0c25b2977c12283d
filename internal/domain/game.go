package domain

import "math/rand"

// Status represents the lifecycle stage of a game session.
type Status string

const (
	// StatusWaiting is the pre-game state where players can join.
	StatusWaiting Status = "waiting"
	// StatusPlaying is the active game state where cards are played.
	StatusPlaying Status = "playing"
	// StatusFinished is the terminal state after a game concludes.
	StatusFinished Status = "finished"
)

// MaxPlayers is the seat limit for a session.
const MaxPlayers = 4

// Player holds state for a participant in a session.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
	Hand   []Card `json:"hand"`
}

// GameState is the single replicated aggregate shared by all clients of a
// session. Join order doubles as turn order. Version is bumped on every
// committed mutation and backs the compare-and-swap discipline of the
// session manager.
type GameState struct {
	Version      int64        `json:"version"`
	Status       Status       `json:"status"`
	Players      []Player     `json:"players"`
	CurrentTurn  string       `json:"currentTurn"`
	LastPlayed   *Combination `json:"lastPlayed,omitempty"`
	LastPlayedBy string       `json:"lastPlayedBy,omitempty"`
	PassCount    int          `json:"passCount"`
	Winner       string       `json:"winner,omitempty"`
}

// NewGameState returns a waiting session holding only the host.
func NewGameState(host Player) *GameState {
	host.IsHost = true
	return &GameState{
		Status:  StatusWaiting,
		Players: []Player{host},
	}
}

func (g *GameState) playerIndex(id string) int {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// Player returns the player with the given id, or nil.
func (g *GameState) Player(id string) *Player {
	if i := g.playerIndex(id); i >= 0 {
		return &g.Players[i]
	}
	return nil
}

// nextAfter returns the id of the player seated after index idx, wrapping
// around the table.
func (g *GameState) nextAfter(idx int) string {
	if len(g.Players) == 0 {
		return ""
	}
	return g.Players[(idx+1)%len(g.Players)].ID
}

// AddPlayer appends a player to a waiting session.
func (g *GameState) AddPlayer(p Player) error {
	if g.Status != StatusWaiting {
		return ErrSessionNotJoinable
	}
	if len(g.Players) >= MaxPlayers {
		return ErrSessionFull
	}
	p.IsHost = false
	p.Hand = nil
	g.Players = append(g.Players, p)
	return nil
}

// Start transitions a waiting session to playing: every player receives a
// freshly dealt 13-card hand and the holder of the lowest card leads the
// first trick.
func (g *GameState) Start(rng *rand.Rand) error {
	if g.Status != StatusWaiting {
		return ErrNotWaiting
	}
	if len(g.Players) < 2 {
		return ErrNotEnoughPlayers
	}

	deck := NewDeck()
	Shuffle(rng, deck)
	hands, err := Deal(deck, len(g.Players))
	if err != nil {
		return err
	}
	for i := range g.Players {
		g.Players[i].Hand = hands[i]
	}

	g.Status = StatusPlaying
	g.LastPlayed = nil
	g.LastPlayedBy = ""
	g.PassCount = 0
	g.CurrentTurn = g.lowestCardHolder()
	return nil
}

// lowestCardHolder returns the id of the player holding the weakest card.
// Hands are dealt sorted, so each player's lowest card sits at index 0.
func (g *GameState) lowestCardHolder() string {
	best := -1
	id := ""
	for _, p := range g.Players {
		if len(p.Hand) == 0 {
			continue
		}
		if best < 0 || p.Hand[0].Power() < best {
			best = p.Hand[0].Power()
			id = p.ID
		}
	}
	return id
}

// SubmitPlay processes a play by the current turn holder. On success the
// cards leave the player's hand, the trick is updated and the turn
// advances; an emptied hand finishes the game with that player as winner.
func (g *GameState) SubmitPlay(rules Rules, playerID string, cards []Card) error {
	if g.Status != StatusPlaying {
		return ErrNotPlaying
	}
	idx := g.playerIndex(playerID)
	if idx < 0 {
		return ErrUnknownPlayer
	}
	if g.CurrentTurn != playerID {
		return ErrOutOfTurn
	}
	pl := &g.Players[idx]
	if !HandContains(pl.Hand, cards) {
		return ErrCardsNotHeld
	}

	combo, err := rules.CheckPlay(cards, g.LastPlayed)
	if err != nil {
		return err
	}

	pl.Hand = RemoveCards(pl.Hand, cards)
	g.LastPlayed = &combo
	g.LastPlayedBy = playerID
	g.PassCount = 0

	if len(pl.Hand) == 0 {
		g.Status = StatusFinished
		g.Winner = playerID
		g.CurrentTurn = ""
		return nil
	}

	g.CurrentTurn = g.nextAfter(idx)
	return nil
}

// Pass records that the current turn holder cannot or will not beat the
// last play. Once every other player has passed in succession the trick
// resets and leadership returns to whoever played last.
func (g *GameState) Pass(playerID string) error {
	if g.Status != StatusPlaying {
		return ErrNotPlaying
	}
	idx := g.playerIndex(playerID)
	if idx < 0 {
		return ErrUnknownPlayer
	}
	if g.CurrentTurn != playerID {
		return ErrOutOfTurn
	}
	if g.LastPlayed == nil {
		// Cannot pass when leading an empty trick.
		return ErrIllegalPlay
	}

	g.PassCount++
	if g.PassCount >= len(g.Players)-1 {
		leader := g.LastPlayedBy
		if g.playerIndex(leader) < 0 {
			// Trick winner already left; the next seat leads.
			leader = g.nextAfter(idx)
		}
		g.resetTrick(leader)
		return nil
	}

	g.CurrentTurn = g.nextAfter(idx)
	return nil
}

// resetTrick clears the pile and hands the lead to the given player.
func (g *GameState) resetTrick(leader string) {
	g.LastPlayed = nil
	g.LastPlayedBy = ""
	g.PassCount = 0
	g.CurrentTurn = leader
}

// Leave removes a player from the session. It reports whether the session
// is now empty, in which case the caller destroys the aggregate. A player
// leaving mid-game hands the turn to the next seat; if only one player
// remains while playing, that player wins by forfeit.
func (g *GameState) Leave(playerID string) (empty bool, err error) {
	idx := g.playerIndex(playerID)
	if idx < 0 {
		return false, ErrUnknownPlayer
	}

	leaver := g.Players[idx]
	hadTurn := g.CurrentTurn == playerID

	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	if len(g.Players) == 0 {
		return true, nil
	}

	if leaver.IsHost {
		g.Players[0].IsHost = true
	}

	if g.Status == StatusPlaying && len(g.Players) == 1 {
		g.Status = StatusFinished
		g.Winner = g.Players[0].ID
		g.CurrentTurn = ""
		return false, nil
	}

	// The player now sitting at the leaver's old seat.
	successor := g.Players[idx%len(g.Players)].ID
	if hadTurn {
		g.CurrentTurn = successor
	}

	// A departure shrinks the table, so a trick in flight has to be
	// re-evaluated against the remaining players.
	if g.Status == StatusPlaying && g.LastPlayed != nil {
		switch {
		case g.LastPlayedBy == playerID:
			// The trick winner left; their successor leads a fresh trick.
			g.resetTrick(successor)
		case g.PassCount >= len(g.Players)-1 || g.CurrentTurn == g.LastPlayedBy:
			// Everyone still seated has already passed, or the turn came
			// back around to the trick winner.
			g.resetTrick(g.LastPlayedBy)
		}
	}
	return false, nil
}
