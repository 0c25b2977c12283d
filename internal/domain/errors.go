package domain

import "errors"

// Sentinel errors returned by rule checks and state transitions. A failed
// precondition never mutates game state; callers test with errors.Is.
var (
	ErrInvalidCombination = errors.New("cards do not form a valid combination")
	ErrIllegalPlay        = errors.New("combination does not beat the last play")
	ErrOutOfTurn          = errors.New("actor does not hold the turn")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrNotWaiting         = errors.New("game not in waiting status")
	ErrNotPlaying         = errors.New("game not in playing status")
	ErrNotHost            = errors.New("actor is not the session host")
	ErrUnknownPlayer      = errors.New("player not found")
	ErrCardsNotHeld       = errors.New("played cards are not all in hand")
	ErrSessionFull        = errors.New("session already has four players")
	ErrSessionNotJoinable = errors.New("session is not accepting players")
	ErrInsufficientCards  = errors.New("deck too small for requested hands")
)
