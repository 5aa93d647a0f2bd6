package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
)

type PresenceState string

const (
	PresenceOffline PresenceState = "offline"
	PresenceOnline  PresenceState = "online"
	PresenceInGame  PresenceState = "in_game"
)

var presenceTransitions = map[PresenceState][]PresenceState{
	PresenceOffline: {PresenceOnline},
	PresenceOnline:  {PresenceInGame, PresenceOffline},
	PresenceInGame:  {PresenceOnline, PresenceOffline},
}

func (that PresenceState) CanTransition(next PresenceState) bool {
	for _, allowed := range presenceTransitions[that] {
		if allowed == next {
			return true
		}
	}

	return false
}

// Transition returns next when the change is legal.
func (that PresenceState) Transition(next PresenceState) (PresenceState, error) {
	if !that.CanTransition(next) {
		return that, fmt.Errorf("%w: presence from %s to %s", apperror.ErrIllegalTransition, that, next)
	}

	return next, nil
}

// User - durable record, liveness is never stored here.
type User struct {
	Username  string    `json:"username"`
	InGame    bool      `json:"in_game"`
	CreatedAt time.Time `json:"created_at"`
}

type PlayerSlot struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}
