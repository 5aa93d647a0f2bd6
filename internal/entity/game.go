package entity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
)

type SessionStatus string

const (
	StatusPending  SessionStatus = "pending"
	StatusActive   SessionStatus = "active"
	StatusComplete SessionStatus = "complete"
)

// sessionTransitions - the only legal status changes, a session never goes back.
var sessionTransitions = map[SessionStatus]SessionStatus{
	StatusPending: StatusActive,
	StatusActive:  StatusComplete,
}

type Orientation string

const (
	Horizontal Orientation = "H"
	Vertical   Orientation = "V"
)

type Line struct {
	Orientation Orientation `json:"orientation"`
	X           int         `json:"x"`
	Y           int         `json:"y"`
}

func (that Line) Validate() error {
	if that.Orientation != Horizontal && that.Orientation != Vertical {
		return fmt.Errorf("%w: orientation %q", apperror.ErrInvalidLine, that.Orientation)
	}

	return nil
}

func (that Line) SameCoordinate(other Line) bool {
	return that.X == other.X && that.Y == other.Y
}

type Move struct {
	Mover string `json:"mover"`
	Line  Line   `json:"line"`
}

type GameSession struct {
	ID         string        `json:"id"`
	Challenger PlayerSlot    `json:"challenger"`
	Challengee PlayerSlot    `json:"challengee"`
	Moves      []Move        `json:"moves"`
	Group      string        `json:"group"`
	Status     SessionStatus `json:"status"`
	Winner     *string       `json:"winner"`
	Turn       string        `json:"turn,omitempty"`

	// HandoffDue is set after every valid move, the mover may only finish the turn.
	HandoffDue         bool   `json:"handoff_due,omitempty"`
	RestartRequestedBy string `json:"restart_requested_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GroupName - broadcast group of a challenger/challengee pair.
// Both names are quoted, so no two different pairs share a group.
func GroupName(challenger, challengee string) string {
	return strconv.Quote(challenger) + " " + strconv.Quote(challengee)
}

func NewGameSession(id, challenger, challengee string, now time.Time) *GameSession {
	return &GameSession{
		ID:         id,
		Challenger: PlayerSlot{Username: challenger},
		Challengee: PlayerSlot{Username: challengee},
		Moves:      []Move{},
		Group:      GroupName(challenger, challengee),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Advance moves the session to the next status, rejecting anything but Pending->Active->Complete.
func (that *GameSession) Advance(next SessionStatus) error {
	if sessionTransitions[that.Status] != next {
		return fmt.Errorf("%w: session %s from %s to %s", apperror.ErrIllegalTransition, that.ID, that.Status, next)
	}

	that.Status = next

	return nil
}

func (that *GameSession) IsPending() bool {
	return that.Status == StatusPending
}

func (that *GameSession) IsActive() bool {
	return that.Status == StatusActive
}

func (that *GameSession) IsComplete() bool {
	return that.Status == StatusComplete
}

func (that *GameSession) ConfirmActiveState() error {
	if !that.IsActive() {
		return fmt.Errorf("%w: session %s is %s", apperror.ErrSessionNotActive, that.ID, that.Status)
	}

	return nil
}

func (that *GameSession) Players() []string {
	return []string{that.Challenger.Username, that.Challengee.Username}
}

func (that *GameSession) IsParticipant(username string) bool {
	return username == that.Challenger.Username || username == that.Challengee.Username
}

func (that *GameSession) Slot(username string) (*PlayerSlot, error) {
	switch username {
	case that.Challenger.Username:
		return &that.Challenger, nil
	case that.Challengee.Username:
		return &that.Challengee, nil
	default:
		return nil, fmt.Errorf("%w: %s in session %s", apperror.ErrNotParticipant, username, that.ID)
	}
}

func (that *GameSession) Opponent(username string) (string, error) {
	switch username {
	case that.Challenger.Username:
		return that.Challengee.Username, nil
	case that.Challengee.Username:
		return that.Challenger.Username, nil
	default:
		return "", fmt.Errorf("%w: %s in session %s", apperror.ErrNotParticipant, username, that.ID)
	}
}

// LastMove returns the most recent move, false when the log is empty.
func (that *GameSession) LastMove() (Move, bool) {
	if len(that.Moves) == 0 {
		return Move{}, false
	}

	return that.Moves[len(that.Moves)-1], true
}

// Reset clears the move log and both scores, the status stays as is.
func (that *GameSession) Reset() {
	that.Moves = []Move{}
	that.Challenger.Score = 0
	that.Challengee.Score = 0
	that.HandoffDue = false
	that.RestartRequestedBy = ""
}
