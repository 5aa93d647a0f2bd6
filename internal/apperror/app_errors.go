package apperror

import (
	"errors"
	"fmt"
)

// taxonomy classes, every specific error below wraps exactly one of them.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrInvalidRequest     = errors.New("invalid request")
)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrSessionNotFound    = fmt.Errorf("session %w", ErrNotFound)
	ErrConnectionNotFound = fmt.Errorf("connection %w", ErrNotFound)

	ErrDuplicateMove     = fmt.Errorf("%w: line is already drawn", ErrConflict)
	ErrAlreadyOnline     = fmt.Errorf("%w: user is already online", ErrConflict)
	ErrAlreadyInGame     = fmt.Errorf("%w: user is already in game", ErrConflict)
	ErrUserOffline       = fmt.Errorf("%w: user is offline", ErrConflict)
	ErrStaleChallenge    = fmt.Errorf("%w: challenge is no longer pending", ErrConflict)
	ErrSelfChallenge     = fmt.Errorf("%w: can't challenge yourself", ErrConflict)
	ErrNotYourTurn       = fmt.Errorf("%w: it's not your turn", ErrConflict)
	ErrTurnNotPlayed     = fmt.Errorf("%w: no move was made this turn", ErrConflict)
	ErrNoMovesLeft       = fmt.Errorf("%w: all moves are played", ErrConflict)
	ErrSessionNotActive  = fmt.Errorf("%w: session is not active", ErrConflict)
	ErrIllegalTransition = fmt.Errorf("%w: illegal state transition", ErrConflict)
	ErrNoRestartRequest  = fmt.Errorf("%w: restart was not requested", ErrConflict)

	ErrNotParticipant     = fmt.Errorf("%w: user is not a participant", ErrInvalidRequest)
	ErrInvalidLine        = fmt.Errorf("%w: invalid line", ErrInvalidRequest)
	ErrIdentityMismatch   = fmt.Errorf("%w: username doesn't match connection", ErrInvalidRequest)
	ErrUnauthorized       = fmt.Errorf("%w: unauthorized", ErrInvalidRequest)
	ErrUnknownAction      = fmt.Errorf("%w: unknown action", ErrInvalidRequest)
	ErrMalformedPayload   = fmt.Errorf("%w: malformed payload", ErrInvalidRequest)
	ErrUsernameIsRequired = fmt.Errorf("%w: username is required", ErrInvalidRequest)
	ErrEmptyMessage       = fmt.Errorf("%w: message is empty", ErrInvalidRequest)
)

const (
	KindNotFound           = "not_found"
	KindConflict           = "conflict"
	KindPersistenceFailure = "persistence_failure"
	KindInvalidRequest     = "invalid_request"
	KindInternal           = "internal"
)

// Persistence wraps a storage error into ErrPersistenceFailure.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistenceFailure, op, err)
}

// Kind returns the taxonomy name reported to clients.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrPersistenceFailure):
		return KindPersistenceFailure
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}
