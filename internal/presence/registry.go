package presence

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

type broadcaster interface {
	BroadcastOthers(exceptConnID, event string, payload any)
}

type binding struct {
	connID string
	state  entity.PresenceState
}

// Registry owns the user <-> connection mapping for the lifetime of each connection.
type Registry struct {
	logger *slog.Logger
	router broadcaster

	mu     sync.RWMutex
	byUser map[string]*binding
	byConn map[string]string
}

func NewRegistry(logger *slog.Logger, router broadcaster) *Registry {
	return &Registry{
		logger: logger.With("component", "presence"),
		router: router,

		byUser: make(map[string]*binding),
		byConn: make(map[string]string),
	}
}

// MarkOnline binds username to connID and tells every other connection.
func (that *Registry) MarkOnline(username, connID string) error {
	log := that.logger.With("method", "MarkOnline", "username", username, "connectionID", connID)

	that.mu.Lock()
	if existing, ok := that.byUser[username]; ok {
		that.mu.Unlock()
		return fmt.Errorf("%w: %s on connection %s", apperror.ErrAlreadyOnline, username, existing.connID)
	}
	if other, ok := that.byConn[connID]; ok {
		that.mu.Unlock()
		return fmt.Errorf("%w: connection %s already belongs to %s", apperror.ErrAlreadyOnline, connID, other)
	}

	that.byUser[username] = &binding{connID: connID, state: entity.PresenceOnline}
	that.byConn[connID] = username
	that.mu.Unlock()

	that.router.BroadcastOthers(connID, entity.EventUserOnline, entity.UserPayload{Username: username})

	log.Info("user is online")

	return nil
}

// MarkOffline is a no-op for users that are not online.
func (that *Registry) MarkOffline(username string) {
	that.mu.Lock()
	existing, ok := that.byUser[username]
	if !ok {
		that.mu.Unlock()
		return
	}

	delete(that.byUser, username)
	delete(that.byConn, existing.connID)
	that.mu.Unlock()

	that.router.BroadcastOthers(existing.connID, entity.EventUserOffline, entity.UserPayload{Username: username})

	that.logger.Info("user is offline", "username", username, "connectionID", existing.connID)
}

func (that *Registry) Lookup(username string) (string, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	existing, ok := that.byUser[username]
	if !ok {
		return "", fmt.Errorf("%w: %s is not online", apperror.ErrUserNotFound, username)
	}

	return existing.connID, nil
}

func (that *Registry) LookupByConnection(connID string) (string, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	username, ok := that.byConn[connID]
	if !ok {
		return "", fmt.Errorf("%w: %s has no user", apperror.ErrConnectionNotFound, connID)
	}

	return username, nil
}

// State reports offline for unknown users.
func (that *Registry) State(username string) entity.PresenceState {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if existing, ok := that.byUser[username]; ok {
		return existing.state
	}

	return entity.PresenceOffline
}

// Transition changes the presence state of an online user.
func (that *Registry) Transition(username string, next entity.PresenceState) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	existing, ok := that.byUser[username]
	if !ok {
		return fmt.Errorf("%w: %s is not online", apperror.ErrUserOffline, username)
	}

	state, err := existing.state.Transition(next)
	if err != nil {
		return fmt.Errorf("%s: %w", username, err)
	}

	existing.state = state

	return nil
}

// Snapshot lists online users except the given one, sorted by name.
func (that *Registry) Snapshot(except string) []entity.OnlineUser {
	that.mu.RLock()
	users := make([]entity.OnlineUser, 0, len(that.byUser))
	for username, existing := range that.byUser {
		if username == except {
			continue
		}
		users = append(users, entity.OnlineUser{Username: username, InGame: existing.state == entity.PresenceInGame})
	}
	that.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})

	return users
}
