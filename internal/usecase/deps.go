package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

type UserRepo interface {
	Save(ctx context.Context, user *entity.User) error
	FindByName(ctx context.Context, username string) (*entity.User, error)
	ReserveForGame(ctx context.Context, first, second string) error
	ReleaseFromGame(ctx context.Context, usernames ...string) error
}

type SessionRepo interface {
	Save(ctx context.Context, session *entity.GameSession) error
	FindByID(ctx context.Context, id string) (*entity.GameSession, error)
	FindByParticipantsAndStatus(ctx context.Context, challenger, challengee string, status entity.SessionStatus) (*entity.GameSession, error)
	FindOpenByUser(ctx context.Context, username string) (*entity.GameSession, error)
	Delete(ctx context.Context, session *entity.GameSession) error
}

type Presence interface {
	MarkOnline(username, connID string) error
	MarkOffline(username string)
	Lookup(username string) (string, error)
	LookupByConnection(connID string) (string, error)
	State(username string) entity.PresenceState
	Transition(username string, next entity.PresenceState) error
	Snapshot(except string) []entity.OnlineUser
}

type Router interface {
	Join(connID, group string) error
	Leave(connID, group string)
	SendToOne(connID, event string, payload any) error
	BroadcastToGroup(group, event string, payload any)
	BroadcastGlobal(event string, payload any)
}

// Deps - collaborators shared by every use case.
type Deps struct {
	Users    UserRepo
	Sessions SessionRepo
	Presence Presence
	Router   Router
	Locker   *Locker
}

func userKey(username string) string {
	return "user:" + username
}

func sessionKey(id string) string {
	return "session:" + id
}

// sendTo delivers to an online user, offline users are skipped.
func (that Deps) sendTo(log *slog.Logger, username, event string, payload any) {
	connID, err := that.Presence.Lookup(username)
	if err != nil {
		log.Debug("user is offline, event dropped", "username", username, "event", event)
		return
	}

	if err = that.Router.SendToOne(connID, event, payload); err != nil {
		log.Warn("failed to send event", "username", username, "event", event, "error", err)
	}
}

// setPresence moves every online player to next, offline ones are skipped.
func (that Deps) setPresence(log *slog.Logger, next entity.PresenceState, usernames ...string) {
	for _, username := range usernames {
		if that.Presence.State(username) == entity.PresenceOffline {
			continue
		}

		if err := that.Presence.Transition(username, next); err != nil {
			log.Warn("failed to change presence", "username", username, "state", next, "error", err)
		}
	}
}

// releasePlayers clears both in-game flags, takes the players out of the group
// and announces it to everybody.
func (that Deps) releasePlayers(ctx context.Context, log *slog.Logger, session *entity.GameSession) error {
	players := session.Players()

	if err := that.Users.ReleaseFromGame(ctx, players...); err != nil {
		return fmt.Errorf("failed to release players: %w", err)
	}

	that.setPresence(log, entity.PresenceOnline, players...)

	for _, username := range players {
		if connID, err := that.Presence.Lookup(username); err == nil {
			that.Router.Leave(connID, session.Group)
		}

		that.Router.BroadcastGlobal(entity.EventUserDoneGame, entity.UserPayload{Username: username})
	}

	return nil
}
