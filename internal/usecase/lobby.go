package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

type sessionAbandoner interface {
	Abandon(ctx context.Context, username string) error
}

// Lobby handles going online and the global chat relay.
type Lobby struct {
	logger    *slog.Logger
	deps      Deps
	abandoner sessionAbandoner

	requireRegistration bool
}

func NewLobby(logger *slog.Logger, deps Deps, abandoner sessionAbandoner, requireRegistration bool) *Lobby {
	return &Lobby{
		logger:    logger.With("component", "lobby"),
		deps:      deps,
		abandoner: abandoner,

		requireRegistration: requireRegistration,
	}
}

// GoOnline binds the user to the connection and sends the list of users already online.
func (that *Lobby) GoOnline(ctx context.Context, username, connID string) error {
	log := that.logger.With("method", "GoOnline", "username", username, "connectionID", connID)

	if strings.TrimSpace(username) == "" {
		return apperror.ErrUsernameIsRequired
	}

	if that.deps.Presence.State(username) != entity.PresenceOffline {
		return fmt.Errorf("%w: %s", apperror.ErrAlreadyOnline, username)
	}

	user, err := that.findOrRegister(ctx, username)
	if err != nil {
		return err
	}

	// the flag survives only when the process stopped mid game
	if user.InGame {
		log.Warn("user is still marked in game, abandoning the open session")

		if err = that.abandoner.Abandon(ctx, username); err != nil {
			return fmt.Errorf("failed to abandon stale session: %w", err)
		}
	}

	if err = that.deps.Presence.MarkOnline(username, connID); err != nil {
		return fmt.Errorf("failed to mark online: %w", err)
	}

	payload := entity.NowOnlinePayload{Users: that.deps.Presence.Snapshot(username)}
	if err = that.deps.Router.SendToOne(connID, entity.EventNowOnlineData, payload); err != nil {
		log.Warn("failed to send online users", "error", err)
	}

	return nil
}

func (that *Lobby) findOrRegister(ctx context.Context, username string) (*entity.User, error) {
	user, err := that.deps.Users.FindByName(ctx, username)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, apperror.ErrUserNotFound) || that.requireRegistration {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user = &entity.User{Username: username, CreatedAt: time.Now().UTC()}
	if err = that.deps.Users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	that.logger.Info("user registered", "username", username)

	return user, nil
}

// SendChat relays a message to every connection, nothing is stored.
func (that *Lobby) SendChat(sender, text string) error {
	if strings.TrimSpace(text) == "" {
		return apperror.ErrEmptyMessage
	}

	that.deps.Router.BroadcastGlobal(entity.EventNewChatMessage, entity.ChatPayload{
		Sender: sender,
		Text:   text,
		SentAt: time.Now().UTC(),
	})

	return nil
}
