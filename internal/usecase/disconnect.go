package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
)

// DisconnectCoordinator resolves whatever a lost connection leaves behind.
type DisconnectCoordinator struct {
	logger *slog.Logger
	deps   Deps

	negotiator *ChallengeNegotiator
	games      *GameManager
}

func NewDisconnectCoordinator(logger *slog.Logger, deps Deps, negotiator *ChallengeNegotiator, games *GameManager) *DisconnectCoordinator {
	return &DisconnectCoordinator{
		logger: logger.With("component", "disconnect"),
		deps:   deps,

		negotiator: negotiator,
		games:      games,
	}
}

// HandleDisconnect takes the user of connID offline and resolves their open session.
// Connections that never went online are ignored.
func (that *DisconnectCoordinator) HandleDisconnect(ctx context.Context, connID string) error {
	log := that.logger.With("method", "HandleDisconnect", "connectionID", connID)

	username, err := that.deps.Presence.LookupByConnection(connID)
	if err != nil {
		log.Debug("connection had no user")
		return nil
	}

	log = log.With("username", username)

	// offline first, so no new challenge can reach the user while the session is resolved
	unlock := that.deps.Locker.Lock(userKey(username))
	that.deps.Presence.MarkOffline(username)
	unlock()

	if err = that.Abandon(ctx, username); err != nil {
		log.Error("failed to resolve open session", "error", err)
		return err
	}

	log.Info("user disconnected")

	return nil
}

// Abandon resolves the user's open session: a pending one is rejected,
// an active one is left with the user as the leaver.
func (that *DisconnectCoordinator) Abandon(ctx context.Context, username string) error {
	log := that.logger.With("method", "Abandon", "username", username)

	session, err := that.deps.Sessions.FindOpenByUser(ctx, username)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		return that.deps.Users.ReleaseFromGame(ctx, username)
	}
	if err != nil {
		return fmt.Errorf("failed to find open session: %w", err)
	}

	players := session.Players()
	unlock := that.deps.Locker.Lock(userKey(players[0]), userKey(players[1]))
	defer unlock()

	// re-read, the session may have moved on while waiting for the locks
	session, err = that.deps.Sessions.FindByID(ctx, session.ID)
	if IsGone(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to reload session: %w", err)
	}

	switch {
	case session.IsPending():
		log.Info("dissolving pending challenge", "sessionID", session.ID)
		return that.negotiator.dissolve(ctx, session)

	case session.IsActive():
		log.Info("leaving active session", "sessionID", session.ID)
		if _, err = that.games.LeaveSession(ctx, session.ID, username); err != nil && !IsGone(err) {
			return err
		}
		return nil

	default:
		return nil
	}
}
