package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/pkg"
)

// ChallengeNegotiator turns two idle online users into an active session.
//
// Per pair: Idle -> Proposed (pending draft session, both reserved)
// -> Active on acceptance, or back to Idle on rejection or disconnect.
type ChallengeNegotiator struct {
	logger *slog.Logger
	deps   Deps
}

func NewChallengeNegotiator(logger *slog.Logger, deps Deps) *ChallengeNegotiator {
	return &ChallengeNegotiator{
		logger: logger.With("component", "negotiator"),
		deps:   deps,
	}
}

func (that *ChallengeNegotiator) ProposeChallenge(ctx context.Context, challenger, opponent string) (*entity.GameSession, error) {
	log := that.logger.With("method", "ProposeChallenge", "challenger", challenger, "opponent", opponent)

	if challenger == opponent {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSelfChallenge, challenger)
	}

	unlock := that.deps.Locker.Lock(userKey(challenger), userKey(opponent))
	defer unlock()

	opponentConn, err := that.requireIdle(challenger, opponent)
	if err != nil {
		return nil, err
	}

	if err = that.deps.Users.ReserveForGame(ctx, challenger, opponent); err != nil {
		return nil, fmt.Errorf("failed to reserve players: %w", err)
	}

	session := entity.NewGameSession(pkg.GenerateSessionID(), challenger, opponent, time.Now().UTC())
	if err = that.deps.Sessions.Save(ctx, session); err != nil {
		if releaseErr := that.deps.Users.ReleaseFromGame(ctx, challenger, opponent); releaseErr != nil {
			log.Error("failed to roll back reservation", "error", releaseErr)
		}

		return nil, fmt.Errorf("failed to save draft session: %w", err)
	}

	that.deps.setPresence(log, entity.PresenceInGame, challenger, opponent)

	that.deps.Router.BroadcastGlobal(entity.EventPendingChallenge, entity.PairPayload{Users: session.Players()})

	if err = that.deps.Router.SendToOne(opponentConn, entity.EventChallengeUser, entity.ChallengePayload{Challenger: challenger}); err != nil {
		log.Warn("failed to notify opponent", "error", err)
	}

	log.Info("challenge proposed", "sessionID", session.ID)

	return session, nil
}

// requireIdle checks both users are online and not in a game, it returns the opponent connection.
func (that *ChallengeNegotiator) requireIdle(challenger, opponent string) (string, error) {
	var opponentConn string

	for _, username := range []string{challenger, opponent} {
		connID, err := that.deps.Presence.Lookup(username)
		if err != nil {
			return "", fmt.Errorf("%w: %s", apperror.ErrUserOffline, username)
		}

		if that.deps.Presence.State(username) == entity.PresenceInGame {
			return "", fmt.Errorf("%w: %s", apperror.ErrAlreadyInGame, username)
		}

		opponentConn = connID
	}

	return opponentConn, nil
}

// AcceptChallenge activates the pending session, the accepting challengee moves first.
func (that *ChallengeNegotiator) AcceptChallenge(ctx context.Context, challenger, challengee string) (*entity.GameSession, error) {
	log := that.logger.With("method", "AcceptChallenge", "challenger", challenger, "challengee", challengee)

	unlock := that.deps.Locker.Lock(userKey(challenger), userKey(challengee))
	defer unlock()

	connIDs := make([]string, 0, 2)
	for _, username := range []string{challenger, challengee} {
		connID, err := that.deps.Presence.Lookup(username)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", apperror.ErrUserOffline, username)
		}
		connIDs = append(connIDs, connID)
	}

	session, err := that.findPending(ctx, challenger, challengee)
	if err != nil {
		return nil, err
	}

	for _, connID := range connIDs {
		if err = that.deps.Router.Join(connID, session.Group); err != nil {
			return nil, fmt.Errorf("failed to join group: %w", err)
		}
	}

	if err = session.Advance(entity.StatusActive); err != nil {
		return nil, err
	}
	session.Turn = challengee

	if err = that.deps.Sessions.Save(ctx, session); err != nil {
		for _, connID := range connIDs {
			that.deps.Router.Leave(connID, session.Group)
		}

		return nil, fmt.Errorf("failed to activate session: %w", err)
	}

	that.deps.Router.BroadcastToGroup(session.Group, entity.EventInitializeGame, entity.InitializeGamePayload{
		SessionID: session.ID,
		Players:   session.Players(),
		FirstTurn: session.Turn,
	})

	log.Info("challenge accepted", "sessionID", session.ID)

	return session, nil
}

// RejectChallenge dissolves the pending challenge of the pair.
func (that *ChallengeNegotiator) RejectChallenge(ctx context.Context, challenger, challengee string) error {
	unlock := that.deps.Locker.Lock(userKey(challenger), userKey(challengee))
	defer unlock()

	session, err := that.findPending(ctx, challenger, challengee)
	if err != nil {
		return err
	}

	return that.dissolve(ctx, session)
}

// dissolve discards a pending session and frees both players. Callers hold both user locks.
func (that *ChallengeNegotiator) dissolve(ctx context.Context, session *entity.GameSession) error {
	log := that.logger.With("method", "dissolve", "sessionID", session.ID)

	if err := that.deps.Sessions.Delete(ctx, session); err != nil {
		return fmt.Errorf("failed to discard draft session: %w", err)
	}

	players := session.Players()

	if err := that.deps.Users.ReleaseFromGame(ctx, players...); err != nil {
		return fmt.Errorf("failed to release players: %w", err)
	}

	that.deps.setPresence(log, entity.PresenceOnline, players...)

	that.deps.Router.BroadcastGlobal(entity.EventPendingChallengeRejected, entity.PairPayload{Users: players})

	log.Info("challenge dissolved")

	return nil
}

func (that *ChallengeNegotiator) findPending(ctx context.Context, challenger, challengee string) (*entity.GameSession, error) {
	session, err := that.deps.Sessions.FindByParticipantsAndStatus(ctx, challenger, challengee, entity.StatusPending)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: %s and %s", apperror.ErrStaleChallenge, challenger, challengee)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending challenge: %w", err)
	}

	return session, nil
}
