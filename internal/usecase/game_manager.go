package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/boxes"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

// MoveResult - outcome of an accepted move.
type MoveResult struct {
	Session *entity.GameSession
	Points  int
}

// GameManager owns move validation, scoring, turn order and termination of active sessions.
// Every operation runs under the session lock.
type GameManager struct {
	logger *slog.Logger
	deps   Deps

	rules    boxes.Rules
	maxMoves int
}

func NewGameManager(logger *slog.Logger, deps Deps, rules boxes.Rules, maxMoves int) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game"),
		deps:   deps,

		rules:    rules,
		maxMoves: maxMoves,
	}
}

func (that *GameManager) SubmitMove(ctx context.Context, sessionID, mover string, line entity.Line) (*MoveResult, error) {
	log := that.logger.With("method", "SubmitMove", "sessionID", sessionID, "mover", mover)

	unlock := that.deps.Locker.Lock(sessionKey(sessionID))
	defer unlock()

	session, err := that.getSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err = that.confirmTurn(session, mover); err != nil {
		return nil, err
	}

	if session.HandoffDue {
		return nil, fmt.Errorf("%w: %s must finish the turn", apperror.ErrNotYourTurn, mover)
	}

	if len(session.Moves) >= that.maxMoves {
		return nil, fmt.Errorf("%w: session %s", apperror.ErrNoMovesLeft, session.ID)
	}

	if err = that.rules.ValidateMove(session.Moves, line); err != nil {
		return nil, err
	}

	session.Moves = append(session.Moves, entity.Move{Mover: mover, Line: line})
	session.HandoffDue = true
	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	points := that.rules.ScoreMove(session.Moves, mover, line)
	payload := entity.ValidMovePayload{SessionID: session.ID, Mover: mover, Line: line}

	if points == 0 {
		that.deps.Router.BroadcastToGroup(session.Group, entity.EventValidMove, payload)

		return &MoveResult{Session: session}, nil
	}

	slot, err := session.Slot(mover)
	if err != nil {
		return nil, err
	}

	slot.Score += points
	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	payload.UpdateScore = &entity.ScoreUpdate{Player: mover, Score: slot.Score}
	that.deps.Router.BroadcastToGroup(session.Group, entity.EventValidMove, payload)

	log.Info("square completed", "points", points, "score", slot.Score)

	return &MoveResult{Session: session, Points: points}, nil
}

// CompleteTurn hands the turn to the opponent, or ends the session once every move is played.
func (that *GameManager) CompleteTurn(ctx context.Context, sessionID, caller string) (*entity.GameSession, error) {
	log := that.logger.With("method", "CompleteTurn", "sessionID", sessionID, "caller", caller)

	unlock := that.deps.Locker.Lock(sessionKey(sessionID))
	defer unlock()

	session, err := that.getSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err = that.confirmTurn(session, caller); err != nil {
		return nil, err
	}

	lastMove, ok := session.LastMove()
	if !ok || lastMove.Mover != caller {
		return nil, fmt.Errorf("%w: %s", apperror.ErrTurnNotPlayed, caller)
	}

	opponent, err := session.Opponent(caller)
	if err != nil {
		return nil, err
	}

	slot, err := session.Slot(caller)
	if err != nil {
		return nil, err
	}

	myTurn := entity.MyTurnPayload{SessionID: session.ID, OpponentsMove: &lastMove.Line, OpponentsScore: slot.Score}

	if len(session.Moves) == that.maxMoves {
		that.deps.sendTo(log, opponent, entity.EventMyTurn, myTurn)

		return session, that.finish(ctx, log, session)
	}

	session.Turn = opponent
	session.HandoffDue = false
	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	that.deps.sendTo(log, opponent, entity.EventMyTurn, myTurn)

	return session, nil
}

// finish decides the winner, completes the session and frees both players.
func (that *GameManager) finish(ctx context.Context, log *slog.Logger, session *entity.GameSession) error {
	session.Winner = boxes.Winner(session.Challenger, session.Challengee)
	session.Turn = ""

	if err := session.Advance(entity.StatusComplete); err != nil {
		return err
	}

	if err := that.updateSession(ctx, session); err != nil {
		return err
	}

	that.deps.Router.BroadcastToGroup(session.Group, entity.EventGameOver, entity.GameOverPayload{
		SessionID: session.ID,
		Winner:    session.Winner,
		Scores:    []entity.PlayerSlot{session.Challenger, session.Challengee},
	})

	if err := that.deps.releasePlayers(ctx, log, session); err != nil {
		return err
	}

	log.Info("game over", "winner", session.Winner)

	return nil
}

func (that *GameManager) RequestRestart(ctx context.Context, sessionID, requester string) error {
	log := that.logger.With("method", "RequestRestart", "sessionID", sessionID, "requester", requester)

	unlock := that.deps.Locker.Lock(sessionKey(sessionID))
	defer unlock()

	session, opponent, err := that.activeSessionFor(ctx, sessionID, requester)
	if err != nil {
		return err
	}

	session.RestartRequestedBy = requester
	if err = that.updateSession(ctx, session); err != nil {
		return err
	}

	that.deps.sendTo(log, opponent, entity.EventPromptRestartGame, entity.RestartRequestPayload{
		SessionID: session.ID,
		Requester: requester,
	})

	return nil
}

// RestartSession clears the board on acceptance of a pending restart request, the acceptor moves first.
func (that *GameManager) RestartSession(ctx context.Context, sessionID, acceptor string) (*entity.GameSession, error) {
	log := that.logger.With("method", "RestartSession", "sessionID", sessionID, "acceptor", acceptor)

	unlock := that.deps.Locker.Lock(sessionKey(sessionID))
	defer unlock()

	session, opponent, err := that.activeSessionFor(ctx, sessionID, acceptor)
	if err != nil {
		return nil, err
	}

	if session.RestartRequestedBy != opponent {
		return nil, fmt.Errorf("%w: session %s", apperror.ErrNoRestartRequest, session.ID)
	}

	session.Reset()
	session.Turn = acceptor
	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	that.deps.Router.BroadcastToGroup(session.Group, entity.EventInitiateRestartGame, entity.RestartPayload{SessionID: session.ID})
	that.deps.sendTo(log, acceptor, entity.EventMyTurn, entity.MyTurnPayload{SessionID: session.ID})

	log.Info("session restarted")

	return session, nil
}

func (that *GameManager) RejectRestart(ctx context.Context, sessionID, rejecter string) error {
	log := that.logger.With("method", "RejectRestart", "sessionID", sessionID, "rejecter", rejecter)

	unlock := that.deps.Locker.Lock(sessionKey(sessionID))
	defer unlock()

	session, opponent, err := that.activeSessionFor(ctx, sessionID, rejecter)
	if err != nil {
		return err
	}

	if session.RestartRequestedBy != opponent {
		return fmt.Errorf("%w: session %s", apperror.ErrNoRestartRequest, session.ID)
	}

	session.RestartRequestedBy = ""
	if err = that.updateSession(ctx, session); err != nil {
		return err
	}

	that.deps.sendTo(log, opponent, entity.EventRestartRequestRejected, entity.RestartRejectedPayload{
		SessionID: session.ID,
		Rejecter:  rejecter,
	})

	return nil
}

// LeaveSession ends the session in favor of the player who stays.
func (that *GameManager) LeaveSession(ctx context.Context, sessionID, leaver string) (*entity.GameSession, error) {
	log := that.logger.With("method", "LeaveSession", "sessionID", sessionID, "leaver", leaver)

	unlock := that.deps.Locker.Lock(sessionKey(sessionID))
	defer unlock()

	session, opponent, err := that.activeSessionFor(ctx, sessionID, leaver)
	if err != nil {
		return nil, err
	}

	session.Winner = &opponent
	session.Turn = ""
	if err = session.Advance(entity.StatusComplete); err != nil {
		return nil, err
	}

	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	that.deps.sendTo(log, opponent, entity.EventOpponentLeftGame, entity.OpponentLeftPayload{
		SessionID: session.ID,
		Leaver:    leaver,
		Winner:    opponent,
	})

	if err = that.deps.releasePlayers(ctx, log, session); err != nil {
		return nil, err
	}

	log.Info("player left the game", "winner", opponent)

	return session, nil
}

func (that *GameManager) activeSessionFor(ctx context.Context, sessionID, username string) (*entity.GameSession, string, error) {
	session, err := that.getSessionByID(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	if err = session.ConfirmActiveState(); err != nil {
		return nil, "", err
	}

	opponent, err := session.Opponent(username)
	if err != nil {
		return nil, "", err
	}

	return session, opponent, nil
}

func (that *GameManager) confirmTurn(session *entity.GameSession, username string) error {
	if err := session.ConfirmActiveState(); err != nil {
		return err
	}

	if !session.IsParticipant(username) {
		return fmt.Errorf("%w: %s in session %s", apperror.ErrNotParticipant, username, session.ID)
	}

	if session.Turn != username {
		return fmt.Errorf("%w: %s", apperror.ErrNotYourTurn, username)
	}

	return nil
}

func (that *GameManager) getSessionByID(ctx context.Context, id string) (*entity.GameSession, error) {
	session, err := that.deps.Sessions.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (that *GameManager) updateSession(ctx context.Context, session *entity.GameSession) error {
	if err := that.deps.Sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// IsGone reports errors meaning the session is already over or missing.
func IsGone(err error) bool {
	return errors.Is(err, apperror.ErrSessionNotActive) || errors.Is(err, apperror.ErrSessionNotFound)
}
