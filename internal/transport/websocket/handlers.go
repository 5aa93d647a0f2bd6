package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/room"
)

func (that *Server) handleGoOnline(ctx context.Context, client *client, msg *Message) error {
	var req UserRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	if client.subject != "" && client.subject != req.Username {
		return fmt.Errorf("%w: token was issued for %s", apperror.ErrUnauthorized, client.subject)
	}

	return that.uc.Lobby.GoOnline(ctx, req.Username, client.ID())
}

func (that *Server) handleSendChatMessage(_ context.Context, client *client, msg *Message) error {
	var req ChatRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	sender, err := that.currentUser(client)
	if err != nil {
		return err
	}

	return that.uc.Lobby.SendChat(sender, req.Text)
}

func (that *Server) handleChallengeRequest(ctx context.Context, client *client, msg *Message) error {
	var req ChallengeRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	if err := that.requireIdentity(client, req.Sender); err != nil {
		return err
	}

	_, err := that.uc.Negotiator.ProposeChallenge(ctx, req.Sender, req.Opponent)

	return err
}

func (that *Server) handleChallengeAccepted(ctx context.Context, client *client, msg *Message) error {
	var req PairRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	if err := that.requireIdentity(client, req.Challengee); err != nil {
		return err
	}

	_, err := that.uc.Negotiator.AcceptChallenge(ctx, req.Challenger, req.Challengee)

	return err
}

// handleChallengeRejected - either side may call the challenge off.
func (that *Server) handleChallengeRejected(ctx context.Context, client *client, msg *Message) error {
	var req PairRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	username, err := that.currentUser(client)
	if err != nil {
		return err
	}

	if username != req.Challenger && username != req.Challengee {
		return fmt.Errorf("%w: %s is not part of the challenge", apperror.ErrIdentityMismatch, username)
	}

	return that.uc.Negotiator.RejectChallenge(ctx, req.Challenger, req.Challengee)
}

func (that *Server) handleCheckMove(ctx context.Context, client *client, msg *Message) error {
	var req MoveRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	if err := that.requireIdentity(client, req.Mover); err != nil {
		return err
	}

	_, err := that.uc.Games.SubmitMove(ctx, req.SessionID, req.Mover, req.Line)
	if isInvalidMove(err) {
		return client.Send(room.Envelope{
			Event:   entity.EventInvalidMove,
			Payload: entity.InvalidMovePayload{Line: req.Line, Reason: err.Error()},
		})
	}

	return err
}

// handleDoneTurn - the client's line and score are ignored, the stored session is authoritative.
func (that *Server) handleDoneTurn(ctx context.Context, client *client, msg *Message) error {
	var req DoneTurnRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	username, err := that.currentUser(client)
	if err != nil {
		return err
	}

	_, err = that.uc.Games.CompleteTurn(ctx, req.SessionID, username)

	return err
}

func (that *Server) handleRequestRestartGame(ctx context.Context, client *client, msg *Message) error {
	var req RestartRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	if err := that.requireIdentity(client, req.Username); err != nil {
		return err
	}

	return that.uc.Games.RequestRestart(ctx, req.SessionID, req.Username)
}

func (that *Server) handleAcceptRestartGame(ctx context.Context, client *client, msg *Message) error {
	var req RestartRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	if err := that.requireIdentity(client, req.Username); err != nil {
		return err
	}

	_, err := that.uc.Games.RestartSession(ctx, req.SessionID, req.Username)

	return err
}

func (that *Server) handleRejectRestartGame(ctx context.Context, client *client, msg *Message) error {
	var req RestartRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	if err := that.requireIdentity(client, req.Username); err != nil {
		return err
	}

	return that.uc.Games.RejectRestart(ctx, req.SessionID, req.Username)
}

func (that *Server) handleLeaveGame(ctx context.Context, client *client, msg *Message) error {
	var req SessionRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	username, err := that.currentUser(client)
	if err != nil {
		return err
	}

	_, err = that.uc.Games.LeaveSession(ctx, req.SessionID, username)

	return err
}

// currentUser - the username the connection went online with.
func (that *Server) currentUser(client *client) (string, error) {
	username, err := that.identities.LookupByConnection(client.ID())
	if err != nil {
		return "", fmt.Errorf("%w: connection is not online", apperror.ErrIdentityMismatch)
	}

	return username, nil
}

// requireIdentity - the acting username in a payload must be the connection's user.
func (that *Server) requireIdentity(client *client, username string) error {
	current, err := that.currentUser(client)
	if err != nil {
		return err
	}

	if current != username {
		return fmt.Errorf("%w: connection belongs to %s, not %s", apperror.ErrIdentityMismatch, current, username)
	}

	return nil
}

func decode(msg *Message, out any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", apperror.ErrMalformedPayload)
	}

	if err := json.Unmarshal(msg.Payload, out); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrMalformedPayload, err)
	}

	return nil
}

func isInvalidMove(err error) bool {
	return errors.Is(err, apperror.ErrDuplicateMove) ||
		errors.Is(err, apperror.ErrInvalidLine) ||
		errors.Is(err, apperror.ErrNotYourTurn) ||
		errors.Is(err, apperror.ErrNoMovesLeft)
}
