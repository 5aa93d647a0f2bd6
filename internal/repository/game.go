package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

// completed sessions are kept for a day for lookups, open ones never expire.
const completedSessionTTL = 24 * time.Hour

type SessionRepository interface {
	Save(ctx context.Context, session *entity.GameSession) error
	FindByID(ctx context.Context, id string) (*entity.GameSession, error)
	FindByParticipantsAndStatus(ctx context.Context, challenger, challengee string, status entity.SessionStatus) (*entity.GameSession, error)
	FindOpenByUser(ctx context.Context, username string) (*entity.GameSession, error)
	Delete(ctx context.Context, session *entity.GameSession) error
}

type dbSession struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &dbSession{
		client: client,
	}
}

func sessionKey(id string) string {
	return "session:" + id
}

func userIndexKey(username string) string {
	return "session:user:" + username
}

// pairIndexKey quotes both names so separators inside usernames can't collide.
func pairIndexKey(challenger, challengee string) string {
	return "session:pair:" + strconv.Quote(challenger) + ":" + strconv.Quote(challengee)
}

// Save writes the session and its lookup indexes in a single MULTI/EXEC.
// A complete session drops its indexes so it is no longer found as open.
func (that *dbSession) Save(ctx context.Context, session *entity.GameSession) error {
	session.UpdatedAt = time.Now().UTC()

	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	pairKey := pairIndexKey(session.Challenger.Username, session.Challengee.Username)

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if session.IsComplete() {
			pipe.Set(ctx, sessionKey(session.ID), sessionJSON, completedSessionTTL)
			pipe.Del(ctx, pairKey)
			for _, username := range session.Players() {
				pipe.Del(ctx, userIndexKey(username))
			}
			return nil
		}

		pipe.Set(ctx, sessionKey(session.ID), sessionJSON, 0)
		pipe.Set(ctx, pairKey, session.ID, 0)
		for _, username := range session.Players() {
			pipe.Set(ctx, userIndexKey(username), session.ID, 0)
		}
		return nil
	})
	if err != nil {
		return apperror.Persistence("save session", err)
	}

	return nil
}

func (that *dbSession) FindByID(ctx context.Context, id string) (*entity.GameSession, error) {
	response, err := that.client.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, apperror.Persistence("get session", err)
	}

	var session entity.GameSession
	if err = json.Unmarshal([]byte(response), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (that *dbSession) FindByParticipantsAndStatus(
	ctx context.Context,
	challenger, challengee string,
	status entity.SessionStatus,
) (*entity.GameSession, error) {
	session, err := that.findByIndex(ctx, pairIndexKey(challenger, challengee))
	if err != nil {
		return nil, err
	}

	if session.Challenger.Username != challenger || session.Challengee.Username != challengee || session.Status != status {
		return nil, fmt.Errorf("%w: no %s session for %s and %s", apperror.ErrSessionNotFound, status, challenger, challengee)
	}

	return session, nil
}

// FindOpenByUser returns the pending or active session the user takes part in.
func (that *dbSession) FindOpenByUser(ctx context.Context, username string) (*entity.GameSession, error) {
	session, err := that.findByIndex(ctx, userIndexKey(username))
	if err != nil {
		return nil, err
	}

	if session.IsComplete() || !session.IsParticipant(username) {
		return nil, fmt.Errorf("%w: no open session for %s", apperror.ErrSessionNotFound, username)
	}

	return session, nil
}

func (that *dbSession) Delete(ctx context.Context, session *entity.GameSession) error {
	keys := []string{
		sessionKey(session.ID),
		pairIndexKey(session.Challenger.Username, session.Challengee.Username),
	}
	for _, username := range session.Players() {
		keys = append(keys, userIndexKey(username))
	}

	if err := that.client.Del(ctx, keys...).Err(); err != nil {
		return apperror.Persistence("delete session", err)
	}

	return nil
}

func (that *dbSession) findByIndex(ctx context.Context, indexKey string) (*entity.GameSession, error) {
	id, err := that.client.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: index %s", apperror.ErrSessionNotFound, indexKey)
	}
	if err != nil {
		return nil, apperror.Persistence("get session index", err)
	}

	return that.FindByID(ctx, id)
}
