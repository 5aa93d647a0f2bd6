package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/boxes"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/presence"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/repository"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/room"
	"github.com/rocketscienceinc/dotsandboxes-backend/testing/suite"
)

type harness struct {
	ctx context.Context
	st  *suite.Suite

	deps     Deps
	router   *room.Router
	registry *presence.Registry

	lobby       *Lobby
	negotiator  *ChallengeNegotiator
	games       *GameManager
	coordinator *DisconnectCoordinator
}

func newHarness(t *testing.T, maxMoves int) *harness {
	t.Helper()

	ctx, st := suite.NewInMemory(t)

	router := room.NewRouter(st.Logger)
	registry := presence.NewRegistry(st.Logger, router)

	deps := Deps{
		Users:    repository.NewUserRepository(st.SQLite.Connection),
		Sessions: repository.NewSessionRepository(st.Storage),
		Presence: registry,
		Router:   router,
		Locker:   NewLocker(),
	}

	return wire(ctx, st, deps, router, registry, maxMoves)
}

func wire(ctx context.Context, st *suite.Suite, deps Deps, router *room.Router, registry *presence.Registry, maxMoves int) *harness {
	negotiator := NewChallengeNegotiator(st.Logger, deps)
	games := NewGameManager(st.Logger, deps, boxes.NewRules(false, 0), maxMoves)
	coordinator := NewDisconnectCoordinator(st.Logger, deps, negotiator, games)

	return &harness{
		ctx:         ctx,
		st:          st,
		deps:        deps,
		router:      router,
		registry:    registry,
		lobby:       NewLobby(st.Logger, deps, coordinator, false),
		negotiator:  negotiator,
		games:       games,
		coordinator: coordinator,
	}
}

func connID(username string) string {
	return "conn-" + username
}

// online opens a connection for the user and goes online on it.
func (that *harness) online(t *testing.T, username string) *suite.RecordingConn {
	t.Helper()

	conn := suite.NewRecordingConn(connID(username))
	that.router.Add(conn)
	require.NoError(t, that.lobby.GoOnline(that.ctx, username, conn.ID()))

	return conn
}

// active brings both users online and plays the challenge handshake.
func (that *harness) active(t *testing.T, challenger, challengee string) (*entity.GameSession, *suite.RecordingConn, *suite.RecordingConn) {
	t.Helper()

	challengerConn := that.online(t, challenger)
	challengeeConn := that.online(t, challengee)

	_, err := that.negotiator.ProposeChallenge(that.ctx, challenger, challengee)
	require.NoError(t, err)

	session, err := that.negotiator.AcceptChallenge(that.ctx, challenger, challengee)
	require.NoError(t, err)

	challengerConn.Reset()
	challengeeConn.Reset()

	return session, challengerConn, challengeeConn
}

// seed overwrites the stored session state.
func (that *harness) seed(t *testing.T, session *entity.GameSession, mutate func(*entity.GameSession)) *entity.GameSession {
	t.Helper()

	stored, err := that.deps.Sessions.FindByID(that.ctx, session.ID)
	require.NoError(t, err)

	mutate(stored)
	require.NoError(t, that.deps.Sessions.Save(that.ctx, stored))

	return stored
}

func (that *harness) session(t *testing.T, id string) *entity.GameSession {
	t.Helper()

	session, err := that.deps.Sessions.FindByID(that.ctx, id)
	require.NoError(t, err)

	return session
}

func (that *harness) inGame(t *testing.T, username string) bool {
	t.Helper()

	user, err := that.deps.Users.FindByName(that.ctx, username)
	require.NoError(t, err)

	return user.InGame
}

func h(x, y int) entity.Line {
	return entity.Line{Orientation: entity.Horizontal, X: x, Y: y}
}

func decode[T any](t *testing.T, conn *suite.RecordingConn, event string) T {
	t.Helper()

	envelope, ok := conn.Last(event)
	require.True(t, ok, "event %s not received, got %v", event, conn.Events())

	var out T
	require.NoError(t, suite.Decode(envelope.Payload, &out))

	return out
}
