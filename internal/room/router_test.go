package room_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/room"
	"github.com/rocketscienceinc/dotsandboxes-backend/testing/suite"
)

func newRouter(conns ...*suite.RecordingConn) *room.Router {
	router := room.NewRouter(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	for _, conn := range conns {
		router.Add(conn)
	}
	return router
}

func TestRouter_Groups(t *testing.T) {
	t.Run("Group events reach only members", func(t *testing.T) {
		// Given: three connections, two of them in a group
		alice, bob, carol := suite.NewRecordingConn("a"), suite.NewRecordingConn("b"), suite.NewRecordingConn("c")
		router := newRouter(alice, bob, carol)
		require.NoError(t, router.Join("a", "alice bob"))
		require.NoError(t, router.Join("b", "alice bob"))

		// When: broadcasting to the group
		router.BroadcastToGroup("alice bob", "gameOver", nil)

		// Then: only the members receive it
		assert.Equal(t, []string{"gameOver"}, alice.Events())
		assert.Equal(t, []string{"gameOver"}, bob.Events())
		assert.Empty(t, carol.Events())
	})

	t.Run("Left connections stop receiving group events", func(t *testing.T) {
		// Given: a group of two
		alice, bob := suite.NewRecordingConn("a"), suite.NewRecordingConn("b")
		router := newRouter(alice, bob)
		require.NoError(t, router.Join("a", "g"))
		require.NoError(t, router.Join("b", "g"))

		// When: both leave
		router.Leave("a", "g")
		router.Leave("b", "g")
		router.BroadcastToGroup("g", "myTurn", nil)

		// Then: the group is gone
		assert.Empty(t, router.Members("g"))
		assert.Empty(t, alice.Events())
		assert.Empty(t, bob.Events())
	})

	t.Run("Removed connection leaves every group", func(t *testing.T) {
		// Given: a connection in two groups
		alice := suite.NewRecordingConn("a")
		router := newRouter(alice)
		require.NoError(t, router.Join("a", "g1"))
		require.NoError(t, router.Join("a", "g2"))

		// When: it is removed
		router.Remove("a")

		// Then: no group keeps it
		assert.Empty(t, router.Members("g1"))
		assert.Empty(t, router.Members("g2"))
	})

	t.Run("Joining with an unknown connection fails", func(t *testing.T) {
		router := newRouter()

		err := router.Join("ghost", "g")

		require.ErrorIs(t, err, apperror.ErrConnectionNotFound)
	})
}

func TestRouter_Broadcasts(t *testing.T) {
	t.Run("Global events reach everybody", func(t *testing.T) {
		alice, bob := suite.NewRecordingConn("a"), suite.NewRecordingConn("b")
		router := newRouter(alice, bob)

		router.BroadcastGlobal("newChatMessage", nil)

		assert.Equal(t, []string{"newChatMessage"}, alice.Events())
		assert.Equal(t, []string{"newChatMessage"}, bob.Events())
	})

	t.Run("BroadcastOthers skips the origin", func(t *testing.T) {
		alice, bob := suite.NewRecordingConn("a"), suite.NewRecordingConn("b")
		router := newRouter(alice, bob)

		router.BroadcastOthers("a", "userOnline", nil)

		assert.Empty(t, alice.Events())
		assert.Equal(t, []string{"userOnline"}, bob.Events())
	})

	t.Run("A failing connection doesn't stop delivery to others", func(t *testing.T) {
		// Given: one closed connection
		alice, bob := suite.NewRecordingConn("a"), suite.NewRecordingConn("b")
		alice.Close()
		router := newRouter(alice, bob)

		// When: broadcasting
		router.BroadcastGlobal("userOffline", nil)

		// Then: the healthy one still gets it
		assert.Equal(t, []string{"userOffline"}, bob.Events())
	})

	t.Run("SendToOne targets a single connection", func(t *testing.T) {
		alice, bob := suite.NewRecordingConn("a"), suite.NewRecordingConn("b")
		router := newRouter(alice, bob)

		require.NoError(t, router.SendToOne("b", "challengeUser", "alice"))

		assert.Empty(t, alice.Events())
		envelope, ok := bob.Last("challengeUser")
		require.True(t, ok)
		assert.Equal(t, "alice", envelope.Payload)
	})

	t.Run("SendToOne with an unknown connection fails", func(t *testing.T) {
		router := newRouter()

		err := router.SendToOne("ghost", "challengeUser", nil)

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})
}
