package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
)

func TestNewGameSession(t *testing.T) {
	// Given: a challenger, a challengee and a clock
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// When: a new session is created
	session := NewGameSession("s1", "alice", "bob", now)

	// Then: it is pending with a deterministic group and empty scores
	assert.Equal(t, StatusPending, session.Status)
	assert.Equal(t, `"alice" "bob"`, session.Group)
	assert.Equal(t, PlayerSlot{Username: "alice"}, session.Challenger)
	assert.Equal(t, PlayerSlot{Username: "bob"}, session.Challengee)
	assert.Empty(t, session.Moves)
	assert.Nil(t, session.Winner)
}

func TestGroupName(t *testing.T) {
	t.Run("Same pair always maps to the same group", func(t *testing.T) {
		assert.Equal(t, GroupName("alice", "bob"), GroupName("alice", "bob"))
		assert.NotEqual(t, GroupName("alice", "bob"), GroupName("bob", "alice"))
	})

	t.Run("Spaces inside usernames don't merge groups", func(t *testing.T) {
		// Given: two pairs whose names join to the same text
		first := GroupName("a b", "c")
		second := GroupName("a", "b c")

		// Then: their groups differ
		assert.NotEqual(t, first, second)
	})

	t.Run("Quotes inside usernames don't merge groups", func(t *testing.T) {
		assert.NotEqual(t, GroupName(`a" "b`, "c"), GroupName("a", `b" "c`))
	})
}

func TestGameSession_Advance(t *testing.T) {
	t.Run("Pending to Active to Complete is allowed", func(t *testing.T) {
		// Given: a pending session
		session := NewGameSession("s1", "alice", "bob", time.Now())

		// When: advancing twice
		require.NoError(t, session.Advance(StatusActive))
		require.NoError(t, session.Advance(StatusComplete))

		// Then: the session is complete
		assert.True(t, session.IsComplete())
	})

	t.Run("Skipping Active is rejected", func(t *testing.T) {
		// Given: a pending session
		session := NewGameSession("s1", "alice", "bob", time.Now())

		// When: jumping straight to Complete
		err := session.Advance(StatusComplete)

		// Then: the transition is illegal and the status is unchanged
		require.ErrorIs(t, err, apperror.ErrIllegalTransition)
		assert.True(t, session.IsPending())
	})

	t.Run("Going backward is rejected", func(t *testing.T) {
		// Given: an active session
		session := NewGameSession("s1", "alice", "bob", time.Now())
		require.NoError(t, session.Advance(StatusActive))

		// When: trying to go back to Pending
		err := session.Advance(StatusPending)

		// Then: it fails with a conflict
		require.ErrorIs(t, err, apperror.ErrConflict)
		assert.True(t, session.IsActive())
	})

	t.Run("Complete is terminal", func(t *testing.T) {
		// Given: a complete session
		session := &GameSession{ID: "s1", Status: StatusComplete}

		// When: advancing anywhere
		errActive := session.Advance(StatusActive)
		errComplete := session.Advance(StatusComplete)

		// Then: both fail
		require.ErrorIs(t, errActive, apperror.ErrIllegalTransition)
		require.ErrorIs(t, errComplete, apperror.ErrIllegalTransition)
	})
}

func TestGameSession_ConfirmActiveState(t *testing.T) {
	t.Run("Returns nil when session is active", func(t *testing.T) {
		// Given: an active session
		session := &GameSession{Status: StatusActive}

		// When / Then: no error
		assert.NoError(t, session.ConfirmActiveState())
	})

	t.Run("Returns ErrSessionNotActive for pending and complete", func(t *testing.T) {
		// Given: sessions that are not active
		for _, status := range []SessionStatus{StatusPending, StatusComplete} {
			session := &GameSession{Status: status}

			// When: confirming the active state
			err := session.ConfirmActiveState()

			// Then: the session is reported as not active
			require.ErrorIs(t, err, apperror.ErrSessionNotActive)
		}
	})
}

func TestGameSession_Participants(t *testing.T) {
	session := NewGameSession("s1", "alice", "bob", time.Now())

	t.Run("Opponent resolves the other player", func(t *testing.T) {
		// When: resolving opponents
		opponentOfAlice, err := session.Opponent("alice")
		require.NoError(t, err)
		opponentOfBob, err := session.Opponent("bob")
		require.NoError(t, err)

		// Then: each gets the other
		assert.Equal(t, "bob", opponentOfAlice)
		assert.Equal(t, "alice", opponentOfBob)
	})

	t.Run("Strangers are rejected", func(t *testing.T) {
		// When: resolving a non-participant
		_, errOpponent := session.Opponent("carol")
		_, errSlot := session.Slot("carol")

		// Then: both fail with ErrNotParticipant
		require.ErrorIs(t, errOpponent, apperror.ErrNotParticipant)
		require.ErrorIs(t, errSlot, apperror.ErrNotParticipant)
		assert.False(t, session.IsParticipant("carol"))
	})

	t.Run("Slot points into the session", func(t *testing.T) {
		// Given: the challengee slot
		slot, err := session.Slot("bob")
		require.NoError(t, err)

		// When: the score is changed through the slot
		slot.Score = 3

		// Then: the session sees it
		assert.Equal(t, 3, session.Challengee.Score)
	})
}

func TestGameSession_Reset(t *testing.T) {
	// Given: an active session with moves, scores and a pending restart request
	session := NewGameSession("s1", "alice", "bob", time.Now())
	require.NoError(t, session.Advance(StatusActive))
	session.Moves = append(session.Moves, Move{Mover: "alice", Line: Line{Orientation: Horizontal}})
	session.Challenger.Score = 2
	session.Challengee.Score = 1
	session.HandoffDue = true
	session.RestartRequestedBy = "alice"

	// When: the session is reset
	session.Reset()

	// Then: the log and scores are cleared, the status is unchanged
	assert.Empty(t, session.Moves)
	assert.Zero(t, session.Challenger.Score)
	assert.Zero(t, session.Challengee.Score)
	assert.False(t, session.HandoffDue)
	assert.Empty(t, session.RestartRequestedBy)
	assert.True(t, session.IsActive())
}

func TestLine_Validate(t *testing.T) {
	// Given: valid and invalid orientations
	valid := []Line{{Orientation: Horizontal}, {Orientation: Vertical, X: 2, Y: 3}}
	invalid := Line{Orientation: "D"}

	// When / Then
	for _, line := range valid {
		assert.NoError(t, line.Validate())
	}
	require.ErrorIs(t, invalid.Validate(), apperror.ErrInvalidLine)
}

func TestPresenceState_Transition(t *testing.T) {
	t.Run("Legal transitions", func(t *testing.T) {
		// Given: the user lifecycle connect, reserve, release, disconnect
		state := PresenceOffline
		steps := []PresenceState{PresenceOnline, PresenceInGame, PresenceOnline, PresenceOffline}

		// When / Then: each step is accepted
		for _, next := range steps {
			var err error
			state, err = state.Transition(next)
			require.NoError(t, err)
		}
		assert.Equal(t, PresenceOffline, state)
	})

	t.Run("Offline user can't be reserved", func(t *testing.T) {
		// When: an offline user goes straight into a game
		state, err := PresenceOffline.Transition(PresenceInGame)

		// Then: it is rejected and the state is kept
		require.ErrorIs(t, err, apperror.ErrIllegalTransition)
		assert.Equal(t, PresenceOffline, state)
	})

	t.Run("In-game user may disconnect", func(t *testing.T) {
		assert.True(t, PresenceInGame.CanTransition(PresenceOffline))
	})
}
