package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/rocketscienceinc/dotsandboxes-backend/testing/suite"
)

func newUser(username string) *entity.User {
	return &entity.User{Username: username, CreatedAt: time.Now().UTC()}
}

func TestUserRepository_SaveAndFind(t *testing.T) {
	t.Run("Saved user is found", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		userRepo := NewUserRepository(st.SQLite.Connection)

		// Given: a saved user
		require.NoError(t, userRepo.Save(ctx, newUser("alice")))

		// When: FindByName is called
		user, err := userRepo.FindByName(ctx, "alice")

		// Then: the user is returned and not in game
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.False(t, user.InGame)
	})

	t.Run("Save updates an existing user", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		userRepo := NewUserRepository(st.SQLite.Connection)

		// Given: a stored user
		user := newUser("alice")
		require.NoError(t, userRepo.Save(ctx, user))

		// When: the same user is saved with the in-game flag
		user.InGame = true
		require.NoError(t, userRepo.Save(ctx, user))

		// Then: the flag is updated
		found, err := userRepo.FindByName(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, found.InGame)
	})

	t.Run("Unknown user is not found", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		userRepo := NewUserRepository(st.SQLite.Connection)

		// When: FindByName is called for an unknown username
		user, err := userRepo.FindByName(ctx, "nobody")

		// Then: ErrUserNotFound is returned
		require.ErrorIs(t, err, apperror.ErrUserNotFound)
		assert.Nil(t, user)
	})
}

func TestUserRepository_ReserveForGame(t *testing.T) {
	t.Run("Both idle users are reserved", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		userRepo := NewUserRepository(st.SQLite.Connection)

		// Given: two idle users
		require.NoError(t, userRepo.Save(ctx, newUser("alice")))
		require.NoError(t, userRepo.Save(ctx, newUser("bob")))

		// When: reserving them
		err := userRepo.ReserveForGame(ctx, "alice", "bob")

		// Then: both are in game
		require.NoError(t, err)
		for _, name := range []string{"alice", "bob"} {
			user, findErr := userRepo.FindByName(ctx, name)
			require.NoError(t, findErr)
			assert.True(t, user.InGame, name)
		}
	})

	t.Run("Busy user blocks the whole reservation", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		userRepo := NewUserRepository(st.SQLite.Connection)

		// Given: bob is already in game
		require.NoError(t, userRepo.Save(ctx, newUser("alice")))
		bob := newUser("bob")
		bob.InGame = true
		require.NoError(t, userRepo.Save(ctx, bob))

		// When: reserving alice and bob
		err := userRepo.ReserveForGame(ctx, "alice", "bob")

		// Then: the conflict is reported and alice stays idle
		require.ErrorIs(t, err, apperror.ErrAlreadyInGame)
		alice, findErr := userRepo.FindByName(ctx, "alice")
		require.NoError(t, findErr)
		assert.False(t, alice.InGame)
	})

	t.Run("Unknown user is reported as not found", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		userRepo := NewUserRepository(st.SQLite.Connection)

		// Given: only alice exists
		require.NoError(t, userRepo.Save(ctx, newUser("alice")))

		// When: reserving alice with a stranger
		err := userRepo.ReserveForGame(ctx, "alice", "ghost")

		// Then: the stranger is not found and alice stays idle
		require.ErrorIs(t, err, apperror.ErrUserNotFound)
		alice, findErr := userRepo.FindByName(ctx, "alice")
		require.NoError(t, findErr)
		assert.False(t, alice.InGame)
	})
}

func TestUserRepository_ReleaseFromGame(t *testing.T) {
	ctx, st := suite.NewInMemory(t)
	userRepo := NewUserRepository(st.SQLite.Connection)

	// Given: two reserved users
	require.NoError(t, userRepo.Save(ctx, newUser("alice")))
	require.NoError(t, userRepo.Save(ctx, newUser("bob")))
	require.NoError(t, userRepo.ReserveForGame(ctx, "alice", "bob"))

	// When: both are released
	err := userRepo.ReleaseFromGame(ctx, "alice", "bob")

	// Then: they can be reserved again
	require.NoError(t, err)
	require.NoError(t, userRepo.ReserveForGame(ctx, "alice", "bob"))

	// And: releasing nobody is a no-op
	require.NoError(t, userRepo.ReleaseFromGame(ctx))
}
