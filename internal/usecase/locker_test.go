package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (that *Locker) size() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.locks)
}

func TestLocker_Lock(t *testing.T) {
	t.Run("Same key serializes holders", func(t *testing.T) {
		// Given: a locker with one key held
		locker := NewLocker()
		unlock := locker.Lock("user:alice")

		// When: another goroutine asks for the same key
		acquired := make(chan struct{})
		go func() {
			release := locker.Lock("user:alice", "user:bob")
			close(acquired)
			release()
		}()

		// Then: it waits until the first holder releases
		select {
		case <-acquired:
			t.Fatal("lock acquired while held")
		case <-time.After(50 * time.Millisecond):
		}

		unlock()

		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("lock was never acquired")
		}
	})

	t.Run("Opposite key order doesn't deadlock", func(t *testing.T) {
		locker := NewLocker()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				locker.Lock("user:alice", "user:bob")()
			}()
			go func() {
				defer wg.Done()
				locker.Lock("user:bob", "user:alice")()
			}()
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("deadlock")
		}
	})

	t.Run("Entries are dropped after release", func(t *testing.T) {
		// Given: keys taken, one of them twice in the same call
		locker := NewLocker()
		unlock := locker.Lock("session:1", "user:alice", "user:alice")
		require.Equal(t, 2, locker.size())

		// When: released twice
		unlock()
		unlock()

		// Then: nothing is left behind
		assert.Zero(t, locker.size())
	})
}
