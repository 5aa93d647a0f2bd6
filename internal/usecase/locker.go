package usecase

import (
	"sort"
	"sync"
)

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out mutexes by key, entries are dropped once nobody holds them.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewLocker() *Locker {
	return &Locker{
		locks: make(map[string]*lockEntry),
	}
}

// Lock acquires every key in sorted order and returns the release func.
func (that *Locker) Lock(keys ...string) func() {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)

	entries := make([]*lockEntry, 0, len(sorted))
	for _, key := range sorted {
		entry := that.acquire(key)
		entry.mu.Lock()
		entries = append(entries, entry)
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			for i := len(entries) - 1; i >= 0; i-- {
				entries[i].mu.Unlock()
				that.release(sorted[i])
			}
		})
	}
}

func (that *Locker) acquire(key string) *lockEntry {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.locks[key]
	if !ok {
		entry = &lockEntry{}
		that.locks[key] = entry
	}
	entry.refs++

	return entry
}

func (that *Locker) release(key string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.locks[key]
	if !ok {
		return
	}

	entry.refs--
	if entry.refs == 0 {
		delete(that.locks, key)
	}
}

