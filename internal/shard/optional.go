package shard

import "sync/atomic"

// OptionalFile is a single-write-wins slot holding the first discovered
// filename of a category (staged, unstaged, untracked).
//
// It does not lock itself: TrySet and Clear are mutating operations and the
// caller must hold the repository's mutex while calling them (see
// internal/engine). Empty may be polled lock-free as a fast path — that is
// the whole point of the atomic flag — but a true result must be
// revalidated under the lock before acting on it, since another goroutine
// may fill the slot in the gap between the lock-free read and the caller
// taking the lock.
type OptionalFile struct {
	filled atomic.Bool
	path   string
}

// Empty reports whether the slot currently holds no path. Safe to call
// without holding any lock.
func (f *OptionalFile) Empty() bool { return !f.filled.Load() }

// TrySet stores path if the slot is empty and reports whether it won the
// race. Caller must hold the repository mutex.
func (f *OptionalFile) TrySet(path string) bool {
	if f.filled.Load() {
		return false
	}
	f.path = path
	f.filled.Store(true)
	return true
}

// Clear empties the slot and returns whatever it held. Caller must hold the
// repository mutex, and must only call this between query cycles.
func (f *OptionalFile) Clear() string {
	p := f.path
	f.path = ""
	f.filled.Store(false)
	return p
}
