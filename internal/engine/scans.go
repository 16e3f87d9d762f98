package engine

import (
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/travismiller/gitstatus/internal/shard"
	"github.com/travismiller/gitstatus/internal/vcs"
)

// updateFile is the publication protocol (spec §4.8): a lock-free fast
// check to avoid taking the mutex when the slot is already filled, then a
// locked TrySet that wakes the orchestrator on success.
func (e *Engine) updateFile(slot *shard.OptionalFile, label, path string) {
	if !slot.Empty() {
		return
	}
	e.mu.Lock()
	won := slot.TrySet(path)
	e.mu.Unlock()
	if won {
		e.log.Info("found new file", "category", label, "path", path)
		e.mu.Lock()
		e.cond.Broadcast()
		e.mu.Unlock()
	}
}

// startStagedScan enqueues one task per shard diffing head's tree against
// the index (spec §4.6). Skipped if the staged slot is already filled.
func (e *Engine) startStagedScan(head plumbing.Hash) {
	if !e.staged.Empty() {
		return
	}
	e.mu.Lock()
	splits := e.splits.Splits
	e.mu.Unlock()

	for i := 0; i+1 < len(splits); i++ {
		start, end := splits[i], splits[i+1]
		e.runAsync(func() {
			err := e.backend.DiffTreeToIndex(head, start, end, func(path string) vcs.CallbackResult {
				if e.errored() {
					return vcs.Abort
				}
				e.updateFile(&e.staged, "staged", path)
				return vcs.Abort
			})
			if err != nil {
				e.latchError(err)
			}
		})
	}
}

// startDirtyScan enqueues one task per shard diffing the index against the
// work tree (spec §4.7), fusing the unstaged and untracked discovery into a
// single pass per shard.
func (e *Engine) startDirtyScan() {
	if !e.unstaged.Empty() && !e.untracked.Empty() {
		return
	}
	e.mu.Lock()
	splits := e.splits.Splits
	e.mu.Unlock()

	includeUntracked := e.untracked.Empty()

	for i := 0; i+1 < len(splits); i++ {
		start, end := splits[i], splits[i+1]
		e.runAsync(func() {
			err := e.backend.DiffIndexToWorkdir(start, end, includeUntracked, func(path string, untracked bool) vcs.CallbackResult {
				if e.errored() {
					return vcs.Abort
				}
				if untracked {
					e.updateFile(&e.untracked, "untracked", path)
					if e.unstaged.Empty() {
						return vcs.Skip
					}
					return vcs.Abort
				}
				e.updateFile(&e.unstaged, "unstaged", path)
				if e.untracked.Empty() {
					return vcs.Skip
				}
				return vcs.Abort
			})
			if err != nil {
				e.latchError(err)
			}
		})
	}
}
