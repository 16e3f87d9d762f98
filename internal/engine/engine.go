package engine

import (
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/travismiller/gitstatus/internal/logging"
	"github.com/travismiller/gitstatus/internal/shard"
	"github.com/travismiller/gitstatus/internal/vcs"
	"github.com/travismiller/gitstatus/internal/workpool"
)

// defaultSplitRefreshPeriod is how long a shard table is trusted before
// the next query schedules an asynchronous rebuild (spec §3, §4.4
// "Freshness"), used when the caller does not override it.
const defaultSplitRefreshPeriod = 60 * time.Second

// Backend is the set of repository-facade capabilities the engine
// consumes (spec §4.3). *vcs.Repository satisfies it; tests substitute a
// fake.
type Backend interface {
	IndexPaths() ([]string, error)
	Invalidate()
	PreloadStatus(head plumbing.Hash, headOK, scanDirty bool) error
	HeadCommit() (plumbing.Hash, bool, error)
	StatusFile(path string) (vcs.FileFlags, error)
	DiffTreeToIndex(head plumbing.Hash, start, end string, cb func(path string) vcs.CallbackResult) error
	DiffIndexToWorkdir(start, end string, includeUntracked bool, cb func(path string, untracked bool) vcs.CallbackResult) error
}

// Engine is the per-repository status engine: spec §3's "Repository" data
// model (the name is avoided here to not collide with vcs.Repository, the
// facade it wraps).
type Engine struct {
	backend Backend
	pool    *workpool.Pool
	log     logging.Logger

	shardEntries  int
	refreshPeriod time.Duration

	staged    shard.OptionalFile
	unstaged  shard.OptionalFile
	untracked shard.OptionalFile

	mu       sync.Mutex
	cond     *sync.Cond
	splits   shard.Table
	inflight int
	errFlag  bool
	errCause error
}

// New constructs an engine for one repository. pool is the process-wide
// worker pool (spec §6 "exactly one thread pool, initialized once").
// shardEntries overrides the sharder's target shard size (<= 0 uses
// shard.DefaultEntriesPerShard); refreshPeriod overrides how long a shard
// table is trusted before a rebuild is scheduled (<= 0 uses
// defaultSplitRefreshPeriod).
func New(backend Backend, pool *workpool.Pool, log logging.Logger, shardEntries int, refreshPeriod time.Duration) *Engine {
	if log == nil {
		log = logging.Nop()
	}
	if refreshPeriod <= 0 {
		refreshPeriod = defaultSplitRefreshPeriod
	}
	e := &Engine{backend: backend, pool: pool, log: log, shardEntries: shardEntries, refreshPeriod: refreshPeriod}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// GetIndexStats runs one status query (spec §4.5). head with ok=false
// means an unborn HEAD (empty repository); dirtyMaxIndexSize is the
// caller's size threshold for skipping the dirty scan.
func (e *Engine) GetIndexStats(head plumbing.Hash, headOK bool, dirtyMaxIndexSize uint64) (IndexStats, error) {
	e.waitAtMost(0)

	paths, err := e.backend.IndexPaths()
	if err != nil {
		return IndexStats{}, err
	}
	indexSize := uint64(len(paths))
	scanDirty := indexSize <= dirtyMaxIndexSize

	e.backend.Invalidate()

	// Force the status snapshot(s) this query's scans need to be computed
	// here, synchronously, before any shard task runs. The staged and
	// dirty scans land on DiffTreeToIndex/DiffIndexToWorkdir concurrently
	// whenever HEAD is valid and the index is under threshold — a
	// lazily-filled cache would race multiple pool workers into the same
	// cold-cache fill. When scanDirty is false, only the cheap staged
	// diff is warmed; the full worktree walk is skipped entirely rather
	// than defeating the point of skipping the dirty scan.
	if err := e.backend.PreloadStatus(head, headOK, scanDirty); err != nil {
		return IndexStats{}, err
	}

	e.mu.Lock()
	if e.splits.Shards() == 0 {
		e.splits = shard.Build(paths, e.pool.Workers(), e.shardEntries)
	}
	e.errFlag = false
	e.errCause = nil
	e.mu.Unlock()

	e.updateKnown()

	done := func() bool {
		stagedDone := !headOK || !e.staged.Empty()
		dirtyDone := !scanDirty || (!e.unstaged.Empty() && !e.untracked.Empty())
		return stagedDone && dirtyDone
	}

	e.log.Debug("index size", "entries", indexSize, "scan_dirty", scanDirty)

	if !done() {
		e.mu.Lock()
		if e.inflight != 0 {
			e.mu.Unlock()
			invariantViolated("inflight must be zero before launching a new query")
		}
		e.mu.Unlock()

		if scanDirty {
			e.startDirtyScan()
		}
		if headOK {
			e.startStagedScan(head)
		}

		e.mu.Lock()
		for e.inflight != 0 && !e.errFlag && !done() {
			e.cond.Wait()
		}
		e.mu.Unlock()
	}

	e.mu.Lock()
	splitsAge := time.Since(e.splits.BuiltAt)
	e.mu.Unlock()
	if splitsAge >= e.refreshPeriod {
		e.runAsync(func() {
			e.waitAtMost(1)
			paths, err := e.backend.IndexPaths()
			if err != nil {
				e.latchError(err)
				return
			}
			tbl := shard.Build(paths, e.pool.Workers(), e.shardEntries)
			e.mu.Lock()
			e.splits = tbl
			e.mu.Unlock()
		})
	}

	e.mu.Lock()
	failed := e.errFlag
	cause := e.errCause
	e.mu.Unlock()
	if failed {
		return IndexStats{}, &ScanError{Cause: cause}
	}

	stats := IndexStats{
		HasStaged: !e.staged.Empty() || (!headOK && indexSize > 0),
	}
	switch {
	case !e.unstaged.Empty():
		stats.HasUnstaged = True
	case scanDirty:
		stats.HasUnstaged = False
	default:
		stats.HasUnstaged = Unknown
	}
	switch {
	case !e.untracked.Empty():
		stats.HasUntracked = True
	case scanDirty:
		stats.HasUntracked = False
	default:
		stats.HasUntracked = Unknown
	}
	return stats, nil
}

// waitAtMost blocks until inflight drops to at most n. n is always 0 or 1
// in practice — a fresh query waits for a clean slate (0) and a split
// refresh waits until it is itself the sole remaining task (1).
func (e *Engine) waitAtMost(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.inflight > n {
		e.cond.Wait()
	}
	if e.inflight < n {
		invariantViolated("inflight dropped below the requested wait threshold")
	}
}

// runAsync schedules f on the pool, tracking it in inflight until f
// returns. The task body reports its own failures via latchError.
func (e *Engine) runAsync(f func()) {
	e.mu.Lock()
	e.inflight++
	e.mu.Unlock()
	e.pool.Submit(func() {
		defer e.decInflight()
		f()
	})
}

func (e *Engine) decInflight() {
	e.mu.Lock()
	if e.inflight <= 0 {
		e.mu.Unlock()
		invariantViolated("inflight went negative")
	}
	e.inflight--
	e.cond.Broadcast()
	e.mu.Unlock()
}

func (e *Engine) latchError(err error) {
	e.mu.Lock()
	if !e.errFlag {
		e.errFlag = true
		e.errCause = err
		e.cond.Broadcast()
	}
	e.mu.Unlock()
}

func (e *Engine) errored() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errFlag
}
