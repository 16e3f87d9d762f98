package engine

import "github.com/travismiller/gitstatus/internal/vcs"

// updateKnown is the fast-path recheck (spec §4.5 step 4): for each
// category slot that is currently filled, take its path out and re-query
// single-file status. The three results are then redistributed — whichever
// path still carries a staged flag becomes the new staged slot, whichever
// carries a dirty worktree flag becomes unstaged, whichever is untracked
// becomes untracked. A path can change category between queries (e.g. a
// staged-then-reverted file becomes clean and is simply dropped); this
// mirrors the original's UpdateKnown exactly, including the "at most one
// path per category, first match wins" rule.
func (e *Engine) updateKnown() {
	type candidate struct {
		path  string
		flags vcs.FileFlags
	}

	e.mu.Lock()
	prev := [3]string{e.staged.Clear(), e.unstaged.Clear(), e.untracked.Clear()}
	e.mu.Unlock()

	var candidates []candidate
	for _, path := range prev {
		if path == "" {
			continue
		}
		flags, err := e.backend.StatusFile(path)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{path: path, flags: flags})
	}

	e.mu.Lock()
	for _, c := range candidates {
		if c.flags.Staged && e.staged.TrySet(c.path) {
			e.log.Info("fast path staged", "path", c.path)
		}
	}
	for _, c := range candidates {
		if c.flags.Unstaged && e.unstaged.TrySet(c.path) {
			e.log.Info("fast path unstaged", "path", c.path)
		}
	}
	for _, c := range candidates {
		if c.flags.Untracked && e.untracked.TrySet(c.path) {
			e.log.Info("fast path untracked", "path", c.path)
		}
	}
	e.mu.Unlock()
}
