package engine

import "github.com/go-git/go-git/v5/plumbing"

// TagNameFuture is the handle returned by FindTagName: a tag search runs on
// the shared pool and its result is collected by calling Get, which blocks
// until the task completes (spec §4.9 "surfaces result through a future").
type TagNameFuture struct {
	done chan struct{}
	name string
	err  error
}

// Get blocks until the tag search completes and returns the matched tag's
// short name, or "" if nothing matched.
func (f *TagNameFuture) Get() (string, error) {
	<-f.done
	return f.name, f.err
}

// TagFinder is the backend capability the tag search needs: search
// refs/tags/* for a reference resolving to oid (spec §4.9).
type TagFinder interface {
	FindTagName(oid plumbing.Hash) (string, error)
}

// FindTagName enqueues a tag search for oid on the engine's pool and
// returns immediately with a future for the result. Unlike the staged and
// dirty scans, a tag search is not part of any GetIndexStats wait group —
// it does not touch inflight, so it can run concurrently with, or between,
// status queries without perturbing the inflight-must-be-zero invariant.
func (e *Engine) FindTagName(finder TagFinder, oid plumbing.Hash) *TagNameFuture {
	f := &TagNameFuture{done: make(chan struct{})}
	e.pool.Submit(func() {
		defer close(f.done)
		f.name, f.err = finder.FindTagName(oid)
	})
	return f
}
