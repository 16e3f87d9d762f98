// Package vcs is the repository facade: the thin wrapper around the
// version-control object library the status engine treats as a black box
// (spec §4.3). It is backed by go-git for everything go-git exposes, and
// falls back to shelling out to the git binary (see stash.go's execGit) for
// the one thing go-git has no API for: stash enumeration.
package vcs

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotFound is returned by Open when dir is not (inside) a git
// repository. It is not an error condition for callers — spec §7 classifies
// it as NotFound, "return ⊥, not an error".
var ErrNotFound = errors.New("vcs: not a git repository")

// Repository is an opened repository handle. It owns the underlying go-git
// repository and worktree; callers are expected to serialize concurrent use
// the way internal/engine does (the facade itself does no locking).
type Repository struct {
	repo *git.Repository
	wt   *git.Worktree
	path string

	// cachedStatus is filled in by loadStatus for the duration of a single
	// query cycle and cleared by the engine via Invalidate. go-git computes
	// staged-vs-HEAD and index-vs-workdir status in one combined call
	// (git.Status), so every shard task reads from the same snapshot
	// rather than triggering its own full worktree walk. PreloadStatus fills
	// it only when the dirty scan runs; otherwise StatusFile (the fast-path
	// recheck) fills it on first use. The staged scan never reads it.
	cachedStatus git.Status
	statusLoaded bool

	// cachedStaged is the cheaper HEAD-tree-vs-index diff DiffTreeToIndex
	// reads from. It never touches the worktree, so it is always safe to
	// fill even when the index is too large for a full status walk.
	cachedStaged map[string]bool
	stagedLoaded bool
}

// Open opens the repository containing dir, walking up to find .git the
// way "open from env" discovery does. Returns ErrNotFound, not an error, if
// dir is not inside a work tree.
func Open(dir string) (*Repository, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		// A bare repository has no worktree; the status engine has
		// nothing to scan in that case, but opening still succeeds so
		// callers can use the reference/history/tag operations.
		wt = nil
	}
	return &Repository{repo: repo, wt: wt, path: abs}, nil
}

// Path returns the directory the repository was opened from.
func (r *Repository) Path() string { return r.path }

// gitDir returns the repository's .git metadata directory, resolving
// worktree-linked and submodule gitlink cases the same way the git binary
// does (a .git file containing "gitdir: <path>").
func (r *Repository) gitDir() (string, error) {
	root := r.path
	if r.wt != nil {
		root = r.wt.Filesystem.Root()
	}
	info, err := os.Stat(filepath.Join(root, ".git"))
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return filepath.Join(root, ".git"), nil
	}
	data, err := os.ReadFile(filepath.Join(root, ".git"))
	if err != nil {
		return "", err
	}
	const prefix = "gitdir: "
	s := string(data)
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		target := s[len(prefix):]
		for len(target) > 0 && (target[len(target)-1] == '\n' || target[len(target)-1] == '\r') {
			target = target[:len(target)-1]
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(root, target)
		}
		return target, nil
	}
	return "", errors.New("vcs: malformed .git file")
}

// ReadIndex reloads the on-disk index and returns its entries in on-disk
// order. Called once per query before any shard task runs (spec §5
// ordering guarantee 1).
func (r *Repository) ReadIndex() (*index.Index, error) {
	return r.repo.Storer.Index()
}

// IndexPaths reads the index and returns its entry paths in on-disk order,
// for the sharder to partition; the entry count is the slice's length.
func (r *Repository) IndexPaths() ([]string, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(idx.Entries))
	for i, e := range idx.Entries {
		paths[i] = e.Name
	}
	return paths, nil
}

// Invalidate drops the cached status snapshots, forcing the next diff or
// status-file call to recompute them. The engine calls this once per query
// cycle, right after reloading the index.
func (r *Repository) Invalidate() {
	r.statusLoaded = false
	r.cachedStatus = nil
	r.stagedLoaded = false
	r.cachedStaged = nil
}

func (r *Repository) loadStatus() (git.Status, error) {
	if r.statusLoaded {
		return r.cachedStatus, nil
	}
	if r.wt == nil {
		r.cachedStatus = git.Status{}
		r.statusLoaded = true
		return r.cachedStatus, nil
	}
	st, err := r.wt.Status()
	if err != nil {
		return nil, err
	}
	r.cachedStatus = st
	r.statusLoaded = true
	return st, nil
}

// loadStagedStatus diffs the HEAD tree against the index directly —
// comparing blob hashes path by path — without ever touching the worktree.
// This is what DiffTreeToIndex reads from: the staged scan only ever needs
// HEAD-vs-index, and computing it this way means a huge index's staged
// scan never pays for a full workdir stat walk the way the dirty scan does.
func (r *Repository) loadStagedStatus(head plumbing.Hash) (map[string]bool, error) {
	if r.stagedLoaded {
		return r.cachedStaged, nil
	}
	commit, err := r.repo.CommitObject(head)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, err
	}

	treeHashes := make(map[string]plumbing.Hash, len(idx.Entries))
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if entry.Mode.IsFile() {
			treeHashes[name] = entry.Hash
		}
	}

	staged := make(map[string]bool)
	seen := make(map[string]bool, len(idx.Entries))
	for _, e := range idx.Entries {
		seen[e.Name] = true
		if treeHash, ok := treeHashes[e.Name]; !ok || treeHash != e.Hash {
			staged[e.Name] = true
		}
	}
	for name := range treeHashes {
		if !seen[name] {
			staged[name] = true
		}
	}

	r.cachedStaged = staged
	r.stagedLoaded = true
	return staged, nil
}

// PreloadStatus forces the status snapshots this query's scans need to be
// computed now, on the caller's goroutine, rather than lazily on whichever
// shard task happens to call DiffTreeToIndex/DiffIndexToWorkdir first.
//
// go-git's Worktree.Status() does not support concurrent invocation, and
// loadStatus does no locking of its own — it relies entirely on the engine
// calling this once, synchronously, right after Invalidate and before any
// shard task is launched (spec §5 ordering guarantee: the backend is
// immutable for the duration of a query). Without this, two pool workers
// racing into loadStatus on a cold cache would both see statusLoaded ==
// false and both write cachedStatus concurrently.
//
// The combined worktree walk is only performed when scanDirty is true —
// when the index is too large for the dirty scan to run at all, warming it
// here would defeat the entire point of skipping that scan, since the
// expensive full worktree walk would already have happened regardless. The
// staged scan never needs worktree state, so its cheaper tree-vs-index
// diff is always warmed.
func (r *Repository) PreloadStatus(head plumbing.Hash, headOK, scanDirty bool) error {
	if headOK {
		if _, err := r.loadStagedStatus(head); err != nil {
			return err
		}
	}
	if scanDirty {
		if _, err := r.loadStatus(); err != nil {
			return err
		}
	}
	return nil
}

// HeadCommit resolves HEAD to a commit hash. ok is false for an unborn
// HEAD (empty repository with no commits yet), matching spec's head_oid|⊥.
func (r *Repository) HeadCommit() (hash plumbing.Hash, ok bool, err error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, err
	}
	return ref.Hash(), true, nil
}
