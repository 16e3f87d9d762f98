package vcs

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// TagTarget reports whether the tag reference's resolved target equals oid,
// peeling an annotated tag object if necessary. Mirrors the original's
// TagHasTarget (spec §4.9): symbolic chains are followed up to
// maxSymbolicHops before giving up.
func (r *Repository) TagTarget(ref *plumbing.Reference, oid plumbing.Hash) bool {
	resolved, ok := r.resolveSymbolic(ref)
	if !ok {
		return false
	}
	if resolved.Hash() == oid {
		return true
	}
	tag, err := r.repo.TagObject(resolved.Hash())
	if err != nil {
		return false
	}
	return tag.Target == oid
}

// FindTagName searches refs/tags/* for the first tag whose target resolves
// to oid and returns its short name, or "" if none match (spec §4.9).
// Intended to run on the worker pool; the engine wraps this in a future.
func (r *Repository) FindTagName(oid plumbing.Hash) (string, error) {
	iter, err := r.repo.References()
	if err != nil {
		return "", err
	}
	defer iter.Close()

	const prefix = "refs/tags/"
	var found string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := string(ref.Name())
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		if r.TagTarget(ref, oid) {
			found = strings.TrimPrefix(name, prefix)
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && err != storer.ErrStop {
		return "", err
	}
	return found, nil
}
