package vcs

import (
	"github.com/go-git/go-git/v5/plumbing"
)

// CountRange counts commits reachable from to but not from from — the
// equivalent of `git rev-list --count from..to` / git_revwalk with
// git_revwalk_push_range (spec §6 count_range). Used by CLI-level
// ahead/behind computation; not on the hot path of the core engine.
func (r *Repository) CountRange(from, to plumbing.Hash) (uint64, error) {
	excluded, err := r.ancestors(from)
	if err != nil {
		return 0, err
	}

	var count uint64
	visited := map[plumbing.Hash]bool{}
	queue := []plumbing.Hash{to}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if visited[h] || excluded[h] {
			continue
		}
		visited[h] = true
		count++

		commit, err := r.repo.CommitObject(h)
		if err != nil {
			return 0, err
		}
		for _, p := range commit.ParentHashes {
			if !visited[p] && !excluded[p] {
				queue = append(queue, p)
			}
		}
	}
	return count, nil
}

func (r *Repository) ancestors(start plumbing.Hash) (map[plumbing.Hash]bool, error) {
	seen := map[plumbing.Hash]bool{}
	if start.IsZero() {
		return seen, nil
	}
	queue := []plumbing.Hash{start}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if seen[h] {
			continue
		}
		seen[h] = true
		commit, err := r.repo.CommitObject(h)
		if err != nil {
			return nil, err
		}
		for _, p := range commit.ParentHashes {
			if !seen[p] {
				queue = append(queue, p)
			}
		}
	}
	return seen, nil
}
