// Package shard implements the index sharder (partitioning the on-disk
// index into path-prefix ranges suitable for parallel diffing) and the
// OptionalFile single-write slot the status engine publishes discoveries
// into.
package shard

import (
	"sort"
	"strings"
	"time"
)

// DefaultEntriesPerShard is the target shard size used when the caller
// does not override it (0 or negative) — above this the index is worth
// splitting across workers at all.
const DefaultEntriesPerShard = 512

// sentinel is the byte swapped in for '/' while sorting, chosen because it
// sorts before every legal path byte, making a directory sort immediately
// before any of its sibling files.
const sentinel = 0x01

// Table is an ordered list of path boundaries [s0, s1, ..., sk] with
// s0 == "", sk == "", and strictly increasing in between. Adjacent pairs
// (s_i, s_i+1] describe one shard's half-open path range.
type Table struct {
	Splits    []string
	BuiltAt   time.Time
}

// Fresh reports whether the table was built within maxAge of now.
func (t Table) Fresh(now time.Time, maxAge time.Duration) bool {
	return !t.BuiltAt.IsZero() && now.Sub(t.BuiltAt) < maxAge
}

// Shards reports how many shards the table describes.
func (t Table) Shards() int {
	if len(t.Splits) < 2 {
		return 0
	}
	return len(t.Splits) - 1
}

// Build partitions paths (already in index order, duplicates allowed but
// assumed pre-sorted by path as a real git index is) into up to poolSize
// shards of roughly entriesPerShard entries each, such that no shard
// boundary falls inside a directory's subtree. See spec §4.4 for the
// algorithm this follows. entriesPerShard <= 0 uses DefaultEntriesPerShard.
//
// Falls back to the trivial single-shard table if the index is small, the
// pool has fewer than 2 workers, or any path contains the reserved sentinel
// byte (giving up parallelism rather than corrupting the split).
func Build(paths []string, poolSize int, entriesPerShard int) Table {
	if entriesPerShard <= 0 {
		entriesPerShard = DefaultEntriesPerShard
	}
	now := time.Now()
	n := len(paths)
	if n <= entriesPerShard || poolSize < 2 {
		return Table{Splits: []string{"", ""}, BuiltAt: now}
	}

	for _, p := range paths {
		if strings.IndexByte(p, sentinel) >= 0 {
			return Table{Splits: []string{"", ""}, BuiltAt: now}
		}
	}

	// mutated holds each path with '/' replaced by the sentinel byte, so
	// that lexicographic comparison treats a directory separator as
	// sorting before any sibling file name. The real implementation (see
	// original_source/src/git.cc) mutates the index's path buffers in
	// place and restores them after sorting; paths here are immutable Go
	// strings, so instead every comparison below is done on this parallel
	// mutated slice while boundary candidates are recorded from the
	// original, slash-intact paths.
	mutated := make([]string, n)
	for i, p := range paths {
		mutated[i] = strings.ReplaceAll(p, "/", string([]byte{sentinel}))
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return mutated[order[a]] < mutated[order[b]] })

	// last[i] holds the deepest "safe" boundary candidate known once the
	// sorted walk reaches position i: the most recent path whose entire
	// subtree has been closed out by positions seen so far.
	last := make([]string, n)
	var lastSafe, maxMutated string
	for i := 0; i < n; i++ {
		sortedAtI := mutated[order[i]]
		idxAtI := mutated[i]
		if sortedAtI == idxAtI && maxMutated == "" {
			lastSafe = paths[i]
		} else {
			if idxAtI > maxMutated {
				maxMutated = idxAtI
			}
			if sortedAtI == idxAtI && sortedAtI >= maxMutated {
				lastSafe = paths[i]
				maxMutated = ""
			}
		}
		last[i] = lastSafe
	}

	shards := poolSize
	if want := n/entriesPerShard + 1; want < shards {
		shards = want
	}
	if shards < 1 {
		shards = 1
	}

	splits := make([]string, 0, shards+1)
	splits = append(splits, "")
	for i := 0; i < shards-1; i++ {
		pos := (i + 1) * n / shards
		if pos >= n {
			continue
		}
		candidate := last[pos]
		if slash := strings.LastIndexByte(candidate, '/'); slash >= 0 {
			candidate = candidate[:slash]
		} else {
			continue
		}
		if candidate > splits[len(splits)-1] {
			splits = append(splits, candidate)
		}
	}
	splits = append(splits, "")

	return Table{Splits: splits, BuiltAt: now}
}
