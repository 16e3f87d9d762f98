package shard

import (
	"sort"
	"strings"
	"testing"
)

func TestBuildTrivialForSmallIndex(t *testing.T) {
	tbl := Build([]string{"a", "b", "c"}, 8, 0)
	if len(tbl.Splits) != 2 || tbl.Splits[0] != "" || tbl.Splits[1] != "" {
		t.Fatalf("expected trivial table, got %v", tbl.Splits)
	}
}

func TestBuildTrivialForSinglePoolWorker(t *testing.T) {
	paths := make([]string, 0, 2000)
	for i := 0; i < 2000; i++ {
		paths = append(paths, string(rune('a'+i%26))+"/"+string(rune('a'+i%5)))
	}
	tbl := Build(paths, 1, 0)
	if tbl.Shards() != 1 {
		t.Fatalf("expected single shard with pool size 1, got %d", tbl.Shards())
	}
}

func TestBuildHonorsOverriddenShardSize(t *testing.T) {
	paths := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		paths = append(paths, "d"+itoa(i/10)+"/"+pad(i)+".go")
	}
	sort.Strings(paths)

	// With the default shard size (512), 40 entries stay in one trivial
	// shard. Overriding it to 5 should force the same index to split.
	if tbl := Build(paths, 4, 0); tbl.Shards() != 1 {
		t.Fatalf("expected the default shard size to keep a 40-entry index trivial, got %d shards", tbl.Shards())
	}
	tbl := Build(paths, 4, 5)
	if tbl.Shards() < 2 {
		t.Fatalf("expected entriesPerShard=5 to split a 40-entry index, got %d shards", tbl.Shards())
	}
}

func TestBuildFallsBackOnSentinelByte(t *testing.T) {
	paths := []string{"a", "b\x01c"}
	for i := 0; i < 600; i++ {
		paths = append(paths, "x/"+string(rune('a'+i%26))+string(rune('0'+i%10)))
	}
	tbl := Build(paths, 8, 0)
	if tbl.Shards() != 1 {
		t.Fatalf("expected fallback to single shard when sentinel byte present, got %d shards", tbl.Shards())
	}
}

// TestBuildNoBoundarySplitsDirectory is the sharding invariant from spec
// §4.4 and §8: no shard boundary falls strictly between a directory entry
// and its own children.
func TestBuildNoBoundarySplitsDirectory(t *testing.T) {
	var paths []string
	for d := 0; d < 40; d++ {
		dir := string(rune('a' + d%26))
		for f := 0; f < 60; f++ {
			paths = append(paths, dir+"/"+pad(f)+".go")
		}
	}
	sort.Strings(paths)

	tbl := Build(paths, 4, 0)
	if tbl.Shards() < 2 {
		t.Fatalf("expected multiple shards for %d entries, got %d", len(paths), tbl.Shards())
	}

	for _, p := range paths {
		count := 0
		for i := 0; i+1 < len(tbl.Splits); i++ {
			a, b := tbl.Splits[i], tbl.Splits[i+1]
			inLower := a == "" || a < p
			inUpper := b == "" || p <= b
			if inLower && inUpper {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("path %q landed in %d shards (splits=%v)", p, count, tbl.Splits)
		}
	}

	// Every path of one directory must land in the same shard.
	shardOf := func(p string) int {
		for i := 0; i+1 < len(tbl.Splits); i++ {
			a, b := tbl.Splits[i], tbl.Splits[i+1]
			if (a == "" || a < p) && (b == "" || p <= b) {
				return i
			}
		}
		return -1
	}
	dirShard := map[string]int{}
	for _, p := range paths {
		dir := p[:strings.LastIndexByte(p, '/')]
		s := shardOf(p)
		if prev, ok := dirShard[dir]; ok && prev != s {
			t.Fatalf("directory %q split across shards %d and %d (splits=%v)", dir, prev, s, tbl.Splits)
		}
		dirShard[dir] = s
	}

	// No boundary string itself may be a path actually present in the
	// index with siblings on both sides of it (that would mean the
	// directory it belongs to got split).
	for _, b := range tbl.Splits {
		if b == "" {
			continue
		}
		for _, p := range paths {
			if p == b {
				t.Fatalf("boundary %q coincides with an index path, which always risks splitting its directory", b)
			}
		}
	}
}

func pad(n int) string {
	s := "000" + itoa(n)
	return s[len(s)-3:]
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
