package engine

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/travismiller/gitstatus/internal/logging"
	"github.com/travismiller/gitstatus/internal/vcs"
	"github.com/travismiller/gitstatus/internal/workpool"
)

// These tests drive GetIndexStats against a real *vcs.Repository rather than
// the fakeBackend used elsewhere in this package. The fake is internally
// locked and never exercises the concurrent path where many shard tasks of
// the staged and dirty scans read the repository's lazily-cached status
// snapshots (the staged diff and git.Status) at the same time —
// PreloadStatus is what makes that safe, and a real backend plus a pool big
// enough to run the shards concurrently is the only way to put that
// ordering under genuine pressure.

func requireGitBinary(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in PATH")
	}
}

func runGitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, string(out))
	}
}

// multiShardRepo builds a throwaway repository with enough committed,
// staged, unstaged, and untracked files spread across several directories
// that a small entriesPerShard override genuinely partitions the scan into
// more than one shard, rather than trivially collapsing to one.
func multiShardRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGitCmd(t, dir, "init", "-b", "main")
	runGitCmd(t, dir, "config", "user.email", "you@example.com")
	runGitCmd(t, dir, "config", "user.name", "Your Name")

	const fileCount = 60
	for i := 0; i < fileCount; i++ {
		name := filepath.Join(fmt.Sprintf("dir%d", i/10), fmt.Sprintf("file%02d.txt", i))
		full := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("line one\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	runGitCmd(t, dir, "add", ".")
	runGitCmd(t, dir, "commit", "-m", "seed")

	// Stage a change to half the tree and leave the other half unstaged,
	// so both the staged scan and the dirty scan have real work to do
	// concurrently.
	for i := 0; i < fileCount; i++ {
		name := filepath.Join(fmt.Sprintf("dir%d", i/10), fmt.Sprintf("file%02d.txt", i))
		full := filepath.Join(dir, name)
		if err := os.WriteFile(full, []byte("line one\nline two\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if i%2 == 0 {
			runGitCmd(t, dir, "add", name)
		}
	}

	for i := 0; i < 5; i++ {
		name := filepath.Join(fmt.Sprintf("dir%d", i), fmt.Sprintf("untracked%02d.txt", i))
		full := filepath.Join(dir, name)
		if err := os.WriteFile(full, []byte("new\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	return dir
}

// TestGetIndexStatsRealRepoConcurrentShards exercises GetIndexStats against
// a real go-git-backed Repository with a pool wide enough, and an
// entriesPerShard override small enough, that the staged and dirty scans
// genuinely run multiple shard tasks concurrently against the same
// repository's cached status. Without PreloadStatus pre-warming the cache
// synchronously before these tasks launch, this is the path that would
// race two pool workers into loadStatus's unsynchronized read/write of
// cachedStatus/statusLoaded, and into go-git's Worktree.Status() itself.
func TestGetIndexStatsRealRepoConcurrentShards(t *testing.T) {
	requireGitBinary(t)
	dir := multiShardRepo(t)

	repo, err := vcs.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	head, ok, err := repo.HeadCommit()
	if err != nil || !ok {
		t.Fatalf("HeadCommit: %v ok=%v", err, ok)
	}

	pool := workpool.New(8)
	defer pool.StopAndWait()

	// entriesPerShard=5 against a 60-entry index asks for 13 shards; the
	// pool size of 8 caps that, and boundaries land on the six directories,
	// giving 7 shards per scan, so both DiffTreeToIndex and
	// DiffIndexToWorkdir fan out into several concurrent shard tasks, each
	// scan's tasks reading the same cached snapshot.
	eng := New(repo, pool, logging.Nop(), 5, 0)

	for i := 0; i < 10; i++ {
		stats, err := eng.GetIndexStats(head, true, 10_000)
		if err != nil {
			t.Fatalf("GetIndexStats (iteration %d): %v", i, err)
		}
		if !stats.HasStaged {
			t.Fatalf("iteration %d: expected HasStaged given half the tree was staged, got %+v", i, stats)
		}
		if stats.HasUnstaged != True {
			t.Fatalf("iteration %d: expected HasUnstaged=true, got %+v", i, stats)
		}
		if stats.HasUntracked != True {
			t.Fatalf("iteration %d: expected HasUntracked=true, got %+v", i, stats)
		}
	}
}
