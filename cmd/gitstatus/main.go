// Command gitstatus prints a single-line prompt-style summary of a
// repository's status: branch, ahead/behind, stash count, in-progress
// action, nearest tag, and the staged/unstaged/untracked flags the engine
// computes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"

	"github.com/travismiller/gitstatus/internal/config"
	"github.com/travismiller/gitstatus/internal/engine"
	"github.com/travismiller/gitstatus/internal/logging"
	"github.com/travismiller/gitstatus/internal/vcs"
	"github.com/travismiller/gitstatus/internal/workpool"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:          "gitstatus [path]",
	Short:        "Print a prompt-style summary of a repository's status",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log engine activity to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	log := logging.Nop()
	if verbose {
		log = logging.NewText(os.Stderr, slog.LevelDebug)
	}

	repo, err := vcs.Open(dir)
	if err != nil {
		if err == vcs.ErrNotFound {
			fmt.Println("")
			return nil
		}
		return err
	}

	cfg, err := config.Load(repo.Path())
	if err != nil {
		return err
	}

	pool := workpool.New(cfg.Threads)
	defer pool.StopAndWait()

	eng := engine.New(repo, pool, log, cfg.ShardEntriesPerShard, cfg.SplitRefreshInterval)

	head, headOK, err := repo.HeadCommit()
	if err != nil {
		return err
	}

	stats, err := eng.GetIndexStats(head, headOK, cfg.DirtyMaxIndexSize)
	if err != nil {
		return err
	}

	line, err := buildSummaryLine(cmd.Context(), repo, eng, head, headOK, stats)
	if err != nil {
		return err
	}
	fmt.Println(line)
	return nil
}

// summary is the set of prompt fields assembled from the engine result plus
// the thin, non-core operations spec §6 lists alongside it.
type summary struct {
	branch    string
	detached  bool
	ahead     uint64
	behind    uint64
	stashes   uint64
	state     vcs.State
	tag       string
	hasStaged bool
	unstaged  engine.Tri
	untracked engine.Tri
}

func buildSummaryLine(ctx context.Context, repo *vcs.Repository, eng *engine.Engine, head plumbing.Hash, headOK bool, stats engine.IndexStats) (string, error) {
	s := summary{
		hasStaged: stats.HasStaged,
		unstaged:  stats.HasUnstaged,
		untracked: stats.HasUntracked,
		state:     repo.RepoState(),
	}

	ref, err := repo.HeadRef()
	if err != nil {
		return "", err
	}
	switch {
	case ref == nil:
		s.branch = ""
	default:
		if branch := vcs.LocalBranchName(ref); branch != "" {
			s.branch = branch
		} else {
			s.detached = true
			s.branch = head.String()[:shortHashLen]
		}
	}

	if headOK && !s.detached && s.branch != "" {
		upstream, ok, err := repo.Upstream(s.branch)
		if err != nil {
			return "", err
		}
		if ok {
			if upstreamHash, uok, err := repo.ResolveRef(upstream); err == nil && uok {
				s.ahead, _ = repo.CountRange(upstreamHash, head)
				s.behind, _ = repo.CountRange(head, upstreamHash)
			}
		}
	}

	if n, err := repo.NumStashes(ctx); err == nil {
		s.stashes = n
	}

	if headOK {
		if name, err := eng.FindTagName(repo, head).Get(); err == nil {
			s.tag = name
		}
	}

	return formatSummary(s), nil
}

const shortHashLen = 7

func formatSummary(s summary) string {
	branch := s.branch
	if branch == "" {
		branch = "(unborn)"
	}
	state := ""
	if s.state != vcs.StateNone {
		state = "|" + string(s.state)
	}
	tag := ""
	if s.tag != "" {
		tag = "@" + s.tag
	}
	flags := ""
	if s.hasStaged {
		flags += "+"
	}
	flags += triFlag(s.unstaged, "!")
	flags += triFlag(s.untracked, "%")

	ahead, behind := "", ""
	if s.ahead > 0 {
		ahead = fmt.Sprintf(" ahead:%d", s.ahead)
	}
	if s.behind > 0 {
		behind = fmt.Sprintf(" behind:%d", s.behind)
	}
	stash := ""
	if s.stashes > 0 {
		stash = fmt.Sprintf(" stash:%d", s.stashes)
	}

	return fmt.Sprintf("%s%s%s %s%s%s%s", branch, state, tag, flags, ahead, behind, stash)
}

func triFlag(t engine.Tri, mark string) string {
	switch t {
	case engine.True:
		return mark
	case engine.Unknown:
		return "?"
	default:
		return ""
	}
}
