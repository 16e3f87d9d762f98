package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// NumStashes counts stash entries. go-git has no stash-listing API at all
// (it reads and writes the worktree but never touches refs/stash), so this
// is the one capability that shells out to the git binary rather than
// going through the library, mirroring the teacher's own GoGitClient-
// delegates-to-ExecClient pattern for gaps in go-git's coverage.
func (r *Repository) NumStashes(ctx context.Context) (uint64, error) {
	out, err := execGit(ctx, r.path, "stash", "list", "--format=%H")
	if err != nil {
		return 0, err
	}
	var count uint64
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, nil
}

// execGit executes a git subcommand in root and returns its stdout. It
// exists for NumStashes alone — the sole capability go-git doesn't cover —
// so it stays a private helper rather than a general-purpose runner.
func execGit(ctx context.Context, root string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if strings.TrimSpace(root) != "" {
		cmd.Dir = root
	}
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errb.String())
		if msg == "" {
			msg = strings.TrimSpace(out.String())
		}
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", sanitizeArgs(args), redactTokens(msg))
	}
	return out.String(), nil
}

// sanitizeArgs returns a minimal, non-sensitive summary of the git
// operation for error messages. It keeps at most the first two subcommand
// tokens that look like safe words.
func sanitizeArgs(args []string) string {
	if len(args) == 0 {
		return "<no-args>"
	}
	safe := make([]string, 0, 2)
	re := regexp.MustCompile(`^[a-z][a-z-]*$`)
	for _, a := range args {
		if re.MatchString(a) {
			safe = append(safe, a)
			if len(safe) == 2 {
				break
			}
		} else {
			break
		}
	}
	if len(safe) == 0 {
		return "<redacted>"
	}
	return strings.Join(safe, " ")
}

// redactTokens removes obvious credential substrings from error messages.
func redactTokens(s string) string {
	s = regexp.MustCompile(`https?://[^\s@]+@`).ReplaceAllString(s, "https://<redacted>@")
	s = regexp.MustCompile(`(?i)(token|secret|password|passwd|bearer)=[^\s]+`).ReplaceAllString(s, "$1=<redacted>")
	return s
}
