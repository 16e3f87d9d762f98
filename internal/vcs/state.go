package vcs

import (
	"os"
	"path/filepath"
)

// State is one of the stable repo-state-tag strings from spec §6.
type State string

const (
	StateNone       State = ""
	StateMerge      State = "merge"
	StateRevert     State = "revert"
	StateRevertSeq  State = "revert-seq"
	StateCherry     State = "cherry"
	StateCherrySeq  State = "cherry-seq"
	StateBisect     State = "bisect"
	StateRebase     State = "rebase"
	StateRebaseI    State = "rebase-i"
	StateRebaseM    State = "rebase-m"
	StateAM         State = "am"
	StateAMRebase   State = "am/rebase"
	StateAction     State = "action"
)

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RepoState inspects the .git metadata directory for the in-progress
// action markers real git itself writes there, reproducing
// git_repository_state's check order (go-git exposes no equivalent API, so
// this goes straight at the filesystem rather than through a pack
// library — see DESIGN.md).
func (r *Repository) RepoState() State {
	dir, err := r.gitDir()
	if err != nil {
		return StateNone
	}
	rebaseMerge := filepath.Join(dir, "rebase-merge")
	if exists(rebaseMerge) {
		if exists(filepath.Join(rebaseMerge, "interactive")) {
			return StateRebaseI
		}
		return StateRebaseM
	}
	rebaseApply := filepath.Join(dir, "rebase-apply")
	if exists(rebaseApply) {
		switch {
		case exists(filepath.Join(rebaseApply, "rebasing")):
			return StateRebase
		case exists(filepath.Join(rebaseApply, "applying")):
			return StateAM
		default:
			return StateAMRebase
		}
	}
	if exists(filepath.Join(dir, "MERGE_HEAD")) {
		return StateMerge
	}
	if exists(filepath.Join(dir, "CHERRY_PICK_HEAD")) {
		if exists(filepath.Join(dir, "sequencer", "todo")) {
			return StateCherrySeq
		}
		return StateCherry
	}
	if exists(filepath.Join(dir, "REVERT_HEAD")) {
		if exists(filepath.Join(dir, "sequencer", "todo")) {
			return StateRevertSeq
		}
		return StateRevert
	}
	if exists(filepath.Join(dir, "BISECT_LOG")) {
		return StateBisect
	}
	return StateNone
}
