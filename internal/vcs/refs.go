package vcs

import (
	"errors"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// maxSymbolicHops bounds symbolic-reference resolution. Spec §9 leaves the
// original's choice of 10 unexplained; it is kept verbatim rather than
// re-derived.
const maxSymbolicHops = 10

// HeadRef returns the raw HEAD reference (symbolic if on a branch, direct
// if detached), or nil for an unborn HEAD.
func (r *Repository) HeadRef() (*plumbing.Reference, error) {
	ref, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ref, nil
}

// resolveSymbolic follows a chain of symbolic references up to
// maxSymbolicHops, returning the final direct reference. A chain deeper
// than the cap is treated as not resolving, per spec §9.
func (r *Repository) resolveSymbolic(ref *plumbing.Reference) (*plumbing.Reference, bool) {
	for hop := 0; hop < maxSymbolicHops; hop++ {
		if ref.Type() != plumbing.SymbolicReference {
			return ref, true
		}
		next, err := r.repo.Storer.Reference(ref.Target())
		if err != nil {
			return nil, false
		}
		ref = next
	}
	if ref.Type() != plumbing.SymbolicReference {
		return ref, true
	}
	return nil, false
}

// LocalBranchName returns the short branch name for ref if it is a local
// branch reference, or "" otherwise (spec §6 local_branch_name).
func LocalBranchName(ref *plumbing.Reference) string {
	if ref == nil {
		return ""
	}
	name := ref.Name()
	switch ref.Type() {
	case plumbing.HashReference:
		if name.IsBranch() {
			return name.Short()
		}
		return ""
	case plumbing.SymbolicReference:
		const prefix = "refs/heads/"
		target := string(ref.Target())
		if strings.HasPrefix(target, prefix) {
			return strings.TrimPrefix(target, prefix)
		}
		return ""
	default:
		return ""
	}
}

// Upstream resolves the upstream-tracking branch configured for the local
// branch name, or ok=false if none is configured (ENOTFOUND in spec terms).
func (r *Repository) Upstream(localBranch string) (upstreamRef string, ok bool, err error) {
	branch, err := r.repo.Branch(localBranch)
	if err != nil {
		if errors.Is(err, git.ErrBranchNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if branch.Remote == "" || branch.Merge == "" {
		return "", false, nil
	}
	const headsPrefix = "refs/heads/"
	mergeShort := strings.TrimPrefix(string(branch.Merge), headsPrefix)
	if branch.Remote == "." {
		return string(branch.Merge), true, nil
	}
	return "refs/remotes/" + branch.Remote + "/" + mergeShort, true, nil
}

// RemoteBranchName strips the "<remote>/" prefix off a remote-tracking
// reference's shorthand, spec §6 remote_branch_name.
func RemoteBranchName(remote, ref string) string {
	prefix := remote + "/"
	if strings.HasPrefix(ref, prefix) {
		return strings.TrimPrefix(ref, prefix)
	}
	return ref
}

// ResolveRef resolves a full reference name (e.g. "refs/remotes/origin/main")
// to a commit hash, following symbolic chains. ok is false if the
// reference does not exist.
func (r *Repository) ResolveRef(name string) (hash plumbing.Hash, ok bool, err error) {
	ref, err := r.repo.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, err
	}
	return ref.Hash(), true, nil
}

// RemoteURL resolves the push/fetch URL for a configured remote. Absent or
// malformed remotes resolve to "" rather than an error, matching the
// original's tolerance of ENOTFOUND/EINVALIDSPEC (spec §7).
func (r *Repository) RemoteURL(remoteName string) (string, error) {
	if remoteName == "" {
		return "", nil
	}
	remote, err := r.repo.Remote(remoteName)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", nil
		}
		return "", err
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", nil
	}
	return urls[0], nil
}
