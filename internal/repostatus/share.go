package repostatus

import (
	"context"
	"strconv"
	"strings"

	"github.com/arborist-dev/arb/internal/gitrun"
)

// gatherShare computes §4.3(d). Only called for repos that have a remote and
// are attached to a branch; callers pass hasRemote=false to get a nil Share
// (local-only repo, isLocal flag).
func gatherShare(ctx context.Context, worktreeDir, shareRemote, branch string, hasRemote bool) *Share {
	if !hasRemote || branch == "" {
		return nil
	}

	share := &Share{Remote: shareRemote}

	if ref, ok := upstreamRef(ctx, worktreeDir); ok {
		share.RefMode = RefConfigured
		share.Ref = ref
	} else if ref := shareRemote + "/" + branch; remoteRefExists(ctx, worktreeDir, ref) {
		share.RefMode = RefImplicit
		share.Ref = ref
	} else if hasBranchRemoteConfig(ctx, worktreeDir, branch) {
		share.RefMode = RefGone
	} else {
		share.RefMode = RefNone
	}

	if share.RefMode == RefConfigured || share.RefMode == RefImplicit {
		toPull, toPush, ok := leftRightCount(ctx, worktreeDir, share.Ref, "HEAD")
		if ok {
			share.ToPull = &toPull
			share.ToPush = &toPush

			if toPull > 0 && toPush > 0 {
				rebased := rebasedCommitCount(ctx, worktreeDir, share.Ref)
				share.Rebased = &rebased
			}
		}
	}

	return share
}

func upstreamRef(ctx context.Context, dir string) (string, bool) {
	res, err := gitrun.Git(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}")
	if err != nil || !res.Ok() || res.Stdout == "" {
		return "", false
	}
	return res.Stdout, true
}

func remoteRefExists(ctx context.Context, dir, ref string) bool {
	res, err := gitrun.Git(ctx, dir, "rev-parse", "--verify", "--quiet", "refs/remotes/"+ref)
	return err == nil && res.Ok()
}

func hasBranchRemoteConfig(ctx context.Context, dir, branch string) bool {
	res, err := gitrun.Git(ctx, dir, "config", "--get", "branch."+branch+".remote")
	return err == nil && res.Ok() && strings.TrimSpace(res.Stdout) != ""
}

// leftRightCount runs `git rev-list --left-right --count left...right` and
// returns (leftCount, rightCount, ok). ok is false on any git failure, so
// callers can leave the corresponding fields nil ("not computed") rather
// than a misleading zero (spec §9: Option<count>).
func leftRightCount(ctx context.Context, dir, left, right string) (int, int, bool) {
	res, err := gitrun.Git(ctx, dir, "rev-list", "--left-right", "--count", left+"..."+right)
	if err != nil || !res.Ok() {
		return 0, 0, false
	}
	fields := strings.Fields(res.Stdout)
	if len(fields) != 2 {
		return 0, 0, false
	}
	a, err1 := strconv.Atoi(fields[0])
	b, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}

// rebasedCommitCount implements the rebased-commit detection in §4.3(d):
// the size of the intersection of patch-ids between the local-only commits
// (ref..HEAD) and the remote-only commits (HEAD..ref). A non-zero result
// tells the UI "you rebased locally" rather than "you and the remote
// diverged independently".
func rebasedCommitCount(ctx context.Context, dir, ref string) int {
	local := patchIDsFor(ctx, dir, ref, "HEAD")
	remote := patchIDsFor(ctx, dir, "HEAD", ref)
	if len(local) == 0 || len(remote) == 0 {
		return 0
	}
	count := 0
	for id := range local {
		if remote[id] {
			count++
		}
	}
	return count
}

// patchIDsFor returns the set of stable patch-ids for commits in from..to.
func patchIDsFor(ctx context.Context, dir, from, to string) map[string]bool {
	commits := revList(ctx, dir, from, to)
	ids := make(map[string]bool, len(commits))
	for _, c := range commits {
		if id, ok := patchIDOfCommit(ctx, dir, c); ok {
			ids[id] = true
		}
	}
	return ids
}

func revList(ctx context.Context, dir, from, to string) []string {
	res, err := gitrun.Git(ctx, dir, "rev-list", from+".."+to)
	if err != nil || !res.Ok() {
		return nil
	}
	return gitrun.Lines(res.Stdout)
}

// patchIDOfCommit computes the stable patch-id of a single commit by piping
// its diff through `git patch-id --stable`.
func patchIDOfCommit(ctx context.Context, dir, commit string) (string, bool) {
	show, err := gitrun.Git(ctx, dir, "show", commit)
	if err != nil || !show.Ok() {
		return "", false
	}
	id, err := gitrun.GitWithStdin(ctx, dir, show.Stdout, "patch-id", "--stable")
	if err != nil || !id.Ok() || id.Stdout == "" {
		return "", false
	}
	fields := strings.Fields(id.Stdout)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}
