package repostatus

import (
	"context"
	"os"
	"path/filepath"

	"github.com/arborist-dev/arb/internal/gitrun"
)

// gatherIdentity computes §4.3(a). Every probe tolerates failure: a worktree
// we can't fully introspect still yields a best-effort Identity rather than
// an error, per §7's local recovery policy.
func gatherIdentity(ctx context.Context, worktreeDir string) Identity {
	id := Identity{WorktreeKind: worktreeKind(worktreeDir)}

	res, err := gitrun.Git(ctx, worktreeDir, "branch", "--show-current")
	if err == nil && res.Ok() && res.Stdout != "" {
		id.Branch = res.Stdout
	} else {
		id.Detached = true
	}

	commonDir := gitCommonDir(ctx, worktreeDir)
	if commonDir != "" {
		if _, err := os.Stat(filepath.Join(commonDir, "shallow")); err == nil {
			id.Shallow = true
		}
	}

	return id
}

func worktreeKind(worktreeDir string) WorktreeKind {
	info, err := os.Stat(filepath.Join(worktreeDir, ".git"))
	if err == nil && !info.IsDir() {
		return WorktreeLinked
	}
	return WorktreeFull
}

// gitCommonDir resolves the repository's common git directory (shared
// across all linked worktrees), used to probe for shallow-clone and
// in-progress-operation markers that live there rather than per-worktree.
func gitCommonDir(ctx context.Context, worktreeDir string) string {
	res, err := gitrun.Git(ctx, worktreeDir, "rev-parse", "--git-common-dir")
	if err != nil || !res.Ok() || res.Stdout == "" {
		return ""
	}
	dir := res.Stdout
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(worktreeDir, dir)
}

// gatherOperation computes the in-progress-operation probe from §4.3(a).
// Matches are mutually exclusive; the first match in the listed order wins.
func gatherOperation(ctx context.Context, worktreeDir string) Operation {
	commonDir := gitCommonDir(ctx, worktreeDir)
	// git-dir proper (not common-dir) holds per-worktree state like
	// rebase-merge/, MERGE_HEAD, etc. For a linked worktree that's
	// <commonDir>/worktrees/<name>; rev-parse --git-dir resolves it
	// directly regardless of worktree kind.
	gitDir := resolveGitDir(ctx, worktreeDir)
	if gitDir == "" {
		gitDir = commonDir
	}
	if gitDir == "" {
		return OpNone
	}

	exists := func(rel string) bool {
		_, err := os.Stat(filepath.Join(gitDir, rel))
		return err == nil
	}

	switch {
	case exists("rebase-merge"):
		return OpRebase
	case exists(filepath.Join("rebase-apply", "applying")):
		return OpAm
	case exists("rebase-apply"):
		return OpRebase
	case exists("MERGE_HEAD"):
		return OpMerge
	case exists("CHERRY_PICK_HEAD"):
		return OpCherryPick
	case exists("REVERT_HEAD"):
		return OpRevert
	case exists("BISECT_LOG"):
		return OpBisect
	default:
		return OpNone
	}
}

func resolveGitDir(ctx context.Context, worktreeDir string) string {
	res, err := gitrun.Git(ctx, worktreeDir, "rev-parse", "--git-dir")
	if err != nil || !res.Ok() || res.Stdout == "" {
		return ""
	}
	dir := res.Stdout
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(worktreeDir, dir)
}
