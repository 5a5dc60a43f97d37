// Package rename implements the branch-rename state machine (spec §4.10):
// a non-atomic, durable migration across every repo worktree in a
// workspace, resumable via `arb branch continue` / `arb branch abort`.
package rename

import (
	"context"
	"fmt"

	"github.com/arborist-dev/arb/internal/arbroot"
	"github.com/arborist-dev/arb/internal/gitrun"
)

// State is the workspace's rename migration state, derived from
// .arbws/config.branch_rename_from.
type State string

const (
	Idle       State = "idle"
	InProgress State = "in-progress"
)

// CurrentState derives the migration state from a WorkspaceConfig.
func CurrentState(cfg arbroot.WorkspaceConfig) State {
	if cfg.BranchRenameFrom != "" {
		return InProgress
	}
	return Idle
}

// RepoOutcome classifies one repo during a rename transition.
type RepoOutcome string

const (
	RepoWillRename      RepoOutcome = "will-rename"
	RepoAlreadyOnNew    RepoOutcome = "already-on-new"
	RepoSkip            RepoOutcome = "skip"
	RepoWillRollBack    RepoOutcome = "roll-back"
	RepoAlreadyReverted RepoOutcome = "already-reverted"
	RepoSkipUnknown     RepoOutcome = "skip-unknown"
)

// ClassifyForRename classifies a repo's current branch during the initial
// `branch rename X` or an `arb branch continue` retry.
func ClassifyForRename(ctx context.Context, worktreeDir, oldBranch, newBranch string) RepoOutcome {
	current, ok := currentBranch(ctx, worktreeDir)
	if !ok {
		return RepoSkip
	}
	switch current {
	case newBranch:
		return RepoAlreadyOnNew
	case oldBranch:
		return RepoWillRename
	default:
		return RepoSkipUnknown
	}
}

// ClassifyForAbort classifies a repo's current branch during `arb branch abort`.
func ClassifyForAbort(ctx context.Context, worktreeDir, oldBranch, newBranch string) RepoOutcome {
	current, ok := currentBranch(ctx, worktreeDir)
	if !ok {
		return RepoSkipUnknown
	}
	switch current {
	case newBranch:
		return RepoWillRollBack
	case oldBranch:
		return RepoAlreadyReverted
	default:
		return RepoSkipUnknown
	}
}

func currentBranch(ctx context.Context, dir string) (string, bool) {
	res, err := gitrun.Git(ctx, dir, "branch", "--show-current")
	if err != nil || !res.Ok() || res.Stdout == "" {
		return "", false
	}
	return res.Stdout, true
}

// RenameBranch runs `git branch -m old new` in one repo worktree.
func RenameBranch(ctx context.Context, worktreeDir, oldName, newName string) error {
	res, err := gitrun.Git(ctx, worktreeDir, "branch", "-m", oldName, newName)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("renaming branch %s -> %s: %s", oldName, newName, res.Stderr)
	}
	return nil
}

// BeginRename starts the Idle -> InProgress transition by writing the
// migration markers before any per-repo rename is attempted, so a partial
// failure always leaves durable state behind.
func BeginRename(workspaceDir string, cfg arbroot.WorkspaceConfig, newBranch string) (arbroot.WorkspaceConfig, error) {
	cfg.BranchRenameFrom = cfg.Branch
	cfg.Branch = newBranch
	if err := arbroot.WriteWorkspaceConfig(workspaceDir, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// CompleteRename clears the migration marker once every repo has renamed
// successfully.
func CompleteRename(workspaceDir string, cfg arbroot.WorkspaceConfig) error {
	cfg.BranchRenameFrom = ""
	return arbroot.WriteWorkspaceConfig(workspaceDir, cfg)
}

// AbortRename restores the workspace's branch to its pre-rename name and
// clears migration state, once every repo has been rolled back.
func AbortRename(workspaceDir string, cfg arbroot.WorkspaceConfig) error {
	cfg.Branch = cfg.BranchRenameFrom
	cfg.BranchRenameFrom = ""
	return arbroot.WriteWorkspaceConfig(workspaceDir, cfg)
}

// RemoteDeleteCandidate reports whether the old remote branch should be
// deleted: only once every local rename succeeded (spec §4.10 — "
// --delete-remote runs only after all local renames succeed").
func RemoteDeleteCandidate(allSucceeded bool) bool {
	return allSucceeded
}

// DeleteRemoteBranch runs `git push <remote> --delete <branch>`.
func DeleteRemoteBranch(ctx context.Context, worktreeDir, remote, branch string) error {
	res, err := gitrun.Git(ctx, worktreeDir, "push", remote, "--delete", branch)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("deleting remote branch %s/%s: %s", remote, branch, res.Stderr)
	}
	return nil
}

// RepairWorktree runs `git worktree repair` from a canonical repo, fixing
// linked-worktree path metadata after the workspace directory is renamed.
func RepairWorktree(ctx context.Context, canonicalRepoDir string) error {
	res, err := gitrun.Git(ctx, canonicalRepoDir, "worktree", "repair")
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("repairing worktree metadata: %s", res.Stderr)
	}
	return nil
}
