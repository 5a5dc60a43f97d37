package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arborist-dev/arb/internal/arbcontext"
	"github.com/arborist-dev/arb/internal/arbroot"
	"github.com/arborist-dev/arb/internal/remotes"
	"github.com/arborist-dev/arb/internal/rename"

	"flag"
)

// Branch dispatches `arb branch` (prints the workspace's feature branch) and
// `arb branch rename|continue|abort`.
func Branch(g Globals, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "rename":
			return branchRename(g, args[1:])
		case "continue":
			return branchContinue(g)
		case "abort":
			return branchAbort(g)
		}
	}
	_, cfg, err := loadSyncContext(g)
	if err != nil {
		return err
	}
	fmt.Println(cfg.Branch)
	return nil
}

// branchRename starts the §4.10 rename migration: writes the new branch
// name into .arbws/config, then renames the local branch in every attached
// worktree.
func branchRename(g Globals, args []string) error {
	fs := flag.NewFlagSet("branch rename", flag.ExitOnError)
	m := AddMutationFlags(fs)
	deleteRemote := fs.Bool("delete-remote", false, "delete the old remote branch once every repo has renamed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m.Resolve()
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: arb branch rename <new-name>")
	}
	newBranch := fs.Arg(0)

	c, cfg, err := loadSyncContext(g)
	if err != nil {
		return err
	}
	wsDir := c.WorkspaceDir(c.Workspace)

	if rename.CurrentState(cfg) == rename.InProgress {
		return fmt.Errorf("a rename is already in progress (branch_rename_from=%s); run `arb branch continue` or `arb branch abort`", cfg.BranchRenameFrom)
	}

	oldBranch := cfg.Branch
	cfg, err = rename.BeginRename(wsDir, cfg, newBranch)
	if err != nil {
		return err
	}

	return runRenameTransition(c, cfg, oldBranch, newBranch, *deleteRemote, m.DryRun)
}

func branchContinue(g Globals) error {
	c, cfg, err := loadSyncContext(g)
	if err != nil {
		return err
	}
	if rename.CurrentState(cfg) != rename.InProgress {
		return fmt.Errorf("no rename in progress")
	}
	return runRenameTransition(c, cfg, cfg.BranchRenameFrom, cfg.Branch, false, false)
}

func branchAbort(g Globals) error {
	c, cfg, err := loadSyncContext(g)
	if err != nil {
		return err
	}
	if rename.CurrentState(cfg) != rename.InProgress {
		return fmt.Errorf("no rename in progress")
	}
	wsDir := c.WorkspaceDir(c.Workspace)
	oldBranch, newBranch := cfg.BranchRenameFrom, cfg.Branch

	names, err := ListRepoNames(c.ReposDir)
	if err != nil {
		return err
	}
	ctx := background()
	allRolledBack := true
	for _, repo := range names {
		worktreeDir := c.WorktreeDir(c.Workspace, repo)
		if _, err := os.Stat(worktreeDir); err != nil {
			continue
		}
		switch rename.ClassifyForAbort(ctx, worktreeDir, oldBranch, newBranch) {
		case rename.RepoWillRollBack:
			if err := rename.RenameBranch(ctx, worktreeDir, newBranch, oldBranch); err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", failStyle.Render("failed:"), repo, err)
				allRolledBack = false
				continue
			}
			fmt.Fprintf(os.Stderr, "%s %s\n", passStyle.Render("rolled back:"), repo)
		case rename.RepoAlreadyReverted:
			fmt.Fprintf(os.Stderr, "%s %s\n", hintStyle.Render("already reverted:"), repo)
		default:
			fmt.Fprintf(os.Stderr, "%s %s\n", hintStyle.Render("skip (unexpected branch):"), repo)
		}
	}

	if !allRolledBack {
		return fmt.Errorf("rollback failed in some repos; rename state kept (run `arb branch abort` again)")
	}
	if err := rename.AbortRename(wsDir, cfg); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Render("Aborted rename, back to"), valueStyle.Render(oldBranch))
	return nil
}

// runRenameTransition drives the rename forward across every attached
// worktree, completing migration state once every repo is confirmed on the
// new branch.
func runRenameTransition(c *arbcontext.Context, cfg arbroot.WorkspaceConfig, oldBranch, newBranch string, deleteRemote, dryRun bool) error {
	wsDir := c.WorkspaceDir(c.Workspace)

	names, err := ListRepoNames(c.ReposDir)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintf(os.Stderr, "(dry run) would rename %s -> %s across %d repo(s)\n", oldBranch, newBranch, len(names))
		return nil
	}

	ctx := background()
	allSucceeded := true
	for _, repo := range names {
		worktreeDir := c.WorktreeDir(c.Workspace, repo)
		if _, err := os.Stat(worktreeDir); err != nil {
			continue
		}
		switch rename.ClassifyForRename(ctx, worktreeDir, oldBranch, newBranch) {
		case rename.RepoWillRename:
			if err := rename.RenameBranch(ctx, worktreeDir, oldBranch, newBranch); err != nil {
				allSucceeded = false
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", failStyle.Render("failed:"), repo, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "%s %s\n", passStyle.Render("renamed:"), repo)
		case rename.RepoAlreadyOnNew:
			fmt.Fprintf(os.Stderr, "%s %s\n", hintStyle.Render("already renamed:"), repo)
		default:
			allSucceeded = false
			fmt.Fprintf(os.Stderr, "%s %s\n", hintStyle.Render("skip (unexpected branch):"), repo)
		}
	}

	if !allSucceeded {
		fmt.Fprintln(os.Stderr, hintStyle.Render("Some repos did not rename; run `arb branch continue` once resolved."))
		return nil
	}

	if err := rename.CompleteRename(wsDir, cfg); err != nil {
		return err
	}

	if deleteRemote && rename.RemoteDeleteCandidate(allSucceeded) {
		for _, repo := range names {
			worktreeDir := c.WorktreeDir(c.Workspace, repo)
			canonDir := filepath.Join(c.ReposDir, repo)
			roles, err := remotes.Resolve(ctx, canonDir, nil, nil)
			if err != nil || roles.Share == "" {
				continue
			}
			if err := rename.DeleteRemoteBranch(ctx, worktreeDir, roles.Share, oldBranch); err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", failStyle.Render("failed to delete remote branch:"), repo, err)
			}
		}
	}

	fmt.Fprintf(os.Stderr, "%s %s -> %s\n", labelStyle.Render("Renamed branch:"), oldBranch, valueStyle.Render(newBranch))
	return nil
}
