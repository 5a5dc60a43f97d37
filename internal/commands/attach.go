package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arborist-dev/arb/internal/gitrun"
	"github.com/arborist-dev/arb/internal/plan"
)

// Attach handles `arb attach <repo>...`: grows a linked worktree for each
// named canonical repo inside the current workspace, on the workspace's
// feature branch.
func Attach(g Globals, args []string) error {
	fs := flag.NewFlagSet("attach", flag.ExitOnError)
	m := AddMutationFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	m.Resolve()
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: arb attach <repo>...")
	}
	repos := fs.Args()

	c, cfg, err := loadSyncContext(g)
	if err != nil {
		return err
	}
	wsDir := c.WorkspaceDir(c.Workspace)

	ctx := background()
	assess := func(map[string]bool) []plan.Row {
		var rows []plan.Row
		for _, repo := range repos {
			row := plan.Row{Repo: repo, RepoDir: c.RepoDir(repo)}
			if _, err := os.Stat(c.RepoDir(repo)); err != nil {
				row.Outcome = plan.OutcomeSkip
				row.SkipReason = "not a cloned canonical repo"
				rows = append(rows, row)
				continue
			}
			if _, err := os.Stat(filepath.Join(wsDir, repo)); err == nil {
				row.Outcome = plan.OutcomeUpToDate
				rows = append(rows, row)
				continue
			}
			row.Outcome = plan.OutcomeWill
			row.Verb = "attach"
			rows = append(rows, row)
		}
		return rows
	}

	run := plan.Run(ctx, plan.Params{
		Assess:      assess,
		PostAssess:  func([]plan.Row) {},
		FormatPlan:  formatPlanRows,
		ShouldFetch: false,
		Execute: func(ctx context.Context, row plan.Row) plan.Result {
			worktreeDir := filepath.Join(wsDir, row.Repo)
			res, err := gitrun.Git(ctx, row.RepoDir, "worktree", "add", "-b", cfg.Branch, worktreeDir)
			if err != nil || !res.Ok() {
				res, err = gitrun.Git(ctx, row.RepoDir, "worktree", "add", worktreeDir, cfg.Branch)
			}
			if err != nil || !res.Ok() {
				return plan.Result{Succeeded: false, Message: res.Stderr}
			}
			return plan.Result{Succeeded: true}
		},
		Yes: m.Yes, Force: m.Force, DryRun: m.DryRun, Verb: "attach",
	})
	return exitErr(run)
}

// Detach handles `arb detach <repo>...`: removes the named repos' linked
// worktrees from the current workspace, leaving the canonical clone intact.
func Detach(g Globals, args []string) error {
	fs := flag.NewFlagSet("detach", flag.ExitOnError)
	m := AddMutationFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	m.Resolve()
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: arb detach <repo>...")
	}
	repos := fs.Args()

	c, _, err := loadSyncContext(g)
	if err != nil {
		return err
	}
	wsDir := c.WorkspaceDir(c.Workspace)

	ctx := background()
	assess := func(map[string]bool) []plan.Row {
		var rows []plan.Row
		for _, repo := range repos {
			row := plan.Row{Repo: repo, RepoDir: c.RepoDir(repo)}
			worktreeDir := filepath.Join(wsDir, repo)
			if _, err := os.Stat(worktreeDir); err != nil {
				row.Outcome = plan.OutcomeSkip
				row.SkipReason = "not attached to this workspace"
				rows = append(rows, row)
				continue
			}
			row.Outcome = plan.OutcomeWill
			row.Verb = "detach"
			row.Extra = map[string]any{"worktreeDir": worktreeDir}
			rows = append(rows, row)
		}
		return rows
	}

	run := plan.Run(ctx, plan.Params{
		Assess:      assess,
		PostAssess:  func([]plan.Row) {},
		FormatPlan:  formatPlanRows,
		ShouldFetch: false,
		Execute: func(ctx context.Context, row plan.Row) plan.Result {
			worktreeDir, _ := row.Extra["worktreeDir"].(string)
			force := m.Force
			args := []string{"worktree", "remove", worktreeDir}
			if force {
				args = []string{"worktree", "remove", "--force", worktreeDir}
			}
			res, err := gitrun.Git(ctx, row.RepoDir, args...)
			if err != nil || !res.Ok() {
				return plan.Result{Succeeded: false, Message: res.Stderr}
			}
			return plan.Result{Succeeded: true}
		},
		Yes: m.Yes, Force: m.Force, DryRun: m.DryRun, Verb: "detach",
	})
	return exitErr(run)
}
