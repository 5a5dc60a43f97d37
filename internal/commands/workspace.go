package commands

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arborist-dev/arb/internal/arbroot"
	"github.com/arborist-dev/arb/internal/gitrun"
)

// Create handles `arb create <name>`: makes a new workspace directory and
// grows a linked worktree on the workspace's feature branch from every
// canonical repo.
func Create(g Globals, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	branch := fs.String("branch", "", "feature branch name (default: the workspace name)")
	base := fs.String("base", "", "stacked base branch override")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: arb create [--branch <branch>] [--base <base>] <name>")
	}
	name := fs.Arg(0)
	featureBranch := *branch
	if featureBranch == "" {
		featureBranch = name
	}

	c, err := NewContext(g)
	if err != nil {
		return err
	}

	wsDir := c.WorkspaceDir(name)
	if _, err := os.Stat(wsDir); err == nil {
		return fmt.Errorf("%s already exists", wsDir)
	}
	if err := os.MkdirAll(wsDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", wsDir, err)
	}

	repoNames, err := ListRepoNames(c.ReposDir)
	if err != nil {
		return err
	}
	if len(repoNames) == 0 {
		return fmt.Errorf("no canonical repos cloned yet (run arb repo clone <url>)")
	}

	ctx := background()
	for _, repo := range repoNames {
		repoDir := c.RepoDir(repo)
		worktreeDir := filepath.Join(wsDir, repo)

		args := []string{"worktree", "add", "-b", featureBranch, worktreeDir}
		res, err := gitrun.Git(ctx, repoDir, args...)
		if err != nil {
			return err
		}
		if !res.Ok() {
			// The branch may already exist from a previous attempt; retry
			// without -b to reuse it.
			res2, err2 := gitrun.Git(ctx, repoDir, "worktree", "add", worktreeDir, featureBranch)
			if err2 != nil || !res2.Ok() {
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", failStyle.Render("failed:"), repo, res.Stderr)
				continue
			}
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", passStyle.Render("worktree added:"), repo)
	}

	cfg := arbroot.WorkspaceConfig{Branch: featureBranch, Base: *base, Extra: map[string]string{}}
	if err := arbroot.WriteWorkspaceConfig(wsDir, cfg); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Render("Created workspace:"), valueStyle.Render(name))
	return nil
}

// Delete handles `arb delete <name>`: removes every repo's linked worktree
// then the workspace directory.
func Delete(g Globals, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	m := AddMutationFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	m.Resolve()
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: arb delete <name>")
	}
	name := fs.Arg(0)

	c, err := NewContext(g)
	if err != nil {
		return err
	}
	wsDir := c.WorkspaceDir(name)
	if _, err := os.Stat(wsDir); err != nil {
		return fmt.Errorf("workspace %q not found", name)
	}

	if !m.Yes {
		ok, err := confirmDestructive(fmt.Sprintf("Delete workspace %q and all its worktrees?", name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, hintStyle.Render("Aborted."))
			return nil
		}
	}
	if m.DryRun {
		fmt.Fprintln(os.Stderr, hintStyle.Render("(dry run) would delete "+wsDir))
		return nil
	}

	entries, err := os.ReadDir(wsDir)
	if err != nil {
		return err
	}
	ctx := background()
	for _, e := range entries {
		if !e.IsDir() || e.Name() == ".arbws" {
			continue
		}
		repo := e.Name()
		repoDir := c.RepoDir(repo)
		worktreeDir := filepath.Join(wsDir, repo)
		res, err := gitrun.Git(ctx, repoDir, "worktree", "remove", "--force", worktreeDir)
		if err != nil || !res.Ok() {
			fmt.Fprintf(os.Stderr, "%s %s: %v %s\n", failStyle.Render("failed to remove worktree:"), repo, err, res.Stderr)
		}
	}

	if err := os.RemoveAll(wsDir); err != nil {
		return fmt.Errorf("removing %s: %w", wsDir, err)
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Render("Deleted workspace:"), valueStyle.Render(name))
	return nil
}

// Clean prunes stale worktree metadata across every canonical repo via
// `git worktree prune`.
func Clean(g Globals, args []string) error {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := NewContext(g)
	if err != nil {
		return err
	}
	names, err := ListRepoNames(c.ReposDir)
	if err != nil {
		return err
	}

	ctx := background()
	for _, repo := range names {
		res, err := gitrun.Git(ctx, c.RepoDir(repo), "worktree", "prune")
		if err != nil || !res.Ok() {
			fmt.Fprintf(os.Stderr, "%s %s\n", failStyle.Render("prune failed:"), repo)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", passStyle.Render("pruned:"), repo)
	}
	return nil
}

// List handles `arb list`: prints every workspace name.
func List(g Globals, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := NewContext(g)
	if err != nil {
		return err
	}
	names, err := ListWorkspaceNames(c.Root)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

// Path handles `arb path [name]`: prints the absolute path of a workspace
// (or the current one).
func Path(g Globals, args []string) error {
	fs := flag.NewFlagSet("path", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := NewContext(g)
	if err != nil {
		return err
	}

	name := fs.Arg(0)
	if name == "" {
		name, err = RequireWorkspace(c)
		if err != nil {
			return err
		}
	}
	fmt.Println(c.WorkspaceDir(name))
	return nil
}

// Cd handles `arb cd <name>`: prints the workspace path for a shell
// function to `cd` into (arb itself cannot change its parent shell's
// directory).
func Cd(g Globals, args []string) error {
	fs := flag.NewFlagSet("cd", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: arb cd <name>")
	}
	c, err := NewContext(g)
	if err != nil {
		return err
	}
	name := fs.Arg(0)
	wsDir := c.WorkspaceDir(name)
	if _, err := os.Stat(wsDir); err != nil {
		return fmt.Errorf("workspace %q not found", name)
	}
	fmt.Println(wsDir)
	return nil
}
