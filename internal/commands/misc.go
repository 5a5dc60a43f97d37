package commands

import (
	"flag"
	"fmt"
	"os"
	"os/exec"

	"github.com/arborist-dev/arb/internal/gitrun"
)

// Log handles `arb log [repo] [-- git-log-args...]`: passes through to
// `git log` for the current workspace's repo (or every repo when omitted),
// writing raw output to stdout per the stdout/stderr discipline.
func Log(g Globals, args []string) error {
	return gitPassthrough(g, "log", args)
}

// Diff handles `arb diff [repo] [-- git-diff-args...]`.
func Diff(g Globals, args []string) error {
	return gitPassthrough(g, "diff", args)
}

func gitPassthrough(g Globals, subcommand string, args []string) error {
	c, err := NewContext(g)
	if err != nil {
		return err
	}
	name, err := RequireWorkspace(c)
	if err != nil {
		return err
	}

	repo := ""
	rest := args
	if len(args) > 0 && args[0] != "--" {
		repo = args[0]
		rest = args[1:]
	}
	if len(rest) > 0 && rest[0] == "--" {
		rest = rest[1:]
	}

	var dirs []string
	if repo != "" {
		resolved, err := resolveRepoName(c.ReposDir, repo)
		if err != nil {
			return err
		}
		dirs = []string{resolved}
	} else {
		dirs, err = ListRepoNames(c.ReposDir)
		if err != nil {
			return err
		}
	}

	ctx := background()
	for _, r := range dirs {
		worktreeDir := c.WorktreeDir(name, r)
		if _, err := os.Stat(worktreeDir); err != nil {
			continue
		}
		gitArgs := append([]string{subcommand}, rest...)
		res, err := gitrun.Git(ctx, worktreeDir, gitArgs...)
		if err != nil {
			return err
		}
		if len(dirs) > 1 {
			fmt.Fprintf(os.Stderr, "%s\n", labelStyle.Render("== "+r+" =="))
		}
		fmt.Print(res.Stdout)
		if res.Stderr != "" {
			fmt.Fprint(os.Stderr, res.Stderr)
		}
	}
	return nil
}

// Exec handles `arb exec -- <command...>`: runs an arbitrary command in
// every repo worktree of the current workspace.
func Exec(g Globals, args []string) error {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) > 0 && rest[0] == "--" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return fmt.Errorf("usage: arb exec -- <command> [args...]")
	}

	c, err := NewContext(g)
	if err != nil {
		return err
	}
	name, err := RequireWorkspace(c)
	if err != nil {
		return err
	}

	names, err := ListRepoNames(c.ReposDir)
	if err != nil {
		return err
	}

	exitCode := 0
	for _, r := range names {
		worktreeDir := c.WorktreeDir(name, r)
		if _, err := os.Stat(worktreeDir); err != nil {
			continue
		}
		cmd := exec.Command(rest[0], rest[1:]...)
		cmd.Dir = worktreeDir
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Stdin = os.Stdin
		fmt.Fprintf(os.Stderr, "%s\n", labelStyle.Render("== "+r+" =="))
		if err := cmd.Run(); err != nil {
			exitCode = 1
			fmt.Fprintf(os.Stderr, "%s %v\n", failStyle.Render("exec failed:"), err)
		}
	}
	if exitCode != 0 {
		return exitCodeError{code: exitCode}
	}
	return nil
}

// Open handles `arb open [repo]`: prints the repo worktree path for a shell
// alias to feed into an editor (arb itself never launches a GUI).
func Open(g Globals, args []string) error {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := NewContext(g)
	if err != nil {
		return err
	}
	name, err := RequireWorkspace(c)
	if err != nil {
		return err
	}

	repo := fs.Arg(0)
	if repo == "" {
		fmt.Println(c.WorkspaceDir(name))
		return nil
	}
	resolved, err := resolveRepoName(c.ReposDir, repo)
	if err != nil {
		return err
	}
	worktreeDir := c.WorktreeDir(name, resolved)
	if _, err := os.Stat(worktreeDir); err != nil {
		return fmt.Errorf("%s is not attached to workspace %q", resolved, name)
	}
	fmt.Println(worktreeDir)
	return nil
}
