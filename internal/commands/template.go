package commands

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// Template dispatches `arb template add|remove|list|diff|apply`. Templates
// are plain files under .arbws/templates/ that get copied into every
// attached worktree verbatim; rendering logic beyond that copy is a thin
// surface this repo only wires the file-management half of (spec §1).
func Template(g Globals, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: arb template add|remove|list|diff|apply")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		return templateAdd(g, rest)
	case "remove":
		return templateRemove(g, rest)
	case "list":
		return templateList(g, rest)
	case "diff":
		return templateDiff(g, rest)
	case "apply":
		return templateApply(g, rest)
	default:
		return fmt.Errorf("unknown template subcommand: %s", sub)
	}
}

func templatesDir(g Globals) (string, error) {
	c, err := NewContext(g)
	if err != nil {
		return "", err
	}
	name, err := RequireWorkspace(c)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.WorkspaceDir(name), ".arbws", "templates"), nil
}

func templateAdd(g Globals, args []string) error {
	fs := flag.NewFlagSet("template add", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: arb template add <path>")
	}
	dir, err := templatesDir(g)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	src := fs.Arg(0)
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	dest := filepath.Join(dir, filepath.Base(src))
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Render("Added template:"), valueStyle.Render(filepath.Base(src)))
	return nil
}

func templateRemove(g Globals, args []string) error {
	fs := flag.NewFlagSet("template remove", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: arb template remove <name>")
	}
	dir, err := templatesDir(g)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(dir, fs.Arg(0))); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Render("Removed template:"), valueStyle.Render(fs.Arg(0)))
	return nil
}

func templateList(g Globals, args []string) error {
	dir, err := templatesDir(g)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
	return nil
}

func templateDiff(g Globals, args []string) error {
	fs := flag.NewFlagSet("template diff", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: arb template diff <repo>")
	}
	c, err := NewContext(g)
	if err != nil {
		return err
	}
	name, err := RequireWorkspace(c)
	if err != nil {
		return err
	}
	dir, err := templatesDir(g)
	if err != nil {
		return err
	}
	templates, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	repo := fs.Arg(0)
	worktreeDir := c.WorktreeDir(name, repo)
	for _, t := range templates {
		want, err := os.ReadFile(filepath.Join(dir, t.Name()))
		if err != nil {
			continue
		}
		got, err := os.ReadFile(filepath.Join(worktreeDir, t.Name()))
		if err != nil || string(got) != string(want) {
			fmt.Printf("out of date: %s\n", t.Name())
		}
	}
	return nil
}

func templateApply(g Globals, args []string) error {
	fs := flag.NewFlagSet("template apply", flag.ExitOnError)
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
	dir, err := templatesDir(g)
	if err != nil {
		return err
	}
	templates, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	names, err := ListRepoNames(c.ReposDir)
	if err != nil {
		return err
	}
	if fs.NArg() > 0 {
		names = fs.Args()
	}

	for _, repo := range names {
		worktreeDir := c.WorktreeDir(name, repo)
		if _, err := os.Stat(worktreeDir); err != nil {
			continue
		}
		for _, t := range templates {
			data, err := os.ReadFile(filepath.Join(dir, t.Name()))
			if err != nil {
				continue
			}
			if err := os.WriteFile(filepath.Join(worktreeDir, t.Name()), data, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "%s %s/%s: %v\n", failStyle.Render("failed:"), repo, t.Name(), err)
				continue
			}
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", passStyle.Render("applied templates:"), repo)
	}
	return nil
}
