package commands

import (
	"flag"
	"fmt"
	"os"

	"github.com/arborist-dev/arb/internal/gitrun"
)

// Repo dispatches `arb repo clone|list`.
func Repo(g Globals, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: arb repo clone <url> | arb repo list")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "clone":
		return repoClone(g, rest)
	case "list":
		return repoList(g, rest)
	default:
		return fmt.Errorf("unknown repo subcommand: %s (use clone or list)", sub)
	}
}

func repoClone(g Globals, args []string) error {
	fs := flag.NewFlagSet("repo clone", flag.ExitOnError)
	name := fs.String("name", "", "canonical repo directory name (default: derived from the URL)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: arb repo clone [--name <name>] <url>")
	}
	url := fs.Arg(0)

	c, err := NewContext(g)
	if err != nil {
		return err
	}

	repoName := *name
	if repoName == "" {
		repoName = deriveRepoName(url)
	}
	dest := c.RepoDir(repoName)

	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("%s already exists", dest)
	}

	res, err := gitrun.Git(background(), c.ReposDir, "clone", url, dest)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("cloning %s: %s", url, res.Stderr)
	}

	fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Render("Cloned:"), valueStyle.Render(repoName))
	return nil
}

func deriveRepoName(url string) string {
	end := len(url)
	for end > 0 && url[end-1] == '/' {
		end--
	}
	start := end
	for start > 0 && url[start-1] != '/' {
		start--
	}
	name := url[start:end]
	const gitSuffix = ".git"
	if len(name) > len(gitSuffix) && name[len(name)-len(gitSuffix):] == gitSuffix {
		name = name[:len(name)-len(gitSuffix)]
	}
	return name
}

func repoList(g Globals, args []string) error {
	fs := flag.NewFlagSet("repo list", flag.ExitOnError)
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
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}
