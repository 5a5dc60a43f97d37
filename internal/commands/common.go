// Package commands wires arb's CLI surface to the core packages: thin
// per-command argument parsing and output formatting, with all real
// behavior delegated to internal/arbcontext, internal/repostatus,
// internal/summary, internal/fetcher, internal/plan, internal/integrate,
// internal/pushpull, internal/rename, internal/prcheck, and internal/picker.
package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arborist-dev/arb/internal/arbcontext"
	"github.com/arborist-dev/arb/internal/arbroot"
	"github.com/arborist-dev/arb/internal/fetcher"
	"github.com/arborist-dev/arb/internal/picker"
	"github.com/arborist-dev/arb/internal/remotes"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Globals are the flags recognised before the subcommand name: `-C <dir>`,
// `--debug` (spec §6).
type Globals struct {
	Dir   string
	Debug bool
}

// ParseGlobals splits leading global flags off of args, returning the
// remaining subcommand + its own arguments.
func ParseGlobals(args []string) (Globals, []string) {
	var g Globals
	i := 0
	for i < len(args) {
		switch args[i] {
		case "-C":
			if i+1 < len(args) {
				g.Dir = args[i+1]
				i += 2
				continue
			}
			i++
		case "--debug":
			g.Debug = true
			i++
		default:
			return g, args[i:]
		}
	}
	return g, args[i:]
}

// Mutation bundles the mutation flags shared across pull/push/rebase/merge/
// delete/detach/branch-rename (spec §6).
type Mutation struct {
	Yes       bool
	Force     bool
	DryRun    bool
	noFetch   bool
	Autostash bool
	Where     string
	Dirty     bool
}

// AddMutationFlags registers the shared mutation flags on fs.
func AddMutationFlags(fs *flag.FlagSet) *Mutation {
	m := &Mutation{}
	fs.BoolVar(&m.Yes, "yes", false, "skip the confirmation prompt")
	fs.BoolVar(&m.Yes, "y", false, "skip the confirmation prompt (shorthand)")
	fs.BoolVar(&m.Force, "force", false, "force the operation, implies --yes")
	fs.BoolVar(&m.Force, "f", false, "force the operation, implies --yes (shorthand)")
	fs.BoolVar(&m.DryRun, "dry-run", false, "show the plan without executing it")
	fs.BoolVar(&m.DryRun, "n", false, "show the plan without executing it (shorthand)")
	fs.BoolVar(&m.noFetch, "no-fetch", false, "skip the fetch phase")
	fs.BoolVar(&m.noFetch, "N", false, "skip the fetch phase (shorthand)")
	fs.BoolFunc("fetch", "run the fetch phase (the default)", func(string) error { m.noFetch = false; return nil })
	fs.BoolVar(&m.Autostash, "autostash", false, "stash and restore local changes around the operation")
	fs.StringVar(&m.Where, "where", "", "only operate on repos matching this filter")
	fs.StringVar(&m.Where, "w", "", "only operate on repos matching this filter (shorthand)")
	fs.BoolVar(&m.Dirty, "dirty", false, "shorthand for --where dirty")
	fs.BoolVar(&m.Dirty, "d", false, "shorthand for --where dirty (shorthand)")
	return m
}

// Resolve reconciles --force implying --yes, and --dirty folding into the
// --where filter.
func (m *Mutation) Resolve() {
	if m.Force {
		m.Yes = true
	}
	if m.Dirty && m.Where == "" {
		m.Where = "dirty"
	}
}

// ShouldFetch reports whether a fetch phase should run.
func (m Mutation) ShouldFetch() bool {
	return !m.noFetch
}

// NewContext builds the invocation-scoped arbcontext from global flags and
// ARB_DEBUG.
func NewContext(g Globals) (*arbcontext.Context, error) {
	debug := g.Debug || os.Getenv("ARB_DEBUG") == "1"
	return arbcontext.New(g.Dir, debug)
}

// FetchOptions resolves the parallel-fetch deadline per the precedence in
// spec §6: ARB_FETCH_TIMEOUT env var > .arb/config.yaml > built-in default.
func FetchOptions(root string) fetcher.Options {
	rc, _ := arbroot.LoadRootConfig(root)
	return fetcher.Options{Timeout: rc.EffectiveFetchTimeout(os.Getenv("ARB_FETCH_TIMEOUT"))}
}

// RemoteOverrides converts a root config's remote_roles section into the
// override shape internal/remotes expects, or nil when no override exists
// for this repo.
func RemoteOverrides(rc arbroot.RootConfig, repoName string) *remotes.Roles {
	if rc.RemoteRoles == nil {
		return nil
	}
	o, ok := rc.RemoteRoles[repoName]
	if !ok {
		return nil
	}
	return &remotes.Roles{Base: o.Base, Share: o.Share}
}

// ListRepoNames lists the canonical repo clones under <root>/.arb/repos,
// sorted lexicographically.
func ListRepoNames(reposDir string) ([]string, error) {
	entries, err := os.ReadDir(reposDir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", reposDir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListWorkspaceNames lists the workspace directories directly under root,
// identified by the presence of a .arbws marker.
func ListWorkspaceNames(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == ".arb" {
			continue
		}
		if info, err := os.Stat(filepath.Join(root, e.Name(), ".arbws")); err == nil && info.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RequireWorkspace resolves the current workspace name, erroring with a
// helpful message when the invocation isn't scoped to one.
func RequireWorkspace(c *arbcontext.Context) (string, error) {
	if c.Workspace == "" {
		return "", fmt.Errorf("not inside a workspace (run from <root>/<workspace>/... or pass a workspace name)")
	}
	return c.Workspace, nil
}

// envInt parses an environment variable as an int, returning ok=false on a
// missing or malformed value.
func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// background is a convenience alias used across command files.
func background() context.Context { return context.Background() }

// confirmDestructive prompts on stderr/stdin for a yes/no answer before a
// mutation that AddMutationFlags' --yes didn't already waive.
func confirmDestructive(prompt string) (bool, error) {
	return confirmDestructiveFrom(prompt, os.Stdin)
}

func confirmDestructiveFrom(prompt string, in io.Reader) (bool, error) {
	fmt.Fprintf(os.Stderr, "%s %s ", prompt, hintStyle.Render("[y/N]"))
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, err
		}
		return false, nil
	}
	switch scanner.Text() {
	case "y", "Y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// resolveRepoName matches arg against the canonical repo list: an exact
// match wins outright, otherwise a case-insensitive substring match resolves
// if it's unique, and two or more candidates fall back to an interactive
// picker (spec §1's "interactive picker widget" surface) rather than
// guessing. An empty arg with exactly one repo resolves to it; with more
// than one it's also disambiguated through the picker.
func resolveRepoName(reposDir, arg string) (string, error) {
	names, err := ListRepoNames(reposDir)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no repos cloned under %s", reposDir)
	}

	if arg != "" {
		for _, n := range names {
			if n == arg {
				return n, nil
			}
		}
	}

	var candidates []string
	if arg == "" {
		candidates = names
	} else {
		lower := strings.ToLower(arg)
		for _, n := range names {
			if strings.Contains(strings.ToLower(n), lower) {
				candidates = append(candidates, n)
			}
		}
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("no repo matches %q", arg)
	case 1:
		return candidates[0], nil
	}

	items := make([]picker.Item, len(candidates))
	for i, n := range candidates {
		items[i] = picker.Item{Label: n}
	}
	i, err := picker.Run("Which repo?", items)
	if err != nil {
		return "", err
	}
	return candidates[i], nil
}
