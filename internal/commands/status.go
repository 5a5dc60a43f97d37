package commands

import (
	"flag"
	"fmt"
	"os"

	"github.com/arborist-dev/arb/internal/arbroot"
	"github.com/arborist-dev/arb/internal/reqcache"
	"github.com/arborist-dev/arb/internal/repostatus"
	"github.com/arborist-dev/arb/internal/summary"
)

// Status handles `arb status`: gathers and renders every repo's RepoStatus
// for the current workspace, optionally narrowed by --where.
func Status(g Globals, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	where := fs.String("where", "", "only show repos matching this filter")
	fs.StringVar(where, "w", "", "only show repos matching this filter (shorthand)")
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
	wsDir := c.WorkspaceDir(name)

	var filter repostatus.Filter
	if *where != "" {
		filter, err = repostatus.ParseFilter(*where)
		if err != nil {
			return fmt.Errorf("--where: %w", err)
		}
	}

	cfg, err := arbroot.ReadWorkspaceConfig(wsDir)
	if err != nil {
		return err
	}

	gh := newGitHubClient(c.Root)

	total := 0
	ws, err := summary.Gather(background(), wsDir, c.ReposDir, name, cfg.Branch, cfg.Base, gh, reqcache.New(), func(done, n int) {
		total = n
		fmt.Fprintf(os.Stderr, "\rgathering status %d/%d…", done, n)
	})
	if total > 0 {
		fmt.Fprint(os.Stderr, "\r")
	}
	if err != nil {
		return err
	}

	renderStatus(ws, filter, *where)
	return nil
}

func renderStatus(ws summary.WorkspaceSummary, filter repostatus.Filter, where string) {
	filtered := where != ""
	fmt.Fprintf(os.Stderr, "%s %s (branch %s", labelStyle.Render("Workspace:"), valueStyle.Render(ws.Workspace), ws.Branch)
	if ws.Base != "" {
		fmt.Fprintf(os.Stderr, ", base %s", ws.Base)
	}
	fmt.Fprintln(os.Stderr, ")")

	shown := 0
	for _, r := range ws.Repos {
		if filtered && !filter.Match(r.Flags) {
			continue
		}
		shown++
		fmt.Fprintf(os.Stderr, "  %-20s %s", r.Status.Name, describeFlags(r.Flags))
		if r.Status.Base != nil && r.Status.Base.DetectedPR != "" {
			fmt.Fprintf(os.Stderr, " %s", hintStyle.Render(r.Status.Base.DetectedPR))
		}
		fmt.Fprintln(os.Stderr)
	}

	if shown == 0 && filtered {
		fmt.Fprintln(os.Stderr, hintStyle.Render(fmt.Sprintf("No repos match --where %q", where)))
		return
	}

	fmt.Fprintf(os.Stderr, "%d repo(s), %d with issues", ws.Total, ws.WithIssues)
	if age := ws.LastCommitAge(); age != "" {
		fmt.Fprintf(os.Stderr, ", last commit %s", age)
	}
	fmt.Fprintln(os.Stderr)
}

func describeFlags(f repostatus.Flags) string {
	if f.IsDetached {
		return failStyle.Render("detached")
	}
	if f.HasOperation {
		return failStyle.Render("operation in progress")
	}
	var parts []string
	if f.IsDirty {
		parts = append(parts, "dirty")
	}
	if f.IsUnpushed {
		parts = append(parts, "unpushed")
	}
	if f.NeedsPull {
		parts = append(parts, "needs-pull")
	}
	if f.NeedsRebase {
		parts = append(parts, "needs-rebase")
	}
	if f.IsDiverged {
		parts = append(parts, "diverged")
	}
	if f.IsDrifted {
		parts = append(parts, "drifted")
	}
	if f.IsGone {
		parts = append(parts, "gone")
	}
	if f.IsShallow {
		parts = append(parts, "shallow")
	}
	if len(parts) == 0 {
		return passStyle.Render("clean")
	}
	s := parts[0]
	for _, p := range parts[1:] {
		s += ", " + p
	}
	return failStyle.Render(s)
}
