package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/arborist-dev/arb/internal/arbcontext"
	"github.com/arborist-dev/arb/internal/arbroot"
	"github.com/arborist-dev/arb/internal/fetcher"
	"github.com/arborist-dev/arb/internal/gitrun"
	"github.com/arborist-dev/arb/internal/integrate"
	"github.com/arborist-dev/arb/internal/plan"
	"github.com/arborist-dev/arb/internal/prcheck"
	"github.com/arborist-dev/arb/internal/pushpull"
	"github.com/arborist-dev/arb/internal/remotes"
	"github.com/arborist-dev/arb/internal/reqcache"
	"github.com/arborist-dev/arb/internal/repostatus"
)

// repoView bundles one repo's resolved remotes, worktree path, and gathered
// status, reused by pull/push/rebase/merge's Assess callbacks below.
type repoView struct {
	name        string
	worktreeDir string
	canonDir    string
	roles       remotes.Roles
	hasRemote   bool
	status      repostatus.RepoStatus
	flags       repostatus.Flags
}

func gatherViews(ctx context.Context, c *arbcontext.Context, cfg arbroot.WorkspaceConfig, filter repostatus.Filter, hasFilter bool, gh *prcheck.Client, cache *reqcache.Cache) ([]repoView, error) {
	names, err := ListRepoNames(c.ReposDir)
	if err != nil {
		return nil, err
	}
	rootCfg, _ := arbroot.LoadRootConfig(c.Root)

	views := make([]repoView, 0, len(names))
	for _, name := range names {
		canonDir := c.RepoDir(name)
		worktreeDir := c.WorktreeDir(c.Workspace, name)

		roles, rerr := remotes.Resolve(ctx, canonDir, RemoteOverrides(rootCfg, name), cache)
		view := repoView{name: name, worktreeDir: worktreeDir, canonDir: canonDir, roles: roles, hasRemote: rerr == nil}

		in := repostatus.Input{Name: name, WorktreeDir: worktreeDir, ConfigBase: cfg.Base, Cache: cache}
		if rerr == nil {
			in.Remotes = repostatus.Remotes{Base: roles.Base, Share: roles.Share, HasRemote: true}
		}
		view.status = repostatus.Gather(ctx, in)
		view.flags = repostatus.DeriveFlags(view.status, cfg.Branch)

		if gh != nil && view.status.Base != nil && rerr == nil {
			view.status.Base.DetectedPR = detectPR(ctx, gh, cache, canonDir, view)
		}

		if hasFilter && !filter.Match(view.flags) {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// detectPR looks up an open pull request for view's branch against its base
// remote, memoised per repo for the lifetime of the enclosing command
// invocation so the pre-fetch and post-fetch assess passes of pull/push/
// rebase/merge share one GitHub call instead of paying for it twice.
func detectPR(ctx context.Context, gh *prcheck.Client, cache *reqcache.Cache, canonDir string, view repoView) string {
	owner, repo, ok := remoteOwnerRepo(ctx, canonDir, view.roles.Base, cache)
	if !ok {
		return ""
	}
	lookup := reqcache.Get(cache, "pr:"+view.name, func(ctx context.Context) (*prcheck.PR, error) {
		return gh.FindOpenPR(ctx, owner, repo, view.status.Identity.Branch, refBranchPart(view.status.Base.Ref))
	})
	pr, err := lookup(ctx)
	if err != nil {
		return ""
	}
	return prcheck.DetectedPRLabel(pr)
}

// remoteOwnerRepo resolves canonDir's remote URL, memoised in cache (spec
// §4.6: remote URLs are stable across a fetch and never invalidated).
func remoteOwnerRepo(ctx context.Context, canonDir, remote string, cache *reqcache.Cache) (owner, repo string, ok bool) {
	url, uerr := remoteURL(ctx, canonDir, remote, cache)
	if uerr != nil {
		return "", "", false
	}
	return prcheck.OwnerRepo(url)
}

func remoteURL(ctx context.Context, canonDir, remote string, cache *reqcache.Cache) (string, error) {
	fetch := func(ctx context.Context) (string, error) {
		res, err := gitrun.Git(ctx, canonDir, "remote", "get-url", remote)
		if err != nil {
			return "", err
		}
		if !res.Ok() {
			return "", fmt.Errorf("remote get-url %s: %s", remote, res.Stderr)
		}
		return strings.TrimSpace(res.Stdout), nil
	}
	if cache == nil {
		return fetch(ctx)
	}
	return reqcache.Get(cache, reqcache.RemoteURLKey(canonDir, remote), fetch)(ctx)
}

// newGitHubClient builds the optional PR-detection client from root config,
// returning nil when no credentials are configured (spec §4 DOMAIN STACK:
// detection is opt-in, never an anonymous call arb wasn't asked to make).
func newGitHubClient(root string) *prcheck.Client {
	rootCfg, _ := arbroot.LoadRootConfig(root)
	if !rootCfg.GitHub.Enabled() {
		return nil
	}
	var opts []prcheck.Option
	if rootCfg.GitHub.Token != "" {
		opts = append(opts, prcheck.WithToken(rootCfg.GitHub.Token))
	} else {
		opts = append(opts, prcheck.WithAppAuth(prcheck.AppCredentials{
			AppID:          rootCfg.GitHub.AppID,
			InstallationID: rootCfg.GitHub.InstallationID,
			PrivateKeyPath: rootCfg.GitHub.PrivateKeyPath,
		}))
	}
	client, err := prcheck.New(opts...)
	if err != nil {
		return nil
	}
	return client
}

// loadSyncContext resolves the workspace-scoped handles every sync command
// needs, so each command file doesn't repeat the NewContext/RequireWorkspace
// boilerplate.
func loadSyncContext(g Globals) (*arbcontext.Context, arbroot.WorkspaceConfig, error) {
	c, err := NewContext(g)
	if err != nil {
		return nil, arbroot.WorkspaceConfig{}, err
	}
	name, err := RequireWorkspace(c)
	if err != nil {
		return nil, arbroot.WorkspaceConfig{}, err
	}
	cfg, err := arbroot.ReadWorkspaceConfig(c.WorkspaceDir(name))
	if err != nil {
		return nil, arbroot.WorkspaceConfig{}, err
	}
	return c, cfg, nil
}

// Pull handles `arb pull`.
func Pull(g Globals, args []string) error {
	fs := flag.NewFlagSet("pull", flag.ExitOnError)
	m := AddMutationFlags(fs)
	rebaseFlag := fs.Bool("rebase", false, "force rebase pull mode")
	mergeFlag := fs.Bool("merge", false, "force merge pull mode")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m.Resolve()

	c, cfg, err := loadSyncContext(g)
	if err != nil {
		return err
	}

	var filter repostatus.Filter
	if m.Where != "" {
		filter, err = repostatus.ParseFilter(m.Where)
		if err != nil {
			return err
		}
	}

	ctx := background()
	gh := newGitHubClient(c.Root)
	cache := reqcache.New()
	var lastViews []repoView
	assess := func(fetchFailed map[string]bool) []plan.Row {
		if fetchFailed != nil {
			invalidateAfterFetch(cache, lastViews)
		}
		views, err := gatherViews(ctx, c, cfg, filter, m.Where != "", gh, cache)
		if err != nil {
			return nil
		}
		lastViews = views
		rows := make([]plan.Row, 0, len(views))
		for _, v := range views {
			if !v.hasRemote {
				continue
			}
			mode := pushpull.ResolvePullMode(ctx, v.worktreeDir, cfg.Branch, *rebaseFlag, *mergeFlag)
			sel := pushpull.Selection{
				Name: v.name, WorktreeDir: v.worktreeDir, Status: v.status, Flags: v.flags,
				FetchFailed: fetchFailed[v.name], ShareRemote: v.roles.Share, Branch: cfg.Branch,
			}
			row := pushpull.ClassifyPull(sel)
			row.Extra = mergeExtra(row.Extra, "mode", mode)
			row.Extra = mergeExtra(row.Extra, "share", v.roles.Share)
			rows = append(rows, row)
		}
		return rows
	}

	run := plan.Run(ctx, plan.Params{
		Assess:       assess,
		PostAssess:   func(rows []plan.Row) {},
		FormatPlan:   formatPlanRows,
		ShouldFetch:  m.ShouldFetch(),
		FetchTargets: fetchTargetsFor(c, cache),
		FetchTimeout: FetchOptions(c.Root).Timeout,
		Execute: func(ctx context.Context, row plan.Row) plan.Result {
			mode, _ := row.Extra["mode"].(pushpull.PullMode)
			return pushpull.ExecutePull(ctx, row.RepoDir, shareRemoteOf(row), cfg.Branch, mode)
		},
		Yes: m.Yes, Force: m.Force, DryRun: m.DryRun, Verb: "pull",
	})
	return exitErr(run)
}

// Push handles `arb push`.
func Push(g Globals, args []string) error {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	m := AddMutationFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	m.Resolve()

	c, cfg, err := loadSyncContext(g)
	if err != nil {
		return err
	}

	var filter repostatus.Filter
	if m.Where != "" {
		filter, err = repostatus.ParseFilter(m.Where)
		if err != nil {
			return err
		}
	}

	ctx := background()
	gh := newGitHubClient(c.Root)
	cache := reqcache.New()
	var lastViews []repoView
	assess := func(fetchFailed map[string]bool) []plan.Row {
		if fetchFailed != nil {
			invalidateAfterFetch(cache, lastViews)
		}
		views, err := gatherViews(ctx, c, cfg, filter, m.Where != "", gh, cache)
		if err != nil {
			return nil
		}
		lastViews = views
		rows := make([]plan.Row, 0, len(views))
		for _, v := range views {
			if !v.hasRemote {
				continue
			}
			sel := pushpull.Selection{
				Name: v.name, WorktreeDir: v.worktreeDir, Status: v.status, Flags: v.flags,
				FetchFailed: fetchFailed[v.name], ShareRemote: v.roles.Share, Branch: cfg.Branch,
			}
			row := pushpull.ClassifyPush(sel, m.Force)
			row.Extra = mergeExtra(row.Extra, "share", v.roles.Share)
			rows = append(rows, row)
		}
		return rows
	}

	run := plan.Run(ctx, plan.Params{
		Assess:       assess,
		PostAssess:   func(rows []plan.Row) {},
		FormatPlan:   formatPlanRows,
		ShouldFetch:  m.ShouldFetch(),
		FetchTargets: fetchTargetsFor(c, cache),
		FetchTimeout: FetchOptions(c.Root).Timeout,
		Execute: func(ctx context.Context, row plan.Row) plan.Result {
			force := m.Force || row.Verb == "force-push"
			return pushpull.ExecutePush(ctx, row.RepoDir, shareRemoteOf(row), cfg.Branch, force)
		},
		Yes: m.Yes, Force: m.Force, DryRun: m.DryRun, Verb: "push",
	})
	return exitErr(run)
}

// Rebase handles `arb rebase`.
func Rebase(g Globals, args []string) error {
	return runIntegrate(g, args, integrate.ModeRebase, "rebase")
}

// Merge handles `arb merge`.
func Merge(g Globals, args []string) error {
	return runIntegrate(g, args, integrate.ModeMerge, "merge")
}

func runIntegrate(g Globals, args []string, mode integrate.Mode, verb string) error {
	fs := flag.NewFlagSet(verb, flag.ExitOnError)
	m := AddMutationFlags(fs)
	retargetFlag := fs.Bool("retarget", false, "retarget onto the repo's true default branch")
	retargetTo := fs.String("retarget-to", "", "retarget onto this branch instead of the repo's true default")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m.Resolve()

	c, cfg, err := loadSyncContext(g)
	if err != nil {
		return err
	}

	var filter repostatus.Filter
	if m.Where != "" {
		filter, err = repostatus.ParseFilter(m.Where)
		if err != nil {
			return err
		}
	}

	// --retarget (bare) and --retarget-to <branch> both enter retarget mode;
	// -f/--force is a separate, unrelated mutation flag and must never imply
	// it (spec §4.8).
	opts := integrate.Options{Autostash: m.Autostash, Retarget: *retargetFlag || *retargetTo != "", RetargetTo: *retargetTo}

	ctx := background()
	gh := newGitHubClient(c.Root)
	cache := reqcache.New()
	var lastViews []repoView
	assess := func(fetchFailed map[string]bool) []plan.Row {
		if fetchFailed != nil {
			invalidateAfterFetch(cache, lastViews)
		}
		views, err := gatherViews(ctx, c, cfg, filter, m.Where != "", gh, cache)
		if err != nil {
			return nil
		}
		lastViews = views
		rows := make([]plan.Row, 0, len(views))
		for _, v := range views {
			baseBranch := ""
			trueDefaultBranch := ""
			if v.status.Base != nil {
				baseBranch = refBranchPart(v.status.Base.Ref)
				trueDefaultBranch = refBranchPart(v.status.Base.TrueDefaultRef)
			}
			sel := integrate.Selection{
				Name: v.name, WorktreeDir: v.worktreeDir, Status: v.status, Flags: v.flags,
				FetchFailed: fetchFailed[v.name], BaseRemote: v.roles.Base, BaseBranch: baseBranch,
			}
			row := integrate.Classify(sel, mode, opts)
			row.Extra = mergeExtra(row.Extra, "baseRemote", v.roles.Base)
			row.Extra = mergeExtra(row.Extra, "baseBranch", baseBranch)
			row.Extra = mergeExtra(row.Extra, "trueDefaultBranch", trueDefaultBranch)
			rows = append(rows, row)
		}
		return rows
	}
	postAssess := func(rows []plan.Row) {
		for i := range rows {
			if rows[i].Outcome != plan.OutcomeWill {
				continue
			}
			baseRemote, _ := rows[i].Extra["baseRemote"].(string)
			targetBranch := effectiveBaseBranch(rows[i], opts)
			if baseRemote == "" || targetBranch == "" {
				continue
			}
			pred, commits := integrate.PredictConflict(ctx, rows[i].RepoDir, baseRemote+"/"+targetBranch)
			rows[i].ConflictPrediction = pred
			rows[i].ConflictCommits = commits
		}
	}

	var retargetedOK bool
	run := plan.Run(ctx, plan.Params{
		Assess:       assess,
		PostAssess:   postAssess,
		FormatPlan:   formatPlanRows,
		ShouldFetch:  m.ShouldFetch(),
		FetchTargets: fetchTargetsFor(c, cache),
		FetchTimeout: FetchOptions(c.Root).Timeout,
		Execute: func(ctx context.Context, row plan.Row) plan.Result {
			baseRemote, _ := row.Extra["baseRemote"].(string)
			baseBranch, _ := row.Extra["baseBranch"].(string)
			trueDefaultBranch, _ := row.Extra["trueDefaultBranch"].(string)
			result := integrate.Execute(ctx, row.RepoDir, mode, baseRemote, baseBranch, trueDefaultBranch, opts)
			if result.Succeeded && opts.Retarget {
				retargetedOK = true
			}
			return result
		},
		Yes: m.Yes, Force: m.Force, DryRun: m.DryRun, Verb: verb,
	})

	// A successful retarget updates .arbws/config's base: set it to the
	// explicit --retarget-to branch, or clear it entirely when the retarget
	// landed on the repo's true default (spec §4.8, §8 scenario 3).
	if retargetedOK {
		// opts.RetargetTo is already "" for the true-default case, which
		// WriteWorkspaceConfig serialises as "no base key" (branch must be
		// re-derived from the base remote's default on the next read).
		cfg.Base = opts.RetargetTo
		if err := arbroot.WriteWorkspaceConfig(c.WorkspaceDir(c.Workspace), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: retarget succeeded but updating .arbws/config failed: %v\n", err)
		}
	}

	return exitErr(run)
}

// effectiveBaseBranch resolves the branch a row's "will" operation actually
// targets: the configured base normally, or the retarget destination
// (explicit --retarget-to, else the repo's true default) in retarget mode.
func effectiveBaseBranch(row plan.Row, opts integrate.Options) string {
	if !opts.Retarget {
		baseBranch, _ := row.Extra["baseBranch"].(string)
		return baseBranch
	}
	if opts.RetargetTo != "" {
		return opts.RetargetTo
	}
	trueDefaultBranch, _ := row.Extra["trueDefaultBranch"].(string)
	return trueDefaultBranch
}

// invalidateAfterFetch drops the cached default-branch lookup for every repo
// touched by the previous assess pass, so the post-fetch re-assess doesn't
// trust a symref that the fetch may have just moved (spec §4.6).
func invalidateAfterFetch(cache *reqcache.Cache, views []repoView) {
	if cache == nil || len(views) == 0 {
		return
	}
	repoDirs := make([]string, 0, len(views))
	remotesByRepo := make(map[string][]string, len(views))
	for _, v := range views {
		repoDirs = append(repoDirs, v.worktreeDir)
		remotesByRepo[v.worktreeDir] = []string{v.roles.Base, v.roles.Share}
	}
	cache.InvalidateAfterFetch(repoDirs, remotesByRepo)
}

func fetchTargetsFor(c *arbcontext.Context, cache *reqcache.Cache) []fetcher.Target {
	names, err := ListRepoNames(c.ReposDir)
	if err != nil {
		return nil
	}
	rootCfg, _ := arbroot.LoadRootConfig(c.Root)
	var targets []fetcher.Target
	for _, name := range names {
		canonDir := c.RepoDir(name)
		roles, err := remotes.Resolve(background(), canonDir, RemoteOverrides(rootCfg, name), cache)
		if err != nil {
			continue
		}
		targets = append(targets, fetcher.Target{Name: name, RepoDir: canonDir, Remote: roles.Base, BaseRemote: roles.Base})
		if roles.Share != roles.Base {
			targets = append(targets, fetcher.Target{Name: name, RepoDir: canonDir, Remote: roles.Share, BaseRemote: roles.Base})
		}
	}
	return targets
}

func refBranchPart(ref string) string {
	idx := strings.Index(ref, "/")
	if idx < 0 {
		return ref
	}
	return ref[idx+1:]
}

func mergeExtra(extra map[string]any, key string, val any) map[string]any {
	if extra == nil {
		extra = map[string]any{}
	}
	extra[key] = val
	return extra
}

func shareRemoteOf(row plan.Row) string {
	s, _ := row.Extra["share"].(string)
	return s
}

func exitErr(s plan.Summary) error {
	if s.ExitCode() != 0 {
		return exitCodeError{code: s.ExitCode()}
	}
	return nil
}

// exitCodeError carries a process exit code through the ordinary error
// return path so main can translate it without every command file knowing
// about os.Exit.
type exitCodeError struct{ code int }

func (e exitCodeError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

// ExitCode extracts the code from an error returned by a command, if it
// carries one via exitCodeError, defaulting to 1 for any other error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec exitCodeError
	if asExitCodeError(err, &ec) {
		return ec.code
	}
	return 1
}

func asExitCodeError(err error, target *exitCodeError) bool {
	if ec, ok := err.(exitCodeError); ok {
		*target = ec
		return true
	}
	return false
}

// IsExitCodeError reports whether err carries a pre-decided process exit
// code (from a plan.Summary.ExitCode()), meaning the command already
// reported its own failure/abort message and main shouldn't print another.
func IsExitCodeError(err error) bool {
	_, ok := err.(exitCodeError)
	return ok
}
