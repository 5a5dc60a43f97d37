// Package summary aggregates per-repo RepoStatus into a WorkspaceSummary
// (spec §4.4): one parallel gather across every worktree in a workspace,
// rolled up into issue counts and a workspace-wide last-commit timestamp.
package summary

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/arborist-dev/arb/internal/gitrun"
	"github.com/arborist-dev/arb/internal/prcheck"
	"github.com/arborist-dev/arb/internal/remotes"
	"github.com/arborist-dev/arb/internal/reqcache"
	"github.com/arborist-dev/arb/internal/repostatus"
)

// RepoSummary pairs one repo's status with its derived flags.
type RepoSummary struct {
	Status repostatus.RepoStatus
	Flags  repostatus.Flags
}

// WorkspaceSummary is the aggregated view across every repo in a workspace.
type WorkspaceSummary struct {
	Workspace        string
	Branch           string
	Base             string
	Repos            []RepoSummary
	Total            int
	WithIssues       int
	RebasedOnlyCount int
	IssueCounts      map[string]int
	LastCommit       *time.Time
}

// LastCommitAge renders the workspace's most recent commit as a relative
// duration ("3 hours ago"), or "" when no repo has a commit.
func (s WorkspaceSummary) LastCommitAge() string {
	if s.LastCommit == nil {
		return ""
	}
	return humanize.Time(*s.LastCommit)
}

// ProgressFunc is ticked once per repo as its status finishes gathering,
// letting callers render a "N/total" progress indicator.
type ProgressFunc func(done, total int)

// Gather computes a WorkspaceSummary for every worktree directory directly
// under workspaceDir (spec §4.4), excluding the .arbws marker directory.
// Remote resolution and status gathering both run with full parallelism
// across repos; there is no per-repo ordering guarantee. gh is optional
// (nil disables open-PR detection entirely).
func Gather(ctx context.Context, workspaceDir, reposDir, workspaceName, branch, base string, gh *prcheck.Client, cache *reqcache.Cache, progress ProgressFunc) (WorkspaceSummary, error) {
	names, err := repoNames(workspaceDir)
	if err != nil {
		return WorkspaceSummary{}, err
	}

	results := make([]RepoSummary, len(names))
	var done int32
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = gatherOne(gctx, workspaceDir, reposDir, name, branch, base, gh, cache)
			if progress != nil {
				progress(int(atomic.AddInt32(&done, 1)), len(names))
			}
			return nil
		})
	}
	_ = g.Wait() // gatherOne never returns an error; every repo degrades gracefully

	return aggregate(workspaceName, branch, base, results), nil
}

func gatherOne(ctx context.Context, workspaceDir, reposDir, name, branch, base string, gh *prcheck.Client, cache *reqcache.Cache) RepoSummary {
	worktreeDir := filepath.Join(workspaceDir, name)
	canonicalDir := filepath.Join(reposDir, name)

	roles, err := remotes.Resolve(ctx, canonicalDir, nil, cache)
	in := repostatus.Input{
		Name:        name,
		WorktreeDir: worktreeDir,
		ConfigBase:  base,
		Cache:       cache,
	}
	if err == nil {
		in.Remotes = repostatus.Remotes{Base: roles.Base, Share: roles.Share, HasRemote: true}
	}

	status := repostatus.Gather(ctx, in)
	if gh != nil && status.Base != nil && err == nil {
		if owner, repo, ok := ownerRepoOf(ctx, canonicalDir, roles.Base); ok {
			if pr, perr := gh.FindOpenPR(ctx, owner, repo, status.Identity.Branch, refBranch(status.Base.Ref)); perr == nil {
				status.Base.DetectedPR = prcheck.DetectedPRLabel(pr)
			}
		}
	}
	flags := repostatus.DeriveFlags(status, branch)
	return RepoSummary{Status: status, Flags: flags}
}

func ownerRepoOf(ctx context.Context, canonicalDir, remote string) (owner, repo string, ok bool) {
	res, err := gitrun.Git(ctx, canonicalDir, "remote", "get-url", remote)
	if err != nil || !res.Ok() {
		return "", "", false
	}
	return prcheck.OwnerRepo(res.Stdout)
}

func refBranch(ref string) string {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '/' {
			return ref[i+1:]
		}
	}
	return ref
}

func aggregate(workspace, branch, base string, repos []RepoSummary) WorkspaceSummary {
	summary := WorkspaceSummary{
		Workspace:   workspace,
		Branch:      branch,
		Base:        base,
		Repos:       repos,
		Total:       len(repos),
		IssueCounts: make(map[string]int),
	}

	for _, r := range repos {
		if needsAttention(r.Flags) {
			summary.WithIssues++
		}
		tallyIssues(summary.IssueCounts, r.Flags)

		if r.Status.Share != nil && r.Status.Share.Rebased != nil && *r.Status.Share.Rebased > 0 &&
			r.Status.Share.ToPull != nil && *r.Status.Share.Rebased >= *r.Status.Share.ToPull {
			summary.RebasedOnlyCount++
		}

		if r.Status.LastCommit != nil && (summary.LastCommit == nil || r.Status.LastCommit.After(*summary.LastCommit)) {
			summary.LastCommit = r.Status.LastCommit
		}
	}

	return summary
}

func needsAttention(f repostatus.Flags) bool {
	return f.IsDirty || f.IsUnpushed || f.NeedsPull || f.NeedsRebase ||
		f.IsDiverged || f.IsDrifted || f.IsDetached || f.HasOperation || f.IsGone
}

func tallyIssues(counts map[string]int, f repostatus.Flags) {
	if f.IsDirty {
		counts["dirty"]++
	}
	if f.IsUnpushed {
		counts["unpushed"]++
	}
	if f.NeedsPull {
		counts["behind-share"]++
	}
	if f.NeedsRebase {
		counts["behind-base"]++
	}
	if f.IsDiverged {
		counts["diverged"]++
	}
	if f.IsDrifted {
		counts["drifted"]++
	}
	if f.IsDetached {
		counts["detached"]++
	}
	if f.HasOperation {
		counts["operation"]++
	}
	if f.IsGone {
		counts["gone"]++
	}
	if f.IsShallow {
		counts["shallow"]++
	}
}

// repoNames lists worktree directories directly under workspaceDir, sorted
// lexicographically, excluding the .arbws marker.
func repoNames(workspaceDir string) ([]string, error) {
	entries, err := os.ReadDir(workspaceDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == ".arbws" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

