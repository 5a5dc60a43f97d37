package repostatus

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arborist-dev/arb/internal/reqcache"
)

// Remotes carries the resolved base/share remote names for the repo being
// gathered, or a zero value when the repo has no remote at all.
type Remotes struct {
	Base  string
	Share string
	// HasRemote is false for a repo with no remotes configured, which
	// arb treats as "local-only" (isLocal flag) rather than an error.
	HasRemote bool
}

// Input bundles everything Gather needs for one (worktree, canonical repo)
// pair, per spec §4.3.
type Input struct {
	Name        string
	WorktreeDir string
	ConfigBase  string // optional stacked-base override from .arbws/config
	Remotes     Remotes
	// Cache memoises default-branch lookups across the pre-fetch and
	// post-fetch assess passes of the same command invocation (spec §4.6).
	// Nil is valid and simply disables memoisation.
	Cache *reqcache.Cache
}

// Gather computes a fully populated RepoStatus, performed with maximum
// practical parallelism. Every step tolerates failure internally — a
// single broken repo never prevents the rest of a workspace from rendering
// (spec §7's local recovery policy), so Gather itself never returns an
// error.
func Gather(ctx context.Context, in Input) RepoStatus {
	status := RepoStatus{Name: in.Name}

	// Identity and the in-progress-operation probe are cheap and needed by
	// the steps below (share needs the current branch; base needs to know
	// whether we're detached), so they run first, synchronously.
	status.Identity = gatherIdentity(ctx, in.WorktreeDir)
	status.Operation = gatherOperation(ctx, in.WorktreeDir)

	var local Local
	var share *Share
	var lastCommit *time.Time

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		local = gatherLocal(gctx, in.WorktreeDir)
		return nil
	})
	g.Go(func() error {
		share = gatherShare(gctx, in.WorktreeDir, in.Remotes.Share, status.Identity.Branch,
			in.Remotes.HasRemote && !status.Identity.Detached)
		return nil
	})
	g.Go(func() error {
		lastCommit = gatherLastCommit(gctx, in.WorktreeDir)
		return nil
	})
	_ = g.Wait() // the three gatherers above never return errors themselves

	status.Local = local
	status.Share = share
	status.LastCommit = lastCommit

	// Base depends on share having already been gathered: the expensive
	// squash-detection phase is gated on share being gone or up-to-date.
	if in.Remotes.HasRemote && in.Remotes.Base != "" {
		shareGate := shareIsGoneOrUpToDate(share)
		status.Base = gatherBase(ctx, in.WorktreeDir, in.Remotes.Base, in.ConfigBase, status.Identity.Detached, shareGate, in.Cache)
	}

	return status
}

func shareIsGoneOrUpToDate(share *Share) bool {
	if share == nil {
		return false
	}
	if share.RefMode == RefGone {
		return true
	}
	if share.ToPush != nil && share.ToPull != nil && *share.ToPush == 0 && *share.ToPull == 0 {
		return true
	}
	return false
}
