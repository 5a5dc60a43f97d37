// Package pushpull specializes the plan pipeline for share-remote sync:
// push and pull, including force-with-lease and pull-mode detection
// (spec §4.9).
package pushpull

import (
	"context"

	"github.com/arborist-dev/arb/internal/gitrun"
	"github.com/arborist-dev/arb/internal/plan"
	"github.com/arborist-dev/arb/internal/repostatus"
)

// PullMode selects how a pull integrates remote commits.
type PullMode string

const (
	PullRebase PullMode = "rebase"
	PullMerge  PullMode = "merge"
)

// Selection bundles one repo's status plus command-line flags relevant to
// its classification.
type Selection struct {
	Name        string
	WorktreeDir string
	Status      repostatus.RepoStatus
	Flags       repostatus.Flags
	FetchFailed bool

	ShareRemote string
	Branch      string
}

// ClassifyPush implements the §4.9 push classification table.
func ClassifyPush(s Selection, force bool) plan.Row {
	row := plan.Row{Repo: s.Name, RepoDir: s.WorktreeDir}

	if s.FetchFailed {
		return skip(row, "fetch failed")
	}
	if s.Status.Share == nil {
		return skip(row, "local-only repo")
	}
	if s.Flags.IsDetached || s.Flags.IsDrifted {
		return skip(row, "detached or on an unexpected branch")
	}

	share := s.Status.Share
	toPush := orZero(share.ToPush)
	toPull := orZero(share.ToPull)

	switch {
	case share.RefMode == repostatus.RefGone:
		row.Outcome = plan.OutcomeWill
		row.Verb = "push"
		row.Extra = map[string]any{"recreate": true}
		return row
	case share.RefMode == repostatus.RefNone && s.baseAhead() == 0:
		return skip(row, "no commits to push")
	case share.RefMode == repostatus.RefNone:
		row.Outcome = plan.OutcomeWill
		row.Verb = "push"
		row.Extra = map[string]any{"newBranch": true}
		return row
	case toPush == 0 && toPull == 0:
		row.Outcome = plan.OutcomeUpToDate
		return row
	case toPush == 0 && toPull > 0:
		return skip(row, "behind the share remote (pull first)")
	case toPush > 0 && toPull > 0 && !force:
		return skip(row, "diverged from share remote (use --force)")
	case toPush > 0 && toPull > 0 && force:
		row.Outcome = plan.OutcomeWill
		row.Verb = "force-push"
		return row
	default:
		row.Outcome = plan.OutcomeWill
		row.Verb = "push"
		return row
	}
}

func (s Selection) baseAhead() int {
	if s.Status.Base == nil {
		return 0
	}
	return s.Status.Base.Ahead
}

// ClassifyPull implements the §4.9 pull classification, mirroring push but
// skipping on noRef/gone/already-merged states.
func ClassifyPull(s Selection) plan.Row {
	row := plan.Row{Repo: s.Name, RepoDir: s.WorktreeDir}

	if s.FetchFailed {
		return skip(row, "fetch failed")
	}
	if s.Status.Share == nil {
		return skip(row, "local-only repo")
	}
	if s.Flags.IsDetached || s.Flags.IsDrifted {
		return skip(row, "detached or on an unexpected branch")
	}

	share := s.Status.Share
	switch share.RefMode {
	case repostatus.RefNone:
		return skip(row, "no share ref configured")
	case repostatus.RefGone:
		return skip(row, "share ref was deleted")
	}

	if s.Status.Base != nil && s.Status.Base.BaseMergedIntoDefault != repostatus.MergeNone {
		return skip(row, "base has been merged into default (retarget first)")
	}
	if s.Status.Base != nil && s.Status.Base.MergedIntoBase != repostatus.MergeNone {
		return skip(row, "already merged into base")
	}

	toPull := orZero(share.ToPull)
	if toPull == 0 {
		row.Outcome = plan.OutcomeUpToDate
		return row
	}

	rebased := orZero(share.Rebased)
	if rebased >= toPull {
		return skip(row, "already rebased locally (use push --force instead)")
	}

	row.Outcome = plan.OutcomeWill
	row.Verb = "pull"
	return row
}

func skip(row plan.Row, reason string) plan.Row {
	row.Outcome = plan.OutcomeSkip
	row.SkipReason = reason
	return row
}

func orZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// ResolvePullMode derives the pull mode per the precedence in §4.9:
// --rebase/--merge flags, then branch.<name>.rebase, then pull.rebase,
// else merge.
func ResolvePullMode(ctx context.Context, worktreeDir, branch string, rebaseFlag, mergeFlag bool) PullMode {
	if rebaseFlag {
		return PullRebase
	}
	if mergeFlag {
		return PullMerge
	}
	if configBool(ctx, worktreeDir, "branch."+branch+".rebase") {
		return PullRebase
	}
	if configBool(ctx, worktreeDir, "pull.rebase") {
		return PullRebase
	}
	return PullMerge
}

func configBool(ctx context.Context, dir, key string) bool {
	res, err := gitrun.Git(ctx, dir, "config", "--get", key)
	return err == nil && res.Ok() && (res.Stdout == "true" || res.Stdout == "1")
}

// ExecutePush runs `git push -u [--force-with-lease] <shareRemote> <branch>`.
func ExecutePush(ctx context.Context, worktreeDir, shareRemote, branch string, force bool) plan.Result {
	args := []string{"push", "-u"}
	if force {
		args = append(args, "--force-with-lease")
	}
	args = append(args, shareRemote, branch)

	res, err := gitrun.Git(ctx, worktreeDir, args...)
	if err != nil {
		return plan.Result{Message: err.Error()}
	}
	if !res.Ok() {
		return plan.Result{Message: res.Stderr}
	}
	return plan.Result{Succeeded: true, Message: "pushed"}
}

// ExecutePull runs the pull as either a fetch+rebase or a plain merge pull.
func ExecutePull(ctx context.Context, worktreeDir, shareRemote, branch string, mode PullMode) plan.Result {
	switch mode {
	case PullRebase:
		res, err := gitrun.Git(ctx, worktreeDir, "pull", "--rebase", shareRemote, branch)
		if err != nil {
			return plan.Result{Message: err.Error()}
		}
		if !res.Ok() {
			return plan.Result{Conflict: true, Message: res.Stderr}
		}
		return plan.Result{Succeeded: true, Message: "pulled (rebase)"}
	default:
		res, err := gitrun.Git(ctx, worktreeDir, "pull", "--no-rebase", shareRemote, branch)
		if err != nil {
			return plan.Result{Message: err.Error()}
		}
		if !res.Ok() {
			return plan.Result{Conflict: true, Message: res.Stderr}
		}
		return plan.Result{Succeeded: true, Message: "pulled (merge)"}
	}
}
