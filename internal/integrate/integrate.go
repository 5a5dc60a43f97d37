// Package integrate specializes the plan pipeline for base integration:
// rebase and merge, including --retarget and autostash planning (spec §4.8).
package integrate

import (
	"context"
	"fmt"

	"github.com/arborist-dev/arb/internal/gitrun"
	"github.com/arborist-dev/arb/internal/plan"
	"github.com/arborist-dev/arb/internal/repostatus"
)

// Mode selects which git operation a row's "will" outcome executes.
type Mode string

const (
	ModeRebase Mode = "rebase"
	ModeMerge  Mode = "merge"
)

// Selection is one repo's status plus the context classify needs.
type Selection struct {
	Name        string
	WorktreeDir string
	Status      repostatus.RepoStatus
	Flags       repostatus.Flags
	FetchFailed bool

	BaseRemote string
	BaseBranch string // resolved ref's branch part, e.g. "main"
}

// Options carries the shared mutation flags plus retarget selection.
type Options struct {
	Autostash  bool
	Retarget   bool
	RetargetTo string // explicit --retarget-to <branch>; empty means "true default"
}

// Classify implements the §4.8 classification table for one repo.
func Classify(s Selection, mode Mode, opts Options) plan.Row {
	row := plan.Row{Repo: s.Name, RepoDir: s.WorktreeDir}

	switch {
	case s.FetchFailed:
		return skip(row, "fetch failed", "")
	case s.Flags.HasOperation:
		return skip(row, "operation in progress", "")
	case s.Flags.IsDetached:
		return skip(row, "detached HEAD", "")
	case s.Flags.IsDrifted:
		return skip(row, "on an unexpected branch", "drifted")
	case s.Flags.IsDirty && !opts.Autostash:
		return skip(row, "dirty working tree (use --autostash)", "")
	case s.Status.Base == nil:
		return skip(row, "no base resolved", "")
	case s.Status.Base.BaseMergedIntoDefault != repostatus.MergeNone && !opts.Retarget:
		return skip(row, "base has been merged into default (use --retarget)", "")
	case s.Status.Base.Behind == 0:
		row.Outcome = plan.OutcomeUpToDate
		return row
	}

	row.Outcome = plan.OutcomeWill
	row.Verb = string(mode)
	row.HeadSHA = headSHA(s)
	if opts.Autostash && s.Flags.IsDirty {
		row.NeedsStash = true
	}
	if opts.Retarget {
		row.Extra = map[string]any{
			"retarget":     true,
			"retargetTo":   opts.RetargetTo,
			"retargetFrom": s.Status.Base.ConfiguredRef,
		}
	}
	return row
}

func skip(row plan.Row, reason, flag string) plan.Row {
	row.Outcome = plan.OutcomeSkip
	row.SkipReason = reason
	row.SkipFlag = flag
	return row
}

func headSHA(s Selection) string {
	if s.Status.Base != nil {
		return s.Status.Base.Ref
	}
	return ""
}

// PredictConflict runs `git merge-tree` to predict whether integrating ref
// into HEAD will conflict, without touching the working tree (spec §4.7
// "Conflict prediction").
func PredictConflict(ctx context.Context, worktreeDir, baseRef string) (prediction string, conflictCommits []string) {
	res, err := gitrun.Git(ctx, worktreeDir, "merge-tree", "--write-tree", baseRef, "HEAD")
	if err != nil {
		return "", nil
	}
	if res.Ok() {
		return "clean", nil
	}
	// Non-zero exit from `merge-tree --write-tree` signals a conflicted
	// result. conflictCommits is every commit in baseRef..HEAD; which of
	// those commits conflict is not determined.
	commits := gitrun.Lines(mustList(ctx, worktreeDir, baseRef))
	return "conflict", commits
}

func mustList(ctx context.Context, dir, baseRef string) string {
	res, err := gitrun.Git(ctx, dir, "rev-list", baseRef+"..HEAD")
	if err != nil || !res.Ok() {
		return ""
	}
	return res.Stdout
}

// Execute runs the git-level operation for one will-<verb> row.
// trueDefaultBranch is the repo's actual default branch (spec §4.8: a bare
// --retarget with no explicit branch targets this, not the stale
// configured base); it is ignored outside retarget mode.
func Execute(ctx context.Context, worktreeDir string, mode Mode, baseRemote, baseBranch, trueDefaultBranch string, opts Options) plan.Result {
	switch mode {
	case ModeRebase:
		return executeRebase(ctx, worktreeDir, baseRemote, baseBranch, trueDefaultBranch, opts)
	case ModeMerge:
		return executeMerge(ctx, worktreeDir, baseRemote, baseBranch, trueDefaultBranch, opts)
	default:
		return plan.Result{Message: fmt.Sprintf("unknown integrate mode %q", mode)}
	}
}

func executeRebase(ctx context.Context, worktreeDir, baseRemote, baseBranch, trueDefaultBranch string, opts Options) plan.Result {
	args := []string{"rebase"}
	if opts.Autostash {
		args = append(args, "--autostash")
	}
	if opts.Retarget {
		// --onto <newBase> <oldBase>: replay commits from oldBase..HEAD onto newBase.
		newBase := baseRemote + "/" + pick(opts.RetargetTo, trueDefaultBranch)
		args = append(args, "--onto", newBase, baseRemote+"/"+baseBranch)
	} else {
		args = append(args, baseRemote+"/"+baseBranch)
	}

	res, err := gitrun.Git(ctx, worktreeDir, args...)
	if err != nil {
		return plan.Result{Message: err.Error()}
	}
	if !res.Ok() {
		return plan.Result{Conflict: true, Message: res.Stderr}
	}
	return plan.Result{Succeeded: true, Message: "rebased"}
}

func executeMerge(ctx context.Context, worktreeDir, baseRemote, baseBranch, trueDefaultBranch string, opts Options) plan.Result {
	var stashed bool
	if opts.Autostash {
		if res, err := gitrun.Git(ctx, worktreeDir, "stash", "push"); err == nil && res.Ok() {
			stashed = true
		}
	}

	target := baseBranch
	if opts.Retarget {
		target = pick(opts.RetargetTo, trueDefaultBranch)
	}
	res, err := gitrun.Git(ctx, worktreeDir, "merge", baseRemote+"/"+target)

	var popNote string
	if stashed {
		popRes, popErr := gitrun.Git(ctx, worktreeDir, "stash", "pop")
		if popErr == nil && !popRes.Ok() {
			popNote = " (stash pop conflict — resolve manually)"
		}
	}

	if err != nil {
		return plan.Result{Message: err.Error() + popNote}
	}
	if !res.Ok() {
		return plan.Result{Conflict: true, Message: res.Stderr + popNote}
	}
	return plan.Result{Succeeded: true, Message: "merged" + popNote}
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
