package repostatus

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/arborist-dev/arb/internal/gitrun"
	"github.com/arborist-dev/arb/internal/reqcache"
)

// patchIDWindow bounds the cumulative patch-id squash-merge detection to the
// last K commits of the candidate ref (spec §9 "merge detection complexity";
// the 200 commit window is a carried-over Open Question — not tunable yet).
const patchIDWindow = 200

// gatherBase computes §4.3(c): the resolved base ref, ahead/behind counts,
// merge/squash-into-base detection, and (when configBase is set) whether
// the configured base has itself been merged into the repo's true default
// branch (the "stacked" case).
//
// shareIsGoneOrUpToDate gates the expensive phase-2 patch-id scan per §4.3:
// it only runs "when share.refMode == gone OR share is exactly up-to-date".
func gatherBase(ctx context.Context, worktreeDir, baseRemote, configBase string, detached, shareIsGoneOrUpToDate bool, cache *reqcache.Cache) *Base {
	ref, configuredRef, ok := resolveBaseRef(ctx, worktreeDir, baseRemote, configBase, cache)
	if !ok {
		return nil
	}

	base := &Base{Remote: baseRemote, Ref: ref, ConfiguredRef: configuredRef}

	behind, ahead, ok := leftRightCount(ctx, worktreeDir, ref, "HEAD")
	if ok {
		base.Behind = behind
		base.Ahead = ahead
	}

	if !detached && (base.Ahead > 0 || base.Behind > 0) {
		detectMergeIntoBase(ctx, worktreeDir, ref, shareIsGoneOrUpToDate, base)
	}

	if trueDefault, ok := defaultBranchRef(ctx, worktreeDir, baseRemote, cache); ok {
		base.TrueDefaultRef = trueDefault
		// Per §9's Open Question: when the configured base already *is* the
		// default branch, "merged into default" would be tautologically
		// true, so the check is skipped entirely rather than reporting a
		// misleading MergeMerge.
		if configuredRef != "" && trueDefault != ref {
			base.BaseMergedIntoDefault = detectRefMergedInto(ctx, worktreeDir, ref, trueDefault, shareIsGoneOrUpToDate)
		}
	}

	return base
}

// resolveBaseRef implements §4.3(c) step 1–2: prefer the configured base
// when it resolves, else fall back to the base remote's default branch.
func resolveBaseRef(ctx context.Context, worktreeDir, baseRemote, configBase string, cache *reqcache.Cache) (ref, configuredRef string, ok bool) {
	if configBase != "" {
		if remoteRefExists(ctx, worktreeDir, baseRemote+"/"+configBase) {
			return baseRemote + "/" + configBase, configBase, true
		}
		if localBranchExists(ctx, worktreeDir, configBase) {
			return configBase, configBase, true
		}
	}

	def, ok := defaultBranchRef(ctx, worktreeDir, baseRemote, cache)
	if !ok {
		return "", "", false
	}
	return def, "", true
}

func localBranchExists(ctx context.Context, dir, branch string) bool {
	res, err := gitrun.Git(ctx, dir, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil && res.Ok()
}

// defaultBranchRef resolves <baseRemote>/HEAD, falling back to `git remote
// show` when the symref hasn't been set locally. The result is memoised per
// (dir, baseRemote) in cache when non-nil, since both the pre-fetch and
// post-fetch assess passes ask the same question within one invocation
// (spec §4.6); cache.InvalidateAfterFetch drops the entry once a fetch may
// have moved the remote's HEAD.
func defaultBranchRef(ctx context.Context, dir, baseRemote string, cache *reqcache.Cache) (string, bool) {
	if cache == nil {
		return defaultBranchRefUncached(ctx, dir, baseRemote)
	}
	lookup := reqcache.Get(cache, reqcache.DefaultBranchKey(dir, baseRemote), func(ctx context.Context) (string, error) {
		ref, ok := defaultBranchRefUncached(ctx, dir, baseRemote)
		if !ok {
			return "", errNotResolved
		}
		return ref, nil
	})
	ref, err := lookup(ctx)
	return ref, err == nil
}

var errNotResolved = errors.New("default branch ref not resolved")

func defaultBranchRefUncached(ctx context.Context, dir, baseRemote string) (string, bool) {
	res, err := gitrun.Git(ctx, dir, "symbolic-ref", "refs/remotes/"+baseRemote+"/HEAD")
	if err == nil && res.Ok() && res.Stdout != "" {
		if name, ok := strings.CutPrefix(res.Stdout, "refs/remotes/"); ok {
			return name, true
		}
	}

	show, err := gitrun.Git(ctx, dir, "remote", "show", baseRemote)
	if err != nil || !show.Ok() {
		return "", false
	}
	for _, line := range strings.Split(show.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if branch, ok := strings.CutPrefix(line, "HEAD branch:"); ok {
			return baseRemote + "/" + strings.TrimSpace(branch), true
		}
	}
	return "", false
}

// detectMergeIntoBase implements the two-phase merge/squash detection.
func detectMergeIntoBase(ctx context.Context, worktreeDir, ref string, shareGate bool, base *Base) {
	if res, err := gitrun.Git(ctx, worktreeDir, "merge-base", "--is-ancestor", "HEAD", ref); err == nil && res.Ok() {
		base.MergedIntoBase = MergeMerge
		return
	}

	if !shareGate {
		return
	}

	if commit, ok := findSquashCommit(ctx, worktreeDir, ref, "HEAD"); ok {
		base.MergedIntoBase = MergeSquash
		base.MergeCommitHash = commit
	}
}

func detectRefMergedInto(ctx context.Context, worktreeDir, candidate, target string, shareGate bool) MergeKind {
	if res, err := gitrun.Git(ctx, worktreeDir, "merge-base", "--is-ancestor", candidate, target); err == nil && res.Ok() {
		return MergeMerge
	}
	if !shareGate {
		return MergeNone
	}
	if _, ok := findSquashCommit(ctx, worktreeDir, target, candidate); ok {
		return MergeSquash
	}
	return MergeNone
}

// findSquashCommit computes the cumulative patch-id of tip relative to its
// merge-base with ref, then compares it against the individual patch-ids of
// the last patchIDWindow commits reachable from ref. A match means tip's
// entire diff landed on ref as a single squash commit.
func findSquashCommit(ctx context.Context, dir, ref, tip string) (string, bool) {
	mergeBase := mergeBaseOf(ctx, dir, ref, tip)
	if mergeBase == "" {
		return "", false
	}

	diff, err := gitrun.Git(ctx, dir, "diff", mergeBase, tip)
	if err != nil || !diff.Ok() || diff.Stdout == "" {
		return "", false
	}
	cumulative, err := gitrun.GitWithStdin(ctx, dir, diff.Stdout, "patch-id", "--stable")
	if err != nil || !cumulative.Ok() || cumulative.Stdout == "" {
		return "", false
	}
	cumulativeID := strings.Fields(cumulative.Stdout)[0]

	candidates := lastNCommits(ctx, dir, ref, patchIDWindow)
	for _, commit := range candidates {
		if id, ok := patchIDOfCommit(ctx, dir, commit); ok && id == cumulativeID {
			return commit, true
		}
	}
	return "", false
}

func mergeBaseOf(ctx context.Context, dir, a, b string) string {
	res, err := gitrun.Git(ctx, dir, "merge-base", a, b)
	if err != nil || !res.Ok() {
		return ""
	}
	return res.Stdout
}

func lastNCommits(ctx context.Context, dir, ref string, n int) []string {
	res, err := gitrun.Git(ctx, dir, "log", "-n", strconv.Itoa(n), "--format=%H", ref)
	if err != nil || !res.Ok() {
		return nil
	}
	return gitrun.Lines(res.Stdout)
}
