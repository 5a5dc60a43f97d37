// Package repostatus computes the five-section RepoStatus for one
// (worktree, canonical repo) pair, derives the flat RepoFlags from it, and
// evaluates the --where filter mini-language against those flags. This is
// the hardest and most central component of arb (spec §4.3).
package repostatus

import "time"

// WorktreeKind distinguishes a full checkout from a linked worktree.
type WorktreeKind string

const (
	WorktreeFull   WorktreeKind = "full"
	WorktreeLinked WorktreeKind = "linked"
)

// Operation is an in-progress git operation detected from the .git directory.
type Operation string

const (
	OpNone       Operation = ""
	OpRebase     Operation = "rebase"
	OpMerge      Operation = "merge"
	OpCherryPick Operation = "cherry-pick"
	OpRevert     Operation = "revert"
	OpBisect     Operation = "bisect"
	OpAm         Operation = "am"
)

// MergeKind records how a branch was found to be merged: not at all, via a
// plain merge commit, or via squash (detected by cumulative patch-id match).
type MergeKind string

const (
	MergeNone   MergeKind = ""
	MergeMerge  MergeKind = "merge"
	MergeSquash MergeKind = "squash"
)

// RefMode classifies how the share remote's copy of the current branch was
// located (spec §4.3d).
type RefMode string

const (
	RefNone       RefMode = "noRef"
	RefImplicit   RefMode = "implicit"
	RefConfigured RefMode = "configured"
	RefGone       RefMode = "gone"
)

// Identity is "what this checkout is" — spec §3 identity section.
type Identity struct {
	WorktreeKind WorktreeKind
	Detached     bool
	Branch       string // empty when Detached
	Shallow      bool
}

// Local is the working-tree state from git status porcelain.
type Local struct {
	Staged    int
	Modified  int
	Untracked int
	Conflicts int

	StagedFiles    []string
	ModifiedFiles  []string
	UntrackedFiles []string
	ConflictFiles  []string
}

// Dirty reports whether any working-tree category is non-zero.
func (l Local) Dirty() bool {
	return l.Staged > 0 || l.Modified > 0 || l.Untracked > 0 || l.Conflicts > 0
}

// Base is the divergence from the integration target. A nil *Base means no
// base could be resolved for this repo.
type Base struct {
	Remote                string
	Ref                   string
	Ahead                 int
	Behind                int
	MergedIntoBase        MergeKind
	BaseMergedIntoDefault MergeKind
	ConfiguredRef         string
	TrueDefaultRef        string // <baseRemote>/<branch>; resolved even when ConfiguredRef is set
	DetectedPR            string
	MergeCommitHash       string
	NewCommitsAfterMerge  *int
}

// Share is the divergence from the share remote's copy of this branch. A nil
// *Share means the repo has no remote at all (local-only) or HEAD is
// detached, leaving no branch to compare.
type Share struct {
	Remote  string
	Ref     string
	RefMode RefMode
	ToPush  *int
	ToPull  *int
	Rebased *int
}

// RepoStatus is the fully populated five-section record for one repo.
type RepoStatus struct {
	Name       string
	Identity   Identity
	Local      Local
	Base       *Base
	Share      *Share
	Operation  Operation
	LastCommit *time.Time
}
