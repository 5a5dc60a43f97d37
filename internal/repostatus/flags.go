package repostatus

// Flags is the flat boolean record derived purely from a RepoStatus plus the
// workspace's expected branch (spec §3/§4.3 "Derived flags").
type Flags struct {
	IsDirty      bool
	IsUnpushed   bool
	NeedsPull    bool
	NeedsRebase  bool
	IsDiverged   bool
	IsDrifted    bool
	IsDetached   bool
	HasOperation bool
	IsLocal      bool
	IsGone       bool
	IsShallow    bool
	IsMerged     bool
	IsBaseMerged bool
}

// DeriveFlags computes Flags from status and the workspace's expected
// branch name, following the formulas in spec §4.3 exactly.
func DeriveFlags(status RepoStatus, expectedBranch string) Flags {
	var f Flags

	f.IsDirty = status.Local.Dirty()
	f.IsDetached = status.Identity.Detached
	f.IsDrifted = !status.Identity.Detached && status.Identity.Branch != "" && status.Identity.Branch != expectedBranch
	f.HasOperation = status.Operation != OpNone
	f.IsLocal = status.Share == nil
	f.IsGone = status.Share != nil && status.Share.RefMode == RefGone
	f.IsShallow = status.Identity.Shallow
	f.IsMerged = status.Base != nil && status.Base.MergedIntoBase != MergeNone
	f.IsBaseMerged = status.Base != nil && status.Base.BaseMergedIntoDefault != MergeNone

	if status.Share != nil {
		toPush := orZero(status.Share.ToPush)
		toPull := orZero(status.Share.ToPull)

		noRefWithAhead := status.Share.RefMode == RefNone && status.Base != nil && status.Base.Ahead > 0
		f.IsUnpushed = toPush > 0 || noRefWithAhead
		f.NeedsPull = toPull > 0
	}

	if status.Base != nil {
		f.NeedsRebase = status.Base.Behind > 0
		f.IsDiverged = status.Base.Ahead > 0 && status.Base.Behind > 0
	}

	return f
}

func orZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// WouldLoseWork is the invariant that gate-keeps destructive commands
// (spec §4.3): true iff executing a destructive operation on this repo
// could silently discard state the user hasn't safely preserved elsewhere.
func WouldLoseWork(f Flags) bool {
	return f.IsDirty || f.IsUnpushed || f.IsDetached || f.IsDrifted || f.HasOperation
}

// IsWorkspaceSafe implements the §8 testable property: a workspace is safe
// to destroy only when no repo would lose work and no local-only repo has
// unpushed base divergence (since it has nowhere else those commits live).
func IsWorkspaceSafe(statuses []RepoStatus, branch string) bool {
	for _, s := range statuses {
		f := DeriveFlags(s, branch)
		if WouldLoseWork(f) {
			return false
		}
		if s.Share == nil && s.Base != nil && s.Base.Ahead > 0 {
			return false
		}
	}
	return true
}
