package repostatus

import (
	"os/exec"
	"testing"
)

func TestGatherIdentity_AttachedBranch(t *testing.T) {
	dir := initRepo(t)
	id := gatherIdentity(ctx, dir)
	if id.Detached {
		t.Error("expected attached identity")
	}
	if id.Branch != "main" {
		t.Errorf("Branch = %q, want main", id.Branch)
	}
	if id.WorktreeKind != WorktreeFull {
		t.Errorf("WorktreeKind = %v, want full", id.WorktreeKind)
	}
}

func TestGatherIdentity_Detached(t *testing.T) {
	dir := initRepo(t)
	runGit(t, dir, "checkout", "-q", "--detach", "HEAD")
	id := gatherIdentity(ctx, dir)
	if !id.Detached {
		t.Error("expected detached identity")
	}
}

func TestGatherIdentity_LinkedWorktree(t *testing.T) {
	dir := initRepo(t)
	wtDir := dir + "-wt"
	runGit(t, dir, "worktree", "add", "-q", "-b", "feature", wtDir)
	id := gatherIdentity(ctx, wtDir)
	if id.WorktreeKind != WorktreeLinked {
		t.Errorf("WorktreeKind = %v, want linked", id.WorktreeKind)
	}
	if id.Branch != "feature" {
		t.Errorf("Branch = %q, want feature", id.Branch)
	}
}

func TestGatherOperation_None(t *testing.T) {
	dir := initRepo(t)
	if op := gatherOperation(ctx, dir); op != OpNone {
		t.Errorf("Operation = %v, want none", op)
	}
}

func TestGatherOperation_Merge(t *testing.T) {
	dir := initRepo(t)
	runGit(t, dir, "checkout", "-q", "-b", "side")
	writeFile(t, dir, "README.md", "side version\n")
	commitAll(t, dir, "side commit")
	runGit(t, dir, "checkout", "-q", "main")
	writeFile(t, dir, "README.md", "main version\n")
	commitAll(t, dir, "main commit")

	cmd := exec.Command("git", "merge", "side", "-m", "merge")
	cmd.Dir = dir
	_ = cmd.Run() // expected to conflict; ignore exit status

	op := gatherOperation(ctx, dir)
	if op != OpMerge {
		t.Errorf("Operation = %v, want merge", op)
	}
}
