package repostatus

import (
	"os/exec"
	"testing"
)

func TestGatherLocal_Clean(t *testing.T) {
	dir := initRepo(t)
	local := gatherLocal(ctx, dir)
	if local.Dirty() {
		t.Errorf("expected clean worktree, got %+v", local)
	}
}

func TestGatherLocal_StagedModifiedUntracked(t *testing.T) {
	dir := initRepo(t)

	writeFile(t, dir, "README.md", "changed\n")
	runGit(t, dir, "add", "README.md")

	writeFile(t, dir, "new.txt", "new\n")

	local := gatherLocal(ctx, dir)
	if local.Staged != 1 {
		t.Errorf("Staged = %d, want 1", local.Staged)
	}
	if local.Untracked != 1 {
		t.Errorf("Untracked = %d, want 1", local.Untracked)
	}
	if !local.Dirty() {
		t.Error("expected dirty worktree")
	}
}

func TestGatherLocal_Conflicts(t *testing.T) {
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

	local := gatherLocal(ctx, dir)
	if local.Conflicts != 1 {
		t.Errorf("Conflicts = %d, want 1, got %+v", local.Conflicts, local)
	}
}
