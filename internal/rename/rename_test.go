package rename

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/arborist-dev/arb/internal/arbroot"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func initRepo(t *testing.T, branch string) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-q", "-b", branch, dir)
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("v1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "add", "README.md")
	runGit(t, dir, "commit", "-q", "-m", "initial")
	return dir
}

func TestCurrentState(t *testing.T) {
	if CurrentState(arbroot.WorkspaceConfig{Branch: "feat-x"}) != Idle {
		t.Error("expected Idle with no branch_rename_from")
	}
	if CurrentState(arbroot.WorkspaceConfig{Branch: "feat-y", BranchRenameFrom: "feat-x"}) != InProgress {
		t.Error("expected InProgress with branch_rename_from set")
	}
}

func TestClassifyForRename(t *testing.T) {
	dir := initRepo(t, "feat-old")

	if got := ClassifyForRename(context.Background(), dir, "feat-old", "feat-new"); got != RepoWillRename {
		t.Errorf("got %v, want will-rename", got)
	}

	runGit(t, dir, "branch", "-m", "feat-old", "feat-new")
	if got := ClassifyForRename(context.Background(), dir, "feat-old", "feat-new"); got != RepoAlreadyOnNew {
		t.Errorf("got %v, want already-on-new", got)
	}

	runGit(t, dir, "branch", "-m", "feat-new", "something-else")
	if got := ClassifyForRename(context.Background(), dir, "feat-old", "feat-new"); got != RepoSkipUnknown {
		t.Errorf("got %v, want skip-unknown", got)
	}
}

func TestClassifyForAbort(t *testing.T) {
	dir := initRepo(t, "feat-new")

	if got := ClassifyForAbort(context.Background(), dir, "feat-old", "feat-new"); got != RepoWillRollBack {
		t.Errorf("got %v, want roll-back", got)
	}

	runGit(t, dir, "branch", "-m", "feat-new", "feat-old")
	if got := ClassifyForAbort(context.Background(), dir, "feat-old", "feat-new"); got != RepoAlreadyReverted {
		t.Errorf("got %v, want already-reverted", got)
	}
}

func TestRenameBranch(t *testing.T) {
	dir := initRepo(t, "feat-old")
	if err := RenameBranch(context.Background(), dir, "feat-old", "feat-new"); err != nil {
		t.Fatalf("RenameBranch: %v", err)
	}
	if got := ClassifyForRename(context.Background(), dir, "feat-old", "feat-new"); got != RepoAlreadyOnNew {
		t.Errorf("after rename, got %v, want already-on-new", got)
	}
}

func TestBeginCompleteAbortRename(t *testing.T) {
	workspaceDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(workspaceDir, ".arbws"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := arbroot.WorkspaceConfig{Branch: "feat-old", Extra: map[string]string{}}

	cfg, err := BeginRename(workspaceDir, cfg, "feat-new")
	if err != nil {
		t.Fatalf("BeginRename: %v", err)
	}
	if cfg.Branch != "feat-new" || cfg.BranchRenameFrom != "feat-old" {
		t.Errorf("cfg = %+v after BeginRename", cfg)
	}
	if CurrentState(cfg) != InProgress {
		t.Error("expected InProgress after BeginRename")
	}

	if err := CompleteRename(workspaceDir, cfg); err != nil {
		t.Fatalf("CompleteRename: %v", err)
	}
	reloaded, err := arbroot.ReadWorkspaceConfig(workspaceDir)
	if err != nil {
		t.Fatalf("ReadWorkspaceConfig: %v", err)
	}
	if CurrentState(reloaded) != Idle {
		t.Errorf("expected Idle after CompleteRename, got cfg = %+v", reloaded)
	}
	if reloaded.Branch != "feat-new" {
		t.Errorf("branch = %q, want feat-new", reloaded.Branch)
	}
}

func TestAbortRenameRestoresOldBranch(t *testing.T) {
	workspaceDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(workspaceDir, ".arbws"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := arbroot.WorkspaceConfig{Branch: "feat-new", BranchRenameFrom: "feat-old", Extra: map[string]string{}}

	if err := AbortRename(workspaceDir, cfg); err != nil {
		t.Fatalf("AbortRename: %v", err)
	}
	reloaded, err := arbroot.ReadWorkspaceConfig(workspaceDir)
	if err != nil {
		t.Fatalf("ReadWorkspaceConfig: %v", err)
	}
	if reloaded.Branch != "feat-old" || reloaded.BranchRenameFrom != "" {
		t.Errorf("cfg = %+v after AbortRename", reloaded)
	}
}

func TestRemoteDeleteCandidate(t *testing.T) {
	if RemoteDeleteCandidate(false) {
		t.Error("expected false when not all repos succeeded")
	}
	if !RemoteDeleteCandidate(true) {
		t.Error("expected true when all repos succeeded")
	}
}
