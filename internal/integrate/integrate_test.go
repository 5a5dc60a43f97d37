package integrate

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/arborist-dev/arb/internal/plan"
	"github.com/arborist-dev/arb/internal/repostatus"
)

func TestClassify_FetchFailedSkips(t *testing.T) {
	row := Classify(Selection{Name: "api", FetchFailed: true}, ModeRebase, Options{})
	if row.Outcome != plan.OutcomeSkip || row.SkipReason != "fetch failed" {
		t.Errorf("row = %+v, want skip/fetch failed", row)
	}
}

func TestClassify_DetachedSkips(t *testing.T) {
	s := Selection{Name: "api", Flags: repostatus.Flags{IsDetached: true}}
	row := Classify(s, ModeRebase, Options{})
	if row.Outcome != plan.OutcomeSkip {
		t.Errorf("expected skip for detached HEAD, got %+v", row)
	}
}

func TestClassify_DirtyWithoutAutostashSkips(t *testing.T) {
	s := Selection{Name: "api", Flags: repostatus.Flags{IsDirty: true}}
	row := Classify(s, ModeRebase, Options{})
	if row.Outcome != plan.OutcomeSkip {
		t.Errorf("expected skip for dirty repo without --autostash, got %+v", row)
	}
}

func TestClassify_DirtyWithAutostashWills(t *testing.T) {
	s := Selection{
		Name:   "api",
		Flags:  repostatus.Flags{IsDirty: true, NeedsRebase: true},
		Status: repostatus.RepoStatus{Base: &repostatus.Base{Behind: 1}},
	}
	row := Classify(s, ModeRebase, Options{Autostash: true})
	if row.Outcome != plan.OutcomeWill || !row.NeedsStash {
		t.Errorf("expected will-rebase with needsStash, got %+v", row)
	}
}

func TestClassify_UpToDateWhenNotBehind(t *testing.T) {
	s := Selection{
		Name:   "api",
		Status: repostatus.RepoStatus{Base: &repostatus.Base{Behind: 0}},
	}
	row := Classify(s, ModeRebase, Options{})
	if row.Outcome != plan.OutcomeUpToDate {
		t.Errorf("expected up-to-date, got %+v", row)
	}
}

func TestClassify_BaseMergedIntoDefaultRequiresRetarget(t *testing.T) {
	s := Selection{
		Name: "api",
		Status: repostatus.RepoStatus{
			Base: &repostatus.Base{Behind: 1, BaseMergedIntoDefault: repostatus.MergeSquash},
		},
	}
	row := Classify(s, ModeRebase, Options{})
	if row.Outcome != plan.OutcomeSkip {
		t.Errorf("expected skip suggesting --retarget, got %+v", row)
	}

	rowRetarget := Classify(s, ModeRebase, Options{Retarget: true})
	if rowRetarget.Outcome != plan.OutcomeWill {
		t.Errorf("expected will-rebase once --retarget is set, got %+v", rowRetarget)
	}
}

func TestClassify_NoBaseResolvedSkips(t *testing.T) {
	row := Classify(Selection{Name: "api"}, ModeRebase, Options{})
	if row.Outcome != plan.OutcomeSkip || row.SkipReason != "no base resolved" {
		t.Errorf("row = %+v, want skip/no base resolved", row)
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExecuteRebase_CleanFastForward(t *testing.T) {
	parent := t.TempDir()
	bareDir := filepath.Join(parent, "origin.git")
	runGit(t, parent, "init", "-q", "--bare", bareDir)

	seed := filepath.Join(parent, "seed")
	if err := os.MkdirAll(seed, 0o755); err != nil {
		t.Fatal(err)
	}
	runGit(t, seed, "init", "-q", "-b", "main", seed)
	runGit(t, seed, "config", "user.email", "test@example.com")
	runGit(t, seed, "config", "user.name", "Test")
	writeFile(t, seed, "README.md", "v1\n")
	runGit(t, seed, "add", "README.md")
	runGit(t, seed, "commit", "-q", "-m", "initial")
	runGit(t, seed, "remote", "add", "origin", bareDir)
	runGit(t, seed, "push", "-q", "-u", "origin", "main")

	clone := filepath.Join(parent, "clone")
	runGit(t, parent, "clone", "-q", bareDir, clone)
	runGit(t, clone, "config", "user.email", "test@example.com")
	runGit(t, clone, "config", "user.name", "Test")

	// Advance the remote ahead of the clone.
	writeFile(t, seed, "README.md", "v2\n")
	runGit(t, seed, "commit", "-q", "-am", "update")
	runGit(t, seed, "push", "-q", "origin", "main")
	runGit(t, clone, "fetch", "-q", "origin")

	result := Execute(context.Background(), clone, ModeRebase, "origin", "main", "main", Options{})
	if !result.Succeeded {
		t.Errorf("expected rebase to succeed, got %+v", result)
	}
}
