package gitrun

import (
	"context"
	"os/exec"
	"testing"
)

func TestGit_RunsInDirAndCapturesOutput(t *testing.T) {
	dir := t.TempDir()
	run(t, dir, "init", "-q")

	res, err := Git(context.Background(), dir, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		t.Fatalf("Git: %v", err)
	}
	if !res.Ok() {
		t.Fatalf("exit = %d, stderr = %q", res.ExitCode, res.Stderr)
	}
	if res.Stdout != "true" {
		t.Errorf("stdout = %q, want %q", res.Stdout, "true")
	}
}

func TestGit_NeverErrorsOnNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	run(t, dir, "init", "-q")

	res, err := Git(context.Background(), dir, "rev-parse", "--verify", "refs/heads/does-not-exist")
	if err != nil {
		t.Fatalf("Git returned process error for a plain non-zero exit: %v", err)
	}
	if res.Ok() {
		t.Fatal("expected non-zero exit")
	}
	if res.Stderr == "" {
		t.Error("expected stderr to be captured")
	}
}

func TestGit_TicksCallCounter(t *testing.T) {
	dir := t.TempDir()
	run(t, dir, "init", "-q")

	before := CallCount()
	if _, err := Git(context.Background(), dir, "status"); err != nil {
		t.Fatalf("Git: %v", err)
	}
	if CallCount() != before+1 {
		t.Errorf("CallCount = %d, want %d", CallCount(), before+1)
	}
}

func TestLines_DropsEmpty(t *testing.T) {
	got := Lines("a\n\nb\n  \nc")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}
