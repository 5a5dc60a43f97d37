package fetcher

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

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

func newCloneWithOrigin(t *testing.T) (bareDir, cloneDir string) {
	t.Helper()
	parent := t.TempDir()
	bareDir = filepath.Join(parent, "origin.git")
	runGit(t, parent, "init", "-q", "--bare", bareDir)

	seed := filepath.Join(parent, "seed")
	if err := os.MkdirAll(seed, 0o755); err != nil {
		t.Fatal(err)
	}
	runGit(t, seed, "init", "-q", "-b", "main", seed)
	runGit(t, seed, "config", "user.email", "test@example.com")
	runGit(t, seed, "config", "user.name", "Test")
	writeFile(t, seed, "README.md", "hello\n")
	runGit(t, seed, "add", "README.md")
	runGit(t, seed, "commit", "-q", "-m", "initial")
	runGit(t, seed, "remote", "add", "origin", bareDir)
	runGit(t, seed, "push", "-q", "-u", "origin", "main")

	cloneDir = filepath.Join(parent, "clone")
	runGit(t, parent, "clone", "-q", bareDir, cloneDir)
	return bareDir, cloneDir
}

func TestRun_FetchesSuccessfully(t *testing.T) {
	_, clone := newCloneWithOrigin(t)

	results := Run(context.Background(), []Target{
		{Name: "api", RepoDir: clone, Remote: "origin", BaseRemote: "origin"},
	}, Options{Silent: true})

	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0: %s", results[0].ExitCode, results[0].Output)
	}
	if results[0].TimedOut {
		t.Error("expected no timeout")
	}
}

func TestRun_MultipleReposGroupedIndependently(t *testing.T) {
	_, cloneA := newCloneWithOrigin(t)
	_, cloneB := newCloneWithOrigin(t)

	results := Run(context.Background(), []Target{
		{Name: "a", RepoDir: cloneA, Remote: "origin", BaseRemote: "origin"},
		{Name: "b", RepoDir: cloneB, Remote: "origin", BaseRemote: "origin"},
	}, Options{Silent: true})

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.ExitCode != 0 {
			t.Errorf("repo %s: ExitCode = %d", r.Name, r.ExitCode)
		}
	}
}

func TestRun_NonexistentRemoteReportsFailure(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "repo")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "init", "-q", "-b", "main", dir)

	results := Run(context.Background(), []Target{
		{Name: "broken", RepoDir: dir, Remote: "origin", BaseRemote: "origin"},
	}, Options{Silent: true})

	if results[0].ExitCode == 0 {
		t.Error("expected a non-zero exit code fetching a nonexistent remote")
	}
}

func TestRun_DeadlineExceeded(t *testing.T) {
	_, clone := newCloneWithOrigin(t)

	results := Run(context.Background(), []Target{
		{Name: "api", RepoDir: clone, Remote: "origin", BaseRemote: "origin"},
	}, Options{Silent: true, Timeout: 1 * time.Nanosecond})

	if results[0].ExitCode != 124 {
		t.Errorf("ExitCode = %d, want 124 on deadline exceeded", results[0].ExitCode)
	}
}
