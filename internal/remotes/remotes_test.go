package remotes

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
)

func newBareRemote(t *testing.T, parent, name string) string {
	t.Helper()
	dir := filepath.Join(parent, name+".git")
	runGit(t, parent, "init", "-q", "--bare", dir)
	return dir
}

func newRepoWithRemotes(t *testing.T, remotePairs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-q", dir)
	for name, url := range remotePairs {
		runGit(t, dir, "remote", "add", name, url)
	}
	return dir
}

func TestResolve_SingleRemote(t *testing.T) {
	parent := t.TempDir()
	origin := newBareRemote(t, parent, "origin")
	repo := newRepoWithRemotes(t, map[string]string{"origin": origin})

	roles, err := Resolve(context.Background(), repo, nil, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if roles.Base != "origin" || roles.Share != "origin" {
		t.Errorf("roles = %+v", roles)
	}
}

func TestResolve_UpstreamOrigin(t *testing.T) {
	parent := t.TempDir()
	origin := newBareRemote(t, parent, "origin")
	upstream := newBareRemote(t, parent, "upstream")
	repo := newRepoWithRemotes(t, map[string]string{"origin": origin, "upstream": upstream})

	roles, err := Resolve(context.Background(), repo, nil, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if roles.Base != "upstream" || roles.Share != "origin" {
		t.Errorf("roles = %+v, want base=upstream share=origin", roles)
	}
}

func TestResolve_PushDefaultWithUpstream(t *testing.T) {
	parent := t.TempDir()
	origin := newBareRemote(t, parent, "origin")
	upstream := newBareRemote(t, parent, "upstream")
	repo := newRepoWithRemotes(t, map[string]string{"origin": origin, "upstream": upstream})
	runGit(t, repo, "config", "remote.pushDefault", "origin")

	roles, err := Resolve(context.Background(), repo, nil, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if roles.Base != "upstream" || roles.Share != "origin" {
		t.Errorf("roles = %+v", roles)
	}
}

func TestResolve_AmbiguousTwoRemotesNoConvention(t *testing.T) {
	parent := t.TempDir()
	a := newBareRemote(t, parent, "alice")
	b := newBareRemote(t, parent, "bob")
	repo := newRepoWithRemotes(t, map[string]string{"alice": a, "bob": b})

	if _, err := Resolve(context.Background(), repo, nil, nil); err == nil {
		t.Fatal("expected ambiguity error")
	}
}

func TestResolve_NoRemotes(t *testing.T) {
	repo := newRepoWithRemotes(t, nil)
	if _, err := Resolve(context.Background(), repo, nil, nil); err == nil {
		t.Fatal("expected error for repo with no remotes")
	}
}

func TestResolve_OverridesBypassHeuristics(t *testing.T) {
	repo := newRepoWithRemotes(t, nil)
	roles, err := Resolve(context.Background(), repo, &Roles{Base: "upstream", Share: "origin"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if roles.Base != "upstream" || roles.Share != "origin" {
		t.Errorf("roles = %+v", roles)
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
