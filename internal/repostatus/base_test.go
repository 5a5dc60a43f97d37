package repostatus

import "testing"

func TestGatherBase_UpToDate(t *testing.T) {
	_, clone := cloneWithRemote(t)
	base := gatherBase(ctx, clone, "origin", "", false, false, nil)
	if base == nil {
		t.Fatal("expected non-nil Base")
	}
	if base.Ahead != 0 || base.Behind != 0 {
		t.Errorf("expected up-to-date base, got ahead=%d behind=%d", base.Ahead, base.Behind)
	}
}

func TestGatherBase_Ahead(t *testing.T) {
	_, clone := cloneWithRemote(t)
	writeFile(t, clone, "new.txt", "new\n")
	commitAll(t, clone, "local work")

	base := gatherBase(ctx, clone, "origin", "", false, false, nil)
	if base.Ahead != 1 {
		t.Errorf("Ahead = %d, want 1", base.Ahead)
	}
}

func TestGatherBase_MergedViaFastForward(t *testing.T) {
	_, clone := cloneWithRemote(t)

	// Advance the remote past HEAD, then wind the local branch back so HEAD
	// is a strict ancestor of the base ref: this is what "merged into base"
	// looks like once the remote has moved on.
	writeFile(t, clone, "feature.txt", "v1\n")
	commitAll(t, clone, "feature commit")
	runGit(t, clone, "push", "-q", "origin", "main")
	runGit(t, clone, "reset", "-q", "--hard", "HEAD~1")

	base := gatherBase(ctx, clone, "origin", "", false, true, nil)
	if base.Behind == 0 {
		t.Fatalf("expected Behind > 0 after resetting past the pushed commit, got %+v", base)
	}
	if base.MergedIntoBase != MergeMerge {
		t.Errorf("MergedIntoBase = %v, want merge (fast-forward ancestor)", base.MergedIntoBase)
	}
}

func TestGatherBase_ConfiguredRefOverride(t *testing.T) {
	parent := t.TempDir()
	bareDir := parent + "/origin.git"
	runGit(t, parent, "init", "-q", "--bare", bareDir)

	seed := initRepo(t)
	runGit(t, seed, "remote", "add", "origin", bareDir)
	runGit(t, seed, "push", "-q", "-u", "origin", "main")
	runGit(t, seed, "checkout", "-q", "-b", "release")
	runGit(t, seed, "push", "-q", "-u", "origin", "release")

	cloneDir := parent + "/clone"
	runGit(t, parent, "clone", "-q", "-b", "release", bareDir, cloneDir)
	runGit(t, cloneDir, "config", "user.email", "test@example.com")
	runGit(t, cloneDir, "config", "user.name", "Test")

	base := gatherBase(ctx, cloneDir, "origin", "release", false, false, nil)
	if base == nil {
		t.Fatal("expected non-nil Base")
	}
	if base.ConfiguredRef != "release" {
		t.Errorf("ConfiguredRef = %q, want release", base.ConfiguredRef)
	}
	if base.Ref != "origin/release" {
		t.Errorf("Ref = %q, want origin/release", base.Ref)
	}
}
