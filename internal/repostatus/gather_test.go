package repostatus

import "testing"

func TestGather_LocalOnlyRepo(t *testing.T) {
	dir := initRepo(t)
	status := Gather(ctx, Input{
		Name:        "repo",
		WorktreeDir: dir,
		Remotes:     Remotes{HasRemote: false},
	})

	if status.Share != nil {
		t.Errorf("expected nil Share for a local-only repo, got %+v", status.Share)
	}
	if status.Base != nil {
		t.Errorf("expected nil Base for a local-only repo, got %+v", status.Base)
	}
	if status.Identity.Detached {
		t.Error("expected attached identity")
	}
	if status.LastCommit == nil {
		t.Error("expected a non-nil LastCommit")
	}
}

func TestGather_RemoteRepoUpToDate(t *testing.T) {
	_, clone := cloneWithRemote(t)
	status := Gather(ctx, Input{
		Name:        "repo",
		WorktreeDir: clone,
		Remotes:     Remotes{Base: "origin", Share: "origin", HasRemote: true},
	})

	if status.Share == nil {
		t.Fatal("expected non-nil Share")
	}
	if status.Share.RefMode != RefConfigured {
		t.Errorf("Share.RefMode = %v, want configured", status.Share.RefMode)
	}
	if status.Base == nil {
		t.Fatal("expected non-nil Base")
	}
	if status.Base.Ahead != 0 || status.Base.Behind != 0 {
		t.Errorf("expected up-to-date base, got %+v", status.Base)
	}

	flags := DeriveFlags(status, "main")
	if WouldLoseWork(flags) {
		t.Errorf("expected a clean, pushed, up-to-date repo to be safe: %+v", flags)
	}
}

func TestGather_DirtyUnpushedRepo(t *testing.T) {
	_, clone := cloneWithRemote(t)
	writeFile(t, clone, "local.txt", "uncommitted\n")

	status := Gather(ctx, Input{
		Name:        "repo",
		WorktreeDir: clone,
		Remotes:     Remotes{Base: "origin", Share: "origin", HasRemote: true},
	})

	flags := DeriveFlags(status, "main")
	if !flags.IsDirty {
		t.Error("expected IsDirty")
	}
	if !WouldLoseWork(flags) {
		t.Error("expected WouldLoseWork for a dirty repo")
	}
}
