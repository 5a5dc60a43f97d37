package arbroot

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitRoot_CreatesLayout(t *testing.T) {
	dir := t.TempDir()
	if err := InitRoot(dir); err != nil {
		t.Fatalf("InitRoot: %v", err)
	}

	if data, err := os.ReadFile(filepath.Join(dir, ".arb", ".gitignore")); err != nil || string(data) != "repos/\n" {
		t.Errorf(".gitignore = %q, %v, want %q, nil", data, err, "repos/\n")
	}
	if info, err := os.Stat(filepath.Join(dir, ".arb", "repos")); err != nil || !info.IsDir() {
		t.Errorf("repos dir missing: %v", err)
	}
}

func TestInitRoot_RefusesDoubleInit(t *testing.T) {
	dir := t.TempDir()
	if err := InitRoot(dir); err != nil {
		t.Fatalf("InitRoot: %v", err)
	}
	if err := InitRoot(dir); err == nil {
		t.Fatal("expected error on double init")
	}
}

func TestWorkspaceConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := WorkspaceConfig{Branch: "fix-login", Extra: map[string]string{}}
	if err := WriteWorkspaceConfig(dir, cfg); err != nil {
		t.Fatalf("WriteWorkspaceConfig: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".arbws", "config"))
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if string(data) != "branch = fix-login\n" {
		t.Errorf("config contents = %q, want %q", data, "branch = fix-login\n")
	}

	got, err := ReadWorkspaceConfig(dir)
	if err != nil {
		t.Fatalf("ReadWorkspaceConfig: %v", err)
	}
	if got.Branch != "fix-login" {
		t.Errorf("Branch = %q, want fix-login", got.Branch)
	}
}

func TestWorkspaceConfig_MissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	got, err := ReadWorkspaceConfig(dir)
	if err != nil {
		t.Fatalf("ReadWorkspaceConfig: %v", err)
	}
	if got.Branch != "" || got.Base != "" {
		t.Errorf("expected zero value, got %+v", got)
	}
}

func TestWorkspaceConfig_UnknownKeysPreserved(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".arbws"), 0755); err != nil {
		t.Fatal(err)
	}
	content := "branch = fix-login\nfuture_key = some-value\n"
	if err := os.WriteFile(filepath.Join(dir, ".arbws", "config"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadWorkspaceConfig(dir)
	if err != nil {
		t.Fatalf("ReadWorkspaceConfig: %v", err)
	}
	if got.Extra["future_key"] != "some-value" {
		t.Errorf("Extra[future_key] = %q, want some-value", got.Extra["future_key"])
	}
}

func TestWorkspaceConfig_BranchRename_PartialState(t *testing.T) {
	dir := t.TempDir()
	cfg := WorkspaceConfig{Branch: "feat-x", BranchRenameFrom: "feat-old", Extra: map[string]string{}}
	if err := WriteWorkspaceConfig(dir, cfg); err != nil {
		t.Fatalf("WriteWorkspaceConfig: %v", err)
	}

	got, err := ReadWorkspaceConfig(dir)
	if err != nil {
		t.Fatalf("ReadWorkspaceConfig: %v", err)
	}
	if got.Branch != "feat-x" || got.BranchRenameFrom != "feat-old" {
		t.Errorf("got %+v", got)
	}
}

func TestRootConfig_MissingFileYieldsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadRootConfig(dir)
	if err != nil {
		t.Fatalf("LoadRootConfig: %v", err)
	}
	if cfg.EffectiveFetchTimeout("") != DefaultFetchTimeout {
		t.Errorf("timeout = %v, want %v", cfg.EffectiveFetchTimeout(""), DefaultFetchTimeout)
	}
}

func TestRootConfig_EnvOverridesFile(t *testing.T) {
	cfg := RootConfig{FetchTimeout: 60 * time.Second}
	got := cfg.EffectiveFetchTimeout("30")
	if got != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", got)
	}
}
