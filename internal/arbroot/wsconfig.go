// Package arbroot reads and writes the two configuration surfaces rooted at
// an arb root: the per-workspace .arbws/config file (a flat key=value
// format) and the optional arb-root-level .arb/config.yaml of defaults.
package arbroot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// WorkspaceConfig is the parsed content of a .arbws/config file.
// Recognised keys are Branch, Base, BranchRenameFrom; unknown keys are
// preserved in Extra so a round trip never silently drops data a future
// version might want.
type WorkspaceConfig struct {
	Branch           string
	Base             string
	BranchRenameFrom string
	Extra            map[string]string
}

// ReadWorkspaceConfig parses <workspaceDir>/.arbws/config. A missing file is
// not an error — the zero value is returned, meaning "branch must be
// inferred" per §3.
func ReadWorkspaceConfig(workspaceDir string) (WorkspaceConfig, error) {
	path := configPath(workspaceDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return WorkspaceConfig{Extra: map[string]string{}}, nil
		}
		return WorkspaceConfig{}, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := WorkspaceConfig{Extra: map[string]string{}}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := splitKV(line)
		if !ok {
			continue
		}
		switch key {
		case "branch":
			cfg.Branch = value
		case "base":
			cfg.Base = value
		case "branch_rename_from":
			cfg.BranchRenameFrom = value
		default:
			cfg.Extra[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return WorkspaceConfig{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return cfg, nil
}

func splitKV(line string) (key, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

// WriteWorkspaceConfig serialises cfg back to <workspaceDir>/.arbws/config,
// writing via a temp-file-then-rename so a reader never observes a partial
// file. The temp name is suffixed with a random UUID so concurrent arb
// invocations against different workspaces never collide on the same path.
func WriteWorkspaceConfig(workspaceDir string, cfg WorkspaceConfig) error {
	dir := filepath.Join(workspaceDir, ".arbws")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	var b strings.Builder
	if cfg.Branch != "" {
		fmt.Fprintf(&b, "branch = %s\n", cfg.Branch)
	}
	if cfg.Base != "" {
		fmt.Fprintf(&b, "base = %s\n", cfg.Base)
	}
	if cfg.BranchRenameFrom != "" {
		fmt.Fprintf(&b, "branch_rename_from = %s\n", cfg.BranchRenameFrom)
	}
	for k, v := range cfg.Extra {
		fmt.Fprintf(&b, "%s = %s\n", k, v)
	}

	path := configPath(workspaceDir)
	tmp := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}

func configPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, ".arbws", "config")
}
