package arbroot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RootConfig is the optional .arb/config.yaml of arb-root-wide defaults.
// Every field has a zero value that means "use the built-in default",
// mirroring the teacher's DefaultConfig shape in pkg/mirror.
type RootConfig struct {
	// FetchTimeout overrides the default 120s deadline for parallel fetch.
	// Equivalent to (and overridden by) ARB_FETCH_TIMEOUT.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// RemoteRoles lets a repo's base/share remote classification be pinned
	// explicitly, bypassing the resolver in §4.2 (useful when a repo's
	// remote names don't fit any of the conventional patterns).
	RemoteRoles map[string]RemoteRoleOverride `yaml:"remote_roles"`

	// GitHub configures optional open-PR detection for the status view's
	// base section. A zero value disables detection entirely; arb never
	// makes an anonymous GitHub API call it wasn't asked to.
	GitHub GitHubConfig `yaml:"github"`
}

// GitHubConfig authenticates arb's GitHub App installation for detecting an
// open pull request against a repo's base remote (spec §4 DOMAIN STACK).
type GitHubConfig struct {
	AppID          int64  `yaml:"app_id"`
	InstallationID int64  `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
	Token          string `yaml:"token"`
}

// Enabled reports whether enough credentials are present to attempt PR
// detection at all.
func (g GitHubConfig) Enabled() bool {
	return g.Token != "" || (g.AppID != 0 && g.InstallationID != 0 && g.PrivateKeyPath != "")
}

// RemoteRoleOverride pins the base/share remote names for one canonical repo.
type RemoteRoleOverride struct {
	Base  string `yaml:"base"`
	Share string `yaml:"share"`
}

const rootConfigRelPath = ".arb/config.yaml"

// DefaultFetchTimeout is used when neither .arb/config.yaml nor
// ARB_FETCH_TIMEOUT set an override.
const DefaultFetchTimeout = 120 * time.Second

// LoadRootConfig reads <root>/.arb/config.yaml. A missing file yields the
// zero-value config (all built-in defaults apply), not an error.
func LoadRootConfig(root string) (RootConfig, error) {
	path := filepath.Join(root, rootConfigRelPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RootConfig{}, nil
		}
		return RootConfig{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg RootConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RootConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// EffectiveFetchTimeout resolves the fetch deadline honoring the precedence
// ARB_FETCH_TIMEOUT env var > .arb/config.yaml > built-in default (§6).
func (rc RootConfig) EffectiveFetchTimeout(envSeconds string) time.Duration {
	if envSeconds != "" {
		if d, err := time.ParseDuration(envSeconds + "s"); err == nil && d > 0 {
			return d
		}
	}
	if rc.FetchTimeout > 0 {
		return rc.FetchTimeout
	}
	return DefaultFetchTimeout
}
