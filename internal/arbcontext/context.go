// Package arbcontext holds the small, invocation-scoped handle that every
// other arb component is threaded through: the resolved arb root, the
// canonical repos directory, and (when applicable) the current workspace.
// It is created once per process invocation and never mutated concurrently.
package arbcontext

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Context is the per-invocation anchor. All other state in arb is
// request-scoped, computed on demand, and discarded at process exit.
type Context struct {
	// Root is the absolute path to the directory containing .arb/.
	Root string
	// ReposDir is Root/.arb/repos.
	ReposDir string
	// Workspace is the resolved current workspace name, or "" if the
	// invocation is not scoped to one (e.g. run from the arb root itself).
	Workspace string
	// Debug records whether ARB_DEBUG=1 or --debug was given. No other
	// component reads it; there is no extra debug output.
	Debug bool
}

const arbMarkerDir = ".arb"
const workspaceMarkerDir = ".arbws"

// DiscoverRoot walks upward from dir looking for a child .arb/ directory.
// An empty dir means the current working directory.
func DiscoverRoot(dir string) (string, error) {
	start := dir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		start = wd
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	cur := abs
	for {
		candidate := filepath.Join(cur, arbMarkerDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}

	return "", fmt.Errorf("no %s directory found in %q or any parent", arbMarkerDir, abs)
}

// DiscoverWorkspace returns the workspace name containing dir, if dir is at
// or under <root>/<workspace>/ and that workspace has a .arbws/ marker.
// Returns ("", false) when dir is not inside any workspace (e.g. it is the
// arb root itself, or a canonical repo under .arb/repos/).
func DiscoverWorkspace(root, dir string) (string, bool) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", false
	}
	if rel == "." || rel == arbMarkerDir || strings.HasPrefix(rel, arbMarkerDir+string(filepath.Separator)) {
		return "", false
	}

	parts := splitFirst(rel)
	wsName := parts[0]
	if wsName == "" || wsName == ".." {
		return "", false
	}

	marker := filepath.Join(root, wsName, workspaceMarkerDir)
	if info, err := os.Stat(marker); err != nil || !info.IsDir() {
		return "", false
	}
	return wsName, true
}

func splitFirst(rel string) []string {
	rel = filepath.ToSlash(rel)
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' {
			return []string{rel[:i], rel[i+1:]}
		}
	}
	return []string{rel}
}

// New resolves a full Context starting from dir (empty means cwd).
func New(dir string, debug bool) (*Context, error) {
	root, err := DiscoverRoot(dir)
	if err != nil {
		return nil, err
	}

	start := dir
	if start == "" {
		start, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
	}
	absStart, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	ws, _ := DiscoverWorkspace(root, absStart)

	return &Context{
		Root:      root,
		ReposDir:  filepath.Join(root, arbMarkerDir, "repos"),
		Workspace: ws,
		Debug:     debug,
	}, nil
}

// WorkspaceDir returns the absolute path to the named workspace.
func (c *Context) WorkspaceDir(name string) string {
	return filepath.Join(c.Root, name)
}

// RepoDir returns the absolute path to a canonical repo clone.
func (c *Context) RepoDir(name string) string {
	return filepath.Join(c.ReposDir, name)
}

// WorktreeDir returns the absolute path to a repo's worktree inside a
// workspace.
func (c *Context) WorktreeDir(workspace, repo string) string {
	return filepath.Join(c.WorkspaceDir(workspace), repo)
}
