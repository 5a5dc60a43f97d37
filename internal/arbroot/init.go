package arbroot

import (
	"fmt"
	"os"
	"path/filepath"
)

// InitRoot creates the arb root layout at dir: .arb/, .arb/.gitignore,
// .arb/repos/. It is an error for dir to already be an arb root.
func InitRoot(dir string) error {
	marker := filepath.Join(dir, ".arb")
	if info, err := os.Stat(marker); err == nil && info.IsDir() {
		return fmt.Errorf("%s is already an arb root (%s exists)", dir, marker)
	}

	reposDir := filepath.Join(marker, "repos")
	if err := os.MkdirAll(reposDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", reposDir, err)
	}

	gitignore := filepath.Join(marker, ".gitignore")
	if err := os.WriteFile(gitignore, []byte("repos/\n"), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", gitignore, err)
	}

	return nil
}
