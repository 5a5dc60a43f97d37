package repostatus

import (
	"context"
	"time"

	"github.com/arborist-dev/arb/internal/gitrun"
)

// gatherLastCommit implements §4.3(e).
func gatherLastCommit(ctx context.Context, worktreeDir string) *time.Time {
	res, err := gitrun.Git(ctx, worktreeDir, "log", "-1", "--format=%cI")
	if err != nil || !res.Ok() || res.Stdout == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, res.Stdout)
	if err != nil {
		return nil
	}
	return &t
}
