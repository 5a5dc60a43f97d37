package repostatus

import (
	"context"
	"strings"

	"github.com/arborist-dev/arb/internal/gitrun"
)

var conflictCodes = map[string]bool{
	"DD": true, "AU": true, "UD": true, "UA": true,
	"DU": true, "AA": true, "UU": true,
}

// gatherLocal parses `git status --porcelain=v1 -z` into working-tree
// counts (spec §4.3b). NUL-delimited parsing is required: filenames can
// contain embedded newlines that the line-oriented format would mis-split.
func gatherLocal(ctx context.Context, worktreeDir string) Local {
	var local Local

	res, err := gitrun.Git(ctx, worktreeDir, "status", "--porcelain=v1", "-z")
	if err != nil || !res.Ok() {
		return local // downgrade to zero counts per §7
	}

	entries := splitNUL(res.Stdout)
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 3 {
			continue
		}
		x, y := entry[0], entry[1]
		path := entry[3:]

		code := string([]byte{x, y})
		switch {
		case conflictCodes[code]:
			local.Conflicts++
			local.ConflictFiles = append(local.ConflictFiles, path)
		case x == '?' && y == '?':
			local.Untracked++
			local.UntrackedFiles = append(local.UntrackedFiles, path)
		default:
			if isStagedCode(x) {
				local.Staged++
				local.StagedFiles = append(local.StagedFiles, path)
			}
			if y == 'M' || y == 'D' {
				local.Modified++
				local.ModifiedFiles = append(local.ModifiedFiles, path)
			}
		}

		// Renames (R) and copies (C) carry a second NUL-delimited field
		// (the original path) immediately after the entry.
		if x == 'R' || x == 'C' {
			i++
		}
	}

	return local
}

func isStagedCode(x byte) bool {
	switch x {
	case 'M', 'A', 'D', 'R', 'C':
		return true
	default:
		return false
	}
}

// splitNUL splits NUL-delimited git output, dropping the trailing empty
// element left by the final terminator (gitrun.Git has already trimmed
// surrounding whitespace, not embedded NULs).
func splitNUL(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "\x00")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
