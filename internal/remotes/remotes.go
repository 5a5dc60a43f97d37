// Package remotes classifies a canonical repo's git remotes into the two
// roles arb cares about: base (integration target) and share (where the
// feature branch is published). See spec §4.2.
package remotes

import (
	"context"
	"fmt"
	"strings"

	"github.com/arborist-dev/arb/internal/gitrun"
	"github.com/arborist-dev/arb/internal/reqcache"
)

// Roles is the resolved {base, share} classification of a repo's remotes.
type Roles struct {
	Base  string
	Share string
}

// Resolve classifies the remotes configured in repoDir. overrides, when
// non-nil with both Base and Share set, pins the roles explicitly (from
// .arb/config.yaml's remote_roles) and bypasses all heuristics below; an
// override with either role empty is ignored. cache, when non-nil, memoises the
// result per repoDir for the lifetime of one command invocation (spec
// §4.6), so pull/push/rebase/merge's pre-fetch and post-fetch assess
// passes don't re-run the same `git remote` probes.
func Resolve(ctx context.Context, repoDir string, overrides *Roles, cache *reqcache.Cache) (Roles, error) {
	if overrides != nil && overrides.Base != "" && overrides.Share != "" {
		return *overrides, nil
	}
	if cache == nil {
		return resolve(ctx, repoDir)
	}
	return reqcache.Get(cache, reqcache.ResolvedRemotesKey(repoDir), func(ctx context.Context) (Roles, error) {
		return resolve(ctx, repoDir)
	})(ctx)
}

func resolve(ctx context.Context, repoDir string) (Roles, error) {
	names, err := remoteNames(ctx, repoDir)
	if err != nil {
		return Roles{}, err
	}

	if len(names) == 0 {
		return Roles{}, fmt.Errorf("repo %s has no remotes configured", repoDir)
	}

	// 1. Exactly one remote → both roles.
	if len(names) == 1 {
		return Roles{Base: names[0], Share: names[0]}, nil
	}

	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}

	// 2. remote.pushDefault set and present.
	if pushDefault, ok := configValue(ctx, repoDir, "remote.pushDefault"); ok && set[pushDefault] {
		others := without(names, pushDefault)
		switch {
		case len(others) == 1:
			return Roles{Base: others[0], Share: pushDefault}, nil
		case set["upstream"] && pushDefault != "upstream":
			return Roles{Base: "upstream", Share: pushDefault}, nil
		default:
			return Roles{}, fmt.Errorf(
				"ambiguous remotes for %s: pushDefault=%s set but base remote cannot be determined among %v",
				repoDir, pushDefault, names)
		}
	}

	// 3. Exactly {upstream, origin}.
	if len(names) == 2 && set["upstream"] && set["origin"] {
		return Roles{Base: "upstream", Share: "origin"}, nil
	}

	// 4. Two remotes, one is origin, no pushDefault, other isn't upstream.
	if len(names) == 2 && set["origin"] {
		other := without(names, "origin")[0]
		if other != "upstream" {
			return Roles{}, fmt.Errorf(
				"ambiguous remotes %v for %s: set remote.pushDefault to disambiguate, e.g. `git config remote.pushDefault %s`",
				names, repoDir, "origin")
		}
	}

	// 5. Any other ambiguity.
	return Roles{}, fmt.Errorf("ambiguous remotes %v for %s: configure remote.pushDefault to disambiguate", names, repoDir)
}

func remoteNames(ctx context.Context, repoDir string) ([]string, error) {
	res, err := gitrun.Git(ctx, repoDir, "remote")
	if err != nil {
		return nil, fmt.Errorf("listing remotes for %s: %w", repoDir, err)
	}
	if !res.Ok() {
		return nil, fmt.Errorf("listing remotes for %s: %s", repoDir, res.Stderr)
	}
	return gitrun.Lines(res.Stdout), nil
}

func configValue(ctx context.Context, repoDir, key string) (string, bool) {
	res, err := gitrun.Git(ctx, repoDir, "config", "--get", key)
	if err != nil || !res.Ok() {
		return "", false
	}
	v := strings.TrimSpace(res.Stdout)
	return v, v != ""
}

func without(names []string, exclude string) []string {
	out := make([]string, 0, len(names)-1)
	for _, n := range names {
		if n != exclude {
			out = append(out, n)
		}
	}
	return out
}
