// Package fetcher runs parallel `git fetch` across canonical repos with a
// shared deadline and progress reporting (spec §4.5).
package fetcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/arborist-dev/arb/internal/gitrun"
)

// DefaultTimeout is used when callers don't override it (ARB_FETCH_TIMEOUT
// or arbroot.RootConfig.FetchTimeout take precedence when set).
const DefaultTimeout = 120 * time.Second

// Target is one (canonical repo, remote) pair to fetch.
type Target struct {
	Name       string // repo name, for progress/reporting
	RepoDir    string
	Remote     string
	BaseRemote string // when equal to Remote, set-head --auto runs after fetch
}

// Result is the outcome of fetching every remote for one repo.
type Result struct {
	Name     string
	ExitCode int
	Output   string // concatenated stderr across the repo's fetch calls
	TimedOut bool
}

// Options controls fetch behavior.
type Options struct {
	Silent  bool
	Timeout time.Duration // 0 means DefaultTimeout
}

// Run fetches every target concurrently, grouped by repo so that a repo's
// `git remote set-head --auto` only runs once all its fetches succeed. A
// single shared deadline aborts any fetch still running when it elapses;
// timed-out results report ExitCode 124. Output is written to stderr.
func Run(ctx context.Context, targets []Target, opts Options) []Result {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	byRepo := groupByRepo(targets)
	names := make([]string, 0, len(byRepo))
	for name := range byRepo {
		names = append(names, name)
	}

	results := make(chan Result, len(byRepo))
	var wg sync.WaitGroup
	var doneCount int32
	isTTY := !opts.Silent && isatty.IsTerminal(os.Stderr.Fd())

	for _, name := range names {
		name := name
		repoTargets := byRepo[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- fetchRepo(ctx, name, repoTargets)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Result, 0, len(byRepo))
	total := len(byRepo)
	for r := range results {
		out = append(out, r)
		doneCount++
		if isTTY {
			fmt.Fprintf(os.Stderr, "\rfetching: %d/%d", doneCount, total)
		}
	}
	if isTTY && total > 0 {
		fmt.Fprintln(os.Stderr)
	}

	return out
}

func groupByRepo(targets []Target) map[string][]Target {
	byRepo := make(map[string][]Target)
	for _, t := range targets {
		byRepo[t.Name] = append(byRepo[t.Name], t)
	}
	return byRepo
}

func fetchRepo(ctx context.Context, name string, targets []Target) Result {
	result := Result{Name: name}
	var output string
	baseRemote := ""

	for _, t := range targets {
		if t.Remote == t.BaseRemote {
			baseRemote = t.BaseRemote
		}

		res, err := gitrun.Git(ctx, t.RepoDir, "fetch", "--prune", t.Remote)
		if ctx.Err() != nil {
			result.TimedOut = true
			result.ExitCode = 124
			result.Output = "fetch timed out"
			return result
		}
		if err != nil {
			result.ExitCode = 1
			output += err.Error() + "\n"
			continue
		}
		if !res.Ok() {
			result.ExitCode = res.ExitCode
		}
		if res.Stderr != "" {
			output += res.Stderr + "\n"
		}
	}

	result.Output = output

	if result.ExitCode == 0 && baseRemote != "" {
		// Best-effort: refresh the default-branch symref. Failure here
		// doesn't change the fetch's reported outcome.
		_, _ = gitrun.Git(ctx, targets[0].RepoDir, "remote", "set-head", baseRemote, "--auto")
	}

	return result
}
