// Package plan implements the shared plan → confirm → execute pipeline used
// by every mutating command (spec §4.7): two-phase rendering around a
// parallel fetch, a confirmation gate, and sequential per-repo execution
// with consolidated conflict reporting.
package plan

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/arborist-dev/arb/internal/fetcher"
)

// Outcome classifies a single repo's planned action.
type Outcome string

const (
	OutcomeWill     Outcome = "will" // will-<verb>; Verb carries the specific label
	OutcomeUpToDate Outcome = "up-to-date"
	OutcomeSkip     Outcome = "skip"
)

// Row is one repo's classification for the current command.
type Row struct {
	Repo       string
	RepoDir    string
	Outcome    Outcome
	Verb       string // e.g. "push", "rebase", "force-push"; meaningful when Outcome == OutcomeWill
	SkipReason string
	SkipFlag   string
	HeadSHA    string

	ConflictPrediction string // "conflict" | "clean" | ""
	ConflictCommits    []string
	NeedsStash         bool
	StashPopConflicts  []string

	// Extra carries verb-specific fields (e.g. recreate/newBranch for push,
	// retarget metadata for rebase) without forcing every caller to agree on
	// one struct shape.
	Extra map[string]any
}

// changeHash returns a stable hash of the fields a re-render should compare
// against to decide whether a row actually changed between the stale and
// fresh passes, ignoring fields that are expected to differ incidentally.
func (r Row) changeHash() (uint64, error) {
	return hashstructure.Hash(struct {
		Outcome    Outcome
		Verb       string
		SkipReason string
		HeadSHA    string
	}{r.Outcome, r.Verb, r.SkipReason, r.HeadSHA}, hashstructure.FormatV2, nil)
}

// Params bundles the callbacks that specialize the pipeline for one command
// (pull, push, rebase, merge, delete, detach, branch rename, attach).
type Params struct {
	// Assess classifies every selected repo given the set of repo names
	// whose fetch failed (empty on the pre-fetch pass).
	Assess func(fetchFailed map[string]bool) []Row
	// PostAssess runs conflict prediction / autostash planning in place.
	PostAssess func(rows []Row)
	// FormatPlan renders rows as the plan text written to stderr.
	FormatPlan func(rows []Row) string

	// ShouldFetch / FetchTargets describe the fetch policy; a nil/empty
	// FetchTargets means no fetch runs regardless of ShouldFetch.
	// FetchTimeout overrides fetcher.DefaultTimeout when non-zero (spec §6's
	// ARB_FETCH_TIMEOUT / .arb/config.yaml precedence).
	ShouldFetch  bool
	FetchTimeout time.Duration
	FetchTargets []fetcher.Target

	// Execute runs the mutation for one will-<verb> row.
	Execute func(ctx context.Context, row Row) Result

	// Yes/Force/DryRun mirror the shared mutation flags (spec §6).
	Yes    bool
	Force  bool
	DryRun bool

	Verb string // used in the "Nothing to <verb>" message
}

// Result is what Execute reports for one row.
type Result struct {
	Succeeded bool
	Conflict  bool
	Message   string
}

// Outcome of a full pipeline run, for callers that need an exit code.
type Summary struct {
	Succeeded  int
	Conflicted int
	UpToDate   int
	Skipped    int
	Aborted    bool
}

// ExitCode maps a Summary to the process exit code per spec §6.
func (s Summary) ExitCode() int {
	if s.Aborted {
		return 130
	}
	if s.Conflicted > 0 {
		return 1
	}
	return 0
}

// Run executes the full plan → confirm → execute algorithm described in
// spec §4.7.
func Run(ctx context.Context, p Params) Summary {
	isTTY := isatty.IsTerminal(os.Stderr.Fd())

	var rows []Row
	if p.ShouldFetch && len(p.FetchTargets) > 0 && isTTY {
		rows = runFetchWithStaleRender(ctx, p)
	} else if p.ShouldFetch && len(p.FetchTargets) > 0 {
		rows = runFetchVisible(ctx, p)
	} else {
		rows = p.Assess(nil)
		p.PostAssess(rows)
		fmt.Fprint(os.Stderr, p.FormatPlan(rows))
	}

	anyWill := false
	for _, r := range rows {
		if r.Outcome == OutcomeWill {
			anyWill = true
			break
		}
	}
	if !anyWill {
		fmt.Fprintf(os.Stderr, "Nothing to %s. All repos up to date.\n", p.Verb)
		return Summary{}
	}

	if p.DryRun {
		fmt.Fprintln(os.Stderr, "Dry run: no changes made.")
		return Summary{}
	}

	if !p.Yes && !p.Force {
		if !isTTY {
			fmt.Fprintln(os.Stderr, "Refusing to prompt on a non-interactive terminal; pass --yes to proceed.")
			return Summary{Aborted: true}
		}
		confirmed, err := confirm(fmt.Sprintf("Proceed with %s on %d repo(s)?", p.Verb, countWill(rows)))
		if err != nil || !confirmed {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return Summary{Aborted: true}
		}
	}

	return execute(ctx, p, rows)
}

func countWill(rows []Row) int {
	n := 0
	for _, r := range rows {
		if r.Outcome == OutcomeWill {
			n++
		}
	}
	return n
}

func confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Value(&ok).
		Run()
	return ok, err
}

// runFetchWithStaleRender implements the TTY two-phase branch: a stale plan
// is rendered immediately from a pre-fetch snapshot, then overwritten once
// the fetch completes and the plan is recomputed.
func runFetchWithStaleRender(ctx context.Context, p Params) []Row {
	fetchDone := make(chan []fetcher.Result, 1)
	go func() {
		fetchDone <- fetcher.Run(ctx, p.FetchTargets, fetcher.Options{Silent: true, Timeout: p.FetchTimeout})
	}()

	rows0 := p.Assess(nil)
	staleText := p.FormatPlan(rows0)
	fmt.Fprint(os.Stderr, staleText)
	fmt.Fprintln(os.Stderr, "Fetching…")

	results := <-fetchDone
	failed := failedRepos(results)

	rows1 := p.Assess(failed)
	p.PostAssess(rows1)

	clearLines(os.Stderr, strings.Count(staleText, "\n")+1)
	if rowsChanged(rows0, rows1) {
		fmt.Fprint(os.Stderr, p.FormatPlan(rows1))
	} else {
		fmt.Fprint(os.Stderr, staleText)
	}
	reportFetchFailures(results)

	return rows1
}

// rowsChanged reports whether the fetch altered any row's classification,
// so the fresh render can be skipped when the stale plan was already
// accurate (e.g. a repo with no remote activity since the last fetch).
func rowsChanged(before, after []Row) bool {
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		hb, errB := before[i].changeHash()
		ha, errA := after[i].changeHash()
		if errB != nil || errA != nil || hb != ha {
			return true
		}
	}
	return false
}

func runFetchVisible(ctx context.Context, p Params) []Row {
	results := fetcher.Run(ctx, p.FetchTargets, fetcher.Options{Silent: false, Timeout: p.FetchTimeout})
	failed := failedRepos(results)

	rows := p.Assess(failed)
	p.PostAssess(rows)
	fmt.Fprint(os.Stderr, p.FormatPlan(rows))
	reportFetchFailures(results)
	return rows
}

func failedRepos(results []fetcher.Result) map[string]bool {
	failed := make(map[string]bool)
	for _, r := range results {
		if r.ExitCode != 0 {
			failed[r.Name] = true
		}
	}
	return failed
}

func reportFetchFailures(results []fetcher.Result) {
	for _, r := range results {
		if r.ExitCode != 0 {
			fmt.Fprintf(os.Stderr, "warning: fetch failed for %s: %s\n", r.Name, strings.TrimSpace(r.Output))
		}
	}
}

// clearLines erases n lines already written to w by emitting ANSI
// cursor-up + erase-line sequences. w is assumed to be the same stream the
// stale plan was written to.
func clearLines(w *os.File, n int) {
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "\x1b[1A\x1b[2K")
	}
}

// execute runs every will-<verb> row sequentially, collecting conflicts
// without aborting the loop (spec §4.7).
func execute(ctx context.Context, p Params, rows []Row) Summary {
	var summary Summary
	var conflictLines []string

	for _, row := range rows {
		switch row.Outcome {
		case OutcomeUpToDate:
			summary.UpToDate++
			continue
		case OutcomeSkip:
			summary.Skipped++
			continue
		}

		inlineStart(row.Repo, row.Verb)
		result := p.Execute(ctx, row)
		inlineResult(row.Repo, result.Message)

		switch {
		case result.Conflict:
			summary.Conflicted++
			conflictLines = append(conflictLines, fmt.Sprintf("%s: %s", row.Repo, result.Message))
		case result.Succeeded:
			summary.Succeeded++
		default:
			summary.Skipped++
		}
	}

	if len(conflictLines) > 0 {
		fmt.Fprintln(os.Stderr, "\nConflicts:")
		for _, line := range conflictLines {
			fmt.Fprintln(os.Stderr, "  "+line)
		}
	}

	fmt.Fprintf(os.Stderr, "\n%d succeeded, %d conflicted, %d up-to-date, %d skipped\n",
		summary.Succeeded, summary.Conflicted, summary.UpToDate, summary.Skipped)

	return summary
}

func inlineStart(repo, verb string) {
	fmt.Fprintf(os.Stderr, "%s: %s... ", repo, verb)
}

func inlineResult(repo, message string) {
	fmt.Fprintln(os.Stderr, message)
}

// ReadLine is a small helper for callers building their own confirm prompts
// outside of huh (e.g. when a non-TTY caller still wants to read a
// scripted "y\n" from stdin in a test harness).
func ReadLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	return strings.TrimSpace(line), err
}
