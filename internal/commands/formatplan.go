package commands

import (
	"fmt"
	"strings"

	"github.com/arborist-dev/arb/internal/plan"
)

// formatPlanRows renders a plan's rows as the per-repo plan text written to
// stderr ahead of the confirmation prompt.
func formatPlanRows(rows []plan.Row) string {
	var b strings.Builder
	for _, r := range rows {
		switch r.Outcome {
		case plan.OutcomeWill:
			fmt.Fprintf(&b, "  %-20s %s\n", r.Repo, passStyle.Render("will "+r.Verb))
			if r.ConflictPrediction == "conflict" {
				fmt.Fprintf(&b, "  %-20s %s\n", "", failStyle.Render(fmt.Sprintf("conflict predicted (%d commit(s))", len(r.ConflictCommits))))
			}
		case plan.OutcomeUpToDate:
			fmt.Fprintf(&b, "  %-20s %s\n", r.Repo, hintStyle.Render("up to date"))
		case plan.OutcomeSkip:
			fmt.Fprintf(&b, "  %-20s %s\n", r.Repo, hintStyle.Render("skip: "+r.SkipReason))
		}
	}
	return b.String()
}
