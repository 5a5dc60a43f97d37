package repostatus

import (
	"fmt"
	"strings"
)

// Filter is a parsed --where expression: a disjunction of conjunctions of
// (possibly negated) terms (spec §4.3 "Filter mini-language").
type Filter struct {
	disjuncts [][]term
}

type term struct {
	name     string
	negate   bool
	evaluate func(Flags) bool
}

// recognised maps every term name accepted by the grammar to its evaluator.
// Positive terms read a flag directly; negative-alias terms ("clean",
// "pushed", "synced-base", "synced-share", "synced", "safe") are the
// documented negations of their matching base terms, so their evaluator is
// just the inverse of the positive one.
var recognised = map[string]func(Flags) bool{
	"dirty":        func(f Flags) bool { return f.IsDirty },
	"unpushed":     func(f Flags) bool { return f.IsUnpushed },
	"behind-share": func(f Flags) bool { return f.NeedsPull },
	"behind-base":  func(f Flags) bool { return f.NeedsRebase },
	"diverged":     func(f Flags) bool { return f.IsDiverged },
	"drifted":      func(f Flags) bool { return f.IsDrifted },
	"detached":     func(f Flags) bool { return f.IsDetached },
	"operation":    func(f Flags) bool { return f.HasOperation },
	"local":        func(f Flags) bool { return f.IsLocal },
	"gone":         func(f Flags) bool { return f.IsGone },
	"shallow":      func(f Flags) bool { return f.IsShallow },
	"merged":       func(f Flags) bool { return f.IsMerged },
	"base-merged":  func(f Flags) bool { return f.IsBaseMerged },

	"at-risk": needsAttention,
	"stale":   needsAttention, // alias: needsAttention

	"clean":        func(f Flags) bool { return !f.IsDirty },
	"pushed":       func(f Flags) bool { return !f.IsUnpushed },
	"synced-base":  func(f Flags) bool { return !f.NeedsRebase },
	"synced-share": func(f Flags) bool { return !f.NeedsPull },
	"synced":       func(f Flags) bool { return !f.NeedsPull && !f.NeedsRebase },
	"safe":         func(f Flags) bool { return !WouldLoseWork(f) },
}

// needsAttention is the union flag underlying the "at-risk"/"stale" alias:
// any condition a workspace summary would flag for the user's attention.
func needsAttention(f Flags) bool {
	return f.IsDirty || f.IsUnpushed || f.NeedsPull || f.NeedsRebase ||
		f.IsDiverged || f.IsDrifted || f.IsDetached || f.HasOperation || f.IsGone
}

// ParseFilter parses a --where expression per the grammar:
//
//	filter   = disjunct ("," disjunct)*
//	disjunct = conjunct ("+" conjunct)*
//	conjunct = "^"? term
//
// "+" binds tighter than ",". Unknown terms produce an error listing the
// valid term names.
func ParseFilter(expr string) (Filter, error) {
	var f Filter
	for _, rawDisjunct := range strings.Split(expr, ",") {
		rawDisjunct = strings.TrimSpace(rawDisjunct)
		if rawDisjunct == "" {
			continue
		}
		var conjunct []term
		for _, rawTerm := range strings.Split(rawDisjunct, "+") {
			rawTerm = strings.TrimSpace(rawTerm)
			if rawTerm == "" {
				continue
			}
			t, err := parseTerm(rawTerm)
			if err != nil {
				return Filter{}, err
			}
			conjunct = append(conjunct, t)
		}
		if len(conjunct) > 0 {
			f.disjuncts = append(f.disjuncts, conjunct)
		}
	}
	return f, nil
}

func parseTerm(raw string) (term, error) {
	negate := false
	name := raw
	if after, ok := strings.CutPrefix(raw, "^"); ok {
		negate = true
		name = after
	}

	eval, ok := recognised[name]
	if !ok {
		return term{}, fmt.Errorf("unknown filter term %q; valid terms: %s", name, validTermNames())
	}
	return term{name: name, negate: negate, evaluate: eval}, nil
}

func validTermNames() string {
	names := []string{
		"dirty", "unpushed", "behind-share", "behind-base", "diverged", "drifted",
		"detached", "operation", "local", "gone", "shallow", "merged", "base-merged",
		"at-risk", "stale", "clean", "pushed", "synced-base", "synced-share", "synced", "safe",
	}
	return strings.Join(names, ", ")
}

// Match reports whether a repo's flags satisfy the filter: a repo matches
// iff any disjunct is fully satisfied, and evaluation short-circuits on the
// first unsatisfied term within a conjunct and the first satisfied disjunct.
func (f Filter) Match(flags Flags) bool {
	if len(f.disjuncts) == 0 {
		return true
	}
	for _, conjunct := range f.disjuncts {
		if allSatisfy(conjunct, flags) {
			return true
		}
	}
	return false
}

func allSatisfy(conjunct []term, flags Flags) bool {
	for _, t := range conjunct {
		got := t.evaluate(flags)
		if t.negate {
			got = !got
		}
		if !got {
			return false
		}
	}
	return true
}
