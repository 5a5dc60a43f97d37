package repostatus

import "testing"

func TestParseFilter_UnknownTermErrors(t *testing.T) {
	if _, err := ParseFilter("bogus"); err == nil {
		t.Fatal("expected error for unknown term")
	}
}

func TestParseFilter_EmptyMatchesEverything(t *testing.T) {
	f, err := ParseFilter("")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if !f.Match(Flags{}) {
		t.Error("empty filter should match any repo")
	}
}

func TestFilter_SingleTerm(t *testing.T) {
	f, err := ParseFilter("dirty")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if !f.Match(Flags{IsDirty: true}) {
		t.Error("expected match on dirty repo")
	}
	if f.Match(Flags{}) {
		t.Error("expected no match on clean repo")
	}
}

func TestFilter_Negation(t *testing.T) {
	f, err := ParseFilter("^dirty")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if f.Match(Flags{IsDirty: true}) {
		t.Error("^dirty should not match a dirty repo")
	}
	if !f.Match(Flags{}) {
		t.Error("^dirty should match a clean repo")
	}
}

func TestFilter_ConjunctionBindsTighterThanDisjunction(t *testing.T) {
	// "dirty+unpushed,detached" = (dirty AND unpushed) OR detached
	f, err := ParseFilter("dirty+unpushed,detached")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if !f.Match(Flags{IsDirty: true, IsUnpushed: true}) {
		t.Error("expected match: dirty+unpushed conjunct satisfied")
	}
	if !f.Match(Flags{IsDetached: true}) {
		t.Error("expected match: detached disjunct satisfied")
	}
	if f.Match(Flags{IsDirty: true}) {
		t.Error("dirty alone should not satisfy dirty+unpushed")
	}
	if f.Match(Flags{}) {
		t.Error("no flags set should not match")
	}
}

func TestFilter_NegationAliases(t *testing.T) {
	clean, err := ParseFilter("clean")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if !clean.Match(Flags{}) || clean.Match(Flags{IsDirty: true}) {
		t.Error("clean should be the negation of dirty")
	}

	safe, err := ParseFilter("safe")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if !safe.Match(Flags{}) || safe.Match(Flags{IsDetached: true}) {
		t.Error("safe should be the negation of wouldLoseWork")
	}

	synced, err := ParseFilter("synced")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if !synced.Match(Flags{}) {
		t.Error("synced should match a repo with no pull/rebase needs")
	}
	if synced.Match(Flags{NeedsPull: true}) {
		t.Error("synced should not match a repo needing a pull")
	}
}

func TestFilter_AtRiskAlias(t *testing.T) {
	f, err := ParseFilter("at-risk")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if !f.Match(Flags{IsGone: true}) {
		t.Error("at-risk should match a repo whose share ref is gone")
	}
	if f.Match(Flags{}) {
		t.Error("at-risk should not match a repo needing no attention")
	}
}

func TestFilter_WhitespaceTolerant(t *testing.T) {
	f, err := ParseFilter(" dirty + unpushed , detached ")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if !f.Match(Flags{IsDetached: true}) {
		t.Error("expected whitespace around operators to be tolerated")
	}
}
