package puzzle

import "testing"

func TestHasTheme(t *testing.T) {
	rec := Record{Themes: []string{"fork", "mateIn2", "short"}}
	if !rec.HasTheme("fork") {
		t.Fatalf("expected fork theme")
	}
	if !rec.HasTheme("matein2") {
		t.Fatalf("theme match should be case-insensitive")
	}
	if rec.HasTheme("pin") {
		t.Fatalf("unexpected pin theme")
	}
}

func TestCriteriaMatches(t *testing.T) {
	crit := Criteria{Theme: "fork", MinRating: 800, MaxRating: 1400}
	cases := []struct {
		rec  Record
		want bool
	}{
		{Record{Rating: 1000, Themes: []string{"fork"}}, true},
		{Record{Rating: 800, Themes: []string{"fork"}}, true},
		{Record{Rating: 1400, Themes: []string{"fork"}}, true},
		{Record{Rating: 799, Themes: []string{"fork"}}, false},
		{Record{Rating: 1401, Themes: []string{"fork"}}, false},
		{Record{Rating: 1000, Themes: []string{"pin"}}, false},
	}
	for i, tc := range cases {
		if got := crit.Matches(tc.rec); got != tc.want {
			t.Fatalf("case %d: Matches(%+v) = %v, want %v", i, tc.rec, got, tc.want)
		}
	}
}

func TestTrainingURL(t *testing.T) {
	withURL := Record{ID: "abc", GameURL: "https://lichess.org/xyz#12"}
	if got := withURL.TrainingURL(); got != "https://lichess.org/xyz#12" {
		t.Fatalf("TrainingURL = %q", got)
	}
	withoutURL := Record{ID: "abc"}
	if got := withoutURL.TrainingURL(); got != "https://lichess.org/training/abc" {
		t.Fatalf("TrainingURL fallback = %q", got)
	}
}
