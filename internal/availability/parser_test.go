package availability_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"preisvergleich/offers-service/internal/availability"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ── Empty input ────────────────────────────────────────────────────────────

func TestParse_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n "} {
		got := availability.Parse(raw, date(2025, time.June, 1))
		if !got.Available {
			t.Errorf("Parse(%q).Available = false, want true", raw)
		}
		if got.NormalizedText != nil {
			t.Errorf("Parse(%q).NormalizedText = %q, want nil", raw, *got.NormalizedText)
		}
		if got.ValidUntil != nil {
			t.Errorf("Parse(%q).ValidUntil = %v, want nil", raw, *got.ValidUntil)
		}
	}
}

// ── Negative keywords ──────────────────────────────────────────────────────

func TestParse_NegativeKeywords(t *testing.T) {
	cases := []string{
		"ausverkauft",
		"Ausverkauft",
		"AUSVERKAUFT",
		"nicht verfügbar",
		"Nicht Verfügbar",
		"vergriffen",
		"nicht lieferbar",
		"Leider ausverkauft!",
		"Online nicht verfügbar, nur in der Filiale",
	}
	for _, raw := range cases {
		got := availability.Parse(raw, date(2025, time.June, 1))
		if got.Available {
			t.Errorf("Parse(%q).Available = true, want false", raw)
		}
		if got.ValidUntil != nil {
			t.Errorf("Parse(%q).ValidUntil = %v, want nil", raw, *got.ValidUntil)
		}
		if got.NormalizedText == nil || *got.NormalizedText != raw {
			t.Errorf("Parse(%q).NormalizedText = %v, want original text", raw, got.NormalizedText)
		}
	}
}

// Negative keywords beat any date present in the same string.
func TestParse_KeywordBeatsDate(t *testing.T) {
	got := availability.Parse("ausverkauft, gültig bis 31.12.2030", date(2025, time.June, 1))
	if got.Available {
		t.Error("Available = true, want false (keyword precedence)")
	}
	if got.ValidUntil != nil {
		t.Errorf("ValidUntil = %v, want nil (keyword precedence)", *got.ValidUntil)
	}
}

// "verfügbar" on its own is positive — only the full phrase
// "nicht verfügbar" is in the vocabulary.
func TestParse_PositiveVerfuegbar(t *testing.T) {
	for _, raw := range []string{"sofort verfügbar", "Regulär verfügbar", "nur online"} {
		got := availability.Parse(raw, date(2025, time.June, 1))
		if !got.Available {
			t.Errorf("Parse(%q).Available = false, want true", raw)
		}
		if got.ValidUntil != nil {
			t.Errorf("Parse(%q).ValidUntil = %v, want nil", raw, *got.ValidUntil)
		}
	}
}

// ── Explicit years ─────────────────────────────────────────────────────────

func TestParse_ExplicitYear(t *testing.T) {
	cases := []struct {
		raw           string
		ref           time.Time
		wantAvailable bool
		wantUntil     time.Time
	}{
		{"Verfügbar bis 31.12.2024", date(2024, time.June, 1), true, date(2024, time.December, 31)},
		{"Verfügbar bis 31.12.2024", date(2025, time.June, 1), false, date(2024, time.December, 31)},
		{"Gültig bis 01.01.2030", date(2025, time.June, 1), true, date(2030, time.January, 1)},
	}
	for _, c := range cases {
		got := availability.Parse(c.raw, c.ref)
		if got.Available != c.wantAvailable {
			t.Errorf("Parse(%q, %s).Available = %v, want %v",
				c.raw, c.ref.Format("2006-01-02"), got.Available, c.wantAvailable)
		}
		if got.ValidUntil == nil || !got.ValidUntil.Equal(c.wantUntil) {
			t.Errorf("Parse(%q, %s).ValidUntil = %v, want %s",
				c.raw, c.ref.Format("2006-01-02"), got.ValidUntil, c.wantUntil.Format("2006-01-02"))
		}
	}
}

// ── Year inference ─────────────────────────────────────────────────────────

// A year-less date more than 30 days in the past rolls forward one year;
// otherwise it stays in the reference year.
func TestParse_YearRollover(t *testing.T) {
	// December crawl seeing a January offer date → next year.
	got := availability.Parse("nur bis 02.01.", date(2024, time.December, 15))
	if got.ValidUntil == nil || !got.ValidUntil.Equal(date(2025, time.January, 2)) {
		t.Errorf("ValidUntil = %v, want 2025-01-02", got.ValidUntil)
	}
	if !got.Available {
		t.Error("Available = false, want true (offer runs into next January)")
	}

	// Same text in January resolves within the current year and has lapsed.
	got = availability.Parse("nur bis 02.01.", date(2024, time.January, 15))
	if got.ValidUntil == nil || !got.ValidUntil.Equal(date(2024, time.January, 2)) {
		t.Errorf("ValidUntil = %v, want 2024-01-02", got.ValidUntil)
	}
	if got.Available {
		t.Error("Available = true, want false (end date 13 days ago)")
	}
}

// ── Ranges ─────────────────────────────────────────────────────────────────

// The latest date wins, so "A - B" yields B with no range syntax handling.
func TestParse_RangeLatestWins(t *testing.T) {
	for _, raw := range []string{"07.07. - 12.07.", "nur in der Filiale 07.07. - 12.07."} {
		got := availability.Parse(raw, date(2025, time.June, 1))
		if got.ValidUntil == nil || !got.ValidUntil.Equal(date(2025, time.July, 12)) {
			t.Errorf("Parse(%q).ValidUntil = %v, want 2025-07-12", raw, got.ValidUntil)
		}
		if !got.Available {
			t.Errorf("Parse(%q).Available = false, want true", raw)
		}
	}
}

// ── Past dates ─────────────────────────────────────────────────────────────

// An end date that resolves to the recent past marks the offer
// unavailable immediately — not deferred to the cleanup engine.
func TestParse_PastDateImmediacy(t *testing.T) {
	got := availability.Parse("Angebot gültig 05.05. - 10.05.", date(2025, time.June, 1))
	if got.Available {
		t.Error("Available = true, want false (range ended three weeks ago)")
	}
	if got.ValidUntil == nil || !got.ValidUntil.Equal(date(2025, time.May, 10)) {
		t.Errorf("ValidUntil = %v, want 2025-05-10", got.ValidUntil)
	}

	got = availability.Parse("Angebot gültig 01.01.2025 - 05.01.2025", date(2025, time.June, 1))
	if got.Available {
		t.Error("Available = true, want false (explicit-year dates lapsed)")
	}
}

// ── Purity ─────────────────────────────────────────────────────────────────

func TestParse_Deterministic(t *testing.T) {
	ref := date(2025, time.June, 1)
	inputs := []string{
		"", "ausverkauft", "nur in der Filiale 07.07. - 12.07.",
		"Verfügbar bis 31.12.2024", "nur bis 02.01.", "31.02.",
	}
	for _, raw := range inputs {
		a := availability.Parse(raw, ref)
		b := availability.Parse(raw, ref)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("Parse(%q) not deterministic (-first +second):\n%s", raw, diff)
		}
	}
}

// ── Production fixture strings ─────────────────────────────────────────────

func TestParse_RetailerFixtures(t *testing.T) {
	ref := date(2024, time.February, 1)
	cases := []struct {
		raw           string
		wantAvailable bool
		wantDate      bool
	}{
		{"nur in der Filiale 07.07. - 12.07.", true, true},
		{"Verfügbar bis 31.12.2024", true, true},
		{"ausverkauft", false, false},
		{"nicht verfügbar", false, false},
		{"vergriffen", false, false},
		{"", true, false},
		{"Regulär verfügbar", true, false},
		{"Aktion 28.02. - 05.03.", true, true},
	}
	for _, c := range cases {
		got := availability.Parse(c.raw, ref)
		if got.Available != c.wantAvailable {
			t.Errorf("Parse(%q).Available = %v, want %v", c.raw, got.Available, c.wantAvailable)
		}
		if (got.ValidUntil != nil) != c.wantDate {
			t.Errorf("Parse(%q).ValidUntil = %v, want date present=%v", c.raw, got.ValidUntil, c.wantDate)
		}
	}
}
