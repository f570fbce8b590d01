// Package availability turns free-text availability strings scraped from
// retailer pages into a structured availability flag plus a normalized
// offer end date.
//
// Typical inputs and outcomes:
//
//	"nur in der Filiale 07.07. - 12.07."  → available, valid until 12.07.
//	"Verfügbar bis 31.12.2024"            → depends on the reference date
//	"ausverkauft"                          → unavailable, no date
//	""                                     → available, no date
//
// Parsing is deterministic: the reference date is injected by the caller
// instead of the parser reading a clock, so the same input always yields
// the same result.
package availability

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result is the structured outcome of parsing one availability string.
type Result struct {
	// Available reports whether the offer is currently purchasable.
	Available bool
	// NormalizedText is the trimmed original input; nil for empty input.
	// It is never reconstructed from parsed fields.
	NormalizedText *string
	// ValidUntil is the last day the offer is valid, at UTC midnight.
	// Nil when the text carries no usable date.
	ValidUntil *time.Time
}

// negativeKeywords is the fixed vocabulary of phrases marking an offer as
// not purchasable. Matched case-insensitively as substrings; a hit beats
// any date also present in the text.
var negativeKeywords = []string{
	"nicht verfügbar",
	"ausverkauft",
	"vergriffen",
	"nicht lieferbar",
}

// datePattern matches German day-first date tokens such as "07.07." and
// "31.12.2024". The year group is optional; two-digit years are not
// consumed as years.
var datePattern = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})?`)

// rollForwardAfter is how far in the past a year-less date may resolve
// before it is assumed to mean next year. Covers December crawls seeing
// January offer dates.
const rollForwardAfter = 30 * 24 * time.Hour

// Parse extracts availability and the offer end date from rawText,
// evaluated against referenceDate.
//
// Empty input defaults to available with no expiry: retailers only flag
// exceptions. A negative keyword forces unavailable and suppresses date
// extraction. Otherwise the latest date token wins — for a range
// "A - B" that is the end date B — and the offer is available while
// that date is not before referenceDate.
//
// Parse never fails: tokens that are not real calendar dates ("31.02.")
// are ignored, and input without any usable signal degrades to
// available with no expiry. Stale data that slips through is caught by
// the cleanup engine's age heuristic instead.
func Parse(rawText string, referenceDate time.Time) Result {
	trimmed := strings.TrimSpace(rawText)
	if trimmed == "" {
		return Result{Available: true}
	}

	if containsNegativeKeyword(trimmed) {
		return Result{Available: false, NormalizedText: &trimmed}
	}

	ref := truncateToDay(referenceDate)

	var latest *time.Time
	for _, m := range datePattern.FindAllStringSubmatch(trimmed, -1) {
		d, ok := resolveToken(m, ref)
		if !ok {
			continue
		}
		if latest == nil || d.After(*latest) {
			latest = &d
		}
	}

	if latest == nil {
		return Result{Available: true, NormalizedText: &trimmed}
	}

	return Result{
		Available:      !latest.Before(ref),
		NormalizedText: &trimmed,
		ValidUntil:     latest,
	}
}

// resolveToken turns one datePattern match into a concrete date,
// inferring the year for tokens without one. ok=false means the token is
// not a real calendar date and must be ignored.
func resolveToken(m []string, ref time.Time) (time.Time, bool) {
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])

	if m[3] != "" {
		year, _ := strconv.Atoi(m[3])
		return makeDate(year, month, day)
	}

	d, ok := makeDate(ref.Year(), month, day)
	if !ok {
		return time.Time{}, false
	}
	if ref.Sub(d) > rollForwardAfter {
		// More than 30 days in the past: assume next year. The rolled
		// date must still be validated — 29.02. does not exist every year.
		return makeDate(ref.Year()+1, month, day)
	}
	return d, true
}

// makeDate builds a UTC-midnight date and verifies it is a real calendar
// date. time.Date normalizes out-of-range components (31.02. becomes
// 02.03.) instead of failing, so the components are compared back after
// construction.
func makeDate(year, month, day int) (time.Time, bool) {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// containsNegativeKeyword reports whether any negative-availability
// phrase appears (case-insensitive) anywhere in the text.
func containsNegativeKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// truncateToDay drops the time-of-day component, keeping a UTC-midnight
// date for day-granularity comparisons.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
