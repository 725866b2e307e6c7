// Package extract converts raw entry text into typed, range-validated
// fields. Every function is pure, deterministic, and total: it returns a
// value plus an ok flag and never fails the record it is working on.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// Validated ranges. Values outside a range are reported missing.
const (
	gpaMin, gpaMax             = 0.0, 4.0
	greTotalMin, greTotalMax   = 260, 340
	greVerbalMin, greVerbalMax = 130, 170
	greAWMin, greAWMax         = 0.0, 6.0
)

var (
	gpaRe       = regexp.MustCompile(`(?i)\bGPA\s*:?\s*([0-9]+(?:\.[0-9]+)?)`)
	greTotalRe  = regexp.MustCompile(`(?i)\bGRE\s*(?:General)?\s*:?\s*([0-9]{3})\b`)
	greVerbalRe = regexp.MustCompile(`(?i)\bGRE\s*V(?:erbal)?\s*:?\s*([0-9]{3})\b`)
	greAWRe     = regexp.MustCompile(`(?i)\b(?:GRE\s*)?(?:AW|Analytical\s+Writing)\s*:?\s*([0-9]+(?:\.[0-9]+)?)`)
	seasonRe    = regexp.MustCompile(`(?i)\b(fall|spring|summer|winter)\s*'?\s*([0-9]{2}|[0-9]{4})\b`)
	dateTokenRe = regexp.MustCompile(`[0-9]{1,2}/[0-9]{1,2}/[0-9]{2,4}|[A-Za-z]+\s+[0-9]{1,2},?\s+[0-9]{4}|[0-9]{4}-[0-9]{2}-[0-9]{2}`)
)

// dateLayouts are tried in order by parseDate.
var dateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
}

// GPA extracts a decimal GPA from text, either after a "GPA" marker or as a
// bare numeric token. Out-of-range values are missing.
func GPA(text string) (float64, bool) {
	v, ok := markedNumber(text, gpaRe)
	if !ok {
		return 0, false
	}
	if v < gpaMin || v > gpaMax {
		return 0, false
	}
	return v, true
}

// GRETotal extracts a GRE total score in [260, 340].
func GRETotal(text string) (float64, bool) {
	v, ok := markedNumber(text, greTotalRe)
	if !ok {
		return 0, false
	}
	if v < greTotalMin || v > greTotalMax {
		return 0, false
	}
	return v, true
}

// GREVerbal extracts a GRE verbal score in [130, 170].
func GREVerbal(text string) (float64, bool) {
	v, ok := markedNumber(text, greVerbalRe)
	if !ok {
		return 0, false
	}
	if v < greVerbalMin || v > greVerbalMax {
		return 0, false
	}
	return v, true
}

// GREAW extracts a GRE analytical-writing score in [0.0, 6.0].
func GREAW(text string) (float64, bool) {
	v, ok := markedNumber(text, greAWRe)
	if !ok {
		return 0, false
	}
	if v < greAWMin || v > greAWMax {
		return 0, false
	}
	return v, true
}

// markedNumber finds a numeric token after a field marker, falling back to
// the whole text when it is a bare number (the value line under a label).
func markedNumber(text string, re *regexp.Regexp) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	if m := re.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return v, true
		}
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v, true
	}
	return 0, false
}

// DateAdded parses natural-language date phrasing ("Added on March 31,
// 2024" and similar) into a normalized YYYY-MM-DD string.
func DateAdded(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "Added on ")
	text = strings.TrimSpace(text)
	t, ok := parseDate(text)
	if !ok {
		// The phrasing sometimes buries the date mid-sentence.
		if token := dateTokenRe.FindString(text); token != "" {
			t, ok = parseDate(token)
		}
	}
	if !ok {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// Status classifies decision free text into a status bucket by
// case-insensitive keyword match. When a date trails the decision keyword
// ("Accepted on 3/1/24") it is returned as the decision date, normalized.
func Status(text string) (types.Status, string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", "", false
	}

	lower := strings.ToLower(trimmed)
	status := types.StatusOther
	switch {
	case strings.Contains(lower, "accept"):
		status = types.StatusAccepted
	case strings.Contains(lower, "reject"), strings.Contains(lower, "denied"):
		status = types.StatusRejected
	case strings.Contains(lower, "wait list"), strings.Contains(lower, "waitlist"):
		status = types.StatusWaitlisted
	case strings.Contains(lower, "interview"):
		status = types.StatusInterview
	}

	decisionDate := ""
	if token := dateTokenRe.FindString(trimmed); token != "" {
		if t, ok := parseDate(token); ok {
			decisionDate = t.Format("2006-01-02")
		}
	}

	return status, decisionDate, true
}

// DegreeType classifies degree text into Masters, PhD, or Other.
func DegreeType(text string) (types.Degree, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == "-" || trimmed == "N/A" || trimmed == "Unknown" {
		return "", false
	}

	if d, ok := degreeTable[trimmed]; ok {
		return d, true
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "phd"), strings.Contains(lower, "ph.d"), strings.Contains(lower, "doctor"):
		return types.DegreePhD, true
	case strings.Contains(lower, "master"), strings.Contains(lower, "msc"), strings.Contains(lower, "meng"):
		return types.DegreeMasters, true
	}
	return types.DegreeOther, true
}

// NationalityOf classifies applicant origin text into American,
// International, or Other.
func NationalityOf(text string) (types.Nationality, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == "-" || trimmed == "N/A" || trimmed == "Unknown" {
		return "", false
	}

	switch strings.ToLower(trimmed) {
	case "us", "usa", "u.s.", "u.s.a.", "united states", "american", "domestic":
		return types.NationalityAmerican, true
	case "international":
		return types.NationalityInternational, true
	}
	return types.NationalityOther, true
}

// Term extracts a season+year token ("Fall 2024") from entry free text.
// Listing URLs are never consulted; the text is the only source.
func Term(text string) (string, bool) {
	m := seasonRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	season := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
	year := m[2]
	if len(year) == 2 {
		year = "20" + year
	}
	return season + " " + year, true
}

// parseDate tries the known layouts in order.
func parseDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(strings.TrimSuffix(text, "."))
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
