package extract

import (
	"time"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// optionalFieldCount is the size of the optional-field set the completeness
// score is measured against: program, institution, comments, date_added,
// status, decision_date, term, nationality, gpa, gre_total, gre_verbal,
// gre_aw, degree.
const optionalFieldCount = 13

// Apply converts one raw record into exactly one cleaned record. Extraction
// never fails: fields the raw text does not support are left missing and
// the completeness score reflects what was found. A fetch-failed raw record
// yields a cleaned record carrying only its identity.
func Apply(raw *types.RawEntryRecord) types.CleanedRecord {
	rec := types.CleanedRecord{
		ID:          raw.ID,
		URL:         raw.URL,
		Failed:      raw.Failed,
		ProcessedAt: time.Now(),
	}
	if raw.Failed {
		return rec
	}

	if v, ok := CleanProgram(raw.Program); ok {
		rec.Program = &v
	}
	if v, ok := CleanInstitution(raw.Institution); ok {
		rec.Institution = &v
	}
	if v, ok := CleanComments(raw.Notes); ok {
		rec.Comments = &v
	}

	if v, ok := DateAdded(raw.AddedOn); ok {
		rec.DateAdded = &v
	} else if raw.AddedOn != "" {
		rec.DateAddedRaw = raw.AddedOn
	}

	if status, decisionDate, ok := Status(raw.Decision); ok {
		rec.Status = &status
		if decisionDate != "" {
			rec.DecisionDate = &decisionDate
		}
	}
	// Notification lines often carry the date the decision itself omits.
	if rec.DecisionDate == nil && raw.Notification != "" {
		if _, decisionDate, ok := Status(raw.Notification); ok && decisionDate != "" {
			rec.DecisionDate = &decisionDate
		}
	}

	if v, ok := firstTerm(raw.Term, raw.Notes, raw.Decision); ok {
		rec.Term = &v
	}
	if v, ok := NationalityOf(raw.Country); ok {
		rec.Nationality = &v
	}
	if v, ok := DegreeType(raw.Degree); ok {
		rec.Degree = &v
	}

	if v, ok := firstNumber(GPA, raw.GPA, raw.Notes); ok {
		rec.GPA = &v
	}
	if v, ok := firstNumber(GRETotal, raw.GRETotal, raw.Notes); ok {
		rec.GRETotal = &v
	}
	if v, ok := firstNumber(GREVerbal, raw.GREVerbal, raw.Notes); ok {
		rec.GREVerbal = &v
	}
	if v, ok := firstNumber(GREAW, raw.GREAW, raw.Notes); ok {
		rec.GREAW = &v
	}

	rec.Completeness = Completeness(&rec)
	return rec
}

// firstNumber runs an extractor over the labeled block first, then over the
// free-text fallback.
func firstNumber(fn func(string) (float64, bool), primary, fallback string) (float64, bool) {
	if v, ok := fn(primary); ok {
		return v, true
	}
	if primary == "" && fallback != "" {
		return fn(fallback)
	}
	return 0, false
}

// firstTerm extracts a season+year token from the first text that carries one.
func firstTerm(sources ...string) (string, bool) {
	for _, s := range sources {
		if v, ok := Term(s); ok {
			return v, true
		}
	}
	return "", false
}

// Completeness scores how many of the defined optional fields are present,
// as an integer percentage.
func Completeness(rec *types.CleanedRecord) int {
	present := 0
	if rec.Program != nil {
		present++
	}
	if rec.Institution != nil {
		present++
	}
	if rec.Comments != nil {
		present++
	}
	if rec.DateAdded != nil {
		present++
	}
	if rec.Status != nil {
		present++
	}
	if rec.DecisionDate != nil {
		present++
	}
	if rec.Term != nil {
		present++
	}
	if rec.Nationality != nil {
		present++
	}
	if rec.GPA != nil {
		present++
	}
	if rec.GRETotal != nil {
		present++
	}
	if rec.GREVerbal != nil {
		present++
	}
	if rec.GREAW != nil {
		present++
	}
	if rec.Degree != nil {
		present++
	}
	return present * 100 / optionalFieldCount
}
