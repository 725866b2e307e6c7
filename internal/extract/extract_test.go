package extract

import (
	"sync"
	"testing"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// --- Numeric Field Tests ---

func TestGPA(t *testing.T) {
	cases := []struct {
		text string
		want float64
		ok   bool
	}{
		{"GPA 3.75", 3.75, true},
		{"GPA: 4.0", 4.0, true},
		{"gpa 3.2", 3.2, true},
		{"3.85", 3.85, true},
		{"GPA 5.20", 0, false},
		{"GPA -1", 0, false},
		{"no numbers here", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, ok := GPA(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Errorf("GPA(%q) = (%v, %v), want (%v, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestGREScores(t *testing.T) {
	if v, ok := GRETotal("GRE 320"); !ok || v != 320 {
		t.Errorf("GRETotal = (%v, %v), want (320, true)", v, ok)
	}
	if _, ok := GRETotal("GRE 420"); ok {
		t.Error("GRETotal accepted out-of-range 420")
	}
	if _, ok := GRETotal("GRE 150"); ok {
		t.Error("GRETotal accepted out-of-range 150")
	}

	if v, ok := GREVerbal("GRE V 156"); !ok || v != 156 {
		t.Errorf("GREVerbal = (%v, %v), want (156, true)", v, ok)
	}
	if _, ok := GREVerbal("GRE V 200"); ok {
		t.Error("GREVerbal accepted out-of-range 200")
	}

	if v, ok := GREAW("GRE AW 4.5"); !ok || v != 4.5 {
		t.Errorf("GREAW = (%v, %v), want (4.5, true)", v, ok)
	}
	if v, ok := GREAW("Analytical Writing: 5.0"); !ok || v != 5.0 {
		t.Errorf("GREAW long form = (%v, %v), want (5.0, true)", v, ok)
	}
	if _, ok := GREAW("AW 6.5"); ok {
		t.Error("GREAW accepted out-of-range 6.5")
	}
}

func TestBareValueLine(t *testing.T) {
	// Value lines under a label carry no marker, just the number.
	if v, ok := GPA("3.61"); !ok || v != 3.61 {
		t.Errorf("bare GPA = (%v, %v), want (3.61, true)", v, ok)
	}
	if v, ok := GRETotal("328"); !ok || v != 328 {
		t.Errorf("bare GRE = (%v, %v), want (328, true)", v, ok)
	}
}

// --- Date Tests ---

func TestDateAdded(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"Added on March 31, 2024", "2024-03-31", true},
		{"March 31, 2024", "2024-03-31", true},
		{"Jan 2, 2024", "2024-01-02", true},
		{"2024-03-31", "2024-03-31", true},
		{"3/1/24", "2024-03-01", true},
		{"Reported sometime around March 31, 2024 apparently", "2024-03-31", true},
		{"not a date", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := DateAdded(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Errorf("DateAdded(%q) = (%q, %v), want (%q, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

// --- Decision Tests ---

func TestStatus(t *testing.T) {
	cases := []struct {
		text   string
		status types.Status
		date   string
		ok     bool
	}{
		{"Accepted", types.StatusAccepted, "", true},
		{"Accepted on 3/1/24", types.StatusAccepted, "2024-03-01", true},
		{"Accepted via E-mail on January 15, 2024", types.StatusAccepted, "2024-01-15", true},
		{"Rejected", types.StatusRejected, "", true},
		{"Denied", types.StatusRejected, "", true},
		{"Wait listed", types.StatusWaitlisted, "", true},
		{"Waitlisted on 2/10/2024", types.StatusWaitlisted, "2024-02-10", true},
		{"Interview invite", types.StatusInterview, "", true},
		{"Something else entirely", types.StatusOther, "", true},
		{"", "", "", false},
	}

	for _, tc := range cases {
		status, date, ok := Status(tc.text)
		if ok != tc.ok || status != tc.status || date != tc.date {
			t.Errorf("Status(%q) = (%v, %q, %v), want (%v, %q, %v)",
				tc.text, status, date, ok, tc.status, tc.date, tc.ok)
		}
	}
}

func TestDegreeType(t *testing.T) {
	cases := []struct {
		text string
		want types.Degree
		ok   bool
	}{
		{"PhD", types.DegreePhD, true},
		{"Ph.D.", types.DegreePhD, true},
		{"Doctor of Philosophy", types.DegreePhD, true},
		{"Masters", types.DegreeMasters, true},
		{"MS", types.DegreeMasters, true},
		{"MBA", types.DegreeMasters, true},
		{"Graduate Certificate", types.DegreeOther, true},
		{"-", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := DegreeType(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Errorf("DegreeType(%q) = (%v, %v), want (%v, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNationalityOf(t *testing.T) {
	cases := []struct {
		text string
		want types.Nationality
		ok   bool
	}{
		{"American", types.NationalityAmerican, true},
		{"US", types.NationalityAmerican, true},
		{"United States", types.NationalityAmerican, true},
		{"International", types.NationalityInternational, true},
		{"Martian", types.NationalityOther, true},
		{"N/A", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := NationalityOf(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Errorf("NationalityOf(%q) = (%v, %v), want (%v, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTerm(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"Fall 2024", "Fall 2024", true},
		{"fall 2024", "Fall 2024", true},
		{"Applying for Spring 2025, fingers crossed", "Spring 2025", true},
		{"Fall '24", "Fall 2024", true},
		{"no season here", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := Term(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Term(%q) = (%q, %v), want (%q, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

// --- Text Cleaning Tests ---

func TestCleanInstitution(t *testing.T) {
	if got, ok := CleanInstitution("  Cornell Univ  "); !ok || got != "Cornell University" {
		t.Errorf("CleanInstitution = (%q, %v)", got, ok)
	}
	if _, ok := CleanInstitution("Unknown"); ok {
		t.Error("CleanInstitution accepted placeholder")
	}
	if _, ok := CleanInstitution(""); ok {
		t.Error("CleanInstitution accepted empty")
	}
}

func TestCleanProgram(t *testing.T) {
	if got, ok := CleanProgram("CS"); !ok || got != "Computer Science" {
		t.Errorf("CleanProgram = (%q, %v)", got, ok)
	}
	if got, ok := CleanProgram("Applied Mathematics"); !ok || got != "Applied Mathematics" {
		t.Errorf("CleanProgram = (%q, %v)", got, ok)
	}
	if _, ok := CleanProgram("-"); ok {
		t.Error("CleanProgram accepted placeholder")
	}
}

func TestCleanComments(t *testing.T) {
	if got, ok := CleanComments("  lots   of \n whitespace here  "); !ok || got != "lots of whitespace here" {
		t.Errorf("CleanComments = (%q, %v)", got, ok)
	}
	if _, ok := CleanComments("hi"); ok {
		t.Error("CleanComments accepted too-short text")
	}
}

// --- Apply Tests ---

func TestApply(t *testing.T) {
	raw := &types.RawEntryRecord{
		EntryStub:   types.EntryStub{ID: 901234, URL: "https://example.com/result/901234"},
		Institution: "Cornell Univ",
		Program:     "CS",
		Degree:      "PhD",
		Decision:    "Accepted on 3/1/24",
		Country:     "International",
		GPA:         "3.75",
		GRETotal:    "325",
		GREVerbal:   "160",
		GREAW:       "4.5",
		AddedOn:     "Added on March 31, 2024",
		Term:        "Fall 2024",
		Notes:       "Super excited about this one!",
	}

	rec := Apply(raw)

	if rec.ID != 901234 {
		t.Fatalf("id = %d", rec.ID)
	}
	if rec.Institution == nil || *rec.Institution != "Cornell University" {
		t.Errorf("institution = %v", rec.Institution)
	}
	if rec.Program == nil || *rec.Program != "Computer Science" {
		t.Errorf("program = %v", rec.Program)
	}
	if rec.Degree == nil || *rec.Degree != types.DegreePhD {
		t.Errorf("degree = %v", rec.Degree)
	}
	if rec.Status == nil || *rec.Status != types.StatusAccepted {
		t.Errorf("status = %v", rec.Status)
	}
	if rec.DecisionDate == nil || *rec.DecisionDate != "2024-03-01" {
		t.Errorf("decision date = %v", rec.DecisionDate)
	}
	if rec.DateAdded == nil || *rec.DateAdded != "2024-03-31" {
		t.Errorf("date added = %v", rec.DateAdded)
	}
	if rec.Term == nil || *rec.Term != "Fall 2024" {
		t.Errorf("term = %v", rec.Term)
	}
	if rec.Nationality == nil || *rec.Nationality != types.NationalityInternational {
		t.Errorf("nationality = %v", rec.Nationality)
	}
	if rec.GPA == nil || *rec.GPA != 3.75 {
		t.Errorf("gpa = %v", rec.GPA)
	}
	if rec.GRETotal == nil || *rec.GRETotal != 325 {
		t.Errorf("gre total = %v", rec.GRETotal)
	}
	if rec.Completeness != 100 {
		t.Errorf("completeness = %d, want 100", rec.Completeness)
	}
}

func TestApplySparseRecord(t *testing.T) {
	raw := &types.RawEntryRecord{
		EntryStub: types.EntryStub{ID: 7, URL: "https://example.com/result/7"},
		Decision:  "Rejected",
	}

	rec := Apply(raw)

	if rec.Status == nil || *rec.Status != types.StatusRejected {
		t.Fatalf("status = %v", rec.Status)
	}
	if rec.GPA != nil || rec.Program != nil || rec.Term != nil {
		t.Error("sparse record grew fields from nothing")
	}
	// status only, out of 13 optional fields
	if rec.Completeness != 100/optionalFieldCount {
		t.Errorf("completeness = %d", rec.Completeness)
	}
}

func TestApplyFailedRecord(t *testing.T) {
	raw := types.NewFailedRecord(types.NewEntryStub(42, "https://example.com/result/42"), nil)
	rec := Apply(raw)

	if !rec.Failed {
		t.Fatal("failed flag not carried")
	}
	if rec.ID != 42 || rec.URL != "https://example.com/result/42" {
		t.Errorf("identity not carried: %d %s", rec.ID, rec.URL)
	}
	if rec.Completeness != 0 {
		t.Errorf("completeness = %d, want 0", rec.Completeness)
	}
}

func TestApplyNotesFallback(t *testing.T) {
	raw := &types.RawEntryRecord{
		EntryStub: types.EntryStub{ID: 8, URL: "https://example.com/result/8"},
		Notes:     "GPA 3.4, GRE 318, hoping for Fall 2025",
	}

	rec := Apply(raw)

	if rec.GPA == nil || *rec.GPA != 3.4 {
		t.Errorf("gpa from notes = %v", rec.GPA)
	}
	if rec.GRETotal == nil || *rec.GRETotal != 318 {
		t.Errorf("gre from notes = %v", rec.GRETotal)
	}
	if rec.Term == nil || *rec.Term != "Fall 2025" {
		t.Errorf("term from notes = %v", rec.Term)
	}
}

func BenchmarkApply(b *testing.B) {
	raw := &types.RawEntryRecord{
		EntryStub:   types.EntryStub{ID: 1, URL: "https://example.com/result/1"},
		Institution: "Cornell Univ",
		Program:     "CS",
		Degree:      "PhD",
		Decision:    "Accepted on 3/1/24",
		GPA:         "3.75",
		GRETotal:    "325",
		AddedOn:     "Added on March 31, 2024",
		Term:        "Fall 2024",
		Notes:       "GRE V 160, AW 4.5, super excited",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Apply(raw)
	}
}

// Extraction runs inside the worker pool, so the same inputs must produce
// the same outputs from any number of goroutines.
func TestExtractConcurrent(t *testing.T) {
	raw := &types.RawEntryRecord{
		EntryStub: types.EntryStub{ID: 1, URL: "https://example.com/result/1"},
		Decision:  "Accepted on 3/1/24",
		GPA:       "3.9",
		Term:      "Fall 2024",
	}
	want := Apply(raw)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := Apply(raw)
				if got.GPA == nil || *got.GPA != *want.GPA ||
					got.Status == nil || *got.Status != *want.Status ||
					got.Term == nil || *got.Term != *want.Term {
					t.Error("concurrent extraction diverged")
					return
				}
			}
		}()
	}
	wg.Wait()
}
