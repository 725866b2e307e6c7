package parser

import (
	"bytes"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// detailLabels maps the section labels on a detail page to raw-record slots.
// A label line is followed by its value on the next non-empty line.
var detailLabels = map[string]func(*types.RawEntryRecord, string){
	"Institution":                func(r *types.RawEntryRecord, v string) { r.Institution = v },
	"Program":                    func(r *types.RawEntryRecord, v string) { r.Program = v },
	"Degree Type":                func(r *types.RawEntryRecord, v string) { r.Degree = v },
	"Degree's Country of Origin": func(r *types.RawEntryRecord, v string) { r.Country = v },
	"Decision":                   func(r *types.RawEntryRecord, v string) { r.Decision = v },
	"Notification":               func(r *types.RawEntryRecord, v string) { r.Notification = v },
	"Undergrad GPA":              func(r *types.RawEntryRecord, v string) { r.GPA = v },
	"GRE General":                func(r *types.RawEntryRecord, v string) { r.GRETotal = v },
	"GRE Verbal":                 func(r *types.RawEntryRecord, v string) { r.GREVerbal = v },
	"GRE Analytical Writing":     func(r *types.RawEntryRecord, v string) { r.GREAW = v },
	"Term":                       func(r *types.RawEntryRecord, v string) { r.Term = v },
}

// sectionBreaks are non-label lines that terminate a notes block.
var sectionBreaks = map[string]struct{}{
	"Timeline":                {},
	"Application Information": {},
}

// boilerplate lines are dropped from values and notes.
var boilerplate = []string{
	"Details and information about the application.",
	"This data is estimated based on applicant submissions at The GradCafe.",
}

// DetailParser turns a detail page into a raw entry record.
type DetailParser struct {
	logger *slog.Logger
}

// NewDetailParser creates a new detail parser.
func NewDetailParser(logger *slog.Logger) *DetailParser {
	return &DetailParser{
		logger: logger.With("component", "detail_parser"),
	}
}

// ParseDetail extracts the raw text blocks for one entry. Structure the page
// does not carry simply leaves slots empty; a detail page never fails the
// record at this stage.
func (p *DetailParser) ParseDetail(body []byte, stub types.EntryStub) *types.RawEntryRecord {
	rec := &types.RawEntryRecord{
		EntryStub: stub,
		FetchedAt: time.Now(),
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		p.logger.Warn("detail page unparsable", "entry_id", stub.ID, "error", err)
		return rec
	}

	lines := textLines(doc)

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if line == "Notes" {
			notes, consumed := collectNotes(lines[i+1:])
			if notes != "" {
				rec.Notes = notes
			}
			i += consumed
			continue
		}

		if line == "Added on" || strings.HasPrefix(line, "Added on ") {
			rec.AddedOn = line
			continue
		}

		set, ok := detailLabels[line]
		if !ok {
			continue
		}
		if i+1 >= len(lines) {
			continue
		}
		value := lines[i+1]
		if isLabel(value) || value == "-" || value == "Submit yours" {
			continue
		}
		set(rec, value)
		i++
	}

	return rec
}

// textLines flattens the document to trimmed, non-empty text lines with
// boilerplate removed.
func textLines(doc *goquery.Document) []string {
	raw := strings.Split(doc.Text(), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if isBoilerplate(l) {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// collectNotes gathers lines until the next label or section break. Returns
// the joined notes and the number of lines consumed.
func collectNotes(lines []string) (string, int) {
	var parts []string
	for i, line := range lines {
		if isLabel(line) {
			return strings.Join(parts, " "), i
		}
		if _, brk := sectionBreaks[line]; brk {
			return strings.Join(parts, " "), i
		}
		if strings.HasPrefix(line, "Received notification") {
			return strings.Join(parts, " "), i
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " "), len(lines)
}

func isLabel(line string) bool {
	if line == "Notes" {
		return true
	}
	_, ok := detailLabels[line]
	return ok
}

func isBoilerplate(line string) bool {
	for _, b := range boilerplate {
		if strings.EqualFold(line, b) {
			return true
		}
	}
	return false
}
