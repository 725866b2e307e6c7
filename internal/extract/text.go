package extract

import (
	"regexp"
	"strings"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// degreeTable standardizes the common spellings before keyword matching.
var degreeTable = map[string]types.Degree{
	"PhD":      types.DegreePhD,
	"Ph.D.":    types.DegreePhD,
	"Ph.D":     types.DegreePhD,
	"Masters":  types.DegreeMasters,
	"Master's": types.DegreeMasters,
	"MS":       types.DegreeMasters,
	"M.S.":     types.DegreeMasters,
	"MA":       types.DegreeMasters,
	"M.A.":     types.DegreeMasters,
	"MBA":      types.DegreeMasters,
	"M.B.A.":   types.DegreeMasters,
}

// institutionSuffixes standardizes abbreviated institution names.
var institutionSuffixes = [][2]string{
	{" Univ", " University"},
	{" U ", " University "},
	{" Tech", " Institute of Technology"},
}

// programTable expands program names given only as an abbreviation.
var programTable = map[string]string{
	"CS":   "Computer Science",
	"EE":   "Electrical Engineering",
	"ME":   "Mechanical Engineering",
	"Bio":  "Biology",
	"Chem": "Chemistry",
	"Math": "Mathematics",
	"Phys": "Physics",
}

// CleanInstitution normalizes an institution name. Placeholder values and
// strings too short to be a name are missing.
func CleanInstitution(text string) (string, bool) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" || cleaned == "Unknown" || cleaned == "-" || cleaned == "N/A" {
		return "", false
	}
	for _, s := range institutionSuffixes {
		cleaned = strings.ReplaceAll(cleaned, s[0], s[1])
	}
	if len(cleaned) <= 2 {
		return "", false
	}
	return cleaned, true
}

// CleanProgram normalizes a program name, expanding bare abbreviations.
func CleanProgram(text string) (string, bool) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" || cleaned == "Unknown" || cleaned == "-" || cleaned == "N/A" {
		return "", false
	}
	if full, ok := programTable[cleaned]; ok {
		cleaned = full
	}
	if len(cleaned) <= 1 {
		return "", false
	}
	return cleaned, true
}

// CleanComments collapses whitespace in free-text notes. Notes too short to
// be meaningful are missing.
func CleanComments(text string) (string, bool) {
	cleaned := whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	if len(cleaned) <= 5 {
		return "", false
	}
	return cleaned, true
}
