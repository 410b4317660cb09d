package fields

import (
	"regexp"
	"unicode/utf8"

	"github.com/joseph-ayodele/form106-ingest/internal/validate"
)

var (
	// 7-9 digits: shorter runs collide with amounts and box numbers.
	idPattern    = regexp.MustCompile(`\b\d{7,9}\b`)
	yearPattern  = regexp.MustCompile(`\b20\d{2}\b`)
	moneyPattern = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+(?:\.\d+)?|\b\d+(?:\.\d+)?\b`)
)

// Candidate is a plausible value occurrence. Start and End are character
// (rune) offsets so distances mean the same thing for Hebrew and Latin text.
type Candidate struct {
	Raw   string
	Start int
	End   int
}

// runeIndex converts byte offsets to rune offsets for one text.
type runeIndex struct {
	text string
}

func (ri runeIndex) at(byteOff int) int {
	return utf8.RuneCountInString(ri.text[:byteOff])
}

// findCandidates returns every occurrence of k's pattern that also parses as
// a valid value of that kind.
func findCandidates(text string, k valueKind) []Candidate {
	var re *regexp.Regexp
	switch k {
	case kindID:
		re = idPattern
	case kindYear:
		re = yearPattern
	default:
		re = moneyPattern
	}
	ri := runeIndex{text: text}
	var out []Candidate
	for _, loc := range re.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if !validCandidate(raw, k) {
			continue
		}
		out = append(out, Candidate{Raw: raw, Start: ri.at(loc[0]), End: ri.at(loc[1])})
	}
	return out
}

func validCandidate(raw string, k valueKind) bool {
	switch k {
	case kindID:
		_, ok := validate.ParseIsraeliID(raw)
		return ok
	case kindYear:
		_, ok := validate.ParseTaxYear(raw)
		return ok
	default:
		_, ok := validate.ParseMoney(raw)
		return ok
	}
}
