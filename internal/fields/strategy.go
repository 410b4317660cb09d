package fields

import (
	"errors"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
	"github.com/joseph-ayodele/form106-ingest/internal/validate"
)

// ErrNoMatch means a strategy could not build a complete record and the next
// strategy should run. Strategies may return a typed failure wrapping it to
// explain what was missing.
var ErrNoMatch = errors.New("no match")

// Strategy builds a complete record from text or reports no match.
type Strategy interface {
	Name() string
	Parse(text string) (entity.ExtractedRecord, error)
}

// FixedLabel parses plain "Label: value" lines, one field per line.
type FixedLabel struct{}

var fixedLabels = map[entity.FieldName]*regexp.Regexp{
	entity.FieldEmployeeID:              regexp.MustCompile(`(?im)^[ \t]*Employee ID:[ \t]*(\d+)[ \t]*$`),
	entity.FieldEmployerID:              regexp.MustCompile(`(?im)^[ \t]*Employer ID:[ \t]*(\d+)[ \t]*$`),
	entity.FieldTaxYear:                 regexp.MustCompile(`(?im)^[ \t]*Tax Year:[ \t]*(\d{4})[ \t]*$`),
	entity.FieldGrossIncome:             regexp.MustCompile(`(?im)^[ \t]*Gross Income:[ \t]*([\d,]+(?:\.\d+)?)[ \t]*$`),
	entity.FieldTaxDeducted:             regexp.MustCompile(`(?im)^[ \t]*Tax Deducted:[ \t]*([\d,]+(?:\.\d+)?)[ \t]*$`),
	entity.FieldSocialSecurityDeducted:  regexp.MustCompile(`(?im)^[ \t]*Social Security:[ \t]*([\d,]+(?:\.\d+)?)[ \t]*$`),
	entity.FieldHealthInsuranceDeducted: regexp.MustCompile(`(?im)^[ \t]*Health Insurance:[ \t]*([\d,]+(?:\.\d+)?)[ \t]*$`),
}

func (FixedLabel) Name() string { return "fixed-label" }

func (FixedLabel) Parse(text string) (entity.ExtractedRecord, error) {
	var rec entity.ExtractedRecord
	for _, f := range entity.MandatoryFields {
		m := fixedLabels[f].FindStringSubmatch(text)
		if m == nil {
			return entity.ExtractedRecord{}, ErrNoMatch
		}
		if !assign(&rec, f, m[1]) {
			return entity.ExtractedRecord{}, ErrNoMatch
		}
	}
	return rec, nil
}

// assign parses raw for field and stores it. It reports false when the value
// fails the field's type rule.
func assign(rec *entity.ExtractedRecord, f entity.FieldName, raw string) bool {
	switch f {
	case entity.FieldEmployeeID, entity.FieldEmployerID:
		id, ok := validate.ParseIsraeliID(raw)
		if !ok {
			return false
		}
		if f == entity.FieldEmployeeID {
			rec.EmployeeID = id
		} else {
			rec.EmployerID = id
		}
	case entity.FieldTaxYear:
		y, ok := validate.ParseTaxYear(raw)
		if !ok {
			return false
		}
		rec.TaxYear = y
	default:
		v, ok := validate.ParseMoney(raw)
		if !ok {
			return false
		}
		switch f {
		case entity.FieldGrossIncome:
			rec.GrossIncome = v
		case entity.FieldTaxDeducted:
			rec.TaxDeducted = v
		case entity.FieldSocialSecurityDeducted:
			rec.SocialSecurityDeducted = v
		case entity.FieldHealthInsuranceDeducted:
			rec.HealthInsuranceDeducted = v
		}
	}
	return true
}

// Anchor finds each field's label and takes the best-scoring nearby value.
type Anchor struct {
	// AmbiguityConfidence is the winner score below which rivals are checked.
	AmbiguityConfidence float64
	// AmbiguityRatio is the fraction of the winner score a rival must reach.
	AmbiguityRatio float64
}

// DefaultAnchor returns the stock ambiguity tuning.
func DefaultAnchor() Anchor {
	return Anchor{AmbiguityConfidence: 0.7, AmbiguityRatio: 0.8}
}

func (Anchor) Name() string { return "anchor-proximity" }

// Match is the resolved value of one field.
type Match struct {
	Field entity.FieldName
	Candidate
	Score float64
}

// Parse resolves every field. Ambiguity fails immediately; missing fields are
// collected and reported together.
func (a Anchor) Parse(text string) (entity.ExtractedRecord, error) {
	var rec entity.ExtractedRecord
	var missing []string
	for _, f := range entity.MandatoryFields {
		m, err := a.Resolve(text, f)
		if err != nil {
			if errors.Is(err, ErrNoMatch) {
				missing = append(missing, string(f))
				continue
			}
			return entity.ExtractedRecord{}, err
		}
		if !assign(&rec, f, m.Raw) {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return entity.ExtractedRecord{}, missingFields(missing)
	}
	return rec, nil
}

// Resolve returns the winning candidate for field. It fails FIELD_NOT_FOUND
// (wrapping ErrNoMatch) when the label or a value within range is absent, and
// FIELD_AMBIGUOUS when a weak winner has a close rival.
func (a Anchor) Resolve(text string, field entity.FieldName) (*Match, error) {
	re, ok := anchors[field]
	if !ok {
		return nil, fieldNotFound(field, "no label pattern")
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return nil, fieldNotFound(field, "label not found")
	}
	ri := runeIndex{text: text}
	aStart, aEnd := ri.at(loc[0]), ri.at(loc[1])

	kind := fieldKinds[field]
	maxD := maxDistance(kind)
	cands := findCandidates(text, kind)
	all := make([]scored, 0, len(cands))
	for _, c := range cands {
		all = append(all, scored{Candidate: c, Score: proximityScore(aStart, aEnd, c, maxD)})
	}
	top, ok := best(all)
	if !ok {
		return nil, fieldNotFound(field, "no valid value near label")
	}

	if top.Score < a.AmbiguityConfidence {
		floor := top.Score * a.AmbiguityRatio
		for _, s := range all {
			if s.Start != top.Start && s.Score >= floor {
				return nil, common.NewFailuref(constants.CodeFieldAmbiguous, nil,
					"multiple candidate values for %s near its label", field).WithFields(string(field))
			}
		}
	}
	return &Match{Field: field, Candidate: top.Candidate, Score: top.Score}, nil
}

func fieldNotFound(field entity.FieldName, reason string) error {
	return common.NewFailuref(constants.CodeFieldNotFound, ErrNoMatch, "%s: %s", field, reason).
		WithFields(string(field))
}

func missingFields(names []string) *common.IngestionFailure {
	return common.NewFailure(constants.CodeMandatoryFieldMissing,
		"Required fields not found: "+strings.Join(names, ", "), ErrNoMatch).WithFields(names...)
}

// ExtractField runs the anchor search for a single field with the default
// tuning. It reports false when the field is missing or ambiguous.
func ExtractField(text string, field entity.FieldName) (Match, bool) {
	m, err := DefaultAnchor().Resolve(text, field)
	if err != nil {
		return Match{}, false
	}
	return *m, true
}
