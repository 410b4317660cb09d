// Package fields turns extracted document text into a Form 106 record by
// locating label anchors and scoring nearby value candidates.
package fields

import (
	"regexp"

	"github.com/joseph-ayodele/form106-ingest/internal/entity"
)

// Version of the anchor tables, candidate patterns and scoring.
const Version = "1.3.0"

// anchors match the Hebrew label, the box number printed on the form, or the
// English label. Gershayim may come out of pdftotext as either " or U+05F4.
var anchors = map[entity.FieldName]*regexp.Regexp{
	entity.FieldEmployeeID:              regexp.MustCompile(`(?i)מספר\s*זהות\s*עובד|ת\.ז\.\s*עובד|Employee ID`),
	entity.FieldEmployerID:              regexp.MustCompile(`(?i)מספר\s*מזהה\s*מעסיק|ח\.פ\.|Employer ID`),
	entity.FieldTaxYear:                 regexp.MustCompile(`(?i)שנת\s*מס|Tax Year`),
	entity.FieldGrossIncome:             regexp.MustCompile(`(?i)סה["״]כ\s*הכנסה\s*ממשכורת|משבצת\s*42|Gross Income`),
	entity.FieldTaxDeducted:             regexp.MustCompile(`(?i)מס\s*שנוכה|משבצת\s*36|Tax Deducted`),
	entity.FieldSocialSecurityDeducted:  regexp.MustCompile(`(?i)ביטוח\s*לאומי|משבצת\s*38|Social Security`),
	entity.FieldHealthInsuranceDeducted: regexp.MustCompile(`(?i)ביטוח\s*בריאות|משבצת\s*39|Health Insurance`),
}

type valueKind int

const (
	kindID valueKind = iota
	kindYear
	kindMoney
)

var fieldKinds = map[entity.FieldName]valueKind{
	entity.FieldEmployeeID:              kindID,
	entity.FieldEmployerID:              kindID,
	entity.FieldTaxYear:                 kindYear,
	entity.FieldGrossIncome:             kindMoney,
	entity.FieldTaxDeducted:             kindMoney,
	entity.FieldSocialSecurityDeducted:  kindMoney,
	entity.FieldHealthInsuranceDeducted: kindMoney,
}

// Maximum anchor-to-value distance in characters.
const (
	DefaultMaxDistance = 200
	YearMaxDistance    = 100
)

func maxDistance(k valueKind) int {
	if k == kindYear {
		return YearMaxDistance
	}
	return DefaultMaxDistance
}
