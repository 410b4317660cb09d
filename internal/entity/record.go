package entity

import "fmt"

// FieldName is the JSON name of a Form 106 record field.
type FieldName string

const (
	FieldEmployeeID              FieldName = "employeeId"
	FieldEmployerID              FieldName = "employerId"
	FieldTaxYear                 FieldName = "taxYear"
	FieldGrossIncome             FieldName = "grossIncome"
	FieldTaxDeducted             FieldName = "taxDeducted"
	FieldSocialSecurityDeducted  FieldName = "socialSecurityDeducted"
	FieldHealthInsuranceDeducted FieldName = "healthInsuranceDeducted"
)

// MandatoryFields lists every record field in output order.
var MandatoryFields = []FieldName{
	FieldEmployeeID,
	FieldEmployerID,
	FieldTaxYear,
	FieldGrossIncome,
	FieldTaxDeducted,
	FieldSocialSecurityDeducted,
	FieldHealthInsuranceDeducted,
}

// ExtractedRecord is the normalized Form 106 payload.
type ExtractedRecord struct {
	EmployeeID              string  `json:"employeeId"`
	EmployerID              string  `json:"employerId"`
	TaxYear                 int     `json:"taxYear"`
	GrossIncome             float64 `json:"grossIncome"`
	TaxDeducted             float64 `json:"taxDeducted"`
	SocialSecurityDeducted  float64 `json:"socialSecurityDeducted"`
	HealthInsuranceDeducted float64 `json:"healthInsuranceDeducted"`
}

// String keeps identifiers out of accidental %v logging.
func (r ExtractedRecord) String() string {
	return fmt.Sprintf("ExtractedRecord{taxYear: %d}", r.TaxYear)
}

// ExtractedText is raw text produced by an extractor. It is never persisted.
type ExtractedText struct {
	Raw string
}

// String keeps document contents out of accidental %v logging.
func (t ExtractedText) String() string {
	return fmt.Sprintf("ExtractedText(%d bytes)", len(t.Raw))
}
