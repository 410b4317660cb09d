package validate

import (
	"log/slog"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
)

// Validator is the final gate before a record is returned to callers.
type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

var (
	idRule = common.Check(func(v any) bool {
		s, ok := v.(string)
		return ok && len(s) == 9 && IsValidIsraeliID(s)
	}, "must be a nine-digit identifier with a valid check digit")
	yearRule = func(field string, v any) *common.ValidationError {
		return common.IntBetween(MinTaxYear, MaxTaxYear())(field, v)
	}
)

// Validate runs the schema and the value rules. Failures come back as a
// validate-stage SCHEMA_INVALID naming the offending fields.
func (v *Validator) Validate(rec entity.ExtractedRecord) error {
	if err := ValidateSchema(rec); err != nil {
		v.logger.Warn("record failed schema validation")
		return common.NewFailure(constants.CodeSchemaInvalid, "record does not match the Form 106 schema", err)
	}

	rules := common.NewValidator().
		Field(string(entity.FieldEmployeeID), rec.EmployeeID, common.Required, idRule).
		Field(string(entity.FieldEmployerID), rec.EmployerID, common.Required, idRule).
		Field(string(entity.FieldTaxYear), rec.TaxYear, yearRule).
		Field(string(entity.FieldGrossIncome), rec.GrossIncome, common.NonNegativeAmount).
		Field(string(entity.FieldTaxDeducted), rec.TaxDeducted, common.NonNegativeAmount).
		Field(string(entity.FieldSocialSecurityDeducted), rec.SocialSecurityDeducted, common.NonNegativeAmount).
		Field(string(entity.FieldHealthInsuranceDeducted), rec.HealthInsuranceDeducted, common.NonNegativeAmount)
	if rules.HasErrors() {
		v.logger.Warn("record failed value validation", "fields", rules.Fields())
		return common.NewFailure(constants.CodeSchemaInvalid, rules.ErrorMessage(), rules.Error()).
			WithFields(rules.Fields()...)
	}
	return nil
}
