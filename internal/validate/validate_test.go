package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
)

func validRecord() entity.ExtractedRecord {
	return entity.ExtractedRecord{
		EmployeeID:              "123456782",
		EmployerID:              "987654324",
		TaxYear:                 2024,
		GrossIncome:             150000,
		TaxDeducted:             25000,
		SocialSecurityDeducted:  8000,
		HealthInsuranceDeducted: 4500,
	}
}

func TestValidator_Accepts(t *testing.T) {
	withClock(t, 2025)
	assert.NoError(t, NewValidator(nil).Validate(validRecord()))
}

func TestValidator_Rejects(t *testing.T) {
	withClock(t, 2025)
	tests := []struct {
		name   string
		mutate func(*entity.ExtractedRecord)
		field  string
	}{
		{"bad checksum", func(r *entity.ExtractedRecord) { r.EmployeeID = "123456789" }, "employeeId"},
		{"short employer id", func(r *entity.ExtractedRecord) { r.EmployerID = "12345" }, ""},
		{"year too old", func(r *entity.ExtractedRecord) { r.TaxYear = 2005 }, ""},
		{"year in future", func(r *entity.ExtractedRecord) { r.TaxYear = 2030 }, ""},
		{"negative amount", func(r *entity.ExtractedRecord) { r.TaxDeducted = -1 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			err := NewValidator(nil).Validate(rec)
			require.Error(t, err)
			f, ok := common.AsFailure(err)
			require.True(t, ok)
			assert.Equal(t, constants.StageValidate, f.Stage)
			assert.Equal(t, constants.CodeSchemaInvalid, f.Code)
			if tt.field != "" {
				assert.Equal(t, []string{tt.field}, f.Fields)
			}
			assert.NotContains(t, f.Error(), "123456789")
		})
	}
}

func TestValidateSchema_RecompilesPerYear(t *testing.T) {
	rec := validRecord()
	rec.TaxYear = 2027

	withClock(t, 2025)
	require.Error(t, ValidateSchema(rec))

	withClock(t, 2026)
	require.NoError(t, ValidateSchema(rec))
}

func TestRecordSchema_Shape(t *testing.T) {
	s := RecordSchema(2026)
	assert.Equal(t, false, s["additionalProperties"])
	assert.Len(t, s["required"], 7)
	props := s["properties"].(map[string]any)
	assert.Equal(t, 2026, props["taxYear"].(map[string]any)["maximum"])
}
