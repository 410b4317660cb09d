package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/form106-ingest/internal/entity"
)

// RecordSchema returns the JSON schema of a normalized record for maxYear.
func RecordSchema(maxYear int) map[string]any {
	id := map[string]any{"type": "string", "pattern": `^\d{9}$`}
	money := map[string]any{"type": "number", "minimum": 0}
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"title":                "Form106Record",
		"type":                 "object",
		"additionalProperties": false,
		"required": []string{
			"employeeId", "employerId", "taxYear", "grossIncome",
			"taxDeducted", "socialSecurityDeducted", "healthInsuranceDeducted",
		},
		"properties": map[string]any{
			"employeeId":              id,
			"employerId":              id,
			"taxYear":                 map[string]any{"type": "integer", "minimum": MinTaxYear, "maximum": maxYear},
			"grossIncome":             money,
			"taxDeducted":             money,
			"socialSecurityDeducted":  money,
			"healthInsuranceDeducted": money,
		},
	}
}

// schemaCache compiles once per accepted max year, so a long-running process
// picks up the new range at the turn of the year.
var schemaCache struct {
	mu      sync.Mutex
	maxYear int
	schema  *jsonschema.Schema
}

func compiledSchema(maxYear int) (*jsonschema.Schema, error) {
	schemaCache.mu.Lock()
	defer schemaCache.mu.Unlock()
	if schemaCache.schema != nil && schemaCache.maxYear == maxYear {
		return schemaCache.schema, nil
	}

	b, err := json.Marshal(RecordSchema(maxYear))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource("form106-record.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := c.Compile("form106-record.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	schemaCache.maxYear, schemaCache.schema = maxYear, s
	return s, nil
}

// ValidateSchema checks rec against the record schema.
func ValidateSchema(rec entity.ExtractedRecord) error {
	s, err := compiledSchema(MaxTaxYear())
	if err != nil {
		return err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
