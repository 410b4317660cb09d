package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/form106-ingest/internal/entity"
	"github.com/joseph-ayodele/form106-ingest/internal/repository"
)

// Sheet is the name of the worksheet holding exported records.
const Sheet = "Form106"

// Headers are the column titles of the export, in order.
var Headers = []string{
	"File",
	"Tax Year",
	"Employee ID",
	"Employer ID",
	"Gross Income",
	"Tax Deducted",
	"Social Security Deducted",
	"Health Insurance Deducted",
	"Method",
	"Parser Version",
}

// Service produces XLSX bytes from the latest stored extractions.
type Service struct {
	extractions repository.ExtractionRepository
	logger      *slog.Logger
}

func NewService(extractions repository.ExtractionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{extractions: extractions, logger: logger}
}

// ExportXLSX returns a workbook with one row per document that has a stored extraction.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	rows, err := s.extractions.ListLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// replace the default sheet so the workbook has exactly one
	if err := f.SetSheetName(f.GetSheetName(0), Sheet); err != nil {
		return nil, err
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(Sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, r := range rows {
		if err := writeRow(f, i+2, r); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(Sheet, "A", "A", 36)
	_ = f.SetColWidth(Sheet, "B", "B", 10)
	_ = f.SetColWidth(Sheet, "C", "D", 14)
	_ = f.SetColWidth(Sheet, "E", "H", 18)
	_ = f.SetColWidth(Sheet, "I", "I", 8)
	_ = f.SetColWidth(Sheet, "J", "J", 80)
	_ = f.SetPanes(Sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, r entity.ExtractionRow) error {
	rec := r.Record
	values := []any{
		r.Document.FileName,
		rec.TaxYear,
		rec.EmployeeID,
		rec.EmployerID,
		rec.GrossIncome,
		rec.TaxDeducted,
		rec.SocialSecurityDeducted,
		rec.HealthInsuranceDeducted,
		string(r.Extraction.Method),
		r.Extraction.ParserVersion,
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	// identifiers keep their leading zeros as text cells
	return f.SetSheetRow(Sheet, cell, &values)
}
