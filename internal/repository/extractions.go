package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
)

type ExtractionRepository interface {
	// Create stores an extraction. A second extraction for the same document,
	// parser version and stage replaces the first.
	Create(ctx context.Context, ex *entity.Extraction) error
	Latest(ctx context.Context, documentID uuid.UUID) (*entity.Extraction, error)
	// ListLatest returns the newest extraction of every document, by file name.
	ListLatest(ctx context.Context) ([]entity.ExtractionRow, error)
}

type extractionRepo struct {
	db *DB
}

func NewExtractionRepository(db *DB) ExtractionRepository {
	return &extractionRepo{db: db}
}

const extractionColumns = `id, document_id, parser_version, stage, method, payload, warnings, created_at`

func (r *extractionRepo) Create(ctx context.Context, ex *entity.Extraction) error {
	if ex.ID == uuid.Nil {
		ex.ID = uuid.New()
	}
	ex.CreatedAt = time.Now().UTC()
	warnings, err := json.Marshal(nonNil(ex.Warnings))
	if err != nil {
		return err
	}
	_, err = r.db.exec(ctx, `INSERT INTO extractions (`+extractionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (document_id, parser_version, stage) DO UPDATE SET
			method = excluded.method,
			payload = excluded.payload,
			warnings = excluded.warnings,
			created_at = excluded.created_at`,
		ex.ID.String(), ex.DocumentID.String(), ex.ParserVersion, ex.Stage, string(ex.Method),
		string(ex.Payload), string(warnings), toMillis(ex.CreatedAt))
	if err != nil {
		r.db.logger.Error("failed to store extraction", "document_id", ex.DocumentID, "error", err)
		return err
	}
	return nil
}

func (r *extractionRepo) Latest(ctx context.Context, documentID uuid.UUID) (*entity.Extraction, error) {
	rows, err := r.db.query(ctx, `SELECT `+extractionColumns+` FROM extractions
		WHERE document_id = ? ORDER BY created_at DESC LIMIT 1`, documentID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanExtraction(rows)
}

func (r *extractionRepo) ListLatest(ctx context.Context) ([]entity.ExtractionRow, error) {
	rows, err := r.db.query(ctx, `SELECT
			d.id, d.source_path, d.file_name, d.content_hash, d.file_size, d.status, d.tax_year, d.created_at, d.updated_at,
			e.id, e.document_id, e.parser_version, e.stage, e.method, e.payload, e.warnings, e.created_at
		FROM extractions e JOIN documents d ON d.id = e.document_id
		ORDER BY d.file_name, d.id, e.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.ExtractionRow
	seen := map[uuid.UUID]bool{}
	for rows.Next() {
		doc, dd := documentDest()
		ex, ed := extractionDest()
		if err := rows.Scan(append(dd, ed...)...); err != nil {
			return nil, err
		}
		d, err := doc()
		if err != nil {
			return nil, err
		}
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		e, err := ex()
		if err != nil {
			return nil, err
		}
		rec, err := e.Record()
		if err != nil {
			return nil, fmt.Errorf("decode extraction %s: %w", e.ID, err)
		}
		out = append(out, entity.ExtractionRow{Document: *d, Extraction: *e, Record: rec})
	}
	return out, rows.Err()
}

func scanExtraction(row rowScanner) (*entity.Extraction, error) {
	build, dest := extractionDest()
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return build()
}

// extractionDest returns scan targets for extractionColumns and a builder
// that converts them once scanned.
func extractionDest() (func() (*entity.Extraction, error), []any) {
	var (
		id, docID, version, stage, method, payload, warnings string
		created                                              int64
	)
	dest := []any{&id, &docID, &version, &stage, &method, &payload, &warnings, &created}
	build := func() (*entity.Extraction, error) {
		e := &entity.Extraction{
			ParserVersion: version,
			Stage:         stage,
			Method:        constants.ExtractionMethod(method),
			Payload:       json.RawMessage(payload),
			CreatedAt:     fromMillis(created),
		}
		var err error
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if e.DocumentID, err = uuid.Parse(docID); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(warnings), &e.Warnings); err != nil {
			return nil, err
		}
		return e, nil
	}
	return build, dest
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
