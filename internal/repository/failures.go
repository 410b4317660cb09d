package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
	"github.com/joseph-ayodele/form106-ingest/internal/utils"
)

type FailureRepository interface {
	Create(ctx context.Context, f *entity.ParsingFailure) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]entity.ParsingFailure, error)
}

type failureRepo struct {
	db *DB
}

func NewFailureRepository(db *DB) FailureRepository {
	return &failureRepo{db: db}
}

// Create stores stage, code, version and the redacted message. Causes are
// never persisted.
func (r *failureRepo) Create(ctx context.Context, f *entity.ParsingFailure) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.CreatedAt = time.Now().UTC()
	f.Message = utils.Redact(f.Message)
	_, err := r.db.exec(ctx, `INSERT INTO parsing_failures
		(id, document_id, parser_version, stage, code, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID.String(), f.DocumentID.String(), f.ParserVersion, f.Stage, string(f.Code), f.Message, toMillis(f.CreatedAt))
	if err != nil {
		r.db.logger.Error("failed to store parsing failure", "document_id", f.DocumentID, "code", f.Code, "error", err)
		return err
	}
	return nil
}

func (r *failureRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]entity.ParsingFailure, error) {
	rows, err := r.db.query(ctx, `SELECT id, document_id, parser_version, stage, code, message, created_at
		FROM parsing_failures WHERE document_id = ? ORDER BY created_at`, documentID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.ParsingFailure
	for rows.Next() {
		var (
			f             entity.ParsingFailure
			id, doc, code string
			created       int64
		)
		if err := rows.Scan(&id, &doc, &f.ParserVersion, &f.Stage, &code, &f.Message, &created); err != nil {
			return nil, err
		}
		if f.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if f.DocumentID, err = uuid.Parse(doc); err != nil {
			return nil, err
		}
		f.Code = constants.ErrorCode(code)
		f.CreatedAt = fromMillis(created)
		out = append(out, f)
	}
	return out, rows.Err()
}
