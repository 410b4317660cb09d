package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/form106-ingest/internal/entity"
	"github.com/joseph-ayodele/form106-ingest/internal/repository"
	"github.com/joseph-ayodele/form106-ingest/internal/toolexec"
)

type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

type ToolReporter interface {
	Report(ctx context.Context) toolexec.Report
}

// Admin holds the dependencies of the admin HTTP surface. Nil members
// disable the routes that need them.
type Admin struct {
	DB          Pinger
	Tools       ToolReporter
	Exporter    Exporter
	Docs        repository.DocumentRepository
	Extractions repository.ExtractionRepository
	Failures    repository.FailureRepository
	Version     string
	Logger      *slog.Logger
}

type healthResponse struct {
	OK       bool   `json:"ok"`
	Version  string `json:"version"`
	Database string `json:"database,omitempty"`
}

type documentResponse struct {
	Document   *entity.Document        `json:"document"`
	Extraction *entity.Extraction      `json:"extraction,omitempty"`
	Failures   []entity.ParsingFailure `json:"failures,omitempty"`
}

// AdminRouter serves health, tool discovery, export and document lookups.
func AdminRouter(a Admin) http.Handler {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.health)
	if a.Tools != nil {
		r.Get("/tools", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, a.Tools.Report(r.Context()))
		})
	}
	if a.Exporter != nil {
		r.Get("/export.xlsx", a.export)
	}
	if a.Docs != nil {
		r.Get("/documents/{id}", a.document)
	}
	return r
}

func (a Admin) health(w http.ResponseWriter, r *http.Request) {
	out := healthResponse{OK: true, Version: a.Version}
	if a.DB != nil {
		out.Database = "ok"
		if err := a.DB.HealthCheck(r.Context(), 2*time.Second); err != nil {
			a.Logger.Warn("admin health check failed", "error", err)
			out.OK, out.Database = false, "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, out)
			return
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a Admin) export(w http.ResponseWriter, r *http.Request) {
	xlsx, err := a.Exporter.ExportXLSX(r.Context())
	if err != nil {
		a.Logger.Error("export.xlsx.failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="form106.xlsx"`)
	_, _ = w.Write(xlsx)
}

func (a Admin) document(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "id must be a UUID", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	doc, err := a.Docs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.Logger.Error("document lookup failed", "document_id", id, "error", err)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	out := documentResponse{Document: doc}
	if a.Extractions != nil {
		ex, err := a.Extractions.Latest(ctx, id)
		switch {
		case err == nil:
			out.Extraction = ex
		case !errors.Is(err, repository.ErrNotFound):
			a.Logger.Error("extraction lookup failed", "document_id", id, "error", err)
		}
	}
	if a.Failures != nil {
		if fails, err := a.Failures.ListByDocument(ctx, id); err == nil {
			out.Failures = fails
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
