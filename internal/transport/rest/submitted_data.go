package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/internal/service/submitteddata"
)

type submittedDataService interface {
	List(ctx context.Context, input submitteddata.ListInput) (submitteddata.Page, error)
	Get(ctx context.Context, systemID string) (domain.SubmittedData, error)
	Dependents(ctx context.Context, systemID string) ([]domain.SubmittedData, error)
	History(ctx context.Context, input submitteddata.HistoryInput) ([]domain.AuditRecord, error)
}

// SubmittedDataHandler serves the committed dataset and its audit history.
type SubmittedDataHandler struct {
	svc submittedDataService
	log *slog.Logger
}

// NewSubmittedDataHandler creates a SubmittedDataHandler.
func NewSubmittedDataHandler(svc submittedDataService, logger *slog.Logger) *SubmittedDataHandler {
	return &SubmittedDataHandler{svc: svc, log: logger.With("handler", "submitted_data")}
}

// List handles GET /categories/{categoryID}/data?organization=&entityName=a,b&filter=&onlyValid=&limit=&offset=.
func (h *SubmittedDataHandler) List(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathUUID(r, "categoryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	onlyValid, err := queryBool(r, "onlyValid")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	q := r.URL.Query()
	page, err := h.svc.List(r.Context(), submitteddata.ListInput{
		CategoryID:   categoryID,
		Organization: q.Get("organization"),
		EntityNames:  splitList(q["entityName"]),
		Filter:       q.Get("filter"),
		OnlyValid:    onlyValid,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /data/{systemID}.
func (h *SubmittedDataHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), r.PathValue("systemID"))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Dependents handles GET /data/{systemID}/dependents.
func (h *SubmittedDataHandler) Dependents(w http.ResponseWriter, r *http.Request) {
	deps, err := h.svc.Dependents(r.Context(), r.PathValue("systemID"))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}

// History handles GET /categories/{categoryID}/audit?organization=&systemId=&entityName=&action=&limit=&offset=.
func (h *SubmittedDataHandler) History(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathUUID(r, "categoryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	q := r.URL.Query()
	records, err := h.svc.History(r.Context(), submitteddata.HistoryInput{
		CategoryID:   categoryID,
		Organization: q.Get("organization"),
		SystemID:     q.Get("systemId"),
		EntityName:   q.Get("entityName"),
		Action:       domain.AuditAction(strings.ToUpper(q.Get("action"))),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// splitList accepts both repeated parameters and comma-separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
