package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/internal/service/submission"
)

type submissionService interface {
	Submit(ctx context.Context, input submission.SubmitInput) (submission.MutationResult, error)
	Edit(ctx context.Context, input submission.EditInput) (submission.MutationResult, error)
	DeleteSubmittedData(ctx context.Context, input submission.DeleteDataInput) (submission.MutationResult, error)
	DeleteEntity(ctx context.Context, input submission.DeleteEntityInput) (submission.MutationResult, error)
	Close(ctx context.Context, submissionID uuid.UUID) (domain.ActiveSubmission, error)
	Commit(ctx context.Context, input submission.CommitInput) (submission.MutationResult, error)
	Revalidate(ctx context.Context, submissionID uuid.UUID) (submission.MutationResult, error)
	Get(ctx context.Context, submissionID uuid.UUID) (domain.ActiveSubmission, error)
	GetActive(ctx context.Context, categoryID uuid.UUID, organization string) (domain.ActiveSubmission, error)
	List(ctx context.Context, input submission.ListInput) ([]domain.ActiveSubmission, error)
}

// SubmissionHandler serves active submission endpoints.
type SubmissionHandler struct {
	svc submissionService
	log *slog.Logger
}

// NewSubmissionHandler creates a SubmissionHandler.
func NewSubmissionHandler(svc submissionService, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, log: logger.With("handler", "submission")}
}

type submitRequest struct {
	Organization string                        `json:"organization"`
	Inserts      map[string]domain.InsertBatch `json:"inserts"`
}

type editRequest struct {
	Organization string `json:"organization"`
	Records      []struct {
		SystemID string            `json:"systemId"`
		Data     domain.DataRecord `json:"data"`
	} `json:"records"`
}

// Submit handles POST /categories/{categoryID}/submissions.
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathUUID(r, "categoryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	result, err := h.svc.Submit(r.Context(), submission.SubmitInput{
		CategoryID:   categoryID,
		Organization: req.Organization,
		Inserts:      req.Inserts,
	})
	h.respondMutation(w, r, result, err)
}

// Edit handles PUT /categories/{categoryID}/data.
func (h *SubmissionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathUUID(r, "categoryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	records := make([]submission.EditRecord, len(req.Records))
	for i, rec := range req.Records {
		records[i] = submission.EditRecord{SystemID: rec.SystemID, Data: rec.Data}
	}
	result, err := h.svc.Edit(r.Context(), submission.EditInput{
		CategoryID:   categoryID,
		Organization: req.Organization,
		Records:      records,
	})
	h.respondMutation(w, r, result, err)
}

// DeleteData handles DELETE /categories/{categoryID}/data/{systemID}?organization=&entityName=.
func (h *SubmissionHandler) DeleteData(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathUUID(r, "categoryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	q := r.URL.Query()
	result, err := h.svc.DeleteSubmittedData(r.Context(), submission.DeleteDataInput{
		CategoryID:   categoryID,
		Organization: q.Get("organization"),
		SystemID:     r.PathValue("systemID"),
		EntityName:   q.Get("entityName"),
	})
	h.respondMutation(w, r, result, err)
}

// DeleteEntity handles DELETE /submissions/{submissionID}/{actionType}?entityName=&index=.
func (h *SubmissionHandler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	submissionID, err := pathUUID(r, "submissionID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	input := submission.DeleteEntityInput{
		SubmissionID: submissionID,
		EntityName:   r.URL.Query().Get("entityName"),
		ActionType:   domain.SubmissionActionType(strings.ToUpper(r.PathValue("actionType"))),
	}
	if r.URL.Query().Has("index") {
		index, err := queryInt(r, "index", 0)
		if err != nil {
			handleError(h.log, w, r, err)
			return
		}
		input.Index = &index
	}

	result, err := h.svc.DeleteEntity(r.Context(), input)
	h.respondMutation(w, r, result, err)
}

// Commit handles POST /categories/{categoryID}/submissions/{submissionID}/commit.
func (h *SubmissionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathUUID(r, "categoryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	submissionID, err := pathUUID(r, "submissionID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	result, err := h.svc.Commit(r.Context(), submission.CommitInput{
		CategoryID:   categoryID,
		SubmissionID: submissionID,
	})
	h.respondMutation(w, r, result, err)
}

// Revalidate handles POST /submissions/{submissionID}/revalidate.
func (h *SubmissionHandler) Revalidate(w http.ResponseWriter, r *http.Request) {
	submissionID, err := pathUUID(r, "submissionID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	result, err := h.svc.Revalidate(r.Context(), submissionID)
	h.respondMutation(w, r, result, err)
}

// Close handles POST /submissions/{submissionID}/close.
func (h *SubmissionHandler) Close(w http.ResponseWriter, r *http.Request) {
	submissionID, err := pathUUID(r, "submissionID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	sub, err := h.svc.Close(r.Context(), submissionID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Get handles GET /submissions/{submissionID}.
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	submissionID, err := pathUUID(r, "submissionID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	sub, err := h.svc.Get(r.Context(), submissionID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// GetActive handles GET /categories/{categoryID}/submissions/active?organization=.
func (h *SubmissionHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathUUID(r, "categoryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	sub, err := h.svc.GetActive(r.Context(), categoryID, r.URL.Query().Get("organization"))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// List handles GET /categories/{categoryID}/submissions?organization=&onlyActive=&limit=&offset=.
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathUUID(r, "categoryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	onlyActive, err := queryBool(r, "onlyActive")
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

	subs, err := h.svc.List(r.Context(), submission.ListInput{
		CategoryID:   categoryID,
		Organization: r.URL.Query().Get("organization"),
		OnlyActive:   onlyActive,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// respondMutation answers 202 once work is queued. A result that queued
// nothing carries only batch errors and is a bad request.
func (h *SubmissionHandler) respondMutation(w http.ResponseWriter, r *http.Request, result submission.MutationResult, err error) {
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if result.SubmissionID == nil {
		writeJSON(w, http.StatusBadRequest, result)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}
