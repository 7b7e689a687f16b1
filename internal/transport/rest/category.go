package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/internal/service/category"
)

type categoryService interface {
	Create(ctx context.Context, input category.CreateInput) (domain.Category, error)
	SetActiveDictionary(ctx context.Context, categoryID, dictionaryID uuid.UUID) (domain.Category, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

// CategoryHandler serves category endpoints.
type CategoryHandler struct {
	svc categoryService
	log *slog.Logger
}

// NewCategoryHandler creates a CategoryHandler.
func NewCategoryHandler(svc categoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{svc: svc, log: logger.With("handler", "category")}
}

type createCategoryRequest struct {
	Name                 string    `json:"name"`
	DictionaryID         uuid.UUID `json:"dictionaryId"`
	DefaultCentricEntity *string   `json:"defaultCentricEntity"`
}

type setDictionaryRequest struct {
	DictionaryID uuid.UUID `json:"dictionaryId"`
}

// Create handles POST /categories.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	cat, err := h.svc.Create(r.Context(), category.CreateInput{
		Name:                 req.Name,
		DictionaryID:         req.DictionaryID,
		DefaultCentricEntity: req.DefaultCentricEntity,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

// List handles GET /categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.List(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// Get handles GET /categories/{categoryID}.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "categoryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	cat, err := h.svc.Get(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// SetDictionary handles PUT /categories/{categoryID}/dictionary.
func (h *CategoryHandler) SetDictionary(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "categoryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	var req setDictionaryRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	cat, err := h.svc.SetActiveDictionary(r.Context(), id, req.DictionaryID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}
