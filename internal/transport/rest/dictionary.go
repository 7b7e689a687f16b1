package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/dictgraph"
	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/internal/service/dictionary"
)

type dictionaryService interface {
	Register(ctx context.Context, input dictionary.RegisterInput) (domain.Dictionary, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Dictionary, error)
	GetByNameVersion(ctx context.Context, name, version string) (domain.Dictionary, error)
	List(ctx context.Context) ([]domain.Dictionary, error)
	Graph(ctx context.Context, id uuid.UUID) (*dictgraph.Graph, error)
}

// DictionaryHandler serves the dictionary registry.
type DictionaryHandler struct {
	svc dictionaryService
	log *slog.Logger
}

// NewDictionaryHandler creates a DictionaryHandler.
func NewDictionaryHandler(svc dictionaryService, logger *slog.Logger) *DictionaryHandler {
	return &DictionaryHandler{svc: svc, log: logger.With("handler", "dictionary")}
}

// Register handles POST /dictionaries. The body is a dictionary document.
func (h *DictionaryHandler) Register(w http.ResponseWriter, r *http.Request) {
	var dict domain.Dictionary
	if err := decodeJSON(r, &dict); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	created, err := h.svc.Register(r.Context(), dictionary.RegisterInput{Dictionary: dict})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /dictionaries, or a single lookup with ?name=&version=.
func (h *DictionaryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if name, version := q.Get("name"), q.Get("version"); name != "" || version != "" {
		dict, err := h.svc.GetByNameVersion(r.Context(), name, version)
		if err != nil {
			handleError(h.log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, []domain.Dictionary{dict})
		return
	}

	dicts, err := h.svc.List(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dicts)
}

// Get handles GET /dictionaries/{dictionaryID}.
func (h *DictionaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "dictionaryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	dict, err := h.svc.Get(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dict)
}

// Graph handles GET /dictionaries/{dictionaryID}/graph.
func (h *DictionaryHandler) Graph(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "dictionaryID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	g, err := h.svc.Graph(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g.View())
}
