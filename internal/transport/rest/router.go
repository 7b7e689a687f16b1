package rest

import (
	"net/http"

	"github.com/heartmarshall/submission-backend/internal/transport/middleware"
)

// Handlers groups every REST handler the router mounts.
type Handlers struct {
	Health        *HealthHandler
	Dictionary    *DictionaryHandler
	Category      *CategoryHandler
	Submission    *SubmissionHandler
	SubmittedData *SubmittedDataHandler
}

// NewRouter mounts the API. mutating wraps the endpoints that queue
// background work (rate limiting); it may be nil.
func NewRouter(h Handlers, mutating middleware.Middleware) *http.ServeMux {
	admin := func(fn http.HandlerFunc) http.Handler { return middleware.RequireAdmin(fn) }
	queued := func(fn http.HandlerFunc) http.Handler { return middleware.Chain(mutating)(fn) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", h.Health.Live)
	mux.HandleFunc("GET /ready", h.Health.Ready)
	mux.HandleFunc("GET /health", h.Health.Health)

	mux.Handle("POST /dictionaries", admin(h.Dictionary.Register))
	mux.HandleFunc("GET /dictionaries", h.Dictionary.List)
	mux.HandleFunc("GET /dictionaries/{dictionaryID}", h.Dictionary.Get)
	mux.HandleFunc("GET /dictionaries/{dictionaryID}/graph", h.Dictionary.Graph)

	mux.Handle("POST /categories", admin(h.Category.Create))
	mux.HandleFunc("GET /categories", h.Category.List)
	mux.HandleFunc("GET /categories/{categoryID}", h.Category.Get)
	mux.Handle("PUT /categories/{categoryID}/dictionary", admin(h.Category.SetDictionary))

	mux.Handle("POST /categories/{categoryID}/submissions", queued(h.Submission.Submit))
	mux.HandleFunc("GET /categories/{categoryID}/submissions", h.Submission.List)
	mux.HandleFunc("GET /categories/{categoryID}/submissions/active", h.Submission.GetActive)
	mux.Handle("POST /categories/{categoryID}/submissions/{submissionID}/commit", queued(h.Submission.Commit))
	mux.Handle("PUT /categories/{categoryID}/data", queued(h.Submission.Edit))
	mux.Handle("DELETE /categories/{categoryID}/data/{systemID}", queued(h.Submission.DeleteData))
	mux.HandleFunc("GET /submissions/{submissionID}", h.Submission.Get)
	mux.HandleFunc("POST /submissions/{submissionID}/close", h.Submission.Close)
	mux.Handle("POST /submissions/{submissionID}/revalidate", queued(h.Submission.Revalidate))
	mux.Handle("DELETE /submissions/{submissionID}/{actionType}", queued(h.Submission.DeleteEntity))

	mux.HandleFunc("GET /categories/{categoryID}/data", h.SubmittedData.List)
	mux.HandleFunc("GET /categories/{categoryID}/audit", h.SubmittedData.History)
	mux.HandleFunc("GET /data/{systemID}", h.SubmittedData.Get)
	mux.HandleFunc("GET /data/{systemID}/dependents", h.SubmittedData.Dependents)

	return mux
}
