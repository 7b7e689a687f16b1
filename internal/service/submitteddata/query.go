package submitteddata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/internal/filter"
)

// Page is one page of a listing together with the total match count.
type Page struct {
	Items []domain.SubmittedData `json:"items"`
	Total int                    `json:"total"`
}

// List returns committed records matching input, ordered by entity and
// systemId.
func (s *Service) List(ctx context.Context, input ListInput) (Page, error) {
	if err := input.Validate(); err != nil {
		return Page{}, err
	}

	dict, err := s.activeDictionary(ctx, input.CategoryID)
	if err != nil {
		return Page{}, err
	}
	pred, err := filter.Compile(input.Filter, dict.FieldTypes())
	if err != nil {
		return Page{}, err
	}

	q := domain.SubmittedDataQuery{
		EntityNames: input.EntityNames,
		OnlyValid:   input.OnlyValid,
		Predicate:   pred,
		Limit:       pageSize(input.Limit),
		Offset:      input.Offset,
	}
	items, err := s.data.List(ctx, input.CategoryID, input.Organization, q)
	if err != nil {
		return Page{}, fmt.Errorf("list submitted data: %w", err)
	}
	total, err := s.data.Count(ctx, input.CategoryID, input.Organization, q)
	if err != nil {
		return Page{}, fmt.Errorf("count submitted data: %w", err)
	}

	s.log.DebugContext(ctx, "submitted data listed",
		slog.String("category_id", input.CategoryID.String()),
		slog.String("organization", input.Organization),
		slog.Int("items", len(items)),
		slog.Int("total", total),
	)

	if items == nil {
		items = []domain.SubmittedData{}
	}
	return Page{Items: items, Total: total}, nil
}

// Get returns the committed record with systemID.
func (s *Service) Get(ctx context.Context, systemID string) (domain.SubmittedData, error) {
	if systemID == "" {
		return domain.SubmittedData{}, domain.NewValidationError("system_id", "required")
	}
	row, err := s.data.GetBySystemID(ctx, systemID)
	if err != nil {
		return domain.SubmittedData{}, fmt.Errorf("get submitted data: %w", err)
	}
	return row, nil
}

// Dependents returns every committed record that would be deleted together
// with systemID.
func (s *Service) Dependents(ctx context.Context, systemID string) ([]domain.SubmittedData, error) {
	row, err := s.Get(ctx, systemID)
	if err != nil {
		return nil, err
	}
	dict, err := s.activeDictionary(ctx, row.CategoryID)
	if err != nil {
		return nil, err
	}

	deps, err := s.cascade.Dependents(ctx, s.graphs.Get(&dict).Children, row)
	if err != nil {
		return nil, fmt.Errorf("resolve dependents of %s: %w", systemID, err)
	}
	if deps == nil {
		deps = []domain.SubmittedData{}
	}
	return deps, nil
}

// History returns audit records matching input, newest first.
func (s *Service) History(ctx context.Context, input HistoryInput) ([]domain.AuditRecord, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	recs, err := s.audit.List(ctx, domain.AuditQuery{
		CategoryID:   input.CategoryID,
		Organization: input.Organization,
		SystemID:     input.SystemID,
		EntityName:   input.EntityName,
		Action:       input.Action,
		Limit:        pageSize(input.Limit),
		Offset:       input.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	if recs == nil {
		recs = []domain.AuditRecord{}
	}
	return recs, nil
}

func (s *Service) activeDictionary(ctx context.Context, categoryID uuid.UUID) (domain.Dictionary, error) {
	cat, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return domain.Dictionary{}, fmt.Errorf("get category: %w", err)
	}
	dict, err := s.dicts.GetByID(ctx, cat.ActiveDictionaryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Dictionary{}, fmt.Errorf("active dictionary %s of category %s: %w", cat.ActiveDictionaryID, cat.ID, domain.ErrInternal)
		}
		return domain.Dictionary{}, fmt.Errorf("get dictionary: %w", err)
	}
	return dict, nil
}
