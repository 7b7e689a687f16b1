package dictionary

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/dictgraph"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// Get returns a dictionary by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Dictionary, error) {
	d, err := s.dicts.GetByID(ctx, id)
	if err != nil {
		return domain.Dictionary{}, fmt.Errorf("get dictionary: %w", err)
	}
	return d, nil
}

// GetByNameVersion returns the dictionary registered as name@version.
func (s *Service) GetByNameVersion(ctx context.Context, name, version string) (domain.Dictionary, error) {
	if name == "" || version == "" {
		return domain.Dictionary{}, domain.NewValidationError("name", "name and version required")
	}
	d, err := s.dicts.GetByNameVersion(ctx, name, version)
	if err != nil {
		return domain.Dictionary{}, fmt.Errorf("get dictionary: %w", err)
	}
	return d, nil
}

// List returns every registered dictionary.
func (s *Service) List(ctx context.Context) ([]domain.Dictionary, error) {
	list, err := s.dicts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dictionaries: %w", err)
	}
	return list, nil
}

// Graph returns the dependency graph of a registered dictionary.
func (s *Service) Graph(ctx context.Context, id uuid.UUID) (*dictgraph.Graph, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.graphs.Get(&d), nil
}
