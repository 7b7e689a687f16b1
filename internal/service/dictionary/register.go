package dictionary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/dictgraph"
	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

// Register validates and stores a new dictionary version. A second dictionary
// with the same name and version yields domain.ErrAlreadyExists; a foreign
// key cycle yields domain.ErrBadRequest.
func (s *Service) Register(ctx context.Context, input RegisterInput) (domain.Dictionary, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.Dictionary{}, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return domain.Dictionary{}, err
	}
	if err := dictgraph.ValidateAcyclic(input.Dictionary.Schemas); err != nil {
		return domain.Dictionary{}, err
	}

	d := input.Dictionary
	_, err := s.dicts.GetByNameVersion(ctx, d.Name, d.Version)
	switch {
	case err == nil:
		return domain.Dictionary{}, fmt.Errorf("dictionary %s@%s: %w", d.Name, d.Version, domain.ErrAlreadyExists)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Dictionary{}, fmt.Errorf("get dictionary: %w", err)
	}

	d.ID = uuid.New()
	d.CreatedAt = s.now().UTC()
	d.CreatedBy = userID

	created, err := s.dicts.Create(ctx, d)
	if err != nil {
		return domain.Dictionary{}, fmt.Errorf("create dictionary: %w", err)
	}
	graph := s.graphs.Get(&created)

	s.log.InfoContext(ctx, "dictionary registered",
		slog.String("dictionary_id", created.ID.String()),
		slog.String("name", created.Name),
		slog.String("version", created.Version),
		slog.Int("schemas", len(created.Schemas)),
		slog.Int("roots", len(graph.Desc)),
		slog.String("user_id", userID.String()),
	)
	return created, nil
}
