// Package category manages categories and the dictionary version each one
// validates against.
package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

type categoryRepo interface {
	Create(ctx context.Context, cat domain.Category) (domain.Category, error)
	UpdateActiveDictionary(ctx context.Context, id, dictionaryID, updatedBy uuid.UUID, updatedAt time.Time) (domain.Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

type dictionaryRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Dictionary, error)
}

// Service manages categories.
type Service struct {
	log        *slog.Logger
	categories categoryRepo
	dicts      dictionaryRepo
	now        func() time.Time
}

// NewService creates a category Service.
func NewService(logger *slog.Logger, categories categoryRepo, dicts dictionaryRepo) *Service {
	return &Service{
		log:        logger.With("service", "category"),
		categories: categories,
		dicts:      dicts,
		now:        time.Now,
	}
}

// CreateInput holds the parameters of a new category.
type CreateInput struct {
	Name                 string
	DictionaryID         uuid.UUID
	DefaultCentricEntity *string
}

// Validate checks all fields and collects all errors.
func (i *CreateInput) Validate() error {
	var errs []domain.FieldError

	name := strings.TrimSpace(i.Name)
	if name == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "required"})
	} else if len(name) > 255 {
		errs = append(errs, domain.FieldError{Field: "name", Message: "too long (max 255)"})
	}
	if i.DictionaryID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "dictionary_id", Message: "required"})
	}
	if i.DefaultCentricEntity != nil && *i.DefaultCentricEntity == "" {
		errs = append(errs, domain.FieldError{Field: "default_centric_entity", Message: "must not be empty"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// Create registers a category bound to an existing dictionary.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.Category, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.Category{}, domain.ErrUnauthorized
	}
	if err := input.Validate(); err != nil {
		return domain.Category{}, err
	}

	dict, err := s.dictionary(ctx, input.DictionaryID)
	if err != nil {
		return domain.Category{}, err
	}
	if input.DefaultCentricEntity != nil && !dict.HasSchema(*input.DefaultCentricEntity) {
		return domain.Category{}, domain.NewValidationError("default_centric_entity",
			"entity "+*input.DefaultCentricEntity+" is not defined in "+dict.Name+"@"+dict.Version)
	}

	now := s.now().UTC()
	cat, err := s.categories.Create(ctx, domain.Category{
		ID:                   uuid.New(),
		Name:                 strings.TrimSpace(input.Name),
		ActiveDictionaryID:   dict.ID,
		DefaultCentricEntity: input.DefaultCentricEntity,
		CreatedAt:            now,
		CreatedBy:            userID,
		UpdatedAt:            now,
		UpdatedBy:            userID,
	})
	if err != nil {
		return domain.Category{}, fmt.Errorf("create category: %w", err)
	}

	s.log.InfoContext(ctx, "category created",
		slog.String("category_id", cat.ID.String()),
		slog.String("name", cat.Name),
		slog.String("dictionary_id", dict.ID.String()),
		slog.String("user_id", userID.String()),
	)
	return cat, nil
}

// SetActiveDictionary moves a category to another version of its dictionary.
// Open submissions pick up the new version on their next change.
func (s *Service) SetActiveDictionary(ctx context.Context, categoryID, dictionaryID uuid.UUID) (domain.Category, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.Category{}, domain.ErrUnauthorized
	}
	if categoryID == uuid.Nil || dictionaryID == uuid.Nil {
		return domain.Category{}, domain.NewValidationError("dictionary_id", "category and dictionary required")
	}

	cat, err := s.Get(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	current, err := s.dictionary(ctx, cat.ActiveDictionaryID)
	if err != nil {
		return domain.Category{}, err
	}
	next, err := s.dictionary(ctx, dictionaryID)
	if err != nil {
		return domain.Category{}, err
	}
	if next.Name != current.Name {
		return domain.Category{}, fmt.Errorf("dictionary %s is not a version of %s: %w", next.Name, current.Name, domain.ErrBadRequest)
	}
	if cat.DefaultCentricEntity != nil && !next.HasSchema(*cat.DefaultCentricEntity) {
		return domain.Category{}, fmt.Errorf("dictionary %s@%s drops centric entity %s: %w",
			next.Name, next.Version, *cat.DefaultCentricEntity, domain.ErrBadRequest)
	}

	updated, err := s.categories.UpdateActiveDictionary(ctx, cat.ID, next.ID, userID, s.now().UTC())
	if err != nil {
		return domain.Category{}, fmt.Errorf("update category: %w", err)
	}

	s.log.InfoContext(ctx, "category dictionary changed",
		slog.String("category_id", cat.ID.String()),
		slog.String("from", current.Version),
		slog.String("to", next.Version),
		slog.String("user_id", userID.String()),
	)
	return updated, nil
}

// Get returns a category by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Category, error) {
	cat, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return domain.Category{}, fmt.Errorf("get category: %w", err)
	}
	return cat, nil
}

// List returns every category.
func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// dictionary loads a dictionary a caller referenced; unknown ids are the
// caller's mistake.
func (s *Service) dictionary(ctx context.Context, id uuid.UUID) (domain.Dictionary, error) {
	d, err := s.dicts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Dictionary{}, fmt.Errorf("dictionary %s: %w", id, domain.ErrBadRequest)
		}
		return domain.Dictionary{}, fmt.Errorf("get dictionary: %w", err)
	}
	return d, nil
}
