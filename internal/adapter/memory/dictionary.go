package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// DictionaryRepo stores dictionaries.
type DictionaryRepo struct{ s *Store }

// Create inserts dict; a duplicate id or (name, version) yields domain.ErrAlreadyExists.
func (r *DictionaryRepo) Create(ctx context.Context, dict domain.Dictionary) (domain.Dictionary, error) {
	stored, err := copyOf(dict)
	if err != nil {
		return domain.Dictionary{}, err
	}
	err = r.s.write(ctx, func(st *state) error {
		if _, ok := st.dictionaries[dict.ID]; ok {
			return fmt.Errorf("dictionary %s: %w", dict.ID, domain.ErrAlreadyExists)
		}
		for _, d := range st.dictionaries {
			if d.Name == dict.Name && d.Version == dict.Version {
				return fmt.Errorf("dictionary %s: %w", dict.ID, domain.ErrAlreadyExists)
			}
		}
		st.dictionaries[dict.ID] = stored
		return nil
	})
	if err != nil {
		return domain.Dictionary{}, err
	}
	return copyOf(stored)
}

// GetByID returns the dictionary with the given id.
func (r *DictionaryRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Dictionary, error) {
	var found domain.Dictionary
	err := r.s.read(ctx, func(st *state) error {
		d, ok := st.dictionaries[id]
		if !ok {
			return fmt.Errorf("dictionary %s: %w", id, domain.ErrNotFound)
		}
		found = d
		return nil
	})
	if err != nil {
		return domain.Dictionary{}, err
	}
	return copyOf(found)
}

// GetByNameVersion returns the dictionary identified by (name, version).
func (r *DictionaryRepo) GetByNameVersion(ctx context.Context, name, version string) (domain.Dictionary, error) {
	var (
		found domain.Dictionary
		ok    bool
	)
	err := r.s.read(ctx, func(st *state) error {
		for _, d := range st.dictionaries {
			if d.Name == name && d.Version == version {
				found, ok = d, true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return domain.Dictionary{}, err
	}
	if !ok {
		return domain.Dictionary{}, fmt.Errorf("dictionary %s@%s: %w", name, version, domain.ErrNotFound)
	}
	return copyOf(found)
}

// List returns all dictionaries ordered by name, then newest first.
func (r *DictionaryRepo) List(ctx context.Context) ([]domain.Dictionary, error) {
	var out []domain.Dictionary
	err := r.s.read(ctx, func(st *state) error {
		for _, d := range st.dictionaries {
			out = append(out, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return copyOf(out)
}

// CategoryRepo stores categories.
type CategoryRepo struct{ s *Store }

// Create inserts cat. A duplicate name yields domain.ErrAlreadyExists; an
// unknown dictionary yields domain.ErrNotFound.
func (r *CategoryRepo) Create(ctx context.Context, cat domain.Category) (domain.Category, error) {
	stored, err := copyOf(cat)
	if err != nil {
		return domain.Category{}, err
	}
	err = r.s.write(ctx, func(st *state) error {
		if _, ok := st.dictionaries[cat.ActiveDictionaryID]; !ok {
			return fmt.Errorf("category %s: dictionary %s: %w", cat.ID, cat.ActiveDictionaryID, domain.ErrNotFound)
		}
		if _, ok := st.categories[cat.ID]; ok {
			return fmt.Errorf("category %s: %w", cat.ID, domain.ErrAlreadyExists)
		}
		for _, c := range st.categories {
			if c.Name == cat.Name {
				return fmt.Errorf("category %s: %w", cat.ID, domain.ErrAlreadyExists)
			}
		}
		st.categories[cat.ID] = stored
		return nil
	})
	if err != nil {
		return domain.Category{}, err
	}
	return copyOf(stored)
}

// UpdateActiveDictionary points the category at another dictionary version.
func (r *CategoryRepo) UpdateActiveDictionary(ctx context.Context, id, dictionaryID, updatedBy uuid.UUID, updatedAt time.Time) (domain.Category, error) {
	var updated domain.Category
	err := r.s.write(ctx, func(st *state) error {
		cat, ok := st.categories[id]
		if !ok {
			return fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
		}
		if _, ok := st.dictionaries[dictionaryID]; !ok {
			return fmt.Errorf("category %s: dictionary %s: %w", id, dictionaryID, domain.ErrNotFound)
		}
		cat.ActiveDictionaryID = dictionaryID
		cat.UpdatedAt = updatedAt
		cat.UpdatedBy = updatedBy
		st.categories[id] = cat
		updated = cat
		return nil
	})
	if err != nil {
		return domain.Category{}, err
	}
	return copyOf(updated)
}

// GetByID returns the category with the given id.
func (r *CategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Category, error) {
	var found domain.Category
	err := r.s.read(ctx, func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
		}
		found = c
		return nil
	})
	if err != nil {
		return domain.Category{}, err
	}
	return copyOf(found)
}

// List returns all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := r.s.read(ctx, func(st *state) error {
		for _, c := range st.categories {
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return copyOf(out)
}
