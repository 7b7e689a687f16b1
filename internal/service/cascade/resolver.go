// Package cascade finds the committed records that transitively depend on a
// given record through dictionary foreign keys.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/submission-backend/internal/dictgraph"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

type submittedDataRepo interface {
	ListByFilter(ctx context.Context, categoryID uuid.UUID, organization string, filter domain.DataFilter) ([]domain.SubmittedData, error)
}

// Resolver walks child relations depth-first. Sibling relations are queried
// concurrently, so Dependents must not be called with a context that
// carries a database transaction.
type Resolver struct {
	data submittedDataRepo
	log  *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(log *slog.Logger, data submittedDataRepo) *Resolver {
	return &Resolver{
		data: data,
		log:  log.With("service", "cascade"),
	}
}

type collector struct {
	mu   sync.Mutex
	seen map[uuid.UUID]struct{}
	out  []domain.SubmittedData
}

// add records rec and reports whether it was new.
func (c *collector) add(rec domain.SubmittedData) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[rec.ID]; ok {
		return false
	}
	c.seen[rec.ID] = struct{}{}
	c.out = append(c.out, rec)
	return true
}

// Dependents returns every record, in the same category and organization as
// root, that references root directly or through other dependents. The
// result excludes root, holds each record once and is sorted by entity name
// and systemId.
func (r *Resolver) Dependents(ctx context.Context, children map[string][]dictgraph.ChildRelation, root domain.SubmittedData) ([]domain.SubmittedData, error) {
	c := &collector{seen: map[uuid.UUID]struct{}{root.ID: {}}}

	if err := r.walk(ctx, children, root, 1, c); err != nil {
		return nil, err
	}

	sort.Slice(c.out, func(i, j int) bool {
		if c.out[i].EntityName != c.out[j].EntityName {
			return c.out[i].EntityName < c.out[j].EntityName
		}
		return c.out[i].SystemID < c.out[j].SystemID
	})

	r.log.DebugContext(ctx, "dependents resolved",
		slog.String("system_id", root.SystemID),
		slog.String("entity", root.EntityName),
		slog.Int("count", len(c.out)),
	)

	return c.out, nil
}

func (r *Resolver) walk(ctx context.Context, children map[string][]dictgraph.ChildRelation, rec domain.SubmittedData, depth int, c *collector) error {
	relations := children[rec.EntityName]
	if len(relations) == 0 {
		return nil
	}
	if depth > len(children) {
		return fmt.Errorf("dependents of %s exceed depth %d: %w", rec.SystemID, len(children), domain.ErrInternal)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, rel := range relations {
		value, ok := rec.Data[rel.ParentFieldName]
		if !ok || value == nil || value == "" {
			continue
		}
		g.Go(func() error {
			found, err := r.data.ListByFilter(gctx, rec.CategoryID, rec.Organization, domain.DataFilter{
				EntityName: rel.SchemaName,
				DataField:  rel.FieldName,
				DataValue:  value,
			})
			if err != nil {
				return fmt.Errorf("list %s by %s: %w", rel.SchemaName, rel.FieldName, err)
			}
			for _, dep := range found {
				if !c.add(dep) {
					continue
				}
				if err := r.walk(gctx, children, dep, depth+1, c); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
