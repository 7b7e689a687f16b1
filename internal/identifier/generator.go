// Package identifier issues systemIds for newly committed records.
package identifier

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// Strategy selects how systemIds are derived.
type Strategy string

const (
	// StrategyRandom issues time-ordered ULIDs.
	StrategyRandom Strategy = "random"
	// StrategyContent derives a name-based UUID from the organization, entity
	// and canonical record content.
	StrategyContent Strategy = "content"
)

func (s Strategy) IsValid() bool {
	return s == StrategyRandom || s == StrategyContent
}

// namespace scopes content-derived ids.
var namespace = uuid.MustParse("6f1c3b0e-5d3a-4c3e-9b7e-2f4a8d1e0c57")

// Generator is safe for concurrent use.
type Generator struct {
	strategy Strategy
	now      func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// New creates a Generator for the given strategy.
func New(strategy Strategy) (*Generator, error) {
	if !strategy.IsValid() {
		return nil, fmt.Errorf("unknown system id strategy %q: %w", strategy, domain.ErrBadRequest)
	}
	return &Generator{
		strategy: strategy,
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Generate returns a systemId for record. attempt disambiguates content ids
// when an earlier attempt collided; the random strategy ignores it.
func (g *Generator) Generate(organization, entityName string, record domain.DataRecord, attempt int) (string, error) {
	switch g.strategy {
	case StrategyContent:
		canonical, err := json.Marshal(record)
		if err != nil {
			return "", fmt.Errorf("encode %s record: %w", entityName, err)
		}
		name := organization + "\x1f" + entityName + "\x1f" + string(canonical) + "\x1f" + strconv.Itoa(attempt)
		return uuid.NewSHA1(namespace, []byte(name)).String(), nil
	default:
		g.mu.Lock()
		defer g.mu.Unlock()
		id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
		if err != nil {
			return "", fmt.Errorf("generate ulid: %w", err)
		}
		return id.String(), nil
	}
}
