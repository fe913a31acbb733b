package selector

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/puzzlepress/puzzlepress/internal/puzzle"
)

// ErrNoPuzzlesFound means zero records matched the criteria. A pool that
// is merely smaller than the requested count is a partial result, not an
// error.
var ErrNoPuzzlesFound = errors.New("no puzzles match the criteria")

// Source is the record stream the selector samples from. Satisfied by
// dataset.Accessor.
type Source interface {
	Query(ctx context.Context, crit puzzle.Criteria) (puzzle.RecordIter, error)
}

// Selector draws a bounded random subset of matching records using
// reservoir sampling, so the full matching pool is never materialized.
// Each call uses fresh randomness; runs are intentionally not
// reproducible.
type Selector struct {
	source Source
	logger *zap.Logger
}

func New(source Source, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{source: source, logger: logger}
}

// Select returns up to crit.Count records matching crit, drawn uniformly
// without replacement from the matching pool. Records whose id appears in
// exclude are skipped before sampling. Returns ErrNoPuzzlesFound only
// when the (post-exclusion) pool is empty.
func (s *Selector) Select(ctx context.Context, crit puzzle.Criteria, exclude map[string]struct{}) ([]puzzle.Record, error) {
	if crit.Count <= 0 {
		return nil, fmt.Errorf("selection count must be positive, got %d", crit.Count)
	}

	iter, err := s.source.Query(ctx, crit)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	reservoir := make([]puzzle.Record, 0, crit.Count)
	seen := 0
	for iter.Next() {
		rec := iter.Record()
		if _, skip := exclude[rec.ID]; skip {
			continue
		}
		seen++
		if len(reservoir) < crit.Count {
			reservoir = append(reservoir, rec)
			continue
		}
		// Keep each of the seen records with equal probability
		// count/seen by evicting a uniformly random slot.
		if j := rand.IntN(seen); j < crit.Count {
			reservoir[j] = rec
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan puzzles (theme=%s rating=%d-%d): %w",
			crit.Theme, crit.MinRating, crit.MaxRating, err)
	}

	if seen == 0 {
		return nil, fmt.Errorf("%w: theme=%s rating=%d-%d", ErrNoPuzzlesFound,
			crit.Theme, crit.MinRating, crit.MaxRating)
	}

	rand.Shuffle(len(reservoir), func(i, j int) {
		reservoir[i], reservoir[j] = reservoir[j], reservoir[i]
	})

	if len(reservoir) < crit.Count {
		s.logger.Info("puzzle pool smaller than requested count",
			zap.String("theme", crit.Theme),
			zap.Int("requested", crit.Count),
			zap.Int("matched", seen),
		)
	}
	return reservoir, nil
}
