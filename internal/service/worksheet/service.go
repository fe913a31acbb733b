package worksheet

import (
	"context"
	"errors"
	"fmt"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/puzzlepress/puzzlepress/internal/puzzle"
	"github.com/puzzlepress/puzzlepress/internal/replay"
	"github.com/puzzlepress/puzzlepress/internal/selector"
	"github.com/puzzlepress/puzzlepress/internal/themecat"
)

var (
	ErrUnknownTheme       = errors.New("unknown puzzle theme")
	ErrInvalidRatingRange = errors.New("invalid rating range")
	ErrInvalidCount       = errors.New("invalid puzzle count")
)

const defaultMaxPuzzles = 36

// PuzzleSelector draws a random subset of records matching the criteria.
// Satisfied by selector.Selector.
type PuzzleSelector interface {
	Select(ctx context.Context, crit puzzle.Criteria, exclude map[string]struct{}) ([]puzzle.Record, error)
}

// Params is one worksheet request.
type Params struct {
	Theme     string
	MinRating int
	MaxRating int
	Count     int
}

// Output is the finished worksheet plus what the run actually produced.
type Output struct {
	PDF    []byte
	Result puzzle.Result
	Sheet  *puzzle.Worksheet
}

// Service turns a request into a printable worksheet: sample puzzles,
// replay their solutions, render diagrams, lay out the document. The
// served store and repository are optional side channels; losing either
// never fails a generation.
type Service struct {
	selector   PuzzleSelector
	renderer   BoardRenderer
	themes     *themecat.Catalog
	logger     *zap.Logger
	maxPuzzles int

	served *ServedStore
	repo   Repository
}

func NewService(sel PuzzleSelector, renderer BoardRenderer, themes *themecat.Catalog, logger *zap.Logger, maxPuzzles int) (*Service, error) {
	if sel == nil {
		return nil, fmt.Errorf("nil selector")
	}
	if renderer == nil {
		return nil, fmt.Errorf("nil board renderer")
	}
	if themes == nil {
		return nil, fmt.Errorf("nil theme catalog")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPuzzles <= 0 {
		maxPuzzles = defaultMaxPuzzles
	}
	return &Service{
		selector:   sel,
		renderer:   renderer,
		themes:     themes,
		logger:     logger,
		maxPuzzles: maxPuzzles,
	}, nil
}

// AttachServedStore enables recently-served exclusion across requests.
func (s *Service) AttachServedStore(store *ServedStore) {
	s.served = store
}

// AttachRepository enables persistence of generation traces.
func (s *Service) AttachRepository(repo Repository) {
	s.repo = repo
}

// RecentWorksheets lists the latest generation traces, newest first.
func (s *Service) RecentWorksheets(ctx context.Context, limit int) ([]*puzzle.Worksheet, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetRecentWorksheets(ctx, limit)
}

func (s *Service) validate(p Params) error {
	if !s.themes.Known(p.Theme) {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, p.Theme)
	}
	if p.MinRating < 0 || p.MaxRating < p.MinRating {
		return fmt.Errorf("%w: %d-%d", ErrInvalidRatingRange, p.MinRating, p.MaxRating)
	}
	if p.Count < 1 || p.Count > s.maxPuzzles {
		return fmt.Errorf("%w: %d (allowed 1-%d)", ErrInvalidCount, p.Count, s.maxPuzzles)
	}
	return nil
}

// Generate produces the worksheet PDF for the given parameters. A pool
// smaller than requested yields a partial worksheet, not an error;
// corrupt records are dropped and replaced from the remaining pool.
func (s *Service) Generate(ctx context.Context, p Params) (*Output, error) {
	if err := s.validate(p); err != nil {
		return nil, err
	}

	crit := puzzle.Criteria{
		Theme:     p.Theme,
		MinRating: p.MinRating,
		MaxRating: p.MaxRating,
		Count:     p.Count,
	}

	exclude := s.recentlyServed(ctx, p.Theme)

	records, err := s.selector.Select(ctx, crit, exclude)
	if errors.Is(err, selector.ErrNoPuzzlesFound) && len(exclude) > 0 {
		// Everything matching was served recently; reuse is better than
		// an empty worksheet.
		s.logger.Info("all matching puzzles recently served, reusing pool",
			zap.String("theme", p.Theme))
		exclude = nil
		records, err = s.selector.Select(ctx, crit, nil)
	}
	if err != nil {
		return nil, err
	}

	replayed, dropped := s.replayAll(ctx, crit, records, exclude)
	if len(replayed) == 0 {
		return nil, fmt.Errorf("%w: theme=%s rating=%d-%d (all candidates corrupt)",
			selector.ErrNoPuzzlesFound, p.Theme, p.MinRating, p.MaxRating)
	}

	blocks, err := s.buildBlocks(ctx, replayed)
	if err != nil {
		return nil, err
	}

	pdf, err := buildDocument(s.themes.Describe(p.Theme), blocks)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(replayed))
	for i, rep := range replayed {
		ids[i] = rep.Record.ID
	}

	sheet := &puzzle.Worksheet{
		RequestID: uuid.NewString(),
		Theme:     p.Theme,
		MinRating: p.MinRating,
		MaxRating: p.MaxRating,
		Requested: p.Count,
		Generated: len(replayed),
		PuzzleIDs: ids,
		CreatedAt: time.Now().UTC(),
	}
	s.recordGeneration(ctx, sheet)

	return &Output{
		PDF: pdf,
		Result: puzzle.Result{
			Requested:  p.Count,
			Generated:  len(replayed),
			Partial:    len(replayed) < p.Count,
			DroppedIDs: dropped,
		},
		Sheet: sheet,
	}, nil
}

// replayAll replays every candidate record, dropping corrupt ones and
// drawing single replacements from the untouched remainder of the pool
// until the count is met or the pool is exhausted.
func (s *Service) replayAll(ctx context.Context, crit puzzle.Criteria, records []puzzle.Record, served map[string]struct{}) ([]*replay.Replayed, []string) {
	// Replacement draws must skip everything already considered, good or
	// bad, on top of the recently-served set.
	considered := make(map[string]struct{}, len(records)+len(served))
	for id := range served {
		considered[id] = struct{}{}
	}
	for _, rec := range records {
		considered[rec.ID] = struct{}{}
	}

	replayed := make([]*replay.Replayed, 0, len(records))
	var dropped []string

	queue := records
	for len(queue) > 0 {
		rec := queue[0]
		queue = queue[1:]

		rep, err := replay.Replay(rec)
		if err != nil {
			dropped = append(dropped, rec.ID)
			s.logger.Warn("dropping corrupt puzzle record",
				zap.String("puzzle_id", rec.ID),
				zap.Error(err))

			replacement, ok := s.drawReplacement(ctx, crit, considered)
			if ok {
				considered[replacement.ID] = struct{}{}
				queue = append(queue, replacement)
			}
			continue
		}
		replayed = append(replayed, rep)
	}
	return replayed, dropped
}

func (s *Service) drawReplacement(ctx context.Context, crit puzzle.Criteria, considered map[string]struct{}) (puzzle.Record, bool) {
	single := crit
	single.Count = 1
	recs, err := s.selector.Select(ctx, single, considered)
	if err != nil || len(recs) == 0 {
		if err != nil && !errors.Is(err, selector.ErrNoPuzzlesFound) {
			s.logger.Warn("replacement draw failed", zap.Error(err))
		}
		return puzzle.Record{}, false
	}
	return recs[0], true
}

func (s *Service) buildBlocks(ctx context.Context, replayed []*replay.Replayed) ([]Block, error) {
	blocks := make([]Block, 0, len(replayed))
	for i, rep := range replayed {
		diagram, err := s.renderer.RenderPNG(ctx, rep.Position.Board(), rep.SideToMove)
		if err != nil {
			return nil, fmt.Errorf("render diagram for puzzle %s: %w", rep.Record.ID, err)
		}
		blocks = append(blocks, Block{
			Ordinal:    i + 1,
			Rating:     rep.Record.Rating,
			SideToMove: sideLabel(rep),
			Diagram:    diagram,
			Solution:   rep.FormatSolution(),
			URL:        rep.Record.TrainingURL(),
		})
	}
	return blocks, nil
}

func sideLabel(rep *replay.Replayed) string {
	if rep.SideToMove == nchess.Black {
		return "Black"
	}
	return "White"
}

func (s *Service) recentlyServed(ctx context.Context, theme string) map[string]struct{} {
	if s.served == nil {
		return nil
	}
	ids, err := s.served.RecentlyServed(ctx, theme)
	if err != nil {
		s.logger.Warn("served-store lookup failed, proceeding without exclusion",
			zap.String("theme", theme),
			zap.Error(err))
		return nil
	}
	return ids
}

func (s *Service) recordGeneration(ctx context.Context, sheet *puzzle.Worksheet) {
	if s.served != nil {
		if err := s.served.MarkServed(ctx, sheet.Theme, sheet.PuzzleIDs); err != nil {
			s.logger.Warn("failed to mark puzzles as served",
				zap.String("theme", sheet.Theme),
				zap.Error(err))
		}
	}
	if s.repo != nil {
		id, err := s.repo.InsertWorksheet(ctx, sheet)
		switch {
		case errors.Is(err, ErrDuplicateWorksheet):
			s.logger.Warn("duplicate worksheet request id",
				zap.String("request_id", sheet.RequestID))
		case err != nil:
			s.logger.Warn("failed to persist worksheet trace",
				zap.String("request_id", sheet.RequestID),
				zap.Error(err))
		default:
			sheet.ID = id
		}
	}
}
