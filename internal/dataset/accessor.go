package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/puzzlepress/puzzlepress/internal/puzzle"
)

// ErrUnavailable means the backing dataset file cannot be opened or read.
// Fatal for the current request; retry policy belongs to the caller.
var ErrUnavailable = errors.New("puzzle dataset unavailable")

const ctxCheckInterval = 4096

// Accessor streams puzzle records out of the lichess puzzle CSV
// (lichess_db_puzzle.csv, optionally .zst compressed). Every Query opens
// its own read-only handle, so concurrent requests can scan in parallel.
type Accessor struct {
	path   string
	logger *zap.Logger
}

func Open(path string, logger *zap.Logger) (*Accessor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrUnavailable, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnavailable, path)
	}
	return &Accessor{path: path, logger: logger}, nil
}

// Query streams all records matching the criteria. The returned Rows must
// be closed by the caller. Cancelling ctx aborts the scan.
func (a *Accessor) Query(ctx context.Context, crit puzzle.Criteria) (puzzle.RecordIter, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, a.path, err)
	}

	var reader io.Reader = f
	var dec *zstd.Decoder
	if strings.HasSuffix(strings.ToLower(a.path), ".zst") {
		dec, err = zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: zstd reader: %v", ErrUnavailable, err)
		}
		reader = dec
	}

	cr := csv.NewReader(reader)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if dec != nil {
			dec.Close()
		}
		_ = f.Close()
		return nil, fmt.Errorf("%w: read header: %v", ErrUnavailable, err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		if dec != nil {
			dec.Close()
		}
		_ = f.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &rows{
		ctx:    ctx,
		file:   f,
		dec:    dec,
		csv:    cr,
		cols:   cols,
		crit:   crit,
		logger: a.logger,
	}, nil
}

type columns struct {
	id      int
	fen     int
	moves   int
	rating  int
	themes  int
	gameURL int
}

func mapColumns(header []string) (columns, error) {
	cols := columns{id: -1, fen: -1, moves: -1, rating: -1, themes: -1, gameURL: -1}
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "PuzzleId":
			cols.id = i
		case "FEN":
			cols.fen = i
		case "Moves":
			cols.moves = i
		case "Rating":
			cols.rating = i
		case "Themes":
			cols.themes = i
		case "GameUrl":
			cols.gameURL = i
		}
	}
	if cols.id < 0 || cols.fen < 0 || cols.moves < 0 || cols.rating < 0 || cols.themes < 0 {
		return cols, fmt.Errorf("unexpected dataset header: %v", header)
	}
	return cols, nil
}

type rows struct {
	ctx    context.Context
	file   *os.File
	dec    *zstd.Decoder
	csv    *csv.Reader
	cols   columns
	crit   puzzle.Criteria
	logger *zap.Logger

	current   puzzle.Record
	err       error
	seen      int
	malformed int
	closed    bool
}

func (r *rows) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	for {
		r.seen++
		if r.seen%ctxCheckInterval == 0 {
			if err := r.ctx.Err(); err != nil {
				r.err = err
				return false
			}
		}

		fields, err := r.csv.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			r.err = fmt.Errorf("read dataset row: %w", err)
			return false
		}

		rec, ok := r.parse(fields)
		if !ok {
			r.malformed++
			continue
		}
		if !r.crit.Matches(rec) {
			continue
		}
		r.current = rec
		return true
	}
}

func (r *rows) parse(fields []string) (puzzle.Record, bool) {
	max := r.cols.themes
	if r.cols.gameURL > max {
		max = r.cols.gameURL
	}
	if r.cols.rating > max {
		max = r.cols.rating
	}
	if len(fields) <= max {
		return puzzle.Record{}, false
	}

	id := strings.TrimSpace(fields[r.cols.id])
	fen := strings.TrimSpace(fields[r.cols.fen])
	moves := strings.Fields(fields[r.cols.moves])
	if id == "" || fen == "" || len(moves) == 0 {
		return puzzle.Record{}, false
	}
	rating, err := strconv.Atoi(strings.TrimSpace(fields[r.cols.rating]))
	if err != nil {
		return puzzle.Record{}, false
	}

	rec := puzzle.Record{
		ID:     id,
		FEN:    fen,
		Moves:  append([]string(nil), moves...),
		Rating: rating,
		Themes: strings.Fields(fields[r.cols.themes]),
	}
	if r.cols.gameURL >= 0 {
		rec.GameURL = strings.TrimSpace(fields[r.cols.gameURL])
	}
	return rec, true
}

func (r *rows) Record() puzzle.Record { return r.current }

func (r *rows) Err() error { return r.err }

func (r *rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.malformed > 0 {
		r.logger.Debug("skipped malformed dataset rows",
			zap.Int("count", r.malformed),
			zap.Int("scanned", r.seen),
		)
	}
	if r.dec != nil {
		r.dec.Close()
	}
	return r.file.Close()
}
