package worksheet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/puzzlepress/puzzlepress/internal/puzzle"
)

var ErrDuplicateWorksheet = errors.New("worksheet already recorded")

// Repository records generated worksheets for traceability. Optional:
// the service works without one.
type Repository interface {
	InsertWorksheet(ctx context.Context, ws *puzzle.Worksheet) (int64, error)
	GetRecentWorksheets(ctx context.Context, limit int) ([]*puzzle.Worksheet, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertWorksheet(ctx context.Context, ws *puzzle.Worksheet) (int64, error) {
	if ws == nil {
		return 0, fmt.Errorf("nil worksheet payload")
	}

	puzzleIDs, err := json.Marshal(ws.PuzzleIDs)
	if err != nil {
		return 0, fmt.Errorf("marshal puzzle_ids: %w", err)
	}

	const query = `
		INSERT INTO worksheets (
			request_id,
			theme,
			min_rating,
			max_rating,
			requested,
			generated,
			puzzle_ids,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
		ON CONFLICT (request_id) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		ws.RequestID,
		ws.Theme,
		ws.MinRating,
		ws.MaxRating,
		ws.Requested,
		ws.Generated,
		puzzleIDs,
		ws.CreatedAt,
	).Scan(&id)
	if err == sql.ErrNoRows || (err == nil && !id.Valid) {
		return 0, ErrDuplicateWorksheet
	}
	if err != nil {
		return 0, fmt.Errorf("insert worksheet: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) GetRecentWorksheets(ctx context.Context, limit int) ([]*puzzle.Worksheet, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT
			id,
			request_id,
			theme,
			min_rating,
			max_rating,
			requested,
			generated,
			puzzle_ids,
			created_at
		FROM worksheets
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select worksheets: %w", err)
	}
	defer rows.Close()

	sheets := make([]*puzzle.Worksheet, 0, limit)
	for rows.Next() {
		var (
			ws           puzzle.Worksheet
			puzzleIDJSON []byte
			createdAt    time.Time
		)
		if err := rows.Scan(
			&ws.ID,
			&ws.RequestID,
			&ws.Theme,
			&ws.MinRating,
			&ws.MaxRating,
			&ws.Requested,
			&ws.Generated,
			&puzzleIDJSON,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan worksheet: %w", err)
		}
		ws.CreatedAt = createdAt
		if err := json.Unmarshal(puzzleIDJSON, &ws.PuzzleIDs); err != nil {
			return nil, fmt.Errorf("unmarshal puzzle_ids: %w", err)
		}
		sheets = append(sheets, &ws)
	}
	return sheets, rows.Err()
}
