package puzzle

import (
	"fmt"
	"strings"
	"time"
)

// Record is one row of the puzzle dataset. The stored FEN is the position
// one ply before the puzzle begins; Moves[0] is the opponent move that
// produces the position actually shown to the solver.
type Record struct {
	ID      string
	FEN     string
	Moves   []string
	Rating  int
	Themes  []string
	GameURL string
}

func (r Record) HasTheme(theme string) bool {
	for _, t := range r.Themes {
		if strings.EqualFold(t, theme) {
			return true
		}
	}
	return false
}

// TrainingURL returns the attribution link printed on solution pages.
func (r Record) TrainingURL() string {
	if strings.TrimSpace(r.GameURL) != "" {
		return r.GameURL
	}
	return fmt.Sprintf("https://lichess.org/training/%s", r.ID)
}

// Criteria filters the dataset for one worksheet request.
type Criteria struct {
	Theme     string
	MinRating int
	MaxRating int
	Count     int
}

func (c Criteria) Matches(r Record) bool {
	if r.Rating < c.MinRating || r.Rating > c.MaxRating {
		return false
	}
	return r.HasTheme(c.Theme)
}

// RecordIter walks a stream of matching records, database/sql style.
type RecordIter interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Result describes what a generation run actually produced. A partial
// worksheet (fewer puzzles than requested) is a condition, not an error.
type Result struct {
	Requested  int
	Generated  int
	Partial    bool
	DroppedIDs []string
}

// Worksheet is the persisted trace of one generated worksheet.
type Worksheet struct {
	ID        int64
	RequestID string
	Theme     string
	MinRating int
	MaxRating int
	Requested int
	Generated int
	PuzzleIDs []string
	CreatedAt time.Time
}
