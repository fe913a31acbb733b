package replay

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/puzzlepress/puzzlepress/internal/puzzle"
)

// ErrIllegalMove means a stored solution move cannot be legally applied
// to its position. The record is corrupt and should be dropped by the
// caller, not crash the batch.
var ErrIllegalMove = errors.New("illegal solution move")

// Ply is one recorded half-move of the solution.
type Ply struct {
	SAN   string
	Check bool
	Mate  bool
}

// Replayed is the derived, print-ready form of a puzzle record: the
// diagram position (after the silent setup move), the side the solver
// plays, and the solution in standard algebraic notation.
type Replayed struct {
	Record     puzzle.Record
	Position   *nchess.Position
	SideToMove nchess.Color
	// FullmoveNumber is the move number of the first recorded ply, used
	// when printing the numbered solution line.
	FullmoveNumber int
	Solution       []Ply
	FinalFEN       string
	Solved         bool
}

// Replay parses the record's FEN, silently applies the first move (the
// dataset convention stores the position one ply before the puzzle), then
// folds the remaining moves through the board, emitting SAN per ply.
// Deterministic: the same record always yields the same output.
func Replay(rec puzzle.Record) (*Replayed, error) {
	if len(rec.Moves) == 0 {
		return nil, fmt.Errorf("puzzle %s: empty move list", rec.ID)
	}

	fenOpt, err := nchess.FEN(rec.FEN)
	if err != nil {
		return nil, fmt.Errorf("puzzle %s: parse fen %q: %w", rec.ID, rec.FEN, err)
	}
	game := nchess.NewGame(fenOpt)

	fullmove := fullmoveFromFEN(rec.FEN)
	notationUCI := nchess.UCINotation{}
	notationSAN := nchess.AlgebraicNotation{}

	// Setup move: applied but never shown or recorded.
	setupColor := game.Position().Turn()
	if err := applyUCI(game, notationUCI, rec.Moves[0]); err != nil {
		return nil, fmt.Errorf("puzzle %s: setup move %s: %w", rec.ID, rec.Moves[0], err)
	}
	if setupColor == nchess.Black {
		fullmove++
	}

	diagram := game.Position()
	out := &Replayed{
		Record:         rec,
		Position:       diagram,
		SideToMove:     diagram.Turn(),
		FullmoveNumber: fullmove,
		Solution:       make([]Ply, 0, len(rec.Moves)-1),
	}

	for _, uci := range rec.Moves[1:] {
		posBefore := game.Position()
		move, err := notationUCI.Decode(posBefore, strings.ToLower(strings.TrimSpace(uci)))
		if err != nil {
			return nil, fmt.Errorf("puzzle %s: move %s: %w: %v", rec.ID, uci, ErrIllegalMove, err)
		}
		san := notationSAN.Encode(posBefore, move)
		if err := game.Move(move, nil); err != nil {
			return nil, fmt.Errorf("puzzle %s: move %s: %w: %v", rec.ID, uci, ErrIllegalMove, err)
		}
		out.Solution = append(out.Solution, Ply{
			SAN:   san,
			Check: strings.HasSuffix(san, "+") || strings.HasSuffix(san, "#"),
			Mate:  strings.HasSuffix(san, "#"),
		})
	}

	out.FinalFEN = game.FEN()
	out.Solved = true
	return out, nil
}

// FormatSolution renders the numbered SAN line printed in a solution
// cell, e.g. "23. Qxf7+ Kd8 24. Qf8#" or "14... Rd8 15. Qxd8#".
func (r *Replayed) FormatSolution() string {
	var b strings.Builder
	num := r.FullmoveNumber
	turn := r.SideToMove
	for i, ply := range r.Solution {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch {
		case turn == nchess.White:
			fmt.Fprintf(&b, "%d. %s", num, ply.SAN)
		case i == 0:
			fmt.Fprintf(&b, "%d... %s", num, ply.SAN)
		default:
			b.WriteString(ply.SAN)
		}
		if turn == nchess.Black {
			num++
			turn = nchess.White
		} else {
			turn = nchess.Black
		}
	}
	return b.String()
}

func fullmoveFromFEN(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func applyUCI(game *nchess.Game, notation nchess.UCINotation, uci string) error {
	move, err := notation.Decode(game.Position(), strings.ToLower(strings.TrimSpace(uci)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if err := game.Move(move, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	return nil
}
