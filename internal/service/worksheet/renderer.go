package worksheet

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// BoardRenderer turns one board position into a diagram image. Pure:
// the same position and orientation always yield identical bytes.
type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, orientation nchess.Color) ([]byte, error)
}

type pngBoardRenderer struct{}

func NewBoardRenderer() BoardRenderer {
	return &pngBoardRenderer{}
}

const (
	squareSize   = 56
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	labelMargin  = 20
)

// Print-friendly palette: solid white and light gray squares so black
// piece glyphs stay legible on paper.
var (
	lightSquare         = color.RGBA{255, 255, 255, 255}
	darkSquare          = color.RGBA{207, 207, 207, 255}
	boardBorderColor    = color.RGBA{96, 96, 96, 255}
	coordinateTextColor = color.RGBA{64, 64, 64, 255}
	marginColor         = color.RGBA{255, 255, 255, 255}
)

// RenderPNG draws the board from the perspective of orientation: that
// side's pieces are at the bottom of the diagram. Rank and file labels
// follow the same orientation.
func (r *pngBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, orientation nchess.Color) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	totalWidth := boardSize + labelMargin*2
	totalHeight := boardSize + labelMargin*2
	origin := image.Point{X: labelMargin, Y: labelMargin}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(marginColor), image.Point{}, imagedraw.Src)

	drawSquares(img, orientation, origin)
	drawBorder(img, origin)
	if err := drawPieces(img, board, orientation, origin); err != nil {
		return nil, err
	}
	drawCoordinates(img, orientation, origin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// squareAt maps a visual (row, col) cell to the board square it shows.
// Row 0 is the top of the diagram.
func squareAt(row, col int, orientation nchess.Color) nchess.Square {
	if orientation == nchess.Black {
		return nchess.NewSquare(nchess.FileH-nchess.File(col), nchess.Rank1+nchess.Rank(row))
	}
	return nchess.NewSquare(nchess.FileA+nchess.File(col), nchess.Rank8-nchess.Rank(row))
}

func drawSquares(dst imagedraw.Image, orientation nchess.Color, origin image.Point) {
	for row := 0; row < boardSquares; row++ {
		for col := 0; col < boardSquares; col++ {
			sq := squareAt(row, col, orientation)
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize),
				image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawBorder(img *image.RGBA, origin image.Point) {
	fill := image.NewUniform(boardBorderColor)
	top := image.Rect(origin.X-1, origin.Y-1, origin.X+boardSize+1, origin.Y)
	bottom := image.Rect(origin.X-1, origin.Y+boardSize, origin.X+boardSize+1, origin.Y+boardSize+1)
	left := image.Rect(origin.X-1, origin.Y, origin.X, origin.Y+boardSize)
	right := image.Rect(origin.X+boardSize, origin.Y, origin.X+boardSize+1, origin.Y+boardSize)
	for _, rect := range []image.Rectangle{top, bottom, left, right} {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Src)
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, orientation nchess.Color, origin image.Point) error {
	boardMap := board.SquareMap()
	for row := 0; row < boardSquares; row++ {
		for col := 0; col < boardSquares; col++ {
			sq := squareAt(row, col, orientation)
			piece := boardMap[sq]
			if piece == nchess.NoPiece {
				continue
			}
			img, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawCoordinates(dst imagedraw.Image, orientation nchess.Color, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  dst,
		Face: face,
		Src:  image.NewUniform(coordinateTextColor),
	}
	ascent := face.Metrics().Ascent.Ceil()

	for row := 0; row < boardSquares; row++ {
		sq := squareAt(row, 0, orientation)
		label := sq.Rank().String()
		baseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, label, origin.X-labelMargin/2, baseline)
	}
	for col := 0; col < boardSquares; col++ {
		sq := squareAt(boardSquares-1, col, orientation)
		label := sq.File().String()
		centerX := origin.X + col*squareSize + squareSize/2
		baseline := origin.Y + boardSize + ascent + 2
		drawCenteredText(drawer, label, centerX, baseline)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
