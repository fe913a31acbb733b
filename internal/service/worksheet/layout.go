package worksheet

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// Block is one laid-out puzzle cell: the diagram plus the labels printed
// on the puzzle page and the notation printed on the solution page.
type Block struct {
	Ordinal    int
	Rating     int
	SideToMove string
	Diagram    []byte
	Solution   string
	URL        string
}

const (
	puzzlesPerPage = 9
	gridCols       = 3
	gridRows       = 3

	pageMargin   = 36.0
	headerHeight = 54.0
	diagramSize  = 160.0
)

// paginate groups blocks into pages of nine, preserving order. The last
// page of a section may be short; its remaining cells stay blank.
func paginate(blocks []Block) [][]Block {
	if len(blocks) == 0 {
		return nil
	}
	pages := make([][]Block, 0, (len(blocks)+puzzlesPerPage-1)/puzzlesPerPage)
	for start := 0; start < len(blocks); start += puzzlesPerPage {
		end := start + puzzlesPerPage
		if end > len(blocks) {
			end = len(blocks)
		}
		pages = append(pages, blocks[start:end])
	}
	return pages
}

// buildDocument assembles the final worksheet: all puzzle pages first,
// then solution pages in the same grouping and ordinal order.
func buildDocument(themeDescription string, blocks []Block) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetTitle(fmt.Sprintf("Chess Puzzles - %s", themeDescription), true)
	pdf.SetAutoPageBreak(false, 0)

	pages := paginate(blocks)

	for i, page := range pages {
		drawPuzzlePage(pdf, themeDescription, page, i+1)
	}
	for i, page := range pages {
		drawSolutionPage(pdf, themeDescription, page, i+1)
	}

	if pdf.Err() {
		return nil, fmt.Errorf("build worksheet pdf: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("encode worksheet pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func cellGeometry(pdf *fpdf.Fpdf) (cellW, cellH, gridTop float64) {
	pageW, pageH := pdf.GetPageSize()
	gridTop = pageMargin + headerHeight
	cellW = (pageW - pageMargin*2) / gridCols
	cellH = (pageH - gridTop - pageMargin) / gridRows
	return cellW, cellH, gridTop
}

func drawPuzzlePage(pdf *fpdf.Fpdf, themeDescription string, page []Block, pageNum int) {
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 16)
	title := fmt.Sprintf("Chess Puzzles - %s (Page %d)", themeDescription, pageNum)
	pdf.Text(centeredX(pdf, pageW, title), pageMargin, title)

	pdf.SetFont("Helvetica", "", 10)
	subtitle := "Find the best move for the side to play!"
	pdf.Text(centeredX(pdf, pageW, subtitle), pageMargin+18, subtitle)

	cellW, cellH, gridTop := cellGeometry(pdf)
	for idx, block := range page {
		x := pageMargin + float64(idx%gridCols)*cellW
		y := gridTop + float64(idx/gridCols)*cellH
		drawPuzzleCell(pdf, block, x, y, cellW, cellH)
	}
}

func drawPuzzleCell(pdf *fpdf.Fpdf, block Block, x, y, cellW, cellH float64) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.Text(x+2, y+10, fmt.Sprintf("#%d", block.Ordinal))

	pdf.SetFont("Helvetica", "", 7)
	pdf.Text(x+2, y+20, fmt.Sprintf("Rating: %d", block.Rating))

	pdf.SetFont("Helvetica", "B", 7)
	pdf.Text(x+2, y+29, fmt.Sprintf("%s to move", block.SideToMove))

	if len(block.Diagram) != 0 {
		name := fmt.Sprintf("diagram-%d", block.Ordinal)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(block.Diagram))
		imgX := x + (cellW-diagramSize)/2
		pdf.ImageOptions(name, imgX, y+33, diagramSize, diagramSize, false, opts, 0, "")
	}

	if block.URL != "" {
		pdf.SetFont("Helvetica", "", 5)
		pdf.Text(x+2, y+33+diagramSize+8, block.URL)
	}
}

func drawSolutionPage(pdf *fpdf.Fpdf, themeDescription string, page []Block, pageNum int) {
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 14)
	title := fmt.Sprintf("Solutions - %s (Page %d)", themeDescription, pageNum)
	pdf.Text(centeredX(pdf, pageW, title), pageMargin, title)

	cellW, cellH, gridTop := cellGeometry(pdf)
	for idx, block := range page {
		x := pageMargin + float64(idx%gridCols)*cellW
		y := gridTop + float64(idx/gridCols)*cellH
		drawSolutionCell(pdf, block, x, y, cellW)
	}
}

func drawSolutionCell(pdf *fpdf.Fpdf, block Block, x, y, cellW float64) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.Text(x+2, y+10, fmt.Sprintf("#%d", block.Ordinal))

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetXY(x+2, y+16)
	pdf.MultiCell(cellW-8, 10, block.Solution, "", "L", false)

	if block.URL != "" {
		pdf.SetFont("Helvetica", "", 6)
		pdf.SetXY(x+2, pdf.GetY()+4)
		pdf.MultiCell(cellW-8, 7, block.URL, "", "L", false)
	}
}

func centeredX(pdf *fpdf.Fpdf, pageW float64, text string) float64 {
	width := pdf.GetStringWidth(text)
	x := (pageW - width) / 2
	if x < pageMargin {
		x = pageMargin
	}
	return x
}
