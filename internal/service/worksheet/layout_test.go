package worksheet

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func testBlocks(t *testing.T, n int) []Block {
	t.Helper()
	diagram, err := NewBoardRenderer().RenderPNG(context.Background(), nchess.NewGame().Position().Board(), nchess.White)
	if err != nil {
		t.Fatalf("render test diagram: %v", err)
	}
	blocks := make([]Block, n)
	for i := range blocks {
		blocks[i] = Block{
			Ordinal:    i + 1,
			Rating:     1000 + i,
			SideToMove: "White",
			Diagram:    diagram,
			Solution:   fmt.Sprintf("%d. Qxf7#", i+1),
			URL:        fmt.Sprintf("https://lichess.org/training/p%03d", i),
		}
	}
	return blocks
}

func TestPaginate(t *testing.T) {
	cases := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{1, []int{1}},
		{9, []int{9}},
		{10, []int{9, 1}},
		{36, []int{9, 9, 9, 9}},
	}
	for _, tc := range cases {
		pages := paginate(make([]Block, tc.n))
		if len(pages) != len(tc.want) {
			t.Fatalf("paginate(%d) = %d pages, want %d", tc.n, len(pages), len(tc.want))
		}
		for i, page := range pages {
			if len(page) != tc.want[i] {
				t.Fatalf("paginate(%d) page %d has %d blocks, want %d", tc.n, i, len(page), tc.want[i])
			}
		}
	}
}

func TestPaginatePreservesOrder(t *testing.T) {
	blocks := make([]Block, 12)
	for i := range blocks {
		blocks[i].Ordinal = i + 1
	}
	pages := paginate(blocks)
	next := 1
	for _, page := range pages {
		for _, b := range page {
			if b.Ordinal != next {
				t.Fatalf("ordinal %d out of order, want %d", b.Ordinal, next)
			}
			next++
		}
	}
}

func TestBuildDocumentFullSheet(t *testing.T) {
	pdf, err := buildDocument("Mate in 2 - Checkmate in two moves", testBlocks(t, 36))
	if err != nil {
		t.Fatalf("buildDocument: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output does not look like a PDF")
	}
	// 4 puzzle pages followed by 4 solution pages.
	if got := countPDFPages(pdf); got != 8 {
		t.Fatalf("page count = %d, want 8", got)
	}
}

func TestBuildDocumentPartialSheet(t *testing.T) {
	pdf, err := buildDocument("Fork - Attack two pieces at once", testBlocks(t, 10))
	if err != nil {
		t.Fatalf("buildDocument: %v", err)
	}
	// 2 puzzle pages and 2 solution pages.
	if got := countPDFPages(pdf); got != 4 {
		t.Fatalf("page count = %d, want 4", got)
	}
}

func TestBuildDocumentSingleBlock(t *testing.T) {
	pdf, err := buildDocument("Pin - Pin opponent's piece", testBlocks(t, 1))
	if err != nil {
		t.Fatalf("buildDocument: %v", err)
	}
	if got := countPDFPages(pdf); got != 2 {
		t.Fatalf("page count = %d, want 2", got)
	}
}

// countPDFPages counts page objects in the raw PDF stream. Crude but
// stable for documents fpdf itself produced.
func countPDFPages(pdf []byte) int {
	return bytes.Count(pdf, []byte("/Type /Page\n")) + bytes.Count(pdf, []byte("/Type /Page\r"))
}
