package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/puzzlepress/puzzlepress/internal/puzzle"
)

const datasetHeader = "PuzzleId,FEN,Moves,Rating,RatingDeviation,Popularity,NbPlays,Themes,GameUrl\n"

func row(id string, rating int, themes string) string {
	return fmt.Sprintf("%s,r1bqkbnr/pppp1ppp/2n5/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR b KQkq - 3 3,g8f6 h5f7,%d,80,95,1000,%s,https://lichess.org/abc#6\n",
		id, rating, themes)
}

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func writeDatasetZst(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "puzzles.csv.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := enc.Write([]byte(content)); err != nil {
		t.Fatalf("zstd write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}
	return path
}

func collect(t *testing.T, a *Accessor, crit puzzle.Criteria) []puzzle.Record {
	t.Helper()
	iter, err := a.Query(context.Background(), crit)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer iter.Close()
	var out []puzzle.Record
	for iter.Next() {
		out = append(out, iter.Record())
	}
	if err := iter.Err(); err != nil {
		t.Fatalf("iter err: %v", err)
	}
	return out
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.csv"), nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestOpenDirectory(t *testing.T) {
	if _, err := Open(t.TempDir(), nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestQueryFilters(t *testing.T) {
	content := datasetHeader +
		row("aaa", 900, "fork mateIn2") +
		row("bbb", 1500, "fork") +
		row("ccc", 1000, "pin endgame") +
		row("ddd", 1100, "fork middlegame")
	path := writeDataset(t, "puzzles.csv", content)

	a, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	got := collect(t, a, puzzle.Criteria{Theme: "fork", MinRating: 800, MaxRating: 1200, Count: 10})
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2: %v", len(got), got)
	}
	if got[0].ID != "aaa" || got[1].ID != "ddd" {
		t.Fatalf("ids = %s,%s, want aaa,ddd", got[0].ID, got[1].ID)
	}
	if got[0].Rating != 900 || len(got[0].Moves) != 2 || got[0].Moves[0] != "g8f6" {
		t.Fatalf("record not parsed correctly: %+v", got[0])
	}
	if got[0].GameURL != "https://lichess.org/abc#6" {
		t.Fatalf("game url = %q", got[0].GameURL)
	}
}

func TestQueryZstCompressed(t *testing.T) {
	content := datasetHeader + row("zzz", 1000, "fork")
	path := writeDatasetZst(t, content)

	a, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := collect(t, a, puzzle.Criteria{Theme: "fork", MinRating: 0, MaxRating: 3000, Count: 10})
	if len(got) != 1 || got[0].ID != "zzz" {
		t.Fatalf("got %v, want [zzz]", got)
	}
}

func TestQuerySkipsMalformedRows(t *testing.T) {
	content := datasetHeader +
		row("good1", 1000, "fork") +
		"brokenid,,g8f6 h5f7,1000,80,95,1000,fork,url\n" + // empty FEN
		"nr1,fen,g8f6,notanumber,80,95,1000,fork,url\n" + // bad rating
		"short,row\n" +
		row("good2", 1000, "fork")
	path := writeDataset(t, "puzzles.csv", content)

	a, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := collect(t, a, puzzle.Criteria{Theme: "fork", MinRating: 0, MaxRating: 3000, Count: 10})
	if len(got) != 2 || got[0].ID != "good1" || got[1].ID != "good2" {
		t.Fatalf("got %v, want [good1 good2]", got)
	}
}

func TestQueryBadHeader(t *testing.T) {
	path := writeDataset(t, "puzzles.csv", "a,b,c\n1,2,3\n")
	a, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := a.Query(context.Background(), puzzle.Criteria{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestQueryContextCancelled(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(datasetHeader)
	for i := 0; i < 10000; i++ {
		sb.WriteString(row(fmt.Sprintf("p%05d", i), 1000, "pin"))
	}
	path := writeDataset(t, "puzzles.csv", sb.String())

	a, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	iter, err := a.Query(ctx, puzzle.Criteria{Theme: "fork", MinRating: 0, MaxRating: 3000, Count: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer iter.Close()

	for iter.Next() {
	}
	if err := iter.Err(); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestQueryConcurrentScans(t *testing.T) {
	content := datasetHeader + row("one", 1000, "fork")
	path := writeDataset(t, "puzzles.csv", content)
	a, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Each Query opens its own handle; two open iterators must not
	// interfere.
	crit := puzzle.Criteria{Theme: "fork", MinRating: 0, MaxRating: 3000, Count: 1}
	it1, err := a.Query(context.Background(), crit)
	if err != nil {
		t.Fatalf("Query#1: %v", err)
	}
	it2, err := a.Query(context.Background(), crit)
	if err != nil {
		t.Fatalf("Query#2: %v", err)
	}
	if !it1.Next() || !it2.Next() {
		t.Fatalf("both iterators should yield the record")
	}
	if it1.Record().ID != "one" || it2.Record().ID != "one" {
		t.Fatalf("unexpected records: %s / %s", it1.Record().ID, it2.Record().ID)
	}
	_ = it1.Close()
	_ = it2.Close()
}
