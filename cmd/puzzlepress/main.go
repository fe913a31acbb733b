package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/puzzlepress/puzzlepress/internal/dataset"
	"github.com/puzzlepress/puzzlepress/internal/obslog"
	"github.com/puzzlepress/puzzlepress/internal/selector"
	"github.com/puzzlepress/puzzlepress/internal/service/worksheet"
	"github.com/puzzlepress/puzzlepress/internal/themecat"
)

func main() {
	var (
		datasetPath = flag.String("dataset", strings.TrimSpace(os.Getenv("DATASET_PATH")), "path to the lichess puzzle CSV (.csv or .csv.zst)")
		theme       = flag.String("theme", "mateIn2", "puzzle theme code")
		minRating   = flag.Int("min-rating", 800, "minimum puzzle rating")
		maxRating   = flag.Int("max-rating", 1400, "maximum puzzle rating")
		count       = flag.Int("count", 9, "number of puzzles")
		output      = flag.String("output", "puzzles.pdf", "output PDF path")
		overrideDir = flag.String("theme-overrides", strings.TrimSpace(os.Getenv("THEME_OVERRIDE_DIR")), "optional directory of theme description overrides")
		listThemes  = flag.Bool("list-themes", false, "print known theme codes and exit")
		timeout     = flag.Duration("timeout", 5*time.Minute, "generation deadline")
	)
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer logger.Sync()

	themes, err := themecat.New(*overrideDir)
	if err != nil {
		log.Fatalf("theme catalog error: %v", err)
	}

	if *listThemes {
		for _, code := range themes.Codes() {
			fmt.Printf("%-28s %s\n", code, themes.Describe(code))
		}
		return
	}

	if *datasetPath == "" {
		log.Fatal("dataset path required: pass -dataset or set DATASET_PATH")
	}

	accessor, err := dataset.Open(*datasetPath, logger)
	if err != nil {
		log.Fatalf("dataset error: %v", err)
	}

	svc, err := worksheet.NewService(
		selector.New(accessor, logger),
		worksheet.NewBoardRenderer(),
		themes,
		logger,
		0,
	)
	if err != nil {
		log.Fatalf("service init error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out, err := svc.Generate(ctx, worksheet.Params{
		Theme:     *theme,
		MinRating: *minRating,
		MaxRating: *maxRating,
		Count:     *count,
	})
	if err != nil {
		log.Fatalf("generate error: %v", err)
	}

	if err := os.WriteFile(*output, out.PDF, 0o644); err != nil {
		log.Fatalf("write %s: %v", *output, err)
	}

	if out.Result.Partial {
		fmt.Printf("wrote %s with %d of %d requested puzzles (pool was smaller)\n",
			*output, out.Result.Generated, out.Result.Requested)
		return
	}
	fmt.Printf("wrote %s with %d puzzles\n", *output, out.Result.Generated)
}
