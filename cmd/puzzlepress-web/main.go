package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	appcfg "github.com/puzzlepress/puzzlepress/internal/config"
	"github.com/puzzlepress/puzzlepress/internal/dataset"
	"github.com/puzzlepress/puzzlepress/internal/obslog"
	"github.com/puzzlepress/puzzlepress/internal/puzzle"
	"github.com/puzzlepress/puzzlepress/internal/selector"
	"github.com/puzzlepress/puzzlepress/internal/service/worksheet"
	"github.com/puzzlepress/puzzlepress/internal/themecat"
	"github.com/puzzlepress/puzzlepress/pkg/sheetdto"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer logger.Sync()

	themes, err := themecat.New(cfg.ThemeOverrideDir)
	if err != nil {
		log.Fatalf("theme catalog error: %v", err)
	}
	accessor, err := dataset.Open(cfg.DatasetPath, logger)
	if err != nil {
		log.Fatalf("dataset error: %v", err)
	}

	svc, err := worksheet.NewService(
		selector.New(accessor, logger),
		worksheet.NewBoardRenderer(),
		themes,
		logger,
		cfg.MaxPuzzles,
	)
	if err != nil {
		log.Fatalf("service init error: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url error: %v", err)
		}
		rdb = redis.NewClient(opts)
		svc.AttachServedStore(worksheet.NewServedStore(rdb, cfg.ServedTTL))
	}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database open error: %v", err)
		}
		svc.AttachRepository(worksheet.NewRepository(db))
	} else {
		// Dev fallback: keep traces in memory so /worksheets still works.
		svc.AttachRepository(worksheet.NewMemoryRepository())
	}

	h := &handler{svc: svc, themes: themes, logger: logger}
	server := &fasthttp.Server{
		Handler:            h.route,
		Name:               "puzzlepress",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       5 * time.Minute,
		MaxRequestBodySize: 1 << 20,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(cfg.HTTPAddr); err != nil {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	_ = server.Shutdown()
	if rdb != nil {
		_ = rdb.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}

type handler struct {
	svc    *worksheet.Service
	themes *themecat.Catalog
	logger *zap.Logger
}

func (h *handler) route(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case path == "/healthz" && method == fasthttp.MethodGet:
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case path == "/themes" && method == fasthttp.MethodGet:
		h.handleThemes(ctx)
	case path == "/generate" && method == fasthttp.MethodPost:
		h.handleGenerate(ctx)
	case path == "/worksheets" && method == fasthttp.MethodGet:
		h.handleWorksheets(ctx)
	default:
		writeError(ctx, fasthttp.StatusNotFound, sheetdto.DomainError{Code: "not_found", Message: "no such route"})
	}
}

func (h *handler) handleThemes(ctx *fasthttp.RequestCtx) {
	codes := h.themes.Codes()
	infos := make([]sheetdto.ThemeInfo, 0, len(codes))
	for _, code := range codes {
		infos = append(infos, sheetdto.ThemeInfo{
			Code:        code,
			Description: h.themes.Describe(code),
		})
	}
	writeJSON(ctx, fasthttp.StatusOK, infos)
}

func (h *handler) handleGenerate(ctx *fasthttp.RequestCtx) {
	var req sheetdto.GenerateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, sheetdto.DomainError{Code: "bad_request", Message: "invalid JSON body"})
		return
	}

	out, err := h.svc.Generate(ctx, worksheet.Params{
		Theme:     req.Theme,
		MinRating: req.MinRating,
		MaxRating: req.MaxRating,
		Count:     req.Count,
	})
	if err != nil {
		h.writeGenerateError(ctx, err)
		return
	}

	summary := sheetdto.GenerateSummary{
		RequestID: out.Sheet.RequestID,
		Requested: out.Result.Requested,
		Generated: out.Result.Generated,
		Partial:   out.Result.Partial,
		DroppedID: out.Result.DroppedIDs,
	}
	if meta, err := json.Marshal(summary); err == nil {
		ctx.Response.Header.Set("X-Worksheet-Summary", string(meta))
	}

	filename := fmt.Sprintf("puzzles-%s-%d.pdf", req.Theme, time.Now().Unix())
	ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.SetContentType("application/pdf")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(out.PDF)
}

func (h *handler) handleWorksheets(ctx *fasthttp.RequestCtx) {
	limit := ctx.QueryArgs().GetUintOrZero("limit")
	sheets, err := h.svc.RecentWorksheets(ctx, limit)
	if err != nil {
		h.logger.Error("worksheet listing failed", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, sheetdto.DomainError{Code: "internal", Message: "worksheet listing failed"})
		return
	}
	infos := make([]sheetdto.WorksheetInfo, 0, len(sheets))
	for _, ws := range sheets {
		infos = append(infos, toWorksheetInfo(ws))
	}
	writeJSON(ctx, fasthttp.StatusOK, infos)
}

func toWorksheetInfo(ws *puzzle.Worksheet) sheetdto.WorksheetInfo {
	return sheetdto.WorksheetInfo{
		ID:        ws.ID,
		RequestID: ws.RequestID,
		Theme:     ws.Theme,
		MinRating: ws.MinRating,
		MaxRating: ws.MaxRating,
		Requested: ws.Requested,
		Generated: ws.Generated,
		PuzzleIDs: ws.PuzzleIDs,
		CreatedAt: ws.CreatedAt.Format(time.RFC3339),
	}
}

func (h *handler) writeGenerateError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, worksheet.ErrUnknownTheme):
		writeError(ctx, fasthttp.StatusBadRequest, sheetdto.DomainError{Code: "unknown_theme", Message: err.Error()})
	case errors.Is(err, worksheet.ErrInvalidRatingRange):
		writeError(ctx, fasthttp.StatusBadRequest, sheetdto.DomainError{Code: "invalid_rating_range", Message: err.Error()})
	case errors.Is(err, worksheet.ErrInvalidCount):
		writeError(ctx, fasthttp.StatusBadRequest, sheetdto.DomainError{Code: "invalid_count", Message: err.Error()})
	case errors.Is(err, selector.ErrNoPuzzlesFound):
		writeError(ctx, fasthttp.StatusNotFound, sheetdto.DomainError{Code: "no_puzzles_found", Message: err.Error()})
	case errors.Is(err, dataset.ErrUnavailable):
		writeError(ctx, fasthttp.StatusServiceUnavailable, sheetdto.DomainError{Code: "dataset_unavailable", Message: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(ctx, fasthttp.StatusRequestTimeout, sheetdto.DomainError{Code: "timeout", Message: "request cancelled"})
	default:
		h.logger.Error("worksheet generation failed", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, sheetdto.DomainError{Code: "internal", Message: "worksheet generation failed"})
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, sheetdto.DomainError{Code: "internal", Message: "encode response"})
		return
	}
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, derr sheetdto.DomainError) {
	body, _ := json.Marshal(sheetdto.ErrorResponse{Code: derr.Code, Message: derr.Error()})
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
