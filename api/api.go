// Package api serves the news index and match details as JSON.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/pevans/matchfed/assets"
	"github.com/pevans/matchfed/fetch"
	"github.com/pevans/matchfed/history"
	"github.com/pevans/matchfed/matchdetail"
	"github.com/pevans/matchfed/newsindex"
)

// IndexFetcher is implemented by *newsindex.Indexer.
type IndexFetcher interface {
	FetchIndex(ctx context.Context, indexURL string) (*newsindex.ReportIndexSet, error)
}

// DetailFetcher is implemented by *matchdetail.Extractor.
type DetailFetcher interface {
	FetchDetails(ctx context.Context, reportURL string) (*matchdetail.Report, error)
}

// VerdictStore is implemented by *history.Store.
type VerdictStore interface {
	Record(link, title string, kind history.Kind, items, assets int) (*history.Verdict, error)
	Get(link string) (*history.Verdict, error)
	List(filter history.Filter) ([]history.Verdict, error)
	Rejected() (map[string]bool, error)
}

// AssetStore is implemented by *assets.Store.
type AssetStore interface {
	Latest() string
	Open(batch string, position int) ([]byte, error)
	List(batch string) (*assets.ListResult, error)
}

// APIServer represents the HTTP API server.
type APIServer struct {
	indexURL string
	index    IndexFetcher
	details  DetailFetcher
	verdicts VerdictStore
	assets   AssetStore
	logger   *slog.Logger
}

// NewAPIServer creates a new API server reading the index at indexURL.
func NewAPIServer(
	indexURL string,
	index IndexFetcher,
	details DetailFetcher,
	verdicts VerdictStore,
	assets AssetStore,
	logger *slog.Logger,
) *APIServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{
		indexURL: indexURL,
		index:    index,
		details:  details,
		verdicts: verdicts,
		assets:   assets,
		logger:   logger,
	}
}

// SetupRouter configures the Gin router with the API routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(ctx *gin.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type")

		if ctx.Request.Method == "OPTIONS" {
			ctx.AbortWithStatus(http.StatusOK)
			return
		}

		ctx.Next()
	})

	api := router.Group("/api/v1")
	api.GET("/index", s.HandleIndex)
	api.GET("/details", s.HandleDetails)
	api.GET("/assets", s.HandleAssetList)
	api.GET("/assets/:position", s.HandleAsset)
	api.GET("/batches/:batch/assets", s.HandleAssetList)
	api.GET("/batches/:batch/assets/:position", s.HandleAsset)
	api.GET("/history", s.HandleHistory)

	return router
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// IndexEntry is a news entry annotated for display.
type IndexEntry struct {
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Report   bool   `json:"report"`
	Rejected bool   `json:"rejected"`
}

// IndexResponse is the body of GET /api/v1/index.
type IndexResponse struct {
	Source    string       `json:"source"`
	FetchedAt time.Time    `json:"fetched_at"`
	Entries   []IndexEntry `json:"entries"`
	Reports   []int        `json:"reports"`
}

// HandleIndex handles GET /api/v1/index.
func (s *APIServer) HandleIndex(ctx *gin.Context) {
	set, err := s.index.FetchIndex(ctx.Request.Context(), s.indexURL)
	if err != nil {
		s.respondFetchError(ctx, err)
		return
	}

	rejected, err := s.verdicts.Rejected()
	if err != nil {
		s.logger.Error("failed to load verdicts", "error", err)
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to load verdict history"))
		return
	}

	resp := IndexResponse{
		Source:    set.Source,
		FetchedAt: set.FetchedAt,
		Entries:   make([]IndexEntry, 0, len(set.Entries)),
		Reports:   set.Reports,
	}
	for i, entry := range set.Entries {
		resp.Entries = append(resp.Entries, IndexEntry{
			Index:    i,
			Title:    entry.Title,
			Link:     entry.Link,
			Report:   set.IsReport(i),
			Rejected: rejected[entry.Link],
		})
	}

	ctx.JSON(http.StatusOK, resp)
}

// HandleDetails handles GET /api/v1/details?url=<link>[&title=<title>][&force=1].
// Links already rejected as non-football are answered from history unless
// force is set.
func (s *APIServer) HandleDetails(ctx *gin.Context) {
	link := ctx.Query("url")
	if link == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", "url query parameter is required"))
		return
	}
	title := ctx.Query("title")

	force := false
	if raw := ctx.Query("force"); raw != "" {
		var err error
		if force, err = strconv.ParseBool(raw); err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", "force must be a boolean"))
			return
		}
	}

	if !force {
		verdict, err := s.verdicts.Get(link)
		switch {
		case err == nil && verdict.Kind == history.KindNotFootball:
			ctx.JSON(http.StatusUnprocessableEntity, errorResponse("not_football_report", "The page was already found not to be a football match report"))
			return
		case err != nil && !errors.Is(err, history.ErrVerdictNotFound):
			s.logger.Error("failed to look up verdict", "link", link, "error", err)
			ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to look up verdict history"))
			return
		}
	}

	report, err := s.details.FetchDetails(ctx.Request.Context(), link)
	if err != nil {
		s.respondFetchError(ctx, err)
		return
	}

	if !report.IsFootball() {
		if _, err := s.verdicts.Record(link, title, history.KindNotFootball, 0, 0); err != nil {
			s.logger.Error("failed to record verdict", "link", link, "error", err)
		}
		ctx.JSON(http.StatusUnprocessableEntity, errorResponse("not_football_report", "The page is not a football match report"))
		return
	}

	if _, err := s.verdicts.Record(link, title, history.KindReport, len(report.Items), len(report.Assets())); err != nil {
		s.logger.Error("failed to record verdict", "link", link, "error", err)
	}

	ctx.JSON(http.StatusOK, report)
}

// assetBatch returns the batch named in the path, or the latest one.
func (s *APIServer) assetBatch(ctx *gin.Context) (string, bool) {
	batch := ctx.Param("batch")
	if batch == "" {
		batch = s.assets.Latest()
	}
	if batch == "" {
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "No assets stored yet"))
		return "", false
	}
	return batch, true
}

// HandleAssetList handles GET /api/v1/assets and
// GET /api/v1/batches/:batch/assets.
func (s *APIServer) HandleAssetList(ctx *gin.Context) {
	batch, ok := s.assetBatch(ctx)
	if !ok {
		return
	}

	result, err := s.assets.List(batch)
	if errors.Is(err, assets.ErrBatchNotFound) {
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "Asset batch not found"))
		return
	}
	if err != nil {
		s.logger.Error("failed to list assets", "batch", batch, "error", err)
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to list assets"))
		return
	}

	files := result.Files
	if files == nil {
		files = []assets.File{}
	}
	readErrors := make([]gin.H, 0, len(result.Errors))
	for _, re := range result.Errors {
		s.logger.Warn("unreadable asset", "batch", batch, "file", re.Filename, "error", re.Err)
		readErrors = append(readErrors, gin.H{"filename": re.Filename, "error": re.Err.Error()})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"batch":  result.Batch,
		"files":  files,
		"errors": readErrors,
	})
}

// HandleAsset handles GET /api/v1/assets/:position and
// GET /api/v1/batches/:batch/assets/:position.
func (s *APIServer) HandleAsset(ctx *gin.Context) {
	position, err := strconv.Atoi(ctx.Param("position"))
	if err != nil || position < 0 {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", "position must be a non-negative integer"))
		return
	}

	batch, ok := s.assetBatch(ctx)
	if !ok {
		return
	}

	data, err := s.assets.Open(batch, position)
	if errors.Is(err, assets.ErrBatchNotFound) || (err == nil && data == nil) {
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "Asset not found"))
		return
	}
	if err != nil {
		s.logger.Error("failed to read asset", "batch", batch, "position", position, "error", err)
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to read asset"))
		return
	}

	ctx.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

// HandleHistory handles GET /api/v1/history[?kind=...&limit=...].
func (s *APIServer) HandleHistory(ctx *gin.Context) {
	var filter history.Filter

	if kind := ctx.Query("kind"); kind != "" {
		k := history.Kind(kind)
		if k != history.KindReport && k != history.KindNotFootball {
			ctx.JSON(http.StatusBadRequest, errorResponse("validation_error", history.ErrInvalidKind.Error()))
			return
		}
		filter.Kind = &k
	}
	if limit := ctx.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, errorResponse("validation_error", "limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}

	verdicts, err := s.verdicts.List(filter)
	if err != nil {
		s.logger.Error("failed to list verdicts", "error", err)
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to list verdicts"))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"verdicts": verdicts})
}

// respondFetchError maps upstream failures to 502 and the rest to 500.
func (s *APIServer) respondFetchError(ctx *gin.Context, err error) {
	s.logger.Error("fetch failed", "path", ctx.Request.URL.Path, "error", err)

	switch {
	case fetch.IsTransportError(err):
		ctx.JSON(http.StatusBadGateway, errorResponse("upstream_error", err.Error()))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ctx.JSON(http.StatusGatewayTimeout, errorResponse("timeout", err.Error()))
	default:
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", err.Error()))
	}
}
