package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"footfall-prediction-api/logging"
	"footfall-prediction-api/models"
	"footfall-prediction-api/services"

	"github.com/gin-gonic/gin"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// cacheStoreTimeout bounds the background write of upload views, which
	// outlives the request.
	cacheStoreTimeout = 5 * time.Second
)

type ViewsHandler struct {
	artifacts      *services.Artifacts
	cache          *services.CacheService
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewViewsHandler(artifacts *services.Artifacts, cache *services.CacheService, maxUploadBytes int64, logger *slog.Logger) *ViewsHandler {
	return &ViewsHandler{artifacts: artifacts, cache: cache, maxUploadBytes: maxUploadBytes, logger: logger}
}

func (h *ViewsHandler) GetDataset(c *gin.Context) {
	ds, err := h.artifacts.Dataset()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ds.Summary})
}

func (h *ViewsHandler) GetViews(c *gin.Context) {
	views, err := h.defaultViews()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (h *ViewsHandler) GetView(c *gin.Context) {
	name := c.Param("name")
	views, err := h.defaultViews()
	if err != nil {
		respondError(c, err)
		return
	}
	view, ok := services.Lookup(views, name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown view", "views": services.ViewNames})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// UploadViews computes the views of an uploaded CSV. Results are cached by
// content hash when Redis is configured.
func (h *ViewsHandler) UploadViews(c *gin.Context) {
	data, name, ok := h.upload(c)
	if !ok {
		return
	}
	sha := services.ContentHash(data)

	if cached, hit, err := h.cache.GetViews(c.Request.Context(), sha); err != nil {
		logging.LogError(h.logger, "view cache lookup failed", err, slog.String("sha256", sha))
	} else if hit {
		c.JSON(http.StatusOK, models.UploadViewsResponse{SHA256: sha, Cached: true, Data: cached})
		return
	}

	views, err := h.uploadedViews(name, data)
	if err != nil {
		respondError(c, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cacheStoreTimeout)
		defer cancel()
		if err := h.cache.SetViews(ctx, sha, views); err != nil {
			logging.LogError(h.logger, "view cache store failed", err, slog.String("sha256", sha))
		}
	}()

	c.JSON(http.StatusOK, models.UploadViewsResponse{SHA256: sha, Data: views})
}

func (h *ViewsHandler) GetReport(c *gin.Context) {
	views, err := h.defaultViews()
	if err != nil {
		respondError(c, err)
		return
	}
	h.sendReport(c, views)
}

func (h *ViewsHandler) UploadReport(c *gin.Context) {
	data, name, ok := h.upload(c)
	if !ok {
		return
	}
	views, err := h.uploadedViews(name, data)
	if err != nil {
		respondError(c, err)
		return
	}
	h.sendReport(c, views)
}

// GetOptions lists selector values. It degrades to the calendar domains
// when the model or the default dataset cannot be loaded.
func (h *ViewsHandler) GetOptions(c *gin.Context) {
	var schema *services.ModelSchema
	if model, err := h.artifacts.Model(); err == nil {
		schema = model.Schema
	}
	ds, err := h.artifacts.Dataset()
	if err != nil {
		ds = nil
	}
	c.JSON(http.StatusOK, gin.H{"data": services.SelectorOptions(schema, ds)})
}

func (h *ViewsHandler) defaultViews() (models.Views, error) {
	ds, err := h.artifacts.Dataset()
	if err != nil {
		return models.Views{}, err
	}
	return ds.Views()
}

func (h *ViewsHandler) uploadedViews(name string, data []byte) (models.Views, error) {
	ds, err := services.RunPipeline(name, data)
	if err != nil {
		logging.LogError(h.logger, "upload rejected", err, slog.String("file", name))
		return models.Views{}, err
	}
	logging.LogOperation(h.logger, "upload processed",
		slog.String("file", name),
		slog.Int("raw_rows", ds.Summary.RawRows),
		slog.Int("clean_rows", ds.Summary.CleanRows),
	)
	return ds.Views()
}

// upload reads the required CSV upload, answering 400 itself on failure.
func (h *ViewsHandler) upload(c *gin.Context) ([]byte, string, bool) {
	data, name, present, err := readUpload(c, h.maxUploadBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}
	if !present {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMissingUpload.Error()})
		return nil, "", false
	}
	return data, name, true
}

func (h *ViewsHandler) sendReport(c *gin.Context, views models.Views) {
	var buf bytes.Buffer
	if err := services.WriteReport(views, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="footfall_report.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
