package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appservice "github.com/floodguard/serving/internal/application/service"
	"github.com/floodguard/serving/internal/ml"
	"github.com/floodguard/serving/pkg/logger"
)

// ModelHandler exposes the model management endpoints: status, metadata,
// hot-reload, and cache invalidation.
type ModelHandler struct {
	service *appservice.PredictionService
	log     logger.Logger
}

// NewModelHandler creates the handler.
func NewModelHandler(service *appservice.PredictionService, log logger.Logger) *ModelHandler {
	return &ModelHandler{service: service, log: log.WithComponent("model_handler")}
}

// Status handles GET /api/v1/models/status.
func (h *ModelHandler) Status(c *gin.Context) {
	status := h.service.ModelStatus()

	allLoaded := true
	for _, fam := range status {
		if !fam.Loaded {
			allLoaded = false
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"all_loaded": allLoaded,
		"families":   status,
		"checked_at": time.Now().UTC(),
	})
}

// Metadata handles GET /api/v1/models/:family/metadata.
func (h *ModelHandler) Metadata(c *gin.Context) {
	family, err := ml.ParseFamily(c.Param("family"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	status, ok := h.service.ModelStatus()[family]
	if !ok {
		respondBadRequest(c, "unknown model family")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"family":   family,
		"metadata": status,
	})
}

// Reload handles POST /api/v1/models/:family/reload.
func (h *ModelHandler) Reload(c *gin.Context) {
	family, err := ml.ParseFamily(c.Param("family"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	handle, err := h.service.ReloadModel(c.Request.Context(), family)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"family":     family,
		"version":    handle.Model.Version(),
		"generation": handle.Generation,
		"loaded_at":  handle.LoadedAt,
	})
}

// ReloadAll handles POST /api/v1/models/reload. Partial failure is still a
// 200: per-family outcomes are in the body.
func (h *ModelHandler) ReloadAll(c *gin.Context) {
	summary := h.service.ReloadAllModels(c.Request.Context())
	status := http.StatusOK
	if summary.Succeeded == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, summary)
}

// ClearCache handles DELETE /api/v1/models/:family/cache.
func (h *ModelHandler) ClearCache(c *gin.Context) {
	family, err := ml.ParseFamily(c.Param("family"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	removed, err := h.service.ClearModelCache(c.Request.Context(), family)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"family":  family,
		"removed": removed,
	})
}
