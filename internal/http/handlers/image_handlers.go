package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/doanvu/image-editing/internal/config"
	"github.com/doanvu/image-editing/internal/models"
	"github.com/doanvu/image-editing/internal/services/batch"
	"github.com/doanvu/image-editing/internal/services/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ImageHandler struct {
	service *batch.Service
	cache   *storage.Cache
	logger  *zap.Logger
	config  *config.Config
}

func NewImageHandler(
	service *batch.Service,
	cache *storage.Cache,
	logger *zap.Logger,
	config *config.Config,
) *ImageHandler {
	return &ImageHandler{
		service: service,
		cache:   cache,
		logger:  logger,
		config:  config,
	}
}

// === MAIN API ENDPOINTS ===

func (h *ImageHandler) EditImage(c *gin.Context) {
	var req models.EditImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	item := h.service.EditSingle(c.Request.Context(), &req)
	status := http.StatusOK
	if !item.Outcome.OK {
		status = statusForKind(item.Outcome.ErrorKind)
	}

	c.JSON(status, models.APIResponse{
		Success: item.Outcome.OK,
		Data:    item,
	})
}

func (h *ImageHandler) BatchEdit(c *gin.Context) {
	var req models.BatchEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	report := h.service.EditBatch(c.Request.Context(), &req)

	// A batch call always answers with a full report; callers inspect
	// per-item outcomes to see which inputs need re-submission.
	c.JSON(http.StatusOK, models.APIResponse{
		Success: report.Failed == 0,
		Data:    report,
	})
}

// HealthCheck
func (h *ImageHandler) HealthCheck(c *gin.Context) {
	services := h.serviceStatus(c.Request.Context())
	overall := "healthy"
	for _, status := range services {
		if status != "healthy" && status != "disabled" {
			overall = "unhealthy"
		}
	}

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
		},
	})
}

func (h *ImageHandler) serviceStatus(ctx context.Context) map[string]string {
	status := make(map[string]string)

	if h.config.ImageAPI.APIKey == "" {
		status["image_api"] = "unhealthy: API key not configured"
	} else {
		status["image_api"] = "healthy"
	}

	if h.cache == nil {
		status["cache"] = "disabled"
	} else if err := h.cache.HealthCheck(ctx); err != nil {
		status["cache"] = "unhealthy: " + err.Error()
	} else {
		status["cache"] = "healthy"
	}

	if err := probeOutputDir(h.config.Output.BaseDirectory); err != nil {
		status["output_dir"] = "unhealthy: " + err.Error()
	} else {
		status["output_dir"] = "healthy"
	}

	return status
}

func (h *ImageHandler) respondError(c *gin.Context, status int, message string) {
	c.JSON(status, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

// statusForKind maps a single-edit failure onto an HTTP status for the
// non-batch endpoint. Batch responses always answer 200 with a report.
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.ErrKindInvalidInput, models.ErrKindMalformedEncoding,
		models.ErrKindTooLarge, models.ErrKindNotFound:
		return http.StatusBadRequest
	case models.ErrKindAuthFailed:
		return http.StatusBadGateway
	case models.ErrKindContentPolicy:
		return http.StatusUnprocessableEntity
	case models.ErrKindRateLimited:
		return http.StatusTooManyRequests
	case models.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
