package visitor

import (
	"errors"
	"net/http"

	"github.com/Wuchinator/visitor-dashboard/pkg/httpserver"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/visits", h.track)
	rg.POST("/visits/batch", h.trackBatch)
}

type batchRequest struct {
	Visits []TrackRequest `json:"visits"`
}

func (h *Handler) track(c *gin.Context) {
	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpserver.BadRequest(c, "invalid request body")
		return
	}

	// IP и User-Agent берём из транспорта, если клиент их не прислал
	event, err := h.service.Track(c.Request.Context(), req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidTimestamp):
			httpserver.BadRequest(c, err.Error())
		default:
			h.logger.Error("can't track visit", zap.Error(err))
			httpserver.InternalError(c, "failed to track visit")
		}
		return
	}

	// 202: запись в БД происходит асинхронно через Kafka
	c.JSON(http.StatusAccepted, gin.H{"eventId": event.EventID})
}

func (h *Handler) trackBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpserver.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.service.TrackBatch(c.Request.Context(), req.Visits, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			httpserver.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("can't track visit batch", zap.Error(err))
		httpserver.InternalError(c, "failed to track visits")
		return
	}

	c.JSON(http.StatusAccepted, result)
}
