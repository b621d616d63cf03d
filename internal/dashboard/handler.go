package dashboard

import (
	"errors"
	"net/http"

	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
	"github.com/Wuchinator/visitor-dashboard/pkg/httpserver"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultSelector = SelectorWeek

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
	g := rg.Group("/dashboard")
	g.GET("", h.dashboard)
	g.POST("/aggregate", h.aggregate)
}

// aggregateRequest carries its own snapshot instead of reading the store.
type aggregateRequest struct {
	Range  string          `json:"range"`
	Start  string          `json:"start"`
	End    string          `json:"end"`
	Events []visitor.Event `json:"events"`
}

func (h *Handler) dashboard(c *gin.Context) {
	// Без range отдаём последние 7 дней
	q, err := buildQuery(c.Query("range"), c.Query("start"), c.Query("end"))
	if err != nil {
		httpserver.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Dashboard(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) aggregate(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpserver.BadRequest(c, "invalid request body")
		return
	}

	q, err := buildQuery(req.Range, req.Start, req.End)
	if err != nil {
		httpserver.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AggregateEvents(req.Events, q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidSelector), errors.Is(err, ErrInvalidRange):
		httpserver.BadRequest(c, err.Error())
	case errors.Is(err, ErrSnapshotUnavailable):
		httpserver.ServiceUnavailable(c, "visitor data is temporarily unavailable")
	default:
		h.logger.Error("dashboard request failed", zap.Error(err))
		httpserver.InternalError(c, "failed to build dashboard")
	}
}

func buildQuery(rangeParam, start, end string) (Query, error) {
	sel := defaultSelector
	if rangeParam != "" {
		parsed, err := ParseSelector(rangeParam)
		if err != nil {
			return Query{}, err
		}
		sel = parsed
	}
	return Query{Selector: sel, Start: start, End: end}, nil
}
