package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/visionsmith/argus-api/internal/api/middleware"
	"github.com/visionsmith/argus-api/internal/api/shared"
	"github.com/visionsmith/argus-api/internal/platform/logger"
	"github.com/visionsmith/argus-api/internal/scheduler"
)

// defaultDrainTimeout bounds drain requests that omit timeout_ms.
const defaultDrainTimeout = 30 * time.Second

// QueueController is the slice of the scheduler the operations endpoints
// need: stats, health, and the administrative clear/drain controls.
type QueueController interface {
	Stats() scheduler.Stats
	Health() scheduler.HealthReport
	Clear() int
	WaitIdle(ctx context.Context) error
}

// DrainRequest represents the request body for draining the queue.
type DrainRequest struct {
	TimeoutMs int `json:"timeout_ms" validate:"gte=0,lte=600000"`
}

// ClearResponse reports how many pending tasks an operator cleared.
type ClearResponse struct {
	Cleared int `json:"cleared"`
}

// DrainResponse reports a completed drain and its final counters.
type DrainResponse struct {
	Drained bool            `json:"drained"`
	Stats   scheduler.Stats `json:"stats"`
}

// OpsHandler handles queue statistics, health, and the operator-only
// administrative endpoints.
type OpsHandler struct {
	queue     QueueController
	validator *validator.Validate
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(queue QueueController) *OpsHandler {
	return &OpsHandler{
		queue:     queue,
		validator: validator.New(),
	}
}

// QueueStats handles GET /api/queue/stats requests.
func (h *OpsHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.queue.Stats())
}

// Health handles GET /health requests. The report carries the same
// counters as the stats endpoint plus advisory findings; an unhealthy
// report is served with 503 so load balancers can act on it.
func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.queue.Health()

	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}

	shared.RespondWithJSON(w, r, status, report)
}

// ClearQueue handles POST /api/admin/queue/clear requests. Pending tasks
// are failed immediately; running tasks are left to finish.
func (h *OpsHandler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	operator, _ := middleware.GetOperator(r)

	cleared := h.queue.Clear()

	log.Info("operator cleared the queue",
		"operator", operator,
		"cleared", cleared)

	shared.RespondWithJSON(w, r, http.StatusOK, ClearResponse{Cleared: cleared})
}

// DrainQueue handles POST /api/admin/queue/drain requests. It blocks
// until the scheduler goes idle or the requested timeout elapses; a
// drain that times out responds with 504 and leaves the queue running.
func (h *OpsHandler) DrainQueue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	operator, _ := middleware.GetOperator(r)

	var req DrainRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	timeout := defaultDrainTimeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	if err := h.queue.WaitIdle(ctx); err != nil {
		if errors.Is(err, scheduler.ErrDrainTimeout) {
			log.Warn("queue drain timed out",
				"operator", operator,
				"timeout", timeout,
				"stats", h.queue.Stats())
			shared.RespondWithErrorAndLog(w, r, http.StatusGatewayTimeout, GetSafeErrorMessage(err), err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("queue drained",
		"operator", operator,
		"timeout", timeout)

	shared.RespondWithJSON(w, r, http.StatusOK, DrainResponse{
		Drained: true,
		Stats:   h.queue.Stats(),
	})
}
