package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/visionsmith/argus-api/internal/api/shared"
	"github.com/visionsmith/argus-api/internal/domain"
	"github.com/visionsmith/argus-api/internal/platform/logger"
	"github.com/visionsmith/argus-api/internal/service"
)

// ClassifyRequest represents the request body for classification endpoints.
// timeout_ms of zero falls back to the scheduler's default timeout.
type ClassifyRequest struct {
	URL       string `json:"url"        validate:"required,url"`
	Priority  int    `json:"priority"   validate:"gte=0,lte=100"`
	TimeoutMs int    `json:"timeout_ms" validate:"gte=0,lte=600000"`
}

// LabelResponse represents one predicted label in a response body.
type LabelResponse struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ClassificationResponse represents the response data for a classification.
type ClassificationResponse struct {
	ID        string          `json:"id"`
	ImageURL  string          `json:"image_url"`
	Priority  int             `json:"priority"`
	Status    string          `json:"status"`
	Labels    []LabelResponse `json:"labels,omitempty"`
	Model     string          `json:"model,omitempty"`
	FailedFor string          `json:"failed_for,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ClassifyHandler handles classification-related HTTP requests.
type ClassifyHandler struct {
	classificationService service.ClassificationService
	validator             *validator.Validate
}

// NewClassifyHandler creates a new ClassifyHandler.
func NewClassifyHandler(classificationService service.ClassificationService) *ClassifyHandler {
	return &ClassifyHandler{
		classificationService: classificationService,
		validator:             validator.New(),
	}
}

// Classify handles POST /api/classify requests. The classification runs
// through the scheduler and the handler blocks until it settles or the
// request context expires.
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	req, ok := h.decodeClassifyRequest(w, r)
	if !ok {
		return
	}

	result, err := h.classificationService.ClassifySync(r.Context(), service.ClassifyRequest{
		ImageURL: req.URL,
		Priority: req.Priority,
		Timeout:  time.Duration(req.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		status := MapErrorToStatusCode(err)
		log.Debug("synchronous classification request failed",
			"error", err,
			"status", status,
			"image_url", req.URL)
		shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, classificationToResponse(result))
}

// CreateClassification handles POST /api/classifications requests. The
// record is created in pending state and processed asynchronously; the
// response is 202 with the record's ID for later polling.
func (h *ClassifyHandler) CreateClassification(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	req, ok := h.decodeClassifyRequest(w, r)
	if !ok {
		return
	}

	result, err := h.classificationService.CreateAndEnqueue(r.Context(), service.ClassifyRequest{
		ImageURL: req.URL,
		Priority: req.Priority,
		Timeout:  time.Duration(req.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		status := MapErrorToStatusCode(err)
		log.Debug("failed to enqueue classification",
			"error", err,
			"status", status,
			"image_url", req.URL)
		shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, classificationToResponse(result))
}

// GetClassification handles GET /api/classifications/{id} requests.
func (h *ClassifyHandler) GetClassification(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid classification ID")
		return
	}

	result, err := h.classificationService.GetClassification(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, classificationToResponse(result))
}

// decodeClassifyRequest decodes and validates the shared request body for
// both classification endpoints, writing the error response itself when
// the request is malformed.
func (h *ClassifyHandler) decodeClassifyRequest(
	w http.ResponseWriter,
	r *http.Request,
) (ClassifyRequest, bool) {
	var req ClassifyRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return req, false
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return req, false
	}

	return req, true
}

// classificationToResponse converts a domain.Classification to its DTO.
func classificationToResponse(c *domain.Classification) ClassificationResponse {
	labels := make([]LabelResponse, 0, len(c.Labels))
	for _, l := range c.Labels {
		labels = append(labels, LabelResponse{Name: l.Name, Confidence: l.Confidence})
	}

	return ClassificationResponse{
		ID:        c.ID.String(),
		ImageURL:  c.ImageURL,
		Priority:  c.Priority,
		Status:    string(c.Status),
		Labels:    labels,
		Model:     c.Model,
		FailedFor: c.FailedFor,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
