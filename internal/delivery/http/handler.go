package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/personashop/backend/internal/domain"
	"github.com/personashop/backend/pkg/logger"
)

const (
	serviceName    = "personashop-backend"
	serviceVersion = "1.0.0"

	cacheHeader = "X-Cache"
)

// RecommendationUsecase is the recommendation assembler as seen by the handlers
type RecommendationUsecase interface {
	Recommend(ctx context.Context, req domain.RecommendRequest) (*domain.RecommendationResponse, bool, error)
	Evaluate(ctx context.Context, req domain.EvaluateRequest) (*domain.RecommendationResult, error)
}

// ComparisonUsecase is the comparator as seen by the handlers
type ComparisonUsecase interface {
	Compare(ctx context.Context, req domain.CompareRequest) (*domain.ComparisonResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	recommendations RecommendationUsecase
	comparisons     ComparisonUsecase
}

// NewHandler creates a new HTTP handler. A nil usecase makes its endpoints answer 503.
func NewHandler(recommendations RecommendationUsecase, comparisons ComparisonUsecase) *Handler {
	return &Handler{
		recommendations: recommendations,
		comparisons:     comparisons,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Recommend handles POST /api/v1/recommendations
func (h *Handler) Recommend(c *gin.Context) {
	if h.recommendations == nil {
		notConfigured(c)
		return
	}

	var req domain.RecommendRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, cached, err := h.recommendations.Recommend(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	if cached {
		c.Header(cacheHeader, "HIT")
	} else {
		c.Header(cacheHeader, "MISS")
	}
	c.JSON(http.StatusOK, resp)
}

// Compare handles POST /api/v1/recommendations/compare
func (h *Handler) Compare(c *gin.Context) {
	if h.comparisons == nil {
		notConfigured(c)
		return
	}

	var req domain.CompareRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.comparisons.Compare(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Evaluate handles POST /api/v1/recommendations/evaluate
func (h *Handler) Evaluate(c *gin.Context) {
	if h.recommendations == nil {
		notConfigured(c)
		return
	}

	var req domain.EvaluateRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.recommendations.Evaluate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  domain.ErrValidation.Error(),
			"fields": []domain.FieldError{{Field: "body", Message: "invalid JSON: " + err.Error()}},
		})
		return false
	}
	return true
}

func notConfigured(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "recommendation service not configured",
	})
}

// writeError maps domain errors to HTTP responses
func writeError(c *gin.Context, err error) {
	var notFound *domain.NotFoundError
	var invalid *domain.ValidationError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":    notFound.Error(),
			"resource": notFound.Resource,
			"id":       notFound.ID,
		})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  domain.ErrValidation.Error(),
			"fields": invalid.Fields,
		})
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads this response
		c.Status(499)
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
		})
	}
}
