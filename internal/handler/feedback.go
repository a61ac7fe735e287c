package handler

import (
	"errors"
	"net/http"

	"medsearch/internal/logger"
	"medsearch/internal/model"
	"medsearch/internal/repository"
	"medsearch/internal/service"

	"github.com/gin-gonic/gin"
)

// FeedbackHandler handles feedback-related HTTP requests
type FeedbackHandler struct {
	searchService *service.SearchService
	log           logger.Logger
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(searchService *service.SearchService, log logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		searchService: searchService,
		log:           log.With(map[string]interface{}{"component": "feedback_handler"}),
	}
}

// Submit handles POST /api/v1/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: "Invalid request body", Error: err.Error()})
		return
	}

	err := h.searchService.LogFeedback(c.Request.Context(), req.SearchID, req.ResultID, req.Action)
	var reqErr *service.RequestError
	switch {
	case err == nil:
	case errors.As(err, &reqErr):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: reqErr.Message})
		return
	case errors.Is(err, repository.ErrSearchNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Message: "Search not found"})
		return
	default:
		h.log.Error("failed to log feedback", map[string]interface{}{"search_id": req.SearchID, "error": err})
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Message: "Failed to log feedback", Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged successfully",
	})
}
