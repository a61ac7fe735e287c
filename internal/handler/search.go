package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"medsearch/internal/logger"
	"medsearch/internal/model"
	"medsearch/internal/service"

	"github.com/gin-gonic/gin"
)

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService *service.SearchService
	timeout       time.Duration
	log           logger.Logger
}

// NewSearchHandler creates a new search handler. A zero timeout leaves the
// request context untouched.
func NewSearchHandler(searchService *service.SearchService, timeout time.Duration, log logger.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		timeout:       timeout,
		log:           log.With(map[string]interface{}{"component": "search_handler"}),
	}
}

func (h *SearchHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: "Invalid request body", Error: err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	response, err := h.searchService.Search(ctx, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Chat handles POST /api/v1/chat
func (h *SearchHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: "Invalid request body", Error: err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	response, err := h.searchService.Chat(ctx, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ChatStream handles POST /api/v1/chat/stream - SSE streaming chat search
func (h *SearchHandler) ChatStream(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: "Invalid request body", Error: err.Error()})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Message: "Streaming not supported"})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	sendSSE(c, "start", map[string]any{"message": req.Message})
	flusher.Flush()

	response, err := h.searchService.ChatStream(ctx, &req, func(event string, data any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})
	if err != nil {
		status, body := errorBody(err)
		if status == http.StatusInternalServerError {
			h.log.Error("chat stream failed", map[string]interface{}{"error": err})
		}
		sendSSE(c, "error", body)
		flusher.Flush()
		return
	}

	sendSSE(c, "results", response)
	flusher.Flush()

	sendSSE(c, "done", nil)
	flusher.Flush()
}

func (h *SearchHandler) writeError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		h.log.Error("search request failed", map[string]interface{}{
			"path":  c.FullPath(),
			"error": err,
		})
	}
	c.JSON(status, body)
}

// errorBody maps service errors onto the API contract: client errors carry
// their exact message, everything else is reported as a search failure.
func errorBody(err error) (int, model.ErrorResponse) {
	var reqErr *service.RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, model.ErrorResponse{Message: reqErr.Message}
	}
	return http.StatusInternalServerError, model.ErrorResponse{Message: "Search failed", Error: err.Error()}
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}
