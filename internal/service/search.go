package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"medsearch/internal/logger"
	"medsearch/internal/metrics"
	"medsearch/internal/model"
)

// IntentSourceExplicit marks intents built from an explicit-type request
const IntentSourceExplicit = "explicit"

const searchLogTimeout = 5 * time.Second

// SearchLogger persists searches and user feedback
type SearchLogger interface {
	LogSearch(ctx context.Context, entry model.SearchLogEntry) error
	LogFeedback(ctx context.Context, searchID, resultID, action string) error
}

var validFeedbackActions = map[string]bool{
	model.ActionClick:       true,
	model.ActionContact:     true,
	model.ActionViewDetails: true,
	model.ActionBook:        true,
}

// SearchService handles search business logic
type SearchService struct {
	understanding *QueryUnderstanding
	dispatcher    *Dispatcher
	ranker        *Ranker
	searchLog     SearchLogger
	log           logger.Logger
	pending       sync.WaitGroup

	mu      sync.Mutex
	writing map[string]chan struct{} // search IDs whose log row is not yet written
}

// NewSearchService creates a new search service. searchLog may be nil.
func NewSearchService(
	understanding *QueryUnderstanding,
	dispatcher *Dispatcher,
	ranker *Ranker,
	searchLog SearchLogger,
	log logger.Logger,
) *SearchService {
	return &SearchService{
		understanding: understanding,
		dispatcher:    dispatcher,
		ranker:        ranker,
		searchLog:     searchLog,
		log:           log.With(map[string]interface{}{"component": "search"}),
		writing:       make(map[string]chan struct{}),
	}
}

// SearchEventCallback is called for streaming search events
type SearchEventCallback func(event string, data any) error

// Search runs an explicit-type search: query text and entity type come
// straight from the request.
func (s *SearchService) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	startTime := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" || strings.TrimSpace(req.Type) == "" {
		metrics.SearchRequests.WithLabelValues("unknown", metrics.OutcomeInvalid).Inc()
		return nil, invalidRequest(MsgMissingParameters)
	}
	entityType, ok := model.ParseEntityType(req.Type)
	if !ok {
		metrics.SearchRequests.WithLabelValues("unknown", metrics.OutcomeInvalid).Inc()
		return nil, invalidRequest(MsgInvalidSearchType)
	}

	intent := &model.SearchIntent{
		EntityType: entityType,
		QueryText:  query,
		Source:     IntentSourceExplicit,
	}
	var opts model.MatchOptions
	if req.Filters != nil {
		intent.Filters = req.Filters.FilterSet
		opts = model.MatchOptions{Threshold: req.Filters.Threshold, Limit: req.Filters.Limit}
	}

	results, err := s.execute(ctx, intent, opts)
	if err != nil {
		return nil, err
	}

	searchID := uuid.NewString()
	took := time.Since(startTime).Milliseconds()
	s.logSearch(searchID, query, intent, results, took)

	return &model.SearchResponse{
		Success:  true,
		Results:  results,
		Count:    len(results),
		SearchID: searchID,
		Took:     took,
	}, nil
}

// Chat understands a free-text message, then searches with the resulting intent.
// Filters given explicitly in the request win over extracted ones.
func (s *SearchService) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	startTime := time.Now()

	if strings.TrimSpace(req.Message) == "" {
		return nil, invalidRequest("Missing required parameter: message")
	}

	intent := s.understanding.Understand(ctx, req.Message, req.Prior())
	intent.Filters = intent.Filters.Merge(req.Filters)

	results, err := s.execute(ctx, intent, model.MatchOptions{Threshold: req.Threshold, Limit: req.Limit})
	if err != nil {
		return nil, err
	}

	searchID := uuid.NewString()
	took := time.Since(startTime).Milliseconds()
	s.logSearch(searchID, req.Message, intent, results, took)

	return &model.ChatResponse{
		Success:  true,
		Intent:   intent,
		Results:  results,
		Count:    len(results),
		SearchID: searchID,
		Took:     took,
	}, nil
}

// ChatStream is Chat with progress events: parsing, thinking, content,
// intent and searching. The caller emits the final response.
func (s *SearchService) ChatStream(ctx context.Context, req *model.ChatRequest, callback SearchEventCallback) (*model.ChatResponse, error) {
	startTime := time.Now()

	if strings.TrimSpace(req.Message) == "" {
		return nil, invalidRequest("Missing required parameter: message")
	}

	if err := callback("parsing", map[string]any{
		"status": "Understanding your request...",
	}); err != nil {
		return nil, err
	}

	intent := s.understanding.UnderstandStream(ctx, req.Message, req.Prior(), func(thinking, content string) error {
		if thinking != "" {
			return callback("thinking", map[string]any{"content": thinking})
		}
		if content != "" {
			return callback("content", map[string]any{"content": content})
		}
		return nil
	})
	intent.Filters = intent.Filters.Merge(req.Filters)

	if err := callback("intent", intent); err != nil {
		return nil, err
	}

	if err := callback("searching", map[string]any{
		"status":     "Searching " + intent.EntityType.Plural() + "...",
		"entityType": intent.EntityType,
	}); err != nil {
		return nil, err
	}

	results, err := s.execute(ctx, intent, model.MatchOptions{Threshold: req.Threshold, Limit: req.Limit})
	if err != nil {
		return nil, err
	}

	searchID := uuid.NewString()
	took := time.Since(startTime).Milliseconds()
	s.logSearch(searchID, req.Message, intent, results, took)

	return &model.ChatResponse{
		Success:  true,
		Intent:   intent,
		Results:  results,
		Count:    len(results),
		SearchID: searchID,
		Took:     took,
	}, nil
}

// LogFeedback logs user feedback/action
func (s *SearchService) LogFeedback(ctx context.Context, searchID, resultID, action string) error {
	if !validFeedbackActions[action] {
		return invalidRequest("Invalid action. Must be one of: click, contact, view_details, book")
	}
	if s.searchLog == nil {
		return nil
	}

	// feedback updates the search row, so it waits for the background insert
	s.mu.Lock()
	done := s.writing[searchID]
	s.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.searchLog.LogFeedback(ctx, searchID, resultID, action)
}

// Wait blocks until pending search log writes finish
func (s *SearchService) Wait() {
	s.pending.Wait()
}

// execute dispatches, normalizes and ranks. No partial results are returned on error.
func (s *SearchService) execute(ctx context.Context, intent *model.SearchIntent, opts model.MatchOptions) ([]model.SearchResult, error) {
	start := time.Now()
	label := string(intent.EntityType)
	if !intent.EntityType.Valid() {
		label = "unknown"
	}

	raws, err := s.dispatcher.Search(ctx, intent, opts)
	if err != nil {
		outcome := outcomeFor(err)
		metrics.SearchRequests.WithLabelValues(label, outcome).Inc()
		if outcome != metrics.OutcomeInvalid {
			s.log.Error("search failed", map[string]interface{}{
				"entity_type": label,
				"outcome":     outcome,
				"error":       err,
			})
		}
		return nil, err
	}

	results := NormalizeMatches(intent.EntityType, raws)
	results = s.ranker.RankResults(results, intent.Filters)

	metrics.SearchRequests.WithLabelValues(label, metrics.OutcomeSuccess).Inc()
	metrics.SearchDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	return results, nil
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrEmbeddingFailure):
		return metrics.OutcomeEmbeddingFail
	case errors.Is(err, ErrIndexQueryFailure):
		return metrics.OutcomeIndexFail
	default:
		return metrics.OutcomeError
	}
}

// logSearch writes the search log in the background
func (s *SearchService) logSearch(searchID, query string, intent *model.SearchIntent, results []model.SearchResult, took int64) {
	if s.searchLog == nil {
		return
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ResultID()
	}
	entry := model.SearchLogEntry{
		SearchID:       searchID,
		Query:          query,
		EntityType:     intent.EntityType,
		Filters:        intent.Filters,
		ResultCount:    len(results),
		ReturnedIDs:    ids,
		ResponseTimeMs: took,
		IntentSource:   intent.Source,
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.writing[searchID] = done
	s.mu.Unlock()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			s.mu.Lock()
			delete(s.writing, searchID)
			s.mu.Unlock()
			close(done)
		}()
		ctx, cancel := context.WithTimeout(context.Background(), searchLogTimeout)
		defer cancel()
		if err := s.searchLog.LogSearch(ctx, entry); err != nil {
			s.log.Warn("failed to log search", map[string]interface{}{"search_id": searchID, "error": err})
		}
	}()
}
