package model

// SearchRequest represents an explicit-type search request
type SearchRequest struct {
	Query   string         `json:"query"`
	Type    string         `json:"type"`
	Filters *SearchFilters `json:"filters,omitempty"`
}

// SearchFilters represents structured search filters plus index tuning
type SearchFilters struct {
	FilterSet
	Threshold *float64 `json:"threshold,omitempty"`
	Limit     *int     `json:"limit,omitempty"`
}

// MatchOptions tunes one dispatch; nil fields take the dispatcher defaults
type MatchOptions struct {
	Threshold *float64
	Limit     *int
}

// MatchParams are the resolved arguments of a vector index call
type MatchParams struct {
	Threshold float64
	Count     int
	Filters   FilterSet
}

// SearchResponse represents a search result response
type SearchResponse struct {
	Success  bool           `json:"success"`
	Results  []SearchResult `json:"results"`
	Count    int            `json:"count"`
	SearchID string         `json:"searchId,omitempty"`
	Took     int64          `json:"took_ms"` // Response time in milliseconds
}

// ChatRequest represents a conversational search turn
type ChatRequest struct {
	Message         string          `json:"message" binding:"required"`
	Filters         *FilterSet      `json:"filters,omitempty"`
	Threshold       *float64        `json:"threshold,omitempty"`
	Limit           *int            `json:"limit,omitempty"`
	PreviousQuery   string          `json:"previousQuery,omitempty"`
	PreviousResults []ResultSummary `json:"previousResults,omitempty"`
}

// Prior returns the conversation context carried by the request, or nil
func (r *ChatRequest) Prior() *PriorContext {
	if r.PreviousQuery == "" && len(r.PreviousResults) == 0 {
		return nil
	}
	return &PriorContext{PreviousQuery: r.PreviousQuery, PreviousResults: r.PreviousResults}
}

// ChatResponse represents the result of a conversational search turn
type ChatResponse struct {
	Success  bool           `json:"success"`
	Intent   *SearchIntent  `json:"intent"`
	Results  []SearchResult `json:"results"`
	Count    int            `json:"count"`
	SearchID string         `json:"searchId,omitempty"`
	Took     int64          `json:"took_ms"`
}

// FollowUp builds the next conversational turn from this response
func (r *ChatResponse) FollowUp(previousQuery, message string) *ChatRequest {
	return &ChatRequest{
		Message:         message,
		PreviousQuery:   previousQuery,
		PreviousResults: Summaries(r.Results),
	}
}

// Feedback actions
const (
	ActionClick       = "click"
	ActionContact     = "contact"
	ActionViewDetails = "view_details"
	ActionBook        = "book"
)

// FeedbackRequest represents user feedback/action
type FeedbackRequest struct {
	SearchID string `json:"searchId" binding:"required"`
	ResultID string `json:"resultId" binding:"required"`
	Action   string `json:"action" binding:"required"` // click, contact, view_details, book
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// SearchLogEntry is one row of the search log
type SearchLogEntry struct {
	SearchID       string
	Query          string
	EntityType     EntityType
	Filters        FilterSet
	ResultCount    int
	ReturnedIDs    []string
	ResponseTimeMs int64
	IntentSource   string
}
