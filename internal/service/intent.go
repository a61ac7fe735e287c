package service

import (
	"context"
	"errors"

	"medsearch/internal/logger"
	"medsearch/internal/metrics"
	"medsearch/internal/model"
)

// IntentClassifier turns user text into a structured search intent
type IntentClassifier interface {
	Classify(ctx context.Context, text string, prior *model.PriorContext) (*model.SearchIntent, error)
}

// StreamingClassifier is an IntentClassifier that can forward model output as
// it arrives. onChunk receives (thinking, content) pieces.
type StreamingClassifier interface {
	IntentClassifier
	ClassifyStream(ctx context.Context, text string, prior *model.PriorContext, onChunk func(thinking, content string) error) (*model.SearchIntent, error)
}

// QueryUnderstanding runs the primary classifier and falls back to the rule
// engine on any failure. It never returns an error.
type QueryUnderstanding struct {
	primary  StreamingClassifier
	fallback *RuleClassifier
	log      logger.Logger
}

// NewQueryUnderstanding creates the engine. primary may be nil, in which case
// every query is answered by the rule engine.
func NewQueryUnderstanding(primary StreamingClassifier, fallback *RuleClassifier, log logger.Logger) *QueryUnderstanding {
	if fallback == nil {
		fallback = NewRuleClassifier()
	}
	return &QueryUnderstanding{
		primary:  primary,
		fallback: fallback,
		log:      log.With(map[string]interface{}{"component": "query_understanding"}),
	}
}

// Understand classifies text, transparently falling back to the rule engine
func (q *QueryUnderstanding) Understand(ctx context.Context, text string, prior *model.PriorContext) *model.SearchIntent {
	if q.primary == nil {
		return q.useFallback(text, nil)
	}

	intent, err := q.primary.Classify(ctx, text, prior)
	if err != nil {
		return q.useFallback(text, err)
	}
	return intent
}

// UnderstandStream is Understand with model output forwarded to onChunk.
// A failing onChunk aborts the primary attempt and falls back like any other error.
func (q *QueryUnderstanding) UnderstandStream(ctx context.Context, text string, prior *model.PriorContext, onChunk func(thinking, content string) error) *model.SearchIntent {
	if q.primary == nil {
		return q.useFallback(text, nil)
	}

	intent, err := q.primary.ClassifyStream(ctx, text, prior, onChunk)
	if err != nil {
		return q.useFallback(text, err)
	}
	return intent
}

func (q *QueryUnderstanding) useFallback(text string, cause error) *model.SearchIntent {
	reason := fallbackReason(cause)
	metrics.IntentFallbacks.WithLabelValues(reason).Inc()

	switch reason {
	case "disabled":
		q.log.Debug("LLM disabled, using rule engine", nil)
	default:
		q.log.Warn("LLM intent classification failed, using rule engine", map[string]interface{}{
			"reason": reason,
			"error":  cause,
		})
	}
	return q.fallback.Understand(text)
}

func fallbackReason(err error) string {
	switch {
	case err == nil, errors.Is(err, ErrAIDisabled):
		return "disabled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, errInvalidLLMOutput):
		return "invalid_output"
	default:
		return "upstream"
	}
}
