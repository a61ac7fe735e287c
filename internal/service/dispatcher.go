package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medsearch/internal/config"
	"medsearch/internal/logger"
	"medsearch/internal/model"
)

// VectorIndex is the nearest-neighbour search backend, one function per entity type
type VectorIndex interface {
	MatchHospitals(ctx context.Context, embedding []float32, params model.MatchParams) ([]model.RawMatch, error)
	MatchDoctors(ctx context.Context, embedding []float32, params model.MatchParams) ([]model.RawMatch, error)
}

// Dispatcher embeds the intent's query text and runs the entity-specific
// similarity function
type Dispatcher struct {
	embedder         Embedder
	index            VectorIndex
	defaultThreshold float64
	defaultCount     int
	maxCount         int
	log              logger.Logger
}

// NewDispatcher creates a dispatcher with defaults from cfg
func NewDispatcher(embedder Embedder, index VectorIndex, cfg config.SearchConfig, log logger.Logger) *Dispatcher {
	d := &Dispatcher{
		embedder:         embedder,
		index:            index,
		defaultThreshold: cfg.DefaultThreshold,
		defaultCount:     cfg.DefaultLimit,
		maxCount:         cfg.MaxLimit,
		log:              log.With(map[string]interface{}{"component": "dispatcher"}),
	}
	if d.defaultThreshold < 0 || d.defaultThreshold > 1 {
		d.defaultThreshold = 0.5
	}
	if d.defaultCount <= 0 {
		d.defaultCount = 12
	}
	if d.maxCount < d.defaultCount {
		d.maxCount = d.defaultCount
	}
	return d
}

// Params resolves opts and filters against the defaults
func (d *Dispatcher) Params(filters model.FilterSet, opts model.MatchOptions) model.MatchParams {
	p := model.MatchParams{
		Threshold: d.defaultThreshold,
		Count:     d.defaultCount,
		Filters:   filters,
	}
	if opts.Threshold != nil && *opts.Threshold >= 0 && *opts.Threshold <= 1 {
		p.Threshold = *opts.Threshold
	}
	if opts.Limit != nil && *opts.Limit > 0 {
		p.Count = *opts.Limit
		if p.Count > d.maxCount {
			p.Count = d.maxCount
		}
	}
	return p
}

// Search returns the raw index matches for intent. Zero matches is an empty,
// non-nil slice. Errors are a *RequestError, or wrap ErrEmbeddingFailure or
// ErrIndexQueryFailure.
func (d *Dispatcher) Search(ctx context.Context, intent *model.SearchIntent, opts model.MatchOptions) ([]model.RawMatch, error) {
	if intent == nil || !intent.EntityType.Valid() {
		return nil, invalidRequest(MsgInvalidSearchType)
	}
	if err := intent.Filters.Validate(); err != nil {
		return nil, invalidRequest(err.Error())
	}

	params := d.Params(intent.Filters, opts)

	start := time.Now()
	embedding, err := d.embedder.Embed(ctx, intent.QueryText)
	if err != nil {
		if !errors.Is(err, ErrEmbeddingFailure) {
			err = fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}
	embedMs := time.Since(start).Milliseconds()

	var matches []model.RawMatch
	switch intent.EntityType {
	case model.EntityDoctor:
		matches, err = d.index.MatchDoctors(ctx, embedding, params)
	default:
		matches, err = d.index.MatchHospitals(ctx, embedding, params)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexQueryFailure, err)
	}
	if matches == nil {
		matches = []model.RawMatch{}
	}

	d.log.Debug("vector search finished", map[string]interface{}{
		"entity_type": string(intent.EntityType),
		"threshold":   params.Threshold,
		"count":       params.Count,
		"matches":     len(matches),
		"embed_ms":    embedMs,
		"total_ms":    time.Since(start).Milliseconds(),
	})
	return matches, nil
}
