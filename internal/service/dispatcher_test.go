package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsearch/internal/config"
	"medsearch/internal/logger"
	"medsearch/internal/model"
)

type stubEmbedder struct {
	calls int
	texts []string
	vec   []float32
	err   error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	s.texts = append(s.texts, text)
	if s.err != nil {
		return nil, s.err
	}
	if s.vec == nil {
		return []float32{0.25, 0.5, 0.75}, nil
	}
	return s.vec, nil
}

type stubIndex struct {
	hospitalCalls int
	doctorCalls   int
	params        model.MatchParams
	embedding     []float32
	rows          []model.RawMatch
	err           error
}

func (s *stubIndex) MatchHospitals(_ context.Context, e []float32, p model.MatchParams) ([]model.RawMatch, error) {
	s.hospitalCalls++
	s.embedding, s.params = e, p
	return s.rows, s.err
}

func (s *stubIndex) MatchDoctors(_ context.Context, e []float32, p model.MatchParams) ([]model.RawMatch, error) {
	s.doctorCalls++
	s.embedding, s.params = e, p
	return s.rows, s.err
}

func newTestDispatcher(t *testing.T, e Embedder, idx VectorIndex) *Dispatcher {
	t.Helper()
	cfg := config.SearchConfig{DefaultThreshold: 0.5, DefaultLimit: 12, MaxLimit: 50}
	return NewDispatcher(e, idx, cfg, logger.NewTestLogger(t))
}

func TestDispatcher_RoutesByEntityType(t *testing.T) {
	emb := &stubEmbedder{}
	idx := &stubIndex{rows: []model.RawMatch{{"id": "1"}}}
	d := newTestDispatcher(t, emb, idx)

	_, err := d.Search(context.Background(), &model.SearchIntent{EntityType: model.EntityDoctor, QueryText: "heart"}, model.MatchOptions{})
	require.NoError(t, err)
	_, err = d.Search(context.Background(), &model.SearchIntent{EntityType: model.EntityHospital, QueryText: "heart"}, model.MatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, idx.doctorCalls)
	assert.Equal(t, 1, idx.hospitalCalls)
	assert.Equal(t, []string{"heart", "heart"}, emb.texts)
	assert.Equal(t, []float32{0.25, 0.5, 0.75}, idx.embedding)
}

func TestDispatcher_InvalidEntityTypeSkipsEmbedding(t *testing.T) {
	emb := &stubEmbedder{}
	idx := &stubIndex{}
	d := newTestDispatcher(t, emb, idx)

	_, err := d.Search(context.Background(), &model.SearchIntent{EntityType: "nurse", QueryText: "x"}, model.MatchOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, MsgInvalidSearchType, reqErr.Message)
	assert.Equal(t, 0, emb.calls)
	assert.Equal(t, 0, idx.doctorCalls+idx.hospitalCalls)
}

func TestDispatcher_InvalidFilterRange(t *testing.T) {
	emb := &stubEmbedder{}
	d := newTestDispatcher(t, emb, &stubIndex{})

	intent := &model.SearchIntent{
		EntityType: model.EntityHospital,
		QueryText:  "x",
		Filters:    model.FilterSet{MinRating: model.Float64Ptr(9)},
	}
	_, err := d.Search(context.Background(), intent, model.MatchOptions{})

	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 0, emb.calls)
}

func TestDispatcher_Params(t *testing.T) {
	d := newTestDispatcher(t, &stubEmbedder{}, &stubIndex{})

	tests := []struct {
		name          string
		opts          model.MatchOptions
		wantThreshold float64
		wantCount     int
	}{
		{"defaults", model.MatchOptions{}, 0.5, 12},
		{"explicit", model.MatchOptions{Threshold: model.Float64Ptr(0.7), Limit: model.IntPtr(5)}, 0.7, 5},
		{"threshold out of range", model.MatchOptions{Threshold: model.Float64Ptr(1.5)}, 0.5, 12},
		{"negative threshold", model.MatchOptions{Threshold: model.Float64Ptr(-0.1)}, 0.5, 12},
		{"limit capped", model.MatchOptions{Limit: model.IntPtr(1000)}, 0.5, 50},
		{"zero limit", model.MatchOptions{Limit: model.IntPtr(0)}, 0.5, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := d.Params(model.FilterSet{}, tt.opts)
			assert.Equal(t, tt.wantThreshold, p.Threshold)
			assert.Equal(t, tt.wantCount, p.Count)
		})
	}
}

func TestDispatcher_PassesFilters(t *testing.T) {
	idx := &stubIndex{}
	d := newTestDispatcher(t, &stubEmbedder{}, idx)

	filters := model.FilterSet{
		Specialty:     model.StringPtr("cardiology"),
		Country:       model.StringPtr("Malaysia"),
		MinExperience: model.IntPtr(10),
	}
	_, err := d.Search(context.Background(), &model.SearchIntent{EntityType: model.EntityDoctor, QueryText: "q", Filters: filters}, model.MatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, filters, idx.params.Filters)
}

func TestDispatcher_Errors(t *testing.T) {
	t.Run("embedding", func(t *testing.T) {
		idx := &stubIndex{}
		d := newTestDispatcher(t, &stubEmbedder{err: errors.New("429 too many requests")}, idx)

		_, err := d.Search(context.Background(), &model.SearchIntent{EntityType: model.EntityDoctor, QueryText: "q"}, model.MatchOptions{})

		assert.ErrorIs(t, err, ErrEmbeddingFailure)
		assert.Contains(t, err.Error(), "429")
		assert.Equal(t, 0, idx.doctorCalls)
	})

	t.Run("index", func(t *testing.T) {
		d := newTestDispatcher(t, &stubEmbedder{}, &stubIndex{err: errors.New("relation does not exist")})

		_, err := d.Search(context.Background(), &model.SearchIntent{EntityType: model.EntityHospital, QueryText: "q"}, model.MatchOptions{})

		assert.ErrorIs(t, err, ErrIndexQueryFailure)
		assert.NotErrorIs(t, err, ErrEmbeddingFailure)
		assert.Contains(t, err.Error(), "relation does not exist")
	})
}

func TestDispatcher_NoMatchesIsEmptySlice(t *testing.T) {
	d := newTestDispatcher(t, &stubEmbedder{}, &stubIndex{})

	rows, err := d.Search(context.Background(), &model.SearchIntent{EntityType: model.EntityHospital, QueryText: "q"}, model.MatchOptions{})

	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
