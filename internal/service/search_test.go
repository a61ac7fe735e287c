package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsearch/internal/logger"
	"medsearch/internal/model"
)

type recordingSearchLog struct {
	mu       sync.Mutex
	entries  []model.SearchLogEntry
	feedback []string
	err      error
}

func (r *recordingSearchLog) LogSearch(_ context.Context, e model.SearchLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func (r *recordingSearchLog) LogFeedback(_ context.Context, searchID, resultID, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedback = append(r.feedback, searchID+"/"+resultID+"/"+action)
	return r.err
}

func newTestSearchService(t *testing.T, emb Embedder, idx VectorIndex, searchLog SearchLogger) *SearchService {
	t.Helper()
	log := logger.NewTestLogger(t)
	svc := NewSearchService(
		NewQueryUnderstanding(nil, NewRuleClassifier(), log),
		newTestDispatcher(t, emb, idx),
		NewRanker(1, 0),
		searchLog,
		log,
	)
	t.Cleanup(svc.Wait)
	return svc
}

func TestSearchService_ExperiencedHeartDoctorsInMalaysia(t *testing.T) {
	emb := &stubEmbedder{}
	idx := &stubIndex{rows: []model.RawMatch{
		{"id": "d1", "name": "Dr. Aminah", "experience_years": 21.0, "similarity": 0.912},
		{"id": "d2", "name": "Dr. Raj", "experience_years": nil, "similarity": 0.655},
	}}
	searchLog := &recordingSearchLog{}
	svc := newTestSearchService(t, emb, idx, searchLog)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{
		Query: "experienced heart doctors in Malaysia",
		Type:  "doctor",
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		d, ok := r.(*model.DoctorResult)
		require.True(t, ok)
		assert.GreaterOrEqual(t, d.ExperienceYears, 0)
		assert.GreaterOrEqual(t, d.Similarity, 0)
		assert.LessOrEqual(t, d.Similarity, 100)
	}
	assert.Equal(t, 91, resp.Results[0].SimilarityPercent())
	assert.Equal(t, []string{"experienced heart doctors in Malaysia"}, emb.texts)

	svc.Wait()
	require.Len(t, searchLog.entries, 1)
	entry := searchLog.entries[0]
	assert.Equal(t, resp.SearchID, entry.SearchID)
	assert.Equal(t, []string{"d1", "d2"}, entry.ReturnedIDs)
	assert.Equal(t, IntentSourceExplicit, entry.IntentSource)
}

func TestSearchService_SearchValidation(t *testing.T) {
	tests := []struct {
		name string
		req  model.SearchRequest
		want string
	}{
		{"missing query", model.SearchRequest{Type: "doctor"}, MsgMissingParameters},
		{"missing type", model.SearchRequest{Query: "x"}, MsgMissingParameters},
		{"bad type", model.SearchRequest{Query: "x", Type: "nurse"}, MsgInvalidSearchType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := &stubEmbedder{}
			svc := newTestSearchService(t, emb, &stubIndex{}, nil)

			_, err := svc.Search(context.Background(), &tt.req)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.want, reqErr.Message)
			assert.Equal(t, 0, emb.calls)
		})
	}
}

func TestSearchService_TypeIsCaseInsensitive(t *testing.T) {
	idx := &stubIndex{}
	svc := newTestSearchService(t, &stubEmbedder{}, idx, nil)

	_, err := svc.Search(context.Background(), &model.SearchRequest{Query: "x", Type: " Hospital "})

	require.NoError(t, err)
	assert.Equal(t, 1, idx.hospitalCalls)
}

func TestSearchService_ChatMergesExplicitFilters(t *testing.T) {
	idx := &stubIndex{}
	svc := newTestSearchService(t, &stubEmbedder{}, idx, nil)

	resp, err := svc.Chat(context.Background(), &model.ChatRequest{
		Message: "cardiologist in Singapore",
		Filters: &model.FilterSet{Country: model.StringPtr("Malaysia"), MinRating: model.Float64Ptr(4)},
		Limit:   model.IntPtr(5),
	})
	require.NoError(t, err)

	assert.Equal(t, model.EntityDoctor, resp.Intent.EntityType)
	assert.Equal(t, 1, idx.doctorCalls)
	assert.Equal(t, "Malaysia", *idx.params.Filters.Country)
	assert.Equal(t, "cardiology", *idx.params.Filters.Specialty)
	assert.Equal(t, 4.0, *idx.params.Filters.MinRating)
	assert.Equal(t, 5, idx.params.Count)
	assert.NotNil(t, resp.Results)
	assert.Equal(t, 0, resp.Count)
}

func TestSearchService_ChatStreamEvents(t *testing.T) {
	svc := newTestSearchService(t, &stubEmbedder{}, &stubIndex{rows: []model.RawMatch{{"id": "h1"}}}, nil)

	var events []string
	resp, err := svc.ChatStream(context.Background(), &model.ChatRequest{Message: "hospitals in Seoul"}, func(event string, _ any) error {
		events = append(events, event)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"parsing", "intent", "searching"}, events)
	assert.Equal(t, 1, resp.Count)
}

func TestSearchService_NoPartialResultsOnFailure(t *testing.T) {
	searchLog := &recordingSearchLog{}
	svc := newTestSearchService(t, &stubEmbedder{}, &stubIndex{
		rows: []model.RawMatch{{"id": "h1"}},
		err:  errors.New("statement timeout"),
	}, searchLog)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{Query: "x", Type: "hospital"})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrIndexQueryFailure)
	svc.Wait()
	assert.Empty(t, searchLog.entries)
}

func TestSearchService_LogFeedback(t *testing.T) {
	searchLog := &recordingSearchLog{}
	svc := newTestSearchService(t, &stubEmbedder{}, &stubIndex{}, searchLog)

	require.NoError(t, svc.LogFeedback(context.Background(), "s1", "d1", model.ActionBook))
	assert.Equal(t, []string{"s1/d1/book"}, searchLog.feedback)

	err := svc.LogFeedback(context.Background(), "s1", "d1", "share")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Len(t, searchLog.feedback, 1)
}

// gatedSearchLog holds LogSearch until release is closed
type gatedSearchLog struct {
	release chan struct{}
	mu      sync.Mutex
	events  []string
}

func (g *gatedSearchLog) LogSearch(ctx context.Context, e model.SearchLogEntry) error {
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, "search:"+e.SearchID)
	return nil
}

func (g *gatedSearchLog) LogFeedback(_ context.Context, searchID, _, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, "feedback:"+searchID)
	return nil
}

func (g *gatedSearchLog) snapshot() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.events...)
}

func TestSearchService_FeedbackWaitsForSearchLog(t *testing.T) {
	searchLog := &gatedSearchLog{release: make(chan struct{})}
	svc := newTestSearchService(t, &stubEmbedder{}, &stubIndex{rows: []model.RawMatch{{"id": "h1"}}}, searchLog)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{Query: "x", Type: "hospital"})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.LogFeedback(context.Background(), resp.SearchID, "h1", model.ActionClick)
	}()

	assert.Never(t, func() bool { return len(searchLog.snapshot()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	close(searchLog.release)

	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"search:" + resp.SearchID, "feedback:" + resp.SearchID}, searchLog.snapshot())
}

func TestSearchService_FeedbackWaitHonoursContext(t *testing.T) {
	searchLog := &gatedSearchLog{release: make(chan struct{})}
	svc := newTestSearchService(t, &stubEmbedder{}, &stubIndex{}, searchLog)
	t.Cleanup(func() { close(searchLog.release) })

	resp, err := svc.Search(context.Background(), &model.SearchRequest{Query: "x", Type: "doctor"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = svc.LogFeedback(ctx, resp.SearchID, "d1", model.ActionBook)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, searchLog.snapshot())
}
