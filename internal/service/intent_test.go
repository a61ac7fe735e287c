package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsearch/internal/logger"
	"medsearch/internal/model"
)

const validLLMReply = `Sure! Here is the intent:
{
  "responseText": "Here are cardiologists in Singapore.",
  "entityType": "doctor",
  "queryText": "cardiologist heart specialist Singapore",
  "filters": {"specialty": "Cardiology", "country": "singapore", "isHalal": false, "minExperience": 9.6},
  "suggestedActions": [
    {"text": "Show more cardiologists in Singapore", "entityType": "doctor", "queryText": "cardiologist Singapore", "filters": {"specialty": "cardiology", "country": "Singapore"}},
    {"text": "Find hospitals with cardiology in Singapore", "entityType": "hospital", "queryText": "cardiology hospital Singapore"},
    {"text": "Browse all hospitals in Singapore", "entityType": "hospital", "filters": null}
  ]
}`

func newUnderstanding(t *testing.T, f *fakeProvider) *QueryUnderstanding {
	t.Helper()
	log := logger.NewTestLogger(t)
	return NewQueryUnderstanding(NewLLMClassifier(newFakeClient(t, f), log), NewRuleClassifier(), log)
}

func TestLLMClassifier_ParsesAndCanonicalizes(t *testing.T) {
	f := &fakeProvider{chatReply: validLLMReply}
	intent := newUnderstanding(t, f).Understand(context.Background(), "Find me a cardiologist in Singapore", nil)

	assert.Equal(t, model.IntentSourceLLM, intent.Source)
	assert.Equal(t, model.EntityDoctor, intent.EntityType)
	assert.Equal(t, "cardiologist heart specialist Singapore", intent.QueryText)
	assert.Equal(t, "cardiology", *intent.Filters.Specialty)
	assert.Equal(t, "Singapore", *intent.Filters.Country)
	assert.Nil(t, intent.Filters.IsHalal)
	require.NotNil(t, intent.Filters.MinExperience)
	assert.Equal(t, 10, *intent.Filters.MinExperience)

	require.Len(t, intent.SuggestedActions, 3)
	assert.Equal(t, "Browse all hospitals in Singapore", intent.SuggestedActions[2].QueryText)
	assert.True(t, intent.SuggestedActions[2].Filters.IsEmpty())

	require.Len(t, f.chatRequests, 1)
	req := f.chatRequests[0]
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
	assert.Equal(t, "system", req.Messages[0].Role)
}

func TestQueryUnderstanding_FallsBackOnBadOutput(t *testing.T) {
	twoActions := strings.Replace(validLLMReply,
		`,
    {"text": "Browse all hospitals in Singapore", "entityType": "hospital", "filters": null}`, "", 1)

	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{name: "not json", provider: &fakeProvider{chatReply: "I cannot help with that."}},
		{name: "truncated json", provider: &fakeProvider{chatReply: `{"responseText": "Here", "entityType": "doc`}},
		{name: "two actions", provider: &fakeProvider{chatReply: twoActions}},
		{name: "unknown entity", provider: &fakeProvider{chatReply: strings.Replace(validLLMReply, `"entityType": "doctor",
  "queryText"`, `"entityType": "nurse",
  "queryText"`, 1)}},
		{name: "experience out of range", provider: &fakeProvider{chatReply: strings.Replace(validLLMReply, `"minExperience": 9.6`, `"minExperience": 1e30`, 1)}},
		{name: "upstream 500", provider: &fakeProvider{chatStatus: http.StatusInternalServerError}},
	}

	want := NewRuleClassifier().Understand("Find me a cardiologist in Singapore")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := newUnderstanding(t, tt.provider).Understand(context.Background(), "Find me a cardiologist in Singapore", nil)
			assert.Equal(t, want, intent)
		})
	}
}

func TestCanonicalFilters_ExperienceBounds(t *testing.T) {
	tests := []struct {
		in   float64
		want *int
	}{
		{0, model.IntPtr(0)},
		{99.6, model.IntPtr(100)},
		{100.4, nil},
		{1e30, nil},
		{-1, nil},
	}
	for _, tt := range tests {
		in := tt.in
		f := canonicalFilters(&llmFilters{MinExperience: &in})
		assert.Equal(t, tt.want, f.MinExperience, "minExperience %v", tt.in)
		assert.NoError(t, f.Validate())
	}
}

func TestQueryUnderstanding_NoPrimary(t *testing.T) {
	q := NewQueryUnderstanding(nil, nil, logger.NewNoOpLogger())

	intent := q.Understand(context.Background(), "halal hospitals in Penang", nil)

	assert.Equal(t, model.IntentSourceRules, intent.Source)
	assert.Equal(t, model.EntityHospital, intent.EntityType)
	assert.True(t, *intent.Filters.IsHalal)
	assert.Len(t, intent.SuggestedActions, 3)
}

func TestQueryUnderstanding_Stream(t *testing.T) {
	half := len(validLLMReply) / 2
	f := &fakeProvider{streamParts: []string{validLLMReply[:half], validLLMReply[half:]}}
	q := newUnderstanding(t, f)

	var content strings.Builder
	intent := q.UnderstandStream(context.Background(), "cardiologist in Singapore", nil, func(thinking, c string) error {
		content.WriteString(c)
		return nil
	})

	assert.Equal(t, model.IntentSourceLLM, intent.Source)
	assert.Equal(t, validLLMReply, content.String())
}

func TestQueryUnderstanding_StreamCallbackErrorFallsBack(t *testing.T) {
	f := &fakeProvider{streamParts: []string{validLLMReply}}
	q := newUnderstanding(t, f)

	intent := q.UnderstandStream(context.Background(), "cardiologist in Singapore", nil, func(string, string) error {
		return errors.New("client went away")
	})

	assert.Equal(t, model.IntentSourceRules, intent.Source)
}

func TestLLMClassifier_PriorContextInPrompt(t *testing.T) {
	f := &fakeProvider{chatReply: validLLMReply}
	q := newUnderstanding(t, f)

	prior := &model.PriorContext{
		PreviousQuery:   "heart hospitals in Bangkok",
		PreviousResults: []model.ResultSummary{{ID: "h1", Name: "Bumrungrad"}},
	}
	q.Understand(context.Background(), "doctors there", prior)

	require.Len(t, f.chatRequests, 1)
	user := f.chatRequests[0].Messages[1].Content
	assert.Contains(t, user, "Previous query: heart hospitals in Bangkok")
	assert.Contains(t, user, "Bumrungrad")
	assert.Contains(t, user, "Message: doctors there")
}

func TestFallbackReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "disabled"},
		{ErrAIDisabled, "disabled"},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{errInvalidLLMOutput, "invalid_output"},
		{errors.New("connection reset"), "upstream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fallbackReason(tt.err))
	}
}
