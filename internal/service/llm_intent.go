package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"medsearch/internal/logger"
	"medsearch/internal/model"
	"medsearch/internal/utils"
)

var errInvalidLLMOutput = errors.New("invalid LLM output")

// maxExperienceYears bounds minExperience before the int conversion
const maxExperienceYears = 100

const intentSchemaJSON = `{
  "type": "object",
  "required": ["responseText", "entityType", "queryText", "suggestedActions"],
  "properties": {
    "responseText": {"type": "string"},
    "entityType": {"type": "string", "enum": ["hospital", "doctor"]},
    "queryText": {"type": "string", "minLength": 1},
    "filters": {"$ref": "#/definitions/filters"},
    "suggestedActions": {
      "type": "array",
      "minItems": 3,
      "maxItems": 3,
      "items": {
        "type": "object",
        "required": ["text", "entityType"],
        "properties": {
          "text": {"type": "string", "minLength": 1},
          "entityType": {"type": "string", "enum": ["hospital", "doctor"]},
          "queryText": {"type": "string"},
          "filters": {"$ref": "#/definitions/filters"}
        }
      }
    }
  },
  "definitions": {
    "filters": {
      "type": ["object", "null"],
      "properties": {
        "specialty": {"type": ["string", "null"]},
        "country": {"type": ["string", "null"]},
        "city": {"type": ["string", "null"]},
        "minExperience": {"type": ["number", "null"], "minimum": 0, "maximum": 100},
        "isHalal": {"type": ["boolean", "null"]},
        "minRating": {"type": ["number", "null"], "minimum": 1, "maximum": 5}
      }
    }
  }
}`

var intentSchema = mustCompileSchema(intentSchemaJSON)

func mustCompileSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile intent schema: %v", err))
	}
	return s
}

// LLMClassifier asks a chat model to classify the query
type LLMClassifier struct {
	client       ChatClient
	systemPrompt string
	log          logger.Logger
}

// NewLLMClassifier creates the LLM-backed classifier
func NewLLMClassifier(client ChatClient, log logger.Logger) *LLMClassifier {
	return &LLMClassifier{
		client:       client,
		systemPrompt: buildSystemPrompt(),
		log:          log.With(map[string]interface{}{"component": "llm_intent"}),
	}
}

func buildSystemPrompt() string {
	return `You are the search assistant of a healthcare directory. Classify the user's message as a hospital search or a doctor search and extract structured filters.

Respond ONLY with a JSON object of this shape:
{
  "responseText": "one short sentence acknowledging the request",
  "entityType": "hospital" | "doctor",
  "queryText": "concise search text optimized for semantic search",
  "filters": {"specialty": string, "country": string, "city": string, "minExperience": number, "isHalal": boolean, "minRating": number},
  "suggestedActions": [
    {"text": "follow-up prompt", "entityType": "hospital" | "doctor", "queryText": "search text", "filters": {...}}
  ]
}

Rules:
- specialty must be one of: ` + strings.Join(utils.SpecialtyNames(), ", ") + `
- country must be one of: ` + strings.Join(utils.CountryNames(), ", ") + `
- minExperience is years (0 to 100); use 10 for "experienced", "senior" or "expert"
- minRating is between 1 and 5
- isHalal is true only when halal or Muslim-friendly care is requested
- omit any filter that is not mentioned; never output null
- suggestedActions must contain exactly 3 items: more of the same, a pivot between hospitals and doctors, and a broader browse

Example:
Message: "Find me a cardiologist in Singapore"
Response: {"responseText": "Here are cardiologists in Singapore.", "entityType": "doctor", "queryText": "cardiologist heart specialist Singapore", "filters": {"specialty": "cardiology", "country": "Singapore"}, "suggestedActions": [{"text": "Show more cardiologists in Singapore", "entityType": "doctor", "queryText": "cardiologist Singapore", "filters": {"specialty": "cardiology", "country": "Singapore"}}, {"text": "Find hospitals with cardiology in Singapore", "entityType": "hospital", "queryText": "cardiology hospital Singapore", "filters": {"specialty": "cardiology", "country": "Singapore"}}, {"text": "Browse all hospitals in Singapore", "entityType": "hospital", "queryText": "hospitals in Singapore", "filters": {"country": "Singapore"}}]}`
}

func (c *LLMClassifier) buildRequest(text string, prior *model.PriorContext) ChatCompletionRequest {
	var user strings.Builder
	if prior != nil {
		if prior.PreviousQuery != "" {
			fmt.Fprintf(&user, "Previous query: %s\n", prior.PreviousQuery)
		}
		if len(prior.PreviousResults) > 0 {
			names := make([]string, 0, len(prior.PreviousResults))
			for _, r := range prior.PreviousResults {
				if r.Name != "" {
					names = append(names, r.Name)
				}
			}
			if len(names) > 0 {
				fmt.Fprintf(&user, "Previously shown results: %s\n", strings.Join(names, "; "))
			}
		}
		if user.Len() > 0 {
			user.WriteString("\n")
		}
	}
	fmt.Fprintf(&user, "Message: %s", strings.TrimSpace(text))

	return ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: user.String()},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}
}

// Classify implements IntentClassifier
func (c *LLMClassifier) Classify(ctx context.Context, text string, prior *model.PriorContext) (*model.SearchIntent, error) {
	if !c.client.IsEnabled() {
		return nil, fmt.Errorf("%w: %w", ErrIntentParsingFailed, ErrAIDisabled)
	}

	resp, err := c.client.ChatCompletion(ctx, c.buildRequest(text, prior))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntentParsingFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: %w: no choices in response", ErrIntentParsingFailed, errInvalidLLMOutput)
	}

	return c.parse(resp.Choices[0].Message.Content)
}

// ClassifyStream implements StreamingClassifier
func (c *LLMClassifier) ClassifyStream(ctx context.Context, text string, prior *model.PriorContext, onChunk func(thinking, content string) error) (*model.SearchIntent, error) {
	if !c.client.IsEnabled() {
		return nil, fmt.Errorf("%w: %w", ErrIntentParsingFailed, ErrAIDisabled)
	}

	var content strings.Builder
	err := c.client.ChatCompletionStream(ctx, c.buildRequest(text, prior), func(chunk *StreamChunk) error {
		if chunk.ThinkingContent != "" && onChunk != nil {
			if err := onChunk(chunk.ThinkingContent, ""); err != nil {
				return err
			}
		}
		if chunk.Content != "" {
			content.WriteString(chunk.Content)
			if onChunk != nil {
				if err := onChunk("", chunk.Content); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: streaming error: %w", ErrIntentParsingFailed, err)
	}

	return c.parse(content.String())
}

type llmFilters struct {
	Specialty     *string  `json:"specialty"`
	Country       *string  `json:"country"`
	City          *string  `json:"city"`
	MinExperience *float64 `json:"minExperience"`
	IsHalal       *bool    `json:"isHalal"`
	MinRating     *float64 `json:"minRating"`
}

type llmAction struct {
	Text       string      `json:"text"`
	EntityType string      `json:"entityType"`
	QueryText  string      `json:"queryText"`
	Filters    *llmFilters `json:"filters"`
}

type llmIntent struct {
	ResponseText     string      `json:"responseText"`
	EntityType       string      `json:"entityType"`
	QueryText        string      `json:"queryText"`
	Filters          *llmFilters `json:"filters"`
	SuggestedActions []llmAction `json:"suggestedActions"`
}

// parse extracts, validates and canonicalizes the model reply
func (c *LLMClassifier) parse(content string) (*model.SearchIntent, error) {
	var doc interface{}
	if err := utils.DecodeLLMJSON(content, &doc); err != nil {
		c.log.Debug("unparseable LLM reply", map[string]interface{}{"content": truncate(content, 200)})
		return nil, fmt.Errorf("%w: %w: %v", ErrIntentParsingFailed, errInvalidLLMOutput, err)
	}

	result, err := intentSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrIntentParsingFailed, errInvalidLLMOutput, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("%w: %w: %v", ErrIntentParsingFailed, errInvalidLLMOutput, errs)
	}

	// doc is schema-valid, so the typed decode cannot lose required fields
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntentParsingFailed, err)
	}
	var out llmIntent
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrIntentParsingFailed, errInvalidLLMOutput, err)
	}

	intent := &model.SearchIntent{
		ResponseText:     strings.TrimSpace(out.ResponseText),
		EntityType:       model.EntityType(out.EntityType),
		QueryText:        strings.TrimSpace(out.QueryText),
		Filters:          canonicalFilters(out.Filters),
		SuggestedActions: make([]model.ActionItem, 0, len(out.SuggestedActions)),
		Source:           model.IntentSourceLLM,
	}
	for _, a := range out.SuggestedActions {
		item := model.ActionItem{
			Text:       strings.TrimSpace(a.Text),
			EntityType: model.EntityType(a.EntityType),
			QueryText:  strings.TrimSpace(a.QueryText),
			Filters:    canonicalFilters(a.Filters),
		}
		if item.QueryText == "" {
			item.QueryText = item.Text
		}
		intent.SuggestedActions = append(intent.SuggestedActions, item)
	}
	return intent, nil
}

// canonicalFilters maps model output onto the fixed vocabularies. Unknown
// specialties and countries are dropped, as is isHalal=false, so that a
// filter never excludes results the user did not ask to exclude.
func canonicalFilters(in *llmFilters) model.FilterSet {
	var f model.FilterSet
	if in == nil {
		return f
	}

	if in.Specialty != nil {
		if sp, ok := utils.NormalizeSpecialty(*in.Specialty); ok {
			f.Specialty = model.StringPtr(sp)
		}
	}
	if in.Country != nil {
		if c, ok := utils.NormalizeCountry(*in.Country); ok {
			f.Country = model.StringPtr(c)
		}
	}
	if in.City != nil {
		if city, ok := utils.NormalizeCity(*in.City); ok {
			f = withCity(f, city)
		} else if name := strings.TrimSpace(*in.City); name != "" &&
			(f.Country == nil || !strings.EqualFold(name, *f.Country)) {
			f.City = model.StringPtr(name)
		}
	}
	if in.MinExperience != nil && *in.MinExperience >= 0 && *in.MinExperience <= maxExperienceYears {
		f.MinExperience = model.IntPtr(int(math.Round(*in.MinExperience)))
	}
	if in.IsHalal != nil && *in.IsHalal {
		f.IsHalal = model.BoolPtr(true)
	}
	if in.MinRating != nil && *in.MinRating >= 1 && *in.MinRating <= 5 {
		f.MinRating = model.Float64Ptr(*in.MinRating)
	}
	return f
}
