package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"medsearch/internal/model"
	"medsearch/internal/utils"
)

// experiencedMinYears is the minExperience implied by "experienced", "senior" or "expert"
const experiencedMinYears = 10

// topRatedMinRating backs the generic "top-rated" browse action
const topRatedMinRating = 4.0

var (
	doctorPatterns   = wordPatterns(true, "doctor", "specialist", "physician", "surgeon")
	hospitalPatterns = wordPatterns(true, "hospital", "clinic", "medical center", "medical centre", "facility", "facilities")
	halalPatterns    = wordPatterns(true, "halal", "muslim")
	seniorPatterns   = wordPatterns(true, "experienced", "senior", "expert")

	// cardiologist, psychiatrist, pediatrician
	practitionerRe = regexp.MustCompile(`(?i)\b[a-z]+(?:ologist|iatrist|iatrician)s?\b`)
)

func wordPatterns(plural bool, terms ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		out[i] = utils.WordPattern(t, plural)
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// RuleClassifier is the deterministic keyword engine. It never fails and
// makes no network calls; identical text always yields an identical intent.
type RuleClassifier struct{}

// NewRuleClassifier creates the rule-based classifier
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify implements IntentClassifier. The error is always nil.
func (r *RuleClassifier) Classify(_ context.Context, text string, _ *model.PriorContext) (*model.SearchIntent, error) {
	return r.Understand(text), nil
}

// Understand classifies text without a context
func (r *RuleClassifier) Understand(text string) *model.SearchIntent {
	text = strings.TrimSpace(text)

	entity := classifyEntity(text)
	filters := extractFilters(text)

	return &model.SearchIntent{
		ResponseText:     responseText(entity, filters),
		EntityType:       entity,
		QueryText:        text,
		Filters:          filters,
		SuggestedActions: suggestActions(entity, filters),
		Source:           model.IntentSourceRules,
	}
}

// classifyEntity defaults to hospital when neither or both vocabularies match
func classifyEntity(text string) model.EntityType {
	doctor := matchesAny(doctorPatterns, text) || practitionerRe.MatchString(text)
	hospital := matchesAny(hospitalPatterns, text)
	if doctor && !hospital {
		return model.EntityDoctor
	}
	return model.EntityHospital
}

func extractFilters(text string) model.FilterSet {
	var f model.FilterSet

	if sp, ok := utils.DetectSpecialty(text); ok {
		f.Specialty = model.StringPtr(sp)
	}
	if c, ok := utils.DetectCountry(text); ok {
		f.Country = model.StringPtr(c)
	}
	if city, ok := utils.DetectCity(text); ok {
		f = withCity(f, city)
	}
	if matchesAny(halalPatterns, text) {
		f.IsHalal = model.BoolPtr(true)
	}
	if matchesAny(seniorPatterns, text) {
		f.MinExperience = model.IntPtr(experiencedMinYears)
	}
	return f
}

// withCity applies a detected city. The city implies its country when none was
// named; a city in a different country than the named one is ignored, and a
// city-state only sets the country.
func withCity(f model.FilterSet, city utils.City) model.FilterSet {
	if f.Country == nil {
		f.Country = model.StringPtr(city.Country)
	} else if !strings.EqualFold(*f.Country, city.Country) {
		return f
	}
	if !strings.EqualFold(city.Name, *f.Country) {
		f.City = model.StringPtr(city.Name)
	}
	return f
}

func location(f model.FilterSet) string {
	parts := make([]string, 0, 2)
	if f.City != nil {
		parts = append(parts, *f.City)
	}
	if f.Country != nil {
		parts = append(parts, *f.Country)
	}
	return strings.Join(parts, ", ")
}

// describe renders "[specialty ]<entities>[ in <where>]"
func describe(specialty *string, entity model.EntityType, where string) string {
	var b strings.Builder
	if specialty != nil {
		b.WriteString(*specialty)
		b.WriteByte(' ')
	}
	b.WriteString(entity.Plural())
	if where != "" {
		b.WriteString(" in ")
		b.WriteString(where)
	}
	return b.String()
}

func responseText(entity model.EntityType, f model.FilterSet) string {
	var b strings.Builder
	b.WriteString("Searching for ")
	if f.MinExperience != nil {
		b.WriteString("experienced ")
	}
	b.WriteString(describe(f.Specialty, entity, location(f)))
	if f.MinExperience != nil {
		fmt.Fprintf(&b, " with at least %d years of experience", *f.MinExperience)
	}
	if f.IsHalal != nil && *f.IsHalal {
		b.WriteString(" that are halal-friendly")
	}
	b.WriteByte('.')
	return b.String()
}

func suggestActions(entity model.EntityType, f model.FilterSet) []model.ActionItem {
	country := ""
	if f.Country != nil {
		country = *f.Country
	}

	more := describe(f.Specialty, entity, location(f))
	pivot := entity.Opposite()
	pivotText := describe(f.Specialty, pivot, country)

	actions := []model.ActionItem{
		{
			Text:       "Show more " + more,
			EntityType: entity,
			QueryText:  more,
			Filters:    cloneFilters(f),
		},
		{
			Text:       "Find " + pivotText,
			EntityType: pivot,
			QueryText:  pivotText,
			Filters:    model.FilterSet{Specialty: copyString(f.Specialty), Country: copyString(f.Country)},
		},
	}

	switch {
	case country != "" && (entity == model.EntityDoctor || f.Specialty != nil):
		actions = append(actions, model.ActionItem{
			Text:       "Browse all hospitals in " + country,
			EntityType: model.EntityHospital,
			QueryText:  "hospitals in " + country,
			Filters:    model.FilterSet{Country: model.StringPtr(country)},
		})
	case country != "":
		actions = append(actions, model.ActionItem{
			Text:       "Browse top-rated hospitals in " + country,
			EntityType: model.EntityHospital,
			QueryText:  "top-rated hospitals in " + country,
			Filters:    model.FilterSet{Country: model.StringPtr(country), MinRating: model.Float64Ptr(topRatedMinRating)},
		})
	default:
		actions = append(actions, model.ActionItem{
			Text:       "Browse top-rated hospitals",
			EntityType: model.EntityHospital,
			QueryText:  "top-rated hospitals",
			Filters:    model.FilterSet{MinRating: model.Float64Ptr(topRatedMinRating)},
		})
	}
	return actions
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	return model.StringPtr(*s)
}

func cloneFilters(f model.FilterSet) model.FilterSet {
	out := model.FilterSet{
		Specialty: copyString(f.Specialty),
		Country:   copyString(f.Country),
		City:      copyString(f.City),
	}
	if f.MinExperience != nil {
		out.MinExperience = model.IntPtr(*f.MinExperience)
	}
	if f.IsHalal != nil {
		out.IsHalal = model.BoolPtr(*f.IsHalal)
	}
	if f.MinRating != nil {
		out.MinRating = model.Float64Ptr(*f.MinRating)
	}
	return out
}
