package model

import (
	"fmt"
	"strings"
)

// EntityType selects which vector index a search runs against
type EntityType string

const (
	EntityHospital EntityType = "hospital"
	EntityDoctor   EntityType = "doctor"
)

// ParseEntityType normalizes s and reports whether it names a known entity type
func ParseEntityType(s string) (EntityType, bool) {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Valid reports whether t is hospital or doctor
func (t EntityType) Valid() bool {
	return t == EntityHospital || t == EntityDoctor
}

// Plural returns the display plural ("hospitals", "doctors")
func (t EntityType) Plural() string {
	return string(t) + "s"
}

// Opposite returns the other entity type, used for cross-entity pivots
func (t EntityType) Opposite() EntityType {
	if t == EntityDoctor {
		return EntityHospital
	}
	return EntityDoctor
}

// FilterSet represents optional structured constraints extracted from a query.
// Absent fields are nil and impose no constraint.
type FilterSet struct {
	Specialty     *string  `json:"specialty,omitempty"`
	Country       *string  `json:"country,omitempty"`
	City          *string  `json:"city,omitempty"`
	MinExperience *int     `json:"minExperience,omitempty"`
	IsHalal       *bool    `json:"isHalal,omitempty"`
	MinRating     *float64 `json:"minRating,omitempty"`
}

// Validate checks declared ranges
func (f FilterSet) Validate() error {
	if f.MinExperience != nil && *f.MinExperience < 0 {
		return fmt.Errorf("minExperience must be >= 0, got %d", *f.MinExperience)
	}
	if f.MinRating != nil && (*f.MinRating < 1 || *f.MinRating > 5) {
		return fmt.Errorf("minRating must be between 1 and 5, got %v", *f.MinRating)
	}
	return nil
}

// IsEmpty reports whether no constraint is set
func (f FilterSet) IsEmpty() bool {
	return f.Specialty == nil && f.Country == nil && f.City == nil &&
		f.MinExperience == nil && f.IsHalal == nil && f.MinRating == nil
}

// Merge overlays the non-nil fields of override onto f
func (f FilterSet) Merge(override *FilterSet) FilterSet {
	if override == nil {
		return f
	}
	out := f
	if override.Specialty != nil {
		out.Specialty = override.Specialty
	}
	if override.Country != nil {
		out.Country = override.Country
	}
	if override.City != nil {
		out.City = override.City
	}
	if override.MinExperience != nil {
		out.MinExperience = override.MinExperience
	}
	if override.IsHalal != nil {
		out.IsHalal = override.IsHalal
	}
	if override.MinRating != nil {
		out.MinRating = override.MinRating
	}
	return out
}

// ActionItem is a suggested follow-up prompt, itself a seed for a new search
type ActionItem struct {
	Text       string     `json:"text"`
	EntityType EntityType `json:"entityType"`
	QueryText  string     `json:"queryText"`
	Filters    FilterSet  `json:"filters"`
}

// Intent sources
const (
	IntentSourceLLM   = "llm"
	IntentSourceRules = "rules"
)

// SearchIntent represents the structured interpretation of a free-text query
type SearchIntent struct {
	ResponseText     string       `json:"responseText"`
	EntityType       EntityType   `json:"entityType"`
	QueryText        string       `json:"queryText"`
	Filters          FilterSet    `json:"filters"`
	SuggestedActions []ActionItem `json:"suggestedActions"`
	Source           string       `json:"source,omitempty"`
}

// ResultSummary identifies a previously shown result
type ResultSummary struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type EntityType `json:"type,omitempty"`
}

// PriorContext carries the previous turn of a conversation
type PriorContext struct {
	PreviousQuery   string          `json:"previousQuery,omitempty"`
	PreviousResults []ResultSummary `json:"previousResults,omitempty"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to i
func IntPtr(i int) *int { return &i }

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool { return &b }

// Float64Ptr returns a pointer to f
func Float64Ptr(f float64) *float64 { return &f }
