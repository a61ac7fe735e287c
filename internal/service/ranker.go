package service

import (
	"sort"
	"strings"

	"medsearch/internal/model"
	"medsearch/internal/utils"
)

// Match reason constants
const (
	ReasonSpecialtyMatch = "Specialty match"
	ReasonLocationMatch  = "Location match"
	ReasonHalalFriendly  = "Halal friendly"
	ReasonExperienced    = "Experienced"
	ReasonHighlyRated    = "Highly rated"
	ReasonStrongSemantic = "Strong semantic match"
	ReasonGeneralMatch   = "General match"
)

const (
	highRating         = 4.5
	strongSimilarity   = 80
	maxRating          = 5.0
	similarityMaxScale = 100.0
)

// Ranker handles ranking and scoring of search results
type Ranker struct {
	weightSimilarity float64
	weightRating     float64
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weightSimilarity, weightRating float64) *Ranker {
	return &Ranker{
		weightSimilarity: weightSimilarity,
		weightRating:     weightRating,
	}
}

// RankResults scores results in place and stable-sorts them by score
// descending. With the default weights (1, 0) index order is preserved.
func (r *Ranker) RankResults(results []model.SearchResult, filters model.FilterSet) []model.SearchResult {
	for _, res := range results {
		rating := res.RatingValue()
		if rating < 0 {
			rating = 0
		}
		if rating > maxRating {
			rating = maxRating
		}

		score := r.weightSimilarity*float64(res.SimilarityPercent())/similarityMaxScale +
			r.weightRating*rating/maxRating

		res.SetRanking(score, r.generateMatchedReasons(res, filters))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RankingScore() > results[j].RankingScore()
	})

	return results
}

// generateMatchedReasons generates human-readable reasons for why a result matched
func (r *Ranker) generateMatchedReasons(res model.SearchResult, f model.FilterSet) []string {
	reasons := []string{}

	var specialties []string
	var location string
	switch v := res.(type) {
	case *model.HospitalResult:
		specialties = v.Specialties
		location = v.Location
	case *model.DoctorResult:
		specialties = []string{v.Specialty}
		location = v.Location
	}

	if f.Specialty != nil && specialtyMatches(*f.Specialty, specialties) {
		reasons = append(reasons, ReasonSpecialtyMatch)
	}

	if (f.City != nil && containsFold(location, *f.City)) ||
		(f.City == nil && f.Country != nil && containsFold(location, *f.Country)) {
		reasons = append(reasons, ReasonLocationMatch)
	}

	if d, ok := res.(*model.DoctorResult); ok && f.MinExperience != nil && d.ExperienceYears >= *f.MinExperience {
		reasons = append(reasons, ReasonExperienced)
	}
	if h, ok := res.(*model.HospitalResult); ok && f.IsHalal != nil && *f.IsHalal && h.IsHalal {
		reasons = append(reasons, ReasonHalalFriendly)
	}

	if res.RatingValue() >= highRating {
		reasons = append(reasons, ReasonHighlyRated)
	}
	if res.SimilarityPercent() >= strongSimilarity {
		reasons = append(reasons, ReasonStrongSemantic)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}
	return reasons
}

func specialtyMatches(want string, have []string) bool {
	for _, h := range have {
		if containsFold(h, want) {
			return true
		}
		if canonical, ok := utils.NormalizeSpecialty(h); ok && strings.EqualFold(canonical, want) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return substr != "" && strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
