package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"medsearch/internal/model"
)

// Literal defaults used when a match lacks the underlying data
const (
	DefaultSpecialty  = "General Practice"
	DefaultHospital   = "Independent Practice"
	DefaultLocation   = "Multiple Locations"
	ContactForPricing = "Contact for pricing"
)

const shownSpecialties = 2

// NormalizeMatches converts raw rows of one entity type into canonical results
func NormalizeMatches(entityType model.EntityType, raws []model.RawMatch) []model.SearchResult {
	out := make([]model.SearchResult, 0, len(raws))
	for _, raw := range raws {
		if entityType == model.EntityDoctor {
			out = append(out, NormalizeDoctor(raw))
		} else {
			out = append(out, NormalizeHospital(raw))
		}
	}
	return out
}

// NormalizeHospital flattens a hospital row. It never fails; missing data
// degrades to empty slices, zero values or literal defaults.
func NormalizeHospital(raw model.RawMatch) *model.HospitalResult {
	h := model.DecodeHospitalMatch(raw)

	specialties, more := distinctSpecialties(h.Services)

	facilities := make([]string, 0, len(h.Facilities))
	for _, f := range h.Facilities {
		if f.Name != "" {
			facilities = append(facilities, f.Name)
		}
	}

	return &model.HospitalResult{
		Type:             model.EntityHospital,
		ID:               h.ID,
		Name:             h.Name,
		Description:      h.Description,
		Location:         joinLocation(h.City, h.Country),
		City:             h.City,
		Country:          h.Country,
		Address:          h.Address,
		ImageURL:         h.ImageURL,
		Rating:           h.Rating,
		ReviewCount:      h.ReviewCount,
		IsHalal:          h.IsHalal,
		Specialties:      specialties,
		MoreSpecialties:  more,
		PriceRange:       priceRange(h.Services),
		DoctorsAvailable: nonNegative(h.DoctorsAvailable),
		Facilities:       facilities,
		Similarity:       similarityPercent(h.Similarity),
	}
}

// NormalizeDoctor flattens a doctor row. It never fails.
func NormalizeDoctor(raw model.RawMatch) *model.DoctorResult {
	d := model.DecodeDoctorMatch(raw)

	specialty := DefaultSpecialty
	if svc := primaryService(d.Services); svc != nil {
		switch {
		case svc.Name != "":
			specialty = svc.Name
		case svc.Category != "":
			specialty = svc.Category
		}
	}

	hospital, location := DefaultHospital, DefaultLocation
	if aff := primaryAffiliation(d.Hospitals); aff != nil {
		if aff.Name != "" {
			hospital = aff.Name
		}
		if loc := joinLocation(aff.City, aff.Country); loc != "" {
			location = loc
		}
	}

	certs := make([]string, 0, len(d.Certifications))
	for _, c := range d.Certifications {
		if c.Name != "" {
			certs = append(certs, c.Name)
		}
	}

	result := &model.DoctorResult{
		Type:            model.EntityDoctor,
		ID:              d.ID,
		Name:            d.Name,
		Title:           d.Title,
		Bio:             d.Bio,
		ImageURL:        d.ImageURL,
		Specialty:       specialty,
		Hospital:        hospital,
		Location:        location,
		Experience:      fmt.Sprintf("%d Years", d.ExperienceYears),
		ExperienceYears: d.ExperienceYears,
		Rating:          d.Rating,
		ReviewCount:     d.ReviewCount,
		Languages:       d.Languages,
		Certifications:  certs,
		Similarity:      similarityPercent(d.Similarity),
	}
	if d.ConsultationFee != nil && *d.ConsultationFee > 0 {
		result.ConsultationFee = formatPrice(*d.ConsultationFee)
	}
	return result
}

// distinctSpecialties returns the first two distinct non-empty service
// categories in encounter order and how many more exist
func distinctSpecialties(services []model.ServiceItem) ([]string, int) {
	seen := make(map[string]struct{}, len(services))
	var all []string
	for _, s := range services {
		if s.Category == "" {
			continue
		}
		key := strings.ToLower(s.Category)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		all = append(all, s.Category)
	}

	if len(all) <= shownSpecialties {
		if all == nil {
			all = []string{}
		}
		return all, 0
	}
	return all[:shownSpecialties], len(all) - shownSpecialties
}

// priceRange formats the minimum positive price over available services
func priceRange(services []model.ServiceItem) string {
	lowest := math.Inf(1)
	for _, s := range services {
		if !s.IsAvailable || s.Price == nil || *s.Price <= 0 {
			continue
		}
		if *s.Price < lowest {
			lowest = *s.Price
		}
	}
	if math.IsInf(lowest, 1) {
		return ContactForPricing
	}
	return "Starting from " + formatPrice(lowest)
}

func formatPrice(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func primaryService(items []model.ServiceItem) *model.ServiceItem {
	for i := range items {
		if items[i].IsPrimary {
			return &items[i]
		}
	}
	if len(items) > 0 {
		return &items[0]
	}
	return nil
}

func primaryAffiliation(items []model.AffiliationItem) *model.AffiliationItem {
	for i := range items {
		if items[i].IsPrimary {
			return &items[i]
		}
	}
	if len(items) > 0 {
		return &items[0]
	}
	return nil
}

// joinLocation drops empty parts and joins the rest with ", "
func joinLocation(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// similarityPercent maps a 0..1 similarity to a rounded 0..100 integer
func similarityPercent(sim float64) int {
	if math.IsNaN(sim) {
		return 0
	}
	p := int(math.Round(sim * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
