package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsearch/internal/model"
)

func TestNormalizeHospital_PriceRange(t *testing.T) {
	tests := []struct {
		name     string
		services any
		want     string
	}{
		{
			name: "minimum of non-null prices",
			services: []any{
				map[string]any{"base_price": 100.0},
				map[string]any{"base_price": nil},
				map[string]any{"base_price": 50.0},
			},
			want: "Starting from $50",
		},
		{
			name:     "thousands separator",
			services: []any{map[string]any{"base_price": 1250.0}, map[string]any{"price": 3000.0}},
			want:     "Starting from $1,250",
		},
		{
			name:     "unavailable services skipped",
			services: []any{map[string]any{"base_price": 10.0, "is_available": false}, map[string]any{"base_price": 80.0}},
			want:     "Starting from $80",
		},
		{name: "empty", services: []any{}, want: ContactForPricing},
		{name: "all null", services: []any{map[string]any{"base_price": nil}, map[string]any{}}, want: ContactForPricing},
		{name: "missing", services: nil, want: ContactForPricing},
		{name: "malformed", services: "oops", want: ContactForPricing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := model.RawMatch{"id": "h1", "name": "Gleneagles"}
			if tt.services != nil {
				raw["services"] = tt.services
			}
			assert.Equal(t, tt.want, NormalizeHospital(raw).PriceRange)
		})
	}
}

func TestNormalizeHospital_SpecialtiesCap(t *testing.T) {
	raw := model.RawMatch{
		"services": []any{
			map[string]any{"category": "Cardiology"},
			map[string]any{"category": "Oncology"},
			map[string]any{"category": "cardiology"},
			map[string]any{"category": "Neurology"},
			map[string]any{"category": "Orthopedics"},
			map[string]any{"category": "Dermatology"},
		},
	}

	h := NormalizeHospital(raw)
	assert.Equal(t, []string{"Cardiology", "Oncology"}, h.Specialties)
	assert.Equal(t, 3, h.MoreSpecialties)
}

func TestNormalizeHospital_Defaults(t *testing.T) {
	h := NormalizeHospital(model.RawMatch{
		"id":                "h9",
		"name":              "Bumrungrad",
		"city":              "Bangkok",
		"country":           "Thailand",
		"similarity":        0.873,
		"doctors_available": -4,
		"facilities":        `["ICU", "Pharmacy"]`,
	})

	assert.Equal(t, model.EntityHospital, h.Type)
	assert.Equal(t, "Bangkok, Thailand", h.Location)
	assert.Equal(t, 87, h.Similarity)
	assert.Equal(t, 0, h.DoctorsAvailable)
	assert.Equal(t, []string{"ICU", "Pharmacy"}, h.Facilities)
	assert.NotNil(t, h.Specialties)
	assert.Empty(t, h.Specialties)
}

func TestNormalizeDoctor_PrimarySelection(t *testing.T) {
	withPrimary := model.RawMatch{
		"hospitals": []any{
			map[string]any{"is_primary": false, "hospital_name": "Y", "city": "Penang", "country": "Malaysia"},
			map[string]any{"is_primary": true, "hospital_name": "X", "city": "Kuala Lumpur", "country": "Malaysia"},
		},
	}
	d := NormalizeDoctor(withPrimary)
	assert.Equal(t, "X", d.Hospital)
	assert.Equal(t, "Kuala Lumpur, Malaysia", d.Location)

	noPrimary := model.RawMatch{
		"hospitals": []any{
			map[string]any{"hospital_name": "First"},
			map[string]any{"hospital_name": "Second"},
		},
	}
	d = NormalizeDoctor(noPrimary)
	assert.Equal(t, "First", d.Hospital)
	assert.Equal(t, DefaultLocation, d.Location)
}

func TestNormalizeDoctor_Defaults(t *testing.T) {
	d := NormalizeDoctor(model.RawMatch{"id": "d1", "name": "Dr. Tan", "similarity": 1.4, "experience_years": -2})

	assert.Equal(t, DefaultSpecialty, d.Specialty)
	assert.Equal(t, DefaultHospital, d.Hospital)
	assert.Equal(t, DefaultLocation, d.Location)
	assert.Equal(t, 100, d.Similarity)
	assert.NotNil(t, d.Languages)
	assert.NotNil(t, d.Certifications)
	assert.Empty(t, d.ConsultationFee)
}

func TestNormalizeDoctor_Specialty(t *testing.T) {
	d := NormalizeDoctor(model.RawMatch{
		"services": []any{
			map[string]any{"name": "Echocardiogram", "category": "Cardiology"},
			map[string]any{"name": "", "category": "Interventional Cardiology", "is_primary": true},
		},
		"consultation_fee": 1500,
		"experience_years": 12,
	})

	assert.Equal(t, "Interventional Cardiology", d.Specialty)
	assert.Equal(t, "$1,500", d.ConsultationFee)
	assert.Equal(t, 12, d.ExperienceYears)
	assert.Equal(t, "12 Years", d.Experience)
}

func TestSimilarityPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.873, 87},
		{0.875, 88},
		{0, 0},
		{1, 100},
		{-0.2, 0},
		{1.3, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, similarityPercent(tt.in), "similarity %v", tt.in)
	}
}

func TestNormalizeMatches(t *testing.T) {
	raws := []model.RawMatch{{"id": "a"}, {"id": "b"}}

	hospitals := NormalizeMatches(model.EntityHospital, raws)
	require.Len(t, hospitals, 2)
	assert.IsType(t, &model.HospitalResult{}, hospitals[0])

	doctors := NormalizeMatches(model.EntityDoctor, raws)
	require.Len(t, doctors, 2)
	assert.Equal(t, "b", doctors[1].ResultID())

	assert.NotNil(t, NormalizeMatches(model.EntityDoctor, nil))
}
