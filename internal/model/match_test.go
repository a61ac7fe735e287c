package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHospitalMatch_Coercion(t *testing.T) {
	raw := RawMatch{
		"id":                "h-1",
		"name":              "  Gleneagles  ",
		"rating":            "4.6",
		"doctors_available": "12",
		"similarity":        0.81,
		"services": []interface{}{
			map[string]interface{}{"name": "MRI", "category": "Radiology", "base_price": 300.0, "price": 900.0},
			map[string]interface{}{"name": "Consult", "category": "Cardiology", "price": "150"},
			map[string]interface{}{"name": "Closed", "category": "Oncology", "price": 10.0, "is_available": false},
			"not-an-object",
		},
		"facilities": `["ICU", {"name": "Pharmacy"}]`,
	}

	h := DecodeHospitalMatch(raw)

	assert.Equal(t, "h-1", h.ID)
	assert.Equal(t, "Gleneagles", h.Name)
	assert.Equal(t, 4.6, h.Rating)
	assert.Equal(t, 12, h.DoctorsAvailable)
	require.Len(t, h.Services, 3)
	require.NotNil(t, h.Services[0].Price)
	assert.Equal(t, 300.0, *h.Services[0].Price, "base_price wins over price")
	assert.Equal(t, 150.0, *h.Services[1].Price)
	assert.False(t, h.Services[2].IsAvailable)
	assert.True(t, h.Services[0].IsAvailable)
	require.Len(t, h.Facilities, 2)
	assert.Equal(t, "Pharmacy", h.Facilities[1].Name)
}

func TestDecodeHospitalMatch_NonArrayCollections(t *testing.T) {
	for name, v := range map[string]interface{}{
		"nil":    nil,
		"object": map[string]interface{}{"name": "x"},
		"number": 3.0,
		"junk":   "{not json",
	} {
		t.Run(name, func(t *testing.T) {
			h := DecodeHospitalMatch(RawMatch{"services": v, "facilities": v})
			assert.NotNil(t, h.Services)
			assert.Empty(t, h.Services)
			assert.NotNil(t, h.Facilities)
			assert.Empty(t, h.Facilities)
		})
	}
}

func TestDecodeDoctorMatch(t *testing.T) {
	raw := RawMatch{
		"id":               float64(7),
		"first_name":       "Aisha",
		"last_name":        "Rahman",
		"experience_years": 14.0,
		"consultation_fee": nil,
		"hospitals": []interface{}{
			map[string]interface{}{"hospital": map[string]interface{}{"name": "KPJ", "city": "Johor Bahru", "country": "Malaysia"}},
			map[string]interface{}{"hospital_name": "Sunway", "is_primary": true},
		},
		"languages":      []interface{}{"English", map[string]interface{}{"language": "Malay"}, ""},
		"certifications": []interface{}{"FRCP", map[string]interface{}{"name": "MRCP", "year": 2010.0}},
	}

	d := DecodeDoctorMatch(raw)

	assert.Equal(t, "7", d.ID)
	assert.Equal(t, "Aisha Rahman", d.Name)
	assert.Equal(t, 14, d.ExperienceYears)
	assert.Nil(t, d.ConsultationFee)
	require.Len(t, d.Hospitals, 2)
	assert.Equal(t, "KPJ", d.Hospitals[0].Name)
	assert.Equal(t, "Johor Bahru", d.Hospitals[0].City)
	assert.True(t, d.Hospitals[1].IsPrimary)
	assert.Equal(t, []string{"English", "Malay"}, d.Languages)
	require.Len(t, d.Certifications, 2)
	assert.Equal(t, 2010, d.Certifications[1].Year)
	assert.Empty(t, d.Services)
}

func TestRawMatch_Scan(t *testing.T) {
	var m RawMatch
	require.NoError(t, m.Scan([]byte(`{"id":"x","similarity":0.5}`)))
	assert.Equal(t, "x", m["id"])

	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m)

	assert.Error(t, m.Scan(42))
}

func TestFilterSet(t *testing.T) {
	f := FilterSet{Specialty: StringPtr("cardiology"), MinRating: Float64Ptr(6)}
	assert.Error(t, f.Validate())
	assert.False(t, f.IsEmpty())
	assert.True(t, FilterSet{}.IsEmpty())

	merged := FilterSet{Specialty: StringPtr("oncology"), Country: StringPtr("Malaysia")}.
		Merge(&FilterSet{Specialty: StringPtr("cardiology")})
	assert.Equal(t, "cardiology", *merged.Specialty)
	assert.Equal(t, "Malaysia", *merged.Country)
}

func TestParseEntityType(t *testing.T) {
	et, ok := ParseEntityType(" Doctor ")
	assert.True(t, ok)
	assert.Equal(t, EntityDoctor, et)
	assert.Equal(t, EntityHospital, et.Opposite())

	_, ok = ParseEntityType("nurse")
	assert.False(t, ok)
}
