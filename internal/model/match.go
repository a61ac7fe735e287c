package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawMatch is an untyped row returned by a vector index function, read as
// to_jsonb(row). Nested sub-collections stay as decoded JSON until one of the
// Decode functions coerces them.
type RawMatch map[string]interface{}

// Value implements driver.Valuer interface
func (m RawMatch) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner interface
func (m *RawMatch) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("raw match: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, m)
}

// ServiceItem is a priced service offered by a hospital or doctor
type ServiceItem struct {
	Name        string
	Category    string
	Price       *float64 // base_price, falling back to price
	IsAvailable bool
	IsPrimary   bool
}

// FacilityItem is a named hospital facility
type FacilityItem struct {
	Name     string
	Category string
}

// AffiliationItem is a hospital a doctor practices at
type AffiliationItem struct {
	ID        string
	Name      string
	City      string
	Country   string
	IsPrimary bool
}

// CertificationItem is a doctor certification
type CertificationItem struct {
	Name   string
	Issuer string
	Year   int
}

// HospitalMatch is the strict shape of a hospital row
type HospitalMatch struct {
	ID               string
	Name             string
	Description      string
	City             string
	Country          string
	Address          string
	ImageURL         string
	Rating           float64
	ReviewCount      int
	IsHalal          bool
	DoctorsAvailable int
	Similarity       float64
	Services         []ServiceItem
	Facilities       []FacilityItem
}

// DoctorMatch is the strict shape of a doctor row
type DoctorMatch struct {
	ID              string
	Name            string
	Title           string
	Bio             string
	ImageURL        string
	ExperienceYears int
	Rating          float64
	ReviewCount     int
	ConsultationFee *float64
	Similarity      float64
	Hospitals       []AffiliationItem
	Services        []ServiceItem
	Certifications  []CertificationItem
	Languages       []string
}

// DecodeHospitalMatch coerces an untyped hospital row. It never fails:
// missing or malformed fields take their zero value.
func DecodeHospitalMatch(raw RawMatch) HospitalMatch {
	h := HospitalMatch{
		ID:          asString(raw["id"]),
		Name:        asString(raw["name"]),
		Description: asString(raw["description"]),
		City:        asString(raw["city"]),
		Country:     asString(raw["country"]),
		Address:     asString(raw["address"]),
		ImageURL:    firstString(raw, "image_url", "logo_url", "photo_url"),
		Rating:      asFloat(raw["rating"]),
		ReviewCount: asInt(firstPresent(raw, "review_count", "reviews_count")),
		IsHalal:     asBool(firstPresent(raw, "is_halal", "halal_certified"), false),
		Similarity:  asFloat(raw["similarity"]),
	}
	h.DoctorsAvailable = asInt(firstPresent(raw, "doctors_available", "doctor_count", "doctors_count"))

	for _, s := range asArray(raw["services"]) {
		if obj := asObject(s); obj != nil {
			h.Services = append(h.Services, decodeService(obj))
		}
	}
	for _, f := range asArray(raw["facilities"]) {
		switch v := f.(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				h.Facilities = append(h.Facilities, FacilityItem{Name: v})
			}
		default:
			if obj := asObject(v); obj != nil {
				h.Facilities = append(h.Facilities, FacilityItem{
					Name:     asString(obj["name"]),
					Category: asString(obj["category"]),
				})
			}
		}
	}
	if h.Services == nil {
		h.Services = []ServiceItem{}
	}
	if h.Facilities == nil {
		h.Facilities = []FacilityItem{}
	}
	return h
}

// DecodeDoctorMatch coerces an untyped doctor row. It never fails.
func DecodeDoctorMatch(raw RawMatch) DoctorMatch {
	d := DoctorMatch{
		ID:              asString(raw["id"]),
		Name:            doctorName(raw),
		Title:           asString(raw["title"]),
		Bio:             firstString(raw, "bio", "description"),
		ImageURL:        firstString(raw, "image_url", "photo_url", "avatar_url"),
		ExperienceYears: asInt(firstPresent(raw, "experience_years", "years_of_experience", "experience")),
		Rating:          asFloat(raw["rating"]),
		ReviewCount:     asInt(firstPresent(raw, "review_count", "reviews_count")),
		Similarity:      asFloat(raw["similarity"]),
		Hospitals:       []AffiliationItem{},
		Services:        []ServiceItem{},
		Certifications:  []CertificationItem{},
		Languages:       []string{},
	}
	if d.ExperienceYears < 0 {
		d.ExperienceYears = 0
	}
	if fee, ok := asFloatOK(raw["consultation_fee"]); ok {
		d.ConsultationFee = &fee
	}

	for _, item := range asArray(raw["hospitals"]) {
		obj := asObject(item)
		if obj == nil {
			continue
		}
		a := AffiliationItem{
			ID:        firstString(obj, "hospital_id", "id"),
			Name:      firstString(obj, "hospital_name", "name"),
			City:      asString(obj["city"]),
			Country:   asString(obj["country"]),
			IsPrimary: asBool(obj["is_primary"], false),
		}
		// joined rows may nest the hospital record instead of flattening it
		if nested := asObject(obj["hospital"]); nested != nil {
			if a.Name == "" {
				a.Name = asString(nested["name"])
			}
			if a.City == "" {
				a.City = asString(nested["city"])
			}
			if a.Country == "" {
				a.Country = asString(nested["country"])
			}
		}
		d.Hospitals = append(d.Hospitals, a)
	}
	for _, item := range asArray(raw["services"]) {
		if obj := asObject(item); obj != nil {
			d.Services = append(d.Services, decodeService(obj))
		}
	}
	for _, item := range asArray(raw["certifications"]) {
		switch v := item.(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				d.Certifications = append(d.Certifications, CertificationItem{Name: v})
			}
		default:
			if obj := asObject(v); obj != nil {
				d.Certifications = append(d.Certifications, CertificationItem{
					Name:   firstString(obj, "name", "certification_name", "title"),
					Issuer: firstString(obj, "issuer", "issuing_body", "organization"),
					Year:   asInt(firstPresent(obj, "year", "year_obtained")),
				})
			}
		}
	}
	for _, item := range asArray(raw["languages"]) {
		var lang string
		switch v := item.(type) {
		case string:
			lang = v
		default:
			if obj := asObject(v); obj != nil {
				lang = firstString(obj, "language", "name")
			}
		}
		if lang = strings.TrimSpace(lang); lang != "" {
			d.Languages = append(d.Languages, lang)
		}
	}
	return d
}

func decodeService(obj map[string]interface{}) ServiceItem {
	s := ServiceItem{
		Name:        firstString(obj, "name", "service_name"),
		Category:    asString(obj["category"]),
		IsAvailable: asBool(obj["is_available"], true),
		IsPrimary:   asBool(obj["is_primary"], false),
	}
	if s.Name == "" {
		if nested := asObject(obj["service"]); nested != nil {
			s.Name = asString(nested["name"])
			if s.Category == "" {
				s.Category = asString(nested["category"])
			}
		}
	}
	if p, ok := asFloatOK(obj["base_price"]); ok {
		s.Price = &p
	} else if p, ok := asFloatOK(obj["price"]); ok {
		s.Price = &p
	}
	return s
}

func doctorName(raw RawMatch) string {
	if name := firstString(raw, "name", "full_name"); name != "" {
		return name
	}
	parts := make([]string, 0, 2)
	for _, key := range []string{"first_name", "last_name"} {
		if s := asString(raw[key]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func firstPresent(obj map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(obj map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := asString(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func asFloatOK(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case float32:
		return asFloatOK(float64(t))
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return asFloatOK(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return asFloatOK(f)
	default:
		return 0, false
	}
}

func asFloat(v interface{}) float64 {
	f, _ := asFloatOK(v)
	return f
}

func asInt(v interface{}) int {
	f, ok := asFloatOK(v)
	if !ok {
		return 0
	}
	return int(math.Round(f))
}

func asBool(v interface{}, def bool) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return b
	case float64:
		return t != 0
	default:
		return def
	}
}

// asArray coerces v to a slice. JSON-encoded strings are decoded; anything
// else that is not an array becomes an empty slice.
func asArray(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case string:
		var arr []interface{}
		if err := json.Unmarshal([]byte(t), &arr); err == nil {
			return arr
		}
	}
	return []interface{}{}
}

func asObject(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return t
	case RawMatch:
		return t
	case string:
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(t), &obj); err == nil {
			return obj
		}
	}
	return nil
}
