package utils

import (
	"regexp"
	"strings"
)

// Specialty is a canonical medical specialty and the keywords that imply it
type Specialty struct {
	Name     string
	Keywords []string
}

// Country is a supported country and its accepted aliases
type Country struct {
	Name    string
	Aliases []string
}

// City is a supported major city
type City struct {
	Name    string
	Country string
	Aliases []string
}

// Specialties is scanned in declared order; the first match wins.
var Specialties = []Specialty{
	{"cardiology", []string{"heart", "cardiac", "cardiology", "cardiologist", "cardiovascular", "chest pain"}},
	{"oncology", []string{"cancer", "oncology", "oncologist", "tumor", "tumour", "chemotherapy", "chemo"}},
	{"neurology", []string{"brain", "neurology", "neurologist", "stroke", "epilepsy", "migraine", "nerve"}},
	{"orthopedics", []string{"bone", "joint", "orthopedic", "orthopaedic", "orthopedics", "orthopaedics", "spine", "fracture", "knee", "hip"}},
	{"pediatrics", []string{"child", "children", "kid", "baby", "babies", "infant", "pediatric", "paediatric", "pediatrics", "paediatrics", "pediatrician", "paediatrician"}},
	{"obstetrics/gynecology", []string{"pregnancy", "pregnant", "maternity", "obstetrics", "obstetrician", "gynecology", "gynaecology", "gynecologist", "gynaecologist", "obgyn", "ob-gyn", "ivf", "fertility"}},
	{"dermatology", []string{"skin", "dermatology", "dermatologist", "acne", "eczema", "psoriasis"}},
	{"ophthalmology", []string{"eye", "vision", "ophthalmology", "ophthalmologist", "cataract", "lasik", "retina"}},
	{"ENT", []string{"ent", "ear", "nose", "throat", "otolaryngology", "otolaryngologist", "sinus"}},
	{"gastroenterology", []string{"stomach", "digestive", "gastro", "gastroenterology", "gastroenterologist", "liver", "colonoscopy", "endoscopy"}},
	{"urology", []string{"urology", "urologist", "bladder", "prostate", "urinary"}},
	{"psychiatry", []string{"mental health", "psychiatry", "psychiatrist", "depression", "anxiety"}},
	{"endocrinology", []string{"diabetes", "thyroid", "hormone", "endocrinology", "endocrinologist"}},
	{"nephrology", []string{"kidney", "renal", "dialysis", "nephrology", "nephrologist"}},
	{"pulmonology", []string{"lung", "respiratory", "asthma", "pulmonology", "pulmonologist", "breathing"}},
}

// Countries lists the supported countries in scan order
var Countries = []Country{
	{"Singapore", []string{"singaporean"}},
	{"Malaysia", []string{"malaysian"}},
	{"Thailand", []string{"thai"}},
	{"Indonesia", []string{"indonesian"}},
	{"India", []string{"indian"}},
	{"South Korea", []string{"korea", "korean", "republic of korea"}},
	{"Japan", []string{"japanese"}},
	{"Turkey", []string{"turkiye", "türkiye", "turkish"}},
	{"United Arab Emirates", []string{"uae", "emirates", "emirati"}},
	{"Vietnam", []string{"viet nam", "vietnamese"}},
	{"Philippines", []string{"the philippines", "filipino"}},
	{"Taiwan", []string{"taiwanese"}},
}

// Cities lists the supported major cities in scan order
var Cities = []City{
	{"Singapore", "Singapore", nil},
	{"Kuala Lumpur", "Malaysia", []string{"kl"}},
	{"Penang", "Malaysia", []string{"george town", "georgetown"}},
	{"Johor Bahru", "Malaysia", []string{"jb"}},
	{"Malacca", "Malaysia", []string{"melaka"}},
	{"Bangkok", "Thailand", nil},
	{"Phuket", "Thailand", nil},
	{"Chiang Mai", "Thailand", nil},
	{"Jakarta", "Indonesia", nil},
	{"Surabaya", "Indonesia", nil},
	{"Bali", "Indonesia", []string{"denpasar"}},
	{"Mumbai", "India", []string{"bombay"}},
	{"New Delhi", "India", []string{"delhi"}},
	{"Chennai", "India", nil},
	{"Bangalore", "India", []string{"bengaluru"}},
	{"Hyderabad", "India", nil},
	{"Seoul", "South Korea", nil},
	{"Busan", "South Korea", nil},
	{"Tokyo", "Japan", nil},
	{"Osaka", "Japan", nil},
	{"Istanbul", "Turkey", nil},
	{"Ankara", "Turkey", nil},
	{"Dubai", "United Arab Emirates", nil},
	{"Abu Dhabi", "United Arab Emirates", nil},
	{"Ho Chi Minh City", "Vietnam", []string{"saigon", "ho chi minh"}},
	{"Hanoi", "Vietnam", nil},
	{"Manila", "Philippines", nil},
	{"Cebu", "Philippines", nil},
	{"Taipei", "Taiwan", nil},
}

type termMatcher struct {
	canonical string
	patterns  []*regexp.Regexp
}

var (
	specialtyMatchers = buildMatchers(len(Specialties), func(i int) (string, []string, bool) {
		return Specialties[i].Name, Specialties[i].Keywords, true
	})
	countryMatchers = buildMatchers(len(Countries), func(i int) (string, []string, bool) {
		return Countries[i].Name, append([]string{Countries[i].Name}, Countries[i].Aliases...), false
	})
	cityMatchers = buildMatchers(len(Cities), func(i int) (string, []string, bool) {
		return Cities[i].Name, append([]string{Cities[i].Name}, Cities[i].Aliases...), false
	})
)

func buildMatchers(n int, entry func(i int) (string, []string, bool)) []termMatcher {
	out := make([]termMatcher, 0, n)
	for i := 0; i < n; i++ {
		name, terms, plural := entry(i)
		m := termMatcher{canonical: name}
		for _, term := range terms {
			m.patterns = append(m.patterns, WordPattern(term, plural))
		}
		out = append(out, m)
	}
	return out
}

// WordPattern compiles a case-insensitive whole-word pattern for term.
// With plural set, a trailing "s" or "es" is also accepted.
func WordPattern(term string, plural bool) *regexp.Regexp {
	suffix := ""
	if plural {
		suffix = `(?:s|es)?`
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(term) + suffix + `(?:$|[^\p{L}\p{N}])`)
}

func firstMatch(matchers []termMatcher, text string) (string, bool) {
	for _, m := range matchers {
		for _, p := range m.patterns {
			if p.MatchString(text) {
				return m.canonical, true
			}
		}
	}
	return "", false
}

// DetectSpecialty returns the first specialty, in declared order, with a
// keyword present in text.
func DetectSpecialty(text string) (string, bool) {
	return firstMatch(specialtyMatchers, text)
}

// DetectCountry returns the first supported country named in text
func DetectCountry(text string) (string, bool) {
	return firstMatch(countryMatchers, text)
}

// DetectCity returns the first supported city named in text and its country
func DetectCity(text string) (City, bool) {
	name, ok := firstMatch(cityMatchers, text)
	if !ok {
		return City{}, false
	}
	for _, c := range Cities {
		if c.Name == name {
			return c, true
		}
	}
	return City{}, false
}

// NormalizeSpecialty maps a free-form specialty ("Cardiology", "heart
// specialist", "Obstetrics & Gynecology") onto the canonical vocabulary.
func NormalizeSpecialty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, sp := range Specialties {
		if strings.EqualFold(sp.Name, s) {
			return sp.Name, true
		}
	}
	return DetectSpecialty(s)
}

// NormalizeCountry maps a country name or alias onto the supported list
func NormalizeCountry(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, c := range Countries {
		if strings.EqualFold(c.Name, s) {
			return c.Name, true
		}
		for _, a := range c.Aliases {
			if strings.EqualFold(a, s) {
				return c.Name, true
			}
		}
	}
	return DetectCountry(s)
}

// NormalizeCity maps a city name or alias onto the supported list
func NormalizeCity(s string) (City, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return City{}, false
	}
	return DetectCity(s)
}

// SpecialtyNames returns the canonical specialty names in declared order
func SpecialtyNames() []string {
	out := make([]string, len(Specialties))
	for i, sp := range Specialties {
		out[i] = sp.Name
	}
	return out
}

// CountryNames returns the supported country names in declared order
func CountryNames() []string {
	out := make([]string, len(Countries))
	for i, c := range Countries {
		out[i] = c.Name
	}
	return out
}
