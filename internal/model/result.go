package model

// SearchResult is either a *HospitalResult or a *DoctorResult
type SearchResult interface {
	ResultType() EntityType
	ResultID() string
	ResultName() string
	SimilarityPercent() int
	RatingValue() float64
	SetRanking(score float64, reasons []string)
	RankingScore() float64
}

// Ranking carries the score assigned after normalization
type Ranking struct {
	Score          float64  `json:"score"`
	MatchedReasons []string `json:"matchedReasons"`
}

// SetRanking implements SearchResult
func (r *Ranking) SetRanking(score float64, reasons []string) {
	r.Score = score
	r.MatchedReasons = reasons
}

// RankingScore implements SearchResult
func (r *Ranking) RankingScore() float64 { return r.Score }

// HospitalResult is the flat UI-ready hospital shape
type HospitalResult struct {
	Type             EntityType `json:"type"`
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	Location         string     `json:"location"`
	City             string     `json:"city,omitempty"`
	Country          string     `json:"country,omitempty"`
	Address          string     `json:"address,omitempty"`
	ImageURL         string     `json:"imageUrl,omitempty"`
	Rating           float64    `json:"rating"`
	ReviewCount      int        `json:"reviewCount"`
	IsHalal          bool       `json:"isHalal"`
	Specialties      []string   `json:"specialties"`
	MoreSpecialties  int        `json:"moreSpecialties"`
	PriceRange       string     `json:"priceRange"`
	DoctorsAvailable int        `json:"doctorsAvailable"`
	Facilities       []string   `json:"facilities"`
	Similarity       int        `json:"similarity"`
	Ranking
}

func (h *HospitalResult) ResultType() EntityType { return EntityHospital }
func (h *HospitalResult) ResultID() string { return h.ID }
func (h *HospitalResult) ResultName() string { return h.Name }
func (h *HospitalResult) SimilarityPercent() int { return h.Similarity }
func (h *HospitalResult) RatingValue() float64 { return h.Rating }

// DoctorResult is the flat UI-ready doctor shape
type DoctorResult struct {
	Type            EntityType `json:"type"`
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Title           string     `json:"title,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	ImageURL        string     `json:"imageUrl,omitempty"`
	Specialty       string     `json:"specialty"`
	Hospital        string     `json:"hospital"`
	Location        string     `json:"location"`
	Experience      string     `json:"experience"`
	ExperienceYears int        `json:"experienceYears"`
	Rating          float64    `json:"rating"`
	ReviewCount     int        `json:"reviewCount"`
	Languages       []string   `json:"languages"`
	Certifications  []string   `json:"certifications"`
	ConsultationFee string     `json:"consultationFee,omitempty"`
	Similarity      int        `json:"similarity"`
	Ranking
}

func (d *DoctorResult) ResultType() EntityType { return EntityDoctor }
func (d *DoctorResult) ResultID() string { return d.ID }
func (d *DoctorResult) ResultName() string { return d.Name }
func (d *DoctorResult) SimilarityPercent() int { return d.Similarity }
func (d *DoctorResult) RatingValue() float64 { return d.Rating }

// Summaries converts results to the compact form carried in PriorContext
func Summaries(results []SearchResult) []ResultSummary {
	out := make([]ResultSummary, 0, len(results))
	for _, r := range results {
		out = append(out, ResultSummary{ID: r.ResultID(), Name: r.ResultName(), Type: r.ResultType()})
	}
	return out
}
