package domain

// RecommendationPriority orders profile recommendations.
type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

// Recommendation is a single improvement suggestion for a profile metric.
type Recommendation struct {
	Metric      string                 `json:"metric"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    RecommendationPriority `json:"priority"`
	// EstimatedImpact is the expected score gain if addressed.
	EstimatedImpact float64 `json:"estimated_impact"`
}

// GBPMetrics holds the sub-metrics feeding the overall profile score.
// These values are synthesized around any real place data available; the
// analysis is a simulation, not a measurement.
type GBPMetrics struct {
	Rating              float64 `json:"rating"`
	ReviewCount         int     `json:"review_count"`
	ResponseTimeHours   float64 `json:"response_time_hours"`
	PhotoCount          int     `json:"photo_count"`
	PhotoQuality        float64 `json:"photo_quality"`
	ProfileCompletion   float64 `json:"profile_completion"`
	SEOScore            float64 `json:"seo_score"`
	SearchRank          int     `json:"search_rank"`
	PositiveSentiment   float64 `json:"positive_sentiment"`
	NegativeSentiment   float64 `json:"negative_sentiment"`
	LocalPackVisibility float64 `json:"local_pack_visibility"`
}

// GBPAnalysis is the derived, non-persisted health report for a Google
// Business Profile.
type GBPAnalysis struct {
	BusinessName    string             `json:"business_name"`
	OverallScore    float64            `json:"overall_score"`
	Metrics         GBPMetrics         `json:"metrics"`
	SubScores       map[string]float64 `json:"sub_scores"`
	Recommendations []Recommendation   `json:"recommendations"`
	Simulated       bool               `json:"simulated"`
}
