// Package gbp synthesizes a Google Business Profile health report. The
// output is a simulation seeded from whatever real place data is
// available, not a measurement of the live profile; every report is
// marked Simulated so callers cannot mistake it for one.
package gbp

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/tribly/growthqr-bff-go/internal/domain"
)

// Metric identifiers, also used as SubScores keys.
const (
	MetricRating            = "rating"
	MetricReviewCount       = "review_count"
	MetricResponseTime      = "response_time"
	MetricPhotoCount        = "photo_count"
	MetricPhotoQuality      = "photo_quality"
	MetricProfileCompletion = "profile_completion"
	MetricSEOScore          = "seo_score"
	MetricSearchRank        = "search_rank"
	MetricSentiment         = "sentiment"
	MetricLocalPack         = "local_pack"
)

const maxRecommendations = 8

// benchmark maps a raw metric value onto tier thresholds. For
// lower-is-better metrics the thresholds descend from Poor to Excellent.
type benchmark struct {
	Excellent   float64
	Good        float64
	Average     float64
	Poor        float64
	LowerBetter bool
}

var benchmarks = map[string]benchmark{
	MetricRating:            {Excellent: 4.6, Good: 4.2, Average: 3.8, Poor: 3.2},
	MetricReviewCount:       {Excellent: 500, Good: 150, Average: 50, Poor: 10},
	MetricResponseTime:      {Excellent: 2, Good: 8, Average: 24, Poor: 72, LowerBetter: true},
	MetricPhotoCount:        {Excellent: 100, Good: 40, Average: 15, Poor: 5},
	MetricPhotoQuality:      {Excellent: 90, Good: 75, Average: 55, Poor: 35},
	MetricProfileCompletion: {Excellent: 95, Good: 80, Average: 60, Poor: 40},
	MetricSEOScore:          {Excellent: 85, Good: 70, Average: 50, Poor: 30},
	MetricSearchRank:        {Excellent: 3, Good: 7, Average: 15, Poor: 30, LowerBetter: true},
	MetricSentiment:         {Excellent: 90, Good: 75, Average: 60, Poor: 40},
	MetricLocalPack:         {Excellent: 80, Good: 60, Average: 40, Poor: 20},
}

// weights of the fixed linear combination. They sum to 1.0.
var weights = map[string]float64{
	MetricRating:            0.18,
	MetricReviewCount:       0.15,
	MetricResponseTime:      0.10,
	MetricPhotoCount:        0.08,
	MetricPhotoQuality:      0.07,
	MetricProfileCompletion: 0.12,
	MetricSEOScore:          0.10,
	MetricSearchRank:        0.10,
	MetricSentiment:         0.05,
	MetricLocalPack:         0.05,
}

type recommendationTemplate struct {
	Title       string
	Description string
}

var recommendationTexts = map[string]recommendationTemplate{
	MetricRating: {
		Title:       "Lift your average rating",
		Description: "Ask satisfied customers for reviews right after a good experience and respond to critical ones quickly.",
	},
	MetricReviewCount: {
		Title:       "Collect more reviews",
		Description: "Place the review QR code where customers pay or leave so a steady stream of reviews keeps coming in.",
	},
	MetricResponseTime: {
		Title:       "Respond to reviews faster",
		Description: "Profiles that answer reviews within a day rank better and convert more searchers into visitors.",
	},
	MetricPhotoCount: {
		Title:       "Add more photos",
		Description: "Upload recent photos of your space, products and team. Profiles with fresh photos get more clicks.",
	},
	MetricPhotoQuality: {
		Title:       "Improve photo quality",
		Description: "Replace dark or blurry images with well-lit, high-resolution photos shot in landscape.",
	},
	MetricProfileCompletion: {
		Title:       "Complete your profile",
		Description: "Fill in opening hours, services, attributes and a description so Google can match you to more searches.",
	},
	MetricSEOScore: {
		Title:       "Strengthen local SEO",
		Description: "Use your main keywords in the business description and keep name, address and phone consistent across the web.",
	},
	MetricSearchRank: {
		Title:       "Improve your search ranking",
		Description: "More reviews, faster responses and a complete profile all push you up the local results.",
	},
	MetricSentiment: {
		Title:       "Address negative feedback themes",
		Description: "Recurring complaints drag sentiment down. Fix the underlying issue, then reply to the reviews that mention it.",
	},
	MetricLocalPack: {
		Title:       "Increase local pack visibility",
		Description: "Showing up in the map pack drives the most calls. Ranking and review velocity are the biggest levers.",
	},
}

// Analyzer scores simulated profile health reports. The random source is
// injectable so reports are reproducible under test.
type Analyzer struct {
	rng *rand.Rand
}

// NewAnalyzer creates an analyzer with its own seeded random source.
func NewAnalyzer(seed int64) *Analyzer {
	return &Analyzer{rng: rand.New(rand.NewSource(seed))}
}

// Analyze builds a health report for the named business. When place
// details are available their rating and review count seed the
// simulation and the remaining metrics are synthesized around them:
// a higher seeded rating skews every synthetic metric toward its better
// end and narrows the random spread.
func (a *Analyzer) Analyze(businessName string, details *domain.PlaceDetails) *domain.GBPAnalysis {
	metrics := a.synthesize(details)

	subScores := map[string]float64{
		MetricRating:            tierScore(benchmarks[MetricRating], metrics.Rating),
		MetricReviewCount:       tierScore(benchmarks[MetricReviewCount], float64(metrics.ReviewCount)),
		MetricResponseTime:      tierScore(benchmarks[MetricResponseTime], metrics.ResponseTimeHours),
		MetricPhotoCount:        tierScore(benchmarks[MetricPhotoCount], float64(metrics.PhotoCount)),
		MetricPhotoQuality:      tierScore(benchmarks[MetricPhotoQuality], metrics.PhotoQuality),
		MetricProfileCompletion: tierScore(benchmarks[MetricProfileCompletion], metrics.ProfileCompletion),
		MetricSEOScore:          tierScore(benchmarks[MetricSEOScore], metrics.SEOScore),
		MetricSearchRank:        tierScore(benchmarks[MetricSearchRank], float64(metrics.SearchRank)),
		MetricSentiment:         tierScore(benchmarks[MetricSentiment], metrics.PositiveSentiment),
		MetricLocalPack:         tierScore(benchmarks[MetricLocalPack], metrics.LocalPackVisibility),
	}

	var overall float64
	for metric, score := range subScores {
		overall += weights[metric] * score
	}
	overall = clamp(overall, 0, 100)

	return &domain.GBPAnalysis{
		BusinessName:    businessName,
		OverallScore:    math.Round(overall*10) / 10,
		Metrics:         metrics,
		SubScores:       subScores,
		Recommendations: recommend(subScores),
		Simulated:       true,
	}
}

// synthesize produces the raw metric values. quality in [0,1] tracks the
// seeded rating and drives both the center and the spread of every
// synthetic metric.
func (a *Analyzer) synthesize(details *domain.PlaceDetails) domain.GBPMetrics {
	rating := 3.2 + a.rng.Float64()*1.5
	reviewCount := 5 + a.rng.Intn(120)
	if details != nil && details.Rating > 0 {
		rating = details.Rating
	}
	if details != nil && details.UserRatingsTotal > 0 {
		reviewCount = details.UserRatingsTotal
	}

	quality := clamp((rating-3.0)/2.0, 0, 1)

	positive := a.bounded(45, 95, quality)
	return domain.GBPMetrics{
		Rating:              math.Round(rating*10) / 10,
		ReviewCount:         reviewCount,
		ResponseTimeHours:   a.bounded(72, 1, quality),
		PhotoCount:          int(a.bounded(3, 120, quality)),
		PhotoQuality:        a.bounded(30, 95, quality),
		ProfileCompletion:   a.bounded(35, 98, quality),
		SEOScore:            a.bounded(25, 90, quality),
		SearchRank:          int(math.Max(1, a.bounded(35, 1, quality))),
		PositiveSentiment:   positive,
		NegativeSentiment:   math.Round((100-positive)*10) / 10,
		LocalPackVisibility: a.bounded(10, 85, quality),
	}
}

// bounded draws a value between worst and best, centered by quality with
// a spread that tightens as quality rises. worst may exceed best for
// lower-is-better metrics.
func (a *Analyzer) bounded(worst, best, quality float64) float64 {
	span := best - worst
	center := worst + span*quality
	jitter := (a.rng.Float64() - 0.5) * math.Abs(span) * (0.3 - 0.2*quality)
	lo, hi := math.Min(worst, best), math.Max(worst, best)
	return math.Round(clamp(center+jitter, lo, hi)*10) / 10
}

// tierScore maps a raw value through the benchmark tiers onto [0,100]
// with linear interpolation between tier boundaries.
func tierScore(b benchmark, value float64) float64 {
	excellent, good, average, poor := b.Excellent, b.Good, b.Average, b.Poor
	v := value
	if b.LowerBetter {
		// Negate so the comparison direction matches higher-is-better.
		excellent, good, average, poor = -excellent, -good, -average, -poor
		v = -v
	}

	var score float64
	switch {
	case v >= excellent:
		score = 95
	case v >= good:
		score = interpolate(v, good, excellent, 80, 95)
	case v >= average:
		score = interpolate(v, average, good, 60, 80)
	case v >= poor:
		score = interpolate(v, poor, average, 40, 60)
	default:
		// Fade toward zero below the poor tier.
		floor := poor - (average - poor)
		score = interpolate(v, floor, poor, 0, 40)
	}
	return math.Round(clamp(score, 0, 100)*10) / 10
}

func interpolate(v, lo, hi, scoreLo, scoreHi float64) float64 {
	if hi == lo {
		return scoreLo
	}
	frac := (v - lo) / (hi - lo)
	return scoreLo + clamp(frac, 0, 1)*(scoreHi-scoreLo)
}

// recommend emits at most one recommendation per metric that falls short
// of its good tier, sorted by priority then estimated impact.
func recommend(subScores map[string]float64) []domain.Recommendation {
	var recs []domain.Recommendation
	for metric, score := range subScores {
		if score >= 80 {
			continue
		}
		priority := domain.PriorityLow
		switch {
		case score < 50:
			priority = domain.PriorityHigh
		case score < 65:
			priority = domain.PriorityMedium
		}
		text, ok := recommendationTexts[metric]
		if !ok {
			text = recommendationTemplate{Title: fmt.Sprintf("Improve %s", metric)}
		}
		recs = append(recs, domain.Recommendation{
			Metric:          metric,
			Title:           text.Title,
			Description:     text.Description,
			Priority:        priority,
			EstimatedImpact: math.Round(weights[metric]*(100-score)*10) / 10,
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		pi, pj := priorityRank(recs[i].Priority), priorityRank(recs[j].Priority)
		if pi != pj {
			return pi < pj
		}
		if recs[i].EstimatedImpact != recs[j].EstimatedImpact {
			return recs[i].EstimatedImpact > recs[j].EstimatedImpact
		}
		return recs[i].Metric < recs[j].Metric
	})

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

func priorityRank(p domain.RecommendationPriority) int {
	switch p {
	case domain.PriorityHigh:
		return 0
	case domain.PriorityMedium:
		return 1
	default:
		return 2
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
