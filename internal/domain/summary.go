package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// AggregationWindow is the trailing period over which reviews count toward a
// merchant's trust score. Admissible reviews older than this silently age out
// on the next recomputation.
const AggregationWindow = 365 * 24 * time.Hour

// TrustGrade is the letter grade derived from a merchant's average rating.
type TrustGrade string

const (
	GradeA TrustGrade = "A"
	GradeB TrustGrade = "B"
	GradeC TrustGrade = "C"
	GradeD TrustGrade = "D"
	GradeF TrustGrade = "F"
)

// TrustSummary is the recomputed public trust score of a merchant. It is
// derived state: always overwritten by full recomputation, never patched
// incrementally.
type TrustSummary struct {
	MerchantID  uuid.UUID  `json:"merchant_id"`
	Rating      float64    `json:"rating"`
	ReviewCount int        `json:"review_count"`
	TrustGrade  TrustGrade `json:"trust_grade"`
	GradeLabel  string     `json:"grade_label"`
	ComputedAt  time.Time  `json:"computed_at"`
}

// GradeForRating maps an average rating onto a letter grade, evaluated
// top-down with inclusive lower bounds.
func GradeForRating(rating float64) TrustGrade {
	switch {
	case rating >= 4.50:
		return GradeA
	case rating >= 3.50:
		return GradeB
	case rating >= 2.50:
		return GradeC
	case rating >= 1.50:
		return GradeD
	default:
		return GradeF
	}
}

// GradeLabel returns the human-readable label for a grade.
func GradeLabel(grade TrustGrade) string {
	switch grade {
	case GradeA:
		return "Excellent"
	case GradeB:
		return "Good"
	case GradeC:
		return "Satisfactory"
	case GradeD:
		return "Adequate"
	default:
		return "Poor"
	}
}

// RoundRating rounds an average rating to 2 decimal places.
func RoundRating(rating float64) float64 {
	return math.Round(rating*100) / 100
}

// NewTrustSummary builds a summary from the aggregate of the admissible set.
// An empty set yields a 0.0 rating and grade F.
func NewTrustSummary(merchantID uuid.UUID, avgRating float64, count int, now time.Time) TrustSummary {
	rating := 0.0
	if count > 0 {
		rating = RoundRating(avgRating)
	}
	grade := GradeForRating(rating)
	return TrustSummary{
		MerchantID:  merchantID,
		Rating:      rating,
		ReviewCount: count,
		TrustGrade:  grade,
		GradeLabel:  GradeLabel(grade),
		ComputedAt:  now,
	}
}
