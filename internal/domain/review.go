package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReviewStatus is the lifecycle state of a review.
type ReviewStatus string

const (
	StatusPending   ReviewStatus = "pending"
	StatusApproved  ReviewStatus = "approved"
	StatusRejected  ReviewStatus = "rejected"
	StatusPublished ReviewStatus = "published"
)

// ReviewType describes the provenance of a review. First-party API
// submissions are verified; imported and unverified mark third-party
// ingestion paths and never count toward the trust score.
type ReviewType string

const (
	TypeVerified   ReviewType = "verified"
	TypeImported   ReviewType = "imported"
	TypeUnverified ReviewType = "unverified"
)

// AdminDecisionAction is the action taken by a moderator on a pending review.
type AdminDecisionAction string

const (
	DecisionApprove AdminDecisionAction = "approve"
	DecisionReject  AdminDecisionAction = "reject"
)

// EvidenceRatingThreshold is the highest rating that still requires an
// evidence bundle. Submissions rated at or below it must attach proof.
const EvidenceRatingThreshold = 3

// MaxEvidencePhotos bounds the number of photo attachments per bundle.
const MaxEvidencePhotos = 5

// Evidence is the proof bundle attached to low-rated reviews.
type Evidence struct {
	Photos      []EvidencePhoto `json:"photos,omitempty"`
	OrderNumber string          `json:"order_number"`
	ChatLog     string          `json:"chat_log,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// EvidencePhoto is a single validated photo attachment. Data holds the
// base64-encoded image payload as submitted; ContentType is the declared and
// verified media type.
type EvidencePhoto struct {
	Data        string `json:"data"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
}

// AdminDecision records the outcome of a moderation action.
type AdminDecision struct {
	DecidedBy uuid.UUID           `json:"decided_by"`
	Decision  AdminDecisionAction `json:"decision"`
	Notes     string              `json:"notes,omitempty"`
	DecidedAt time.Time           `json:"decided_at"`
}

// Review is one buyer's rated opinion of one merchant.
type Review struct {
	ID                 uuid.UUID      `json:"id"`
	BuyerID            uuid.UUID      `json:"buyer_id"`
	BuyerDisplayName   string         `json:"buyer_display_name,omitempty"`
	MerchantID         uuid.UUID      `json:"merchant_id"`
	Rating             int            `json:"rating"`
	Comment            string         `json:"comment"`
	ReviewType         ReviewType     `json:"review_type"`
	Status             ReviewStatus   `json:"status"`
	IsVerifiedPurchase bool           `json:"is_verified_purchase"`
	VerifiedAt         *time.Time     `json:"verified_at,omitempty"`
	OrderID            *uuid.UUID     `json:"order_id,omitempty"`
	Evidence           *Evidence      `json:"evidence,omitempty"`
	ContentFlags       []string       `json:"content_flags,omitempty"`
	AdminDecision      *AdminDecision `json:"admin_decision,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// RequiresEvidence reports whether a submission with the given rating must
// carry an evidence bundle.
func RequiresEvidence(rating int) bool {
	return rating <= EvidenceRatingThreshold
}

// InitialStatus returns the lifecycle state assigned on creation. Low-rated
// reviews enter moderation; everything else is published immediately.
func InitialStatus(rating int) ReviewStatus {
	if RequiresEvidence(rating) {
		return StatusPending
	}
	return StatusPublished
}

// IsFlagged reports whether the moderation gate attached any content flags.
func (r *Review) IsFlagged() bool {
	return len(r.ContentFlags) > 0
}

// IsOwnedBy reports whether the given buyer owns this review.
func (r *Review) IsOwnedBy(buyerID uuid.UUID) bool {
	return r.BuyerID == buyerID
}

// IsAdmissible reports whether this review counts toward the merchant's
// trust score at the given instant: verified provenance, approved or
// published status, and created within the trailing aggregation window.
func (r *Review) IsAdmissible(now time.Time, window time.Duration) bool {
	if r.ReviewType != TypeVerified {
		return false
	}
	if r.Status != StatusPublished && r.Status != StatusApproved {
		return false
	}
	return r.CreatedAt.After(now.Add(-window))
}

// CanDecide reports whether an admin decision is valid from the current
// state. Decisions are only accepted on pending reviews.
func (r *Review) CanDecide() bool {
	return r.Status == StatusPending
}

// ApplyDecision transitions a pending review per the moderator's action and
// records the decision metadata. Callers must check CanDecide first.
func (r *Review) ApplyDecision(adminID uuid.UUID, action AdminDecisionAction, notes string, now time.Time) {
	if action == DecisionApprove {
		r.Status = StatusApproved
	} else {
		r.Status = StatusRejected
	}
	r.AdminDecision = &AdminDecision{
		DecidedBy: adminID,
		Decision:  action,
		Notes:     notes,
		DecidedAt: now,
	}
	r.UpdatedAt = now
}

// FoldDisplayName shortens a reviewer's full name to first name plus last
// initial ("Sarah Klein" -> "Sarah K."). Single-word names pass through.
func FoldDisplayName(fullName string) string {
	parts := strings.Fields(strings.TrimSpace(fullName))
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	last := []rune(parts[len(parts)-1])
	return parts[0] + " " + string(last[0]) + "."
}

// ValidDecision reports whether the string is a recognized moderation action.
func ValidDecision(s string) bool {
	return s == string(DecisionApprove) || s == string(DecisionReject)
}
