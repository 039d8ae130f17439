// Package evidence implements the validation gate for proof bundles attached
// to low-rated reviews. The gate is pure: it decodes and inspects photo
// payloads but never persists anything.
package evidence

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/shoptrust/reviews/internal/domain"
)

const (
	// MaxPhotoSizeBytes is the decoded size limit per photo.
	MaxPhotoSizeBytes = 10 * 1024 * 1024

	// MinOrderNumberLen is the minimum length of the external order number.
	MinOrderNumberLen = 3
)

// allowedTypes maps declared media types to acceptance. image/jpg is a
// common non-standard alias clients send for JPEG.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Photo is a raw photo attachment as submitted: a base64 data URI.
type Photo struct {
	DataURI string
}

// Required reports whether a submission with the given rating must attach
// an evidence bundle.
func Required(rating int) bool {
	return domain.RequiresEvidence(rating)
}

// Validate checks an evidence bundle against the gate rules. When the rating
// does not require evidence the gate is a no-op. On success it returns the
// decoded photo attachments ready for persistence.
func Validate(photos []Photo, orderNumber string, rating int) ([]domain.EvidencePhoto, error) {
	if !Required(rating) {
		return nil, nil
	}

	if len(photos) == 0 {
		return nil, fmt.Errorf("at least 1 product photo is required for reviews rated 1-3 stars")
	}
	if len(photos) > domain.MaxEvidencePhotos {
		return nil, fmt.Errorf("at most %d photos are allowed", domain.MaxEvidencePhotos)
	}
	if len(strings.TrimSpace(orderNumber)) < MinOrderNumberLen {
		return nil, fmt.Errorf("a valid order number is required for reviews rated 1-3 stars")
	}

	decoded := make([]domain.EvidencePhoto, 0, len(photos))
	for i, p := range photos {
		photo, err := validatePhoto(p.DataURI)
		if err != nil {
			return nil, fmt.Errorf("photo %d: %w", i+1, err)
		}
		decoded = append(decoded, photo)
	}

	return decoded, nil
}

// validatePhoto parses a data URI, decodes the payload, and checks that the
// declared media type matches what the bytes actually are.
func validatePhoto(dataURI string) (domain.EvidencePhoto, error) {
	if !strings.HasPrefix(dataURI, "data:image/") {
		return domain.EvidencePhoto{}, fmt.Errorf("file must be an image (JPG, PNG, WEBP)")
	}

	header, encoded, found := strings.Cut(dataURI, ",")
	if !found {
		return domain.EvidencePhoto{}, fmt.Errorf("malformed image data")
	}

	declaredType := strings.TrimPrefix(header, "data:")
	if idx := strings.Index(declaredType, ";"); idx >= 0 {
		declaredType = declaredType[:idx]
	}
	if !allowedTypes[declaredType] {
		return domain.EvidencePhoto{}, fmt.Errorf("image type %s not allowed, only JPG, PNG, WEBP are accepted", declaredType)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.EvidencePhoto{}, fmt.Errorf("malformed image data")
	}

	if len(raw) > MaxPhotoSizeBytes {
		return domain.EvidencePhoto{}, fmt.Errorf("file too large (%.1f MB), maximum is %d MB",
			float64(len(raw))/(1024*1024), MaxPhotoSizeBytes/(1024*1024))
	}

	sniffed := http.DetectContentType(raw)
	if !allowedTypes[sniffed] {
		return domain.EvidencePhoto{}, fmt.Errorf("file is not a valid image")
	}
	if !sameImageType(declaredType, sniffed) {
		return domain.EvidencePhoto{}, fmt.Errorf("declared type %s does not match actual content %s", declaredType, sniffed)
	}

	return domain.EvidencePhoto{
		Data:        encoded,
		ContentType: sniffed,
		SizeBytes:   len(raw),
	}, nil
}

// sameImageType compares a declared and sniffed media type, treating the
// image/jpg alias as equivalent to image/jpeg.
func sameImageType(declared, sniffed string) bool {
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	return declared == sniffed
}
