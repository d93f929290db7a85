package services

import (
	"io"

	"dietly/internal/models"
)

// ===============================
// SERVICE DTOs
// ===============================

// ValidationResult summarizes one badge validation pass: how many
// badges were newly awarded and which catalog entries they were.
// Already-held badges never reappear here.
type ValidationResult struct {
	Count  int            `json:"count"`
	Badges []models.Badge `json:"badges"`
}

// IconUploadRequest carries a badge icon upload.
type IconUploadRequest struct {
	BadgeID  int64
	File     io.Reader
	Filename string
	Size     int64
}

// IconUploadResult is the outcome of a badge icon upload.
type IconUploadResult struct {
	BadgeID  int64  `json:"badge_id"`
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Size     int64  `json:"size"`
	Format   string `json:"format"`
}
