package services

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"dietly/internal/config"
	"dietly/internal/repositories"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// IconService uploads badge icon assets and points the catalog entry
// at the new URL. Administration of everything else about a badge
// happens via migrations.
type IconService interface {
	UploadIcon(ctx context.Context, req *IconUploadRequest) (*IconUploadResult, error)
}

// iconService implements IconService backed by Cloudinary.
type iconService struct {
	cloudinary *cloudinary.Cloudinary
	badges     repositories.BadgeRepository
	logger     *zap.Logger
	config     *config.CloudinaryConfig
}

// NewIconService creates a new badge icon service. A nil Cloudinary
// client disables uploads with a clean error instead of a panic.
func NewIconService(
	cld *cloudinary.Cloudinary,
	badges repositories.BadgeRepository,
	cfg *config.CloudinaryConfig,
	logger *zap.Logger,
) IconService {
	return &iconService{
		cloudinary: cld,
		badges:     badges,
		logger:     logger,
		config:     cfg,
	}
}

var allowedIconExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".svg":  true,
	".webp": true,
}

// UploadIcon implements IconService
func (s *iconService) UploadIcon(ctx context.Context, req *IconUploadRequest) (*IconUploadResult, error) {
	if s.cloudinary == nil {
		return nil, NewServiceUnavailableError("icon uploads are not configured")
	}

	if err := s.validateUpload(req); err != nil {
		return nil, err
	}

	badge, err := s.badges.GetByID(ctx, req.BadgeID)
	if err != nil {
		return nil, NewInternalError("failed to load badge")
	}
	if badge == nil {
		return nil, EntityNotFoundError("badge", req.BadgeID)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	uploadParams := uploader.UploadParams{
		Folder:         s.config.Folder,
		ResourceType:   "image",
		UseFilename:    boolPtr(false),
		UniqueFilename: boolPtr(true),
		Tags:           []string{"dietly", "badge_icon"},
	}

	result, err := s.cloudinary.Upload.Upload(uploadCtx, req.File, uploadParams)
	if err != nil {
		s.logger.Error("Failed to upload badge icon to Cloudinary",
			zap.Error(err),
			zap.Int64("badge_id", req.BadgeID),
			zap.String("filename", req.Filename),
		)
		return nil, NewInternalError("failed to upload badge icon")
	}

	if err := s.badges.UpdateIcon(ctx, req.BadgeID, result.SecureURL); err != nil {
		s.logger.Error("Failed to store badge icon URL",
			zap.Error(err),
			zap.Int64("badge_id", req.BadgeID),
		)
		return nil, NewInternalError("failed to update badge icon")
	}

	s.logger.Info("Badge icon updated",
		zap.Int64("badge_id", req.BadgeID),
		zap.String("public_id", result.PublicID),
		zap.String("url", result.SecureURL),
	)

	return &IconUploadResult{
		BadgeID:  req.BadgeID,
		URL:      result.SecureURL,
		PublicID: result.PublicID,
		Size:     int64(result.Bytes),
		Format:   result.Format,
	}, nil
}

func (s *iconService) validateUpload(req *IconUploadRequest) error {
	if req == nil || req.File == nil {
		return NewValidationError("icon file is required", nil)
	}

	if s.config.MaxFileSize > 0 && req.Size > s.config.MaxFileSize {
		return NewValidationError("icon file exceeds the size limit", nil)
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !allowedIconExtensions[ext] {
		return NewValidationError("unsupported icon file type", nil)
	}

	return nil
}

func boolPtr(b bool) *bool {
	return &b
}
