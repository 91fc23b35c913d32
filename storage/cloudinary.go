package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CloudinaryStorage stores document files in Cloudinary as raw assets
type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStorage builds a storage client from a CLOUDINARY_URL value
func NewCloudinaryStorage(cloudinaryURL string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld}, nil
}

// Upload pushes the file bytes and returns the served URL. A uuid prefix on
// the public id keeps same-named uploads from clobbering each other.
func (s *CloudinaryStorage) Upload(ctx context.Context, data []byte, folder, filename, contentType string) (string, error) {
	publicID := fmt.Sprintf("%s/%s_%s", folder, uuid.New().String(), sanitize(filename))
	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	zap.S().Debugw("uploaded file", "publicId", publicID, "bytes", len(data))
	return resp.SecureURL, nil
}

// Delete removes the asset behind a previously returned URL. Unknown assets
// are treated as already deleted.
func (s *CloudinaryStorage) Delete(ctx context.Context, fileURL string) error {
	publicID := publicIDFromURL(fileURL)
	if publicID == "" {
		zap.S().Warnw("could not derive public id from file url", "url", fileURL)
		return nil
	}
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy failed: %w", err)
	}
	return nil
}

// publicIDFromURL recovers the public id from a delivery URL. Raw delivery
// URLs look like .../raw/upload/v123/<folder>/<name>; everything after the
// version segment is the id.
func publicIDFromURL(fileURL string) string {
	parts := strings.Split(fileURL, "/upload/")
	if len(parts) != 2 {
		return ""
	}
	rest := parts[1]
	if i := strings.Index(rest, "/"); i > 0 && strings.HasPrefix(rest, "v") {
		rest = rest[i+1:]
	}
	return rest
}

func sanitize(filename string) string {
	base := path.Base(filename)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
}
