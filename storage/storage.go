// Package storage abstracts the file store that holds uploaded documents
package storage

import (
	"context"
)

// Storage persists uploaded file bytes and returns a public URL for them
type Storage interface {
	Upload(ctx context.Context, data []byte, folder, filename, contentType string) (string, error)
	Delete(ctx context.Context, fileURL string) error
}
