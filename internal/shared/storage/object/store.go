package object

import (
	"context"
	"io"
)

// ObjectStore is where downloaded analysis reports are saved.
type ObjectStore interface {
	// Save writes r under name, replacing any previous object with that name,
	// and returns a human-readable location (file path or s3:// URL).
	Save(ctx context.Context, name string, contentType string, r io.Reader) (location string, sizeBytes int64, err error)
}
