// Package gcs reads summary documents out of Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// ObjectReader fetches object contents as text.
type ObjectReader struct {
	client *storage.Client
}

func NewObjectReader(client *storage.Client) *ObjectReader {
	return &ObjectReader{client: client}
}

func (r *ObjectReader) Fetch(ctx context.Context, bucket, object string) (string, error) {
	reader, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read gs://%s/%s: %w", bucket, object, err)
	}
	return string(data), nil
}
