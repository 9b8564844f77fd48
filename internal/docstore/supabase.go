package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"audio-insights-go/internal/objstore"
)

// Objects is the bucket API the Supabase store needs; *objstore.Objects
// implements it.
type Objects interface {
	Download(bucket, path string) ([]byte, error)
	Upload(bucket, path string, body []byte, contentType string) error
}

// Supabase stores each document as one object in a storage bucket.
// Object storage has no compare-and-swap, so Save always overwrites and
// the version token is only a content hash.
type Supabase struct {
	objects Objects
	bucket  string
}

func NewSupabase(objects Objects, bucket string) *Supabase {
	return &Supabase{objects: objects, bucket: bucket}
}

func (s *Supabase) Conditional() bool { return false }

func (s *Supabase) Load(_ context.Context, path string) (Document, error) {
	data, err := s.objects.Download(s.bucket, path)
	if errors.Is(err, objstore.ErrNotFound) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return Document{Body: data, Version: contentHash(data)}, nil
}

func (s *Supabase) Save(_ context.Context, path string, body []byte, _ string) (string, error) {
	if err := s.objects.Upload(s.bucket, path, body, "application/json"); err != nil {
		return "", err
	}
	return contentHash(body), nil
}

func contentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
