package media

import (
	"context"
	"errors"

	"audio-insights-go/internal/failure"
	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/objstore"
)

// Objects is the bucket API SupabaseStore needs; *objstore.Objects
// implements it.
type Objects interface {
	Download(bucket, path string) ([]byte, error)
	Remove(bucket, path string) error
}

// SupabaseStore resolves refs of the form "bucket/path/to/object" against
// Supabase storage.
type SupabaseStore struct {
	objects Objects
	log     *logger.Logger
}

func NewSupabaseStore(objects Objects, log *logger.Logger) *SupabaseStore {
	return &SupabaseStore{objects: objects, log: log.Component("media")}
}

func (s *SupabaseStore) Fetch(_ context.Context, ref string) ([]byte, error) {
	bucket, path, err := objstore.SplitRef(ref)
	if err != nil {
		return nil, failure.New(failure.Ingestion, "fetch", err)
	}
	data, err := s.objects.Download(bucket, path)
	if err != nil {
		return nil, failure.New(failure.Ingestion, "fetch", err)
	}
	if len(data) == 0 {
		return nil, failure.Newf(failure.Ingestion, "fetch", "media %s is empty", ref)
	}
	s.log.WithField("bytes", len(data)).Debug("media fetched")
	return data, nil
}

func (s *SupabaseStore) Delete(_ context.Context, ref string) error {
	bucket, path, err := objstore.SplitRef(ref)
	if err != nil {
		return failure.New(failure.Cleanup, "delete", err)
	}
	if err := s.objects.Remove(bucket, path); err != nil && !errors.Is(err, objstore.ErrNotFound) {
		return failure.New(failure.Cleanup, "delete", err)
	}
	return nil
}
