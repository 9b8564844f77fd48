// Package objstore wraps the Supabase storage client behind plain
// bucket/path calls shared by the ledger document store and media access.
package objstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
	supabase "github.com/supabase-community/supabase-go"
)

// ErrNotFound means the object does not exist in the bucket.
var ErrNotFound = errors.New("objstore: object not found")

// Objects is a thin adapter over *storage_go.Client.
type Objects struct {
	storage *storage_go.Client
}

// Connect builds a Supabase client and keeps its storage handle.
func Connect(url, key string) (*Objects, error) {
	if url == "" || key == "" {
		return nil, errors.New("supabase URL and key are required")
	}
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize supabase SDK: %w", err)
	}
	if client.Storage == nil {
		return nil, errors.New("supabase client has no storage handle")
	}
	return &Objects{storage: client.Storage}, nil
}

func (o *Objects) Download(bucket, path string) ([]byte, error) {
	data, err := o.storage.DownloadFile(bucket, path)
	if err != nil {
		if isMissing(err.Error()) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download %s/%s: %w", bucket, path, err)
	}
	// a missing object can come back as an error body with a nil error
	if msg, ok := errorBody(data); ok {
		if isMissing(msg) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download %s/%s: %s", bucket, path, msg)
	}
	return data, nil
}

func (o *Objects) Upload(bucket, path string, body []byte, contentType string) error {
	upsert := true
	_, err := o.storage.UploadFile(bucket, path, bytes.NewReader(body), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, path, err)
	}
	return nil
}

func (o *Objects) Remove(bucket, path string) error {
	if _, err := o.storage.RemoveFile(bucket, []string{path}); err != nil {
		return fmt.Errorf("remove %s/%s: %w", bucket, path, err)
	}
	return nil
}

// SplitRef splits "bucket/path/to/object" into its bucket and object path.
func SplitRef(ref string) (bucket, path string, err error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "/")
	bucket, path, ok := strings.Cut(ref, "/")
	if !ok || bucket == "" || path == "" {
		return "", "", fmt.Errorf("object ref %q is not bucket/path", ref)
	}
	return bucket, path, nil
}

func isMissing(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "not found") || strings.Contains(m, "not_found") || strings.Contains(m, "404")
}

// errorBody recognizes {"statusCode":"404","error":"not_found","message":"..."}.
func errorBody(data []byte) (string, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var e struct {
		StatusCode any    `json:"statusCode"`
		Error      string `json:"error"`
		Message    string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &e); err != nil || e.Error == "" || e.StatusCode == nil {
		return "", false
	}
	return fmt.Sprintf("%v %s: %s", e.StatusCode, e.Error, e.Message), true
}
