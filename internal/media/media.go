// Package media reads and deletes the stored audio a pipeline run works on.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"audio-insights-go/internal/config"
	"audio-insights-go/internal/failure"
	"audio-insights-go/internal/logger"
)

// maxAudioBytes caps a single download.
const maxAudioBytes = 200 << 20

// Store is implemented by every media backend. Fetch errors carry
// failure.Ingestion and Delete errors carry failure.Cleanup.
type Store interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// HTTPStore fetches media by URL. When a delete endpoint is configured,
// deletion is a token-authenticated {"urls":[...]} POST to it (Vercel Blob
// style); otherwise it is an HTTP DELETE on the media URL itself.
type HTTPStore struct {
	client    *http.Client
	deleteURL string
	token     string
	log       *logger.Logger
}

func NewHTTPStore(cfg config.MediaConfig, log *logger.Logger) *HTTPStore {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPStore{
		client:    &http.Client{Timeout: timeout},
		deleteURL: cfg.DeleteURL,
		token:     cfg.Token,
		log:       log.Component("media"),
	}
}

func (s *HTTPStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, failure.Newf(failure.Ingestion, "fetch", "media ref %q is not an http(s) URL", ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, failure.New(failure.Ingestion, "fetch", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, failure.New(failure.Ingestion, "fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, failure.Newf(failure.Ingestion, "fetch", "GET %s: status %d", u.Redacted(), resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, failure.New(failure.Ingestion, "read body", err)
	}
	if len(data) > maxAudioBytes {
		return nil, failure.Newf(failure.Ingestion, "read body", "media exceeds %d bytes", maxAudioBytes)
	}
	if len(data) == 0 {
		return nil, failure.Newf(failure.Ingestion, "read body", "media %s is empty", u.Redacted())
	}

	s.log.WithField("bytes", len(data)).Debug("media fetched")
	return data, nil
}

func (s *HTTPStore) Delete(ctx context.Context, ref string) error {
	var req *http.Request
	var err error
	if s.deleteURL != "" {
		body, _ := json.Marshal(map[string][]string{"urls": {ref}})
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, s.deleteURL, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodDelete, ref, nil)
	}
	if err != nil {
		return failure.New(failure.Cleanup, "delete", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return failure.New(failure.Cleanup, "delete", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// already gone counts as deleted
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure.New(failure.Cleanup, "delete", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}
