package transcription

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"audio-insights-go/internal/config"
	"audio-insights-go/internal/failure"
	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/types"
)

// Client sends audio to an OpenAI-compatible /audio/transcriptions endpoint
// and asks for verbose JSON so segments come back with timestamps.
type Client struct {
	api   *openai.Client
	model string
	log   *logger.Logger
}

func New(cfg config.TranscriptionConfig, log *logger.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		api:   openai.NewClientWithConfig(oc),
		model: cfg.Model,
		log:   log.Component("transcription"),
	}
}

// Transcribe makes a single attempt; there is no retry.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (types.Transcript, error) {
	if len(audio) == 0 {
		return types.Transcript{}, failure.New(failure.Transcription, "transcribe", errors.New("empty audio"))
	}
	if filename == "" {
		filename = "audio.mp3"
	}
	log := c.log.With("model", c.model).With("bytes", len(audio))
	log.Info("starting transcription")

	start := time.Now()
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: path.Base(filename),
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		log.WithError(err).Error("transcription request failed")
		return types.Transcript{}, failure.New(failure.Transcription, "transcribe", err)
	}

	tr := types.Transcript{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: make([]types.TranscriptSegment, 0, len(resp.Segments)),
	}
	for _, s := range resp.Segments {
		tr.Segments = append(tr.Segments, types.TranscriptSegment{Start: s.Start, End: s.End, Text: s.Text})
	}
	if err := checkOrder(tr.Segments); err != nil {
		log.WithError(err).Error("transcription returned unordered segments")
		return types.Transcript{}, failure.New(failure.Transcription, "decode segments", err)
	}

	log.WithField("segments", len(tr.Segments)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("transcription complete")
	return tr, nil
}
