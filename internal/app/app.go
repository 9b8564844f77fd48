// Package app wires configuration into the pipeline, ledger and analytics
// components shared by the server and the batch runner.
package app

import (
	"context"
	"fmt"

	"audio-insights-go/internal/analytics"
	"audio-insights-go/internal/classification"
	"audio-insights-go/internal/config"
	"audio-insights-go/internal/docstore"
	"audio-insights-go/internal/ledger"
	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/media"
	"audio-insights-go/internal/objstore"
	"audio-insights-go/internal/pipeline"
	"audio-insights-go/internal/transcription"
	"audio-insights-go/internal/validation"
)

type App struct {
	Pipeline  *pipeline.Orchestrator
	Ledger    *ledger.Ledger
	Analytics *analytics.Reader

	closers []func(context.Context) error
}

func Build(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	a := &App{}

	var objects *objstore.Objects
	supabaseObjects := func() (*objstore.Objects, error) {
		if objects != nil {
			return objects, nil
		}
		o, err := objstore.Connect(cfg.Supabase.URL, cfg.Supabase.Key)
		if err != nil {
			return nil, err
		}
		objects = o
		return o, nil
	}

	store, err := a.openStore(ctx, cfg.Ledger, supabaseObjects)
	if err != nil {
		return nil, fmt.Errorf("ledger backend %q: %w", cfg.Ledger.Backend, err)
	}
	log.WithField("backend", cfg.Ledger.Backend).Info("ledger store ready")

	var mediaStore pipeline.MediaStore
	switch cfg.Media.Backend {
	case "supabase":
		o, err := supabaseObjects()
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("media backend: %w", err)
		}
		mediaStore = media.NewSupabaseStore(o, log)
	case "http", "":
		mediaStore = media.NewHTTPStore(cfg.Media, log)
	default:
		a.Close(ctx)
		return nil, fmt.Errorf("unknown media backend %q", cfg.Media.Backend)
	}

	a.Ledger = ledger.New(store, cfg.Ledger.Path, log, ledger.Options{MaxRetry: cfg.Ledger.MaxRetry})
	a.Analytics = analytics.NewReader(a.Ledger, log)
	a.Pipeline = pipeline.New(pipeline.Deps{
		Media:       mediaStore,
		Transcriber: transcription.New(cfg.Transcription, log),
		Classifier:  classification.New(cfg.LLM, log),
		Validator:   validation.New(log),
		Ledger:      a.Ledger,
	}, pipeline.Timeouts{
		Fetch:      cfg.Media.FetchTimeout,
		Transcribe: cfg.Transcription.Timeout,
		Classify:   cfg.LLM.Timeout,
		Persist:    cfg.Ledger.Timeout,
		Cleanup:    cfg.Media.FetchTimeout,
	}, log)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.LedgerConfig, objects func() (*objstore.Objects, error)) (docstore.Store, error) {
	switch cfg.Backend {
	case "memory":
		return docstore.NewMemory(), nil
	case "sqlite", "":
		s, err := docstore.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		return s, nil
	case "postgres":
		s, err := docstore.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		return s, nil
	case "mongo":
		s, err := docstore.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case "supabase":
		o, err := objects()
		if err != nil {
			return nil, err
		}
		return docstore.NewSupabase(o, cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown backend")
	}
}

// Close releases backend connections.
func (a *App) Close(ctx context.Context) error {
	var first error
	for _, c := range a.closers {
		if err := c(ctx); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
