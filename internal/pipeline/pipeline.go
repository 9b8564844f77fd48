// Package pipeline runs one media asset through ingest, transcription,
// classification and ledger persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"path"
	"strings"
	"time"

	"audio-insights-go/internal/classification"
	"audio-insights-go/internal/failure"
	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/transcription"
	"audio-insights-go/internal/types"
	"audio-insights-go/internal/validation"
)

type State string

const (
	StateIngesting    State = "ingesting"
	StateTranscribing State = "transcribing"
	StateClassifying  State = "classifying"
	StatePersisting   State = "persisting"
	StateDone         State = "done"
	StateDegraded     State = "degraded"
	StateFailed       State = "failed"
)

type MediaStore interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (types.Transcript, error)
}

type Classifier interface {
	Classify(ctx context.Context, timestampedText string) (classification.Result, error)
}

type Validator interface {
	Validate(raw json.RawMessage) (validation.Outcome, error)
}

type Appender interface {
	Append(ctx context.Context, rec types.ClassificationRecord, usage *types.Usage) (types.HistoryEntry, error)
}

// Timeouts bound each stage. Zero means no stage-specific bound.
type Timeouts struct {
	Fetch      time.Duration
	Transcribe time.Duration
	Classify   time.Duration
	Persist    time.Duration
	Cleanup    time.Duration
}

type Deps struct {
	Media       MediaStore
	Transcriber Transcriber
	Classifier  Classifier
	Validator   Validator
	Ledger      Appender
}

type Orchestrator struct {
	deps     Deps
	timeouts Timeouts
	log      *logger.Logger
}

func New(deps Deps, timeouts Timeouts, log *logger.Logger) *Orchestrator {
	return &Orchestrator{deps: deps, timeouts: timeouts, log: log.Component("pipeline")}
}

// Process runs the pipeline for one asset. A non-nil error means the run
// failed fatally (ingestion or transcription); the returned result then
// carries the same message in Error. Classification, validation and
// persistence problems only degrade the result.
//
// Stage calls are detached from ctx cancellation: once started, a run
// completes or hits a stage timeout. The asset is deleted on every exit path
// unless asset.Retain is set.
func (o *Orchestrator) Process(ctx context.Context, asset types.MediaAsset) (res types.PipelineResult, err error) {
	ctx = context.WithoutCancel(ctx)
	log := o.log.With("media_ref", asset.Ref)
	started := time.Now()

	res = types.PipelineResult{MediaRef: asset.Ref, Segments: []types.TranscriptSegment{}}
	state := StateIngesting
	setState := func(s State) {
		state = s
		res.State = string(s)
		log.WithField("state", s).Debug("pipeline state")
	}
	setState(StateIngesting)

	defer func() {
		res.Timings.Total = time.Since(started).Seconds()
		o.cleanup(ctx, asset, log)
		log.WithFields(map[string]any{
			"state":    state,
			"total_ms": time.Since(started).Milliseconds(),
		}).Info("pipeline finished")
	}()

	fail := func(e error) (types.PipelineResult, error) {
		setState(StateFailed)
		res.Error = e.Error()
		log.WithError(e).Warn("pipeline failed")
		return res, e
	}

	degrade := func(e error) (types.PipelineResult, error) {
		msg := e.Error()
		res.Classification = nil
		res.ClassificationError = &msg
		log.WithError(e).Warn("classification unavailable, returning transcript only")
		setState(StateDegraded)
		return res, nil
	}

	if strings.TrimSpace(asset.Ref) == "" {
		return fail(failure.New(failure.Ingestion, "ingest", errors.New("media ref is empty")))
	}

	// ingest
	t0 := time.Now()
	audio, err := withTimeout(ctx, o.timeouts.Fetch, func(ctx context.Context) ([]byte, error) {
		return o.deps.Media.Fetch(ctx, asset.Ref)
	})
	res.Timings.Ingest = time.Since(t0).Seconds()
	if err != nil {
		return fail(ensureKind(err, failure.Ingestion, "ingest"))
	}

	// transcribe
	setState(StateTranscribing)
	t0 = time.Now()
	tr, err := withTimeout(ctx, o.timeouts.Transcribe, func(ctx context.Context) (types.Transcript, error) {
		return o.deps.Transcriber.Transcribe(ctx, audio, filenameOf(asset.Ref))
	})
	res.Timings.Transcribe = time.Since(t0).Seconds()
	res.WhisperTimeSeconds = res.Timings.Transcribe
	if err != nil {
		return fail(ensureKind(err, failure.Transcription, "transcribe"))
	}
	res.Text = tr.Text
	if tr.Segments != nil {
		res.Segments = tr.Segments
	}

	// classify and validate
	setState(StateClassifying)
	t0 = time.Now()
	out, err := withTimeout(ctx, o.timeouts.Classify, func(ctx context.Context) (classification.Result, error) {
		return o.deps.Classifier.Classify(ctx, transcription.Render(tr.Segments))
	})
	res.Timings.Classify = time.Since(t0).Seconds()
	res.GeminiTimeSeconds = res.Timings.Classify
	if err != nil {
		return degrade(ensureKind(err, failure.Classification, "classify"))
	}
	res.Usage = out.Usage

	outcome, err := o.deps.Validator.Validate(out.Raw)
	if err != nil {
		return degrade(ensureKind(err, failure.Validation, "validate"))
	}
	rec := outcome.Record
	res.Classification = &rec
	res.Quarantined = outcome.Quarantined
	if len(outcome.Quarantined) > 0 {
		log.WithField("quarantined", len(outcome.Quarantined)).Warn("taxonomy triples excluded")
	}

	// persist
	setState(StatePersisting)
	t0 = time.Now()
	entry, err := withTimeout(ctx, o.timeouts.Persist, func(ctx context.Context) (types.HistoryEntry, error) {
		return o.deps.Ledger.Append(ctx, rec, out.Usage)
	})
	res.Timings.Persist = time.Since(t0).Seconds()
	if err != nil {
		err = ensureKind(err, failure.Persistence, "persist")
		res.PersistenceError = err.Error()
		log.WithError(err).Error("classification not persisted")
		setState(StateDegraded)
		return res, nil
	}
	res.HistoryID = entry.ID

	setState(StateDone)
	return res, nil
}

func (o *Orchestrator) cleanup(ctx context.Context, asset types.MediaAsset, log *logger.Logger) {
	if asset.Retain || strings.TrimSpace(asset.Ref) == "" {
		return
	}
	_, err := withTimeout(ctx, o.timeouts.Cleanup, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.deps.Media.Delete(ctx, asset.Ref)
	})
	if err != nil {
		log.WithError(ensureKind(err, failure.Cleanup, "cleanup")).Warn("media cleanup failed")
		return
	}
	log.Debug("media deleted")
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

// ensureKind tags err with kind unless a stage already classified it.
func ensureKind(err error, kind failure.Kind, op string) error {
	if _, ok := failure.KindOf(err); ok {
		return err
	}
	return failure.New(kind, op, err)
}

// filenameOf picks a name for the upload so the service can sniff the format.
func filenameOf(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return "audio"
	}
	return name
}
