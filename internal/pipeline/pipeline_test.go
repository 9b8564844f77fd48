package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"audio-insights-go/internal/classification"
	"audio-insights-go/internal/config"
	"audio-insights-go/internal/docstore"
	"audio-insights-go/internal/failure"
	"audio-insights-go/internal/ledger"
	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/types"
	"audio-insights-go/internal/validation"
)

type fakeMedia struct {
	mu        sync.Mutex
	fetchErr  error
	deleteErr error
	deleted   []string
}

func (f *fakeMedia) Fetch(_ context.Context, ref string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return []byte("audio:" + ref), nil
}

func (f *fakeMedia) Delete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return f.deleteErr
}

func (f *fakeMedia) deletions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeTranscriber struct {
	mu           sync.Mutex
	err          error
	gotFilename  string
	transcribeFn func(ctx context.Context) error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ []byte, filename string) (types.Transcript, error) {
	f.mu.Lock()
	f.gotFilename = filename
	f.mu.Unlock()
	if f.transcribeFn != nil {
		if err := f.transcribeFn(ctx); err != nil {
			return types.Transcript{}, err
		}
	}
	if f.err != nil {
		return types.Transcript{}, f.err
	}
	return types.Transcript{
		Text: "Hello Welcome",
		Segments: []types.TranscriptSegment{
			{Start: 0, End: 2.5, Text: "Hello"},
			{Start: 2.5, End: 5, Text: "Welcome"},
		},
	}, nil
}

type fakeClassifier struct {
	mu      sync.Mutex
	raw     string
	err     error
	gotText string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (classification.Result, error) {
	f.mu.Lock()
	f.gotText = text
	f.mu.Unlock()
	if f.err != nil {
		return classification.Result{}, f.err
	}
	return classification.Result{
		Raw:   json.RawMessage(f.raw),
		Usage: &types.Usage{PromptTokens: 100, CandidatesTokens: 40, TotalTokens: 140},
	}, nil
}

// typedValidator only checks that the payload decodes into a record.
type typedValidator struct {
	err error
}

func (v typedValidator) Validate(raw json.RawMessage) (validation.Outcome, error) {
	if v.err != nil {
		return validation.Outcome{}, v.err
	}
	var rec types.ClassificationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return validation.Outcome{}, failure.New(failure.Validation, "decode", err)
	}
	return validation.Outcome{Record: rec}, nil
}

type failingLedger struct{}

func (failingLedger) Append(context.Context, types.ClassificationRecord, *types.Usage) (types.HistoryEntry, error) {
	return types.HistoryEntry{}, failure.New(failure.Persistence, "append", errors.New("bucket unavailable"))
}

type fixture struct {
	media       *fakeMedia
	transcriber *fakeTranscriber
	classifier  *fakeClassifier
	validator   Validator
	ledger      Appender
	store       *docstore.Memory
}

func newFixture() *fixture {
	store := docstore.NewMemory()
	return &fixture{
		media:       &fakeMedia{},
		transcriber: &fakeTranscriber{},
		classifier:  &fakeClassifier{raw: `{"TranscriptionID":"tr-1","Segments":[]}`},
		validator:   typedValidator{},
		ledger:      ledger.New(store, "", logger.Discard(), ledger.Options{}),
		store:       store,
	}
}

func (f *fixture) orchestrator() *Orchestrator {
	return New(Deps{
		Media:       f.media,
		Transcriber: f.transcriber,
		Classifier:  f.classifier,
		Validator:   f.validator,
		Ledger:      f.ledger,
	}, Timeouts{Fetch: time.Second, Transcribe: time.Second, Classify: time.Second, Persist: time.Second, Cleanup: time.Second}, logger.Discard())
}

func (f *fixture) ledgerLen(t *testing.T) int {
	t.Helper()
	entries, err := ledger.New(f.store, "", logger.Discard(), ledger.Options{}).ReadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestProcessHappyPath(t *testing.T) {
	f := newFixture()
	res, err := f.orchestrator().Process(context.Background(), types.MediaAsset{Ref: "https://blob.example/calls/a.mp3?x=1"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.State != string(StateDone) {
		t.Fatalf("state = %s", res.State)
	}
	if res.Classification == nil || res.Classification.TranscriptionID != "tr-1" {
		t.Fatalf("classification = %+v", res.Classification)
	}
	if res.ClassificationError != nil {
		t.Fatalf("unexpected classification error %q", *res.ClassificationError)
	}
	if res.Usage == nil || res.Usage.TotalTokens != 140 {
		t.Fatalf("usage = %+v", res.Usage)
	}
	if res.HistoryID == "" || f.ledgerLen(t) != 1 {
		t.Fatalf("ledger not appended (historyId=%q)", res.HistoryID)
	}
	if want := "0.00 - 2.50 Hello\n2.50 - 5.00 Welcome"; f.classifier.gotText != want {
		t.Fatalf("classifier input = %q, want %q", f.classifier.gotText, want)
	}
	if f.transcriber.gotFilename != "a.mp3" {
		t.Fatalf("filename = %q", f.transcriber.gotFilename)
	}
	if len(res.Segments) != 2 || res.Text != "Hello Welcome" {
		t.Fatalf("transcript not returned: %+v", res)
	}
	if res.Timings.Total < res.Timings.Transcribe || res.WhisperTimeSeconds != res.Timings.Transcribe || res.GeminiTimeSeconds != res.Timings.Classify {
		t.Fatalf("timings inconsistent: %+v", res)
	}
	if d := f.media.deletions(); len(d) != 1 {
		t.Fatalf("deletions = %v, want exactly one", d)
	}
}

func TestProcessBadModelOutputDegrades(t *testing.T) {
	f := newFixture()
	f.classifier.err = failure.New(failure.Classification, "parse model output", errors.New("response is not valid JSON"))

	res, err := f.orchestrator().Process(context.Background(), types.MediaAsset{Ref: "https://blob.example/a.mp3"})
	if err != nil {
		t.Fatalf("classification failure must not be fatal: %v", err)
	}
	if res.State != string(StateDegraded) {
		t.Fatalf("state = %s", res.State)
	}
	if res.Classification != nil || res.ClassificationError == nil || *res.ClassificationError == "" {
		t.Fatalf("want null classification with error, got %+v / %v", res.Classification, res.ClassificationError)
	}
	if len(res.Segments) != 2 {
		t.Fatal("transcript was discarded")
	}
	if f.ledgerLen(t) != 0 {
		t.Fatal("degraded classification must not be persisted")
	}
	if len(f.media.deletions()) != 1 {
		t.Fatal("asset not cleaned up")
	}
}

func TestProcessValidationRejectDegrades(t *testing.T) {
	f := newFixture()
	f.validator = typedValidator{err: failure.New(failure.Validation, "validate", &validation.SchemaError{Problems: []string{"Segments: missing"}})}

	res, err := f.orchestrator().Process(context.Background(), types.MediaAsset{Ref: "https://blob.example/a.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != string(StateDegraded) || res.Classification != nil || res.ClassificationError == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if f.ledgerLen(t) != 0 {
		t.Fatal("rejected record was persisted")
	}
}

// conformingRecord is a full record that passes the real validator; seg-1
// carries one known triple and one outside the table.
func conformingRecord(t *testing.T) string {
	t.Helper()
	triple := func(cat, event, sub string) map[string]any {
		return map[string]any{
			"Category": cat, "EventType": event, "SubType": sub,
			"Tags": []string{"checkout"}, "classifyConfidenceScore": 0.8, "classifyreason": "mentioned",
		}
	}
	seg := map[string]any{
		"SegmentID": "seg-1", "Segment_Duration": 2.5, "Starting_Second": 0.0, "Ending_Second": 2.5,
		"Speaker": "S1", "SpeakerType": "Customer",
		"Segment_original": "Hello", "Segment_English_Translation": "Hello", "Segment_Summary": "greeting",
		"SegmentClassification": []map[string]any{
			triple("Transactional", "Check-out Issues", "Pricing Confusion"),
			triple("Weather", "Rain", "Drizzle"),
		},
		"KeySentences": []string{"Hello"}, "CriticalLevel": "low", "LanguageSpoken": "English",
		"DetectedIntent": []string{"greet"}, "EnvironmentNoiseLevel": "low",
		"SentimentScore": 0.1, "EmotionalTone": "calm",
	}
	rec := map[string]any{
		"TranscriptionID": "tr-9", "Recording_StationID": "store-3",
		"Audio_Original_Transcript": "Hello Welcome", "Audio_English_Translation": "Hello Welcome",
		"Audio_Total_Segments": 1, "Audio_Total_Words": 2, "Audio_Total_Duration": 5.0,
		"overall_DominantLanguage": "English", "overall_AudioSummary": "greeting",
		"overall_EventsKeyPoints": []string{}, "overall_TopKeywords": []string{"hello"},
		"overall_CriticalEventPresent": "no", "overall_EscalationDetected": "no",
		"overall_DetectedNamedEntity": []string{},
		"Segments": []map[string]any{seg},
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestProcessQuarantineReachesResultAndLedger(t *testing.T) {
	f := newFixture()
	f.classifier.raw = conformingRecord(t)
	f.validator = validation.New(logger.Discard())

	res, err := f.orchestrator().Process(context.Background(), types.MediaAsset{Ref: "https://blob.example/a.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != string(StateDone) {
		t.Fatalf("state = %s", res.State)
	}
	if len(res.Quarantined) != 1 || res.Quarantined[0].SubType != "Drizzle" || res.Quarantined[0].SegmentID != "seg-1" {
		t.Fatalf("quarantined = %+v", res.Quarantined)
	}

	entries, err := ledger.New(f.store, "", logger.Discard(), ledger.Options{}).ReadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger has %d entries", len(entries))
	}
	kept := entries[0].Segments[0].SegmentClassification
	if len(kept) != 1 || kept[0].SubType != "Pricing Confusion" {
		t.Fatalf("persisted triples = %+v", kept)
	}
}

func TestProcessUnparseableModelReplyDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "m",
			"choices": []any{map[string]any{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": "```json\n{\"Segments\": [\n```"},
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, string(body))
	}))
	defer srv.Close()

	f := newFixture()
	o := New(Deps{
		Media:       f.media,
		Transcriber: f.transcriber,
		Classifier:  classification.New(config.LLMConfig{BaseURL: srv.URL + "/v1", APIKey: "k", Model: "m", Timeout: 5 * time.Second}, logger.Discard()),
		Validator:   validation.New(logger.Discard()),
		Ledger:      f.ledger,
	}, Timeouts{Fetch: time.Second, Transcribe: time.Second, Classify: 5 * time.Second, Persist: time.Second, Cleanup: time.Second}, logger.Discard())

	res, err := o.Process(context.Background(), types.MediaAsset{Ref: "https://blob.example/a.mp3"})
	if err != nil {
		t.Fatalf("unparseable reply must not be fatal: %v", err)
	}
	if res.State != string(StateDegraded) {
		t.Fatalf("state = %s", res.State)
	}
	if res.Classification != nil || res.ClassificationError == nil {
		t.Fatalf("classification = %+v, error = %v", res.Classification, res.ClassificationError)
	}
	if len(res.Segments) != 2 {
		t.Fatal("transcript was discarded")
	}
	if f.ledgerLen(t) != 0 {
		t.Fatal("degraded classification was persisted")
	}
}

func TestProcessPersistenceFailureKeepsClassification(t *testing.T) {
	f := newFixture()
	f.ledger = failingLedger{}

	res, err := f.orchestrator().Process(context.Background(), types.MediaAsset{Ref: "https://blob.example/a.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != string(StateDegraded) {
		t.Fatalf("state = %s", res.State)
	}
	if res.Classification == nil {
		t.Fatal("classification dropped on persistence failure")
	}
	if res.PersistenceError == "" || res.HistoryID != "" {
		t.Fatalf("persistence failure not reported: %+v", res)
	}
	if len(f.media.deletions()) != 1 {
		t.Fatal("asset not cleaned up")
	}
}

func TestProcessFatalStages(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fixture)
		kind  failure.Kind
	}{
		{"ingestion", func(f *fixture) { f.media.fetchErr = errors.New("connection refused") }, failure.Ingestion},
		{"transcription", func(f *fixture) {
			f.transcriber.err = failure.New(failure.Transcription, "transcribe", errors.New("502"))
		}, failure.Transcription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)
			res, err := f.orchestrator().Process(context.Background(), types.MediaAsset{Ref: "https://blob.example/a.mp3"})
			if !failure.Is(err, tt.kind) {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
			if res.State != string(StateFailed) || res.Error != err.Error() {
				t.Fatalf("result = %+v", res)
			}
			if f.classifier.gotText != "" {
				t.Fatal("classification attempted after fatal failure")
			}
			if len(f.media.deletions()) != 1 {
				t.Fatalf("deletions = %v, want exactly one", f.media.deletions())
			}
		})
	}
}

func TestCleanupExactlyOnceOnEveryPath(t *testing.T) {
	setups := map[string]func(*fixture){
		"done":          func(*fixture) {},
		"ingest":        func(f *fixture) { f.media.fetchErr = errors.New("gone") },
		"transcribe":    func(f *fixture) { f.transcriber.err = errors.New("boom") },
		"classify":      func(f *fixture) { f.classifier.err = errors.New("boom") },
		"persist":       func(f *fixture) { f.ledger = failingLedger{} },
		"deleteFailing": func(f *fixture) { f.media.deleteErr = errors.New("forbidden") },
	}
	for name, setup := range setups {
		for _, retain := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/retain=%v", name, retain), func(t *testing.T) {
				f := newFixture()
				setup(f)
				res, _ := f.orchestrator().Process(context.Background(), types.MediaAsset{Ref: "https://blob.example/a.mp3", Retain: retain})
				want := 1
				if retain {
					want = 0
				}
				if got := len(f.media.deletions()); got != want {
					t.Fatalf("deletions = %d, want %d", got, want)
				}
				if name == "deleteFailing" && res.State != string(StateDone) {
					t.Fatalf("cleanup failure changed the outcome: %s", res.State)
				}
			})
		}
	}
}

func TestProcessIgnoresCallerCancellation(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.transcriber.transcribeFn = func(stageCtx context.Context) error {
		cancel()
		return stageCtx.Err()
	}
	res, err := f.orchestrator().Process(ctx, types.MediaAsset{Ref: "https://blob.example/a.mp3"})
	if err != nil {
		t.Fatalf("caller cancellation leaked into a stage: %v", err)
	}
	if res.State != string(StateDone) {
		t.Fatalf("state = %s", res.State)
	}
}

func TestProcessStageTimeout(t *testing.T) {
	f := newFixture()
	f.transcriber.transcribeFn = func(stageCtx context.Context) error {
		<-stageCtx.Done()
		return stageCtx.Err()
	}
	o := f.orchestrator()
	o.timeouts.Transcribe = 20 * time.Millisecond
	_, err := o.Process(context.Background(), types.MediaAsset{Ref: "https://blob.example/a.mp3"})
	if !failure.Is(err, failure.Transcription) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want transcription deadline error", err)
	}
}

func TestProcessEmptyRef(t *testing.T) {
	f := newFixture()
	_, err := f.orchestrator().Process(context.Background(), types.MediaAsset{Ref: "  "})
	if !failure.Is(err, failure.Ingestion) {
		t.Fatalf("err = %v", err)
	}
	if len(f.media.deletions()) != 0 {
		t.Fatal("nothing to clean up for an empty ref")
	}
}

func TestRunBatch(t *testing.T) {
	f := newFixture()
	jobs := make([]types.MediaJob, 8)
	for i := range jobs {
		jobs[i] = types.MediaJob{Ref: fmt.Sprintf("https://blob.example/%d.mp3", i), Retain: i%2 == 0}
	}
	results := f.orchestrator().RunBatch(context.Background(), jobs, 3)

	if len(results) != len(jobs) {
		t.Fatalf("results = %d", len(results))
	}
	for i, r := range results {
		if r.Job.Ref != jobs[i].Ref || r.Result.MediaRef != jobs[i].Ref {
			t.Errorf("result %d out of order: %+v", i, r.Job)
		}
		if r.Result.State != string(StateDone) {
			t.Errorf("job %d state = %s", i, r.Result.State)
		}
	}
	if n := f.ledgerLen(t); n != len(jobs) {
		t.Fatalf("ledger has %d entries, want %d", n, len(jobs))
	}
	if d := f.media.deletions(); len(d) != len(jobs)/2 {
		t.Fatalf("deletions = %d, want %d", len(d), len(jobs)/2)
	}
}

func TestFilenameOf(t *testing.T) {
	cases := map[string]string{
		"https://x.example/a/b/call.wav?sig=1": "call.wav",
		"recordings/2025/c.mp3":                "c.mp3",
		"https://x.example/":                   "audio",
	}
	for ref, want := range cases {
		if got := filenameOf(ref); got != want {
			t.Errorf("filenameOf(%q) = %q, want %q", ref, got, want)
		}
	}
}
