package types

// StageTimings holds wall-clock seconds spent in each pipeline stage.
type StageTimings struct {
	Ingest     float64 `json:"ingestSeconds"`
	Transcribe float64 `json:"transcribeSeconds"`
	Classify   float64 `json:"classifySeconds"`
	Persist    float64 `json:"persistSeconds"`
	Total      float64 `json:"totalSeconds"`
}

// QuarantinedTriple is a taxonomy triple the validator removed from a segment
// because it is not part of the closed taxonomy.
type QuarantinedTriple struct {
	SegmentID string `json:"segmentId"`
	Category  string `json:"category"`
	EventType string `json:"eventType"`
	SubType   string `json:"subType"`
}

// PipelineResult is returned by /api/v1/process.
type PipelineResult struct {
	MediaRef            string                `json:"mediaRef"`
	State               string                `json:"state"`
	Text                string                `json:"text"`
	Segments            []TranscriptSegment   `json:"segments"`
	WhisperTimeSeconds  float64               `json:"whisperTimeSeconds"`
	GeminiTimeSeconds   float64               `json:"geminiTimeSeconds"`
	Timings             StageTimings          `json:"timings"`
	Classification      *ClassificationRecord `json:"classification"`
	ClassificationError *string               `json:"classificationError"`
	Quarantined         []QuarantinedTriple   `json:"quarantined,omitempty"`
	Usage               *Usage                `json:"usage,omitempty"`
	HistoryID           string                `json:"historyId,omitempty"`
	PersistenceError    string                `json:"persistenceError,omitempty"`
	Error               string                `json:"error,omitempty"`
}
