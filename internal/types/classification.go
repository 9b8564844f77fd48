// internal/types/classification.go
package types

// --------------------------------------------
// Classification record (LLM wire contract)
// --------------------------------------------
type ClassificationRecord struct {
	TranscriptionID             string    `json:"TranscriptionID"`
	RecordingStationID          string    `json:"Recording_StationID"`
	AudioOriginalTranscript     string    `json:"Audio_Original_Transcript"`
	AudioEnglishTranslation     string    `json:"Audio_English_Translation"`
	AudioTotalSegments          int       `json:"Audio_Total_Segments"`
	AudioTotalWords             int       `json:"Audio_Total_Words"`
	AudioTotalDuration          float64   `json:"Audio_Total_Duration"`
	OverallDominantLanguage     string    `json:"overall_DominantLanguage"`
	OverallAudioSummary         string    `json:"overall_AudioSummary"`
	OverallEventsKeyPoints      []string  `json:"overall_EventsKeyPoints"`
	OverallTopKeywords          []string  `json:"overall_TopKeywords"`
	OverallCriticalEventPresent string    `json:"overall_CriticalEventPresent"` // yes|no
	OverallEscalationDetected   string    `json:"overall_EscalationDetected"`   // yes|no
	OverallDetectedNamedEntity  []string  `json:"overall_DetectedNamedEntity"`
	Segments                    []Segment `json:"Segments"`
}

// --------------------------------------------
// Per-segment block
// --------------------------------------------
type Segment struct {
	SegmentID                 string                  `json:"SegmentID"`
	SegmentDuration           float64                 `json:"Segment_Duration"`
	StartingSecond            float64                 `json:"Starting_Second"`
	EndingSecond              float64                 `json:"Ending_Second"`
	Speaker                   string                  `json:"Speaker"`
	SpeakerType               string                  `json:"SpeakerType"` // Customer|Employee|Unknown
	SegmentOriginal           string                  `json:"Segment_original"`
	SegmentEnglishTranslation string                  `json:"Segment_English_Translation"`
	SegmentSummary            string                  `json:"Segment_Summary"`
	SegmentClassification     []SegmentClassification `json:"SegmentClassification"`
	KeySentences              []string                `json:"KeySentences"`
	CriticalLevel             string                  `json:"CriticalLevel"` // low|medium|high
	LanguageSpoken            string                  `json:"LanguageSpoken"`
	DetectedIntent            []string                `json:"DetectedIntent"`
	EnvironmentNoiseLevel     string                  `json:"EnvironmentNoiseLevel"` // low|medium|high
	SentimentScore            float64                 `json:"SentimentScore"`        // -1..1
	EmotionalTone             string                  `json:"EmotionalTone"`
}

// --------------------------------------------
// Taxonomy triple attached to a segment
// --------------------------------------------
type SegmentClassification struct {
	Category   string   `json:"Category"`
	EventType  string   `json:"EventType"`
	SubType    string   `json:"SubType"`
	Tags       []string `json:"Tags"`
	Confidence float64  `json:"classifyConfidenceScore"` // 0..1
	Reason     string   `json:"classifyreason"`
}

// --------------------------------------------
// Ledger entry: record fields are flattened next to id/timestamp
// --------------------------------------------
type HistoryEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	ClassificationRecord
	Usage *Usage `json:"usage,omitempty"`
}
