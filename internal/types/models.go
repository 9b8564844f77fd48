package types

// MediaAsset is a reference to stored media bytes. Retain=false marks the
// asset as ephemeral: the pipeline deletes it once processing ends.
type MediaAsset struct {
	Ref    string `json:"mediaRef"`
	Retain bool   `json:"retain"`
}

// TranscriptSegment is one time span of transcribed audio, in seconds.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the speech-to-text output. Segments keep the order the
// service produced them in.
type Transcript struct {
	Text     string              `json:"text"`
	Language string              `json:"language,omitempty"`
	Duration float64             `json:"duration,omitempty"`
	Segments []TranscriptSegment `json:"segments"`
}

// Usage is the token accounting reported by the classification service.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CandidatesTokens int `json:"candidatesTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// MediaJob is one row of a batch input sheet.
type MediaJob struct {
	Ref    string `json:"media_ref"`
	Retain bool   `json:"retain"`
	Label  string `json:"label,omitempty"`
}
