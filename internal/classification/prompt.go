package classification

import (
	"fmt"

	"audio-insights-go/internal/taxonomy"
)

// BuildPrompt builds the classification prompt around the timestamped transcript.
// The taxonomy block is rendered from the taxonomy table so the prompt and the
// validator can never drift apart.
func BuildPrompt(timestampedText string) string {
	prompt := `You are an in-store audio intelligence engine for a retail chain.

You receive a TIMESTAMPED TRANSCRIPT recorded at a store. Each line is
"<start seconds> - <end seconds> <spoken text>". Every line is one segment.

Your job:
1. Produce one entry in "Segments" for EVERY transcript line, in the same order.
2. Classify each segment ONLY against the CLOSED TAXONOMY below.
3. Summarize the whole recording in the overall_* fields.

----------------------------------------------------------------------
CLOSED TAXONOMY (use these exact strings, nothing else)
%s
----------------------------------------------------------------------

STRICT OUTPUT RULES:
- Category, EventType and SubType MUST be copied verbatim from the taxonomy.
  Never invent, merge, abbreviate or translate them.
- If no taxonomy entry matches a segment, output "SegmentClassification": []
  for that segment. NEVER drop the segment.
- overall_CriticalEventPresent and overall_EscalationDetected are "yes" or "no".
- SpeakerType is "Customer", "Employee" or "Unknown".
- CriticalLevel and EnvironmentNoiseLevel are "low", "medium" or "high".
- classifyConfidenceScore is a number between 0 and 1.
- SentimentScore is a number between -1 and 1.
- Starting_Second and Ending_Second come from the transcript line;
  Segment_Duration = Ending_Second - Starting_Second.
- Audio_Total_Segments and Audio_Total_Words are integers.
- DO NOT include commentary. DO NOT wrap the JSON in backticks.

SCHEMA (STRICT - RETURN ONLY JSON)
{
  "TranscriptionID": "",
  "Recording_StationID": "",
  "Audio_Original_Transcript": "",
  "Audio_English_Translation": "",
  "Audio_Total_Segments": 0,
  "Audio_Total_Words": 0,
  "Audio_Total_Duration": 0.0,
  "overall_DominantLanguage": "",
  "overall_AudioSummary": "",
  "overall_EventsKeyPoints": [],
  "overall_TopKeywords": [],
  "overall_CriticalEventPresent": "no",
  "overall_EscalationDetected": "no",
  "overall_DetectedNamedEntity": [],
  "Segments": [
    {
      "SegmentID": "",
      "Segment_Duration": 0.0,
      "Starting_Second": 0.0,
      "Ending_Second": 0.0,
      "Speaker": "",
      "SpeakerType": "Unknown",
      "Segment_original": "",
      "Segment_English_Translation": "",
      "Segment_Summary": "",
      "SegmentClassification": [
        {
          "Category": "",
          "EventType": "",
          "SubType": "",
          "Tags": [],
          "classifyConfidenceScore": 0.0,
          "classifyreason": ""
        }
      ],
      "KeySentences": [],
      "CriticalLevel": "low",
      "LanguageSpoken": "",
      "DetectedIntent": [],
      "EnvironmentNoiseLevel": "low",
      "SentimentScore": 0.0,
      "EmotionalTone": ""
    }
  ]
}

----------------------------------------------------------------------
TIMESTAMPED TRANSCRIPT:
%s

----------------------------------------------------------------------
Return ONLY valid JSON that exactly matches the SCHEMA.
`
	return fmt.Sprintf(prompt, taxonomy.Instructions(), timestampedText)
}
