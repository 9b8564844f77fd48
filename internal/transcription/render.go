package transcription

import (
	"fmt"
	"strings"

	"audio-insights-go/internal/types"
)

// Render turns segments into the timestamped text the classifier reads:
// one "start - end text" line per segment, in the order given.
func Render(segments []types.TranscriptSegment) string {
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, fmt.Sprintf("%.2f - %.2f %s", s.Start, s.End, strings.TrimSpace(s.Text)))
	}
	return strings.Join(lines, "\n")
}

// checkOrder rejects segments that end before they start or whose start
// moves backwards. Segments are never re-sorted.
func checkOrder(segments []types.TranscriptSegment) error {
	for i, s := range segments {
		if s.Start > s.End {
			return fmt.Errorf("segment %d ends before it starts (%.2f > %.2f)", i, s.Start, s.End)
		}
		if i > 0 && s.Start < segments[i-1].Start {
			return fmt.Errorf("segment %d starts at %.2f, before segment %d at %.2f", i, s.Start, i-1, segments[i-1].Start)
		}
	}
	return nil
}
