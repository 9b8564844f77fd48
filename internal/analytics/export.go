package analytics

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"audio-insights-go/internal/types"
)

const (
	historySheet  = "History"
	segmentsSheet = "Segments"
)

var historyHeader = []any{
	"ID", "Timestamp", "TranscriptionID", "StationID", "Language", "Summary",
	"Segments", "Words", "Duration", "Critical", "Escalation", "DominantCategory",
	"PromptTokens", "CandidatesTokens", "TotalTokens",
}

var segmentsHeader = []any{
	"EntryID", "SegmentID", "Start", "End", "SpeakerType", "CriticalLevel",
	"Sentiment", "Category", "EventType", "SubType", "Confidence", "Tags",
}

// ExportXLSX writes the ledger as a workbook with one row per entry and one
// row per segment classification.
func ExportXLSX(entries []types.HistoryEntry, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), historySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(segmentsSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := writeRow(f, historySheet, 1, historyHeader); err != nil {
		return err
	}
	if err := writeRow(f, segmentsSheet, 1, segmentsHeader); err != nil {
		return err
	}
	for _, sheet := range []string{historySheet, segmentsSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
	}

	segRow := 2
	for i, e := range entries {
		var prompt, candidates, total int
		if e.Usage != nil {
			prompt, candidates, total = e.Usage.PromptTokens, e.Usage.CandidatesTokens, e.Usage.TotalTokens
		}
		row := []any{
			e.ID, e.Timestamp, e.TranscriptionID, e.RecordingStationID, e.OverallDominantLanguage,
			e.OverallAudioSummary, e.AudioTotalSegments, e.AudioTotalWords, e.AudioTotalDuration,
			e.OverallCriticalEventPresent, e.OverallEscalationDetected, DominantCategory(e.ClassificationRecord),
			prompt, candidates, total,
		}
		if err := writeRow(f, historySheet, i+2, row); err != nil {
			return err
		}

		for _, seg := range e.Segments {
			for _, c := range seg.SegmentClassification {
				values := []any{
					e.ID, seg.SegmentID, seg.StartingSecond, seg.EndingSecond, seg.SpeakerType,
					seg.CriticalLevel, seg.SentimentScore, c.Category, c.EventType, c.SubType,
					c.Confidence, strings.Join(c.Tags, ", "),
				}
				if err := writeRow(f, segmentsSheet, segRow, values); err != nil {
					return err
				}
				segRow++
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
