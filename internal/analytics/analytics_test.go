package analytics

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/types"
)

type stubLedger struct {
	entries []types.HistoryEntry
	err     error
}

func (s stubLedger) ReadAll(context.Context) ([]types.HistoryEntry, error) {
	return s.entries, s.err
}

func entry(id string, usage *types.Usage, critical, escalation string, categories ...string) types.HistoryEntry {
	var classes []types.SegmentClassification
	for _, c := range categories {
		classes = append(classes, types.SegmentClassification{Category: c, EventType: "e", SubType: "s", Tags: []string{"a", "b"}, Confidence: 0.8})
	}
	return types.HistoryEntry{
		ID:        id,
		Timestamp: "2025-12-01T10:00:00Z",
		ClassificationRecord: types.ClassificationRecord{
			TranscriptionID:             "tr-" + id,
			OverallCriticalEventPresent: critical,
			OverallEscalationDetected:   escalation,
			OverallAudioSummary:         "summary " + id,
			Segments:                    []types.Segment{{SegmentID: "s1", SegmentClassification: classes}},
		},
		Usage: usage,
	}
}

func TestGetHistory(t *testing.T) {
	ctx := context.Background()
	want := []types.HistoryEntry{entry("1", nil, "no", "no")}
	got := NewReader(stubLedger{entries: want}, logger.Discard()).GetHistory(ctx)
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("GetHistory = %+v", got)
	}

	got = NewReader(stubLedger{err: errors.New("bucket offline")}, logger.Discard()).GetHistory(ctx)
	if got == nil || len(got) != 0 {
		t.Fatalf("GetHistory on failure = %#v, want empty slice", got)
	}
}

func TestSummarize(t *testing.T) {
	entries := []types.HistoryEntry{
		entry("1", &types.Usage{PromptTokens: 100, CandidatesTokens: 10}, "yes", "no", "Transactional", "Transactional", "Operational"),
		entry("2", &types.Usage{PromptTokens: 201, CandidatesTokens: 21}, "no", "yes", "Customer Service"),
		entry("3", nil, "no", "no"),
	}
	s := Summarize(entries)

	if s.TotalProcessed != 3 {
		t.Errorf("total = %d", s.TotalProcessed)
	}
	if s.AvgPromptTokens != 100 || s.AvgCandidatesTokens != 10 {
		t.Errorf("averages = %d/%d, want 100/10", s.AvgPromptTokens, s.AvgCandidatesTokens)
	}
	if s.CategoryCounts["Transactional"] != 1 || s.CategoryCounts["Customer Service"] != 1 || s.CategoryCounts["Unknown"] != 1 {
		t.Errorf("categories = %v", s.CategoryCounts)
	}
	if s.CriticalCount != 1 || s.EscalationCount != 1 {
		t.Errorf("critical/escalation = %d/%d", s.CriticalCount, s.EscalationCount)
	}
	if len(s.TokenTrend) != 3 || s.TokenTrend[0].Name != "Req 1" || s.TokenTrend[1].Input != 201 {
		t.Errorf("trend = %+v", s.TokenTrend)
	}
	if len(s.Recent) != 3 || s.Recent[0].ID != "3" || s.Recent[2].ID != "1" {
		t.Errorf("recent should be newest first: %+v", s.Recent)
	}
}

func TestSummarizeWindows(t *testing.T) {
	var entries []types.HistoryEntry
	for i := 0; i < 15; i++ {
		entries = append(entries, entry(string(rune('a'+i)), &types.Usage{PromptTokens: i}, "no", "no"))
	}
	s := Summarize(entries)
	if len(s.TokenTrend) != 10 || s.TokenTrend[0].Input != 5 || s.TokenTrend[9].Input != 14 {
		t.Fatalf("trend should cover the last 10 entries: %+v", s.TokenTrend)
	}
	if len(s.Recent) != 5 {
		t.Fatalf("recent = %d", len(s.Recent))
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalProcessed != 0 || s.AvgPromptTokens != 0 || s.TokenTrend == nil || s.Recent == nil {
		t.Fatalf("empty summary = %+v", s)
	}
}

func TestInsight(t *testing.T) {
	if c := Insight(Summary{}); !strings.Contains(c.Insight, "No recordings") {
		t.Errorf("empty card = %+v", c)
	}
	if c := Insight(Summary{TotalProcessed: 10, EscalationCount: 4}); !strings.Contains(c.Insight, "Escalations detected in 40%") {
		t.Errorf("escalation card = %+v", c)
	}
	if c := Insight(Summary{TotalProcessed: 10, CriticalCount: 5}); !strings.Contains(c.Insight, "Critical events in 50%") {
		t.Errorf("critical card = %+v", c)
	}
	c := Insight(Summary{TotalProcessed: 4, CategoryCounts: map[string]int{"Operational": 3, "Unknown": 1}})
	if !strings.HasPrefix(c.Insight, "Operational dominates") {
		t.Errorf("category card = %+v", c)
	}
	c = Insight(Summary{TotalProcessed: 4, CategoryCounts: map[string]int{"Operational": 1, "Unknown": 3}})
	if c.Insight != "No strong event pattern detected" {
		t.Errorf("fallback card = %+v", c)
	}
}

func TestExportXLSX(t *testing.T) {
	entries := []types.HistoryEntry{
		entry("1", &types.Usage{PromptTokens: 100, CandidatesTokens: 10, TotalTokens: 110}, "yes", "no", "Transactional", "Operational"),
		entry("2", nil, "no", "no"),
	}
	var buf bytes.Buffer
	if err := ExportXLSX(entries, &buf); err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(historySheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("history rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "ID" || rows[1][0] != "1" || rows[1][11] != "Transactional" || rows[1][14] != "110" {
		t.Fatalf("history row = %v", rows[1])
	}

	segs, err := f.GetRows(segmentsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 3 {
		t.Fatalf("segment rows = %d, want header + 2 triples", len(segs))
	}
	if segs[2][7] != "Operational" || segs[2][11] != "a, b" {
		t.Fatalf("segment row = %v", segs[2])
	}
}
