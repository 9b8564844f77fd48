package analytics

import (
	"fmt"
	"math"

	"audio-insights-go/internal/types"
)

const (
	trendWindow  = 10
	recentWindow = 5
	unknownLabel = "Unknown"
)

type TokenPoint struct {
	Name   string `json:"name"`
	Input  int    `json:"input"`
	Output int    `json:"output"`
}

type RecentEntry struct {
	ID               string `json:"id"`
	Timestamp        string `json:"timestamp"`
	Category         string `json:"category"`
	PromptTokens     int    `json:"promptTokens"`
	CandidatesTokens int    `json:"candidatesTokens"`
	Summary          string `json:"summary"`
}

type Summary struct {
	TotalProcessed      int            `json:"totalProcessed"`
	AvgPromptTokens     int            `json:"avgPromptTokens"`
	AvgCandidatesTokens int            `json:"avgCandidatesTokens"`
	CategoryCounts      map[string]int `json:"categoryCounts"`
	CriticalCount       int            `json:"criticalCount"`
	EscalationCount     int            `json:"escalationCount"`
	TokenTrend          []TokenPoint   `json:"tokenTrend"`
	Recent              []RecentEntry  `json:"recent"`
}

// Summarize computes dashboard figures. Entries without usage count as
// zero tokens.
func Summarize(entries []types.HistoryEntry) Summary {
	s := Summary{
		TotalProcessed: len(entries),
		CategoryCounts: map[string]int{},
		TokenTrend:     []TokenPoint{},
		Recent:         []RecentEntry{},
	}

	prompt, candidates := 0, 0
	for _, e := range entries {
		p, c := tokens(e.Usage)
		prompt += p
		candidates += c
		s.CategoryCounts[DominantCategory(e.ClassificationRecord)]++
		if e.OverallCriticalEventPresent == "yes" {
			s.CriticalCount++
		}
		if e.OverallEscalationDetected == "yes" {
			s.EscalationCount++
		}
	}
	if n := len(entries); n > 0 {
		s.AvgPromptTokens = int(math.Round(float64(prompt) / float64(n)))
		s.AvgCandidatesTokens = int(math.Round(float64(candidates) / float64(n)))
	}

	start := max(len(entries)-trendWindow, 0)
	for i, e := range entries[start:] {
		p, c := tokens(e.Usage)
		s.TokenTrend = append(s.TokenTrend, TokenPoint{Name: fmt.Sprintf("Req %d", i+1), Input: p, Output: c})
	}

	for i := len(entries) - 1; i >= 0 && len(s.Recent) < recentWindow; i-- {
		e := entries[i]
		p, c := tokens(e.Usage)
		s.Recent = append(s.Recent, RecentEntry{
			ID:               e.ID,
			Timestamp:        e.Timestamp,
			Category:         DominantCategory(e.ClassificationRecord),
			PromptTokens:     p,
			CandidatesTokens: c,
			Summary:          e.OverallAudioSummary,
		})
	}
	return s
}

// DominantCategory is the category attached to the most segment triples of
// a record, ties going to the one seen first. Records with no triples are
// "Unknown".
func DominantCategory(rec types.ClassificationRecord) string {
	counts := map[string]int{}
	var order []string
	for _, seg := range rec.Segments {
		for _, c := range seg.SegmentClassification {
			if c.Category == "" {
				continue
			}
			if counts[c.Category] == 0 {
				order = append(order, c.Category)
			}
			counts[c.Category]++
		}
	}
	best, bestN := unknownLabel, 0
	for _, cat := range order {
		if counts[cat] > bestN {
			best, bestN = cat, counts[cat]
		}
	}
	return best
}

func tokens(u *types.Usage) (int, int) {
	if u == nil {
		return 0, 0
	}
	return u.PromptTokens, u.CandidatesTokens
}
