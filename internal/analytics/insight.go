package analytics

import "fmt"

// Card is a one-line recommendation derived from a Summary.
type Card struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

const alertRate = 0.35

func Insight(s Summary) Card {
	if s.TotalProcessed == 0 {
		return Card{
			Insight: "No recordings analysed yet",
			Action:  "Process store recordings to build a baseline",
			Impact:  "None until data is collected",
		}
	}

	total := float64(s.TotalProcessed)
	escalation := float64(s.EscalationCount) / total
	critical := float64(s.CriticalCount) / total

	switch {
	case escalation >= alertRate:
		return Card{
			Insight: fmt.Sprintf("Escalations detected in %.0f%% of recordings", escalation*100),
			Action:  "Review complaint handling with floor managers; add supervisor coverage at peak hours",
			Impact:  "Fewer escalated customer conflicts",
		}
	case critical >= alertRate:
		return Card{
			Insight: fmt.Sprintf("Critical events in %.0f%% of recordings", critical*100),
			Action:  "Audit security and safety incidents by station; brief staff on response procedures",
			Impact:  "Lower risk exposure on the floor",
		}
	}

	top, topN := "", 0
	for cat, n := range s.CategoryCounts {
		if cat == unknownLabel {
			continue
		}
		if n > topN || (n == topN && cat < top) {
			top, topN = cat, n
		}
	}
	if top != "" && float64(topN)/total >= 0.5 {
		return Card{
			Insight: fmt.Sprintf("%s dominates (%.0f%% of recordings)", top, float64(topN)/total*100),
			Action:  fmt.Sprintf("Prioritise %s fixes in the next store operations review", top),
			Impact:  "Targets the largest source of customer friction",
		}
	}
	return Card{
		Insight: "No strong event pattern detected",
		Action:  "Monitor and collect more data",
		Impact:  "Low immediate intervention",
	}
}
