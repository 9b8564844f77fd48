// Package validation checks model output against the classification record
// contract before anything is persisted.
//
// Structural problems (missing fields, wrong JSON kinds, out-of-range values,
// unknown enum values) reject the whole record; nothing is repaired.
// Taxonomy triples that are not in the closed table are removed from their
// segment and reported as quarantined; the segment itself is always kept.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"audio-insights-go/internal/failure"
	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/taxonomy"
	"audio-insights-go/internal/types"
)

// SchemaError lists every structural problem found in one document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%d schema violation(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Outcome is a validated record plus the triples excluded from it.
type Outcome struct {
	Record      types.ClassificationRecord
	Quarantined []types.QuarantinedTriple
}

type Validator struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Validator {
	return &Validator{log: log.Component("validation")}
}

func (v *Validator) Validate(raw json.RawMessage) (Outcome, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Outcome{}, failure.New(failure.Validation, "decode", err)
	}

	c := &checker{}
	c.record(doc)
	if len(c.problems) > 0 {
		err := &SchemaError{Problems: c.problems}
		v.log.WithField("violations", len(c.problems)).Warn("classification rejected")
		return Outcome{}, failure.New(failure.Validation, "validate", err)
	}

	// integral numbers were rewritten as int64 by the checker
	norm, err := json.Marshal(doc)
	if err != nil {
		return Outcome{}, failure.New(failure.Validation, "normalize", err)
	}
	var rec types.ClassificationRecord
	if err := json.Unmarshal(norm, &rec); err != nil {
		return Outcome{}, failure.New(failure.Validation, "decode record", err)
	}

	out := Outcome{}
	for i := range rec.Segments {
		seg := &rec.Segments[i]
		kept := make([]types.SegmentClassification, 0, len(seg.SegmentClassification))
		for _, sc := range seg.SegmentClassification {
			if cat, ev, sub, ok := taxonomy.Canonical(sc.Category, sc.EventType, sc.SubType); ok {
				sc.Category, sc.EventType, sc.SubType = cat, ev, sub
				kept = append(kept, sc)
				continue
			}
			out.Quarantined = append(out.Quarantined, types.QuarantinedTriple{
				SegmentID: seg.SegmentID,
				Category:  sc.Category,
				EventType: sc.EventType,
				SubType:   sc.SubType,
			})
		}
		seg.SegmentClassification = kept
	}
	if len(out.Quarantined) > 0 {
		v.log.WithField("quarantined", len(out.Quarantined)).Warn("excluded triples outside the taxonomy")
	}

	out.Record = rec
	return out, nil
}

// ------------------------------------------------------------------
// structural checks over the generic JSON tree
// ------------------------------------------------------------------

type checker struct {
	problems []string
}

func (c *checker) addf(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

var (
	yesNo        = []string{"yes", "no"}
	speakerTypes = []string{"Customer", "Employee", "Unknown"}
	levels       = []string{"low", "medium", "high"}
)

func (c *checker) record(doc any) {
	obj, ok := doc.(map[string]any)
	if !ok {
		c.addf("document is not a JSON object")
		return
	}
	for _, f := range []string{
		"TranscriptionID", "Recording_StationID", "Audio_Original_Transcript",
		"Audio_English_Translation", "overall_DominantLanguage", "overall_AudioSummary",
	} {
		c.str(obj, f, f)
	}
	c.integer(obj, "Audio_Total_Segments", "Audio_Total_Segments")
	c.integer(obj, "Audio_Total_Words", "Audio_Total_Words")
	c.number(obj, "Audio_Total_Duration", "Audio_Total_Duration")
	for _, f := range []string{"overall_EventsKeyPoints", "overall_TopKeywords", "overall_DetectedNamedEntity"} {
		c.strings(obj, f, f)
	}
	c.enum(obj, "overall_CriticalEventPresent", "overall_CriticalEventPresent", yesNo)
	c.enum(obj, "overall_EscalationDetected", "overall_EscalationDetected", yesNo)

	segs, ok := c.array(obj, "Segments", "Segments")
	if !ok {
		return
	}
	for i, s := range segs {
		c.segment(s, fmt.Sprintf("Segments[%d]", i))
	}
}

func (c *checker) segment(v any, at string) {
	obj, ok := v.(map[string]any)
	if !ok {
		c.addf("%s: not an object", at)
		return
	}
	for _, f := range []string{
		"SegmentID", "Speaker", "Segment_original", "Segment_English_Translation",
		"Segment_Summary", "LanguageSpoken", "EmotionalTone",
	} {
		c.str(obj, f, at+"."+f)
	}
	c.number(obj, "Segment_Duration", at+".Segment_Duration")
	start, okStart := c.number(obj, "Starting_Second", at+".Starting_Second")
	end, okEnd := c.number(obj, "Ending_Second", at+".Ending_Second")
	if okStart && okEnd && start > end {
		c.addf("%s: Starting_Second %.2f is after Ending_Second %.2f", at, start, end)
	}
	c.enum(obj, "SpeakerType", at+".SpeakerType", speakerTypes)
	c.enum(obj, "CriticalLevel", at+".CriticalLevel", levels)
	c.enum(obj, "EnvironmentNoiseLevel", at+".EnvironmentNoiseLevel", levels)
	c.strings(obj, "KeySentences", at+".KeySentences")
	c.strings(obj, "DetectedIntent", at+".DetectedIntent")
	if s, ok := c.number(obj, "SentimentScore", at+".SentimentScore"); ok && (s < -1 || s > 1) {
		c.addf("%s.SentimentScore %.3f outside [-1,1]", at, s)
	}

	classes, ok := c.array(obj, "SegmentClassification", at+".SegmentClassification")
	if !ok {
		return
	}
	for j, cl := range classes {
		c.classification(cl, fmt.Sprintf("%s.SegmentClassification[%d]", at, j))
	}
}

func (c *checker) classification(v any, at string) {
	obj, ok := v.(map[string]any)
	if !ok {
		c.addf("%s: not an object", at)
		return
	}
	for _, f := range []string{"Category", "EventType", "SubType", "classifyreason"} {
		c.str(obj, f, at+"."+f)
	}
	c.strings(obj, "Tags", at+".Tags")
	if s, ok := c.number(obj, "classifyConfidenceScore", at+".classifyConfidenceScore"); ok && (s < 0 || s > 1) {
		c.addf("%s.classifyConfidenceScore %.3f outside [0,1]", at, s)
	}
}

func (c *checker) field(obj map[string]any, key, at string) (any, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		c.addf("%s: required field missing", at)
		return nil, false
	}
	return v, true
}

func (c *checker) str(obj map[string]any, key, at string) (string, bool) {
	v, ok := c.field(obj, key, at)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		c.addf("%s: expected string, got %s", at, kindOf(v))
	}
	return s, ok
}

func (c *checker) number(obj map[string]any, key, at string) (float64, bool) {
	v, ok := c.field(obj, key, at)
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	if !ok {
		c.addf("%s: expected number, got %s", at, kindOf(v))
	}
	return n, ok
}

func (c *checker) integer(obj map[string]any, key, at string) {
	n, ok := c.number(obj, key, at)
	if !ok {
		return
	}
	if n != math.Trunc(n) || math.IsInf(n, 0) {
		c.addf("%s: expected integer, got %v", at, n)
		return
	}
	obj[key] = int64(n)
}

func (c *checker) array(obj map[string]any, key, at string) ([]any, bool) {
	v, ok := c.field(obj, key, at)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	if !ok {
		c.addf("%s: expected array, got %s", at, kindOf(v))
	}
	return arr, ok
}

func (c *checker) strings(obj map[string]any, key, at string) {
	arr, ok := c.array(obj, key, at)
	if !ok {
		return
	}
	for i, item := range arr {
		if _, ok := item.(string); !ok {
			c.addf("%s[%d]: expected string, got %s", at, i, kindOf(item))
		}
	}
}

func (c *checker) enum(obj map[string]any, key, at string, allowed []string) {
	s, ok := c.str(obj, key, at)
	if !ok {
		return
	}
	for _, a := range allowed {
		if s == a {
			return
		}
	}
	c.addf("%s: %q not one of %s", at, s, strings.Join(allowed, "|"))
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
