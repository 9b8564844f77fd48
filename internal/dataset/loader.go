// Package dataset reads batch job sheets: one media ref per row of the first
// worksheet of an .xlsx workbook.
package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"audio-insights-go/internal/types"
)

// Load opens path and reads its jobs.
func Load(path string) ([]types.MediaJob, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return readJobs(f)
}

// Read is Load for an already-open workbook stream.
func Read(r io.Reader) ([]types.MediaJob, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readJobs(f)
}

type columns struct {
	ref, retain, label int
}

// detectColumns finds columns by header keywords. Without a recognizable
// media column the first column is used.
func detectColumns(header []string) columns {
	c := columns{ref: -1, retain: -1, label: -1}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "retain") || strings.Contains(l, "keep"):
			if c.retain == -1 {
				c.retain = i
			}
		case strings.Contains(l, "media") || strings.Contains(l, "audio") || strings.Contains(l, "record") ||
			strings.Contains(l, "url") || strings.Contains(l, "ref") || strings.Contains(l, "link"):
			if c.ref == -1 {
				c.ref = i
			}
		case strings.Contains(l, "label") || strings.Contains(l, "name") || strings.Contains(l, "id"):
			if c.label == -1 {
				c.label = i
			}
		}
	}
	if c.ref == -1 {
		c.ref = 0
	}
	return c
}

func readJobs(f *excelize.File) ([]types.MediaJob, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	cols := detectColumns(rows[0])
	out := []types.MediaJob{}
	for _, r := range rows[1:] {
		job := types.MediaJob{Ref: cell(r, cols.ref)}
		// blank refs are spacer rows
		if job.Ref == "" {
			continue
		}
		job.Label = cell(r, cols.label)
		job.Retain = truthy(cell(r, cols.retain))
		out = append(out, job)
	}
	return out, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "y", "yes", "true", "keep", "retain":
		return true
	}
	return false
}
