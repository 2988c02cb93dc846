// Package ingest reads production, characterization and environment tables
// from CSV files, HTML portal exports, or remote URLs into the raw dataset
// consumed by the schema validator. It parses and coerces but never
// validates: trust is established downstream.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// grid is a parsed table: a header row and string cells, whatever the
// source format was.
type grid struct {
	header []string
	rows   [][]string
}

// Accepted timestamp layouts, matching what inverter portals export.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	// Some exports use a decimal comma.
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string) (int, error) {
	f, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func normalizeHeader(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

func (g grid) columnIndex(name string) int {
	for i, h := range g.header {
		if h == name {
			return i
		}
	}
	return -1
}

func (g grid) hasColumn(name string) bool {
	return g.columnIndex(name) >= 0
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
