package contracts

import (
	"testing"
	"time"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWindowContainsInclusive(t *testing.T) {
	w := NewWindow(ts("2025-06-01T00:00:00Z"), ts("2025-06-30T23:59:59Z"))

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"start boundary", w.Start, true},
		{"end boundary", w.End, true},
		{"inside", ts("2025-06-15T12:00:00Z"), true},
		{"before", ts("2025-05-31T23:59:59Z"), false},
		{"after", ts("2025-07-01T00:00:00Z"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := w.Contains(tc.at); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestZeroWindowContainsEverything(t *testing.T) {
	var w Window
	if !w.IsZero() {
		t.Fatal("zero window should report IsZero")
	}
	if !w.Contains(ts("1999-01-01T00:00:00Z")) {
		t.Error("zero window should contain any instant")
	}
}

func TestHalfBoundedWindows(t *testing.T) {
	tests := []struct {
		name string
		w    Window
		at   time.Time
		want bool
	}{
		{"from-only includes later", NewWindow(ts("2025-06-01T00:00:00Z"), time.Time{}), ts("2025-07-15T00:00:00Z"), true},
		{"from-only includes start", NewWindow(ts("2025-06-01T00:00:00Z"), time.Time{}), ts("2025-06-01T00:00:00Z"), true},
		{"from-only excludes earlier", NewWindow(ts("2025-06-01T00:00:00Z"), time.Time{}), ts("2020-01-01T00:00:00Z"), false},
		{"to-only includes earlier", NewWindow(time.Time{}, ts("2025-06-01T00:00:00Z")), ts("2020-01-01T00:00:00Z"), true},
		{"to-only excludes later", NewWindow(time.Time{}, ts("2025-06-01T00:00:00Z")), ts("2025-07-15T00:00:00Z"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.w.Contains(tc.at); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestNewWindowKeepsOpenBound(t *testing.T) {
	w := NewWindow(ts("2025-06-01T00:00:00Z"), time.Time{})
	if !w.Start.Equal(ts("2025-06-01T00:00:00Z")) || !w.End.IsZero() {
		t.Errorf("open end bound must not swap with the start: %v", w)
	}
	if w.IsZero() {
		t.Error("half-bounded window should not report IsZero")
	}
}

func TestNewWindowSwapsReversedBounds(t *testing.T) {
	w := NewWindow(ts("2025-06-30T00:00:00Z"), ts("2025-06-01T00:00:00Z"))
	if w.End.Before(w.Start) {
		t.Errorf("bounds not normalized: %v", w)
	}
}

func TestMonthOf(t *testing.T) {
	w := MonthOf(ts("2025-06-15T12:34:56Z"))
	if w.Start != ts("2025-06-01T00:00:00Z") {
		t.Errorf("start = %v", w.Start)
	}
	if !w.Contains(ts("2025-06-30T23:59:59Z")) {
		t.Error("month window should contain the last second of the month")
	}
	if w.Contains(ts("2025-07-01T00:00:00Z")) {
		t.Error("month window should not contain the next month")
	}
}

func TestSelection(t *testing.T) {
	var all Selection
	if !all.All() || !all.Contains("anything") {
		t.Error("empty selection should select everything")
	}

	some := Selection{"inverter 1", "inverter 3"}
	if some.All() {
		t.Error("non-empty selection should not be All")
	}
	if !some.Contains("inverter 1") || some.Contains("inverter 2") {
		t.Error("selection membership wrong")
	}
}

func TestFilterMatches(t *testing.T) {
	f := Filter{
		Inverters: Selection{"inverter 1"},
		Strings:   Selection{"string 1", "string 2"},
		Window:    NewWindow(ts("2025-06-01T00:00:00Z"), ts("2025-06-30T00:00:00Z")),
	}

	m := Measurement{Timestamp: ts("2025-06-10T10:00:00Z"), InverterID: "inverter 1", StringID: "string 2"}
	if !f.Matches(m) {
		t.Error("expected match")
	}

	m.InverterID = "inverter 2"
	if f.Matches(m) {
		t.Error("wrong inverter should not match")
	}

	m.InverterID = "inverter 1"
	m.Timestamp = ts("2025-07-10T10:00:00Z")
	if f.Matches(m) {
		t.Error("out-of-window should not match")
	}
}
