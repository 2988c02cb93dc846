package contracts

import "time"

// Window is a contiguous time interval, inclusive on both ends. A zero
// bound leaves that side open, so a window can be half-bounded.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow builds a window from two instants in any order. A zero instant
// stays an open bound and never participates in the ordering swap.
func NewWindow(a, b time.Time) Window {
	if !a.IsZero() && !b.IsZero() && b.Before(a) {
		a, b = b, a
	}
	return Window{Start: a, End: b}
}

// Contains reports whether t falls inside the window. Open bounds admit
// every instant on their side.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// IsZero reports whether the window is unbounded on both sides.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// String renders the window for error messages and log fields.
func (w Window) String() string {
	switch {
	case w.IsZero():
		return "all-time"
	case w.Start.IsZero():
		return "until " + w.End.Format(time.RFC3339)
	case w.End.IsZero():
		return "from " + w.Start.Format(time.RFC3339)
	}
	return w.Start.Format(time.RFC3339) + ".." + w.End.Format(time.RFC3339)
}

// MonthOf returns the calendar-month window containing t, in t's location.
func MonthOf(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return Window{Start: start, End: end}
}

// Selection is a set of identifiers. An empty selection selects everything,
// matching the "all" option of the dashboard filters.
type Selection []string

// All reports whether the selection is the implicit "all".
func (s Selection) All() bool { return len(s) == 0 }

// Contains reports whether id is selected.
func (s Selection) Contains(id string) bool {
	if s.All() {
		return true
	}
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Filter restricts a computation to a subset of inverters, strings and time.
// Every engine entry point accepts one; the zero value selects everything.
type Filter struct {
	Inverters Selection `json:"inverters,omitempty"`
	Strings   Selection `json:"strings,omitempty"`
	Window    Window    `json:"window,omitempty"`
}

// Matches reports whether a measurement passes the filter.
func (f Filter) Matches(m Measurement) bool {
	return f.Inverters.Contains(m.InverterID) &&
		f.Strings.Contains(m.StringID) &&
		f.Window.Contains(m.Timestamp)
}
