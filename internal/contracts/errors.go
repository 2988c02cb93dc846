package contracts

import "fmt"

// MissingColumnError reports a required column absent from an input table.
// Fatal to the requested computation.
type MissingColumnError struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

func (e MissingColumnError) Error() string {
	return fmt.Sprintf("table %q: missing required column %q", e.Table, e.Column)
}

// UnknownStringError reports a production string_id with no characterization
// record. Fatal to the requested computation.
type UnknownStringError struct {
	StringID   string `json:"string_id"`
	InverterID string `json:"inverter_id"`
}

func (e UnknownStringError) Error() string {
	return fmt.Sprintf("string %q (inverter %q) has no characterization record", e.StringID, e.InverterID)
}

// TimeRangeEmptyError reports that no rows survived a requested filter.
// Fatal to the requested computation.
type TimeRangeEmptyError struct {
	Window Window `json:"window"`
}

func (e TimeRangeEmptyError) Error() string {
	return fmt.Sprintf("no samples in window %s after filtering", e.Window)
}

// InsufficientDataError reports that too few strings had defined ratios in a
// window for anomaly statistics to mean anything. Non-fatal: the window is
// excluded from anomaly output and other windows proceed.
type InsufficientDataError struct {
	Window   Window `json:"window"`
	GroupID  string `json:"group_id"` // inverter_id, or "site"
	Defined  int    `json:"defined"`
	Required int    `json:"required"`
}

func (e InsufficientDataError) Error() string {
	return fmt.Sprintf("group %q window %s: %d defined ratios, need %d for anomaly detection",
		e.GroupID, e.Window, e.Defined, e.Required)
}
