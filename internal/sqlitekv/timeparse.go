package sqlitekv

import (
	"database/sql"
	"encoding/json"
	"time"
)

// timeLayouts lists the formats timestamps may appear in across TEXT
// columns: RFC3339Nano (written by this package), RFC3339, and SQLite's
// native "YYYY-MM-DD HH:MM:SS" form seen in hand-edited fixtures.
//
// The ncruces/go-sqlite3 driver only auto-converts TEXT columns to
// time.Time when they are declared DATETIME/DATE/TIME/TIMESTAMP; this
// schema uses plain TEXT for every timestamp, so parsing is manual.
var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"}

// parseNullableTime parses a nullable TEXT timestamp column.
func parseNullableTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return &t
		}
	}
	return nil
}

// parseTime parses a required TEXT timestamp column, returning the
// zero time on malformed input rather than failing the read.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// parseJSONIntArray parses a JSON int64 array from a TEXT column, used
// for SystemState.RelatedItems.
func parseJSONIntArray(s string) []int64 {
	if s == "" {
		return nil
	}
	var result []int64
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return nil
	}
	return result
}

// parseJSONStringArray parses a JSON string array from a TEXT column,
// used for SystemState.Tags.
func parseJSONStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return nil
	}
	return result
}

func formatJSONStringArray(arr []string) string {
	if len(arr) == 0 {
		return "[]"
	}
	data, err := json.Marshal(arr)
	if err != nil {
		return "[]"
	}
	return string(data)
}
