package deadline

import (
	"regexp"
	"strings"
	"time"
)

// Required sheet columns, in header order.
const (
	FieldDate           = "Date"
	FieldTopic          = "Topic"
	FieldBlock          = "Block"
	FieldWho            = "Who"
	FieldFirstDeadline  = "First deadline"
	FieldSecondDeadline = "Second deadline"
)

// Fields lists the required columns of the record source, in order.
func Fields() []string {
	return []string{FieldDate, FieldTopic, FieldBlock, FieldWho, FieldFirstDeadline, FieldSecondDeadline}
}

// Record is one obligation row. Records are ephemeral: rebuilt from scratch
// on every read cycle, with no identity across reads.
//
// Date fields use the zero time.Time for "absent". Absence is never
// conflated with a parse error: malformed and empty input both yield it.
type Record struct {
	PostDate time.Time
	Topic    string
	Block    string
	// Tag is the assignee tag; non-empty values begin with "@" by
	// convention, empty means unassigned.
	Tag       string
	Deadline1 time.Time
	Deadline2 time.Time
}

// dateLayouts are tried in order; first match wins.
var dateLayouts = []string{"02/01/2006", "02.01.2006", "2006-01-02"}

// ParseDate accepts "14/01/2026", "07.01.2026" and "2026-01-14".
// Anything else (including empty/whitespace) yields the zero time.
// It is total: no input produces an error.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseRecord builds a Record from a raw field map. Missing keys are treated
// as empty strings; values are trimmed before parsing.
func ParseRecord(fields map[string]string) Record {
	get := func(k string) string { return strings.TrimSpace(fields[k]) }
	return Record{
		PostDate:  ParseDate(get(FieldDate)),
		Topic:     get(FieldTopic),
		Block:     get(FieldBlock),
		Tag:       get(FieldWho),
		Deadline1: ParseDate(get(FieldFirstDeadline)),
		Deadline2: ParseDate(get(FieldSecondDeadline)),
	}
}

// ParseRecords maps ParseRecord over a batch, preserving order.
func ParseRecords(rows []map[string]string) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, ParseRecord(r))
	}
	return out
}

var tagPattern = regexp.MustCompile(`@[\w_]+`)

// NormalizeTag extracts an "@tag" token from free-form input.
// Returns "" when none is found.
func NormalizeTag(s string) string {
	return tagPattern.FindString(strings.TrimSpace(s))
}
