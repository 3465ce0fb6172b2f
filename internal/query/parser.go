package query

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// naturalDateParser recognizes phrases like "yesterday" or "3 days
// ago" as a fallback when a range boundary isn't one of dateLayouts.
// Range boundaries are primarily ISO-8601, but accepting natural
// language too only widens what "unparseable" means before falling
// back to free text, never narrows it.
var naturalDateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// structuredKeys lists the key:value fields recognized directly.
var structuredKeys = map[string]bool{
	"type":     true,
	"status":   true,
	"priority": true,
	"tag":      true,
}

// rangeKeys lists the fields that take a field:range:from..to token.
var rangeKeys = map[string]bool{
	"date":    true,
	"created": true,
	"updated": true,
}

// dateLayouts are tried in order when parsing a range boundary.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// DateRange is a parsed field:range:from..to token.
type DateRange struct {
	Field string // "date", "created", or "updated"
	From  time.Time
	To    time.Time
}

// Query is the parsed form of a search_items/list_items query string.
// Within a field, multiple values OR together; across fields, filters
// AND together.
type Query struct {
	Types      []string
	Statuses   []string
	Priorities []string
	Tags       []string
	Ranges     []DateRange
	FreeText   []string
}

// Empty reports whether the query carries no filters or text at all —
// the signal to fall back to an unfiltered listing.
func (q Query) Empty() bool {
	return len(q.Types) == 0 && len(q.Statuses) == 0 && len(q.Priorities) == 0 &&
		len(q.Tags) == 0 && len(q.Ranges) == 0 && len(q.FreeText) == 0
}

// Parse tokenizes input and classifies each token as a structured
// filter, a date range, or free text. Tokens this parser cannot make
// sense of are treated as free text rather than rejected: an empty or
// unparseable query degrades gracefully to pure substring search.
func Parse(input string) (Query, error) {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return Query{FreeText: []string{input}}, nil
	}

	var q Query
	for _, tok := range tokens {
		if tok.Value == "" {
			continue
		}
		key, rest, hasColon := strings.Cut(tok.Value, ":")
		if !hasColon {
			q.FreeText = append(q.FreeText, tok.Value)
			continue
		}
		lowerKey := strings.ToLower(key)

		if structuredKeys[lowerKey] && rest != "" {
			switch lowerKey {
			case "type":
				q.Types = append(q.Types, rest)
			case "status":
				q.Statuses = append(q.Statuses, rest)
			case "priority":
				q.Priorities = append(q.Priorities, strings.ToUpper(rest))
			case "tag":
				q.Tags = append(q.Tags, rest)
			}
			continue
		}

		if rangeKeys[lowerKey] {
			if rng, ok := parseRange(lowerKey, rest); ok {
				q.Ranges = append(q.Ranges, rng)
				continue
			}
		}

		q.FreeText = append(q.FreeText, tok.Value)
	}
	return q, nil
}

// parseRange parses the "range:from..to" portion of a field:range:..
// token into a DateRange for field.
func parseRange(field, rest string) (DateRange, bool) {
	rangeValue, ok := strings.CutPrefix(rest, "range:")
	if !ok {
		return DateRange{}, false
	}
	fromStr, toStr, ok := strings.Cut(rangeValue, "..")
	if !ok {
		return DateRange{}, false
	}
	from, fromOK := parseDate(fromStr)
	to, toOK := parseDate(toStr)
	if !fromOK || !toOK {
		return DateRange{}, false
	}
	return DateRange{Field: field, From: from, To: to}, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if r, err := naturalDateParser.Parse(s, time.Now()); err == nil && r != nil {
		return r.Time, true
	}
	return time.Time{}, false
}
