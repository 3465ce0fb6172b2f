package query

import (
	"fmt"
	"strings"
	"time"
)

// WhereClause is a parameterized SQL fragment ready to be appended
// after "WHERE" in the items query. Placeholders are "?" in appearance
// order, matching database/sql's positional binding.
type WhereClause struct {
	SQL  string
	Args []interface{}
}

// timeLayout must match the layout the storage layer stamps
// created_at/updated_at/start_date/end_date columns with (RFC3339Nano,
// UTC) so string comparison in SQL agrees with chronological order.
const timeLayout = time.RFC3339Nano

// Evaluator turns a parsed Query into the WHERE clause the storage
// layer runs against items, statuses, and their join tables.
type Evaluator struct{}

// NewEvaluator creates an Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// BuildWhere translates q into a WhereClause. An empty Query yields
// "1=1" with no args, matching every row — the fallback for an empty
// or unparseable query.
func (e *Evaluator) BuildWhere(q Query) WhereClause {
	var conds []string
	var args []interface{}

	if len(q.Types) > 0 {
		cond, a := inClause("type", q.Types)
		conds = append(conds, cond)
		args = append(args, a...)
	}

	if len(q.Statuses) > 0 {
		placeholders := make([]string, len(q.Statuses))
		for i, name := range q.Statuses {
			placeholders[i] = "?"
			args = append(args, strings.ToLower(name))
		}
		conds = append(conds, fmt.Sprintf(
			"status_id IN (SELECT id FROM statuses WHERE LOWER(name) IN (%s))",
			strings.Join(placeholders, ", "),
		))
	}

	if len(q.Priorities) > 0 {
		cond, a := inClause("priority", q.Priorities)
		conds = append(conds, cond)
		args = append(args, a...)
	}

	if len(q.Tags) > 0 {
		placeholders := make([]string, len(q.Tags))
		for i, name := range q.Tags {
			placeholders[i] = "?"
			args = append(args, name)
		}
		conds = append(conds, fmt.Sprintf(
			"id IN (SELECT it.item_id FROM item_tags it JOIN tags t ON t.id = it.tag_id WHERE t.name IN (%s))",
			strings.Join(placeholders, ", "),
		))
	}

	for _, r := range q.Ranges {
		cond, a := rangeCondition(r)
		conds = append(conds, cond)
		args = append(args, a...)
	}

	for _, term := range q.FreeText {
		like := "%" + term + "%"
		conds = append(conds, "(title LIKE ? OR description LIKE ? OR content LIKE ?)")
		args = append(args, like, like, like)
	}

	if len(conds) == 0 {
		return WhereClause{SQL: "1=1"}
	}
	return WhereClause{SQL: strings.Join(conds, " AND "), Args: args}
}

func inClause(column string, values []string) (string, []interface{}) {
	placeholders := make([]string, len(values))
	args := make([]interface{}, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args
}

// rangeCondition builds the overlap test for a single DateRange. For
// "date" it matches items whose [start_date, end_date] interval
// intersects [From, To]; an item with neither bound set never matches
// a date range. "created"/"updated" match directly against the
// corresponding timestamp column.
func rangeCondition(r DateRange) (string, []interface{}) {
	from, to := r.From.UTC().Format(timeLayout), r.To.UTC().Format(timeLayout)
	switch r.Field {
	case "created":
		return "created_at BETWEEN ? AND ?", []interface{}{from, to}
	case "updated":
		return "updated_at BETWEEN ? AND ?", []interface{}{from, to}
	default: // "date"
		return "(start_date IS NOT NULL OR end_date IS NOT NULL) " +
			"AND (start_date IS NULL OR start_date <= ?) " +
			"AND (end_date IS NULL OR end_date >= ?)", []interface{}{to, from}
	}
}
