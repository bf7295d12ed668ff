package store

import (
	"fmt"
	"strings"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

const baseAlertsSelect = `SELECT ` + alertColumns + `
FROM price_alerts`

const countAlertsSelect = "SELECT COUNT(*) FROM price_alerts"

// ToSQL builds the WHERE clause, ORDER BY, LIMIT, and OFFSET for an alert
// query. It returns the data query, the count query, and the positional
// parameters shared by both.
func (q *AlertQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	if q.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", paramIdx))
		args = append(args, q.UserID)
		paramIdx++
	}

	if q.BookingID != "" {
		conditions = append(conditions, fmt.Sprintf("booking_id = $%d", paramIdx))
		args = append(args, q.BookingID)
		paramIdx++
	}

	if len(q.Statuses) > 0 {
		placeholders := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", paramIdx)
			args = append(args, string(s))
			paramIdx++
		}
		conditions = append(conditions, fmt.Sprintf(
			"status IN (%s)", strings.Join(placeholders, ", "),
		))
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY triggered_at DESC LIMIT %d OFFSET %d",
		baseAlertsSelect, whereClause, limit, offset,
	)

	countSQL = countAlertsSelect + whereClause

	return dataSQL, countSQL, args
}
