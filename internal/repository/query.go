package repository

import (
	"database/sql"
	"fmt"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageWindow clamps page and size and returns the LIMIT/OFFSET pair.
func pageWindow(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (page - 1) * size
}

// orderClause resolves a sort key against an allow-list. An unknown or empty
// key falls back to the provided clause verbatim.
func orderClause(allowed map[string]string, sortBy, order, fallback, defaultOrder string) string {
	column, ok := allowed[sortBy]
	if !ok {
		return fallback
	}
	order = strings.ToUpper(order)
	if order != "ASC" && order != "DESC" {
		order = defaultOrder
	}
	return fmt.Sprintf("%s %s", column, order)
}

// containsPattern builds a LIKE pattern matching s anywhere, case-folded.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// whereClause joins conditions with AND.
func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// affectedOne maps a zero-row result to sql.ErrNoRows.
func affectedOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
