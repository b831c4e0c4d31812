package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination selects a page of results. A zero PageSize returns every row.
type Pagination struct {
	Page     int
	PageSize int
}

// Normalize clamps page values to sane bounds
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParseSort turns "field" or "-field" into a whitelisted column and direction.
// Unknown fields fall back to def.
func ParseSort(sortBy string, allowed map[string]string, def string, defOrder SortOrder) (string, SortOrder) {
	order := SortOrderAsc
	field := sortBy
	if strings.HasPrefix(field, "-") {
		order = SortOrderDesc
		field = field[1:]
	}

	column, ok := allowed[field]
	if !ok {
		return def, defOrder
	}
	return column, order
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s literally anywhere in a value
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// whereBuilder accumulates AND-ed conditions with numbered placeholders
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

// add appends a condition; each %s in cond is replaced with the next placeholder
func (w *whereBuilder) add(cond string, args ...interface{}) {
	placeholders := make([]interface{}, len(args))
	for i, arg := range args {
		w.args = append(w.args, arg)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf(cond, placeholders...))
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.clauses, " AND ")
}

// limitClause appends LIMIT/OFFSET placeholders when the page is bounded
func (w *whereBuilder) limitClause(p Pagination) string {
	if p.PageSize == 0 {
		return ""
	}
	w.args = append(w.args, p.PageSize, p.Offset())
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}

// withTx runs fn inside a transaction, rolling back on error
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
