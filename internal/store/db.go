package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Execer
	Getter
	Selecter
}

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

type Page struct {
	Skip  int
	Limit int
}

func (p Page) normalized() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 || p.Limit > MaxLimit {
		p.Limit = DefaultLimit
	}
	return p
}

// Scope narrows a listing to what one user may see. The zero Scope sees everything.
type Scope struct {
	OwnerID  string
	TenantID string
}

// conditions collects WHERE clauses written with ? placeholders.
type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) add(clause string, args ...any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// build appends the WHERE clause, ordering and paging to base and rebinds
// the placeholders for Postgres.
func (c *conditions) build(base, orderBy string, page Page) (string, []any) {
	page = page.normalized()
	query := base + c.where() + " ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	args := append(append([]any{}, c.args...), page.Limit, page.Skip)
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func rowsAffected(result sql.Result) (int64, error) {
	if result == nil {
		return 0, nil
	}
	return result.RowsAffected()
}

// requireOne turns an update that touched no row into sql.ErrNoRows.
func requireOne(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// placeholders renders "$start, $start+1, ..." for n values.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "$" + strconv.Itoa(start+i)
	}
	return strings.Join(parts, ", ")
}
