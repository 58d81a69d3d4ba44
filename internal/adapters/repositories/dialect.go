package repositories

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Dialect selects the SQL flavor spoken by the connected database.
type Dialect string

const (
	DialectPostgres Dialect = "pgx"
	DialectSQLite   Dialect = "sqlite"
)

func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(driver); d {
	case DialectPostgres, DialectSQLite:
		return d, nil
	}
	return "", fmt.Errorf("unsupported sql dialect %q", driver)
}

// bindType maps the dialect onto sqlx's placeholder styles. modernc's driver
// name "sqlite" is not in sqlx's driver table, so it is spelled out here.
func (d Dialect) bindType() int {
	if d == DialectPostgres {
		return sqlx.DOLLAR
	}
	return sqlx.QUESTION
}

// rebind rewrites the ? placeholders queries are written with into the
// dialect's own style.
func (d Dialect) rebind(query string) string {
	return sqlx.Rebind(d.bindType(), query)
}
