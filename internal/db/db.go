package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

// sqlite extended result code for a UNIQUE constraint failure.
const sqliteConstraintUnique = 2067

// DB wraps *sql.DB with the handful of dialect differences the stores care
// about.
type DB struct {
	*sql.DB
	driver string
}

// sqliteLower is registered on sqlite connections. The built-in lower()
// only folds ASCII letters.
const sqliteLower = "utf8_lower"

var registerSQLiteFuncs = sync.OnceFunc(func() {
	sqlite.MustRegisterDeterministicScalarFunction(sqliteLower, 1,
		func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
})

func Connect(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPostgres, DriverPgx:
	case DriverSQLite:
		registerSQLiteFuncs()
		if !strings.Contains(dsn, "_pragma=foreign_keys") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &DB{DB: sqlDB, driver: driver}, nil
}

func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) isPostgres() bool {
	return db.driver == DriverPostgres || db.driver == DriverPgx
}

// Rebind rewrites ? placeholders into $1, $2, ... for postgres. Queries are
// written with ? throughout and never contain a literal question mark.
func (db *DB) Rebind(query string) string {
	if !db.isPostgres() {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// BinaryCollation is the clause that makes text compare byte by byte.
// sqlite already does that by default.
func (db *DB) BinaryCollation() string {
	if db.isPostgres() {
		return ` COLLATE "C"`
	}
	return ""
}

// Lower is the SQL function that lower-cases text the way strings.ToLower
// does, non-ASCII letters included.
func (db *DB) Lower() string {
	if db.isPostgres() {
		return "lower"
	}
	return sqliteLower
}

// ForUpdate is the row lock suffix for a SELECT inside a transaction. sqlite
// locks the whole database on write and needs none.
func (db *DB) ForUpdate() string {
	if db.isPostgres() {
		return " FOR UPDATE"
	}
	return ""
}

// Tx runs fn in a transaction, rolling back when fn fails.
func (db *DB) Tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

var ErrUniqueViolation = errors.New("unique constraint violated")

// IsUniqueViolation reports whether err came from a unique constraint, for
// any of the supported drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUniqueViolation) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqliteConstraintUnique
	}
	return false
}
