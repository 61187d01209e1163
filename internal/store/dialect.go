package store

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ConnConfig holds what is needed to reach a site database.
type ConnConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Dialect captures the SQL differences between the databases Frappe runs on.
type Dialect struct {
	// Name is the Frappe db_type value ("mariadb" or "postgres").
	Name string

	// Driver is the database/sql driver name.
	Driver string

	quote       byte
	placeholder func(n int) string
	textCast    string
	defaultPort int
}

// MariaDB is Frappe's default database.
var MariaDB = Dialect{
	Name:        "mariadb",
	Driver:      "mysql",
	quote:       '`',
	placeholder: func(int) string { return "?" },
	textCast:    "CHAR",
	defaultPort: 3306,
}

// Postgres is Frappe's PostgreSQL backend, reached through pgx.
var Postgres = Dialect{
	Name:        "postgres",
	Driver:      "pgx",
	quote:       '"',
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	textCast:    "TEXT",
	defaultPort: 5432,
}

// DialectFor returns the dialect for a Frappe db_type.
func DialectFor(dbType string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "", "mariadb", "mysql":
		return MariaDB, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedBackend, dbType)
	}
}

// Quote quotes an identifier. Embedded quote characters are doubled.
func (d Dialect) Quote(ident string) string {
	q := string(d.quote)
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// Table returns the quoted table name of a kind ("DocType" -> `tabDocType`).
func (d Dialect) Table(kind string) string {
	return d.Quote("tab" + kind)
}

// DSN builds a driver connection string.
func (d Dialect) DSN(c ConnConfig) string {
	port := c.Port
	if port == 0 {
		port = d.defaultPort
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	if d.Name == Postgres.Name {
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     addr,
			Path:     "/" + c.Database,
			RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
		}
		return u.String()
	}

	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = addr
	cfg.DBName = c.Database
	cfg.ParseTime = true
	// Report matched rather than changed rows so a no-op UPDATE still
	// finds its record.
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

// buildSelect renders a filtered SELECT over a kind's table.
func (d Dialect) buildSelect(kind string, filters []Filter) (string, []any) {
	where, args := d.buildWhere(filters, 0)
	query := "SELECT * FROM " + d.Table(kind)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + d.Quote("name")
	return query, args
}

// buildWhere renders filters AND-ed together. offset is the number of
// placeholders already used in the statement.
func (d Dialect) buildWhere(filters []Filter, offset int) (string, []any) {
	var clauses []string
	var args []any
	n := offset

	for _, f := range filters {
		col := d.Quote(f.Field)
		switch f.Op {
		case OpEq:
			n++
			clauses = append(clauses, col+" = "+d.placeholder(n))
			args = append(args, f.Values[0])
		case OpIn:
			if len(f.Values) == 0 {
				clauses = append(clauses, "1 = 0")
				continue
			}
			ph := make([]string, len(f.Values))
			for i, v := range f.Values {
				n++
				ph[i] = d.placeholder(n)
				args = append(args, v)
			}
			clauses = append(clauses, col+" IN ("+strings.Join(ph, ", ")+")")
		case OpIsSet:
			clauses = append(clauses, fmt.Sprintf("COALESCE(CAST(%s AS %s), '') <> ''", col, d.textCast))
		case OpNotSet:
			clauses = append(clauses, fmt.Sprintf("COALESCE(CAST(%s AS %s), '') = ''", col, d.textCast))
		}
	}
	return strings.Join(clauses, " AND "), args
}

func (d Dialect) buildGet(kind string) string {
	return "SELECT * FROM " + d.Table(kind) + " WHERE " + d.Quote("name") + " = " + d.placeholder(1) + " LIMIT 1"
}

func (d Dialect) buildCount(kind string) string {
	return "SELECT COUNT(*) FROM " + d.Table(kind)
}

func (d Dialect) buildUpdate(kind, field string) string {
	return "UPDATE " + d.Table(kind) + " SET " + d.Quote(field) + " = " + d.placeholder(1) +
		" WHERE " + d.Quote("name") + " = " + d.placeholder(2)
}
