package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"thebridge/app/fileloader"
	"thebridge/app/interfaces"
)

// PostgresConfig holds connection details and what to read.
type PostgresConfig struct {
	DSN      string // used as-is when set
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require"

	Table string // schema-qualified names are accepted: "ops.tickets"
	Query string // used instead of Table when set
	Args  []any
	Limit int // 0 = no limit
}

// ConnString returns DSN, or a key/value connection string built from the
// individual fields.
func (c PostgresConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.DBName, sslMode)
}

// statement builds the SELECT the provider runs.
func (c PostgresConfig) statement() (string, error) {
	var stmt string
	switch {
	case strings.TrimSpace(c.Query) != "":
		stmt = strings.TrimRight(strings.TrimSpace(c.Query), ";")
	case strings.TrimSpace(c.Table) != "":
		parts := strings.Split(strings.TrimSpace(c.Table), ".")
		for i, part := range parts {
			parts[i] = pq.QuoteIdentifier(part)
		}
		stmt = "SELECT * FROM " + strings.Join(parts, ".")
	default:
		return "", fmt.Errorf("either a table or a query is required")
	}
	if c.Limit > 0 {
		stmt = fmt.Sprintf("SELECT * FROM (%s) AS src LIMIT %d", stmt, c.Limit)
	}
	return stmt, nil
}

// PostgresProvider loads a table or query result from PostgreSQL.
type PostgresProvider struct {
	cfg PostgresConfig
	db  *sql.DB
}

// NewPostgresProvider returns a provider that opens its own connection on
// Load.
func NewPostgresProvider(cfg PostgresConfig) *PostgresProvider {
	return &PostgresProvider{cfg: cfg}
}

// NewPostgresProviderWithDB reads through an existing connection pool.
func NewPostgresProviderWithDB(db *sql.DB, cfg PostgresConfig) *PostgresProvider {
	return &PostgresProvider{cfg: cfg, db: db}
}

// Describe returns "postgres:" plus the table, or "postgres:query".
func (p *PostgresProvider) Describe() string {
	if strings.TrimSpace(p.cfg.Query) != "" {
		return "postgres:query"
	}
	return "postgres:" + p.cfg.Table
}

// Load runs the statement and converts every value to its display string.
func (p *PostgresProvider) Load(ctx context.Context) (*Dataset, error) {
	stmt, err := p.cfg.statement()
	if err != nil {
		return nil, err
	}

	db := p.db
	if db == nil {
		db, err = sql.Open("postgres", p.cfg.ConnString())
		if err != nil {
			return nil, err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	rows, err := db.QueryContext(ctx, stmt, p.cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	d := &Dataset{Source: p.Describe(), Kind: "Postgres", Files: 1}
	values := make([]interface{}, len(header))
	valuePtrs := make([]interface{}, len(header))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		data := make([]string, len(header))
		for i, v := range values {
			data[i] = cellString(v)
		}
		d.Rows = append(d.Rows, &interfaces.Row{RowIndex: len(d.Rows), DisplayIndex: -1, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	d.Header = normalizeColumns(header)
	if err := validate(d); err != nil {
		return nil, err
	}
	if d.Hash, err = HashContent(d.Header, d.Rows); err != nil {
		return nil, err
	}
	log.Printf("[LOAD] %s: %d rows, %d columns", d.Source, len(d.Rows), len(d.Header))
	return d, nil
}

// cellString renders a scanned value. Dates without a time part keep the
// ISO date form so the detector sees them as dates.
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	}
	return fmt.Sprintf("%v", v)
}

// normalizeColumns names anonymous result columns ("?column?") like
// blank file headers and suffixes repeats.
func normalizeColumns(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if h != "?column?" {
			out[i] = h
		}
	}
	return fileloader.NormalizeHeaders(out)
}
