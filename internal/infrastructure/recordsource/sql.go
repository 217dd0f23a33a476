package recordsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/labelprint/backend/internal/domain/label"
	infraconfig "github.com/labelprint/backend/internal/infrastructure/config"
	"github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var _ Source = (*SQLSource)(nil)

// OpenDatabase connects to the configured database for read-only record
// queries. Queries are traced through otelgorm and logged through zap.
func OpenDatabase(cfg *infraconfig.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case infraconfig.DriverPostgres, "":
		dialector = postgres.Open(cfg.DSN())
	case infraconfig.DriverSQLite:
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	return openDialector(dialector, logger)
}

func openDialector(dialector gorm.Dialector, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewQueryLogger(logger, gormlogger.Warn),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
	}
	return db, nil
}

// CloseDatabase closes the pool behind db
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// SQLSource turns the rows of a query into records keyed by column name
type SQLSource struct {
	db    *gorm.DB
	query string
	args  []any
}

// NewSQLSource creates a source running query with args. Placeholders are
// written as ? and rebound for the active driver.
func NewSQLSource(db *gorm.DB, query string, args ...any) *SQLSource {
	return &SQLSource{db: db, query: query, args: args}
}

// NewTableSource selects every row of table, optionally ordered by column
func NewTableSource(db *gorm.DB, table, orderBy string) *SQLSource {
	query := "SELECT * FROM " + quoteQualified(table)
	if orderBy != "" {
		query += " ORDER BY " + quoteQualified(orderBy)
	}
	return NewSQLSource(db, query)
}

// quoteQualified quotes each part of a dotted identifier
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// Records runs the query. NULL becomes an empty string and byte columns
// become strings so templates can print them directly.
func (s *SQLSource) Records(ctx context.Context) ([]label.Record, error) {
	if strings.TrimSpace(s.query) == "" {
		return nil, ErrEmptyQuery
	}

	rows, err := s.db.WithContext(ctx).Raw(s.query, s.args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	records := make([]label.Record, 0)
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(records)+1, err)
		}
		record := make(label.Record, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i])
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	default:
		return val
	}
}
