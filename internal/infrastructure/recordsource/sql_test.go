package recordsource

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labelprint/backend/internal/domain/label"
	infraconfig "github.com/labelprint/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db, err := openDialector(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), zap.NewNop())
	require.NoError(t, err)
	return db, mock
}

func TestSQLSource_Records(t *testing.T) {
	db, mock := newMockDB(t)
	printed := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	query := "SELECT sku, name, qty, note, printed_at FROM labels WHERE batch = ?"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sku, name, qty, note, printed_at FROM labels WHERE batch = $1")).
		WithArgs("B-7").
		WillReturnRows(sqlmock.NewRows([]string{"sku", "name", "qty", "note", "printed_at"}).
			AddRow("A1", []byte("Widget"), int64(3), nil, printed).
			AddRow("A2", "Gadget", int64(1), "fragile", printed))

	records, err := NewSQLSource(db, query, "B-7").Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []label.Record{
		{"sku": "A1", "name": "Widget", "qty": int64(3), "note": "", "printed_at": printed},
		{"sku": "A2", "name": "Gadget", "qty": int64(1), "note": "fragile", "printed_at": printed},
	}, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSource_Errors(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		db, _ := newMockDB(t)
		_, err := NewSQLSource(db, "  ").Records(context.Background())
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("query failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))

		_, err := NewSQLSource(db, "SELECT * FROM nope").Records(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "relation does not exist")
	})

	t.Run("row error", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"sku"}).
			AddRow("A1").
			AddRow("A2").
			RowError(1, sql.ErrConnDone))

		_, err := NewSQLSource(db, "SELECT sku FROM labels").Records(context.Background())
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})

	t.Run("no rows", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"sku"}))

		records, err := NewSQLSource(db, "SELECT sku FROM labels").Records(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})
}

func TestNewTableSource(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "public"."shipping labels" ORDER BY "id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	records, err := NewTableSource(db, "public.shipping labels", "id").Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteQualified(t *testing.T) {
	assert.Equal(t, `"labels"`, quoteQualified("labels"))
	assert.Equal(t, `"a"."b"`, quoteQualified("a.b"))
	assert.Equal(t, `"x""; DROP TABLE y; --"`, quoteQualified(`x"; DROP TABLE y; --`))
}

func TestOpenDatabase_SQLite(t *testing.T) {
	cfg := &infraconfig.DatabaseConfig{
		Driver: infraconfig.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "labels.db"),
	}
	db, err := OpenDatabase(cfg, zap.NewNop())
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED") {
		t.Skip("sqlite driver needs cgo")
	}
	require.NoError(t, err)
	defer func() { _ = CloseDatabase(db) }()

	require.NoError(t, db.Exec("CREATE TABLE labels (sku TEXT, qty INTEGER)").Error)
	require.NoError(t, db.Exec("INSERT INTO labels VALUES ('A1', 2), ('A2', 5)").Error)

	records, err := NewTableSource(db, "labels", "sku").Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A1", records[0]["sku"])
	assert.Equal(t, int64(5), records[1]["qty"])
}

func TestOpenDatabase_UnknownDriver(t *testing.T) {
	_, err := OpenDatabase(&infraconfig.DatabaseConfig{Driver: "oracle"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestQueryLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	l := NewQueryLogger(zap.New(core), gormlogger.Info)
	sqlText := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sqlText, nil)
	l.Trace(context.Background(), time.Now().Add(-time.Second), sqlText, nil)
	l.Trace(context.Background(), time.Now(), sqlText, errors.New("syntax error"))
	l.Trace(context.Background(), time.Now(), sqlText, gormlogger.ErrRecordNotFound)

	entries := recorded.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "SQL Query", entries[0].Message)
	assert.Contains(t, entries[1].Message, "SLOW SQL")
	assert.Equal(t, "SQL Error", entries[2].Message)
	assert.Equal(t, "SQL Query", entries[3].Message)

	silent := l.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), sqlText, errors.New("ignored"))
	assert.Len(t, recorded.All(), 4)
}
