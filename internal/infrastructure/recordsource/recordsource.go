// Package recordsource loads label records from CSV files and SQL queries.
package recordsource

import (
	"context"
	"errors"

	"github.com/labelprint/backend/internal/domain/label"
)

// Source yields the records for one label sheet, in order
type Source interface {
	Records(ctx context.Context) ([]label.Record, error)
}

var (
	// ErrEmptyFile is returned when the CSV input has no content
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the CSV input is not valid in its declared encoding
	ErrInvalidEncoding = errors.New("invalid file encoding")

	// ErrMissingHeader is returned when the CSV input has no usable header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrDuplicateHeader is returned when two CSV columns share a name
	ErrDuplicateHeader = errors.New("duplicate CSV header")

	// ErrEmptyQuery is returned when an SQL source has no query
	ErrEmptyQuery = errors.New("SQL query is required")
)
