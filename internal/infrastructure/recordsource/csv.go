package recordsource

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/labelprint/backend/internal/domain/label"
	"golang.org/x/text/encoding/htmlindex"
)

var _ Source = (*CSVSource)(nil)

// CSVSource reads records from a CSV stream whose first row names the fields
type CSVSource struct {
	r          io.Reader
	delimiter  rune
	lazyQuotes bool
	trimSpace  bool
	encoding   string
	skipEmpty  bool
}

// CSVOption configures a CSVSource
type CSVOption func(*CSVSource)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) CSVOption {
	return func(s *CSVSource) {
		s.delimiter = d
	}
}

// WithLazyQuotes toggles lenient quote handling (default on)
func WithLazyQuotes(lazy bool) CSVOption {
	return func(s *CSVSource) {
		s.lazyQuotes = lazy
	}
}

// WithTrimSpace toggles trimming of surrounding whitespace (default on)
func WithTrimSpace(trim bool) CSVOption {
	return func(s *CSVSource) {
		s.trimSpace = trim
	}
}

// WithEncoding decodes the input from a WHATWG encoding label such as
// "windows-1252" or "shift_jis". UTF-8 is the default.
func WithEncoding(name string) CSVOption {
	return func(s *CSVSource) {
		s.encoding = name
	}
}

// WithSkipEmptyRows drops rows whose fields are all blank (default on)
func WithSkipEmptyRows(skip bool) CSVOption {
	return func(s *CSVSource) {
		s.skipEmpty = skip
	}
}

// NewCSVSource creates a source over r
func NewCSVSource(r io.Reader, opts ...CSVOption) *CSVSource {
	s := &CSVSource{
		r:          r,
		delimiter:  ',',
		lazyQuotes: true,
		trimSpace:  true,
		skipEmpty:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadCSVFile reads every record of the CSV file at path
func ReadCSVFile(ctx context.Context, path string, opts ...CSVOption) ([]label.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer f.Close()
	return NewCSVSource(f, opts...).Records(ctx)
}

// Records reads the whole stream. Every value is a string; missing trailing
// fields become empty strings and extra fields are ignored.
func (s *CSVSource) Records(ctx context.Context) ([]label.Record, error) {
	reader, err := s.open()
	if err != nil {
		return nil, err
	}

	headers, err := readHeader(reader, s.trimSpace)
	if err != nil {
		return nil, err
	}

	records := make([]label.Record, 0)
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("error reading row %d: %w", line, err)
		}

		record := make(label.Record, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			value := ""
			if i < len(fields) {
				value = fields[i]
				if s.trimSpace {
					value = strings.TrimSpace(value)
				}
			}
			if value != "" {
				blank = false
			}
			record[h] = value
		}
		if blank && s.skipEmpty {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *CSVSource) open() (*csv.Reader, error) {
	var src io.Reader = s.r
	if s.encoding != "" && !strings.EqualFold(s.encoding, "utf-8") {
		enc, err := htmlindex.Get(s.encoding)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown encoding %q", ErrInvalidEncoding, s.encoding)
		}
		src = enc.NewDecoder().Reader(src)
	}

	buf := bufio.NewReader(src)

	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	head, err := buf.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	if err := validateUTF8(buf); err != nil {
		return nil, err
	}

	reader := csv.NewReader(buf)
	reader.Comma = s.delimiter
	reader.LazyQuotes = s.lazyQuotes
	reader.TrimLeadingSpace = s.trimSpace
	reader.FieldsPerRecord = -1
	return reader, nil
}

// validateUTF8 checks the first block of content
func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(content) == 0 {
		return ErrEmptyFile
	}
	// A multi-byte rune may straddle the peek boundary
	if len(content) == checkSize {
		for i := len(content) - 1; i >= 0 && i >= len(content)-utf8.UTFMax; i-- {
			if utf8.RuneStart(content[i]) {
				if !utf8.FullRune(content[i:]) {
					content = content[:i]
				}
				break
			}
		}
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

func readHeader(reader *csv.Reader, trim bool) ([]string, error) {
	fields, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	headers := make([]string, len(fields))
	seen := make(map[string]bool, len(fields))
	named := 0
	for i, h := range fields {
		if trim {
			h = strings.TrimSpace(h)
		}
		if h == "" {
			continue
		}
		if seen[h] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateHeader, h)
		}
		seen[h] = true
		headers[i] = h
		named++
	}
	if named == 0 {
		return nil, ErrMissingHeader
	}
	return headers, nil
}
