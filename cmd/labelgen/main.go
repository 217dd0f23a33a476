// Command labelgen renders label sheets from CSV files or SQL queries.
//
//	labelgen [flags] pdf      render a PDF
//	labelgen [flags] html     write the assembled HTML for inspection
//	labelgen [flags] token    issue an API token for -client
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	labelapp "github.com/labelprint/backend/internal/application/label"
	"github.com/labelprint/backend/internal/domain/label"
	"github.com/labelprint/backend/internal/infrastructure/auth"
	"github.com/labelprint/backend/internal/infrastructure/config"
	"github.com/labelprint/backend/internal/infrastructure/logger"
	"github.com/labelprint/backend/internal/infrastructure/printing"
	"github.com/labelprint/backend/internal/infrastructure/recordsource"
	"github.com/labelprint/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// errUsage marks errors caused by bad invocation
var errUsage = errors.New("usage error")

// stringList collects a repeatable flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	configPath string
	logLevel   string

	template     string
	encoding     string
	stylesheets  stringList
	baseURL      string
	itemsPerPage int
	columns      int

	csvPath     string
	csvEncoding string
	delimiter   string
	query       string
	table       string
	orderBy     string

	out   string
	s3Key string

	client string
	scopes stringList
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "labelgen: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("labelgen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Path to config.toml (default: ./config.toml if present)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.template, "template", "", "Item template file")
	fs.StringVar(&opts.encoding, "encoding", "", "Template file encoding (default: utf-8)")
	fs.Var(&opts.stylesheets, "stylesheet", "Stylesheet to inject, repeatable")
	fs.StringVar(&opts.baseURL, "base-url", "", "Base URL or directory for relative references")
	fs.IntVar(&opts.itemsPerPage, "per-page", 0, "Items per page")
	fs.IntVar(&opts.columns, "columns", 0, "Grid columns per page, 0 lets items flow")
	fs.StringVar(&opts.csvPath, "csv", "", "CSV file with a header row, - for stdin")
	fs.StringVar(&opts.csvEncoding, "csv-encoding", "", "CSV encoding (default: utf-8)")
	fs.StringVar(&opts.delimiter, "delimiter", ",", "CSV field delimiter")
	fs.StringVar(&opts.query, "query", "", "SQL query selecting the records")
	fs.StringVar(&opts.table, "table", "", "Table whose rows are the records")
	fs.StringVar(&opts.orderBy, "order-by", "", "Column ordering -table rows")
	fs.StringVar(&opts.out, "out", "", "Output file, - for stdout (default: labels.pdf or labels.html)")
	fs.StringVar(&opts.s3Key, "s3-key", "", "Upload the PDF to object storage under this key")
	fs.StringVar(&opts.client, "client", "", "Client name for token")
	fs.Var(&opts.scopes, "scope", "Token scope, repeatable (default: all)")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		printUsage(fs)
		return fmt.Errorf("%w: expected exactly one command", errUsage)
	}
	command := fs.Arg(0)

	log, err := logger.New(&logger.Config{
		Level:      opts.logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	switch command {
	case "pdf":
		return renderPDF(ctx, cfg, opts, stdin, stdout, log)
	case "html":
		return renderHTML(ctx, cfg, opts, stdin, stdout, log)
	case "token":
		return issueToken(cfg, opts, stdout, stderr)
	default:
		printUsage(fs)
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printUsage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "Usage: labelgen [flags] <command>")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  pdf     Render records into a PDF label sheet")
	fmt.Fprintln(out, "  html    Write the assembled HTML document")
	fmt.Fprintln(out, "  token   Issue an API token for -client")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	fs.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Examples:")
	fmt.Fprintln(out, "  labelgen -template tube.html -csv samples.csv -per-page 24 pdf")
	fmt.Fprintln(out, "  labelgen -template tube.html -query 'SELECT * FROM samples WHERE batch = 7' -out - pdf > labels.pdf")
	fmt.Fprintln(out, "  labelgen -client lims token")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// writerConfig layers command line flags over the configured writer defaults
func writerConfig(cfg *config.Config, opts options) labelapp.WriterConfig {
	wc := labelapp.WriterConfig{
		TemplatePath:     cfg.Writer.TemplatePath,
		TemplateEncoding: cfg.Writer.TemplateEncoding,
		ItemsPerPage:     cfg.Writer.ItemsPerPage,
		Stylesheets:      cfg.Writer.Stylesheets,
		BaseURL:          cfg.Writer.BaseURL,
		Columns:          cfg.Writer.Columns,
		PageMargin:       cfg.Writer.PageMargin,
		Title:            cfg.Writer.Title,
	}
	if opts.template != "" {
		wc.TemplatePath = opts.template
	}
	if opts.encoding != "" {
		wc.TemplateEncoding = opts.encoding
	}
	if len(opts.stylesheets) > 0 {
		wc.Stylesheets = append(append([]string{}, wc.Stylesheets...), opts.stylesheets...)
	}
	if opts.baseURL != "" {
		wc.BaseURL = opts.baseURL
	}
	if opts.itemsPerPage != 0 {
		wc.ItemsPerPage = opts.itemsPerPage
	}
	if opts.columns != 0 {
		wc.Columns = opts.columns
	}
	return wc
}

func loadRecords(ctx context.Context, cfg *config.Config, opts options, stdin io.Reader, log *zap.Logger) ([]label.Record, error) {
	sources := 0
	for _, s := range []string{opts.csvPath, opts.query, opts.table} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("%w: exactly one of -csv, -query or -table is required", errUsage)
	}

	if opts.csvPath != "" {
		delim, size := utf8.DecodeRuneInString(opts.delimiter)
		if size == 0 || size != len(opts.delimiter) {
			return nil, fmt.Errorf("%w: -delimiter must be a single character", errUsage)
		}
		csvOpts := []recordsource.CSVOption{recordsource.WithDelimiter(delim)}
		if opts.csvEncoding != "" {
			csvOpts = append(csvOpts, recordsource.WithEncoding(opts.csvEncoding))
		}
		if opts.csvPath == "-" {
			return recordsource.NewCSVSource(stdin, csvOpts...).Records(ctx)
		}
		return recordsource.ReadCSVFile(ctx, opts.csvPath, csvOpts...)
	}

	db, err := recordsource.OpenDatabase(&cfg.Database, log.Named("sql"))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := recordsource.CloseDatabase(db); err != nil {
			log.Warn("Error closing database", zap.Error(err))
		}
	}()

	var src recordsource.Source
	if opts.query != "" {
		src = recordsource.NewSQLSource(db, opts.query)
	} else {
		src = recordsource.NewTableSource(db, opts.table, opts.orderBy)
	}
	return src.Records(ctx)
}

func renderHTML(ctx context.Context, cfg *config.Config, opts options, stdin io.Reader, stdout io.Writer, log *zap.Logger) error {
	writer, err := labelapp.NewLabelWriter(writerConfig(cfg, opts), labelapp.WithLogger(log))
	if err != nil {
		return err
	}
	records, err := loadRecords(ctx, cfg, opts, stdin, log)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = "labels.html"
	}
	if out == "-" {
		html, err := writer.RecordsToHTML(ctx, records, "")
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, html)
		return err
	}
	if _, err := writer.RecordsToHTML(ctx, records, out); err != nil {
		return err
	}
	log.Info("HTML written", zap.String("path", out), zap.Int("records", len(records)))
	return nil
}

func renderPDF(ctx context.Context, cfg *config.Config, opts options, stdin io.Reader, stdout io.Writer, log *zap.Logger) error {
	// Records first so a bad source fails before the PDF engine starts
	records, err := loadRecords(ctx, cfg, opts, stdin, log)
	if err != nil {
		return err
	}

	renderer, err := printing.NewRenderer(cfg.Renderer, log)
	if err != nil {
		return err
	}
	emitterOpts := append(printing.EmitterOptions(cfg.Renderer, cfg.Writer.Title),
		printing.WithEmitterLogger(log.Named("emitter")))

	var target label.Target
	switch {
	case opts.s3Key != "":
		objects, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log.Named("storage")))
		if err != nil {
			_ = renderer.Close()
			return fmt.Errorf("object storage: %w", err)
		}
		emitterOpts = append(emitterOpts, printing.WithObjectStorage(objects))
		target = label.ToObject(opts.s3Key)
	case opts.out == "-":
		target = label.ToWriter(stdout)
	case opts.out == "":
		target = label.ToFile("labels.pdf")
	default:
		target = label.ToFile(opts.out)
	}

	writer, err := labelapp.NewLabelWriter(writerConfig(cfg, opts),
		labelapp.WithEmitter(printing.NewPDFEmitter(renderer, emitterOpts...)),
		labelapp.WithLogger(log))
	if err != nil {
		_ = renderer.Close()
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Warn("Error closing PDF renderer", zap.Error(err))
		}
	}()

	if _, err := writer.WriteLabels(ctx, records, labelapp.WriteOptions{Target: target}); err != nil {
		return err
	}
	log.Info("Label sheet written",
		zap.Stringer("target", target.Kind),
		zap.Int("records", len(records)),
		zap.Int("pages", label.PageCount(len(records), writer.ItemsPerPage())))
	return nil
}

func issueToken(cfg *config.Config, opts options, stdout, stderr io.Writer) error {
	if opts.client == "" {
		return fmt.Errorf("%w: -client is required", errUsage)
	}
	token, expiresAt, err := auth.NewTokenService(cfg.Auth).Issue(opts.client, opts.scopes...)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	fmt.Fprintf(stderr, "expires %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
