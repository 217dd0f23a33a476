package label_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	labelapp "github.com/labelprint/backend/internal/application/label"
	"github.com/labelprint/backend/internal/domain/label"
	infra "github.com/labelprint/backend/internal/infrastructure/printing"
	"github.com/labelprint/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/charmap"
)

const (
	pageOpen = `<div class="label-page">`
	itemOpen = `<div class="label-item">`
)

// fakeRenderer stands in for Chrome; it returns a fixed PDF and keeps the
// last document it was asked to render
type fakeRenderer struct {
	mu   sync.Mutex
	html []string
	reqs []*infra.RenderRequest
	err  error
}

func (f *fakeRenderer) Render(ctx context.Context, req *infra.RenderRequest) (*infra.RenderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.html = append(f.html, req.HTML)
	f.reqs = append(f.reqs, req)
	return &infra.RenderResult{
		PDFData:   []byte("%PDF-1.7\n" + fmt.Sprint(strings.Count(req.HTML, pageOpen)) + " pages\n%%EOF"),
		PageCount: strings.Count(req.HTML, pageOpen),
	}, nil
}

func (f *fakeRenderer) Close() error { return nil }

func (f *fakeRenderer) lastRequest() *infra.RenderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func (f *fakeRenderer) lastHTML() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.html[len(f.html)-1]
}

func newWriter(t *testing.T, cfg labelapp.WriterConfig, opts ...labelapp.WriterOption) (*labelapp.LabelWriter, *fakeRenderer) {
	t.Helper()
	renderer := &fakeRenderer{}
	opts = append([]labelapp.WriterOption{labelapp.WithEmitter(infra.NewPDFEmitter(renderer))}, opts...)
	w, err := labelapp.NewLabelWriter(cfg, opts...)
	require.NoError(t, err)
	return w, renderer
}

func sampleRecords(n int) []label.Record {
	records := make([]label.Record, n)
	for i := range records {
		records[i] = label.Record{"sample_id": fmt.Sprintf("s%02d", i+1)}
	}
	return records
}

// pageItems returns the number of items on each page of doc
func pageItems(doc string) []int {
	var counts []int
	for _, page := range strings.Split(doc, pageOpen)[1:] {
		counts = append(counts, strings.Count(page, itemOpen))
	}
	return counts
}

func TestWriter_TwoRecordsOnePerPage(t *testing.T) {
	w, _ := newWriter(t, labelapp.WriterConfig{
		TemplateContent: `<span>{{ .sample_id }}</span>`,
		ItemsPerPage:    1,
	})

	doc, err := w.RecordsToHTML(context.Background(), sampleRecords(2), "")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1}, pageItems(doc))
	first := strings.Index(doc, "<span>s01</span>")
	second := strings.Index(doc, "<span>s02</span>")
	require.Positive(t, first)
	assert.Less(t, first, second)
	assert.Less(t, strings.Index(doc, pageOpen), first)
	assert.Less(t, first, strings.LastIndex(doc, pageOpen))
}

func TestWriter_FiveRecordsThreePerPage(t *testing.T) {
	w, _ := newWriter(t, labelapp.WriterConfig{
		TemplateContent: `<span>{{ .sample_id }}</span>`,
		ItemsPerPage:    3,
	})

	doc, err := w.RecordsToHTML(context.Background(), sampleRecords(5), "")
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2}, pageItems(doc))
	last := -1
	for _, r := range sampleRecords(5) {
		idx := strings.Index(doc, fmt.Sprintf("<span>%s</span>", r["sample_id"]))
		require.Greater(t, idx, last, "records keep input order")
		last = idx
	}
}

func TestWriter_PageCounts(t *testing.T) {
	for _, tc := range []struct{ records, perPage int }{
		{0, 1}, {1, 1}, {3, 3}, {4, 3}, {10, 4}, {7, 10},
	} {
		w, _ := newWriter(t, labelapp.WriterConfig{
			TemplateContent: `{{ .sample_id }}`,
			ItemsPerPage:    tc.perPage,
		})
		doc, err := w.RecordsToHTML(context.Background(), sampleRecords(tc.records), "")
		require.NoError(t, err)

		pages := pageItems(doc)
		assert.Len(t, pages, (tc.records+tc.perPage-1)/tc.perPage, "%+v", tc)
		for i, n := range pages {
			if i < len(pages)-1 {
				assert.Equal(t, tc.perPage, n)
			}
		}
	}
}

func TestWriter_WriteTargets(t *testing.T) {
	w, _ := newWriter(t, labelapp.WriterConfig{TemplateContent: `{{ .sample_id }}`})
	ctx := context.Background()

	t.Run("memory returns PDF bytes", func(t *testing.T) {
		data, err := w.WriteLabels(ctx, sampleRecords(2), labelapp.WriteOptions{})
		require.NoError(t, err)
		assert.NotEmpty(t, data)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	})

	t.Run("file target returns nothing and leaves a PDF", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "labels.pdf")
		data, err := w.WriteLabels(ctx, sampleRecords(2), labelapp.WriteOptions{Target: label.ToFile(path)})
		require.NoError(t, err)
		assert.Nil(t, data)

		written, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(written, []byte("%PDF")))
	})

	t.Run("writer target streams", func(t *testing.T) {
		var buf bytes.Buffer
		data, err := w.WriteLabels(ctx, sampleRecords(1), labelapp.WriteOptions{Target: label.ToWriter(&buf)})
		require.NoError(t, err)
		assert.Nil(t, data)
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	})

	t.Run("unwritable file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "labels.pdf")
		_, err := w.WriteLabels(ctx, sampleRecords(1), labelapp.WriteOptions{Target: label.ToFile(path)})
		var renderErr *label.RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, label.ErrCodeTargetUnwritable, renderErr.Code)
	})
}

func TestWriter_UndefinedFieldReportsIndex(t *testing.T) {
	w, renderer := newWriter(t, labelapp.WriterConfig{TemplateContent: `{{ .sample_id }}`})
	records := []label.Record{{"sample_id": "s01"}, {"sample_id": "s02"}, {"other": "x"}}

	_, err := w.WriteLabels(context.Background(), records, labelapp.WriteOptions{})
	var renderErr *label.TemplateRenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 2, renderErr.Index)
	assert.Empty(t, renderer.html, "no PDF is produced for a failing batch")

	_, err = w.RecordsToHTML(context.Background(), records, "")
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 2, renderErr.Index)
}

func TestWriter_HelperFailureReportsIndex(t *testing.T) {
	w, _ := newWriter(t, labelapp.WriterConfig{TemplateContent: `<img src="{{ barcode .code "ean13" }}">`})
	records := []label.Record{{"code": "400638133393"}, {"code": "not-digits"}}

	_, err := w.WriteLabels(context.Background(), records, labelapp.WriteOptions{})
	var renderErr *label.TemplateRenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 1, renderErr.Index)

	var encErr *label.EncodingError
	assert.ErrorAs(t, err, &encErr)
}

func TestWriter_Deterministic(t *testing.T) {
	w, _ := newWriter(t, labelapp.WriterConfig{
		TemplateContent: `<img src="{{ qrCode .sample_id }}"><b>{{ upper .sample_id }}</b>`,
	})
	record := label.Record{"sample_id": "s01"}

	first, err := w.RecordToHTML(0, record)
	require.NoError(t, err)
	second, err := w.RecordToHTML(0, record)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "<b>S01</b>")
}

func TestWriter_Precedence(t *testing.T) {
	helpers := infra.NewHelperRegistry()
	require.NoError(t, helpers.Register("now", func(args ...any) (string, error) { return "FIXED", nil }))

	w, _ := newWriter(t, labelapp.WriterConfig{
		TemplateContent: `{{ .lab }}|{{ .site }}|{{ now "2006" }}`,
		Defaults:        label.Bindings{"lab": "Default Lab", "site": "North"},
		Helpers:         helpers,
	})

	t.Run("defaults fill missing fields", func(t *testing.T) {
		out, err := w.RecordToHTML(0, label.Record{})
		require.NoError(t, err)
		assert.Equal(t, "Default Lab|North|FIXED", out)
	})

	t.Run("record overrides defaults", func(t *testing.T) {
		out, err := w.RecordToHTML(0, label.Record{"lab": "Record Lab"})
		require.NoError(t, err)
		assert.Equal(t, "Record Lab|North|FIXED", out)
	})
}

func TestWriter_HelperCallableAsValue(t *testing.T) {
	helpers := infra.NewHelperRegistry()
	require.NoError(t, helpers.Register("batch", func(args ...any) (string, error) { return "B-7", nil }))

	w, _ := newWriter(t, labelapp.WriterConfig{
		TemplateContent: `{{ call .batch }}`,
		Helpers:         helpers,
	})
	out, err := w.RecordToHTML(0, label.Record{})
	require.NoError(t, err)
	assert.Equal(t, "B-7", out)
}

func TestWriter_StylesheetsAndBaseURL(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.css")
	extra := filepath.Join(dir, "extra.css")
	require.NoError(t, os.WriteFile(base, []byte(".a{color:red}"), 0o644))
	require.NoError(t, os.WriteFile(extra, []byte(".b{color:blue}"), 0o644))

	w, renderer := newWriter(t, labelapp.WriterConfig{
		TemplateContent: `{{ .sample_id }}`,
		Stylesheets:     []string{base},
		BaseURL:         "https://assets.example.com/labels/",
	})

	_, err := w.WriteLabels(context.Background(), sampleRecords(1), labelapp.WriteOptions{Stylesheets: []string{extra}})
	require.NoError(t, err)
	html := renderer.lastHTML()
	assert.Contains(t, html, `<base href="https://assets.example.com/labels/"`)
	assert.Less(t, strings.Index(html, ".a{color:red}"), strings.Index(html, ".b{color:blue}"))

	_, err = w.WriteLabels(context.Background(), sampleRecords(1), labelapp.WriteOptions{BaseURL: dir})
	require.NoError(t, err)
	assert.Contains(t, renderer.lastHTML(), `<base href="file://`)

	_, err = w.WriteLabels(context.Background(), sampleRecords(1), labelapp.WriteOptions{
		Stylesheets: []string{filepath.Join(dir, "missing.css")},
	})
	var renderErr *label.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, label.ErrCodeStylesheetUnread, renderErr.Code)
}

func TestWriter_RecordsToHTMLFile(t *testing.T) {
	w, _ := newWriter(t, labelapp.WriterConfig{TemplateContent: `{{ .sample_id }}`})
	path := filepath.Join(t.TempDir(), "labels.html")

	doc, err := w.RecordsToHTML(context.Background(), sampleRecords(2), path)
	require.NoError(t, err)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc, string(written))

	_, err = w.RecordsToHTML(context.Background(), sampleRecords(1), filepath.Join(path, "nested.html"))
	var renderErr *label.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, label.ErrCodeTargetUnwritable, renderErr.Code)
}

func TestWriter_TemplateFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("utf-8 file", func(t *testing.T) {
		path := filepath.Join(dir, "label.html")
		require.NoError(t, os.WriteFile(path, []byte(`<p>{{ .sample_id }} µL</p>`), 0o644))

		w, _ := newWriter(t, labelapp.WriterConfig{TemplatePath: path})
		out, err := w.RecordToHTML(0, label.Record{"sample_id": "s01"})
		require.NoError(t, err)
		assert.Equal(t, "<p>s01 µL</p>", out)
	})

	t.Run("declared legacy encoding", func(t *testing.T) {
		encoded, err := charmap.Windows1252.NewEncoder().String(`<p>{{ .sample_id }} Café</p>`)
		require.NoError(t, err)
		path := filepath.Join(dir, "legacy.html")
		require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))

		w, _ := newWriter(t, labelapp.WriterConfig{TemplatePath: path, TemplateEncoding: "windows-1252"})
		out, err := w.RecordToHTML(0, label.Record{"sample_id": "s01"})
		require.NoError(t, err)
		assert.Equal(t, "<p>s01 Café</p>", out)
	})
}

func TestNewLabelWriter_ConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.html")
	require.NoError(t, os.WriteFile(valid, []byte(`{{ .x }}`), 0o644))

	helpers := infra.NewHelperRegistry()
	require.NoError(t, helpers.Register("lab", func(args ...any) (string, error) { return "", nil }))

	tests := []struct {
		name  string
		cfg   labelapp.WriterConfig
		field string
	}{
		{"no template", labelapp.WriterConfig{}, "template"},
		{"missing template file", labelapp.WriterConfig{TemplatePath: filepath.Join(dir, "nope.html")}, "template"},
		{"unknown encoding", labelapp.WriterConfig{TemplatePath: valid, TemplateEncoding: "klingon"}, "template_encoding"},
		{"negative items per page", labelapp.WriterConfig{TemplateContent: "x", ItemsPerPage: -2}, "items_per_page"},
		{"syntax error", labelapp.WriterConfig{TemplateContent: "{{ .x "}, "template"},
		{"unknown function", labelapp.WriterConfig{TemplateContent: "{{ frobnicate .x }}"}, "template"},
		{"value and helper share a name", labelapp.WriterConfig{
			TemplateContent: "x",
			Defaults:        label.Bindings{"lab": "L"},
			Helpers:         helpers,
		}, "defaults"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := labelapp.NewLabelWriter(tt.cfg)
			var cfgErr *label.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestWriter_DefaultsAndHTMLOnly(t *testing.T) {
	w, err := labelapp.NewLabelWriter(labelapp.WriterConfig{TemplateContent: "{{ .sample_id }}"})
	require.NoError(t, err)
	assert.Equal(t, labelapp.DefaultItemsPerPage, w.ItemsPerPage())
	assert.False(t, w.CanEmit())
	assert.NoError(t, w.Close())

	_, err = w.RecordsToHTML(context.Background(), sampleRecords(1), "")
	require.NoError(t, err)

	_, err = w.WriteLabels(context.Background(), sampleRecords(1), labelapp.WriteOptions{})
	var cfgErr *label.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "renderer", cfgErr.Field)
}

func TestWriter_EngineFailure(t *testing.T) {
	renderer := &fakeRenderer{err: label.NewRenderError(label.ErrCodeRenderFailed, "chrome crashed", nil)}
	w, err := labelapp.NewLabelWriter(labelapp.WriterConfig{TemplateContent: "x"},
		labelapp.WithEmitter(infra.NewPDFEmitter(renderer)))
	require.NoError(t, err)

	_, err = w.WriteLabels(context.Background(), sampleRecords(1), labelapp.WriteOptions{})
	var renderErr *label.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, label.ErrCodeRenderFailed, renderErr.Code)
}

func TestWriter_ConcurrentWrites(t *testing.T) {
	w, _ := newWriter(t, labelapp.WriterConfig{TemplateContent: `{{ .sample_id }}`, ItemsPerPage: 2})
	want, err := w.RecordsToHTML(context.Background(), sampleRecords(9), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := w.RecordsToHTML(context.Background(), sampleRecords(9), "")
			if err != nil {
				errs <- err
				return
			}
			if got != want {
				errs <- errors.New("concurrent render differs")
			}
			if _, err := w.WriteLabels(context.Background(), sampleRecords(9), labelapp.WriteOptions{}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestWriter_LogsAndMetrics(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	metrics, err := telemetry.NewLabelMetrics(mp.Meter("test"))
	require.NoError(t, err)

	w, _ := newWriter(t, labelapp.WriterConfig{TemplateContent: `{{ .sample_id }}`, ItemsPerPage: 2},
		labelapp.WithLogger(zap.New(core)), labelapp.WithMetrics(metrics))

	_, err = w.WriteLabels(context.Background(), sampleRecords(5), labelapp.WriteOptions{})
	require.NoError(t, err)
	_, err = w.WriteLabels(context.Background(), []label.Record{{}}, labelapp.WriteOptions{})
	require.Error(t, err)

	written := recorded.FilterMessage("label sheet written").All()
	require.Len(t, written, 1)
	fields := written[0].ContextMap()
	assert.Equal(t, int64(5), fields["records"])
	assert.Equal(t, int64(3), fields["pages"])
	assert.Equal(t, "memory", fields["target"])
	assert.Len(t, recorded.FilterMessage("label sheet failed").All(), 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	pages := int64(0)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "label_pages_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key("result")); ok && v.AsString() == "success" {
					pages += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(3), pages)
}
