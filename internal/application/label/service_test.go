package label_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	labelapp "github.com/labelprint/backend/internal/application/label"
	"github.com/labelprint/backend/internal/domain/label"
	infra "github.com/labelprint/backend/internal/infrastructure/printing"
	"github.com/labelprint/backend/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, defaults labelapp.WriterConfig, opts ...labelapp.ServiceOption) (*labelapp.LabelService, *storage.MemoryObjectStorage) {
	t.Helper()
	objects := storage.NewMemoryObjectStorage("http://labels.local/objects")
	emitter := infra.NewPDFEmitter(&fakeRenderer{}, infra.WithObjectStorage(objects))
	opts = append([]labelapp.ServiceOption{labelapp.WithObjectLocator(objects, "sheets", time.Minute)}, opts...)
	svc, err := labelapp.NewLabelService(defaults, emitter, opts...)
	require.NoError(t, err)
	return svc, objects
}

func TestLabelService_RenderWithDefaultTemplate(t *testing.T) {
	svc, _ := newService(t, labelapp.WriterConfig{TemplateContent: `{{ .sample_id }}`, ItemsPerPage: 2})

	res, err := svc.Render(context.Background(), labelapp.RenderRequest{Records: sampleRecords(5)})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF")))
	assert.Equal(t, 5, res.Records)
	assert.Equal(t, 3, res.Pages)
	assert.Nil(t, res.Object)
}

func TestLabelService_RequestOverrides(t *testing.T) {
	svc, _ := newService(t, labelapp.WriterConfig{
		TemplateContent: `{{ .sample_id }}`,
		Defaults:        label.Bindings{"lab": "Default Lab", "site": "North"},
	})

	res, err := svc.Preview(context.Background(), labelapp.RenderRequest{
		Records:      sampleRecords(4),
		Template:     `<em>{{ .sample_id }}@{{ .lab }}/{{ .site }}</em>`,
		ItemsPerPage: 4,
		Defaults:     label.Bindings{"lab": "Request Lab"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, []int{4}, pageItems(res.HTML))
	assert.Contains(t, res.HTML, "<em>s01@Request Lab/North</em>")
}

func TestLabelService_RequestTemplateCannotReadLocalFiles(t *testing.T) {
	renderer := &fakeRenderer{}
	svc, err := labelapp.NewLabelService(labelapp.WriterConfig{
		TemplateContent: `{{ .sample_id }}`,
		BaseURL:         t.TempDir(),
	}, infra.NewPDFEmitter(renderer))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Render(ctx, labelapp.RenderRequest{Records: sampleRecords(1)})
	require.NoError(t, err)
	assert.True(t, renderer.lastRequest().EnableLocalFileAccess)

	_, err = svc.Render(ctx, labelapp.RenderRequest{
		Records:  sampleRecords(1),
		Template: `<iframe src="/etc/passwd"></iframe>{{ .sample_id }}`,
	})
	require.NoError(t, err)
	req := renderer.lastRequest()
	assert.False(t, req.EnableLocalFileAccess)
	assert.Empty(t, req.BaseURL)
	assert.NotContains(t, req.HTML, "file://")
}

func TestLabelService_RequestTemplateKeepsRemoteBase(t *testing.T) {
	renderer := &fakeRenderer{}
	svc, err := labelapp.NewLabelService(labelapp.WriterConfig{
		TemplateContent: "x",
		BaseURL:         "https://assets.example.com/labels/",
	}, infra.NewPDFEmitter(renderer))
	require.NoError(t, err)

	_, err = svc.Render(context.Background(), labelapp.RenderRequest{Records: sampleRecords(1), Template: "y"})
	require.NoError(t, err)
	assert.Equal(t, "https://assets.example.com/labels/", renderer.lastRequest().BaseURL)
	assert.False(t, renderer.lastRequest().EnableLocalFileAccess)
}

func TestLabelService_NoDefaultTemplate(t *testing.T) {
	svc, _ := newService(t, labelapp.WriterConfig{})

	_, err := svc.Render(context.Background(), labelapp.RenderRequest{Records: sampleRecords(1)})
	var cfgErr *label.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "template", cfgErr.Field)

	res, err := svc.Preview(context.Background(), labelapp.RenderRequest{
		Records:  sampleRecords(1),
		Template: "{{ .sample_id }}",
	})
	require.NoError(t, err)
	assert.Contains(t, res.HTML, "s01")
}

func TestLabelService_BrokenDefaultTemplateFailsStartup(t *testing.T) {
	_, err := labelapp.NewLabelService(labelapp.WriterConfig{TemplateContent: "{{ .x "}, nil)
	var cfgErr *label.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLabelService_MaxRecords(t *testing.T) {
	svc, _ := newService(t, labelapp.WriterConfig{TemplateContent: "x"}, labelapp.WithMaxRecords(3))

	_, err := svc.Render(context.Background(), labelapp.RenderRequest{Records: sampleRecords(4)})
	assert.ErrorIs(t, err, labelapp.ErrTooManyRecords)

	_, err = svc.Preview(context.Background(), labelapp.RenderRequest{Records: sampleRecords(4)})
	assert.ErrorIs(t, err, labelapp.ErrTooManyRecords)

	_, err = svc.Render(context.Background(), labelapp.RenderRequest{Records: sampleRecords(3)})
	assert.NoError(t, err)
}

func TestLabelService_StoreAndDownload(t *testing.T) {
	svc, objects := newService(t, labelapp.WriterConfig{TemplateContent: `{{ .sample_id }}`})
	ctx := context.Background()

	res, err := svc.Render(ctx, labelapp.RenderRequest{Records: sampleRecords(2), Store: true})
	require.NoError(t, err)
	assert.Nil(t, res.PDF)
	require.NotNil(t, res.Object)
	assert.True(t, strings.HasPrefix(res.Object.Key, "sheets/"))
	assert.True(t, strings.HasSuffix(res.Object.Key, ".pdf"))
	assert.Contains(t, res.Object.URL, res.Object.Key)

	data, contentType, ok := objects.Get(res.Object.Key)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	link, err := svc.DownloadLink(ctx, res.Object.Key)
	require.NoError(t, err)
	assert.Equal(t, res.Object.Key, link.Key)
	assert.False(t, link.ExpiresAt.IsZero())

	_, err = svc.DownloadLink(ctx, "sheets/missing.pdf")
	assert.ErrorIs(t, err, labelapp.ErrObjectNotFound)

	_, err = svc.DownloadLink(ctx, "invoices/2024/a.pdf")
	assert.ErrorIs(t, err, labelapp.ErrObjectNotFound)
}

func TestLabelService_StorageNotConfigured(t *testing.T) {
	emitter := infra.NewPDFEmitter(&fakeRenderer{})
	svc, err := labelapp.NewLabelService(labelapp.WriterConfig{TemplateContent: "x"}, emitter)
	require.NoError(t, err)

	_, err = svc.Render(context.Background(), labelapp.RenderRequest{Records: sampleRecords(1), Store: true})
	var renderErr *label.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, label.ErrCodeStorageNotEnabled, renderErr.Code)

	_, err = svc.DownloadLink(context.Background(), "sheets/a.pdf")
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, label.ErrCodeStorageNotEnabled, renderErr.Code)
}

type failingLocator struct{}

func (failingLocator) ObjectExists(context.Context, string) (bool, error) {
	return false, errors.New("s3 unreachable")
}

func (failingLocator) GenerateDownloadURL(context.Context, string, time.Duration) (string, time.Time, error) {
	return "", time.Time{}, errors.New("s3 unreachable")
}

func TestLabelService_StorageFailure(t *testing.T) {
	svc, err := labelapp.NewLabelService(labelapp.WriterConfig{TemplateContent: "x"}, nil,
		labelapp.WithObjectLocator(failingLocator{}, "sheets", time.Minute))
	require.NoError(t, err)

	_, err = svc.DownloadLink(context.Background(), "sheets/a.pdf")
	var renderErr *label.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, label.ErrCodeStorageFailed, renderErr.Code)
	assert.False(t, svc.CanEmit())
	assert.NoError(t, svc.Close())
}

func TestLabelService_Symbologies(t *testing.T) {
	svc, _ := newService(t, labelapp.WriterConfig{})

	byName := map[string]labelapp.SymbologyResponse{}
	for _, s := range svc.Symbologies() {
		byName[s.Name] = s
	}
	assert.Equal(t, 12, byName["ean13"].Digits)
	assert.Equal(t, "linear", byName["code128"].Kind)
	assert.Equal(t, "matrix", byName["qrcode"].Kind)
	assert.Contains(t, byName, "datamatrix")
}
