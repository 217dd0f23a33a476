package printing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labelprint/backend/internal/domain/label"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBaseURL(t *testing.T) {
	t.Run("empty stays empty", func(t *testing.T) {
		base, err := ResolveBaseURL("")
		require.NoError(t, err)
		assert.Empty(t, base)
	})

	t.Run("URLs pass through", func(t *testing.T) {
		for _, in := range []string{"https://cdn.example.com/assets/", "file:///srv/labels/"} {
			base, err := ResolveBaseURL(in)
			require.NoError(t, err)
			assert.Equal(t, in, base)
		}
	})

	t.Run("directory gets trailing slash", func(t *testing.T) {
		dir := t.TempDir()
		base, err := ResolveBaseURL(dir)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(base, "file://"))
		assert.True(t, strings.HasSuffix(base, "/"))
		assert.Contains(t, base, filepath.ToSlash(dir))
	})

	t.Run("file path", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "template.html")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		base, err := ResolveBaseURL(path)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(base, "/template.html"))
	})

	t.Run("relative path becomes absolute", func(t *testing.T) {
		base, err := ResolveBaseURL("assets")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(base, "file:///"))
		assert.True(t, strings.HasSuffix(base, "/assets"))
	})
}

func TestLoadStylesheets(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.css")
	second := filepath.Join(dir, "second.css")
	require.NoError(t, os.WriteFile(first, []byte(".a { color: red; }"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte(".b { color: blue; }"), 0o644))

	styles, err := LoadStylesheets([]string{first, second})
	require.NoError(t, err)
	assert.Equal(t, []string{".a { color: red; }", ".b { color: blue; }"}, styles)

	_, err = LoadStylesheets([]string{first, filepath.Join(dir, "missing.css")})
	var renderErr *label.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, label.ErrCodeStylesheetUnread, renderErr.Code)
}

func TestLoadStylesheets_RejectsStyleEndTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evil.css")
	require.NoError(t, os.WriteFile(path, []byte(".a{}</STYLE><script>x()</script>"), 0o644))

	_, err := LoadStylesheets([]string{path})
	var renderErr *label.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, label.ErrCodeStylesheetUnread, renderErr.Code)
	assert.Contains(t, renderErr.Message, "</style>")
}

func TestInjectHead(t *testing.T) {
	doc := "<!DOCTYPE html><html><head><title>x</title></head><body></body></html>"

	t.Run("base first, styles last and in order", func(t *testing.T) {
		out, err := InjectHead(doc, "file:///srv/labels/", []string{"A", "B"})
		require.NoError(t, err)

		assert.Contains(t, out, `<head><base href="file:///srv/labels/"/><title>`)
		a := strings.Index(out, "<style>\nA\n</style>")
		b := strings.Index(out, "<style>\nB\n</style>")
		end := strings.Index(out, "</head>")
		require.True(t, a > 0 && b > 0)
		assert.Less(t, a, b)
		assert.Less(t, b, end)
	})

	t.Run("no base when empty", func(t *testing.T) {
		out, err := InjectHead(doc, "", nil)
		require.NoError(t, err)
		assert.Equal(t, doc, out)
	})

	t.Run("case and attributes", func(t *testing.T) {
		out, err := InjectHead(`<HTML><HEAD lang="en"></HEAD><body><header>h</header></body></HTML>`, "https://x/", nil)
		require.NoError(t, err)
		assert.Contains(t, out, `<head lang="en"><base href="https://x/"/></head>`)
		assert.Contains(t, out, `<header>h</header>`)
	})

	t.Run("fragment gets a head", func(t *testing.T) {
		out, err := InjectHead("<p>label</p>", "https://x/", []string{".a{}"})
		require.NoError(t, err)
		assert.Contains(t, out, `<head><base href="https://x/"/><style>`)
		assert.Contains(t, out, "<p>label</p>")
	})

	t.Run("end tag inside a comment is not the head end", func(t *testing.T) {
		out, err := InjectHead("<html><head><!-- </head> --><title>t</title></head><body></body></html>", "", []string{".a{}"})
		require.NoError(t, err)
		assert.Less(t, strings.Index(out, "<title>"), strings.Index(out, "<style>"))
	})

	t.Run("stylesheet text is not escaped", func(t *testing.T) {
		out, err := InjectHead(doc, "", []string{`.a > .b::after { content: "&"; }`})
		require.NoError(t, err)
		assert.Contains(t, out, `.a > .b::after { content: "&"; }`)
	})

	t.Run("base href is escaped", func(t *testing.T) {
		out, err := InjectHead(doc, `https://x/?a="b"`, nil)
		require.NoError(t, err)
		assert.Contains(t, out, `href="https://x/?a=&#34;b&#34;"`)
	})
}
