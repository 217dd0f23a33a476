package printing

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/labelprint/backend/internal/domain/label"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ResolveBaseURL turns a base URL or a filesystem path into an absolute URL
// for a <base href>. Paths become file:// URLs; directories get a trailing
// slash so relative references resolve inside them. An empty base stays empty.
func ResolveBaseURL(base string) (string, error) {
	if base == "" {
		return "", nil
	}
	// A one-letter scheme is a Windows drive, not a URL
	if u, err := url.Parse(base); err == nil && len(u.Scheme) > 1 {
		return base, nil
	}

	abs, err := filepath.Abs(base)
	if err != nil {
		return "", label.NewConfigurationError("base_url", "cannot resolve base path "+base, err)
	}
	p := filepath.ToSlash(abs)
	if info, err := os.Stat(abs); err == nil && info.IsDir() && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String(), nil
}

func hasFileBase(base string) bool {
	return strings.HasPrefix(base, "file://")
}

// LoadStylesheets reads stylesheet files in order. Their contents are
// returned unmodified. A stylesheet that would close its <style> block early
// is rejected.
func LoadStylesheets(paths []string) ([]string, error) {
	styles := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, label.NewRenderError(label.ErrCodeStylesheetUnread,
				"failed to read stylesheet "+path, err)
		}
		if strings.Contains(strings.ToLower(string(data)), "</style") {
			return nil, label.NewRenderError(label.ErrCodeStylesheetUnread,
				"stylesheet "+path+" contains a </style> end tag", nil)
		}
		styles = append(styles, string(data))
	}
	return styles, nil
}

// InjectHead adds a <base href> as the first element of <head> and one
// <style> block per stylesheet, in order, at the end of <head>.
func InjectHead(doc, baseHref string, styles []string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", label.NewRenderError(label.ErrCodeInvalidHTML, "failed to parse document", err)
	}
	head := findElement(root, atom.Head)
	if head == nil {
		return "", label.NewRenderError(label.ErrCodeInvalidHTML, "document has no <head> element", nil)
	}

	if baseHref != "" {
		head.InsertBefore(&html.Node{
			Type:     html.ElementNode,
			Data:     "base",
			DataAtom: atom.Base,
			Attr:     []html.Attribute{{Key: "href", Val: baseHref}},
		}, head.FirstChild)
	}
	for _, style := range styles {
		n := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: "\n" + style + "\n"})
		head.AppendChild(n)
	}

	var b strings.Builder
	b.Grow(len(doc) + len(baseHref) + 32)
	if err := html.Render(&b, root); err != nil {
		return "", label.NewRenderError(label.ErrCodeInvalidHTML, "failed to render document", err)
	}
	return b.String(), nil
}

// findElement returns the first element with tag a in document order
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
