package s3freeze

import (
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRewriter(t *testing.T, src fstest.MapFS) (*Rewriter, *Report) {
	t.Helper()
	cfg := (&Config{OutputDir: t.TempDir(), StaticFS: src, Logger: zaptest.NewLogger(t)}).Init()
	report := NewReport(cfg.Logger)
	copier := NewCopier(cfg, report, NewNormalizer(cfg.Classifier(), report, cfg.Logger))
	return NewRewriter(cfg, copier), report
}

func rewriteString(t *testing.T, w *Rewriter, page, body string) (string, PageInfo) {
	t.Helper()
	out, info, err := w.Rewrite(page, []byte(body))
	require.NoError(t, err)
	return string(out), info
}

func TestRewriter_AboutScenario(t *testing.T) {
	w, _ := newTestRewriter(t, fstest.MapFS{
		"img/logo.png": {Data: []byte("PNG")},
		"archive.db":   {Data: []byte{0}},
	})

	out, info := rewriteString(t, w, "about.html", `<html><body>
<a href="/contact">Contact</a>
<img src="/static/img/logo.png">
<a href="/archive.db">Download</a>
</body></html>`)

	assert.Contains(t, out, `href="contact.html"`)
	assert.Contains(t, out, `src="static/img/logo.png"`)
	assert.Contains(t, out, `<span class="export-error">[REMOVED BINARY: archive.db]</span>`)
	assert.NotContains(t, out, "/archive.db")
	assert.Equal(t, []string{"archive.db"}, info.Removed)

	assert.FileExists(t, filepath.Join(w.Copier.OutputDir, "static", "img", "logo.png"))
	assert.FileExists(t, filepath.Join(w.Copier.OutputDir, "removed-binaries", "archive.db"))
	assert.NoFileExists(t, filepath.Join(w.Copier.OutputDir, "static", "archive.db"))
}

func TestRewriter_AssetElements(t *testing.T) {
	w, _ := newTestRewriter(t, fstest.MapFS{
		"css/site.css":      {Data: []byte("body{}")},
		"js/app.js":         {Data: []byte("go()")},
		"media/intro.mp4":   {Data: []byte{0}},
		"media/song.mp3":    {Data: []byte{0}},
		"docs/brochure.pdf": {Data: []byte("%PDF")},
	})

	out, info := rewriteString(t, w, "index.html", `<html><head>
<link rel="stylesheet" href="/static/css/site.css?v=3">
<script src="/static/js/app.js"></script>
</head><body>
<video controls><source src="/static/media/intro.mp4" type="video/mp4"></video>
<audio src="/static/media/song.mp3"></audio>
<a href="/static/docs/brochure.pdf#page=2">Brochure</a>
</body></html>`)

	assert.Contains(t, out, `href="static/css/site.css?v=3"`)
	assert.Contains(t, out, `src="static/js/app.js"`)
	assert.Contains(t, out, `src="static/media/song.mp3"`)
	assert.Contains(t, out, `href="static/docs/brochure.pdf#page=2"`)
	assert.Contains(t, out, `[REMOVED BINARY: intro.mp4]`)
	assert.NotContains(t, out, "<source")
	assert.Equal(t, []string{"intro.mp4"}, info.Removed)
	assert.False(t, info.HasForm)
}

func TestRewriter_InternalLinks(t *testing.T) {
	w, _ := newTestRewriter(t, fstest.MapFS{})

	out, _ := rewriteString(t, w, "index.html", `<body>
<a id="home" href="/">Home</a>
<a id="svc" href="/services/">Services</a>
<a id="frag" href="/about#team">Team</a>
<a id="query" href="/contact?ref=nav">Contact</a>
<a id="nested" href="/docs/guide">Guide</a>
</body>`)

	assert.Contains(t, out, `id="home" href="index.html"`)
	assert.Contains(t, out, `id="svc" href="services.html"`)
	assert.Contains(t, out, `id="frag" href="about.html"`)
	assert.Contains(t, out, `id="query" href="contact.html"`)
	assert.Contains(t, out, `id="nested" href="docs/guide.html"`)
}

func TestRewriter_LeavesForeignReferencesAlone(t *testing.T) {
	w, report := newTestRewriter(t, fstest.MapFS{})
	refs := []string{
		`https://example.com/x`,
		`//cdn.example.com/lib.js`,
		`mailto:sales@example.com`,
		`tel:+15551234`,
		`javascript:void(0)`,
		`#top`,
		`relative/page.html`,
	}
	var body strings.Builder
	for _, r := range refs {
		body.WriteString(`<a href="` + r + `">x</a>`)
	}
	body.WriteString(`<script src="https://cdn.example.com/lib.js"></script>`)

	out, info := rewriteString(t, w, "index.html", body.String())

	for _, r := range refs {
		assert.Contains(t, out, `href="`+r+`"`)
	}
	assert.Contains(t, out, `src="https://cdn.example.com/lib.js"`)
	assert.Empty(t, info.Missing)
	assert.Empty(t, report.Entries)
}

func TestRewriter_MissingAssetKeepsReference(t *testing.T) {
	w, report := newTestRewriter(t, fstest.MapFS{})

	out, info := rewriteString(t, w, "index.html",
		`<img src="/static/img/nope.png"><a href="/static/files/gone.pdf">gone</a>`)

	assert.Contains(t, out, `src="/static/img/nope.png"`)
	assert.Contains(t, out, `href="/static/files/gone.pdf"`, "link pass must not touch static references")
	assert.Equal(t, []string{"img/nope.png", "files/gone.pdf"}, info.Missing)
	assert.Len(t, report.Filter(KindMissing), 2)
}

func TestRewriter_NestedPage(t *testing.T) {
	w, _ := newTestRewriter(t, fstest.MapFS{"img/logo.png": {Data: []byte("PNG")}})

	out, _ := rewriteString(t, w, "docs/guide.html",
		`<img src="/static/img/logo.png"><a href="/">home</a><a href="/docs/faq">faq</a>`)

	assert.Contains(t, out, `src="../static/img/logo.png"`)
	assert.Contains(t, out, `href="../index.html"`)
	assert.Contains(t, out, `href="faq.html"`)
}

func TestRewriter_DetectsForm(t *testing.T) {
	w, _ := newTestRewriter(t, fstest.MapFS{})

	_, info := rewriteString(t, w, "contact.html",
		`<form action="/request_quote" method="post"><input name="title"></form>`)

	assert.True(t, info.HasForm)
}

func TestRewriter_CustomPrefixAndClass(t *testing.T) {
	w, _ := newTestRewriter(t, fstest.MapFS{
		"a.css":   {Data: []byte("a{}")},
		"dump.gz": {Data: []byte{0}},
	})
	w.StaticPrefix = "/assets"
	w.PlaceholderClass = "gone"

	out, _ := rewriteString(t, w, "index.html",
		`<link href="/assets/a.css"><a href="/assets/dump.gz">dump</a><img src="/static/a.css">`)

	assert.Contains(t, out, `href="static/a.css"`)
	assert.Contains(t, out, `<span class="gone">[REMOVED BINARY: dump.gz]</span>`)
	assert.Contains(t, out, `src="/static/a.css"`)
}

func TestOutputNameAndRelativeTo(t *testing.T) {
	assert.Equal(t, "index.html", OutputName("/"))
	assert.Equal(t, "index.html", OutputName(""))
	assert.Equal(t, "about.html", OutputName("/about"))
	assert.Equal(t, "about.html", OutputName("/about/"))
	assert.Equal(t, "a/b.html", OutputName("/a/b"))
	assert.Equal(t, "old.html", OutputName("/old.html"))

	assert.Equal(t, "contact.html", relativeTo("about.html", "contact.html"))
	assert.Equal(t, "../contact.html", relativeTo("a/b.html", "contact.html"))
	assert.Equal(t, "c.html", relativeTo("a/b.html", "a/c.html"))
	assert.Equal(t, "../../static/x.css", relativeTo("a/b/c.html", "static/x.css"))
}
