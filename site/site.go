package site

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/mux"
	"github.com/microcosm-cc/bluemonday"
	gotmpl "github.com/panyam/goutils/template"
	gut "github.com/panyam/goutils/utils"
	gotl "github.com/panyam/templar"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

// PageRoute maps a url path to the markdown file (without extension) under
// the content root that renders it.
type PageRoute struct {
	Path string
	Name string
}

// Pages is the fixed page table of the site, in menu order.
var Pages = []PageRoute{
	{"/", "home"},
	{"/about", "about"},
	{"/services", "services"},
	{"/contact", "contact"},
	{"/mori-machines", "mori_machines"},
	{"/test_hero", "test_hero"},
}

// The Site is the live marketing site: markdown pages with front matter
// rendered into a single layout, a static file tree and the quote endpoint.
// It is an ordinary http.Handler and knows nothing about exporting.
type Site struct {
	// Folder holding one markdown file per page and a machines/ subfolder
	ContentRoot string

	// Folders searched for the layout template
	TemplateFolders []string

	// Name of the layout template within TemplateFolders
	Layout string

	// Folder served under StaticPrefix
	StaticRoot   string
	StaticPrefix string

	// Delivers a validated quote request.  When nil the quote endpoint
	// answers 503 as no mail transport is configured.
	SendQuote QuoteSender

	Templates  *gotl.TemplateGroup
	LoaderList *gotl.LoaderList

	Logger *zap.Logger

	md        goldmark.Markdown
	sanitizer *bluemonday.Policy

	routerOnce sync.Once
	router     *mux.Router
}

// Init fills in defaults.  Paths are relative to the working directory.
func (s *Site) Init() *Site {
	if s.ContentRoot == "" {
		s.ContentRoot = "web/content"
	}
	s.ContentRoot = gut.ExpandUserPath(s.ContentRoot)
	if len(s.TemplateFolders) == 0 {
		s.TemplateFolders = []string{"web/templates"}
	}
	for i, f := range s.TemplateFolders {
		s.TemplateFolders[i] = gut.ExpandUserPath(f)
	}
	if s.Layout == "" {
		s.Layout = "layout.html"
	}
	if s.StaticRoot == "" {
		s.StaticRoot = "web/static"
	}
	s.StaticRoot = gut.ExpandUserPath(s.StaticRoot)
	if s.StaticPrefix == "" {
		s.StaticPrefix = "/static"
	}
	if s.Logger == nil {
		s.Logger = zap.L()
	}
	if s.Templates == nil {
		s.Templates = gotl.NewTemplateGroup()
		s.LoaderList = &gotl.LoaderList{}
		s.LoaderList.DefaultLoader = gotl.NewFileSystemLoader(s.TemplateFolders...)
		s.Templates.Loader = s.LoaderList
		s.Templates.AddFuncs(gotmpl.DefaultFuncMap())
	}
	if s.md == nil {
		s.md = newMarkdown()
	}
	if s.sanitizer == nil {
		s.sanitizer = newSanitizer()
	}
	return s
}

// GetRouter returns the site's router, building it on first use.
func (s *Site) GetRouter() *mux.Router {
	s.routerOnce.Do(func() {
		r := mux.NewRouter()
		r.StrictSlash(true)
		for _, p := range Pages {
			r.HandleFunc(p.Path, s.pageHandler(p.Name)).Methods("GET")
		}
		r.HandleFunc("/machines/{slug:[a-z0-9-]+}", s.machineHandler).Methods("GET")
		r.HandleFunc("/request_quote", s.quoteHandler).Methods("POST")

		prefix := s.StaticPrefix + "/"
		s.Logger.Debug("adding static route", zap.String("path", prefix), zap.String("folder", s.StaticRoot))
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(s.StaticRoot))))
		s.router = r
	})
	return s.router
}

func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.GetRouter().ServeHTTP(w, r)
}

func (s *Site) pageHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := s.LoadPage(name)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if page.List == "machines" {
			if page.Machines, err = s.Machines(); err != nil {
				s.fail(w, r, err)
				return
			}
		}
		s.render(w, r, page)
	}
}

func (s *Site) machineHandler(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	page, err := s.LoadPage(filepath.Join("machines", slug))
	if errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, page)
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, page *Page) {
	var buf bytes.Buffer
	if err := s.RenderPage(&buf, page); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// RenderPage renders page into the layout.
func (s *Site) RenderPage(w io.Writer, page *Page) error {
	tmpl, err := s.Templates.Loader.Load(s.Layout, "")
	if err != nil {
		return errors.Wrapf(err, "loading layout %s", s.Layout)
	}
	params := map[string]any{
		"Name":      page.Name,
		"Title":     page.Title,
		"Summary":   page.Summary,
		"Hero":      page.Hero,
		"QuoteForm": page.QuoteForm,
		"Machines":  page.Machines,
		"TOC":       page.TOC,
		"Body":      page.Body,
	}
	return errors.Wrapf(s.Templates.RenderHtmlTemplate(w, tmpl[0], "", params, nil), "rendering %s", page.Name)
}

func (s *Site) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error("page failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
