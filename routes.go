package s3freeze

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Route is one entry of a server's route table as the exporter sees it.
type Route struct {
	// Pattern is the path template, eg "/" or "/about" or "/machines/{slug}"
	Pattern string

	// Methods the route accepts.  Empty means any method.
	Methods []string

	// Params are the names of the path variables in Pattern.
	Params []string

	// Prefix is set for routes that serve a whole subtree (eg a static file
	// handler mounted at /static/).
	Prefix bool
}

// Exportable tells if the route can be frozen into a single file: it must
// answer GET, take no parameters and not be a subtree mount.
func (r Route) Exportable() bool {
	if r.Prefix || len(r.Params) > 0 {
		return false
	}
	return len(r.Methods) == 0 || slices.Contains(r.Methods, http.MethodGet)
}

// OutputName is the file a page path is exported to, relative to the output
// root: "/" becomes index.html and "/a/b" becomes a/b.html.
func OutputName(pattern string) string {
	p := strings.Trim(pattern, "/")
	if p == "" {
		return "index.html"
	}
	if strings.HasSuffix(p, ".html") {
		return p
	}
	return p + ".html"
}

// RouteTable is anything that can enumerate its routes in a stable order.
type RouteTable interface {
	Routes() ([]Route, error)
}

// RouteList is a fixed route table.
type RouteList []Route

func (l RouteList) Routes() ([]Route, error) {
	return l, nil
}

// MuxRoutes exposes the route table of a gorilla/mux router, in the order
// the routes were registered.
func MuxRoutes(router *mux.Router) RouteTable {
	return &muxRoutes{router}
}

type muxRoutes struct {
	router *mux.Router
}

func (m *muxRoutes) Routes() (out []Route, err error) {
	err = m.router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err != nil {
			// host or header only matchers have no path to render
			return nil
		}
		r := Route{Pattern: tpl}
		if methods, err := route.GetMethods(); err == nil && len(methods) > 0 {
			r.Methods = methods
		}
		if vars, err := route.GetVarNames(); err == nil && len(vars) > 0 {
			r.Params = vars
		}
		if re, err := route.GetPathRegexp(); err == nil {
			// prefix matchers are the only ones not anchored at the end
			r.Prefix = !strings.HasSuffix(re, "$")
		}
		out = append(out, r)
		return nil
	})
	return out, errors.Wrap(err, "walking mux routes")
}

// ChiRoutes exposes the route table of a chi router.  chi does not keep
// registration order so routes come back sorted by pattern.
func ChiRoutes(router chi.Routes) RouteTable {
	return &chiRoutes{router}
}

type chiRoutes struct {
	router chi.Routes
}

func (c *chiRoutes) Routes() ([]Route, error) {
	methods := map[string][]string{}
	err := chi.Walk(c.router, func(method, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		methods[route] = append(methods[route], method)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walking chi routes")
	}

	out := make([]Route, 0, len(methods))
	for pattern, ms := range methods {
		sort.Strings(ms)
		r := Route{Pattern: pattern, Methods: ms}
		for _, seg := range strings.Split(pattern, "/") {
			if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
				name, _, _ := strings.Cut(seg[1:len(seg)-1], ":")
				r.Params = append(r.Params, name)
			} else if seg == "*" {
				r.Prefix = true
			}
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out, nil
}

// RenderResult is the outcome of rendering one route in-process.  Either Err
// is set or Body holds a page rendered with a 200.
type RenderResult struct {
	Route    Route
	Status   int
	Header   http.Header
	Body     []byte
	Duration time.Duration
	Err      error
}

// OK tells if the route rendered successfully.
func (r RenderResult) OK() bool {
	return r.Err == nil
}

// Renderer drives a handler with simulated GET requests, no sockets involved.
type Renderer struct {
	Handler http.Handler
	l       *zap.Logger
}

// NewRenderer creates a renderer for handler.
func NewRenderer(handler http.Handler, l *zap.Logger) *Renderer {
	if l == nil {
		l = zap.NewNop()
	}
	return &Renderer{Handler: handler, l: l.Named("renderer")}
}

// Render issues a GET for the route's pattern.  A panicking handler or a
// non 200 status yields a failed result instead of unwinding the caller.
func (r *Renderer) Render(route Route) (res RenderResult) {
	res.Route = route
	// NewRequest panics on patterns that are not valid request URIs
	defer func() {
		if p := recover(); p != nil {
			res.Err = errors.Wrapf(ErrRender, "%s: %v", route.Pattern, p)
			res.Body = nil
		}
	}()

	req := httptest.NewRequest(http.MethodGet, route.Pattern, nil)
	rec := httptest.NewRecorder()

	m := httpsnoop.CaptureMetrics(r.Handler, rec, req)
	r.l.Debug("rendered",
		zap.String("path", route.Pattern),
		zap.Int("code", m.Code),
		zap.Duration("duration", m.Duration),
		zap.Int64("bytes", m.Written),
	)

	res.Status = m.Code
	res.Duration = m.Duration
	res.Header = rec.Header()
	if m.Code != http.StatusOK {
		res.Err = errors.Wrapf(ErrStatus, "%s: status %d", route.Pattern, m.Code)
		return
	}
	res.Body = rec.Body.Bytes()
	return
}
