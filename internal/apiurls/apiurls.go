// Package apiurls registers documented API endpoints: their URL patterns,
// their documentation pages and the endpoint index.
package apiurls

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/Zachacious/go-apidoc/internal/apidoc"
	"github.com/Zachacious/go-apidoc/internal/derrors"
	"github.com/Zachacious/go-apidoc/internal/middleware"
)

// DefaultAPIVersion is the API version of routes registered without the
// APIVersion option.
const DefaultAPIVersion = "1"

// TagHidden excludes an endpoint from the index.
const TagHidden = "hidden"

// A Handler computes the result of an API call.
type Handler func(*http.Request) (any, error)

// An Endpoint is a handler together with its docstring.
type Endpoint struct {
	// Name identifies the handler in the documentation cache. It defaults
	// to the fully qualified name of Handler.
	Name    string
	Doc     string
	Handler Handler
}

// Response is the result of a documented handler: the handler's data
// followed by the documentation of the endpoint. Data is nil for pure
// documentation pages.
type Response struct {
	Data    any                       `json:"data" yaml:"data"`
	DocData *apidoc.DocumentationData `json:"doc_data" yaml:"doc_data"`
}

// A DocError is a handler error annotated with the documentation of the
// failing endpoint, so that error pages can still display it.
type DocError struct {
	Err     error
	DocData *apidoc.DocumentationData
}

func (e *DocError) Error() string { return e.Err.Error() }

func (e *DocError) Unwrap() error { return e.Err }

// A DocumentedHandler is a Handler whose results carry its documentation.
type DocumentedHandler func(*http.Request) (*Response, error)

// Route is an entry of the endpoint index.
type Route struct {
	Category      string   `json:"category" yaml:"category"`
	Docstring     string   `json:"docstring" yaml:"docstring"`
	Route         string   `json:"route" yaml:"route"`
	RouteViewName string   `json:"route_view_name" yaml:"route_view_name"`
	NoArgs        bool     `json:"noargs" yaml:"noargs"`
	APIVersion    string   `json:"api_version" yaml:"api_version"`
	Tags          []string `json:"tags" yaml:"tags"`
}

// A Category groups the index entries sharing a category name.
type Category struct {
	Name   string   `json:"name" yaml:"name"`
	Routes []*Route `json:"routes" yaml:"routes"`
}

// A Renderer writes API responses, errors and the endpoint index.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, resp *Response)
	RenderError(w http.ResponseWriter, r *http.Request, err error)
	RenderIndex(w http.ResponseWriter, r *http.Request, categories []Category)
}

// A URLPattern is a registered view.
type URLPattern struct {
	Pattern string
	Name    string
	Handler http.Handler
	// Cacheable views are served through the page cache when one is
	// installed.
	Cacheable bool
}

// APIURLs is the registry of documented endpoints. Registration happens
// during setup, before Install; the registry is read-only afterwards.
type APIURLs struct {
	parser   *apidoc.Parser
	renderer Renderer
	reserved string

	routes   map[string]*Route
	patterns []URLPattern
	names    map[string]bool
	versions map[string]bool
}

// New returns an empty registry. Index entries of the reserved category
// are listed last.
func New(parser *apidoc.Parser, renderer Renderer, reservedCategory string) *APIURLs {
	return &APIURLs{
		parser:   parser,
		renderer: renderer,
		reserved: reservedCategory,
		routes:   map[string]*Route{},
		names:    map[string]bool{},
		versions: map[string]bool{DefaultAPIVersion: true},
	}
}

// An Option configures APIDoc and APIRoute.
type Option func(*options)

type options struct {
	noargs       bool
	tags         []string
	apiVersion   string
	methods      []string
	checksumArgs []string
}

func newOptions(opts []Option) *options {
	o := &options{apiVersion: DefaultAPIVersion, methods: []string{http.MethodGet}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NoArgs marks an endpoint as taking no URL arguments.
func NoArgs() Option { return func(o *options) { o.noargs = true } }

// Tags attaches tags to an endpoint. TagHidden keeps it out of the index.
func Tags(tags ...string) Option { return func(o *options) { o.tags = append(o.tags, tags...) } }

// APIVersion sets the API version prefix of the route.
func APIVersion(v string) Option { return func(o *options) { o.apiVersion = v } }

// Methods sets the HTTP methods an APIRoute answers. GET implies HEAD.
func Methods(methods ...string) Option { return func(o *options) { o.methods = methods } }

// ChecksumArgs names path wildcards holding checksums. Requests with
// upper-case checksums are redirected to the lower-case URL.
func ChecksumArgs(names ...string) Option {
	return func(o *options) { o.checksumArgs = append(o.checksumArgs, names...) }
}

// ViewName returns the view name of route under API version v, for example
// "api-1-revision" for "/revision/".
func ViewName(v, route string) string {
	parts := []string{"api", v}
	for _, s := range strings.Split(route, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "-")
}

// APIDoc returns a function documenting an endpoint served at route. The
// documentation is computed immediately, so a missing or malformed
// docstring fails registration. Registration adds the endpoint to the
// index unless it is tagged hidden, and installs its documentation page at
// /api/<v><route>doc/ along with a redirect from the unversioned
// /<v><route>doc/ URL.
func (u *APIURLs) APIDoc(route, category string, opts ...Option) func(Endpoint) (DocumentedHandler, error) {
	o := newOptions(opts)
	return func(e Endpoint) (_ DocumentedHandler, err error) {
		defer derrors.Wrap(&err, "APIDoc(%q, %q)", route, category)

		name := e.Name
		if name == "" {
			name = apidoc.HandlerName(e.Handler)
		}
		key := apidoc.Key{Handler: name, Route: route, NoArgs: o.noargs}
		docData, err := u.parser.GetDocData(context.Background(), key, e.Doc)
		if err != nil {
			return nil, err
		}

		fullRoute := "/api/" + o.apiVersion + route
		viewName := ViewName(o.apiVersion, route)
		if !slices.Contains(o.tags, TagHidden) {
			if _, ok := u.routes[fullRoute]; ok {
				return nil, fmt.Errorf("%w: route %s is already documented", derrors.InvalidArgument, fullRoute)
			}
			u.routes[fullRoute] = &Route{
				Category:      category,
				Docstring:     docData.Summary(),
				Route:         fullRoute,
				RouteViewName: viewName,
				NoArgs:        o.noargs,
				APIVersion:    o.apiVersion,
				Tags:          slices.Clone(o.tags),
			}
		}
		u.versions[o.apiVersion] = true

		docURL := fullRoute + "doc/"
		docView := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u.renderer.Render(w, r, &Response{DocData: docData})
		})
		if err := u.addPattern(URLPattern{
			Pattern:   http.MethodGet + " " + docURL + "{$}",
			Name:      viewName + "-doc",
			Handler:   docView,
			Cacheable: true,
		}); err != nil {
			return nil, err
		}
		if err := u.addPattern(URLPattern{
			Pattern: http.MethodGet + " /" + o.apiVersion + route + "doc/{$}",
			Name:    viewName + "-doc-legacy",
			Handler: http.RedirectHandler(docURL, http.StatusMovedPermanently),
		}); err != nil {
			return nil, err
		}

		return func(r *http.Request) (*Response, error) {
			data, err := e.Handler(r)
			if err != nil {
				return nil, &DocError{Err: err, DocData: docData}
			}
			return &Response{Data: data, DocData: docData}, nil
		}, nil
	}
}

// APIRoute registers h at /api/<v><pattern>. pattern uses net/http
// wildcards, as in "/revision/{sha1_git}/".
func (u *APIURLs) APIRoute(pattern, viewName string, h DocumentedHandler, opts ...Option) (err error) {
	defer derrors.Wrap(&err, "APIRoute(%q)", pattern)
	o := newOptions(opts)
	full := "/api/" + o.apiVersion + pattern
	if strings.HasSuffix(full, "/") {
		full += "{$}"
	}
	allowed := allowedMethods(o.methods)
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if !slices.Contains(allowed, r.Method) {
			u.renderer.RenderError(w, r, fmt.Errorf("%w: %s", derrors.MethodNotAllowed, r.Method))
			return
		}
		resp, err := h(r)
		if err != nil {
			u.renderer.RenderError(w, r, err)
			return
		}
		u.renderer.Render(w, r, resp)
	})
	if len(o.checksumArgs) > 0 {
		handler = checksumRedirect(o.checksumArgs, handler)
	}
	u.versions[o.apiVersion] = true
	return u.addPattern(URLPattern{Pattern: full, Name: viewName, Handler: handler})
}

func allowedMethods(methods []string) []string {
	var allowed []string
	add := func(m string) {
		if !slices.Contains(allowed, m) {
			allowed = append(allowed, m)
		}
	}
	for _, m := range methods {
		add(strings.ToUpper(m))
	}
	if slices.Contains(allowed, http.MethodGet) {
		add(http.MethodHead)
	}
	add(http.MethodOptions)
	return allowed
}

// checksumRedirect redirects requests whose checksum path values are not
// lower case to the URL with lower-cased values.
func checksumRedirect(names []string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		for _, name := range names {
			v := r.PathValue(name)
			if lower := strings.ToLower(v); lower != v {
				path = strings.Replace(path, "/"+v+"/", "/"+lower+"/", 1)
			}
		}
		if path == r.URL.Path {
			h.ServeHTTP(w, r)
			return
		}
		u := *r.URL
		u.Path = path
		http.Redirect(w, r, u.RequestURI(), http.StatusFound)
	})
}

// AddURLPattern registers handler for pattern under a unique view name.
func (u *APIURLs) AddURLPattern(pattern string, handler http.Handler, name string) error {
	return u.addPattern(URLPattern{Pattern: pattern, Name: name, Handler: handler})
}

func (u *APIURLs) addPattern(p URLPattern) error {
	if u.names[p.Name] {
		return fmt.Errorf("%w: duplicate view name %q", derrors.InvalidArgument, p.Name)
	}
	u.names[p.Name] = true
	u.patterns = append(u.patterns, p)
	return nil
}

// Lookup returns the URL pattern registered under name.
func (u *APIURLs) Lookup(name string) (URLPattern, bool) {
	for _, p := range u.patterns {
		if p.Name == name {
			return p, true
		}
	}
	return URLPattern{}, false
}

// Routes returns the index entry of every documented route, keyed by the
// full route.
func (u *APIURLs) Routes() map[string]*Route {
	return u.routes
}

// Categories returns the index grouped by category. Categories are sorted
// by name with the reserved category last, and routes are sorted within
// each category.
func (u *APIURLs) Categories() []Category {
	byName := map[string]*Category{}
	for _, r := range u.routes {
		c := byName[r.Category]
		if c == nil {
			c = &Category{Name: r.Category}
			byName[r.Category] = c
		}
		c.Routes = append(c.Routes, r)
	}
	var cats []Category
	for _, c := range byName {
		sort.Slice(c.Routes, func(i, j int) bool { return c.Routes[i].Route < c.Routes[j].Route })
		cats = append(cats, *c)
	}
	sort.Slice(cats, func(i, j int) bool {
		ri, rj := cats[i].Name == u.reserved, cats[j].Name == u.reserved
		if ri != rj {
			return rj
		}
		return cats[i].Name < cats[j].Name
	})
	return cats
}

// Install registers every URL pattern and the endpoint index, at /api/ and
// /api/<v>/, with handle. Cacheable views and the index are wrapped with
// pageCache when it is not nil.
func (u *APIURLs) Install(handle func(string, http.Handler), pageCache middleware.Middleware) {
	if pageCache == nil {
		pageCache = middleware.Identity()
	}
	for _, p := range u.patterns {
		h := p.Handler
		if p.Cacheable {
			h = pageCache(h)
		}
		handle(p.Pattern, h)
	}
	index := pageCache(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.renderer.RenderIndex(w, r, u.Categories())
	}))
	handle(http.MethodGet+" /api/{$}", index)
	var versions []string
	for v := range u.versions {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	for _, v := range versions {
		handle(http.MethodGet+" /api/"+v+"/{$}", index)
	}
}
