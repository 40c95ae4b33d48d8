// Package endpoint provides a fluent builder that documents a handler and
// routes it in an apiurls registry.
//
//	endpoint.Handler(a.revision).
//		Route("/revision/", "Archive").
//		Doc(revisionDoc).
//		Pattern("/revision/{sha1_git}/", "api-1-revision", apiurls.ChecksumArgs("sha1_git")).
//		Register(u)
package endpoint

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/Zachacious/go-apidoc/internal/apiurls"
	"github.com/Zachacious/go-apidoc/internal/derrors"
	"github.com/Zachacious/go-apidoc/internal/httpdomain"
	"github.com/Zachacious/go-apidoc/internal/model"
)

type pattern struct {
	path string
	name string
	opts []apiurls.Option
}

// Builder accumulates the documentation and URL patterns of one endpoint.
type Builder struct {
	handler  apiurls.Handler
	name     string
	route    string
	category string
	doc      string
	version  string
	docOpts  []apiurls.Option
	patterns []pattern
}

// Handler starts a builder for h.
func Handler(h apiurls.Handler) *Builder {
	return &Builder{handler: h}
}

// Route sets the documented route, relative to the API version prefix,
// and the index category.
func (b *Builder) Route(route, category string) *Builder {
	b.route, b.category = route, category
	return b
}

// Name overrides the handler name used in the documentation cache.
func (b *Builder) Name(name string) *Builder { b.name = name; return b }

// Doc sets the httpdomain docstring of the endpoint.
func (b *Builder) Doc(doc string) *Builder { b.doc = doc; return b }

// NoArgs marks the endpoint as taking no URL arguments.
func (b *Builder) NoArgs() *Builder {
	b.docOpts = append(b.docOpts, apiurls.NoArgs())
	return b
}

// Tag adds index tags to the endpoint.
func (b *Builder) Tag(tags ...string) *Builder {
	b.docOpts = append(b.docOpts, apiurls.Tags(tags...))
	return b
}

// Hidden keeps the endpoint out of the index.
func (b *Builder) Hidden() *Builder { return b.Tag(apiurls.TagHidden) }

// APIVersion sets the version prefix of the route and of every pattern.
func (b *Builder) APIVersion(v string) *Builder { b.version = v; return b }

// Pattern adds a URL pattern serving the endpoint. Options apply to this
// pattern only.
func (b *Builder) Pattern(path, name string, opts ...apiurls.Option) *Builder {
	b.patterns = append(b.patterns, pattern{path: path, name: name, opts: opts})
	return b
}

// Register documents the endpoint in u and routes each of its patterns.
func (b *Builder) Register(u *apiurls.APIURLs) (err error) {
	defer derrors.Wrap(&err, "endpoint.Register(%q)", b.route)

	if b.route == "" {
		return fmt.Errorf("%w: no route", derrors.InvalidArgument)
	}
	if len(b.patterns) == 0 {
		return fmt.Errorf("%w: no URL pattern", derrors.InvalidArgument)
	}
	h, err := u.APIDoc(b.route, b.category, b.withVersion(b.docOpts)...)(apiurls.Endpoint{
		Name:    b.name,
		Doc:     b.doc,
		Handler: b.handler,
	})
	if err != nil {
		return err
	}
	for _, p := range b.patterns {
		if err := u.APIRoute(p.path, p.name, h, b.withVersion(p.opts)...); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) withVersion(opts []apiurls.Option) []apiurls.Option {
	if b.version == "" {
		return opts
	}
	return append([]apiurls.Option{apiurls.APIVersion(b.version)}, opts...)
}

var wildcardRe = regexp.MustCompile(`\{(\w+)\}`)

// FromModel returns a builder serving the documentation of a scanned
// endpoint. Its URLs answer with a NotImplemented error. URLs outside the
// /api/<version> prefix of the endpoint are skipped.
func FromModel(e *model.Endpoint) *Builder {
	b := Handler(notImplemented).
		Route(e.Route, e.Category).
		Name(e.HandlerName()).
		Doc(e.Doc).
		APIVersion(e.APIVersion)
	if e.NoArgs {
		b.NoArgs()
	}
	if len(e.Tags) > 0 {
		b.Tag(e.Tags...)
	}
	prefix := "/api/" + e.APIVersion
	for _, u := range e.DocData.URLs {
		path, ok := strings.CutPrefix(httpdomain.PathPattern(u.Rule), prefix)
		if !ok {
			continue
		}
		var methods []string
		for _, m := range u.Methods {
			if m != http.MethodHead && m != http.MethodOptions {
				methods = append(methods, m)
			}
		}
		name := apiurls.ViewName(e.APIVersion, wildcardRe.ReplaceAllString(path, "$1"))
		b.Pattern(path, name, apiurls.Methods(methods...))
	}
	return b
}

func notImplemented(r *http.Request) (any, error) {
	return nil, fmt.Errorf("%w: %s %s is documented but not served", derrors.NotImplemented, r.Method, r.URL.Path)
}
