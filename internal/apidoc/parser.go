package apidoc

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"sync"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"golang.org/x/sync/singleflight"

	"github.com/Zachacious/go-apidoc/internal/derrors"
	"github.com/Zachacious/go-apidoc/internal/httpdomain"
	"github.com/Zachacious/go-apidoc/internal/rst"
)

// A Key identifies the documentation of an endpoint.
type Key struct {
	// Handler names the endpoint handler, usually its fully qualified
	// function name.
	Handler string
	Route   string
	NoArgs  bool
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%t", k.Handler, k.Route, k.NoArgs)
}

// HandlerName returns the fully qualified name of the function fn.
func HandlerName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return ""
}

// Build computes the documentation of an endpoint from its docstring.
//
// A docstring without httpdomain directives is used as the description
// as is. When docBuild is set, httpdomain docstrings are not parsed at all
// and only the route metadata is returned.
func Build(key Key, doc string, docBuild bool) (_ *DocumentationData, err error) {
	defer derrors.Wrap(&err, "apidoc.Build(%q)", key.Route)

	if doc == "" {
		return nil, fmt.Errorf("%w: expected a docstring for function %s", derrors.MissingDocstring, key.Handler)
	}
	data := newDocumentationData(key.Route, key.NoArgs)
	if !httpdomain.Contains(doc) {
		data.Description = doc
		return data, nil
	}
	if docBuild {
		return data, nil
	}

	text, urls := httpdomain.Filter(doc)
	data.URLs = append(data.URLs, urls...)
	tree := rst.Parse(text, rst.Options{ReportLevel: rst.ReportNone})
	rst.Prune(tree, rst.KindSystemMessage)
	if _, err := newVisitor(data).visit(tree); err != nil {
		return nil, err
	}
	data.InputsList = bulletList(data.Inputs)
	data.ReturnsList = bulletList(data.Returns)
	return data, nil
}

// A Parser computes endpoint documentation and caches it for the lifetime
// of the process. It is safe for concurrent use.
type Parser struct {
	docBuild bool

	mu    sync.Mutex
	cache map[Key]*DocumentationData
	group singleflight.Group
}

// NewParser returns a Parser. docBuild disables the parsing of httpdomain
// docstrings, for use while an external documentation generator processes
// the same docstrings.
func NewParser(docBuild bool) *Parser {
	return &Parser{docBuild: docBuild, cache: map[Key]*DocumentationData{}}
}

// GetDocData returns the documentation of the endpoint identified by key,
// whose docstring is doc. Results are cached by key; errors are not.
func (p *Parser) GetDocData(ctx context.Context, key Key, doc string) (*DocumentationData, error) {
	p.mu.Lock()
	d, ok := p.cache[key]
	p.mu.Unlock()
	recordCacheResult(ctx, ok)
	if ok {
		return d, nil
	}
	v, err, _ := p.group.Do(key.String(), func() (any, error) {
		d, err := Build(key, doc, p.docBuild)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.cache[key] = d
		p.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DocumentationData), nil
}

var (
	keyCacheHit = tag.MustNewKey("apidoc.cache.hit")

	docCacheResults = stats.Int64(
		"go-apidoc/apidoc/doc_cache_count",
		"The result of a documentation cache lookup.",
		stats.UnitDimensionless,
	)

	// DocCacheResultCount counts documentation cache lookups by result.
	DocCacheResultCount = &view.View{
		Name:        "go-apidoc/apidoc/doc_cache_count",
		Measure:     docCacheResults,
		Aggregation: view.Count(),
		Description: "documentation cache results, by cache hit",
		TagKeys:     []tag.Key{keyCacheHit},
	}
)

func recordCacheResult(ctx context.Context, hit bool) {
	stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(keyCacheHit, strconv.FormatBool(hit)),
	}, docCacheResults.M(1))
}
