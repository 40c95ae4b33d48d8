// Package renderer writes API responses, error responses and the endpoint
// index as JSON, YAML or HTML documentation pages.
package renderer

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/google/safehtml"
	"github.com/google/safehtml/template"
	"gopkg.in/yaml.v3"

	"github.com/Zachacious/go-apidoc/internal/apidoc"
	"github.com/Zachacious/go-apidoc/internal/apiurls"
	"github.com/Zachacious/go-apidoc/internal/derrors"
	"github.com/Zachacious/go-apidoc/internal/log"
	"github.com/Zachacious/go-apidoc/internal/rst"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// A Format is a response serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

var mediaTypes = map[string]Format{
	"application/json":   FormatJSON,
	"application/yaml":   FormatYAML,
	"application/x-yaml": FormatYAML,
	"text/yaml":          FormatYAML,
	"text/html":          FormatHTML,
}

var contentTypes = map[Format]string{
	FormatJSON: "application/json",
	FormatYAML: "application/yaml",
	FormatHTML: "text/html; charset=utf-8",
}

// Negotiate returns the format requested by r: the "format" query
// parameter, else the first recognized media type of the Accept header,
// else JSON.
func Negotiate(r *http.Request) Format {
	switch f := Format(r.URL.Query().Get("format")); f {
	case FormatJSON, FormatYAML, FormatHTML:
		return f
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if f, ok := mediaTypes[mt]; ok {
			return f
		}
	}
	return FormatJSON
}

// CacheKey keys a page cache entry by negotiated format and URL.
func CacheKey(r *http.Request) string {
	return string(Negotiate(r)) + ":" + r.URL.String()
}

var templateFuncs = template.FuncMap{
	"rst": renderRST,
	"commaseparate": func(s []string) string {
		return strings.Join(s, ", ")
	},
}

func renderRST(text string) safehtml.HTML {
	return rst.HTML(rst.Parse(text, rst.Options{ReportLevel: rst.ReportNone}))
}

// Renderer implements apiurls.Renderer.
type Renderer struct {
	templates map[string]*template.Template
}

var _ apiurls.Renderer = (*Renderer)(nil)

// New parses the page templates.
func New() (*Renderer, error) {
	fsys := template.TrustedFSFromEmbed(templateFS)
	templates := map[string]*template.Template{}
	for _, page := range []string{"apidoc", "index"} {
		t, err := template.New("base.tmpl").Funcs(templateFuncs).ParseFS(fsys, "templates/base.tmpl", "templates/"+page+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("ParseFS(%q): %v", page, err)
		}
		templates[page] = t
	}
	return &Renderer{templates: templates}, nil
}

// docPage is the data of the apidoc template.
type docPage struct {
	Title    string
	Heading  string
	DocData  *apidoc.DocumentationData
	Error    *errorBody
	Response string
}

// errorBody is the serialized form of an error response.
type errorBody struct {
	Status    int    `json:"-" yaml:"-"`
	Exception string `json:"exception" yaml:"exception"`
	Reason    string `json:"reason" yaml:"reason"`
}

var exceptionNames = []struct {
	err  error
	name string
}{
	{derrors.NotFound, "NotFoundExc"},
	{derrors.InvalidArgument, "BadInputExc"},
	{derrors.MethodNotAllowed, "MethodNotAllowed"},
	{derrors.NotImplemented, "NotImplementedError"},
	{derrors.MissingDocstring, "MissingDocstring"},
	{derrors.MalformedMarkup, "MalformedMarkup"},
	{derrors.UnknownNode, "UnknownNode"},
}

func exceptionName(err error) string {
	for _, e := range exceptionNames {
		if errors.Is(err, e.err) {
			return e.name
		}
	}
	return "Exception"
}

// Render writes resp in the negotiated format. Byte slices are written as
// is with an octet-stream content type. Responses without data, such as
// documentation pages, serialize their documentation.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, resp *apiurls.Response) {
	ctx := r.Context()
	if b, ok := resp.Data.([]byte); ok {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(b)
		return
	}
	format := Negotiate(r)
	if format == FormatHTML {
		page := &docPage{
			Title:   r.URL.Path,
			Heading: r.URL.Path,
			DocData: resp.DocData,
		}
		if resp.Data != nil {
			b, err := json.MarshalIndent(resp.Data, "", "    ")
			if err != nil {
				rd.RenderError(w, r, err)
				return
			}
			page.Response = string(b)
		}
		rd.servePage(ctx, w, http.StatusOK, "apidoc", page)
		return
	}
	var payload any = resp.Data
	if resp.Data == nil {
		payload = resp.DocData
	}
	rd.serveData(ctx, w, http.StatusOK, format, payload)
}

// RenderError writes err with the status derived from it. HTML error pages
// include the documentation of the endpoint when err is an
// *apiurls.DocError.
func (rd *Renderer) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := derrors.ToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Errorf(ctx, "%s %s: %v", r.Method, r.URL, err)
	}
	body := &errorBody{Status: status, Exception: exceptionName(err), Reason: err.Error()}
	if Negotiate(r) != FormatHTML {
		rd.serveData(ctx, w, status, Negotiate(r), body)
		return
	}
	page := &docPage{Title: http.StatusText(status), Heading: r.URL.Path, Error: body}
	var docErr *apiurls.DocError
	if errors.As(err, &docErr) {
		page.DocData = docErr.DocData
	}
	rd.servePage(ctx, w, status, "apidoc", page)
}

// RenderIndex writes the endpoint index.
func (rd *Renderer) RenderIndex(w http.ResponseWriter, r *http.Request, categories []apiurls.Category) {
	ctx := r.Context()
	format := Negotiate(r)
	if format != FormatHTML {
		rd.serveData(ctx, w, http.StatusOK, format, categories)
		return
	}
	rd.servePage(ctx, w, http.StatusOK, "index", struct{ Categories []apiurls.Category }{categories})
}

func (rd *Renderer) serveData(ctx context.Context, w http.ResponseWriter, status int, format Format, v any) {
	var (
		b   []byte
		err error
	)
	switch format {
	case FormatYAML:
		b, err = yaml.Marshal(v)
	default:
		format = FormatJSON
		b, err = json.Marshal(v)
	}
	if err != nil {
		log.Errorf(ctx, "serializing %T as %s: %v", v, format, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(status)
	w.Write(b)
}

func (rd *Renderer) servePage(ctx context.Context, w http.ResponseWriter, status int, name string, page any) {
	var buf bytes.Buffer
	if err := rd.templates[name].ExecuteTemplate(&buf, "base", page); err != nil {
		log.Errorf(ctx, "executing page template %q: %v", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypes[FormatHTML])
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Errorf(ctx, "writing page %q: %v", name, err)
	}
}
