package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/Zachacious/go-apidoc/internal/apidoc"
	"github.com/Zachacious/go-apidoc/internal/derrors"
	"github.com/Zachacious/go-apidoc/internal/httpdomain"
	"github.com/Zachacious/go-apidoc/internal/model"
)

// metadata holds the @ lines of a doc comment.
type metadata struct {
	Category   string
	Route      string
	APIVersion string
	Tags       []string
	NoArgs     bool
	Response   string
}

// parseDocComment separates the metadata lines of text from the rest.
// Lines starting with an unknown @ tag are kept.
func parseDocComment(text string) (*metadata, string, error) {
	md := &metadata{}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "@") {
			kept = append(kept, line)
			continue
		}
		tag, value, _ := strings.Cut(trimmed, " ")
		value = strings.TrimSpace(value)
		switch tag {
		case "@category":
			md.Category = value
		case "@route":
			md.Route = value
		case "@apiversion":
			md.APIVersion = value
		case "@response":
			md.Response = value
		case "@tags":
			for _, t := range strings.Split(value, ",") {
				if t = strings.TrimSpace(t); t != "" {
					md.Tags = append(md.Tags, t)
				}
			}
		case "@noargs":
			md.NoArgs = true
			continue
		default:
			kept = append(kept, line)
			continue
		}
		if value == "" {
			return nil, "", fmt.Errorf("%w: %s needs a value", derrors.InvalidArgument, tag)
		}
	}
	return md, strings.Join(kept, "\n"), nil
}

// docstring returns the part of a function doc comment starting at its
// first httpdomain directive. The Go prose before it is dropped.
func docstring(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.Contains(line, httpdomain.Marker) {
			return strings.Join(lines[i:], "\n")
		}
	}
	return text
}

var versionRe = regexp.MustCompile(`^/api/([^/]+)/`)

// endpoint returns the endpoint documented by d, or nil if d declares no
// endpoint URL.
func (s *scanner) endpoint(d declaration) (_ *model.Endpoint, err error) {
	defer derrors.Wrap(&err, "%s", d.name)

	if !httpdomain.Contains(d.doc) {
		return nil, nil
	}
	md, rest, err := parseDocComment(d.comment)
	if err != nil {
		return nil, err
	}
	doc := d.doc
	if !d.isConst {
		doc = docstring(rest)
	}
	_, urls := httpdomain.Filter(doc)
	if len(urls) == 0 {
		return nil, nil
	}

	e := &model.Endpoint{
		Package:    s.pkg.Path(),
		Name:       d.name,
		Position:   s.fset.Position(d.pos).String(),
		Category:   md.Category,
		Route:      md.Route,
		APIVersion: md.APIVersion,
		NoArgs:     md.NoArgs,
		Tags:       md.Tags,
		Doc:        doc,
	}
	if e.Category == "" {
		e.Category = s.cfg.ReservedCategory
	}
	if e.Route == "" {
		e.Route = httpdomain.RouteOf(urls[0].Rule)
	}
	if e.APIVersion == "" {
		e.APIVersion = s.cfg.APIVersion
		if m := versionRe.FindStringSubmatch(urls[0].Rule); m != nil {
			e.APIVersion = m[1]
		}
	}
	key := apidoc.Key{Handler: e.HandlerName(), Route: e.Route, NoArgs: e.NoArgs}
	if e.DocData, err = apidoc.Build(key, doc, false); err != nil {
		return nil, err
	}
	if md.Response != "" {
		if e.Response, err = s.responseSchema(md.Response); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// responseSchema returns the schema of a type expression such as
// "Revision", "[]Origin" or "net/url.URL".
func (s *scanner) responseSchema(expr string) (*openapi3.SchemaRef, error) {
	if elem, ok := strings.CutPrefix(expr, "[]"); ok {
		items, err := s.responseSchema(elem)
		if err != nil {
			return nil, err
		}
		schema := openapi3.NewArraySchema()
		schema.Items = items
		return schema.NewRef(), nil
	}
	t := findNamedType(s.pkg, strings.TrimPrefix(expr, "*"))
	if t == nil {
		return nil, fmt.Errorf("%w: unknown response type %q", derrors.InvalidArgument, expr)
	}
	return s.schemas.GenerateSchema(t), nil
}
