// Package assembler builds an OpenAPI 3 document from documented
// endpoints.
package assembler

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/Zachacious/go-apidoc/internal/apidoc"
	"github.com/Zachacious/go-apidoc/internal/apiurls"
	"github.com/Zachacious/go-apidoc/internal/config"
	"github.com/Zachacious/go-apidoc/internal/httpdomain"
	"github.com/Zachacious/go-apidoc/internal/model"
)

// Content types of structured responses, as served by the renderer.
var dataContentTypes = []string{"application/json", "application/yaml"}

const octetStream = "application/octet-stream"

// BuildSpec constructs the OpenAPI document describing the endpoints of
// apiModel. Hidden endpoints are left out.
func BuildSpec(apiModel *model.APIModel, cfg *config.Config) (*openapi3.T, error) {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    cfg.Info,
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
		Paths: openapi3.NewPaths(),
	}
	for name, s := range apiModel.Schemas {
		spec.Components.Schemas[name] = s
	}
	for _, url := range cfg.Servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	categories := map[string]bool{}
	for _, e := range apiModel.Endpoints {
		if slices.Contains(e.Tags, apiurls.TagHidden) {
			continue
		}
		if err := addEndpoint(spec, e); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Position, err)
		}
		categories[e.Category] = true
	}
	spec.Tags = tags(categories, cfg.ReservedCategory)
	return spec, nil
}

// tags returns one tag per category, sorted by name with the reserved
// category last.
func tags(categories map[string]bool, reserved string) openapi3.Tags {
	var names []string
	for c := range categories {
		names = append(names, c)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := names[i] == reserved, names[j] == reserved
		if ri != rj {
			return rj
		}
		return names[i] < names[j]
	})
	var ts openapi3.Tags
	for _, n := range names {
		ts = append(ts, &openapi3.Tag{Name: n})
	}
	return ts
}

// addEndpoint adds one operation per URL and declared method of e.
func addEndpoint(spec *openapi3.T, e *model.Endpoint) error {
	for _, u := range e.DocData.URLs {
		path := httpdomain.PathPattern(u.Rule)
		pathItem := spec.Paths.Value(path)
		if pathItem == nil {
			pathItem = &openapi3.PathItem{}
			spec.Paths.Set(path, pathItem)
		}
		for _, method := range u.Methods {
			if method == "HEAD" || method == "OPTIONS" {
				continue
			}
			if pathItem.GetOperation(method) != nil {
				return fmt.Errorf("%s %s is documented twice", method, path)
			}
			pathItem.SetOperation(method, buildOperation(e, method, path))
		}
	}
	return nil
}

var pathParamRe = regexp.MustCompile(`\{(\w+)\}`)

func buildOperation(e *model.Endpoint, method, path string) *openapi3.Operation {
	d := e.DocData
	op := &openapi3.Operation{
		OperationID: operationID(method, path),
		Summary:     d.Summary(),
		Description: d.Description,
		Tags:        []string{e.Category},
		Responses:   &openapi3.Responses{},
	}

	for _, m := range pathParamRe.FindAllStringSubmatch(path, -1) {
		p := openapi3.NewPathParameter(m[1]).WithSchema(openapi3.NewStringSchema())
		if a, ok := findArg(d.Args, m[1]); ok {
			p.Description = a.Doc
			p.Schema = schemaForType(a.Type).NewRef()
		}
		op.AddParameter(p)
	}
	for _, a := range d.Params {
		op.AddParameter(openapi3.NewQueryParameter(a.Name).
			WithDescription(a.Doc).
			WithSchema(schemaForType(a.Type)))
	}
	for _, h := range d.ReqHeaders {
		op.AddParameter(openapi3.NewHeaderParameter(h.Name).
			WithDescription(h.Doc).
			WithSchema(openapi3.NewStringSchema()))
	}

	if d.InputType != "" && acceptsBody(method) {
		body := openapi3.NewRequestBody().WithRequired(true)
		if d.InputType == apidoc.TypeOctetStream {
			body.WithContent(openapi3.NewContentWithSchema(binarySchema(), []string{octetStream}))
		} else {
			body.WithJSONSchema(bodySchema(d.InputType, d.Inputs))
		}
		op.RequestBody = &openapi3.RequestBodyRef{Value: body}
	}

	codes := d.StatusCodes
	if len(codes) == 0 {
		codes = []apidoc.StatusCode{{Code: "200", Doc: "no error"}}
	}
	for _, c := range codes {
		resp := openapi3.NewResponse().WithDescription(c.Doc)
		if strings.HasPrefix(c.Code, "2") {
			if content := responseContent(e); content != nil {
				resp.Content = content
			}
			resp.Headers = responseHeaders(d.ResHeaders)
		}
		op.Responses.Set(c.Code, &openapi3.ResponseRef{Value: resp})
	}
	return op
}

// operationID derives a unique identifier from the method and path, as in
// "get-api-1-revision-sha1_git".
func operationID(method, path string) string {
	parts := []string{strings.ToLower(method)}
	for _, seg := range strings.Split(path, "/") {
		if seg = strings.Trim(seg, "{}"); seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "-")
}

func acceptsBody(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

func findArg(args []apidoc.ArgDoc, name string) (apidoc.ArgDoc, bool) {
	for _, a := range args {
		if a.Name == name {
			return a, true
		}
	}
	return apidoc.ArgDoc{}, false
}

// responseContent returns the content of successful responses: the schema
// of the Go response type when known, else the one described by the
// docstring.
func responseContent(e *model.Endpoint) openapi3.Content {
	d := e.DocData
	switch {
	case d.ReturnType == apidoc.TypeOctetStream:
		return openapi3.NewContentWithSchema(binarySchema(), []string{octetStream})
	case e.Response != nil:
		return openapi3.NewContentWithSchemaRef(e.Response, dataContentTypes)
	case d.ReturnType != "":
		return openapi3.NewContentWithSchema(bodySchema(d.ReturnType, d.Returns), dataContentTypes)
	}
	return nil
}

func responseHeaders(headers []apidoc.Header) openapi3.Headers {
	if len(headers) == 0 {
		return nil
	}
	hs := openapi3.Headers{}
	for _, h := range headers {
		hs[h.Name] = &openapi3.HeaderRef{Value: &openapi3.Header{Parameter: openapi3.Parameter{
			Description: h.Doc,
			Schema:      openapi3.NewStringSchema().NewRef(),
		}}}
	}
	return hs
}

// bodySchema returns the schema of an object or array body with the given
// fields. The items of an array body are objects with those fields, or the
// type of its "-" placeholder field for arrays of scalars.
func bodySchema(kind string, fields []apidoc.ArgDoc) *openapi3.Schema {
	if kind == apidoc.TypeArray {
		items := objectSchema(fields)
		if a, ok := findArg(fields, "-"); ok {
			items = schemaForType(a.Type)
			items.Description = a.Doc
		}
		return openapi3.NewArraySchema().WithItems(items)
	}
	return objectSchema(fields)
}

func objectSchema(fields []apidoc.ArgDoc) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for _, f := range fields {
		if f.Name == "-" {
			continue
		}
		s := schemaForType(f.Type)
		s.Description = f.Doc
		schema.WithProperty(f.Name, s)
	}
	return schema
}

func binarySchema() *openapi3.Schema {
	return openapi3.NewStringSchema().WithFormat("binary")
}

// schemaForType maps the type of a docstring field to a schema. Unknown
// types are described as strings.
func schemaForType(t string) *openapi3.Schema {
	switch strings.ToLower(t) {
	case "int", "integer":
		return openapi3.NewIntegerSchema()
	case "number", "float":
		return openapi3.NewFloat64Schema()
	case "bool", "boolean":
		return openapi3.NewBoolSchema()
	case "object", "dict":
		return openapi3.NewObjectSchema()
	case "array", "list":
		return openapi3.NewArraySchema().WithItems(openapi3.NewSchema())
	case "string", "str", "":
		return openapi3.NewStringSchema()
	}
	s := openapi3.NewStringSchema()
	s.Description = "Type " + t
	return s
}
