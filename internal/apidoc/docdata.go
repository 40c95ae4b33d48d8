// Package apidoc extracts structured endpoint documentation from docstrings
// written with the Sphinx httpdomain conventions.
package apidoc

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Zachacious/go-apidoc/internal/httpdomain"
)

// ArgDoc documents a named, typed value: a URL argument, a query parameter
// or a field of a request or response body.
type ArgDoc struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	Doc  string `json:"doc" yaml:"doc"`
}

// StatusCode documents an HTTP status code the endpoint may answer with.
type StatusCode struct {
	Code string `json:"code" yaml:"code"`
	Doc  string `json:"doc" yaml:"doc"`
}

// Header documents a request or response header.
type Header struct {
	Name string `json:"name" yaml:"name"`
	Doc  string `json:"doc" yaml:"doc"`
}

// Body shapes for InputType and ReturnType.
const (
	TypeObject      = "object"
	TypeArray       = "array"
	TypeOctetStream = "octet stream"
)

// DocumentationData is the documentation of one endpoint. A value returned
// by a Parser is shared and must not be modified.
type DocumentationData struct {
	Description string           `json:"description" yaml:"description"`
	URLs        []httpdomain.URL `json:"urls" yaml:"urls"`
	Args        []ArgDoc         `json:"args" yaml:"args"`
	Params      []ArgDoc         `json:"params" yaml:"params"`
	InputType   string           `json:"input_type" yaml:"input_type"`
	Inputs      []ArgDoc         `json:"inputs" yaml:"inputs"`
	ReturnType  string           `json:"return_type" yaml:"return_type"`
	Returns     []ArgDoc         `json:"returns" yaml:"returns"`
	StatusCodes []StatusCode     `json:"status_codes" yaml:"status_codes"`
	ReqHeaders  []Header         `json:"reqheaders" yaml:"reqheaders"`
	ResHeaders  []Header         `json:"resheaders" yaml:"resheaders"`
	Examples    []string         `json:"examples" yaml:"examples"`
	Route       string           `json:"route" yaml:"route"`
	NoArgs      bool             `json:"noargs" yaml:"noargs"`
	InputsList  string           `json:"inputs_list" yaml:"inputs_list"`
	ReturnsList string           `json:"returns_list" yaml:"returns_list"`
}

func newDocumentationData(route string, noargs bool) *DocumentationData {
	return &DocumentationData{
		URLs:        []httpdomain.URL{},
		Args:        []ArgDoc{},
		Params:      []ArgDoc{},
		Inputs:      []ArgDoc{},
		Returns:     []ArgDoc{},
		StatusCodes: []StatusCode{},
		ReqHeaders:  []Header{},
		ResHeaders:  []Header{},
		Examples:    []string{},
		Route:       route,
		NoArgs:      noargs,
	}
}

// MarshalYAML encodes the bullet lists as double-quoted scalars, since their
// lines start with a tab, which YAML does not allow as block indentation.
func (d DocumentationData) MarshalYAML() (any, error) {
	type plain DocumentationData
	var n yaml.Node
	if err := n.Encode((*plain)(&d)); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch n.Content[i].Value {
		case "inputs_list", "returns_list":
			n.Content[i+1].Style = yaml.DoubleQuotedStyle
		}
	}
	return &n, nil
}

// Summary returns the first sentence of the description.
func (d *DocumentationData) Summary() string {
	summary, _, _ := strings.Cut(d.Description, ". ")
	return summary
}

// bulletList renders body fields for display, one tab-indented bullet per
// named field. The "-" placeholder of scalar arrays is skipped.
func bulletList(fields []ArgDoc) string {
	var b strings.Builder
	for _, f := range fields {
		if f.Name == "-" {
			continue
		}
		doc := strings.TrimPrefix(indent(f.Doc, "\t  "), "\t  ")
		fmt.Fprintf(&b, "\t* **%s (%s)**: %s\n", f.Name, f.Type, doc)
	}
	return b.String()
}

// indent adds prefix to the beginning of every line of text that is not
// whitespace only.
func indent(text, prefix string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.TrimSpace(line) != "" {
			b.WriteString(prefix)
		}
		b.WriteString(line)
	}
	return b.String()
}
