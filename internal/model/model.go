// Package model holds the documented endpoints found by scanning Go
// source code.
package model

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/Zachacious/go-apidoc/internal/apidoc"
)

// APIModel is the result of an analysis.
type APIModel struct {
	Endpoints []*Endpoint
	// Schemas holds the named schemas referenced by response schemas.
	Schemas openapi3.Schemas
}

// An Endpoint is a function or string constant whose documentation is an
// httpdomain docstring.
type Endpoint struct {
	Package  string `json:"package" yaml:"package"`
	Name     string `json:"name" yaml:"name"`
	Position string `json:"position" yaml:"position"`

	Category   string   `json:"category" yaml:"category"`
	Route      string   `json:"route" yaml:"route"`
	APIVersion string   `json:"api_version" yaml:"api_version"`
	NoArgs     bool     `json:"noargs" yaml:"noargs"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Doc is the docstring without metadata lines.
	Doc     string                    `json:"-" yaml:"-"`
	DocData *apidoc.DocumentationData `json:"doc_data" yaml:"doc_data"`

	// Response is the schema of the Go type named by an @response line.
	Response *openapi3.SchemaRef `json:"-" yaml:"-"`
}

// HandlerName is the name identifying e in the documentation cache.
func (e *Endpoint) HandlerName() string {
	return e.Package + "." + e.Name
}
