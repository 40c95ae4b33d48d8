package analyzer

import (
	"fmt"
	"go/types"
	"reflect"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const schemaRefPrefix = "#/components/schemas/"

// SchemaGenerator turns Go types into OpenAPI schemas. Named struct types
// become references to component schemas.
type SchemaGenerator struct {
	// refs caches the references of named types, which also ends the
	// recursion on self-referencing types.
	refs  map[types.Type]*openapi3.SchemaRef
	names map[string]*openapi3.SchemaRef
}

func NewSchemaGenerator() *SchemaGenerator {
	return &SchemaGenerator{
		refs:  make(map[types.Type]*openapi3.SchemaRef),
		names: make(map[string]*openapi3.SchemaRef),
	}
}

// GenerateSchema returns the schema of t.
func (sg *SchemaGenerator) GenerateSchema(t types.Type) *openapi3.SchemaRef {
	if p, ok := t.(*types.Pointer); ok {
		return sg.GenerateSchema(p.Elem())
	}
	if ref, ok := sg.refs[t]; ok {
		return ref
	}
	named, ok := t.(*types.Named)
	if !ok {
		return sg.buildSchema(t).NewRef()
	}
	if s := wellKnownSchema(named); s != nil {
		return s.NewRef()
	}
	if _, ok := named.Underlying().(*types.Struct); !ok {
		return sg.buildSchema(named.Underlying()).NewRef()
	}

	ref := openapi3.NewSchemaRef(schemaRefPrefix+sg.nameFor(named), nil)
	sg.refs[t] = ref
	sg.names[strings.TrimPrefix(ref.Ref, schemaRefPrefix)] = ref
	ref.Value = sg.buildSchema(named.Underlying())
	return ref
}

// Schemas returns the component schemas of the named types generated so
// far.
func (sg *SchemaGenerator) Schemas() openapi3.Schemas {
	schemas := make(openapi3.Schemas, len(sg.names))
	for name, ref := range sg.names {
		schemas[name] = openapi3.NewSchemaRef("", ref.Value)
	}
	return schemas
}

// nameFor returns the component name of a named type, qualified by its
// package name when another package already uses the bare name.
func (sg *SchemaGenerator) nameFor(named *types.Named) string {
	name := named.Obj().Name()
	if _, taken := sg.names[name]; taken && named.Obj().Pkg() != nil {
		name = named.Obj().Pkg().Name() + "." + name
	}
	return name
}

func wellKnownSchema(named *types.Named) *openapi3.Schema {
	obj := named.Obj()
	if obj.Pkg() == nil {
		return nil
	}
	switch obj.Pkg().Path() + "." + obj.Name() {
	case "time.Time":
		return openapi3.NewDateTimeSchema()
	case "time.Duration":
		return openapi3.NewInt64Schema()
	case "net/url.URL":
		return openapi3.NewStringSchema().WithFormat("uri")
	}
	return nil
}

func (sg *SchemaGenerator) buildSchema(t types.Type) *openapi3.Schema {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		return schemaForBasic(u)
	case *types.Struct:
		return sg.schemaForStruct(u)
	case *types.Slice:
		if b, ok := u.Elem().Underlying().(*types.Basic); ok && b.Kind() == types.Byte {
			return openapi3.NewBytesSchema()
		}
		schema := openapi3.NewArraySchema()
		schema.Items = sg.GenerateSchema(u.Elem())
		return schema
	case *types.Array:
		schema := openapi3.NewArraySchema()
		schema.Items = sg.GenerateSchema(u.Elem())
		return schema
	case *types.Map:
		schema := openapi3.NewObjectSchema()
		schema.AdditionalProperties = openapi3.AdditionalProperties{Schema: sg.GenerateSchema(u.Elem())}
		return schema
	case *types.Pointer:
		return sg.GenerateSchema(u.Elem()).Value
	default:
		schema := openapi3.NewObjectSchema()
		schema.Description = fmt.Sprintf("Unsupported type: %s", t)
		return schema
	}
}

func schemaForBasic(b *types.Basic) *openapi3.Schema {
	switch {
	case b.Info()&types.IsString != 0:
		return openapi3.NewStringSchema()
	case b.Info()&types.IsBoolean != 0:
		return openapi3.NewBoolSchema()
	case b.Info()&types.IsInteger != 0:
		return openapi3.NewIntegerSchema()
	case b.Info()&types.IsFloat != 0:
		return openapi3.NewFloat64Schema()
	default:
		schema := openapi3.NewStringSchema()
		schema.Description = "Type " + b.Name()
		return schema
	}
}

func (sg *SchemaGenerator) schemaForStruct(s *types.Struct) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for i := 0; i < s.NumFields(); i++ {
		field := s.Field(i)
		if !field.Exported() {
			continue
		}
		jsonTag := reflect.StructTag(s.Tag(i)).Get("json")
		fieldName, _, _ := strings.Cut(jsonTag, ",")
		if fieldName == "-" {
			continue
		}
		if fieldName == "" {
			fieldName = field.Name()
		}
		schema.WithPropertyRef(fieldName, sg.GenerateSchema(field.Type()))
	}
	return schema
}
