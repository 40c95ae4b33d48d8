package analyzer

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
)

// A declaration is a top-level function or string constant that may
// document an endpoint.
type declaration struct {
	name    string
	pos     token.Pos
	comment string
	// doc is the candidate docstring: the doc comment of a function, or
	// the value of a constant.
	doc     string
	isConst bool
}

// discoverDeclarations returns the functions, methods and string
// constants declared at the top level of file, in source order.
func discoverDeclarations(info *types.Info, file *ast.File) []declaration {
	var decls []declaration
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Doc == nil {
				continue
			}
			text := d.Doc.Text()
			decls = append(decls, declaration{
				name:    funcName(d),
				pos:     d.Pos(),
				comment: text,
				doc:     text,
			})
		case *ast.GenDecl:
			if d.Tok == token.CONST {
				decls = append(decls, registerConstants(info, d)...)
			}
		}
	}
	return decls
}

// registerConstants returns the string constants of a const block. The doc
// comment of a lone constant may sit on the block itself.
func registerConstants(info *types.Info, genDecl *ast.GenDecl) []declaration {
	var decls []declaration
	for _, spec := range genDecl.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		doc := vs.Doc
		if doc == nil && len(genDecl.Specs) == 1 {
			doc = genDecl.Doc
		}
		for _, name := range vs.Names {
			c, ok := info.Defs[name].(*types.Const)
			if !ok || c.Val().Kind() != constant.String {
				continue
			}
			decls = append(decls, declaration{
				name:    name.Name,
				pos:     name.Pos(),
				comment: doc.Text(),
				doc:     constant.StringVal(c.Val()),
				isConst: true,
			})
		}
	}
	return decls
}

// funcName returns the name of a function, qualified by its receiver base
// type for methods, as in "Archive.revision".
func funcName(d *ast.FuncDecl) string {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		return d.Name.Name
	}
	t := d.Recv.List[0].Type
	for {
		switch x := t.(type) {
		case *ast.StarExpr:
			t = x.X
			continue
		case *ast.IndexExpr:
			t = x.X
			continue
		case *ast.IndexListExpr:
			t = x.X
			continue
		case *ast.Ident:
			return x.Name + "." + d.Name.Name
		}
		return d.Name.Name
	}
}
