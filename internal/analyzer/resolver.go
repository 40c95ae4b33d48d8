package analyzer

import (
	"go/types"
	"strings"
)

// findNamedType resolves typePath from pkg. An unqualified name is looked
// up in pkg and then among the predeclared types; a name qualified by an
// import path, as in "net/url.URL", is searched in the import graph of
// pkg.
func findNamedType(pkg *types.Package, typePath string) types.Type {
	lastDot := strings.LastIndex(typePath, ".")
	if lastDot < 0 {
		for _, scope := range []*types.Scope{pkg.Scope(), types.Universe} {
			if tn, ok := scope.Lookup(typePath).(*types.TypeName); ok {
				return tn.Type()
			}
		}
		return nil
	}
	return findTypeInPackageGraph(pkg, typePath[:lastDot], typePath[lastDot+1:], map[*types.Package]bool{})
}

// findTypeInPackageGraph performs a depth-first search of the import
// graph of pkg.
func findTypeInPackageGraph(pkg *types.Package, pkgPath, typeName string, visited map[*types.Package]bool) types.Type {
	if visited[pkg] {
		return nil
	}
	visited[pkg] = true

	if pkg.Path() == pkgPath {
		if tn, ok := pkg.Scope().Lookup(typeName).(*types.TypeName); ok {
			return tn.Type()
		}
		return nil
	}
	for _, imp := range pkg.Imports() {
		if t := findTypeInPackageGraph(imp, pkgPath, typeName, visited); t != nil {
			return t
		}
	}
	return nil
}
