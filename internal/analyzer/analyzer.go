// Package analyzer finds the documented API endpoints of a Go project.
//
// An endpoint is a top-level function or method whose doc comment holds an
// httpdomain docstring, or a string constant whose value is one. Metadata
// the docstring cannot express is given on lines starting with @:
//
//	// @category Archive
//	// @route /revision/
//	// @tags beta, internal
//	// @noargs
//	// @apiversion 1
//	// @response Revision
package analyzer

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"sort"

	"golang.org/x/tools/go/packages"

	"github.com/Zachacious/go-apidoc/internal/config"
	"github.com/Zachacious/go-apidoc/internal/derrors"
	"github.com/Zachacious/go-apidoc/internal/log"
	"github.com/Zachacious/go-apidoc/internal/model"
)

// Analyzer holds the state for a single analysis run.
type Analyzer struct {
	projectPath string
	pkgs        []*packages.Package
	cfg         *config.Config
}

// New loads the packages matching patterns, relative to projectPath. The
// default pattern is "./...".
func New(projectPath string, cfg *config.Config, patterns ...string) (*Analyzer, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	if cfg == nil {
		cfg = config.Default()
	}
	pcfg := &packages.Config{
		Dir: projectPath,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedImports |
			packages.NeedDeps | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("packages contain errors")
	}
	return &Analyzer{projectPath: projectPath, pkgs: pkgs, cfg: cfg}, nil
}

// Analyze returns the endpoints documented in the loaded packages, sorted
// by API version and route.
func (a *Analyzer) Analyze(ctx context.Context) (_ *model.APIModel, err error) {
	defer derrors.Wrap(&err, "Analyze(%q)", a.projectPath)

	sg := NewSchemaGenerator()
	var endpoints []*model.Endpoint
	for _, pkg := range a.pkgs {
		s := &scanner{
			fset:    pkg.Fset,
			pkg:     pkg.Types,
			info:    pkg.TypesInfo,
			cfg:     a.cfg,
			schemas: sg,
		}
		for _, file := range pkg.Syntax {
			found, err := s.scanFile(file)
			if err != nil {
				return nil, err
			}
			endpoints = append(endpoints, found...)
		}
	}
	if err := checkDuplicates(endpoints); err != nil {
		return nil, err
	}
	sort.SliceStable(endpoints, func(i, j int) bool {
		if endpoints[i].APIVersion != endpoints[j].APIVersion {
			return endpoints[i].APIVersion < endpoints[j].APIVersion
		}
		return endpoints[i].Route < endpoints[j].Route
	})
	log.Infof(ctx, "found %d documented endpoints in %d packages", len(endpoints), len(a.pkgs))
	return &model.APIModel{Endpoints: endpoints, Schemas: sg.Schemas()}, nil
}

// checkDuplicates reports two endpoints documenting the same route.
func checkDuplicates(endpoints []*model.Endpoint) error {
	seen := map[string]*model.Endpoint{}
	for _, e := range endpoints {
		key := "/api/" + e.APIVersion + e.Route
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s: route %s is already documented at %s",
				derrors.InvalidArgument, e.Position, key, prev.Position)
		}
		seen[key] = e
	}
	return nil
}

// scanner finds the endpoints of one package.
type scanner struct {
	fset    *token.FileSet
	pkg     *types.Package
	info    *types.Info
	cfg     *config.Config
	schemas *SchemaGenerator
}

func (s *scanner) scanFile(file *ast.File) ([]*model.Endpoint, error) {
	var endpoints []*model.Endpoint
	for _, d := range discoverDeclarations(s.info, file) {
		e, err := s.endpoint(d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.fset.Position(d.pos), err)
		}
		if e != nil {
			endpoints = append(endpoints, e)
		}
	}
	return endpoints, nil
}
