package core

import (
	"context"
	"fmt"
	"go/build/constraint"
	"os"
	"path/filepath"
	"strings"

	"github.com/dave/dst"
	"golang.org/x/tools/go/packages"

	"github.com/intangere/annotation_macros/config"
	"github.com/intangere/annotation_macros/internal/ctxlog"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedImports |
	packages.NeedDeps

const generatedHeader = "// Code generated by macrogen. DO NOT EDIT."

// AnnotatedPackage is a package whose files may carry macro annotations.
type AnnotatedPackage struct {
	PkgName string
	PkgPath string
	Files   []string
	// ImportMap maps import paths to package names.
	ImportMap map[string]string
}

// Build loads the packages matching patterns with the macro build tag set,
// so annotated sources are visible, and drops ignored files.
func Build(ctx context.Context, patterns []string, cfg config.Config, ignore *Ignore) ([]AnnotatedPackage, error) {
	log := ctxlog.FromContext(ctx)

	loadConfig := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
	}
	if cfg.Macros.BuildTag != "" {
		loadConfig.BuildFlags = []string{"-tags=" + cfg.Macros.BuildTag}
	}

	pkgs, err := packages.Load(loadConfig, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", strings.Join(patterns, ","), err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("load %s: packages contain errors", strings.Join(patterns, ","))
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	annotated := []AnnotatedPackage{}
	for _, pkg := range pkgs {
		ap := AnnotatedPackage{
			PkgName:   pkg.Name,
			PkgPath:   pkg.PkgPath,
			ImportMap: map[string]string{},
		}
		for path, imported := range pkg.Imports {
			if imported.Name != "" {
				ap.ImportMap[path] = imported.Name
			}
		}
		for _, file := range pkg.GoFiles {
			rel, err := filepath.Rel(wd, file)
			if err != nil {
				rel = file
			}
			if ignore != nil && ignore.Match(rel) {
				log.Debug("ignoring file", "file", rel)
				continue
			}
			ap.Files = append(ap.Files, file)
		}
		log.Debug("loaded package", "package", pkg.PkgPath, "files", len(ap.Files))
		annotated = append(annotated, ap)
	}
	return annotated, nil
}

// Generator rewrites annotated structs file by file. One resolver is
// shared by the whole run.
type Generator struct {
	Config   config.Config
	Registry Registry
	Resolver *Resolver
}

func NewGenerator(cfg config.Config) *Generator {
	return &Generator{
		Config:   cfg,
		Registry: DefaultRegistry(),
		Resolver: NewResolver(),
	}
}

// Run generates every file of pkgs and stops at the first failing file.
// Files before it keep their output. With write unset nothing touches the
// disk and the generated source is only kept in the report.
func (g *Generator) Run(ctx context.Context, pkgs []AnnotatedPackage, write bool) (*Report, error) {
	log := ctxlog.FromContext(ctx)
	report := &Report{Files: []FileReport{}}

	for _, pkg := range pkgs {
		for _, path := range pkg.Files {
			fr, err := g.GenerateFile(ctx, pkg, path)
			if err != nil {
				return report, err
			}
			if fr == nil {
				continue
			}
			if write {
				if err := os.WriteFile(fr.Output, fr.Generated, 0644); err != nil {
					return report, fmt.Errorf("write %s: %w", fr.Output, err)
				}
				fr.Written = true
				log.Info("generated", "source", fr.Source, "output", fr.Output)
			}
			report.Files = append(report.Files, *fr)
		}
	}
	return report, nil
}

// GenerateFile runs the macros of one file. A file without annotated
// structs gives a nil report. Nothing is returned for a file unless all of
// its structs were rewritten.
func (g *Generator) GenerateFile(ctx context.Context, pkg AnnotatedPackage, path string) (*FileReport, error) {
	log := ctxlog.FromContext(ctx).With("file", path)

	g.Resolver.SetPackage(pkg.PkgPath, pkg.Files...)
	g.Resolver.SetPackage(pkg.PkgPath, path)
	f, err := g.Resolver.File(path)
	if err != nil {
		return nil, err
	}

	targets, err := findTargets(f, g.Config.Macros.Annotation)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(targets) == 0 {
		return nil, nil
	}

	imports := importResolver(f, pkg.ImportMap)
	fr := &FileReport{
		Source: path,
		Output: strings.TrimSuffix(path, ".go") + g.Config.Macros.GeneratedSuffix,
	}

	for _, target := range targets {
		target.Path = path
		target.PkgPath = pkg.PkgPath
		target.PkgFiles = pkg.Files
		target.Imports = imports

		if _, err := UseMacros(target, g.Resolver, g.Registry, g.Config.Macros); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		target.Decl.Decs.Start = stripAnnotations(target.Decl.Decs.Start, g.Config.Macros.Annotation)
		target.Spec.Decs.Start = stripAnnotations(target.Spec.Decs.Start, g.Config.Macros.Annotation)
		fr.Structs = append(fr.Structs, StructReport{Name: target.Name, Fields: target.Reports})
		log.Debug("rewrote struct", "struct", target.Name, "fields", len(target.Reports))
	}

	f.Decs.Start = withGeneratedHeader(f.Decs.Start, g.Config.Macros.BuildTag)
	src, err := printFile(f, pkg.PkgPath, imports)
	if err != nil {
		return nil, fmt.Errorf("%s: restore: %w", path, err)
	}
	fr.Generated = src
	return fr, nil
}

// withGeneratedHeader puts the generated marker first and drops build
// constraints that mention the macro build tag.
func withGeneratedHeader(decs dst.Decorations, buildTag string) dst.Decorations {
	out := dst.Decorations{generatedHeader, "\n"}
	dropped := false
	for _, d := range decs {
		text := strings.TrimSpace(d)
		if d == "\n" && dropped {
			continue
		}
		dropped = false
		if text == generatedHeader {
			dropped = true
			continue
		}
		if buildTag != "" && (constraint.IsGoBuild(text) || constraint.IsPlusBuild(text)) {
			if expr, err := constraint.Parse(text); err == nil && mentionsTag(expr, buildTag) {
				dropped = true
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

func mentionsTag(expr constraint.Expr, tag string) bool {
	switch e := expr.(type) {
	case *constraint.TagExpr:
		return e.Tag == tag
	case *constraint.NotExpr:
		return mentionsTag(e.X, tag)
	case *constraint.AndExpr:
		return mentionsTag(e.X, tag) || mentionsTag(e.Y, tag)
	case *constraint.OrExpr:
		return mentionsTag(e.X, tag) || mentionsTag(e.Y, tag)
	}
	return false
}
