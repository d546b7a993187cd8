package core

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dave/dst"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/intangere/annotation_macros/config"
	"github.com/intangere/annotation_macros/helpers"
)

// Target is a struct declaration macros rewrite in place.
type Target struct {
	Name    string
	Path    string
	PkgName string
	PkgPath string
	// PkgFiles are the files of the package, Path among them.
	PkgFiles    []string
	File        *dst.File
	Decl        *dst.GenDecl
	Spec        *dst.TypeSpec
	Struct      *dst.StructType
	Annotations []Annotation

	// Receiver names generated methods, Constructor is the function
	// treated as the struct's constructor.
	Receiver    string
	Constructor string

	// Imports resolves package names when synthesized code is printed.
	Imports RestorerResolver

	// Reports holds one entry per invoked field macro.
	Reports []FieldReport

	// anchor is the last declaration synthesized for this struct. New
	// declarations go right after it.
	anchor dst.Decl
}

// Field is one name of a struct field carrying a macro tag.
type Field struct {
	Name  string
	Type  string
	Macro string
	Node  *dst.Field
}

// Macro is a parsed macro ready to rewrite its target.
type Macro interface {
	Invoke() error
	Report() FieldReport
}

type MacroContext struct {
	Call     *ast.CallExpr
	Field    Field
	Target   *Target
	Resolver *Resolver
	Config   config.Macros
}

// Factory parses a macro invocation. It must not touch the target: every
// field of a struct is parsed before the first one is invoked.
type Factory func(mc MacroContext) (Macro, error)

// Registry maps macro names, the callee of the tag expression, to factories.
type Registry map[string]Factory

func DefaultRegistry() Registry {
	return Registry{
		"inrange": NewInRange,
	}
}

// Inject registers or replaces a macro.
func (r Registry) Inject(name string, factory Factory) {
	r[name] = factory
}

func (r Registry) Names() []string {
	names := maps.Keys(r)
	slices.Sort(names)
	return names
}

// ParseMacro parses a tag value like `inrange(0 < x < 5)`.
func ParseMacro(text string) (*ast.CallExpr, string, error) {
	expr, err := parser.ParseExpr(text)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q: %v", ErrMalformedConstraint, text, err)
	}
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q is not a macro call", ErrMalformedConstraint, text)
	}
	name, ok := call.Fun.(*ast.Ident)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q does not name a macro", ErrMalformedConstraint, text)
	}
	return call, name.Name, nil
}

// UseMacros runs every field macro of target. All tags are parsed and
// resolved against the registry first, so an unknown macro or a bad
// constraint leaves the struct untouched.
func UseMacros(target *Target, res *Resolver, registry Registry, cfg config.Macros) (*Target, error) {
	fields, err := target.TaggedFields(cfg.Tag)
	if err != nil {
		return target, err
	}
	if len(fields) == 0 {
		return target, nil
	}

	macros := make([]Macro, 0, len(fields))
	for _, field := range fields {
		call, name, err := ParseMacro(field.Macro)
		if err != nil {
			return target, fmt.Errorf("%s.%s: %w", target.Name, field.Name, err)
		}
		factory, ok := registry[name]
		if !ok {
			return target, fmt.Errorf("%w: no macro with name '%s' was found (%s.%s)", ErrUnknownMacro, name, target.Name, field.Name)
		}
		macro, err := factory(MacroContext{
			Call:     call,
			Field:    field,
			Target:   target,
			Resolver: res,
			Config:   cfg,
		})
		if err != nil {
			return target, fmt.Errorf("%s.%s: %w", target.Name, field.Name, err)
		}
		macros = append(macros, macro)
	}

	for _, macro := range macros {
		if err := macro.Invoke(); err != nil {
			return target, err
		}
		target.Reports = append(target.Reports, macro.Report())
	}
	return target, nil
}

// TaggedFields lists fields carrying key in declaration order.
func (t *Target) TaggedFields(key string) ([]Field, error) {
	fields := []Field{}
	for _, field := range t.Struct.Fields.List {
		if field.Tag == nil {
			continue
		}
		tag, err := strconv.Unquote(field.Tag.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: bad struct tag %s: %v", t.Name, field.Tag.Value, err)
		}
		macro, ok := reflect.StructTag(tag).Lookup(key)
		if !ok {
			continue
		}
		if len(field.Names) == 0 {
			return nil, fmt.Errorf("%w: %s: embedded fields cannot carry macros", ErrUnsupportedField, t.Name)
		}
		if len(field.Names) > 1 {
			return nil, fmt.Errorf("%w: %s: declare %s on separate lines, a constraint names one field", ErrUnsupportedField, t.Name, fieldNames(field))
		}
		typ, ok := field.Type.(*dst.Ident)
		if !ok || typ.Path != "" {
			return nil, fmt.Errorf("%w: %s.%s must have a numeric type", ErrUnsupportedField, t.Name, field.Names[0].Name)
		}
		fields = append(fields, Field{
			Name:  field.Names[0].Name,
			Type:  typ.Name,
			Macro: macro,
			Node:  field,
		})
	}
	return fields, nil
}

func fieldNames(field *dst.Field) string {
	names := make([]string, len(field.Names))
	for i, name := range field.Names {
		names[i] = name.Name
	}
	return strings.Join(names, ", ")
}

// insert places decls after the struct declaration, following whatever
// was synthesized for it before.
func (t *Target) insert(decls ...dst.Decl) {
	anchor := t.anchor
	if anchor == nil {
		anchor = t.Decl
	}
	if out, ok := helpers.InsertDeclsAfter(t.File.Decls, anchor, decls...); ok {
		t.File.Decls = out
	} else {
		t.File.Decls = append(t.File.Decls, decls...)
	}
	t.anchor = decls[len(decls)-1]
}

// replace swaps old for fresh at the same position.
func (t *Target) replace(old dst.Decl, fresh dst.Decl) bool {
	for i := range t.File.Decls {
		if t.File.Decls[i] == old {
			t.File.Decls[i] = fresh
			if t.anchor == old {
				t.anchor = fresh
			}
			return true
		}
	}
	return false
}

// removeMethod drops methods called name declared on the struct.
func (t *Target) removeMethod(name string) {
	kept := t.File.Decls[:0]
	for _, decl := range t.File.Decls {
		if fd, ok := decl.(*dst.FuncDecl); ok && fd.Recv != nil && fd.Name.Name == name {
			if n := declName(fd); n == "(*"+t.Name+")."+name || n == t.Name+"."+name {
				if t.anchor == decl {
					t.anchor = nil
				}
				continue
			}
		}
		kept = append(kept, decl)
	}
	t.File.Decls = kept
}

// findTargets collects annotated struct declarations of a file.
func findTargets(f *dst.File, annotation string) ([]*Target, error) {
	targets := []*Target{}
	for _, decl := range f.Decls {
		gen, ok := decl.(*dst.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		declAnnos := extractAnnotations(gen.Decs.Start)
		for _, spec := range gen.Specs {
			ts, ok := spec.(*dst.TypeSpec)
			if !ok {
				continue
			}
			annos := append(append([]Annotation{}, declAnnos...), extractAnnotations(ts.Decs.Start)...)
			if !HasAnnotation(annos, annotation) {
				continue
			}
			st, ok := ts.Type.(*dst.StructType)
			if !ok {
				return nil, fmt.Errorf("%w: %s is annotated with %s but is not a struct", ErrUnsupportedField, ts.Name.Name, annotation)
			}
			if ts.TypeParams != nil && len(ts.TypeParams.List) > 0 {
				return nil, fmt.Errorf("%w: generic struct %s", ErrUnsupportedField, ts.Name.Name)
			}

			target := &Target{
				Name:        ts.Name.Name,
				PkgName:     f.Name.Name,
				File:        f,
				Decl:        gen,
				Spec:        ts,
				Struct:      st,
				Annotations: annos,
				Receiver:    receiverName(ts.Name.Name),
				Constructor: constructorName(ts.Name.Name),
			}
			if recv, ok := GetTagValue(annos, ":receiver"); ok {
				target.Receiver = recv
			}
			if ctor, ok := GetTagValue(annos, ":constructor"); ok {
				target.Constructor = ctor
			}
			targets = append(targets, target)
		}
	}
	return targets, nil
}

func receiverName(typeName string) string {
	r, _ := utf8.DecodeRuneInString(typeName)
	if !unicode.IsLetter(r) {
		return "s"
	}
	return string(unicode.ToLower(r))
}

// constructorName follows Go naming: NewBar for Bar, newBar for bar.
func constructorName(typeName string) string {
	if token.IsExported(typeName) {
		return "New" + typeName
	}
	return "new" + exported(typeName)
}

func exported(name string) string {
	name = strings.TrimLeft(name, "_")
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

// stripTag removes key from a struct tag literal, returning nil when
// nothing else was in it.
func stripTag(lit *dst.BasicLit, key string) *dst.BasicLit {
	if lit == nil {
		return nil
	}
	tag, err := strconv.Unquote(lit.Value)
	if err != nil {
		return lit
	}
	re := regexp.MustCompile(`(^|\s)` + regexp.QuoteMeta(key) + `:"(?:[^"\\]|\\.)*"`)
	tag = strings.TrimSpace(re.ReplaceAllString(tag, ""))
	if tag == "" {
		return nil
	}
	value := "`" + tag + "`"
	if strings.Contains(tag, "`") {
		value = strconv.Quote(tag)
	}
	return &dst.BasicLit{Kind: lit.Kind, Value: value}
}
