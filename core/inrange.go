package core

import (
	"errors"
	"fmt"
	"go/token"

	"github.com/dave/dst"
	"github.com/dave/dst/dstutil"

	"github.com/intangere/annotation_macros/helpers"
)

// setterParam names the incoming value in generated setters.
const setterParam = "value"

// InRange turns a field tagged `inrange(lower < x < upper)` into a nil-able
// backing field behind a getter and a checking setter.
type InRange struct {
	Bounds FieldBounds

	field   Field
	target  *Target
	res     *Resolver
	tagKey  string
	backing string
	getter  string
	setter  string

	constructorAction string
}

// NewInRange is the inrange Factory. Bounds are extracted here so a bad
// constraint fails before anything is rewritten.
func NewInRange(mc MacroContext) (Macro, error) {
	bounds, err := ExtractBounds(mc.Call, mc.Field.Name, mc.Field.Type)
	if err != nil {
		return nil, err
	}
	return &InRange{
		Bounds:  bounds,
		field:   mc.Field,
		target:  mc.Target,
		res:     mc.Resolver,
		tagKey:  mc.Config.Tag,
		backing: mc.Config.BackingPrefix + mc.Field.Name,
		getter:  exported(mc.Field.Name),
		setter:  "Set" + exported(mc.Field.Name),
	}, nil
}

// Invoke rewrites the target. It is not atomic: a failure after the
// constructor was touched leaves the constructor spliced and no methods
// installed.
func (m *InRange) Invoke() error {
	if err := m.constructor(); err != nil {
		return err
	}

	setterBody := m.ifBlock()

	getter, err := m.compile(m.getterDecl())
	if err != nil {
		return err
	}
	setter, err := m.compile(m.setterDecl(setterBody))
	if err != nil {
		return err
	}

	return m.install(getter, setter)
}

func (m *InRange) Report() FieldReport {
	return FieldReport{
		Name:        m.field.Name,
		Macro:       "inrange",
		Constraint:  m.Bounds.Constraint(),
		Backing:     m.backing,
		Getter:      m.getter,
		Setter:      m.setter,
		Constructor: m.constructorAction,
	}
}

// RangeCondition builds `lower op1 param && param op2 upper`.
func RangeCondition(b FieldBounds, param string) dst.Expr {
	return helpers.Binary(
		helpers.Binary(boundExpr(b.Lower), b.LeftOp, helpers.Ident(param)),
		token.LAND,
		helpers.Binary(helpers.Ident(param), b.RightOp, boundExpr(b.Upper)),
	)
}

func boundExpr(b Bound) dst.Expr {
	return helpers.Number(b.Kind, b.Literal, b.Negative())
}

func (m *InRange) constructor() error {
	name := m.target.Constructor
	node, err := m.res.ResolveName(m.target.Path, name)
	if errors.Is(err, ErrNotFound) {
		elsewhere, err := m.siblingConstructor()
		if err != nil {
			return err
		}
		if elsewhere != "" {
			return fmt.Errorf("%w: %s is declared in %s, move it next to %s", ErrUnsupportedConstructor, name, elsewhere, m.target.Name)
		}
		return m.addConstructor()
	}
	if err != nil {
		return err
	}

	decl, ok := node.(*dst.FuncDecl)
	if !ok || decl.Body == nil {
		return fmt.Errorf("%w: %s has no body", ErrUnsupportedConstructor, name)
	}
	return m.modifyConstructor(decl)
}

// siblingConstructor returns the other package file declaring the
// constructor, if any. Only the struct's own file is rewritten, so such a
// constructor can be neither extended nor shadowed by a synthesized one.
func (m *InRange) siblingConstructor() (string, error) {
	own := normalizePath(m.target.Path)
	for _, file := range m.target.PkgFiles {
		if normalizePath(file) == own {
			continue
		}
		_, err := m.res.ResolveName(file, m.target.Constructor)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		return file, nil
	}
	return "", nil
}

func (m *InRange) addConstructor() error {
	recv := m.target.Receiver
	name := m.target.Constructor

	decl := helpers.FuncDecl(name, nil,
		helpers.Fields(helpers.BasicUnnamedField(helpers.Star(helpers.Ident(m.target.Name)))),
		helpers.Define(recv, helpers.AddressOf(&dst.CompositeLit{Type: helpers.Ident(m.target.Name)})),
		m.initStmt(recv),
		helpers.Return(helpers.Ident(recv)),
	)
	decl.Decs.Start = append(decl.Decs.Start, fmt.Sprintf("// %s returns a %s with its checked fields unset.", name, m.target.Name))

	compiled, err := m.compile(decl)
	if err != nil {
		return err
	}
	m.target.insert(compiled)
	m.res.Define(m.target.Path, name, compiled)
	m.constructorAction = "synthesized"
	return nil
}

// modifyConstructor splices the backing initialization into every return
// of an existing constructor. Returns inside function literals belong to
// the literal and are left alone.
func (m *InRange) modifyConstructor(decl *dst.FuncDecl) error {
	name := m.target.Constructor
	spliced := 0
	var spliceErr error

	dstutil.Apply(decl.Body, func(c *dstutil.Cursor) bool {
		if spliceErr != nil {
			return false
		}
		switch n := c.Node().(type) {
		case *dst.FuncLit:
			return false
		case *dst.ReturnStmt:
			ok, err := m.spliceReturn(c, n, decl)
			if err != nil {
				spliceErr = err
			} else if ok {
				spliced++
			}
			return false
		}
		return true
	}, nil)

	if spliceErr != nil {
		return fmt.Errorf("%s: %w", name, spliceErr)
	}
	if spliced == 0 {
		return fmt.Errorf("%w: %s never returns a %s", ErrUnsupportedConstructor, name, m.target.Name)
	}

	compiled, err := m.compile(decl)
	if err != nil {
		return err
	}
	if !m.target.replace(decl, compiled) {
		return fmt.Errorf("%w: %s is not declared next to %s", ErrUnsupportedConstructor, name, m.target.Name)
	}
	m.res.Define(m.target.Path, name, compiled)
	m.constructorAction = "extended"
	return nil
}

func (m *InRange) spliceReturn(c *dstutil.Cursor, ret *dst.ReturnStmt, decl *dst.FuncDecl) (bool, error) {
	if len(ret.Results) == 0 {
		result := namedResult(decl)
		if result == "" {
			return false, nil
		}
		return true, m.insertInit(c, result)
	}

	switch r := ret.Results[0].(type) {
	case *dst.UnaryExpr:
		if lit, ok := r.X.(*dst.CompositeLit); ok && r.Op == token.AND && m.isTargetLit(lit) {
			return true, m.spliceLiteral(lit)
		}
	case *dst.CompositeLit:
		if m.isTargetLit(r) {
			return true, m.spliceLiteral(r)
		}
	case *dst.Ident:
		if r.Name == "nil" {
			return false, nil
		}
		return true, m.insertInit(c, r.Name)
	}
	return false, fmt.Errorf("%w: cannot initialize %s through a return of %T", ErrUnsupportedConstructor, m.backing, ret.Results[0])
}

func (m *InRange) insertInit(c *dstutil.Cursor, name string) error {
	if c.Index() < 0 {
		return fmt.Errorf("%w: return outside a statement list", ErrUnsupportedConstructor)
	}
	c.InsertBefore(m.initStmt(name))
	return nil
}

func (m *InRange) spliceLiteral(lit *dst.CompositeLit) error {
	for _, elt := range lit.Elts {
		kv, ok := elt.(*dst.KeyValueExpr)
		if !ok {
			return fmt.Errorf("%w: %s literal uses positional fields", ErrUnsupportedConstructor, m.target.Name)
		}
		if key, ok := kv.Key.(*dst.Ident); ok && (key.Name == m.field.Name || key.Name == m.backing) {
			return fmt.Errorf("%w: %s literal sets %s directly, use %s instead", ErrUnsupportedConstructor, m.target.Name, key.Name, m.setter)
		}
	}
	kv := helpers.KeyValue(m.backing, helpers.Nil())
	if n := len(lit.Elts); n > 0 && lit.Elts[n-1].Decorations().After == dst.NewLine {
		kv.Decs.Before = dst.NewLine
		kv.Decs.After = dst.NewLine
	}
	lit.Elts = append(lit.Elts, kv)
	return nil
}

func (m *InRange) isTargetLit(lit *dst.CompositeLit) bool {
	ident, ok := lit.Type.(*dst.Ident)
	return ok && ident.Path == "" && ident.Name == m.target.Name
}

func namedResult(decl *dst.FuncDecl) string {
	results := decl.Type.Results
	if results == nil || len(results.List) == 0 || len(results.List[0].Names) == 0 {
		return ""
	}
	return results.List[0].Names[0].Name
}

// initStmt is `recv._x = nil`, nil being the unset sentinel.
func (m *InRange) initStmt(recv string) dst.Stmt {
	return helpers.Lines(helpers.Assign(helpers.Selector(recv, m.backing), helpers.Nil()))[0]
}

func (m *InRange) ifBlock() *dst.IfStmt {
	store := helpers.Assign(helpers.Selector(m.target.Receiver, m.backing), helpers.AddressOf(helpers.Ident(setterParam)))
	raise := helpers.Return(helpers.Call(
		helpers.PathIdent(helpers.Path, "NewRangeError"),
		helpers.String(m.field.Name),
		helpers.String(m.Bounds.Message()),
	))
	return &dst.IfStmt{
		Cond: RangeCondition(m.Bounds, setterParam),
		Body: helpers.Block(store),
		Else: helpers.Block(raise),
	}
}

func (m *InRange) getterDecl() *dst.FuncDecl {
	decl := helpers.MethodDecl(m.target.Receiver, m.target.Name, m.getter, nil,
		helpers.Fields(helpers.BasicUnnamedField(helpers.Star(helpers.Ident(m.field.Type)))),
		helpers.Return(helpers.Selector(m.target.Receiver, m.backing)),
	)
	decl.Decs.Start = append(decl.Decs.Start, fmt.Sprintf("// %s returns %s, nil until %s succeeds.", m.getter, m.field.Name, m.setter))
	return decl
}

func (m *InRange) setterDecl(body *dst.IfStmt) *dst.FuncDecl {
	decl := helpers.MethodDecl(m.target.Receiver, m.target.Name, m.setter,
		helpers.Fields(helpers.BasicField(setterParam, helpers.Ident(m.field.Type))),
		helpers.Fields(helpers.BasicUnnamedField(helpers.Ident("error"))),
		body,
		helpers.Return(helpers.Nil()),
	)
	decl.Decs.Start = append(decl.Decs.Start, fmt.Sprintf("// %s stores value when %s holds.", m.setter, m.Bounds.Constraint()))
	return decl
}

func (m *InRange) compile(decl *dst.FuncDecl) (*dst.FuncDecl, error) {
	return CompileFunc(m.target.PkgName, m.target.PkgPath, decl, m.target.Imports)
}

// install swaps the tagged field for its backing field and puts the
// accessors after the struct, replacing methods of the same name.
func (m *InRange) install(getter *dst.FuncDecl, setter *dst.FuncDecl) error {
	if err := m.replaceField(); err != nil {
		return err
	}
	m.target.removeMethod(m.getter)
	m.target.removeMethod(m.setter)
	m.target.insert(getter, setter)

	m.res.Define(m.target.Path, "(*"+m.target.Name+")."+m.getter, getter)
	m.res.Define(m.target.Path, "(*"+m.target.Name+")."+m.setter, setter)
	return nil
}

func (m *InRange) replaceField() error {
	node := m.field.Node
	list := m.target.Struct.Fields.List

	idx := -1
	for i := range list {
		if list[i] == node {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: field %s vanished from %s", ErrSynthesis, m.field.Name, m.target.Name)
	}

	backing := &dst.Field{
		Names: []*dst.Ident{helpers.Ident(m.backing)},
		Type:  helpers.Star(helpers.Ident(m.field.Type)),
		Tag:   stripTag(node.Tag, m.tagKey),
	}
	backing.Decs = node.Decs
	list[idx] = backing
	return nil
}
