package fixture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

// Built is a method graph together with its named variables.
type Built struct {
	Method *ssa.Method
	Vars   map[string]*ssa.Var
	// Expect holds the parsed expected types.
	Expect map[string]typesystem.Type
}

type builder struct {
	mth      *ssa.Method
	vars     map[string]*ssa.Var
	typeVars []typesystem.TTypeVar
	nextReg  int
}

// Build turns a fixture method into an SSA graph.
func (m *Method) Build() (*Built, error) {
	b := &builder{
		mth:  ssa.NewMethod(m.Class, m.Name),
		vars: make(map[string]*ssa.Var),
	}
	for _, decl := range m.TypeVars {
		tv, err := typesystem.ParseTypeVar(decl, b.typeVars...)
		if err != nil {
			return nil, b.errorf("type_vars: %w", err)
		}
		b.typeVars = append(b.typeVars, tv)
	}
	b.mth.TypeVars = b.typeVars
	b.mth.NoCode = m.NoCode

	for _, p := range m.Params {
		if err := b.addParam(p); err != nil {
			return nil, err
		}
	}
	blocks := make([]*ssa.Block, len(m.Blocks))
	for i, fb := range m.Blocks {
		blocks[i] = b.mth.NewBlock()
		blocks[i].Synthetic = fb.Synthetic
	}
	for i, fb := range m.Blocks {
		for _, s := range fb.Succs {
			if s < 0 || s >= len(blocks) {
				return nil, b.errorf("block %d: successor %d out of range", i, s)
			}
			ssa.Connect(blocks[i], blocks[s])
		}
	}
	for i, fb := range m.Blocks {
		for j, fi := range fb.Insns {
			insn, err := b.buildInsn(fi, blocks)
			if err != nil {
				return nil, b.errorf("block %d insn %d (%s): %w", i, j, fi.Op, err)
			}
			b.mth.Append(blocks[i], insn)
		}
	}

	expect := make(map[string]typesystem.Type, len(m.Expect))
	for name, ts := range m.Expect {
		if _, ok := b.vars[name]; !ok {
			return nil, b.errorf("expect: unknown variable %q", name)
		}
		t, err := b.parseType(ts)
		if err != nil {
			return nil, b.errorf("expect %s: %w", name, err)
		}
		expect[name] = t
	}
	return &Built{Method: b.mth, Vars: b.vars, Expect: expect}, nil
}

func (b *builder) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", b.mth, fmt.Errorf(format, args...))
}

func (b *builder) parseType(s string, extra ...typesystem.TTypeVar) (typesystem.Type, error) {
	if s == "" {
		return nil, nil
	}
	return typesystem.ParseType(s, append(extra, b.typeVars...)...)
}

func (b *builder) addParam(p Param) error {
	if _, ok := b.vars[p.Var]; ok {
		return b.errorf("param %q declared twice", p.Var)
	}
	t, err := b.parseType(p.Type)
	if err != nil {
		return b.errorf("param %s: %w", p.Var, err)
	}
	v := b.mth.NewParam(b.regFor(p.Var), t)
	v.Name = p.Var
	v.Assign.This = p.This
	v.Assign.Immutable = p.Immutable
	b.vars[p.Var] = v
	return nil
}

// regFor derives the register from names like "r3" or "r3x"; other names
// get increasing registers.
func (b *builder) regFor(name string) int {
	if strings.HasPrefix(name, "r") {
		end := 1
		for end < len(name) && name[end] >= '0' && name[end] <= '9' {
			end++
		}
		if end > 1 {
			reg, _ := strconv.Atoi(name[1:end])
			return reg
		}
	}
	reg := 1000 + b.nextReg
	b.nextReg++
	return reg
}

func (b *builder) variable(name string) *ssa.Var {
	if v, ok := b.vars[name]; ok {
		return v
	}
	v := b.mth.NewVar(b.regFor(name))
	v.Name = name
	b.vars[name] = v
	return v
}

// parseSite reads "name[!][:type]" or "#value[:type]".
func (b *builder) parseSite(s string) (*ssa.Arg, error) {
	ref, ts, _ := strings.Cut(s, ":")
	ref = strings.TrimSpace(ref)
	t, err := b.parseType(strings.TrimSpace(ts))
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(ref, "#") {
		value, err := strconv.ParseInt(ref[1:], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("literal %q: %w", ref, err)
		}
		return ssa.Lit(value, t), nil
	}
	immutable := strings.HasSuffix(ref, "!")
	ref = strings.TrimSuffix(ref, "!")
	if ref == "" {
		return nil, fmt.Errorf("site %q: variable name expected", s)
	}
	a := ssa.Reg(b.variable(ref), t)
	a.Immutable = immutable
	return a, nil
}

func (b *builder) buildInsn(fi Insn, blocks []*ssa.Block) (*ssa.Insn, error) {
	kindName, sub, _ := strings.Cut(fi.Op, ".")
	kind, ok := ssa.InsnKindByName(kindName)
	if !ok {
		return nil, fmt.Errorf("unknown instruction %q", kindName)
	}
	insn := &ssa.Insn{Kind: kind, Soft: fi.Soft}
	switch kind {
	case ssa.Arith:
		op, ok := ssa.ArithOpByName(sub)
		if !ok {
			return nil, fmt.Errorf("unknown arithmetic operator %q", sub)
		}
		insn.ArithOp = op
	case ssa.If:
		op, ok := ssa.IfOpByName(sub)
		if !ok {
			return nil, fmt.Errorf("unknown condition %q", sub)
		}
		insn.IfOp = op
	}

	if fi.Result != "" {
		res, err := b.parseSite(fi.Result)
		if err != nil {
			return nil, fmt.Errorf("result: %w", err)
		}
		if res.Var == nil {
			return nil, fmt.Errorf("result %q must be a register", fi.Result)
		}
		if res.Var.Assign != nil {
			return nil, fmt.Errorf("variable %q assigned twice", res.Var.Name)
		}
		insn.SetResult(res)
	}
	if kind == ssa.Phi && len(fi.From) != len(fi.Args) {
		return nil, fmt.Errorf("phi needs one incoming block per argument")
	}
	for i, s := range fi.Args {
		a, err := b.parseSite(s)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		if kind == ssa.Phi {
			from := fi.From[i]
			if from < 0 || from >= len(blocks) {
				return nil, fmt.Errorf("phi incoming block %d out of range", from)
			}
			insn.AddPhiArg(a, blocks[from])
			continue
		}
		insn.AddArg(a)
	}

	var err error
	if insn.Type, err = b.parseType(fi.Type); err != nil {
		return nil, fmt.Errorf("type: %w", err)
	}
	if insn.AnonymousBase, err = b.parseType(fi.AnonymousBase); err != nil {
		return nil, fmt.Errorf("anonymous_base: %w", err)
	}
	for _, c := range fi.Catch {
		t, err := b.parseType(c)
		if err != nil {
			return nil, fmt.Errorf("catch: %w", err)
		}
		insn.CatchTypes = append(insn.CatchTypes, t)
	}
	if fi.Method != nil {
		if insn.Method, err = b.methodRef(fi.Method, sub); err != nil {
			return nil, fmt.Errorf("method: %w", err)
		}
	}
	if fi.Field != nil {
		if insn.Field, err = b.fieldRef(fi.Field); err != nil {
			return nil, fmt.Errorf("field: %w", err)
		}
	}
	if fi.CallSite != nil {
		if insn.CallSite, err = b.callSite(fi.CallSite); err != nil {
			return nil, fmt.Errorf("call_site: %w", err)
		}
	}
	if (kind == ssa.Invoke || kind == ssa.Constructor) && insn.Method == nil {
		return nil, fmt.Errorf("method is required")
	}
	return insn, nil
}

func (b *builder) methodRef(fm *MethodRef, kindName string) (*ssa.MethodRef, error) {
	ref := &ssa.MethodRef{
		Class:      fm.Class,
		Name:       fm.Name,
		Kind:       ssa.InvokeVirtual,
		Resolved:   fm.Resolved,
		DeclClass:  fm.DeclClass,
		Overloaded: fm.Overloaded,
	}
	if kindName != "" {
		k, ok := ssa.InvokeKindByName(kindName)
		if !ok {
			return nil, fmt.Errorf("unknown invoke kind %q", kindName)
		}
		ref.Kind = k
	}
	var extra []typesystem.TTypeVar
	for _, name := range fm.TypeVars {
		extra = append(extra, typesystem.NewTypeVar(name))
	}
	var err error
	if ref.Return, err = b.parseType(fm.Return); err != nil {
		return nil, err
	}
	if ref.Return == nil {
		ref.Return = typesystem.Void
	}
	if ref.GenericReturn, err = b.parseType(fm.GenericReturn, extra...); err != nil {
		return nil, err
	}
	if ref.Args, err = b.parseTypes(fm.Args); err != nil {
		return nil, err
	}
	if fm.GenericArgs != nil {
		if ref.GenericArgs, err = b.parseTypes(fm.GenericArgs, extra...); err != nil {
			return nil, err
		}
	}
	return ref, nil
}

func (b *builder) parseTypes(list []string, extra ...typesystem.TTypeVar) ([]typesystem.Type, error) {
	res := make([]typesystem.Type, 0, len(list))
	for _, s := range list {
		t, err := b.parseType(s, extra...)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

func (b *builder) fieldRef(ff *FieldRef) (*ssa.FieldRef, error) {
	var extra []typesystem.TTypeVar
	for _, name := range ff.TypeVars {
		extra = append(extra, typesystem.NewTypeVar(name))
	}
	t, err := b.parseType(ff.Type, extra...)
	if err != nil {
		return nil, err
	}
	return &ssa.FieldRef{Class: ff.Class, Name: ff.Name, Type: t}, nil
}

func (b *builder) callSite(fc *CallSite) (*ssa.CallSite, error) {
	primary, err := b.parseType(fc.Primary)
	if err != nil {
		return nil, err
	}
	markers, err := b.parseTypes(fc.Markers)
	if err != nil {
		return nil, err
	}
	return &ssa.CallSite{Primary: primary, Markers: markers}, nil
}
