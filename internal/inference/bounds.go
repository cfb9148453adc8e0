package inference

import (
	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

// constBound is a bound with a fixed type.
type constBound struct {
	kind ssa.BoundKind
	typ  typesystem.Type
	arg  *ssa.Arg
}

func (b *constBound) Kind() ssa.BoundKind   { return b.kind }
func (b *constBound) Type() typesystem.Type { return b.typ }
func (b *constBound) Arg() *ssa.Arg         { return b.arg }
func (b *constBound) String() string        { return b.kind.String() + " " + b.typ.String() }

func newAssignBound(t typesystem.Type, a *ssa.Arg) *constBound {
	return &constBound{kind: ssa.BoundAssign, typ: t, arg: a}
}

func newUseBound(t typesystem.Type, a *ssa.Arg) *constBound {
	return &constBound{kind: ssa.BoundUse, typ: t, arg: a}
}

// dynamicBound recomputes its type from another site. During propagation the
// site's proposed type is used.
type dynamicBound interface {
	ssa.Bound
	speculativeType(tx *updateTx) typesystem.Type
}

// invokeAssignBound types a call result whose declared return mentions a
// class type variable of the receiver.
type invokeAssignBound struct {
	gen           generics
	insn          *ssa.Insn
	genericReturn typesystem.Type
}

func (b *invokeAssignBound) Kind() ssa.BoundKind   { return ssa.BoundAssign }
func (b *invokeAssignBound) Arg() *ssa.Arg         { return b.insn.Result }
func (b *invokeAssignBound) Type() typesystem.Type { return b.speculativeType(nil) }

func (b *invokeAssignBound) speculativeType(tx *updateTx) typesystem.Type {
	instance := b.insn.InstanceArg()
	if instance == nil {
		return b.insn.Method.Return
	}
	res := b.gen.replaceClassGenerics(tx.typeOf(instance), b.genericReturn)
	if res == nil {
		return b.insn.Method.Return
	}
	return unwrapWildcard(res)
}

// invokeUseBound types a call argument whose declared parameter mentions a
// class type variable of the receiver.
type invokeUseBound struct {
	gen          generics
	insn         *ssa.Insn
	arg          *ssa.Arg
	genericParam typesystem.Type
}

func (b *invokeUseBound) Kind() ssa.BoundKind   { return ssa.BoundUse }
func (b *invokeUseBound) Arg() *ssa.Arg         { return b.arg }
func (b *invokeUseBound) Type() typesystem.Type { return b.speculativeType(nil) }

func (b *invokeUseBound) speculativeType(tx *updateTx) typesystem.Type {
	instance := b.insn.InstanceArg()
	if instance == nil {
		return nil
	}
	return b.gen.replaceClassGenerics(tx.typeOf(instance), b.genericParam)
}

// fieldGetBound types an instance field read whose declared type mentions a
// class type variable.
type fieldGetBound struct {
	gen       generics
	insn      *ssa.Insn
	fieldType typesystem.Type
}

func (b *fieldGetBound) Kind() ssa.BoundKind   { return ssa.BoundAssign }
func (b *fieldGetBound) Arg() *ssa.Arg         { return b.insn.Result }
func (b *fieldGetBound) Type() typesystem.Type { return b.speculativeType(nil) }

func (b *fieldGetBound) speculativeType(tx *updateTx) typesystem.Type {
	if len(b.insn.Args) > 0 {
		if res := b.gen.replaceClassGenerics(tx.typeOf(b.insn.Args[0]), b.fieldType); res != nil {
			return unwrapWildcard(res)
		}
	}
	return typesystem.EraseGenerics(b.fieldType)
}

// checkCastBound types a check-cast result. A soft cast keeps the source type
// when it is already narrower than the cast target.
type checkCastBound struct {
	cmp  *typesystem.Comparator
	insn *ssa.Insn
}

func (b *checkCastBound) Kind() ssa.BoundKind   { return ssa.BoundAssign }
func (b *checkCastBound) Arg() *ssa.Arg         { return b.insn.Result }
func (b *checkCastBound) Type() typesystem.Type { return b.speculativeType(nil) }

func (b *checkCastBound) speculativeType(tx *updateTx) typesystem.Type {
	castType := b.insn.Type
	if !b.insn.Soft || len(b.insn.Args) == 0 {
		return castType
	}
	argType := tx.typeOf(b.insn.Args[0])
	if b.cmp.Compare(argType, castType).IsNarrow() {
		return argType
	}
	return castType
}

func boundType(b ssa.Bound, tx *updateTx) typesystem.Type {
	if tx != nil {
		if d, ok := b.(dynamicBound); ok {
			return d.speculativeType(tx)
		}
	}
	return b.Type()
}

// initTypeBounds drops every type and rebuilds all bounds from the graph.
func (r *inferrer) initTypeBounds() {
	for _, v := range r.mth.Vars {
		v.ResetTypeInfo()
	}
	for _, v := range r.mth.Vars {
		r.attachBounds(v)
	}
	for _, v := range r.mth.Vars {
		mergePhiBounds(v)
	}
}

func (r *inferrer) attachBounds(v *ssa.Var) {
	if v.Assign != nil {
		for _, b := range r.assignBounds(v) {
			addBound(v, b)
		}
	}
	for _, use := range v.Uses {
		addBound(v, r.useBound(use))
	}
}

// addBound skips nil bounds, fully open static bounds and duplicates.
func addBound(v *ssa.Var, b ssa.Bound) {
	if b == nil {
		return
	}
	_, dynamic := b.(dynamicBound)
	if !dynamic && (b.Type() == nil || typesystem.IsUnknownAll(b.Type())) {
		return
	}
	for _, existing := range v.TypeInfo.Bounds {
		if existing == b {
			return
		}
		if dynamic {
			continue
		}
		if _, ok := existing.(dynamicBound); ok {
			continue
		}
		if existing.Kind() == b.Kind() && typesystem.Equal(existing.Type(), b.Type()) {
			return
		}
	}
	v.TypeInfo.Bounds = append(v.TypeInfo.Bounds, b)
}

func (r *inferrer) assignBounds(v *ssa.Var) []ssa.Bound {
	assign := v.Assign
	if v.IsImmutable() {
		return []ssa.Bound{newAssignBound(v.ImmutableType(), assign)}
	}
	insn := assign.Parent
	if insn == nil || insn.Result == nil {
		return []ssa.Bound{newAssignBound(assign.InitType, assign)}
	}
	switch insn.Kind {
	case ssa.NewInstance:
		if insn.Type != nil {
			return []ssa.Bound{newAssignBound(insn.Type, assign)}
		}

	case ssa.Constructor:
		switch {
		case insn.AnonymousBase != nil:
			return []ssa.Bound{newAssignBound(insn.AnonymousBase, assign)}
		case insn.Type != nil:
			return []ssa.Bound{newAssignBound(insn.Type, assign)}
		case insn.Method != nil:
			return []ssa.Bound{newAssignBound(typesystem.NewObject(insn.Method.Class), assign)}
		}

	case ssa.Const:
		if len(insn.Args) > 0 {
			return []ssa.Bound{newAssignBound(insn.Args[0].Type(), assign)}
		}

	case ssa.MoveException:
		if len(insn.CatchTypes) > 0 {
			res := make([]ssa.Bound, 0, len(insn.CatchTypes))
			for _, t := range insn.CatchTypes {
				res = append(res, newAssignBound(t, assign))
			}
			return res
		}

	case ssa.Invoke:
		if b := r.invokeAssign(insn); b != nil {
			return []ssa.Bound{b}
		}

	case ssa.InvokeCustom:
		if cs := insn.CallSite; cs != nil {
			if len(cs.Markers) > 0 {
				return []ssa.Bound{newAssignBound(cs.Markers[0], assign)}
			}
			if cs.Primary != nil {
				return []ssa.Bound{newAssignBound(cs.Primary, assign)}
			}
		}

	case ssa.IGet:
		fieldType := assign.InitType
		if insn.Field != nil && insn.Field.Type != nil {
			fieldType = insn.Field.Type
		}
		if typesystem.ContainsTypeVar(fieldType) && len(insn.Args) > 0 {
			return []ssa.Bound{&fieldGetBound{gen: r.gen, insn: insn, fieldType: fieldType}}
		}

	case ssa.CheckCast:
		if insn.Type != nil {
			return []ssa.Bound{&checkCastBound{cmp: r.cmp, insn: insn}}
		}
	}
	return []ssa.Bound{newAssignBound(assign.InitType, assign)}
}

func (r *inferrer) invokeAssign(insn *ssa.Insn) ssa.Bound {
	m := insn.Method
	if m == nil {
		return nil
	}
	boundType := m.Return
	if m.GenericReturn != nil {
		if typesystem.ContainsTypeVar(m.GenericReturn) {
			if len(insn.Args) > 0 && !m.IsStatic() && m.Kind != ssa.InvokeSuper {
				return &invokeAssignBound{gen: r.gen, insn: insn, genericReturn: m.GenericReturn}
			}
		} else {
			boundType = m.GenericReturn
		}
	}
	if boundType == nil {
		return nil
	}
	return newAssignBound(boundType, insn.Result)
}

func (r *inferrer) useBound(use *ssa.Arg) ssa.Bound {
	insn := use.Parent
	if insn != nil {
		switch insn.Kind {
		case ssa.Invoke, ssa.Constructor:
			if b := r.invokeUse(insn, use); b != nil {
				return b
			}
		case ssa.CheckCast:
			if insn.Soft {
				return nil
			}
		}
	}
	return newUseBound(use.InitType, use)
}

func (r *inferrer) invokeUse(insn *ssa.Insn, use *ssa.Arg) ssa.Bound {
	instance := insn.InstanceArg()
	m := insn.Method
	if instance == nil || m == nil || !m.Resolved {
		return nil
	}
	if instance != use {
		idx := insn.ArgIndex(use) - insn.FirstArgOffset()
		params := m.ParamTypes()
		if idx < 0 || idx >= len(params) || !typesystem.ContainsTypeVar(params[idx]) {
			return nil
		}
		return &invokeUseBound{gen: r.gen, insn: insn, arg: use, genericParam: params[idx]}
	}
	// overriding calls bind the receiver to the declaring class
	return newUseBound(typesystem.NewObject(m.OriginClass()), use)
}

// mergePhiBounds copies the bounds of every phi v takes part in: the phi
// result's and every other input's.
func mergePhiBounds(v *ssa.Var) {
	for _, phi := range v.UsedInPhis {
		if phi.Result != nil && phi.Result.Var != nil {
			copyBounds(v, phi.Result.Var)
		}
		for _, a := range phi.Args {
			if a.Var != nil {
				copyBounds(v, a.Var)
			}
		}
	}
}

func copyBounds(dst, src *ssa.Var) {
	bounds := append([]ssa.Bound(nil), src.TypeInfo.Bounds...)
	for _, b := range bounds {
		addBound(dst, b)
	}
}
