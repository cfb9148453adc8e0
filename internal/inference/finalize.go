package inference

import (
	"github.com/funvibe/dextype/internal/diagnostics"
	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

// finalize runs the local fixups to a fixed point, settles leftover
// placeholders and returns the number of instructions still not typed.
func (r *inferrer) finalize() int {
	rounds := r.cfg.Limits.FinalizeRounds
	r.incompatible = make(map[*ssa.Arg]bool)
	converged := false
	for i := 0; i < rounds; i++ {
		changed := false
		for _, insn := range r.mth.Insns() {
			if r.fixInsn(insn) {
				changed = true
			}
		}
		if !changed {
			converged = true
			break
		}
	}
	if !converged {
		r.diags.Report(diagnostics.ErrW004, r.name, rounds)
	}
	for _, insn := range r.mth.Insns() {
		r.selectDefaults(insn)
	}
	for _, v := range r.mth.Params() {
		if !v.Type().IsKnown() {
			r.mergeArg(v.Assign, typesystem.SelectFirst(v.Type()))
		}
	}
	return r.validate()
}

func (r *inferrer) fixInsn(insn *ssa.Insn) bool {
	switch insn.Kind {
	case ssa.Const:
		return r.fixConst(insn)

	case ssa.Move:
		if insn.Result == nil || len(insn.Args) == 0 {
			return false
		}
		a := r.mergeArg(insn.Result, insn.Args[0].Type())
		b := r.mergeArg(insn.Args[0], insn.Result.Type())
		return a || b

	case ssa.AGet:
		if insn.Result == nil || len(insn.Args) == 0 {
			return false
		}
		return r.fixArrayTypes(insn.Args[0], insn.Result)

	case ssa.APut:
		if len(insn.Args) < 3 {
			return false
		}
		return r.fixArrayTypes(insn.Args[0], insn.Args[2])

	case ssa.If:
		if len(insn.Args) < 2 {
			return false
		}
		a := r.mergeArg(insn.Args[0], insn.Args[1].Type())
		b := r.mergeArg(insn.Args[1], insn.Args[0].Type())
		return a || b

	case ssa.Invoke:
		return fixOverloadedArgs(insn)

	case ssa.CheckCast:
		return fixCheckCast(insn)

	case ssa.Phi:
		return fixPhi(insn)
	}
	return false
}

// fixConst forces a non-null literal stored into an object slot to a
// primitive.
func (r *inferrer) fixConst(insn *ssa.Insn) bool {
	if insn.Result == nil || len(insn.Args) == 0 {
		return false
	}
	lit := insn.Args[0]
	if lit.IsLiteral() && lit.Literal != 0 && typesystem.IsObject(lit.Type()) && !insn.Result.IsTypeImmutable() {
		t := typesystem.Type(typesystem.Int)
		if lit.Literal == 1 {
			t = typesystem.Boolean
		}
		lit.SetType(t)
		insn.Result.SetType(t)
		return true
	}
	return r.mergeArg(lit, insn.Result.Type())
}

func (r *inferrer) fixArrayTypes(array, elem *ssa.Arg) bool {
	res := false
	if !elem.Type().IsKnown() {
		if et := typesystem.ArrayElem(array.Type()); et != nil && r.mergeArg(elem, et) {
			res = true
		}
	}
	if !array.Type().IsKnown() {
		if r.mergeArg(array, typesystem.ArrayOf(elem.Type())) {
			res = true
		}
	}
	return res
}

// fixOverloadedArgs pins register arguments of an overloaded call to the
// declared parameter types so the chosen overload stays the same.
func fixOverloadedArgs(insn *ssa.Insn) bool {
	m := insn.Method
	if m == nil || !m.Overloaded {
		return false
	}
	res := false
	j := len(insn.Args) - 1
	for i := len(m.Args) - 1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		a := insn.Args[j]
		if a.IsRegister() && !a.IsTypeImmutable() && !typesystem.Equal(m.Args[i], a.Type()) {
			a.SetType(m.Args[i])
			res = true
		}
	}
	return res
}

// fixCheckCast sets the cast result to the cast type unless both already
// name the same class.
func fixCheckCast(insn *ssa.Insn) bool {
	if insn.Result == nil || insn.Type == nil || insn.Result.IsTypeImmutable() {
		return false
	}
	castType := insn.Type
	resType := insn.Result.Type()
	if typesystem.IsObject(castType) && typesystem.IsObject(resType) &&
		typesystem.ObjectName(castType) == typesystem.ObjectName(resType) {
		return false
	}
	if typesystem.Equal(castType, resType) {
		return false
	}
	insn.Result.SetType(castType)
	return true
}

// fixPhi gives the result and every input the first known type among them.
func fixPhi(insn *ssa.Insn) bool {
	if insn.Result == nil {
		return false
	}
	t := insn.Result.Type()
	if !t.IsKnown() {
		for _, a := range insn.Args {
			if at := a.Type(); at.IsKnown() {
				t = at
				break
			}
		}
	}
	res := updateArgType(insn.Result, t)
	for _, a := range insn.Args {
		if updateArgType(a, t) {
			res = true
		}
	}
	return res
}

func updateArgType(a *ssa.Arg, t typesystem.Type) bool {
	if a.IsTypeImmutable() || typesystem.Equal(a.Type(), t) {
		return false
	}
	a.SetType(t)
	return true
}

// mergeArg narrows a's type by merging it with t. Known types are never
// widened and pinned sites are left alone.
func (r *inferrer) mergeArg(a *ssa.Arg, t typesystem.Type) bool {
	if t == nil {
		return false
	}
	cur := a.Type()
	if cur.IsKnown() && a.IsTypeImmutable() {
		return false
	}
	merged, err := typesystem.MergeChecked(r.hier, cur, t)
	if err != nil {
		if cur.IsKnown() && t.IsKnown() && !r.incompatible[a] {
			r.incompatible[a] = true
			r.diags.Report(diagnostics.ErrW005, r.name, siteName(a), err)
		}
		return false
	}
	if typesystem.Equal(merged, cur) {
		return false
	}
	if cur.IsKnown() && !r.cmp.Compare(merged, cur).IsNarrow() {
		return false
	}
	a.SetType(merged)
	return true
}

func (r *inferrer) selectDefaults(insn *ssa.Insn) {
	if res := insn.Result; res != nil && !res.Type().IsKnown() {
		r.mergeArg(res, typesystem.SelectFirst(res.Type()))
	}
	for _, a := range insn.Args {
		if !a.Type().IsKnown() {
			r.mergeArg(a, typesystem.SelectFirst(a.Type()))
		}
	}
}

// validate reports each instruction with a site that is still not typed.
func (r *inferrer) validate() int {
	failed := 0
	for _, insn := range r.mth.Insns() {
		if bad := untypedSite(insn); bad != nil {
			r.diags.Report(diagnostics.ErrE001, r.name, siteName(bad), insn.String())
			failed++
		}
	}
	for _, v := range r.mth.Params() {
		if !v.Type().IsKnown() {
			r.diags.Report(diagnostics.ErrE001, r.name, v.String(), "parameter "+v.String())
			failed++
		}
	}
	return failed
}

func untypedSite(insn *ssa.Insn) *ssa.Arg {
	if res := insn.Result; res != nil && !res.Type().IsKnown() {
		return res
	}
	for _, a := range insn.Args {
		if !a.Type().IsKnown() {
			return a
		}
	}
	return nil
}

func siteName(a *ssa.Arg) string {
	if a.Var != nil {
		return a.Var.String()
	}
	return a.String()
}
