package inference

import (
	"strings"

	"github.com/funvibe/dextype/internal/diagnostics"
	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

// restoreTypeVarCasts retargets check-casts to the type variable the variable
// is bound to, when the variable's only generic bound extends the cast type.
func (r *inferrer) restoreTypeVarCasts() bool {
	restored := 0
	for _, v := range r.mth.Vars {
		restored += r.restoreVarCasts(v)
	}
	if restored == 0 {
		return false
	}
	r.diags.Report(diagnostics.ErrD005, r.name, restored)
	return r.reinit()
}

func (r *inferrer) restoreVarCasts(v *ssa.Var) int {
	bounds := v.TypeInfo.Bounds
	hasTypeVar := false
	var casts []*checkCastBound
	for _, b := range bounds {
		if typesystem.IsTypeVar(b.Type()) {
			hasTypeVar = true
		}
		if c, ok := b.(*checkCastBound); ok {
			casts = append(casts, c)
		}
	}
	if !hasTypeVar || len(casts) == 0 {
		return 0
	}
	best, ok := r.cmp.Best(boundTypes(bounds)).(typesystem.TTypeVar)
	if !ok || len(best.Extends) != 1 {
		return 0
	}
	ext := best.Extends[0]
	fixed := 0
	for _, c := range casts {
		res := r.cmp.Compare(ext, c.insn.Type)
		if res == typesystem.CompareEqual || res == typesystem.CompareNarrowByGeneric {
			c.insn.Type = best
			fixed++
		}
	}
	return fixed
}

// insertCasts adds soft casts where a bound needs a type-variable type the
// variable can't take directly.
func (r *inferrer) insertCasts() bool {
	added := 0
	vars := append([]*ssa.Var(nil), r.mth.Vars...)
	for _, v := range vars {
		added += r.insertVarCast(v)
	}
	if added == 0 {
		return false
	}
	r.diags.Report(diagnostics.ErrD004, r.name, added, "cast")
	return r.reinit()
}

func (r *inferrer) insertVarCast(v *ssa.Var) int {
	for _, b := range v.TypeInfo.Bounds {
		bt := b.Type()
		if bt == nil || !bt.IsKnown() || typesystem.Equal(bt, v.Type()) {
			continue
		}
		if !typesystem.ContainsTypeVar(bt) || r.upd.scope.hasUnknown(bt) {
			continue
		}
		if r.insertAssignCast(v, bt) {
			return 1
		}
		return r.insertUseCasts(v)
	}
	return 0
}

func (r *inferrer) insertAssignCast(v *ssa.Var, castType typesystem.Type) bool {
	assign := v.Assign
	insn := v.AssignInsn()
	if insn == nil || insn.Kind == ssa.Phi || insn.Block == nil {
		return false
	}
	newAssign := r.mth.DuplicateWithNewVar(assign)
	insn.SetResult(newAssign)
	cast := ssa.NewInsn(ssa.CheckCast, assign, newAssign.Duplicate())
	cast.Type = castType
	cast.Soft = true
	cast.Synthetic = true
	return r.mth.InsertAfter(insn, cast)
}

func (r *inferrer) insertUseCasts(v *ssa.Var) int {
	n := 0
	uses := append([]*ssa.Arg(nil), v.Uses...)
	for _, use := range uses {
		if r.insertSoftUseCast(use) {
			n++
		}
	}
	return n
}

func (r *inferrer) insertSoftUseCast(use *ssa.Arg) bool {
	insn := use.Parent
	if insn == nil || insn.Kind == ssa.Phi || insn.Block == nil {
		return false
	}
	if insn.Kind == ssa.If && len(insn.Args) > 1 && insn.Args[1].IsZeroLiteral() {
		// comparison with null
		return false
	}
	result := r.mth.DuplicateWithNewVar(use)
	cast := ssa.NewInsn(ssa.CheckCast, result, use.Duplicate())
	cast.Type = use.InitType
	cast.Soft = true
	cast.Synthetic = true
	if !insn.ReplaceArg(use, result.Duplicate()) {
		return false
	}
	return r.mth.InsertBefore(insn, cast)
}

// deduceTypes retries unresolved variables with the best bound, then each
// admissible primitive, then the ancestors of their object bounds.
func (r *inferrer) deduceTypes() bool {
	fixed := false
	for _, v := range r.mth.Vars {
		if r.deduceType(v) {
			fixed = true
		}
	}
	return fixed
}

func (r *inferrer) deduceType(v *ssa.Var) bool {
	if v.IsImmutable() {
		return false
	}
	t := v.Type()
	if t.IsKnown() {
		return false
	}
	if r.setBestType(v) {
		return true
	}
	for _, candidate := range possibleTypes(t, v) {
		if r.upd.apply(v, candidate, 0) == changed {
			return true
		}
	}
	return r.tryWiderObjects(v)
}

// possibleTypes expands a placeholder into known types. Primitives are not
// offered when v has an object or array bound.
func possibleTypes(t typesystem.Type, v *ssa.Var) []typesystem.Type {
	if elem := typesystem.ArrayElem(t); elem != nil {
		var res []typesystem.Type
		for _, e := range possibleTypes(elem, nil) {
			res = append(res, typesystem.ArrayOf(e))
		}
		return res
	}
	if v != nil {
		for _, b := range v.TypeInfo.Bounds {
			bt := b.Type()
			if bt != nil && (typesystem.IsObject(bt) || typesystem.IsArray(bt)) {
				return nil
			}
		}
	}
	var res []typesystem.Type
	for _, k := range typesystem.PossibleKinds(t) {
		if k == typesystem.KindVoid {
			continue
		}
		res = append(res, typesystem.FromKind(k))
	}
	return res
}

func (r *inferrer) tryWiderObjects(v *ssa.Var) bool {
	for _, obj := range knownObjectBounds(v) {
		for _, ancestor := range r.hier.Ancestors(typesystem.ObjectName(obj)) {
			if r.upd.apply(v, typesystem.NewObject(ancestor), allowWider) == changed {
				return true
			}
		}
	}
	return false
}

// knownObjectBounds lists the distinct known object types among v's bounds.
func knownObjectBounds(v *ssa.Var) []typesystem.Type {
	var res []typesystem.Type
next:
	for _, b := range v.TypeInfo.Bounds {
		bt := b.Type()
		if bt == nil || !bt.IsKnown() || !typesystem.IsObject(bt) {
			continue
		}
		for _, t := range res {
			if typesystem.Equal(t, bt) {
				continue next
			}
		}
		res = append(res, bt)
	}
	return res
}

// splitConsts gives a shared constant one copy per phi, or one per use.
func (r *inferrer) splitConsts() bool {
	split := false
	vars := append([]*ssa.Var(nil), r.mth.Vars...)
	for _, v := range vars {
		if v.Type().IsKnown() || v.IsImmutable() {
			continue
		}
		if r.splitByPhi(v) || r.dupConst(v) {
			split = true
		}
	}
	if !split {
		return false
	}
	return r.reinit()
}

func (r *inferrer) splitByPhi(v *ssa.Var) bool {
	if len(v.UsedInPhis) < 2 {
		return false
	}
	insn := v.AssignInsn()
	if insn == nil || insn.Kind != ssa.Const || insn.Block == nil {
		return false
	}
	phis := append([]*ssa.Insn(nil), v.UsedInPhis...)
	for _, phi := range phis[1:] {
		cp := r.mth.CopyWithNewVar(insn)
		cp.Synthetic = true
		r.mth.InsertAfter(insn, cp)
		if phiArg := phi.PhiArgFor(v); phiArg != nil {
			phi.ReplaceArg(phiArg, phiArg.DuplicateWith(cp.Result.Var))
		}
	}
	return true
}

func (r *inferrer) dupConst(v *ssa.Var) bool {
	insn := v.AssignInsn()
	if insn == nil || insn.Kind != ssa.Const || insn.Block == nil {
		return false
	}
	if len(v.Uses) < 2 {
		return false
	}
	uses := append([]*ssa.Arg(nil), v.Uses...)
	for _, use := range uses[1:] {
		useInsn := use.Parent
		if useInsn == nil {
			continue
		}
		cp := r.mth.CopyWithNewVar(insn)
		r.mth.InsertAfter(insn, cp)
		useInsn.ReplaceArg(use, use.DuplicateWith(cp.Result.Var))
	}
	return true
}

// fixPrimitives rewrites numeric uses of variables that are assigned a
// boolean.
func (r *inferrer) fixPrimitives() bool {
	fixed := false
	vars := append([]*ssa.Var(nil), r.mth.Vars...)
	for _, v := range vars {
		if r.fixIncompatiblePrimitives(v) {
			fixed = true
		}
	}
	if !fixed {
		return false
	}
	return r.reinit()
}

func (r *inferrer) fixIncompatiblePrimitives(v *ssa.Var) bool {
	if v.Type().IsKnown() {
		return false
	}
	assigned := false
	for _, b := range v.TypeInfo.Bounds {
		bt := b.Type()
		if bt == nil {
			continue
		}
		switch b.Kind() {
		case ssa.BoundAssign:
			if !typesystem.Contains(bt, typesystem.KindBoolean) {
				return false
			}
			assigned = true
		case ssa.BoundUse:
			if !typesystem.CanBeAnyNumber(bt) {
				return false
			}
		}
	}
	if !assigned {
		return false
	}
	fixed := false
	uses := append([]*ssa.Arg(nil), v.Uses...)
	for _, use := range uses {
		if r.fixBooleanUsage(use) {
			fixed = true
		}
	}
	return fixed
}

func (r *inferrer) fixBooleanUsage(use *ssa.Arg) bool {
	useType := use.InitType
	if typesystem.Equal(useType, typesystem.Boolean) || (useType.IsKnown() && !typesystem.IsPrimitive(useType)) {
		return false
	}
	insn := use.Parent
	if insn == nil || insn.Kind == ssa.If || insn.Block == nil {
		return false
	}
	switch insn.Kind {
	case ssa.Cast:
		convert := r.booleanConvert(insn.Result, use.Var, insn.Type)
		return r.mth.Replace(insn, convert)
	case ssa.Arith:
		if insn.ArithOp == ssa.OpXor && len(insn.Args) == 2 && insn.Args[1].IsLiteral() && insn.Args[1].Literal == 1 {
			return r.replaceXorWithNot(insn, use)
		}
	}
	result := r.mth.DuplicateWithNewVar(use)
	convert := r.booleanConvert(result, use.Var, useType)
	if !r.mth.InsertBefore(insn, convert) {
		return false
	}
	return insn.ReplaceArg(use, result.Duplicate())
}

// booleanConvert builds "result = cond ? 1 : 0" typed as t.
func (r *inferrer) booleanConvert(result *ssa.Arg, cond *ssa.Var, t typesystem.Type) *ssa.Insn {
	condArg := cond.Assign.Duplicate()
	condArg.InitType = typesystem.Boolean
	insn := ssa.NewInsn(ssa.Ternary, result, condArg, ssa.Lit(1, t), ssa.Lit(0, t))
	insn.Synthetic = true
	return insn
}

// replaceXorWithNot turns "x ^ 1" on a boolean into a negation.
func (r *inferrer) replaceXorWithNot(insn *ssa.Insn, use *ssa.Arg) bool {
	operand := use.Duplicate()
	operand.InitType = typesystem.Boolean
	if typesystem.CanBePrimitive(insn.Result.Type(), typesystem.KindBoolean) {
		not := ssa.NewInsn(ssa.Not, insn.Result, operand)
		not.Synthetic = true
		return r.mth.Replace(insn, not)
	}
	notResult := r.mth.DuplicateWithNewVar(insn.Result)
	notResult.InitType = typesystem.Boolean
	not := ssa.NewInsn(ssa.Not, notResult, operand)
	not.Synthetic = true
	if !r.mth.InsertBefore(insn, not) {
		return false
	}
	convert := r.booleanConvert(insn.Result, notResult.Var, typesystem.Int)
	return r.mth.Replace(insn, convert)
}

// forceImmutable pins still-unknown immutable variables used as arrays.
func (r *inferrer) forceImmutable() bool {
	fixed := false
	for _, v := range r.mth.Vars {
		if v.Type().IsKnown() || !v.IsImmutable() {
			continue
		}
		for _, use := range v.Uses {
			if p := use.Parent; p != nil && (p.Kind == ssa.AGet || p.Kind == ssa.APut) {
				v.SetType(v.ImmutableType())
				fixed = true
				break
			}
		}
	}
	if !fixed {
		return false
	}
	return r.runTypePropagation()
}

// insertMoves decouples phi inputs by routing each through a fresh move at
// the end of its incoming block.
func (r *inferrer) insertMoves() bool {
	added := 0
	for _, b := range r.mth.Blocks {
		phis := append([]*ssa.Insn(nil), b.Phis()...)
		for _, phi := range phis {
			added += r.insertPhiMoves(phi)
		}
	}
	if added == 0 {
		return false
	}
	r.diags.Report(diagnostics.ErrD004, r.name, added, "move")
	r.reinit()
	if r.allTypesKnown() {
		return true
	}
	return r.deduceTypes()
}

func (r *inferrer) insertPhiMoves(phi *ssa.Insn) int {
	if phiArgsSameKnown(phi) {
		return 0
	}
	for i := range phi.Args {
		start := phi.PhiBlock(i)
		if start == nil || checkBlockForInsert(start, phi.Args[i].Var) == nil {
			r.diags.Report(diagnostics.ErrD003, r.name, blockName(start))
			return 0
		}
	}
	added := 0
	args := append([]*ssa.Arg(nil), phi.Args...)
	for i, reg := range args {
		if reg.Var == nil {
			continue
		}
		if assign := reg.Var.AssignInsn(); assign != nil {
			if assign.Kind == ssa.Const || (assign.Kind == ssa.Move && reg.Var.UseCount() == 1) {
				continue
			}
		}
		block := checkBlockForInsert(phi.PhiBlock(i), reg.Var)
		result := r.mth.DuplicateWithNewVar(reg)
		move := ssa.NewInsn(ssa.Move, result, reg.Duplicate())
		move.Synthetic = true
		r.mth.Append(block, move)
		phi.ReplaceArg(reg, result.Duplicate())
		added++
	}
	return added
}

func phiArgsSameKnown(phi *ssa.Insn) bool {
	if len(phi.Args) == 0 {
		return true
	}
	first := phi.Args[0].Type()
	if !first.IsKnown() {
		return false
	}
	for _, a := range phi.Args[1:] {
		if !typesystem.Equal(a.Type(), first) {
			return false
		}
	}
	return true
}

// checkBlockForInsert finds where a move reading v can be appended: the
// block itself, or the single-predecessor chain above a block ending in a
// separate instruction. v must already be defined at that point.
func checkBlockForInsert(b *ssa.Block, v *ssa.Var) *ssa.Block {
	if b.Synthetic {
		return nil
	}
	last := b.LastInsn()
	if last == nil || !last.Kind.IsSeparate() {
		return b
	}
	if len(b.Preds) != 1 {
		return nil
	}
	if v != nil {
		if assign := v.AssignInsn(); assign != nil && assign.Block == b {
			return nil
		}
	}
	return checkBlockForInsert(b.Preds[0], v)
}

func blockName(b *ssa.Block) string {
	if b == nil {
		return "<nil>"
	}
	return b.String()
}

// removeGenerics falls back to raw types for variables bound to generic
// objects.
func (r *inferrer) removeGenerics() bool {
	resolved := true
	for _, v := range r.mth.Vars {
		if v.Type().IsKnown() || v.IsImmutable() {
			continue
		}
		if !r.tryRawType(v) {
			resolved = false
		}
	}
	return resolved
}

func (r *inferrer) tryRawType(v *ssa.Var) bool {
	objTypes := knownObjectBounds(v)
	if len(objTypes) == 0 {
		return false
	}
	for _, obj := range objTypes {
		if !hasGenerics(obj) {
			continue
		}
		raw := typesystem.Type(typesystem.ObjectType)
		if !typesystem.IsTypeVar(obj) && !typesystem.IsWildcard(obj) {
			raw = typesystem.NewObject(typesystem.ObjectName(obj))
		}
		if r.upd.apply(v, raw, allowWider) == changed {
			r.diags.Report(diagnostics.ErrD001, r.name, v.String(), typeList(objTypes))
			return true
		}
	}
	return false
}

func hasGenerics(t typesystem.Type) bool {
	return typesystem.IsTypeVar(t) || typesystem.IsWildcard(t) || typesystem.IsGeneric(t)
}

func typeList(types []typesystem.Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
