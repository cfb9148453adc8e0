package inference

import (
	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

// runListener propagates a change at arg to the sibling sites of its
// instruction.
func (u *typeUpdate) runListener(tx *updateTx, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	insn := arg.Parent
	if insn == nil {
		return same
	}
	switch insn.Kind {
	case ssa.Const:
		return u.sameFirstArgListener(tx, insn, arg, candidate)
	case ssa.Move:
		return u.moveListener(tx, insn, arg, candidate)
	case ssa.Phi:
		return u.allSameListener(tx, insn, arg, candidate)
	case ssa.AGet:
		return u.arrayGetListener(tx, insn, arg, candidate)
	case ssa.APut:
		return u.arrayPutListener(tx, insn, arg, candidate)
	case ssa.If:
		return u.ifListener(tx, insn, arg, candidate)
	case ssa.Arith:
		return u.arithListener(tx, insn, arg, candidate)
	case ssa.Neg, ssa.Not:
		return u.suggestAllSameListener(tx, insn, arg, candidate, nil)
	case ssa.CheckCast:
		return u.checkCastListener(tx, insn, arg, candidate)
	case ssa.Invoke, ssa.Constructor:
		return u.invokeListener(tx, insn, arg, candidate)
	case ssa.InvokeCustom:
		return same
	}
	return changed
}

func (u *typeUpdate) sameFirstArgListener(tx *updateTx, insn *ssa.Insn, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	changeArg := insn.Result
	if insn.IsAssign(arg) {
		if len(insn.Args) == 0 {
			return changed
		}
		changeArg = insn.Args[0]
	}
	if changeArg == nil {
		return changed
	}
	return u.updateTypeChecked(tx, changeArg, candidate)
}

// moveListener keeps the result equal to or wider than the source.
func (u *typeUpdate) moveListener(tx *updateTx, insn *ssa.Insn, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	if insn.Result == nil || len(insn.Args) == 0 {
		return changed
	}
	assignChanged := insn.IsAssign(arg)
	changeArg := insn.Result
	if assignChanged {
		changeArg = insn.Args[0]
	}
	var allowReject bool
	if changeType := changeArg.Type(); changeType.IsKnown() {
		cmp := u.cmp.Compare(candidate, changeType)
		correct := cmp.IsEqual()
		if !correct {
			if assignChanged {
				correct = cmp.IsWider()
			} else {
				correct = cmp.IsNarrow()
			}
		}
		if !correct || !u.argInBounds(tx, changeArg, candidate) {
			return rejected
		}
		allowReject = true
	} else {
		allowReject = arg.This || arg.IsTypeImmutable()
	}
	res := u.updateTypeChecked(tx, changeArg, candidate)
	if res == rejected && allowReject {
		return changed
	}
	return res
}

// allSameListener requires every input and the result to share one type.
func (u *typeUpdate) allSameListener(tx *updateTx, insn *ssa.Insn, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	if !insn.IsAssign(arg) {
		return u.updateTypeChecked(tx, insn.Result, candidate)
	}
	allSame := true
	for _, a := range insn.Args {
		if a == arg {
			continue
		}
		res := u.updateTypeChecked(tx, a, candidate)
		if res == rejected {
			return rejected
		}
		if res != same {
			allSame = false
		}
	}
	if allSame {
		return same
	}
	return changed
}

// suggestAllSameListener offers candidate to every other site without
// failing on their rejections. skip is never updated.
func (u *typeUpdate) suggestAllSameListener(tx *updateTx, insn *ssa.Insn, arg *ssa.Arg, candidate typesystem.Type, skip *ssa.Arg) updateResult {
	if !insn.IsAssign(arg) && insn.Result != nil {
		u.updateTypeChecked(tx, insn.Result, candidate)
	}
	allSame := true
	for _, a := range insn.Args {
		if a == arg || a == skip {
			continue
		}
		res := u.updateTypeChecked(tx, a, candidate)
		if res != rejected && res != same {
			allSame = false
		}
	}
	if allSame {
		return same
	}
	return changed
}

func (u *typeUpdate) arithListener(tx *updateTx, insn *ssa.Insn, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	if insn.ArithOp.IsBitOp() && typesystem.Equal(candidate, typesystem.Boolean) {
		return u.strictAllSame(tx, insn, arg, candidate)
	}
	var shiftAmount *ssa.Arg
	if insn.ArithOp.IsShift() && len(insn.Args) > 1 {
		shiftAmount = insn.Args[1]
		if arg == shiftAmount {
			return same
		}
	}
	return u.suggestAllSameListener(tx, insn, arg, candidate, shiftAmount)
}

// strictAllSame forces the result and every operand to candidate.
func (u *typeUpdate) strictAllSame(tx *updateTx, insn *ssa.Insn, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	sites := make([]*ssa.Arg, 0, len(insn.Args)+1)
	if insn.Result != nil {
		sites = append(sites, insn.Result)
	}
	sites = append(sites, insn.Args...)
	allSame := true
	for _, a := range sites {
		if a == arg {
			continue
		}
		res := u.updateTypeChecked(tx, a, candidate)
		if res == rejected {
			return rejected
		}
		if res != same {
			allSame = false
		}
	}
	if allSame {
		return same
	}
	return changed
}

func (u *typeUpdate) arrayGetListener(tx *updateTx, insn *ssa.Insn, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	if len(insn.Args) == 0 {
		return changed
	}
	arrArg := insn.Args[0]
	if insn.IsAssign(arg) {
		res := u.updateTypeChecked(tx, arrArg, typesystem.ArrayOf(candidate))
		if res == rejected {
			// implicit widening of a primitive element into the result
			arrType := tx.typeOf(arrArg)
			if elem := typesystem.ArrayElem(arrType); elem != nil && arrType.IsKnown() && typesystem.IsPrimitive(elem) {
				if u.cmp.Compare(candidate, elem) == typesystem.CompareWider {
					return changed
				}
			}
		}
		return res
	}
	if arg == arrArg {
		elem := typesystem.ArrayElem(candidate)
		if elem == nil {
			return rejected
		}
		if insn.Result == nil {
			return changed
		}
		return u.updateTypeChecked(tx, insn.Result, elem)
	}
	return same
}

func (u *typeUpdate) arrayPutListener(tx *updateTx, insn *ssa.Insn, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	if len(insn.Args) < 3 {
		return changed
	}
	arrArg := insn.Args[0]
	putArg := insn.Args[2]
	switch arg {
	case arrArg:
		elem := typesystem.ArrayElem(candidate)
		if elem == nil {
			return rejected
		}
		res := u.updateTypeChecked(tx, putArg, elem)
		if res == rejected {
			// an object array accepts any narrower object
			putType := putArg.Type()
			if putType.IsKnown() && typesystem.IsObject(putType) {
				cmp := u.cmp.Compare(elem, putType)
				if cmp == typesystem.CompareWider || cmp == typesystem.CompareWiderByGeneric {
					return changed
				}
			}
		}
		return res
	case putArg:
		res := u.updateTypeChecked(tx, arrArg, typesystem.ArrayOf(candidate))
		if res == rejected && typesystem.IsPrimitive(candidate) {
			// a narrower primitive stored into a wider element
			elem := typesystem.ArrayElem(tx.typeOf(arrArg))
			if elem != nil && elem.IsKnown() && typesystem.IsPrimitive(elem) &&
				u.cmp.Compare(candidate, elem) == typesystem.CompareNarrow {
				return changed
			}
		}
		return res
	}
	return same
}

func (u *typeUpdate) ifListener(tx *updateTx, insn *ssa.Insn, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	if len(insn.Args) < 2 {
		return same
	}
	updateArg := insn.Args[0]
	if updateArg == arg {
		updateArg = insn.Args[1]
	}
	res := u.updateTypeChecked(tx, updateArg, candidate)
	if res != rejected {
		return res
	}
	// soft checks: only the category must match
	other := updateArg.Type()
	switch {
	case typesystem.IsObject(candidate) && typesystem.CanBeObject(other):
		return same
	case typesystem.IsArray(candidate) && typesystem.CanBeArray(other):
		return same
	}
	if p, ok := candidate.(typesystem.TPrim); ok {
		if typesystem.CanBePrimitive(other, p.Kind) {
			return same
		}
		if other.IsKnown() && typesystem.RegCount(candidate) == typesystem.RegCount(other) {
			return same
		}
	}
	return rejected
}

func (u *typeUpdate) checkCastListener(tx *updateTx, insn *ssa.Insn, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	if insn.IsAssign(arg) {
		if len(insn.Args) == 0 {
			return same
		}
		res := u.updateTypeChecked(tx, insn.Args[0], candidate)
		if res == rejected {
			return same
		}
		return res
	}
	if insn.Type == nil {
		return changed
	}
	switch u.cmp.Compare(candidate, insn.Type) {
	case typesystem.CompareConflict:
		if !u.isInterfaces(candidate, insn.Type) {
			return rejected
		}
	case typesystem.CompareConflictByGeneric:
		if !insn.Soft {
			return rejected
		}
	}
	return changed
}

func (u *typeUpdate) isInterfaces(a, b typesystem.Type) bool {
	if !typesystem.IsObject(a) || !typesystem.IsObject(b) {
		return false
	}
	return u.gen.hierarchy.IsInterface(typesystem.ObjectName(a)) &&
		u.gen.hierarchy.IsInterface(typesystem.ObjectName(b))
}

// invokeListener pushes the callee signature, resolved through the new
// receiver type, onto the call's result and arguments.
func (u *typeUpdate) invokeListener(tx *updateTx, insn *ssa.Insn, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	if insn.IsAssign(arg) {
		return same
	}
	if insn.InstanceArg() != arg {
		return same
	}
	m := insn.Method
	if m == nil || !m.Resolved {
		return same
	}
	mapping := u.gen.typeVarsMapping(candidate)
	returnType := m.GenericReturn
	if returnType == nil {
		returnType = m.Return
	}
	params := m.ParamTypes()
	if len(mapping) > 0 {
		returnType = typesystem.ReplaceTypeVars(returnType, mapping)
		resolved := make([]typesystem.Type, len(params))
		for i, p := range params {
			resolved[i] = typesystem.ReplaceTypeVars(p, mapping)
		}
		params = resolved
	}
	return u.applyInvokeTypes(tx, insn, returnType, params)
}

func (u *typeUpdate) applyInvokeTypes(tx *updateTx, insn *ssa.Insn, returnType typesystem.Type, params []typesystem.Type) updateResult {
	allSame := true
	if res := insn.Result; res != nil && !res.IsTypeImmutable() {
		if rt := u.checkInvokeType(returnType); rt != nil {
			switch u.updateTypeChecked(tx, res, rt) {
			case rejected:
				if u.cmp.Compare(rt, res.Type()).IsNarrow() {
					return rejected
				}
				return same
			case changed:
				allSame = false
			}
		}
	}
	offset := insn.FirstArgOffset()
	for i, p := range params {
		if offset+i >= len(insn.Args) {
			break
		}
		a := insn.Args[offset+i]
		if a.IsTypeImmutable() {
			continue
		}
		pt := u.checkInvokeType(p)
		if pt == nil {
			continue
		}
		switch u.updateTypeChecked(tx, a, pt) {
		case rejected:
			if u.cmp.Compare(pt, a.Type()).IsNarrow() {
				return rejected
			}
			return same
		case changed:
			allSame = false
		}
	}
	if allSame {
		return same
	}
	return changed
}

// checkInvokeType drops types that can't be used for a call site: wildcards
// and types with type variables outside the method's scope.
func (u *typeUpdate) checkInvokeType(t typesystem.Type) typesystem.Type {
	if t == nil || typesystem.IsWildcard(t) {
		return nil
	}
	if typesystem.ContainsTypeVar(t) && (u.scope.empty() || u.scope.hasUnknown(t)) {
		return nil
	}
	return t
}
