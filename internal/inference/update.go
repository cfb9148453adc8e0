package inference

import (
	"context"
	"log/slog"

	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

// typeUpdate is the transactional propagation engine of one method.
type typeUpdate struct {
	mth      *ssa.Method
	cmp      *typesystem.Comparator
	gen      generics
	scope    typeVarScope
	log      *slog.Logger
	debug    bool
	maxDepth int
}

func newTypeUpdate(mth *ssa.Method, cmp *typesystem.Comparator, gen generics, log *slog.Logger, maxDepth int) *typeUpdate {
	return &typeUpdate{
		mth:      mth,
		cmp:      cmp,
		gen:      gen,
		scope:    newTypeVarScope(mth),
		log:      log,
		debug:    log.Enabled(context.Background(), slog.LevelDebug),
		maxDepth: maxDepth,
	}
}

// apply tries candidate on v and every site linked to it. Nothing changes
// unless the whole attempt is accepted.
func (u *typeUpdate) apply(v *ssa.Var, candidate typesystem.Type, flags updateFlags) updateResult {
	if candidate == nil || !candidate.IsKnown() {
		return rejected
	}
	if v.Assign == nil {
		return rejected
	}
	tx := newUpdateTx(flags)
	res := u.updateTypeChecked(tx, v.Assign, candidate)
	if res == rejected {
		if u.debug {
			u.log.Debug("type rejected", "var", v.String(), "candidate", candidate.String())
		}
		return rejected
	}
	if tx.empty() {
		return same
	}
	if u.debug {
		u.log.Debug("applying types", "var", v.String(),
			"candidate", candidate.String(), "updates", len(tx.index))
	}
	tx.commit()
	return changed
}

func (u *typeUpdate) updateTypeChecked(tx *updateTx, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	if candidate == nil {
		return rejected
	}
	if tx.isProcessed(arg) {
		return changed
	}
	if res, done := u.verifyType(tx, arg, candidate); done {
		return res
	}
	if arg.IsRegister() {
		return u.updateTypeForVar(tx, arg.Var, candidate)
	}
	return u.requestUpdate(tx, arg, candidate)
}

// verifyType runs the per-site checks. done is false when propagation
// should continue.
func (u *typeUpdate) verifyType(tx *updateTx, arg *ssa.Arg, candidate typesystem.Type) (updateResult, bool) {
	current := arg.Type()
	if typesystem.Equal(current, candidate) {
		if !tx.has(ignoreSame) {
			return same, true
		}
		return 0, false
	}
	if typesystem.IsWildcard(candidate) {
		return rejected, true
	}
	cmp := u.cmp.Compare(candidate, current)
	if cmp.IsConflict() {
		if u.debug {
			u.log.Debug("type conflict", "arg", arg.String(), "candidate", candidate.String(), "current", current.String())
		}
		return rejected, true
	}
	if cmp == typesystem.CompareUnknown && tx.has(ignoreUnknown) {
		return rejected, true
	}
	if arg.IsTypeImmutable() && current.IsKnown() {
		return rejected, true
	}
	if cmp.IsWider() && !tx.has(allowWider) {
		if u.debug {
			u.log.Debug("wider type rejected", "arg", arg.String(), "candidate", candidate.String(), "current", current.String())
		}
		return rejected, true
	}
	if typesystem.ContainsTypeVar(candidate) && u.scope.hasUnknown(candidate) {
		return rejected, true
	}
	return 0, false
}

func (u *typeUpdate) updateTypeForVar(tx *updateTx, v *ssa.Var, candidate typesystem.Type) updateResult {
	if imm := v.ImmutableType(); imm != nil && !typesystem.Equal(imm, candidate) {
		return rejected
	}
	if !u.inBounds(tx, v.TypeInfo.Bounds, candidate) {
		if u.debug {
			u.log.Debug("type rejected by bounds", "var", v.String(), "candidate", candidate.String())
		}
		return rejected
	}
	res := u.requestUpdate(tx, v.Assign, candidate)
	allSame := true
	if res != rejected {
		uses := append([]*ssa.Arg(nil), v.Uses...)
		for _, use := range uses {
			useRes := u.requestUpdate(tx, use, candidate)
			if useRes == rejected {
				res = rejected
				break
			}
			if useRes != same {
				allSame = false
			}
		}
	}
	if res == rejected {
		// only this variable's own sites are rolled back
		tx.rollback(v.Assign)
		for _, use := range v.Uses {
			tx.rollback(use)
		}
		return rejected
	}
	if allSame {
		return same
	}
	return changed
}

func (u *typeUpdate) requestUpdate(tx *updateTx, arg *ssa.Arg, candidate typesystem.Type) updateResult {
	if tx.isProcessed(arg) {
		return changed
	}
	tx.request(arg, candidate)
	tx.depth++
	defer func() { tx.depth-- }()
	if tx.depth > u.maxDepth {
		panic(newOverflowError(u.maxDepth, "type update recursion too deep at %s", arg))
	}
	res := u.runListener(tx, arg, candidate)
	if res == rejected {
		tx.rollback(arg)
	}
	return res
}

// inBounds checks candidate against every bound. A nil tx reads dynamic
// bounds from the committed state.
func (u *typeUpdate) inBounds(tx *updateTx, bounds []ssa.Bound, candidate typesystem.Type) bool {
	for _, b := range bounds {
		bt := boundType(b, tx)
		if bt != nil && !u.checkBound(candidate, b, bt) {
			return false
		}
	}
	return true
}

// argInBounds checks a sibling site: register sites by their variable's
// bounds, literals by exact type.
func (u *typeUpdate) argInBounds(tx *updateTx, arg *ssa.Arg, candidate typesystem.Type) bool {
	if arg.IsRegister() {
		return u.inBounds(tx, arg.Var.TypeInfo.Bounds, candidate)
	}
	return typesystem.Equal(arg.Type(), candidate)
}

func (u *typeUpdate) checkBound(candidate typesystem.Type, b ssa.Bound, bt typesystem.Type) bool {
	switch u.cmp.Compare(candidate, bt) {
	case typesystem.CompareEqual:
		return true
	case typesystem.CompareWider:
		return b.Kind() != ssa.BoundUse
	case typesystem.CompareNarrow:
		if b.Kind() == ssa.BoundAssign {
			return !bt.IsKnown() && checkAssignForUnknown(bt, candidate)
		}
		return true
	case typesystem.CompareWiderByGeneric, typesystem.CompareNarrowByGeneric:
		return true
	case typesystem.CompareConflict, typesystem.CompareConflictByGeneric:
		return false
	default:
		u.log.Warn("can't compare types, unknown hierarchy",
			"candidate", candidate.String(), "bound", bt.String())
		return true
	}
}

func checkAssignForUnknown(bt, candidate typesystem.Type) bool {
	if typesystem.IsUnknownAll(bt) {
		return true
	}
	candidateArray := typesystem.IsArray(candidate)
	if typesystem.IsArray(bt) && candidateArray {
		return checkAssignForUnknown(typesystem.ArrayElem(bt), typesystem.ArrayElem(candidate))
	}
	if candidateArray && typesystem.Contains(bt, typesystem.KindArray) {
		return true
	}
	if typesystem.IsObject(candidate) && typesystem.Contains(bt, typesystem.KindObject) {
		return true
	}
	if p, ok := candidate.(typesystem.TPrim); ok && typesystem.Contains(bt, p.Kind) {
		return true
	}
	return false
}
