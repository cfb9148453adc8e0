package inference

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-set/v3"

	"github.com/funvibe/dextype/internal/diagnostics"
	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

// searchVar is the fallback-search record of one variable.
type searchVar struct {
	v          *ssa.Var
	candidates []typesystem.Type
	cursor     int
	current    typesystem.Type
	resolved   bool
	// constraints are the move and phi checks v takes part in.
	constraints []*searchConstraint
}

func (sv *searchVar) String() string {
	return fmt.Sprintf("%s %s %v", sv.v, sv.current, sv.candidates)
}

func (sv *searchVar) reset() {
	sv.cursor = 0
	if len(sv.candidates) > 0 {
		sv.current = sv.candidates[0]
	}
}

// next advances the cursor and reports a wrap to the first candidate.
func (sv *searchVar) next() bool {
	if len(sv.candidates) == 0 {
		return true
	}
	sv.cursor++
	wrapped := sv.cursor >= len(sv.candidates)
	if wrapped {
		sv.cursor = 0
	}
	sv.current = sv.candidates[sv.cursor]
	return wrapped
}

type constraintKind int

const (
	moveConstraint constraintKind = iota
	phiConstraint
)

// searchConstraint is a check over the speculative types of one
// instruction's sites.
type searchConstraint struct {
	kind    constraintKind
	insn    *ssa.Insn
	related []*ssa.Var
}

type typeSearch struct {
	r     *inferrer
	vars  []*searchVar
	byVar map[*ssa.Var]*searchVar
}

func newTypeSearch(r *inferrer) *typeSearch {
	return &typeSearch{r: r, byVar: make(map[*ssa.Var]*searchVar, len(r.mth.Vars))}
}

// search is the resolver entry point: it reports whether every variable is
// known afterwards.
func (r *inferrer) search() bool {
	if !newTypeSearch(r).run() {
		r.diags.Report(diagnostics.ErrW002, r.name)
	}
	return r.allTypesKnown()
}

func (s *typeSearch) run() bool {
	limits := s.r.cfg.Limits
	if n := len(s.r.mth.Vars); n > limits.SearchVars {
		s.r.diags.Report(diagnostics.ErrW003, s.r.name, n, limits.SearchVars)
		return false
	}
	for _, v := range s.r.mth.Vars {
		sv := &searchVar{v: v}
		s.vars = append(s.vars, sv)
		s.byVar[v] = sv
		s.fillCandidates(sv)
	}
	for _, sv := range s.vars {
		s.collectConstraints(sv)
	}
	for _, sv := range s.unresolved() {
		s.resolveIndependent(sv)
	}

	success := true
	if vars := s.unresolved(); len(vars) > 0 {
		s.searchAll(vars)
		success = s.fullCheck(vars)
		if !success {
			s.r.log.Debug("multi-variable search failed", "vars", len(vars))
		}
	}
	if !success {
		return false
	}
	return s.applyResolved()
}

func (s *typeSearch) unresolved() []*searchVar {
	var res []*searchVar
	for _, sv := range s.vars {
		if !sv.resolved {
			res = append(res, sv)
		}
	}
	return res
}

func (s *typeSearch) fillCandidates(sv *searchVar) {
	v := sv.v
	if imm := v.ImmutableType(); imm != nil {
		sv.current, sv.resolved = imm, true
		return
	}
	if t := v.Type(); t.IsKnown() {
		sv.current, sv.resolved = t, true
		return
	}
	var assigns, uses []typesystem.Type
	for _, b := range v.TypeInfo.Bounds {
		bt := b.Type()
		if bt == nil {
			continue
		}
		if b.Kind() == ssa.BoundAssign {
			assigns = appendDistinct(assigns, bt)
		} else {
			uses = appendDistinct(uses, bt)
		}
	}

	c := newCandidates(s.r, v.TypeInfo.Bounds, s.r.cfg.Limits.SearchCandidates)
	c.addAll(assigns)
	c.addAll(uses)
	for _, t := range assigns {
		c.addAll(s.widerTypes(t))
	}
	for _, t := range uses {
		c.addAll(s.narrowTypes(t))
	}
	for _, use := range v.Uses {
		if p := use.Parent; p != nil && p.Kind == ssa.APut && len(p.Args) > 2 {
			if putType := p.Args[2].Type(); putType.IsKnown() {
				c.add(typesystem.ArrayOf(putType))
			}
		}
	}

	switch len(c.list) {
	case 0:
		panic(newOverflowError(0, "no type candidates for %s in %s", v, s.r.name))
	case 1:
		sv.current, sv.resolved = c.list[0], true
	default:
		types := c.list
		sort.SliceStable(types, func(i, j int) bool {
			return s.r.cmp.Order(types[i], types[j]) > 0
		})
		sv.candidates = types
		sv.current = typesystem.Unknown
	}
}

func appendDistinct(list []typesystem.Type, t typesystem.Type) []typesystem.Type {
	for _, e := range list {
		if typesystem.Equal(e, t) {
			return list
		}
	}
	return append(list, t)
}

// candidates collects distinct, bound-compatible known types up to limit.
type candidates struct {
	r      *inferrer
	bounds []ssa.Bound
	limit  int
	seen   *set.Set[string]
	list   []typesystem.Type
}

func newCandidates(r *inferrer, bounds []ssa.Bound, limit int) *candidates {
	return &candidates{r: r, bounds: bounds, limit: limit, seen: set.New[string](limit)}
}

func (c *candidates) full() bool { return len(c.list) >= c.limit }

func (c *candidates) add(t typesystem.Type) {
	if c.full() || !t.IsKnown() {
		return
	}
	key := fmt.Sprintf("%T:%s", t, t)
	if c.seen.Contains(key) || !c.r.upd.inBounds(nil, c.bounds, t) {
		return
	}
	c.seen.Insert(key)
	c.list = append(c.list, t)
}

func (c *candidates) addAll(types []typesystem.Type) {
	for _, t := range types {
		if c.full() {
			return
		}
		c.add(t)
	}
}

func (s *typeSearch) widerTypes(t typesystem.Type) []typesystem.Type {
	if !t.IsKnown() {
		return expandUnknown(t)
	}
	if !typesystem.IsObject(t) {
		return nil
	}
	var res []typesystem.Type
	for _, a := range s.r.hier.Ancestors(typesystem.ObjectName(t)) {
		res = append(res, typesystem.NewObject(a))
	}
	return res
}

func (s *typeSearch) narrowTypes(t typesystem.Type) []typesystem.Type {
	if !t.IsKnown() {
		return expandUnknown(t)
	}
	if !typesystem.IsObject(t) {
		return nil
	}
	if typesystem.IsObjectClass(t) {
		return []typesystem.Type{typesystem.ObjectType}
	}
	var res []typesystem.Type
	for _, impl := range s.r.hier.Implementations(typesystem.ObjectName(t)) {
		res = append(res, typesystem.NewObject(impl))
	}
	return res
}

func expandUnknown(t typesystem.Type) []typesystem.Type {
	var res []typesystem.Type
	for _, k := range typesystem.PossibleKinds(t) {
		res = append(res, typesystem.FromKind(k))
	}
	return res
}

func (s *typeSearch) collectConstraints(sv *searchVar) {
	if sv.resolved {
		return
	}
	if c := s.makeConstraint(sv.v, sv.v.Assign); c != nil {
		sv.constraints = append(sv.constraints, c)
	}
	for _, use := range sv.v.Uses {
		if c := s.makeConstraint(sv.v, use); c != nil {
			sv.constraints = append(sv.constraints, c)
		}
	}
}

func (s *typeSearch) makeConstraint(v *ssa.Var, arg *ssa.Arg) *searchConstraint {
	if arg == nil || arg.IsTypeImmutable() {
		return nil
	}
	insn := arg.Parent
	if insn == nil || insn.Result == nil {
		return nil
	}
	var kind constraintKind
	switch insn.Kind {
	case ssa.Move:
		if len(insn.Args) == 0 || !insn.Args[0].IsRegister() {
			return nil
		}
		kind = moveConstraint
	case ssa.Phi:
		kind = phiConstraint
	default:
		return nil
	}
	return &searchConstraint{kind: kind, insn: insn, related: relatedVars(insn, v)}
}

// relatedVars lists the other variables read or written by insn.
func relatedVars(insn *ssa.Insn, self *ssa.Var) []*ssa.Var {
	var res []*ssa.Var
	if rv := insn.Result.Var; rv != nil && rv != self {
		res = append(res, rv)
	}
	for _, a := range insn.Args {
		if a.Var != nil && a.Var != self {
			res = append(res, a.Var)
		}
	}
	return res
}

// argType is the speculative type of a site.
func (s *typeSearch) argType(a *ssa.Arg) typesystem.Type {
	if a.Var != nil {
		if sv, ok := s.byVar[a.Var]; ok && sv.current != nil {
			return sv.current
		}
	}
	return a.Type()
}

func (s *typeSearch) check(c *searchConstraint) bool {
	resType := s.argType(c.insn.Result)
	switch c.kind {
	case moveConstraint:
		res := s.r.cmp.Compare(resType, s.argType(c.insn.Args[0]))
		return res.IsEqual() || res.IsWider()
	case phiConstraint:
		for _, a := range c.insn.Args {
			if !typesystem.Equal(s.argType(a), resType) {
				return false
			}
		}
	}
	return true
}

func (s *typeSearch) singleCheck(sv *searchVar) bool {
	if sv.resolved {
		return true
	}
	for _, c := range sv.constraints {
		if !s.check(c) {
			return false
		}
	}
	return true
}

func (s *typeSearch) fullCheck(vars []*searchVar) bool {
	for _, sv := range vars {
		if !s.singleCheck(sv) {
			return false
		}
	}
	return true
}

// resolveIndependent settles a variable whose related variables are all
// resolved by trying its own candidates in order.
func (s *typeSearch) resolveIndependent(sv *searchVar) bool {
	for _, c := range sv.constraints {
		for _, rv := range c.related {
			if other, ok := s.byVar[rv]; ok && !other.resolved {
				return false
			}
		}
	}
	sv.reset()
	for {
		if s.singleCheck(sv) {
			sv.resolved = true
			return true
		}
		if sv.next() {
			return false
		}
	}
}

// searchAll walks the candidate cross-product like an odometer: the first
// variable turns fastest.
func (s *typeSearch) searchAll(vars []*searchVar) bool {
	limit := s.r.cfg.Limits.SearchIterations
	for _, sv := range vars {
		sv.reset()
	}
	n := 0
	for !s.fullCheck(vars) {
		if vars[0].next() {
			k := 1
			for {
				if k >= len(vars) {
					return false
				}
				if !vars[k].next() {
					break
				}
				k++
			}
		}
		n++
		if n > limit {
			s.r.log.Debug("search iterations limit reached", "limit", limit)
			return false
		}
	}
	s.r.log.Debug("search done", "iterations", n, "vars", len(vars))
	for _, sv := range vars {
		sv.resolved = true
	}
	return true
}

// applyResolved writes the found types, then re-checks each through the
// propagation engine.
func (s *typeSearch) applyResolved() bool {
	var updated []*searchVar
	for _, sv := range s.vars {
		if !sv.resolved || sv.current == nil || !sv.current.IsKnown() {
			continue
		}
		if typesystem.Equal(sv.current, sv.v.Type()) {
			continue
		}
		sv.v.SetType(sv.current)
		updated = append(updated, sv)
	}
	ok := true
	for _, sv := range updated {
		if s.r.upd.apply(sv.v, sv.current, allowWider|ignoreSame) == rejected {
			s.r.diags.Report(diagnostics.ErrD002, s.r.name, sv.v.String())
			ok = false
		}
	}
	return ok
}
