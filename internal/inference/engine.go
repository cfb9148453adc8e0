// Package inference recovers a concrete type for every SSA variable of a
// method: bounds are seeded from the graph, candidate types are propagated
// transactionally, program-rewriting resolvers and a bounded search handle
// what propagation leaves open, and finalization validates the result.
package inference

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/funvibe/dextype/internal/classpath"
	"github.com/funvibe/dextype/internal/config"
	"github.com/funvibe/dextype/internal/diagnostics"
	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Hierarchy classpath.Hierarchy
	Logger    *slog.Logger
	Config    *config.Config
}

// Engine infers types method by method. It holds no per-method state and is
// safe for concurrent use as long as the hierarchy is not modified.
type Engine struct {
	hierarchy classpath.Hierarchy
	cmp       *typesystem.Comparator
	log       *slog.Logger
	cfg       *config.Config
}

func New(opts Options) *Engine {
	e := &Engine{
		hierarchy: opts.Hierarchy,
		log:       opts.Logger,
		cfg:       opts.Config,
	}
	if e.hierarchy == nil {
		e.hierarchy = classpath.NewGraph()
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.cfg == nil {
		e.cfg = config.Default()
	}
	e.cmp = typesystem.NewComparator(e.hierarchy)
	return e
}

func (e *Engine) Config() *config.Config { return e.cfg }

// Result is the outcome of inferring one method.
type Result struct {
	Method string
	// Resolved is set when every variable ended with a known type.
	Resolved bool
	// Unresolved counts the instructions reported as not typed.
	Unresolved  int
	Diagnostics *diagnostics.Bag
}

// Infer types every variable of mth in place. Unresolved variables are
// reported in the result's diagnostics. An error is returned only when
// inference of the method was aborted.
func (e *Engine) Infer(mth *ssa.Method) (res *Result, err error) {
	res = &Result{Method: mth.String(), Diagnostics: diagnostics.NewBag()}
	if mth.NoCode {
		res.Resolved = true
		return res, nil
	}
	r := e.newInferrer(mth, res.Diagnostics)
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		res.Resolved = false
		var overflow *OverflowError
		if pe, ok := p.(error); ok && errors.As(pe, &overflow) {
			res.Diagnostics.Report(diagnostics.ErrE002, res.Method, overflow)
			err = fmt.Errorf("inferring %s: %w", res.Method, overflow)
			return
		}
		res.Diagnostics.Report(diagnostics.ErrE003, res.Method, p)
		err = fmt.Errorf("inferring %s: %v", res.Method, p)
	}()

	r.run()
	res.Unresolved = r.finalize()
	res.Resolved = res.Unresolved == 0
	return res, nil
}

// inferrer is the disposable context of one method's inference.
type inferrer struct {
	mth   *ssa.Method
	name  string
	cfg   *config.Config
	log   *slog.Logger
	hier  classpath.Hierarchy
	cmp   *typesystem.Comparator
	gen   generics
	upd   *typeUpdate
	diags *diagnostics.Bag

	// incompatible records sites already reported by finalization.
	incompatible map[*ssa.Arg]bool
}

func (e *Engine) newInferrer(mth *ssa.Method, diags *diagnostics.Bag) *inferrer {
	gen := generics{hierarchy: e.hierarchy}
	log := e.log.With("method", mth.String())
	return &inferrer{
		mth:   mth,
		name:  mth.String(),
		cfg:   e.cfg,
		log:   log,
		hier:  e.hierarchy,
		cmp:   e.cmp,
		gen:   gen,
		upd:   newTypeUpdate(mth, e.cmp, gen, log, e.cfg.Limits.UpdateDepth),
		diags: diags,
	}
}

type resolver struct {
	name string
	fn   func() bool
}

func (r *inferrer) resolvers() []resolver {
	return []resolver{
		{config.ResolverRestoreTypeVarCasts, r.restoreTypeVarCasts},
		{config.ResolverInsertCasts, r.insertCasts},
		{config.ResolverDeduceTypes, r.deduceTypes},
		{config.ResolverSplitConsts, r.splitConsts},
		{config.ResolverFixPrimitives, r.fixPrimitives},
		{config.ResolverForceImmutable, r.forceImmutable},
		{config.ResolverInsertMoves, r.insertMoves},
		{config.ResolverSearch, r.search},
		{config.ResolverRemoveGenerics, r.removeGenerics},
	}
}

// run seeds bounds, propagates, then escalates through the enabled
// resolvers until every variable is known.
func (r *inferrer) run() {
	r.assignImmutableTypes()
	r.initTypeBounds()
	if r.runTypePropagation() && r.allTypesKnown() {
		return
	}
	for _, res := range r.resolvers() {
		if !r.cfg.ResolverEnabled(res.name) {
			continue
		}
		if r.safeResolve(res) && r.allTypesKnown() {
			r.log.Debug("types resolved", "resolver", res.name)
			return
		}
	}
}

// safeResolve runs one resolver. A failing resolver counts as not helpful;
// an overflow is passed on.
func (r *inferrer) safeResolve(res resolver) (ok bool) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if _, overflow := p.(*OverflowError); overflow {
			panic(p)
		}
		r.diags.Report(diagnostics.ErrW001, r.name, res.name, p)
		ok = false
	}()
	return res.fn()
}

// assignImmutableTypes pins variables whose assignment, or else first use,
// is flagged immutable.
func (r *inferrer) assignImmutableTypes() {
	for _, v := range r.mth.Vars {
		if v.IsImmutable() {
			continue
		}
		if t := immutableSlotType(v); t != nil {
			v.MarkImmutable(t)
		}
	}
}

func immutableSlotType(v *ssa.Var) typesystem.Type {
	if v.Assign != nil && v.Assign.Immutable {
		return v.Assign.InitType
	}
	for _, use := range v.Uses {
		if use.Immutable {
			return use.InitType
		}
	}
	return nil
}

func (r *inferrer) runTypePropagation() bool {
	for _, v := range r.mth.Vars {
		r.setImmutableType(v)
	}
	for _, v := range r.mth.Vars {
		r.setBestType(v)
	}
	return true
}

func (r *inferrer) setImmutableType(v *ssa.Var) {
	t := v.ImmutableType()
	if t == nil {
		return
	}
	if r.upd.apply(v, t, allowWider|ignoreSame) == rejected {
		r.log.Debug("immutable type rejected", "var", v.String(), "type", t.String())
	}
}

// setBestType applies the lattice-maximal bound type of v.
func (r *inferrer) setBestType(v *ssa.Var) bool {
	best := r.cmp.Best(boundTypes(v.TypeInfo.Bounds))
	if best == nil {
		return false
	}
	return r.upd.apply(v, best, 0) == changed
}

func boundTypes(bounds []ssa.Bound) []typesystem.Type {
	res := make([]typesystem.Type, 0, len(bounds))
	for _, b := range bounds {
		if t := b.Type(); t != nil {
			res = append(res, t)
		}
	}
	return res
}

func (r *inferrer) allTypesKnown() bool {
	for _, v := range r.mth.Vars {
		if !v.Type().IsKnown() {
			return false
		}
	}
	return true
}

// reinit rebuilds bounds and propagates after the graph was edited.
func (r *inferrer) reinit() bool {
	r.initTypeBounds()
	return r.runTypePropagation()
}
