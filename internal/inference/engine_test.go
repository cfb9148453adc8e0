package inference

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/dextype/internal/config"
	"github.com/funvibe/dextype/internal/diagnostics"
	"github.com/funvibe/dextype/internal/fixture"
	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

func loadScenarios(t *testing.T) *fixture.File {
	t.Helper()
	f, err := fixture.Load(filepath.Join("testdata", "scenarios.yaml"))
	require.NoError(t, err)
	return f
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, f *fixture.File, cfgYAML string) *Engine {
	t.Helper()
	cfg := config.Default()
	if cfgYAML != "" {
		var err error
		cfg, err = config.ParseConfig([]byte(cfgYAML), "test.yaml")
		require.NoError(t, err)
	}
	return New(Options{Hierarchy: f.Hierarchy(), Logger: quietLogger(), Config: cfg})
}

func buildMethod(t *testing.T, f *fixture.File, name string) *fixture.Built {
	t.Helper()
	for i := range f.Methods {
		if f.Methods[i].Name == name {
			built, err := f.Methods[i].Build()
			require.NoError(t, err)
			return built
		}
	}
	t.Fatalf("no fixture method %q", name)
	return nil
}

func typeNames(built *fixture.Built) map[string]string {
	res := make(map[string]string, len(built.Vars))
	for name, v := range built.Vars {
		res[name] = v.Type().String()
	}
	return res
}

func TestInfer_Scenarios(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "")
	for i := range f.Methods {
		m := &f.Methods[i]
		t.Run(m.Name, func(t *testing.T) {
			built, err := m.Build()
			require.NoError(t, err)
			res, err := engine.Infer(built.Method)
			require.NoError(t, err)
			assert.True(t, res.Resolved, "diagnostics: %v", res.Diagnostics.Diagnostics())
			assert.Zero(t, res.Unresolved)
			assert.False(t, res.Diagnostics.HasErrors())
			for name, want := range built.Expect {
				got := built.Vars[name].Type()
				assert.True(t, typesystem.Equal(want, got), "%s: want %s, got %s", name, want, got)
			}
		})
	}
}

func TestInfer_IntAssignSkipsSearch(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "resolvers: [deduce-types]\n")
	built := buildMethod(t, f, "intConst")

	res, err := engine.Infer(built.Method)
	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.Empty(t, res.Diagnostics.Filter(diagnostics.ErrW002))
	assert.True(t, typesystem.Equal(typesystem.Int, built.Vars["a"].Type()))
}

func TestInfer_MoveKeepsHierarchy(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "")
	built := buildMethod(t, f, "moveToAncestor")

	_, err := engine.Infer(built.Method)
	require.NoError(t, err)
	y := built.Vars["y"].Type()
	require.True(t, typesystem.IsObject(y), "y: %s", y)
	assert.True(t, f.Hierarchy().IsInstanceOf("a.Derived", typesystem.ObjectName(y)), "y: %s", y)
}

func TestInfer_NoCode(t *testing.T) {
	f := loadScenarios(t)
	built := buildMethod(t, f, "abstractMethod")
	res, err := newTestEngine(t, f, "").Infer(built.Method)
	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.Empty(t, res.Diagnostics.Diagnostics())
}

func TestInfer_Deterministic(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "")
	for _, name := range []string{"phiUnknownObject", "moveToAncestor", "genericGetter"} {
		first := buildMethod(t, f, name)
		second := buildMethod(t, f, name)
		_, err := engine.Infer(first.Method)
		require.NoError(t, err)
		_, err = engine.Infer(second.Method)
		require.NoError(t, err)
		assert.Equal(t, typeNames(first), typeNames(second), name)
	}
}

func TestInfer_Reentrant(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "")
	built := buildMethod(t, f, "phiUnknownObject")

	_, err := engine.Infer(built.Method)
	require.NoError(t, err)
	first := typeNames(built)
	res, err := engine.Infer(built.Method)
	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.Equal(t, first, typeNames(built))
}

func TestInfer_UpdateDepthOverflow(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "limits:\n  update_depth: 1\n")
	built := buildMethod(t, f, "moveToAncestor")

	res, err := engine.Infer(built.Method)
	require.Error(t, err)
	var overflow *OverflowError
	require.True(t, errors.As(err, &overflow))
	assert.Equal(t, 1, overflow.Limit)
	assert.Contains(t, err.Error(), "a.Main.moveToAncestor")

	assert.False(t, res.Resolved)
	codes := res.Diagnostics.Filter(diagnostics.ErrE002)
	require.Len(t, codes, 1)
	assert.Equal(t, "a.Main.moveToAncestor", codes[0].Method)
}

func TestInfer_NoCandidatesOverflow(t *testing.T) {
	m := fixture.Method{Class: "a.Main", Name: "conflict", Blocks: []fixture.Block{{Insns: []fixture.Insn{
		{Op: "sget", Result: "x:java.lang.String"},
		{Op: "invoke.static", Method: &fixture.MethodRef{Class: "a.Util", Name: "takeInt", Args: []string{"int"}}, Args: []string{"x:int"}},
		{Op: "return"},
	}}}}
	built, err := m.Build()
	require.NoError(t, err)
	f := &fixture.File{}
	engine := newTestEngine(t, f, "resolvers: [search]\n")

	res, err := engine.Infer(built.Method)
	require.Error(t, err)
	var overflow *OverflowError
	assert.True(t, errors.As(err, &overflow))
	assert.False(t, res.Resolved)
	assert.Len(t, res.Diagnostics.Filter(diagnostics.ErrE002), 1)
}

// searchCapMethod pairs primitive-only sources with moves into object-only
// slots: no assignment satisfies every move.
func searchCapMethod(pairs int) fixture.Method {
	take := &fixture.MethodRef{Class: "a.Util", Name: "take", Args: []string{"a.K"}}
	var insns []fixture.Insn
	for i := 0; i < pairs; i++ {
		src := "s" + string(rune('a'+i))
		dst := "m" + string(rune('a'+i))
		insns = append(insns,
			fixture.Insn{Op: "sget", Result: src + ":?[int, boolean]"},
			fixture.Insn{Op: "move", Result: dst, Args: []string{src}},
			fixture.Insn{Op: "invoke.static", Method: take, Args: []string{dst + ":a.K"}},
		)
	}
	insns = append(insns, fixture.Insn{Op: "return"})
	return fixture.Method{Class: "a.Main", Name: "searchCap", Blocks: []fixture.Block{{Insns: insns}}}
}

func TestInfer_SearchIterationsCap(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "resolvers: [search]\nlimits:\n  search_iterations: 100\n")
	m := searchCapMethod(8)
	built, err := m.Build()
	require.NoError(t, err)

	res, err := engine.Infer(built.Method)
	require.NoError(t, err)
	failed := res.Diagnostics.Filter(diagnostics.ErrW002)
	require.Len(t, failed, 1)
	assert.Equal(t, "a.Main.searchCap", failed[0].Method)
	assert.Empty(t, res.Diagnostics.Filter(diagnostics.ErrD002))
}

func TestInfer_SearchVarsCap(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "resolvers: [search]\nlimits:\n  search_vars: 3\n")
	m := searchCapMethod(2)
	built, err := m.Build()
	require.NoError(t, err)

	res, err := engine.Infer(built.Method)
	require.NoError(t, err)
	assert.Len(t, res.Diagnostics.Filter(diagnostics.ErrW003), 1)
	assert.Len(t, res.Diagnostics.Filter(diagnostics.ErrW002), 1)
}

func TestSafeResolve(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "")
	built := buildMethod(t, f, "intConst")
	bag := diagnostics.NewBag()
	r := engine.newInferrer(built.Method, bag)

	ok := r.safeResolve(resolver{name: "broken", fn: func() bool { panic("boom") }})
	assert.False(t, ok)
	failed := bag.Filter(diagnostics.ErrW001)
	require.Len(t, failed, 1)
	assert.Equal(t, "resolver broken failed: boom", failed[0].Message)

	assert.True(t, r.safeResolve(resolver{name: "fine", fn: func() bool { return true }}))

	assert.Panics(t, func() {
		r.safeResolve(resolver{name: "deep", fn: func() bool {
			panic(newOverflowError(3, "too deep"))
		}})
	})
}

func TestApply_ConflictRejected(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "")
	built := buildMethod(t, f, "phiUnknownObject")
	_, err := engine.Infer(built.Method)
	require.NoError(t, err)
	before := typeNames(built)

	r := engine.newInferrer(built.Method, diagnostics.NewBag())
	r.initTypeBounds()
	r.runTypePropagation()
	assert.Equal(t, before, typeNames(built))

	p := built.Vars["p"]
	assert.Equal(t, rejected, r.upd.apply(p, typesystem.NewObject("a.Base"), 0))
	assert.Equal(t, rejected, r.upd.apply(p, typesystem.Int, allowWider))
	assert.Equal(t, same, r.upd.apply(p, p.Type(), 0))
	assert.Equal(t, before, typeNames(built))
}

// moveChain builds x = const lit; y = move x; z = move y; and optionally a
// call taking z as int.
func moveChain(lit typesystem.Type, useInt bool) (*ssa.Method, []*ssa.Var) {
	mth := ssa.NewMethod("a.Main", "chain")
	b := mth.NewBlock()
	x := mth.NewVar(0)
	y := mth.NewVar(1)
	z := mth.NewVar(2)
	mth.Append(b, ssa.NewInsn(ssa.Const, ssa.Reg(x, nil), ssa.Lit(3, lit)))
	mth.Append(b, ssa.NewInsn(ssa.Move, ssa.Reg(y, nil), ssa.Reg(x, nil)))
	mth.Append(b, ssa.NewInsn(ssa.Move, ssa.Reg(z, nil), ssa.Reg(y, nil)))
	if useInt {
		call := ssa.NewInsn(ssa.Invoke, nil, ssa.Reg(z, typesystem.Int))
		call.Method = &ssa.MethodRef{
			Class:  "a.Util",
			Name:   "takeInt",
			Kind:   ssa.InvokeStatic,
			Return: typesystem.Void,
			Args:   []typesystem.Type{typesystem.Int},
		}
		mth.Append(b, call)
	}
	return mth, []*ssa.Var{x, y, z}
}

func TestApply_Propagates(t *testing.T) {
	mth, vars := moveChain(typesystem.Wide, false)
	engine := New(Options{Logger: quietLogger()})
	r := engine.newInferrer(mth, diagnostics.NewBag())
	r.initTypeBounds()

	assert.Equal(t, changed, r.upd.apply(vars[0], typesystem.Long, 0))
	for _, v := range vars {
		assert.True(t, typesystem.Equal(typesystem.Long, v.Type()), "%s: %s", v, v.Type())
	}
	lit := vars[0].AssignInsn().Args[0]
	assert.True(t, typesystem.Equal(typesystem.Long, lit.Type()))
}

func TestApply_RollbackOnDeepReject(t *testing.T) {
	mth, vars := moveChain(typesystem.NarrowNumbers, true)
	engine := New(Options{Logger: quietLogger()})
	r := engine.newInferrer(mth, diagnostics.NewBag())
	r.initTypeBounds()
	lit := vars[0].AssignInsn().Args[0]

	// z only accepts int, so float fails two moves away
	assert.Equal(t, rejected, r.upd.apply(vars[0], typesystem.Float, 0))
	for _, v := range vars {
		assert.False(t, v.Type().IsKnown(), "%s: %s", v, v.Type())
	}
	assert.True(t, typesystem.Equal(typesystem.NarrowNumbers, lit.Type()))

	assert.Equal(t, changed, r.upd.apply(vars[0], typesystem.Int, 0))
	for _, v := range vars {
		assert.True(t, typesystem.Equal(typesystem.Int, v.Type()), "%s: %s", v, v.Type())
	}
}

func TestUpdateTypeForVar_ShallowRollback(t *testing.T) {
	mth, vars := moveChain(typesystem.NarrowNumbers, true)
	engine := New(Options{Logger: quietLogger()})
	r := engine.newInferrer(mth, diagnostics.NewBag())
	r.initTypeBounds()
	x, y := vars[0], vars[1]
	lit := x.AssignInsn().Args[0]
	unrelated := ssa.Reg(mth.NewVar(7), nil)

	tx := newUpdateTx(0)
	tx.request(unrelated, typesystem.Int)
	assert.Equal(t, rejected, r.upd.updateTypeForVar(tx, x, typesystem.Float))

	// the rejected variables drop their own sites
	for _, v := range []*ssa.Var{x, y} {
		assert.False(t, tx.isProcessed(v.Assign), "%s", v)
		for _, use := range v.Uses {
			assert.False(t, tx.isProcessed(use), "%s", use)
		}
	}
	// everything else queued in the transaction is kept
	assert.True(t, tx.isProcessed(unrelated))
	assert.True(t, tx.isProcessed(lit))
	assert.True(t, typesystem.Equal(typesystem.Float, tx.typeOf(lit)))
	assert.False(t, tx.empty())
}

func TestInfer_LiteralsInObjectSlot(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "")
	// 0 doubles as null, so it is the one literal left with the object type
	want := map[string]typesystem.Type{
		"nullIntoObject":   typesystem.ObjectType,
		"numberIntoObject": typesystem.Int,
		"trueIntoObject":   typesystem.Boolean,
	}
	for name, typ := range want {
		built := buildMethod(t, f, name)
		_, err := engine.Infer(built.Method)
		require.NoError(t, err)
		c := built.Vars["c"]
		assert.True(t, typesystem.Equal(typ, c.Type()), "%s: %s", name, c.Type())
	}
}
