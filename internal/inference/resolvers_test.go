package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/dextype/internal/config"
	"github.com/funvibe/dextype/internal/diagnostics"
	"github.com/funvibe/dextype/internal/fixture"
	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

func TestSplitConsts_DuplicatesSharedConst(t *testing.T) {
	f := loadScenarios(t)
	engine := newTestEngine(t, f, "")
	built := buildMethod(t, f, "sharedConst")
	varsBefore := len(built.Method.Vars)

	res, err := engine.Infer(built.Method)
	require.NoError(t, err)
	assert.True(t, res.Resolved)
	require.Len(t, built.Method.Vars, varsBefore+1)

	insns := built.Method.Blocks[0].Insns
	require.Len(t, insns, 5)
	assert.Equal(t, ssa.Const, insns[1].Kind)
	assert.True(t, typesystem.Equal(typesystem.Int, insns[2].Args[0].Type()))
	assert.True(t, typesystem.Equal(typesystem.ObjectType, insns[3].Args[0].Type()))
	assert.Same(t, insns[1].Result.Var, insns[3].Args[0].Var)
}

func booleanArithMethod(t *testing.T, op string) *fixture.Built {
	t.Helper()
	m := fixture.Method{Class: "a.Main", Name: "flag", Blocks: []fixture.Block{{Insns: []fixture.Insn{
		{Op: "const", Result: "x", Args: []string{"#1:boolean"}},
		{Op: op, Result: "y", Args: []string{"x:int", "#1:int"}},
		{Op: "return", Args: []string{"y"}},
	}}}}
	built, err := m.Build()
	require.NoError(t, err)
	return built
}

func TestFixPrimitives_ConvertsBooleanOperand(t *testing.T) {
	built := booleanArithMethod(t, "arith.add")
	r := New(Options{Logger: quietLogger()}).newInferrer(built.Method, diagnostics.NewBag())
	r.initTypeBounds()

	x := built.Vars["x"]
	require.True(t, r.fixIncompatiblePrimitives(x))
	insns := built.Method.Blocks[0].Insns
	require.Len(t, insns, 4)

	ternary := insns[1]
	assert.Equal(t, ssa.Ternary, ternary.Kind)
	assert.Same(t, x, ternary.Args[0].Var)
	assert.True(t, typesystem.Equal(typesystem.Boolean, ternary.Args[0].InitType))
	assert.Equal(t, int64(1), ternary.Args[1].Literal)
	assert.Equal(t, int64(0), ternary.Args[2].Literal)

	add := insns[2]
	assert.Same(t, ternary.Result.Var, add.Args[0].Var)
	assert.NotSame(t, x, add.Args[0].Var)
}

func TestFixPrimitives_XorBecomesNot(t *testing.T) {
	built := booleanArithMethod(t, "arith.xor")
	r := New(Options{Logger: quietLogger()}).newInferrer(built.Method, diagnostics.NewBag())
	r.initTypeBounds()

	require.True(t, r.fixIncompatiblePrimitives(built.Vars["x"]))
	y := built.Vars["y"]
	assert.Equal(t, ssa.Not, y.AssignInsn().Kind)
	assert.Same(t, built.Vars["x"], y.AssignInsn().Args[0].Var)
}

func TestFixPrimitives_NotBoolean(t *testing.T) {
	m := fixture.Method{Class: "a.Main", Name: "num", Blocks: []fixture.Block{{Insns: []fixture.Insn{
		{Op: "const", Result: "x", Args: []string{"#3:int"}},
		{Op: "arith.add", Result: "y", Args: []string{"x:int", "#1:int"}},
	}}}}
	built, err := m.Build()
	require.NoError(t, err)
	r := New(Options{Logger: quietLogger()}).newInferrer(built.Method, diagnostics.NewBag())
	r.initTypeBounds()
	assert.False(t, r.fixIncompatiblePrimitives(built.Vars["x"]))
	assert.Len(t, built.Method.Blocks[0].Insns, 2)
}

func TestCheckBlockForInsert(t *testing.T) {
	mth := ssa.NewMethod("a.Main", "blocks")
	entry := mth.NewBlock()
	cond := mth.NewBlock()
	exit := mth.NewBlock()
	ssa.Connect(entry, cond)
	ssa.Connect(cond, exit)

	v := mth.NewVar(0)
	w := mth.NewVar(1)
	mth.Append(entry, ssa.NewInsn(ssa.Const, ssa.Reg(v, nil), ssa.Lit(1, nil)))
	mth.Append(cond, ssa.NewInsn(ssa.Const, ssa.Reg(w, nil), ssa.Lit(2, nil)))
	mth.Append(cond, ssa.NewInsn(ssa.If, nil, ssa.Reg(w, nil), ssa.Lit(0, nil)))

	assert.Same(t, entry, checkBlockForInsert(entry, v))
	// the if ends the block, so the move goes into the predecessor
	assert.Same(t, entry, checkBlockForInsert(cond, v))
	// w is defined after the predecessor's end
	assert.Nil(t, checkBlockForInsert(cond, w))

	exit.Synthetic = true
	assert.Nil(t, checkBlockForInsert(exit, v))
}

func TestPossibleTypes(t *testing.T) {
	names := func(types []typesystem.Type) []string {
		res := make([]string, len(types))
		for i, t := range types {
			res[i] = t.String()
		}
		return res
	}
	assert.ElementsMatch(t, []string{"int", "boolean"}, names(possibleTypes(typesystem.IntBoolean, nil)))
	assert.ElementsMatch(t, []string{"int[]", "float[]"},
		names(possibleTypes(typesystem.ArrayOf(typesystem.IntFloat), nil)))

	mth := ssa.NewMethod("a.B", "m")
	v := mth.NewVar(0)
	v.TypeInfo.Bounds = []ssa.Bound{newUseBound(typesystem.StringType, nil)}
	assert.Empty(t, possibleTypes(typesystem.Narrow, v))
}

func TestTypeList(t *testing.T) {
	assert.Equal(t, "[int, java.lang.String]", typeList([]typesystem.Type{typesystem.Int, typesystem.StringType}))
	assert.True(t, hasGenerics(typesystem.MustParseType("java.util.List<java.lang.String>")))
	assert.False(t, hasGenerics(typesystem.StringType))
}

// propagate runs the initial pass of the engine on built, leaving the
// resolvers to the caller.
func propagate(t *testing.T, engine *Engine, built *fixture.Built) (*inferrer, *diagnostics.Bag) {
	t.Helper()
	bag := diagnostics.NewBag()
	r := engine.newInferrer(built.Method, bag)
	r.assignImmutableTypes()
	r.initTypeBounds()
	r.runTypePropagation()
	require.False(t, r.allTypesKnown(), "propagation alone resolved %s", built.Method)
	return r, bag
}

// resolveWith runs the resolvers in engine order up to name, failing if an
// earlier one settles the method, and returns what name reports.
func resolveWith(t *testing.T, r *inferrer, name string) bool {
	t.Helper()
	for _, res := range r.resolvers() {
		if res.name == name {
			return res.fn()
		}
		if res.fn() && r.allTypesKnown() {
			t.Fatalf("%s resolved the method before %s", res.name, name)
		}
	}
	t.Fatalf("no resolver %q", name)
	return false
}

func assertType(t *testing.T, want typesystem.Type, v *ssa.Var) {
	t.Helper()
	assert.True(t, typesystem.Equal(want, v.Type()), "%s: want %s, got %s", v, want, v.Type())
}

var typeVarT = typesystem.TTypeVar{Name: "T", Extends: []typesystem.Type{typesystem.NewObject("a.Base")}}

func TestRestoreTypeVarCasts_RetargetsCast(t *testing.T) {
	f := loadScenarios(t)
	built := buildMethod(t, f, "typeVarCast")
	r, bag := propagate(t, newTestEngine(t, f, ""), built)
	cast := built.Vars["x"].AssignInsn()
	assert.True(t, typesystem.Equal(typesystem.NewObject("a.Base"), cast.Type))

	// f is still a boolean read as int, so the reinit can't finish the method
	require.True(t, resolveWith(t, r, config.ResolverRestoreTypeVarCasts))
	assert.False(t, r.allTypesKnown())
	assert.True(t, typesystem.Equal(typeVarT, cast.Type), "cast type %s", cast.Type)
	assertType(t, typeVarT, built.Vars["x"])
	restored := bag.Filter(diagnostics.ErrD005)
	require.Len(t, restored, 1)
	assert.Equal(t, "restored 1 type variable casts", restored[0].Message)
}

func TestRestoreTypeVarCasts_EndToEnd(t *testing.T) {
	f := loadScenarios(t)

	built := buildMethod(t, f, "typeVarCast")
	res, err := newTestEngine(t, f, "").Infer(built.Method)
	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.Len(t, res.Diagnostics.Filter(diagnostics.ErrD005), 1)
	assertType(t, typeVarT, built.Vars["x"])

	// without the rewrite finalization falls back to the cast type
	built = buildMethod(t, f, "typeVarCast")
	res, err = newTestEngine(t, f, "resolvers: [fix-primitives]\n").Infer(built.Method)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics.Filter(diagnostics.ErrD005))
	assertType(t, typesystem.NewObject("a.Base"), built.Vars["x"])
}

func TestInsertCasts_SoftCastForTypeVarUse(t *testing.T) {
	f := loadScenarios(t)
	built := buildMethod(t, f, "typeVarUse")
	r, bag := propagate(t, newTestEngine(t, f, ""), built)
	b := built.Vars["b"]

	require.True(t, resolveWith(t, r, config.ResolverInsertCasts))
	insns := built.Method.Blocks[0].Insns
	require.Len(t, insns, 4)
	cast, ret := insns[2], insns[3]
	assert.Equal(t, ssa.CheckCast, cast.Kind)
	assert.True(t, cast.Soft)
	assert.True(t, cast.Synthetic)
	assert.True(t, typesystem.Equal(typeVarT, cast.Type))
	assert.Same(t, b, cast.Args[0].Var)
	assert.Same(t, cast.Result.Var, ret.Args[0].Var)
	assertType(t, typeVarT, cast.Result.Var)
	assertType(t, typesystem.NewObject("a.Base"), b)

	added := bag.Filter(diagnostics.ErrD004)
	require.Len(t, added, 1)
	assert.Contains(t, added[0].Message, "1 cast instructions")
}

func TestDeduceTypes_CommonInterface(t *testing.T) {
	f := loadScenarios(t)
	built := buildMethod(t, f, "phiCommonInterface")
	r, _ := propagate(t, newTestEngine(t, f, ""), built)

	require.True(t, resolveWith(t, r, config.ResolverDeduceTypes))
	require.True(t, r.allTypesKnown())
	k := typesystem.NewObject("a.K")
	for _, name := range []string{"v1", "v2", "p"} {
		assertType(t, k, built.Vars[name])
	}
}

func TestFixPrimitives_BooleanArgument(t *testing.T) {
	f := loadScenarios(t)
	built := buildMethod(t, f, "booleanIntoInt")
	r, _ := propagate(t, newTestEngine(t, f, ""), built)
	x := built.Vars["x"]

	require.True(t, resolveWith(t, r, config.ResolverFixPrimitives))
	require.True(t, r.allTypesKnown())
	insns := built.Method.Blocks[0].Insns
	require.Len(t, insns, 4)
	ternary, call := insns[1], insns[2]
	assert.Equal(t, ssa.Ternary, ternary.Kind)
	assert.Same(t, x, ternary.Args[0].Var)
	assert.NotSame(t, x, call.Args[0].Var)
	assert.Same(t, ternary.Result.Var, call.Args[0].Var)
	assertType(t, typesystem.Boolean, x)
	assertType(t, typesystem.Int, ternary.Result.Var)
}

func TestForceImmutable_ArrayParam(t *testing.T) {
	f := loadScenarios(t)
	built := buildMethod(t, f, "immutableArrayParam")
	r, _ := propagate(t, newTestEngine(t, f, ""), built)
	arr := built.Vars["arr"]
	assert.False(t, arr.Type().IsKnown())

	require.True(t, resolveWith(t, r, config.ResolverForceImmutable))
	require.True(t, r.allTypesKnown())
	assertType(t, typesystem.ArrayOf(typesystem.Int), arr)
	assertType(t, typesystem.Int, built.Vars["r"])
}

func TestInsertMoves_PhiOfImmutableParams(t *testing.T) {
	f := loadScenarios(t)
	built := buildMethod(t, f, "phiOfImmutableParams")
	r, bag := propagate(t, newTestEngine(t, f, ""), built)

	require.True(t, resolveWith(t, r, config.ResolverInsertMoves))
	require.True(t, r.allTypesKnown())
	added := bag.Filter(diagnostics.ErrD004)
	require.Len(t, added, 1)
	assert.Contains(t, added[0].Message, "2 move instructions")

	phi := built.Vars["p"].AssignInsn()
	for i, name := range []string{"k1", "k2"} {
		pred := built.Method.Blocks[i+1]
		require.Len(t, pred.Insns, 1)
		move := pred.Insns[0]
		assert.Equal(t, ssa.Move, move.Kind)
		assert.True(t, move.Synthetic)
		assert.Same(t, built.Vars[name], move.Args[0].Var)
		assert.Same(t, move.Result.Var, phi.Args[i].Var)
		assertType(t, typesystem.NewObject("a.K"), move.Result.Var)
	}
	assertType(t, typesystem.NewObject("a.K1"), built.Vars["k1"])
	assertType(t, typesystem.NewObject("a.K2"), built.Vars["k2"])
	assertType(t, typesystem.NewObject("a.K"), built.Vars["p"])
}

func TestRemoveGenerics_RawTypeAfterSkippedSearch(t *testing.T) {
	f := loadScenarios(t)
	m := fixture.Method{
		Class:  "a.Main",
		Name:   "boxes",
		Params: []fixture.Param{{Var: "c", Type: "int"}},
		Blocks: []fixture.Block{{Insns: []fixture.Insn{
			{Op: "sget", Result: "x:a.Box<java.lang.String>"},
			{Op: "invoke.static", Method: &fixture.MethodRef{Class: "a.Util", Name: "take", Args: []string{"a.Box"}},
				Args: []string{"x:a.Box<java.lang.Integer>"}},
			{Op: "return"},
		}}},
	}
	// the search would find no candidate for x and abort the method
	const cfg = "limits:\n  search_vars: 1\n"

	built, err := m.Build()
	require.NoError(t, err)
	r, bag := propagate(t, newTestEngine(t, f, cfg), built)
	require.True(t, resolveWith(t, r, config.ResolverRemoveGenerics))
	assert.Len(t, bag.Filter(diagnostics.ErrW003), 1)
	assertType(t, typesystem.NewObject("a.Box"), built.Vars["x"])
	raw := bag.Filter(diagnostics.ErrD001)
	require.Len(t, raw, 1)
	assert.Contains(t, raw[0].Message, "a.Box<java.lang.String>")

	built, err = m.Build()
	require.NoError(t, err)
	res, err := newTestEngine(t, f, cfg).Infer(built.Method)
	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.False(t, res.Diagnostics.HasErrors())
	assertType(t, typesystem.NewObject("a.Box"), built.Vars["x"])
}
