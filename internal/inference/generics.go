package inference

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/funvibe/dextype/internal/classpath"
	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

// generics resolves class type variables through a receiver's concrete
// generic arguments.
type generics struct {
	hierarchy classpath.Hierarchy
}

// typeVarsMapping maps the declared type parameters of t's class to t's
// generic arguments. Outer classes contribute their own parameters.
func (g generics) typeVarsMapping(t typesystem.Type) map[string]typesystem.Type {
	res := make(map[string]typesystem.Type)
	g.collectMapping(t, res)
	return res
}

func (g generics) collectMapping(t typesystem.Type, acc map[string]typesystem.Type) {
	switch typ := t.(type) {
	case typesystem.TObject:
		if typ.Outer != nil {
			g.collectMapping(typ.Outer, acc)
		}
		if len(typ.Generics) == 0 {
			return
		}
		params := g.hierarchy.TypeParams(typ.Name)
		if len(params) != len(typ.Generics) {
			return
		}
		for i, p := range params {
			acc[p] = typ.Generics[i]
		}
	case typesystem.TTypeVar:
		if len(typ.Extends) > 0 {
			g.collectMapping(typ.Extends[0], acc)
		}
	}
}

// replaceClassGenerics substitutes t's type variables using instance's
// generic arguments. Returns nil when instance carries no mapping.
func (g generics) replaceClassGenerics(instance, t typesystem.Type) typesystem.Type {
	if instance == nil || t == nil {
		return nil
	}
	mapping := g.typeVarsMapping(instance)
	if len(mapping) == 0 {
		return nil
	}
	return typesystem.ReplaceTypeVars(t, mapping)
}

// typeVarScope holds the names of the type variables usable in a method.
type typeVarScope struct {
	names *set.Set[string]
}

func newTypeVarScope(mth *ssa.Method) typeVarScope {
	names := set.New[string](len(mth.TypeVars))
	for _, tv := range mth.TypeVars {
		names.Insert(tv.Name)
	}
	return typeVarScope{names: names}
}

func (s typeVarScope) empty() bool { return s.names.Size() == 0 }

// hasUnknown reports whether t mentions a type variable outside the scope.
func (s typeVarScope) hasUnknown(t typesystem.Type) bool {
	for _, tv := range typesystem.CollectTypeVars(t, nil) {
		if !s.names.Contains(tv.Name) {
			return true
		}
	}
	return false
}

// unwrapWildcard turns a top-level wildcard into its bound, the universal
// object for "?".
func unwrapWildcard(t typesystem.Type) typesystem.Type {
	w, ok := t.(typesystem.TWildcard)
	if !ok {
		return t
	}
	if w.Inner == nil {
		return typesystem.ObjectType
	}
	return w.Inner
}
