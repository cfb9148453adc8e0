package typesystem

// ReplaceTypeVars substitutes type variables found in subst. Variables
// missing from subst are kept as is.
func ReplaceTypeVars(t Type, subst map[string]Type) Type {
	if t == nil || len(subst) == 0 {
		return t
	}
	switch typ := t.(type) {
	case TTypeVar:
		if replacement, ok := subst[typ.Name]; ok && replacement != nil {
			return replacement
		}
		return typ
	case TArray:
		return TArray{Elem: ReplaceTypeVars(typ.Elem, subst)}
	case TWildcard:
		if typ.Inner == nil {
			return typ
		}
		return TWildcard{Bound: typ.Bound, Inner: ReplaceTypeVars(typ.Inner, subst)}
	case TObject:
		if len(typ.Generics) == 0 && typ.Outer == nil {
			return typ
		}
		newGenerics := make([]Type, len(typ.Generics))
		for i, g := range typ.Generics {
			newGenerics[i] = ReplaceTypeVars(g, subst)
		}
		return TObject{
			Name:     typ.Name,
			Generics: newGenerics,
			Outer:    ReplaceTypeVars(typ.Outer, subst),
		}
	default:
		return t
	}
}

// EraseGenerics turns a type variable into the universal object and a
// parameterized class into its raw class. Arrays are erased element-wise.
func EraseGenerics(t Type) Type {
	switch typ := t.(type) {
	case TTypeVar:
		return ObjectType
	case TWildcard:
		return ObjectType
	case TArray:
		return TArray{Elem: EraseGenerics(typ.Elem)}
	case TObject:
		return TObject{Name: typ.Name}
	default:
		return t
	}
}
