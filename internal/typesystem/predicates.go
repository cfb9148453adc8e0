package typesystem

// KindOf returns the storage kind of a known type. Placeholders have none.
func KindOf(t Type) (PrimitiveKind, bool) {
	switch typ := t.(type) {
	case TPrim:
		return typ.Kind, true
	case TObject, TTypeVar, TWildcard:
		return KindObject, true
	case TArray:
		return KindArray, true
	}
	return 0, false
}

func IsPrimitive(t Type) bool {
	_, ok := t.(TPrim)
	return ok
}

// IsObject reports whether t is a reference to a class, a type variable or a wildcard.
func IsObject(t Type) bool {
	switch t.(type) {
	case TObject, TTypeVar, TWildcard:
		return true
	}
	return false
}

func IsArray(t Type) bool {
	_, ok := t.(TArray)
	return ok
}

func IsTypeVar(t Type) bool {
	_, ok := t.(TTypeVar)
	return ok
}

func IsWildcard(t Type) bool {
	_, ok := t.(TWildcard)
	return ok
}

// IsGeneric reports whether t is a parameterized class.
func IsGeneric(t Type) bool {
	obj, ok := t.(TObject)
	if !ok {
		return false
	}
	return len(obj.Generics) > 0 || (obj.Outer != nil && IsGeneric(obj.Outer))
}

// ObjectName returns the class name behind an object-like type.
func ObjectName(t Type) string {
	switch typ := t.(type) {
	case TObject:
		return typ.Name
	case TTypeVar:
		return typ.Name
	case TWildcard:
		return ObjectClass
	}
	return ""
}

// IsObjectClass reports whether t is the raw universal object type.
func IsObjectClass(t Type) bool {
	obj, ok := t.(TObject)
	return ok && obj.Name == ObjectClass && len(obj.Generics) == 0 && obj.Outer == nil
}

// PossibleKinds lists the kinds t may still take.
func PossibleKinds(t Type) []PrimitiveKind {
	if u, ok := t.(TUnknown); ok {
		return u.Kinds
	}
	if k, ok := KindOf(t); ok {
		return []PrimitiveKind{k}
	}
	return nil
}

// Contains reports whether k is admissible for t.
func Contains(t Type, k PrimitiveKind) bool {
	for _, pk := range PossibleKinds(t) {
		if pk == k {
			return true
		}
	}
	return false
}

func CanBeObject(t Type) bool {
	if IsObject(t) {
		return true
	}
	_, unknown := t.(TUnknown)
	return unknown && Contains(t, KindObject)
}

func CanBeArray(t Type) bool {
	if IsArray(t) {
		return true
	}
	_, unknown := t.(TUnknown)
	return unknown && Contains(t, KindArray)
}

func CanBePrimitive(t Type, k PrimitiveKind) bool {
	if p, ok := t.(TPrim); ok {
		return p.Kind == k
	}
	_, unknown := t.(TUnknown)
	return unknown && Contains(t, k)
}

// CanBeAnyNumber reports whether t admits a numeric (non-boolean) primitive.
func CanBeAnyNumber(t Type) bool {
	switch typ := t.(type) {
	case TPrim:
		return typ.Kind.IsNumeric()
	case TUnknown:
		for _, k := range typ.Kinds {
			if k.IsNumeric() {
				return true
			}
		}
	}
	return false
}

// RegCount is the register width of t. Placeholders occupy zero.
func RegCount(t Type) int {
	switch typ := t.(type) {
	case TPrim:
		return typ.Kind.RegCount()
	case TUnknown:
		return 0
	}
	if !t.IsKnown() {
		return 0
	}
	return 1
}

// selectOrder is the preference used when a placeholder must be settled.
var selectOrder = []PrimitiveKind{
	KindInt, KindFloat, KindBoolean, KindShort, KindByte, KindChar,
	KindLong, KindDouble, KindObject, KindArray,
}

// SelectFirst settles a placeholder on its preferred admissible kind.
// Known types are returned as is; nil means no kind is admissible.
func SelectFirst(t Type) Type {
	u, ok := t.(TUnknown)
	if !ok {
		return t
	}
	for _, k := range selectOrder {
		if Contains(u, k) {
			return FromKind(k)
		}
	}
	return nil
}

// ArrayElem returns the element type of an array, or nil.
func ArrayElem(t Type) Type {
	if arr, ok := t.(TArray); ok {
		return arr.Elem
	}
	return nil
}

// ArrayRoot strips every array level and returns the innermost element.
func ArrayRoot(t Type) Type {
	for {
		arr, ok := t.(TArray)
		if !ok {
			return t
		}
		t = arr.Elem
	}
}

// ArrayDimension counts the array levels of t.
func ArrayDimension(t Type) int {
	dim := 0
	for {
		arr, ok := t.(TArray)
		if !ok {
			return dim
		}
		dim++
		t = arr.Elem
	}
}

// ContainsTypeVar reports whether t mentions a type variable anywhere.
func ContainsTypeVar(t Type) bool {
	switch typ := t.(type) {
	case TTypeVar:
		return true
	case TArray:
		return ContainsTypeVar(typ.Elem)
	case TWildcard:
		return typ.Inner != nil && ContainsTypeVar(typ.Inner)
	case TObject:
		for _, g := range typ.Generics {
			if ContainsTypeVar(g) {
				return true
			}
		}
		return typ.Outer != nil && ContainsTypeVar(typ.Outer)
	}
	return false
}

// CollectTypeVars appends every type variable mentioned in t to acc.
func CollectTypeVars(t Type, acc []TTypeVar) []TTypeVar {
	switch typ := t.(type) {
	case TTypeVar:
		return append(acc, typ)
	case TArray:
		return CollectTypeVars(typ.Elem, acc)
	case TWildcard:
		if typ.Inner != nil {
			return CollectTypeVars(typ.Inner, acc)
		}
	case TObject:
		for _, g := range typ.Generics {
			acc = CollectTypeVars(g, acc)
		}
		if typ.Outer != nil {
			acc = CollectTypeVars(typ.Outer, acc)
		}
	}
	return acc
}

// Equal compares two types structurally. nil equals only nil.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case TPrim:
		y, ok := b.(TPrim)
		return ok && x.Kind == y.Kind
	case TObject:
		y, ok := b.(TObject)
		if !ok || x.Name != y.Name || !Equal(x.Outer, y.Outer) {
			return false
		}
		return equalList(x.Generics, y.Generics)
	case TTypeVar:
		y, ok := b.(TTypeVar)
		return ok && x.Name == y.Name && equalList(x.Extends, y.Extends)
	case TWildcard:
		y, ok := b.(TWildcard)
		return ok && x.Bound == y.Bound && Equal(x.Inner, y.Inner)
	case TArray:
		y, ok := b.(TArray)
		return ok && Equal(x.Elem, y.Elem)
	case TUnknown:
		y, ok := b.(TUnknown)
		if !ok || len(x.Kinds) != len(y.Kinds) {
			return false
		}
		for i := range x.Kinds {
			if x.Kinds[i] != y.Kinds[i] {
				return false
			}
		}
		return true
	}
	return false
}

func equalList(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// IsUnknownAll reports whether t is the fully open placeholder.
func IsUnknownAll(t Type) bool {
	return Equal(t, Unknown)
}

// IsKnown is a nil-safe form of Type.IsKnown.
func IsKnown(t Type) bool {
	return t != nil && t.IsKnown()
}
