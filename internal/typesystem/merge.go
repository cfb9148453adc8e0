package typesystem

// Merge returns the most specific type compatible with both a and b, or nil
// when they cannot be reconciled. h may be nil, in which case unrelated
// classes never merge.
func Merge(h ClassHierarchy, a, b Type) Type {
	if a == nil || b == nil {
		return nil
	}
	if Equal(a, b) {
		return a
	}
	if res := mergeInternal(h, a, b); res != nil {
		return res
	}
	return mergeInternal(h, b, a)
}

func mergeInternal(h ClassHierarchy, a, b Type) Type {
	if IsUnknownAll(a) {
		return b
	}
	if !a.IsKnown() {
		if b.IsKnown() {
			if kind, ok := KindOf(b); ok && Contains(a, kind) {
				return b
			}
			return nil
		}
		return intersectUnknowns(a, b)
	}
	if IsTypeVar(a) {
		return a
	}
	if IsTypeVar(b) {
		return b
	}
	if IsObject(a) && IsObject(b) {
		aName := ObjectName(a)
		bName := ObjectName(b)
		switch {
		case aName == bName:
			if IsGeneric(a) {
				return a
			}
			return b
		case aName == ObjectClass:
			return b
		case bName == ObjectClass:
			return a
		}
		if h == nil {
			return nil
		}
		if common := h.CommonAncestor(aName, bName); common != "" {
			return NewObject(common)
		}
		return nil
	}
	if arr, ok := a.(TArray); ok {
		if other, ok := b.(TArray); ok {
			if IsPrimitive(arr.Elem) && IsPrimitive(other.Elem) {
				return ObjectType
			}
			if elem := Merge(h, arr.Elem, other.Elem); elem != nil {
				return ArrayOf(elem)
			}
			return nil
		}
		if IsObjectClass(b) {
			return ObjectType
		}
		return nil
	}
	pa, ok1 := a.(TPrim)
	pb, ok2 := b.(TPrim)
	if ok1 && ok2 && pa.Kind.RegCount() == pb.Kind.RegCount() {
		return Prim(smallerKind(pa.Kind, pb.Kind))
	}
	return nil
}

func intersectUnknowns(a, b Type) Type {
	var kinds []PrimitiveKind
	for _, k := range PossibleKinds(a) {
		if Contains(b, k) {
			kinds = append(kinds, k)
		}
	}
	switch len(kinds) {
	case 0:
		return nil
	case 1:
		if kinds[0] == KindObject || kinds[0] == KindArray {
			return UnknownOf(kinds[0])
		}
		return Prim(kinds[0])
	}
	return UnknownOf(kinds...)
}
