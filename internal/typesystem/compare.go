package typesystem

// CompareResult is the relation of the first compared type to the second.
type CompareResult int

const (
	CompareEqual CompareResult = iota
	CompareNarrow
	CompareNarrowByGeneric
	CompareWider
	CompareWiderByGeneric
	CompareConflict
	CompareConflictByGeneric
	CompareUnknown // class hierarchy can't answer
)

var compareNames = [...]string{
	CompareEqual:             "EQUAL",
	CompareNarrow:            "NARROW",
	CompareNarrowByGeneric:   "NARROW_BY_GENERIC",
	CompareWider:             "WIDER",
	CompareWiderByGeneric:    "WIDER_BY_GENERIC",
	CompareConflict:          "CONFLICT",
	CompareConflictByGeneric: "CONFLICT_BY_GENERIC",
	CompareUnknown:           "UNKNOWN",
}

func (r CompareResult) String() string {
	if r < 0 || int(r) >= len(compareNames) {
		return "INVALID"
	}
	return compareNames[r]
}

// Invert swaps the narrow and wider relations.
func (r CompareResult) Invert() CompareResult {
	switch r {
	case CompareNarrow:
		return CompareWider
	case CompareWider:
		return CompareNarrow
	case CompareNarrowByGeneric:
		return CompareWiderByGeneric
	case CompareWiderByGeneric:
		return CompareNarrowByGeneric
	}
	return r
}

func (r CompareResult) IsEqual() bool { return r == CompareEqual }

func (r CompareResult) IsNarrow() bool {
	return r == CompareNarrow || r == CompareNarrowByGeneric
}

func (r CompareResult) IsWider() bool {
	return r == CompareWider || r == CompareWiderByGeneric
}

func (r CompareResult) IsNarrowOrEqual() bool { return r == CompareEqual || r.IsNarrow() }

func (r CompareResult) IsWiderOrEqual() bool { return r == CompareEqual || r.IsWider() }

func (r CompareResult) IsConflict() bool {
	return r == CompareConflict || r == CompareConflictByGeneric
}

// ClassHierarchy is the part of the class-hierarchy oracle the comparator
// and the merge need.
type ClassHierarchy interface {
	// IsKnown reports whether the class is present on the classpath.
	IsKnown(cls string) bool
	// IsInstanceOf reports whether cls is a subtype of (or equal to) of.
	IsInstanceOf(cls, of string) bool
	// CommonAncestor returns the nearest shared superclass, or "" if none is known.
	CommonAncestor(a, b string) string
}

// Comparator orders types in the inference lattice.
type Comparator struct {
	hierarchy ClassHierarchy
}

func NewComparator(h ClassHierarchy) *Comparator {
	return &Comparator{hierarchy: h}
}

func (c *Comparator) Hierarchy() ClassHierarchy { return c.hierarchy }

// Compare returns the relation of first to second.
func (c *Comparator) Compare(first, second Type) CompareResult {
	if Equal(first, second) {
		return CompareEqual
	}
	firstKnown := first.IsKnown()
	secondKnown := second.IsKnown()
	if firstKnown != secondKnown {
		if firstKnown {
			return compareWithUnknown(first, second)
		}
		return compareWithUnknown(second, first).Invert()
	}
	firstArray := IsArray(first)
	secondArray := IsArray(second)
	if firstArray != secondArray {
		if firstArray {
			return compareArrayWithOther(second)
		}
		return compareArrayWithOther(first).Invert()
	}
	if firstArray {
		return c.Compare(ArrayElem(first), ArrayElem(second))
	}
	if !firstKnown {
		return compareUnknowns(PossibleKinds(first), PossibleKinds(second))
	}

	firstObj := IsObject(first)
	secondObj := IsObject(second)
	if firstObj && secondObj {
		return c.compareObjects(first, second)
	}
	if firstObj || secondObj {
		return CompareConflict
	}
	fp, ok1 := first.(TPrim)
	sp, ok2 := second.(TPrim)
	if ok1 && ok2 {
		if fp.Kind == KindBoolean || sp.Kind == KindBoolean {
			return CompareConflict
		}
		if swapEquals(fp.Kind, sp.Kind, KindChar, KindByte) || swapEquals(fp.Kind, sp.Kind, KindChar, KindShort) {
			return CompareConflict
		}
		if fp.Kind > sp.Kind {
			return CompareWider
		}
		return CompareNarrow
	}
	return CompareConflict
}

// Order projects Compare onto a total order: narrower types sort higher.
func (c *Comparator) Order(a, b Type) int {
	switch c.Compare(a, b) {
	case CompareConflict, CompareConflictByGeneric:
		return -2
	case CompareWider, CompareWiderByGeneric:
		return -1
	case CompareNarrow, CompareNarrowByGeneric:
		return 1
	}
	return 0
}

// Best returns the lattice-maximal type of the list (the narrowest), or nil.
func (c *Comparator) Best(types []Type) Type {
	var best Type
	for _, t := range types {
		if best == nil || c.Order(best, t) < 0 {
			best = t
		}
	}
	return best
}

// compareUnknowns orders placeholders by admissible set inclusion, then size.
func compareUnknowns(first, second []PrimitiveKind) CompareResult {
	firstInSecond := kindsSubset(first, second)
	secondInFirst := kindsSubset(second, first)
	switch {
	case firstInSecond && !secondInFirst:
		return CompareNarrow
	case secondInFirst && !firstInSecond:
		return CompareWider
	case len(first) > len(second):
		return CompareWider
	case len(first) < len(second):
		return CompareNarrow
	}
	return CompareConflict
}

func kindsSubset(sub, of []PrimitiveKind) bool {
	for _, k := range sub {
		found := false
		for _, o := range of {
			if o == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func swapEquals(first, second, a, b PrimitiveKind) bool {
	return (first == a && second == b) || (first == b && second == a)
}

func compareArrayWithOther(other Type) CompareResult {
	switch {
	case !other.IsKnown():
		if Contains(other, KindArray) {
			return CompareNarrow
		}
		return CompareConflict
	case IsObject(other):
		if IsObjectClass(other) {
			return CompareNarrow
		}
		return CompareConflict
	}
	return CompareConflict
}

func compareWithUnknown(known, unknown Type) CompareResult {
	if Equal(unknown, Unknown) {
		return CompareNarrow
	}
	if Equal(unknown, UnknownObject) && (IsObject(known) || IsArray(known)) {
		return CompareNarrow
	}
	if IsObjectClass(known) && IsArray(unknown) {
		return CompareWider
	}
	kind, _ := KindOf(known)
	if Contains(unknown, kind) {
		return CompareNarrow
	}
	return CompareConflict
}

func (c *Comparator) compareObjects(first, second Type) CompareResult {
	firstVar := IsTypeVar(first)
	secondVar := IsTypeVar(second)
	sameName := ObjectName(first) == ObjectName(second)
	if firstVar && secondVar && !sameName {
		return CompareConflict
	}
	if firstVar || secondVar {
		if w, ok := first.(TWildcard); ok && secondVar && w.Bound == WildcardUnbound {
			return CompareConflict
		}
		if w, ok := second.(TWildcard); ok && firstVar && w.Bound == WildcardUnbound {
			return CompareConflict
		}
		if firstVar {
			return c.compareTypeVarWithObject(first.(TTypeVar), second)
		}
		return c.compareTypeVarWithObject(second.(TTypeVar), first).Invert()
	}

	fw, firstWildcard := first.(TWildcard)
	sw, secondWildcard := second.(TWildcard)
	if firstWildcard && secondWildcard {
		return c.compareWildcards(fw, sw)
	}
	fo, firstCls := first.(TObject)
	so, secondCls := second.(TObject)
	if sameName && firstCls && secondCls {
		firstGeneric := IsGeneric(first)
		secondGeneric := IsGeneric(second)
		if firstGeneric != secondGeneric {
			if firstGeneric {
				return CompareNarrowByGeneric
			}
			return CompareWiderByGeneric
		}
		if len(fo.Generics) == 0 || len(so.Generics) == 0 {
			if fo.Outer != nil && so.Outer != nil {
				return c.Compare(fo.Outer, so.Outer)
			}
		} else if len(fo.Generics) == len(so.Generics) {
			for i := range fo.Generics {
				if res := c.Compare(fo.Generics[i], so.Generics[i]); res != CompareEqual {
					return res
				}
			}
		} else {
			return CompareConflictByGeneric
		}
		return CompareEqual
	}
	firstIsObj := IsObjectClass(first)
	if firstIsObj || IsObjectClass(second) {
		if firstIsObj {
			return CompareWider
		}
		return CompareNarrow
	}
	if c.hierarchy == nil {
		return CompareUnknown
	}
	firstName := ObjectName(first)
	secondName := ObjectName(second)
	if c.hierarchy.IsInstanceOf(firstName, secondName) {
		return CompareNarrow
	}
	if c.hierarchy.IsInstanceOf(secondName, firstName) {
		return CompareWider
	}
	if !c.hierarchy.IsKnown(firstName) || !c.hierarchy.IsKnown(secondName) {
		return CompareUnknown
	}
	return CompareConflict
}

func (c *Comparator) compareWildcards(first, second TWildcard) CompareResult {
	if first.Bound == WildcardUnbound {
		return CompareWider
	}
	if second.Bound == WildcardUnbound {
		return CompareNarrow
	}
	if first.Bound == second.Bound {
		return c.Compare(first.Inner, second.Inner)
	}
	return CompareConflict
}

func (c *Comparator) compareTypeVarWithObject(typeVar TTypeVar, obj Type) CompareResult {
	if other, ok := obj.(TTypeVar); ok {
		return c.compareTypeVars(typeVar, other)
	}
	if IsObjectClass(obj) || len(typeVar.Extends) == 0 {
		return CompareNarrowByGeneric
	}
	for _, ext := range typeVar.Extends {
		if Equal(ext, obj) {
			return CompareNarrowByGeneric
		}
	}
	for _, ext := range typeVar.Extends {
		if res := c.Compare(ext, obj); res.IsNarrowOrEqual() {
			return CompareNarrowByGeneric
		}
	}
	return CompareConflict
}

func (c *Comparator) compareTypeVars(first, second TTypeVar) CompareResult {
	if first.Name != second.Name {
		return CompareConflict
	}
	firstExt := removeObjectClass(first.Extends)
	secondExt := removeObjectClass(second.Extends)
	if equalList(firstExt, secondExt) {
		return CompareEqual
	}
	switch {
	case len(firstExt) == 0:
		return CompareWider
	case len(secondExt) == 0:
		return CompareNarrow
	case len(firstExt) == 1 && len(secondExt) == 1:
		return c.Compare(firstExt[0], secondExt[0])
	}
	return CompareConflict
}

func removeObjectClass(types []Type) []Type {
	var res []Type
	for _, t := range types {
		if !IsObjectClass(t) {
			res = append(res, t)
		}
	}
	return res
}
