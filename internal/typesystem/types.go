package typesystem

import (
	"strings"
)

// Type is the interface for all value types seen by the inference engine.
// Variants hold slices, so two Types must be compared with Equal, never ==.
type Type interface {
	String() string
	// IsKnown reports whether the type is settled. Placeholders and arrays
	// of placeholders are not known.
	IsKnown() bool
	isType()
}

// TPrim is a primitive value type (int, boolean, ...).
type TPrim struct {
	Kind PrimitiveKind
}

func (t TPrim) String() string { return t.Kind.String() }
func (t TPrim) IsKnown() bool  { return true }
func (TPrim) isType()          {}

// TObject is a class reference, optionally parameterized (e.g. java.util.Map<K, V>).
type TObject struct {
	Name     string
	Generics []Type
	// Outer is the enclosing generic type of an inner class, or nil.
	Outer Type
}

func (t TObject) String() string {
	var sb strings.Builder
	if t.Outer != nil {
		sb.WriteString(t.Outer.String())
		sb.WriteString("$")
		sb.WriteString(shortName(t.Name))
	} else {
		sb.WriteString(t.Name)
	}
	if len(t.Generics) > 0 {
		sb.WriteString("<")
		for i, g := range t.Generics {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(g.String())
		}
		sb.WriteString(">")
	}
	return sb.String()
}

func (t TObject) IsKnown() bool { return true }
func (TObject) isType()         {}

// TTypeVar is a generic type variable such as T or K extends Comparable<K>.
type TTypeVar struct {
	Name    string
	Extends []Type
}

func (t TTypeVar) String() string {
	if len(t.Extends) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Extends))
	for i, e := range t.Extends {
		parts[i] = e.String()
	}
	return t.Name + " extends " + strings.Join(parts, " & ")
}

func (t TTypeVar) IsKnown() bool { return true }
func (TTypeVar) isType()         {}

type WildcardBound int

const (
	WildcardUnbound WildcardBound = iota // ?
	WildcardExtends                      // ? extends T
	WildcardSuper                        // ? super T
)

// TWildcard is a generic argument wildcard.
type TWildcard struct {
	Bound WildcardBound
	Inner Type
}

func (t TWildcard) String() string {
	switch t.Bound {
	case WildcardExtends:
		return "? extends " + t.Inner.String()
	case WildcardSuper:
		return "? super " + t.Inner.String()
	}
	return "?"
}

func (t TWildcard) IsKnown() bool { return true }
func (TWildcard) isType()         {}

// TArray is an array of Elem. It is known iff its element is known.
type TArray struct {
	Elem Type
}

func (t TArray) String() string { return t.Elem.String() + "[]" }
func (t TArray) IsKnown() bool  { return t.Elem.IsKnown() }
func (TArray) isType()          {}

// TUnknown is a placeholder listing the kinds a value may still take.
// Kinds keep rank order.
type TUnknown struct {
	Kinds []PrimitiveKind
}

func (t TUnknown) String() string {
	if len(t.Kinds) == len(AllKinds) {
		return "?"
	}
	parts := make([]string, len(t.Kinds))
	for i, k := range t.Kinds {
		parts[i] = k.String()
	}
	return "?[" + strings.Join(parts, ", ") + "]"
}

func (t TUnknown) IsKnown() bool { return false }
func (TUnknown) isType()         {}

func shortName(name string) string {
	if i := strings.LastIndexAny(name, ".$"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Well-known class names.
const (
	ObjectClass    = "java.lang.Object"
	StringClass    = "java.lang.String"
	ClassClass     = "java.lang.Class"
	ThrowableClass = "java.lang.Throwable"
	ExceptionClass = "java.lang.Exception"
)

var (
	Boolean = TPrim{Kind: KindBoolean}
	Char    = TPrim{Kind: KindChar}
	Byte    = TPrim{Kind: KindByte}
	Short   = TPrim{Kind: KindShort}
	Int     = TPrim{Kind: KindInt}
	Float   = TPrim{Kind: KindFloat}
	Long    = TPrim{Kind: KindLong}
	Double  = TPrim{Kind: KindDouble}
	Void    = TPrim{Kind: KindVoid}

	ObjectType    = TObject{Name: ObjectClass}
	StringType    = TObject{Name: StringClass}
	ClassType     = TObject{Name: ClassClass}
	ThrowableType = TObject{Name: ThrowableClass}
	ExceptionType = TObject{Name: ExceptionClass}

	Unknown        = TUnknown{Kinds: AllKinds}
	UnknownObject  = UnknownOf(KindObject, KindArray)
	UnknownArray   = TArray{Elem: Unknown}
	Narrow         = UnknownOf(KindInt, KindFloat, KindBoolean, KindShort, KindByte, KindChar, KindObject, KindArray)
	NarrowNumbers  = UnknownOf(KindInt, KindFloat, KindBoolean, KindShort, KindByte, KindChar)
	NarrowIntegral = UnknownOf(KindInt, KindShort, KindByte, KindChar)
	Wide           = UnknownOf(KindLong, KindDouble)
	IntFloat       = UnknownOf(KindInt, KindFloat)
	IntBoolean     = UnknownOf(KindInt, KindBoolean)
	ByteBoolean    = UnknownOf(KindByte, KindBoolean)
)

// UnknownOf builds a placeholder for the given kinds, normalized to rank order.
func UnknownOf(kinds ...PrimitiveKind) TUnknown {
	var seen [len(kindNames)]bool
	for _, k := range kinds {
		seen[k] = true
	}
	list := make([]PrimitiveKind, 0, len(kinds))
	for _, k := range AllKinds {
		if seen[k] {
			list = append(list, k)
		}
	}
	return TUnknown{Kinds: list}
}

func Prim(k PrimitiveKind) TPrim { return TPrim{Kind: k} }

func NewObject(name string, generics ...Type) TObject {
	return TObject{Name: name, Generics: generics}
}

func NewTypeVar(name string, extends ...Type) TTypeVar {
	return TTypeVar{Name: name, Extends: extends}
}

func ArrayOf(elem Type) TArray { return TArray{Elem: elem} }

// ArrayOfDim wraps elem into dim array levels.
func ArrayOfDim(elem Type, dim int) Type {
	t := elem
	for i := 0; i < dim; i++ {
		t = TArray{Elem: t}
	}
	return t
}

// FromKind returns the plainest known type of a kind.
func FromKind(k PrimitiveKind) Type {
	switch k {
	case KindObject:
		return ObjectType
	case KindArray:
		return ArrayOf(ObjectType)
	}
	return Prim(k)
}
