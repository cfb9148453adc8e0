package typesystem

// PrimitiveKind is the storage category of a value. The declaration order is
// the widening rank used by the comparator.
type PrimitiveKind int

const (
	KindBoolean PrimitiveKind = iota // Z
	KindChar                         // C
	KindByte                         // B
	KindShort                        // S
	KindInt                          // I
	KindFloat                        // F
	KindLong                         // J, two registers
	KindDouble                       // D, two registers
	KindObject                       // any reference type
	KindArray                        // array reference
	KindVoid                         // method results only
)

var kindNames = [...]string{
	KindBoolean: "boolean",
	KindChar:    "char",
	KindByte:    "byte",
	KindShort:   "short",
	KindInt:     "int",
	KindFloat:   "float",
	KindLong:    "long",
	KindDouble:  "double",
	KindObject:  "object",
	KindArray:   "array",
	KindVoid:    "void",
}

func (k PrimitiveKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// AllKinds lists every kind in rank order.
var AllKinds = []PrimitiveKind{
	KindBoolean, KindChar, KindByte, KindShort, KindInt,
	KindFloat, KindLong, KindDouble, KindObject, KindArray, KindVoid,
}

// KindByName resolves a kind from its source-level name.
func KindByName(name string) (PrimitiveKind, bool) {
	for k, n := range kindNames {
		if n == name {
			return PrimitiveKind(k), true
		}
	}
	return 0, false
}

// IsNumeric reports whether the kind can hold an arithmetic value.
func (k PrimitiveKind) IsNumeric() bool {
	switch k {
	case KindChar, KindByte, KindShort, KindInt, KindFloat, KindLong, KindDouble:
		return true
	}
	return false
}

// RegCount is the number of registers a value of this kind occupies.
func (k PrimitiveKind) RegCount() int {
	switch k {
	case KindLong, KindDouble:
		return 2
	case KindVoid:
		return 0
	}
	return 1
}

func smallerKind(a, b PrimitiveKind) PrimitiveKind {
	if a < b {
		return a
	}
	return b
}
