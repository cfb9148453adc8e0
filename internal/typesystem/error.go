package typesystem

import "fmt"

// IncompatibleTypesError reports two types that have no common merge.
type IncompatibleTypesError struct {
	First  Type
	Second Type
}

func (e *IncompatibleTypesError) Error() string {
	return fmt.Sprintf("incompatible types: %s and %s", e.First, e.Second)
}

func NewIncompatibleTypesError(first, second Type) *IncompatibleTypesError {
	return &IncompatibleTypesError{First: first, Second: second}
}

// MergeChecked is Merge returning an error for irreconcilable types.
func MergeChecked(h ClassHierarchy, a, b Type) (Type, error) {
	if res := Merge(h, a, b); res != nil {
		return res, nil
	}
	return nil, NewIncompatibleTypesError(a, b)
}
