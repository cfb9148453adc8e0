package ssa

import (
	"fmt"

	"github.com/funvibe/dextype/internal/typesystem"
)

type BoundKind int

const (
	BoundAssign BoundKind = iota // constrains the variable from below
	BoundUse                     // constrains the variable from above
)

func (k BoundKind) String() string {
	if k == BoundUse {
		return "USE"
	}
	return "ASSIGN"
}

// Bound is one typing constraint attached to a variable. Type may return nil
// when a dynamic bound can't be computed yet.
type Bound interface {
	Kind() BoundKind
	Type() typesystem.Type
	// Arg is the site the bound was derived from, or nil.
	Arg() *Arg
}

// TypeInfo is the mutable typing state of a variable.
type TypeInfo struct {
	Type   typesystem.Type
	Bounds []Bound
}

// Var is a single-assignment variable.
type Var struct {
	Reg     int
	Version int
	// Name is an optional debug name.
	Name string

	Assign     *Arg
	Uses       []*Arg
	UsedInPhis []*Insn

	TypeInfo TypeInfo

	immutableType typesystem.Type
}

func (v *Var) String() string {
	if v.Name != "" {
		return fmt.Sprintf("r%dv%d(%s)", v.Reg, v.Version, v.Name)
	}
	return fmt.Sprintf("r%dv%d", v.Reg, v.Version)
}

// Type returns the current type, the open placeholder if none is set yet.
func (v *Var) Type() typesystem.Type {
	if v.TypeInfo.Type == nil {
		return typesystem.Unknown
	}
	return v.TypeInfo.Type
}

func (v *Var) SetType(t typesystem.Type) { v.TypeInfo.Type = t }

// MarkImmutable pins the variable to a declared type. The assignment's
// initial type is overwritten so bound seeding sees the same type.
func (v *Var) MarkImmutable(t typesystem.Type) {
	v.immutableType = t
	if v.Assign != nil {
		v.Assign.InitType = t
	}
}

func (v *Var) IsImmutable() bool { return v.immutableType != nil }

// ImmutableType returns the pinned type or nil.
func (v *Var) ImmutableType() typesystem.Type { return v.immutableType }

// AssignInsn returns the defining instruction, or nil for method parameters.
func (v *Var) AssignInsn() *Insn {
	if v.Assign == nil {
		return nil
	}
	return v.Assign.Parent
}

func (v *Var) UseCount() int { return len(v.Uses) }

// ResetTypeInfo drops the current type and all bounds.
func (v *Var) ResetTypeInfo() {
	v.TypeInfo = TypeInfo{}
}

func (v *Var) addUse(a *Arg) {
	v.Uses = append(v.Uses, a)
}

func (v *Var) removeUse(a *Arg) {
	for i, u := range v.Uses {
		if u == a {
			v.Uses = append(v.Uses[:i], v.Uses[i+1:]...)
			return
		}
	}
}

func (v *Var) addPhi(phi *Insn) {
	for _, p := range v.UsedInPhis {
		if p == phi {
			return
		}
	}
	v.UsedInPhis = append(v.UsedInPhis, phi)
}

func (v *Var) removePhi(phi *Insn) {
	for _, a := range phi.Args {
		if a.Var == v {
			return
		}
	}
	for i, p := range v.UsedInPhis {
		if p == phi {
			v.UsedInPhis = append(v.UsedInPhis[:i], v.UsedInPhis[i+1:]...)
			return
		}
	}
}
