package ssa

import (
	"fmt"

	"github.com/funvibe/dextype/internal/typesystem"
)

// Arg is an argument site of an instruction: either a register bound to a
// variable or an inline literal.
type Arg struct {
	// Var is the referenced variable; nil for literals.
	Var *Var
	// Literal holds the raw value of a literal argument.
	Literal int64
	// InitType is the type the instruction declares for this slot.
	InitType typesystem.Type
	// Parent is the owning instruction, nil for method parameters.
	Parent *Insn
	// Immutable marks a slot whose declared type must not change.
	Immutable bool
	// This marks the method's receiver.
	This bool

	literal bool
	typ     typesystem.Type
}

// Reg makes a register argument for v. The argument is linked into v's
// def/use lists once attached to an instruction.
func Reg(v *Var, initType typesystem.Type) *Arg {
	if initType == nil {
		initType = typesystem.Unknown
	}
	return &Arg{Var: v, InitType: initType}
}

// Lit makes a literal argument.
func Lit(value int64, t typesystem.Type) *Arg {
	if t == nil {
		t = typesystem.Unknown
	}
	return &Arg{Literal: value, literal: true, InitType: t, typ: t}
}

func (a *Arg) IsRegister() bool { return a.Var != nil }

func (a *Arg) IsLiteral() bool { return a.literal }

func (a *Arg) IsZeroLiteral() bool { return a.literal && a.Literal == 0 }

// Type is the current type of the site. Register sites share their
// variable's type.
func (a *Arg) Type() typesystem.Type {
	if a.Var != nil {
		return a.Var.Type()
	}
	if a.typ == nil {
		return typesystem.Unknown
	}
	return a.typ
}

func (a *Arg) SetType(t typesystem.Type) {
	if a.Var != nil {
		a.Var.SetType(t)
		return
	}
	a.typ = t
}

// IsTypeImmutable reports whether the site's type is pinned.
func (a *Arg) IsTypeImmutable() bool {
	if a.Var != nil {
		return a.Var.IsImmutable()
	}
	return a.Immutable
}

// IsAssign reports whether the site is the result slot of its instruction.
// Parameters (no parent) count as assignments.
func (a *Arg) IsAssign() bool {
	if a.Parent == nil {
		return a.Var != nil && a.Var.Assign == a
	}
	return a.Parent.Result == a
}

// Duplicate copies the site without linking it anywhere.
func (a *Arg) Duplicate() *Arg {
	return &Arg{
		Var:       a.Var,
		Literal:   a.Literal,
		InitType:  a.InitType,
		Immutable: a.Immutable,
		This:      a.This,
		literal:   a.literal,
		typ:       a.typ,
	}
}

// DuplicateWith copies a register site onto another variable.
func (a *Arg) DuplicateWith(v *Var) *Arg {
	d := a.Duplicate()
	d.Var = v
	return d
}

func (a *Arg) String() string {
	if a.literal {
		return fmt.Sprintf("%d:%s", a.Literal, a.Type())
	}
	if a.Var == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s:%s", a.Var, a.Type())
}
