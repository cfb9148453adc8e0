package ssa

import (
	"fmt"
	"strings"

	"github.com/funvibe/dextype/internal/typesystem"
)

// MethodRef describes the callee of an invoke instruction.
type MethodRef struct {
	Class string
	Name  string
	Kind  InvokeKind

	// Return and Args are the erased declared types.
	Return typesystem.Type
	Args   []typesystem.Type

	// GenericReturn and GenericArgs carry the declared signature with type
	// variables when it is known.
	GenericReturn typesystem.Type
	GenericArgs   []typesystem.Type

	// Resolved is set when the callee's declaration was found on the classpath.
	Resolved bool
	// DeclClass is the class that originally declares an overridden method.
	DeclClass string
	// Overloaded marks callees with several same-arity overloads.
	Overloaded bool
}

func (m *MethodRef) IsStatic() bool { return m.Kind == InvokeStatic }

// ParamTypes returns the generic parameter types if known, else the erased ones.
func (m *MethodRef) ParamTypes() []typesystem.Type {
	if m.GenericArgs != nil {
		return m.GenericArgs
	}
	return m.Args
}

// OriginClass returns the class that declares the method.
func (m *MethodRef) OriginClass() string {
	if m.DeclClass != "" {
		return m.DeclClass
	}
	return m.Class
}

func (m *MethodRef) String() string {
	return m.Class + "." + m.Name
}

// FieldRef describes the field accessed by a field instruction.
type FieldRef struct {
	Class string
	Name  string
	Type  typesystem.Type
}

// CallSite is the target of a dynamic call site (a lambda or method
// reference): the functional interface plus optional marker interfaces.
type CallSite struct {
	Primary typesystem.Type
	Markers []typesystem.Type
}

// Insn is one instruction.
type Insn struct {
	Kind   InsnKind
	Result *Arg
	Args   []*Arg
	Block  *Block

	ArithOp ArithOp
	IfOp    IfOp

	Method   *MethodRef
	Field    *FieldRef
	CallSite *CallSite

	// Type is the operand type of new-instance, new-array, check-cast,
	// cast and const-class.
	Type typesystem.Type
	// CatchTypes are the handler's caught classes for move-exception.
	CatchTypes []typesystem.Type
	// AnonymousBase replaces the constructed class of an inlined anonymous class.
	AnonymousBase typesystem.Type

	// PhiBlocks holds the incoming block of each phi argument.
	PhiBlocks []*Block

	// Soft marks casts added only to guide inference.
	Soft      bool
	Synthetic bool
}

// NewInsn builds an instruction and links its sites.
func NewInsn(kind InsnKind, result *Arg, args ...*Arg) *Insn {
	insn := &Insn{Kind: kind}
	if result != nil {
		insn.SetResult(result)
	}
	for _, a := range args {
		insn.AddArg(a)
	}
	return insn
}

// SetResult replaces the result slot. The new slot becomes its variable's
// assignment.
func (i *Insn) SetResult(a *Arg) {
	if i.Result != nil {
		i.Result.Parent = nil
	}
	i.Result = a
	if a == nil {
		return
	}
	a.Parent = i
	if a.Var != nil {
		a.Var.Assign = a
	}
}

func (i *Insn) AddArg(a *Arg) {
	a.Parent = i
	i.Args = append(i.Args, a)
	i.linkUse(a)
}

// AddPhiArg appends a phi input arriving from block from.
func (i *Insn) AddPhiArg(a *Arg, from *Block) {
	i.AddArg(a)
	i.PhiBlocks = append(i.PhiBlocks, from)
}

func (i *Insn) linkUse(a *Arg) {
	if a.Var == nil {
		return
	}
	a.Var.addUse(a)
	if i.Kind == Phi {
		a.Var.addPhi(i)
	}
}

func (i *Insn) unlinkUse(a *Arg) {
	if a.Var == nil {
		return
	}
	a.Var.removeUse(a)
	if i.Kind == Phi {
		a.Var.removePhi(i)
	}
}

// ReplaceArg swaps old for repl at the same position.
func (i *Insn) ReplaceArg(old, repl *Arg) bool {
	idx := i.ArgIndex(old)
	if idx < 0 {
		return false
	}
	i.Args[idx] = repl
	repl.Parent = i
	old.Parent = nil
	i.unlinkUse(old)
	i.linkUse(repl)
	return true
}

// ArgIndex returns the position of a, or -1.
func (i *Insn) ArgIndex(a *Arg) int {
	for idx, arg := range i.Args {
		if arg == a {
			return idx
		}
	}
	return -1
}

func (i *Insn) IsAssign(a *Arg) bool { return i.Result == a }

// InstanceArg returns the receiver of a non-static invoke.
func (i *Insn) InstanceArg() *Arg {
	if i.Kind != Invoke || i.Method == nil || i.Method.IsStatic() || len(i.Args) == 0 {
		return nil
	}
	return i.Args[0]
}

// FirstArgOffset is the index of the first declared parameter in Args.
func (i *Insn) FirstArgOffset() int {
	if i.InstanceArg() != nil {
		return 1
	}
	return 0
}

// PhiArgFor returns the phi input that reads v.
func (i *Insn) PhiArgFor(v *Var) *Arg {
	for _, a := range i.Args {
		if a.Var == v {
			return a
		}
	}
	return nil
}

// PhiBlock returns the incoming block of phi input idx.
func (i *Insn) PhiBlock(idx int) *Block {
	if idx < 0 || idx >= len(i.PhiBlocks) {
		return nil
	}
	return i.PhiBlocks[idx]
}

func (i *Insn) String() string {
	var sb strings.Builder
	if i.Result != nil {
		sb.WriteString(i.Result.String())
		sb.WriteString(" = ")
	}
	sb.WriteString(i.Kind.String())
	switch i.Kind {
	case Arith:
		sb.WriteString(".")
		sb.WriteString(i.ArithOp.String())
	case If:
		sb.WriteString(".")
		sb.WriteString(i.IfOp.String())
	case Invoke:
		if i.Method != nil {
			fmt.Fprintf(&sb, " %s", i.Method)
		}
	case CheckCast, Cast, NewInstance, NewArray, ConstClass:
		if i.Type != nil {
			fmt.Fprintf(&sb, " (%s)", i.Type)
		}
	}
	for idx, a := range i.Args {
		if idx == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}
