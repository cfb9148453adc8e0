// Package ssa is the instruction graph the inference engine reads and edits:
// methods made of blocks, instructions with argument sites, and
// single-assignment variables with def/use and phi membership.
package ssa

import (
	"fmt"

	"github.com/funvibe/dextype/internal/typesystem"
)

type Block struct {
	ID    int
	Insns []*Insn
	Preds []*Block
	Succs []*Block
	// Synthetic blocks were added by earlier passes and accept no new code.
	Synthetic bool
}

func (b *Block) String() string { return fmt.Sprintf("B%d", b.ID) }

// LastInsn returns the final instruction or nil.
func (b *Block) LastInsn() *Insn {
	if len(b.Insns) == 0 {
		return nil
	}
	return b.Insns[len(b.Insns)-1]
}

// Phis returns the phi instructions at the start of the block.
func (b *Block) Phis() []*Insn {
	n := 0
	for n < len(b.Insns) && b.Insns[n].Kind == Phi {
		n++
	}
	return b.Insns[:n]
}

func (b *Block) indexOf(insn *Insn) int {
	for i, in := range b.Insns {
		if in == insn {
			return i
		}
	}
	return -1
}

func (b *Block) insertAt(idx int, insn *Insn) {
	b.Insns = append(b.Insns, nil)
	copy(b.Insns[idx+1:], b.Insns[idx:])
	b.Insns[idx] = insn
	insn.Block = b
}

// Method is the unit of inference.
type Method struct {
	Class string
	Name  string
	// TypeVars are the type variables in scope: the class's and the method's own.
	TypeVars []typesystem.TTypeVar
	Blocks   []*Block
	// Vars keeps creation order. Every pass iterates it in this order.
	Vars []*Var
	// NoCode marks abstract and native methods.
	NoCode bool

	versions map[int]int
}

func NewMethod(class, name string) *Method {
	return &Method{Class: class, Name: name, versions: make(map[int]int)}
}

func (m *Method) String() string { return m.Class + "." + m.Name }

// NewBlock appends an empty block.
func (m *Method) NewBlock() *Block {
	b := &Block{ID: len(m.Blocks)}
	m.Blocks = append(m.Blocks, b)
	return b
}

// Connect adds a control-flow edge.
func Connect(from, to *Block) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// NewVar creates the next version of register reg.
func (m *Method) NewVar(reg int) *Var {
	if m.versions == nil {
		m.versions = make(map[int]int)
	}
	v := &Var{Reg: reg, Version: m.versions[reg]}
	m.versions[reg]++
	m.Vars = append(m.Vars, v)
	return v
}

// DuplicateWithNewVar copies a register site onto a fresh version of its
// register.
func (m *Method) DuplicateWithNewVar(a *Arg) *Arg {
	return a.DuplicateWith(m.NewVar(a.Var.Reg))
}

// RemoveVar drops v from the method's variable list.
func (m *Method) RemoveVar(v *Var) {
	for i, mv := range m.Vars {
		if mv == v {
			m.Vars = append(m.Vars[:i], m.Vars[i+1:]...)
			return
		}
	}
}

// Insns returns every instruction in block order.
func (m *Method) Insns() []*Insn {
	var res []*Insn
	for _, b := range m.Blocks {
		res = append(res, b.Insns...)
	}
	return res
}

// Append adds insn at the end of block.
func (m *Method) Append(b *Block, insn *Insn) {
	b.insertAt(len(b.Insns), insn)
}

// InsertBefore places insn right before anchor.
func (m *Method) InsertBefore(anchor, insn *Insn) bool {
	b := anchor.Block
	if b == nil {
		return false
	}
	idx := b.indexOf(anchor)
	if idx < 0 {
		return false
	}
	b.insertAt(idx, insn)
	return true
}

// InsertAfter places insn right after anchor.
func (m *Method) InsertAfter(anchor, insn *Insn) bool {
	b := anchor.Block
	if b == nil {
		return false
	}
	idx := b.indexOf(anchor)
	if idx < 0 {
		return false
	}
	b.insertAt(idx+1, insn)
	return true
}

// Replace puts repl in old's place. Old's argument sites are unlinked;
// repl is expected to be fully built.
func (m *Method) Replace(old, repl *Insn) bool {
	b := old.Block
	if b == nil {
		return false
	}
	idx := b.indexOf(old)
	if idx < 0 {
		return false
	}
	args := old.Args
	old.Args = nil
	for _, a := range args {
		if a.Parent == old {
			old.unlinkUse(a)
			a.Parent = nil
		}
	}
	b.Insns[idx] = repl
	repl.Block = b
	old.Block = nil
	return true
}

// Remove deletes insn and unlinks its argument sites.
func (m *Method) Remove(insn *Insn) bool {
	b := insn.Block
	if b == nil {
		return false
	}
	idx := b.indexOf(insn)
	if idx < 0 {
		return false
	}
	args := insn.Args
	insn.Args = nil
	for _, a := range args {
		insn.unlinkUse(a)
		a.Parent = nil
	}
	b.Insns = append(b.Insns[:idx], b.Insns[idx+1:]...)
	insn.Block = nil
	return true
}

// CopyWithNewVar clones insn with duplicated arguments and a result bound
// to a fresh variable. The copy is not placed in any block.
func (m *Method) CopyWithNewVar(insn *Insn) *Insn {
	cp := &Insn{
		Kind:          insn.Kind,
		ArithOp:       insn.ArithOp,
		IfOp:          insn.IfOp,
		Method:        insn.Method,
		Field:         insn.Field,
		CallSite:      insn.CallSite,
		Type:          insn.Type,
		CatchTypes:    insn.CatchTypes,
		AnonymousBase: insn.AnonymousBase,
		Soft:          insn.Soft,
		Synthetic:     insn.Synthetic,
	}
	for _, a := range insn.Args {
		cp.AddArg(a.Duplicate())
	}
	if insn.Result != nil {
		if insn.Result.Var != nil {
			cp.SetResult(m.DuplicateWithNewVar(insn.Result))
		} else {
			cp.SetResult(insn.Result.Duplicate())
		}
	}
	return cp
}

// Params returns the variables assigned outside any instruction.
func (m *Method) Params() []*Var {
	var res []*Var
	for _, v := range m.Vars {
		if v.Assign != nil && v.Assign.Parent == nil {
			res = append(res, v)
		}
	}
	return res
}

// NewParam creates a parameter variable with the given declared type.
func (m *Method) NewParam(reg int, t typesystem.Type) *Var {
	v := m.NewVar(reg)
	v.Assign = Reg(v, t)
	return v
}
