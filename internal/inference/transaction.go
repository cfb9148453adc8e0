package inference

import (
	"github.com/funvibe/dextype/internal/ssa"
	"github.com/funvibe/dextype/internal/typesystem"
)

type updateResult int

const (
	rejected updateResult = iota
	same
	changed
)

func (r updateResult) String() string {
	switch r {
	case same:
		return "SAME"
	case changed:
		return "CHANGED"
	}
	return "REJECT"
}

type updateFlags uint8

const (
	// allowWider accepts candidates wider than the current type.
	allowWider updateFlags = 1 << iota
	// ignoreSame keeps propagating when the candidate equals the current type.
	ignoreSame
	// ignoreUnknown rejects candidates the hierarchy can't compare.
	ignoreUnknown
)

type updateEntry struct {
	arg *ssa.Arg
	// typ is nil once the entry was rolled back.
	typ typesystem.Type
}

// updateTx records the site types proposed by one apply attempt. Nothing is
// written to the graph until commit.
type updateTx struct {
	flags   updateFlags
	entries []updateEntry
	index   map[*ssa.Arg]int
	depth   int
}

func newUpdateTx(flags updateFlags) *updateTx {
	return &updateTx{flags: flags, index: make(map[*ssa.Arg]int)}
}

func (tx *updateTx) has(f updateFlags) bool {
	return tx != nil && tx.flags&f != 0
}

func (tx *updateTx) isProcessed(arg *ssa.Arg) bool {
	if tx == nil {
		return false
	}
	i, ok := tx.index[arg]
	return ok && tx.entries[i].typ != nil
}

func (tx *updateTx) request(arg *ssa.Arg, t typesystem.Type) {
	if i, ok := tx.index[arg]; ok {
		tx.entries[i].typ = t
		return
	}
	tx.index[arg] = len(tx.entries)
	tx.entries = append(tx.entries, updateEntry{arg: arg, typ: t})
}

func (tx *updateTx) rollback(arg *ssa.Arg) {
	if i, ok := tx.index[arg]; ok {
		tx.entries[i].typ = nil
	}
}

// typeOf returns the proposed type of arg, or its current one. A nil tx
// reads the committed state.
func (tx *updateTx) typeOf(arg *ssa.Arg) typesystem.Type {
	if tx != nil {
		if i, ok := tx.index[arg]; ok && tx.entries[i].typ != nil {
			return tx.entries[i].typ
		}
	}
	return arg.Type()
}

func (tx *updateTx) empty() bool {
	for _, e := range tx.entries {
		if e.typ != nil {
			return false
		}
	}
	return true
}

// commit writes every live entry in request order.
func (tx *updateTx) commit() {
	for _, e := range tx.entries {
		if e.typ != nil {
			e.arg.SetType(e.typ)
		}
	}
}
