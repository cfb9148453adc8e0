package ssa

// InsnKind is the closed set of instruction kinds the inference engine
// distinguishes.
type InsnKind int

const (
	Nop InsnKind = iota
	Const
	ConstString
	ConstClass
	Move
	Phi
	AGet
	APut
	If
	Arith
	Neg
	Not
	CheckCast
	Cast
	Invoke
	InvokeCustom
	Constructor
	NewInstance
	NewArray
	ArrayLength
	MoveException
	IGet
	IPut
	SGet
	SPut
	Ternary
	Return
	Throw
	Goto
	Switch
)

var insnKindNames = [...]string{
	Nop:           "nop",
	Const:         "const",
	ConstString:   "const-string",
	ConstClass:    "const-class",
	Move:          "move",
	Phi:           "phi",
	AGet:          "aget",
	APut:          "aput",
	If:            "if",
	Arith:         "arith",
	Neg:           "neg",
	Not:           "not",
	CheckCast:     "check-cast",
	Cast:          "cast",
	Invoke:        "invoke",
	InvokeCustom:  "invoke-custom",
	Constructor:   "constructor",
	NewInstance:   "new-instance",
	NewArray:      "new-array",
	ArrayLength:   "array-length",
	MoveException: "move-exception",
	IGet:          "iget",
	IPut:          "iput",
	SGet:          "sget",
	SPut:          "sput",
	Ternary:       "ternary",
	Return:        "return",
	Throw:         "throw",
	Goto:          "goto",
	Switch:        "switch",
}

func (k InsnKind) String() string {
	if k < 0 || int(k) >= len(insnKindNames) {
		return "invalid"
	}
	return insnKindNames[k]
}

// InsnKindByName resolves a kind from its mnemonic.
func InsnKindByName(name string) (InsnKind, bool) {
	for k, n := range insnKindNames {
		if n == name {
			return InsnKind(k), true
		}
	}
	return 0, false
}

// IsSeparate reports whether an instruction of this kind must end its
// block, so nothing can be appended after it.
func (k InsnKind) IsSeparate() bool {
	switch k {
	case If, Switch, Return, Throw, Goto:
		return true
	}
	return false
}

type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpUshr
)

var arithOpNames = [...]string{
	OpAdd:  "add",
	OpSub:  "sub",
	OpMul:  "mul",
	OpDiv:  "div",
	OpRem:  "rem",
	OpAnd:  "and",
	OpOr:   "or",
	OpXor:  "xor",
	OpShl:  "shl",
	OpShr:  "shr",
	OpUshr: "ushr",
}

func (op ArithOp) String() string {
	if op < 0 || int(op) >= len(arithOpNames) {
		return "invalid"
	}
	return arithOpNames[op]
}

func ArithOpByName(name string) (ArithOp, bool) {
	for op, n := range arithOpNames {
		if n == name {
			return ArithOp(op), true
		}
	}
	return 0, false
}

// IsBitOp reports and/or/xor, the operators that also apply to booleans.
func (op ArithOp) IsBitOp() bool {
	return op == OpAnd || op == OpOr || op == OpXor
}

// IsShift reports operators whose second operand is a shift distance.
func (op ArithOp) IsShift() bool {
	return op == OpShl || op == OpShr || op == OpUshr
}

type IfOp int

const (
	IfEq IfOp = iota
	IfNe
	IfLt
	IfLe
	IfGt
	IfGe
)

var ifOpNames = [...]string{
	IfEq: "eq",
	IfNe: "ne",
	IfLt: "lt",
	IfLe: "le",
	IfGt: "gt",
	IfGe: "ge",
}

func (op IfOp) String() string {
	if op < 0 || int(op) >= len(ifOpNames) {
		return "invalid"
	}
	return ifOpNames[op]
}

func IfOpByName(name string) (IfOp, bool) {
	for op, n := range ifOpNames {
		if n == name {
			return IfOp(op), true
		}
	}
	return 0, false
}

type InvokeKind int

const (
	InvokeVirtual InvokeKind = iota
	InvokeInterface
	InvokeDirect
	InvokeSuper
	InvokeStatic
)

var invokeKindNames = [...]string{
	InvokeVirtual:   "virtual",
	InvokeInterface: "interface",
	InvokeDirect:    "direct",
	InvokeSuper:     "super",
	InvokeStatic:    "static",
}

func (k InvokeKind) String() string {
	if k < 0 || int(k) >= len(invokeKindNames) {
		return "invalid"
	}
	return invokeKindNames[k]
}

func InvokeKindByName(name string) (InvokeKind, bool) {
	for k, n := range invokeKindNames {
		if n == name {
			return InvokeKind(k), true
		}
	}
	return 0, false
}
