// Package fixture reads YAML descriptions of methods and builds the SSA
// graphs the inference engine works on.
//
// A method lists its blocks; each instruction names its kind, result and
// arguments. Sites are written as "name[:type]" for a register of variable
// name, or "#value[:type]" for a literal. A trailing "!" on the name pins
// the slot's declared type:
//
//	blocks:
//	  - insns:
//	      - {op: const, result: "a", args: ["#0:narrow"]}
//	      - {op: invoke.static, method: {class: a.B, name: f, args: [int]}, args: ["a:int"]}
package fixture

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/dextype/internal/classpath"
)

// File is a fixture document: an optional inline class hierarchy and the
// methods to infer.
type File struct {
	Classes []classpath.Class `yaml:"classes,omitempty"`
	Methods []Method          `yaml:"methods"`
}

type Method struct {
	Class string `yaml:"class"`
	Name  string `yaml:"name"`
	// TypeVars declares the type variables in scope ("T", "T extends a.B").
	TypeVars []string `yaml:"type_vars,omitempty"`
	NoCode   bool     `yaml:"no_code,omitempty"`
	Params   []Param  `yaml:"params,omitempty"`
	Blocks   []Block  `yaml:"blocks,omitempty"`
	// Expect maps variable names to the types inference should settle on.
	Expect map[string]string `yaml:"expect,omitempty"`
}

type Param struct {
	Var       string `yaml:"var"`
	Type      string `yaml:"type"`
	This      bool   `yaml:"this,omitempty"`
	Immutable bool   `yaml:"immutable,omitempty"`
}

type Block struct {
	// Succs are indexes of successor blocks.
	Succs     []int  `yaml:"succs,omitempty"`
	Synthetic bool   `yaml:"synthetic,omitempty"`
	Insns     []Insn `yaml:"insns"`
}

type Insn struct {
	// Op is the instruction kind, optionally with its operator:
	// "arith.xor", "if.eq", "invoke.static".
	Op     string   `yaml:"op"`
	Result string   `yaml:"result,omitempty"`
	Args   []string `yaml:"args,omitempty"`
	// From lists the incoming block of each phi argument.
	From []int `yaml:"from,omitempty"`
	// Type is the operand type of casts and allocations.
	Type          string     `yaml:"type,omitempty"`
	Soft          bool       `yaml:"soft,omitempty"`
	Catch         []string   `yaml:"catch,omitempty"`
	AnonymousBase string     `yaml:"anonymous_base,omitempty"`
	Method        *MethodRef `yaml:"method,omitempty"`
	Field         *FieldRef  `yaml:"field,omitempty"`
	CallSite      *CallSite  `yaml:"call_site,omitempty"`
}

type MethodRef struct {
	Class         string   `yaml:"class"`
	Name          string   `yaml:"name"`
	Return        string   `yaml:"return,omitempty"`
	Args          []string `yaml:"args,omitempty"`
	GenericReturn string   `yaml:"generic_return,omitempty"`
	GenericArgs   []string `yaml:"generic_args,omitempty"`
	// TypeVars are the type variable names the generic signature mentions.
	TypeVars   []string `yaml:"type_vars,omitempty"`
	Resolved   bool     `yaml:"resolved,omitempty"`
	DeclClass  string   `yaml:"decl_class,omitempty"`
	Overloaded bool     `yaml:"overloaded,omitempty"`
}

type FieldRef struct {
	Class    string   `yaml:"class"`
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	TypeVars []string `yaml:"type_vars,omitempty"`
}

type CallSite struct {
	Primary string   `yaml:"primary"`
	Markers []string `yaml:"markers,omitempty"`
}

// Load reads and parses a fixture file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses fixture content. The path is used for error messages.
func Parse(data []byte, path string) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := f.validate(path); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate(path string) error {
	for i, m := range f.Methods {
		if m.Class == "" || m.Name == "" {
			return fmt.Errorf("%s: methods[%d]: class and name are required", path, i)
		}
		if !m.NoCode && len(m.Blocks) == 0 {
			return fmt.Errorf("%s: methods[%d] %s.%s: blocks are required", path, i, m.Class, m.Name)
		}
		for bi, b := range m.Blocks {
			for _, s := range b.Succs {
				if s < 0 || s >= len(m.Blocks) {
					return fmt.Errorf("%s: methods[%d] block %d: successor %d out of range", path, i, bi, s)
				}
			}
		}
	}
	return nil
}

// Hierarchy returns the inline classes as a graph.
func (f *File) Hierarchy() *classpath.Graph {
	return classpath.NewGraph(f.Classes...)
}
