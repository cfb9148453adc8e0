// Package classpath answers class-hierarchy questions for the inference engine.
//
// The hierarchy may be incomplete: classes that were never loaded are
// "unknown", and comparisons involving them are reported as such instead of
// as conflicts.
package classpath

import "github.com/funvibe/dextype/internal/typesystem"

// Hierarchy is the class-hierarchy oracle.
type Hierarchy interface {
	typesystem.ClassHierarchy

	// Ancestors lists every supertype of cls (superclasses first, then
	// interfaces), nearest first. The universal object comes last.
	Ancestors(cls string) []string
	// Implementations lists every known subtype of cls, sorted by name.
	Implementations(cls string) []string
	// IsInterface reports whether cls is a known interface.
	IsInterface(cls string) bool
	// TypeParams returns the declared type parameter names of cls.
	TypeParams(cls string) []string
}

// Class is one class or interface declaration.
type Class struct {
	// Name is the fully qualified class name (e.g. "java.util.ArrayList").
	Name string `yaml:"name"`

	// Super is the direct superclass. Empty means java.lang.Object.
	Super string `yaml:"super,omitempty"`

	// Interfaces are the directly implemented (or extended) interfaces.
	Interfaces []string `yaml:"interfaces,omitempty"`

	// Interface marks interface declarations.
	Interface bool `yaml:"interface,omitempty"`

	// TypeParams are the declared generic parameter names, in order
	// (e.g. [K, V] for java.util.Map).
	TypeParams []string `yaml:"type_params,omitempty"`
}

func (c *Class) superName() string {
	if c.Super == "" && c.Name != typesystem.ObjectClass {
		return typesystem.ObjectClass
	}
	return c.Super
}
