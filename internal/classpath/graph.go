package classpath

import (
	"sort"
	"sync"

	"github.com/hashicorp/go-set/v3"

	"github.com/funvibe/dextype/internal/typesystem"
)

// Graph is an in-memory Hierarchy. It is safe for concurrent readers once
// populated; Add must not race with queries.
type Graph struct {
	classes  map[string]*Class
	children map[string][]string

	mu        sync.RWMutex
	ancestors map[string][]string
}

func NewGraph(classes ...Class) *Graph {
	g := &Graph{
		classes:   make(map[string]*Class),
		children:  make(map[string][]string),
		ancestors: make(map[string][]string),
	}
	g.Add(typesystem.ObjectClass)
	for _, c := range classes {
		g.AddClass(c)
	}
	return g
}

// Add registers plain classes extending java.lang.Object.
func (g *Graph) Add(names ...string) {
	for _, name := range names {
		if _, ok := g.classes[name]; !ok {
			g.AddClass(Class{Name: name})
		}
	}
}

// AddClass registers or replaces a class declaration.
func (g *Graph) AddClass(c Class) {
	cls := c
	if old, ok := g.classes[c.Name]; ok {
		g.unlink(old)
	}
	g.classes[c.Name] = &cls
	if sup := cls.superName(); sup != "" {
		g.children[sup] = append(g.children[sup], cls.Name)
	}
	for _, iface := range cls.Interfaces {
		g.children[iface] = append(g.children[iface], cls.Name)
	}
	g.mu.Lock()
	g.ancestors = make(map[string][]string)
	g.mu.Unlock()
}

func (g *Graph) unlink(c *Class) {
	parents := append([]string{c.superName()}, c.Interfaces...)
	for _, p := range parents {
		list := g.children[p]
		for i, name := range list {
			if name == c.Name {
				g.children[p] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// Lookup returns the declaration of cls.
func (g *Graph) Lookup(cls string) (Class, bool) {
	c, ok := g.classes[cls]
	if !ok {
		return Class{}, false
	}
	return *c, true
}

// Classes returns every declaration sorted by name.
func (g *Graph) Classes() []Class {
	res := make([]Class, 0, len(g.classes))
	for _, c := range g.classes {
		res = append(res, *c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

func (g *Graph) Len() int { return len(g.classes) }

func (g *Graph) IsKnown(cls string) bool {
	_, ok := g.classes[cls]
	return ok
}

// IsInterface reports whether cls is a known interface.
func (g *Graph) IsInterface(cls string) bool {
	c, ok := g.classes[cls]
	return ok && c.Interface
}

func (g *Graph) TypeParams(cls string) []string {
	if c, ok := g.classes[cls]; ok {
		return c.TypeParams
	}
	return nil
}

func (g *Graph) Ancestors(cls string) []string {
	g.mu.RLock()
	cached, ok := g.ancestors[cls]
	g.mu.RUnlock()
	if ok {
		return cached
	}
	res := g.collectAncestors(cls)
	g.mu.Lock()
	g.ancestors[cls] = res
	g.mu.Unlock()
	return res
}

func (g *Graph) collectAncestors(cls string) []string {
	start, ok := g.classes[cls]
	if !ok {
		return nil
	}
	visited := set.New[string](8)
	visited.Insert(cls)
	var res []string
	var ifaces []string
	for c := start; c != nil; {
		ifaces = append(ifaces, c.Interfaces...)
		sup := c.superName()
		if sup == "" || sup == typesystem.ObjectClass || !visited.Insert(sup) {
			break
		}
		res = append(res, sup)
		c = g.classes[sup]
	}
	for len(ifaces) > 0 {
		iface := ifaces[0]
		ifaces = ifaces[1:]
		if iface == typesystem.ObjectClass || !visited.Insert(iface) {
			continue
		}
		res = append(res, iface)
		if c, ok := g.classes[iface]; ok {
			ifaces = append(ifaces, c.Interfaces...)
		}
	}
	if cls != typesystem.ObjectClass {
		res = append(res, typesystem.ObjectClass)
	}
	return res
}

func (g *Graph) Implementations(cls string) []string {
	visited := set.New[string](8)
	queue := append([]string(nil), g.children[cls]...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if !visited.Insert(name) {
			continue
		}
		queue = append(queue, g.children[name]...)
	}
	res := visited.Slice()
	sort.Strings(res)
	return res
}

func (g *Graph) IsInstanceOf(cls, of string) bool {
	if cls == of || of == typesystem.ObjectClass {
		return true
	}
	for _, a := range g.Ancestors(cls) {
		if a == of {
			return true
		}
	}
	return false
}

// CommonAncestor walks the superclass chain of a and returns the first class
// b is an instance of. Interfaces are only returned when one side already
// implements the other.
func (g *Graph) CommonAncestor(a, b string) string {
	if g.IsInstanceOf(a, b) {
		return b
	}
	if g.IsInstanceOf(b, a) {
		return a
	}
	if !g.IsKnown(a) || !g.IsKnown(b) {
		return ""
	}
	visited := set.New[string](8)
	for c := g.classes[a]; c != nil; c = g.classes[c.superName()] {
		sup := c.superName()
		if sup == "" || !visited.Insert(sup) {
			break
		}
		if g.IsInstanceOf(b, sup) {
			return sup
		}
	}
	return typesystem.ObjectClass
}
