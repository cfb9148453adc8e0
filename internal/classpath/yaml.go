package classpath

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML form of a classpath.
type File struct {
	// Classes lists the class declarations. Order is irrelevant.
	Classes []Class `yaml:"classes"`
}

// LoadYAML reads a classpath description file.
func LoadYAML(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading classpath %s: %w", path, err)
	}
	return ParseYAML(data, path)
}

// ParseYAML parses classpath YAML content. The path argument is used only
// for error messages.
func ParseYAML(data []byte, path string) (*Graph, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := f.validate(path); err != nil {
		return nil, err
	}
	return NewGraph(f.Classes...), nil
}

func (f *File) validate(path string) error {
	seen := make(map[string]bool, len(f.Classes))
	for i, c := range f.Classes {
		if c.Name == "" {
			return fmt.Errorf("%s: classes[%d]: name is required", path, i)
		}
		if seen[c.Name] {
			return fmt.Errorf("%s: classes[%d]: duplicate class %s", path, i, c.Name)
		}
		seen[c.Name] = true
		if c.Super == c.Name {
			return fmt.Errorf("%s: classes[%d] (%s): class extends itself", path, i, c.Name)
		}
	}
	return nil
}

// MarshalYAML renders the graph back into the file form.
func (g *Graph) MarshalYAML() (interface{}, error) {
	return File{Classes: g.Classes()}, nil
}
