package formation

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of an operator formation file:
//
//	formations:
//	  - name: 5-3-2
//	    defenders:   [{x: 0.12, y: 0.1}, ...]
//	    midfielders: [...]
//	    forwards:    [...]
type File struct {
	Formations []Formation `yaml:"formations"`
}

// LoadYAML decodes formations from r and layers them over base.  Any invalid
// entry rejects the whole document.
func LoadYAML(base *Catalog, r io.Reader) (*Catalog, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("formation.LoadYAML: decode: %w", err)
	}
	c, err := base.Merge(f.Formations...)
	if err != nil {
		return nil, fmt.Errorf("formation.LoadYAML: %w", err)
	}
	return c, nil
}

// LoadFile reads a YAML formation file.  An empty path returns base
// unchanged.
func LoadFile(base *Catalog, path string) (*Catalog, error) {
	if path == "" {
		return base, nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("formation.LoadFile: %w", err)
	}
	defer fh.Close()
	return LoadYAML(base, fh)
}
