package dat

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ShapeFile is the YAML document form of a shape registry:
//
//	shapes:
//	  - name: image_header
//	    priority: 10
//	    size: 0x18
//	    fields:
//	      - {name: data, offset: 0x00, kind: pointer, nonnull: true}
//	      - {name: width, offset: 0x04, kind: u16, min: 1, max: 1024}
type ShapeFile struct {
	Shapes []*Shape `yaml:"shapes"`
}

// LoadShapes decodes a YAML shape file and registers its shapes in order.
func LoadShapes(r io.Reader) (*Registry, error) {
	var doc ShapeFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("dat: decode shapes: %w", err)
	}
	return NewRegistry(doc.Shapes...)
}

// LoadShapesFile reads a YAML shape file from disk.
func LoadShapesFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	reg, err := LoadShapes(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}
