package palette

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type file struct {
	Colors []string `yaml:"colors"`
}

// Parse decodes a YAML palette document of the form:
//
//	colors:
//	  - "#ffffff"
//	  - "#181425"
//
// The color at index 0 stands for unplaced cells.
func Parse(data []byte) (Palette, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse palette file: %w", err)
	}
	if len(f.Colors) == 0 {
		return nil, fmt.Errorf("palette file lists no colors")
	}

	p := make(Palette, 0, len(f.Colors))
	for i, raw := range f.Colors {
		c, err := ParseHex(raw)
		if err != nil {
			return nil, fmt.Errorf("palette color %d: %w", i, err)
		}
		p = append(p, c)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads a palette from a YAML file.
func Load(path string) (Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read palette file: %w", err)
	}
	return Parse(data)
}
