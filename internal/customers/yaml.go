package customers

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voice-negotiator-go/internal/types"
)

type yamlFile struct {
	Customers []types.CustomerProfile `yaml:"clientes"`
}

// LoadYAML reads a file of the form
//
//	clientes:
//	  - id: 1
//	    nombre: ...
//
// Unknown keys are rejected.
func LoadYAML(path string) ([]types.CustomerProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("customers: open %q: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var doc yamlFile
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("customers: decode %q: %w", path, err)
	}
	return doc.Customers, nil
}
