package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML rule file format.
type File struct {
	Rules []Spec `yaml:"rules"`
}

// LoadFile reads rule specs from a YAML file. The specs are not compiled;
// callers run CompileAll before letting any transaction near them.
func LoadFile(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file %s: %w", path, err)
	}

	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rule file %s contains no rules", path)
	}

	return file.Rules, nil
}
