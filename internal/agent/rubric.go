package agent

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rubrics.yaml
var rubricsYAML []byte

// Dimension is one rubric dimension with six level descriptors.
type Dimension struct {
	Key    string   `yaml:"key"`
	Name   string   `yaml:"name"`
	Title  string   `yaml:"title"`
	Levels []string `yaml:"levels"`
}

type rubricFile struct {
	Dimensions []Dimension `yaml:"dimensions"`
}

var (
	rubricOnce sync.Once
	rubric     []Dimension
	rubricErr  error
)

// Rubric returns the six writing dimensions in evaluation order.
func Rubric() ([]Dimension, error) {
	rubricOnce.Do(func() {
		rubric, rubricErr = parseRubric(rubricsYAML)
	})
	return rubric, rubricErr
}

func parseRubric(data []byte) ([]Dimension, error) {
	var f rubricFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rubric: %w", err)
	}
	if len(f.Dimensions) == 0 {
		return nil, fmt.Errorf("parse rubric: no dimensions")
	}
	for _, d := range f.Dimensions {
		if d.Key == "" || d.Name == "" {
			return nil, fmt.Errorf("parse rubric: dimension without key or name")
		}
		if len(d.Levels) != 6 {
			return nil, fmt.Errorf("parse rubric: %s has %d levels, want 6", d.Key, len(d.Levels))
		}
	}
	return f.Dimensions, nil
}
