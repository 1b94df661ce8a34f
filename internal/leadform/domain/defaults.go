package domain

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default_form.yaml
var defaultFormYAML []byte

var (
	defaultOnce   sync.Once
	defaultConfig FormConfig
	defaultErr    error
)

// DefaultConfig returns a fresh copy of the code-defined baseline form.
// It panics if the embedded baseline is invalid, which is a build defect.
func DefaultConfig() FormConfig {
	defaultOnce.Do(func() {
		defaultConfig, defaultErr = ParseYAML(defaultFormYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("embedded default lead form is invalid: %v", defaultErr))
	}
	return defaultConfig.Clone()
}

// ParseYAML decodes and validates a form configuration written in YAML.
// MaxScore is always derived from the questions.
func ParseYAML(data []byte) (FormConfig, error) {
	var cfg FormConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FormConfig{}, fmt.Errorf("decode form yaml: %w", err)
	}
	cfg.MaxScore = SumMaxPoints(cfg.Questions)
	if err := Validate(cfg); err != nil {
		return FormConfig{}, err
	}
	return cfg, nil
}

// SumMaxPoints adds up the best option of every select question.
func SumMaxPoints(questions []Question) int {
	total := 0
	for _, q := range questions {
		if q.IsSelect() {
			total += q.MaxPoints()
		}
	}
	return total
}
