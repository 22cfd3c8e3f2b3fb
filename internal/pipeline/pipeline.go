// Package pipeline loads pipeline definitions from YAML.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/ukit/internal/model"
)

type pipelineYAML struct {
	Name        string     `yaml:"name"`
	Concurrency int        `yaml:"concurrency"`
	OnError     string     `yaml:"on_error"`
	Steps       []stepYAML `yaml:"steps"`
}

type stepYAML struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"`
	Duration string            `yaml:"duration"`
	Command  []string          `yaml:"command"`
	Env      map[string]string `yaml:"env"`
}

// Load reads a pipeline definition in YAML and validates it.
func Load(r io.Reader) (*model.Pipeline, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read pipeline: %w", err)
	}

	py := pipelineYAML{}
	if err := yaml.Unmarshal(data, &py); err != nil {
		return nil, fmt.Errorf("could not parse pipeline YAML: %w", err)
	}

	p := model.Pipeline{
		Name:        py.Name,
		Concurrency: py.Concurrency,
		OnError:     model.ErrorPolicy(py.OnError),
	}
	if p.Concurrency == 0 {
		p.Concurrency = 1
	}
	if p.OnError == "" {
		p.OnError = model.ErrorPolicyStop
	}

	for i, sy := range py.Steps {
		step, err := stepFromYAML(sy)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		p.Steps = append(p.Steps, step)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}

	return &p, nil
}

// LoadFile reads a pipeline definition from a YAML file.
func LoadFile(path string) (*model.Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open pipeline file: %w", err)
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

func stepFromYAML(sy stepYAML) (model.PipelineStep, error) {
	step := model.PipelineStep{
		Name:    sy.Name,
		Type:    model.StepType(sy.Type),
		Command: sy.Command,
		Env:     sy.Env,
	}

	if sy.Duration != "" {
		duration, err := time.ParseDuration(sy.Duration)
		if err != nil {
			return model.PipelineStep{}, fmt.Errorf("invalid duration %q: %w", sy.Duration, err)
		}
		step.Duration = duration
	}

	// Infer the type when omitted.
	if step.Type == "" {
		switch {
		case len(step.Command) > 0:
			step.Type = model.StepTypeCommand
		case step.Duration > 0:
			step.Type = model.StepTypeDelay
		}
	}

	return step, nil
}
