package model

import (
	"fmt"
	"time"
)

// ErrorPolicy tells a pipeline what to do when a step fails.
type ErrorPolicy string

const (
	// ErrorPolicyStop stops launching new steps on the first failure.
	ErrorPolicyStop ErrorPolicy = "stop"
	// ErrorPolicyContinue runs every step and aggregates the failures.
	ErrorPolicyContinue ErrorPolicy = "continue"
)

// StepType identifies what a pipeline step does.
type StepType string

const (
	// StepTypeDelay waits for a fixed duration.
	StepTypeDelay StepType = "delay"
	// StepTypeCommand executes a local command.
	StepTypeCommand StepType = "command"
)

// Pipeline is the static definition of a sequence of steps.
type Pipeline struct {
	Name        string
	Concurrency int
	OnError     ErrorPolicy
	Steps       []PipelineStep
}

// PipelineStep is the definition of a single step.
type PipelineStep struct {
	Name     string
	Type     StepType
	Duration time.Duration     // Only for delay steps.
	Command  []string          // Only for command steps.
	Env      map[string]string // Only for command steps.
}

// Validate validates the pipeline definition.
func (p *Pipeline) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("pipeline name is required: %w", ErrNotValid)
	}

	if p.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1: %w", ErrNotValid)
	}

	switch p.OnError {
	case ErrorPolicyStop, ErrorPolicyContinue:
	default:
		return fmt.Errorf("unknown on-error policy %q: %w", p.OnError, ErrNotValid)
	}

	if len(p.Steps) == 0 {
		return fmt.Errorf("pipeline needs at least one step: %w", ErrNotValid)
	}

	seen := map[string]bool{}
	for i, s := range p.Steps {
		if err := s.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicated step name %q: %w", s.Name, ErrNotValid)
		}
		seen[s.Name] = true
	}

	return nil
}

func (s *PipelineStep) validate() error {
	if s.Name == "" {
		return fmt.Errorf("step name is required: %w", ErrNotValid)
	}

	switch s.Type {
	case StepTypeDelay:
		if s.Duration <= 0 {
			return fmt.Errorf("delay step %q duration must be positive: %w", s.Name, ErrNotValid)
		}
	case StepTypeCommand:
		if len(s.Command) == 0 {
			return fmt.Errorf("command step %q command is required: %w", s.Name, ErrNotValid)
		}
	default:
		return fmt.Errorf("unknown step type %q: %w", s.Type, ErrNotValid)
	}

	return nil
}
