// Package registry holds the static, ordered catalog of onboarding steps.
// A Registry is immutable after construction; sessions clone its order and
// reference steps by id.
package registry

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"onboarding-agent/internal/domain"
)

// ErrStepNotFound is returned when an unknown step id is requested. An
// unknown id is a configuration error, not a runtime condition to swallow.
var ErrStepNotFound = errors.New("registry: step not found")

// Registry is an ordered, immutable step catalog.
type Registry struct {
	steps []domain.Step
	byID  map[string]int
}

// New builds a Registry from steps, validating every template. It refuses
// to construct a catalog that could ever emit an inconsistent payload.
func New(steps []domain.Step) (*Registry, error) {
	if len(steps) == 0 {
		return nil, errors.New("registry: at least one step is required")
	}
	byID := make(map[string]int, len(steps))
	for i, step := range steps {
		if strings.TrimSpace(step.ID) == "" {
			return nil, fmt.Errorf("registry: step %d has an empty id", i)
		}
		if _, dup := byID[step.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate step id %q", step.ID)
		}
		if err := validateTemplate(step); err != nil {
			return nil, err
		}
		byID[step.ID] = i
	}
	out := make([]domain.Step, len(steps))
	copy(out, steps)
	return &Registry{steps: out, byID: byID}, nil
}

// LoadFile builds a Registry from a YAML catalog file.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read catalog: %w", err)
	}
	var doc struct {
		Steps []domain.Step `yaml:"steps"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("registry: parse catalog: %w", err)
	}
	return New(doc.Steps)
}

// Steps returns the catalog in registry order. The returned slice is a copy;
// the catalog itself never changes.
func (r *Registry) Steps() []domain.Step {
	out := make([]domain.Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Step returns the step with the given id.
func (r *Registry) Step(id string) (domain.Step, error) {
	i, ok := r.byID[id]
	if !ok {
		return domain.Step{}, fmt.Errorf("%w: %q", ErrStepNotFound, id)
	}
	return r.steps[i], nil
}

// TemplateFor returns the payload template for the given step id.
func (r *Registry) TemplateFor(id string) (domain.Payload, error) {
	step, err := r.Step(id)
	if err != nil {
		return domain.Payload{}, err
	}
	return step.Template, nil
}

// Len returns the number of steps in the catalog.
func (r *Registry) Len() int {
	return len(r.steps)
}

func validateTemplate(step domain.Step) error {
	tmpl := step.Template
	if tmpl.ID != step.ID {
		return fmt.Errorf("registry: step %q template id is %q", step.ID, tmpl.ID)
	}
	if strings.TrimSpace(tmpl.Prompt) == "" {
		return fmt.Errorf("registry: step %q has an empty prompt", step.ID)
	}
	switch tmpl.Kind {
	case domain.KindText:
		if tmpl.MinLen < 0 {
			return fmt.Errorf("registry: step %q minLen is negative", step.ID)
		}
		if tmpl.MaxLen != 0 && tmpl.MinLen > tmpl.MaxLen {
			return fmt.Errorf("registry: step %q minLen %d exceeds maxLen %d", step.ID, tmpl.MinLen, tmpl.MaxLen)
		}
	case domain.KindNumeric:
		if tmpl.Min != nil && tmpl.Max != nil && *tmpl.Min > *tmpl.Max {
			return fmt.Errorf("registry: step %q min %v exceeds max %v", step.ID, *tmpl.Min, *tmpl.Max)
		}
	case domain.KindDate, domain.KindReview:
		// No kind-specific constraints.
	case domain.KindRadio, domain.KindSelect, domain.KindCheckbox:
		if len(tmpl.Options) == 0 {
			return fmt.Errorf("registry: step %q has no options", step.ID)
		}
		seen := make(map[string]bool, len(tmpl.Options))
		for _, opt := range tmpl.Options {
			key := strings.ToLower(opt.Value)
			if key == "" {
				return fmt.Errorf("registry: step %q has an option with an empty value", step.ID)
			}
			if seen[key] {
				return fmt.Errorf("registry: step %q has duplicate option %q", step.ID, opt.Value)
			}
			seen[key] = true
		}
		if tmpl.MaxSelect < 0 || (tmpl.MaxSelect > 0 && tmpl.MaxSelect > len(tmpl.Options) && !tmpl.AllowFree) {
			return fmt.Errorf("registry: step %q maxSelect %d is out of range", step.ID, tmpl.MaxSelect)
		}
	default:
		return fmt.Errorf("registry: step %q has unknown kind %q", step.ID, tmpl.Kind)
	}
	return nil
}
