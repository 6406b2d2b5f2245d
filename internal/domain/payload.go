package domain

import "strings"

// PayloadKind discriminates the question payload union. The client renders
// one widget per kind and the validator dispatches one rule set per kind;
// adding a kind means one new constant, one validator table entry, and one
// renderer.
type PayloadKind string

const (
	KindText     PayloadKind = "text"
	KindNumeric  PayloadKind = "numeric"
	KindDate     PayloadKind = "date"
	KindRadio    PayloadKind = "radio"
	KindSelect   PayloadKind = "select"
	KindCheckbox PayloadKind = "checkbox"
	KindReview   PayloadKind = "review"
)

// Option is one selectable value for the option-backed kinds.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Payload describes the question currently being asked. It is a closed
// tagged union over Kind; only the fields relevant to a given kind are
// populated and all constraint fields are validated by the registry at
// catalog build time.
type Payload struct {
	Kind        PayloadKind `json:"kind" yaml:"kind"`
	ID          string      `json:"id" yaml:"id"`
	Prompt      string      `json:"prompt" yaml:"prompt"`
	Placeholder string      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool        `json:"required,omitempty" yaml:"required,omitempty"`

	// Text kinds. MinLen/MaxLen are rune counts; 0 means unset.
	MinLen int `json:"minLen,omitempty" yaml:"minLen,omitempty"`
	MaxLen int `json:"maxLen,omitempty" yaml:"maxLen,omitempty"`

	// Numeric kind. Pointers so that 0 is a usable bound.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	// Option kinds (radio, select, checkbox).
	Options   []Option `json:"options,omitempty" yaml:"options,omitempty"`
	Multi     bool     `json:"multi,omitempty" yaml:"multi,omitempty"`
	MaxSelect int      `json:"maxSelect,omitempty" yaml:"maxSelect,omitempty"`
	// AllowFree permits entries outside Options (e.g. a training style the
	// catalog did not anticipate), capped at MaxLen runes per entry.
	AllowFree bool `json:"allowFree,omitempty" yaml:"allowFree,omitempty"`

	// Review kind. Summary is derived from recorded answers when the
	// snapshot is assembled, never stored in the catalog.
	Summary string `json:"summary,omitempty" yaml:"-"`
}

// FindOption returns the canonical option matching value, if any. Matching
// is case-insensitive on both value and label so "Male" resolves to "male".
func (p Payload) FindOption(value string) (Option, bool) {
	for _, opt := range p.Options {
		if strings.EqualFold(opt.Value, value) || strings.EqualFold(opt.Label, value) {
			return opt, true
		}
	}
	return Option{}, false
}

// HasOptions reports whether the kind is backed by an option list.
func (p Payload) HasOptions() bool {
	switch p.Kind {
	case KindRadio, KindSelect, KindCheckbox:
		return true
	}
	return false
}
