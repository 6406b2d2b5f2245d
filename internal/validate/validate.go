// Package validate checks raw answers against payload templates. It is
// pure: no I/O, no state. Each payload kind has exactly one validator,
// dispatched through a lookup table.
package validate

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"onboarding-agent/internal/domain"
)

// Reason is a machine-readable rejection code for client display. An empty
// Reason means the answer was accepted.
type Reason string

const (
	ReasonRequired      Reason = "required"
	ReasonTooShort      Reason = "too_short"
	ReasonTooLong       Reason = "too_long"
	ReasonOutOfRange    Reason = "out_of_range"
	ReasonInvalidChoice Reason = "invalid_choice"
	ReasonInvalidFormat Reason = "invalid_format"
)

const (
	// Birthday plausibility window. The original product required users to
	// be at least 13 and treats anything past 120 years as a typo.
	minAgeYears = 13
	maxAgeYears = 120
)

type validatorFunc func(domain.Payload, string) (string, Reason)

var validators = map[domain.PayloadKind]validatorFunc{
	domain.KindText:     text,
	domain.KindNumeric:  numeric,
	domain.KindDate:     date,
	domain.KindRadio:    singleOption,
	domain.KindSelect:   multiOption,
	domain.KindCheckbox: multiOption,
	domain.KindReview:   review,
}

// Answer validates raw against the template and returns the normalized
// value. A non-empty Reason means the answer was rejected; the normalized
// value is then empty and must not be recorded.
func Answer(tmpl domain.Payload, raw string) (string, Reason) {
	fn, ok := validators[tmpl.Kind]
	if !ok {
		return "", ReasonInvalidFormat
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		if tmpl.Required {
			return "", ReasonRequired
		}
		return "", ""
	}
	return fn(tmpl, value)
}

func text(tmpl domain.Payload, value string) (string, Reason) {
	n := utf8.RuneCountInString(value)
	if tmpl.MinLen > 0 && n < tmpl.MinLen {
		return "", ReasonTooShort
	}
	if tmpl.MaxLen > 0 && n > tmpl.MaxLen {
		return "", ReasonTooLong
	}
	return value, ""
}

func numeric(tmpl domain.Payload, value string) (string, Reason) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", ReasonInvalidFormat
	}
	if tmpl.Min != nil && v < *tmpl.Min {
		return "", ReasonOutOfRange
	}
	if tmpl.Max != nil && v > *tmpl.Max {
		return "", ReasonOutOfRange
	}
	return strconv.FormatFloat(v, 'f', -1, 64), ""
}

func date(_ domain.Payload, value string) (string, Reason) {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return "", ReasonInvalidFormat
	}
	now := time.Now().UTC()
	if d.After(now) {
		return "", ReasonOutOfRange
	}
	if d.After(now.AddDate(-minAgeYears, 0, 0)) || d.Before(now.AddDate(-maxAgeYears, 0, 0)) {
		return "", ReasonOutOfRange
	}
	return d.Format(time.DateOnly), ""
}

func singleOption(tmpl domain.Payload, value string) (string, Reason) {
	opt, ok := tmpl.FindOption(value)
	if !ok {
		return "", ReasonInvalidChoice
	}
	return opt.Value, ""
}

// multiOption validates comma-separated selections for select and checkbox
// kinds. Entries matching an option are canonicalized to the option value;
// free-text entries are allowed only when the template says so.
func multiOption(tmpl domain.Payload, value string) (string, Reason) {
	parts := splitSelections(value)
	if len(parts) == 0 {
		if tmpl.Required {
			return "", ReasonRequired
		}
		return "", ""
	}
	if !tmpl.Multi && tmpl.Kind == domain.KindSelect && len(parts) > 1 {
		return "", ReasonInvalidChoice
	}
	if tmpl.MaxSelect > 0 && len(parts) > tmpl.MaxSelect {
		return "", ReasonOutOfRange
	}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if opt, ok := tmpl.FindOption(part); ok {
			out = append(out, opt.Value)
			continue
		}
		if !tmpl.AllowFree {
			return "", ReasonInvalidChoice
		}
		if tmpl.MaxLen > 0 && utf8.RuneCountInString(part) > tmpl.MaxLen {
			return "", ReasonTooLong
		}
		out = append(out, part)
	}
	return strings.Join(out, ", "), ""
}

func review(_ domain.Payload, value string) (string, Reason) {
	switch strings.ToLower(value) {
	case "yes", "y":
		return "yes", ""
	case "no", "n":
		return "no", ""
	}
	return "", ReasonInvalidChoice
}

func splitSelections(value string) []string {
	raw := strings.Split(value, ",")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
