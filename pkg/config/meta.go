package config

import (
	"errors"
	"fmt"
	"strings"
)

type FieldType string

const (
	FieldTypeNumber   FieldType = "number"
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeSelect   FieldType = "select"
)

type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Field struct {
	Name         string        `json:"name"`
	Type         FieldType     `json:"type"`
	Label        string        `json:"label"`
	DefaultValue any           `json:"defaultValue"`
	Placeholder  string        `json:"placeholder,omitempty"`
	HelpText     string        `json:"helpText,omitempty"`
	Required     bool          `json:"required,omitempty"`
	Options      []FieldOption `json:"options,omitempty"`
}

var ErrMissingField = errors.New("missing required field")

// WithDefaults returns a copy of values where empty fields take their
// declared default.
func WithDefaults(fields []Field, values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	for _, f := range fields {
		if strings.TrimSpace(out[f.Name]) == "" && f.DefaultValue != nil {
			out[f.Name] = fmt.Sprint(f.DefaultValue)
		}
	}
	return out
}

// Validate checks that every required field has a value and that select
// fields hold one of their options.
func Validate(fields []Field, values map[string]string) error {
	var errs []error
	for _, f := range fields {
		v := strings.TrimSpace(values[f.Name])
		if v == "" {
			if f.Required {
				errs = append(errs, fmt.Errorf("%w: %s", ErrMissingField, f.Name))
			}
			continue
		}
		if f.Type == FieldTypeSelect && len(f.Options) > 0 && !hasOption(f.Options, v) {
			errs = append(errs, fmt.Errorf("field %s: %q is not an allowed value", f.Name, v))
		}
	}
	return errors.Join(errs...)
}

func hasOption(options []FieldOption, v string) bool {
	for _, o := range options {
		if o.Value == v {
			return true
		}
	}
	return false
}
