package settings

import (
	"regexp"
	"strings"
)

// Kind is one field variant. Each kind carries its own validation behavior;
// validators are pure functions of the submitted value and field metadata,
// so revalidating validated output yields the same output.
type Kind interface {
	Validate(value interface{}, f Field) interface{}
}

// Field describes one settings entry. Metadata is immutable configuration
// supplied by a group definition; only the persisted value changes.
type Field struct {
	Key     string
	Title   string
	Kind    Kind
	Default interface{}

	// choice kinds
	Options  map[string]string
	Disabled []string // keys rendered but not selectable

	// number bounds
	Min int
	Max int

	// present in the UI but never persisted (feature-gated placeholders)
	SkipSaving bool

	// custom validator, used instead of the kind validator when set.
	// For Custom kind fields it receives and returns the whole document.
	ValidateFunc func(value interface{}, f Field) interface{}

	// applied after defaults during a reset, for derived values
	ResetFunc func(value interface{}, f Field) interface{}
}

// Boolean accepts the literal string "true" or boolean true; everything
// else maps to false.
type Boolean struct{}

func (Boolean) Validate(value interface{}, f Field) interface{} {
	return value == "true" || value == true
}

// Radio normalizes a single choice key; arrays and disabled keys fall back
// to the field default.
type Radio struct{}

func (Radio) Validate(value interface{}, f Field) interface{} {
	if _, isSlice := value.([]interface{}); isSlice {
		return f.Default
	}

	key := sanitizeKey(toString(value))
	for _, disabled := range f.Disabled {
		if key == disabled {
			return f.Default
		}
	}

	return key
}

// CheckboxSet keeps submitted keys that exist in the options enumeration.
// The sentinel "empty" maps to an empty set because unchecked boxes submit
// nothing; malformed input yields an empty set.
type CheckboxSet struct{}

func (CheckboxSet) Validate(value interface{}, f Field) interface{} {
	if value == "empty" {
		return []string{}
	}

	items, ok := toSlice(value)
	if !ok || len(items) == 0 {
		return []string{}
	}

	kept := make([]string, 0, len(items))
	for _, item := range items {
		key := sanitizeKey(toString(item))
		if _, exists := f.Options[key]; exists {
			kept = append(kept, key)
		}
	}

	return kept
}

// Number casts to integer and clamps to [Min, Max]
type Number struct{}

func (Number) Validate(value interface{}, f Field) interface{} {
	n := toInt(value)

	if n < f.Min {
		n = f.Min
	}
	if n > f.Max {
		n = f.Max
	}

	return n
}

var colorPattern = regexp.MustCompile(`^#[a-fA-F0-9]{3,6}$`)

// Color accepts #-prefixed 3 to 6 hex digit values; anything else falls
// back to the field default, then to black.
type Color struct{}

func (Color) Validate(value interface{}, f Field) interface{} {
	s := strings.TrimSpace(toString(value))
	if colorPattern.MatchString(s) {
		return s
	}

	if fallback, ok := f.Default.(string); ok && fallback != "" {
		return fallback
	}
	return "#000000"
}

// Info fields are never persisted as user data
type Info struct{}

func (Info) Validate(value interface{}, f Field) interface{} {
	return ""
}

// Custom delegates validation entirely to the field's ValidateFunc; without
// one the value passes through untouched
type Custom struct{}

func (Custom) Validate(value interface{}, f Field) interface{} {
	return value
}

// ClassList sanitizes space-separated tokens to safe HTML class names and
// deduplicates them. A single token falls back to the field default when
// sanitization leaves nothing.
type ClassList struct{}

func (ClassList) Validate(value interface{}, f Field) interface{} {
	s := strings.TrimSpace(toString(value))

	if !strings.Contains(s, " ") {
		class := sanitizeHTMLClass(s)
		if class == "" {
			if fallback, ok := f.Default.(string); ok {
				return fallback
			}
			return ""
		}
		return class
	}

	seen := make(map[string]bool)
	kept := make([]string, 0)
	for _, token := range strings.Fields(s) {
		class := sanitizeHTMLClass(token)
		if class == "" || seen[class] {
			continue
		}
		seen[class] = true
		kept = append(kept, class)
	}

	return strings.Join(kept, " ")
}

// Text is the default kind for plain inputs and selects: scalar or
// per-element plain-text sanitization
type Text struct{}

func (Text) Validate(value interface{}, f Field) interface{} {
	if items, ok := toSlice(value); ok {
		kept := make([]string, 0, len(items))
		for _, item := range items {
			kept = append(kept, sanitizeText(toString(item)))
		}
		return kept
	}

	return sanitizeText(toString(value))
}
