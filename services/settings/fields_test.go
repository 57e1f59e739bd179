package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBooleanValidate(t *testing.T) {
	f := Field{Key: "flag", Kind: Boolean{}, Default: false}

	assert.Equal(t, true, Boolean{}.Validate("true", f))
	assert.Equal(t, true, Boolean{}.Validate(true, f))
	assert.Equal(t, false, Boolean{}.Validate("false", f))
	// only the exact literal counts
	assert.Equal(t, false, Boolean{}.Validate("TRUE", f))
	assert.Equal(t, false, Boolean{}.Validate("1", f))
	assert.Equal(t, false, Boolean{}.Validate(nil, f))
}

func TestNumberValidate(t *testing.T) {
	f := Field{Key: "limit", Kind: Number{}, Default: 5, Min: 0, Max: 10}

	assert.Equal(t, 10, Number{}.Validate(15, f))
	assert.Equal(t, 0, Number{}.Validate(-5, f))
	assert.Equal(t, 0, Number{}.Validate("abc", f))
	assert.Equal(t, 7, Number{}.Validate("7", f))
	assert.Equal(t, 7, Number{}.Validate(7.9, f)) // JSON numbers arrive as float64
}

func TestCheckboxSetValidate(t *testing.T) {
	f := Field{
		Key:     "targets",
		Kind:    CheckboxSet{},
		Default: []string{"a"},
		Options: map[string]string{"a": "A", "b": "B", "c": "C"},
	}

	// unknown keys are dropped, known keys keep submission order
	assert.Equal(t, []string{"a", "b"}, CheckboxSet{}.Validate([]interface{}{"a", "x", "b"}, f))

	// unchecked checkboxes submit the "empty" sentinel
	assert.Equal(t, []string{}, CheckboxSet{}.Validate("empty", f))

	// malformed input yields an empty set
	assert.Equal(t, []string{}, CheckboxSet{}.Validate("a", f))
	assert.Equal(t, []string{}, CheckboxSet{}.Validate(nil, f))
	assert.Equal(t, []string{}, CheckboxSet{}.Validate([]interface{}{}, f))
}

func TestRadioValidate(t *testing.T) {
	f := Field{
		Key:      "mode",
		Kind:     Radio{},
		Default:  "php",
		Options:  map[string]string{"php": "PHP", "js": "JS", "ajax": "AJAX"},
		Disabled: []string{"ajax"},
	}

	assert.Equal(t, "js", Radio{}.Validate("js", f))
	// keys are normalized before lookup
	assert.Equal(t, "js", Radio{}.Validate("JS", f))
	// arrays are invalid for a single-choice field
	assert.Equal(t, "php", Radio{}.Validate([]interface{}{"js"}, f))
	// disabled keys fall back to the default
	assert.Equal(t, "php", Radio{}.Validate("ajax", f))
}

func TestColorValidate(t *testing.T) {
	f := Field{Key: "chart_color", Kind: Color{}, Default: "#536390"}

	assert.Equal(t, "#fff", Color{}.Validate("#fff", f))
	assert.Equal(t, "#FFF", Color{}.Validate("#FFF", f))
	assert.Equal(t, "#1a2b3c", Color{}.Validate("#1a2b3c", f))

	assert.Equal(t, "#536390", Color{}.Validate("red", f))
	assert.Equal(t, "#536390", Color{}.Validate("#12345678", f))
	assert.Equal(t, "#536390", Color{}.Validate("123456", f))

	bare := Field{Key: "chart_color", Kind: Color{}}
	assert.Equal(t, "#000000", Color{}.Validate("red", bare))
}

func TestClassListValidate(t *testing.T) {
	f := Field{Key: "icon_class", Kind: ClassList{}, Default: "dashicons-chart-bar"}

	assert.Equal(t, "foo bar", ClassList{}.Validate("foo bar foo", f))
	assert.Equal(t, "foo", ClassList{}.Validate("foo", f))
	// sanitization strips unsafe characters from each token
	assert.Equal(t, "foo bar", ClassList{}.Validate("f<o>o b!ar", f))
	// a single token that sanitizes to nothing falls back to the default
	assert.Equal(t, "dashicons-chart-bar", ClassList{}.Validate("<>!", f))
}

func TestTextValidate(t *testing.T) {
	f := Field{Key: "label", Kind: Text{}, Default: "Post Views:"}

	assert.Equal(t, "hi", Text{}.Validate("<b>hi</b>", f))
	assert.Equal(t, "Post Views:", Text{}.Validate("  Post Views:  ", f))
	assert.Equal(t, []string{"a", "b"}, Text{}.Validate([]interface{}{"a ", "<i>b</i>"}, f))
}

func TestInfoValidate(t *testing.T) {
	f := Field{Key: "about", Kind: Info{}, Default: ""}

	// informational fields never persist user data
	assert.Equal(t, "", Info{}.Validate("anything", f))
}

func TestUnslash(t *testing.T) {
	assert.Equal(t, `it's "fine"`, unslash(`it\'s \"fine\"`))
	assert.Equal(t, []string{`a\b`}, unslash([]string{`a\\b`}))
	assert.Equal(t, 7, unslash(7))
}

func TestValidateExcludeIPs(t *testing.T) {
	f := Field{Key: "exclude_ips", Kind: Text{}, Default: []string{}}

	got := validateExcludeIPs([]interface{}{"10.0.0.1", "not-an-ip", "2001:db8::1"}, f)
	assert.Equal(t, []string{"10.0.0.1", "2001:db8::1"}, got)

	assert.Equal(t, []string{"10.0.0.1"}, validateExcludeIPs("10.0.0.1", f))
	assert.Equal(t, []string{}, validateExcludeIPs("", f))
}
