package settings

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	keyPattern   = regexp.MustCompile(`[^a-z0-9_\-]`)
	classPattern = regexp.MustCompile(`[^A-Za-z0-9_\-]`)
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
)

// sanitizeKey lowercases and strips everything outside [a-z0-9_-]
func sanitizeKey(s string) string {
	return keyPattern.ReplaceAllString(strings.ToLower(s), "")
}

// sanitizeHTMLClass strips everything that is not valid in an HTML class name
func sanitizeHTMLClass(s string) string {
	return classPattern.ReplaceAllString(s, "")
}

// sanitizeText reduces a value to safe plain text: tags and null bytes
// removed, whitespace trimmed
func sanitizeText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// unslash removes one level of backslash escaping from every string in the
// value, recursively. Validator outputs pass through this before being
// accepted.
func unslash(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return unslashString(v)
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = unslashString(s)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = unslash(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = unslash(item)
		}
		return out
	default:
		return value
	}
}

func unslashString(s string) string {
	replacer := strings.NewReplacer(`\\`, `\`, `\'`, `'`, `\"`, `"`)
	return replacer.Replace(s)
}

// toString renders scalar values the way form submissions do
func toString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		// JSON numbers decode as float64
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toInt casts loosely typed input to an integer, non-numeric input to zero
func toInt(value interface{}) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// toSlice accepts both []interface{} (decoded JSON) and []string
func toSlice(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
