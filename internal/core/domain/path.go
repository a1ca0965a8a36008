package domain

import (
	"strings"
	"unicode"

	"go.trai.ch/zerr"
)

// IsRulePath reports whether value names a rule rather than a file. A rule
// path contains a ':' with no path separators after it, such as ":foo" or
// "assets/BUILD.yaml:foo".
func IsRulePath(value string) bool {
	if value == "" {
		return false
	}
	colon := strings.LastIndexByte(value, ':')
	if colon < 0 {
		return false
	}
	rest := value[colon:]
	return !strings.ContainsAny(rest, `/\`)
}

// SplitRulePath splits a rule path into its module part and rule name.
// The module part is empty for local references such as ":foo".
func SplitRulePath(value string) (modulePath, ruleName string, err error) {
	colon := strings.LastIndexByte(value, ':')
	if colon < 0 {
		return "", "", zerr.With(ErrInvalidName, "path", value)
	}
	return value[:colon], value[colon+1:], nil
}

// ValidateRuleName checks that name is usable as a rule name: non-empty,
// free of whitespace, and not starting with ':'.
func ValidateRuleName(name string) error {
	if name == "" {
		return zerr.With(ErrInvalidName, "reason", "empty name")
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return zerr.With(zerr.With(ErrInvalidName, "name", name), "reason", "contains whitespace")
	}
	if name[0] == ':' {
		return zerr.With(zerr.With(ErrInvalidName, "name", name), "reason", "starts with ':'")
	}
	return nil
}

// ValidatePaths checks a list of src/dep path strings. With requireRule set
// every value must be a rule path (contain a ':').
func ValidatePaths(values []string, requireRule bool) error {
	for _, value := range values {
		if value == "" {
			return zerr.With(ErrInvalidName, "reason", "empty path")
		}
		if strings.TrimSpace(value) != value {
			return zerr.With(zerr.With(ErrInvalidName, "path", value), "reason", "leading or trailing whitespace")
		}
		if requireRule && !IsRulePath(value) {
			return zerr.With(zerr.With(ErrInvalidName, "path", value), "reason", "not a rule path (missing ':')")
		}
	}
	return nil
}
