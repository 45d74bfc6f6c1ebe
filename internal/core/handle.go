package core

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxHandleLength is the longest handle a storefront accepts.
const MaxHandleLength = 255

var handlePattern = regexp.MustCompile(`(?i)^[a-z0-9][a-z0-9._-]*$`)

// ValidateHandle checks that handle is usable as a single URL path segment.
func ValidateHandle(handle string) error {
	value := strings.TrimSpace(handle)
	if value == "" {
		return fmt.Errorf("%w: handle is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(value) > MaxHandleLength {
		return fmt.Errorf("%w: handle exceeds %d characters", ErrInvalidInput, MaxHandleLength)
	}
	if !handlePattern.MatchString(value) {
		return fmt.Errorf("%w: handle %q contains unsupported characters", ErrInvalidInput, value)
	}
	return nil
}

// ValidateKind rejects unknown resource kinds.
func ValidateKind(kind ResourceKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown resource kind %q", ErrInvalidInput, kind)
	}
	return nil
}
