package valueobjects

import (
	"fmt"
	"strings"
	"unicode/utf8"

	pkgerrors "optio-backend/pkg/errors"
)

const (
	// DefaultMaxContentLength bounds nexus and optio text.
	DefaultMaxContentLength = 2048

	// DefaultMaxNameLength bounds registered author names.
	DefaultMaxNameLength = 32
)

// Content is the text of a nexus or the label of an optio
type Content struct {
	text string
}

// NewContent validates text against the default length bound
func NewContent(text string) (Content, error) {
	return NewContentWithLimit(text, DefaultMaxContentLength)
}

// NewContentWithLimit validates text against maxLength runes.
// Empty text is rejected; surrounding whitespace is preserved as written.
func NewContentWithLimit(text string, maxLength int) (Content, error) {
	if strings.TrimSpace(text) == "" {
		return Content{}, pkgerrors.NewValidationError("content cannot be empty")
	}
	if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		return Content{}, pkgerrors.NewValidationError(
			fmt.Sprintf("content exceeds maximum length of %d characters", maxLength))
	}
	return Content{text: text}, nil
}

// String returns the content text
func (c Content) String() string {
	return c.text
}

// Len returns the length in runes
func (c Content) Len() int {
	return utf8.RuneCountInString(c.text)
}

// Name is a registered author name
type Name struct {
	value string
}

// NewName trims and validates a name against maxLength runes
func NewName(raw string, maxLength int) (Name, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Name{}, pkgerrors.NewValidationError("name cannot be empty")
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxNameLength
	}
	if utf8.RuneCountInString(value) > maxLength {
		return Name{}, pkgerrors.NewValidationError(
			fmt.Sprintf("name exceeds maximum length of %d characters", maxLength))
	}
	return Name{value: value}, nil
}

// String returns the trimmed name
func (n Name) String() string {
	return n.value
}
