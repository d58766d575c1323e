package validate

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the limit of message length in characters
const MaxMessageLength = 280

var (
	ErrEmpty   = errors.New("message is empty and no image is attached")
	ErrTooLong = errors.New("message is too long")
)

// Remaining returns how many characters can still be typed.
// Negative value means the message is too long
func Remaining(message string) int {
	return MaxMessageLength - utf8.RuneCountInString(message)
}

// Message checks if a post with the message can be submitted.
// Blank message is allowed only with an attached image
func Message(message string, hasImage bool) error {
	if Remaining(message) < 0 {
		return ErrTooLong
	}
	if strings.TrimSpace(message) == "" && !hasImage {
		return ErrEmpty
	}

	return nil
}
