// Package parse extracts numbers and voice identifiers from administrator replies.
package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// MinVoiceIDLength is the shortest voice id accepted from free text.
const MinVoiceIDLength = 10

// Kind classifies a parse failure.
type Kind int

const (
	// NoNumberFound means the text contains no ASCII digit.
	NoNumberFound Kind = iota + 1
	// NumberTooLarge means the first digit run overflows int64.
	NumberTooLarge
	// MissingSeparator means an "id | name" pair lacks the '|'.
	MissingSeparator
	// IDTooShort means the voice id is shorter than MinVoiceIDLength.
	IDTooShort
)

func (k Kind) String() string {
	switch k {
	case NoNumberFound:
		return "no_number_found"
	case NumberTooLarge:
		return "number_too_large"
	case MissingSeparator:
		return "missing_separator"
	case IDTooShort:
		return "id_too_short"
	}
	return "unknown"
}

// Error is a recoverable input validation failure.
type Error struct {
	Kind  Kind
	Input string
}

func (e *Error) Error() string {
	switch e.Kind {
	case NoNumberFound:
		return "no number found"
	case NumberTooLarge:
		return "number is too large"
	case MissingSeparator:
		return "expected <voice_id> | <voice_name>"
	case IDTooShort:
		return fmt.Sprintf("voice id must be at least %d characters", MinVoiceIDLength)
	}
	return "invalid input"
}

// Code exposes the kind for handler summaries.
func (e *Error) Code() string { return e.Kind.String() }

// Amount is a number taken from free text.
type Amount struct {
	Value int64
	// SignDropped is set when the digits were preceded by '-', which is ignored.
	SignDropped bool
}

// NonNegativeInt returns the value of the first run of ASCII digits in text.
// Signs and decimal points are not interpreted: "-5" yields 5 and "2.5" yields 2.
func NonNegativeInt(text string) (int64, error) {
	a, err := ParseAmount(text)
	if err != nil {
		return 0, err
	}
	return a.Value, nil
}

// ParseAmount behaves like NonNegativeInt and additionally reports a dropped minus sign.
func ParseAmount(text string) (Amount, error) {
	start := strings.IndexFunc(text, isDigit)
	if start < 0 {
		return Amount{}, &Error{Kind: NoNumberFound, Input: text}
	}
	end := start
	for end < len(text) && isDigit(rune(text[end])) {
		end++
	}
	v, err := strconv.ParseInt(text[start:end], 10, 64)
	if err != nil {
		return Amount{}, &Error{Kind: NumberTooLarge, Input: text}
	}
	return Amount{Value: v, SignDropped: start > 0 && text[start-1] == '-'}, nil
}

// IDNamePair splits "id | name" on the first '|'. Both sides are trimmed and an
// empty name falls back to the id.
func IDNamePair(text string) (id, name string, err error) {
	left, right, ok := strings.Cut(text, "|")
	if !ok {
		return "", "", &Error{Kind: MissingSeparator, Input: text}
	}
	id, err = VoiceID(left)
	if err != nil {
		return "", "", err
	}
	name = strings.TrimSpace(right)
	if name == "" {
		name = id
	}
	return id, name, nil
}

// VoiceID trims text and checks the minimum id length.
func VoiceID(text string) (string, error) {
	id := strings.TrimSpace(text)
	if len(id) < MinVoiceIDLength {
		return "", &Error{Kind: IDTooShort, Input: text}
	}
	return id, nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
