package tui

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLine bounds a single prompt line typed in the terminal.
const DefaultMaxLine = 16 * 1024

// EnvMaxLine overrides DefaultMaxLine.
const EnvMaxLine = "FIGFLOW_MAX_LINE"

var (
	ErrLineTooLong = errors.New("line exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("line contains invalid UTF-8")
)

// CleanLine rejects oversized or malformed terminal input and strips control
// characters other than tab, so escape sequences never reach the prompt or the logs.
func CleanLine(line string) (string, error) {
	if limit := maxLine(); len(line) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrLineTooLong, len(line), limit)
	}
	if !utf8.ValidString(line) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(line, unsafeControl) < 0 {
		return line, nil
	}

	var b strings.Builder
	b.Grow(len(line))
	for _, r := range line {
		if !unsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\t'
}

func maxLine() int {
	if v := os.Getenv(EnvMaxLine); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxLine
}
