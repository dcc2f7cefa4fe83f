package shell

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxCommandLength is the command-length cap applied when no explicit
// limit is configured.
const DefaultMaxCommandLength = 10000

// ErrEmptyCommand is returned for commands that are empty or whitespace-only.
var ErrEmptyCommand = errors.New("Empty command provided")

// CommandTooLongError is returned for commands exceeding the configured
// maximum length.
type CommandTooLongError struct {
	Length int
	Max    int
}

func (e *CommandTooLongError) Error() string {
	return fmt.Sprintf("Command too long (max %d characters)", e.Max)
}

// ValidateCommand rejects empty and oversized commands. It is pure and must
// be called before any process is spawned. The length limit is in characters,
// not bytes, so multibyte scripts are not penalized.
func ValidateCommand(command string, maxLen int) error {
	if strings.TrimSpace(command) == "" {
		return ErrEmptyCommand
	}
	if n := utf8.RuneCountInString(command); n > maxLen {
		return &CommandTooLongError{Length: n, Max: maxLen}
	}
	return nil
}
