package errs

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrNotFound marks operations addressing an unknown invoice or override.
var ErrNotFound = errors.New("not found")

// ScanError wraps an unreadable or inaccessible file during a folder scan.
// Scans log it and continue with the next file.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ExtractionError wraps an OCR or provider failure, including malformed or
// incomplete structured responses. Stage is "ocr" or "extract".
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError marks malformed user input, e.g. an unsupported OCR
// language or an unknown field name.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CredentialError marks a provider rejecting the configured key.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential rejected: %v", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

const maxMessageRunes = 500

// Sanitize prepares an error message for logs and user-facing notifications:
// control characters are stripped and the result is truncated. Raw provider
// error text is never propagated verbatim.
func Sanitize(msg string) string {
	var b strings.Builder
	count := 0
	for _, r := range msg {
		if unicode.IsControl(r) {
			r = ' '
		}
		b.WriteRune(r)
		count++
		if count >= maxMessageRunes {
			break
		}
	}
	return strings.TrimSpace(b.String())
}
