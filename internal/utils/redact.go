package utils

import (
	"regexp"
	"strings"
)

var (
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	identifierPattern = regexp.MustCompile(`\b\d{7,9}\b`)
)

// Redaction placeholders.
const (
	RedactedEmail  = "[REDACTED_EMAIL]"
	RedactedID     = "[REDACTED_ID]"
	RedactedSecret = "[REDACTED]"
)

// Redact masks email addresses and 7-9 digit identifier runs.
// It runs on every failure message and on anything a log line could echo back from a document.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = emailPattern.ReplaceAllString(s, RedactedEmail)
	return identifierPattern.ReplaceAllString(s, RedactedID)
}

// ScrubSecret replaces every occurrence of secret in s. Empty secrets are ignored.
func ScrubSecret(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, RedactedSecret)
}

type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }

// ScrubError returns err with a redacted message that still unwraps to err,
// so errors.Is and errors.As keep working.
func ScrubError(err error, secrets ...string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, s := range secrets {
		msg = ScrubSecret(msg, s)
	}
	return &scrubbedError{msg: Redact(msg), err: err}
}
