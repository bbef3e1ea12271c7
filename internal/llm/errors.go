// Package llm provides LLM and embedding services using langchaingo.
package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFatalAPI marks API errors that retrying cannot fix: bad
// credentials, billing problems, exhausted quota. Callers should stop
// retrying and surface these immediately.
var ErrFatalAPI = errors.New("fatal API error")

// fatalPatterns are substrings that identify non-retryable API errors.
// Rate limiting is deliberately absent: it is transient and covered by
// the retry budget.
var fatalPatterns = []string{
	"credit balance",
	"quota exceeded",
	"billing",
	"invalid api key",
	"incorrect api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

// isFatalAPIError reports whether err is a non-retryable API failure.
func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range fatalPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// wrapFatalError wraps fatal API errors with ErrFatalAPI so callers
// can match them with errors.Is. Non-fatal errors pass through
// unchanged.
func wrapFatalError(err error) error {
	if err == nil {
		return nil
	}
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %v", ErrFatalAPI, err)
	}
	return err
}
