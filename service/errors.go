package service

import (
	"errors"
	"fmt"
	"strings"
)

// FailureCode classifies why a conversion could not complete.
type FailureCode string

const (
	CodeInvalidInput           FailureCode = "invalid_input"
	CodeInputTooLong           FailureCode = "input_too_long"
	CodeUnavailable            FailureCode = "unavailable"
	CodeCopyrightRestricted    FailureCode = "copyright_restricted"
	CodeAccessDenied           FailureCode = "access_denied"
	CodeAuthenticationRequired FailureCode = "authentication_required"
	CodeTimeout                FailureCode = "timeout"
	CodeInvalidArtifact        FailureCode = "invalid_artifact"
	CodeOversizedArtifact      FailureCode = "oversized_artifact"
	CodeToolExecutionFailure   FailureCode = "tool_execution_failure"
	CodeUnexpectedError        FailureCode = "unexpected_error"
)

// Failure is a handled pipeline failure. It transitions the job straight to
// failed; the dispatcher never retries it.
type Failure struct {
	Code    FailureCode
	Message string
	Cause   error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Failure) Unwrap() error { return f.Cause }

func newFailure(code FailureCode, message string) *Failure {
	return &Failure{Code: code, Message: message}
}

// AsFailure unwraps err into a *Failure when it carries one.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// maxStoredMessageLen bounds error_message before it is written to the job,
// so an arbitrarily long tool dump never lands in the database.
const maxStoredMessageLen = 500

func truncateMessage(msg string) string {
	if len(msg) > maxStoredMessageLen {
		return msg[:maxStoredMessageLen]
	}
	return msg
}

// classificationRule maps tool-output signatures to a failure. Substring
// matching is case-sensitive; rules are evaluated in order and the first
// match wins.
type classificationRule struct {
	substrings []string
	code       FailureCode
	message    string
}

var classificationRules = []classificationRule{
	{
		substrings: []string{"copyright claim", "blocked it on copyright grounds"},
		code:       CodeCopyrightRestricted,
		message:    "This video cannot be converted due to a copyright restriction.",
	},
	{
		substrings: []string{"Video unavailable", "video is unavailable", "has been removed"},
		code:       CodeUnavailable,
		message:    "This video is unavailable or has been removed.",
	},
	{
		substrings: []string{"Private video", "private video"},
		code:       CodeAccessDenied,
		message:    "This video is private and cannot be accessed.",
	},
	{
		substrings: []string{"Sign in to confirm", "sign in to view"},
		code:       CodeAuthenticationRequired,
		message:    "This video requires signing in to access.",
	},
	{
		substrings: []string{"ERROR"},
		code:       CodeToolExecutionFailure,
		message:    "The download tool reported an error.",
	},
}

// classifyOutput matches combined tool output against the rule table. It
// returns nil when no signature is present.
func classifyOutput(output string) *Failure {
	for _, rule := range classificationRules {
		for _, sub := range rule.substrings {
			if strings.Contains(output, sub) {
				return newFailure(rule.code, rule.message)
			}
		}
	}
	return nil
}
