/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package errors provides a small set of error-construction helpers used
// uniformly across the decision core's stages and adapters, so that every
// captured failure carries operation/component/resource context before it
// is appended to a pipeline run's error list.
package errors

import (
	"fmt"
	"strings"
)

// OperationError describes a failed operation with optional component and
// resource context and an underlying cause.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	b.WriteString("failed to ")
	b.WriteString(e.Operation)
	if e.Component != "" {
		b.WriteString(", component: ")
		b.WriteString(e.Component)
	}
	if e.Resource != "" {
		b.WriteString(", resource: ")
		b.WriteString(e.Resource)
	}
	if e.Cause != nil {
		b.WriteString(", cause: ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, or nil if there is none.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo builds a plain error with a "failed to <action>[: cause]" message.
func FailedTo(action string, cause error) error {
	return &simpleError{msg: buildFailedTo(action, cause)}
}

func buildFailedTo(action string, cause error) string {
	if cause == nil {
		return "failed to " + action
	}
	return fmt.Sprintf("failed to %s: %s", action, cause.Error())
}

// simpleError is a minimal error wrapper used by FailedTo and Wrapf so their
// Error() text matches exactly without dragging OperationError's extra
// "component"/"resource" formatting into every call site.
type simpleError struct {
	msg   string
	cause error
}

func (e *simpleError) Error() string { return e.msg }
func (e *simpleError) Unwrap() error { return e.cause }

// FailedToWithDetails builds an *OperationError carrying operation, component,
// resource and cause.
func FailedToWithDetails(operation, component, resource string, cause error) error {
	return &OperationError{
		Operation: operation,
		Component: component,
		Resource:  resource,
		Cause:     cause,
	}
}

// Wrapf wraps err with an additional formatted message, returning nil when
// err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return &simpleError{msg: msg + ": " + err.Error(), cause: err}
}

// DatabaseError builds a component-tagged error for relational/team-registry failures.
func DatabaseError(operation string, cause error) error {
	return FailedToWithDetails(operation, "database", "", cause)
}

// NetworkError builds a component-tagged error for transport failures (LLM, KG, RAG adapters).
func NetworkError(operation, endpoint string, cause error) error {
	return FailedToWithDetails(operation, "network", endpoint, cause)
}

// ValidationError reports a field-level validation failure.
func ValidationError(field, reason string) error {
	return &simpleError{msg: fmt.Sprintf("validation failed for field %s: %s", field, reason)}
}

// ConfigurationError reports a malformed or missing configuration setting.
func ConfigurationError(setting, reason string) error {
	return &simpleError{msg: fmt.Sprintf("configuration error for setting %s: %s", setting, reason)}
}

// TimeoutError reports an operation that exceeded its deadline.
func TimeoutError(operation, duration string) error {
	return &simpleError{msg: fmt.Sprintf("timeout while %s after %s", operation, duration)}
}

// AuthenticationError reports a failed authentication attempt.
func AuthenticationError(reason string) error {
	return &simpleError{msg: fmt.Sprintf("authentication failed: %s", reason)}
}

// AuthorizationError reports an insufficient-permission failure for an action on a resource.
func AuthorizationError(action, resource string) error {
	return &simpleError{msg: fmt.Sprintf("authorization failed: insufficient permissions to %s %s", action, resource)}
}

// ParseError reports a failure to parse a source as a given format.
func ParseError(source, format string, cause error) error {
	return FailedToWithDetails(fmt.Sprintf("parse %s as %s", source, format), "parser", "", cause)
}

// retryableSubstrings lists lowercase phrases that indicate a transient,
// retry-worthy failure. Kept minimal and explicit rather than pattern-matched
// against an error taxonomy of types, since errors crossing adapter
// boundaries are frequently plain transport errors.
var retryableSubstrings = []string{
	"timeout",
	"connection refused",
	"unavailable",
	"temporarily",
	"reset by peer",
	"broken pipe",
}

// IsRetryable reports whether err looks like a transient failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Chain joins a sequence of errors (ignoring nils) into one error. Returns
// nil if all inputs are nil, and an error with the lone error's message
// (without a "multiple errors" prefix) if there's exactly one non-nil error.
// The returned error does not wrap its inputs.
func Chain(errs ...error) error {
	var msgs []string
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	switch len(msgs) {
	case 0:
		return nil
	case 1:
		return &simpleError{msg: msgs[0]}
	default:
		return &simpleError{msg: "multiple errors: " + strings.Join(msgs, "; ")}
	}
}
