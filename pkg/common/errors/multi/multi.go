/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package multi is an error type that holds multiple errors. The SDK uses it
// when every problem of an input should be reported at once, for example
// when validating a client configuration.
package multi

import (
	"strings"
)

// Errors is used to represent multiple errors
type Errors []error

// New Errors object with the given errors. Only non-nil errors are added.
func New(errs ...error) error {
	var errors Errors
	for _, err := range errs {
		if err != nil {
			errors = append(errors, err)
		}
	}
	return errors.ToError()
}

// Append error to Errors. If the first arg is not an Errors object, one will be created
func Append(errs error, err error) error {
	m, ok := errs.(Errors)
	if !ok {
		return New(errs, err)
	}
	if err == nil {
		return errs
	}
	return append(m, err)
}

// ToError converts Errors to the error interface
// returns nil if no errors are present, a single error object if only one is present
func (errs Errors) ToError() error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errs
	}
}

// Unwrap exposes the contained errors to errors.Is and errors.As
func (errs Errors) Unwrap() []error {
	return errs
}

// Error implements the error interface to return a string representation of Errors
func (errs Errors) Error() string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	msgs := make([]string, 0, len(errs)+1)
	if len(errs) > 1 {
		msgs = append(msgs, "Multiple errors occurred:")
	}
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, " - ")
}
