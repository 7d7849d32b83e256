/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status defines metadata for errors returned by the SDK. This
// information may be used by SDK users to make decisions about how to handle
// certain error conditions.
// Status codes are divided by group, where each group represents a particular
// component and the codes correspond to those returned by the component.
package status

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/multi"
)

// Status provides additional information about an unsuccessful operation
// performed by the SDK. Essentially, this object contains metadata about
// an error returned by the SDK.
type Status struct {
	// Group status group
	Group Group
	// Code status code
	Code int32
	// Message status message
	Message string
	// Details any additional status details
	Details []interface{}
}

// Group of status to help users infer status codes from various components
type Group int32

const (
	// UnknownStatus unknown status group
	UnknownStatus Group = iota

	// HTTPTransportStatus is the status associated with requests that never
	// produced an HTTP response (connection refused, canceled, timed out)
	HTTPTransportStatus

	// FabricCAServerStatus is a non-2xx HTTP status returned by the
	// CA facing endpoints of the gateway. Code is the HTTP status code.
	FabricCAServerStatus

	// GatewayServerStatus is a non-2xx HTTP status returned by the
	// transaction endpoints of the gateway. Code is the HTTP status code.
	GatewayServerStatus

	// ClientStatus is a status inferred locally by the SDK, for example from
	// response validation or signing
	ClientStatus

	// TestStatus is used by tests to create retry codes.
	TestStatus
)

// GroupName maps the groups in this packages to human-readable strings
var GroupName = map[int32]string{
	0: "Unknown",
	1: "HTTP Transport Status",
	2: "Fabric CA Server Status",
	3: "Gateway Server Status",
	4: "Client Status",
	5: "Test status",
}

func (g Group) String() string {
	if s, ok := GroupName[int32(g)]; ok {
		return s
	}
	return UnknownStatus.String()
}

// FromError returns a Status representing err if available,
// otherwise it returns nil, false.
func FromError(err error) (s *Status, ok bool) {
	if err == nil {
		return &Status{Code: int32(OK)}, true
	}
	if s, ok := err.(*Status); ok {
		return s, true
	}
	unwrappedErr := errors.Cause(err)
	if s, ok := unwrappedErr.(*Status); ok {
		return s, true
	}
	if m, ok := unwrappedErr.(multi.Errors); ok {
		// Return all of the errors in the details
		var errs []interface{}
		for _, err := range m {
			errs = append(errs, err)
		}
		return New(ClientStatus, MultipleErrors.ToInt32(), m.Error(), errs), true
	}

	return nil, false
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s Code: (%d) %s. Description: %s", s.Group.String(), s.Code, s.codeString(), s.Message)
}

func (s *Status) codeString() string {
	switch s.Group {
	case FabricCAServerStatus, GatewayServerStatus:
		if text := http.StatusText(int(s.Code)); text != "" {
			return text
		}
		return Unknown.String()
	case HTTPTransportStatus, ClientStatus, TestStatus:
		return ToSDKStatusCode(s.Code).String()
	default:
		return Unknown.String()
	}
}

// New returns a Status with the given parameters
func New(group Group, code int32, msg string, details []interface{}) *Status {
	return &Status{Group: group, Code: code, Message: msg, Details: details}
}

// NewClient returns a ClientStatus with the given code and message
func NewClient(code Code, msg string) *Status {
	return New(ClientStatus, code.ToInt32(), msg, nil)
}

// NewFromHTTPResponse creates a status for a non-2xx HTTP response received
// from the given group of endpoints. The response body, if any, is kept in
// the details.
func NewFromHTTPResponse(group Group, statusCode int, url string, body []byte) *Status {
	details := []interface{}{url}
	if len(body) > 0 {
		details = append(details, string(body))
	}
	return New(group, int32(statusCode), fmt.Sprintf("%s returned HTTP %d", url, statusCode), details)
}

// FromContext returns the transport status of a done context: Timeout when
// its deadline was exceeded, Canceled otherwise. It returns nil while the
// context is live.
func FromContext(ctx context.Context) *Status {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	code := Canceled
	if errors.Is(err, context.DeadlineExceeded) {
		code = Timeout
	}
	return New(HTTPTransportStatus, code.ToInt32(), err.Error(), nil)
}

// Is reports whether err carries a status with the given group and code.
func Is(err error, group Group, code Code) bool {
	s, ok := FromError(err)
	if !ok || err == nil {
		return false
	}
	return s.Group == group && s.Code == code.ToInt32()
}

// IsTransport reports whether err originates from the transport layer or
// from a non-2xx response of a remote endpoint.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	s, ok := FromError(err)
	if !ok {
		return false
	}
	switch s.Group {
	case HTTPTransportStatus, FabricCAServerStatus, GatewayServerStatus:
		return true
	default:
		return false
	}
}
