/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"strconv"
)

// Code represents a status code
type Code uint32

const (
	// OK is returned on success.
	OK Code = 0

	// Unknown represents status codes that are uncategorized or unknown to the SDK
	Unknown Code = 1

	// ConnectionFailed is returned when a network connection attempt from the SDK fails
	ConnectionFailed Code = 2

	// Timeout operation timed out
	Timeout Code = 3

	// Canceled the request context was canceled
	Canceled Code = 4

	// MultipleErrors multiple errors occurred
	MultipleErrors Code = 5

	// RandomSourceFailure the random source could not supply entropy
	RandomSourceFailure Code = 6

	// InvalidDigest a digest was empty or could not be decoded
	InvalidDigest Code = 7

	// MalformedResponse a remote response was missing fields or could not be decoded
	MalformedResponse Code = 8

	// EnrollmentRejected the CA answered without a certificate
	EnrollmentRejected Code = 9

	// PipelineBusy another action is in flight on the same pipeline
	PipelineBusy Code = 10

	// MissingCertificate an action needs an enrolled certificate and there is none
	MissingCertificate Code = 11

	// GenericTransient is generally used by tests to indicate that a retry is possible
	GenericTransient Code = 12
)

// CodeName maps the codes in this packages to human-readable strings
var CodeName = map[int32]string{
	0:  "OK",
	1:  "UNKNOWN",
	2:  "CONNECTION_FAILED",
	3:  "TIMEOUT",
	4:  "CANCELED",
	5:  "MULTIPLE_ERRORS",
	6:  "RANDOM_SOURCE_FAILURE",
	7:  "INVALID_DIGEST",
	8:  "MALFORMED_RESPONSE",
	9:  "ENROLLMENT_REJECTED",
	10: "PIPELINE_BUSY",
	11: "MISSING_CERTIFICATE",
	12: "GENERIC_TRANSIENT",
}

// ToInt32 cast to int32
func (c Code) ToInt32() int32 {
	return int32(c)
}

// String representation of the code
func (c Code) String() string {
	if s, ok := CodeName[c.ToInt32()]; ok {
		return s
	}
	return strconv.Itoa(int(c))
}

// ToSDKStatusCode cast to SDK status code
func ToSDKStatusCode(c int32) Code {
	return Code(c)
}
