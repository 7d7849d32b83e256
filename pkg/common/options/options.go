/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package options implements option setters shared by several packages:
// an Opt only takes effect on the Params that implement the matching
// setter interface and is ignored by all others.
package options

// Params represents a construct that holds
// a set of parameters
type Params interface{}

// Opt is an option that is applied to Params
type Opt func(opts Params)

// Apply applies the given options to the given Params
func Apply(params Params, opts []Opt) {
	for _, opt := range opts {
		if opt != nil {
			opt(params)
		}
	}
}
