/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type nameSetter interface {
	SetName(string)
}

type named struct {
	name string
}

func (n *named) SetName(name string) {
	n.name = name
}

type unnamed struct{}

func withName(name string) Opt {
	return func(p Params) {
		if setter, ok := p.(nameSetter); ok {
			setter.SetName(name)
		}
	}
}

func TestApply(t *testing.T) {
	n := &named{}
	Apply(n, []Opt{withName("device"), nil})
	assert.Equal(t, "device", n.name)

	assert.NotPanics(t, func() { Apply(&unnamed{}, []Opt{withName("ignored")}) })
}
