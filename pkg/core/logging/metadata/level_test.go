/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/logging/api"
)

func TestLogLevels(t *testing.T) {
	mlevel := ModuleLevels{}

	mlevel.SetLevel("module-xyz-info", api.INFO)
	mlevel.SetLevel("module-xyz-debug", api.DEBUG)
	mlevel.SetLevel("module-xyz-error", api.ERROR)

	assert.True(t, mlevel.IsEnabledFor("module-xyz-info", api.INFO))
	assert.False(t, mlevel.IsEnabledFor("module-xyz-info", api.DEBUG))
	assert.True(t, mlevel.IsEnabledFor("module-xyz-info", api.CRITICAL))

	assert.True(t, mlevel.IsEnabledFor("module-xyz-debug", api.DEBUG))
	assert.False(t, mlevel.IsEnabledFor("module-xyz-error", api.WARNING))
	assert.True(t, mlevel.IsEnabledFor("module-xyz-error", api.ERROR))
}

func TestDefaultLevel(t *testing.T) {
	mlevel := ModuleLevels{}
	assert.Equal(t, api.INFO, mlevel.GetLevel("unknown"))

	mlevel.SetLevel("", api.WARNING)
	assert.Equal(t, api.WARNING, mlevel.GetLevel("unknown"))
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"critical", "ERROR", "Warning", "info", "DEBUG"} {
		level, err := ParseLevel(name)
		require.NoError(t, err)
		assert.True(t, level >= api.CRITICAL && level <= api.DEBUG)
	}

	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, api.DEBUG, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)

	assert.Equal(t, "WARNING", ParseString(api.WARNING))
	assert.Equal(t, "UNKNOWN", ParseString(api.Level(42)))
}
