/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operations

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics/prometheus"
)

type checker struct {
	err error
}

func (c *checker) HealthCheck(ctx context.Context) error {
	return c.err
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMetricsEndpoint(t *testing.T) {
	provider := prometheus.NewProvider()
	provider.NewCounter(metrics.CounterOpts{Namespace: "hlfiot", Name: "test_total", LabelNames: []string{"stage"}}).
		With("stage", "Enrolled").Add(2)

	s := NewSystem(Options{Gatherer: provider.Gatherer()})
	rec := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hlfiot_test_total{stage="Enrolled"} 2`)

	rec = get(t, NewSystem(Options{}).Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := NewSystem(Options{})
	c := &checker{}
	require.NoError(t, s.RegisterChecker("gateway", c))
	assert.Error(t, s.RegisterChecker("gateway", c), "duplicate component")

	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	c.err = errors.New("gateway unreachable")
	rec = get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway unreachable")
}

func TestVersionEndpoint(t *testing.T) {
	s := NewSystem(Options{Version: "1.2.3"})

	rec := get(t, s.Handler(), "/version")
	require.Equal(t, http.StatusOK, rec.Code)
	v := &versionInfo{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
	assert.Equal(t, "1.2.3", v.Version)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/version", strings.NewReader("")))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartStop(t *testing.T) {
	s := NewSystem(Options{ListenAddress: "127.0.0.1:0", Version: "latest"})
	assert.Empty(t, s.Addr())

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())

	addr := s.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/version")
	require.NoError(t, err)
	body, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close() // nolint: errcheck
	require.NoError(t, err)
	assert.Contains(t, string(body), "latest")

	require.NoError(t, s.Stop(context.Background()))
	assert.Empty(t, s.Addr())
	assert.NoError(t, s.Stop(context.Background()))

	_, err = http.Get("http://" + addr + "/version")
	assert.Error(t, err)
}

func TestStartInvalidAddress(t *testing.T) {
	s := NewSystem(Options{ListenAddress: "not-an-address"})
	assert.Error(t, s.Start())
}
