/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package operations serves the metrics, health and version endpoints of a
// running client.
package operations

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hyperledger/fabric-lib-go/healthz"
	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/logging"
)

var logger = logging.NewLogger("hlfiot/core")

const (
	metricsPath = "/metrics"
	healthPath  = "/healthz"
	versionPath = "/version"

	healthCheckTimeout = 10 * time.Second
)

// Options contains the settings of the operations system
type Options struct {
	ListenAddress string
	// Gatherer is served on /metrics; the endpoint is not registered when nil
	Gatherer prom.Gatherer
	Version  string
}

// System is the operations HTTP server.
type System struct {
	options       Options
	healthHandler *healthz.HealthHandler
	mux           *http.ServeMux

	mutex    sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewSystem creates an operations system. Nothing is served until Start.
func NewSystem(o Options) *System {
	healthHandler := healthz.NewHealthHandler()
	healthHandler.SetTimeout(healthCheckTimeout)

	s := &System{
		options:       o,
		healthHandler: healthHandler,
		mux:           http.NewServeMux(),
	}
	if o.Gatherer != nil {
		s.mux.Handle(metricsPath, promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{}))
	}
	s.mux.Handle(healthPath, healthHandler)
	s.mux.HandleFunc(versionPath, s.serveVersion)
	return s
}

// RegisterChecker adds a component to the health report.
func (s *System) RegisterChecker(component string, checker healthz.HealthChecker) error {
	return s.healthHandler.RegisterChecker(component, checker)
}

// Handler returns the handler of all operations endpoints.
func (s *System) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured address and serves in the background.
func (s *System) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.server != nil {
		return errors.New("operations system is already started")
	}

	listener, err := net.Listen("tcp", s.options.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.options.ListenAddress)
	}

	s.listener = listener
	s.server = &http.Server{Handler: s.mux, ReadHeaderTimeout: healthCheckTimeout}
	s.done = make(chan struct{})

	go func(server *http.Server, done chan struct{}) {
		defer close(done)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Errorf("operations server stopped: %s", err)
		}
	}(s.server, s.done)

	logger.Infof("operations endpoints served on %s", listener.Addr())
	return nil
}

// Addr returns the address the system listens on, empty before Start.
func (s *System) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and waits for it to exit.
func (s *System) Stop(ctx context.Context) error {
	s.mutex.Lock()
	server, done := s.server, s.done
	s.server, s.listener, s.done = nil, nil, nil
	s.mutex.Unlock()

	if server == nil {
		return nil
	}
	err := server.Shutdown(ctx)
	<-done
	return err
}

type versionInfo struct {
	Version string `json:"Version"`
}

func (s *System) serveVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&versionInfo{Version: s.options.Version}); err != nil {
		logger.Warnf("failed to write version: %s", err)
	}
}
