/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/net/context/ctxhttp"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/logging"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics/disabled"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/options"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/core"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/config/urlutil"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fabsdk/metrics"
)

var logger = logging.NewLogger("hlfiot/fab")

const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerRequestID   = "X-Request-Id"
	contentTypeJSON   = "application/json"

	// maxResponseSize bounds how much of a response body is read
	maxResponseSize = 8 << 20
)

// GatewayClient exchanges JSON documents with the gateway over HTTP.
type GatewayClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	metrics    *metrics.GatewayMetrics
}

// NewGateway returns a client for the gateway described by cfg.
func NewGateway(cfg core.GatewayConfig, opts ...options.Opt) (*GatewayClient, error) {
	if cfg == nil {
		return nil, errors.New("gateway config is required")
	}
	baseURL, err := urlutil.ParseBaseURL(cfg.GatewayURL())
	if err != nil {
		return nil, errors.WithMessage(err, "invalid gateway URL")
	}

	p := defaultParams(cfg)
	options.Apply(p, opts)

	httpClient := p.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: p.timeout}
	}

	logger.Debugf("gateway client created for %s (TLS: %t)", baseURL, urlutil.IsTLSEnabled(baseURL.String()))

	return &GatewayClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		metrics:    p.metrics,
	}, nil
}

// URL returns the absolute URL of the endpoint
func (c *GatewayClient) URL(endpoint fab.Endpoint) string {
	return urlutil.Resolve(c.baseURL, endpoint.Path)
}

// Post sends request as JSON to the endpoint and returns the response body.
func (c *GatewayClient) Post(ctx context.Context, endpoint fab.Endpoint, request interface{}) ([]byte, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal of %s request failed", endpoint.Name)
	}
	return c.do(ctx, http.MethodPost, endpoint, nil, body)
}

// Get queries the endpoint and returns the response body.
func (c *GatewayClient) Get(ctx context.Context, endpoint fab.Endpoint, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, query, nil)
}

func (c *GatewayClient) do(ctx context.Context, method string, endpoint fab.Endpoint, query url.Values, body []byte) ([]byte, error) {
	target := c.URL(endpoint)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s request", endpoint.Name)
	}

	requestID := uuid.New().String()
	req.Header.Set(headerAccept, contentTypeJSON)
	req.Header.Set(headerRequestID, requestID)
	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}

	logger.Debugf("%s %s [request %s]", method, target, requestID)
	c.metrics.RequestsSent.With("endpoint", endpoint.Name).Add(1)
	start := time.Now()

	resp, err := ctxhttp.Do(ctx, c.httpClient, req)
	if err != nil {
		s := transportStatus(ctx, err, target)
		c.failed(endpoint, s)
		return nil, s
	}
	defer resp.Body.Close() // nolint: errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.metrics.RequestDuration.With("endpoint", endpoint.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		s := transportStatus(ctx, err, target)
		c.failed(endpoint, s)
		return nil, s
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		s := status.NewFromHTTPResponse(endpoint.Group, resp.StatusCode, target, respBody)
		c.failed(endpoint, s)
		return nil, s
	}

	logger.Debugf("%s %s returned %d [request %s]", method, target, resp.StatusCode, requestID)
	return respBody, nil
}

func (c *GatewayClient) failed(endpoint fab.Endpoint, s *status.Status) {
	logger.Warnf("%s request failed: %s", endpoint.Name, s)
	c.metrics.RequestsFailed.With("endpoint", endpoint.Name, "group", s.Group.String(), "code", strconv.Itoa(int(s.Code))).Add(1)
}

// transportStatus maps a failed round trip to a transport status. A done
// context takes precedence over the error returned by the client.
func transportStatus(ctx context.Context, err error, target string) *status.Status {
	code := status.ConnectionFailed
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		code = status.Canceled
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		code = status.Timeout
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			code = status.Timeout
		}
	}
	return status.New(status.HTTPTransportStatus, code.ToInt32(), err.Error(), []interface{}{target})
}

// noMetrics is used when no metrics are configured
var noMetrics = metrics.NewGatewayMetrics(&disabled.Provider{})
