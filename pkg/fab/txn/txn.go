/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package txn enables proposing, preparing and broadcasting signed
// transactions through the gateway.
package txn

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/logging"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics/disabled"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite/p256"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fabsdk/metrics"
)

var logger = logging.NewLogger("hlfiot/fab")

type proposalResponse struct {
	ProposalBytes string `json:"proposal_bytes"`
	ProposalHash  string `json:"proposal_hash"`
}

type prepareBroadcastRequest struct {
	ProposalBytes string   `json:"proposal_bytes"`
	Peers         []string `json:"peers"`
	R             string   `json:"r"`
	S             string   `json:"s"`
}

type prepareBroadcastResponse struct {
	PayloadBytes string `json:"payload_bytes"`
	PayloadHash  string `json:"payload_hash"`
}

type broadcastRequest struct {
	PayloadBytes string `json:"payload_bytes"`
	R            string `json:"r"`
	S            string `json:"s"`
}

// Client sends transactions through the gateway.
type Client struct {
	gateway   fab.Gateway
	verifier  *cryptosuite.DigestVerifier
	rand      io.Reader
	evaluator *AckEvaluator
	metrics   *metrics.PipelineMetrics
}

// ClientOption describes a functional parameter for New
type ClientOption func(*Client) error

// WithRandom sets the source of the signing nonces.
func WithRandom(r io.Reader) ClientOption {
	return func(c *Client) error {
		if r == nil {
			return errors.New("random source is nil")
		}
		c.rand = r
		return nil
	}
}

// WithDigestVerifier checks every received digest against its payload.
func WithDigestVerifier(v *cryptosuite.DigestVerifier) ClientOption {
	return func(c *Client) error {
		c.verifier = v
		return nil
	}
}

// WithAckEvaluator decides whether broadcast acknowledgments are accepted.
func WithAckEvaluator(e *AckEvaluator) ClientOption {
	return func(c *Client) error {
		c.evaluator = e
		return nil
	}
}

// WithMetrics records stage transitions.
func WithMetrics(m *metrics.PipelineMetrics) ClientOption {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

// New returns a transaction client on top of gateway.
func New(gateway fab.Gateway, opts ...ClientOption) (*Client, error) {
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}

	c := &Client{
		gateway: gateway,
		rand:    rand.Reader,
		metrics: metrics.NewPipelineMetrics(&disabled.Provider{}),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WithMessage(err, "failed to create transaction client")
		}
	}
	return c, nil
}

// RequestProposal asks the gateway for an unsigned proposal.
func (c *Client) RequestProposal(ctx context.Context, request *fab.ProposalRequest) (*fab.HashedPayload, error) {
	if request == nil {
		return nil, errors.New("proposal request is nil")
	}
	if !validCertificate(request.UserCert) {
		return nil, status.NewClient(status.MissingCertificate, "proposal request has no certificate")
	}

	body, err := c.gateway.Post(ctx, fab.ProposalEndpoint, request)
	if err != nil {
		return nil, errors.WithMessage(err, "proposal request failed")
	}

	var resp proposalResponse
	if err := unmarshal(fab.ProposalEndpoint, body, &resp); err != nil {
		return nil, err
	}
	return c.hashedPayload("proposal_bytes", resp.ProposalBytes, resp.ProposalHash)
}

// RequestBroadcastPreparation sends the signed proposal and returns the
// unsigned broadcast payload. Peers are sent as given.
func (c *Client) RequestBroadcastPreparation(ctx context.Context, prep *fab.BroadcastPreparation) (*fab.HashedPayload, error) {
	if prep == nil || prep.Signature == nil {
		return nil, errors.New("signed proposal is required")
	}

	peers := prep.Peers
	if peers == nil {
		peers = []string{}
	}
	req := &prepareBroadcastRequest{
		ProposalBytes: fab.EncodeBytes(prep.ProposalBytes),
		Peers:         peers,
		R:             prep.Signature.RHex(),
		S:             prep.Signature.SHex(),
	}
	body, err := c.gateway.Post(ctx, fab.PrepareBroadcastEndpoint, req)
	if err != nil {
		return nil, errors.WithMessage(err, "prepare-broadcast request failed")
	}

	var resp prepareBroadcastResponse
	if err := unmarshal(fab.PrepareBroadcastEndpoint, body, &resp); err != nil {
		return nil, err
	}
	return c.hashedPayload("payload_bytes", resp.PayloadBytes, resp.PayloadHash)
}

// Broadcast sends the signed payload. The acknowledgment is returned as
// received.
func (c *Client) Broadcast(ctx context.Context, payloadBytes []byte, sig *p256.Signature) (fab.PipelineResult, error) {
	if sig == nil {
		return fab.PipelineResult{}, errors.New("signature is required")
	}

	req := &broadcastRequest{
		PayloadBytes: fab.EncodeBytes(payloadBytes),
		R:            sig.RHex(),
		S:            sig.SHex(),
	}
	body, err := c.gateway.Post(ctx, fab.BroadcastEndpoint, req)
	if err != nil {
		return fab.PipelineResult{}, errors.WithMessage(err, "broadcast request failed")
	}

	result := fab.PipelineResult{Raw: body}
	if c.evaluator != nil {
		accepted, err := c.evaluator.Evaluate(body)
		if err != nil {
			logger.Warnf("broadcast acknowledgment could not be evaluated: %s", err)
		}
		result.Accepted = &accepted
	}
	logger.Debugf("broadcast acknowledgment: %s", result)
	return result, nil
}

func (c *Client) hashedPayload(field, payloadB64, digestHex string) (*fab.HashedPayload, error) {
	payload, err := fab.NewHashedPayload(field, payloadB64, digestHex)
	if err != nil {
		return nil, err
	}
	if err := c.verifier.Verify(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func unmarshal(endpoint fab.Endpoint, body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return status.New(status.ClientStatus, status.MalformedResponse.ToInt32(),
			endpoint.Name+" response is not valid JSON: "+err.Error(), nil)
	}
	return nil
}
