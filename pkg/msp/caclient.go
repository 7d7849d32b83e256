/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/logging"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics/disabled"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite/p256"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fabsdk/metrics"
)

var logger = logging.NewLogger("hlfiot/msp")

type tbsCSRRequest struct {
	X     string `json:"x"`
	Y     string `json:"y"`
	Login string `json:"login"`
	Email string `json:"email"`
}

type tbsCSRResponse struct {
	TbsCSRBytes string `json:"tbs_csr_bytes"`
	TbsCSRHash  string `json:"tbs_csr_hash"`
}

type enrollCSRRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	TbsCSRBytes string `json:"tbs_csr_bytes"`
	R           string `json:"r"`
	S           string `json:"s"`
}

type enrollCSRResponse struct {
	UserCert string `json:"user_cert"`
}

// EnrollmentResponse is the outcome of a certificate signing request.
// A response without a certificate is Rejected.
type EnrollmentResponse struct {
	Certificate msp.Certificate
	Rejected    bool
}

// CAClientImpl exchanges signing requests for certificates through the gateway.
type CAClientImpl struct {
	gateway  fab.Gateway
	verifier *cryptosuite.DigestVerifier
	rand     io.Reader
	email    EmailProvider
	metrics  *metrics.PipelineMetrics
}

// ClientOption describes a functional parameter for NewCAClient
type ClientOption func(*CAClientImpl) error

// WithRandom sets the source of the signing nonces.
func WithRandom(r io.Reader) ClientOption {
	return func(c *CAClientImpl) error {
		if r == nil {
			return errors.New("random source is nil")
		}
		c.rand = r
		return nil
	}
}

// WithDigestVerifier checks every received digest against its payload.
func WithDigestVerifier(v *cryptosuite.DigestVerifier) ClientOption {
	return func(c *CAClientImpl) error {
		c.verifier = v
		return nil
	}
}

// WithEmailProvider sets where the email sent with a signing request comes from.
func WithEmailProvider(p EmailProvider) ClientOption {
	return func(c *CAClientImpl) error {
		c.email = p
		return nil
	}
}

// WithMetrics records stage transitions.
func WithMetrics(m *metrics.PipelineMetrics) ClientOption {
	return func(c *CAClientImpl) error {
		c.metrics = m
		return nil
	}
}

// NewCAClient creates a new CA client on top of gateway.
func NewCAClient(gateway fab.Gateway, opts ...ClientOption) (*CAClientImpl, error) {
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}

	c := &CAClientImpl{
		gateway: gateway,
		rand:    rand.Reader,
		email:   &EmailSource{},
		metrics: metrics.NewPipelineMetrics(&disabled.Provider{}),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WithMessage(err, "failed to create CA client")
		}
	}
	return c, nil
}

// RequestUnsignedCSR asks the CA for a to-be-signed CSR built over the
// given public key.
func (c *CAClientImpl) RequestUnsignedCSR(ctx context.Context, x, y, login, email string) (*fab.HashedPayload, error) {
	body, err := c.gateway.Post(ctx, fab.TbsCSREndpoint, &tbsCSRRequest{X: x, Y: y, Login: login, Email: email})
	if err != nil {
		return nil, errors.WithMessage(err, "tbs-csr request failed")
	}

	var resp tbsCSRResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, status.New(status.ClientStatus, status.MalformedResponse.ToInt32(),
			"tbs-csr response is not valid JSON: "+err.Error(), nil)
	}
	payload, err := fab.NewHashedPayload("tbs_csr_bytes", resp.TbsCSRBytes, resp.TbsCSRHash)
	if err != nil {
		return nil, err
	}
	if err := c.verifier.Verify(payload); err != nil {
		return nil, err
	}

	logger.Debugf("received tbs CSR of %d bytes with digest %s", len(payload.Raw), payload.DigestHex)
	return payload, nil
}

// SubmitEnrollment sends the signed CSR. When the CA answers without a
// certificate the response is Rejected and no error is returned.
func (c *CAClientImpl) SubmitEnrollment(ctx context.Context, creds msp.SigningRequestCreds, csrBytes []byte, sig *p256.Signature) (*EnrollmentResponse, error) {
	if sig == nil {
		return nil, errors.New("signature is required")
	}

	req := &enrollCSRRequest{
		Login:       creds.Login,
		Password:    creds.Password,
		TbsCSRBytes: fab.EncodeBytes(csrBytes),
		R:           sig.RHex(),
		S:           sig.SHex(),
	}
	body, err := c.gateway.Post(ctx, fab.EnrollCSREndpoint, req)
	if err != nil {
		return nil, errors.WithMessage(err, "enroll-csr request failed")
	}

	var resp enrollCSRResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, status.New(status.ClientStatus, status.MalformedResponse.ToInt32(),
			"enroll-csr response is not valid JSON: "+err.Error(), nil)
	}

	cert := decodeUserCert(resp.UserCert)
	if !cert.Valid() {
		logger.Warnf("enrollment of [%s] was rejected: no certificate in response", creds.Login)
		return &EnrollmentResponse{Rejected: true}, nil
	}
	return &EnrollmentResponse{Certificate: cert}, nil
}

// Enroll runs a new enrollment of kp to completion.
func (c *CAClientImpl) Enroll(ctx context.Context, kp *p256.KeyPair, creds msp.SigningRequestCreds) (*Enrollment, error) {
	e := c.NewEnrollment(kp, creds)
	_, err := e.Run(ctx)
	return e, err
}

// decodeUserCert accepts base64 and plain PEM text.
func decodeUserCert(userCert string) msp.Certificate {
	userCert = strings.TrimSpace(userCert)
	if decoded, err := base64.StdEncoding.DecodeString(userCert); err == nil {
		return msp.Certificate(decoded)
	}
	return msp.Certificate(userCert)
}
