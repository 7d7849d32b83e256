/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cryptosuite holds the hashing side of the client. Signing itself
// lives in the p256 subpackage; this package only checks that the digests
// handed out by the gateway match the payloads they accompany.
package cryptosuite

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/logging"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/core"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
)

var logger = logging.NewLogger("hlfiot/core")

// Supported hash algorithm families
const (
	SHA2 = "SHA2"
	SHA3 = "SHA3"
)

// GetHash returns a constructor for the 256 bit hash of the given family.
func GetHash(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case SHA2:
		return sha256.New, nil
	case SHA3:
		return sha3.New256, nil
	default:
		return nil, errors.Errorf("hash algorithm [%s] is not supported", algorithm)
	}
}

// Hash computes the digest of msg with the given algorithm family.
func Hash(algorithm string, msg []byte) ([]byte, error) {
	newHash, err := GetHash(algorithm)
	if err != nil {
		return nil, err
	}
	h := newHash()
	h.Write(msg) // nolint: gas
	return h.Sum(nil), nil
}

// DigestVerifier checks received digests against their payloads.
type DigestVerifier struct {
	enabled   bool
	algorithm string
	newHash   func() hash.Hash
}

// NewDigestVerifier returns a verifier configured from cfg. A nil cfg
// yields a verifier that accepts every digest.
func NewDigestVerifier(cfg core.CryptoSuiteConfig) (*DigestVerifier, error) {
	if cfg == nil || !cfg.VerifyDigests() {
		return &DigestVerifier{}, nil
	}
	newHash, err := GetHash(cfg.HashAlgorithm())
	if err != nil {
		return nil, err
	}
	return &DigestVerifier{enabled: true, algorithm: strings.ToUpper(cfg.HashAlgorithm()), newHash: newHash}, nil
}

// Enabled reports whether digests are checked.
func (v *DigestVerifier) Enabled() bool {
	return v != nil && v.enabled
}

// Verify fails with a MalformedResponse status when the digest of the
// payload does not match the digest received with it.
func (v *DigestVerifier) Verify(payload *fab.HashedPayload) error {
	if !v.Enabled() {
		return nil
	}
	if payload == nil {
		return status.NewClient(status.MalformedResponse, "payload is missing")
	}

	h := v.newHash()
	h.Write(payload.Raw) // nolint: gas
	expected := h.Sum(nil)

	if !bytes.Equal(expected, payload.Digest) {
		logger.Debugf("%s digest mismatch: expected %s, received %s", v.algorithm, hex.EncodeToString(expected), payload.DigestHex)
		return status.New(status.ClientStatus, status.MalformedResponse.ToInt32(),
			"digest does not match payload", []interface{}{payload.DigestHex})
	}
	return nil
}
