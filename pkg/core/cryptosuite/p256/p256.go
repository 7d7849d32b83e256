/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package p256 provides the device's elliptic identity: a NIST P-256 key
// pair and ECDSA signatures over digests computed by the gateway.
//
// Signatures are produced with a fresh per-signature nonce drawn from the
// random source handed to Sign. The package never hashes: the caller provides
// the digest, as hex text, exactly as the gateway returned it.
package p256

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
)

const (
	// ScalarSize is the byte width of private scalars, coordinates and
	// signature components.
	ScalarSize = 32

	// HexSize is the width of the hex text form of a scalar or coordinate.
	HexSize = 2 * ScalarSize

	// maxScalarDraws bounds the rejection sampling of scalars so that a
	// broken random source fails instead of spinning forever.
	maxScalarDraws = 64
)

var (
	curve    = elliptic.P256()
	order    = curve.Params().N
	halfN    = new(big.Int).Rsh(order, 1)
	p256ECDH = ecdh.P256()
)

// KeyPair is a P-256 private scalar together with its public point.
// A KeyPair is immutable once created.
type KeyPair struct {
	d    *big.Int
	x, y *big.Int
}

// GenerateKeyPair draws a private scalar uniformly from [1, n-1] using rand
// and derives the public point.
func GenerateKeyPair(rand io.Reader) (*KeyPair, error) {
	d, err := randScalar(rand)
	if err != nil {
		return nil, err
	}
	return newKeyPair(d)
}

// KeyPairFromHex restores a key pair from the hex text of its private scalar.
func KeyPairFromHex(privHex string) (*KeyPair, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(privHex))
	if err != nil {
		return nil, errors.Wrap(err, "private key is not valid hex")
	}
	if len(raw) != ScalarSize {
		return nil, errors.Errorf("private key must be %d bytes, got %d", ScalarSize, len(raw))
	}
	d := new(big.Int).SetBytes(raw)
	if d.Sign() == 0 || d.Cmp(order) >= 0 {
		return nil, errors.New("private key is out of range")
	}
	return newKeyPair(d)
}

func newKeyPair(d *big.Int) (*KeyPair, error) {
	x, y, err := baseMult(d)
	if err != nil {
		return nil, err
	}
	return &KeyPair{d: d, x: x, y: y}, nil
}

// PublicKeyCoordinates returns the affine coordinates of the public point,
// each as a fixed 32-byte big-endian value.
func (kp *KeyPair) PublicKeyCoordinates() (x, y []byte) {
	return pad(kp.x), pad(kp.y)
}

// PublicKeyHex returns the public coordinates as fixed-width lowercase hex.
func (kp *KeyPair) PublicKeyHex() (x, y string) {
	return toHex(kp.x), toHex(kp.y)
}

// PrivateKeyHex returns the private scalar as fixed-width lowercase hex.
func (kp *KeyPair) PrivateKeyHex() string {
	return toHex(kp.d)
}

// PublicKey returns the public point as a standard library key.
func (kp *KeyPair) PublicKey() *ecdsa.PublicKey {
	return &ecdsa.PublicKey{Curve: curve, X: new(big.Int).Set(kp.x), Y: new(big.Int).Set(kp.y)}
}

// Equal reports whether both key pairs hold the same private scalar.
func (kp *KeyPair) Equal(other *KeyPair) bool {
	if kp == nil || other == nil {
		return kp == other
	}
	return kp.d.Cmp(other.d) == 0
}

// String never reveals the private scalar.
func (kp *KeyPair) String() string {
	if kp == nil {
		return "KeyPair{}"
	}
	x, _ := kp.PublicKeyHex()
	return fmt.Sprintf("KeyPair{x: %s...}", x[:8])
}

// Signature is an ECDSA signature. S is always in the lower half of the
// group order.
type Signature struct {
	R *big.Int
	S *big.Int
}

// RHex returns r as fixed-width lowercase hex.
func (s *Signature) RHex() string {
	return toHex(s.R)
}

// SHex returns s as fixed-width lowercase hex.
func (s *Signature) SHex() string {
	return toHex(s.S)
}

// DecodeDigest parses the hex text of a digest. Empty or non-hex text is
// rejected with an InvalidDigest status.
func DecodeDigest(digestHex string) ([]byte, error) {
	digestHex = strings.TrimSpace(digestHex)
	if digestHex == "" {
		return nil, status.NewClient(status.InvalidDigest, "digest is empty")
	}
	digest, err := hex.DecodeString(digestHex)
	if err != nil {
		return nil, status.New(status.ClientStatus, status.InvalidDigest.ToInt32(),
			fmt.Sprintf("digest is not valid hex: %s", err), []interface{}{digestHex})
	}
	return digest, nil
}

// SignHex decodes digestHex and signs it.
func SignHex(rand io.Reader, kp *KeyPair, digestHex string) (*Signature, error) {
	digest, err := DecodeDigest(digestHex)
	if err != nil {
		return nil, err
	}
	return Sign(rand, kp, digest)
}

// Sign computes an ECDSA signature of digest with a fresh nonce from rand.
// Digests longer than the group order are truncated to its bit length.
func Sign(rand io.Reader, kp *KeyPair, digest []byte) (*Signature, error) {
	if kp == nil {
		return nil, errors.New("key pair is required")
	}
	if len(digest) == 0 {
		return nil, status.NewClient(status.InvalidDigest, "digest is empty")
	}
	e := hashToInt(digest)

	for {
		k, err := randScalar(rand)
		if err != nil {
			return nil, err
		}
		kx, _, err := baseMult(k)
		if err != nil {
			return nil, err
		}

		r := kx.Mod(kx, order)
		if r.Sign() == 0 {
			continue
		}

		kInv := new(big.Int).ModInverse(k, order)
		s := new(big.Int).Mul(r, kp.d)
		s.Add(s, e)
		s.Mul(s, kInv)
		s.Mod(s, order)
		if s.Sign() == 0 {
			continue
		}
		if s.Cmp(halfN) > 0 {
			s.Sub(order, s)
		}

		return &Signature{R: r, S: s}, nil
	}
}

// Verify reports whether sig is a valid signature of digest under pub.
func Verify(pub *ecdsa.PublicKey, digest []byte, sig *Signature) bool {
	if pub == nil || sig == nil || sig.R == nil || sig.S == nil {
		return false
	}
	return ecdsa.Verify(pub, digest, sig.R, sig.S)
}

func randScalar(rand io.Reader) (*big.Int, error) {
	if rand == nil {
		return nil, status.NewClient(status.RandomSourceFailure, "random source is not set")
	}
	buf := make([]byte, ScalarSize)
	for i := 0; i < maxScalarDraws; i++ {
		if _, err := io.ReadFull(rand, buf); err != nil {
			return nil, status.New(status.ClientStatus, status.RandomSourceFailure.ToInt32(),
				fmt.Sprintf("reading random source failed: %s", err), nil)
		}
		k := new(big.Int).SetBytes(buf)
		if k.Sign() > 0 && k.Cmp(order) < 0 {
			return k, nil
		}
	}
	return nil, status.NewClient(status.RandomSourceFailure, "random source did not yield a valid scalar")
}

// baseMult returns the affine coordinates of k*G.
func baseMult(k *big.Int) (x, y *big.Int, err error) {
	priv, err := p256ECDH.NewPrivateKey(pad(k))
	if err != nil {
		return nil, nil, errors.Wrap(err, "scalar multiplication failed")
	}
	// uncompressed encoding: 0x04 || X || Y
	point := priv.PublicKey().Bytes()
	x = new(big.Int).SetBytes(point[1 : 1+ScalarSize])
	y = new(big.Int).SetBytes(point[1+ScalarSize:])
	return x, y, nil
}

func hashToInt(digest []byte) *big.Int {
	orderBits := order.BitLen()
	orderBytes := (orderBits + 7) / 8
	if len(digest) > orderBytes {
		digest = digest[:orderBytes]
	}
	e := new(big.Int).SetBytes(digest)
	if excess := len(digest)*8 - orderBits; excess > 0 {
		e.Rsh(e, uint(excess))
	}
	return e
}

func pad(v *big.Int) []byte {
	out := make([]byte, ScalarSize)
	return v.FillBytes(out)
}

func toHex(v *big.Int) string {
	return hex.EncodeToString(pad(v))
}
