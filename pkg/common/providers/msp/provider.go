/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite/p256"
)

// CertificateMarker is the text an issued certificate must contain.
const CertificateMarker = "BEGIN CERTIFICATE"

var (
	// ErrIdentityNotFound indicates that no stored identity could be used
	ErrIdentityNotFound = errors.New("identity not found")
)

// Certificate is a PEM encoded X.509 certificate.
type Certificate string

// Valid reports whether the certificate is non-empty and carries the
// certificate marker.
func (c Certificate) Valid() bool {
	return c != "" && strings.Contains(string(c), CertificateMarker)
}

// PEM returns the certificate bytes.
func (c Certificate) PEM() []byte {
	return []byte(c)
}

// SigningRequestCreds are the credentials sent with an enrollment.
type SigningRequestCreds struct {
	Login    string
	Password string
}

// String never reveals the password.
func (c SigningRequestCreds) String() string {
	return "SigningRequestCreds{login: " + c.Login + "}"
}

// Identity is an enrolled key pair.
type Identity struct {
	KeyPair     *p256.KeyPair
	Certificate Certificate
}

// IdentityStore persists enrolled identities.
type IdentityStore interface {
	Store(identity *Identity) error
	Load(privateKeyHex string) (*Identity, error)
	List() ([]*Identity, error)
	Delete(privateKeyHex string) error
}

// IdentityConfig contains the identity related settings.
type IdentityConfig interface {
	Credentials() SigningRequestCreds
	Email() string
	KeyStorePath() string
}
