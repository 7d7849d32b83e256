/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"crypto/ecdsa"
	"crypto/x509"
	"time"

	"github.com/cloudflare/cfssl/helpers"
	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite/p256"
)

// CertificateInfo summarizes an issued certificate.
type CertificateInfo struct {
	Subject   string    `yaml:"subject"`
	Issuer    string    `yaml:"issuer"`
	Serial    string    `yaml:"serial"`
	NotBefore time.Time `yaml:"notBefore"`
	NotAfter  time.Time `yaml:"notAfter"`
}

// ParseCertificate decodes the X.509 certificate held by cert.
func ParseCertificate(cert msp.Certificate) (*x509.Certificate, error) {
	if !cert.Valid() {
		return nil, errors.New("certificate is missing")
	}
	c, err := helpers.ParseCertificatePEM(cert.PEM())
	if err != nil {
		return nil, errors.Wrap(err, "certificate parsing failed")
	}
	return c, nil
}

// DescribeCertificate returns the summary of cert.
func DescribeCertificate(cert msp.Certificate) (*CertificateInfo, error) {
	c, err := ParseCertificate(cert)
	if err != nil {
		return nil, err
	}
	return &CertificateInfo{
		Subject:   c.Subject.String(),
		Issuer:    c.Issuer.String(),
		Serial:    c.SerialNumber.Text(16),
		NotBefore: c.NotBefore,
		NotAfter:  c.NotAfter,
	}, nil
}

// CheckKeyPair fails unless cert was issued for the public key of kp.
func CheckKeyPair(cert msp.Certificate, kp *p256.KeyPair) error {
	c, err := ParseCertificate(cert)
	if err != nil {
		return err
	}
	pub, ok := c.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return errors.New("certificate does not hold an ECDSA public key")
	}
	if !pub.Equal(kp.PublicKey()) {
		return errors.New("certificate does not match key pair")
	}
	return nil
}
