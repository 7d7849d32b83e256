/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/core"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite/p256"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fab/keyvaluestore"
)

const identityFileSuffix = ".pem"

// FileIdentityStore stores each identity in a separate file.
// Only the certificate is stored, in pem format.
// File naming is <private key hex>.pem; identities in sub-directories are
// listed as well.
type FileIdentityStore struct {
	store *keyvaluestore.FileKeyValueStore
}

// NewFileIdentityStore creates a new instance of FileIdentityStore
func NewFileIdentityStore(path string) (*FileIdentityStore, error) {
	if path == "" {
		return nil, errors.New("path is empty")
	}
	store, err := keyvaluestore.New(&keyvaluestore.FileKeyValueStoreOptions{
		Path: path,
		KeySerializer: func(key interface{}) (string, error) {
			name, ok := key.(string)
			if !ok || name == "" {
				return "", errors.New("invalid identity key")
			}
			return filepath.Join(path, filepath.FromSlash(name)+identityFileSuffix), nil
		},
		KeyDeserializer: func(relPath string) (string, error) {
			if !strings.HasSuffix(relPath, identityFileSuffix) {
				return "", errors.New("not an identity file")
			}
			return filepath.ToSlash(strings.TrimSuffix(relPath, identityFileSuffix)), nil
		},
	})
	if err != nil {
		return nil, errors.WithMessage(err, "identity store creation failed")
	}
	return &FileIdentityStore{store: store}, nil
}

// Store writes the certificate of identity.
func (s *FileIdentityStore) Store(identity *msp.Identity) error {
	if identity == nil || identity.KeyPair == nil {
		return errors.New("identity has no key pair")
	}
	if !identity.Certificate.Valid() {
		return errors.New("identity has no certificate")
	}
	return s.store.Store(identity.KeyPair.PrivateKeyHex(), identity.Certificate.PEM())
}

// Load returns the identity of the given private key.
func (s *FileIdentityStore) Load(privateKeyHex string) (*msp.Identity, error) {
	return s.load(privateKeyHex)
}

// List returns every stored identity, skipping files that do not hold one.
func (s *FileIdentityStore) List() ([]*msp.Identity, error) {
	keys, err := s.store.Keys()
	if err != nil {
		return nil, err
	}

	var identities []*msp.Identity
	for _, key := range keys {
		identity, err := s.load(key)
		if err != nil {
			logger.Warnf("skipping identity file %s: %s", key, err)
			continue
		}
		identities = append(identities, identity)
	}
	return identities, nil
}

// Delete removes the identity of the given private key.
func (s *FileIdentityStore) Delete(privateKeyHex string) error {
	return s.store.Delete(privateKeyHex)
}

func (s *FileIdentityStore) load(key string) (*msp.Identity, error) {
	kp, err := p256.KeyPairFromHex(filepath.Base(filepath.FromSlash(key)))
	if err != nil {
		return nil, errors.WithMessage(err, "file name is not a private key")
	}
	value, err := s.store.Load(key)
	if err != nil {
		if err == core.ErrKeyValueNotFound {
			return nil, msp.ErrIdentityNotFound
		}
		return nil, err
	}
	certBytes, ok := value.([]byte)
	if !ok {
		return nil, errors.New("identity is not of proper type")
	}
	cert := msp.Certificate(certBytes)
	if !cert.Valid() {
		return nil, errors.New("file does not hold a certificate")
	}
	return &msp.Identity{KeyPair: kp, Certificate: cert}, nil
}
