/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	mspimpl "github.com/hlf-iot/iot-client-sdk-go/pkg/msp"
)

// RestoreIdentity loads the first stored identity whose certificate the
// ledger reports as registered. It returns msp.ErrIdentityNotFound when no
// stored identity qualifies.
func (p *Pipeline) RestoreIdentity(ctx context.Context, store msp.IdentityStore) (msp.Certificate, error) {
	if store == nil {
		return "", errors.New("identity store is required")
	}
	if err := p.acquire(); err != nil {
		return "", err
	}
	defer p.release()

	identities, err := store.List()
	if err != nil {
		return "", errors.WithMessage(err, "listing stored identities failed")
	}

	for _, identity := range identities {
		if err := mspimpl.CheckKeyPair(identity.Certificate, identity.KeyPair); err != nil {
			logger.Warnf("skipping stored identity: %s", err)
			continue
		}

		ok, err := p.submitter.CheckCertificate(ctx, p.channel, identity.Certificate)
		if err != nil {
			return "", errors.WithMessage(err, "certificate check failed")
		}
		if !ok {
			logger.Debugf("stored certificate is not registered on channel %s", p.channel.ChannelID())
			continue
		}

		p.hold(identity.KeyPair, identity.Certificate)
		p.mutex.Lock()
		p.lastErr = nil
		p.mutex.Unlock()

		logger.Infof("restored identity from store")
		return identity.Certificate, nil
	}
	return "", msp.ErrIdentityNotFound
}
