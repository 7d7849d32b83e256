/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite/p256"
)

const component = "enrollment"

// EnrollmentStage is the stage an enrollment run is in.
type EnrollmentStage int32

// Enrollment stages
const (
	Idle EnrollmentStage = iota
	AwaitingTbsCsr
	SigningTbsCsr
	AwaitingEnrollment
	Enrolled
	Failed
	// Rejected means the CA answered without a certificate. A new
	// enrollment may be started.
	Rejected
)

var stageNames = [...]string{"Idle", "AwaitingTbsCsr", "SigningTbsCsr", "AwaitingEnrollment", "Enrolled", "Failed", "Rejected"}

func (s EnrollmentStage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Unknown"
	}
	return stageNames[s]
}

// Terminal reports whether no further transition can happen.
func (s EnrollmentStage) Terminal() bool {
	return s == Enrolled || s == Failed || s == Rejected
}

// Enrollment is the state of one enrollment run. It is owned by the run
// and may be observed concurrently.
type Enrollment struct {
	client *CAClientImpl
	kp     *p256.KeyPair
	creds  msp.SigningRequestCreds

	stage int32
	once  int32

	mutex       sync.RWMutex
	cert        msp.Certificate
	err         error
	failedStage EnrollmentStage
}

// NewEnrollment prepares an enrollment of kp. Nothing is sent until Run.
func (c *CAClientImpl) NewEnrollment(kp *p256.KeyPair, creds msp.SigningRequestCreds) *Enrollment {
	return &Enrollment{client: c, kp: kp, creds: creds}
}

// Stage returns the current stage.
func (e *Enrollment) Stage() EnrollmentStage {
	return EnrollmentStage(atomic.LoadInt32(&e.stage))
}

// Certificate returns the issued certificate, empty unless Enrolled.
func (e *Enrollment) Certificate() msp.Certificate {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.cert
}

// Err returns the error the run failed with.
func (e *Enrollment) Err() error {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.err
}

// FailedStage returns the stage the run was in when it failed.
func (e *Enrollment) FailedStage() EnrollmentStage {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.failedStage
}

// Run performs request, sign and submit in sequence. A rejected enrollment
// ends in the Rejected stage with an empty certificate and a nil error.
// Run may be called only once.
func (e *Enrollment) Run(ctx context.Context) (msp.Certificate, error) {
	if !atomic.CompareAndSwapInt32(&e.once, 0, 1) {
		return "", errors.New("enrollment has already been run")
	}
	if e.kp == nil {
		return "", e.fail(errors.New("key pair is required"))
	}

	c := e.client

	e.setStage(AwaitingTbsCsr)
	email := c.email.Email(ctx)
	x, y := e.kp.PublicKeyHex()
	payload, err := c.RequestUnsignedCSR(ctx, x, y, e.creds.Login, email)
	if err != nil {
		return "", e.fail(err)
	}
	if s := status.FromContext(ctx); s != nil {
		return "", e.fail(s)
	}

	e.setStage(SigningTbsCsr)
	sig, err := p256.Sign(c.rand, e.kp, payload.Digest)
	if err != nil {
		return "", e.fail(errors.WithMessage(err, "signing of tbs CSR failed"))
	}
	c.metrics.SignaturesCreated.With("component", component).Add(1)

	e.setStage(AwaitingEnrollment)
	resp, err := c.SubmitEnrollment(ctx, e.creds, payload.Raw, sig)
	if err != nil {
		return "", e.fail(err)
	}
	if resp.Rejected {
		e.setStage(Rejected)
		return "", nil
	}

	e.mutex.Lock()
	e.cert = resp.Certificate
	e.mutex.Unlock()
	e.setStage(Enrolled)

	logger.Infof("enrolled [%s]", e.creds.Login)
	return resp.Certificate, nil
}

func (e *Enrollment) setStage(s EnrollmentStage) {
	atomic.StoreInt32(&e.stage, int32(s))
	e.client.metrics.StagesEntered.With("component", component, "stage", s.String()).Add(1)
	logger.Debugf("enrollment stage: %s", s)
}

func (e *Enrollment) fail(err error) error {
	stage := e.Stage()
	e.mutex.Lock()
	e.err = err
	e.failedStage = stage
	e.mutex.Unlock()

	e.client.metrics.RunsFailed.With("component", component, "stage", stage.String()).Add(1)
	e.setStage(Failed)
	logger.Errorf("enrollment failed in stage %s: %s", stage, err)
	return err
}
