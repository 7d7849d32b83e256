/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package pipeline drives a device identity through enrollment and
// transaction submission.
//
// A pipeline holds at most one key pair and certificate. Actions are
// strictly sequential: while one is in flight every other action is
// rejected with a PipelineBusy status. Nothing is retried automatically.
//
// Basic Flow:
// 1) Create the pipeline from a CA client and a transaction client
// 2) GenerateIdentity or RestoreIdentity
// 3) SubmitTransaction
package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/logging"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite/p256"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fab/txn"
	mspimpl "github.com/hlf-iot/iot-client-sdk-go/pkg/msp"
)

var logger = logging.NewLogger("hlfiot/client")

// Stage is an enrollment or a submission stage.
type Stage interface {
	fmt.Stringer
	Terminal() bool
}

// Enroller starts enrollment runs.
type Enroller interface {
	NewEnrollment(kp *p256.KeyPair, creds msp.SigningRequestCreds) *mspimpl.Enrollment
}

// Submitter starts submission runs and checks certificates on the ledger.
type Submitter interface {
	NewSubmission(kp *p256.KeyPair, cert msp.Certificate, request *fab.ProposalRequest, peers []string) *txn.Submission
	CheckCertificate(ctx context.Context, cfg fab.ChannelConfig, cert msp.Certificate) (bool, error)
}

// StageError records the stage an action failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("failed in stage %s: %s", e.Stage, e.Err)
}

// Cause returns the underlying error.
func (e *StageError) Cause() error {
	return e.Err
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// State is a snapshot of the pipeline.
type State struct {
	Stage Stage
	// Busy is set while an action is in flight
	Busy bool
	// Err is the error of the last action, if it failed
	Err error
	// FailedStage is the stage the last action failed in
	FailedStage Stage
	Certificate msp.Certificate
}

// Enrolled reports whether a certificate is held.
func (s State) Enrolled() bool {
	return s.Certificate.Valid()
}

// Pipeline orchestrates identity generation and transaction submission.
type Pipeline struct {
	enroller  Enroller
	submitter Submitter
	channel   fab.ChannelConfig
	creds     msp.SigningRequestCreds
	rand      io.Reader

	busy int32

	mutex   sync.RWMutex
	kp      *p256.KeyPair
	cert    msp.Certificate
	stage   func() Stage
	lastErr *StageError
}

// Option describes a functional parameter for New
type Option func(*Pipeline) error

// WithRandom sets the source of key pairs.
func WithRandom(r io.Reader) Option {
	return func(p *Pipeline) error {
		if r == nil {
			return errors.New("random source is nil")
		}
		p.rand = r
		return nil
	}
}

// WithIdentity starts the pipeline with an enrolled identity.
func WithIdentity(identity *msp.Identity) Option {
	return func(p *Pipeline) error {
		if identity == nil || identity.KeyPair == nil || !identity.Certificate.Valid() {
			return errors.New("identity must hold a key pair and a certificate")
		}
		p.hold(identity.KeyPair, identity.Certificate)
		return nil
	}
}

// New returns a pipeline.
func New(enroller Enroller, submitter Submitter, channel fab.ChannelConfig, creds msp.SigningRequestCreds, opts ...Option) (*Pipeline, error) {
	if enroller == nil || submitter == nil {
		return nil, errors.New("enroller and submitter are required")
	}
	if channel == nil {
		return nil, errors.New("channel config is required")
	}

	p := &Pipeline{
		enroller:  enroller,
		submitter: submitter,
		channel:   channel,
		creds:     creds,
		rand:      rand.Reader,
		stage:     staticStage(mspimpl.Idle),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, errors.WithMessage(err, "failed to create pipeline")
		}
	}
	return p, nil
}

// GenerateIdentity creates a new key pair and enrolls it. The held identity
// is dropped when the action starts and replaced once a certificate is
// issued. A rejected enrollment returns an empty certificate and no error,
// and the pipeline holds no identity afterwards.
func (p *Pipeline) GenerateIdentity(ctx context.Context) (msp.Certificate, error) {
	if err := p.acquire(); err != nil {
		return "", err
	}
	defer p.release()

	p.mutex.Lock()
	p.kp, p.cert = nil, ""
	p.mutex.Unlock()

	kp, err := p256.GenerateKeyPair(p.rand)
	if err != nil {
		p.track(staticStage(mspimpl.Failed))
		return "", p.failed(mspimpl.Idle, errors.WithMessage(err, "key pair generation failed"))
	}

	e := p.enroller.NewEnrollment(kp, p.creds)
	p.track(func() Stage { return e.Stage() })

	cert, err := e.Run(ctx)
	if err != nil {
		return "", p.failed(e.FailedStage(), err)
	}
	if e.Stage() == mspimpl.Rejected {
		logger.Warnf("enrollment of [%s] was rejected", p.creds.Login)
		return "", nil
	}

	p.mutex.Lock()
	p.kp, p.cert = kp, cert
	p.mutex.Unlock()
	return cert, nil
}

// SubmitTransaction proposes, prepares and broadcasts the configured
// transaction with the held identity.
func (p *Pipeline) SubmitTransaction(ctx context.Context) (fab.PipelineResult, error) {
	if err := p.acquire(); err != nil {
		return fab.PipelineResult{}, err
	}
	defer p.release()

	kp, cert := p.identity()
	request := txn.NewProposalRequest(p.channel, cert)
	peers := txn.ParsePeers(p.channel.PeerList())

	s := p.submitter.NewSubmission(kp, cert, request, peers)
	p.track(func() Stage { return s.Stage() })

	result, err := s.Run(ctx)
	if err != nil {
		return fab.PipelineResult{}, p.failed(s.FailedStage(), err)
	}
	return result, nil
}

// State returns a snapshot of the pipeline.
func (p *Pipeline) State() State {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	state := State{
		Stage:       p.stage(),
		Busy:        atomic.LoadInt32(&p.busy) == 1,
		Certificate: p.cert,
	}
	if p.lastErr != nil {
		state.Err = p.lastErr
		state.FailedStage = p.lastErr.Stage
	}
	return state
}

// Identity returns the held identity, nil before enrollment.
func (p *Pipeline) Identity() *msp.Identity {
	kp, cert := p.identity()
	if kp == nil || !cert.Valid() {
		return nil
	}
	return &msp.Identity{KeyPair: kp, Certificate: cert}
}

func (p *Pipeline) identity() (*p256.KeyPair, msp.Certificate) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.kp, p.cert
}

func (p *Pipeline) hold(kp *p256.KeyPair, cert msp.Certificate) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.kp, p.cert = kp, cert
	p.stage = staticStage(mspimpl.Enrolled)
}

func (p *Pipeline) acquire() error {
	if !atomic.CompareAndSwapInt32(&p.busy, 0, 1) {
		return status.NewClient(status.PipelineBusy, "another action is in flight")
	}
	return nil
}

func (p *Pipeline) release() {
	atomic.StoreInt32(&p.busy, 0)
}

// track makes stage report the progress of a new run.
func (p *Pipeline) track(stage func() Stage) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.stage = stage
	p.lastErr = nil
}

func (p *Pipeline) failed(stage Stage, err error) error {
	stageErr := &StageError{Stage: stage, Err: err}
	p.mutex.Lock()
	p.lastErr = stageErr
	p.mutex.Unlock()
	return stageErr
}

func staticStage(s Stage) func() Stage {
	return func() Stage { return s }
}
