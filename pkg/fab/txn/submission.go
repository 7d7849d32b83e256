/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite/p256"
)

const component = "submission"

// SubmissionStage is the stage a submission run is in.
type SubmissionStage int32

// Submission stages
const (
	Idle SubmissionStage = iota
	AwaitingProposal
	SigningProposal
	AwaitingBroadcastPrep
	SigningBroadcastPayload
	AwaitingBroadcastResult
	Completed
	Failed
)

var stageNames = [...]string{
	"Idle",
	"AwaitingProposal",
	"SigningProposal",
	"AwaitingBroadcastPrep",
	"SigningBroadcastPayload",
	"AwaitingBroadcastResult",
	"Completed",
	"Failed",
}

func (s SubmissionStage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Unknown"
	}
	return stageNames[s]
}

// Terminal reports whether no further transition can happen.
func (s SubmissionStage) Terminal() bool {
	return s == Completed || s == Failed
}

// Submission is the state of one submission run. It is owned by the run
// and may be observed concurrently.
type Submission struct {
	client  *Client
	kp      *p256.KeyPair
	request fab.ProposalRequest
	peers   []string

	stage int32
	once  int32

	mutex       sync.RWMutex
	result      fab.PipelineResult
	err         error
	failedStage SubmissionStage
}

// NewSubmission prepares the submission of request signed by kp on behalf
// of cert. Nothing is sent until Run.
func (c *Client) NewSubmission(kp *p256.KeyPair, cert msp.Certificate, request *fab.ProposalRequest, peers []string) *Submission {
	s := &Submission{client: c, kp: kp, peers: peers}
	if request != nil {
		s.request = *request
		s.request.Args = append([]string(nil), request.Args...)
	}
	s.request.UserCert = string(cert)
	return s
}

// Submit runs a new submission to completion.
func (c *Client) Submit(ctx context.Context, kp *p256.KeyPair, cert msp.Certificate, request *fab.ProposalRequest, peers []string) (*Submission, error) {
	s := c.NewSubmission(kp, cert, request, peers)
	_, err := s.Run(ctx)
	return s, err
}

// Stage returns the current stage.
func (s *Submission) Stage() SubmissionStage {
	return SubmissionStage(atomic.LoadInt32(&s.stage))
}

// Result returns the broadcast acknowledgment, empty unless Completed.
func (s *Submission) Result() fab.PipelineResult {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.result
}

// Err returns the error the run failed with.
func (s *Submission) Err() error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.err
}

// FailedStage returns the stage the run was in when it failed.
func (s *Submission) FailedStage() SubmissionStage {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.failedStage
}

// Run proposes, prepares and broadcasts the transaction, each time signing
// the digest received last. Run may be called only once.
func (s *Submission) Run(ctx context.Context) (fab.PipelineResult, error) {
	if !atomic.CompareAndSwapInt32(&s.once, 0, 1) {
		return fab.PipelineResult{}, errors.New("submission has already been run")
	}
	if !validCertificate(s.request.UserCert) {
		return fab.PipelineResult{}, s.fail(status.NewClient(status.MissingCertificate, "an enrolled certificate is required"))
	}
	if s.kp == nil {
		return fab.PipelineResult{}, s.fail(errors.New("key pair is required"))
	}

	c := s.client

	s.setStage(AwaitingProposal)
	proposal, err := c.RequestProposal(ctx, &s.request)
	if err != nil {
		return fab.PipelineResult{}, s.fail(err)
	}
	if st := status.FromContext(ctx); st != nil {
		return fab.PipelineResult{}, s.fail(st)
	}

	s.setStage(SigningProposal)
	proposalSig, err := s.sign(proposal)
	if err != nil {
		return fab.PipelineResult{}, s.fail(errors.WithMessage(err, "signing of proposal failed"))
	}

	s.setStage(AwaitingBroadcastPrep)
	payload, err := c.RequestBroadcastPreparation(ctx, &fab.BroadcastPreparation{
		ProposalBytes: proposal.Raw,
		Peers:         s.peers,
		Signature:     proposalSig,
	})
	if err != nil {
		return fab.PipelineResult{}, s.fail(err)
	}
	if st := status.FromContext(ctx); st != nil {
		return fab.PipelineResult{}, s.fail(st)
	}

	s.setStage(SigningBroadcastPayload)
	payloadSig, err := s.sign(payload)
	if err != nil {
		return fab.PipelineResult{}, s.fail(errors.WithMessage(err, "signing of broadcast payload failed"))
	}

	s.setStage(AwaitingBroadcastResult)
	result, err := c.Broadcast(ctx, payload.Raw, payloadSig)
	if err != nil {
		return fab.PipelineResult{}, s.fail(err)
	}

	s.mutex.Lock()
	s.result = result
	s.mutex.Unlock()
	s.setStage(Completed)

	logger.Infof("transaction %s on %s/%s completed", s.request.Fcn, s.request.ChannelID, s.request.ChaincodeID)
	return result, nil
}

func (s *Submission) sign(payload *fab.HashedPayload) (*p256.Signature, error) {
	sig, err := p256.Sign(s.client.rand, s.kp, payload.Digest)
	if err != nil {
		return nil, err
	}
	s.client.metrics.SignaturesCreated.With("component", component).Add(1)
	return sig, nil
}

func (s *Submission) setStage(stage SubmissionStage) {
	atomic.StoreInt32(&s.stage, int32(stage))
	s.client.metrics.StagesEntered.With("component", component, "stage", stage.String()).Add(1)
	logger.Debugf("submission stage: %s", stage)
}

func (s *Submission) fail(err error) error {
	stage := s.Stage()
	s.mutex.Lock()
	s.err = err
	s.failedStage = stage
	s.mutex.Unlock()

	s.client.metrics.RunsFailed.With("component", component, "stage", stage.String()).Add(1)
	s.setStage(Failed)
	logger.Errorf("submission failed in stage %s: %s", stage, err)
	return err
}
