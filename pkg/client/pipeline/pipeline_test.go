/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/test/mockfab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite/p256"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fab/txn"
	mspimpl "github.com/hlf-iot/iot-client-sdk-go/pkg/msp"
)

var testCreds = msp.SigningRequestCreds{Login: "admin", Password: "adminpw"}

type channelConfig struct {
	peers string
}

func (c *channelConfig) ChannelID() string   { return "common" }
func (c *channelConfig) ChaincodeID() string { return "hlf_iot_cc" }
func (c *channelConfig) MSPID() string       { return "hlfiotMSP" }
func (c *channelConfig) Fcn() string         { return "addIotCertificate" }
func (c *channelConfig) Args() []string      { return []string{"sensor-1"} }
func (c *channelConfig) PeerList() string    { return c.peers }

type memoryStore struct {
	identities []*msp.Identity
	err        error
}

func (s *memoryStore) Store(identity *msp.Identity) error {
	s.identities = append(s.identities, identity)
	return nil
}

func (s *memoryStore) Load(privateKeyHex string) (*msp.Identity, error) {
	for _, id := range s.identities {
		if id.KeyPair.PrivateKeyHex() == privateKeyHex {
			return id, nil
		}
	}
	return nil, msp.ErrIdentityNotFound
}

func (s *memoryStore) List() ([]*msp.Identity, error) {
	return s.identities, s.err
}

func (s *memoryStore) Delete(privateKeyHex string) error {
	return nil
}

func newTestRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) // nolint: gosec
}

func newTestKeyPair(t *testing.T, seed int64) *p256.KeyPair {
	kp, err := p256.GenerateKeyPair(newTestRand(seed))
	require.NoError(t, err)
	return kp
}

// issueCertificate returns a certificate for the public key of kp.
func issueCertificate(t *testing.T, kp *p256.KeyPair) msp.Certificate {
	issuer, err := ecdsa.GenerateKey(elliptic.P256(), newTestRand(99))
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "device"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(newTestRand(100), template, template, kp.PublicKey(), issuer)
	require.NoError(t, err)
	return msp.Certificate(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func newTestPipeline(t *testing.T, gw fab.Gateway, opts ...Option) *Pipeline {
	ca, err := mspimpl.NewCAClient(gw,
		mspimpl.WithRandom(newTestRand(1)),
		mspimpl.WithEmailProvider(&mspimpl.EmailSource{Configured: "device@example.com"}))
	require.NoError(t, err)

	tx, err := txn.New(gw, txn.WithRandom(newTestRand(2)))
	require.NoError(t, err)

	p, err := New(ca, tx, &channelConfig{peers: "hlfiot/peer0,device/peer0"}, testCreds,
		append([]Option{WithRandom(newTestRand(3))}, opts...)...)
	require.NoError(t, err)
	return p
}

func hashedBody(bytesField, hashField string, raw []byte) []byte {
	return []byte(fmt.Sprintf(`{%q:%q,%q:"0102030405"}`, bytesField, base64.StdEncoding.EncodeToString(raw), hashField))
}

func expectEnrollment(gw *mockfab.MockGateway, userCert string) {
	gw.EXPECT().Post(gomock.Any(), mockfab.Endpoint(fab.TbsCSREndpoint), gomock.Any()).
		Return(hashedBody("tbs_csr_bytes", "tbs_csr_hash", []byte{0x30, 0x01}), nil)
	gw.EXPECT().Post(gomock.Any(), mockfab.Endpoint(fab.EnrollCSREndpoint), gomock.Any()).
		Return([]byte(fmt.Sprintf(`{"user_cert":%q}`, userCert)), nil)
}

func TestNew(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	gw := mockfab.NewMockGateway(mockCtrl)
	ca, err := mspimpl.NewCAClient(gw)
	require.NoError(t, err)
	tx, err := txn.New(gw)
	require.NoError(t, err)

	_, err = New(nil, tx, &channelConfig{}, testCreds)
	assert.Error(t, err)
	_, err = New(ca, tx, nil, testCreds)
	assert.Error(t, err)
	_, err = New(ca, tx, &channelConfig{}, testCreds, WithRandom(nil))
	assert.Error(t, err)
	_, err = New(ca, tx, &channelConfig{}, testCreds, WithIdentity(&msp.Identity{}))
	assert.Error(t, err)

	p, err := New(ca, tx, &channelConfig{}, testCreds)
	require.NoError(t, err)

	state := p.State()
	assert.Equal(t, mspimpl.Idle, state.Stage)
	assert.False(t, state.Busy)
	assert.False(t, state.Enrolled())
	assert.Nil(t, state.Err)
	assert.Nil(t, p.Identity())
}

func TestGenerateIdentity(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	gw := mockfab.NewMockGateway(mockCtrl)
	kp := newTestKeyPair(t, 3)
	cert := issueCertificate(t, kp)
	expectEnrollment(gw, base64.StdEncoding.EncodeToString(cert.PEM()))

	p := newTestPipeline(t, gw)
	issued, err := p.GenerateIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cert, issued)

	state := p.State()
	assert.Equal(t, mspimpl.Enrolled, state.Stage)
	assert.True(t, state.Enrolled())
	assert.False(t, state.Busy)

	identity := p.Identity()
	require.NotNil(t, identity)
	assert.True(t, kp.Equal(identity.KeyPair), "key pair must be drawn from the pipeline random source")
	assert.NoError(t, mspimpl.CheckKeyPair(identity.Certificate, identity.KeyPair))
}

func TestGenerateIdentityRejected(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	held := &msp.Identity{KeyPair: newTestKeyPair(t, 50)}
	held.Certificate = issueCertificate(t, held.KeyPair)

	gw := mockfab.NewMockGateway(mockCtrl)
	expectEnrollment(gw, "enrollment refused")

	p := newTestPipeline(t, gw, WithIdentity(held))
	cert, err := p.GenerateIdentity(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cert)

	state := p.State()
	assert.Equal(t, mspimpl.Rejected, state.Stage)
	assert.Nil(t, state.Err)
	assert.Empty(t, state.Certificate)
	assert.False(t, state.Enrolled())
	assert.Nil(t, p.Identity(), "a new generate action drops the held identity")

	_, err = p.SubmitTransaction(context.Background())
	assert.True(t, status.Is(err, status.ClientStatus, status.MissingCertificate))
}

func TestGenerateIdentityFailed(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	held := &msp.Identity{KeyPair: newTestKeyPair(t, 51)}
	held.Certificate = issueCertificate(t, held.KeyPair)

	p := newTestPipeline(t, mockfab.FailingGateway(mockCtrl), WithIdentity(held))
	require.True(t, p.State().Enrolled())

	cert, err := p.GenerateIdentity(context.Background())
	require.Error(t, err)
	assert.Empty(t, cert)
	assert.True(t, status.IsTransport(err))

	stageErr, ok := err.(*StageError)
	require.True(t, ok)
	assert.Equal(t, mspimpl.AwaitingTbsCsr, stageErr.Stage)

	state := p.State()
	assert.Equal(t, mspimpl.Failed, state.Stage)
	assert.Equal(t, mspimpl.AwaitingTbsCsr, state.FailedStage)
	assert.Equal(t, err, state.Err)
	assert.False(t, state.Enrolled())
	assert.Empty(t, state.Certificate)
	assert.Nil(t, p.Identity())
}

type failingReader struct{}

func (r *failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestGenerateIdentityRandomFailure(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	p := newTestPipeline(t, mockfab.NewMockGateway(mockCtrl), WithRandom(&failingReader{}))
	_, err := p.GenerateIdentity(context.Background())
	require.Error(t, err)
	assert.True(t, status.Is(err, status.ClientStatus, status.RandomSourceFailure), "unexpected error: %v", err)

	state := p.State()
	assert.Equal(t, mspimpl.Failed, state.Stage)
	assert.Equal(t, mspimpl.Idle, state.FailedStage)
}

func TestSubmitTransactionWithoutCertificate(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	// no gateway call is expected
	p := newTestPipeline(t, mockfab.NewMockGateway(mockCtrl))
	result, err := p.SubmitTransaction(context.Background())
	require.Error(t, err)
	assert.True(t, result.Empty())
	assert.True(t, status.Is(err, status.ClientStatus, status.MissingCertificate))
	assert.Equal(t, txn.Failed, p.State().Stage)
	assert.Equal(t, txn.Idle, p.State().FailedStage)
}

func TestSubmitTransaction(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	held := &msp.Identity{KeyPair: newTestKeyPair(t, 50)}
	held.Certificate = issueCertificate(t, held.KeyPair)
	ack := []byte(`{"status":"SUCCESS"}`)

	gw := mockfab.NewMockGateway(mockCtrl)
	gomock.InOrder(
		gw.EXPECT().Post(gomock.Any(), mockfab.Endpoint(fab.ProposalEndpoint), gomock.Any()).DoAndReturn(
			func(ctx context.Context, endpoint fab.Endpoint, request interface{}) ([]byte, error) {
				req := request.(*fab.ProposalRequest)
				assert.Equal(t, string(held.Certificate), req.UserCert)
				assert.Equal(t, []string{"sensor-1"}, req.Args)
				return hashedBody("proposal_bytes", "proposal_hash", []byte{0x0a}), nil
			}),
		gw.EXPECT().Post(gomock.Any(), mockfab.Endpoint(fab.PrepareBroadcastEndpoint), gomock.Any()).
			Return(hashedBody("payload_bytes", "payload_hash", []byte{0x0b}), nil),
		gw.EXPECT().Post(gomock.Any(), mockfab.Endpoint(fab.BroadcastEndpoint), gomock.Any()).Return(ack, nil),
	)

	p := newTestPipeline(t, gw, WithIdentity(held))
	result, err := p.SubmitTransaction(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, string(ack), result.String())
	assert.Nil(t, result.Accepted)

	state := p.State()
	assert.Equal(t, txn.Completed, state.Stage)
	assert.Nil(t, state.Err)
	assert.Equal(t, held.Certificate, state.Certificate)
}

func TestBusyRejection(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	entered := make(chan struct{})
	unblock := make(chan struct{})

	gw := mockfab.NewMockGateway(mockCtrl)
	gw.EXPECT().Post(gomock.Any(), mockfab.Endpoint(fab.TbsCSREndpoint), gomock.Any()).DoAndReturn(
		func(ctx context.Context, endpoint fab.Endpoint, request interface{}) ([]byte, error) {
			close(entered)
			<-unblock
			return nil, mockfab.TransportError
		})

	p := newTestPipeline(t, gw)

	done := make(chan error, 1)
	go func() {
		_, err := p.GenerateIdentity(context.Background())
		done <- err
	}()
	<-entered

	state := p.State()
	assert.True(t, state.Busy)
	assert.Equal(t, mspimpl.AwaitingTbsCsr, state.Stage)

	_, err := p.GenerateIdentity(context.Background())
	assert.True(t, status.Is(err, status.ClientStatus, status.PipelineBusy))
	_, err = p.SubmitTransaction(context.Background())
	assert.True(t, status.Is(err, status.ClientStatus, status.PipelineBusy))
	_, err = p.RestoreIdentity(context.Background(), &memoryStore{})
	assert.True(t, status.Is(err, status.ClientStatus, status.PipelineBusy))

	close(unblock)
	assert.Error(t, <-done)
	assert.False(t, p.State().Busy)
}

func TestStageErrorCause(t *testing.T) {
	cause := status.NewClient(status.MissingCertificate, "no certificate")
	err := &StageError{Stage: txn.Idle, Err: cause}

	assert.Equal(t, cause, errors.Cause(err))
	assert.Contains(t, err.Error(), "Idle")
	assert.Contains(t, err.Error(), "no certificate")
	assert.True(t, status.Is(err, status.ClientStatus, status.MissingCertificate))
}

func TestRestoreIdentity(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	unregistered := &msp.Identity{KeyPair: newTestKeyPair(t, 60)}
	unregistered.Certificate = issueCertificate(t, unregistered.KeyPair)
	mismatched := &msp.Identity{KeyPair: newTestKeyPair(t, 61), Certificate: unregistered.Certificate}
	registered := &msp.Identity{KeyPair: newTestKeyPair(t, 62)}
	registered.Certificate = issueCertificate(t, registered.KeyPair)

	query := mockfab.Endpoint(fab.ChaincodeQueryEndpoint("common", "hlf_iot_cc"))
	gw := mockfab.NewMockGateway(mockCtrl)
	gomock.InOrder(
		gw.EXPECT().Get(gomock.Any(), query, gomock.Any()).Return([]byte(`{"result":0}`), nil),
		gw.EXPECT().Get(gomock.Any(), query, gomock.Any()).Return([]byte(`{"result":1}`), nil),
	)

	p := newTestPipeline(t, gw)
	cert, err := p.RestoreIdentity(context.Background(), &memoryStore{
		identities: []*msp.Identity{mismatched, unregistered, registered},
	})
	require.NoError(t, err)
	assert.Equal(t, registered.Certificate, cert)
	assert.True(t, registered.KeyPair.Equal(p.Identity().KeyPair))
	assert.Equal(t, mspimpl.Enrolled, p.State().Stage)
}

func TestRestoreIdentityNotFound(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	p := newTestPipeline(t, mockfab.NewMockGateway(mockCtrl))

	_, err := p.RestoreIdentity(context.Background(), &memoryStore{})
	assert.Equal(t, msp.ErrIdentityNotFound, err)

	_, err = p.RestoreIdentity(context.Background(), &memoryStore{err: errors.New("disk failure")})
	assert.Error(t, err)

	_, err = p.RestoreIdentity(context.Background(), nil)
	assert.Error(t, err)
	assert.Nil(t, p.Identity())
}

func TestRestoreIdentityQueryFailure(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	stored := &msp.Identity{KeyPair: newTestKeyPair(t, 70)}
	stored.Certificate = issueCertificate(t, stored.KeyPair)

	p := newTestPipeline(t, mockfab.FailingGateway(mockCtrl))
	_, err := p.RestoreIdentity(context.Background(), &memoryStore{identities: []*msp.Identity{stored}})
	require.Error(t, err)
	assert.True(t, status.IsTransport(err))
	assert.Nil(t, p.Identity())
}
