/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mockfab

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/logging"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
)

var logger = logging.NewLogger("hlfiot/test")

// GatewayAPIPath is the base path served by MockGatewayServer
const GatewayAPIPath = "/api/"

// MockGatewayServer emulates the gateway: it issues certificates for the
// public key it is sent, verifies every signature it receives against the
// digests it handed out and registers the certificates of broadcast
// transactions so that they can be checked on the ledger.
type MockGatewayServer struct {
	// Password accepted by enroll-csr; empty accepts any password
	Password string
	// CustomField is served on /custom-field
	CustomField string

	server *httptest.Server
	caKey  *ecdsa.PrivateKey

	mutex      sync.Mutex
	pending    map[string]*ecdsa.PublicKey
	proposals  map[string]*ecdsa.PublicKey
	payloads   map[string]*ecdsa.PublicKey
	registered map[string]bool
	emails     []string
	broadcasts int
}

type gwTbsCSRRequest struct {
	X     string `json:"x"`
	Y     string `json:"y"`
	Login string `json:"login"`
	Email string `json:"email"`
}

type gwEnrollRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	TbsCSRBytes string `json:"tbs_csr_bytes"`
	R           string `json:"r"`
	S           string `json:"s"`
}

type gwPrepareRequest struct {
	ProposalBytes string   `json:"proposal_bytes"`
	Peers         []string `json:"peers"`
	R             string   `json:"r"`
	S             string   `json:"s"`
}

type gwBroadcastRequest struct {
	PayloadBytes string `json:"payload_bytes"`
	R            string `json:"r"`
	S            string `json:"s"`
}

// NewMockGatewayServer starts a mock gateway. Close must be called when done.
func NewMockGatewayServer() *MockGatewayServer {
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(errors.Wrap(err, "mock CA key generation failed"))
	}

	s := &MockGatewayServer{
		caKey:      caKey,
		pending:    make(map[string]*ecdsa.PublicKey),
		proposals:  make(map[string]*ecdsa.PublicKey),
		payloads:   make(map[string]*ecdsa.PublicKey),
		registered: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(GatewayAPIPath+fab.TbsCSREndpoint.Path, s.tbsCSR)
	mux.HandleFunc(GatewayAPIPath+fab.EnrollCSREndpoint.Path, s.enrollCSR)
	mux.HandleFunc(GatewayAPIPath+fab.ProposalEndpoint.Path, s.proposal)
	mux.HandleFunc(GatewayAPIPath+fab.PrepareBroadcastEndpoint.Path, s.prepareBroadcast)
	mux.HandleFunc(GatewayAPIPath+fab.BroadcastEndpoint.Path, s.broadcast)
	mux.HandleFunc(GatewayAPIPath+"channels/", s.query)
	mux.HandleFunc("/custom-field", s.customField)

	s.server = httptest.NewServer(mux)
	logger.Debugf("mock gateway started on %s", s.server.URL)
	return s
}

// URL returns the gateway URL to configure clients with
func (s *MockGatewayServer) URL() string {
	return s.server.URL + GatewayAPIPath
}

// CustomFieldURL returns the absolute URL of the custom field
func (s *MockGatewayServer) CustomFieldURL() string {
	return s.server.URL + "/custom-field"
}

// Close stops the server
func (s *MockGatewayServer) Close() {
	s.server.Close()
}

// Registered reports whether cert was broadcast successfully
func (s *MockGatewayServer) Registered(cert string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.registered[cert]
}

// Broadcasts returns the number of accepted broadcasts
func (s *MockGatewayServer) Broadcasts() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.broadcasts
}

// Emails returns the emails sent with tbs-csr requests
func (s *MockGatewayServer) Emails() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.emails...)
}

func (s *MockGatewayServer) tbsCSR(w http.ResponseWriter, req *http.Request) {
	r := &gwTbsCSRRequest{}
	if !decode(w, req, r) {
		return
	}
	pub, err := publicKey(r.X, r.Y)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tbs := []byte(fmt.Sprintf("tbs-csr:%s:%s:%s", r.Login, r.X, r.Y))
	key := base64.StdEncoding.EncodeToString(tbs)

	s.mutex.Lock()
	s.pending[key] = pub
	s.emails = append(s.emails, r.Email)
	s.mutex.Unlock()

	respond(w, map[string]string{"tbs_csr_bytes": key, "tbs_csr_hash": digestHex(tbs)})
}

func (s *MockGatewayServer) enrollCSR(w http.ResponseWriter, req *http.Request) {
	r := &gwEnrollRequest{}
	if !decode(w, req, r) {
		return
	}

	s.mutex.Lock()
	pub, ok := s.pending[r.TbsCSRBytes]
	delete(s.pending, r.TbsCSRBytes)
	s.mutex.Unlock()

	if !ok || !verify(pub, r.TbsCSRBytes, r.R, r.S) {
		http.Error(w, "invalid signature of tbs csr", http.StatusBadRequest)
		return
	}
	if s.Password != "" && r.Password != s.Password {
		respond(w, map[string]string{"user_cert": ""})
		return
	}

	cert, err := s.issue(pub, r.Login)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respond(w, map[string]string{"user_cert": base64.StdEncoding.EncodeToString(cert)})
}

func (s *MockGatewayServer) proposal(w http.ResponseWriter, req *http.Request) {
	r := &fab.ProposalRequest{}
	if !decode(w, req, r) {
		return
	}
	block, _ := pem.Decode([]byte(r.UserCert))
	if block == nil {
		http.Error(w, "user_cert is not PEM", http.StatusBadRequest)
		return
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		http.Error(w, "user_cert does not hold an ECDSA key", http.StatusBadRequest)
		return
	}

	raw, err := json.Marshal(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	key := base64.StdEncoding.EncodeToString(raw)

	s.mutex.Lock()
	s.proposals[key] = pub
	s.mutex.Unlock()

	respond(w, map[string]string{"proposal_bytes": key, "proposal_hash": digestHex(raw)})
}

func (s *MockGatewayServer) prepareBroadcast(w http.ResponseWriter, req *http.Request) {
	r := &gwPrepareRequest{}
	if !decode(w, req, r) {
		return
	}

	s.mutex.Lock()
	pub, ok := s.proposals[r.ProposalBytes]
	s.mutex.Unlock()

	if !ok || !verify(pub, r.ProposalBytes, r.R, r.S) {
		http.Error(w, "invalid signature of proposal", http.StatusBadRequest)
		return
	}

	raw, err := base64.StdEncoding.DecodeString(r.ProposalBytes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload := append(raw, []byte(strings.Join(r.Peers, ","))...)
	key := base64.StdEncoding.EncodeToString(payload)

	s.mutex.Lock()
	s.payloads[key] = pub
	s.mutex.Unlock()

	respond(w, map[string]string{"payload_bytes": key, "payload_hash": digestHex(payload)})
}

func (s *MockGatewayServer) broadcast(w http.ResponseWriter, req *http.Request) {
	r := &gwBroadcastRequest{}
	if !decode(w, req, r) {
		return
	}

	s.mutex.Lock()
	pub, ok := s.payloads[r.PayloadBytes]
	s.mutex.Unlock()

	if !ok || !verify(pub, r.PayloadBytes, r.R, r.S) {
		http.Error(w, "invalid signature of payload", http.StatusBadRequest)
		return
	}

	raw, _ := base64.StdEncoding.DecodeString(r.PayloadBytes) // nolint: errcheck
	proposal := &fab.ProposalRequest{}
	if i := strings.LastIndexByte(string(raw), '}'); i >= 0 {
		if err := json.Unmarshal(raw[:i+1], proposal); err != nil {
			logger.Warnf("broadcast payload does not hold a proposal: %s", err)
		}
	}

	s.mutex.Lock()
	s.broadcasts++
	txID := fmt.Sprintf("tx-%d", s.broadcasts)
	if proposal.UserCert != "" {
		s.registered[proposal.UserCert] = true
	}
	s.mutex.Unlock()

	respond(w, map[string]string{"status": "SUCCESS", "result": txID})
}

func (s *MockGatewayServer) query(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := req.URL.Query()
	if q.Get("fcn") != "checkIotCertificate" {
		http.Error(w, "unknown function", http.StatusBadRequest)
		return
	}

	result := 0
	if s.Registered(q.Get("args")) {
		result = 1
	}
	respond(w, map[string]int{"result": result})
}

func (s *MockGatewayServer) customField(w http.ResponseWriter, req *http.Request) {
	respond(w, map[string]string{"customField": s.CustomField})
}

func (s *MockGatewayServer) issue(pub *ecdsa.PublicKey, login string) ([]byte, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 64))
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: login, Organization: []string{"hlfiot"}},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, s.caKey)
	if err != nil {
		return nil, errors.Wrap(err, "certificate creation failed")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}

func publicKey(xHex, yHex string) (*ecdsa.PublicKey, error) {
	x, ok := new(big.Int).SetString(xHex, 16)
	if !ok {
		return nil, errors.New("x is not hex")
	}
	y, ok := new(big.Int).SetString(yHex, 16)
	if !ok {
		return nil, errors.New("y is not hex")
	}
	if !elliptic.P256().IsOnCurve(x, y) {
		return nil, errors.New("public key is not on the curve")
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

func verify(pub *ecdsa.PublicKey, payloadB64, rHex, sHex string) bool {
	raw, err := base64.StdEncoding.DecodeString(payloadB64)
	if err != nil {
		return false
	}
	r, ok := new(big.Int).SetString(rHex, 16)
	if !ok {
		return false
	}
	sig, ok := new(big.Int).SetString(sHex, 16)
	if !ok {
		return false
	}
	digest := sha256.Sum256(raw)
	return ecdsa.Verify(pub, digest[:], r, sig)
}

func digestHex(b []byte) string {
	digest := sha256.Sum256(b)
	return hex.EncodeToString(digest[:])
}

func decode(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func respond(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(err)
	}
}
