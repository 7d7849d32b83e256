/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"path"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite/p256"
)

// Endpoint identifies one remote operation of the gateway.
type Endpoint struct {
	// Name is used in logs and metric labels
	Name string
	// Path is relative to the gateway URL
	Path string
	// Group is the status group reported for non-2xx responses
	Group status.Group
}

// Gateway endpoints
var (
	TbsCSREndpoint           = Endpoint{Name: "tbs_csr", Path: "ca/tbs-csr", Group: status.FabricCAServerStatus}
	EnrollCSREndpoint        = Endpoint{Name: "enroll_csr", Path: "ca/enroll-csr", Group: status.FabricCAServerStatus}
	ProposalEndpoint         = Endpoint{Name: "proposal", Path: "tx/proposal", Group: status.GatewayServerStatus}
	PrepareBroadcastEndpoint = Endpoint{Name: "prepare_broadcast", Path: "tx/prepare-broadcast", Group: status.GatewayServerStatus}
	BroadcastEndpoint        = Endpoint{Name: "broadcast", Path: "tx/broadcast", Group: status.GatewayServerStatus}
)

// ChaincodeQueryEndpoint returns the query endpoint of a chaincode.
func ChaincodeQueryEndpoint(channelID, chaincodeID string) Endpoint {
	return Endpoint{
		Name:  "chaincode_query",
		Path:  path.Join("channels", channelID, "chaincodes", chaincodeID),
		Group: status.GatewayServerStatus,
	}
}

// CustomFieldEndpoint returns the endpoint serving the device email field.
// rawURL may be absolute.
func CustomFieldEndpoint(rawURL string) Endpoint {
	return Endpoint{Name: "custom_field", Path: rawURL, Group: status.GatewayServerStatus}
}

// Gateway performs JSON exchanges with the remote gateway.
// Implementations return the raw response body of 2xx responses and a
// status error for everything else.
type Gateway interface {
	Post(ctx context.Context, endpoint Endpoint, request interface{}) ([]byte, error)
	Get(ctx context.Context, endpoint Endpoint, query url.Values) ([]byte, error)
}

// HashedPayload is an unsigned payload returned by the gateway together with
// the digest that must be signed. It is consumed by the next signing step.
type HashedPayload struct {
	Raw       []byte
	Digest    []byte
	DigestHex string
}

// NewHashedPayload decodes the base64 payload and hex digest received from
// the gateway. Missing or undecodable bytes are reported as MalformedResponse,
// an unusable digest as InvalidDigest.
func NewHashedPayload(field, payloadB64, digestHex string) (*HashedPayload, error) {
	if payloadB64 == "" {
		return nil, status.NewClient(status.MalformedResponse, field+" is missing from response")
	}
	raw, err := base64.StdEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, status.New(status.ClientStatus, status.MalformedResponse.ToInt32(),
			field+" is not valid base64: "+err.Error(), nil)
	}
	if digestHex == "" {
		return nil, status.NewClient(status.MalformedResponse, "digest of "+field+" is missing from response")
	}
	digest, err := p256.DecodeDigest(digestHex)
	if err != nil {
		return nil, err
	}
	return &HashedPayload{Raw: raw, Digest: digest, DigestHex: digestHex}, nil
}

// EncodeBytes returns the wire form of a byte payload.
func EncodeBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// ProposalRequest describes the chaincode invocation to be proposed.
type ProposalRequest struct {
	ChannelID   string   `json:"channel_id"`
	ChaincodeID string   `json:"chaincode_id"`
	MSPID       string   `json:"msp_id"`
	Fcn         string   `json:"fcn"`
	Args        []string `json:"args"`
	UserCert    string   `json:"user_cert"`
}

// BroadcastPreparation is what is sent to obtain the broadcast payload.
type BroadcastPreparation struct {
	ProposalBytes []byte
	Peers         []string
	Signature     *p256.Signature
}

// PipelineResult is the acknowledgment of the broadcast, kept verbatim.
type PipelineResult struct {
	Raw json.RawMessage
	// Accepted is set when an acceptance expression is configured
	Accepted *bool
}

// Empty reports whether no acknowledgment was received.
func (r PipelineResult) Empty() bool {
	return len(r.Raw) == 0
}

// String returns the acknowledgment as received.
func (r PipelineResult) String() string {
	return string(r.Raw)
}

// ChannelConfig contains the static part of a proposal.
type ChannelConfig interface {
	ChannelID() string
	ChaincodeID() string
	MSPID() string
	Fcn() string
	Args() []string
	// PeerList is the comma delimited list of target peers
	PeerList() string
}
