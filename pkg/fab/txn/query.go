/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
)

// CheckCertificateFcn is the chaincode function reporting whether a
// certificate is registered.
const CheckCertificateFcn = "checkIotCertificate"

// QueryRequest is a read-only chaincode invocation.
type QueryRequest struct {
	ChannelID   string
	ChaincodeID string
	Fcn         string
	Peer        string
	Args        []string
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

// Query evaluates a chaincode function on one peer and returns the
// "result" field of the response.
func (c *Client) Query(ctx context.Context, request *QueryRequest) (json.RawMessage, error) {
	if request == nil || request.ChannelID == "" || request.ChaincodeID == "" || request.Fcn == "" {
		return nil, errors.New("query requires channel, chaincode and function")
	}

	query := url.Values{}
	query.Set("fcn", request.Fcn)
	if request.Peer != "" {
		query.Set("peer", request.Peer)
	}
	for _, arg := range request.Args {
		query.Add("args", arg)
	}

	endpoint := fab.ChaincodeQueryEndpoint(request.ChannelID, request.ChaincodeID)
	body, err := c.gateway.Get(ctx, endpoint, query)
	if err != nil {
		return nil, errors.WithMessage(err, "chaincode query failed")
	}

	var resp queryResponse
	if err := unmarshal(endpoint, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, status.NewClient(status.MalformedResponse, "result is missing from query response")
	}
	return resp.Result, nil
}

// CheckCertificate asks the first peer whether cert is registered on the
// ledger of cfg.
func (c *Client) CheckCertificate(ctx context.Context, cfg fab.ChannelConfig, cert msp.Certificate) (bool, error) {
	if !cert.Valid() {
		return false, status.NewClient(status.MissingCertificate, "no certificate to check")
	}

	var peer string
	if peers := ParsePeers(cfg.PeerList()); len(peers) > 0 {
		peer = peers[0]
	}
	result, err := c.Query(ctx, &QueryRequest{
		ChannelID:   cfg.ChannelID(),
		ChaincodeID: cfg.ChaincodeID(),
		Fcn:         CheckCertificateFcn,
		Peer:        peer,
		Args:        []string{string(cert)},
	})
	if err != nil {
		return false, err
	}

	var n float64
	if err := json.Unmarshal(result, &n); err != nil {
		return false, status.New(status.ClientStatus, status.MalformedResponse.ToInt32(),
			"certificate check result is not a number: "+string(result), nil)
	}
	return n == 1, nil
}
