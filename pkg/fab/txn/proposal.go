/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"strings"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
)

// NewProposalRequest builds the proposal of cfg on behalf of cert.
// Without configured arguments the certificate is split on commas and
// sent as the arguments.
func NewProposalRequest(cfg fab.ChannelConfig, cert msp.Certificate) *fab.ProposalRequest {
	args := cfg.Args()
	if len(args) == 0 {
		args = strings.Split(string(cert), ",")
	}
	return &fab.ProposalRequest{
		ChannelID:   cfg.ChannelID(),
		ChaincodeID: cfg.ChaincodeID(),
		MSPID:       cfg.MSPID(),
		Fcn:         cfg.Fcn(),
		Args:        args,
		UserCert:    string(cert),
	}
}

// ParsePeers splits a comma delimited peer list. Entries are kept verbatim,
// including order, duplicates, blanks and surrounding spaces. An empty list
// has no peers.
func ParsePeers(list string) []string {
	if list == "" {
		return []string{}
	}
	return strings.Split(list, ",")
}

func validCertificate(cert string) bool {
	return msp.Certificate(cert).Valid()
}
