/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/client/pipeline"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	mspimpl "github.com/hlf-iot/iot-client-sdk-go/pkg/msp"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

type identityReport struct {
	Status      string                   `yaml:"status"`
	Stage       string                   `yaml:"stage"`
	PublicKeyX  string                   `yaml:"publicKeyX,omitempty"`
	PublicKeyY  string                   `yaml:"publicKeyY,omitempty"`
	Certificate *mspimpl.CertificateInfo `yaml:"certificate,omitempty"`
	Stored      bool                     `yaml:"stored"`
}

type txReport struct {
	Stage    string `yaml:"stage"`
	Accepted *bool  `yaml:"accepted,omitempty"`
	Ack      string `yaml:"ack"`
}

type listReport struct {
	Identities []identityReport `yaml:"identities"`
}

type runReport struct {
	Identity    identityReport `yaml:"identity"`
	Transaction txReport       `yaml:"transaction"`
}

type printer interface {
	Print(v interface{}) error
}

func newPrinter(format string, w io.Writer) (printer, error) {
	switch strings.ToLower(format) {
	case outputText, "":
		return &textPrinter{w: w}, nil
	case outputYAML:
		return &yamlPrinter{w: w}, nil
	default:
		return nil, errors.Errorf("unsupported output format [%s]", format)
	}
}

type yamlPrinter struct {
	w io.Writer
}

func (p *yamlPrinter) Print(v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "yaml marshal failed")
	}
	_, err = p.w.Write(out)
	return err
}

type textPrinter struct {
	w io.Writer
}

func (p *textPrinter) Print(v interface{}) error {
	switch r := v.(type) {
	case *identityReport:
		p.identity(r, "")
	case *txReport:
		p.tx(r, "")
	case *listReport:
		if len(r.Identities) == 0 {
			fmt.Fprintln(p.w, "no stored identities")
		}
		for i := range r.Identities {
			fmt.Fprintf(p.w, "identity %d:\n", i+1)
			p.identity(&r.Identities[i], "  ")
		}
	case *runReport:
		fmt.Fprintln(p.w, "identity:")
		p.identity(&r.Identity, "  ")
		fmt.Fprintln(p.w, "transaction:")
		p.tx(&r.Transaction, "  ")
	default:
		return errors.Errorf("unsupported report type %T", v)
	}
	return nil
}

func (p *textPrinter) identity(r *identityReport, indent string) {
	fmt.Fprintf(p.w, "%sStatus:  %s\n", indent, r.Status)
	fmt.Fprintf(p.w, "%sStage:   %s\n", indent, r.Stage)
	if r.PublicKeyX != "" {
		fmt.Fprintf(p.w, "%sKey X:   %s\n", indent, r.PublicKeyX)
		fmt.Fprintf(p.w, "%sKey Y:   %s\n", indent, r.PublicKeyY)
	}
	if c := r.Certificate; c != nil {
		fmt.Fprintf(p.w, "%sSubject: %s\n", indent, c.Subject)
		fmt.Fprintf(p.w, "%sIssuer:  %s\n", indent, c.Issuer)
		fmt.Fprintf(p.w, "%sSerial:  %s\n", indent, c.Serial)
		fmt.Fprintf(p.w, "%sValid:   %s - %s\n", indent, c.NotBefore.Format(time.RFC3339), c.NotAfter.Format(time.RFC3339))
	}
	fmt.Fprintf(p.w, "%sStored:  %t\n", indent, r.Stored)
}

func (p *textPrinter) tx(r *txReport, indent string) {
	fmt.Fprintf(p.w, "%sStage:    %s\n", indent, r.Stage)
	if r.Accepted != nil {
		fmt.Fprintf(p.w, "%sAccepted: %t\n", indent, *r.Accepted)
	}
	fmt.Fprintf(p.w, "%sAck:      %s\n", indent, r.Ack)
}

func newIdentityReport(status string, stage pipeline.Stage, identity *msp.Identity) *identityReport {
	r := &identityReport{Status: status}
	if stage != nil {
		r.Stage = stage.String()
	}
	if identity == nil {
		return r
	}
	r.PublicKeyX, r.PublicKeyY = identity.KeyPair.PublicKeyHex()

	info, err := mspimpl.DescribeCertificate(identity.Certificate)
	if err != nil {
		logger.Warnf("certificate could not be described: %s", err)
		return r
	}
	r.Certificate = info
	return r
}

func newTxReport(stage pipeline.Stage, result fab.PipelineResult) *txReport {
	return &txReport{
		Stage:    stage.String(),
		Accepted: result.Accepted,
		Ack:      result.String(),
	}
}
