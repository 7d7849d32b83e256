/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
)

const (
	statusEnrolled = "enrolled"
	statusRejected = "rejected"
	statusRestored = "restored"
	statusStored   = "stored"
)

func newIdentityCmd(flags *globalFlags) *cobra.Command {
	identityCmd := &cobra.Command{
		Use:   "identity",
		Short: "Enroll, restore and list device identities",
	}

	identityCmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Generate a key pair, enroll it and store the issued certificate",
		Long: `Generate a new P-256 key pair, have the CA issue a certificate for it and
store the certificate in the key store as <private key hex>.pem.

A rejected enrollment is retried when --retries is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer s.close()

			report, err := generate(s)
			if report != nil {
				if perr := s.printer.Print(report); perr != nil {
					return perr
				}
			}
			return err
		},
	})

	identityCmd.AddCommand(&cobra.Command{
		Use:   "restore",
		Short: "Load the first stored identity registered on the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer s.close()

			report, err := restore(s)
			if err != nil {
				return err
			}
			return s.printer.Print(report)
		},
	})

	identityCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the identities in the key store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer s.close()

			identities, err := s.sdk.IdentityStore().List()
			if err != nil {
				return err
			}
			report := &listReport{Identities: []identityReport{}}
			for _, identity := range identities {
				r := newIdentityReport(statusStored, nil, identity)
				r.Stored = true
				report.Identities = append(report.Identities, *r)
			}
			return s.printer.Print(report)
		},
	})

	return identityCmd
}

// generate enrolls a new identity and stores it. The report is returned for
// rejected enrollments as well.
func generate(s *session) (*identityReport, error) {
	p := s.sdk.Pipeline()

	_, err := s.invoker.Invoke(s.ctx, func() (interface{}, error) {
		cert, err := p.GenerateIdentity(s.ctx)
		if err != nil {
			return nil, err
		}
		if cert == "" {
			return nil, status.NewClient(status.EnrollmentRejected, "enrollment was rejected by the CA")
		}
		return cert, nil
	})
	if err != nil {
		if status.Is(err, status.ClientStatus, status.EnrollmentRejected) {
			return newIdentityReport(statusRejected, p.State().Stage, nil), err
		}
		return nil, err
	}

	identity := p.Identity()
	report := newIdentityReport(statusEnrolled, p.State().Stage, identity)
	if err := s.sdk.IdentityStore().Store(identity); err != nil {
		return report, errors.WithMessage(err, "identity was enrolled but could not be stored")
	}
	report.Stored = true
	return report, nil
}

// restore loads the first stored identity the ledger knows.
func restore(s *session) (*identityReport, error) {
	p := s.sdk.Pipeline()

	_, err := s.invoker.Invoke(s.ctx, func() (interface{}, error) {
		return p.RestoreIdentity(s.ctx, s.sdk.IdentityStore())
	})
	if err != nil {
		if errors.Cause(err) == msp.ErrIdentityNotFound {
			return nil, errors.New("no stored identity is registered on the ledger, run 'identity generate' first")
		}
		return nil, err
	}

	report := newIdentityReport(statusRestored, p.State().Stage, p.Identity())
	report.Stored = true
	return report, nil
}
