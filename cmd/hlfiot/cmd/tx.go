/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
)

func newTxCmd(flags *globalFlags) *cobra.Command {
	txCmd := &cobra.Command{
		Use:   "tx",
		Short: "Submit transactions with the stored identity",
	}

	txCmd.AddCommand(&cobra.Command{
		Use:   "submit",
		Short: "Propose, sign and broadcast the configured transaction",
		Long: `Restore the first stored identity registered on the ledger, then propose the
configured chaincode invocation, sign the proposal and the broadcast payload
and broadcast it. The acknowledgment of the gateway is printed as received.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer s.close()

			if _, err := restore(s); err != nil {
				return err
			}
			report, err := submit(s)
			if err != nil {
				return err
			}
			return s.printer.Print(report)
		},
	})

	return txCmd
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Enroll a new identity and submit the configured transaction with it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer s.close()

			identity, err := generate(s)
			if err != nil {
				if identity != nil {
					if perr := s.printer.Print(identity); perr != nil {
						return perr
					}
				}
				return err
			}

			tx, err := submit(s)
			if err != nil {
				return err
			}
			return s.printer.Print(&runReport{Identity: *identity, Transaction: *tx})
		},
	}
}

func submit(s *session) (*txReport, error) {
	p := s.sdk.Pipeline()

	retval, err := s.invoker.Invoke(s.ctx, func() (interface{}, error) {
		return p.SubmitTransaction(s.ctx)
	})
	if err != nil {
		return nil, err
	}
	result, ok := retval.(fab.PipelineResult)
	if !ok {
		return nil, errors.Errorf("unexpected submission result %T", retval)
	}

	state := p.State()
	logger.Infof("transaction submitted, stage %s", state.Stage)
	return newTxReport(state.Stage, result), nil
}
