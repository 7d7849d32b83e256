/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cmd implements the hlfiot command line.
package cmd

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/retry"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/logging"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/config"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fabsdk"
)

var logger = logging.NewLogger("hlfiot/cli")

const configEnv = "HLFIOT_CONFIG"

type globalFlags struct {
	configFile string
	output     string
	retries    int
	backoff    time.Duration
	timeout    time.Duration
	operations bool
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "hlfiot",
		Short: "Enroll a device identity and submit signed transactions",
		Long: `hlfiot drives a device through the gateway of a Hyperledger Fabric IoT network.

The private key never leaves the device: the gateway builds every payload and
returns its digest, the device signs it locally.

Examples:
  # Enroll a new identity and store it in the key store
  hlfiot identity generate --config config.yaml

  # Load the first stored identity still registered on the ledger
  hlfiot identity restore --config config.yaml

  # Register the certificate of the stored identity on the ledger
  hlfiot tx submit --config config.yaml --retries 3

  # Enroll then submit in one go
  hlfiot run --config config.yaml --output yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := newPrinter(flags.output, cmd.OutOrStdout()); err != nil {
				return err
			}
			if flags.retries < 0 {
				return errors.New("--retries must not be negative")
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", os.Getenv(configEnv), "configuration file (or use "+configEnv+")")
	pf.StringVarP(&flags.output, "output", "o", outputText, "output format: text or yaml")
	pf.IntVar(&flags.retries, "retries", 0, "number of times a failed action is retried")
	pf.DurationVar(&flags.backoff, "backoff", retry.DefaultInitialBackoff, "wait before the first retry, doubled on each retry")
	pf.DurationVar(&flags.timeout, "timeout", 2*time.Minute, "overall timeout of the command")
	pf.BoolVar(&flags.operations, "operations", false, "serve metrics and health endpoints while running")

	rootCmd.AddCommand(newIdentityCmd(flags))
	rootCmd.AddCommand(newTxCmd(flags))
	rootCmd.AddCommand(newRunCmd(flags))

	return rootCmd
}

// session is what every command works with.
type session struct {
	sdk     *fabsdk.FabricSDK
	printer printer
	invoker *retry.RetryableInvoker
	ctx     context.Context
	cancel  context.CancelFunc
}

func newSession(cmd *cobra.Command, flags *globalFlags) (*session, error) {
	if flags.configFile == "" {
		return nil, errors.Errorf("a configuration file is required (--config or %s)", configEnv)
	}

	p, err := newPrinter(flags.output, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}

	var opts []fabsdk.Option
	if flags.operations {
		opts = append(opts, fabsdk.WithOperations())
	}
	sdk, err := fabsdk.New(config.FromFile(flags.configFile), opts...)
	if err != nil {
		return nil, err
	}

	handler := retry.New(retry.Opts{
		Attempts:       flags.retries,
		InitialBackoff: flags.backoff,
		MaxBackoff:     retry.DefaultMaxBackoff,
		BackoffFactor:  retry.DefaultBackoffFactor,
	})
	invoker := retry.NewInvoker(handler, retry.WithBeforeRetry(func(err error) {
		logger.Warnf("retrying after error: %s", err)
	}))

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	return &session{sdk: sdk, printer: p, invoker: invoker, ctx: ctx, cancel: cancel}, nil
}

func (s *session) close() {
	s.cancel()
	if err := s.sdk.Close(context.Background()); err != nil {
		logger.Warnf("failed to stop operations endpoints: %s", err)
	}
}
