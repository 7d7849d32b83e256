/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fabsdk

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/client/pipeline"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
)

// gatewayChecker reports the gateway unhealthy while the last pipeline
// action failed on the transport.
type gatewayChecker struct {
	pipeline *pipeline.Pipeline
}

func (c *gatewayChecker) HealthCheck(ctx context.Context) error {
	state := c.pipeline.State()
	if state.Err != nil && status.IsTransport(state.Err) {
		return errors.WithMessage(state.Err, "last gateway call failed")
	}
	return nil
}
