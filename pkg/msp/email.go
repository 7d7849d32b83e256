/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
)

// EmailProvider supplies the email sent with a signing request.
type EmailProvider interface {
	Email(ctx context.Context) string
}

// EmailSource reads the email from the custom field endpoint when one is
// configured. It falls back to the configured email, then to the current
// time in Unix milliseconds so that every request carries a distinct value.
type EmailSource struct {
	Gateway        fab.Gateway
	CustomFieldURL string
	Configured     string
	// Now defaults to time.Now
	Now func() time.Time
}

type customFieldResponse struct {
	CustomField string `json:"customField"`
}

// Email returns the email to use. It never fails.
func (s *EmailSource) Email(ctx context.Context) string {
	if s.Gateway != nil && s.CustomFieldURL != "" {
		if email, ok := s.customField(ctx); ok {
			return email
		}
	}
	if s.Configured != "" {
		return s.Configured
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return strconv.FormatInt(now().UnixNano()/int64(time.Millisecond), 10)
}

func (s *EmailSource) customField(ctx context.Context) (string, bool) {
	body, err := s.Gateway.Get(ctx, fab.CustomFieldEndpoint(s.CustomFieldURL), nil)
	if err != nil {
		logger.Warnf("custom field request failed, using fallback email: %s", err)
		return "", false
	}
	var resp customFieldResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logger.Warnf("custom field response is not valid JSON, using fallback email: %s", err)
		return "", false
	}
	email := strings.TrimSpace(resp.CustomField)
	return email, email != ""
}
