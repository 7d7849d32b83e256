/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package urlutil

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// IsTLSEnabled is a generic function that expects a URL and verifies if it has
// a prefix HTTPS to return true for TLS Enabled URLs or false otherwise
func IsTLSEnabled(url string) bool {
	return strings.HasPrefix(strings.ToLower(url), "https://")
}

//HasProtocol is a utility function which verifies if protocol is provided in URL
func HasProtocol(url string) bool {
	return strings.Contains(url, "://")
}

// ParseBaseURL parses a gateway base URL. A missing protocol defaults to http
// and the path always ends with a slash so that relative endpoint paths
// resolve beneath it.
func ParseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("URL is empty")
	}
	if !HasProtocol(raw) {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid URL [%s]", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported protocol [%s] in URL [%s]", u.Scheme, raw)
	}
	if u.Host == "" {
		return nil, errors.Errorf("host is missing in URL [%s]", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// Resolve returns the absolute URL of path relative to base. Paths that
// already carry a protocol are returned as is.
func Resolve(base *url.URL, path string) string {
	if HasProtocol(path) {
		return path
	}
	return base.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")}).String()
}
