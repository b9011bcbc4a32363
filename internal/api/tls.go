// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"crypto/tls"
	"fmt"

	"github.com/tailscale/tscert"
)

// TLSConfig returns the server TLS configuration: certificates from the
// local Tailscale daemon when tailscale is set, else the certPath/keyPath
// pair. It returns nil when neither is configured.
func TLSConfig(certPath, keyPath string, tailscale bool) (*tls.Config, error) {
	if tailscale {
		return &tls.Config{GetCertificate: tscert.GetCertificate}, nil
	}
	if certPath == "" && keyPath == "" {
		return nil, nil
	}
	if certPath == "" || keyPath == "" {
		return nil, fmt.Errorf("both tls_cert and tls_key must be specified (got cert=%q, key=%q)", certPath, keyPath)
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load TLS cert/key: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}
