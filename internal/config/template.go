// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Template is the commented config file written by `arbor init`.
const Template = `{
  // HTTP listener. Keep it on loopback.
  server: {
    host: 127.0.0.1
    port: 7420
    // tls_cert: ~/.arbor/cert.pem
    // tls_key: ~/.arbor/key.pem
    // tls_tailscale: true
  }

  session: {
    // path: ~/.arbor/config.json
    watch: true
    debounce: 100ms
  }

  ports: {
    poll_interval: 2s
    lsof_path: lsof
  }

  events: {
    history: {
      max_events: 10000
      max_age: 1h
    }
  }

  logging: {
    // debug, info, warn or error
    level: info
  }

  // terminal: {
  //   shell: /bin/zsh
  // }
}
`

// WriteTemplate writes Template to path. It refuses to overwrite an existing
// file unless force is set.
func WriteTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
