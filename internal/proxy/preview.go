// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package proxy serves previews of services detected in a worktree's
// terminals by reverse proxying to their local ports.
package proxy

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// PortLookup resolves a worktree's service names to ports.
type PortLookup interface {
	GetDetectedPortsMap(worktreeID string) map[string]int
}

// Preview proxies /preview/{wt}/{service}/... to the port the service
// listens on. Routes must define the wt and service variables.
type Preview struct {
	ports PortLookup
	host  string
	log   *slog.Logger

	mu      sync.Mutex
	proxies map[int]*httputil.ReverseProxy
}

// NewPreview creates a preview proxy forwarding to 127.0.0.1.
func NewPreview(ports PortLookup) *Preview {
	return &Preview{
		ports:   ports,
		host:    "127.0.0.1",
		log:     slog.Default().With("component", "proxy"),
		proxies: make(map[int]*httputil.ReverseProxy),
	}
}

func (p *Preview) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	wt, service := vars["wt"], vars["service"]
	port, ok := p.ports.GetDetectedPortsMap(wt)[service]
	if !ok {
		http.Error(w, "no port detected for service "+service, http.StatusNotFound)
		return
	}

	prefix := "/preview/" + wt + "/" + service
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	r.URL.Path = rest
	r.URL.RawPath = ""

	if isWebSocket(r) {
		p.serveWebSocket(w, r, p.addr(port))
		return
	}
	p.proxy(port).ServeHTTP(w, r)
}

func (p *Preview) addr(port int) string {
	return net.JoinHostPort(p.host, strconv.Itoa(port))
}

// proxy returns the reverse proxy for port, creating it on first use.
func (p *Preview) proxy(port int) *httputil.ReverseProxy {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rp, ok := p.proxies[port]; ok {
		return rp
	}

	u := &url.URL{Scheme: "http", Host: p.addr(port)}
	rp := httputil.NewSingleHostReverseProxy(u)
	rp.FlushInterval = -1
	director := rp.Director
	rp.Director = func(req *http.Request) {
		director(req)
		req.Host = u.Host
	}
	rp.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		p.log.Warn("preview proxy error", "path", req.URL.Path, "upstream", u.Host, "error", err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}
	p.proxies[port] = rp
	return rp
}

// serveWebSocket tunnels an upgrade request to addr.
func (p *Preview) serveWebSocket(w http.ResponseWriter, r *http.Request, addr string) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	upstream, err := dialer.DialContext(r.Context(), "tcp", addr)
	if err != nil {
		p.log.Warn("websocket preview dial failed", "upstream", addr, "error", err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		upstream.Close()
		http.Error(w, "WebSocket hijack not supported", http.StatusInternalServerError)
		return
	}
	client, buf, err := hijacker.Hijack()
	if err != nil {
		upstream.Close()
		p.log.Warn("websocket hijack failed", "error", err)
		return
	}

	r.Host = addr
	if err := r.Write(upstream); err != nil {
		client.Close()
		upstream.Close()
		p.log.Warn("websocket preview write failed", "upstream", addr, "error", err)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(client, upstream)
		client.Close()
	}()
	go func() {
		defer wg.Done()
		// Bytes the server already read from the client go first.
		if n := buf.Reader.Buffered(); n > 0 {
			pending, _ := buf.Reader.Peek(n)
			upstream.Write(pending)
		}
		io.Copy(upstream, client)
		upstream.Close()
	}()
	wg.Wait()
}

func isWebSocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
