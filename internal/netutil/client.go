// Package netutil builds the outbound HTTP clients shared by the router.
package netutil

import (
	"net"
	"net/http"
	"time"
)

// Worker client limits: one client is shared across all pools, so these caps
// bound total fan-out, not per-pool fan-out.
const (
	workerConnectTimeout   = 1 * time.Second
	workerResponseTimeout  = 5 * time.Second
	workerMaxConns         = 200
	workerMaxIdleConns     = 50
	workerIdleConnTimeout  = 90 * time.Second
	workerTLSHandshakeWait = 1 * time.Second
)

// NewWorkerClient returns the shared HTTP client used for worker forwarding
// and health probes: 1s connect, 5s response header wait, 200 connections
// total with 50 kept alive.
func NewWorkerClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   workerConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxConnsPerHost:       workerMaxConns,
		MaxIdleConns:          workerMaxIdleConns,
		MaxIdleConnsPerHost:   workerMaxIdleConns,
		IdleConnTimeout:       workerIdleConnTimeout,
		ResponseHeaderTimeout: workerResponseTimeout,
		TLSHandshakeTimeout:   workerTLSHandshakeWait,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport}
}
