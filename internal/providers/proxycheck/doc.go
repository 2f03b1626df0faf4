// Package proxycheck verifies a profile's proxy by asking an IP-echo service
// which address it sees.
//
// One attempt opens a TCP connection to the proxy, sends a hand-built
// CONNECT request (with Basic Proxy-Authorization when credentials exist),
// performs a TLS handshake over the tunnel and issues a raw
// "GET /?format=json" with "Connection: close". The response is read until
// the stream closes, split at the blank line and the JSON body must carry an
// "ip" field.
//
// Run wraps attempts in a bounded retry loop (10 attempts, 1s apart, 5s per
// attempt by default) and reports every status transition:
//
//	checking (attempt 1) ... checking (attempt n) -> connected | error
//
// Failures never escape as errors; they only show up as reports. The caller
// owns cancellation through the context passed to Run.
package proxycheck
