// Package http exposes the orchestrator over a gin REST API.
//
// Commands act on the foreground session and answer with its state. Unknown
// profile or tab ids are no-ops; only launching a profile the store does not
// know fails (404).
package http
