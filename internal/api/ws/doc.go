// Package ws streams orchestrator events to UI clients over WebSocket.
//
// The Hub implements browser.Emitter. Emit never blocks: each client has a
// bounded send queue and a client whose queue is full is disconnected.
//
// Message Types (Server → Client):
//   - snapshot: every session, sent once on connect
//   - tabs_updated, url_changed, proxy_status, closed: orchestrator events
//   - pong: reply to ping
//   - error: unknown client message
//
// Message Types (Client → Server):
//   - ping: keep-alive
//
// Example Usage:
//
//	hub := ws.NewHub(logger).WithSnapshot(func() any { return orch.Snapshot() })
//	router.GET("/stream", hub.HandleConnection)
package ws
