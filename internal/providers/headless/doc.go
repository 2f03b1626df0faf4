// Package headless is a GUI-less host for browser sessions.
//
// It implements the browser package's Engine, Partition, ContentView and
// Window contracts over plain HTTP so the orchestrator can run as a service:
//   - Partition: a cookie jar and transport per profile, routed through the
//     profile's proxy
//   - View: fetches pages, keeps a back/forward history and reports title,
//     navigation and load events from its own goroutine
//   - Window: records the content bounds and the attached view
//
// Proxy authentication is answered per request: every request carries the id
// of the view that issued it, and the engine asks its CredentialSource for
// that view's credentials.
package headless
