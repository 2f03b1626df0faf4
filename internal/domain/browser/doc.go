// Package browser orchestrates isolated browsing sessions.
//
// Each profile gets one Session holding its own storage partition, proxy
// configuration and ordered tab set. Exactly one session is foreground at a
// time; its active tab is the only content view attached to the host window.
//
// Components:
//   - Registry: profile id to session map plus the foreground pointer
//   - Session: per-profile tab set and proxy verification state
//   - CredentialCache: proxy credentials resolved by the view that asks
//   - Orchestrator: the public operation surface and event wiring
//
// Concurrency:
//
// The Orchestrator serializes every mutation behind one mutex. Content views
// deliver title, navigation and load events on their own goroutines, and
// proxy verification loops run in the background and report back through the
// same lock. Events for a tab or session that no longer exists are dropped.
//
// Example Usage:
//
//	orch := browser.NewOrchestrator(browser.Dependencies{
//		Store:    store,
//		Engine:   engine,
//		Window:   window,
//		Verifier: verifier,
//		Emitter:  hub,
//		Logger:   log,
//	})
//	err := orch.Launch(ctx, "profile-a")
//	orch.Navigate("example.com")
package browser
