// Package profiles provides profile.Store implementations.
//
// FileStore reads profile records from YAML, TOML or JSON files under a
// directory. RemoteStore reads them from the profile database's REST API
// through a rate limited, retrying client guarded by a circuit breaker.
package profiles
