// Package profile defines the profile records browser sessions are launched
// from and the Store interface used to resolve them.
//
// Records live outside this service (a remote database or a directory of
// files, see providers/profiles). A session keeps a Clone of the record taken
// at launch time, so later edits never affect a running session.
package profile
