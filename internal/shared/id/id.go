// Package id generates the identifiers used across the backend.
//
// Every identifier is a ULID, optionally prefixed with its kind so that ids
// stay sortable by creation time and readable in logs:
//   - view_*: content views created by the headless engine
//   - part_*: storage partitions
//   - req_*:  API requests and trace spans
//   - ws_*:   event stream clients
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ViewID identifies a content view
type ViewID string

// PartitionID identifies a storage partition
type PartitionID string

// RequestID identifies an API request or span
type RequestID string

// ClientID identifies an event stream client
type ClientID string

const (
	ViewPrefix      = "view"
	PartitionPrefix = "part"
	RequestPrefix   = "req"
	ClientPrefix    = "ws"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// used by tests that need deterministic ids
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewViewID generates a content view id
func NewViewID() ViewID {
	return ViewID(Default().GenerateWithPrefix(ViewPrefix))
}

// NewPartitionID generates a storage partition id
func NewPartitionID() PartitionID {
	return PartitionID(Default().GenerateWithPrefix(PartitionPrefix))
}

// NewRequestID generates a request id
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewClientID generates an event stream client id
func NewClientID() ClientID {
	return ClientID(Default().GenerateWithPrefix(ClientPrefix))
}

func (id ViewID) String() string      { return string(id) }
func (id PartitionID) String() string { return string(id) }
func (id RequestID) String() string   { return string(id) }
func (id ClientID) String() string    { return string(id) }

// IsValid checks if s is a valid ULID, with or without a kind prefix
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Parse parses a ULID, stripping a kind prefix if present
func Parse(s string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	return ulid.Parse(s)
}

// Timestamp extracts the creation time from an id
func Timestamp(s string) (time.Time, error) {
	parsed, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
