package profile

import (
	"context"
	"errors"
	"net"
	"strconv"
)

// ErrNotFound is returned by a Store when no profile has the requested id
var ErrNotFound = errors.New("profile not found")

// Profile is the stored record a browser session is configured from
type Profile struct {
	ID     string `json:"id" yaml:"id" toml:"id"`
	Name   string `json:"name" yaml:"name" toml:"name"`
	Type   string `json:"type" yaml:"type" toml:"type"`
	Device string `json:"device" yaml:"device" toml:"device"`
	Proxy  *Proxy `json:"proxy,omitempty" yaml:"proxy,omitempty" toml:"proxy,omitempty"`
}

// Proxy is an HTTP proxy a profile routes its traffic through
type Proxy struct {
	Host     string `json:"host" yaml:"host" toml:"host"`
	Port     int    `json:"port" yaml:"port" toml:"port"`
	Username string `json:"username,omitempty" yaml:"username,omitempty" toml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"`
}

// Credentials is a username/password pair for proxy authentication
type Credentials struct {
	Username string
	Password string
}

// Store resolves profile records
type Store interface {
	Get(ctx context.Context, id string) (*Profile, error)
	List(ctx context.Context) ([]*Profile, error)
}

// Clone returns a deep copy so a session's snapshot cannot change after launch
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Proxy != nil {
		px := *p.Proxy
		c.Proxy = &px
	}
	return &c
}

// HasProxy reports whether the profile routes through a usable proxy
func (p *Profile) HasProxy() bool {
	return p != nil && p.Proxy != nil && p.Proxy.Host != "" && p.Proxy.Port > 0
}

// Addr returns host:port
func (p *Proxy) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Credentials returns the configured credentials, if any
func (p *Proxy) Credentials() (Credentials, bool) {
	if p == nil || p.Username == "" {
		return Credentials{}, false
	}
	return Credentials{Username: p.Username, Password: p.Password}, true
}
