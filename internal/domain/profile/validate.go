package profile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits
const (
	MaxIDLength   = 128
	MaxNameLength = 256
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid profile")

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateID checks that id is usable as a store key and a partition name
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: id must not exceed %d characters", ErrInvalid, MaxIDLength)
	}
	if !idPattern.MatchString(id) || strings.Trim(id, ".") == "" {
		return fmt.Errorf("%w: id %q may only contain letters, digits, dots, hyphens and underscores", ErrInvalid, id)
	}
	return nil
}

// Validate checks the record's id, name and proxy
func (p *Profile) Validate() error {
	if err := ValidateID(p.ID); err != nil {
		return err
	}
	if utf8.RuneCountInString(p.Name) > MaxNameLength {
		return fmt.Errorf("%w: name of %q must not exceed %d characters", ErrInvalid, p.ID, MaxNameLength)
	}
	if strings.ContainsRune(p.Name, 0) {
		return fmt.Errorf("%w: name of %q contains invalid characters", ErrInvalid, p.ID)
	}
	if p.Proxy != nil {
		if err := p.Proxy.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.ID, err)
		}
	}
	return nil
}

// Validate checks host and port. A password without a username is rejected
// since it could never be sent.
func (p *Proxy) Validate() error {
	switch {
	case strings.TrimSpace(p.Host) == "":
		return fmt.Errorf("%w: proxy host is required", ErrInvalid)
	case strings.ContainsAny(p.Host, " /\x00"):
		return fmt.Errorf("%w: proxy host %q is malformed", ErrInvalid, p.Host)
	case p.Port < 1 || p.Port > 65535:
		return fmt.Errorf("%w: proxy port %d is out of range", ErrInvalid, p.Port)
	case p.Username == "" && p.Password != "":
		return fmt.Errorf("%w: proxy password set without a username", ErrInvalid)
	}
	return nil
}
