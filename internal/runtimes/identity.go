package runtimes

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidIdentity = errors.New("runtimes: invalid package identity")

// Identity is a structured runtime package identity of the form
// Name_Version_Architecture_PublisherHash.
type Identity struct {
	Name          string
	Version       string
	Arch          string
	PublisherHash string
}

// ParseIdentity splits an identity string into its underscore-delimited parts.
func ParseIdentity(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, fmt.Errorf("%w: empty", ErrInvalidIdentity)
	}
	parts := strings.Split(raw, "_")
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return Identity{}, fmt.Errorf("%w: %s", ErrInvalidIdentity, raw)
	}
	id := Identity{
		Name:    strings.TrimSpace(parts[0]),
		Version: strings.TrimSpace(parts[1]),
	}
	if len(parts) > 2 {
		id.Arch = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		id.PublisherHash = strings.TrimSpace(parts[3])
	}
	return id, nil
}

// String reassembles the identity in its wire form.
func (id Identity) String() string {
	parts := []string{id.Name, id.Version}
	if id.Arch != "" || id.PublisherHash != "" {
		parts = append(parts, id.Arch)
	}
	if id.PublisherHash != "" {
		parts = append(parts, id.PublisherHash)
	}
	return strings.Join(parts, "_")
}
