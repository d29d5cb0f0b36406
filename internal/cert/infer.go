package cert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/sdkctl/internal/manifest"
)

var ErrNoPublisher = errors.New("cert: no publisher: pass one explicitly, point at a manifest file, or add a manifest with a publisher to the project")

// InferPublisher resolves a certificate subject through the ordered
// fallback chain: explicit value, named manifest file, project discovery.
func InferPublisher(explicit, manifestPath string, discover func() (string, error)) (string, error) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, nil
	}
	if path := strings.TrimSpace(manifestPath); path != "" {
		publisher, err := manifest.PublisherOf(path)
		if err != nil {
			return "", fmt.Errorf("cert: requested manifest %s: %w", path, err)
		}
		return publisher, nil
	}
	if discover != nil {
		publisher, err := discover()
		if err == nil && strings.TrimSpace(publisher) != "" {
			return strings.TrimSpace(publisher), nil
		}
	}
	return "", ErrNoPublisher
}

// Subject sanitizes an inferred publisher and wraps it as a CN subject.
func Subject(publisher string) string {
	name := strings.NewReplacer(`"`, "", "'", "").Replace(publisher)
	name = strings.TrimSpace(name)
	for {
		trimmed := strings.TrimSpace(strings.TrimPrefix(name, "CN="))
		if trimmed == name {
			break
		}
		name = trimmed
	}
	return "CN=" + name
}
