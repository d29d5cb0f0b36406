// Package resolve owns desired-package version selection.
//
// Ownership boundary:
// - merging pinned versions with feed lookups into an install plan
// - per-package lookup failure tolerance
package resolve

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/sdkctl/internal/nuget"
)

// Resolver decides which version each desired package should install at.
type Resolver struct {
	Source nuget.VersionSource
}

// NewResolver builds a resolver over a feed version source.
func NewResolver(source nuget.VersionSource) *Resolver {
	return &Resolver{Source: source}
}

// Resolve maps each desired package to a target version.
//
// Pinned versions win when preferPinned is set; everything else asks the
// feed for its latest. A package whose lookup fails is omitted from the
// plan so the remaining packages still install.
func (r *Resolver) Resolve(ctx context.Context, desired []string, pinned map[string]string, includePrerelease, preferPinned bool) map[string]string {
	plan := make(map[string]string, len(desired))
	for _, name := range desired {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if preferPinned {
			if pin := pinnedVersion(pinned, name); pin != "" {
				plan[name] = pin
				continue
			}
		}
		if r.Source == nil {
			log.Warn().Str("package", name).Msg("no version source, package omitted from plan")
			continue
		}
		latest, err := r.Source.LatestVersion(ctx, name, includePrerelease)
		if err != nil {
			log.Warn().Str("package", name).Err(err).Msg("version lookup failed, package omitted from plan")
			continue
		}
		plan[name] = latest
	}
	return plan
}

// pinnedVersion reads a pin case-insensitively on the package name.
func pinnedVersion(pinned map[string]string, name string) string {
	if v, ok := pinned[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range pinned {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
