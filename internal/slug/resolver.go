package slug

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MaxAttempts bounds the numeric suffixes tried before falling back to a timestamp suffix
const MaxAttempts = 100

// Lookup finds the ids of every post stored under an exact slug
type Lookup interface {
	IDsBySlug(ctx context.Context, slug string) ([]string, error)
}

// Resolver checks slug availability against the collection
type Resolver struct {
	lookup Lookup
	log    zerolog.Logger
	now    func() time.Time
}

func NewResolver(lookup Lookup, log zerolog.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		log:    log,
		now:    time.Now,
	}
}

// IsAvailable reports whether slug is free, ignoring excludeID so a post can keep its own slug.
// A failed lookup counts as available: an author is never blocked by a transient read error.
// The check is not atomic with the following write.
func (r *Resolver) IsAvailable(ctx context.Context, slug, excludeID string) bool {
	ids, err := r.lookup.IDsBySlug(ctx, slug)
	if err != nil {
		r.log.Warn().
			Err(err).
			Str("slug", slug).
			Msg("Slug lookup failed, treating slug as available")
		return true
	}

	for _, id := range ids {
		if excludeID == "" || id != excludeID {
			return false
		}
	}
	return true
}

// ResolveUnique returns base when free, otherwise the first free base-N for N in 1..MaxAttempts,
// otherwise base-<unix millis>. base is shortened so a suffixed slug stays within MaxLength.
func (r *Resolver) ResolveUnique(ctx context.Context, base, excludeID string) string {
	if r.IsAvailable(ctx, base, excludeID) {
		return base
	}

	for i := 1; i <= MaxAttempts; i++ {
		candidate := withSuffix(base, fmt.Sprintf("-%d", i))
		if r.IsAvailable(ctx, candidate, excludeID) {
			return candidate
		}
	}

	fallback := withSuffix(base, fmt.Sprintf("-%d", r.now().UnixMilli()))
	r.log.Warn().
		Str("slug", base).
		Str("fallback", fallback).
		Int("attempts", MaxAttempts).
		Msg("No numbered slug available, using timestamp suffix")
	return fallback
}

func withSuffix(base, suffix string) string {
	return Truncate(base, MaxLength-len(suffix)) + suffix
}
