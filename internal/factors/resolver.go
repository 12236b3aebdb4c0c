package factors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultCacheTTL = time.Hour

var (
	errMissingResolverStore = errors.New("factor store is required")
	noOpLogger              = zap.NewNop()
)

// Lookup describes one factor resolution request.
type Lookup struct {
	Category Category
	Key      Key
	Standard string
	// AsOf bounds the effective date; the zero value means "now".
	AsOf time.Time
	// CountryCode enables country-level grid refinement for electricity.
	CountryCode string
}

// ResolverConfig wires the resolver's dependencies.
type ResolverConfig struct {
	Store  *Store
	Cache  Cache
	Clock  func() time.Time
	TTL    time.Duration
	Logger *zap.Logger
}

// Resolver looks up emission factors, applying the fallback chain:
// cache, exact store match, relaxed mobile match, embedded constant table.
// A chain exhausted on every tier yields ErrFactorNotFound, which callers
// absorb per activity; it never aborts a batch.
type Resolver struct {
	store  *Store
	cache  Cache
	clock  func() time.Time
	ttl    time.Duration
	logger *zap.Logger
}

// NewResolver constructs a Resolver with sane defaults.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Store == nil {
		return nil, errMissingResolverStore
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewMemoryCache()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Resolver{store: cfg.Store, cache: cache, clock: clock, ttl: ttl, logger: logger}, nil
}

// Resolve walks the fallback chain and returns the first hit. Every cache
// miss that resolves is written back to the cache with the current time.
// A lookup carrying an explicit AsOf skips the cache entirely: the cache
// holds current-dated resolutions only, and a dated lookup must return the
// factor version effective at that date.
func (r *Resolver) Resolve(ctx context.Context, lookup Lookup) (Resolved, error) {
	key, err := NewKey(lookup.Key.Primary, lookup.Key.Secondary, lookup.Key.ModelYear)
	if err != nil {
		return Resolved{}, err
	}
	lookup.Key = key

	if !lookup.AsOf.IsZero() {
		return r.resolveUncached(ctx, lookup, lookup.AsOf)
	}
	asOf := r.clock()

	cacheKey := r.cacheKey(lookup)
	if cached, storedAt, ok := r.cache.Get(cacheKey); ok {
		if r.clock().Sub(storedAt) <= r.ttl {
			return cached, nil
		}
		r.cache.Delete(cacheKey)
	}

	resolved, err := r.resolveUncached(ctx, lookup, asOf)
	if err != nil {
		return Resolved{}, err
	}
	r.cache.Set(cacheKey, resolved, r.clock())
	return resolved, nil
}

// ClearCache resets this process's factor cache.
func (r *Resolver) ClearCache() {
	r.cache.Clear()
}

func (r *Resolver) resolveUncached(ctx context.Context, lookup Lookup, asOf time.Time) (Resolved, error) {
	if lookup.Category == CategoryElectricityGrid && HasRefinedGridData(lookup.CountryCode) {
		countryKey := Key{Primary: strings.ToUpper(strings.TrimSpace(lookup.CountryCode))}
		factor, err := r.store.FindExact(ctx, lookup.Category, countryKey, lookup.Standard, asOf)
		if err == nil {
			return Resolved{Factor: factor, Origin: OriginCountryRefined}, nil
		}
		if !errors.Is(err, ErrFactorNotFound) {
			r.logDegradation("country_refined_query_failed", lookup, err)
		}
	}

	factor, err := r.store.FindExact(ctx, lookup.Category, lookup.Key, lookup.Standard, asOf)
	if err == nil {
		return Resolved{Factor: factor, Origin: OriginStore}, nil
	}
	if !errors.Is(err, ErrFactorNotFound) {
		r.logDegradation("exact_query_failed", lookup, err)
	}

	if lookup.Category == CategoryMobileSource {
		factor, err = r.store.FindNewestMobileMatch(ctx, lookup.Key, lookup.Standard, asOf)
		if err == nil {
			return Resolved{Factor: factor, Origin: OriginRelaxedMatch}, nil
		}
		if !errors.Is(err, ErrFactorNotFound) {
			r.logDegradation("relaxed_query_failed", lookup, err)
		}
	}

	if factor, ok := lookupStatic(lookup.Category, lookup.Key); ok {
		return Resolved{Factor: factor, Origin: OriginStatic}, nil
	}

	return Resolved{}, fmt.Errorf("%w: %s/%s/%s", ErrFactorNotFound, lookup.Category, lookup.Key, lookup.Standard)
}

func (r *Resolver) cacheKey(lookup Lookup) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s|%s",
		lookup.Category, lookup.Key.Primary, lookup.Key.Secondary, lookup.Key.ModelYear,
		lookup.Standard, strings.ToUpper(strings.TrimSpace(lookup.CountryCode)))
}

func (r *Resolver) logDegradation(reason string, lookup Lookup, err error) {
	r.logger.Warn("factor resolution degraded",
		zap.String("reason", reason),
		zap.String("category", string(lookup.Category)),
		zap.String("key", lookup.Key.String()),
		zap.String("standard", lookup.Standard),
		zap.Error(err))
}
