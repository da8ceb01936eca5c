package modelo347

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/modelo347/internal/modelo347/locality"
)

const (
	countryVersionKey    = "modelo347:countries:version"
	countryLookupTimeout = 10 * time.Second
)

// CountryLookup resolves internal country codes to ISO codes. Codes missing
// from the result are unknown.
type CountryLookup interface {
	CountryISOCodes(ctx context.Context, codes []string) (map[string]string, error)
}

// CountryCache keeps country to ISO lookups in Redis. Concurrent misses for
// the same set of codes share one database query. Redis failures fall back to
// the database.
type CountryCache struct {
	client *redis.Client
	ttl    time.Duration
	lookup CountryLookup
	logger *slog.Logger
	group  singleflight.Group
}

// NewCountryCache builds a cache in front of lookup. A nil client disables
// caching and every call goes to lookup.
func NewCountryCache(client *redis.Client, ttl time.Duration, lookup CountryLookup, logger *slog.Logger) *CountryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &CountryCache{client: client, ttl: ttl, lookup: lookup, logger: logger}
}

// cachedCountry is the stored payload. Unknown codes are cached too, with an
// empty ISO value.
type cachedCountry struct {
	ISO string `json:"iso"`
}

// Resolve returns an ISO table covering codes.
func (c *CountryCache) Resolve(ctx context.Context, codes []string) (locality.ISOTable, error) {
	codes = normaliseCodes(codes)
	table := make(locality.ISOTable, len(codes))
	if len(codes) == 0 {
		return table, nil
	}
	if c.client == nil {
		return c.resolveDirect(ctx, table, codes)
	}

	ver, err := c.version(ctx)
	if err != nil {
		c.logger.Warn("country cache unavailable", slog.Any("error", err))
		return c.resolveDirect(ctx, table, codes)
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = countryKey(ver, code)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("country cache get", slog.Any("error", err))
		return c.resolveDirect(ctx, table, codes)
	}

	var misses []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			misses = append(misses, codes[i])
			continue
		}
		var entry cachedCountry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			misses = append(misses, codes[i])
			continue
		}
		if entry.ISO != "" {
			table[codes[i]] = entry.ISO
		}
	}
	if len(misses) == 0 {
		return table, nil
	}

	found, err := c.load(ctx, misses)
	if err != nil {
		return nil, err
	}
	pipe := c.client.Pipeline()
	for _, code := range misses {
		iso := found[code]
		if iso != "" {
			table[code] = iso
		}
		payload, err := json.Marshal(cachedCountry{ISO: iso})
		if err != nil {
			return nil, err
		}
		pipe.Set(ctx, countryKey(ver, code), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("country cache set", slog.Int("codes", len(misses)), slog.Any("error", err))
	}
	return table, nil
}

func (c *CountryCache) resolveDirect(ctx context.Context, table locality.ISOTable, codes []string) (locality.ISOTable, error) {
	found, err := c.load(ctx, codes)
	if err != nil {
		return nil, err
	}
	for code, iso := range found {
		if iso != "" {
			table[code] = iso
		}
	}
	return table, nil
}

// Bump invalidates every cached country by moving to a new version.
func (c *CountryCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, countryVersionKey).Err()
}

func (c *CountryCache) load(ctx context.Context, codes []string) (map[string]string, error) {
	if c.lookup == nil {
		return map[string]string{}, nil
	}
	// The flight is shared, so it must outlive the caller that started it.
	v, err, _ := c.group.Do(strings.Join(codes, ","), func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), countryLookupTimeout)
		defer cancel()
		return c.lookup.CountryISOCodes(lookupCtx, codes)
	})
	if err != nil {
		return nil, fmt.Errorf("modelo347: country lookup: %w", err)
	}
	raw, _ := v.(map[string]string)
	out := make(map[string]string, len(raw))
	for code, iso := range raw {
		out[strings.ToUpper(strings.TrimSpace(code))] = strings.ToUpper(strings.TrimSpace(iso))
	}
	return out, nil
}

func (c *CountryCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, countryVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, countryVersionKey, 1, 0).Err(); err != nil {
			return 0, fmt.Errorf("modelo347: country cache version: %w", err)
		}
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("modelo347: country cache version: %w", err)
	}
	return ver, nil
}

func countryKey(ver int64, code string) string {
	return fmt.Sprintf("modelo347:country:%d:%s", ver, code)
}

// normaliseCodes upper-cases, drops blanks and de-duplicates codes in a
// stable order.
func normaliseCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
