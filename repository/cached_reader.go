package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"wagerledger/address"
	"wagerledger/events"
	"wagerledger/metrics"
	"wagerledger/models"
	"wagerledger/service"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// CachedReader wraps a primary AccountReader with a Redis read-through
// cache. Committed units of work invalidate the addresses they wrote.
//
// Every address has a generation counter next to its cached entry.
// Invalidate bumps the counter, and a miss only fills the cache when the
// counter still holds the value read before the primary lookup, so an
// account read before a commit is never written back after its invalidation.
type CachedReader struct {
	primary service.AccountReader
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedReader creates a cached wrapper around a primary reader
func NewCachedReader(primary service.AccountReader, rdb *redis.Client, ttl time.Duration) *CachedReader {
	return &CachedReader{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// Attach subscribes the cache to commit notifications. The handler runs
// inline after the commit, so a read issued once Submit has returned misses
// any entry the commit made stale. Invalidation is best effort: if Redis
// rejects it the entry lives until its TTL runs out.
func (c *CachedReader) Attach(bus *events.Bus) {
	bus.SubscribeInline(events.EventTypeAccountsChanged, func(ctx context.Context, event events.Event) {
		changed, ok := event.(events.AccountsChangedEvent)
		if !ok {
			return
		}
		c.Invalidate(ctx, changed.Addresses...)
	})
}

// Get checks Redis first then falls back to the primary reader
func (c *CachedReader) Get(ctx context.Context, addr address.Address) (*models.Account, error) {
	data, err := c.rdb.Get(ctx, accountKey(addr)).Bytes()
	switch {
	case err == nil:
		var account models.Account
		if json.Unmarshal(data, &account) == nil {
			metrics.CacheRequests.WithLabelValues(metrics.CacheHit).Inc()
			return &account, nil
		}
		metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
	case errors.Is(err, redis.Nil):
		metrics.CacheRequests.WithLabelValues(metrics.CacheMiss).Inc()
	default:
		metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
		log.WithError(err).WithField("address", addr.String()).Warn("Account cache read failed")
	}

	generation, err := c.generation(ctx, addr)
	if err != nil {
		metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
		log.WithError(err).WithField("address", addr.String()).Warn("Account cache generation read failed")
		return c.primary.Get(ctx, addr)
	}

	account, err := c.primary.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if account != nil {
		c.cacheAccount(ctx, account, generation)
	}
	return account, nil
}

// ListByKind is not cached; scans always go to the primary reader
func (c *CachedReader) ListByKind(ctx context.Context, kind models.AccountKind) ([]*models.Account, error) {
	return c.primary.ListByKind(ctx, kind)
}

// Invalidate drops cached entries for the given addresses
func (c *CachedReader) Invalidate(ctx context.Context, addrs ...address.Address) {
	if len(addrs) == 0 {
		return
	}

	keys := make([]string, len(addrs))
	for i, addr := range addrs {
		keys[i] = accountKey(addr)
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, addr := range addrs {
			pipe.Incr(ctx, generationKey(addr))
			if c.ttl > 0 {
				pipe.Expire(ctx, generationKey(addr), c.generationTTL())
			}
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
		log.WithError(err).WithField("count", len(keys)).Warn("Failed to invalidate account cache")
	}
}

// generation returns the invalidation counter of addr, zero if never bumped
func (c *CachedReader) generation(ctx context.Context, addr address.Address) (int64, error) {
	generation, err := c.rdb.Get(ctx, generationKey(addr)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

// cacheAccount stores account unless addr was invalidated since generation
// was read. WATCH aborts the write when Invalidate races the check.
func (c *CachedReader) cacheAccount(ctx context.Context, account *models.Account, generation int64) {
	data, err := json.Marshal(account)
	if err != nil {
		return
	}

	genKey := generationKey(account.Address)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if errors.Is(err, redis.Nil) {
			current, err = 0, nil
		}
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleRead
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, accountKey(account.Address), data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleRead), errors.Is(err, redis.TxFailedErr):
		log.WithField("address", account.Address.String()).Debug("Skipped caching account invalidated during read")
	default:
		metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
		log.WithError(err).WithField("address", account.Address.String()).Warn("Account cache write failed")
	}
}

// generationTTL keeps counters alive longer than any entry they guard
func (c *CachedReader) generationTTL() time.Duration {
	return 2 * c.ttl
}

var errStaleRead = errors.New("account was invalidated during read")

func accountKey(addr address.Address) string {
	return "account:" + addr.String()
}

func generationKey(addr address.Address) string {
	return "account-gen:" + addr.String()
}
