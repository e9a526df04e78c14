package visibility

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

// AuthorDirectory resolves author snapshots for feed filtering. Snapshots may
// be slightly stale relative to a concurrent trust-score update; bounded
// staleness is an accepted tradeoff for a soft-moderation signal.
type AuthorDirectory interface {
	Lookup(ctx context.Context, userID uint) (*AuthorMeta, error)
	Purge(ctx context.Context, userID uint) error
}

// UserGetter is the slice of the user store the directory needs.
type UserGetter interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
}

// BaseDirectory hits the user store on every lookup.
type BaseDirectory struct {
	Users UserGetter
}

var _ AuthorDirectory = (*BaseDirectory)(nil)

func (d *BaseDirectory) Lookup(ctx context.Context, userID uint) (*AuthorMeta, error) {
	u, err := d.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving author %d: %w", userID, err)
	}
	if u == nil {
		return nil, nil
	}
	return &AuthorMeta{
		ID:         u.ID,
		TrustScore: u.TrustScore,
		Status:     u.Status,
	}, nil
}

func (d *BaseDirectory) Purge(ctx context.Context, userID uint) error {
	return nil
}

// CacheDirectory wraps another directory with an expiring in-process LRU.
// Negative lookups are cached too, so a flood of references to a deleted
// account doesn't hammer the store.
type CacheDirectory struct {
	Inner AuthorDirectory
	cache *expirable.LRU[uint, authorEntry]
}

type authorEntry struct {
	Meta    *AuthorMeta
	Updated time.Time
}

var _ AuthorDirectory = (*CacheDirectory)(nil)

func NewCacheDirectory(inner AuthorDirectory, capacity int, ttl time.Duration) *CacheDirectory {
	return &CacheDirectory{
		Inner: inner,
		cache: expirable.NewLRU[uint, authorEntry](capacity, nil, ttl),
	}
}

func (d *CacheDirectory) Lookup(ctx context.Context, userID uint) (*AuthorMeta, error) {
	if entry, ok := d.cache.Get(userID); ok {
		authorCacheHits.Inc()
		return entry.Meta, nil
	}
	authorCacheMisses.Inc()

	meta, err := d.Inner.Lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.cache.Add(userID, authorEntry{Meta: meta, Updated: time.Now()})
	return meta, nil
}

func (d *CacheDirectory) Purge(ctx context.Context, userID uint) error {
	d.cache.Remove(userID)
	return d.Inner.Purge(ctx, userID)
}
