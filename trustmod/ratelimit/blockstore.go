package ratelimit

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type Block struct {
	Until  time.Time `json:"until"`
	Reason string    `json:"reason"`
	Auto   bool      `json:"auto"`
}

// BlockStore persists block state independently of counter state: an explicit
// or automatic block must survive a counter flush or restart (use the redis
// implementation for that). Implementations must be safe for concurrent use.
type BlockStore interface {
	Get(ctx context.Context, userID uint) (*Block, error)
	Set(ctx context.Context, userID uint, b Block) error
	Clear(ctx context.Context, userID uint) error
}

type MemBlockStore struct {
	data *xsync.MapOf[uint, Block]
}

var _ BlockStore = (*MemBlockStore)(nil)

func NewMemBlockStore() *MemBlockStore {
	return &MemBlockStore{data: xsync.NewMapOf[uint, Block]()}
}

func (s *MemBlockStore) Get(ctx context.Context, userID uint) (*Block, error) {
	b, ok := s.data.Load(userID)
	if !ok {
		return nil, nil
	}
	if !b.Until.After(time.Now()) {
		s.data.Delete(userID)
		return nil, nil
	}
	return &b, nil
}

func (s *MemBlockStore) Set(ctx context.Context, userID uint, b Block) error {
	s.data.Store(userID, b)
	return nil
}

func (s *MemBlockStore) Clear(ctx context.Context, userID uint) error {
	s.data.Delete(userID)
	return nil
}
