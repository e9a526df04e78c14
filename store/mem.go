package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

// MemStore is the in-memory Store used by tests and local development. All
// methods copy on the way out, so callers never share internal state.
type MemStore struct {
	mu       sync.RWMutex
	users    map[uint]models.User
	posts    map[uint]models.Post
	blocks   map[uint]map[uint]bool
	follows  map[uint]map[uint]bool
	history  []models.TrustScoreHistory
	reports  []models.ModerationReport
	nextUser uint
	nextPost uint
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		users:   make(map[uint]models.User),
		posts:   make(map[uint]models.Post),
		blocks:  make(map[uint]map[uint]bool),
		follows: make(map[uint]map[uint]bool),
	}
}

// AddUser inserts a user, assigning an ID when missing, and returns the ID.
func (s *MemStore) AddUser(user models.User) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		s.nextUser++
		user.ID = s.nextUser
	} else if user.ID > s.nextUser {
		s.nextUser = user.ID
	}
	s.users[user.ID] = user
	return user.ID
}

func (s *MemStore) AddPost(post models.Post) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post.ID == 0 {
		s.nextPost++
		post.ID = s.nextPost
	} else if post.ID > s.nextPost {
		s.nextPost = post.ID
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	s.posts[post.ID] = post
	return post.ID
}

// AddBlock records a one-directional block; reads expose it symmetrically.
func (s *MemStore) AddBlock(blocker, blocked uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocks[blocker] == nil {
		s.blocks[blocker] = make(map[uint]bool)
	}
	s.blocks[blocker][blocked] = true
}

func (s *MemStore) AddFollow(follower, target uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.follows[follower] == nil {
		s.follows[follower] = make(map[uint]bool)
	}
	s.follows[follower][target] = true
}

func (s *MemStore) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemStore) GetRole(ctx context.Context, userID uint) (models.UserRole, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return models.UserRoleUser, err
	}
	return user.Role, nil
}

func (s *MemStore) GetBlockedIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint]bool)
	for blocked := range s.blocks[userID] {
		out[blocked] = true
	}
	for blocker, set := range s.blocks {
		if set[userID] {
			out[blocker] = true
		}
	}
	return out, nil
}

func (s *MemStore) GetFollowingIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint]bool, len(s.follows[userID]))
	for target := range s.follows[userID] {
		out[target] = true
	}
	return out, nil
}

func (s *MemStore) GetTrustScore(ctx context.Context, userID uint) (float64, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.TrustScore, nil
}

func (s *MemStore) PersistTrustScore(ctx context.Context, userID uint, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.TrustScore = score
	s.users[userID] = user
	return nil
}

func (s *MemStore) AppendTrustHistory(ctx context.Context, entry *models.TrustScoreHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *entry
	e.ID = uint(len(s.history) + 1)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.history = append(s.history, e)
	entry.ID = e.ID
	return nil
}

func (s *MemStore) ListTrustHistory(ctx context.Context, userID uint, limit int) ([]models.TrustScoreHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TrustScoreHistory
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].UserID != userID {
			continue
		}
		out = append(out, s.history[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemStore) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[postID]
	if !ok {
		return nil, ErrNotFound
	}
	return &post, nil
}

func (s *MemStore) ListRecentPosts(ctx context.Context, since time.Time, limit int) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Post
	for _, post := range s.posts {
		if post.CreatedAt.After(since) {
			out = append(out, post)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) HidePost(ctx context.Context, postID uint, reason models.HiddenReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok {
		return ErrNotFound
	}
	post.Hidden = true
	post.HiddenReason = reason
	s.posts[postID] = post
	return nil
}

func (s *MemStore) CreateReport(ctx context.Context, report *models.ModerationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *report
	r.ID = uint(len(s.reports) + 1)
	s.reports = append(s.reports, r)
	report.ID = r.ID
	return nil
}

func (s *MemStore) ListOpenReports(ctx context.Context, limit int) ([]models.ModerationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ModerationReport
	for _, r := range s.reports {
		if !r.Resolved {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
