package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

// GormStore backs the engine with a relational database. It is safe for
// concurrent use; gorm pools connections underneath.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (s *GormStore) GetRole(ctx context.Context, userID uint) (models.UserRole, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return models.UserRoleUser, err
	}
	return user.Role, nil
}

func (s *GormStore) GetBlockedIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var records []models.BlockRecord
	err := s.db.WithContext(ctx).
		Where("blocker = ? OR blocked = ?", userID, userID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(records))
	for _, rec := range records {
		if rec.Blocker == userID {
			out[rec.Blocked] = true
		} else {
			out[rec.Blocker] = true
		}
	}
	return out, nil
}

func (s *GormStore) GetFollowingIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var targets []uint
	err := s.db.WithContext(ctx).
		Model(&models.FollowRecord{}).
		Where("follower = ?", userID).
		Pluck("target", &targets).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(targets))
	for _, t := range targets {
		out[t] = true
	}
	return out, nil
}

func (s *GormStore) GetTrustScore(ctx context.Context, userID uint) (float64, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.TrustScore, nil
}

func (s *GormStore) PersistTrustScore(ctx context.Context, userID uint, score float64) error {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("trust_score", score)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AppendTrustHistory(ctx context.Context, entry *models.TrustScoreHistory) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) ListTrustHistory(ctx context.Context, userID uint, limit int) ([]models.TrustScoreHistory, error) {
	var entries []models.TrustScoreHistory
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *GormStore) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		return nil, translateErr(err)
	}
	return &post, nil
}

func (s *GormStore) ListRecentPosts(ctx context.Context, since time.Time, limit int) ([]models.Post, error) {
	var posts []models.Post
	q := s.db.WithContext(ctx).
		Where("created_at > ?", since).
		Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *GormStore) HidePost(ctx context.Context, postID uint, reason models.HiddenReason) error {
	res := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Updates(map[string]any{"hidden": true, "hidden_reason": reason})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateReport(ctx context.Context, report *models.ModerationReport) error {
	return s.db.WithContext(ctx).Create(report).Error
}

func (s *GormStore) ListOpenReports(ctx context.Context, limit int) ([]models.ModerationReport, error) {
	var reports []models.ModerationReport
	q := s.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("priority asc, id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// CreateUser and CreatePost exist for seeding and tests; the engine itself
// never creates content.
func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Create(post).Error
}

func (s *GormStore) CreateBlock(ctx context.Context, blocker, blocked uint) error {
	return s.db.WithContext(ctx).Create(&models.BlockRecord{Blocker: blocker, Blocked: blocked}).Error
}

func (s *GormStore) CreateFollow(ctx context.Context, follower, target uint) error {
	return s.db.WithContext(ctx).Create(&models.FollowRecord{Follower: follower, Target: target}).Error
}
