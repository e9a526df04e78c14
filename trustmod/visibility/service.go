package visibility

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

var tracer = otel.Tracer("visibility")

// RelationshipStore supplies the viewer's precomputed relationship sets.
// GetBlockedIDs must return the symmetric union of both block directions.
type RelationshipStore interface {
	GetBlockedIDs(ctx context.Context, userID uint) (map[uint]bool, error)
	GetFollowingIDs(ctx context.Context, userID uint) (map[uint]bool, error)
}

// FeedService assembles the snapshots the pure filters need: relationship sets
// from the store and author metadata through the directory. It is handed the
// candidate posts; it never queries content storage itself.
type FeedService struct {
	Logger        *slog.Logger
	Relationships RelationshipStore
	Directory     AuthorDirectory
}

func NewFeedService(rel RelationshipStore, dir AuthorDirectory, logger *slog.Logger) *FeedService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedService{
		Logger:        logger.With("system", "visibility"),
		Relationships: rel,
		Directory:     dir,
	}
}

// PersonalizedFeed filters candidates for the given viewer. A nil viewerID
// produces the anonymous degradation of the personalized rules.
func (s *FeedService) PersonalizedFeed(ctx context.Context, viewerID *uint, candidates []*models.Post) ([]*models.Post, error) {
	ctx, span := tracer.Start(ctx, "PersonalizedFeed")
	defer span.End()
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	viewer := ViewerContext{
		ViewerID:     viewerID,
		BlockedIDs:   map[uint]bool{},
		FollowingIDs: map[uint]bool{},
	}
	if viewerID != nil {
		blocked, err := s.Relationships.GetBlockedIDs(ctx, *viewerID)
		if err != nil {
			return nil, fmt.Errorf("loading block set: %w", err)
		}
		following, err := s.Relationships.GetFollowingIDs(ctx, *viewerID)
		if err != nil {
			return nil, fmt.Errorf("loading follow set: %w", err)
		}
		viewer.BlockedIDs = blocked
		viewer.FollowingIDs = following
	}

	authors, err := s.resolveAuthors(ctx, candidates)
	if err != nil {
		return nil, err
	}

	out := PersonalizedFilter(candidates, viewer, authors)
	feedFilteredCount.WithLabelValues("personalized").Add(float64(len(candidates) - len(out)))
	return out, nil
}

// PublicFeed filters candidates for an anonymous or signed-out surface; the
// optional viewerID only contributes the block set.
func (s *FeedService) PublicFeed(ctx context.Context, viewerID *uint, candidates []*models.Post) ([]*models.Post, error) {
	ctx, span := tracer.Start(ctx, "PublicFeed")
	defer span.End()
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	blocked := map[uint]bool{}
	if viewerID != nil {
		b, err := s.Relationships.GetBlockedIDs(ctx, *viewerID)
		if err != nil {
			return nil, fmt.Errorf("loading block set: %w", err)
		}
		blocked = b
	}

	authors, err := s.resolveAuthors(ctx, candidates)
	if err != nil {
		return nil, err
	}

	out := PublicFilter(candidates, blocked, authors)
	feedFilteredCount.WithLabelValues("public").Add(float64(len(candidates) - len(out)))
	return out, nil
}

// resolveAuthors builds the author snapshot map for the distinct authors in
// the candidate set. Lookup failures for individual authors degrade to
// exclusion rather than failing the whole feed.
func (s *FeedService) resolveAuthors(ctx context.Context, candidates []*models.Post) (map[uint]AuthorMeta, error) {
	authors := make(map[uint]AuthorMeta)
	for _, post := range candidates {
		if post == nil {
			continue
		}
		if _, done := authors[post.AuthorID]; done {
			continue
		}
		meta, err := s.Directory.Lookup(ctx, post.AuthorID)
		if err != nil {
			s.Logger.Warn("author lookup failed, excluding from feed", "uid", post.AuthorID, "err", err)
			continue
		}
		if meta != nil {
			authors[post.AuthorID] = *meta
		}
	}
	return authors, nil
}
