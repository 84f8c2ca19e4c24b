package heat

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/xanderle/aiboard/internal/models"
	"github.com/xanderle/aiboard/internal/storage"
	"go.uber.org/zap"
)

const (
	viewWeight    = 1
	likeWeight    = 5
	commentWeight = 10

	// decayScaleHours is the e-folding scale of the continuous decay:
	// multiplier = e^(-ageHours/24). Not a half-life; the base is e.
	decayScaleHours = 24.0

	// Posts older than this get the additional scheduled 10% haircut.
	decaySweepAge = 48 * time.Hour

	simulatedPosts = 20
	recomputeLimit = 10 * time.Second
)

type Service struct {
	storage storage.Storage
	logger  *zap.Logger
	events  *EventRing

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(s storage.Storage, logger *zap.Logger) *Service {
	return &Service{
		storage: s,
		logger:  logger,
		events:  NewEventRing(defaultRingCapacity),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// ComputeScore is the heat formula: engagement counters weighted 1/5/10,
// continuously decayed by post age, biased by category, rounded, and
// clamped to a minimum of 1. Age may be negative for scheduled posts;
// the formula is computed regardless and visibility is gated elsewhere.
func ComputeScore(views, likes, comments int, age time.Duration, category models.Category) int {
	base := float64(views*viewWeight + likes*likeWeight + comments*commentWeight)
	decay := math.Exp(-age.Hours() / decayScaleHours)
	score := int(math.Round(base * decay * models.CategoryWeight(category)))
	if score < 1 {
		score = 1
	}
	return score
}

// CalculateHeatScore computes the current score for a post without
// persisting anything.
func (s *Service) CalculateHeatScore(ctx context.Context, postID int64) (int, error) {
	post, err := s.storage.GetPost(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to load post %d: %w", postID, err)
	}
	age := time.Since(post.PublishedAt)
	return ComputeScore(post.ViewCount, post.LikeCount, post.CommentCount, age, post.Category), nil
}

// UpdatePostHeat recomputes a post's score, persists it, and appends
// exactly one heat log sample. This is the only writer of heat log rows.
func (s *Service) UpdatePostHeat(ctx context.Context, postID int64) error {
	post, err := s.storage.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to load post %d: %w", postID, err)
	}

	score := ComputeScore(post.ViewCount, post.LikeCount, post.CommentCount,
		time.Since(post.PublishedAt), post.Category)

	if err := s.storage.UpdatePostHeatScore(ctx, postID, score); err != nil {
		return fmt.Errorf("failed to persist heat score for post %d: %w", postID, err)
	}

	entry := &models.HeatLogEntry{
		PostID:       postID,
		HeatScore:    score,
		ViewCount:    post.ViewCount,
		LikeCount:    post.LikeCount,
		CommentCount: post.CommentCount,
		CreatedAt:    time.Now(),
	}
	if err := s.storage.AppendHeatLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to append heat log for post %d: %w", postID, err)
	}

	return nil
}

// UpdateAllHeatScores refreshes every published, non-deleted post. A
// failing post is logged and skipped; the batch always completes.
func (s *Service) UpdateAllHeatScores(ctx context.Context) error {
	posts, err := s.storage.ListPosts(ctx, storage.PostFilter{PublishedOnly: true})
	if err != nil {
		return fmt.Errorf("failed to list posts for heat refresh: %w", err)
	}

	for _, post := range posts {
		if err := s.UpdatePostHeat(ctx, post.ID); err != nil {
			s.logger.Error("Failed to update post heat",
				zap.Error(err),
				zap.Int64("post_id", post.ID))
		}
	}

	s.logger.Info("Heat refresh finished", zap.Int("posts", len(posts)))
	return nil
}

// ApplyTimeDecay takes 10% off every published post older than 48
// hours, clamped to 1. This coarse sweep is separate from the continuous
// decay inside the formula and deliberately writes no heat log rows.
func (s *Service) ApplyTimeDecay(ctx context.Context) error {
	posts, err := s.storage.ListPosts(ctx, storage.PostFilter{PublishedOnly: true})
	if err != nil {
		return fmt.Errorf("failed to list posts for decay sweep: %w", err)
	}

	decayed := 0
	for _, post := range posts {
		if time.Since(post.PublishedAt) <= decaySweepAge {
			continue
		}
		score := int(math.Round(float64(post.HeatScore) * 0.9))
		if score < 1 {
			score = 1
		}
		if err := s.storage.UpdatePostHeatScore(ctx, post.ID, score); err != nil {
			s.logger.Error("Failed to decay post heat",
				zap.Error(err),
				zap.Int64("post_id", post.ID))
			continue
		}
		decayed++
	}

	s.logger.Info("Decay sweep finished", zap.Int("decayed", decayed))
	return nil
}

// SimulateViews adds synthetic engagement to the 20 most recent
// published posts: 0-10 views each, and a 10% chance of 1-3 likes. No
// heat recompute happens here; the scheduled refresh picks it up.
func (s *Service) SimulateViews(ctx context.Context) error {
	posts, err := s.storage.ListPosts(ctx, storage.PostFilter{
		PublishedOnly: true,
		OrderBy:       "published_at",
		Limit:         simulatedPosts,
	})
	if err != nil {
		return fmt.Errorf("failed to list posts for engagement simulation: %w", err)
	}

	for _, post := range posts {
		views := s.intn(11)
		if views > 0 {
			if err := s.storage.IncrementPostViews(ctx, post.ID, views); err != nil {
				s.logger.Error("Failed to add simulated views",
					zap.Error(err),
					zap.Int64("post_id", post.ID))
				continue
			}
		}

		likes := 0
		if s.intn(10) == 0 {
			likes = 1 + s.intn(3)
			if err := s.storage.IncrementPostLikes(ctx, post.ID, likes); err != nil {
				s.logger.Error("Failed to add simulated likes",
					zap.Error(err),
					zap.Int64("post_id", post.ID))
				likes = 0
			}
		}

		if views > 0 || likes > 0 {
			s.events.Add(EngagementEvent{
				PostID: post.ID,
				Views:  views,
				Likes:  likes,
				At:     time.Now(),
			})
		}
	}

	return nil
}

// HeatHistory returns the most recent limit samples for a post in
// ascending chronological order, ready for charting.
func (s *Service) HeatHistory(ctx context.Context, postID int64, limit int) ([]*models.HeatLogEntry, error) {
	entries, err := s.storage.GetHeatLog(ctx, postID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load heat history for post %d: %w", postID, err)
	}

	// Storage returns newest first; charts want oldest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// RecomputeAsync recomputes one post's heat in the background. Used by
// the view/like endpoints; failures are logged and never reach the
// triggering request.
func (s *Service) RecomputeAsync(postID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recomputeLimit)
		defer cancel()

		if err := s.UpdatePostHeat(ctx, postID); err != nil {
			s.logger.Error("Background heat recompute failed",
				zap.Error(err),
				zap.Int64("post_id", postID))
		}
	}()
}

// RecentEvents exposes the bounded ring of simulated engagement events.
func (s *Service) RecentEvents() []EngagementEvent {
	return s.events.Recent()
}
