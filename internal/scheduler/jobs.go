package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/xanderle/aiboard/internal/generator"
	"github.com/xanderle/aiboard/internal/heat"
	"github.com/xanderle/aiboard/internal/models"
	"github.com/xanderle/aiboard/internal/storage"
	"go.uber.org/zap"
)

const (
	seedRecentWindow   = 6 * time.Hour
	seedMaxPosts       = 10
	seedMaxComments    = 5 // posts that already have this many are left alone
	seedMinNewComments = 2
	seedMaxNewComments = 4
	seedReplyChance    = 0.3
)

// Config holds the wall-clock anchors for the daily jobs. The two hours
// must differ so generation and the decay sweep never share a slot.
type Config struct {
	GenerationHour int
	DecayHour      int
}

// RegisterCommunityJobs attaches the five recurring community jobs.
func RegisterCommunityJobs(s *Scheduler, gen *generator.Generator, heatSvc *heat.Service, store storage.Storage, cfg Config, logger *zap.Logger) {
	s.Register(&Job{
		Name: "daily-generation",
		Next: NextDaily(cfg.GenerationHour),
		Run: func(ctx context.Context) error {
			created, err := gen.GenerateDailyPosts(ctx)
			if err != nil {
				return err
			}
			if s.notifier != nil {
				s.notifier.DailySummary(created)
			}
			return nil
		},
	})

	seeder := &commentSeeder{gen: gen, store: store, logger: logger}
	s.Register(&Job{
		Name: "comment-seeding",
		Next: NextHourly(0),
		Run:  seeder.run,
	})

	s.Register(&Job{
		Name: "heat-refresh",
		Next: NextHourly(30),
		Run:  heatSvc.UpdateAllHeatScores,
	})

	s.Register(&Job{
		Name: "engagement-simulation",
		Next: NextHalfHourly(),
		Run:  heatSvc.SimulateViews,
	})

	s.Register(&Job{
		Name: "decay-sweep",
		Next: NextDaily(cfg.DecayHour),
		Run:  heatSvc.ApplyTimeDecay,
	})
}

// commentSeeder fills quiet recent posts with bot reactions, and
// occasionally threads a reply under one of them.
type commentSeeder struct {
	gen    *generator.Generator
	store  storage.Storage
	logger *zap.Logger
}

func (cs *commentSeeder) run(ctx context.Context) error {
	since := time.Now().Add(-seedRecentWindow)
	posts, err := cs.store.ListPosts(ctx, storage.PostFilter{
		PublishedOnly: true,
		Since:         &since,
	})
	if err != nil {
		return fmt.Errorf("failed to list recent posts: %w", err)
	}

	seeded := 0
	for _, post := range posts {
		if seeded == seedMaxPosts {
			break
		}
		if post.CommentCount >= seedMaxComments {
			continue
		}

		count := seedMinNewComments + rand.Intn(seedMaxNewComments-seedMinNewComments+1)
		drafts, err := cs.gen.GenerateComments(ctx, post.ID, count)
		if err != nil {
			cs.logger.Error("Failed to generate comments for post",
				zap.Error(err),
				zap.Int64("post_id", post.ID))
			continue
		}

		created := cs.persistComments(ctx, post, drafts)
		if len(created) > 0 && rand.Float64() < seedReplyChance {
			cs.replyTo(ctx, created[rand.Intn(len(created))])
		}
		seeded++
	}

	cs.logger.Info("Comment seeding finished", zap.Int("posts", seeded))
	return nil
}

func (cs *commentSeeder) persistComments(ctx context.Context, post *models.Post, drafts []generator.CommentDraft) []*models.Comment {
	var created []*models.Comment
	for _, draft := range drafts {
		comment := &models.Comment{
			PostID:  post.ID,
			BotID:   draft.BotID,
			Content: draft.Content,
		}
		if err := cs.store.CreateComment(ctx, comment); err != nil {
			cs.logger.Error("Failed to persist comment",
				zap.Error(err),
				zap.Int64("post_id", post.ID),
				zap.Int64("bot_id", draft.BotID))
			continue
		}
		created = append(created, comment)
	}
	return created
}

func (cs *commentSeeder) replyTo(ctx context.Context, comment *models.Comment) {
	draft, err := cs.gen.GenerateReply(ctx, comment.ID)
	if err != nil || draft == nil {
		if err != nil {
			cs.logger.Error("Failed to generate reply",
				zap.Error(err),
				zap.Int64("comment_id", comment.ID))
		}
		return
	}

	reply := &models.Comment{
		PostID:   comment.PostID,
		BotID:    draft.BotID,
		ParentID: &comment.ID,
		Content:  draft.Content,
	}
	if err := cs.store.CreateComment(ctx, reply); err != nil {
		cs.logger.Error("Failed to persist reply",
			zap.Error(err),
			zap.Int64("comment_id", comment.ID))
	}
}
