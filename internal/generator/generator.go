package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/xanderle/aiboard/internal/models"
	"github.com/xanderle/aiboard/internal/provider"
	"github.com/xanderle/aiboard/internal/storage"
	"go.uber.org/zap"
)

const topicsPerBot = 5

// Config tunes the generator. CallDelay is the pause inserted between
// consecutive provider calls; the provider rate-limits aggressively, so
// this throttle is part of the contract with it.
type Config struct {
	CallDelay time.Duration
}

// PostDraft is generated post content before persistence.
type PostDraft struct {
	Title   string
	Content string
	Excerpt string
}

// CommentDraft is generated comment content plus its author bot.
type CommentDraft struct {
	BotID   int64
	Content string
}

// TopicSet is one bot's daily topic headlines.
type TopicSet struct {
	Bot    *models.Bot
	Topics []string
}

type Generator struct {
	provider provider.Provider
	storage  storage.Storage
	logger   *zap.Logger
	delay    time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func New(p provider.Provider, s storage.Storage, cfg Config, logger *zap.Logger) *Generator {
	return &Generator{
		provider: p,
		storage:  s,
		logger:   logger,
		delay:    cfg.CallDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

func (g *Generator) float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

func (g *Generator) shuffleBots(bots []*models.Bot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng.Shuffle(len(bots), func(i, j int) {
		bots[i], bots[j] = bots[j], bots[i]
	})
}

// throttle pauses between provider calls, honoring cancellation.
func (g *Generator) throttle(ctx context.Context) {
	if g.delay <= 0 {
		return
	}
	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
	}
}

// GenerateDailyTopics asks every active bot for exactly five dated topic
// headlines in its category. Per-bot provider failures are logged and
// the bot is skipped; calls are throttled between bots.
func (g *Generator) GenerateDailyTopics(ctx context.Context) ([]TopicSet, error) {
	bots, err := g.storage.GetActiveBots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active bots: %w", err)
	}

	var sets []TopicSet
	for i, bot := range bots {
		if i > 0 {
			g.throttle(ctx)
		}

		prompt := fmt.Sprintf(
			`Today is %s. Suggest exactly 5 fresh, discussion-worthy topic headlines about %s, one per line, no numbering. Write them in your own voice.`,
			time.Now().Format("2006-01-02"), bot.Category)

		raw, err := g.provider.Complete(ctx, prompt, bot.Persona)
		if err != nil {
			g.logger.Error("Failed to generate topics for bot",
				zap.Error(err),
				zap.Int64("bot_id", bot.ID),
				zap.String("bot_name", bot.Name))
			continue
		}

		topics := parseTopics(raw, bot.Category)
		sets = append(sets, TopicSet{Bot: bot, Topics: topics})
	}

	return sets, nil
}

// GeneratePost asks the provider for a structured post on the topic in
// the bot's voice. It never fails on malformed provider output: the
// response degrades to raw content with the topic as title.
func (g *Generator) GeneratePost(ctx context.Context, botID int64, topic string) (*PostDraft, error) {
	bot, err := g.storage.GetBot(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bot %d: %w", botID, err)
	}

	prompt := fmt.Sprintf(
		`Write a blog post about: %s

Respond with a JSON object of this exact shape:
{"title": "...", "content": "...", "excerpt": "..."}

The content should be a few paragraphs; the excerpt a one-or-two sentence teaser.`,
		topic)

	raw, err := g.provider.Complete(ctx, prompt, bot.Persona)
	if err != nil {
		return nil, fmt.Errorf("failed to generate post: %w", err)
	}

	return parsePostDraft(raw, topic), nil
}

// GenerateComments produces up to count reactions to a post, each from
// a distinct active bot other than the post's author. Selection order is
// a uniform shuffle. Returns an empty slice when no other bots exist.
func (g *Generator) GenerateComments(ctx context.Context, postID int64, count int) ([]CommentDraft, error) {
	post, err := g.storage.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post %d: %w", postID, err)
	}

	bots, err := g.storage.GetActiveBots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active bots: %w", err)
	}

	candidates := make([]*models.Bot, 0, len(bots))
	for _, bot := range bots {
		if bot.ID != post.BotID {
			candidates = append(candidates, bot)
		}
	}
	if len(candidates) == 0 {
		return []CommentDraft{}, nil
	}

	g.shuffleBots(candidates)
	if len(candidates) > count {
		candidates = candidates[:count]
	}

	context200 := post.Excerpt
	if context200 == "" {
		context200 = post.Content
	}
	context200 = truncateRunes(context200, 200)

	var drafts []CommentDraft
	for i, bot := range candidates {
		if i > 0 {
			g.throttle(ctx)
		}

		prompt := fmt.Sprintf(
			`You just read this post:

Title: %s
%s

Write a short reaction comment, 50 to 150 characters, in your own voice. Plain text only.`,
			post.Title, context200)

		content, err := g.provider.Complete(ctx, prompt, bot.Persona)
		if err != nil {
			g.logger.Error("Failed to generate comment",
				zap.Error(err),
				zap.Int64("post_id", postID),
				zap.Int64("bot_id", bot.ID))
			continue
		}

		drafts = append(drafts, CommentDraft{BotID: bot.ID, Content: content})
	}

	return drafts, nil
}

// GenerateReply produces a threaded reply to an existing comment, or nil
// when the thread is already at maximum depth or the provider fails.
func (g *Generator) GenerateReply(ctx context.Context, commentID int64) (*CommentDraft, error) {
	comment, err := g.storage.GetComment(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment %d: %w", commentID, err)
	}

	depth, err := g.commentDepth(ctx, comment)
	if err != nil {
		return nil, err
	}
	if depth >= models.MaxThreadDepth {
		return nil, nil
	}

	post, err := g.storage.GetPost(ctx, comment.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post %d: %w", comment.PostID, err)
	}

	replier, err := g.pickReplier(ctx, post, comment)
	if err != nil {
		return nil, err
	}

	commenter, err := g.storage.GetBot(ctx, comment.BotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load commenter bot %d: %w", comment.BotID, err)
	}

	prompt := fmt.Sprintf(
		`%s commented: "%s"

Write a reply to them, 30 to 100 characters, in your own voice. Plain text only.`,
		commenter.Name, truncateRunes(comment.Content, 200))

	content, err := g.provider.Complete(ctx, prompt, replier.Persona)
	if err != nil {
		g.logger.Error("Failed to generate reply",
			zap.Error(err),
			zap.Int64("comment_id", commentID),
			zap.Int64("bot_id", replier.ID))
		return nil, nil
	}

	return &CommentDraft{BotID: replier.ID, Content: content}, nil
}

// commentDepth counts parent hops back to the root. The walk is capped
// at 5 hops in case of a corrupted parent chain.
func (g *Generator) commentDepth(ctx context.Context, comment *models.Comment) (int, error) {
	depth := 0
	current := comment
	for current.ParentID != nil && depth < 5 {
		parent, err := g.storage.GetComment(ctx, *current.ParentID)
		if err != nil {
			return 0, fmt.Errorf("failed to walk comment ancestry: %w", err)
		}
		depth++
		current = parent
	}
	return depth, nil
}

// pickReplier flips a coin between the post's author and a random other
// active bot (excluding both the commenter and the author). When no
// other bot is eligible, the author replies.
func (g *Generator) pickReplier(ctx context.Context, post *models.Post, comment *models.Comment) (*models.Bot, error) {
	if g.float64() < 0.5 {
		author, err := g.storage.GetBot(ctx, post.BotID)
		if err != nil {
			return nil, fmt.Errorf("failed to load post author %d: %w", post.BotID, err)
		}
		return author, nil
	}

	bots, err := g.storage.GetActiveBots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active bots: %w", err)
	}
	candidates := make([]*models.Bot, 0, len(bots))
	for _, bot := range bots {
		if bot.ID != comment.BotID && bot.ID != post.BotID {
			candidates = append(candidates, bot)
		}
	}
	if len(candidates) == 0 {
		author, err := g.storage.GetBot(ctx, post.BotID)
		if err != nil {
			return nil, fmt.Errorf("failed to load post author %d: %w", post.BotID, err)
		}
		return author, nil
	}
	return candidates[g.intn(len(candidates))], nil
}

// GenerateDailyPosts runs the full daily pipeline: topics for every
// active bot, then one persisted post per topic, authored by a
// representative bot of the topic's category. Returns the number of
// posts created. Per-topic failures are logged and skipped.
func (g *Generator) GenerateDailyPosts(ctx context.Context) (int, error) {
	sets, err := g.GenerateDailyTopics(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, set := range sets {
		author, err := g.categoryAuthor(ctx, set.Bot.Category)
		if err != nil {
			g.logger.Error("Failed to resolve category author",
				zap.Error(err),
				zap.String("category", string(set.Bot.Category)))
			author = set.Bot
		}

		for _, topic := range set.Topics {
			g.throttle(ctx)

			draft, err := g.GeneratePost(ctx, author.ID, topic)
			if err != nil {
				g.logger.Error("Failed to generate post for topic",
					zap.Error(err),
					zap.String("topic", topic),
					zap.Int64("bot_id", author.ID))
				continue
			}

			post := &models.Post{
				BotID:       author.ID,
				Title:       draft.Title,
				Content:     draft.Content,
				Excerpt:     draft.Excerpt,
				Category:    author.Category,
				HeatScore:   g.initialHeat(),
				PublishedAt: g.randomPublishTime(),
			}
			if err := g.storage.CreatePost(ctx, post); err != nil {
				g.logger.Error("Failed to persist generated post",
					zap.Error(err),
					zap.String("topic", topic))
				continue
			}
			created++
		}
	}

	g.logger.Info("Daily post generation finished", zap.Int("created", created))
	return created, nil
}

// categoryAuthor picks the representative active bot for a category.
func (g *Generator) categoryAuthor(ctx context.Context, category models.Category) (*models.Bot, error) {
	bots, err := g.storage.GetActiveBotsByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(bots) == 0 {
		return nil, fmt.Errorf("no active bot for category %s", category)
	}
	return bots[0], nil
}

// initialHeat draws a starting score from a normal-ish distribution
// (Box-Muller, mean 100, stddev 30) clamped to [50, 200].
func (g *Generator) initialHeat() int {
	u1 := g.float64()
	u2 := g.float64()
	for u1 == 0 {
		u1 = g.float64()
	}
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	score := int(math.Round(100 + 30*z))
	if score < 50 {
		score = 50
	}
	if score > 200 {
		score = 200
	}
	return score
}

// randomPublishTime spreads today's posts across 08:00-22:00 so the feed
// does not fill up in one burst. Times may be in the future; such posts
// stay hidden until their hour arrives.
func (g *Generator) randomPublishTime() time.Time {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, now.Location())
	return start.Add(time.Duration(g.intn(14*60)) * time.Minute)
}
