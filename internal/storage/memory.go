package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xanderle/aiboard/internal/models"
)

// MemoryStorage is an in-process Storage used for development and tests.
type MemoryStorage struct {
	mu       sync.RWMutex
	bots     map[int64]*models.Bot
	posts    map[int64]*models.Post
	comments map[int64]*models.Comment
	heatLog  []*models.HeatLogEntry
	nextID   int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		bots:     make(map[int64]*models.Bot),
		posts:    make(map[int64]*models.Post),
		comments: make(map[int64]*models.Comment),
	}
}

func (s *MemoryStorage) nextSeq() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStorage) CreateBot(ctx context.Context, bot *models.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bot.ID = s.nextSeq()
	if bot.CreatedAt.IsZero() {
		bot.CreatedAt = time.Now()
	}
	copied := *bot
	s.bots[bot.ID] = &copied
	return nil
}

func (s *MemoryStorage) GetBot(ctx context.Context, id int64) (*models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bot, exists := s.bots[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *bot
	return &copied, nil
}

func (s *MemoryStorage) GetActiveBots(ctx context.Context) ([]*models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bots []*models.Bot
	for _, bot := range s.bots {
		if bot.Active {
			copied := *bot
			bots = append(bots, &copied)
		}
	}
	sort.Slice(bots, func(i, j int) bool { return bots[i].ID < bots[j].ID })
	return bots, nil
}

func (s *MemoryStorage) GetActiveBotsByCategory(ctx context.Context, category models.Category) ([]*models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bots []*models.Bot
	for _, bot := range s.bots {
		if bot.Active && bot.Category == category {
			copied := *bot
			bots = append(bots, &copied)
		}
	}
	sort.Slice(bots, func(i, j int) bool { return bots[i].ID < bots[j].ID })
	return bots, nil
}

func (s *MemoryStorage) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post.ID = s.nextSeq()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	copied := *post
	s.posts[post.ID] = &copied
	return nil
}

func (s *MemoryStorage) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, exists := s.posts[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *post
	copied.CommentCount = s.countComments(id)
	return &copied, nil
}

func (s *MemoryStorage) ListPosts(ctx context.Context, filter PostFilter) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var posts []*models.Post
	for _, post := range s.posts {
		if post.Deleted {
			continue
		}
		if filter.PublishedOnly && post.PublishedAt.After(now) {
			continue
		}
		if filter.Category != "" && post.Category != filter.Category {
			continue
		}
		if filter.Since != nil && post.PublishedAt.Before(*filter.Since) {
			continue
		}
		copied := *post
		copied.CommentCount = s.countComments(post.ID)
		posts = append(posts, &copied)
	}

	switch filter.OrderBy {
	case "heat_score":
		sort.Slice(posts, func(i, j int) bool { return posts[i].HeatScore > posts[j].HeatScore })
	default:
		sort.Slice(posts, func(i, j int) bool { return posts[i].PublishedAt.After(posts[j].PublishedAt) })
	}

	if filter.Limit > 0 && len(posts) > filter.Limit {
		posts = posts[:filter.Limit]
	}
	return posts, nil
}

func (s *MemoryStorage) UpdatePostHeatScore(ctx context.Context, id int64, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[id]
	if !exists {
		return ErrNotFound
	}
	post.HeatScore = score
	return nil
}

func (s *MemoryStorage) IncrementPostViews(ctx context.Context, id int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[id]
	if !exists {
		return ErrNotFound
	}
	post.ViewCount += delta
	return nil
}

func (s *MemoryStorage) IncrementPostLikes(ctx context.Context, id int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[id]
	if !exists {
		return ErrNotFound
	}
	post.LikeCount += delta
	return nil
}

func (s *MemoryStorage) CreateComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment.ID = s.nextSeq()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	copied := *comment
	s.comments[comment.ID] = &copied
	return nil
}

func (s *MemoryStorage) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, exists := s.comments[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *comment
	return &copied, nil
}

func (s *MemoryStorage) CountPostComments(ctx context.Context, postID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countComments(postID), nil
}

// countComments assumes the lock is held.
func (s *MemoryStorage) countComments(postID int64) int {
	count := 0
	for _, comment := range s.comments {
		if comment.PostID == postID && !comment.Deleted {
			count++
		}
	}
	return count
}

func (s *MemoryStorage) AppendHeatLog(ctx context.Context, entry *models.HeatLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.nextSeq()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	copied := *entry
	s.heatLog = append(s.heatLog, &copied)
	return nil
}

func (s *MemoryStorage) GetHeatLog(ctx context.Context, postID int64, limit int) ([]*models.HeatLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*models.HeatLogEntry
	for _, entry := range s.heatLog {
		if entry.PostID == postID {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	// Newest first, matching the postgres query. IDs are monotonic so they
	// break ties between entries written within the same clock tick.
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
