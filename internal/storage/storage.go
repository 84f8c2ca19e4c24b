package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xanderle/aiboard/internal/models"
)

var ErrNotFound = errors.New("not found")

// PostFilter narrows ListPosts. Zero value means all non-deleted posts.
type PostFilter struct {
	Category      models.Category // empty = any
	PublishedOnly bool            // published_at <= now
	Since         *time.Time      // published_at >= Since
	OrderBy       string          // "published_at" (default) or "heat_score"
	Limit         int             // 0 = no limit
}

type Storage interface {
	BotStorage
	PostStorage
	CommentStorage
	HeatLogStorage
	Close() error
}

type BotStorage interface {
	GetBot(ctx context.Context, id int64) (*models.Bot, error)
	GetActiveBots(ctx context.Context) ([]*models.Bot, error)
	GetActiveBotsByCategory(ctx context.Context, category models.Category) ([]*models.Bot, error)
	CreateBot(ctx context.Context, bot *models.Bot) error
}

type PostStorage interface {
	CreatePost(ctx context.Context, post *models.Post) error
	// GetPost returns the post with its non-deleted comment count filled in.
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]*models.Post, error)
	UpdatePostHeatScore(ctx context.Context, id int64, score int) error
	// Increments are atomic on the storage side; callers never
	// read-modify-write the counters.
	IncrementPostViews(ctx context.Context, id int64, delta int) error
	IncrementPostLikes(ctx context.Context, id int64, delta int) error
}

type CommentStorage interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	CountPostComments(ctx context.Context, postID int64) (int, error)
}

type HeatLogStorage interface {
	AppendHeatLog(ctx context.Context, entry *models.HeatLogEntry) error
	// GetHeatLog returns the most recent limit entries, newest first.
	GetHeatLog(ctx context.Context, postID int64, limit int) ([]*models.HeatLogEntry, error)
}
