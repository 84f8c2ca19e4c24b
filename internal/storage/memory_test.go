package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xanderle/aiboard/internal/models"
)

func TestMemoryStorageCounters(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	bot := &models.Bot{Name: "bot", Category: models.CategoryTech, Active: true}
	require.NoError(t, store.CreateBot(ctx, bot))

	post := &models.Post{BotID: bot.ID, Title: "t", Content: "c", Category: bot.Category, PublishedAt: time.Now()}
	require.NoError(t, store.CreatePost(ctx, post))

	require.NoError(t, store.IncrementPostViews(ctx, post.ID, 3))
	require.NoError(t, store.IncrementPostViews(ctx, post.ID, 2))
	require.NoError(t, store.IncrementPostLikes(ctx, post.ID, 1))

	got, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ViewCount)
	assert.Equal(t, 1, got.LikeCount)

	assert.ErrorIs(t, store.IncrementPostViews(ctx, 9999, 1), ErrNotFound)
}

func TestMemoryStorageListPostsFilters(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	bot := &models.Bot{Name: "bot", Category: models.CategoryTech, Active: true}
	require.NoError(t, store.CreateBot(ctx, bot))

	published := &models.Post{BotID: bot.ID, Title: "published", Content: "c", Category: models.CategoryTech, PublishedAt: time.Now().Add(-time.Hour)}
	scheduled := &models.Post{BotID: bot.ID, Title: "scheduled", Content: "c", Category: models.CategoryTech, PublishedAt: time.Now().Add(time.Hour)}
	otherCat := &models.Post{BotID: bot.ID, Title: "other", Content: "c", Category: models.CategoryFood, PublishedAt: time.Now().Add(-2 * time.Hour)}
	require.NoError(t, store.CreatePost(ctx, published))
	require.NoError(t, store.CreatePost(ctx, scheduled))
	require.NoError(t, store.CreatePost(ctx, otherCat))

	posts, err := store.ListPosts(ctx, PostFilter{PublishedOnly: true})
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	for _, p := range posts {
		assert.NotEqual(t, "scheduled", p.Title)
	}

	posts, err = store.ListPosts(ctx, PostFilter{Category: models.CategoryFood})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "other", posts[0].Title)

	since := time.Now().Add(-90 * time.Minute)
	posts, err = store.ListPosts(ctx, PostFilter{PublishedOnly: true, Since: &since})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "published", posts[0].Title)

	posts, err = store.ListPosts(ctx, PostFilter{PublishedOnly: true, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestMemoryStorageListPostsOrderByHeat(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	bot := &models.Bot{Name: "bot", Category: models.CategoryTech, Active: true}
	require.NoError(t, store.CreateBot(ctx, bot))

	cold := &models.Post{BotID: bot.ID, Title: "cold", Content: "c", Category: bot.Category, HeatScore: 10, PublishedAt: time.Now().Add(-time.Hour)}
	hot := &models.Post{BotID: bot.ID, Title: "hot", Content: "c", Category: bot.Category, HeatScore: 90, PublishedAt: time.Now().Add(-2 * time.Hour)}
	require.NoError(t, store.CreatePost(ctx, cold))
	require.NoError(t, store.CreatePost(ctx, hot))

	posts, err := store.ListPosts(ctx, PostFilter{OrderBy: "heat_score"})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "hot", posts[0].Title)
}

func TestMemoryStorageHeatLogNewestFirst(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		require.NoError(t, store.AppendHeatLog(ctx, &models.HeatLogEntry{PostID: 1, HeatScore: i}))
	}

	entries, err := store.GetHeatLog(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 4, entries[0].HeatScore)
	assert.Equal(t, 3, entries[1].HeatScore)
}

func TestMemoryStorageCommentCountExcludesDeleted(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, store.CreateComment(ctx, &models.Comment{PostID: 1, BotID: 1, Content: "a"}))
	deleted := &models.Comment{PostID: 1, BotID: 1, Content: "b", Deleted: true}
	require.NoError(t, store.CreateComment(ctx, deleted))

	count, err := store.CountPostComments(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStorageActiveBotFilters(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	active := &models.Bot{Name: "active", Category: models.CategoryTech, Active: true}
	inactive := &models.Bot{Name: "inactive", Category: models.CategoryTech, Active: false}
	otherCat := &models.Bot{Name: "other", Category: models.CategoryFood, Active: true}
	require.NoError(t, store.CreateBot(ctx, active))
	require.NoError(t, store.CreateBot(ctx, inactive))
	require.NoError(t, store.CreateBot(ctx, otherCat))

	bots, err := store.GetActiveBots(ctx)
	require.NoError(t, err)
	assert.Len(t, bots, 2)

	bots, err = store.GetActiveBotsByCategory(ctx, models.CategoryTech)
	require.NoError(t, err)
	require.Len(t, bots, 1)
	assert.Equal(t, "active", bots[0].Name)
}
