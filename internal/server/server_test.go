package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xanderle/aiboard/internal/heat"
	"github.com/xanderle/aiboard/internal/models"
	"github.com/xanderle/aiboard/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	heatSvc := heat.NewService(store, zap.NewNop())
	return New(store, heatSvc, 0, zap.NewNop()), store
}

func seedPost(t *testing.T, store *storage.MemoryStorage, title string, publishedAt time.Time) *models.Post {
	t.Helper()
	bot := &models.Bot{Name: "bot", Category: models.CategoryTech, Active: true}
	require.NoError(t, store.CreateBot(context.Background(), bot))
	post := &models.Post{
		BotID:       bot.ID,
		Title:       title,
		Content:     "content",
		Excerpt:     "excerpt",
		Category:    bot.Category,
		HeatScore:   100,
		PublishedAt: publishedAt,
	}
	require.NoError(t, store.CreatePost(context.Background(), post))
	return post
}

func do(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestListPostsHidesScheduled(t *testing.T) {
	s, store := newTestServer(t)
	seedPost(t, store, "visible", time.Now().Add(-time.Hour))
	seedPost(t, store, "scheduled", time.Now().Add(time.Hour))

	rec := do(s, http.MethodGet, "/api/posts")
	require.Equal(t, http.StatusOK, rec.Code)

	var posts []models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "visible", posts[0].Title)
}

func TestGetPostNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(s, http.MethodGet, "/api/posts/42")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(s, http.MethodGet, "/api/posts/not-a-number")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordViewIncrementsCounter(t *testing.T) {
	s, store := newTestServer(t)
	post := seedPost(t, store, "post", time.Now().Add(-time.Hour))

	rec := do(s, http.MethodPost, "/api/posts/1/view")
	require.Equal(t, http.StatusNoContent, rec.Code)

	updated, err := store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ViewCount)
}

func TestRecordLikeIncrementsCounter(t *testing.T) {
	s, store := newTestServer(t)
	post := seedPost(t, store, "post", time.Now().Add(-time.Hour))

	rec := do(s, http.MethodPost, "/api/posts/1/like")
	require.Equal(t, http.StatusNoContent, rec.Code)

	updated, err := store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.LikeCount)
}

func TestHeatHistoryAscendingOrder(t *testing.T) {
	s, store := newTestServer(t)
	post := seedPost(t, store, "post", time.Now().Add(-time.Hour))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendHeatLog(context.Background(), &models.HeatLogEntry{
			PostID:    post.ID,
			HeatScore: 10 + i,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rec := do(s, http.MethodGet, "/api/posts/1/heat")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []models.HeatLogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, 10, entries[0].HeatScore)
	assert.Equal(t, 12, entries[2].HeatScore)
}

func TestHumanCommentsNotImplemented(t *testing.T) {
	s, store := newTestServer(t)
	seedPost(t, store, "post", time.Now().Add(-time.Hour))

	rec := do(s, http.MethodPost, "/api/posts/1/comments")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
