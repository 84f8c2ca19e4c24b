package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xanderle/aiboard/internal/models"
	"github.com/xanderle/aiboard/internal/storage"
)

// fakeProvider returns canned responses in order and counts calls.
type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeProvider) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	if len(f.responses) > 0 {
		return f.responses[len(f.responses)-1], nil
	}
	return "", errors.New("no response configured")
}

func newTestGenerator(t *testing.T, p *fakeProvider) (*Generator, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	gen := New(p, store, Config{CallDelay: 0}, zap.NewNop())
	return gen, store
}

func seedBot(t *testing.T, store *storage.MemoryStorage, name string, category models.Category, active bool) *models.Bot {
	t.Helper()
	bot := &models.Bot{Name: name, Category: category, Persona: "You are " + name, Active: active}
	require.NoError(t, store.CreateBot(context.Background(), bot))
	return bot
}

func seedPost(t *testing.T, store *storage.MemoryStorage, bot *models.Bot, publishedAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		BotID:       bot.ID,
		Title:       "Seeded post",
		Content:     "Some content for the seeded post.",
		Excerpt:     "Some content",
		Category:    bot.Category,
		HeatScore:   100,
		PublishedAt: publishedAt,
	}
	require.NoError(t, store.CreatePost(context.Background(), post))
	return post
}

func TestGeneratePostParsesJSON(t *testing.T) {
	p := &fakeProvider{responses: []string{
		"Sure, here is the post:\n{\"title\": \"Rates and You\", \"content\": \"Body text here.\", \"excerpt\": \"A teaser.\"}\nHope that helps!",
	}}
	gen, store := newTestGenerator(t, p)
	bot := seedBot(t, store, "FinBot", models.CategoryFinance, true)

	draft, err := gen.GeneratePost(context.Background(), bot.ID, "interest rates")
	require.NoError(t, err)
	assert.Equal(t, "Rates and You", draft.Title)
	assert.Equal(t, "Body text here.", draft.Content)
	assert.Equal(t, "A teaser.", draft.Excerpt)
}

func TestGeneratePostPartialJSONFallsBackByField(t *testing.T) {
	p := &fakeProvider{responses: []string{
		`{"content": "Only content came back from the model."}`,
	}}
	gen, store := newTestGenerator(t, p)
	bot := seedBot(t, store, "FinBot", models.CategoryFinance, true)

	draft, err := gen.GeneratePost(context.Background(), bot.ID, "interest rates")
	require.NoError(t, err)
	assert.Equal(t, "interest rates", draft.Title)
	assert.Equal(t, "Only content came back from the model.", draft.Content)
	assert.Equal(t, "Only content came back from the model.", draft.Excerpt)
}

func TestGeneratePostPlainTextFallback(t *testing.T) {
	raw := strings.Repeat("Plain prose, no JSON at all. ", 10)
	p := &fakeProvider{responses: []string{raw}}
	gen, store := newTestGenerator(t, p)
	bot := seedBot(t, store, "FinBot", models.CategoryFinance, true)

	draft, err := gen.GeneratePost(context.Background(), bot.ID, "interest rates")
	require.NoError(t, err)
	assert.Equal(t, "interest rates", draft.Title)
	assert.Equal(t, raw, draft.Content)
	assert.Equal(t, string([]rune(raw)[:100]), draft.Excerpt)
	assert.NotEmpty(t, draft.Title)
	assert.NotEmpty(t, draft.Content)
	assert.NotEmpty(t, draft.Excerpt)
}

func TestGenerateCommentsExcludesAuthor(t *testing.T) {
	p := &fakeProvider{responses: []string{"Great take, totally agree with the premise here."}}
	gen, store := newTestGenerator(t, p)
	author := seedBot(t, store, "Author", models.CategoryTech, true)
	other1 := seedBot(t, store, "Other1", models.CategoryFinance, true)
	other2 := seedBot(t, store, "Other2", models.CategorySports, true)
	seedBot(t, store, "Inactive", models.CategoryFood, false)
	post := seedPost(t, store, author, time.Now().Add(-time.Hour))

	drafts, err := gen.GenerateComments(context.Background(), post.ID, 10)
	require.NoError(t, err)
	assert.Len(t, drafts, 2)
	for _, draft := range drafts {
		assert.NotEqual(t, author.ID, draft.BotID)
		assert.Contains(t, []int64{other1.ID, other2.ID}, draft.BotID)
		assert.NotEmpty(t, draft.Content)
	}
}

func TestGenerateCommentsNoOtherBots(t *testing.T) {
	p := &fakeProvider{}
	gen, store := newTestGenerator(t, p)
	author := seedBot(t, store, "Author", models.CategoryTech, true)
	post := seedPost(t, store, author, time.Now().Add(-time.Hour))

	drafts, err := gen.GenerateComments(context.Background(), post.ID, 3)
	require.NoError(t, err)
	assert.Empty(t, drafts)
	assert.Zero(t, p.calls)
}

func TestGenerateCommentsRespectsCount(t *testing.T) {
	p := &fakeProvider{responses: []string{"Short reaction that lands within the budget."}}
	gen, store := newTestGenerator(t, p)
	author := seedBot(t, store, "Author", models.CategoryTech, true)
	for i := 0; i < 5; i++ {
		seedBot(t, store, "Other", models.CategoryFinance, true)
	}
	post := seedPost(t, store, author, time.Now().Add(-time.Hour))

	drafts, err := gen.GenerateComments(context.Background(), post.ID, 3)
	require.NoError(t, err)
	assert.Len(t, drafts, 3)
}

func buildThread(t *testing.T, store *storage.MemoryStorage, post *models.Post, bot *models.Bot, depth int) *models.Comment {
	t.Helper()
	var parent *models.Comment
	for i := 0; i <= depth; i++ {
		comment := &models.Comment{PostID: post.ID, BotID: bot.ID, Content: "thread comment"}
		if parent != nil {
			comment.ParentID = &parent.ID
		}
		require.NoError(t, store.CreateComment(context.Background(), comment))
		parent = comment
	}
	return parent
}

func TestGenerateReplyStopsAtMaxDepth(t *testing.T) {
	p := &fakeProvider{responses: []string{"should never be used"}}
	gen, store := newTestGenerator(t, p)
	author := seedBot(t, store, "Author", models.CategoryTech, true)
	commenter := seedBot(t, store, "Commenter", models.CategoryFinance, true)
	post := seedPost(t, store, author, time.Now().Add(-time.Hour))
	leaf := buildThread(t, store, post, commenter, models.MaxThreadDepth)

	draft, err := gen.GenerateReply(context.Background(), leaf.ID)
	require.NoError(t, err)
	assert.Nil(t, draft)
	assert.Zero(t, p.calls, "no provider call should happen at max depth")
}

func TestGenerateReplyBelowMaxDepth(t *testing.T) {
	p := &fakeProvider{responses: []string{"Fair point, well argued."}}
	gen, store := newTestGenerator(t, p)
	author := seedBot(t, store, "Author", models.CategoryTech, true)
	commenter := seedBot(t, store, "Commenter", models.CategoryFinance, true)
	third := seedBot(t, store, "Third", models.CategorySports, true)
	post := seedPost(t, store, author, time.Now().Add(-time.Hour))
	leaf := buildThread(t, store, post, commenter, 1)

	draft, err := gen.GenerateReply(context.Background(), leaf.ID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.NotEmpty(t, draft.Content)
	// The replier is either the post author or another bot, never the commenter.
	assert.Contains(t, []int64{author.ID, third.ID}, draft.BotID)
}

func TestGenerateReplyFallsBackToAuthor(t *testing.T) {
	// Only the author and the commenter exist, so the coin flip can only
	// ever land on the author.
	p := &fakeProvider{responses: []string{"Thanks for reading!"}}
	gen, store := newTestGenerator(t, p)
	author := seedBot(t, store, "Author", models.CategoryTech, true)
	commenter := seedBot(t, store, "Commenter", models.CategoryFinance, true)
	post := seedPost(t, store, author, time.Now().Add(-time.Hour))
	leaf := buildThread(t, store, post, commenter, 0)

	for i := 0; i < 10; i++ {
		p.calls = 0
		draft, err := gen.GenerateReply(context.Background(), leaf.ID)
		require.NoError(t, err)
		require.NotNil(t, draft)
		assert.Equal(t, author.ID, draft.BotID)
	}
}

func TestGenerateReplyProviderFailureReturnsNil(t *testing.T) {
	p := &fakeProvider{errs: []error{errors.New("rate limited")}}
	gen, store := newTestGenerator(t, p)
	author := seedBot(t, store, "Author", models.CategoryTech, true)
	commenter := seedBot(t, store, "Commenter", models.CategoryFinance, true)
	post := seedPost(t, store, author, time.Now().Add(-time.Hour))
	leaf := buildThread(t, store, post, commenter, 0)

	draft, err := gen.GenerateReply(context.Background(), leaf.ID)
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestGenerateDailyTopicsSkipsFailingBot(t *testing.T) {
	p := &fakeProvider{
		errs:      []error{errors.New("provider down"), nil},
		responses: []string{"", "First headline\nSecond headline\nThird\nFourth\nFifth\nSixth"},
	}
	gen, store := newTestGenerator(t, p)
	seedBot(t, store, "Broken", models.CategoryTech, true)
	ok := seedBot(t, store, "Working", models.CategoryFinance, true)

	sets, err := gen.GenerateDailyTopics(context.Background())
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, ok.ID, sets[0].Bot.ID)
	assert.Len(t, sets[0].Topics, 5)
}

func TestGenerateDailyPostsPersistsPosts(t *testing.T) {
	p := &fakeProvider{responses: []string{
		"Topic one\nTopic two\nTopic three\nTopic four\nTopic five",
		`{"title": "T", "content": "C", "excerpt": "E"}`,
	}}
	gen, store := newTestGenerator(t, p)
	bot := seedBot(t, store, "TechBot", models.CategoryTech, true)

	created, err := gen.GenerateDailyPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, created)

	posts, err := store.ListPosts(context.Background(), storage.PostFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 5)
	for _, post := range posts {
		assert.Equal(t, bot.ID, post.BotID)
		assert.Equal(t, models.CategoryTech, post.Category)
		assert.GreaterOrEqual(t, post.HeatScore, 50)
		assert.LessOrEqual(t, post.HeatScore, 200)
		assert.NotEmpty(t, post.Title)
		assert.NotEmpty(t, post.Content)
		assert.NotEmpty(t, post.Excerpt)
	}
}

func TestInitialHeatStaysInBounds(t *testing.T) {
	gen, _ := newTestGenerator(t, &fakeProvider{})
	for i := 0; i < 1000; i++ {
		score := gen.initialHeat()
		assert.GreaterOrEqual(t, score, 50)
		assert.LessOrEqual(t, score, 200)
	}
}
