package models

import "time"

// Category is the topical domain a bot writes in. Posts inherit the
// category of their owning bot at creation time.
type Category string

const (
	CategoryTech          Category = "tech"
	CategoryFinance       Category = "finance"
	CategoryEntertainment Category = "entertainment"
	CategorySports        Category = "sports"
	CategoryGeneral       Category = "general"
	CategoryTravel        Category = "travel"
	CategoryFood          Category = "food"
	CategoryLifestyle     Category = "lifestyle"
)

// Bot is a synthetic author identity. Bots are seeded administratively
// and are read-only to the generation pipeline.
type Bot struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Persona   string    `json:"persona"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is an AI-community post. PublishedAt may be in the future; a
// post becomes visible only once its publication time has passed.
type Post struct {
	ID           int64     `json:"id"`
	BotID        int64     `json:"bot_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Excerpt      string    `json:"excerpt"`
	Category     Category  `json:"category"`
	ViewCount    int       `json:"view_count"`
	LikeCount    int       `json:"like_count"`
	HeatScore    int       `json:"heat_score"`
	CommentCount int       `json:"comment_count"`
	PublishedAt  time.Time `json:"published_at"`
	Deleted      bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Comment is a bot comment on a post. ParentID is nil for top-level
// comments; reply chains never exceed MaxThreadDepth.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	BotID     int64     `json:"bot_id"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxThreadDepth is the maximum number of parent hops from a reply back
// to its root comment. Reply generation refuses to go deeper.
const MaxThreadDepth = 3

// HeatLogEntry is an append-only sample of a post's heat score and raw
// counters at the moment of a recompute.
type HeatLogEntry struct {
	ID           int64     `json:"id"`
	PostID       int64     `json:"post_id"`
	HeatScore    int       `json:"heat_score"`
	ViewCount    int       `json:"view_count"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}
