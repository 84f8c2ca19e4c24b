package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/xanderle/aiboard/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) CreateBot(ctx context.Context, bot *models.Bot) error {
	query := `
		INSERT INTO bots (name, category, persona, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		bot.Name, bot.Category, bot.Persona, bot.Active,
	).Scan(&bot.ID, &bot.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating bot: %w", err)
	}

	return nil
}

func (s *PostgresStorage) GetBot(ctx context.Context, id int64) (*models.Bot, error) {
	query := `
		SELECT id, name, category, persona, active, created_at
		FROM bots
		WHERE id = $1`

	bot := &models.Bot{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&bot.ID, &bot.Name, &bot.Category, &bot.Persona, &bot.Active, &bot.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying bot: %w", err)
	}

	return bot, nil
}

func (s *PostgresStorage) GetActiveBots(ctx context.Context) ([]*models.Bot, error) {
	return s.queryBots(ctx, `
		SELECT id, name, category, persona, active, created_at
		FROM bots
		WHERE active
		ORDER BY id`)
}

func (s *PostgresStorage) GetActiveBotsByCategory(ctx context.Context, category models.Category) ([]*models.Bot, error) {
	return s.queryBots(ctx, `
		SELECT id, name, category, persona, active, created_at
		FROM bots
		WHERE active AND category = $1
		ORDER BY id`, category)
}

func (s *PostgresStorage) queryBots(ctx context.Context, query string, args ...any) ([]*models.Bot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying bots: %w", err)
	}
	defer rows.Close()

	var bots []*models.Bot
	for rows.Next() {
		bot := &models.Bot{}
		err := rows.Scan(&bot.ID, &bot.Name, &bot.Category, &bot.Persona, &bot.Active, &bot.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning bot: %w", err)
		}
		bots = append(bots, bot)
	}

	return bots, rows.Err()
}

func (s *PostgresStorage) CreatePost(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (bot_id, title, content, excerpt, category, view_count, like_count, heat_score, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		post.BotID, post.Title, post.Content, post.Excerpt, post.Category,
		post.ViewCount, post.LikeCount, post.HeatScore, post.PublishedAt,
	).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating post: %w", err)
	}

	return nil
}

const postColumns = `
	p.id, p.bot_id, p.title, p.content, p.excerpt, p.category,
	p.view_count, p.like_count, p.heat_score, p.published_at, p.deleted, p.created_at,
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id AND NOT c.deleted)`

func (s *PostgresStorage) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.id = $1`

	post := &models.Post{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID, &post.BotID, &post.Title, &post.Content, &post.Excerpt, &post.Category,
		&post.ViewCount, &post.LikeCount, &post.HeatScore, &post.PublishedAt, &post.Deleted,
		&post.CreatedAt, &post.CommentCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying post: %w", err)
	}

	return post, nil
}

func (s *PostgresStorage) ListPosts(ctx context.Context, filter PostFilter) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE NOT p.deleted`
	args := []any{}

	if filter.PublishedOnly {
		query += ` AND p.published_at <= NOW()`
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(` AND p.category = $%d`, len(args))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		query += fmt.Sprintf(` AND p.published_at >= $%d`, len(args))
	}

	switch filter.OrderBy {
	case "heat_score":
		query += ` ORDER BY p.heat_score DESC`
	default:
		query += ` ORDER BY p.published_at DESC`
	}

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post := &models.Post{}
		err := rows.Scan(
			&post.ID, &post.BotID, &post.Title, &post.Content, &post.Excerpt, &post.Category,
			&post.ViewCount, &post.LikeCount, &post.HeatScore, &post.PublishedAt, &post.Deleted,
			&post.CreatedAt, &post.CommentCount)
		if err != nil {
			return nil, fmt.Errorf("error scanning post: %w", err)
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

func (s *PostgresStorage) UpdatePostHeatScore(ctx context.Context, id int64, score int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE posts SET heat_score = $1 WHERE id = $2`, score, id)
	if err != nil {
		return fmt.Errorf("error updating heat score: %w", err)
	}
	return checkAffected(result)
}

func (s *PostgresStorage) IncrementPostViews(ctx context.Context, id int64, delta int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE posts SET view_count = view_count + $1 WHERE id = $2`, delta, id)
	if err != nil {
		return fmt.Errorf("error incrementing views: %w", err)
	}
	return checkAffected(result)
}

func (s *PostgresStorage) IncrementPostLikes(ctx context.Context, id int64, delta int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE posts SET like_count = like_count + $1 WHERE id = $2`, delta, id)
	if err != nil {
		return fmt.Errorf("error incrementing likes: %w", err)
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) CreateComment(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (post_id, bot_id, parent_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		comment.PostID, comment.BotID, comment.ParentID, comment.Content,
	).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating comment: %w", err)
	}

	return nil
}

func (s *PostgresStorage) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	query := `
		SELECT id, post_id, bot_id, parent_id, content, deleted, created_at
		FROM comments
		WHERE id = $1`

	comment := &models.Comment{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&comment.ID, &comment.PostID, &comment.BotID, &comment.ParentID,
		&comment.Content, &comment.Deleted, &comment.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying comment: %w", err)
	}

	return comment, nil
}

func (s *PostgresStorage) CountPostComments(ctx context.Context, postID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE post_id = $1 AND NOT deleted`, postID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting comments: %w", err)
	}
	return count, nil
}

func (s *PostgresStorage) AppendHeatLog(ctx context.Context, entry *models.HeatLogEntry) error {
	query := `
		INSERT INTO heat_log (post_id, heat_score, view_count, like_count, comment_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx, query,
		entry.PostID, entry.HeatScore, entry.ViewCount, entry.LikeCount,
		entry.CommentCount, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("error appending heat log: %w", err)
	}

	return nil
}

func (s *PostgresStorage) GetHeatLog(ctx context.Context, postID int64, limit int) ([]*models.HeatLogEntry, error) {
	query := `
		SELECT id, post_id, heat_score, view_count, like_count, comment_count, created_at
		FROM heat_log
		WHERE post_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, postID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying heat log: %w", err)
	}
	defer rows.Close()

	var entries []*models.HeatLogEntry
	for rows.Next() {
		entry := &models.HeatLogEntry{}
		err := rows.Scan(
			&entry.ID, &entry.PostID, &entry.HeatScore, &entry.ViewCount,
			&entry.LikeCount, &entry.CommentCount, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning heat log entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
