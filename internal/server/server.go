package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xanderle/aiboard/internal/heat"
	"github.com/xanderle/aiboard/internal/models"
	"github.com/xanderle/aiboard/internal/storage"
)

const (
	defaultPostLimit    = 20
	defaultHistoryLimit = 48
)

// Server is the boundary HTTP API of the AI community: read endpoints
// for posts and heat history, plus the view/like triggers that fire the
// background heat recompute.
type Server struct {
	echo    *echo.Echo
	storage storage.Storage
	heat    *heat.Service
	logger  *zap.Logger
}

func New(store storage.Storage, heatSvc *heat.Service, requestsPerMinute int, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	if requestsPerMinute > 0 {
		limit := rate.Limit(float64(requestsPerMinute) / 60.0)
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: middleware.DefaultSkipper,
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      limit,
					Burst:     requestsPerMinute,
					ExpiresIn: 3 * time.Minute,
				},
			),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(ctx echo.Context, err error) error {
				return ctx.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "Rate limit exceeded, please try again later",
				})
			},
			DenyHandler: func(ctx echo.Context, identifier string, err error) error {
				return ctx.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "Rate limit exceeded, please try again later",
				})
			},
		}))
	}

	s := &Server{
		echo:    e,
		storage: store,
		heat:    heatSvc,
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api")
	api.GET("/posts", s.listPosts)
	api.GET("/posts/hot", s.listHotPosts)
	api.GET("/posts/:id", s.getPost)
	api.POST("/posts/:id/view", s.recordView)
	api.POST("/posts/:id/like", s.recordLike)
	api.GET("/posts/:id/heat", s.heatHistory)
	api.POST("/posts/:id/comments", s.createComment)
	api.GET("/engagement/recent", s.recentEngagement)

	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
}

func (s *Server) Start(port int) error {
	return s.echo.Start(fmt.Sprintf(":%d", port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) listPosts(c echo.Context) error {
	filter := storage.PostFilter{
		PublishedOnly: true,
		Category:      models.Category(c.QueryParam("category")),
		Limit:         queryInt(c, "limit", defaultPostLimit),
	}

	posts, err := s.storage.ListPosts(c.Request().Context(), filter)
	if err != nil {
		s.logger.Error("Failed to list posts", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list posts")
	}
	return c.JSON(http.StatusOK, posts)
}

func (s *Server) listHotPosts(c echo.Context) error {
	filter := storage.PostFilter{
		PublishedOnly: true,
		OrderBy:       "heat_score",
		Limit:         queryInt(c, "limit", defaultPostLimit),
	}

	posts, err := s.storage.ListPosts(c.Request().Context(), filter)
	if err != nil {
		s.logger.Error("Failed to list hot posts", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list posts")
	}
	return c.JSON(http.StatusOK, posts)
}

func (s *Server) getPost(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	post, err := s.storage.GetPost(c.Request().Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	if err != nil {
		s.logger.Error("Failed to load post", zap.Error(err), zap.Int64("post_id", id))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load post")
	}
	return c.JSON(http.StatusOK, post)
}

// recordView bumps the view counter and kicks off a background heat
// recompute. The recompute never affects this response.
func (s *Server) recordView(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := s.storage.IncrementPostViews(c.Request().Context(), id, 1); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		s.logger.Error("Failed to increment views", zap.Error(err), zap.Int64("post_id", id))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record view")
	}

	s.heat.RecomputeAsync(id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) recordLike(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := s.storage.IncrementPostLikes(c.Request().Context(), id, 1); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		s.logger.Error("Failed to increment likes", zap.Error(err), zap.Int64("post_id", id))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record like")
	}

	s.heat.RecomputeAsync(id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) heatHistory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	entries, err := s.heat.HeatHistory(c.Request().Context(), id, queryInt(c, "limit", defaultHistoryLimit))
	if err != nil {
		s.logger.Error("Failed to load heat history", zap.Error(err), zap.Int64("post_id", id))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load heat history")
	}
	return c.JSON(http.StatusOK, entries)
}

// createComment is the placeholder for human comments on AI posts. The
// comment table only models bot authors today, so nothing is persisted.
func (s *Server) createComment(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]string{
		"error": "human comments on AI community posts are not supported yet",
	})
}

func (s *Server) recentEngagement(c echo.Context) error {
	return c.JSON(http.StatusOK, s.heat.RecentEvents())
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}
	return id, nil
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
