package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/iceymoss/newsfeed/internal/engine"
	"github.com/iceymoss/newsfeed/internal/metrics"
	"github.com/iceymoss/newsfeed/internal/repo"
	"github.com/iceymoss/newsfeed/pkg/db/objects"
	"github.com/iceymoss/newsfeed/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TaskBoard 任务面板需要的调度器能力
type TaskBoard interface {
	ManualRun(uniqueJobName string) error
	Jobs() []engine.JobStats
}

// Catalog 分类与文章的读写
type Catalog interface {
	ActiveCategories(ctx context.Context) ([]objects.Category, error)
	CategoryBySlug(ctx context.Context, slug string) (*objects.Category, error)
	CategoriesByIDs(ctx context.Context, ids []uint64) ([]objects.Category, error)
	GetArticle(ctx context.Context, id uint64) (*objects.Article, error)
	StatusCounts(ctx context.Context) (map[objects.ArticleStatus]int64, error)
}

type Feeds interface {
	PersonalizedFeed(ctx context.Context, userID uint64, req repo.PageRequest) (*repo.Page, error)
	CategoryFeed(ctx context.Context, categoryID uint64, req repo.PageRequest) (*repo.Page, error)
	SavedFeed(ctx context.Context, userID uint64, req repo.PageRequest) (*repo.Page, error)
	Trending(ctx context.Context, since time.Time, limit int) ([]objects.Article, error)
	Related(ctx context.Context, a *objects.Article, limit int) ([]objects.Article, error)
	ArticleDetail(ctx context.Context, id uint64) (*objects.Article, error)
}

type Users interface {
	Preferences(ctx context.Context, userID uint64) ([]uint64, error)
	ReplacePreferences(ctx context.Context, userID uint64, categoryIDs []uint64) error
	MarkRead(ctx context.Context, userID, articleID uint64, timeSpent *int, at time.Time) error
	ToggleSave(ctx context.Context, userID, articleID uint64) (bool, error)
	HasRead(ctx context.Context, userID, articleID uint64) (bool, error)
	HasSaved(ctx context.Context, userID, articleID uint64) (bool, error)
}

// RunHistory sys_job_logs 查询
type RunHistory interface {
	RecentLogs(ctx context.Context, name string, limit int) ([]objects.SysJobLog, error)
}

// BatchArchive 抓取批次存档，未启用 mongo 时为 nil
type BatchArchive interface {
	RecentBatches(ctx context.Context, limit int64) ([]repo.FetchBatch, error)
}

// QueueStats 摘要队列积压
type QueueStats interface {
	Len(ctx context.Context) (int64, error)
	Delayed(ctx context.Context) (int64, error)
	InFlight(ctx context.Context) (int64, error)
}

// Deps History/Batches/Queue 可选
type Deps struct {
	Tasks   TaskBoard
	Catalog Catalog
	Feeds   Feeds
	Users   Users
	History RunHistory
	Batches BatchArchive
	Queue   QueueStats
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

type Server struct {
	engine *gin.Engine
	deps   Deps
	log    *zap.Logger
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = logger.Named("http")
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(d.Logger))

	s := &Server{engine: router, deps: d, log: d.Logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	h := &handlers{Deps: s.deps}

	api := s.engine.Group("/api")
	{
		api.GET("/tasks", h.listTasks)
		api.POST("/tasks/:name/run", h.runTask)
		api.GET("/tasks/:name/logs", h.taskLogs)
		api.GET("/ingest/batches", h.batches)

		api.GET("/categories", h.categories)
		api.GET("/stats", h.stats)
		api.GET("/feed/trending", h.trending)
	}

	user := api.Group("", requireUser())
	{
		user.GET("/feed", h.personalFeed)
		user.GET("/feed/category/:slug", h.categoryFeed)
		user.GET("/feed/saved", h.savedFeed)

		user.GET("/articles/:id", h.article)
		user.POST("/articles/:id/read", h.markRead)
		user.POST("/articles/:id/save", h.toggleSave)

		user.GET("/preferences", h.preferences)
		user.POST("/preferences", h.updatePreferences)
	}

	s.engine.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))

	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "msg": "API not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "msg": "not found"})
	})
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 阻塞直到 ctx 取消，然后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("🌐 [HTTP] listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("🛑 [HTTP] shutting down")
	return srv.Shutdown(shutdownCtx)
}
