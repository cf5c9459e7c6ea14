package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/iceymoss/newsfeed/internal/conf"
	"github.com/iceymoss/newsfeed/internal/core"
	"github.com/iceymoss/newsfeed/internal/engine"
	"github.com/iceymoss/newsfeed/internal/ingest"
	"github.com/iceymoss/newsfeed/internal/metrics"
	"github.com/iceymoss/newsfeed/internal/queue"
	"github.com/iceymoss/newsfeed/internal/repo"
	"github.com/iceymoss/newsfeed/internal/sources/news"
	"github.com/iceymoss/newsfeed/internal/sources/summary"
	"github.com/iceymoss/newsfeed/internal/summarize"
	"github.com/iceymoss/newsfeed/internal/tasks"
	newstasks "github.com/iceymoss/newsfeed/internal/tasks/news"
	"github.com/iceymoss/newsfeed/pkg/db"
	"github.com/iceymoss/newsfeed/pkg/logger"
	"github.com/iceymoss/newsfeed/pkg/transaction"
	"github.com/iceymoss/newsfeed/pkg/utils"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app 进程内共享的依赖，按命令需要逐步打开
type app struct {
	cfg     *conf.Config
	log     *zap.Logger
	now     func() time.Time
	loc     *time.Location
	metrics *metrics.Metrics

	db       *gorm.DB
	articles *repo.ArticleRepo
	feeds    *repo.FeedRepo
	users    *repo.UserRepo
	jobs     *repo.JobRepo

	rdb     *redis.Client
	queue   *queue.RedisQueue
	mongo   *mongo.Client
	archive *repo.ArchiveRepo
}

func loadApp(opts *rootOptions) (*app, error) {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", opts.envFile, err)
	}

	cfg, err := conf.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(cfg.Services.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	loc := utils.LoadLocation(cfg.Services.Timezone)
	return &app{
		cfg:     cfg,
		log:     logger.Named("app"),
		now:     utils.Clock(loc),
		loc:     loc,
		metrics: metrics.New(reg),
	}, nil
}

func (a *app) openDB() error {
	gdb, err := db.Open(a.cfg.Database)
	if err != nil {
		return err
	}
	a.db = gdb
	a.articles = repo.NewArticleRepo(gdb)
	a.feeds = repo.NewFeedRepo(gdb)
	a.users = repo.NewUserRepo(gdb, transaction.NewManager(gdb))
	a.jobs = repo.NewJobRepo(gdb)
	return nil
}

func (a *app) openQueue(ctx context.Context) error {
	rdb, err := db.NewRedis(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	a.rdb = rdb
	a.queue = queue.NewRedisQueue(rdb, a.cfg.Worker.Queue, queue.WithLease(a.policy().Lease()))
	return nil
}

// openArchive mongo 是可选的，连不上只告警
func (a *app) openArchive(ctx context.Context) {
	if !a.cfg.Mongo.Enabled() {
		return
	}
	client, database, err := db.NewMongo(ctx, a.cfg.Mongo)
	if err != nil {
		a.log.Warn("⚠️ mongo unavailable, fetch batches will not be archived", zap.Error(err))
		return
	}
	a.mongo = client
	a.archive = repo.NewArchiveRepo(database)
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.mongo != nil {
		_ = a.mongo.Disconnect(context.Background())
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func (a *app) policy() queue.Policy {
	return queue.PolicyFromConfig(a.cfg.Worker)
}

// summaryHandler 队列执行的摘要任务
func (a *app) summaryHandler() (queue.Handler, error) {
	src, err := summary.New(a.cfg.Summary, a.cfg.Services.UseMock, logger.Named("summary"))
	if err != nil {
		return nil, err
	}
	job := summarize.NewJob(summarize.Deps{
		Store:   a.articles,
		Summary: src,
		Logger:  logger.Named("summarize"),
		Metrics: a.metrics,
		Now:     a.now,
	})
	return job.Run, nil
}

func (a *app) pipeline(enq ingest.Enqueuer) (*ingest.Pipeline, error) {
	src, err := news.New(a.cfg.News, a.cfg.Services.UseMock, logger.Named("news"))
	if err != nil {
		return nil, err
	}
	deps := ingest.Deps{
		Store:           a.articles,
		News:            src,
		Queue:           enq,
		DefaultCategory: a.cfg.Ingest.DefaultCategory,
		Logger:          logger.Named("ingest"),
		Metrics:         a.metrics,
		Now:             a.now,
	}
	// 接口里不能放 nil 指针
	if a.archive != nil {
		deps.Archive = a.archive
	}
	return ingest.NewPipeline(deps), nil
}

// taskManager 注册新闻任务
func (a *app) taskManager(enq ingest.Enqueuer) (*tasks.Manager, error) {
	p, err := a.pipeline(enq)
	if err != nil {
		return nil, err
	}
	m := tasks.NewManager(logger.Named("tasks"))
	newstasks.Register(m, newstasks.Deps{
		Pipeline:     p,
		Articles:     a.articles,
		Queue:        enq,
		DefaultLimit: a.cfg.Ingest.Limit,
		FetchCron:    a.cfg.Ingest.Cron,
		RequeueCron:  a.cfg.Ingest.RequeueCron,
		Logger:       logger.Named("tasks"),
	})
	return m, nil
}

func (a *app) scheduler(ctx context.Context, m *tasks.Manager) *engine.Scheduler {
	s := engine.NewScheduler(engine.Options{
		Tasks:     m,
		Location:  a.loc,
		RunLogger: a.jobs,
		Metrics:   a.metrics,
		Logger:    logger.Named("scheduler"),
	})
	m.ApplyAutoJobs(s)
	s.LoadConfigJobs(a.cfg.Jobs)
	if n, err := s.LoadDBJobs(ctx, a.jobs); err != nil {
		a.log.Warn("⚠️ load sys_jobs failed", zap.Error(err))
	} else if n > 0 {
		a.log.Info("✅ sys_jobs loaded", zap.Int("count", n))
	}
	// 每个注册的任务都能在面板上手动触发，即使没有 cron
	for _, name := range m.Names() {
		if _, ok := s.Stats.Get(name); !ok {
			_ = s.AddJob("", name, name, nil, core.TaskTypeSYSTEM)
		}
	}
	return s
}

func (a *app) worker() (*queue.Worker, error) {
	h, err := a.summaryHandler()
	if err != nil {
		return nil, err
	}
	return queue.NewWorker(queue.WorkerConfig{
		Queue:       a.queue,
		Handler:     h,
		Policy:      a.policy(),
		Concurrency: a.cfg.Worker.Concurrency,
		Logger:      logger.Named("worker"),
		Metrics:     a.metrics,
	}), nil
}
