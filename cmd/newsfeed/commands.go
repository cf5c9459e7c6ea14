package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iceymoss/newsfeed/internal/ingest"
	"github.com/iceymoss/newsfeed/internal/queue"
	"github.com/iceymoss/newsfeed/internal/server"
	newstasks "github.com/iceymoss/newsfeed/internal/tasks/news"
	"github.com/iceymoss/newsfeed/pkg/db/objects"
	"github.com/iceymoss/newsfeed/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd(opts *rootOptions) *cobra.Command {
	var withWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP API 和定时任务",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.openDB(); err != nil {
				return err
			}
			if err := a.openQueue(ctx); err != nil {
				return err
			}
			a.openArchive(ctx)

			m, err := a.taskManager(a.queue)
			if err != nil {
				return err
			}
			sched := a.scheduler(ctx, m)
			sched.Start()
			defer sched.Stop()

			if withWorker {
				w, err := a.worker()
				if err != nil {
					return err
				}
				workerDone := make(chan struct{})
				go func() {
					defer close(workerDone)
					if err := w.Run(ctx); err != nil {
						a.log.Error("❌ [Worker] stopped", zap.Error(err))
					}
				}()
				// HTTP 退出后等在途摘要写完
				defer func() {
					cancel()
					<-workerDone
				}()
			}

			deps := server.Deps{
				Tasks:   sched,
				Catalog: a.articles,
				Feeds:   a.feeds,
				Users:   a.users,
				History: a.jobs,
				Queue:   a.queue,
				Metrics: a.metrics,
				Logger:  logger.Named("http"),
				Now:     a.now,
			}
			if a.archive != nil {
				deps.Batches = a.archive
			}
			return server.NewServer(deps).Run(ctx, a.cfg.Server.Port)
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "同一进程内同时消费摘要队列")
	return cmd
}

func workerCmd(opts *rootOptions) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "消费摘要队列",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.openDB(); err != nil {
				return err
			}
			if err := a.openQueue(ctx); err != nil {
				return err
			}
			w, err := a.worker()
			if err != nil {
				return err
			}

			if !once {
				return w.Run(ctx)
			}
			// 处理完当前积压（含到期的重试）就退出
			handled := 0
			for {
				ok, err := w.ProcessOne(ctx)
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				handled++
			}
			a.log.Info("🎉 [Worker] queue drained", zap.Int("handled", handled))
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "队列为空时退出")
	return cmd
}

func fetchCmd(opts *rootOptions) *cobra.Command {
	var (
		limit int
		sync  bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "抓取一次新闻",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.openDB(); err != nil {
				return err
			}
			a.openArchive(ctx)

			var enq ingest.Enqueuer
			if sync {
				h, err := a.summaryHandler()
				if err != nil {
					return err
				}
				enq = queue.NewInline(h, a.policy(), logger.Named("inline"), a.metrics)
			} else {
				if err := a.openQueue(ctx); err != nil {
					return err
				}
				enq = a.queue
			}

			p, err := a.pipeline(enq)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = a.cfg.Ingest.Limit
			}
			report, err := p.Run(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored=%d skipped=%d failed=%d\n", report.Stored, report.Skipped, report.Failed)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "最多抓取条数，默认取 ingest.limit")
	cmd.Flags().BoolVar(&sync, "sync", false, "不经过队列，抓取后立即生成摘要")
	return cmd
}

func requeueCmd(opts *rootOptions) *cobra.Command {
	var (
		statuses []string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "requeue",
		Short: "把 pending/failed 的文章重新放回摘要队列",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			if _, err := newstasks.ParseStatuses(statuses); err != nil {
				return err
			}
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.openDB(); err != nil {
				return err
			}
			if err := a.openQueue(ctx); err != nil {
				return err
			}
			task := newstasks.NewRequeueTask(a.articles, a.queue, logger.Named("tasks"))
			return task.Run(ctx, map[string]any{"statuses": statuses, "limit": limit})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", []string{string(objects.StatusFailed)}, "要重新投递的状态 (pending,failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", newstasks.DefaultRequeueLimit, "最多投递条数")
	return cmd
}

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "自动建表",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.openDB(); err != nil {
				return err
			}
			if err := a.db.AutoMigrate(objects.All()...); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			a.log.Info("✅ [Migrate] tables are up to date")
			return nil
		},
	}
}

func seedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "写入默认新闻分类",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.openDB(); err != nil {
				return err
			}
			n, err := a.articles.SeedCategories(ctx, objects.DefaultCategories())
			if err != nil {
				return err
			}
			a.log.Info("✅ [Seed] categories ready", zap.Int("created", n))
			return nil
		},
	}
}
