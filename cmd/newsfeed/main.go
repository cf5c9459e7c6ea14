// newsfeed 个性化新闻流：抓取、AI 摘要、推荐
//
// Usage:
//
//	newsfeed serve [--with-worker]   # HTTP API + 定时任务
//	newsfeed worker [--once]         # 消费摘要队列
//	newsfeed fetch --limit 50        # 手动抓取一次
//	newsfeed requeue --status failed # 重新投递未完成的摘要
//	newsfeed migrate | seed          # 建表 / 写入默认分类
package main

import (
	"os"

	"github.com/iceymoss/newsfeed/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func main() {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "newsfeed",
		Short:         "Personalized news ingestion, summarization and feed service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "启动前加载的 .env 文件，不存在时忽略")

	rootCmd.AddCommand(
		serveCmd(opts),
		workerCmd(opts),
		fetchCmd(opts),
		requeueCmd(opts),
		migrateCmd(opts),
		seedCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("❌ command failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
