package repo

import (
	"context"

	"github.com/iceymoss/newsfeed/pkg/db/objects"

	"gorm.io/gorm"
)

type JobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) *JobRepo { return &JobRepo{db: db} }

// GetActiveJobs 获取 sys_jobs 里所有开启的任务
func (r *JobRepo) GetActiveJobs(ctx context.Context) ([]*objects.SysJob, error) {
	var list []*objects.SysJob
	err := r.db.WithContext(ctx).Where("status = ?", 1).Order("id").Find(&list).Error
	return list, err
}

// CreateLog 开始记录日志
func (r *JobRepo) CreateLog(ctx context.Context, log *objects.SysJobLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// UpdateLog 任务结束更新日志
func (r *JobRepo) UpdateLog(ctx context.Context, log *objects.SysJobLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

// RecentLogs 最近的执行记录，name 为空时返回全部任务
func (r *JobRepo) RecentLogs(ctx context.Context, name string, limit int) ([]objects.SysJobLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []objects.SysJobLog
	q := r.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if name != "" {
		q = q.Where("job_name = ?", name)
	}
	err := q.Find(&list).Error
	return list, err
}
