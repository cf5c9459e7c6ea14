package objects

import (
	"encoding/json"
	"time"
)

// SysJob 对应 sys_jobs 表，库里声明的定时任务 (例如运营临时加的 requeue)
type SysJob struct {
	ID             uint   `gorm:"primarykey"`
	Name           string `gorm:"uniqueIndex;size:128"` // 任务名称
	CronExpr       string `gorm:"size:64"`
	ServiceHandler string `gorm:"size:128"` // 关联 tasks.Manager 里注册的 key，如 news:fetch
	Params         string `gorm:"type:text"` // JSON 字符串
	Status         int    `gorm:"default:1"` // 1 Enable, 0 Disable
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (SysJob) TableName() string {
	return "sys_jobs"
}

// ParamMap 解析 Params，空串返回空 map
func (j SysJob) ParamMap() (map[string]any, error) {
	params := map[string]any{}
	if j.Params == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(j.Params), &params); err != nil {
		return nil, err
	}
	return params, nil
}
