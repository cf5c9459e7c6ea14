package objects

import "time"

// ReadingHistory 阅读记录，(user_id, article_id) 唯一，重复阅读只更新时间
type ReadingHistory struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_reading_user_article,priority:1;index:idx_reading_user_read_at,priority:1" json:"user_id"`
	ArticleID uint64    `gorm:"not null;uniqueIndex:idx_reading_user_article,priority:2;index" json:"article_id"`
	ReadAt    time.Time `gorm:"not null;index:idx_reading_user_read_at,priority:2" json:"read_at"`
	TimeSpent *int      `json:"time_spent,omitempty"` // 秒
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReadingHistory) TableName() string {
	return "reading_history"
}

// SavedArticle 收藏，行存在即已收藏
type SavedArticle struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_saved_user_article,priority:1" json:"user_id"`
	ArticleID uint64    `gorm:"not null;uniqueIndex:idx_saved_user_article,priority:2" json:"article_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (SavedArticle) TableName() string {
	return "saved_articles"
}

// UserPreference 用户偏好分类，每次更新整体替换
type UserPreference struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint64    `gorm:"not null;uniqueIndex:idx_pref_user_category,priority:1" json:"user_id"`
	CategoryID uint64    `gorm:"not null;uniqueIndex:idx_pref_user_category,priority:2" json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}

// All 迁移用的全部模型
func All() []any {
	return []any{
		&Category{}, &Source{}, &Article{},
		&ReadingHistory{}, &SavedArticle{}, &UserPreference{},
		&SysJob{}, &SysJobLog{},
	}
}
