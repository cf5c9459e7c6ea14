package objects

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ArticleStatus 文章生命周期状态
type ArticleStatus string

const (
	StatusPending   ArticleStatus = "pending"
	StatusProcessed ArticleStatus = "processed"
	StatusPartial   ArticleStatus = "partial"
	StatusFailed    ArticleStatus = "failed"
)

// Summarized 已经生成过摘要 (含降级摘要)，不需要再跑
func (s ArticleStatus) Summarized() bool {
	return s == StatusProcessed || s == StatusPartial
}

func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusPartial, StatusFailed:
		return true
	}
	return false
}

// Article 对应 articles 表
// url_hash 的唯一索引是入库去重的最终保证，应用层的存在性检查只是快速路径。
// utf8mb4 下 varchar(1000) 超过 InnoDB 索引长度上限，所以索引定长的哈希而不是 url 本身
type Article struct {
	ID          uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  uint64        `gorm:"not null;index:idx_articles_category_published,priority:1" json:"category_id"`
	SourceID    *uint64       `gorm:"index" json:"source_id,omitempty"`
	Title       string        `gorm:"type:varchar(500);not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Content     string        `gorm:"type:text" json:"content"`
	Summary     *string       `gorm:"type:text" json:"summary,omitempty"`
	URL         string        `gorm:"column:url;type:varchar(1000);not null" json:"url"`
	URLHash     string        `gorm:"column:url_hash;type:char(64);not null;uniqueIndex:idx_articles_url_hash" json:"-"`
	ImageURL    *string       `gorm:"column:image_url;type:varchar(1000)" json:"image_url,omitempty"`
	Author      *string       `gorm:"type:varchar(255)" json:"author,omitempty"`
	PublishedAt time.Time     `gorm:"not null;index;index:idx_articles_category_published,priority:2" json:"published_at"`
	Status      ArticleStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Source   *Source   `gorm:"foreignKey:SourceID" json:"source,omitempty"`
}

func (Article) TableName() string {
	return "articles"
}

// URLHash url 的 SHA-256 十六进制串
func URLHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
