package objects

import "time"

// Category 分类，种子数据，运行时只读
type Category struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Icon        string    `gorm:"type:varchar(16)" json:"icon"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// DefaultCategories 初始分类，顺序即展示顺序
func DefaultCategories() []Category {
	return []Category{
		{Name: "Technology", Slug: "technology", Icon: "💻", IsActive: true,
			Description: "Latest tech news, gadgets, software, and innovation"},
		{Name: "Business", Slug: "business", Icon: "💼", IsActive: true,
			Description: "Business news, markets, economy, and finance"},
		{Name: "Sports", Slug: "sports", Icon: "⚽", IsActive: true,
			Description: "Sports news, scores, and athlete updates"},
		{Name: "Health", Slug: "health", Icon: "❤️", IsActive: true,
			Description: "Health, wellness, medical research, and fitness"},
		{Name: "Science", Slug: "science", Icon: "🔬", IsActive: true,
			Description: "Scientific discoveries, research, and space exploration"},
		{Name: "Entertainment", Slug: "entertainment", Icon: "🎬", IsActive: true,
			Description: "Movies, music, celebrities, and pop culture"},
	}
}
