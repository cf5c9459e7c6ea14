package repo

import (
	"context"
	"errors"
	"time"

	"github.com/iceymoss/newsfeed/pkg/db/objects"
	"github.com/iceymoss/newsfeed/pkg/transaction"

	"gorm.io/gorm"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

type PageRequest struct {
	Page    int
	PerPage int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Page 分页结果
type Page struct {
	Items    []objects.Article `json:"data"`
	Page     int               `json:"current_page"`
	PerPage  int               `json:"per_page"`
	Total    int64             `json:"total"`
	LastPage int               `json:"last_page"`
}

// FeedRepo 读侧查询，只展示 processed 状态的文章 (收藏列表除外)
type FeedRepo struct {
	db *gorm.DB
}

func NewFeedRepo(db *gorm.DB) *FeedRepo {
	return &FeedRepo{db: db}
}

func (r *FeedRepo) conn(ctx context.Context) *gorm.DB {
	return transaction.Conn(ctx, r.db)
}

// PersonalizedFeed 偏好分类下、未读过的已处理文章，按发布时间倒序
func (r *FeedRepo) PersonalizedFeed(ctx context.Context, userID uint64, req PageRequest) (*Page, error) {
	db := r.conn(ctx)
	preferred := db.Session(&gorm.Session{NewDB: true}).Model(&objects.UserPreference{}).
		Select("category_id").Where("user_id = ?", userID)
	read := db.Session(&gorm.Session{NewDB: true}).Model(&objects.ReadingHistory{}).
		Select("article_id").Where("user_id = ?", userID)

	q := db.Model(&objects.Article{}).
		Where("status = ?", objects.StatusProcessed).
		Where("category_id IN (?)", preferred).
		Where("id NOT IN (?)", read)
	return paginate(q, req)
}

func (r *FeedRepo) CategoryFeed(ctx context.Context, categoryID uint64, req PageRequest) (*Page, error) {
	q := r.conn(ctx).Model(&objects.Article{}).
		Where("status = ?", objects.StatusProcessed).
		Where("category_id = ?", categoryID)
	return paginate(q, req)
}

// SavedFeed 收藏列表，不过滤状态
func (r *FeedRepo) SavedFeed(ctx context.Context, userID uint64, req PageRequest) (*Page, error) {
	db := r.conn(ctx)
	saved := db.Session(&gorm.Session{NewDB: true}).Model(&objects.SavedArticle{}).
		Select("article_id").Where("user_id = ?", userID)
	q := db.Model(&objects.Article{}).Where("id IN (?)", saved)
	return paginate(q, req)
}

// Trending 近期发布的已处理文章，按阅读次数倒序
func (r *FeedRepo) Trending(ctx context.Context, since time.Time, limit int) ([]objects.Article, error) {
	if limit <= 0 {
		limit = 10
	}
	var list []objects.Article
	err := r.conn(ctx).Model(&objects.Article{}).
		Select("articles.*, COUNT(reading_history.id) AS reads_count").
		Joins("LEFT JOIN reading_history ON reading_history.article_id = articles.id").
		Where("articles.status = ? AND articles.published_at >= ?", objects.StatusProcessed, since).
		Group("articles.id").
		Order("reads_count DESC").Order("articles.published_at DESC").
		Limit(limit).
		Preload("Category").Preload("Source").
		Find(&list).Error
	return list, err
}

// Related 同分类的其他已处理文章
func (r *FeedRepo) Related(ctx context.Context, a *objects.Article, limit int) ([]objects.Article, error) {
	if limit <= 0 {
		limit = 5
	}
	var list []objects.Article
	err := r.conn(ctx).
		Where("category_id = ? AND status = ? AND id <> ?", a.CategoryID, objects.StatusProcessed, a.ID).
		Order("published_at DESC").
		Limit(limit).
		Preload("Category").
		Find(&list).Error
	return list, err
}

// ArticleDetail 带分类和来源
func (r *FeedRepo) ArticleDetail(ctx context.Context, id uint64) (*objects.Article, error) {
	var a objects.Article
	err := r.conn(ctx).Preload("Category").Preload("Source").Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func paginate(q *gorm.DB, req PageRequest) (*Page, error) {
	req = req.normalize()
	page := &Page{Items: []objects.Article{}, Page: req.Page, PerPage: req.PerPage, LastPage: 1}

	if err := q.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return nil, err
	}
	if page.Total == 0 {
		return page, nil
	}
	page.LastPage = int((page.Total + int64(req.PerPage) - 1) / int64(req.PerPage))
	if req.Page > page.LastPage {
		return page, nil
	}

	err := q.Preload("Category").Preload("Source").
		Order("published_at DESC").Order("id DESC").
		Offset((req.Page - 1) * req.PerPage).Limit(req.PerPage).
		Find(&page.Items).Error
	if err != nil {
		return nil, err
	}
	return page, nil
}
