package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iceymoss/newsfeed/pkg/db/objects"
	"github.com/iceymoss/newsfeed/pkg/transaction"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateURL 唯一索引拒绝了重复 url，调用方按"已存在"处理
	ErrDuplicateURL = errors.New("article url already exists")
)

// ArticleRepo 文章、分类、来源的持久化
type ArticleRepo struct {
	db *gorm.DB
}

func NewArticleRepo(db *gorm.DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

func (r *ArticleRepo) conn(ctx context.Context) *gorm.DB {
	return transaction.Conn(ctx, r.db)
}

// ActiveCategories 启用中的分类，按 id 排序
func (r *ArticleRepo) ActiveCategories(ctx context.Context) ([]objects.Category, error) {
	var list []objects.Category
	err := r.conn(ctx).Where("is_active = ?", true).Order("id").Find(&list).Error
	return list, err
}

// Categories 全部分类 (分类器的参考集合)
func (r *ArticleRepo) Categories(ctx context.Context) ([]objects.Category, error) {
	var list []objects.Category
	err := r.conn(ctx).Order("id").Find(&list).Error
	return list, err
}

func (r *ArticleRepo) CategoryBySlug(ctx context.Context, slug string) (*objects.Category, error) {
	var c objects.Category
	err := r.conn(ctx).Where("slug = ?", slug).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ArticleRepo) CategoriesByIDs(ctx context.Context, ids []uint64) ([]objects.Category, error) {
	var list []objects.Category
	if len(ids) == 0 {
		return list, nil
	}
	err := r.conn(ctx).Where("id IN ?", ids).Order("id").Find(&list).Error
	return list, err
}

// SeedCategories 按 slug 幂等写入，返回新建数量
func (r *ArticleRepo) SeedCategories(ctx context.Context, cats []objects.Category) (int, error) {
	created := 0
	for _, c := range cats {
		_, err := r.CategoryBySlug(ctx, c.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, fmt.Errorf("seed category %s: %w", c.Slug, err)
		}
		row := c
		err = r.conn(ctx).Create(&row).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed category %s: %w", c.Slug, err)
		}
		created++
	}
	return created, nil
}

// ExistsByURL 快速预检，真正的去重由 url_hash 唯一索引保证
func (r *ArticleRepo) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var n int64
	err := r.conn(ctx).Model(&objects.Article{}).Where("url_hash = ?", objects.URLHash(url)).Count(&n).Error
	return n > 0, err
}

// FindOrCreateSource 按名称精确查找，不存在则创建 (默认启用)
// 并发插入撞唯一键时回读赢家，保证同名只有一行
func (r *ArticleRepo) FindOrCreateSource(ctx context.Context, name string) (*objects.Source, error) {
	db := r.conn(ctx)

	var src objects.Source
	err := db.Where("name = ?", name).First(&src).Error
	if err == nil {
		return &src, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	src = objects.Source{Name: name, IsActive: true}
	err = db.Create(&src).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		src = objects.Source{}
		if err := db.Where("name = ?", name).First(&src).Error; err != nil {
			return nil, err
		}
		return &src, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// CreateArticle 插入文章，url 冲突返回 ErrDuplicateURL
func (r *ArticleRepo) CreateArticle(ctx context.Context, a *objects.Article) error {
	a.URLHash = objects.URLHash(a.URL)
	err := r.conn(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateURL
	}
	return err
}

func (r *ArticleRepo) GetArticle(ctx context.Context, id uint64) (*objects.Article, error) {
	var a objects.Article
	err := r.conn(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveSummary 写入摘要和终态
func (r *ArticleRepo) SaveSummary(ctx context.Context, id uint64, summary string, status objects.ArticleStatus, at time.Time) error {
	res := r.conn(ctx).Model(&objects.Article{}).Where("id = ?", id).Updates(map[string]any{
		"summary":      summary,
		"status":       status,
		"processed_at": at,
		"updated_at":   at,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed 标记失败；processed_at 只在为空时写入，已经成功的文章不会被改回失败
func (r *ArticleRepo) MarkFailed(ctx context.Context, id uint64, at time.Time) error {
	return r.conn(ctx).Model(&objects.Article{}).
		Where("id = ? AND status NOT IN ?", id, []objects.ArticleStatus{objects.StatusProcessed, objects.StatusPartial}).
		Updates(map[string]any{
			"status":       objects.StatusFailed,
			"processed_at": gorm.Expr("COALESCE(processed_at, ?)", at),
			"updated_at":   at,
		}).Error
}

// ArticleIDsByStatus 补投递用
func (r *ArticleRepo) ArticleIDsByStatus(ctx context.Context, statuses []objects.ArticleStatus, limit int) ([]uint64, error) {
	var ids []uint64
	q := r.conn(ctx).Model(&objects.Article{}).Where("status IN ?", statuses).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Pluck("id", &ids).Error
	return ids, err
}

type statusCount struct {
	Status objects.ArticleStatus
	Total  int64
}

// StatusCounts 各状态文章数
func (r *ArticleRepo) StatusCounts(ctx context.Context) (map[objects.ArticleStatus]int64, error) {
	var rows []statusCount
	err := r.conn(ctx).Model(&objects.Article{}).
		Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[objects.ArticleStatus]int64, 4)
	for _, s := range []objects.ArticleStatus{objects.StatusPending, objects.StatusProcessed, objects.StatusPartial, objects.StatusFailed} {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
