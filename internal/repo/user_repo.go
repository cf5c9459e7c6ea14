package repo

import (
	"context"
	"errors"
	"time"

	"github.com/iceymoss/newsfeed/pkg/db/objects"
	"github.com/iceymoss/newsfeed/pkg/transaction"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepo 用户侧状态：偏好、阅读记录、收藏
type UserRepo struct {
	db *gorm.DB
	tx *transaction.Manager
}

func NewUserRepo(db *gorm.DB, tx *transaction.Manager) *UserRepo {
	return &UserRepo{db: db, tx: tx}
}

func (r *UserRepo) conn(ctx context.Context) *gorm.DB {
	return transaction.Conn(ctx, r.db)
}

func (r *UserRepo) Preferences(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.conn(ctx).Model(&objects.UserPreference{}).
		Where("user_id = ?", userID).Order("category_id").Pluck("category_id", &ids).Error
	return ids, err
}

// ReplacePreferences 整体替换：同一事务内删除旧偏好再写入新偏好
func (r *UserRepo) ReplacePreferences(ctx context.Context, userID uint64, categoryIDs []uint64) error {
	rows := make([]objects.UserPreference, 0, len(categoryIDs))
	seen := make(map[uint64]struct{}, len(categoryIDs))
	for _, id := range categoryIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, objects.UserPreference{UserID: userID, CategoryID: id})
	}

	return r.tx.Execute(ctx, nil, func(ctx context.Context) error {
		db := r.conn(ctx)
		if err := db.Where("user_id = ?", userID).Delete(&objects.UserPreference{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return db.Create(&rows).Error
	})
}

// MarkRead 阅读记录 upsert，重复阅读刷新 read_at / time_spent
func (r *UserRepo) MarkRead(ctx context.Context, userID, articleID uint64, timeSpent *int, at time.Time) error {
	row := objects.ReadingHistory{
		UserID:    userID,
		ArticleID: articleID,
		ReadAt:    at,
		TimeSpent: timeSpent,
	}
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "article_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"read_at", "time_spent", "updated_at"}),
	}).Create(&row).Error
}

// ToggleSave 已收藏则取消，否则收藏；返回操作后的状态
func (r *UserRepo) ToggleSave(ctx context.Context, userID, articleID uint64) (bool, error) {
	saved := false
	err := r.tx.Execute(ctx, nil, func(ctx context.Context) error {
		db := r.conn(ctx)
		res := db.Where("user_id = ? AND article_id = ?", userID, articleID).Delete(&objects.SavedArticle{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			saved = false
			return nil
		}
		err := db.Create(&objects.SavedArticle{UserID: userID, ArticleID: articleID}).Error
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		saved = true
		return nil
	})
	return saved, err
}

func (r *UserRepo) HasRead(ctx context.Context, userID, articleID uint64) (bool, error) {
	var n int64
	err := r.conn(ctx).Model(&objects.ReadingHistory{}).
		Where("user_id = ? AND article_id = ?", userID, articleID).Count(&n).Error
	return n > 0, err
}

func (r *UserRepo) HasSaved(ctx context.Context, userID, articleID uint64) (bool, error) {
	var n int64
	err := r.conn(ctx).Model(&objects.SavedArticle{}).
		Where("user_id = ? AND article_id = ?", userID, articleID).Count(&n).Error
	return n > 0, err
}
