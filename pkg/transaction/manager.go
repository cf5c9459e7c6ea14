// Package transaction 通过 ctx 传递 gorm 事务，仓储层用 Conn 取连接即可自动加入外层事务
package transaction

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbgorm"
	"gorm.io/gorm"
)

type txKey struct{}

// WithTx 把事务挂到 ctx 上
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// FromContext 取出 ctx 上的事务
func FromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// Conn 有事务用事务，否则用 db；两者都绑定 ctx
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := FromContext(ctx); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// Manager 事务执行器，遇到可重试的序列化冲突由 crdbgorm 自动重跑
type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// Execute 在事务里执行 fn；fn 返回错误则回滚。
// ctx 已带事务时直接复用，不嵌套。
func (m *Manager) Execute(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	if _, ok := FromContext(ctx); ok {
		return fn(ctx)
	}
	return crdbgorm.ExecuteTx(ctx, m.db, opts, func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}
