package transaction

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type ledgerRow struct {
	ID    uint `gorm:"primaryKey"`
	Owner uint
	Value int
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	_, ok := FromContext(ctx)
	assert.False(t, ok)

	tx := &gorm.DB{Config: &gorm.Config{}}
	got, ok := FromContext(WithTx(ctx, tx))
	assert.True(t, ok)
	assert.Same(t, tx, got)

	_, ok = FromContext(WithTx(ctx, nil))
	assert.False(t, ok)
}

func TestExecute_ReusesOuterTransaction(t *testing.T) {
	// 外层已有事务时不会访问 m.db
	m := NewManager(nil)
	outer := WithTx(context.Background(), &gorm.DB{Config: &gorm.Config{}})

	var seen context.Context
	err := m.Execute(outer, nil, func(ctx context.Context) error {
		seen = ctx
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, outer, seen)

	boom := errors.New("boom")
	err = m.Execute(outer, nil, func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

// TestTransactionManager 需要真实数据库，设置 NEWSFEED_TEST_DSN (postgres) 后运行
func TestTransactionManager(t *testing.T) {
	dsn := os.Getenv("NEWSFEED_TEST_DSN")
	if dsn == "" {
		t.Skip("NEWSFEED_TEST_DSN not set")
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Migrator().DropTable(&ledgerRow{}))
	require.NoError(t, conn.AutoMigrate(&ledgerRow{}))

	m := NewManager(conn)
	ctx := context.Background()

	// 整体替换：删除旧行再写新行，失败则全部回滚
	require.NoError(t, conn.Create(&ledgerRow{Owner: 1, Value: 1}).Error)

	err = m.Execute(ctx, nil, func(ctx context.Context) error {
		db := Conn(ctx, conn)
		if err := db.Where("owner = ?", 1).Delete(&ledgerRow{}).Error; err != nil {
			return err
		}
		if err := db.Create(&ledgerRow{Owner: 1, Value: 2}).Error; err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var rows []ledgerRow
	require.NoError(t, conn.Where("owner = ?", 1).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Value)

	err = m.Execute(ctx, nil, func(ctx context.Context) error {
		db := Conn(ctx, conn)
		if err := db.Where("owner = ?", 1).Delete(&ledgerRow{}).Error; err != nil {
			return err
		}
		return db.Create(&ledgerRow{Owner: 1, Value: 3}).Error
	})
	require.NoError(t, err)

	rows = nil
	require.NoError(t, conn.Where("owner = ?", 1).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Value)
}
