package repo

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/iceymoss/newsfeed/pkg/db/objects"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

var uniqueViolation = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

func TestArticleRepo_CreateArticle(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewArticleRepo(gdb)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "articles"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	a := &objects.Article{CategoryID: 1, Title: "t", URL: "https://x/1", Status: objects.StatusPending, PublishedAt: time.Now()}
	require.NoError(t, r.CreateArticle(ctx, a))
	assert.Equal(t, uint64(7), a.ID)
	assert.Equal(t, objects.URLHash("https://x/1"), a.URLHash)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "articles"`)).WillReturnError(uniqueViolation)
	err := r.CreateArticle(ctx, &objects.Article{CategoryID: 1, Title: "t", URL: "https://x/1", Status: objects.StatusPending})
	assert.ErrorIs(t, err, ErrDuplicateURL)

	require.NoError(t, mock.ExpectationsWereMet())
}

// 唯一约束建在定长的 url_hash 上，MySQL utf8mb4 下也能建索引
func TestArticle_UniqueIndexOnURLHash(t *testing.T) {
	s, err := schema.Parse(&objects.Article{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	var unique []string
	for _, idx := range s.ParseIndexes() {
		if idx.Class != "UNIQUE" {
			continue
		}
		for _, f := range idx.Fields {
			unique = append(unique, f.DBName)
		}
	}
	assert.Equal(t, []string{"url_hash"}, unique)
	assert.Equal(t, "char(64)", string(s.LookUpField("url_hash").DataType))

	h := objects.URLHash("https://example.com/a")
	assert.Len(t, h, 64)
	assert.Equal(t, h, objects.URLHash("https://example.com/a"))
	assert.NotEqual(t, h, objects.URLHash("https://example.com/b"))
}

func TestArticleRepo_ExistsByURL(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewArticleRepo(gdb)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "articles" WHERE url_hash = $1`)).
		WithArgs(objects.URLHash("https://x/1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "articles" WHERE url_hash = $1`)).
		WithArgs(objects.URLHash("https://x/2")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ok, err := r.ExistsByURL(context.Background(), "https://x/1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.ExistsByURL(context.Background(), "https://x/2")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepo_FindOrCreateSource(t *testing.T) {
	sourceCols := []string{"id", "name", "is_active", "created_at", "updated_at"}
	now := time.Now()

	t.Run("existing", func(t *testing.T) {
		gdb, mock := newMockDB(t)
		r := NewArticleRepo(gdb)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sources" WHERE name = $1`)).
			WillReturnRows(sqlmock.NewRows(sourceCols).AddRow(3, "Wired", true, now, now))

		src, err := r.FindOrCreateSource(context.Background(), "Wired")
		require.NoError(t, err)
		assert.Equal(t, uint64(3), src.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("created", func(t *testing.T) {
		gdb, mock := newMockDB(t)
		r := NewArticleRepo(gdb)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sources" WHERE name = $1`)).
			WillReturnRows(sqlmock.NewRows(sourceCols))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "sources"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

		src, err := r.FindOrCreateSource(context.Background(), "Bloomberg")
		require.NoError(t, err)
		assert.Equal(t, uint64(9), src.ID)
		assert.True(t, src.IsActive)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost the insert race", func(t *testing.T) {
		gdb, mock := newMockDB(t)
		r := NewArticleRepo(gdb)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sources" WHERE name = $1`)).
			WillReturnRows(sqlmock.NewRows(sourceCols))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "sources"`)).WillReturnError(uniqueViolation)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sources" WHERE name = $1`)).
			WillReturnRows(sqlmock.NewRows(sourceCols).AddRow(4, "ESPN", true, now, now))

		src, err := r.FindOrCreateSource(context.Background(), "ESPN")
		require.NoError(t, err)
		assert.Equal(t, uint64(4), src.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestArticleRepo_GetArticleNotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewArticleRepo(gdb)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "articles" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.GetArticle(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArticleRepo_SaveSummary(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewArticleRepo(gdb)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "articles" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "articles" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.SaveSummary(context.Background(), 1, "s", objects.StatusProcessed, at))
	err := r.SaveSummary(context.Background(), 2, "s", objects.StatusProcessed, at)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepo_MarkFailedKeepsTerminalSuccess(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewArticleRepo(gdb)

	mock.ExpectExec(`UPDATE "articles" SET .*processed_at"=COALESCE\(processed_at, \$\d\).* WHERE id = \$\d AND status NOT IN \(\$\d,\$\d\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.MarkFailed(context.Background(), 1, time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepo_StatusCounts(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewArticleRepo(gdb)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, COUNT(*) AS total FROM "articles" GROUP BY "status"`)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).AddRow("pending", 2).AddRow("processed", 5))

	counts, err := r.StatusCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[objects.StatusPending])
	assert.Equal(t, int64(5), counts[objects.StatusProcessed])
	assert.Equal(t, int64(0), counts[objects.StatusFailed])
}

func TestFeedRepo_PersonalizedFeedEmpty(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewFeedRepo(gdb)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "articles" WHERE status = \$1 AND category_id IN \(SELECT category_id FROM "user_preferences" WHERE user_id = \$2\) AND id NOT IN \(SELECT article_id FROM "reading_history" WHERE user_id = \$3\)`).
		WithArgs(objects.StatusProcessed, 42, 42).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	page, err := r.PersonalizedFeed(context.Background(), 42, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)
	assert.Equal(t, DefaultPerPage, page.PerPage)
	assert.Empty(t, page.Items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPageRequest_Normalize(t *testing.T) {
	p := PageRequest{Page: -3, PerPage: 1000}.normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPerPage, p.PerPage)
}

func TestUserRepo_MarkReadUpserts(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewUserRepo(gdb, nil)

	mock.ExpectQuery(`INSERT INTO "reading_history" .* ON CONFLICT \("user_id","article_id"\) DO UPDATE SET "read_at"="excluded"."read_at","time_spent"="excluded"."time_spent","updated_at"="excluded"."updated_at"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	spent := 30
	require.NoError(t, r.MarkRead(context.Background(), 1, 2, &spent, time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_HasSaved(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewUserRepo(gdb, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "saved_articles" WHERE user_id = $1 AND article_id = $2`)).
		WithArgs(1, 2).
		WillReturnError(errors.New("conn reset"))

	_, err := r.HasSaved(context.Background(), 1, 2)
	assert.Error(t, err)
}

func TestArticleRepo_ArticleIDsByStatus(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewArticleRepo(gdb)

	mock.ExpectQuery(`SELECT "id" FROM "articles" WHERE status IN \(\$1,\$2\) ORDER BY id LIMIT \$3`).
		WithArgs(objects.StatusPending, objects.StatusFailed, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3).AddRow(8))

	ids, err := r.ArticleIDsByStatus(context.Background(), []objects.ArticleStatus{objects.StatusPending, objects.StatusFailed}, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 8}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepo_SeedCategoriesIsIdempotent(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewArticleRepo(gdb)
	catCols := []string{"id", "name", "slug", "is_active"}

	// technology 已存在，business 新建，sports 与并发写入冲突
	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE slug = \$1`).
		WillReturnRows(sqlmock.NewRows(catCols).AddRow(1, "Technology", "technology", true))
	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE slug = \$1`).
		WillReturnRows(sqlmock.NewRows(catCols))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "categories"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE slug = \$1`).
		WillReturnRows(sqlmock.NewRows(catCols))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "categories"`)).WillReturnError(uniqueViolation)

	n, err := r.SeedCategories(context.Background(), objects.DefaultCategories()[:3])
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepo_RecentLogs(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewJobRepo(gdb)

	mock.ExpectQuery(`SELECT \* FROM "sys_job_logs" WHERE job_name = \$1 ORDER BY id DESC LIMIT \$2`).
		WithArgs("news:fetch", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_name", "status"}).
			AddRow(5, "news:fetch", int(objects.JobLogFailed)).
			AddRow(4, "news:fetch", int(objects.JobLogSuccess)))

	logs, err := r.RecentLogs(context.Background(), "news:fetch", 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, objects.JobLogFailed, logs[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
