package repo

import (
	"context"
	"time"

	"github.com/iceymoss/newsfeed/internal/sources/news"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const fetchBatchCollection = "fetch_batches"

// FetchBatch 一次抓取的原始返回，原样存档便于排查供应商数据问题
type FetchBatch struct {
	Provider   string            `bson:"provider" json:"provider"`
	Limit      int               `bson:"limit" json:"limit"`
	Status     string            `bson:"status" json:"status"`
	Categories []string          `bson:"categories" json:"categories"`
	Count      int               `bson:"count" json:"count"`
	Articles   []news.RawArticle `bson:"articles" json:"articles,omitempty"`
	FetchedAt  time.Time         `bson:"fetched_at" json:"fetched_at"`
}

// ArchiveRepo mongo 存档
type ArchiveRepo struct {
	coll *mongo.Collection
}

func NewArchiveRepo(db *mongo.Database) *ArchiveRepo {
	return &ArchiveRepo{coll: db.Collection(fetchBatchCollection)}
}

func (r *ArchiveRepo) ArchiveBatch(ctx context.Context, b FetchBatch) error {
	_, err := r.coll.InsertOne(ctx, b)
	return err
}

// RecentBatches 最近的抓取批次，不带文章明细
func (r *ArchiveRepo) RecentBatches(ctx context.Context, limit int64) ([]FetchBatch, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "fetched_at", Value: -1}}).
		SetLimit(limit).
		SetProjection(bson.D{{Key: "articles", Value: 0}})

	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	list := []FetchBatch{}
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}
