package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const promoteBatch = 100

// 到期的延迟任务搬回就绪队列；ZREM 成功才 LPUSH，多个 worker 同时搬运也只会搬一次
var promoteScript = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, ARGV[2])
local moved = 0
for _, member in ipairs(due) do
	if redis.call("ZREM", KEYS[1], member) == 1 then
		redis.call("LPUSH", KEYS[2], member)
		moved = moved + 1
	end
end
return moved
`)

// 租约过期的在途任务放回就绪队列。
// 没有租约的条目（取出后还没来得及登记就崩溃）先补一个租约，下一轮再判断
var reapScript = redis.NewScript(`
local items = redis.call("LRANGE", KEYS[1], 0, -1)
local moved = 0
for _, member in ipairs(items) do
	local deadline = redis.call("ZSCORE", KEYS[2], member)
	if not deadline then
		redis.call("ZADD", KEYS[2], ARGV[2], member)
	elseif tonumber(deadline) <= tonumber(ARGV[1]) then
		if redis.call("LREM", KEYS[1], 1, member) == 1 then
			redis.call("ZREM", KEYS[2], member)
			redis.call("LPUSH", KEYS[3], member)
			moved = moved + 1
		end
	end
end
return moved
`)

// RedisQueue list 存就绪任务，zset 存延迟重试任务（score 为到期毫秒时间戳）。
// 取出的任务先移到 processing list 并登记租约，Ack 之后才真正删除
type RedisQueue struct {
	rdb        *redis.Client
	ready      string
	delayed    string
	processing string
	leases     string
	lease      time.Duration
	now        func() time.Time
}

type Option func(*RedisQueue)

// WithLease 单个任务的最长占用时间，超过后被其它 worker 重新领取
func WithLease(d time.Duration) Option {
	return func(q *RedisQueue) {
		if d > 0 {
			q.lease = d
		}
	}
}

func NewRedisQueue(rdb *redis.Client, name string, opts ...Option) *RedisQueue {
	q := &RedisQueue{
		rdb:        rdb,
		ready:      name,
		delayed:    name + ":delayed",
		processing: name + ":processing",
		leases:     name + ":leases",
		lease:      Policy{}.Lease(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue 投递一次新的摘要任务
func (q *RedisQueue) Enqueue(ctx context.Context, articleID uint64) error {
	return q.push(ctx, Job{ArticleID: articleID, Attempt: 1, EnqueuedAt: q.now().UTC()})
}

func (q *RedisQueue) push(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.ready, payload).Err(); err != nil {
		return fmt.Errorf("enqueue article %d: %w", job.ArticleID, err)
	}
	return nil
}

// Schedule 在 at 之后重新投递
func (q *RedisQueue) Schedule(ctx context.Context, job Job, at time.Time) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.ZAdd(ctx, q.delayed, &redis.Z{Score: float64(at.UnixMilli()), Member: payload}).Err()
}

func (q *RedisQueue) promote(ctx context.Context) (int, error) {
	now := strconv.FormatInt(q.now().UnixMilli(), 10)
	return promoteScript.Run(ctx, q.rdb, []string{q.delayed, q.ready}, now, promoteBatch).Int()
}

func (q *RedisQueue) reap(ctx context.Context) (int, error) {
	now := q.now()
	return reapScript.Run(ctx, q.rdb, []string{q.processing, q.leases, q.ready},
		now.UnixMilli(), now.Add(q.lease).UnixMilli()).Int()
}

// Pop 阻塞最多 timeout 取一个任务，超时返回 nil。处理完必须调用 Ack
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	if _, err := q.reap(ctx); err != nil {
		return nil, fmt.Errorf("reap expired leases: %w", err)
	}
	if _, err := q.promote(ctx); err != nil {
		return nil, fmt.Errorf("promote delayed jobs: %w", err)
	}

	raw, err := q.rdb.BRPopLPush(ctx, q.ready, q.processing, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	deadline := q.now().Add(q.lease).UnixMilli()
	if err := q.rdb.ZAdd(ctx, q.leases, &redis.Z{Score: float64(deadline), Member: raw}).Err(); err != nil {
		// 条目留在 processing 里，reap 会补租约
		return nil, fmt.Errorf("register lease: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// 坏消息直接丢掉，否则会被反复领取
		_ = q.ack(ctx, raw)
		return nil, fmt.Errorf("decode job %q: %w", raw, err)
	}
	if job.Attempt <= 0 {
		job.Attempt = 1
	}
	job.raw = raw
	return &job, nil
}

// Ack 任务已处理（包括已安排重试），从 processing 中移除
func (q *RedisQueue) Ack(ctx context.Context, job Job) error {
	if job.raw == "" {
		return nil
	}
	return q.ack(ctx, job.raw)
}

func (q *RedisQueue) ack(ctx context.Context, raw string) error {
	_, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, q.processing, 1, raw)
		p.ZRem(ctx, q.leases, raw)
		return nil
	})
	return err
}

// Len 就绪任务数
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.ready).Result()
}

// Delayed 等待重试的任务数
func (q *RedisQueue) Delayed(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, q.delayed).Result()
}

// InFlight 已被领取但还没 Ack 的任务数
func (q *RedisQueue) InFlight(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.processing).Result()
}

func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}
