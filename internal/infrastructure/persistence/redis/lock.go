package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// Locker 基于SETNX的一次性锁
// 用于多副本部署时保证同一个key（比如某一天的逾期报告）只被处理一次
// 正常完成后不释放，到期自动失效；处理失败时调用方用Unlock放开
type Locker struct {
	client *redis.Client
	prefix string
}

// NewLocker 创建锁
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client, prefix: "lock:"}
}

// TryLock 抢到返回true；已被占用返回false
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, apperrors.ErrRedisError.WithErr(err)
	}
	return ok, nil
}

// Unlock 删除锁，key不存在时也返回nil
func (l *Locker) Unlock(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return apperrors.ErrRedisError.WithErr(err)
	}
	return nil
}

// Ping 健康检查
func (l *Locker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
