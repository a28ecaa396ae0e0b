package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 兑换锁
// ============================================================================
//
// 同一张补偿券可能被两个前台同时点击兑换：
//   请求1: 读到未兑换 -> 写入兑换人A
//   请求2: 读到未兑换 -> 写入兑换人B，覆盖A
//
// 最终的正确性由条件更新保证（WHERE redeemed = false，影响行数为 0 即已兑换），
// 这里的锁只负责把同一张券的并发请求串行化，减少无谓的写冲突。
//
// 加锁：SET key value NX EX timeout
// 释放：Lua 脚本比对 value 后删除，避免删掉别人的锁
//
// ============================================================================

var (
	ErrLockFailed  = errors.New("获取分布式锁失败")
	ErrLockExpired = errors.New("锁已过期")
)

const (
	redeemLockTTL       = 10 * time.Second
	redeemRetryInterval = 50 * time.Millisecond
	redeemMaxRetries    = 40
)

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// Locker 按 key 串行化的互斥锁，返回的 release 必须调用
type Locker interface {
	Acquire(ctx context.Context, key, owner string) (release func(), err error)
}

// RedeemLockKey 单张补偿券的兑换锁
func RedeemLockKey(compensationID int64) string {
	return fmt.Sprintf("redeem:lock:compensation:%d", compensationID)
}

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string        // 持有者标识，释放时校验
	expiration time.Duration // 持有者崩溃时锁自动过期
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁。返回 ErrLockExpired 表示锁已过期或被别人持有
func (l *DistributedLock) Unlock(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockExpired
	}
	return nil
}

// RedisLocker 基于 Redis 的 Locker
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (r *RedisLocker) Acquire(ctx context.Context, key, owner string) (func(), error) {
	l := NewDistributedLock(r.client, key, owner, redeemLockTTL)
	if err := l.Lock(ctx, redeemRetryInterval, redeemMaxRetries); err != nil {
		return nil, err
	}
	return func() {
		// 请求上下文可能已取消，释放锁用独立的超时
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.Unlock(releaseCtx)
	}, nil
}

// LocalLocker 进程内实现，单实例部署（storage.driver=memory）使用。
// 没有持有者和等待者的 key 会被移除。
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localSlot
}

type localSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localSlot)}
}

func (l *LocalLocker) join(key string) *localSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.locks[key]
	if !ok {
		slot = &localSlot{ch: make(chan struct{}, 1)}
		l.locks[key] = slot
	}
	slot.refs++
	return slot
}

func (l *LocalLocker) leave(key string, slot *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, key, _ string) (func(), error) {
	slot := l.join(key)
	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.leave(key, slot)
			})
		}, nil
	case <-ctx.Done():
		l.leave(key, slot)
		return nil, ctx.Err()
	}
}
