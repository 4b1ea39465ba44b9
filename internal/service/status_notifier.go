package service

import (
	"context"
	"sync"

	"github.com/KDrAmina/gimpogugak/pkg/redis"
)

// StatusNotifier 档案审批状态推送
// 审批等待页通过订阅获知 pending → active / rejected
type StatusNotifier interface {
	Publish(ctx context.Context, profileID, status string) error
	// Subscribe 返回的 channel 在 ctx 结束后关闭
	Subscribe(ctx context.Context, profileID string) (<-chan string, error)
}

// ── Redis 实现（多实例部署） ──

type redisStatusNotifier struct {
	rdb *redis.Client
}

// NewRedisStatusNotifier 基于 Redis Pub/Sub 的推送
func NewRedisStatusNotifier(rdb *redis.Client) StatusNotifier {
	return &redisStatusNotifier{rdb: rdb}
}

func (n *redisStatusNotifier) Publish(ctx context.Context, profileID, status string) error {
	return n.rdb.PublishStatus(ctx, profileID, status)
}

func (n *redisStatusNotifier) Subscribe(ctx context.Context, profileID string) (<-chan string, error) {
	return n.rdb.SubscribeStatus(ctx, profileID)
}

// ── 进程内实现（未配置 Redis 时使用） ──

type memoryStatusNotifier struct {
	mu   sync.Mutex
	subs map[string]map[chan string]struct{}
}

// NewMemoryStatusNotifier 单实例部署使用的进程内推送
func NewMemoryStatusNotifier() StatusNotifier {
	return &memoryStatusNotifier{subs: make(map[string]map[chan string]struct{})}
}

func (n *memoryStatusNotifier) Publish(_ context.Context, profileID, status string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs[profileID] {
		select {
		case ch <- status:
		default:
			// 订阅方未及时读取，丢弃；下一次推送仍会送达
		}
	}
	return nil
}

func (n *memoryStatusNotifier) Subscribe(ctx context.Context, profileID string) (<-chan string, error) {
	ch := make(chan string, 4)

	n.mu.Lock()
	if n.subs[profileID] == nil {
		n.subs[profileID] = make(map[chan string]struct{})
	}
	n.subs[profileID][ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs[profileID], ch)
		if len(n.subs[profileID]) == 0 {
			delete(n.subs, profileID)
		}
		close(ch)
		n.mu.Unlock()
	}()

	return ch, nil
}
