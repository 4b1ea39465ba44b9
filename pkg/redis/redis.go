package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/KDrAmina/gimpogugak/config"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("缓存未命中")

// Client Redis 客户端封装
// 用于 Token 黑名单、登录限流、会话档案缓存与档案状态推送
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// NewFromUniversal 包装已有的 go-redis 客户端（测试与集群部署使用）
func NewFromUniversal(rdb goredis.UniversalClient, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流：窗口内请求数不超过 limit 时返回 true
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - window.Nanoseconds()
	member := strconv.FormatInt(now, 10) + ":" + uuid.NewString()

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now), Member: member})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return card.Val() <= int64(limit), nil
}

// ── 会话档案缓存 ──

const sessionProfilePrefix = "profile:session:"

// GetSessionProfile 读取缓存的档案 JSON，未命中返回 ErrCacheMiss
func (c *Client) GetSessionProfile(ctx context.Context, profileID string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, sessionProfilePrefix+profileID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

// SetSessionProfile 缓存档案 JSON
func (c *Client) SetSessionProfile(ctx context.Context, profileID string, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, sessionProfilePrefix+profileID, payload, ttl).Err()
}

// DeleteSessionProfile 档案状态或邮箱变化时清除缓存
func (c *Client) DeleteSessionProfile(ctx context.Context, profileID string) error {
	return c.rdb.Del(ctx, sessionProfilePrefix+profileID).Err()
}

// ── 档案状态推送 ──

const statusChannelPrefix = "profile:status:"

// PublishStatus 向档案状态频道发布新状态
func (c *Client) PublishStatus(ctx context.Context, profileID, status string) error {
	return c.rdb.Publish(ctx, statusChannelPrefix+profileID, status).Err()
}

// SubscribeStatus 订阅档案状态频道
// 返回的 channel 在 ctx 结束或订阅关闭后关闭
func (c *Client) SubscribeStatus(ctx context.Context, profileID string) (<-chan string, error) {
	sub := c.rdb.Subscribe(ctx, statusChannelPrefix+profileID)
	// 等待订阅确认，确保之后的发布不会丢失
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("订阅状态频道失败: %w", err)
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
