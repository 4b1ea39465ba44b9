package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/KDrAmina/gimpogugak/internal/model"
)

// ── 测试用档案缓存 ──

type memoryProfileCache struct {
	data    map[string][]byte
	deletes int
}

func newMemoryProfileCache() *memoryProfileCache {
	return &memoryProfileCache{data: make(map[string][]byte)}
}

var errCacheMiss = errors.New("cache miss")

func (c *memoryProfileCache) GetSessionProfile(_ context.Context, id string) ([]byte, error) {
	if b, ok := c.data[id]; ok {
		return b, nil
	}
	return nil, errCacheMiss
}

func (c *memoryProfileCache) SetSessionProfile(_ context.Context, id string, payload []byte, _ time.Duration) error {
	c.data[id] = payload
	return nil
}

func (c *memoryProfileCache) DeleteSessionProfile(_ context.Context, id string) error {
	delete(c.data, id)
	c.deletes++
	return nil
}

func setupTestApprovalService() (ApprovalService, *mockRepos, *memoryProfileCache, StatusNotifier) {
	m := newMockRepos()
	cache := newMemoryProfileCache()
	session := NewSessionService(m.repo, cache, time.Minute, zap.NewNop())
	notifier := NewMemoryStatusNotifier()
	return NewApprovalService(m.repo, session, notifier, zap.NewNop()), m, cache, notifier
}

func addPending(m *mockRepos, email string) *model.Profile {
	p := &model.Profile{Email: email, Name: "대기자", Status: model.ProfileStatusPending, Role: model.RoleUser}
	_ = m.profiles.Create(context.Background(), p)
	return p
}

func TestApprove_PublishesAndInvalidates(t *testing.T) {
	svc, m, cache, notifier := setupTestApprovalService()
	p := addPending(m, "wait@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := notifier.Subscribe(ctx, p.ID)
	if err != nil {
		t.Fatalf("Subscribe 失败: %v", err)
	}
	cache.data[p.ID] = []byte(`{"id":"stale"}`)

	resp, err := svc.Approve(context.Background(), p.ID, "admin-1")
	if err != nil {
		t.Fatalf("Approve 应成功: %v", err)
	}
	if resp.Status != model.ProfileStatusActive {
		t.Errorf("期望 active，实际=%s", resp.Status)
	}
	if _, ok := cache.data[p.ID]; ok {
		t.Error("状态变更后应清除会话缓存")
	}

	select {
	case status := <-ch:
		if status != model.ProfileStatusActive {
			t.Errorf("推送状态应为 active，实际=%s", status)
		}
	case <-time.After(time.Second):
		t.Fatal("未收到状态推送")
	}
}

func TestReject(t *testing.T) {
	svc, m, _, _ := setupTestApprovalService()
	p := addPending(m, "wait@example.com")

	resp, err := svc.Reject(context.Background(), p.ID, "admin-1")
	if err != nil {
		t.Fatalf("Reject 应成功: %v", err)
	}
	if resp.Status != model.ProfileStatusRejected {
		t.Errorf("期望 rejected，实际=%s", resp.Status)
	}
}

func TestTransition_TerminalStates(t *testing.T) {
	svc, m, _, _ := setupTestApprovalService()
	ctx := context.Background()
	active := m.addStudent("활성", "")
	rejected := addPending(m, "rejected@example.com")
	_, _ = svc.Reject(ctx, rejected.ID, "admin-1")

	if _, err := svc.Reject(ctx, active.ID, "admin-1"); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("active 不可再变更，实际: %v", err)
	}
	if _, err := svc.Approve(ctx, rejected.ID, "admin-1"); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("rejected 不可再变更，实际: %v", err)
	}
	if _, err := svc.Approve(ctx, "missing", "admin-1"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("期望 ErrProfileNotFound，实际: %v", err)
	}
}

func TestListPending(t *testing.T) {
	svc, m, _, _ := setupTestApprovalService()
	addPending(m, "a@example.com")
	addPending(m, "b@example.com")
	m.addStudent("활성", "")

	list, err := svc.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending 应成功: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("期望 2 个待审批档案，实际=%d", len(list))
	}
}

// ── SessionService ──

func TestSessionResolve_UsesCache(t *testing.T) {
	m := newMockRepos()
	cache := newMemoryProfileCache()
	session := NewSessionService(m.repo, cache, time.Minute, zap.NewNop())
	p := m.addStudent("캐시", "")
	ctx := context.Background()

	first, err := session.Resolve(ctx, p.ID)
	if err != nil || first.Name != "캐시" {
		t.Fatalf("Resolve 应成功: %v", err)
	}
	if _, ok := cache.data[p.ID]; !ok {
		t.Fatal("首次解析后应写入缓存")
	}

	// 直接改库，缓存仍返回旧值
	stored := m.profiles.profiles[p.ID]
	stored.Name = "변경"
	second, _ := session.Resolve(ctx, p.ID)
	if second.Name != "캐시" {
		t.Errorf("缓存命中时应返回缓存值，实际=%s", second.Name)
	}

	session.Invalidate(ctx, p.ID)
	third, _ := session.Resolve(ctx, p.ID)
	if third.Name != "변경" {
		t.Errorf("失效后应重新读库，实际=%s", third.Name)
	}
}

func TestSessionResolve_NotFound(t *testing.T) {
	m := newMockRepos()
	session := NewSessionService(m.repo, nil, 0, zap.NewNop())

	if _, err := session.Resolve(context.Background(), "missing"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("期望 ErrProfileNotFound，实际: %v", err)
	}
}

// ── MemoryStatusNotifier ──

func TestMemoryNotifier_ClosesOnCancel(t *testing.T) {
	n := NewMemoryStatusNotifier()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := n.Subscribe(ctx, "p1")
	_ = n.Publish(context.Background(), "p2", model.ProfileStatusActive)
	select {
	case s := <-ch:
		t.Fatalf("不应收到其他档案的推送: %s", s)
	default:
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("取消后 channel 应关闭")
		}
	case <-time.After(time.Second):
		t.Fatal("取消后 channel 未关闭")
	}
}
