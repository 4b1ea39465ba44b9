package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/repository"
	pkgerrors "github.com/KDrAmina/gimpogugak/pkg/errors"
)

// ── Mock ProfileRepository ──

type mockProfileRepo struct {
	profiles map[string]*model.Profile
	lessons  *mockLessonRepo
	seq      int
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]*model.Profile)}
}

func (m *mockProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, profile.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if profile.ID == "" {
		m.seq++
		profile.ID = fmt.Sprintf("profile-%d", m.seq)
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}
	cp := *profile
	m.profiles[profile.ID] = &cp
	return nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, id string) (*model.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) Update(_ context.Context, profile *model.Profile) error {
	cp := *profile
	m.profiles[profile.ID] = &cp
	return nil
}

func (m *mockProfileRepo) UpdateStatus(_ context.Context, id, from, to string) error {
	p, ok := m.profiles[id]
	if !ok || p.Status != from {
		return pkgerrors.ErrOptimisticLock
	}
	p.Status = to
	return nil
}

func (m *mockProfileRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	p, ok := m.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.PasswordHash = passwordHash
	return nil
}

func (m *mockProfileRepo) UpdateEmail(_ context.Context, id, email string) error {
	p, ok := m.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Email = email
	return nil
}

func (m *mockProfileRepo) ListByStatus(_ context.Context, status string) ([]model.Profile, error) {
	var result []model.Profile
	for _, p := range m.profiles {
		if p.Status == status && p.Role == model.RoleUser {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockProfileRepo) ListActiveUsers(_ context.Context, sortBy string, asc bool) ([]model.Profile, error) {
	var result []model.Profile
	for _, p := range m.profiles {
		if p.IsActive() && p.Role == model.RoleUser {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		var less bool
		if sortBy == "name" {
			less = result[i].Name < result[j].Name
		} else {
			less = result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})
	return result, nil
}

func (m *mockProfileRepo) ListUnassigned(_ context.Context, query string) ([]model.Profile, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	var result []model.Profile
	for _, p := range m.profiles {
		if !p.IsActive() || p.Role != model.RoleUser {
			continue
		}
		if m.lessons != nil && m.lessons.hasAny(p.ID) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Email), q) {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockProfileRepo) CountByStatus(_ context.Context, status string) (int64, error) {
	var n int64
	for _, p := range m.profiles {
		if p.Status == status && p.Role == model.RoleUser {
			n++
		}
	}
	return n, nil
}

// ── Mock LessonRepository ──
// 按 version 模拟乐观锁，按 user_id 模拟 "每人最多一个进行中课程" 的唯一索引

type mockLessonRepo struct {
	lessons  map[string]*model.Lesson
	profiles *mockProfileRepo
	seq      int
}

func newMockLessonRepo(profiles *mockProfileRepo) *mockLessonRepo {
	m := &mockLessonRepo{lessons: make(map[string]*model.Lesson), profiles: profiles}
	profiles.lessons = m
	return m
}

func (m *mockLessonRepo) hasAny(userID string) bool {
	for _, l := range m.lessons {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

func (m *mockLessonRepo) activeConflict(userID, excludeID string) bool {
	for _, l := range m.lessons {
		if l.UserID == userID && l.IsActive && l.ID != excludeID {
			return true
		}
	}
	return false
}

// withProfile 返回副本并挂载关联档案
func (m *mockLessonRepo) withProfile(l *model.Lesson) model.Lesson {
	cp := *l
	cp.Profile = nil
	if p, ok := m.profiles.profiles[l.UserID]; ok {
		pc := *p
		cp.Profile = &pc
	}
	return cp
}

func (m *mockLessonRepo) Create(_ context.Context, lesson *model.Lesson) error {
	if lesson.IsActive && m.activeConflict(lesson.UserID, "") {
		return gorm.ErrDuplicatedKey
	}
	if lesson.ID == "" {
		m.seq++
		lesson.ID = fmt.Sprintf("lesson-%d", m.seq)
	}
	if lesson.Version == 0 {
		lesson.Version = 1
	}
	if lesson.Cycle == 0 {
		lesson.Cycle = 1
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	}
	cp := *lesson
	cp.Profile = nil
	m.lessons[lesson.ID] = &cp
	return nil
}

func (m *mockLessonRepo) GetByID(_ context.Context, id string) (*model.Lesson, error) {
	l, ok := m.lessons[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.withProfile(l)
	return &cp, nil
}

func (m *mockLessonRepo) GetActiveByUser(_ context.Context, userID string) (*model.Lesson, error) {
	for _, l := range m.lessons {
		if l.UserID == userID && l.IsActive {
			cp := m.withProfile(l)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLessonRepo) ExistsByUser(_ context.Context, userID string) (bool, error) {
	return m.hasAny(userID), nil
}

func (m *mockLessonRepo) HasOtherActive(_ context.Context, userID, excludeID string) (bool, error) {
	return m.activeConflict(userID, excludeID), nil
}

func (m *mockLessonRepo) List(_ context.Context, filter repository.LessonFilter) ([]model.Lesson, error) {
	var result []model.Lesson
	for _, l := range m.lessons {
		if filter.Active != nil && l.IsActive != *filter.Active {
			continue
		}
		result = append(result, m.withProfile(l))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockLessonRepo) ListByUsers(_ context.Context, userIDs []string) ([]model.Lesson, error) {
	want := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	var result []model.Lesson
	for _, l := range m.lessons {
		if want[l.UserID] {
			cp := *l
			result = append(result, cp)
		}
	}
	return result, nil
}

func (m *mockLessonRepo) ListEligible(_ context.Context) ([]model.Lesson, error) {
	var result []model.Lesson
	for _, l := range m.lessons {
		if l.Eligible() {
			result = append(result, m.withProfile(l))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockLessonRepo) Update(_ context.Context, lesson *model.Lesson) error {
	stored, ok := m.lessons[lesson.ID]
	if !ok || stored.Version != lesson.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if lesson.IsActive && m.activeConflict(lesson.UserID, lesson.ID) {
		return gorm.ErrDuplicatedKey
	}
	lesson.Version++
	cp := *lesson
	cp.Profile = nil
	m.lessons[lesson.ID] = &cp
	return nil
}

func (m *mockLessonRepo) Delete(_ context.Context, id string) error {
	delete(m.lessons, id)
	return nil
}

func (m *mockLessonRepo) CountActive(_ context.Context) (int64, error) {
	var n int64
	for _, l := range m.lessons {
		if l.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *mockLessonRepo) CountRenewalNeeded(_ context.Context) (int64, error) {
	var n int64
	for _, l := range m.lessons {
		if l.IsActive && l.RenewalNeeded() {
			n++
		}
	}
	return n, nil
}

// ── Mock LessonHistoryRepository ──

type mockHistoryRepo struct {
	rows    map[string]*model.LessonHistory
	lessons *mockLessonRepo
	seq     int
}

func newMockHistoryRepo(lessons *mockLessonRepo) *mockHistoryRepo {
	return &mockHistoryRepo{rows: make(map[string]*model.LessonHistory), lessons: lessons}
}

func (m *mockHistoryRepo) Create(_ context.Context, history *model.LessonHistory) error {
	if history.Cycle == 0 {
		history.Cycle = 1
	}
	for _, h := range m.rows {
		if h.LessonID == history.LessonID && h.Cycle == history.Cycle && h.SessionNumber == history.SessionNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	m.seq++
	if history.ID == "" {
		history.ID = fmt.Sprintf("history-%d", m.seq)
	}
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	}
	cp := *history
	cp.Lesson = nil
	m.rows[history.ID] = &cp
	return nil
}

func (m *mockHistoryRepo) DeleteBySession(_ context.Context, lessonID string, cycle, sessionNumber int) (int64, error) {
	var n int64
	for id, h := range m.rows {
		if h.LessonID == lessonID && h.Cycle == cycle && h.SessionNumber == sessionNumber {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *mockHistoryRepo) DeleteByLesson(_ context.Context, lessonID string) error {
	for id, h := range m.rows {
		if h.LessonID == lessonID {
			delete(m.rows, id)
		}
	}
	return nil
}

func (m *mockHistoryRepo) ListByLesson(_ context.Context, lessonID string) ([]model.LessonHistory, error) {
	var result []model.LessonHistory
	for _, h := range m.rows {
		if h.LessonID == lessonID {
			result = append(result, *h)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Cycle != result[j].Cycle {
			return result[i].Cycle > result[j].Cycle
		}
		return result[i].SessionNumber > result[j].SessionNumber
	})
	return result, nil
}

// student 关联缺失时保留，管理员的记录排除
func (m *mockHistoryRepo) student(h *model.LessonHistory) (model.LessonHistory, bool) {
	cp := *h
	cp.Lesson = nil
	if l, ok := m.lessons.lessons[h.LessonID]; ok {
		lc := m.lessons.withProfile(l)
		if lc.Profile != nil && lc.Profile.Role != model.RoleUser {
			return cp, false
		}
		cp.Lesson = &lc
	}
	return cp, true
}

func (m *mockHistoryRepo) ListRecent(ctx context.Context, limit int) ([]model.LessonHistory, error) {
	result, _ := m.ListAll(ctx)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockHistoryRepo) ListAll(_ context.Context) ([]model.LessonHistory, error) {
	var result []model.LessonHistory
	for _, h := range m.rows {
		if row, ok := m.student(h); ok {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CompletedDate != result[j].CompletedDate {
			return result[i].CompletedDate > result[j].CompletedDate
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *mockHistoryRepo) ListBetween(_ context.Context, from, to model.Date) ([]model.LessonHistory, error) {
	var result []model.LessonHistory
	for _, h := range m.rows {
		if h.CompletedDate < from || h.CompletedDate > to {
			continue
		}
		if row, ok := m.student(h); ok {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CompletedDate != result[j].CompletedDate {
			return result[i].CompletedDate < result[j].CompletedDate
		}
		return result[i].SessionNumber < result[j].SessionNumber
	})
	return result, nil
}

// ── Mock PostRepository ──

type mockPostRepo struct {
	posts map[string]*model.Post
	seq   int
}

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{posts: make(map[string]*model.Post)}
}

func (m *mockPostRepo) Create(_ context.Context, post *model.Post) error {
	m.seq++
	if post.ID == "" {
		post.ID = fmt.Sprintf("post-%d", m.seq)
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	}
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *mockPostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	if p, ok := m.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPostRepo) Update(_ context.Context, post *model.Post) error {
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *mockPostRepo) SetPinned(_ context.Context, id string, pinned bool) error {
	p, ok := m.posts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.IsPinned = pinned
	return nil
}

func (m *mockPostRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.posts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *mockPostRepo) List(_ context.Context, category string) ([]model.Post, error) {
	var result []model.Post
	for _, p := range m.posts {
		if category != "" && p.Category != category {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].IsPinned != result[j].IsPinned {
			return result[i].IsPinned
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// ── 测试夹具 ──

type mockRepos struct {
	repo     *repository.Repository
	profiles *mockProfileRepo
	lessons  *mockLessonRepo
	history  *mockHistoryRepo
	posts    *mockPostRepo
}

func newMockRepos() *mockRepos {
	profiles := newMockProfileRepo()
	lessons := newMockLessonRepo(profiles)
	history := newMockHistoryRepo(lessons)
	posts := newMockPostRepo()
	return &mockRepos{
		repo: &repository.Repository{
			Profile:       profiles,
			Lesson:        lessons,
			LessonHistory: history,
			Post:          posts,
		},
		profiles: profiles,
		lessons:  lessons,
		history:  history,
		posts:    posts,
	}
}

// addStudent 写入一个已激活的普通学员
func (m *mockRepos) addStudent(name, phone string) *model.Profile {
	p := &model.Profile{
		Email:  strings.ToLower(name) + "@example.com",
		Name:   name,
		Phone:  phone,
		Status: model.ProfileStatusActive,
		Role:   model.RoleUser,
	}
	_ = m.profiles.Create(context.Background(), p)
	return p
}

// addLesson 写入一个指定课次的课程
func (m *mockRepos) addLesson(userID string, current int, active bool) *model.Lesson {
	l := &model.Lesson{
		UserID:         userID,
		Category:       "성인개인",
		CurrentSession: current,
		TuitionAmount:  150000,
		IsActive:       active,
	}
	_ = m.lessons.Create(context.Background(), l)
	return l
}

// addHistory 写入一条出勤记录
func (m *mockRepos) addHistory(lessonID string, session int, date string) {
	_ = m.history.Create(context.Background(), &model.LessonHistory{
		LessonID:      lessonID,
		SessionNumber: session,
		CompletedDate: model.Date(date),
	})
}
