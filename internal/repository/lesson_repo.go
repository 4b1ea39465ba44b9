package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/internal/model"
	pkgerrors "github.com/KDrAmina/gimpogugak/pkg/errors"
)

// LessonFilter 课程列表筛选
type LessonFilter struct {
	Active *bool // nil 表示全部
}

// LessonRepository 课程数据访问接口
type LessonRepository interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id string) (*model.Lesson, error)
	GetActiveByUser(ctx context.Context, userID string) (*model.Lesson, error)
	ExistsByUser(ctx context.Context, userID string) (bool, error)
	HasOtherActive(ctx context.Context, userID, excludeID string) (bool, error)
	List(ctx context.Context, filter LessonFilter) ([]model.Lesson, error)
	ListByUsers(ctx context.Context, userIDs []string) ([]model.Lesson, error)
	ListEligible(ctx context.Context) ([]model.Lesson, error)
	// Update 带乐观锁写入可变字段，版本不一致返回 ErrOptimisticLock
	Update(ctx context.Context, lesson *model.Lesson) error
	Delete(ctx context.Context, id string) error
	CountActive(ctx context.Context) (int64, error)
	CountRenewalNeeded(ctx context.Context) (int64, error)
}

type lessonRepo struct {
	db *gorm.DB
}

// NewLessonRepo 创建 LessonRepository 实例
func NewLessonRepo(db *gorm.DB) LessonRepository {
	return &lessonRepo{db: db}
}

func (r *lessonRepo) Create(ctx context.Context, lesson *model.Lesson) error {
	return r.db.WithContext(ctx).Create(lesson).Error
}

func (r *lessonRepo) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("id = ?", id).
		First(&lesson).Error
	if err != nil {
		return nil, err
	}
	if err := lesson.Validate(); err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) GetActiveByUser(ctx context.Context, userID string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		First(&lesson).Error
	if err != nil {
		return nil, err
	}
	if err := lesson.Validate(); err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) ExistsByUser(ctx context.Context, userID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Lesson{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n > 0, err
}

func (r *lessonRepo) HasOtherActive(ctx context.Context, userID, excludeID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Lesson{}).
		Where("user_id = ? AND is_active = ? AND id <> ?", userID, true, excludeID).
		Count(&n).Error
	return n > 0, err
}

func (r *lessonRepo) List(ctx context.Context, filter LessonFilter) ([]model.Lesson, error) {
	db := r.db.WithContext(ctx).Preload("Profile")
	if filter.Active != nil {
		db = db.Where("is_active = ?", *filter.Active)
	}

	var lessons []model.Lesson
	if err := db.Order("created_at DESC").Find(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, validateLessons(lessons)
}

func (r *lessonRepo) ListByUsers(ctx context.Context, userIDs []string) ([]model.Lesson, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var lessons []model.Lesson
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("is_active DESC, created_at DESC").
		Find(&lessons).Error
	if err != nil {
		return nil, err
	}
	return lessons, validateLessons(lessons)
}

func (r *lessonRepo) ListEligible(ctx context.Context) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("is_active = ? AND current_session < ?", true, model.MaxSessions).
		Order("created_at ASC").
		Find(&lessons).Error
	if err != nil {
		return nil, err
	}
	return lessons, validateLessons(lessons)
}

func (r *lessonRepo) Update(ctx context.Context, lesson *model.Lesson) error {
	oldVersion := lesson.Version
	result := r.db.WithContext(ctx).
		Model(&model.Lesson{}).
		Where("id = ? AND version = ?", lesson.ID, oldVersion).
		Updates(map[string]interface{}{
			"category":        lesson.Category,
			"current_session": lesson.CurrentSession,
			"tuition_amount":  lesson.TuitionAmount,
			"payment_date":    lesson.PaymentDate,
			"is_active":       lesson.IsActive,
			"cycle":           lesson.Cycle,
			"version":         oldVersion + 1,
			"updated_at":      gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	lesson.Version = oldVersion + 1
	return nil
}

func (r *lessonRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Lesson{}).Error
}

func (r *lessonRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Lesson{}).
		Where("is_active = ?", true).
		Count(&n).Error
	return n, err
}

func (r *lessonRepo) CountRenewalNeeded(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Lesson{}).
		Where("is_active = ? AND current_session >= ?", true, model.MaxSessions).
		Count(&n).Error
	return n, err
}

func validateLessons(lessons []model.Lesson) error {
	for i := range lessons {
		if err := lessons[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
