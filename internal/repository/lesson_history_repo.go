package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/internal/model"
)

// LessonHistoryRepository 出勤记录数据访问接口
type LessonHistoryRepository interface {
	Create(ctx context.Context, history *model.LessonHistory) error
	// DeleteBySession 删除指定课次记录，返回删除行数
	DeleteBySession(ctx context.Context, lessonID string, cycle, sessionNumber int) (int64, error)
	DeleteByLesson(ctx context.Context, lessonID string) error
	ListByLesson(ctx context.Context, lessonID string) ([]model.LessonHistory, error)
	// ListRecent 最近 limit 条普通学员的记录，按完成日期倒序，预加载课程与档案
	ListRecent(ctx context.Context, limit int) ([]model.LessonHistory, error)
	// ListAll 全部普通学员的记录，排序同 ListRecent，供导出使用
	ListAll(ctx context.Context) ([]model.LessonHistory, error)
	// ListBetween 闭区间 [from, to] 内普通学员的记录
	ListBetween(ctx context.Context, from, to model.Date) ([]model.LessonHistory, error)
}

type lessonHistoryRepo struct {
	db *gorm.DB
}

// NewLessonHistoryRepo 创建 LessonHistoryRepository 实例
func NewLessonHistoryRepo(db *gorm.DB) LessonHistoryRepository {
	return &lessonHistoryRepo{db: db}
}

func (r *lessonHistoryRepo) Create(ctx context.Context, history *model.LessonHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *lessonHistoryRepo) DeleteBySession(ctx context.Context, lessonID string, cycle, sessionNumber int) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("lesson_id = ? AND cycle = ? AND session_number = ?", lessonID, cycle, sessionNumber).
		Delete(&model.LessonHistory{})
	return result.RowsAffected, result.Error
}

func (r *lessonHistoryRepo) DeleteByLesson(ctx context.Context, lessonID string) error {
	return r.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Delete(&model.LessonHistory{}).Error
}

func (r *lessonHistoryRepo) ListByLesson(ctx context.Context, lessonID string) ([]model.LessonHistory, error) {
	var rows []model.LessonHistory
	err := r.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("cycle DESC, session_number DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, validateHistory(rows)
}

func (r *lessonHistoryRepo) ListRecent(ctx context.Context, limit int) ([]model.LessonHistory, error) {
	var rows []model.LessonHistory
	err := r.studentScope(ctx).
		Order("lesson_history.completed_date DESC, lesson_history.created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, validateHistory(rows)
}

func (r *lessonHistoryRepo) ListAll(ctx context.Context) ([]model.LessonHistory, error) {
	var rows []model.LessonHistory
	err := r.studentScope(ctx).
		Order("lesson_history.completed_date DESC, lesson_history.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, validateHistory(rows)
}

func (r *lessonHistoryRepo) ListBetween(ctx context.Context, from, to model.Date) ([]model.LessonHistory, error) {
	var rows []model.LessonHistory
	err := r.studentScope(ctx).
		Where("lesson_history.completed_date BETWEEN ? AND ?", from, to).
		Order("lesson_history.completed_date ASC, lesson_history.session_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, validateHistory(rows)
}

// studentScope 排除管理员账号的记录；关联缺失的行保留，由上层填充占位值
func (r *lessonHistoryRepo) studentScope(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Select("lesson_history.*").
		Joins("LEFT JOIN lessons ON lessons.id = lesson_history.lesson_id").
		Joins("LEFT JOIN profiles ON profiles.id = lessons.user_id").
		Where("(profiles.role IS NULL OR profiles.role = ?)", model.RoleUser).
		Preload("Lesson").
		Preload("Lesson.Profile")
}

func validateHistory(rows []model.LessonHistory) error {
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
