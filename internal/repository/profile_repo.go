package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/internal/model"
	pkgerrors "github.com/KDrAmina/gimpogugak/pkg/errors"
)

// ProfileRepository 用户档案数据访问接口
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	Update(ctx context.Context, profile *model.Profile) error
	// UpdateStatus 仅当当前状态为 from 时更新，否则返回 ErrOptimisticLock
	UpdateStatus(ctx context.Context, id, from, to string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateEmail(ctx context.Context, id, email string) error
	ListByStatus(ctx context.Context, status string) ([]model.Profile, error)
	ListActiveUsers(ctx context.Context, sortBy string, asc bool) ([]model.Profile, error)
	ListUnassigned(ctx context.Context, query string) ([]model.Profile, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type profileRepo struct {
	db *gorm.DB
}

// NewProfileRepo 创建 ProfileRepository 实例
func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) Update(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *profileRepo) UpdateStatus(ctx context.Context, id, from, to string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *profileRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

func (r *profileRepo) UpdateEmail(ctx context.Context, id, email string) error {
	return r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", id).
		Update("email", email).Error
}

func (r *profileRepo) ListByStatus(ctx context.Context, status string) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&profiles).Error
	return profiles, err
}

// 可排序字段白名单
var profileSortColumns = map[string]string{
	"name":       "name",
	"created_at": "created_at",
}

func (r *profileRepo) ListActiveUsers(ctx context.Context, sortBy string, asc bool) ([]model.Profile, error) {
	column, ok := profileSortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	direction := " DESC"
	if asc {
		direction = " ASC"
	}

	var profiles []model.Profile
	err := r.db.WithContext(ctx).
		Where("status = ? AND role = ?", model.ProfileStatusActive, model.RoleUser).
		Order(column + direction).
		Find(&profiles).Error
	return profiles, err
}

func (r *profileRepo) ListUnassigned(ctx context.Context, query string) ([]model.Profile, error) {
	db := r.db.WithContext(ctx).
		Where("status = ? AND role = ?", model.ProfileStatusActive, model.RoleUser).
		Where("NOT EXISTS (SELECT 1 FROM lessons WHERE lessons.user_id = profiles.id)")

	if q := strings.TrimSpace(query); q != "" {
		like := "%" + escapeLike(q) + "%"
		db = db.Where("(name ILIKE ? OR email ILIKE ?)", like, like)
	}

	var profiles []model.Profile
	err := db.Order("name ASC").Find(&profiles).Error
	return profiles, err
}

func (r *profileRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("status = ? AND role = ?", status, model.RoleUser).
		Count(&n).Error
	return n, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
