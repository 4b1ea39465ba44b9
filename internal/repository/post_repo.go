package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/internal/model"
)

// PostRepository 公告数据访问接口
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	SetPinned(ctx context.Context, id string, pinned bool) error
	Delete(ctx context.Context, id string) error
	// List 置顶优先，其次按创建时间倒序；category 为空时不筛选
	List(ctx context.Context, category string) ([]model.Post, error)
}

type postRepo struct {
	db *gorm.DB
}

// NewPostRepo 创建 PostRepository 实例
func NewPostRepo(db *gorm.DB) PostRepository {
	return &postRepo{db: db}
}

func (r *postRepo) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepo) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepo) Update(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *postRepo) SetPinned(ctx context.Context, id string, pinned bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", id).
		Update("is_pinned", pinned)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Post{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postRepo) List(ctx context.Context, category string) ([]model.Post, error) {
	var posts []model.Post
	query := r.db.WithContext(ctx)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.
		Order("is_pinned DESC, created_at DESC").
		Find(&posts).Error
	return posts, err
}
