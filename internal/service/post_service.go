package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/repository"
)

// ── 公告模块业务错误 ──

var ErrPostNotFound = errors.New("公告不存在")

// PostService 公告业务接口
type PostService interface {
	List(ctx context.Context, query *dto.PostListQuery) ([]dto.PostResponse, error)
	Get(ctx context.Context, id string) (*dto.PostResponse, error)
	Create(ctx context.Context, req *dto.PostRequest, authorID string) (*dto.PostResponse, error)
	Update(ctx context.Context, id string, req *dto.PostRequest) (*dto.PostResponse, error)
	SetPinned(ctx context.Context, id string, pinned bool) error
	Delete(ctx context.Context, id string) error
}

type postService struct {
	repo   *repository.Repository
	md     goldmark.Markdown
	logger *zap.Logger
}

// NewPostService 创建 PostService 实例
func NewPostService(repo *repository.Repository, logger *zap.Logger) PostService {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &postService{repo: repo, md: md, logger: logger}
}

func (s *postService) List(ctx context.Context, query *dto.PostListQuery) ([]dto.PostResponse, error) {
	category := query.Category
	if category == model.PostCategoryAll {
		category = ""
	}
	posts, err := s.repo.Post.List(ctx, category)
	if err != nil {
		s.logger.Error("查询公告列表失败", zap.String("category", category), zap.Error(err))
		return nil, err
	}
	list := make([]dto.PostResponse, 0, len(posts))
	for i := range posts {
		// 列表不渲染正文
		list = append(list, toPostResponse(&posts[i], ""))
	}
	return list, nil
}

func (s *postService) Get(ctx context.Context, id string) (*dto.PostResponse, error) {
	post, err := s.repo.Post.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		s.logger.Error("查询公告失败", zap.String("post_id", id), zap.Error(err))
		return nil, err
	}
	resp := toPostResponse(post, s.render(post.Content))
	return &resp, nil
}

func (s *postService) Create(ctx context.Context, req *dto.PostRequest, authorID string) (*dto.PostResponse, error) {
	post := &model.Post{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tag:      tagOrCategory(req.Tag, req.Category),
		IsPinned: req.IsPinned,
	}
	if authorID != "" {
		post.AuthorID = &authorID
	}
	if err := s.repo.Post.Create(ctx, post); err != nil {
		s.logger.Error("创建公告失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("公告已发布", zap.String("post_id", post.ID), zap.String("author", authorID))
	resp := toPostResponse(post, s.render(post.Content))
	return &resp, nil
}

func (s *postService) Update(ctx context.Context, id string, req *dto.PostRequest) (*dto.PostResponse, error) {
	post, err := s.repo.Post.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		s.logger.Error("查询公告失败", zap.String("post_id", id), zap.Error(err))
		return nil, err
	}

	post.Title = req.Title
	post.Content = req.Content
	post.Category = req.Category
	post.Tag = tagOrCategory(req.Tag, req.Category)
	post.IsPinned = req.IsPinned
	if err := s.repo.Post.Update(ctx, post); err != nil {
		s.logger.Error("更新公告失败", zap.String("post_id", id), zap.Error(err))
		return nil, err
	}

	resp := toPostResponse(post, s.render(post.Content))
	return &resp, nil
}

func (s *postService) SetPinned(ctx context.Context, id string, pinned bool) error {
	if err := s.repo.Post.SetPinned(ctx, id, pinned); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		s.logger.Error("更新置顶失败", zap.String("post_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *postService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Post.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		s.logger.Error("删除公告失败", zap.String("post_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("公告已删除", zap.String("post_id", id))
	return nil
}

// render 渲染失败时返回空串，原文仍在 content 中
func (s *postService) render(content string) string {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(content), &buf); err != nil {
		s.logger.Warn("Markdown 渲染失败", zap.Error(err))
		return ""
	}
	return buf.String()
}

func tagOrCategory(tag, category string) string {
	if tag == "" {
		return category
	}
	return tag
}

func toPostResponse(p *model.Post, contentHTML string) dto.PostResponse {
	return dto.PostResponse{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		ContentHTML: contentHTML,
		Category:    p.Category,
		Tag:         p.Tag,
		IsPinned:    p.IsPinned,
		AuthorID:    p.AuthorID,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}
