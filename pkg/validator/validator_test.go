package validator

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

type lessonInput struct {
	Categories []string `json:"categories" validate:"lesson_category"`
	Date       string   `json:"date" validate:"omitempty,ymd"`
}

type postInput struct {
	Category string `json:"category" validate:"post_category"`
}

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	err := Register(v, Options{
		LessonCategories: []string{"성인단체", "성인개인"},
		PostCategories:   []string{"일반", "행사"},
	})
	if err != nil {
		t.Fatalf("Register 失败: %v", err)
	}
	return v
}

func TestLessonCategoryTag(t *testing.T) {
	v := newValidate(t)

	if err := v.Struct(lessonInput{Categories: []string{"성인단체", "성인개인"}}); err != nil {
		t.Errorf("合法分类不应报错: %v", err)
	}
	if err := v.Struct(lessonInput{Categories: nil}); err == nil {
		t.Error("空分类应校验失败")
	}
	err := v.Struct(lessonInput{Categories: []string{"성인단체", "무용"}})
	if err == nil {
		t.Fatal("未知分类应校验失败")
	}
	if got := Describe(err); got != "categories:lesson_category" {
		t.Errorf("期望 details=categories:lesson_category，实际=%s", got)
	}
}

func TestPostCategoryTag(t *testing.T) {
	v := newValidate(t)
	if err := v.Struct(postInput{Category: "행사"}); err != nil {
		t.Errorf("合法分类不应报错: %v", err)
	}
	if err := v.Struct(postInput{Category: "공지"}); err == nil {
		t.Error("未知分类应校验失败")
	}
}

func TestDateTag(t *testing.T) {
	v := newValidate(t)
	ok := lessonInput{Categories: []string{"성인개인"}, Date: "2026-02-28"}
	if err := v.Struct(ok); err != nil {
		t.Errorf("合法日期不应报错: %v", err)
	}
	for _, bad := range []string{"2026-02-30", "2026/02/01", "20260201"} {
		err := v.Struct(lessonInput{Categories: []string{"성인개인"}, Date: bad})
		if err == nil || !strings.Contains(Describe(err), "date:ymd") {
			t.Errorf("日期 %s 应校验失败，实际: %v", bad, err)
		}
	}
}
