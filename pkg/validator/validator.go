// Package validator 为 gin 绑定注册业务校验标签
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	LessonCategoryTag = "lesson_category"
	PostCategoryTag   = "post_category"
	DateTag           = "ymd"

	dateLayout = "2006-01-02"
)

// Options 校验标签依赖的取值集合
type Options struct {
	LessonCategories []string
	PostCategories   []string
}

// RegisterGin 在 gin 默认绑定引擎上注册自定义标签
func RegisterGin(opts Options) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 绑定引擎不是 validator/v10")
	}
	return Register(v, opts)
}

// Register 注册自定义标签，错误字段名使用 json 标签
func Register(v *validator.Validate, opts Options) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	lessonSet := toSet(opts.LessonCategories)
	postSet := toSet(opts.PostCategories)

	if err := v.RegisterValidation(LessonCategoryTag, func(fl validator.FieldLevel) bool {
		return allIn(fl.Field(), lessonSet)
	}); err != nil {
		return fmt.Errorf("注册 %s 失败: %w", LessonCategoryTag, err)
	}
	if err := v.RegisterValidation(PostCategoryTag, func(fl validator.FieldLevel) bool {
		return allIn(fl.Field(), postSet)
	}); err != nil {
		return fmt.Errorf("注册 %s 失败: %w", PostCategoryTag, err)
	}
	if err := v.RegisterValidation(DateTag, dateValidation); err != nil {
		return fmt.Errorf("注册 %s 失败: %w", DateTag, err)
	}
	return nil
}

// Describe 将校验错误整理为 "field:tag" 列表，供响应 details 使用
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ""
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+":"+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// allIn 支持 string 与 []string 字段，空值视为不合法
func allIn(field reflect.Value, set map[string]struct{}) bool {
	switch field.Kind() {
	case reflect.String:
		_, ok := set[field.String()]
		return ok
	case reflect.Slice:
		if field.Len() == 0 {
			return false
		}
		for i := 0; i < field.Len(); i++ {
			item := field.Index(i)
			if item.Kind() != reflect.String {
				return false
			}
			if _, ok := set[item.String()]; !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func dateValidation(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	_, err := time.Parse(dateLayout, fl.Field().String())
	return err == nil
}
