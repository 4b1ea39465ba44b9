package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrInvalidRow 数据库返回的行不满足实体约束
var ErrInvalidRow = errors.New("数据行格式无效")

// RowError 描述具体哪张表、哪个字段不合法，errors.Is(err, ErrInvalidRow) 为 true
type RowError struct {
	Table  string
	ID     string
	Field  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s(%s).%s: %s", e.Table, e.ID, e.Field, e.Reason)
}

func (e *RowError) Is(target error) bool { return target == ErrInvalidRow }
