package logger

import (
	"testing"

	"github.com/KDrAmina/gimpogugak/config"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger(&config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("格式 %s 初始化失败: %v", format, err)
		}
		_ = l.Sync()
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(&config.LogConfig{Level: "verbose", Format: "json"}); err == nil {
		t.Error("无效日志级别应返回错误")
	}
}
