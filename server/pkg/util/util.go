// Package util 提供通用工具函数
package util

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// NewSessionID 生成会话ID
// 使用 Google 的 uuid 库生成 UUID v4
// 返回:
//   - string: 带连字符的 UUID 字符串，如 xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func NewSessionID() string {
	return uuid.NewString()
}

// TruncateString 截断字符串到指定字符数
// 如果字符串超过指定长度，截取前 maxLen 个字符并追加 "..."
// 参数:
//   - s: 原字符串
//   - maxLen: 保留的最大字符数
//
// 返回:
//   - string: 截断后的字符串
func TruncateString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
