// Package notify 提供提示消息（toast）的输出通道
package notify

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Level 提示级别
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier 提示通道
type Notifier interface {
	Success(message string)
	Error(message string)
}

var (
	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

// Console 在终端打印提示
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
}

// NewConsole 创建终端提示，color 为 false 时输出纯文本
func NewConsole(out io.Writer, color bool) *Console {
	return &Console{out: out, color: color}
}

// Success 成功提示
func (c *Console) Success(message string) {
	c.print(LevelSuccess, message)
}

// Error 错误提示
func (c *Console) Error(message string) {
	c.print(LevelError, message)
}

func (c *Console) print(level Level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, Format(level, message, c.color))
}

// Format 格式化一条提示
func Format(level Level, message string, color bool) string {
	icon, style := "✓", successStyle
	if level == LevelError {
		icon, style = "✗", errorStyle
	}
	line := icon + " " + message
	if !color {
		return line
	}
	return style.Render(line)
}

// Log 把提示写入日志
type Log struct{}

// Success 记录成功提示
func (Log) Success(message string) {
	log.Printf("[INFO] %s", message)
}

// Error 记录错误提示
func (Log) Error(message string) {
	log.Printf("[WARN] %s", message)
}

// Multi 依次转发给多个通道
type Multi []Notifier

// Success 转发成功提示
func (m Multi) Success(message string) {
	for _, n := range m {
		if n != nil {
			n.Success(message)
		}
	}
}

// Error 转发错误提示
func (m Multi) Error(message string) {
	for _, n := range m {
		if n != nil {
			n.Error(message)
		}
	}
}
