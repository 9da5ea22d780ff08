package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
)

// 会话标题展示长度
const titleWidth = 50

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

func render(style lipgloss.Style, s string, color bool) string {
	if !color {
		return s
	}
	return style.Render(s)
}

// printMessage 输出一条消息
func printMessage(w io.Writer, m chat.Message, color bool) {
	if m.Role == chat.RoleUser {
		fmt.Fprintf(w, "%s %s\n", render(userStyle, "You:", color), m.Content)
		return
	}

	fmt.Fprintf(w, "%s %s\n", render(assistantStyle, "KLU Agent:", color), m.Content)

	var meta []string
	for _, s := range m.Sources {
		meta = append(meta, fmt.Sprintf("%s (%s)", s.Name, s.Type))
	}
	if len(meta) > 0 {
		fmt.Fprintln(w, render(sourceStyle, "  sources: "+strings.Join(meta, ", "), color))
	}
	if m.ResponseTime != nil {
		fmt.Fprintln(w, render(sourceStyle, fmt.Sprintf("  answered in %.2fs", *m.ResponseTime), color))
	}
}

// printSessions 输出带编号的会话列表
func printSessions(w io.Writer, sessions []chat.Session, currentID string, now time.Time, color bool) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "暂无会话")
		return
	}
	for i, s := range sessions {
		marker := "  "
		if s.SessionID == currentID {
			marker = render(currentStyle, "* ", color)
		}
		fmt.Fprintf(w, "%s#%-3d %-53s %3d msgs  %-16s %s\n",
			marker,
			i+1,
			truncate(s.Title, titleWidth),
			s.MessageCount,
			relativeTime(s.LastActivity(), now),
			render(idStyle, s.SessionID, color),
		)
	}
}

// truncate 按字符截断，超出部分用 ... 代替
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "New Chat"
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
