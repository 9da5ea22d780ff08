// Package export 把会话历史导出为 json / yaml / markdown
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/api"
)

// Source 引用来源
type Source struct {
	Type    string `json:"type" yaml:"type"`
	Name    string `json:"name" yaml:"name"`
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// Entry 一条消息
type Entry struct {
	Role      string   `json:"role" yaml:"role"`
	Content   string   `json:"content" yaml:"content"`
	Sources   []Source `json:"sources,omitempty" yaml:"sources,omitempty"`
	Timestamp string   `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Transcript 一次导出的完整内容
type Transcript struct {
	SessionID string  `json:"session_id" yaml:"session_id"`
	Title     string  `json:"title,omitempty" yaml:"title,omitempty"`
	Messages  []Entry `json:"messages" yaml:"messages"`
}

// FromHistory 由服务端历史构造导出内容
func FromHistory(title string, hist *api.HistoryResponse) *Transcript {
	t := &Transcript{SessionID: hist.SessionID, Title: title, Messages: make([]Entry, 0, len(hist.Messages))}
	for _, m := range hist.Messages {
		e := Entry{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp}
		for _, s := range m.Sources {
			e.Sources = append(e.Sources, Source{Type: s.Type, Name: s.Name, Snippet: s.Snippet})
		}
		t.Messages = append(t.Messages, e)
	}
	return t
}

// Exporter 导出格式
type Exporter interface {
	Export(t *Transcript, w io.Writer) error
	Extension() string
}

// NewExporter 按格式创建导出器
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("不支持的格式: %s（支持 json, yaml, markdown）", format)
	}
}

// JSONExporter 缩进 JSON
type JSONExporter struct{}

func (e *JSONExporter) Export(t *Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

func (e *JSONExporter) Extension() string {
	return "json"
}

// YAMLExporter YAML
type YAMLExporter struct{}

func (e *YAMLExporter) Export(t *Transcript, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(t)
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}

// MarkdownExporter Markdown，正文原样保留
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(t *Transcript, w io.Writer) error {
	title := t.Title
	if title == "" {
		title = "Session " + t.SessionID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", t.SessionID)
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n---\n\n", len(t.Messages))

	for i, m := range t.Messages {
		stamp := ""
		if m.Timestamp != "" {
			stamp = fmt.Sprintf(" (%s)", m.Timestamp)
		}
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", speaker(m.Role), stamp, m.Content)

		if len(m.Sources) > 0 {
			_, _ = fmt.Fprintf(w, "Sources:\n")
			for _, s := range m.Sources {
				_, _ = fmt.Fprintf(w, "- %s (%s)\n", s.Name, s.Type)
			}
			_, _ = fmt.Fprintln(w)
		}
		if i < len(t.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}

func speaker(role string) string {
	switch role {
	case "user":
		return "You"
	case "assistant":
		return "KLU Agent"
	default:
		return role
	}
}
