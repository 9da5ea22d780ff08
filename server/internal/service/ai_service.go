package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/config"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/model"
)

// ErrAINotConfigured 没有配置 API Key
var ErrAINotConfigured = errors.New("AI service not configured (missing API Key)")

// chatCompleter go-openai 客户端中用到的部分
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AIService 通过 OpenAI 兼容接口生成回答
// 默认使用 DashScope 兼容模式下的 Qwen 模型
type AIService struct {
	client       chatCompleter
	model        string
	systemPrompt string
	configured   bool
}

// NewAIService 创建 AIService 实例
func NewAIService(cfg *config.Config) *AIService {
	clientCfg := openai.DefaultConfig(cfg.AI.APIKey)
	if cfg.AI.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.AI.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{
		Timeout: cfg.AI.Timeout, // 设置超时
	}

	prompt := cfg.AI.SystemPrompt
	if prompt == "" {
		prompt = config.DefaultSystemPrompt
	}

	return &AIService{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.AI.Model,
		systemPrompt: prompt,
		configured:   cfg.AI.APIKey != "",
	}
}

// Generate 根据问题和对话历史生成回答
func (s *AIService) Generate(ctx context.Context, question string, history []model.Message) (*Answer, error) {
	if !s.configured {
		return nil, ErrAINotConfigured
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.systemPrompt,
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == model.MessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call AI service: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("AI returned no content")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, errors.New("AI returned no content")
	}

	return &Answer{
		Content: content,
		Sources: []model.Source{},
	}, nil
}
