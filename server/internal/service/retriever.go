package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/model"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/pkg/util"
)

// DatabaseSourceName 结构化数据来源的展示名称
const DatabaseSourceName = "College Database"

const (
	defaultRetrieveLimit = 3
	maxSearchTerms       = 8
	documentExcerptLen   = 500
	snippetLen           = 100
)

// KnowledgeStore 知识库检索
type KnowledgeStore interface {
	SearchDocuments(ctx context.Context, terms []string, limit int) ([]model.KnowledgeDocument, error)
	SearchRecords(ctx context.Context, terms []string, limit int) ([]model.CampusRecord, error)
}

// Retriever 为问题检索上下文
type Retriever interface {
	Retrieve(ctx context.Context, question string) (*Retrieval, error)
}

// Retrieval 检索结果
type Retrieval struct {
	Context string         // 拼接后的上下文文本，没有命中时为空
	Sources []model.Source // 命中的来源
}

// 判断问题走哪类数据源的关键词
var (
	documentKeywords = []string{
		"policy", "rule", "procedure", "placement", "about", "history",
		"vision", "mission", "accreditation", "handbook", "guideline",
		"attendance", "grading", "hostel", "library rule", "conduct",
		"what is klu", "tell me about", "percentage", "statistic",
	}
	databaseKeywords = []string{
		"student", "faculty", "course", "event", "department", "admission",
		"fee", "seat", "hod", "timing", "facility", "how many", "list",
		"count", "who teach", "schedule", "cgpa", "contact", "name",
		"professor", "section", "year",
	}
)

// 不参与检索的常见词
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "whom": {}, "how": {}, "many": {}, "much": {}, "does": {},
	"can": {}, "you": {}, "tell": {}, "about": {}, "with": {}, "from": {}, "this": {},
	"that": {}, "there": {}, "list": {}, "all": {}, "give": {}, "show": {}, "please": {},
	"have": {}, "has": {}, "any": {}, "is": {}, "klu": {}, "university": {},
}

// SourceRouter 按关键词把问题路由到知识库文档和/或学校数据库
type SourceRouter struct {
	store KnowledgeStore
	limit int
}

// NewSourceRouter 创建 SourceRouter
// limit 为每类数据源最多取的条数，<= 0 时使用默认值 3
func NewSourceRouter(store KnowledgeStore, limit int) *SourceRouter {
	if limit <= 0 {
		limit = defaultRetrieveLimit
	}
	return &SourceRouter{store: store, limit: limit}
}

// Retrieve 检索与问题相关的上下文
// 单个数据源失败时跳过该数据源；所有数据源都失败时返回错误
func (r *SourceRouter) Retrieve(ctx context.Context, question string) (*Retrieval, error) {
	result := &Retrieval{Sources: []model.Source{}}
	terms := searchTerms(question)
	if len(terms) == 0 {
		return result, nil
	}

	useDocuments, useDatabase := routeQuestion(question)
	var (
		parts     []string
		errs      []error
		attempted int
	)

	if useDocuments {
		attempted++
		docs, err := r.store.SearchDocuments(ctx, terms, r.limit)
		if err != nil {
			log.Printf("Document search failed: %v", err)
			errs = append(errs, fmt.Errorf("检索知识库失败: %w", err))
		} else if len(docs) > 0 {
			parts = append(parts, formatDocuments(docs))
			result.Sources = append(result.Sources, documentSources(docs)...)
		}
	}

	if useDatabase {
		attempted++
		records, err := r.store.SearchRecords(ctx, terms, r.limit)
		if err != nil {
			log.Printf("Database search failed: %v", err)
			errs = append(errs, fmt.Errorf("检索学校数据库失败: %w", err))
		} else if len(records) > 0 {
			parts = append(parts, formatRecords(records))
			result.Sources = append(result.Sources, model.Source{
				Type:    model.SourceTypeDatabase,
				Name:    DatabaseSourceName,
				Snippet: util.TruncateString(question, snippetLen),
			})
		}
	}

	if len(errs) == attempted {
		return nil, errors.Join(errs...)
	}
	result.Context = strings.Join(parts, "\n\n")
	return result, nil
}

// routeQuestion 判断需要查询的数据源，都不匹配时两者都查
func routeQuestion(question string) (documents, database bool) {
	lower := strings.ToLower(question)
	documents = containsAny(lower, documentKeywords)
	database = containsAny(lower, databaseKeywords)
	if !documents && !database {
		return true, true
	}
	return documents, database
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// searchTerms 从问题中提取检索关键词（小写、去重、去停用词）
func searchTerms(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 3 {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
		if len(terms) == maxSearchTerms {
			break
		}
	}
	return terms
}

func formatDocuments(docs []model.KnowledgeDocument) string {
	chunks := make([]string, 0, len(docs))
	for _, d := range docs {
		chunks = append(chunks, fmt.Sprintf("[Source: %s]\n%s", d.Name, util.TruncateString(d.Content, documentExcerptLen)))
	}
	return "From Knowledge Base:\n" + strings.Join(chunks, "\n\n---\n\n")
}

func formatRecords(records []model.CampusRecord) string {
	var b strings.Builder
	b.WriteString("From College Database:")
	for _, rec := range records {
		fmt.Fprintf(&b, "\n- [%s] %s: %s", rec.Category, rec.Name, rec.Detail)
	}
	return b.String()
}

// documentSources 每个文档一个来源，同名文档只保留第一个
func documentSources(docs []model.KnowledgeDocument) []model.Source {
	sources := make([]model.Source, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		sources = append(sources, model.Source{
			Type:    model.SourceTypeDocument,
			Name:    d.Name,
			Snippet: util.TruncateString(d.Content, snippetLen),
		})
	}
	return sources
}

// buildPrompt 有检索上下文时把上下文和问题拼成提示
func buildPrompt(question string, r *Retrieval) string {
	if r == nil || r.Context == "" {
		return question
	}
	return "Context information:\n" + r.Context +
		"\n\nQuestion: " + question +
		"\n\nProvide a helpful answer based on the context above:"
}
