package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/model"
)

// likeEscaper 转义 LIKE 模式中的通配符
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// KnowledgeRepository 知识库数据访问层
// 负责知识库文档和学校结构化数据的检索
type KnowledgeRepository struct {
	db *gorm.DB
}

// NewKnowledgeRepository 创建 KnowledgeRepository 实例
func NewKnowledgeRepository(db *gorm.DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// SearchDocuments 检索名称或内容包含任一关键词的文档片段
// 参数:
//   - ctx: 上下文
//   - terms: 小写关键词
//   - limit: 最多返回的条数
//
// 返回:
//   - []model.KnowledgeDocument: 匹配的文档片段，没有关键词时返回空
//   - error: 数据库错误
func (r *KnowledgeRepository) SearchDocuments(ctx context.Context, terms []string, limit int) ([]model.KnowledgeDocument, error) {
	var docs []model.KnowledgeDocument
	if len(terms) == 0 {
		return docs, nil
	}
	where, args := likeClause(terms, "name", "content")
	err := r.db.WithContext(ctx).
		Where(where, args...).
		Order("id ASC").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

// SearchRecords 检索类别、名称或详情包含任一关键词的结构化数据
// 参数:
//   - ctx: 上下文
//   - terms: 小写关键词
//   - limit: 最多返回的条数
//
// 返回:
//   - []model.CampusRecord: 匹配的记录，没有关键词时返回空
//   - error: 数据库错误
func (r *KnowledgeRepository) SearchRecords(ctx context.Context, terms []string, limit int) ([]model.CampusRecord, error) {
	var records []model.CampusRecord
	if len(terms) == 0 {
		return records, nil
	}
	where, args := likeClause(terms, "category", "name", "detail")
	err := r.db.WithContext(ctx).
		Where(where, args...).
		Order("category ASC").
		Order("id ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// Seed 在两张表都为空时写入初始数据
// 返回:
//   - bool: 是否写入了数据
//   - error: 数据库错误
func (r *KnowledgeRepository) Seed(ctx context.Context, docs []model.KnowledgeDocument, records []model.CampusRecord) (bool, error) {
	seeded := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var docCount, recordCount int64
		if err := tx.Model(&model.KnowledgeDocument{}).Count(&docCount).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.CampusRecord{}).Count(&recordCount).Error; err != nil {
			return err
		}
		if docCount > 0 || recordCount > 0 {
			return nil
		}

		if len(docs) > 0 {
			if err := tx.Create(&docs).Error; err != nil {
				return err
			}
		}
		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	return seeded, err
}

// likeClause 生成 (col1 LIKE ? OR col2 LIKE ?) OR ... 形式的条件
func likeClause(terms []string, columns ...string) (string, []interface{}) {
	groups := make([]string, 0, len(terms))
	args := make([]interface{}, 0, len(terms)*len(columns))
	for _, term := range terms {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		parts := make([]string, 0, len(columns))
		for _, col := range columns {
			parts = append(parts, "LOWER("+col+") LIKE ?")
			args = append(args, pattern)
		}
		groups = append(groups, "("+strings.Join(parts, " OR ")+")")
	}
	return strings.Join(groups, " OR "), args
}
