package model

import (
	"time"
)

// SourceType 回答来源类型
const (
	SourceTypeDocument = "document" // 知识库文档
	SourceTypeDatabase = "database" // 学校数据库
)

// KnowledgeDocument 知识库文档片段
// 对应数据库表 knowledge_documents
// 存储手册、规章制度等非结构化文本
type KnowledgeDocument struct {
	// ID 自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// Name 文档名称，作为回答来源展示，如 "Student Handbook"
	Name string `gorm:"size:200;index;not null" json:"name"`

	// Content 文档片段内容
	Content string `gorm:"type:text;not null" json:"content"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (KnowledgeDocument) TableName() string {
	return "knowledge_documents"
}

// CampusRecord 学校结构化数据
// 对应数据库表 campus_records
// 院系、课程、设施、活动等按类别存放
type CampusRecord struct {
	// ID 自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// Category 类别，如 department / course / facility / event / admission
	Category string `gorm:"size:50;index;not null" json:"category"`

	// Name 记录名称
	Name string `gorm:"size:200;not null" json:"name"`

	// Detail 记录详情
	Detail string `gorm:"type:text;not null" json:"detail"`
}

// TableName 指定表名
func (CampusRecord) TableName() string {
	return "campus_records"
}
