package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/model"
)

// memoryStore 内存版的会话和消息存储
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	messages []model.Message
	nextID   int64

	createErr error
	lists     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]model.Session)}
}

// ---- SessionStore ----

type memorySessions struct{ *memoryStore }

func (s memorySessions) Create(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s memorySessions) GetByID(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s memorySessions) List(_ context.Context) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	list := make([]model.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		list = append(list, session)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].LastMessageAt.After(list[j].LastMessageAt)
	})
	return list, nil
}

func (s memorySessions) Touch(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return errors.New("no such session")
	}
	session.LastMessageAt = at
	s.sessions[id] = session
	return nil
}

func (s memorySessions) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false, nil
	}
	s.deleteLocked(id)
	return true, nil
}

func (s memorySessions) DeleteIdleBefore(_ context.Context, before time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, session := range s.sessions {
		if session.LastMessageAt.Before(before) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		s.deleteLocked(id)
	}
	return ids, nil
}

func (s *memoryStore) deleteLocked(id string) {
	delete(s.sessions, id)
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.SessionID != id {
			kept = append(kept, m)
		}
	}
	s.messages = kept
}

// ---- MessageStore ----

type memoryMessages struct{ *memoryStore }

func (s memoryMessages) Create(_ context.Context, message *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	message.ID = s.nextID
	s.messages = append(s.messages, *message)
	return nil
}

func (s memoryMessages) GetBySessionID(_ context.Context, sessionID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s memoryMessages) GetLatestBySessionID(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	all, _ := s.GetBySessionID(ctx, sessionID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s memoryMessages) CountBySessionID(ctx context.Context, sessionID string) (int64, error) {
	all, _ := s.GetBySessionID(ctx, sessionID)
	return int64(len(all)), nil
}

func (s memoryMessages) GetFirstUserMessage(ctx context.Context, sessionID string) (*model.Message, error) {
	all, _ := s.GetBySessionID(ctx, sessionID)
	for _, m := range all {
		if m.Role == model.MessageRoleUser {
			return &m, nil
		}
	}
	return nil, nil
}

// ---- AnswerGenerator ----

type fakeGenerator struct {
	mu        sync.Mutex
	answer    *Answer
	err       error
	questions []string
	histories [][]model.Message
	// 每次生成回答前推进时钟
	advance func()
}

func (g *fakeGenerator) Generate(_ context.Context, question string, history []model.Message) (*Answer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.questions = append(g.questions, question)
	g.histories = append(g.histories, history)
	if g.advance != nil {
		g.advance()
	}
	if g.err != nil {
		return nil, g.err
	}
	if g.answer != nil {
		return g.answer, nil
	}
	return &Answer{Content: "answer to " + question}, nil
}

// ---- KnowledgeStore ----

// fakeKnowledge 内存版知识库，按子串匹配关键词
type fakeKnowledge struct {
	docs    []model.KnowledgeDocument
	records []model.CampusRecord

	docErr    error
	recordErr error
	docCalls  int
	recCalls  int
	lastTerms []string
}

func (k *fakeKnowledge) SearchDocuments(_ context.Context, terms []string, limit int) ([]model.KnowledgeDocument, error) {
	k.docCalls++
	k.lastTerms = terms
	if k.docErr != nil {
		return nil, k.docErr
	}
	var out []model.KnowledgeDocument
	for _, d := range k.docs {
		if matchesAny(terms, d.Name, d.Content) && len(out) < limit {
			out = append(out, d)
		}
	}
	return out, nil
}

func (k *fakeKnowledge) SearchRecords(_ context.Context, terms []string, limit int) ([]model.CampusRecord, error) {
	k.recCalls++
	k.lastTerms = terms
	if k.recordErr != nil {
		return nil, k.recordErr
	}
	var out []model.CampusRecord
	for _, r := range k.records {
		if matchesAny(terms, r.Category, r.Name, r.Detail) && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func matchesAny(terms []string, fields ...string) bool {
	for _, t := range terms {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), t) {
				return true
			}
		}
	}
	return false
}

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
