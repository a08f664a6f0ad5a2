// Package sessionstore 提供进程内会话存储
package sessionstore

import (
	"context"
	"sync"
	"time"

	"mirror-chat-study/internal/domain/entity"
	apperrors "mirror-chat-study/pkg/errors"
	"mirror-chat-study/pkg/logger"
	"mirror-chat-study/pkg/metrics"
)

// Store 进程内会话存储
// 会话状态不跨进程持久化，只有派生的存档行会落库
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entity.Session

	ttl      time.Duration
	interval time.Duration
	stopOnce sync.Once
	stop     chan struct{}
}

// NewStore 创建会话存储并启动过期清理
func NewStore(ttl, cleanupInterval time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*entity.Session),
		ttl:      ttl,
		interval: cleanupInterval,
		stop:     make(chan struct{}),
	}
	if ttl > 0 && cleanupInterval > 0 {
		go s.cleanupLoop()
	}
	return s
}

// Create 创建新会话
func (s *Store) Create(_ context.Context) *entity.Session {
	session := entity.NewSession()

	s.mu.Lock()
	s.sessions[session.ID] = session
	size := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(size))
	return session
}

// Get 按 ID 取会话
func (s *Store) Get(_ context.Context, id string) (*entity.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrSessionNotFound.WithDetail(id)
	}
	return session, nil
}

// Delete 删除会话，不存在时为空操作
func (s *Store) Delete(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	size := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(size))
}

// Len 当前会话数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close 停止清理协程
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired(time.Now())
		}
	}
}

// evictExpired 清理超过 TTL 未活动的会话
func (s *Store) evictExpired(now time.Time) {
	s.mu.Lock()
	evicted := 0
	for id, session := range s.sessions {
		session.Lock()
		idle := now.Sub(session.UpdatedAt)
		session.Unlock()
		if idle > s.ttl {
			delete(s.sessions, id)
			evicted++
		}
	}
	size := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(size))
	if evicted > 0 {
		logger.Info(context.Background(), "expired sessions evicted", "count", evicted)
	}
}
