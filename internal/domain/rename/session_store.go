package rename

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound 用户没有待处理的重命名会话
	ErrSessionNotFound = errors.New("rename session not found")
	// ErrSessionBusy 会话已被另一个任务占用
	ErrSessionBusy = errors.New("rename session already processing")
	// ErrSessionExpired 会话已超时，超时通知已经发出
	ErrSessionExpired = fmt.Errorf("%w: expired", ErrSessionNotFound)
)

// ExpireFunc 会话超时被移除后的回调
type ExpireFunc func(Session)

// StoreOption SessionStore 可选项
type StoreOption func(*SessionStore)

// WithClock 替换时间源（测试使用）
func WithClock(now func() time.Time) StoreOption {
	return func(s *SessionStore) {
		s.now = now
	}
}

// WithExpireHook 设置超时回调，用于清理提示消息
func WithExpireHook(fn ExpireFunc) StoreOption {
	return func(s *SessionStore) {
		s.onExpire = fn
	}
}

type entry struct {
	session Session
	timer   *time.Timer
}

func (e *entry) stop() {
	if e.timer != nil {
		e.timer.Stop()
	}
}

// SessionStore 每个用户最多一个会话的内存存储
// 所有状态变更都在 mu 下完成，I/O 不持锁
type SessionStore struct {
	mu       sync.Mutex
	timeout  time.Duration
	now      func() time.Time
	onExpire ExpireFunc
	entries  map[int64]*entry
	running  map[string]struct{} // 已开始处理、尚未 Release 的会话 ID
}

// NewSessionStore 创建会话存储，timeout 为等待文件名的时长
func NewSessionStore(timeout time.Duration, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		timeout: timeout,
		now:     time.Now,
		entries: make(map[int64]*entry),
		running: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeout 返回会话等待时长
func (s *SessionStore) Timeout() time.Duration {
	return s.timeout
}

// Create 为用户创建会话，已有会话直接覆盖（以最后一个文件为准）
func (s *SessionStore) Create(userID int64, artifact ArtifactRef, prompt MessageRef) Session {
	now := s.now()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Artifact:  artifact,
		Prompt:    prompt,
		State:     StateAwaitingFilename,
		CreatedAt: now,
		ExpiresAt: now.Add(s.timeout),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[userID]; ok {
		old.stop()
	}
	e := &entry{session: session}
	e.timer = s.schedule(userID, session.ID, s.timeout)
	s.entries[userID] = e

	return session
}

// SetPrompt 记录提示消息，提示消息在会话创建之后才发送
func (s *SessionStore) SetPrompt(userID int64, sessionID string, prompt MessageRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok || e.session.ID != sessionID {
		return false
	}
	e.session.Prompt = prompt
	return true
}

// TryBeginProcessing 原子地将会话从 AwaitingFilename 切换到 Processing
func (s *SessionStore) TryBeginProcessing(userID int64) (Session, error) {
	s.mu.Lock()

	e, ok := s.entries[userID]
	if !ok {
		s.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	if e.session.State == StateProcessing {
		s.mu.Unlock()
		return Session{}, ErrSessionBusy
	}
	if e.session.Expired(s.now()) {
		// 定时器还没来得及触发
		e.stop()
		delete(s.entries, userID)
		s.mu.Unlock()
		s.notifyExpired(e.session)
		return Session{}, ErrSessionExpired
	}

	e.stop()
	e.timer = nil
	prior := e.session
	e.session.State = StateProcessing
	s.running[prior.ID] = struct{}{}
	s.mu.Unlock()

	return prior, nil
}

// CancelIfAwaiting 仅当会话仍在等待文件名时移除，检查和移除在同一把锁内完成
// 处理中返回 ErrSessionBusy，已超时返回 ErrSessionExpired
func (s *SessionStore) CancelIfAwaiting(userID int64) (Session, error) {
	s.mu.Lock()

	e, ok := s.entries[userID]
	if !ok {
		s.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	if e.session.State != StateAwaitingFilename {
		s.mu.Unlock()
		return Session{}, ErrSessionBusy
	}
	e.stop()
	delete(s.entries, userID)
	s.mu.Unlock()

	if e.session.Expired(s.now()) {
		s.notifyExpired(e.session)
		return Session{}, ErrSessionExpired
	}
	return e.session, nil
}

// Clear 无条件移除用户会话，可重复调用
// 供管理类调用方使用，不区分会话状态；处理流程用 Release，用户取消用 CancelIfAwaiting
func (s *SessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[userID]; ok {
		e.stop()
		delete(s.entries, userID)
	}
}

// Release 仅当当前会话仍是 sessionID 时移除
// 处理期间用户发来新文件时，新会话不会被旧任务清掉
func (s *SessionStore) Release(userID int64, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.running, sessionID)
	e, ok := s.entries[userID]
	if !ok || e.session.ID != sessionID {
		return false
	}
	e.stop()
	delete(s.entries, userID)
	return true
}

// ExpireIfDue 会话超时则移除，返回是否移除
// Processing 中的会话归处理任务所有，不在这里移除
// 定时器回调走同一路径，外部调用方可用它主动清理
func (s *SessionStore) ExpireIfDue(userID int64) bool {
	return s.expire(userID, "")
}

// Get 返回用户当前会话，已超时的会话视为不存在
func (s *SessionStore) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return Session{}, false
	}
	if e.session.State == StateAwaitingFilename && e.session.Expired(s.now()) {
		return Session{}, false
	}
	return e.session, true
}

// Snapshot 返回所有会话的副本，按创建时间排序
func (s *SessionStore) Snapshot() []Session {
	s.mu.Lock()
	sessions := make([]Session, 0, len(s.entries))
	for _, e := range s.entries {
		sessions = append(sessions, e.session)
	}
	s.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// ActiveIDs 返回仍需保留工作目录的会话 ID：存储中的会话加上已被新会话覆盖但仍在处理的任务
func (s *SessionStore) ActiveIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.entries)+len(s.running))
	ids := make([]string, 0, len(s.entries)+len(s.running))
	for _, e := range s.entries {
		seen[e.session.ID] = struct{}{}
		ids = append(ids, e.session.ID)
	}
	for id := range s.running {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Len 当前会话数量
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop 停止所有定时器，进程退出时调用
func (s *SessionStore) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.stop()
	}
}

// schedule 调用方必须持有 mu
func (s *SessionStore) schedule(userID int64, sessionID string, after time.Duration) *time.Timer {
	return time.AfterFunc(after, func() {
		s.expire(userID, sessionID)
	})
}

// expire 定时器回调按会话 ID 而非用户 ID 判断，sessionID 为空时不比较
// 定时器提前触发时重新调度
func (s *SessionStore) expire(userID int64, sessionID string) bool {
	s.mu.Lock()
	e, ok := s.entries[userID]
	if !ok || (sessionID != "" && e.session.ID != sessionID) || e.session.State != StateAwaitingFilename {
		s.mu.Unlock()
		return false
	}
	now := s.now()
	if !e.session.Expired(now) {
		if sessionID != "" {
			e.timer = s.schedule(userID, sessionID, e.session.ExpiresAt.Sub(now))
		}
		s.mu.Unlock()
		return false
	}
	e.stop()
	delete(s.entries, userID)
	s.mu.Unlock()

	s.notifyExpired(e.session)
	return true
}

func (s *SessionStore) notifyExpired(session Session) {
	if s.onExpire == nil {
		return
	}
	go func() {
		defer func() {
			_ = recover()
		}()
		s.onExpire(session)
	}()
}
