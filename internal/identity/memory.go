package identity

import (
	"sync"

	"github.com/gin-contrib/sessions"
)

// MemoryState はクッキーを使わずにセッションを保持する State 実装です。
// Save されるまで変更は確定しません。テストやクッキーを持たないクライアントで使います。
type MemoryState struct {
	mu        sync.Mutex
	pending   map[any]any
	committed map[any]any
	options   sessions.Options
	saves     int

	// SaveErr が設定されていると Save はそのエラーを返し、変更を確定しません。
	SaveErr error
}

// NewMemoryState は空の MemoryState を返します。
func NewMemoryState() *MemoryState {
	return &MemoryState{
		pending:   make(map[any]any),
		committed: make(map[any]any),
	}
}

func (m *MemoryState) Get(key any) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[key]
}

func (m *MemoryState) Set(key any, val any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[key] = val
}

func (m *MemoryState) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = make(map[any]any)
}

func (m *MemoryState) Options(opts sessions.Options) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options = opts
}

func (m *MemoryState) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.committed = copyValues(m.pending)
	m.saves++
	return nil
}

// NextRequest は確定済みの状態から次のリクエストを始めます。
func (m *MemoryState) NextRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = copyValues(m.committed)
	m.options = sessions.Options{}
}

// Committed は確定済みの値のコピーを返します。
func (m *MemoryState) Committed() map[any]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyValues(m.committed)
}

// Saves は成功した Save の回数を返します。
func (m *MemoryState) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// LastOptions は最後に設定されたクッキー属性を返します。
func (m *MemoryState) LastOptions() sessions.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.options
}

func copyValues(src map[any]any) map[any]any {
	dst := make(map[any]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
