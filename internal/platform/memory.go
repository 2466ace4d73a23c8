package platform

import (
	"fmt"
	"sync"
)

// Memory is an in-process Platform that keeps downloads in memory.
// It is used where no filesystem side effects are wanted.
type Memory struct {
	mu        sync.Mutex
	next      int
	handles   map[string]string
	revoked   []string
	downloads map[string][]byte
}

// NewMemory creates an empty in-memory platform
func NewMemory() *Memory {
	return &Memory{
		handles:   make(map[string]string),
		downloads: make(map[string][]byte),
	}
}

// CreateHandle issues a mem:// handle
func (m *Memory) CreateHandle(src Source) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	id := fmt.Sprintf("h%d", m.next)
	m.handles[id] = src.Path
	return Handle{ID: id, URL: "mem://" + id + "/" + src.Name}, nil
}

// Resolve returns the path recorded for a handle
func (m *Memory) Resolve(h Handle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path, ok := m.handles[h.ID]
	if !ok {
		return "", ErrUnknownHandle
	}
	return path, nil
}

// RevokeHandle releases a handle and records the revocation
func (m *Memory) RevokeHandle(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.handles[h.ID]; !ok {
		return
	}
	delete(m.handles, h.ID)
	m.revoked = append(m.revoked, h.ID)
}

// Download stores data under name
func (m *Memory) Download(name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	m.downloads[name] = buf
	return "mem://downloads/" + name, nil
}

// Live returns the number of unrevoked handles
func (m *Memory) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// Revoked returns the IDs of revoked handles in revocation order
func (m *Memory) Revoked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.revoked))
	copy(out, m.revoked)
	return out
}

// Downloaded returns a stored download
func (m *Memory) Downloaded(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.downloads[name]
	return data, ok
}

// Downloads returns the number of stored downloads
func (m *Memory) Downloads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.downloads)
}

var (
	_ Platform = (*Memory)(nil)
	_ Platform = (*Local)(nil)
)
