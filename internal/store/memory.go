package store

import (
	"context"
	"sync"
)

// Memory 是 Repository 的内存实现，用于测试与本地演示。
// 主键访问方式由构造方注入，避免给实体模型强加接口。
type Memory[T any] struct {
	mu    sync.RWMutex
	next  uint
	items map[uint]T

	getID func(*T) uint
	setID func(*T, uint)
}

func NewMemory[T any](getID func(*T) uint, setID func(*T, uint)) *Memory[T] {
	return &Memory[T]{
		next:  1,
		items: make(map[uint]T),
		getID: getID,
		setID: setID,
	}
}

func (m *Memory[T]) Create(ctx context.Context, e *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getID(e) == 0 {
		m.setID(e, m.next)
		m.next++
	} else if id := m.getID(e); id >= m.next {
		m.next = id + 1
	}
	m.items[m.getID(e)] = *e
	return nil
}

func (m *Memory[T]) Update(ctx context.Context, e *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.getID(e)
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	m.items[id] = *e
	return nil
}

func (m *Memory[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *Memory[T]) Find(ctx context.Context, pred func(*T) bool) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.items))
	for _, e := range m.items {
		e := e
		if pred == nil || pred(&e) {
			out = append(out, e)
		}
	}
	return out, nil
}
