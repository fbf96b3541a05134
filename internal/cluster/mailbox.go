package cluster

import (
	"context"
	"errors"
	"sync"
)

// ErrMailboxClosed 信箱已随节点停机关闭。
var ErrMailboxClosed = errors.New("cluster: mailbox closed")

// Mailbox 本地信箱：消息按到达顺序排队，
// Receive 取出第一条匹配 (source, tag) 的消息。
// 同一 (source, tag) 组合内取件顺序即到达顺序。
type Mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Message
	closed bool
}

func NewMailbox() *Mailbox {
	m := &Mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Put 入队并唤醒等待者。
func (m *Mailbox) Put(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMailboxClosed
	}
	m.queue = append(m.queue, msg)
	m.cond.Broadcast()
	return nil
}

// Receive 阻塞直到出现匹配消息、ctx 取消或信箱关闭。
func (m *Mailbox) Receive(ctx context.Context, source, tag int) (Message, error) {
	// ctx 取消时唤醒所有等待者重新检查
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if i := m.match(source, tag); i >= 0 {
			msg := m.queue[i]
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return msg, nil
		}
		if m.closed {
			return Message{}, ErrMailboxClosed
		}
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		m.cond.Wait()
	}
}

// match 返回第一条匹配消息的下标，无匹配返回 -1。
func (m *Mailbox) match(source, tag int) int {
	for i := range m.queue {
		if source != AnySource && m.queue[i].Source != source {
			continue
		}
		if tag != AnyTag && m.queue[i].Tag != tag {
			continue
		}
		return i
	}
	return -1
}

// Close 关闭信箱，唤醒全部等待者。
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
}
