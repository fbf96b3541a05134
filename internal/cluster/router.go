package cluster

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
	"github.com/RentalGrid/RentalGrid/internal/common/logger"
	"github.com/RentalGrid/RentalGrid/internal/protocol"
)

// Router 将业务请求投递到目标节点并等待同标签的应答。
// 同一目标节点的调用串行化：应答只按 (来源, 标签) 匹配，
// 并发复用同一标签会错领应答。
type Router struct {
	ch      Channel
	timeout time.Duration
	log     logger.Logger

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewRouter(ch Channel, timeout time.Duration, log logger.Logger) *Router {
	return &Router{
		ch:      ch,
		timeout: timeout,
		log:     log,
		locks:   make(map[int]*sync.Mutex),
	}
}

// Forward 发送请求到 dest 节点并等待应答。
// 信道故障一律折叠为对外不透明的通信错误，不做重试。
func (r *Router) Forward(ctx context.Context, dest int, req *protocol.BranchRequest) (*protocol.BranchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperr.Server(err)
	}

	lock := r.destLock(dest)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.ch.Send(ctx, dest, req.OperationCode, body); err != nil {
		if r.log != nil {
			r.log.Errorf("forward op=%s dest=%d send failed: %v", protocol.OpName(req.OperationCode), dest, err)
		}
		return nil, apperr.Communication(err)
	}

	msg, err := r.ch.Receive(ctx, dest, req.OperationCode)
	if err != nil {
		if r.log != nil {
			r.log.Errorf("forward op=%s dest=%d receive failed: %v", protocol.OpName(req.OperationCode), dest, err)
		}
		return nil, apperr.Communication(err)
	}

	resp := &protocol.BranchResponse{}
	if err := json.Unmarshal(msg.Body, resp); err != nil {
		return nil, apperr.Communication(err)
	}
	return resp, nil
}

// Reply 以请求自身的标签把应答送回来源节点。
func (r *Router) Reply(ctx context.Context, dest int, resp *protocol.BranchResponse) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.ch.Send(ctx, dest, resp.OperationCode, body)
}

func (r *Router) destLock(dest int) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[dest]
	if !ok {
		l = &sync.Mutex{}
		r.locks[dest] = l
	}
	return l
}
