// Package cluster 实现节点间的有序消息信道。
// 每个节点维护本地信箱，远端通过 gRPC 投递；接收方按
// (来源, 标签) 取件，同一组合内严格保序。
package cluster

import "context"

// 通配接收：任意来源 / 任意标签。
const (
	AnySource = -1
	AnyTag    = -1
)

// Message 一条已投递到本地信箱的消息。
type Message struct {
	Source int    // 发送方集群编号
	Tag    int    // 消息标签（操作码或应答标签）
	Body   []byte // 负载，JSON 编码的业务报文
}

// Channel 节点间信道。
// Send 将负载投递到 dest 节点的信箱并等待确认；
// Receive 阻塞取出本地信箱中第一条匹配的消息，
// source/tag 可用 AnySource/AnyTag 通配。
type Channel interface {
	Send(ctx context.Context, dest, tag int, body []byte) error
	Receive(ctx context.Context, source, tag int) (Message, error)
	Close() error
}
