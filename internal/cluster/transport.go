package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RentalGrid/RentalGrid/internal/common/auth"
	"github.com/RentalGrid/RentalGrid/internal/common/config"
	"github.com/RentalGrid/RentalGrid/internal/common/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
)

const deliverMethod = "/rentalgrid.cluster.Transport/Deliver"

// wireMessage 线路上的一条消息；Body 为封包后的负载。
type wireMessage struct {
	Source int    `json:"source"`
	Tag    int    `json:"tag"`
	Body   []byte `json:"body"`
	Sealed bool   `json:"sealed"`
}

type deliverAck struct {
	OK bool `json:"ok"`
}

// PayloadSealer 负载封包器；为 nil 时明文传输。
type PayloadSealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Transport 基于 gRPC 的信道实现：远端投递进本地信箱。
type Transport struct {
	selfID  int
	nodes   []config.ClusterNode
	sealer  PayloadSealer
	secret  string
	name    string
	log     logger.Logger
	mailbox *Mailbox

	mu    sync.Mutex
	conns map[int]*grpc.ClientConn
}

// NewTransport 构建本节点的集群信道。
func NewTransport(cfg *config.Config, sealer PayloadSealer, log logger.Logger) *Transport {
	return &Transport{
		selfID:  cfg.Node.ClusterID,
		nodes:   cfg.Cluster.Nodes,
		sealer:  sealer,
		secret:  cfg.Cluster.AuthSecret,
		name:    cfg.Node.Name,
		log:     log,
		mailbox: NewMailbox(),
		conns:   make(map[int]*grpc.ClientConn),
	}
}

// Send 封包并投递到 dest 节点，等待对端确认。
func (t *Transport) Send(ctx context.Context, dest, tag int, body []byte) error {
	if dest == t.selfID {
		// 本机直投，停机广播等场景会给自己发消息
		return t.mailbox.Put(Message{Source: t.selfID, Tag: tag, Body: body})
	}
	if dest < 0 || dest >= len(t.nodes) {
		return fmt.Errorf("cluster: unknown destination %d", dest)
	}

	msg := t.sealMessage(dest, tag, body)

	conn, err := t.conn(dest)
	if err != nil {
		return err
	}

	if t.secret != "" {
		token, _, err := auth.GenerateNodeToken(t.secret, t.name, t.selfID, time.Hour)
		if err != nil {
			return fmt.Errorf("cluster: sign node token: %w", err)
		}
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}

	ack := &deliverAck{}
	if err := conn.Invoke(ctx, deliverMethod, msg, ack, grpc.CallContentSubtype("json")); err != nil {
		return fmt.Errorf("cluster: deliver to node %d: %w", dest, err)
	}
	return nil
}

// Receive 从本地信箱取件。
func (t *Transport) Receive(ctx context.Context, source, tag int) (Message, error) {
	return t.mailbox.Receive(ctx, source, tag)
}

// Ping 探测 dest 节点健康状态，用于启动期会合。
func (t *Transport) Ping(ctx context.Context, dest int) error {
	conn, err := t.conn(dest)
	if err != nil {
		return err
	}
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("cluster: ping node %d: %w", dest, err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("cluster: node %d not serving: %v", dest, resp.GetStatus())
	}
	return nil
}

// Close 关闭信箱与全部出站连接。
func (t *Transport) Close() error {
	t.mailbox.Close()
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, c := range t.conns {
		if err := c.Close(); err != nil && t.log != nil {
			t.log.Warnf("close conn to node %d: %v", id, err)
		}
	}
	t.conns = make(map[int]*grpc.ClientConn)
	return nil
}

func (t *Transport) conn(dest int) (*grpc.ClientConn, error) {
	if dest < 0 || dest >= len(t.nodes) {
		return nil, fmt.Errorf("cluster: unknown destination %d", dest)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.conns[dest]; ok {
		return c, nil
	}
	n := t.nodes[dest]
	c, err := grpc.Dial(
		fmt.Sprintf("%s:%d", n.Host, n.GRPCPort),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("cluster: dial node %d: %w", dest, err)
	}
	t.conns[dest] = c
	return c, nil
}

// sealMessage 组装线路消息。封包失败时告警并回落明文发送，
// 与接收侧的回落行为对称。
func (t *Transport) sealMessage(dest, tag int, body []byte) *wireMessage {
	msg := &wireMessage{Source: t.selfID, Tag: tag, Body: body}
	if t.sealer == nil {
		return msg
	}
	sealed, err := t.sealer.Seal(body)
	if err != nil {
		if t.log != nil {
			t.log.Warnf("payload to node %d failed to seal, sending plaintext: %v", dest, err)
		}
		return msg
	}
	msg.Body = sealed
	msg.Sealed = true
	return msg
}

// deliver 远端投递入口：解包失败时回落明文并告警。
func (t *Transport) deliver(ctx context.Context, msg *wireMessage) (*deliverAck, error) {
	body := msg.Body
	if msg.Sealed && t.sealer != nil {
		opened, err := t.sealer.Open(msg.Body)
		if err != nil {
			if t.log != nil {
				t.log.Warnf("payload from node %d failed to open, falling back to plaintext: %v", msg.Source, err)
			}
		} else {
			body = opened
		}
	}
	if err := t.mailbox.Put(Message{Source: msg.Source, Tag: msg.Tag, Body: body}); err != nil {
		return nil, err
	}
	return &deliverAck{OK: true}, nil
}

func deliverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wireMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Transport).deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: deliverMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Transport).deliver(ctx, req.(*wireMessage))
	}
	return interceptor(ctx, in, info, handler)
}

// serviceDesc 手写服务描述，配合 JSON codec 使用，无需 protoc。
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "rentalgrid.cluster.Transport",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Deliver",
			Handler:    deliverHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rentalgrid/cluster",
}

// Register 将投递服务挂到 gRPC server 上。
func (t *Transport) Register(s *grpc.Server) {
	s.RegisterService(&serviceDesc, t)
}
