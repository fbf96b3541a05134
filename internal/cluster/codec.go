package cluster

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec 让 gRPC 以 JSON 承载报文，免去业务层的 protobuf 依赖。
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
