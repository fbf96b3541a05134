package protocol

import "encoding/json"

// BranchRequest 分支间请求信封。Payload 是操作各自的 JSON 载荷。
type BranchRequest struct {
	OperationCode int             `json:"operationCode"`
	UserID        int             `json:"callerUserId"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// BranchResponse 分支间应答信封。转发链路上逐跳原样透传。
type BranchResponse struct {
	OperationCode int             `json:"operationCode"`
	Status        int             `json:"status"`
	Error         string          `json:"error,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// EdgeRequest 总部对外（客户端）请求信封。
// CredentialBlob 是 base64("email:password")。
type EdgeRequest struct {
	OperationCode  int             `json:"operationCode"`
	CredentialBlob string          `json:"credentialBlob,omitempty"`
	BranchID       uint            `json:"branchId,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// EdgeResponse 总部对外应答信封。
type EdgeResponse struct {
	OperationCode int             `json:"operationCode"`
	Status        int             `json:"status"`
	Error         string          `json:"error,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// OK 构造成功应答；entity 为 nil 时载荷为空。
func OK(op int, entity any) (*BranchResponse, error) {
	resp := &BranchResponse{OperationCode: op, Status: 200}
	if entity != nil {
		raw, err := json.Marshal(entity)
		if err != nil {
			return nil, err
		}
		resp.Payload = raw
	}
	return resp, nil
}

// Fail 构造错误应答。
func Fail(op, status int, msg string) *BranchResponse {
	return &BranchResponse{OperationCode: op, Status: status, Error: msg}
}
