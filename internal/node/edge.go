package node

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
	"github.com/RentalGrid/RentalGrid/internal/common/middleware"
	"github.com/RentalGrid/RentalGrid/internal/contract"
	"github.com/RentalGrid/RentalGrid/internal/model"
	"github.com/RentalGrid/RentalGrid/internal/protocol"
)

// Edge 总部对外 HTTP 接入层：认证、限流、软关闭，
// 然后把操作在本地处理或转发进集群。
type Edge struct {
	nc      *Context
	limiter middleware.RateLimiter
}

func NewEdge(nc *Context) *Edge {
	e := &Edge{nc: nc}
	if nc.Cfg.Edge.RateLimit > 0 {
		burst := nc.Cfg.Edge.RateBurst
		if burst <= 0 {
			burst = nc.Cfg.Edge.RateLimit
		}
		e.limiter = middleware.NewTokenBucket(int64(burst), int64(nc.Cfg.Edge.RateLimit))
	}
	return e
}

// Handler 对外路由。协议是单端点 JSON 信封。
func (e *Edge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", e.handle)
	return mux
}

func (e *Edge) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := &protocol.EdgeRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeEdge(w, &protocol.EdgeResponse{Status: apperr.StatusInvalid, Error: "Malformed request"})
		return
	}

	if e.nc.Stopping() {
		writeEdge(w, &protocol.EdgeResponse{
			OperationCode: req.OperationCode,
			Status:        apperr.StatusUnavailable,
			Error:         "Service unavailable",
		})
		return
	}
	if e.limiter != nil && !e.limiter.Allow(r.Context()) {
		writeEdge(w, &protocol.EdgeResponse{
			OperationCode: req.OperationCode,
			Status:        apperr.StatusUnavailable,
			Error:         "Service unavailable",
		})
		return
	}

	resp := e.serve(r.Context(), req)
	writeEdge(w, resp)
}

// serve 认证并分派一条边缘请求。
func (e *Edge) serve(ctx context.Context, req *protocol.EdgeRequest) *protocol.EdgeResponse {
	op := req.OperationCode

	caller, err := e.authenticate(ctx, req)
	if err != nil {
		return edgeError(op, err)
	}

	callerID := 0
	if caller != nil {
		callerID = int(caller.ID)
	}

	switch op {
	case protocol.OpGetBranches:
		return edgeOK(op, e.nc.Dir.Contracts())
	case protocol.OpCreateAccount:
		return e.createAccount(ctx, req, false)
	case protocol.OpCreateUser:
		return e.createAccount(ctx, req, true)
	case protocol.OpGetAccountDetails:
		out, err := e.nc.Users.GetAccountDetails(ctx, callerID)
		if err != nil {
			return edgeError(op, err)
		}
		return edgeOK(op, out)
	case protocol.OpSearchUser:
		in := &contract.SearchUserInput{}
		if err := decodePayload(req.Payload, in); err != nil {
			return edgeError(op, err)
		}
		out, err := e.nc.Users.SearchUser(ctx, in)
		if err != nil {
			return edgeError(op, err)
		}
		return edgeOK(op, out)
	case protocol.OpShutdownSystem:
		return e.shutdown(ctx, callerID)
	case protocol.OpBookVehicle:
		return e.bookVehicle(ctx, req, caller)
	case protocol.OpSearchAvailableVehicles,
		protocol.OpGetUserBookings,
		protocol.OpGetBranchBookings,
		protocol.OpUpdateOrCreateVehicle,
		protocol.OpSearchAllVehicles,
		protocol.OpChangeBookingStatus,
		protocol.OpGetVehicleMoves:
		return e.relay(ctx, req.BranchID, op, callerID, req.Payload)
	default:
		return &protocol.EdgeResponse{OperationCode: op, Status: apperr.StatusInvalid, Error: "Unknown operation"}
	}
}

// authenticate 按操作等级认证：1x 游客、2x 用户、3x 员工。
func (e *Edge) authenticate(ctx context.Context, req *protocol.EdgeRequest) (*model.User, error) {
	tier := req.OperationCode / 10
	if tier == 1 {
		return nil, nil
	}
	if tier != 2 && tier != 3 {
		return nil, apperr.InvalidProperty("Unknown operation")
	}

	email, password, err := decodeCredentials(req.CredentialBlob)
	if err != nil {
		return nil, err
	}
	return e.nc.Users.Authenticate(ctx, email, password, tier == 3)
}

// decodeCredentials 解开 base64("email:password")。
// 邮箱不允许包含冒号，所以按第一个冒号切分即可。
func decodeCredentials(blob string) (email, password string, err error) {
	if blob == "" {
		return "", "", apperr.ErrNotAuthorized
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", "", apperr.ErrNotAuthorized
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", apperr.ErrNotAuthorized
	}
	return parts[0], parts[1], nil
}

// relay 把操作转发到目标分支节点，应答原样透传给客户端。
func (e *Edge) relay(ctx context.Context, branchID uint, op, callerID int, payload json.RawMessage) *protocol.EdgeResponse {
	b, err := e.nc.Dir.ByID(branchID)
	if err != nil {
		return edgeError(op, err)
	}
	resp, err := e.nc.Router.Forward(ctx, b.ClusterID, &protocol.BranchRequest{
		OperationCode: op,
		UserID:        callerID,
		Payload:       payload,
	})
	if err != nil {
		return edgeError(op, err)
	}
	return &protocol.EdgeResponse{
		OperationCode: resp.OperationCode,
		Status:        resp.Status,
		Error:         resp.Error,
		Payload:       resp.Payload,
	}
}

// bookVehicle 预订的边缘侧校验：代客下单要求员工身份，
// 预订分支以信封里的 branchId 为准。
func (e *Edge) bookVehicle(ctx context.Context, req *protocol.EdgeRequest, caller *model.User) *protocol.EdgeResponse {
	op := req.OperationCode
	in := &contract.CreateBookingInput{}
	if err := decodePayload(req.Payload, in); err != nil {
		return edgeError(op, err)
	}
	if in.BookingOwnerUserID != 0 && (caller == nil || !caller.Staff) {
		return edgeError(op, apperr.ErrNotAuthorized)
	}
	in.BookingBranchID = req.BranchID

	payload, err := json.Marshal(in)
	if err != nil {
		return edgeError(op, apperr.Server(err))
	}
	return e.relay(ctx, req.BranchID, op, int(caller.ID), payload)
}

// createAccount 开户。游客通道强制非员工账户；
// 员工通道（CreateUser）已通过员工认证，允许按输入落库。
func (e *Edge) createAccount(ctx context.Context, req *protocol.EdgeRequest, staffChannel bool) *protocol.EdgeResponse {
	op := req.OperationCode
	in := &contract.CreateAccountInput{}
	if err := decodePayload(req.Payload, in); err != nil {
		return edgeError(op, err)
	}
	if !staffChannel {
		in.Staff = false
	}
	out, err := e.nc.Users.CreateAccount(ctx, in)
	if err != nil {
		return edgeError(op, err)
	}
	return edgeOK(op, out)
}

// shutdown 把停机作为普通操作广播到每个分支，逐一等待回执，
// 全部确认后总部才进入停机。广播开始前就软关闭边缘入口。
func (e *Edge) shutdown(ctx context.Context, callerID int) *protocol.EdgeResponse {
	op := protocol.OpShutdownSystem
	e.nc.Log.Infof("shutdown requested by user %d", callerID)

	var failed []string
	for _, b := range e.nc.Dir.All() {
		resp, err := e.nc.Router.Forward(ctx, b.ClusterID, &protocol.BranchRequest{
			OperationCode: op,
			UserID:        callerID,
		})
		if err != nil {
			e.nc.Log.Errorf("shutdown broadcast to branch %s failed: %v", b.Name, err)
			failed = append(failed, b.Name)
			continue
		}
		if resp.Status != apperr.StatusOK {
			e.nc.Log.Errorf("branch %s refused shutdown: %d %s", b.Name, resp.Status, resp.Error)
			failed = append(failed, b.Name)
		}
	}

	e.nc.RequestStop()
	if len(failed) > 0 {
		return edgeError(op, apperr.Communication(fmt.Errorf("branches not acknowledged: %s", strings.Join(failed, ", "))))
	}
	return edgeOK(op, nil)
}

func decodePayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return apperr.InvalidProperty("Payload is required")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return apperr.InvalidProperty("Malformed payload")
	}
	return nil
}

func edgeOK(op int, entity any) *protocol.EdgeResponse {
	resp := &protocol.EdgeResponse{OperationCode: op, Status: apperr.StatusOK}
	if entity != nil {
		raw, err := json.Marshal(entity)
		if err != nil {
			return edgeError(op, apperr.Server(err))
		}
		resp.Payload = raw
	}
	return resp
}

func edgeError(op int, err error) *protocol.EdgeResponse {
	return &protocol.EdgeResponse{
		OperationCode: op,
		Status:        apperr.Status(err),
		Error:         apperr.Message(err),
	}
}

func writeEdge(w http.ResponseWriter, resp *protocol.EdgeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// RunEdge 启动对外 HTTP 服务，Stop 触发后优雅退出。
func RunEdge(nc *Context) error {
	edge := NewEdge(nc)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", nc.Cfg.Edge.HTTPPort),
		Handler:           edge.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		nc.Log.Infof("edge http listening on :%d", nc.Cfg.Edge.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-nc.Stop:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		nc.Log.Warnf("edge shutdown: %v", err)
	}
	return nil
}
