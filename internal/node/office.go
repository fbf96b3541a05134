package node

import (
	"context"
	"encoding/json"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
	"github.com/RentalGrid/RentalGrid/internal/cluster"
	"github.com/RentalGrid/RentalGrid/internal/contract"
	"github.com/RentalGrid/RentalGrid/internal/protocol"
)

// branchHandler 已解码请求的处理函数。
type branchHandler func(ctx context.Context, userID int, payload json.RawMessage) (any, error)

// typed 把“负载类型 + 业务函数”登记成统一的处理入口，
// 负载解码失败统一折叠为 400。
func typed[In any](fn func(ctx context.Context, userID int, in *In) (any, error)) branchHandler {
	return func(ctx context.Context, userID int, payload json.RawMessage) (any, error) {
		in := new(In)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, in); err != nil {
				return nil, apperr.InvalidProperty("Malformed payload")
			}
		}
		return fn(ctx, userID, in)
	}
}

// Office 分支办公室：严格串行的集群消息循环。
// 一条消息从接收、处理（含向其他节点的嵌套转发）到应答
// 完成前，不接收下一条。这一串行性是“预订总在车辆归属
// 分支落地”规则足以防止双订的前提。
type Office struct {
	nc       *Context
	handlers map[int]branchHandler
}

// NewOffice 构建分支办公室并登记全部操作。
func NewOffice(nc *Context) *Office {
	o := &Office{nc: nc, handlers: make(map[int]branchHandler)}

	o.handlers[protocol.OpSearchAvailableVehicles] = typed(
		func(ctx context.Context, userID int, in *contract.SearchAvailableVehiclesInput) (any, error) {
			return nc.Vehicles.BroadcastSearch(ctx, userID, in)
		})
	o.handlers[protocol.OpClusterSearchBroadcast] = typed(
		func(ctx context.Context, userID int, in *contract.SearchAvailableVehiclesInput) (any, error) {
			return nc.Vehicles.SearchAvailable(ctx, in, true)
		})
	o.handlers[protocol.OpBookVehicle] = typed(
		func(ctx context.Context, userID int, in *contract.CreateBookingInput) (any, error) {
			return nc.Bookings.CreateBooking(ctx, userID, in)
		})
	o.handlers[protocol.OpChangeBookingStatus] = typed(
		func(ctx context.Context, userID int, in *contract.ChangeBookingStatusInput) (any, error) {
			return nc.Bookings.ChangeBookingStatus(ctx, userID, in)
		})
	o.handlers[protocol.OpGetUserBookings] = typed(
		func(ctx context.Context, userID int, in *struct{}) (any, error) {
			return nc.Bookings.GetUserBookings(ctx, userID, nc.Self.ID)
		})
	o.handlers[protocol.OpGetBranchBookings] = typed(
		func(ctx context.Context, userID int, in *struct{}) (any, error) {
			return nc.Bookings.GetBranchBookings(ctx, nc.Self.ID)
		})
	o.handlers[protocol.OpGetVehicleMoves] = typed(
		func(ctx context.Context, userID int, in *contract.GetVehicleMovesInput) (any, error) {
			return nc.Bookings.GetVehicleMoves(ctx, in)
		})
	o.handlers[protocol.OpUpdateOrCreateVehicle] = typed(
		func(ctx context.Context, userID int, in *contract.UpdateOrCreateVehicleInput) (any, error) {
			return nc.Vehicles.UpdateOrCreate(ctx, in)
		})
	o.handlers[protocol.OpSearchAllVehicles] = typed(
		func(ctx context.Context, userID int, in *contract.SearchVehicleInput) (any, error) {
			return nc.Vehicles.SearchAll(ctx, in)
		})

	return o
}

// Run 消息主循环。处理完停机请求并回执后退出。
func (o *Office) Run(ctx context.Context) error {
	log := o.nc.Log
	for {
		msg, err := o.nc.Channel.Receive(ctx, cluster.AnySource, cluster.AnyTag)
		if err != nil {
			if err == cluster.ErrMailboxClosed || ctx.Err() != nil {
				return nil
			}
			return err
		}

		req := &protocol.BranchRequest{}
		if err := json.Unmarshal(msg.Body, req); err != nil {
			log.Warnf("undecodable message from node %d tag=%d: %v", msg.Source, msg.Tag, err)
			o.reply(ctx, msg.Source, protocol.Fail(msg.Tag, apperr.StatusInvalid, "Malformed request"))
			continue
		}

		resp := o.dispatch(ctx, req)
		o.reply(ctx, msg.Source, resp)

		// 停机请求：回执已发出，当前请求即最后一条
		if req.OperationCode == protocol.OpShutdownSystem {
			log.Infof("branch %s received shutdown, stopping after current request", o.nc.Self.Name)
			o.nc.RequestStop()
			return nil
		}
	}
}

func (o *Office) dispatch(ctx context.Context, req *protocol.BranchRequest) *protocol.BranchResponse {
	op := req.OperationCode
	if op == protocol.OpShutdownSystem {
		resp, _ := protocol.OK(op, nil)
		return resp
	}

	h, ok := o.handlers[op]
	if !ok {
		o.nc.Log.Warnf("unknown operation %d", op)
		return protocol.Fail(op, apperr.StatusInvalid, "Unknown operation")
	}

	result, err := h(ctx, req.UserID, req.Payload)
	if err != nil {
		o.nc.Log.Warnf("op %s failed: %v", protocol.OpName(op), err)
		return protocol.Fail(op, apperr.Status(err), apperr.Message(err))
	}

	resp, err := protocol.OK(op, result)
	if err != nil {
		o.nc.Log.Errorf("op %s response encode failed: %v", protocol.OpName(op), err)
		return protocol.Fail(op, apperr.StatusInternal, "Server error")
	}
	return resp
}

func (o *Office) reply(ctx context.Context, dest int, resp *protocol.BranchResponse) {
	if err := o.nc.Router.Reply(ctx, dest, resp); err != nil {
		o.nc.Log.Errorf("reply op=%s to node %d failed: %v", protocol.OpName(resp.OperationCode), dest, err)
	}
}
