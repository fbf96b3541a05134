// Package booking 实现预订的创建、确认与调拨查询。
// 改动车辆占用的操作必须在车辆归属分支的节点上落地，
// 其余节点只做转发。
package booking

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
	"github.com/RentalGrid/RentalGrid/internal/availability"
	"github.com/RentalGrid/RentalGrid/internal/branch"
	"github.com/RentalGrid/RentalGrid/internal/cluster"
	"github.com/RentalGrid/RentalGrid/internal/common/logger"
	"github.com/RentalGrid/RentalGrid/internal/contract"
	"github.com/RentalGrid/RentalGrid/internal/dateutil"
	"github.com/RentalGrid/RentalGrid/internal/model"
	"github.com/RentalGrid/RentalGrid/internal/protocol"
	"github.com/RentalGrid/RentalGrid/internal/store"
	"github.com/google/uuid"
)

// FieldSealer 卡片字段的落库加密器。
type FieldSealer interface {
	SealString(v string) (string, error)
}

// Coordinator 预订协调器，持有本分支的全部仓储句柄。
type Coordinator struct {
	self     *model.Branch
	dir      *branch.Directory
	router   *cluster.Router
	resolver *availability.Resolver
	bookings store.Repository[model.Booking]
	moves    store.Repository[model.VehicleMove]
	vehicles store.Repository[model.Vehicle]
	users    store.Repository[model.User]
	sealer   FieldSealer
	log      logger.Logger
}

func NewCoordinator(
	self *model.Branch,
	dir *branch.Directory,
	router *cluster.Router,
	resolver *availability.Resolver,
	bookings store.Repository[model.Booking],
	moves store.Repository[model.VehicleMove],
	vehicles store.Repository[model.Vehicle],
	users store.Repository[model.User],
	sealer FieldSealer,
	log logger.Logger,
) *Coordinator {
	return &Coordinator{
		self:     self,
		dir:      dir,
		router:   router,
		resolver: resolver,
		bookings: bookings,
		moves:    moves,
		vehicles: vehicles,
		users:    users,
		sealer:   sealer,
		log:      log,
	}
}

// CreateBooking 创建预订。车辆归属分支不是本分支时整体转发，
// 归属节点的应答原样返回。
func (c *Coordinator) CreateBooking(ctx context.Context, callerUserID int, in *contract.CreateBookingInput) (*contract.Booking, error) {
	if in.BookingBranchID == 0 {
		return nil, apperr.InvalidProperty("Booking branch is required")
	}
	bookingBranch, err := c.dir.ByID(in.BookingBranchID)
	if err != nil {
		return nil, err
	}

	vehicle, err := c.vehicles.GetByID(ctx, in.VehicleID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.ErrVehicleUnavailable
		}
		return nil, apperr.Server(err)
	}

	if vehicle.BranchID != c.self.ID {
		return c.forwardCreate(ctx, callerUserID, vehicle.BranchID, in)
	}

	pickup, err := dateutil.Parse(in.PickupDate)
	if err != nil {
		return nil, err
	}
	ret, err := dateutil.Parse(in.ReturnDate)
	if err != nil {
		return nil, err
	}

	// 客户所在分支与车辆归属分支不同才需要调拨，
	// 即便预订是在归属节点本地落地的。
	requiresMove := bookingBranch.ID != vehicle.BranchID

	if err := availability.ValidateWindow(dateutil.Today(), pickup, ret, requiresMove); err != nil {
		return nil, err
	}

	eff := availability.EffectiveWindow(pickup, ret, requiresMove)
	if _, err := c.resolver.CheckVehicle(ctx, vehicle.ID, eff, 0); err != nil {
		return nil, err
	}

	owner, err := c.actingUser(ctx, callerUserID, in.BookingOwnerUserID)
	if err != nil {
		return nil, err
	}

	days := dateutil.BookingDays(pickup, ret)
	b := &model.Booking{
		Reference:  uuid.NewString(),
		BranchID:   bookingBranch.ID,
		UserID:     owner.ID,
		VehicleID:  vehicle.ID,
		PickupDate: dateutil.Truncate(pickup),
		ReturnDate: dateutil.Truncate(ret),
		DaysCount:  days,
		Price:      contract.RoundPrice(vehicle.PricePerDay * float64(days)),
		Validated:  true,
	}
	if err := c.sealCard(b, in); err != nil {
		return nil, apperr.Server(err)
	}
	if err := c.bookings.Create(ctx, b); err != nil {
		return nil, apperr.Server(err)
	}

	var mv *model.VehicleMove
	if requiresMove {
		win := availability.MoveWindow(pickup, ret)
		mv = &model.VehicleMove{
			BookingID:  b.ID,
			MoveDate:   win.Start,
			ReturnDate: win.End,
		}
		if err := c.moves.Create(ctx, mv); err != nil {
			return nil, apperr.Server(err)
		}
		b.VehicleMoveID = &mv.ID
		if err := c.bookings.Update(ctx, b); err != nil {
			return nil, apperr.Server(err)
		}
	}

	if c.log != nil {
		c.log.Infof("booking %s created vehicle=%d branch=%s move=%v", b.Reference, vehicle.ID, bookingBranch.Name, requiresMove)
	}

	vb, _ := c.dir.ByID(vehicle.BranchID)
	out := contract.NewBooking(b, bookingBranch.Name, vehicle, vb, mv)
	return &out, nil
}

// ChangeBookingStatus 确认或作废预订。
// 改为确认时必须重查可用性，作废从不重查。
func (c *Coordinator) ChangeBookingStatus(ctx context.Context, callerUserID int, in *contract.ChangeBookingStatusInput) (*contract.Booking, error) {
	b, err := c.bookings.GetByID(ctx, in.BookingID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.InvalidProperty("Booking not found")
		}
		return nil, apperr.Server(err)
	}

	vehicle, err := c.vehicles.GetByID(ctx, b.VehicleID)
	if err != nil {
		return nil, apperr.Server(err)
	}

	if vehicle.BranchID != c.self.ID {
		return c.forwardStatusChange(ctx, callerUserID, vehicle.BranchID, in)
	}

	if in.Validated {
		win, _, err := c.effectiveWindow(ctx, b)
		if err != nil {
			return nil, err
		}
		if _, err := c.resolver.CheckVehicle(ctx, vehicle.ID, win, b.ID); err != nil {
			return nil, err
		}
	}

	b.Validated = in.Validated
	if err := c.bookings.Update(ctx, b); err != nil {
		return nil, apperr.Server(err)
	}

	return c.toContract(ctx, b)
}

// GetUserBookings 某用户在某分支的全部预订，按取车日期排序。
func (c *Coordinator) GetUserBookings(ctx context.Context, userID int, branchID uint) ([]contract.Booking, error) {
	list, err := c.bookings.Find(ctx, func(b *model.Booking) bool {
		return int(b.UserID) == userID && b.BranchID == branchID
	})
	if err != nil {
		return nil, apperr.Server(err)
	}
	return c.toContracts(ctx, list)
}

// GetBranchBookings 某分支的全部预订，按取车日期排序。
func (c *Coordinator) GetBranchBookings(ctx context.Context, branchID uint) ([]contract.Booking, error) {
	list, err := c.bookings.Find(ctx, func(b *model.Booking) bool {
		return b.BranchID == branchID
	})
	if err != nil {
		return nil, apperr.Server(err)
	}
	return c.toContracts(ctx, list)
}

// GetVehicleMoves 本分支的调拨清单。
// 离站：预订分支为本分支且调拨日在今天或之后；
// 到站：车辆归属本分支且归还日在今天或之后。
func (c *Coordinator) GetVehicleMoves(ctx context.Context, in *contract.GetVehicleMovesInput) ([]contract.Booking, error) {
	today := dateutil.Today()
	withMove, err := c.bookings.Find(ctx, func(b *model.Booking) bool {
		return b.Validated && b.VehicleMoveID != nil
	})
	if err != nil {
		return nil, apperr.Server(err)
	}

	matched := make([]model.Booking, 0, len(withMove))
	for i := range withMove {
		b := &withMove[i]
		mv, err := c.moves.GetByID(ctx, *b.VehicleMoveID)
		if err != nil {
			continue
		}
		if in.Outgoing {
			if b.BranchID == c.self.ID && !dateutil.Before(mv.MoveDate, today) {
				matched = append(matched, *b)
			}
			continue
		}
		vehicle, err := c.vehicles.GetByID(ctx, b.VehicleID)
		if err != nil {
			continue
		}
		if vehicle.BranchID == c.self.ID && !dateutil.Before(mv.ReturnDate, today) {
			matched = append(matched, *b)
		}
	}
	return c.toContracts(ctx, matched)
}

func (c *Coordinator) forwardCreate(ctx context.Context, callerUserID int, vehicleBranchID uint, in *contract.CreateBookingInput) (*contract.Booking, error) {
	return c.forward(ctx, callerUserID, vehicleBranchID, protocol.OpBookVehicle, in)
}

func (c *Coordinator) forwardStatusChange(ctx context.Context, callerUserID int, vehicleBranchID uint, in *contract.ChangeBookingStatusInput) (*contract.Booking, error) {
	return c.forward(ctx, callerUserID, vehicleBranchID, protocol.OpChangeBookingStatus, in)
}

// forward 把操作整体投递到车辆归属分支，应答原样透传。
func (c *Coordinator) forward(ctx context.Context, callerUserID int, vehicleBranchID uint, op int, in any) (*contract.Booking, error) {
	owner, err := c.dir.ByID(vehicleBranchID)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, apperr.Server(err)
	}
	resp, err := c.router.Forward(ctx, owner.ClusterID, &protocol.BranchRequest{
		OperationCode: op,
		UserID:        callerUserID,
		Payload:       payload,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status != apperr.StatusOK {
		return nil, apperr.FromStatus(resp.Status, resp.Error)
	}
	out := &contract.Booking{}
	if err := json.Unmarshal(resp.Payload, out); err != nil {
		return nil, apperr.Communication(err)
	}
	return out, nil
}

// actingUser 解析预订归属：普通情况是调用方自己，
// 员工代客下单时换成指定用户。权限校验在边缘层完成。
func (c *Coordinator) actingUser(ctx context.Context, callerUserID int, ownerID uint) (*model.User, error) {
	id := uint(callerUserID)
	if ownerID != 0 {
		id = ownerID
	}
	u, err := c.users.GetByID(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.InvalidProperty("Unknown user")
		}
		return nil, apperr.Server(err)
	}
	return u, nil
}

func (c *Coordinator) sealCard(b *model.Booking, in *contract.CreateBookingInput) error {
	if c.sealer == nil {
		return nil
	}
	var err error
	if b.CardNumberSealed, err = c.sealer.SealString(in.CardNumber); err != nil {
		return err
	}
	if b.CardExpirySealed, err = c.sealer.SealString(in.CardExpiry); err != nil {
		return err
	}
	if b.CardCVCSealed, err = c.sealer.SealString(in.CardCVC); err != nil {
		return err
	}
	return nil
}

func (c *Coordinator) effectiveWindow(ctx context.Context, b *model.Booking) (availability.Window, *model.VehicleMove, error) {
	if b.VehicleMoveID != nil {
		mv, err := c.moves.GetByID(ctx, *b.VehicleMoveID)
		if err == nil {
			return availability.Window{Start: dateutil.Truncate(mv.MoveDate), End: dateutil.Truncate(mv.ReturnDate)}, mv, nil
		}
		if err != store.ErrNotFound {
			return availability.Window{}, nil, apperr.Server(err)
		}
	}
	return availability.Window{Start: dateutil.Truncate(b.PickupDate), End: dateutil.Truncate(b.ReturnDate)}, nil, nil
}

func (c *Coordinator) toContract(ctx context.Context, b *model.Booking) (*contract.Booking, error) {
	var vehicle *model.Vehicle
	var vb *model.Branch
	if v, err := c.vehicles.GetByID(ctx, b.VehicleID); err == nil {
		vehicle = v
		vb, _ = c.dir.ByID(v.BranchID)
	}
	var mv *model.VehicleMove
	if b.VehicleMoveID != nil {
		mv, _ = c.moves.GetByID(ctx, *b.VehicleMoveID)
	}
	out := contract.NewBooking(b, c.dir.NameOf(b.BranchID), vehicle, vb, mv)
	return &out, nil
}

func (c *Coordinator) toContracts(ctx context.Context, list []model.Booking) ([]contract.Booking, error) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].PickupDate.Before(list[j].PickupDate)
	})
	out := make([]contract.Booking, 0, len(list))
	for i := range list {
		cb, err := c.toContract(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *cb)
	}
	return out, nil
}
