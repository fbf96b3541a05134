// Package availability 判定车辆在给定时间窗内能否出租。
// 占用判断只考虑已确认的预订；检修车辆一律不可用。
package availability

import (
	"context"
	"time"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
	"github.com/RentalGrid/RentalGrid/internal/common/logger"
	"github.com/RentalGrid/RentalGrid/internal/dateutil"
	"github.com/RentalGrid/RentalGrid/internal/model"
	"github.com/RentalGrid/RentalGrid/internal/store"
)

// Window 闭区间时间窗，精确到天。
type Window struct {
	Start time.Time
	End   time.Time
}

// Days 窗口覆盖的天数，首尾都计入。
func (w Window) Days() int {
	return dateutil.BookingDays(w.Start, w.End)
}

// Overlaps 两窗是否相交，边界日同样视为冲突。
// 四种情形：对方起点落在本窗、对方终点落在本窗、
// 对方完全包含本窗、本窗完全包含对方。
func (w Window) Overlaps(o Window) bool {
	startsInside := !o.Start.Before(w.Start) && !o.Start.After(w.End)
	endsInside := !o.End.Before(w.Start) && !o.End.After(w.End)
	covers := o.Start.Before(w.Start) && o.End.After(w.End)
	within := !w.Start.Before(o.Start) && !w.End.After(o.End)
	return startsInside || endsInside || covers || within
}

// MoveWindow 预约窗前后各留一天调拨期。
func MoveWindow(pickup, ret time.Time) Window {
	return Window{
		Start: dateutil.Truncate(pickup).AddDate(0, 0, -1),
		End:   dateutil.Truncate(ret).AddDate(0, 0, 1),
	}
}

// EffectiveWindow 车辆被实际占用的窗口：
// 跨分支预订要算上调拨期，本地预订即预约窗本身。
func EffectiveWindow(pickup, ret time.Time, requiresMove bool) Window {
	if requiresMove {
		return MoveWindow(pickup, ret)
	}
	return Window{Start: dateutil.Truncate(pickup), End: dateutil.Truncate(ret)}
}

// MaxBookingDays 单笔预订的时长上限。
const MaxBookingDays = 7

// ValidateWindow 校验预约窗可行性。
// requiresMove 为真时占用窗会提前一天开始，"必须晚于今天"的
// 判断随之收紧，错误提示也区分两种情形。
// 占用窗必须严格递增：本地当天租当天还没有占用跨度，拒绝；
// 跨分支的当天预订因调拨前后各占一天仍然成立。
func ValidateWindow(today, pickup, ret time.Time, requiresMove bool) error {
	if ret.Before(pickup) {
		return apperr.InvalidDate("Return date is before pickup date")
	}
	if dateutil.BookingDays(pickup, ret) > MaxBookingDays {
		return apperr.InvalidDate("Booking cannot exceed 7 days")
	}
	eff := EffectiveWindow(pickup, ret, requiresMove)
	if !eff.Start.Before(eff.End) {
		return apperr.InvalidDate("Return date must be after the pickup date")
	}
	if !dateutil.Before(today, eff.Start) {
		if requiresMove {
			return apperr.InvalidDate("Not enough time to transfer the vehicle between branches")
		}
		return apperr.InvalidDate("Pickup date must be later than today")
	}
	return nil
}

// Resolver 可用性判定器。
type Resolver struct {
	vehicles store.Repository[model.Vehicle]
	bookings store.Repository[model.Booking]
	moves    store.Repository[model.VehicleMove]
	log      logger.Logger
}

func NewResolver(
	vehicles store.Repository[model.Vehicle],
	bookings store.Repository[model.Booking],
	moves store.Repository[model.VehicleMove],
	log logger.Logger,
) *Resolver {
	return &Resolver{vehicles: vehicles, bookings: bookings, moves: moves, log: log}
}

// VehicleFree 车辆在 want 窗口内是否空闲。
// excludeBookingID 非零时忽略该笔预订，用于对既有预订重新确认。
func (r *Resolver) VehicleFree(ctx context.Context, v *model.Vehicle, want Window, excludeBookingID uint) (bool, error) {
	if v.Status == model.VehicleMaintenance {
		return false, nil
	}

	booked, err := r.bookings.Find(ctx, func(b *model.Booking) bool {
		return b.VehicleID == v.ID && b.Validated && b.ID != excludeBookingID
	})
	if err != nil {
		return false, apperr.Server(err)
	}

	for i := range booked {
		occupied, err := r.occupiedWindow(ctx, &booked[i])
		if err != nil {
			return false, err
		}
		if occupied.Overlaps(want) {
			return false, nil
		}
	}
	return true, nil
}

// CheckVehicle 按主键判定指定车辆。
func (r *Resolver) CheckVehicle(ctx context.Context, vehicleID uint, want Window, excludeBookingID uint) (*model.Vehicle, error) {
	v, err := r.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.ErrVehicleUnavailable
		}
		return nil, apperr.Server(err)
	}
	free, err := r.VehicleFree(ctx, v, want, excludeBookingID)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, apperr.ErrVehicleUnavailable
	}
	return v, nil
}

// AvailableByType 列出分支内指定车型在窗口内空闲的全部车辆。
func (r *Resolver) AvailableByType(ctx context.Context, branchID uint, vehicleType int, want Window) ([]model.Vehicle, error) {
	candidates, err := r.vehicles.Find(ctx, func(v *model.Vehicle) bool {
		return v.BranchID == branchID && v.Type == vehicleType
	})
	if err != nil {
		return nil, apperr.Server(err)
	}

	out := make([]model.Vehicle, 0, len(candidates))
	for i := range candidates {
		free, err := r.VehicleFree(ctx, &candidates[i], want, 0)
		if err != nil {
			return nil, err
		}
		if free {
			out = append(out, candidates[i])
		}
	}
	return out, nil
}

// occupiedWindow 既有预订的占用窗：有调拨记录时取调拨窗。
func (r *Resolver) occupiedWindow(ctx context.Context, b *model.Booking) (Window, error) {
	if b.VehicleMoveID != nil {
		mv, err := r.moves.GetByID(ctx, *b.VehicleMoveID)
		if err == nil {
			return Window{Start: dateutil.Truncate(mv.MoveDate), End: dateutil.Truncate(mv.ReturnDate)}, nil
		}
		if err != store.ErrNotFound {
			return Window{}, apperr.Server(err)
		}
		if r.log != nil {
			r.log.Warnf("booking %d references missing vehicle move %d", b.ID, *b.VehicleMoveID)
		}
	}
	return Window{Start: dateutil.Truncate(b.PickupDate), End: dateutil.Truncate(b.ReturnDate)}, nil
}
