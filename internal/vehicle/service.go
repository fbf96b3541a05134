// Package vehicle 车辆检索、建档与全网可用性聚合。
package vehicle

import (
	"context"
	"encoding/json"
	"strings"

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
)

// Service 车辆业务。检索与建档作用于本分支；
// BroadcastSearch 额外串行扇出到其余分支汇总。
type Service struct {
	self     *model.Branch
	dir      *branch.Directory
	router   *cluster.Router
	resolver *availability.Resolver
	vehicles store.Repository[model.Vehicle]
	log      logger.Logger
}

func NewService(
	self *model.Branch,
	dir *branch.Directory,
	router *cluster.Router,
	resolver *availability.Resolver,
	vehicles store.Repository[model.Vehicle],
	log logger.Logger,
) *Service {
	return &Service{self: self, dir: dir, router: router, resolver: resolver, vehicles: vehicles, log: log}
}

// SearchAvailable 本分支指定车型在时间窗内的空闲车辆与报价。
// requiresMove 为真时按调拨窗判定占用（跨分支视角的查询）。
func (s *Service) SearchAvailable(ctx context.Context, in *contract.SearchAvailableVehiclesInput, requiresMove bool) ([]contract.SearchResult, error) {
	if !model.ValidVehicleType(in.VehicleTypeID) {
		return nil, apperr.InvalidProperty("Unknown vehicle type")
	}
	pickup, err := dateutil.Parse(in.PickupDate)
	if err != nil {
		return nil, err
	}
	ret, err := dateutil.Parse(in.ReturnDate)
	if err != nil {
		return nil, err
	}
	if ret.Before(pickup) {
		return nil, apperr.InvalidDate("Return date is before pickup date")
	}
	if dateutil.BookingDays(pickup, ret) > availability.MaxBookingDays {
		return nil, apperr.InvalidDate("Booking cannot exceed 7 days")
	}

	eff := availability.EffectiveWindow(pickup, ret, requiresMove)
	if !eff.Start.Before(eff.End) {
		return nil, apperr.InvalidDate("Return date must be after the pickup date")
	}
	free, err := s.resolver.AvailableByType(ctx, s.self.ID, in.VehicleTypeID, eff)
	if err != nil {
		return nil, err
	}

	days := dateutil.BookingDays(pickup, ret)
	out := make([]contract.SearchResult, 0, len(free))
	for i := range free {
		v := &free[i]
		out = append(out, contract.SearchResult{
			Vehicle:            contract.NewVehicle(v, s.self),
			DaysCount:          days,
			Price:              contract.RoundPrice(v.PricePerDay * float64(days)),
			RequireVehicleMove: requiresMove,
			PickupDate:         in.PickupDate,
			ReturnDate:         in.ReturnDate,
		})
	}
	return out, nil
}

// BroadcastSearch 全网可用性：本地免调拨结果在前，
// 然后按分支注册顺序逐一询问其余分支（结果带调拨标记）。
// 任何一个分支失败则整体失败，不返回部分结果。
func (s *Service) BroadcastSearch(ctx context.Context, callerUserID int, in *contract.SearchAvailableVehiclesInput) ([]contract.SearchResult, error) {
	results, err := s.SearchAvailable(ctx, in, false)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, apperr.Server(err)
	}

	for _, b := range s.dir.All() {
		if b.ID == s.self.ID {
			continue
		}
		resp, err := s.router.Forward(ctx, b.ClusterID, &protocol.BranchRequest{
			OperationCode: protocol.OpClusterSearchBroadcast,
			UserID:        callerUserID,
			Payload:       payload,
		})
		if err != nil {
			if s.log != nil {
				s.log.Errorf("broadcast search to branch %s failed: %v", b.Name, err)
			}
			return nil, err
		}
		if resp.Status != apperr.StatusOK {
			return nil, apperr.FromStatus(resp.Status, resp.Error)
		}
		var remote []contract.SearchResult
		if err := json.Unmarshal(resp.Payload, &remote); err != nil {
			return nil, apperr.Communication(err)
		}
		results = append(results, remote...)
	}
	return results, nil
}

// SearchAll 车辆检索：注册号优先，否则按车型；只看本分支。
func (s *Service) SearchAll(ctx context.Context, in *contract.SearchVehicleInput) ([]contract.Vehicle, error) {
	reg := strings.TrimSpace(in.RegistrationNumber)
	var pred func(*model.Vehicle) bool
	if reg != "" {
		pred = func(v *model.Vehicle) bool {
			return v.BranchID == s.self.ID && strings.EqualFold(v.RegistrationNumber, reg)
		}
	} else {
		if !model.ValidVehicleType(in.VehicleTypeID) {
			return nil, apperr.InvalidProperty("Unknown vehicle type")
		}
		pred = func(v *model.Vehicle) bool {
			return v.BranchID == s.self.ID && v.Type == in.VehicleTypeID
		}
	}

	found, err := s.vehicles.Find(ctx, pred)
	if err != nil {
		return nil, apperr.Server(err)
	}
	out := make([]contract.Vehicle, 0, len(found))
	for i := range found {
		out = append(out, contract.NewVehicle(&found[i], s.self))
	}
	return out, nil
}

// UpdateOrCreate 建档或调整状态。建档校验全部属性并以
// Available 状态落库；更新只允许改状态。
func (s *Service) UpdateOrCreate(ctx context.Context, in *contract.UpdateOrCreateVehicleInput) (*contract.Vehicle, error) {
	if in.VehicleID != 0 {
		return s.updateStatus(ctx, in.VehicleID, in.Status)
	}

	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.InvalidProperty("Vehicle name is required")
	}
	reg := strings.TrimSpace(in.RegistrationNumber)
	if reg == "" {
		return nil, apperr.InvalidProperty("Registration number is required")
	}
	if in.Doors <= 0 || in.Seats <= 0 {
		return nil, apperr.InvalidProperty("Doors and seats must be positive")
	}
	if in.PricePerDay <= 0 {
		return nil, apperr.InvalidProperty("Price per day must be positive")
	}
	if !model.ValidVehicleType(in.Type) {
		return nil, apperr.InvalidProperty("Unknown vehicle type")
	}

	dup, err := s.vehicles.Find(ctx, func(v *model.Vehicle) bool {
		return v.BranchID == s.self.ID && strings.EqualFold(v.RegistrationNumber, reg)
	})
	if err != nil {
		return nil, apperr.Server(err)
	}
	if len(dup) > 0 {
		return nil, apperr.ErrRegistrationInUse
	}

	v := &model.Vehicle{
		BranchID:              s.self.ID,
		Status:                model.VehicleAvailable,
		Type:                  in.Type,
		RegistrationNumber:    reg,
		Doors:                 in.Doors,
		Seats:                 in.Seats,
		AutomaticTransmission: in.AutomaticTransmission,
		PricePerDay:           in.PricePerDay,
		Name:                  in.Name,
	}
	if err := s.vehicles.Create(ctx, v); err != nil {
		return nil, apperr.Server(err)
	}
	if s.log != nil {
		s.log.Infof("vehicle %s registered at branch %s", v.RegistrationNumber, s.self.Name)
	}

	out := contract.NewVehicle(v, s.self)
	return &out, nil
}

func (s *Service) updateStatus(ctx context.Context, id uint, status int) (*contract.Vehicle, error) {
	if !model.ValidVehicleStatus(status) {
		return nil, apperr.InvalidProperty("Unknown vehicle status")
	}
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.InvalidProperty("Vehicle not found")
		}
		return nil, apperr.Server(err)
	}
	if v.BranchID != s.self.ID {
		return nil, apperr.InvalidProperty("Vehicle belongs to another branch")
	}
	v.Status = status
	if err := s.vehicles.Update(ctx, v); err != nil {
		return nil, apperr.Server(err)
	}
	out := contract.NewVehicle(v, s.self)
	return &out, nil
}
