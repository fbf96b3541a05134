// Package contract 定义对外与分支间传输用的轻量数据契约，
// 与存储模型解耦：实体永远不会直接上线路。
package contract

import (
	"math"

	"github.com/RentalGrid/RentalGrid/internal/dateutil"
	"github.com/RentalGrid/RentalGrid/internal/model"
)

// Branch 分支信息契约。
type Branch struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func NewBranch(b *model.Branch) Branch {
	return Branch{ID: b.ID, Name: b.Name, Latitude: b.Latitude, Longitude: b.Longitude}
}

// Vehicle 车辆契约。
type Vehicle struct {
	ID                    uint    `json:"id"`
	Branch                Branch  `json:"branch"`
	Type                  int     `json:"type"`
	Status                int     `json:"status"`
	RegistrationNumber    string  `json:"registrationNumber"`
	Doors                 int     `json:"doors"`
	Seats                 int     `json:"seats"`
	AutomaticTransmission bool    `json:"automaticTransmission"`
	PricePerDay           float64 `json:"pricePerDay"`
	Name                  string  `json:"name"`
}

func NewVehicle(v *model.Vehicle, b *model.Branch) Vehicle {
	c := Vehicle{
		ID:                    v.ID,
		Type:                  v.Type,
		Status:                v.Status,
		RegistrationNumber:    v.RegistrationNumber,
		Doors:                 v.Doors,
		Seats:                 v.Seats,
		AutomaticTransmission: v.AutomaticTransmission,
		PricePerDay:           v.PricePerDay,
		Name:                  v.Name,
	}
	if b != nil {
		c.Branch = NewBranch(b)
	}
	return c
}

// User 账户契约，绝不携带口令散列。
type User struct {
	ID          uint   `json:"id"`
	Staff       bool   `json:"isStaff"`
	FullName    string `json:"fullName"`
	Email       string `json:"emailAddress"`
	PhoneNumber string `json:"phoneNumber"`
}

func NewUser(u *model.User) User {
	return User{ID: u.ID, Staff: u.Staff, FullName: u.FullName, Email: u.Email, PhoneNumber: u.PhoneNumber}
}

// VehicleMove 调拨窗口契约。
type VehicleMove struct {
	ID         uint   `json:"id"`
	MoveDate   string `json:"vehicleMoveDate"`
	ReturnDate string `json:"vehicleReturnDate"`
}

func NewVehicleMove(m *model.VehicleMove) *VehicleMove {
	if m == nil {
		return nil
	}
	return &VehicleMove{
		ID:         m.ID,
		MoveDate:   dateutil.Format(m.MoveDate),
		ReturnDate: dateutil.Format(m.ReturnDate),
	}
}

// Booking 预订契约。
type Booking struct {
	ID                 uint         `json:"id"`
	Reference          string       `json:"reference"`
	Branch             string       `json:"branch"`
	Vehicle            *Vehicle     `json:"vehicle,omitempty"`
	VehicleMove        *VehicleMove `json:"vehicleMove,omitempty"`
	PickupDate         string       `json:"pickupDate"`
	ReturnDate         string       `json:"returnDate"`
	DaysCount          int          `json:"daysCount"`
	Price              float64      `json:"price"`
	Validated          bool         `json:"bookingValidated"`
	RequireVehicleMove bool         `json:"requireVehicleMove"`
}

// NewBooking 组装预订契约；vehicle/move 可为 nil。
func NewBooking(b *model.Booking, branchName string, v *model.Vehicle, vb *model.Branch, mv *model.VehicleMove) Booking {
	c := Booking{
		ID:                 b.ID,
		Reference:          b.Reference,
		Branch:             branchName,
		PickupDate:         dateutil.Format(b.PickupDate),
		ReturnDate:         dateutil.Format(b.ReturnDate),
		DaysCount:          b.DaysCount,
		Price:              RoundPrice(b.Price),
		Validated:          b.Validated,
		RequireVehicleMove: mv != nil,
	}
	if v != nil {
		vc := NewVehicle(v, vb)
		c.Vehicle = &vc
	}
	c.VehicleMove = NewVehicleMove(mv)
	return c
}

// SearchResult 可用车辆搜索的单条结果：车辆加上本次窗口的报价。
type SearchResult struct {
	Vehicle            Vehicle `json:"vehicle"`
	DaysCount          int     `json:"daysCount"`
	Price              float64 `json:"price"`
	RequireVehicleMove bool    `json:"requireVehicleMove"`
	PickupDate         string  `json:"pickupDate"`
	ReturnDate         string  `json:"returnDate"`
}

// RoundPrice 金额统一保留两位小数。
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
