package model

import "time"

// Booking 是 bookings 表的 GORM 模型。
// 预订分支（客户下单的分支）与车辆归属分支可以不同；两者不同时
// 必须伴随一条 VehicleMove，调拨窗口在预订窗口前后各加一天。
// 正常流程中预订只会翻转 Validated 标志，不会被删除。
type Booking struct {
	ID            uint      `gorm:"primaryKey"`
	Reference     string    `gorm:"size:36;uniqueIndex"` // 对外的预订编号
	BranchID      uint      `gorm:"index;not null"`
	UserID        uint      `gorm:"index;not null"`
	VehicleID     uint      `gorm:"index;not null"`
	VehicleMoveID *uint     `gorm:"index"`
	PickupDate    time.Time `gorm:"index;not null"`
	ReturnDate    time.Time `gorm:"index;not null"`
	DaysCount     int       `gorm:"not null"`
	Price         float64   `gorm:"not null"`
	Validated     bool      `gorm:"index;not null"`

	// 支付信息落库前由字段加密器封装，这里只存不透明密文。
	CardNumberSealed string `gorm:"size:256"`
	CardExpirySealed string `gorm:"size:256"`
	CardCVCSealed    string `gorm:"size:256"`
}

// VehicleMove 是 vehicle_moves 表的 GORM 模型。
// 表示车辆在归属分支与预订分支之间调拨的时间窗口。
type VehicleMove struct {
	ID         uint      `gorm:"primaryKey"`
	BookingID  uint      `gorm:"index;not null"`
	MoveDate   time.Time `gorm:"index;not null"` // 预订取车日的前一天
	ReturnDate time.Time `gorm:"index;not null"` // 预订还车日的后一天
}
