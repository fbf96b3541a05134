package model

// 车辆状态（持久化为整数编码）。
const (
	VehicleAvailable       = 0 // 可用
	VehicleInTransit       = 1 // 调拨途中
	VehicleInClientBooking = 2 // 客户租用中
	VehicleMaintenance     = 3 // 维修，无条件不可预订
)

// 车辆类别。
const (
	TypeSmallCar  = 0
	TypeFamilyCar = 1
	TypeSmallVan  = 2
	TypeLargeVan  = 3
)

// ValidVehicleStatus 判断状态编码是否合法。
func ValidVehicleStatus(code int) bool {
	return code >= VehicleAvailable && code <= VehicleMaintenance
}

// ValidVehicleType 判断类别编码是否合法。
func ValidVehicleType(code int) bool {
	return code >= TypeSmallCar && code <= TypeLargeVan
}

// Vehicle 是 vehicles 表的 GORM 模型。
// 一辆车在任一时刻只属于一个分支；注册号在分支内唯一。
type Vehicle struct {
	ID                    uint    `gorm:"primaryKey"`
	BranchID              uint    `gorm:"not null;uniqueIndex:idx_vehicle_reg_branch"`
	Status                int     `gorm:"index;not null"`
	Type                  int     `gorm:"index;not null"`
	RegistrationNumber    string  `gorm:"size:32;not null;uniqueIndex:idx_vehicle_reg_branch"`
	Doors                 int     `gorm:"not null"`
	Seats                 int     `gorm:"not null"`
	AutomaticTransmission bool    `gorm:"not null;default:false"`
	PricePerDay           float64 `gorm:"not null"`
	Name                  string  `gorm:"size:64;not null"`
}
