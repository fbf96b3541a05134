package contract

// CreateBookingInput 创建预订请求。
// BookingBranchID 是受理预订的分支；车辆归属分支以车辆记录为准。
type CreateBookingInput struct {
	BookingBranchID uint   `json:"bookingBranchId"`
	VehicleID       uint   `json:"vehicleId"`
	PickupDate      string `json:"pickupDate"`
	ReturnDate      string `json:"returnDate"`
	// BookingOwnerUserID 员工代客下单时填写，普通用户必须为空。
	BookingOwnerUserID uint   `json:"bookingOwnerUserId,omitempty"`
	CardNumber         string `json:"cardNumber"`
	CardExpiry         string `json:"cardExpiry"`
	CardCVC            string `json:"cardCvc"`
}

// SearchAvailableVehiclesInput 按车型与时间窗查询可用车辆。
type SearchAvailableVehiclesInput struct {
	VehicleTypeID int    `json:"vehicleTypeId"`
	PickupDate    string `json:"pickupDate"`
	ReturnDate    string `json:"returnDate"`
}

// ChangeBookingStatusInput 员工确认或作废预订。
type ChangeBookingStatusInput struct {
	BookingID uint `json:"bookingId"`
	Validated bool `json:"validated"`
}

// SearchVehicleInput 车辆检索：注册号优先，否则按车型。
type SearchVehicleInput struct {
	RegistrationNumber string `json:"registrationNumber"`
	VehicleTypeID      int    `json:"vehicleTypeId"`
}

// UpdateOrCreateVehicleInput 车辆建档或状态调整。
type UpdateOrCreateVehicleInput struct {
	VehicleID             uint    `json:"vehicleId,omitempty"`
	Status                int     `json:"status"`
	Type                  int     `json:"type"`
	RegistrationNumber    string  `json:"registrationNumber"`
	Doors                 int     `json:"doors"`
	Seats                 int     `json:"seats"`
	AutomaticTransmission bool    `json:"automaticTransmission"`
	PricePerDay           float64 `json:"pricePerDay"`
	Name                  string  `json:"name"`
}

// GetVehicleMovesInput Outgoing 为真取离站调拨，否则取到站调拨。
type GetVehicleMovesInput struct {
	Outgoing bool `json:"outgoing"`
}

// CreateAccountInput 开户请求；员工账户仅能由员工创建。
type CreateAccountInput struct {
	FullName    string `json:"fullName"`
	Email       string `json:"emailAddress"`
	Password    string `json:"password"`
	Staff       bool   `json:"isStaff"`
	PhoneNumber string `json:"phoneNumber"`
	Street      string `json:"street"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country"`
}

// SearchUserInput 员工按邮箱查找普通用户。
type SearchUserInput struct {
	Email string `json:"emailAddress"`
}
