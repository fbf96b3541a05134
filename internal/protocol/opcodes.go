// Package protocol 定义边缘协议与分支间协议共用的操作码、
// 状态码与消息信封。两层协议的载荷都是 JSON。
package protocol

// 操作码。分支间转发沿用同一套编码作为消息 tag，
// 保证同一 (来源, tag) 上请求与应答成对出现。
const (
	OpGetBranches             = 10 // 获取分支列表（总部本地处理）
	OpSearchAvailableVehicles = 11 // 可用车辆搜索（含跨分支广播）
	OpCreateAccount           = 12 // 游客自助开户
	OpGetAccountDetails       = 20 // 查询当前账户
	OpBookVehicle             = 21 // 创建预订
	OpGetUserBookings         = 22 // 查询用户在某分支的预订
	OpShutdownSystem          = 30 // 软关闭整个系统
	OpGetBranchBookings       = 31 // 查询分支全部预订
	OpCreateUser              = 32 // 员工代客开户
	OpSearchUser              = 33 // 搜索用户账户
	OpUpdateOrCreateVehicle   = 34 // 创建/更新车辆
	OpSearchAllVehicles       = 35 // 车辆档案搜索（非可用性搜索）
	OpChangeBookingStatus     = 36 // 翻转预订的有效标志
	OpGetVehicleMoves         = 37 // 查询分支的未来调拨
	// 广播腿使用独立操作码：被广播到的分支在本地搜索时
	// 必须按“需要调拨”计算窗口，与直达搜索区分开。
	OpClusterSearchBroadcast = 40
)

// OpName 日志用操作码名称。
func OpName(op int) string {
	switch op {
	case OpGetBranches:
		return "GetBranches"
	case OpSearchAvailableVehicles:
		return "SearchAvailableVehicles"
	case OpCreateAccount:
		return "CreateAccount"
	case OpGetAccountDetails:
		return "GetAccountDetails"
	case OpBookVehicle:
		return "BookVehicle"
	case OpGetUserBookings:
		return "GetUserBookings"
	case OpShutdownSystem:
		return "ShutdownSystem"
	case OpGetBranchBookings:
		return "GetBranchBookings"
	case OpCreateUser:
		return "CreateUser"
	case OpSearchUser:
		return "SearchUser"
	case OpUpdateOrCreateVehicle:
		return "UpdateOrCreateVehicle"
	case OpSearchAllVehicles:
		return "SearchAllVehicles"
	case OpChangeBookingStatus:
		return "ChangeBookingStatus"
	case OpGetVehicleMoves:
		return "GetVehicleMoves"
	case OpClusterSearchBroadcast:
		return "ClusterSearchBroadcast"
	default:
		return "Unknown"
	}
}
