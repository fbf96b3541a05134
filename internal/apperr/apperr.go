package apperr

import (
	"errors"
	"fmt"
)

// 协议状态码（边缘协议与分支协议共用同一套）。
const (
	StatusOK           = 200
	StatusInvalid      = 400
	StatusUnauthorized = 401
	StatusNotFound     = 404
	StatusInternal     = 500
	StatusUnavailable  = 503
)

// Kind 业务错误分类。
type Kind int

const (
	KindInvalidProperty Kind = iota + 1 // 输入属性不合法
	KindInvalidDate                     // 日期/时长规则不满足
	KindVehicleUnavailable              // 车辆在目标窗口不可用
	KindNotAuthorized                   // 认证/权限失败（仅边缘层产生）
	KindBranchNotFound                  // 目标分支不存在
	KindCommunication                   // 集群通信失败
	KindServer                          // 未预期的内部错误
	KindUnavailable                     // 系统处于软关闭状态
)

// Error 携带分类与用户可见文案的业务错误。
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func InvalidProperty(msg string) error { return &Error{Kind: KindInvalidProperty, Msg: msg} }
func InvalidDate(msg string) error     { return &Error{Kind: KindInvalidDate, Msg: msg} }

// 固定文案的错误直接用哨兵值，便于 errors.Is 判断。
var (
	ErrVehicleUnavailable = &Error{Kind: KindVehicleUnavailable, Msg: "Vehicle unavailable"}
	ErrNotAuthorized      = &Error{Kind: KindNotAuthorized, Msg: "Unauthorized"}
	ErrBranchNotFound     = &Error{Kind: KindBranchNotFound, Msg: "Branch not found"}
	ErrUnavailable        = &Error{Kind: KindUnavailable, Msg: "Service unavailable"}
	ErrEmailInUse         = &Error{Kind: KindInvalidProperty, Msg: "Email already in use"}
	ErrRegistrationInUse  = &Error{Kind: KindInvalidProperty, Msg: "Registration number already in use"}
)

// Communication 把一次传输失败包装成对外不透明的 500。
func Communication(err error) error {
	return &Error{Kind: KindCommunication, Msg: "Branch error", Err: err}
}

// Server 未分类的内部错误。
func Server(err error) error {
	return &Error{Kind: KindServer, Msg: "Server error", Err: err}
}

// Status 将错误映射为协议状态码；nil 映射为 200。
func Status(err error) int {
	if err == nil {
		return StatusOK
	}
	var ae *Error
	if !errors.As(err, &ae) {
		return StatusInternal
	}
	switch ae.Kind {
	case KindInvalidProperty, KindInvalidDate, KindVehicleUnavailable:
		return StatusInvalid
	case KindNotAuthorized:
		return StatusUnauthorized
	case KindBranchNotFound:
		return StatusNotFound
	case KindUnavailable:
		return StatusUnavailable
	default:
		return StatusInternal
	}
}

// FromStatus 依据远端应答的状态码还原本地错误，转发链路用。
// 400/401/404 保留远端文案，500/503 维持不透明。
func FromStatus(status int, msg string) error {
	switch status {
	case StatusOK:
		return nil
	case StatusInvalid:
		return &Error{Kind: KindInvalidProperty, Msg: msg}
	case StatusUnauthorized:
		return &Error{Kind: KindNotAuthorized, Msg: msg}
	case StatusNotFound:
		return &Error{Kind: KindBranchNotFound, Msg: msg}
	case StatusUnavailable:
		return ErrUnavailable
	default:
		return &Error{Kind: KindServer, Msg: "Server error"}
	}
}

// Message 用户可见文案。400/401/404 透出具体信息，500/503 只给通用文案，
// 避免把内部拓扑状态泄露给调用方。
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if !errors.As(err, &ae) {
		return "Server error"
	}
	return ae.Msg
}
