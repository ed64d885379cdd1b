package errors

import (
	"errors"
	"fmt"
)

// AppError 应用层统一错误
// 1. Code 是业务错误码，客户端据此判断错误类型
// 2. Message 是可直接展示给用户的提示
// 3. Field 标记出错的输入字段（可选），比如 expected_return_date
// 4. Err 是内部错误，只进日志不回给客户端
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	prefix := fmt.Sprintf("[%d] %s", e.Code, e.Message)
	if e.Field != "" {
		prefix = fmt.Sprintf("[%d] %s (%s)", e.Code, e.Message, e.Field)
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较
// 预定义错误经过 WithField / WithErr 派生后仍能被 errors.Is 命中
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithField 派生一个带字段标记的副本，不修改预定义错误本身
func (e *AppError) WithField(field string) *AppError {
	cp := *e
	cp.Field = field
	return &cp
}

// WithErr 派生一个携带内部错误的副本
func (e *AppError) WithErr(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 把底层错误（数据库、网络）包装成内部错误，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（数据库异常、外部服务调用失败）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal           = 50000 // 内部错误
	ErrCodeDatabaseError      = 50001 // 数据库错误
	ErrCodeRedisError         = 50002 // Redis错误
	ErrCodeGatewayUnavailable = 50301 // 支付网关不可用

	// 认证授权错误（40100-40199）
	ErrCodeUnauthorized    = 40100 // 未登录
	ErrCodeInvalidToken    = 40101 // Token无效
	ErrCodeTokenExpired    = 40102 // Token过期
	ErrCodeInvalidPassword = 40103 // 密码错误
	ErrCodeForbidden       = 40104 // 无权限

	// 资源错误（40400-40499）
	ErrCodeNotFound          = 40400 // 资源不存在(通用)
	ErrCodeUserNotFound      = 40401 // 用户不存在
	ErrCodeBookNotFound      = 40402 // 图书不存在
	ErrCodeBorrowingNotFound = 40403 // 借阅记录不存在
	ErrCodePaymentNotFound   = 40404 // 支付记录不存在

	// 方法不允许（40500）
	ErrCodeMethodNotAllowed = 40500

	// 业务规则错误（40000-40099）
	ErrCodeBusinessError   = 40000 // 业务错误(通用)
	ErrCodeOutOfStock      = 40001 // 库存不足
	ErrCodeInvalidDate     = 40002 // 日期不合法
	ErrCodeEmailDuplicate  = 40003 // 邮箱已存在
	ErrCodeAlreadyReturned = 40004 // 已归还
	ErrCodeWeakPassword    = 40005 // 密码强度不足
	ErrCodeBookInUse       = 40006 // 图书存在借阅记录，不可删除
	ErrCodeInvalidFee      = 40007 // 日租金不合法
	ErrCodeDuplicateEntry  = 40009 // 重复记录(通用)

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
	ErrCodeInProgress    = 40902 // 同一个Idempotency-Key的请求仍在处理
)

// =========================================
// 预定义错误
// =========================================

var (
	// 系统错误
	ErrInternal           = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError      = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError         = New(ErrCodeRedisError, "缓存服务错误")
	ErrGatewayUnavailable = New(ErrCodeGatewayUnavailable, "支付服务暂不可用")

	// 认证授权
	ErrUnauthorized    = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken    = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired    = New(ErrCodeTokenExpired, "Token已过期")
	ErrInvalidPassword = New(ErrCodeInvalidPassword, "密码错误")
	ErrForbidden       = New(ErrCodeForbidden, "无权限访问")

	// 资源不存在
	ErrNotFound          = New(ErrCodeNotFound, "资源不存在")
	ErrUserNotFound      = New(ErrCodeUserNotFound, "用户不存在")
	ErrBookNotFound      = New(ErrCodeBookNotFound, "图书不存在")
	ErrBorrowingNotFound = New(ErrCodeBorrowingNotFound, "借阅记录不存在")
	ErrPaymentNotFound   = New(ErrCodePaymentNotFound, "支付记录不存在")

	ErrMethodNotAllowed = New(ErrCodeMethodNotAllowed, "不允许的操作")

	// 业务规则
	ErrOutOfStock      = New(ErrCodeOutOfStock, "图书库存不足")
	ErrInvalidDate     = New(ErrCodeInvalidDate, "日期不合法")
	ErrEmailDuplicate  = New(ErrCodeEmailDuplicate, "邮箱已被注册")
	ErrAlreadyReturned = New(ErrCodeAlreadyReturned, "该借阅已归还")
	ErrWeakPassword    = New(ErrCodeWeakPassword, "密码强度不足（需8-20位，包含字母和数字）")
	ErrBookInUse       = New(ErrCodeBookInUse, "图书存在借阅记录，无法删除")
	ErrInvalidFee      = New(ErrCodeInvalidFee, "日租金不能为负数")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
	ErrInProgress    = New(ErrCodeInProgress, "相同的请求正在处理，请稍后重试")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}
