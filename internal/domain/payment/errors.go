package payment

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

var (
	ErrPaymentNotFound = apperrors.ErrPaymentNotFound
	ErrInvalidKind     = apperrors.New(apperrors.ErrCodeInvalidParams, "款项类型只能是RENTAL_FEE或FINE").WithField("kind")
	ErrNegativeAmount  = apperrors.New(apperrors.ErrCodeInvalidParams, "金额不能为负数").WithField("amount")
	ErrAlreadyPaid     = apperrors.New(apperrors.ErrCodeBusinessError, "该款项已支付")

	// ErrStaleRecord 条件更新未命中：记录已被支付或已被改为其他款项
	ErrStaleRecord = apperrors.New(apperrors.ErrCodeBusinessError, "支付记录已变更")

	// ErrSessionMismatch 回调中的会话与借阅不对应
	ErrSessionMismatch = apperrors.New(apperrors.ErrCodeInvalidParams, "支付会话与借阅不匹配").WithField("session_id")

	// ErrNotPaidYet 网关尚未确认付款
	ErrNotPaidYet = apperrors.New(apperrors.ErrCodeBusinessError, "支付尚未完成")
)
