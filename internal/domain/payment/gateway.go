package payment

import (
	"context"

	"github.com/shopspring/decimal"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// ErrUnavailable 网关未配置或不可达
// 借阅/归还流程遇到它时降级为无会话的支付记录，不向用户报错
var ErrUnavailable = apperrors.ErrGatewayUnavailable

// SessionRequest 开启会话的参数
type SessionRequest struct {
	PaymentID   uint
	BorrowingID uint // 关联ID，出现在回调链接中
	Kind        Kind
	Amount      decimal.Decimal
	Title       string // 商品名，一般是书名
	Description string
}

// Gateway 托管收银台（Stripe Checkout等）
// 会话自创建起30分钟后由网关侧失效，本系统不轮询
type Gateway interface {
	OpenSession(ctx context.Context, req SessionRequest) (*Session, error)

	// IsPaid 向网关核实会话是否已付款
	IsPaid(ctx context.Context, sessionID string) (bool, error)

	// ExpireSession 让会话立即失效（补偿或被罚金替换时调用），已失效的会话视为成功
	ExpireSession(ctx context.Context, sessionID string) error
}

// MinorUnits 金额转最小货币单位（×100 后截断取整）
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Truncate(0).IntPart()
}
