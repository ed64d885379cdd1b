package handler

import (
	"github.com/gin-gonic/gin"

	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// PaymentHandler 支付记录HTTP处理器
type PaymentHandler struct {
	listUseCase   *apppayment.ListPaymentsUseCase
	getUseCase    *apppayment.GetPaymentUseCase
	createUseCase *apppayment.CreatePaymentUseCase
	paging        dto.Paging
}

// NewPaymentHandler 创建支付处理器
func NewPaymentHandler(
	listUseCase *apppayment.ListPaymentsUseCase,
	getUseCase *apppayment.GetPaymentUseCase,
	createUseCase *apppayment.CreatePaymentUseCase,
	paging dto.Paging,
) *PaymentHandler {
	return &PaymentHandler{
		listUseCase:   listUseCase,
		getUseCase:    getUseCase,
		createUseCase: createUseCase,
		paging:        paging,
	}
}

// ListPayments 支付记录列表，非管理员只能看到自己借阅下的记录
// @Summary      支付记录列表
// @Tags         支付
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]apppayment.PaymentView}}
// @Router       /api/v1/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	var q dto.ListPaymentsQuery
	if !bindQuery(c, &q) {
		return
	}
	page, pageSize := q.Resolve(h.paging)

	result, err := h.listUseCase.Execute(c.Request.Context(), apppayment.ListPaymentsRequest{
		UserID:   middleware.GetUserID(c),
		IsStaff:  middleware.IsStaff(c),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.Payments, result.Total, result.Page, result.PageSize)
}

// GetPayment 支付记录详情
// @Summary      支付记录详情
// @Tags         支付
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "支付记录ID"
// @Success      200 {object} response.Response{data=apppayment.PaymentView}
// @Failure      404 {object} response.Response
// @Router       /api/v1/payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.getUseCase.Execute(c.Request.Context(), apppayment.GetPaymentRequest{
		ID:      id,
		UserID:  middleware.GetUserID(c),
		IsStaff: middleware.IsStaff(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CreatePayment 为自己的借阅创建支付记录
// @Summary      创建支付记录
// @Tags         支付
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "幂等键"
// @Param        request body dto.CreatePaymentRequest true "支付信息"
// @Success      201 {object} response.Response{data=apppayment.PaymentView}
// @Failure      403 {object} response.Response "不是借阅人本人"
// @Failure      409 {object} response.Response "相同Idempotency-Key的请求正在处理"
// @Router       /api/v1/payments [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if !bindJSON(c, &req, false) {
		return
	}
	kind, err := payment.ParseKind(req.Kind)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.createUseCase.Execute(c.Request.Context(), apppayment.CreatePaymentRequest{
		UserID:      middleware.GetUserID(c),
		BorrowingID: req.BorrowingID,
		Kind:        kind,
		Amount:      *req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
