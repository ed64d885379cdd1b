package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appborrowing "github.com/xiebiao/library/internal/application/borrowing"
	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

// BorrowingHandler 借阅HTTP处理器，包括支付网关的回跳地址
type BorrowingHandler struct {
	createUseCase  *appborrowing.CreateBorrowingUseCase
	returnUseCase  *appborrowing.ReturnBorrowingUseCase
	getUseCase     *appborrowing.GetBorrowingUseCase
	listUseCase    *appborrowing.ListBorrowingsUseCase
	confirmUseCase *apppayment.ConfirmPaymentUseCase
	cancelUseCase  *apppayment.CancelPaymentUseCase
	paging         dto.Paging
}

// NewBorrowingHandler 创建借阅处理器
func NewBorrowingHandler(
	createUseCase *appborrowing.CreateBorrowingUseCase,
	returnUseCase *appborrowing.ReturnBorrowingUseCase,
	getUseCase *appborrowing.GetBorrowingUseCase,
	listUseCase *appborrowing.ListBorrowingsUseCase,
	confirmUseCase *apppayment.ConfirmPaymentUseCase,
	cancelUseCase *apppayment.CancelPaymentUseCase,
	paging dto.Paging,
) *BorrowingHandler {
	return &BorrowingHandler{
		createUseCase:  createUseCase,
		returnUseCase:  returnUseCase,
		getUseCase:     getUseCase,
		listUseCase:    listUseCase,
		confirmUseCase: confirmUseCase,
		cancelUseCase:  cancelUseCase,
		paging:         paging,
	}
}

// CreateBorrowing 借书
// @Summary      借书
// @Description  扣减库存并生成租金支付记录；支付网关不可用时借阅照常成功
// @Tags         借阅
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "幂等键"
// @Param        request body dto.CreateBorrowingRequest true "借阅信息"
// @Success      201 {object} response.Response{data=appborrowing.BorrowingView}
// @Failure      400 {object} response.Response "日期不合法或库存不足"
// @Failure      409 {object} response.Response "相同Idempotency-Key的请求正在处理"
// @Router       /api/v1/borrowings [post]
func (h *BorrowingHandler) CreateBorrowing(c *gin.Context) {
	var req dto.CreateBorrowingRequest
	if !bindJSON(c, &req, false) {
		return
	}
	expected, err := dto.ParseDate(req.ExpectedReturnDate, "expected_return_date")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.createUseCase.Execute(c.Request.Context(), appborrowing.CreateBorrowingRequest{
		UserID:             middleware.GetUserID(c),
		UserEmail:          middleware.GetEmail(c),
		BookID:             req.Book,
		ExpectedReturnDate: expected,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListBorrowings 借阅列表
// @Summary      借阅列表
// @Description  普通用户只能看到自己的借阅；user_id、is_active 过滤只对管理员生效
// @Tags         借阅
// @Security     BearerAuth
// @Produce      json
// @Param        page       query int  false "页码"
// @Param        page_size  query int  false "每页数量"
// @Param        user_id    query int  false "用户ID（管理员）"
// @Param        is_active  query bool false "是否未归还（管理员）"
// @Success      200 {object} response.Response{data=response.PageData{list=[]appborrowing.BorrowingView}}
// @Router       /api/v1/borrowings [get]
func (h *BorrowingHandler) ListBorrowings(c *gin.Context) {
	var q dto.ListBorrowingsQuery
	if !bindQuery(c, &q) {
		return
	}
	page, pageSize := q.Resolve(h.paging)

	result, err := h.listUseCase.Execute(c.Request.Context(), appborrowing.ListBorrowingsRequest{
		UserID:       middleware.GetUserID(c),
		IsStaff:      middleware.IsStaff(c),
		FilterUserID: q.UserID,
		IsActive:     q.IsActive,
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.Borrowings, result.Total, result.Page, result.PageSize)
}

// GetBorrowing 借阅详情
// @Summary      借阅详情
// @Tags         借阅
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "借阅ID"
// @Success      200 {object} response.Response{data=appborrowing.BorrowingView}
// @Failure      404 {object} response.Response
// @Router       /api/v1/borrowings/{id} [get]
func (h *BorrowingHandler) GetBorrowing(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.getUseCase.Execute(c.Request.Context(), appborrowing.GetBorrowingRequest{
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

// DeleteBorrowing 借阅记录不允许删除
// @Summary      删除借阅（不允许）
// @Tags         借阅
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "借阅ID"
// @Failure      405 {object} response.Response
// @Router       /api/v1/borrowings/{id} [delete]
func (h *BorrowingHandler) DeleteBorrowing(c *gin.Context) {
	c.Header("Allow", http.MethodGet)
	response.Error(c, apperrors.New(apperrors.ErrCodeMethodNotAllowed, "借阅记录不允许删除"))
}

// ReturnBorrowing 还书
// @Summary      还书
// @Description  仅借阅人本人可操作；逾期时生成罚金并开启支付会话
// @Tags         借阅
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path int                        true  "借阅ID"
// @Param        request body dto.ReturnBorrowingRequest true  "实际归还日期，必须晚于今天"
// @Success      200 {object} response.Response{data=appborrowing.BorrowingView}
// @Failure      400 {object} response.Response "已归还或日期不合法"
// @Failure      403 {object} response.Response
// @Router       /api/v1/borrowings/{id}/return [post]
func (h *BorrowingHandler) ReturnBorrowing(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReturnBorrowingRequest
	if !bindJSON(c, &req, true) {
		return
	}
	actual, err := dto.ParseOptionalDate(req.ActualReturnDate, "actual_return_date")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.returnUseCase.Execute(c.Request.Context(), appborrowing.ReturnBorrowingRequest{
		BorrowingID:      id,
		UserID:           middleware.GetUserID(c),
		UserEmail:        middleware.GetEmail(c),
		ActualReturnDate: actual,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// PaymentSuccess 支付网关成功回跳
// @Summary      支付成功回跳
// @Description  向网关核实后把支付记录置为PAID，重复回跳不会重复处理
// @Tags         支付
// @Produce      json
// @Param        id         path  int    true "借阅ID"
// @Param        session_id query string true "网关会话ID"
// @Success      200 {object} response.Response{data=apppayment.ConfirmPaymentResponse}
// @Failure      400 {object} response.Response "会话不属于该借阅或尚未付款"
// @Failure      503 {object} response.Response "支付网关不可用"
// @Router       /api/v1/borrowings/{id}/success [get]
func (h *BorrowingHandler) PaymentSuccess(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q dto.SessionQuery
	if !bindQuery(c, &q) {
		return
	}

	result, err := h.confirmUseCase.Execute(c.Request.Context(), apppayment.ConfirmPaymentRequest{
		BorrowingID: id,
		SessionID:   q.SessionID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// PaymentCancel 支付网关取消回跳
// @Summary      支付取消回跳
// @Tags         支付
// @Produce      json
// @Param        id         path  int    true "借阅ID"
// @Param        session_id query string true "网关会话ID"
// @Success      200 {object} response.Response{data=apppayment.CancelPaymentResponse}
// @Router       /api/v1/borrowings/{id}/cancel [get]
func (h *BorrowingHandler) PaymentCancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q dto.SessionQuery
	if !bindQuery(c, &q) {
		return
	}

	result, err := h.cancelUseCase.Execute(c.Request.Context(), apppayment.ConfirmPaymentRequest{
		BorrowingID: id,
		SessionID:   q.SessionID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
