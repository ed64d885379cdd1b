package handler

import (
	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/pkg/response"
)

// BookHandler 图书HTTP处理器
type BookHandler struct {
	listUseCase   *appbook.ListBooksUseCase
	getUseCase    *appbook.GetBookUseCase
	addUseCase    *appbook.AddBookUseCase
	updateUseCase *appbook.UpdateBookUseCase
	deleteUseCase *appbook.DeleteBookUseCase
	paging        dto.Paging
}

// NewBookHandler 创建图书处理器
func NewBookHandler(
	listUseCase *appbook.ListBooksUseCase,
	getUseCase *appbook.GetBookUseCase,
	addUseCase *appbook.AddBookUseCase,
	updateUseCase *appbook.UpdateBookUseCase,
	deleteUseCase *appbook.DeleteBookUseCase,
	paging dto.Paging,
) *BookHandler {
	return &BookHandler{
		listUseCase:   listUseCase,
		getUseCase:    getUseCase,
		addUseCase:    addUseCase,
		updateUseCase: updateUseCase,
		deleteUseCase: deleteUseCase,
		paging:        paging,
	}
}

// ListBooks 图书列表
// @Summary      图书列表
// @Tags         图书
// @Security     BearerAuth
// @Produce      json
// @Param        page       query int    false "页码"
// @Param        page_size  query int    false "每页数量（默认5，最大100）"
// @Param        keyword    query string false "书名或作者"
// @Param        available  query bool   false "只看有库存"
// @Success      200 {object} response.Response{data=response.PageData{list=[]appbook.BookView}}
// @Router       /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var q dto.ListBooksQuery
	if !bindQuery(c, &q) {
		return
	}
	page, pageSize := q.Resolve(h.paging)

	result, err := h.listUseCase.Execute(c.Request.Context(), appbook.ListBooksRequest{
		Page:      page,
		PageSize:  pageSize,
		Keyword:   q.Keyword,
		Available: q.Available,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.List, result.Total, result.Page, result.PageSize)
}

// GetBook 图书详情
// @Summary      图书详情
// @Tags         图书
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=appbook.BookView}
// @Failure      404 {object} response.Response
// @Router       /api/v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.getUseCase.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CreateBook 新增图书（管理员）
// @Summary      新增图书
// @Tags         图书
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateBookRequest true "图书信息"
// @Success      201 {object} response.Response{data=appbook.BookView}
// @Failure      400 {object} response.Response
// @Failure      403 {object} response.Response
// @Router       /api/v1/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req dto.CreateBookRequest
	if !bindJSON(c, &req, false) {
		return
	}
	cover, err := book.ParseCover(req.Cover)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.addUseCase.Execute(c.Request.Context(), appbook.AddBookRequest{
		Title:     req.Title,
		Author:    req.Author,
		Cover:     cover,
		Inventory: *req.Inventory,
		DailyFee:  *req.DailyFee,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// UpdateBook 修改图书（管理员）
// @Summary      修改图书
// @Tags         图书
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path int                   true "图书ID"
// @Param        request body dto.UpdateBookRequest true "要修改的字段"
// @Success      200 {object} response.Response{data=appbook.BookView}
// @Router       /api/v1/books/{id} [patch]
func (h *BookHandler) UpdateBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateBookRequest
	if !bindJSON(c, &req, false) {
		return
	}

	changes := book.Changes{
		Title:     req.Title,
		Author:    req.Author,
		Inventory: req.Inventory,
		DailyFee:  req.DailyFee,
	}
	if req.Cover != nil {
		cover, err := book.ParseCover(*req.Cover)
		if err != nil {
			response.Error(c, err)
			return
		}
		changes.Cover = &cover
	}

	result, err := h.updateUseCase.Execute(c.Request.Context(), appbook.UpdateBookRequest{ID: id, Changes: changes})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteBook 删除图书（管理员），存在借阅记录时拒绝
// @Summary      删除图书
// @Tags         图书
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.Response "存在借阅记录"
// @Router       /api/v1/books/{id} [delete]
func (h *BookHandler) DeleteBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.deleteUseCase.Execute(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
