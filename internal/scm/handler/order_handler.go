package handler

import (
	"errors"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/bitfantasy/nimo-scm/internal/scm/repository"
	"github.com/bitfantasy/nimo-scm/internal/scm/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler 客户订单处理器
type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// ListOrders 客户订单列表
// GET /api/v1/scm/orders?customer_id=xxx&status=xxx&product_type=xxx&search=xxx
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"customer_id":  c.Query("customer_id"),
		"status":       c.Query("status"),
		"product_type": c.Query("product_type"),
		"search":       c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}

	Success(c, listResponse(items, page, pageSize, total))
}

// GetOrder 客户订单详情
// GET /api/v1/scm/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")
	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "订单不存在")
		return
	}
	Success(c, order)
}

// CreateOrder 创建客户订单
// POST /api/v1/scm/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	userID := GetUserID(c)
	order, err := h.svc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		BadRequest(c, "创建订单失败: "+err.Error())
		return
	}

	Created(c, order)
}

// UpdateOrder 更新客户订单
// PUT /api/v1/scm/orders/:id
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id := c.Param("id")
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单不存在")
			return
		}
		BadRequest(c, "更新订单失败: "+err.Error())
		return
	}

	Success(c, order)
}

// UpdateOrderStatus 推进客户订单状态
// POST /api/v1/scm/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status, GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单不存在")
			return
		}
		if errors.Is(err, entity.ErrInvalidTransition) {
			Conflict(c, "状态流转不允许: "+err.Error())
			return
		}
		InternalError(c, "状态更新失败: "+err.Error())
		return
	}

	Success(c, order)
}

// CancelOrder 取消客户订单
// POST /api/v1/scm/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id := c.Param("id")
	order, err := h.svc.Cancel(c.Request.Context(), id, GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单不存在")
			return
		}
		if errors.Is(err, entity.ErrInvalidTransition) {
			Conflict(c, "订单已终结，不能取消")
			return
		}
		InternalError(c, "取消订单失败: "+err.Error())
		return
	}

	Success(c, order)
}

// DeleteOrder 删除客户订单（仅submitted状态）
// DELETE /api/v1/scm/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单不存在")
			return
		}
		Conflict(c, "删除订单失败: "+err.Error())
		return
	}
	Success(c, nil)
}
