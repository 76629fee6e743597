package handler

import (
	"errors"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/bitfantasy/nimo-scm/internal/scm/repository"
	"github.com/bitfantasy/nimo-scm/internal/scm/service"
	"github.com/gin-gonic/gin"
)

// POHandler 采购订单处理器
type POHandler struct {
	svc *service.PurchaseOrderService
}

func NewPOHandler(svc *service.PurchaseOrderService) *POHandler {
	return &POHandler{svc: svc}
}

// poError 统一映射采购订单服务的错误
func poError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "采购订单不存在")
	case errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, service.ErrOrderNotPlanning):
		Conflict(c, fallback+": "+err.Error())
	case errors.Is(err, service.ErrPlanInvalid):
		BadRequest(c, fallback+": "+err.Error())
	default:
		InternalError(c, fallback+": "+err.Error())
	}
}

// ListPOs 采购订单列表
// GET /api/v1/scm/purchase-orders?supplier_id=xxx&customer_order_id=xxx&status=xxx&search=xxx
func (h *POHandler) ListPOs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"supplier_id":       c.Query("supplier_id"),
		"customer_order_id": c.Query("customer_order_id"),
		"status":            c.Query("status"),
		"search":            c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取采购订单列表失败: "+err.Error())
		return
	}

	Success(c, listResponse(items, page, pageSize, total))
}

// GetPO 采购订单详情
// GET /api/v1/scm/purchase-orders/:id
func (h *POHandler) GetPO(c *gin.Context) {
	id := c.Param("id")
	po, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "采购订单不存在")
		return
	}
	Success(c, po)
}

// ListByCustomerOrder 客户订单下的采购订单
// GET /api/v1/scm/orders/:id/purchase-orders
func (h *POHandler) ListByCustomerOrder(c *gin.Context) {
	orderID := c.Param("id")
	pos, err := h.svc.ListByCustomerOrder(c.Request.Context(), orderID)
	if err != nil {
		InternalError(c, "获取采购订单失败: "+err.Error())
		return
	}
	Success(c, pos)
}

// CreatePurchaseOrders 按分配方案批量创建采购订单
// POST /api/v1/scm/orders/:id/purchase-orders
func (h *POHandler) CreatePurchaseOrders(c *gin.Context) {
	orderID := c.Param("id")

	var plan entity.DistributionPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	plan.CustomerOrderID = orderID

	pos, err := h.svc.CreatePurchaseOrders(c.Request.Context(), orderID, &plan, GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单不存在")
			return
		}
		poError(c, err, "创建采购订单失败")
		return
	}

	Created(c, pos)
}

// ConfirmPO 供应商确认采购订单
// POST /api/v1/scm/purchase-orders/:id/confirm
func (h *POHandler) ConfirmPO(c *gin.Context) {
	id := c.Param("id")
	po, err := h.svc.Confirm(c.Request.Context(), id, GetUserID(c))
	if err != nil {
		poError(c, err, "确认失败")
		return
	}
	Success(c, po)
}

// RejectPO 供应商拒绝采购订单
// POST /api/v1/scm/purchase-orders/:id/reject
func (h *POHandler) RejectPO(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "拒绝原因必填")
		return
	}

	po, err := h.svc.Reject(c.Request.Context(), id, req.Reason, GetUserID(c))
	if err != nil {
		poError(c, err, "拒绝失败")
		return
	}
	Success(c, po)
}

// StartProduction 采购订单进入生产
// POST /api/v1/scm/purchase-orders/:id/start-production
func (h *POHandler) StartProduction(c *gin.Context) {
	po, err := h.svc.StartProduction(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		poError(c, err, "状态流转失败")
		return
	}
	Success(c, po)
}

// ReadyForShipment 采购订单待发货
// POST /api/v1/scm/purchase-orders/:id/ready
func (h *POHandler) ReadyForShipment(c *gin.Context) {
	po, err := h.svc.ReadyForShipment(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		poError(c, err, "状态流转失败")
		return
	}
	Success(c, po)
}

// ShipPO 采购订单发货
// POST /api/v1/scm/purchase-orders/:id/ship
func (h *POHandler) ShipPO(c *gin.Context) {
	po, err := h.svc.Ship(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		poError(c, err, "发货失败")
		return
	}
	Success(c, po)
}

// DeliverPO 采购订单送达
// POST /api/v1/scm/purchase-orders/:id/deliver
func (h *POHandler) DeliverPO(c *gin.Context) {
	po, err := h.svc.Deliver(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		poError(c, err, "送达失败")
		return
	}
	Success(c, po)
}

// CancelPO 取消采购订单
// POST /api/v1/scm/purchase-orders/:id/cancel
func (h *POHandler) CancelPO(c *gin.Context) {
	po, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		poError(c, err, "取消失败")
		return
	}
	Success(c, po)
}

// UpdatePOItem 更新采购订单行项交付细节
// PUT /api/v1/scm/purchase-orders/:id/items/:itemId
func (h *POHandler) UpdatePOItem(c *gin.Context) {
	poID := c.Param("id")
	itemID := c.Param("itemId")

	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.UpdateItem(c.Request.Context(), poID, itemID, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "采购订单行项不存在")
			return
		}
		BadRequest(c, "更新行项失败: "+err.Error())
		return
	}
	Success(c, item)
}
