package handler

import (
	"github.com/bitfantasy/nimo-scm/internal/scm/service"
	"github.com/gin-gonic/gin"
)

// DashboardHandler 看板处理器
type DashboardHandler struct {
	svc *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// GetOrderSummary 客户订单状态汇总
// GET /api/v1/scm/dashboard/order-summary
func (h *DashboardHandler) GetOrderSummary(c *gin.Context) {
	summary, err := h.svc.GetOrderSummary(c.Request.Context())
	if err != nil {
		InternalError(c, "获取订单汇总失败: "+err.Error())
		return
	}
	Success(c, summary)
}

// GetSupplierLoads 供应商负载
// GET /api/v1/scm/dashboard/supplier-loads
func (h *DashboardHandler) GetSupplierLoads(c *gin.Context) {
	loads, err := h.svc.GetSupplierLoads(c.Request.Context())
	if err != nil {
		InternalError(c, "获取供应商负载失败: "+err.Error())
		return
	}
	Success(c, loads)
}

// GetFulfillmentProgress 客户订单履约进度
// GET /api/v1/scm/orders/:id/fulfillment
func (h *DashboardHandler) GetFulfillmentProgress(c *gin.Context) {
	progress, err := h.svc.GetFulfillmentProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "获取履约进度失败: "+err.Error())
		return
	}
	Success(c, progress)
}
