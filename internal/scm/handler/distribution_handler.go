package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/bitfantasy/nimo-scm/internal/scm/repository"
	"github.com/bitfantasy/nimo-scm/internal/scm/service"
	"github.com/gin-gonic/gin"
)

// DistributionHandler 分配建议处理器
type DistributionHandler struct {
	eligibility  *service.EligibilityService
	distribution *service.DistributionService
}

func NewDistributionHandler(eligibility *service.EligibilityService, distribution *service.DistributionService) *DistributionHandler {
	return &DistributionHandler{eligibility: eligibility, distribution: distribution}
}

// ListEligibleSuppliers 准入供应商列表
// GET /api/v1/scm/suppliers/eligible?product_type=xxx&quantity=xxx
func (h *DistributionHandler) ListEligibleSuppliers(c *gin.Context) {
	productType := c.Query("product_type")
	if productType != entity.ProductTypeLMR && productType != entity.ProductTypeFFV {
		BadRequest(c, "product_type必须是lmr或ffv")
		return
	}

	quantity := 0
	if q := c.Query("quantity"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 0 {
			BadRequest(c, "quantity必须是非负整数")
			return
		}
		quantity = v
	}

	infos, err := h.eligibility.EligibleSuppliers(c.Request.Context(), productType, quantity)
	if err != nil {
		InternalError(c, "获取准入供应商失败: "+err.Error())
		return
	}

	Success(c, infos)
}

// SuggestDistribution 生成分配建议
// GET /api/v1/scm/orders/:id/distribution-suggestion?strategy=xxx
func (h *DistributionHandler) SuggestDistribution(c *gin.Context) {
	orderID := c.Param("id")
	strategy := c.Query("strategy")

	suggestion, err := h.distribution.SuggestDistribution(c.Request.Context(), orderID, strategy)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单不存在")
			return
		}
		BadRequest(c, "生成分配建议失败: "+err.Error())
		return
	}

	Success(c, suggestion)
}

// ValidateDistribution 校验分配方案
// POST /api/v1/scm/orders/:id/distribution-validation
func (h *DistributionHandler) ValidateDistribution(c *gin.Context) {
	orderID := c.Param("id")

	var plan entity.DistributionPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	plan.CustomerOrderID = orderID

	result, err := h.distribution.ValidateDistribution(c.Request.Context(), &plan)
	if err != nil {
		BadRequest(c, "分配方案校验失败: "+err.Error())
		return
	}

	Success(c, result)
}
