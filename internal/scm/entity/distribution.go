package entity

// 分配策略
const (
	StrategyEven        = "even"
	StrategyPerformance = "performance"
	StrategyCapacity    = "capacity"
	StrategyBalanced    = "balanced"
)

// SupplierAllocation 单个供应商的分配结果，计算值不落库
type SupplierAllocation struct {
	SupplierID        string  `json:"supplier_id"`
	SupplierName      string  `json:"supplier_name"`
	Quantity          int     `json:"quantity"`
	Percentage        float64 `json:"percentage"`
	AvailableCapacity int     `json:"available_capacity"`
	PerformanceScore  float64 `json:"performance_score"`
	QualityRating     float64 `json:"quality_rating"`
	OnTimeRate        float64 `json:"on_time_rate"`
	Reason            string  `json:"reason"`
}

// DistributionPlan 分配方案
type DistributionPlan struct {
	CustomerOrderID     string               `json:"customer_order_id"`
	TotalQuantity       int                  `json:"total_quantity"`
	ProductType         string               `json:"product_type"`
	Allocations         []SupplierAllocation `json:"allocations"`
	Strategy            string               `json:"strategy"`
	CapacityUtilization float64              `json:"capacity_utilization"`
	Notes               string               `json:"notes"`
}

// AllocatedQuantity 已分配数量合计
func (p *DistributionPlan) AllocatedQuantity() int {
	total := 0
	for _, a := range p.Allocations {
		total += a.Quantity
	}
	return total
}

// FullyAllocated 已分配数量等于需求总量
func (p *DistributionPlan) FullyAllocated() bool {
	return p.AllocatedQuantity() == p.TotalQuantity
}

// DistributionSuggestion 分配建议，SuggestDistribution 的返回值
type DistributionSuggestion struct {
	DistributionPlan
	OrderNo      string `json:"order_no"`
	CustomerName string `json:"customer_name"`
}

// AllocationValidation 单个分配的校验结果
type AllocationValidation struct {
	SupplierID        string   `json:"supplier_id"`
	SupplierName      string   `json:"supplier_name"`
	Quantity          int      `json:"quantity"`
	AvailableCapacity int      `json:"available_capacity"`
	Valid             bool     `json:"valid"`
	Errors            []string `json:"errors,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// ValidationResult 分配方案校验结果，警告不阻断操作
type ValidationResult struct {
	Valid       bool                   `json:"valid"`
	Errors      []string               `json:"errors,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
	PerSupplier []AllocationValidation `json:"per_supplier,omitempty"`
}
