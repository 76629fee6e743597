package entity

import "time"

// Supplier 供应商
type Supplier struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	Code      string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name      string `json:"name" gorm:"size:200;not null"`
	ShortName string `json:"short_name" gorm:"size:50"`
	Active    bool   `json:"active" gorm:"default:true"`

	// 联系方式
	ContactName  string `json:"contact_name" gorm:"size:100"`
	ContactPhone string `json:"contact_phone" gorm:"size:50"`
	ContactEmail string `json:"contact_email" gorm:"size:200"`
	Address      string `json:"address" gorm:"size:500"`

	// 管理
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	Capabilities []SupplierCapability        `json:"capabilities,omitempty" gorm:"foreignKey:SupplierID"`
	Performance  *SupplierPerformanceMetrics `json:"performance,omitempty" gorm:"foreignKey:SupplierID"`
}

func (Supplier) TableName() string {
	return "scm_suppliers"
}

// CapabilityFor 返回指定产品类型的产能记录，没有则返回nil
func (s *Supplier) CapabilityFor(productType string) *SupplierCapability {
	for i := range s.Capabilities {
		if s.Capabilities[i].ProductType == productType {
			return &s.Capabilities[i]
		}
	}
	return nil
}

// SupplierCapability 供应商产能，每种产品类型一条
type SupplierCapability struct {
	ID                 string  `json:"id" gorm:"primaryKey;size:32"`
	SupplierID         string  `json:"supplier_id" gorm:"size:32;not null;index:idx_capability_supplier_type,unique"`
	ProductType        string  `json:"product_type" gorm:"size:20;not null;index:idx_capability_supplier_type,unique"`
	MaxMonthlyCapacity int     `json:"max_monthly_capacity" gorm:"not null"`
	CurrentCommitments int     `json:"current_commitments" gorm:"default:0"`
	QualityRating      float64 `json:"quality_rating" gorm:"type:decimal(3,2);default:0"` // 0-5
	Active             bool    `json:"active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SupplierCapability) TableName() string {
	return "scm_supplier_capabilities"
}

// AvailableCapacity 剩余产能 = max(0, 最大产能 - 已承诺量)
func (c *SupplierCapability) AvailableCapacity() int {
	avail := c.MaxMonthlyCapacity - c.CurrentCommitments
	if avail < 0 {
		return 0
	}
	return avail
}

// IsOverCommitted 已承诺量超过最大产能
func (c *SupplierCapability) IsOverCommitted() bool {
	return c.CurrentCommitments > c.MaxMonthlyCapacity
}

// UtilizationRate 产能占用率 0-1
func (c *SupplierCapability) UtilizationRate() float64 {
	if c.MaxMonthlyCapacity <= 0 {
		return 1
	}
	rate := float64(c.CurrentCommitments) / float64(c.MaxMonthlyCapacity)
	if rate > 1 {
		return 1
	}
	return rate
}

// SupplierPerformanceMetrics 供应商绩效指标
type SupplierPerformanceMetrics struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	SupplierID string `json:"supplier_id" gorm:"size:32;not null;uniqueIndex"`

	OnTimeRate       float64  `json:"on_time_rate" gorm:"type:decimal(4,3);default:0"`  // 0-1
	QualityScore     float64  `json:"quality_score" gorm:"type:decimal(3,2);default:0"` // 0-5
	CompletedOrders  int      `json:"completed_orders" gorm:"default:0"`
	OnTimeOrders     int      `json:"on_time_orders" gorm:"default:0"`
	LateOrders       int      `json:"late_orders" gorm:"default:0"`
	CancelledOrders  int      `json:"cancelled_orders" gorm:"default:0"`
	SatisfactionRate *float64 `json:"satisfaction_rate" gorm:"type:decimal(4,3)"`
	AvgDeliveryDays  float64  `json:"avg_delivery_days" gorm:"type:decimal(6,2);default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SupplierPerformanceMetrics) TableName() string {
	return "scm_supplier_performance_metrics"
}

// OverallScore 综合绩效: 准时率60% + 质量40%（质量归一到0-1）
func (m *SupplierPerformanceMetrics) OverallScore() float64 {
	return m.OnTimeRate*0.6 + (m.QualityScore/5.0)*0.4
}
