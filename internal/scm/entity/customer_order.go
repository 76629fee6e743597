package entity

import (
	"fmt"
	"time"
)

// CustomerOrder 客户订单
type CustomerOrder struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	OrderNo      string    `json:"order_no" gorm:"size:32;uniqueIndex;not null"`
	CustomerID   string    `json:"customer_id" gorm:"size:32;not null;index"`
	CustomerName string    `json:"customer_name" gorm:"size:200"`
	ProductType  string    `json:"product_type" gorm:"size:20;not null"` // lmr/ffv
	Status       string    `json:"status" gorm:"size:30;default:submitted"`
	RequiredDate time.Time `json:"required_date" gorm:"not null"`

	// 管理
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (CustomerOrder) TableName() string {
	return "scm_customer_orders"
}

// 产品类型
const (
	ProductTypeLMR = "lmr"
	ProductTypeFFV = "ffv"
)

// 客户订单状态
const (
	OrderStatusSubmitted        = "submitted"
	OrderStatusUnderReview      = "under_review"
	OrderStatusPlanning         = "planning"
	OrderStatusPOCreated        = "po_created"
	OrderStatusAwaitingConfirm  = "awaiting_confirmation"
	OrderStatusInProduction     = "in_production"
	OrderStatusReadyForDelivery = "ready_for_delivery"
	OrderStatusDelivered        = "delivered"
	OrderStatusCancelled        = "cancelled"
)

// orderStatusFlow 线性状态链，除取消外只允许推进到下一个状态
var orderStatusFlow = []string{
	OrderStatusSubmitted,
	OrderStatusUnderReview,
	OrderStatusPlanning,
	OrderStatusPOCreated,
	OrderStatusAwaitingConfirm,
	OrderStatusInProduction,
	OrderStatusReadyForDelivery,
	OrderStatusDelivered,
}

// TotalQuantity 行项数量合计
func (o *CustomerOrder) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// CanTransitionTo 判断状态迁移是否合法
func (o *CustomerOrder) CanTransitionTo(to string) bool {
	if o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	for i, s := range orderStatusFlow {
		if s == o.Status {
			return i+1 < len(orderStatusFlow) && orderStatusFlow[i+1] == to
		}
	}
	return false
}

// TransitionTo 执行状态迁移，非法迁移不改变任何字段
func (o *CustomerOrder) TransitionTo(to string) error {
	if !o.CanTransitionTo(to) {
		return fmt.Errorf("%w: customer order %s cannot go from %s to %s",
			ErrInvalidTransition, o.OrderNo, o.Status, to)
	}
	o.Status = to
	return nil
}

// OrderItem 客户订单行项，随订单创建和删除
type OrderItem struct {
	ID            string  `json:"id" gorm:"primaryKey;size:32"`
	OrderID       string  `json:"order_id" gorm:"size:32;not null;index"`
	ProductCode   string  `json:"product_code" gorm:"size:50"`
	Description   string  `json:"description" gorm:"size:200;not null"`
	Quantity      int     `json:"quantity" gorm:"not null"`
	Unit          string  `json:"unit" gorm:"size:20;default:pcs"`
	UnitPrice     float64 `json:"unit_price" gorm:"type:decimal(12,4);default:0"`
	Specification string  `json:"specification" gorm:"size:500"`
	SortOrder     int     `json:"sort_order" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OrderItem) TableName() string {
	return "scm_order_items"
}
