package entity

import (
	"errors"
	"fmt"
	"time"
)

// PurchaseOrder 采购订单，由分配方案生成，每个供应商一单
type PurchaseOrder struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	PONo            string    `json:"po_no" gorm:"size:64;uniqueIndex;not null"`
	CustomerOrderID string    `json:"customer_order_id" gorm:"size:32;not null;index"`
	SupplierID      string    `json:"supplier_id" gorm:"size:32;not null;index"`
	Status          string    `json:"status" gorm:"size:30;default:created"`
	RequiredDate    time.Time `json:"required_date" gorm:"not null"`

	// 金额
	TotalValue float64 `json:"total_value" gorm:"type:decimal(15,2);default:0"`

	// 状态时间戳
	ConfirmedAt *time.Time `json:"confirmed_at"`
	RejectedAt  *time.Time `json:"rejected_at"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`

	RejectionReason string `json:"rejection_reason" gorm:"size:500"`

	// 管理
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	Items    []PurchaseOrderItem `json:"items,omitempty" gorm:"foreignKey:POID"`
	Supplier *Supplier           `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (PurchaseOrder) TableName() string {
	return "scm_purchase_orders"
}

// 采购订单状态
const (
	POStatusCreated          = "created"
	POStatusSent             = "sent"
	POStatusConfirmed        = "confirmed"
	POStatusRejected         = "rejected"
	POStatusInProduction     = "in_production"
	POStatusReadyForShipment = "ready_for_shipment"
	POStatusShipped          = "shipped"
	POStatusDelivered        = "delivered"
	POStatusCancelled        = "cancelled"
)

// poTransitions 合法迁移表
var poTransitions = map[string][]string{
	POStatusCreated:          {POStatusSent},
	POStatusSent:             {POStatusConfirmed, POStatusRejected},
	POStatusConfirmed:        {POStatusInProduction},
	POStatusInProduction:     {POStatusReadyForShipment},
	POStatusReadyForShipment: {POStatusShipped},
	POStatusShipped:          {POStatusDelivered},
	POStatusRejected:         {},
	POStatusDelivered:        {},
	POStatusCancelled:        {},
}

// CanTransitionTo 判断状态迁移是否合法
func (p *PurchaseOrder) CanTransitionTo(to string) bool {
	if p.Status == POStatusDelivered || p.Status == POStatusCancelled {
		return false
	}
	if to == POStatusCancelled {
		return true
	}
	for _, next := range poTransitions[p.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo 执行状态迁移并打时间戳。拒绝需用 Reject 提供原因。
func (p *PurchaseOrder) TransitionTo(to string, now time.Time) error {
	if !p.CanTransitionTo(to) {
		return fmt.Errorf("%w: purchase order %s cannot go from %s to %s",
			ErrInvalidTransition, p.PONo, p.Status, to)
	}
	if to == POStatusRejected && p.RejectionReason == "" {
		return errors.New("rejection reason is required")
	}
	p.Status = to
	switch to {
	case POStatusConfirmed:
		p.ConfirmedAt = &now
	case POStatusRejected:
		p.RejectedAt = &now
	case POStatusShipped:
		p.ShippedAt = &now
	case POStatusDelivered:
		p.DeliveredAt = &now
	}
	return nil
}

// Reject 拒绝采购订单，原因不能为空
func (p *PurchaseOrder) Reject(reason string, now time.Time) error {
	if reason == "" {
		return errors.New("rejection reason is required")
	}
	p.RejectionReason = reason
	return p.TransitionTo(POStatusRejected, now)
}

// ComputeTotalValue 行项金额合计
func (p *PurchaseOrder) ComputeTotalValue() float64 {
	var total float64
	for _, item := range p.Items {
		total += float64(item.Quantity) * item.UnitPrice
	}
	return total
}

// PurchaseOrderItem 采购订单行项，引用来源客户订单行项
type PurchaseOrderItem struct {
	ID          string  `json:"id" gorm:"primaryKey;size:32"`
	POID        string  `json:"po_id" gorm:"size:32;not null;index"`
	OrderItemID string  `json:"order_item_id" gorm:"size:32;not null"`
	ProductCode string  `json:"product_code" gorm:"size:50"`
	Description string  `json:"description" gorm:"size:200;not null"`
	Quantity    int     `json:"quantity" gorm:"not null"` // 分配数量，不得超过来源行项数量
	Unit        string  `json:"unit" gorm:"size:20;default:pcs"`
	UnitPrice   float64 `json:"unit_price" gorm:"type:decimal(12,4);default:0"`

	// 供应商补充信息
	PackagingDetails      string     `json:"packaging_details" gorm:"size:500"`
	DeliveryMethod        string     `json:"delivery_method" gorm:"size:100"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date"`
	SupplierNotes         string     `json:"supplier_notes" gorm:"type:text"`

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PurchaseOrderItem) TableName() string {
	return "scm_purchase_order_items"
}
