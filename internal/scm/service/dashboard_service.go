package service

import (
	"context"

	"gorm.io/gorm"
)

// DashboardService 看板服务
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// OrderSummary 客户订单状态汇总
type OrderSummary struct {
	TotalOrders   int64            `json:"total_orders"`
	ByStatus      map[string]int64 `json:"by_status"`
	OverdueOrders int64            `json:"overdue_orders"`
}

// GetOrderSummary 按状态统计客户订单
func (s *DashboardService) GetOrderSummary(ctx context.Context) (*OrderSummary, error) {
	summary := &OrderSummary{ByStatus: map[string]int64{}}

	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT status, COUNT(*) FROM scm_customer_orders GROUP BY status
	`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		summary.ByStatus[status] = count
		summary.TotalOrders += count
	}

	// 要求交期已过但未交付/取消的订单
	row := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM scm_customer_orders
		WHERE required_date < CURRENT_TIMESTAMP
		  AND status NOT IN ('delivered','cancelled')
	`).Row()
	if err := row.Scan(&summary.OverdueOrders); err != nil {
		summary.OverdueOrders = 0
	}

	return summary, nil
}

// SupplierLoad 供应商在途负载
type SupplierLoad struct {
	SupplierID   string  `json:"supplier_id"`
	SupplierName string  `json:"supplier_name"`
	OpenPOs      int     `json:"open_pos"`
	OpenQuantity int     `json:"open_quantity"`
	Utilization  float64 `json:"utilization"`
}

// GetSupplierLoads 统计各供应商未完结采购订单负载
func (s *DashboardService) GetSupplierLoads(ctx context.Context) ([]SupplierLoad, error) {
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT
			sup.id,
			sup.name,
			COUNT(DISTINCT po.id) as open_pos,
			COALESCE(SUM(poi.quantity), 0) as open_qty
		FROM scm_suppliers sup
		JOIN scm_purchase_orders po ON po.supplier_id = sup.id
			AND po.status NOT IN ('delivered','cancelled','rejected')
		LEFT JOIN scm_purchase_order_items poi ON poi.po_id = po.id
		GROUP BY sup.id, sup.name
		ORDER BY open_qty DESC
	`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loads := []SupplierLoad{}
	for rows.Next() {
		var load SupplierLoad
		if err := rows.Scan(&load.SupplierID, &load.SupplierName, &load.OpenPOs, &load.OpenQuantity); err != nil {
			return nil, err
		}
		loads = append(loads, load)
	}

	// 叠加产能占用率（取该供应商所有产品类型的最大占用）
	for i := range loads {
		row := s.db.WithContext(ctx).Raw(`
			SELECT COALESCE(MAX(
				CASE WHEN max_monthly_capacity > 0
					THEN CAST(current_commitments AS REAL) / max_monthly_capacity
					ELSE 1 END), 0)
			FROM scm_supplier_capabilities WHERE supplier_id = ?
		`, loads[i].SupplierID).Row()
		if err := row.Scan(&loads[i].Utilization); err != nil {
			loads[i].Utilization = 0
		}
		if loads[i].Utilization > 1 {
			loads[i].Utilization = 1
		}
	}

	return loads, nil
}

// FulfillmentProgress 单个客户订单的履约进度
type FulfillmentProgress struct {
	OrderID      string  `json:"order_id"`
	TotalPOs     int     `json:"total_pos"`
	ConfirmedPOs int     `json:"confirmed_pos"`
	ShippedPOs   int     `json:"shipped_pos"`
	DeliveredPOs int     `json:"delivered_pos"`
	ProgressPct  float64 `json:"progress_pct"`
}

// GetFulfillmentProgress 获取客户订单的采购履约进度
func (s *DashboardService) GetFulfillmentProgress(ctx context.Context, orderID string) (*FulfillmentProgress, error) {
	progress := &FulfillmentProgress{OrderID: orderID}

	row := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN status IN ('confirmed','in_production','ready_for_shipment','shipped','delivered') THEN 1 END) as confirmed,
			COUNT(CASE WHEN status IN ('shipped','delivered') THEN 1 END) as shipped,
			COUNT(CASE WHEN status = 'delivered' THEN 1 END) as delivered
		FROM scm_purchase_orders
		WHERE customer_order_id = ? AND status NOT IN ('cancelled','rejected')
	`, orderID).Row()

	if err := row.Scan(
		&progress.TotalPOs,
		&progress.ConfirmedPOs,
		&progress.ShippedPOs,
		&progress.DeliveredPOs,
	); err != nil {
		return progress, nil // 没有数据时返回空进度
	}

	if progress.TotalPOs > 0 {
		progress.ProgressPct = float64(progress.DeliveredPOs) / float64(progress.TotalPOs) * 100
	}

	return progress, nil
}
