package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/bitfantasy/nimo-scm/internal/scm/repository"
	"github.com/bitfantasy/nimo-scm/internal/shared/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrOrderNotPlanning 客户订单不在规划状态，不能生成采购订单
	ErrOrderNotPlanning = errors.New("customer order is not in planning status")
	// ErrPlanInvalid 分配方案未通过校验
	ErrPlanInvalid = errors.New("distribution plan failed validation")
)

// PurchaseOrderService 采购订单编排：方案落单、状态推进、双状态机联动
type PurchaseOrderService struct {
	poRepo       *repository.PORepository
	orderRepo    *repository.OrderRepository
	suppliers    *SupplierService
	activityRepo *repository.ActivityLogRepository
	distribution *DistributionService
	notifier     *notify.Client
	logger       *zap.Logger

	// 可注入时钟，测试用
	now func() time.Time
}

func NewPurchaseOrderService(
	poRepo *repository.PORepository,
	orderRepo *repository.OrderRepository,
	suppliers *SupplierService,
	activityRepo *repository.ActivityLogRepository,
	distribution *DistributionService,
	logger *zap.Logger,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		poRepo:       poRepo,
		orderRepo:    orderRepo,
		suppliers:    suppliers,
		activityRepo: activityRepo,
		distribution: distribution,
		logger:       logger,
		now:          time.Now,
	}
}

// SetNotifier 注入通知客户端
func (s *PurchaseOrderService) SetNotifier(n *notify.Client) {
	s.notifier = n
}

// SetClock 注入时钟
func (s *PurchaseOrderService) SetClock(now func() time.Time) {
	s.now = now
}

// CreatePurchaseOrders 把校验通过的分配方案转成采购订单，每个供应商一单。
// 任何一单失败时删除本次已创建的全部订单并返回原始错误，客户订单保持原状。
func (s *PurchaseOrderService) CreatePurchaseOrders(ctx context.Context, customerOrderID string, plan *entity.DistributionPlan, userID string) ([]*entity.PurchaseOrder, error) {
	order, err := s.orderRepo.FindByID(ctx, customerOrderID)
	if err != nil {
		return nil, fmt.Errorf("customer order %s: %w", customerOrderID, err)
	}
	if order.Status != entity.OrderStatusPlanning {
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderNotPlanning, order.OrderNo, order.Status)
	}

	result, err := s.distribution.ValidateDistribution(ctx, plan)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrPlanInvalid, strings.Join(result.Errors, "; "))
	}

	existing, err := s.poRepo.CountByCustomerOrder(ctx, customerOrderID)
	if err != nil {
		return nil, err
	}

	var created []*entity.PurchaseOrder
	seq := int(existing)
	for _, alloc := range plan.Allocations {
		supplier, err := s.suppliers.Get(ctx, alloc.SupplierID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("Skipping allocation, supplier not found",
					zap.String("supplier_id", alloc.SupplierID),
					zap.String("order_no", order.OrderNo))
				continue
			}
			s.cleanup(ctx, created)
			return nil, err
		}

		seq++
		po, err := s.buildPurchaseOrder(order, supplier, alloc, seq, userID)
		if err != nil {
			s.cleanup(ctx, created)
			return nil, err
		}

		if err := s.poRepo.Create(ctx, po); err != nil {
			s.cleanup(ctx, created)
			return nil, fmt.Errorf("persist purchase order %s: %w", po.PONo, err)
		}
		created = append(created, po)

		// 创建后立即下发供应商
		if err := po.TransitionTo(entity.POStatusSent, s.now()); err != nil {
			s.cleanup(ctx, created)
			return nil, err
		}
		if err := s.poRepo.Update(ctx, po); err != nil {
			s.cleanup(ctx, created)
			return nil, fmt.Errorf("send purchase order %s: %w", po.PONo, err)
		}

		s.activityRepo.LogActivity(ctx, "purchase_order", po.ID, po.PONo,
			"create", "", po.Status, fmt.Sprintf("%d units for %s", alloc.Quantity, supplier.Name), userID)
	}

	fromStatus := order.Status
	if err := order.TransitionTo(entity.OrderStatusPOCreated); err != nil {
		s.cleanup(ctx, created)
		return nil, err
	}
	if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status); err != nil {
		s.cleanup(ctx, created)
		return nil, fmt.Errorf("advance customer order %s: %w", order.OrderNo, err)
	}

	// 全部落单后占用供应商产能
	for _, po := range created {
		s.adjustCommitments(ctx, po, plan.ProductType, poQuantity(po))
	}

	s.activityRepo.LogActivity(ctx, "order", order.ID, order.OrderNo,
		"status_change", fromStatus, order.Status,
		fmt.Sprintf("%d purchase orders created", len(created)), userID)
	s.notify(notify.Event{
		Type:       "po_created",
		EntityType: "order",
		EntityID:   order.ID,
		EntityCode: order.OrderNo,
		Message:    fmt.Sprintf("%d purchase orders created for order %s", len(created), order.OrderNo),
	})

	return created, nil
}

// buildPurchaseOrder 构建单个采购订单：编号、贪心行项分摊、校验、合计
func (s *PurchaseOrderService) buildPurchaseOrder(order *entity.CustomerOrder, supplier *entity.Supplier, alloc entity.SupplierAllocation, seq int, userID string) (*entity.PurchaseOrder, error) {
	po := &entity.PurchaseOrder{
		ID:              uuid.New().String()[:32],
		PONo:            buildPONumber(order.OrderNo, supplier.Name, seq),
		CustomerOrderID: order.ID,
		SupplierID:      supplier.ID,
		Status:          entity.POStatusCreated,
		RequiredDate:    order.RequiredDate,
		CreatedBy:       userID,
	}

	// 按数量升序贪心消耗分配量
	items := make([]entity.OrderItem, len(order.Items))
	copy(items, order.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Quantity < items[j].Quantity
	})

	remaining := alloc.Quantity
	for i, item := range items {
		if remaining <= 0 {
			break
		}
		take := item.Quantity
		if take > remaining {
			take = remaining
		}
		po.Items = append(po.Items, entity.PurchaseOrderItem{
			ID:          uuid.New().String()[:32],
			POID:        po.ID,
			OrderItemID: item.ID,
			ProductCode: item.ProductCode,
			Description: item.Description,
			Quantity:    take,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			SortOrder:   i + 1,
		})
		remaining -= take
	}

	if err := s.validatePurchaseOrder(po, order); err != nil {
		return nil, fmt.Errorf("purchase order %s invalid: %w", po.PONo, err)
	}
	po.TotalValue = po.ComputeTotalValue()
	return po, nil
}

// validatePurchaseOrder 持久化前校验
func (s *PurchaseOrderService) validatePurchaseOrder(po *entity.PurchaseOrder, order *entity.CustomerOrder) error {
	if po.PONo == "" {
		return errors.New("purchase order number is empty")
	}
	if len(po.Items) == 0 {
		return errors.New("purchase order has no items")
	}
	if !po.RequiredDate.After(s.now()) {
		return errors.New("required delivery date is not in the future")
	}
	sourceQty := make(map[string]int, len(order.Items))
	for _, item := range order.Items {
		sourceQty[item.ID] = item.Quantity
	}
	for _, item := range po.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("item %s has non-positive quantity", item.ProductCode)
		}
		if item.Quantity > sourceQty[item.OrderItemID] {
			return fmt.Errorf("item %s quantity %d exceeds source order item quantity %d",
				item.ProductCode, item.Quantity, sourceQty[item.OrderItemID])
		}
	}
	return nil
}

// poQuantity 采购订单行项数量合计
func poQuantity(po *entity.PurchaseOrder) int {
	qty := 0
	for _, item := range po.Items {
		qty += item.Quantity
	}
	return qty
}

// adjustCommitments 调整供应商已承诺量，失败只告警不回滚主流程
func (s *PurchaseOrderService) adjustCommitments(ctx context.Context, po *entity.PurchaseOrder, productType string, delta int) {
	if delta == 0 {
		return
	}
	if _, err := s.suppliers.AdjustCommitments(ctx, po.SupplierID, productType, delta); err != nil {
		s.logger.Warn("Supplier commitment adjustment failed",
			zap.String("po_no", po.PONo),
			zap.Int("delta", delta),
			zap.Error(err))
	}
}

// releaseCapacity 订单终结（送达/取消/被拒）后释放占用的产能
func (s *PurchaseOrderService) releaseCapacity(ctx context.Context, po *entity.PurchaseOrder) {
	order, err := s.orderRepo.FindByID(ctx, po.CustomerOrderID)
	if err != nil {
		s.logger.Warn("Capacity release skipped, customer order lookup failed",
			zap.String("po_no", po.PONo), zap.Error(err))
		return
	}
	s.adjustCommitments(ctx, po, order.ProductType, -poQuantity(po))
}

// recordOutcome 交付结果回写供应商绩效，失败只告警
func (s *PurchaseOrderService) recordOutcome(ctx context.Context, po *entity.PurchaseOrder, onTime, cancelled bool) {
	if _, err := s.suppliers.RecordDeliveryOutcome(ctx, po.SupplierID, onTime, cancelled); err != nil {
		s.logger.Warn("Delivery outcome recording failed",
			zap.String("po_no", po.PONo), zap.Error(err))
	}
}

// cleanup 尽力删除本次创建的采购订单，失败只记录
func (s *PurchaseOrderService) cleanup(ctx context.Context, created []*entity.PurchaseOrder) {
	for _, po := range created {
		if err := s.poRepo.Delete(ctx, po.ID); err != nil {
			s.logger.Error("Cleanup failed for purchase order",
				zap.String("po_no", po.PONo), zap.Error(err))
		}
	}
}

// buildPONumber 采购订单编号 PO-{订单号}-{供应商前3字母}-{3位序号}
func buildPONumber(orderNo, supplierName string, seq int) string {
	var letters []rune
	for _, r := range supplierName {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
		}
		if len(letters) == 3 {
			break
		}
	}
	prefix := string(letters)
	if prefix == "" {
		prefix = "SUP"
	}
	return fmt.Sprintf("PO-%s-%s-%03d", orderNo, prefix, seq)
}

// List 查询采购订单列表
func (s *PurchaseOrderService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.poRepo.FindAll(ctx, page, pageSize, filters)
}

// Get 查询采购订单详情
func (s *PurchaseOrderService) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.poRepo.FindByID(ctx, id)
}

// ListByCustomerOrder 查询客户订单下的采购订单
func (s *PurchaseOrderService) ListByCustomerOrder(ctx context.Context, customerOrderID string) ([]entity.PurchaseOrder, error) {
	return s.poRepo.FindByCustomerOrder(ctx, customerOrderID)
}

// Confirm 供应商确认采购订单，并联动推进客户订单状态
func (s *PurchaseOrderService) Confirm(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	po, err := s.transition(ctx, id, entity.POStatusConfirmed, userID)
	if err != nil {
		return nil, err
	}

	if err := s.syncCustomerOrderStatus(ctx, po.CustomerOrderID, userID); err != nil {
		s.logger.Warn("Customer order status sync failed after confirmation",
			zap.String("po_no", po.PONo), zap.Error(err))
	}

	s.notify(notify.Event{
		Type:       "po_confirmed",
		EntityType: "purchase_order",
		EntityID:   po.ID,
		EntityCode: po.PONo,
		Message:    fmt.Sprintf("purchase order %s confirmed by supplier", po.PONo),
	})
	return po, nil
}

// Reject 供应商拒绝采购订单，原因必填
func (s *PurchaseOrderService) Reject(ctx context.Context, id, reason, userID string) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fromStatus := po.Status
	if err := po.Reject(reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.poRepo.Update(ctx, po); err != nil {
		return nil, err
	}

	// 供应商未接单，释放其占用的产能
	s.releaseCapacity(ctx, po)

	s.activityRepo.LogActivity(ctx, "purchase_order", po.ID, po.PONo,
		"status_change", fromStatus, po.Status, reason, userID)
	s.notify(notify.Event{
		Type:       "po_rejected",
		EntityType: "purchase_order",
		EntityID:   po.ID,
		EntityCode: po.PONo,
		Message:    fmt.Sprintf("purchase order %s rejected: %s", po.PONo, reason),
	})
	return po, nil
}

// StartProduction 采购订单进入生产
func (s *PurchaseOrderService) StartProduction(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.POStatusInProduction, userID)
}

// ReadyForShipment 采购订单备货完成
func (s *PurchaseOrderService) ReadyForShipment(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.POStatusReadyForShipment, userID)
}

// Ship 采购订单发货
func (s *PurchaseOrderService) Ship(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.POStatusShipped, userID)
}

// Deliver 采购订单送达，释放产能并回写供应商绩效
func (s *PurchaseOrderService) Deliver(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	po, err := s.transition(ctx, id, entity.POStatusDelivered, userID)
	if err != nil {
		return nil, err
	}

	s.releaseCapacity(ctx, po)
	onTime := po.DeliveredAt != nil && !po.DeliveredAt.After(po.RequiredDate)
	s.recordOutcome(ctx, po, onTime, false)
	return po, nil
}

// Cancel 取消采购订单，释放产能并计入取消单量
func (s *PurchaseOrderService) Cancel(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	po, err := s.transition(ctx, id, entity.POStatusCancelled, userID)
	if err != nil {
		return nil, err
	}

	s.releaseCapacity(ctx, po)
	s.recordOutcome(ctx, po, false, true)
	return po, nil
}

func (s *PurchaseOrderService) transition(ctx context.Context, id, to, userID string) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fromStatus := po.Status
	if err := po.TransitionTo(to, s.now()); err != nil {
		return nil, err
	}
	if err := s.poRepo.Update(ctx, po); err != nil {
		return nil, err
	}

	s.activityRepo.LogActivity(ctx, "purchase_order", po.ID, po.PONo,
		"status_change", fromStatus, po.Status, "", userID)
	return po, nil
}

// syncCustomerOrderStatus 双状态机联动：全部确认推进到生产中，
// 部分确认推进到等待供应商确认。可重复调用，已推进时是空操作。
func (s *PurchaseOrderService) syncCustomerOrderStatus(ctx context.Context, customerOrderID, userID string) error {
	pos, err := s.poRepo.FindByCustomerOrder(ctx, customerOrderID)
	if err != nil {
		return err
	}
	if len(pos) == 0 {
		return nil
	}

	confirmed := 0
	for _, po := range pos {
		if po.Status == entity.POStatusConfirmed || po.Status == entity.POStatusInProduction ||
			po.Status == entity.POStatusReadyForShipment || po.Status == entity.POStatusShipped ||
			po.Status == entity.POStatusDelivered {
			confirmed++
		}
	}
	if confirmed == 0 {
		return nil
	}

	order, err := s.orderRepo.FindByID(ctx, customerOrderID)
	if err != nil {
		return err
	}

	target := entity.OrderStatusAwaitingConfirm
	if confirmed == len(pos) && order.Status == entity.OrderStatusAwaitingConfirm {
		target = entity.OrderStatusInProduction
	}
	if !order.CanTransitionTo(target) {
		// 已经推进过或不适用，保持幂等
		return nil
	}

	fromStatus := order.Status
	if err := order.TransitionTo(target); err != nil {
		return err
	}
	if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status); err != nil {
		return err
	}
	s.activityRepo.LogActivity(ctx, "order", order.ID, order.OrderNo,
		"status_change", fromStatus, order.Status,
		fmt.Sprintf("%d of %d purchase orders confirmed", confirmed, len(pos)), userID)
	return nil
}

// UpdateItemRequest 更新采购订单行项请求
type UpdateItemRequest struct {
	PackagingDetails      *string    `json:"packaging_details"`
	DeliveryMethod        *string    `json:"delivery_method"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date"`
	SupplierNotes         *string    `json:"supplier_notes"`
	UnitPrice             *float64   `json:"unit_price"`
}

// UpdateItem 更新采购订单行项的供应商补充信息
func (s *PurchaseOrderService) UpdateItem(ctx context.Context, poID, itemID string, req *UpdateItemRequest) (*entity.PurchaseOrderItem, error) {
	po, err := s.poRepo.FindByID(ctx, poID)
	if err != nil {
		return nil, err
	}

	item, err := s.poRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.POID != po.ID {
		return nil, fmt.Errorf("item %s does not belong to purchase order %s", itemID, po.PONo)
	}

	if req.PackagingDetails != nil {
		item.PackagingDetails = *req.PackagingDetails
	}
	if req.DeliveryMethod != nil {
		item.DeliveryMethod = *req.DeliveryMethod
	}
	if req.EstimatedDeliveryDate != nil {
		item.EstimatedDeliveryDate = req.EstimatedDeliveryDate
	}
	if req.SupplierNotes != nil {
		item.SupplierNotes = *req.SupplierNotes
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			return nil, errors.New("unit price cannot be negative")
		}
		item.UnitPrice = *req.UnitPrice
	}

	if err := s.poRepo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}

	// 单价变化后重算订单总额
	if req.UnitPrice != nil {
		po, err = s.poRepo.FindByID(ctx, poID)
		if err != nil {
			return nil, err
		}
		po.TotalValue = po.ComputeTotalValue()
		if err := s.poRepo.Update(ctx, po); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (s *PurchaseOrderService) notify(event notify.Event) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.Send(ctx, event); err != nil {
			s.logger.Warn("Notification failed",
				zap.String("event", event.Type), zap.Error(err))
		}
	}()
}
