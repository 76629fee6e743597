package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/bitfantasy/nimo-scm/internal/scm/repository"
	"github.com/google/uuid"
)

// OrderService 客户订单服务
type OrderService struct {
	repo         *repository.OrderRepository
	activityRepo *repository.ActivityLogRepository

	now func() time.Time
}

func NewOrderService(repo *repository.OrderRepository, activityRepo *repository.ActivityLogRepository) *OrderService {
	return &OrderService{
		repo:         repo,
		activityRepo: activityRepo,
		now:          time.Now,
	}
}

// SetClock 注入时钟
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateOrderRequest 创建客户订单请求
type CreateOrderRequest struct {
	CustomerID   string            `json:"customer_id" binding:"required"`
	CustomerName string            `json:"customer_name"`
	ProductType  string            `json:"product_type" binding:"required"`
	RequiredDate time.Time         `json:"required_date" binding:"required"`
	Notes        string            `json:"notes"`
	Items        []CreateOrderItem `json:"items" binding:"required"`
}

type CreateOrderItem struct {
	ProductCode   string  `json:"product_code"`
	Description   string  `json:"description" binding:"required"`
	Quantity      int     `json:"quantity" binding:"required"`
	Unit          string  `json:"unit"`
	UnitPrice     float64 `json:"unit_price"`
	Specification string  `json:"specification"`
}

// List 查询客户订单列表
func (s *OrderService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.CustomerOrder, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 查询客户订单详情
func (s *OrderService) Get(ctx context.Context, id string) (*entity.CustomerOrder, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 创建客户订单
func (s *OrderService) Create(ctx context.Context, userID string, req *CreateOrderRequest) (*entity.CustomerOrder, error) {
	if req.ProductType != entity.ProductTypeLMR && req.ProductType != entity.ProductTypeFFV {
		return nil, fmt.Errorf("unknown product type %q", req.ProductType)
	}
	if len(req.Items) == 0 {
		return nil, errors.New("order must have at least one item")
	}
	if !req.RequiredDate.After(s.now()) {
		return nil, errors.New("required delivery date must be in the future")
	}

	orderNo, err := s.repo.GenerateOrderNo(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate order number: %w", err)
	}

	order := &entity.CustomerOrder{
		ID:           uuid.New().String()[:32],
		OrderNo:      orderNo,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		ProductType:  req.ProductType,
		Status:       entity.OrderStatusSubmitted,
		RequiredDate: req.RequiredDate,
		CreatedBy:    userID,
		Notes:        req.Notes,
	}

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item %q quantity must be positive", item.Description)
		}
		if item.UnitPrice < 0 {
			return nil, fmt.Errorf("item %q unit price cannot be negative", item.Description)
		}
		unit := item.Unit
		if unit == "" {
			unit = "pcs"
		}
		order.Items = append(order.Items, entity.OrderItem{
			ID:            uuid.New().String()[:32],
			OrderID:       order.ID,
			ProductCode:   item.ProductCode,
			Description:   item.Description,
			Quantity:      item.Quantity,
			Unit:          unit,
			UnitPrice:     item.UnitPrice,
			Specification: item.Specification,
			SortOrder:     i + 1,
		})
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.activityRepo.LogActivity(ctx, "order", order.ID, order.OrderNo,
		"create", "", order.Status, fmt.Sprintf("%d items, %d units", len(order.Items), order.TotalQuantity()), userID)
	return order, nil
}

// UpdateOrderRequest 更新客户订单请求，仅早期状态可改
type UpdateOrderRequest struct {
	CustomerName *string           `json:"customer_name"`
	RequiredDate *time.Time        `json:"required_date"`
	Notes        *string           `json:"notes"`
	Items        []CreateOrderItem `json:"items"`
}

// editableStatuses 允许修改行项的状态
var editableStatuses = map[string]bool{
	entity.OrderStatusSubmitted:   true,
	entity.OrderStatusUnderReview: true,
	entity.OrderStatusPlanning:    true,
}

// Update 更新客户订单
func (s *OrderService) Update(ctx context.Context, id string, req *UpdateOrderRequest) (*entity.CustomerOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !editableStatuses[order.Status] {
		return nil, fmt.Errorf("%w: order %s is %s and cannot be edited",
			entity.ErrInvalidTransition, order.OrderNo, order.Status)
	}

	if req.CustomerName != nil {
		order.CustomerName = *req.CustomerName
	}
	if req.RequiredDate != nil {
		if !req.RequiredDate.After(s.now()) {
			return nil, errors.New("required delivery date must be in the future")
		}
		order.RequiredDate = *req.RequiredDate
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	if req.Items != nil {
		if len(req.Items) == 0 {
			return nil, errors.New("order must have at least one item")
		}
		var items []entity.OrderItem
		for i, item := range req.Items {
			if item.Quantity <= 0 {
				return nil, fmt.Errorf("item %q quantity must be positive", item.Description)
			}
			if item.UnitPrice < 0 {
				return nil, fmt.Errorf("item %q unit price cannot be negative", item.Description)
			}
			unit := item.Unit
			if unit == "" {
				unit = "pcs"
			}
			items = append(items, entity.OrderItem{
				ID:            uuid.New().String()[:32],
				OrderID:       order.ID,
				ProductCode:   item.ProductCode,
				Description:   item.Description,
				Quantity:      item.Quantity,
				Unit:          unit,
				UnitPrice:     item.UnitPrice,
				Specification: item.Specification,
				SortOrder:     i + 1,
			})
		}
		if err := s.repo.ReplaceItems(ctx, order.ID, items); err != nil {
			return nil, err
		}
		order.Items = items
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus 推进客户订单状态
func (s *OrderService) UpdateStatus(ctx context.Context, id, to, userID string) (*entity.CustomerOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fromStatus := order.Status
	if err := order.TransitionTo(to); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, order.ID, order.Status); err != nil {
		return nil, err
	}

	s.activityRepo.LogActivity(ctx, "order", order.ID, order.OrderNo,
		"status_change", fromStatus, order.Status, "", userID)
	return order, nil
}

// Cancel 取消客户订单
func (s *OrderService) Cancel(ctx context.Context, id, userID string) (*entity.CustomerOrder, error) {
	return s.UpdateStatus(ctx, id, entity.OrderStatusCancelled, userID)
}

// Delete 删除客户订单，只允许删除尚未进入审核的订单
func (s *OrderService) Delete(ctx context.Context, id string) error {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != entity.OrderStatusSubmitted {
		return fmt.Errorf("%w: order %s is %s and can no longer be deleted",
			entity.ErrInvalidTransition, order.OrderNo, order.Status)
	}
	return s.repo.Delete(ctx, id)
}
