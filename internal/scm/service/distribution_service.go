package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/bitfantasy/nimo-scm/internal/scm/repository"
	"go.uber.org/zap"
)

// highUtilizationThreshold 分配占用剩余产能超过该比例时告警
const highUtilizationThreshold = 0.9

// DistributionService 分配建议与校验
type DistributionService struct {
	orderRepo    *repository.OrderRepository
	supplierRepo *repository.SupplierRepository
	eligibility  *EligibilityService
	engine       *AllocationEngine
	logger       *zap.Logger
}

func NewDistributionService(
	orderRepo *repository.OrderRepository,
	supplierRepo *repository.SupplierRepository,
	eligibility *EligibilityService,
	engine *AllocationEngine,
	logger *zap.Logger,
) *DistributionService {
	return &DistributionService{
		orderRepo:    orderRepo,
		supplierRepo: supplierRepo,
		eligibility:  eligibility,
		engine:       engine,
		logger:       logger,
	}
}

// SuggestDistribution 为客户订单生成分配建议。
// 产能不足不是错误，缺口写入 notes 由调用方决策。
func (s *DistributionService) SuggestDistribution(ctx context.Context, customerOrderID, strategy string) (*entity.DistributionSuggestion, error) {
	order, err := s.orderRepo.FindByID(ctx, customerOrderID)
	if err != nil {
		return nil, fmt.Errorf("customer order %s: %w", customerOrderID, err)
	}

	if strategy == "" {
		strategy = entity.StrategyBalanced
	}

	total := order.TotalQuantity()
	infos, err := s.eligibility.EligibleSuppliers(ctx, order.ProductType, total)
	if err != nil {
		return nil, err
	}

	allocations := s.engine.Allocate(infos, total, strategy)

	plan := entity.DistributionPlan{
		CustomerOrderID: order.ID,
		TotalQuantity:   total,
		ProductType:     order.ProductType,
		Allocations:     allocations,
		Strategy:        strategy,
	}

	var eligibleCapacity int
	for _, info := range infos {
		eligibleCapacity += info.AvailableCapacity
	}
	if eligibleCapacity > 0 {
		plan.CapacityUtilization = float64(plan.AllocatedQuantity()) / float64(eligibleCapacity)
	}

	if len(infos) == 0 {
		plan.Notes = "no eligible suppliers for product type " + order.ProductType
	} else if !plan.FullyAllocated() {
		shortfall := total - plan.AllocatedQuantity()
		plan.Notes = fmt.Sprintf("unallocated remainder: %d units (eligible capacity %d, requested %d)",
			shortfall, eligibleCapacity, total)
	}

	return &entity.DistributionSuggestion{
		DistributionPlan: plan,
		OrderNo:          order.OrderNo,
		CustomerName:     order.CustomerName,
	}, nil
}

// ValidateDistribution 按实时产能校验分配方案，错误阻断、警告放行
func (s *DistributionService) ValidateDistribution(ctx context.Context, plan *entity.DistributionPlan) (*entity.ValidationResult, error) {
	result := &entity.ValidationResult{Valid: true}

	if len(plan.Allocations) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "distribution plan has no allocations")
		return result, nil
	}

	if _, err := s.orderRepo.FindByID(ctx, plan.CustomerOrderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			result.Valid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("customer order %s not found", plan.CustomerOrderID))
			return result, nil
		}
		return nil, err
	}

	for _, alloc := range plan.Allocations {
		av := entity.AllocationValidation{
			SupplierID:   alloc.SupplierID,
			SupplierName: alloc.SupplierName,
			Quantity:     alloc.Quantity,
			Valid:        true,
		}

		supplier, err := s.supplierRepo.FindByID(ctx, alloc.SupplierID)
		if err != nil {
			av.Valid = false
			av.Errors = append(av.Errors, fmt.Sprintf("supplier %s not found", alloc.SupplierID))
			result.PerSupplier = append(result.PerSupplier, av)
			result.Valid = false
			result.Errors = append(result.Errors, av.Errors...)
			continue
		}
		if !supplier.Active {
			av.Valid = false
			av.Errors = append(av.Errors, fmt.Sprintf("supplier %s is inactive", supplier.Name))
		}

		capability := supplier.CapabilityFor(plan.ProductType)
		if capability == nil || !capability.Active {
			av.Valid = false
			av.Errors = append(av.Errors,
				fmt.Sprintf("supplier %s has no active capability for %s", supplier.Name, plan.ProductType))
		} else {
			available := capability.AvailableCapacity()
			av.AvailableCapacity = available
			if alloc.Quantity > available {
				av.Valid = false
				av.Errors = append(av.Errors,
					fmt.Sprintf("supplier %s allocation %d exceeds available capacity %d (shortfall %d)",
						supplier.Name, alloc.Quantity, available, alloc.Quantity-available))
			} else if available > 0 && float64(alloc.Quantity)/float64(available) > highUtilizationThreshold {
				av.Warnings = append(av.Warnings,
					fmt.Sprintf("supplier %s allocation consumes over 90%% of available capacity", supplier.Name))
			}
		}

		if !av.Valid {
			result.Valid = false
		}
		result.Errors = append(result.Errors, av.Errors...)
		result.Warnings = append(result.Warnings, av.Warnings...)
		result.PerSupplier = append(result.PerSupplier, av)
	}

	return result, nil
}
