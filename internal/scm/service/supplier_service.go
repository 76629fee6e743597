package service

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/bitfantasy/nimo-scm/internal/scm/repository"
	"github.com/google/uuid"
)

// SupplierService 供应商服务
type SupplierService struct {
	repo        *repository.SupplierRepository
	eligibility *EligibilityService
}

func NewSupplierService(repo *repository.SupplierRepository, eligibility *EligibilityService) *SupplierService {
	return &SupplierService{repo: repo, eligibility: eligibility}
}

// CreateSupplierRequest 创建供应商请求
type CreateSupplierRequest struct {
	Name         string `json:"name" binding:"required"`
	ShortName    string `json:"short_name"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`
	Address      string `json:"address"`
	Notes        string `json:"notes"`
}

// UpdateSupplierRequest 更新供应商请求
type UpdateSupplierRequest struct {
	Name         *string `json:"name"`
	ShortName    *string `json:"short_name"`
	Active       *bool   `json:"active"`
	ContactName  *string `json:"contact_name"`
	ContactPhone *string `json:"contact_phone"`
	ContactEmail *string `json:"contact_email"`
	Address      *string `json:"address"`
	Notes        *string `json:"notes"`
}

// List 查询供应商列表
func (s *SupplierService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Supplier, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 查询供应商详情
func (s *SupplierService) Get(ctx context.Context, id string) (*entity.Supplier, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 创建供应商
func (s *SupplierService) Create(ctx context.Context, userID string, req *CreateSupplierRequest) (*entity.Supplier, error) {
	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, err
	}

	supplier := &entity.Supplier{
		ID:           uuid.New().String()[:32],
		Code:         code,
		Name:         req.Name,
		ShortName:    req.ShortName,
		Active:       true,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Address:      req.Address,
		Notes:        req.Notes,
		CreatedBy:    userID,
	}

	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

// Update 更新供应商
func (s *SupplierService) Update(ctx context.Context, id string, req *UpdateSupplierRequest) (*entity.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		supplier.Name = *req.Name
	}
	if req.ShortName != nil {
		supplier.ShortName = *req.ShortName
	}
	if req.Active != nil {
		supplier.Active = *req.Active
	}
	if req.ContactName != nil {
		supplier.ContactName = *req.ContactName
	}
	if req.ContactPhone != nil {
		supplier.ContactPhone = *req.ContactPhone
	}
	if req.ContactEmail != nil {
		supplier.ContactEmail = *req.ContactEmail
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.Notes != nil {
		supplier.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, err
	}

	// 活跃状态变化影响准入结果
	if req.Active != nil {
		for _, cap := range supplier.Capabilities {
			s.eligibility.InvalidateCache(ctx, cap.ProductType)
		}
	}
	return supplier, nil
}

// Delete 删除供应商
func (s *SupplierService) Delete(ctx context.Context, id string) error {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, cap := range supplier.Capabilities {
		s.eligibility.InvalidateCache(ctx, cap.ProductType)
	}
	return nil
}

// UpsertCapabilityRequest 产能维护请求
type UpsertCapabilityRequest struct {
	ProductType        string   `json:"product_type" binding:"required"`
	MaxMonthlyCapacity int      `json:"max_monthly_capacity" binding:"required"`
	CurrentCommitments *int     `json:"current_commitments"`
	QualityRating      *float64 `json:"quality_rating"`
	Active             *bool    `json:"active"`
}

// UpsertCapability 新增或更新供应商产能
func (s *SupplierService) UpsertCapability(ctx context.Context, supplierID string, req *UpsertCapabilityRequest) (*entity.SupplierCapability, error) {
	if _, err := s.repo.FindByID(ctx, supplierID); err != nil {
		return nil, err
	}
	if req.MaxMonthlyCapacity <= 0 {
		return nil, errors.New("max monthly capacity must be positive")
	}

	capability, err := s.repo.FindCapability(ctx, supplierID, req.ProductType)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		capability = &entity.SupplierCapability{
			ID:          uuid.New().String()[:32],
			SupplierID:  supplierID,
			ProductType: req.ProductType,
			Active:      true,
		}
	}

	capability.MaxMonthlyCapacity = req.MaxMonthlyCapacity
	if req.CurrentCommitments != nil {
		if *req.CurrentCommitments < 0 {
			return nil, errors.New("current commitments cannot be negative")
		}
		capability.CurrentCommitments = *req.CurrentCommitments
	}
	if req.QualityRating != nil {
		if *req.QualityRating < 0 || *req.QualityRating > 5 {
			return nil, errors.New("quality rating must be between 0 and 5")
		}
		capability.QualityRating = *req.QualityRating
	}
	if req.Active != nil {
		capability.Active = *req.Active
	}

	if err := s.repo.SaveCapability(ctx, capability); err != nil {
		return nil, err
	}
	s.eligibility.InvalidateCache(ctx, capability.ProductType)
	return capability, nil
}

// AdjustCommitments 调整已承诺量（下单+，取消/完成-）
func (s *SupplierService) AdjustCommitments(ctx context.Context, supplierID, productType string, delta int) (*entity.SupplierCapability, error) {
	capability, err := s.repo.FindCapability(ctx, supplierID, productType)
	if err != nil {
		return nil, err
	}

	capability.CurrentCommitments += delta
	if capability.CurrentCommitments < 0 {
		capability.CurrentCommitments = 0
	}

	if err := s.repo.SaveCapability(ctx, capability); err != nil {
		return nil, err
	}
	s.eligibility.InvalidateCache(ctx, productType)
	return capability, nil
}

// UpdatePerformanceRequest 绩效更新请求
type UpdatePerformanceRequest struct {
	OnTimeRate       *float64 `json:"on_time_rate"`
	QualityScore     *float64 `json:"quality_score"`
	CompletedOrders  *int     `json:"completed_orders"`
	OnTimeOrders     *int     `json:"on_time_orders"`
	LateOrders       *int     `json:"late_orders"`
	CancelledOrders  *int     `json:"cancelled_orders"`
	SatisfactionRate *float64 `json:"satisfaction_rate"`
	AvgDeliveryDays  *float64 `json:"avg_delivery_days"`
}

// UpdatePerformance 更新供应商绩效指标
func (s *SupplierService) UpdatePerformance(ctx context.Context, supplierID string, req *UpdatePerformanceRequest) (*entity.SupplierPerformanceMetrics, error) {
	supplier, err := s.repo.FindByID(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	metrics, err := s.repo.FindPerformance(ctx, supplierID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		metrics = &entity.SupplierPerformanceMetrics{
			ID:         uuid.New().String()[:32],
			SupplierID: supplierID,
		}
	}

	if req.OnTimeRate != nil {
		if *req.OnTimeRate < 0 || *req.OnTimeRate > 1 {
			return nil, errors.New("on-time rate must be between 0 and 1")
		}
		metrics.OnTimeRate = *req.OnTimeRate
	}
	if req.QualityScore != nil {
		if *req.QualityScore < 0 || *req.QualityScore > 5 {
			return nil, errors.New("quality score must be between 0 and 5")
		}
		metrics.QualityScore = *req.QualityScore
	}
	if req.CompletedOrders != nil {
		metrics.CompletedOrders = *req.CompletedOrders
	}
	if req.OnTimeOrders != nil {
		metrics.OnTimeOrders = *req.OnTimeOrders
	}
	if req.LateOrders != nil {
		metrics.LateOrders = *req.LateOrders
	}
	if req.CancelledOrders != nil {
		metrics.CancelledOrders = *req.CancelledOrders
	}
	if req.SatisfactionRate != nil {
		metrics.SatisfactionRate = req.SatisfactionRate
	}
	if req.AvgDeliveryDays != nil {
		metrics.AvgDeliveryDays = *req.AvgDeliveryDays
	}

	// 未显式给出准时率时按完成单量重算
	if req.OnTimeRate == nil && metrics.CompletedOrders > 0 {
		metrics.OnTimeRate = float64(metrics.OnTimeOrders) / float64(metrics.CompletedOrders)
	}

	if err := s.repo.SavePerformance(ctx, metrics); err != nil {
		return nil, err
	}
	for _, cap := range supplier.Capabilities {
		s.eligibility.InvalidateCache(ctx, cap.ProductType)
	}
	return metrics, nil
}

// RecordDeliveryOutcome 交付结果回写绩效（完成/准时/迟交/取消计数）
func (s *SupplierService) RecordDeliveryOutcome(ctx context.Context, supplierID string, onTime, cancelled bool) (*entity.SupplierPerformanceMetrics, error) {
	metrics, err := s.repo.FindPerformance(ctx, supplierID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		metrics = &entity.SupplierPerformanceMetrics{
			ID:         uuid.New().String()[:32],
			SupplierID: supplierID,
		}
	}

	if cancelled {
		metrics.CancelledOrders++
	} else {
		metrics.CompletedOrders++
		if onTime {
			metrics.OnTimeOrders++
		} else {
			metrics.LateOrders++
		}
		metrics.OnTimeRate = float64(metrics.OnTimeOrders) / float64(metrics.CompletedOrders)
	}

	if err := s.repo.SavePerformance(ctx, metrics); err != nil {
		return nil, err
	}

	supplier, err := s.repo.FindByID(ctx, supplierID)
	if err == nil {
		for _, cap := range supplier.Capabilities {
			s.eligibility.InvalidateCache(ctx, cap.ProductType)
		}
	}
	return metrics, nil
}
