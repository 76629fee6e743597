package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-scm/internal/scm/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// MinAllocationUnit 最小分配单位
	MinAllocationUnit = 1
	// MinPerformanceScore 准入绩效阈值（0-1）
	MinPerformanceScore = 0.7

	eligibleCacheTTL = 30 * time.Second
)

// SupplierAllocationInfo 合格供应商快照，产能+绩效拍平后的只读记录
type SupplierAllocationInfo struct {
	SupplierID          string  `json:"supplier_id"`
	SupplierName        string  `json:"supplier_name"`
	AvailableCapacity   int     `json:"available_capacity"`
	CapacityUtilization float64 `json:"capacity_utilization"`
	PerformanceScore    float64 `json:"performance_score"`
	QualityRating       float64 `json:"quality_rating"`
	OnTimeRate          float64 `json:"on_time_rate"`
}

// EligibilityService 供应商准入过滤
type EligibilityService struct {
	supplierRepo *repository.SupplierRepository
	rdb          *redis.Client
	logger       *zap.Logger
}

func NewEligibilityService(supplierRepo *repository.SupplierRepository, rdb *redis.Client, logger *zap.Logger) *EligibilityService {
	return &EligibilityService{
		supplierRepo: supplierRepo,
		rdb:          rdb,
		logger:       logger,
	}
}

func eligibleCacheKey(productType string) string {
	return "scm:eligible:" + productType
}

// EligibleSuppliers 返回可参与分配的供应商，按综合绩效降序。
// quantity 只是需求总量提示，不要求单个供应商能独立满足。
func (s *EligibilityService) EligibleSuppliers(ctx context.Context, productType string, quantity int) ([]SupplierAllocationInfo, error) {
	if cached, ok := s.fromCache(ctx, productType); ok {
		return cached, nil
	}

	suppliers, err := s.supplierRepo.FindActiveByCapability(ctx, productType)
	if err != nil {
		return nil, fmt.Errorf("query suppliers for %s: %w", productType, err)
	}

	var infos []SupplierAllocationInfo
	for i := range suppliers {
		sup := &suppliers[i]
		capability := sup.CapabilityFor(productType)
		if capability == nil || !capability.Active {
			continue
		}
		if capability.AvailableCapacity() < MinAllocationUnit {
			continue
		}
		if sup.Performance == nil {
			continue
		}
		score := sup.Performance.OverallScore()
		if score < MinPerformanceScore {
			continue
		}
		infos = append(infos, SupplierAllocationInfo{
			SupplierID:          sup.ID,
			SupplierName:        sup.Name,
			AvailableCapacity:   capability.AvailableCapacity(),
			CapacityUtilization: capability.UtilizationRate(),
			PerformanceScore:    score,
			QualityRating:       capability.QualityRating,
			OnTimeRate:          sup.Performance.OnTimeRate,
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].PerformanceScore > infos[j].PerformanceScore
	})

	s.toCache(ctx, productType, infos)
	return infos, nil
}

// InvalidateCache 产能或绩效变化后失效缓存
func (s *EligibilityService) InvalidateCache(ctx context.Context, productType string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, eligibleCacheKey(productType)).Err(); err != nil {
		s.logger.Warn("Failed to invalidate eligible supplier cache",
			zap.String("product_type", productType), zap.Error(err))
	}
}

func (s *EligibilityService) fromCache(ctx context.Context, productType string) ([]SupplierAllocationInfo, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, eligibleCacheKey(productType)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("Eligible supplier cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var infos []SupplierAllocationInfo
	if err := json.Unmarshal(raw, &infos); err != nil {
		return nil, false
	}
	return infos, true
}

func (s *EligibilityService) toCache(ctx context.Context, productType string, infos []SupplierAllocationInfo) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(infos)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, eligibleCacheKey(productType), raw, eligibleCacheTTL).Err(); err != nil {
		s.logger.Warn("Eligible supplier cache write failed", zap.Error(err))
	}
}
