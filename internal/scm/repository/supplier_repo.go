package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"gorm.io/gorm"
)

// SupplierRepository 供应商仓库
type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// FindAll 查询供应商列表
func (r *SupplierRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Supplier, int64, error) {
	var items []entity.Supplier
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Supplier{})

	if search := filters["search"]; search != "" {
		query = query.Where("name LIKE ? OR code LIKE ? OR short_name LIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	if active := filters["active"]; active != "" {
		query = query.Where("active = ?", active == "true")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Capabilities").
		Preload("Performance").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找供应商（含产能和绩效）
func (r *SupplierRepository) FindByID(ctx context.Context, id string) (*entity.Supplier, error) {
	var supplier entity.Supplier
	err := r.db.WithContext(ctx).
		Preload("Capabilities").
		Preload("Performance").
		Where("id = ?", id).
		First(&supplier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// FindActiveByCapability 查询指定产品类型且产能启用的活跃供应商
func (r *SupplierRepository) FindActiveByCapability(ctx context.Context, productType string) ([]entity.Supplier, error) {
	var suppliers []entity.Supplier
	err := r.db.WithContext(ctx).
		Joins("JOIN scm_supplier_capabilities ON scm_supplier_capabilities.supplier_id = scm_suppliers.id").
		Where("scm_suppliers.active = ?", true).
		Where("scm_supplier_capabilities.product_type = ? AND scm_supplier_capabilities.active = ?", productType, true).
		Preload("Capabilities").
		Preload("Performance").
		Find(&suppliers).Error
	return suppliers, err
}

// Create 创建供应商
func (r *SupplierRepository) Create(ctx context.Context, supplier *entity.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

// Update 更新供应商
func (r *SupplierRepository) Update(ctx context.Context, supplier *entity.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}

// Delete 删除供应商及产能、绩效记录
func (r *SupplierRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("supplier_id = ?", id).Delete(&entity.SupplierCapability{}).Error; err != nil {
			return err
		}
		if err := tx.Where("supplier_id = ?", id).Delete(&entity.SupplierPerformanceMetrics{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Supplier{}).Error
	})
}

// FindCapability 查找供应商指定产品类型的产能
func (r *SupplierRepository) FindCapability(ctx context.Context, supplierID, productType string) (*entity.SupplierCapability, error) {
	var capability entity.SupplierCapability
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND product_type = ?", supplierID, productType).
		First(&capability).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &capability, nil
}

// SaveCapability 保存产能记录
func (r *SupplierRepository) SaveCapability(ctx context.Context, capability *entity.SupplierCapability) error {
	return r.db.WithContext(ctx).Save(capability).Error
}

// SavePerformance 保存绩效指标
func (r *SupplierRepository) SavePerformance(ctx context.Context, metrics *entity.SupplierPerformanceMetrics) error {
	return r.db.WithContext(ctx).Save(metrics).Error
}

// FindPerformance 查找供应商绩效指标
func (r *SupplierRepository) FindPerformance(ctx context.Context, supplierID string) (*entity.SupplierPerformanceMetrics, error) {
	var metrics entity.SupplierPerformanceMetrics
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		First(&metrics).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &metrics, nil
}

// GenerateCode 生成供应商编码 SUP-{4位}
func (r *SupplierRepository) GenerateCode(ctx context.Context) (string, error) {
	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.Supplier{}).
		Select("COALESCE(MAX(code), 'SUP-0000')").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	fmt.Sscanf(maxCode, "SUP-%04d", &seq)
	seq++
	return fmt.Sprintf("SUP-%04d", seq), nil
}
