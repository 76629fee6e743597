package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"gorm.io/gorm"
)

// OrderRepository 客户订单仓库
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindAll 查询客户订单列表
func (r *OrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.CustomerOrder, int64, error) {
	var items []entity.CustomerOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.CustomerOrder{})

	if customerID := filters["customer_id"]; customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if productType := filters["product_type"]; productType != "" {
		query = query.Where("product_type = ?", productType)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("order_no LIKE ? OR customer_name LIKE ?",
			"%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找客户订单（含行项）
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.CustomerOrder, error) {
	var order entity.CustomerOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Create 创建客户订单
func (r *OrderRepository) Create(ctx context.Context, order *entity.CustomerOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Update 更新客户订单
func (r *OrderRepository) Update(ctx context.Context, order *entity.CustomerOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// UpdateStatus 只更新订单状态
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).
		Model(&entity.CustomerOrder{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Delete 删除客户订单及行项
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&entity.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.CustomerOrder{}).Error
	})
}

// ReplaceItems 整体替换订单行项
func (r *OrderRepository) ReplaceItems(ctx context.Context, orderID string, items []entity.OrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&entity.OrderItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// GenerateOrderNo 生成订单编码 SO-{year}-{4位}
func (r *OrderRepository) GenerateOrderNo(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("SO-%s-", year)

	var maxNo string
	err := r.db.WithContext(ctx).
		Model(&entity.CustomerOrder{}).
		Select("COALESCE(MAX(order_no), '')").
		Where("order_no LIKE ?", prefix+"%").
		Scan(&maxNo).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxNo != "" {
		fmt.Sscanf(maxNo, "SO-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("SO-%s-%04d", year, seq), nil
}
