package repository

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories SCM仓库集合
type Repositories struct {
	Order       *OrderRepository
	Supplier    *SupplierRepository
	PO          *PORepository
	ActivityLog *ActivityLogRepository
}

// NewRepositories 创建SCM仓库集合
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Order:       NewOrderRepository(db),
		Supplier:    NewSupplierRepository(db),
		PO:          NewPORepository(db),
		ActivityLog: NewActivityLogRepository(db, logger),
	}
}
