package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/order"
)

// GormSettlementScope implements checkout.TransactionScope using GORM
// transactions. All repositories handed to the callback share one
// transaction, so a failed coupon claim rolls back the stock reservations
// made just before it.
type GormSettlementScope struct {
	db *gorm.DB
}

// NewGormSettlementScope creates a new GormSettlementScope
func NewGormSettlementScope(db *gorm.DB) *GormSettlementScope {
	return &GormSettlementScope{db: db}
}

// Execute runs the given function within a database transaction
func (s *GormSettlementScope) Execute(ctx context.Context, fn func(repos checkout.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormSettlementRepositories{tx: tx})
	})
}

type gormSettlementRepositories struct {
	tx *gorm.DB
}

// Orders returns the order repository scoped to the current transaction
func (r *gormSettlementRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

// Stock returns the stock repository scoped to the current transaction
func (r *gormSettlementRepositories) Stock() inventory.Repository {
	return NewGormStockRepository(r.tx)
}

// Coupons returns the coupon repository scoped to the current transaction
func (r *gormSettlementRepositories) Coupons() coupon.Repository {
	return NewGormCouponRepository(r.tx)
}

var _ checkout.TransactionScope = (*GormSettlementScope)(nil)
var _ checkout.TransactionalRepositories = (*gormSettlementRepositories)(nil)
