package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
)

// GormStockRepository implements inventory.Repository using GORM.
//
// Every mutation is a single conditional UPDATE whose RowsAffected outcome is
// the success flag. There is no separate read-then-write anywhere on the
// reservation path; two concurrent reservations of the last unit resolve to
// exactly one success at the database.
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormStockRepository) WithTx(tx *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: tx}
}

// GetStock returns the product's inventory as its concrete shape
func (r *GormStockRepository) GetStock(ctx context.Context, productID uuid.UUID) (inventory.Stock, error) {
	var levels []inventory.StockLevel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("variant_code asc").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, shared.ErrNotFound
	}

	if len(levels) == 1 && levels[0].VariantCode == "" {
		return inventory.FlatStock{Product: productID, Quantity: levels[0].Quantity}, nil
	}

	variants := make([]inventory.VariantQuantity, len(levels))
	for i, l := range levels {
		variants[i] = inventory.VariantQuantity{Code: l.VariantCode, Quantity: l.Quantity}
	}
	return inventory.VariantStock{Product: productID, Variants: variants}, nil
}

// Reserve atomically decrements stock if enough is available
func (r *GormStockRepository) Reserve(ctx context.Context, res inventory.Reservation) error {
	return r.reserve(ctx, r.db, res)
}

// ReserveAll reserves every line item inside one transaction; the first
// shortfall rolls back every decrement already applied
func (r *GormStockRepository) ReserveAll(ctx context.Context, reservations []inventory.Reservation) error {
	if len(reservations) == 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "No reservations given")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, res := range reservations {
			if err := r.reserve(ctx, tx, res); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormStockRepository) reserve(ctx context.Context, db *gorm.DB, res inventory.Reservation) error {
	if err := res.Validate(); err != nil {
		return err
	}

	result := db.WithContext(ctx).
		Model(&inventory.StockLevel{}).
		Where("product_id = ? AND variant_code = ? AND quantity >= ?", res.ProductID, res.VariantCode, res.Quantity).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", res.Quantity),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// The guard rejected the decrement. Read back the counter only to report
	// the exact available quantity; the rejection itself was atomic.
	var level inventory.StockLevel
	err := db.WithContext(ctx).
		Where("product_id = ? AND variant_code = ?", res.ProductID, res.VariantCode).
		First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return err
	}
	return &inventory.InsufficientStockError{
		ProductID:    res.ProductID,
		VariantCode:  res.VariantCode,
		AvailableQty: level.Quantity,
	}
}

// Release returns previously reserved quantity to stock
func (r *GormStockRepository) Release(ctx context.Context, res inventory.Reservation) error {
	return r.release(ctx, r.db, res)
}

// ReleaseAll releases every line item inside one transaction
func (r *GormStockRepository) ReleaseAll(ctx context.Context, reservations []inventory.Reservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, res := range reservations {
			if err := r.release(ctx, tx, res); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormStockRepository) release(ctx context.Context, db *gorm.DB, res inventory.Reservation) error {
	if err := res.Validate(); err != nil {
		return err
	}
	result := db.WithContext(ctx).
		Model(&inventory.StockLevel{}).
		Where("product_id = ? AND variant_code = ?", res.ProductID, res.VariantCode).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", res.Quantity),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SaveStock creates or replaces a product's stock rows
func (r *GormStockRepository) SaveStock(ctx context.Context, stock inventory.Stock) error {
	var levels []inventory.StockLevel
	now := time.Now()

	switch s := stock.(type) {
	case inventory.FlatStock:
		levels = []inventory.StockLevel{{
			ProductID: s.Product,
			Quantity:  s.Quantity,
			UpdatedAt: now,
		}}
	case inventory.VariantStock:
		for _, v := range s.Variants {
			levels = append(levels, inventory.StockLevel{
				ProductID:   s.Product,
				VariantCode: v.Code,
				Quantity:    v.Quantity,
				UpdatedAt:   now,
			})
		}
	default:
		return shared.NewDomainError("VALIDATION_ERROR", "Unknown stock shape")
	}

	if len(levels) == 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Variant stock must have at least one variant")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", stock.ProductID()).Delete(&inventory.StockLevel{}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "variant_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).Create(&levels).Error
	})
}

// Ensure GormStockRepository implements inventory.Repository
var _ inventory.Repository = (*GormStockRepository)(nil)
