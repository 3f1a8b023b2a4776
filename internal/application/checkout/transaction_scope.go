package checkout

import (
	"context"

	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/order"
)

// TransactionScope provides transactional access to the repositories a
// settlement touches. Stock reservation, coupon claim and order insert
// commit or roll back as one unit; a shortfall on any line item leaves
// every ledger untouched.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the settlement repositories
// bound to the current transaction.
type TransactionalRepositories interface {
	// Orders returns the order repository scoped to the current transaction
	Orders() order.Repository
	// Stock returns the stock repository scoped to the current transaction
	Stock() inventory.Repository
	// Coupons returns the coupon repository scoped to the current transaction
	Coupons() coupon.Repository
}
