// Package orders is a small order-taking service built on svckit. It
// reserves stock and records the order inside one guarded transaction,
// caches reads in Redis when the cache registry is initialized, and
// reports failures through the generated OrderError responses.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/uptrace/bun"

	"github.com/fernandezvara/svckit"
)

const cachePrefix = "orders:"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Service implements the order operations
type Service struct {
	db       *svckit.Pool
	caches   *svckit.CacheRegistry
	logger   *slog.Logger
	cacheTTL time.Duration
}

// NewService returns a Service. caches may be nil or uninitialized, in
// which case reads always go to the database.
func NewService(db *svckit.Pool, caches *svckit.CacheRegistry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		caches:   caches,
		logger:   logger,
		cacheTTL: 5 * time.Minute,
	}
}

// Create reserves stock for req and records the order. Both happen in one
// transaction, so a failed insert gives the stock back.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}

	order := &Order{Customer: req.Customer, SKU: req.SKU, Quantity: req.Quantity}
	err := s.db.WithTx(ctx, func(tx *svckit.Guard) error {
		n, err := svckit.Exec(ctx, tx,
			"UPDATE stock SET available = available - ? WHERE sku = ? AND available >= ?",
			req.Quantity, req.SKU, req.Quantity)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInsufficientStock
		}
		return svckit.Create(ctx, tx, order)
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("order created", "order_id", order.ID, "sku", order.SKU, "quantity", order.Quantity)
	return order, nil
}

// Restock adds units per SKU, creating unknown SKUs
func (s *Service) Restock(ctx context.Context, req RestockRequest) (int64, error) {
	if err := validate.Struct(req); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}

	var n int64
	err := s.db.WithTx(ctx, func(tx *svckit.Guard) error {
		var err error
		n, err = svckit.BatchUpsert(ctx, tx, req.Items, "sku",
			[]string{"available = ?TableAlias.available + EXCLUDED.available"}, 0)
		return err
	})
	if err != nil {
		return 0, classify(err)
	}

	s.logger.Info("stock replenished", "skus", n)
	return n, nil
}

// Get loads an order, consulting the cache first
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	cache := s.cache()
	key := strconv.FormatInt(id, 10)
	if cache != nil {
		var cached Order
		hit, err := cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("order cache read failed", "order_id", id, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	var order *Order
	err := s.db.ReadOnlyTx(ctx, func(tx *svckit.Guard) error {
		var err error
		order, err = svckit.FindByID[Order](ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	if cache != nil {
		if err := cache.SetJSON(ctx, key, order, s.cacheTTL); err != nil {
			s.logger.Warn("order cache write failed", "order_id", id, "error", err)
		}
	}
	return order, nil
}

// List returns a page of orders, oldest first. customer filters when set;
// after is the NextCursor of the previous page.
func (s *Service) List(ctx context.Context, customer, after string, limit int) (*svckit.Page[Order], error) {
	var page *svckit.Page[Order]
	err := s.db.ReadOnlyTx(ctx, func(tx *svckit.Guard) error {
		var err error
		page, err = svckit.ListAfter(ctx, tx,
			svckit.PageRequest{Column: "o.id", After: after, Limit: limit},
			func(o *Order) string { return strconv.FormatInt(o.ID, 10) },
			func(q *bun.SelectQuery) *bun.SelectQuery {
				if customer != "" {
					q = q.Where("?TableAlias.customer = ?", customer)
				}
				return q
			})
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return page, nil
}

// Cancel deletes an order and returns its units to stock
func (s *Service) Cancel(ctx context.Context, id int64) error {
	err := s.db.WithTx(ctx, func(tx *svckit.Guard) error {
		order, err := svckit.FindByID[Order](ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := svckit.Exec(ctx, tx,
			"UPDATE stock SET available = available + ? WHERE sku = ?",
			order.Quantity, order.SKU); err != nil {
			return err
		}
		return svckit.DeleteByID[Order](ctx, tx, id)
	})
	if err != nil {
		return classify(err)
	}

	if cache := s.cache(); cache != nil {
		if err := cache.Forget(ctx, strconv.FormatInt(id, 10)); err != nil {
			s.logger.Warn("order cache invalidation failed", "order_id", id, "error", err)
		}
	}
	return nil
}

// Health reports the state of the database and the cache
func (s *Service) Health(ctx context.Context) svckit.HealthReport {
	return svckit.CheckHealth(ctx, s.db, s.caches)
}

func (s *Service) cache() *svckit.Cache {
	if s.caches == nil {
		return nil
	}
	c, err := s.caches.Conn()
	if err != nil {
		return nil
	}
	return c.WithPrefix(cachePrefix)
}

// classify maps storage errors to the variants clients see. The cause stays
// in the chain for logging.
func classify(err error) error {
	var oe OrderError
	if errors.As(err, &oe) {
		return err
	}
	switch {
	case svckit.IsNotFound(err):
		return fmt.Errorf("%w: %w", ErrOrderNotFound, err)
	case errors.Is(err, svckit.ErrInvalidCursor):
		return fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	case svckit.IsDuplicate(err):
		return fmt.Errorf("%w: %w", ErrDuplicateOrder, err)
	case svckit.IsAcquire(err), svckit.IsConnection(err), svckit.IsTimeout(err):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
