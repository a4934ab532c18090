package repository

import (
	"context"
	"fmt"

	"github.com/digkill/gddforge/internal/models"
)

type OrderRepository struct {
	store *Store
}

func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{store: store}
}

// Record stores the processed-order marker keyed by order id.
// It returns false when the order was already recorded.
func (r *OrderRepository) Record(ctx context.Context, order models.ProcessedOrder) (bool, error) {
	insert := r.store.builder.
		Insert("processed_orders").
		Columns("order_id", "user_id", "variant_id", "package_id", "credits", "status", "raw_payload").
		Values(order.OrderID, order.UserID, order.VariantID, order.PackageID, order.Credits, order.Status, order.RawPayload)

	res, err := r.store.exec(ctx, r.store.upsertIgnore(insert, "order_id"))
	if err != nil {
		return false, fmt.Errorf("insert processed order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("processed order rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]models.ProcessedOrder, error) {
	rows, err := r.store.query(ctx, r.store.builder.
		Select("order_id", "user_id", "variant_id", "package_id", "credits", "status", "created_at").
		From("processed_orders").
		OrderBy("created_at DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("list processed orders: %w", err)
	}
	defer rows.Close()

	var orders []models.ProcessedOrder
	for rows.Next() {
		var o models.ProcessedOrder
		if err := rows.Scan(&o.OrderID, &o.UserID, &o.VariantID, &o.PackageID, &o.Credits, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan processed order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
