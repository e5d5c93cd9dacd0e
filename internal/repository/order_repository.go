package repository

import (
	"context"
	"errors"
	"fmt"

	"threadloom/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	o.id, o.user_id, o.order_number, o.delivery_address, o.total_amount, o.expected_delivery,
	o.payment_method, o.payment_id, o.payer_id, o.status, o.created_at, o.updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, order_number, delivery_address, total_amount,
			expected_delivery, payment_method, payment_id, payer_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (order_number) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query,
		order.ID, order.UserID, order.OrderNumber, order.DeliveryAddress, order.TotalAmount,
		order.ExpectedDelivery, order.PaymentMethod, order.PaymentID, order.PayerID, order.Status,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Warn().
			Str("order_number", order.OrderNumber).
			Msg("order number collision")
		return ErrOrderNumberTaken
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, position, quantity, price, total, status, cancellation_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.OrderID, item.ProductID, item.Position, item.Quantity,
			item.Price, item.Total, item.Status, item.CancellationReason,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID.String()).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

func scanOrder(row pgx.Row, extra ...any) (model.Order, error) {
	var o model.Order
	dest := []any{
		&o.ID, &o.UserID, &o.OrderNumber, &o.DeliveryAddress, &o.TotalAmount, &o.ExpectedDelivery,
		&o.PaymentMethod, &o.PaymentID, &o.PayerID, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return o, err
}

// GetByID retrieves an order with its items, their products and the owning user.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + `, u.name, u.email, u.mobile
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1`

	var user model.UserSummary
	order, err := scanOrder(r.pool.QueryRow(ctx, query, id), &user.Name, &user.Email, &user.Mobile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	user.ID = order.UserID
	order.User = &user

	items, err := r.loadItems(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	if order.Items == nil {
		order.Items = []model.OrderItem{}
	}

	return &order, nil
}

// ListByUser returns a user's orders, newest first, with items.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query user orders")
		return nil, fmt.Errorf("failed to query user orders: %w", err)
	}

	orders, err := r.collect(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// List returns a page of all orders, newest first, and the total count.
func (r *orderRepository) List(ctx context.Context, limit, offset int) ([]model.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders")
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + `, u.name, u.email, u.mobile
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC, o.id
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var user model.UserSummary
		o, err := scanOrder(rows, &user.Name, &user.Email, &user.Mobile)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		user.ID = o.UserID
		o.User = &user
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) collect(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []model.OrderItem{}
		}
	}
	return nil
}

// loadItems returns the items of the given orders keyed by order id, in
// placement order, each with its product expanded.
func (r *orderRepository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]model.OrderItem, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.position, oi.quantity, oi.price, oi.total,
			oi.status, oi.cancellation_reason, ` + productColumns + `
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.position
	`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		r.logger.Error().Err(err).Int("orders", len(orderIDs)).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]model.OrderItem, len(orderIDs))
	for rows.Next() {
		var item model.OrderItem
		var p model.Product
		dest := []any{
			&item.ID, &item.OrderID, &item.ProductID, &item.Position, &item.Quantity, &item.Price, &item.Total,
			&item.Status, &item.CancellationReason,
		}
		err := rows.Scan(append(dest, productFields(&p)...)...)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		applyOffer(&p)
		item.Product = &p
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// MarkPaid sets status paid and the payment id; payerID is stored only when non-nil.
func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentID, payerID *string) error {
	query := `
		UPDATE orders
		SET status = $2, payment_id = $3, payer_id = COALESCE($4, payer_id), updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, model.OrderStatusPaid, paymentID, payerID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to mark order paid")
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// CancelItem updates the single item row; the rest of the order is untouched.
func (r *orderRepository) CancelItem(ctx context.Context, orderID, itemID uuid.UUID, reason *string) error {
	query := `
		UPDATE order_items
		SET status = $3, cancellation_reason = COALESCE($4, cancellation_reason)
		WHERE id = $1 AND order_id = $2
	`

	tag, err := r.pool.Exec(ctx, query, itemID, orderID, model.ItemStatusCancelled, reason)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Str("item_id", itemID.String()).
			Msg("failed to cancel order item")
		return fmt.Errorf("failed to cancel order item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderItemNotFound
	}

	_, err = r.pool.Exec(ctx, `UPDATE orders SET updated_at = NOW() WHERE id = $1`, orderID)
	if err != nil {
		r.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("failed to touch order timestamp")
	}

	return nil
}
