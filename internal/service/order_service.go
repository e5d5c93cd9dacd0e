package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"threadloom/internal/events"
	"threadloom/internal/model"
	"threadloom/internal/payment"
	"threadloom/internal/pricing"
	"threadloom/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// OrderNumberPrefix starts every display order number.
	OrderNumberPrefix = "threadLoom"

	orderNumberDigits   = 5
	orderNumberAttempts = 5
	deliveryDays        = 5
	defaultOrderLimit   = 10
	maxOrderLimit       = 100
)

// OrderConfig holds the settings placement needs from the process config.
type OrderConfig struct {
	// PublicBaseURL is where the payment provider sends the buyer back.
	PublicBaseURL string
	Currency      string
}

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	addressRepo repository.AddressRepository
	provider    payment.Provider
	publisher   events.Publisher
	cfg         OrderConfig
	logger      zerolog.Logger

	now            func() time.Time
	newOrderNumber func() string
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	addressRepo repository.AddressRepository,
	provider payment.Provider,
	publisher events.Publisher,
	cfg OrderConfig,
	logger zerolog.Logger,
) OrderService {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &orderService{
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		cartRepo:       cartRepo,
		addressRepo:    addressRepo,
		provider:       provider,
		publisher:      publisher,
		cfg:            cfg,
		logger:         logger.With().Str("service", "order").Logger(),
		now:            time.Now,
		newOrderNumber: generateOrderNumber,
	}
}

// generateOrderNumber returns the prefix followed by random decimal digits.
func generateOrderNumber() string {
	b := make([]byte, orderNumberDigits)
	for i := range b {
		b[i] = byte('0' + rand.IntN(10))
	}
	return OrderNumberPrefix + string(b)
}

// Checkout assembles the cart lines, their total and the user's addresses.
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID) (*model.CheckoutView, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load cart")
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load addresses")
		return nil, fmt.Errorf("failed to load addresses: %w", err)
	}

	lines, total := cartLines(items)
	return &model.CheckoutView{
		CartItems:  lines,
		TotalPrice: total,
		Addresses:  addresses,
	}, nil
}

// cartLines computes per-line subtotals and the cart total at the products'
// current selling prices, the same prices placement checks against.
func cartLines(items []model.CartItem) ([]model.CartLine, float64) {
	lines := make([]model.CartLine, len(items))
	subtotals := make([]float64, len(items))
	for i, item := range items {
		item.Price = item.UnitPrice()
		subtotals[i] = pricing.LineTotal(item.Price, item.Quantity)
		lines[i] = model.CartLine{CartItem: item, Subtotal: subtotals[i]}
	}
	return lines, pricing.Sum(subtotals...)
}

// PlaceOrder validates the request against the catalogue, persists the order
// and continues with the chosen payment method.
func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, req *model.PlaceOrderRequest) (*model.PlacedOrder, error) {
	address, err := s.resolveAddress(ctx, userID, req.AddressID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expected := now.AddDate(0, 0, deliveryDays)

	method, err := model.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		s.logger.Warn().Str("payment_method", req.PaymentMethod).Msg("invalid payment method")
		return nil, err
	}

	items, products, err := s.priceItems(ctx, req)
	if err != nil {
		return nil, err
	}

	totals := make([]float64, len(items))
	for i := range items {
		totals[i] = items[i].Total
	}
	total := pricing.Sum(totals...)
	if !pricing.Equal(total, req.Total.Float64()) {
		s.logger.Warn().
			Float64("submitted_total", req.Total.Float64()).
			Float64("computed_total", total).
			Msg("order total mismatch")
		return nil, model.ErrTotalMismatch
	}

	order := &model.Order{
		ID:               uuid.New(),
		UserID:           userID,
		DeliveryAddress:  address.Snapshot(),
		TotalAmount:      total,
		ExpectedDelivery: expected,
		PaymentMethod:    method,
		Status:           model.OrderStatusPlaced,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	order.Items = items

	if err := s.persist(ctx, order); err != nil {
		return nil, err
	}

	if method == model.PaymentMethodCOD {
		if err := s.cartRepo.DeleteByUser(ctx, userID); err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to clear cart")
			return nil, fmt.Errorf("failed to clear cart: %w", err)
		}
		s.publish(ctx, events.OrderPlaced, order, nil)

		s.logger.Info().
			Str("order_id", order.ID.String()).
			Str("order_number", order.OrderNumber).
			Int("item_count", len(items)).
			Msg("cash on delivery order placed")
		return &model.PlacedOrder{Order: order}, nil
	}

	approvalURL, err := s.createPayment(ctx, order, products)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.OrderPlaced, order, nil)

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order awaiting paypal approval")
	return &model.PlacedOrder{Order: order, ApprovalURL: approvalURL}, nil
}

// resolveAddress returns the user's address; ids that do not parse or that
// belong to someone else are treated as absent.
func (s *orderService) resolveAddress(ctx context.Context, userID uuid.UUID, rawID string) (*model.Address, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, model.ErrAddressNotFound
	}

	address, err := s.addressRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("address_id", rawID).Msg("failed to load address")
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	if address == nil || address.UserID != userID {
		s.logger.Debug().Str("address_id", rawID).Msg("address not found")
		return nil, model.ErrAddressNotFound
	}
	return address, nil
}

// priceItems checks each submitted line against the current catalogue price
// and returns the order items in submission order.
func (s *orderService) priceItems(ctx context.Context, req *model.PlaceOrderRequest) ([]model.OrderItem, map[uuid.UUID]model.Product, error) {
	if len(req.Items) == 0 {
		return nil, nil, model.ErrEmptyOrder
	}

	ids := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 || item.Quantity > model.MaxItemQuantity {
			s.logger.Warn().
				Int("item_index", i).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return nil, nil, model.ErrInvalidQuantity
		}
		id, err := uuid.Parse(string(item.ProductID))
		if err != nil {
			return nil, nil, model.ErrProductNotFound
		}
		ids[i] = id
	}

	found, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load products")
		return nil, nil, fmt.Errorf("failed to load products: %w", err)
	}
	products := make(map[uuid.UUID]model.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}

	items := make([]model.OrderItem, len(req.Items))
	for i, line := range req.Items {
		product, ok := products[ids[i]]
		if !ok || product.IsUnlisted {
			s.logger.Warn().Str("product_id", ids[i].String()).Msg("product not available")
			return nil, nil, model.ErrProductNotFound
		}
		if !pricing.Equal(product.Price, line.Price.Float64()) {
			s.logger.Warn().
				Str("product_id", ids[i].String()).
				Float64("submitted_price", line.Price.Float64()).
				Float64("catalog_price", product.Price).
				Msg("price mismatch")
			return nil, nil, model.ErrPriceMismatch
		}
		items[i] = model.OrderItem{
			ID:        uuid.New(),
			ProductID: product.ID,
			Position:  i,
			Quantity:  line.Quantity,
			Price:     product.Price,
			Total:     pricing.LineTotal(product.Price, line.Quantity),
			Status:    model.ItemStatusPlaced,
		}
	}
	return items, products, nil
}

// persist writes the order and its items in one transaction, drawing a new
// order number whenever the current one is already taken.
func (s *orderService) persist(ctx context.Context, order *model.Order) error {
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		order.OrderNumber = s.newOrderNumber()

		err := s.createInTx(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrOrderNumberTaken) {
			return err
		}
		s.logger.Warn().
			Str("order_number", order.OrderNumber).
			Int("attempt", attempt).
			Msg("order number collision")
	}
	return fmt.Errorf("failed to create order: no free order number after %d attempts", orderNumberAttempts)
}

func (s *orderService) createInTx(ctx context.Context, order *model.Order) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		if errors.Is(err, repository.ErrOrderNumberTaken) {
			return err
		}
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, order.Items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(order.Items)).
			Msg("failed to create order items")
		return fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// createPayment asks the provider for a sale covering the order and returns
// the approval URL the buyer should follow.
func (s *orderService) createPayment(ctx context.Context, order *model.Order, products map[uuid.UUID]model.Product) (string, error) {
	lines := make([]payment.Item, len(order.Items))
	for i, item := range order.Items {
		product := products[item.ProductID]
		lines[i] = payment.Item{
			Name:        product.Name,
			Description: payment.TruncateDescription(product.Description),
			Quantity:    fmt.Sprintf("%d", item.Quantity),
			Price:       pricing.Format(item.Price),
			Currency:    s.cfg.Currency,
		}
	}

	base := s.cfg.PublicBaseURL
	req := &payment.CreatePaymentRequest{
		Intent: "sale",
		Payer:  payment.Payer{PaymentMethod: "paypal"},
		RedirectURLs: payment.RedirectURLs{
			ReturnURL: base + "/order/paymentSuccess/" + order.ID.String(),
			CancelURL: base + "/order/paymentCancel/" + order.ID.String(),
		},
		Transactions: []payment.Transaction{{
			Amount: payment.Amount{
				Currency: s.cfg.Currency,
				Total:    pricing.Format(order.TotalAmount),
			},
			Description: "Order " + order.OrderNumber,
			ItemList:    payment.ItemList{Items: lines},
		}},
	}

	created, err := s.provider.CreatePayment(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create paypal payment")
		return "", &PaymentError{Err: err}
	}

	approval, ok := created.ApprovalURL()
	if !ok {
		s.logger.Error().Str("payment_id", created.ID).Msg("paypal response has no approval link")
		return "", &PaymentError{Err: payment.ErrNoApprovalURL}
	}

	u, err := url.Parse(approval)
	if err != nil {
		return "", &PaymentError{Err: fmt.Errorf("invalid approval url: %w", err)}
	}
	if payerID := created.PayerID(); payerID != "" {
		q := u.Query()
		q.Set("payerId", payerID)
		u.RawQuery = q.Encode()
	}

	s.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("payment_id", created.ID).
		Msg("paypal payment created")
	return u.String(), nil
}

// PaymentSuccess records the provider's payment against the order and clears
// the owner's cart.
func (s *orderService) PaymentSuccess(ctx context.Context, orderID uuid.UUID, paymentID, payerID string) (*model.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var pid, payer *string
	if paymentID != "" {
		pid = &paymentID
	}
	if payerID != "" {
		payer = &payerID
	}

	if err := s.orderRepo.MarkPaid(ctx, orderID, pid, payer); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to mark order paid")
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}
	order.Status = model.OrderStatusPaid
	order.PaymentID = pid
	if payer != nil {
		order.PayerID = payer
	}

	if err := s.cartRepo.DeleteByUser(ctx, order.UserID); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to clear cart")
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	s.publish(ctx, events.OrderPaid, order, nil)

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("payment_id", paymentID).
		Msg("order paid")
	return order, nil
}

// PaymentCancel returns the order untouched; the buyer may retry payment.
func (s *orderService) PaymentCancel(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", orderID.String()).Msg("paypal payment cancelled by buyer")
	return order, nil
}

// GetOrder returns an order if it belongs to the user.
func (s *orderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("user_id", userID.String()).
			Msg("order requested by another user")
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// CancelItem cancels one line of the user's order. Cancelling an item that
// is already cancelled succeeds without changing it.
func (s *orderService) CancelItem(ctx context.Context, userID, orderID, itemID uuid.UUID, reason string) error {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return err
	}

	var item *model.OrderItem
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			item = &order.Items[i]
			break
		}
	}
	if item == nil {
		return model.ErrOrderItemNotFound
	}
	if item.Status == model.ItemStatusCancelled {
		return nil
	}

	var why *string
	if reason != "" {
		why = &reason
	}
	if err := s.orderRepo.CancelItem(ctx, orderID, itemID, why); err != nil {
		if errors.Is(err, model.ErrOrderItemNotFound) {
			return err
		}
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to cancel order item")
		return fmt.Errorf("failed to cancel order item: %w", err)
	}
	s.publish(ctx, events.OrderItemCancelled, order, &itemID)

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("item_id", itemID.String()).
		Msg("order item cancelled")
	return nil
}

// ListUserOrders returns the user's orders, newest first.
func (s *orderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListOrders returns a page of all orders for the admin list.
func (s *orderService) ListOrders(ctx context.Context, page, limit int) (*model.OrderPage, error) {
	page, limit = normalizePage(page, limit, defaultOrderLimit, maxOrderLimit)

	orders, total, err := s.orderRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &model.OrderPage{
		Orders:      orders,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

// UpdateStatus sets the order's overall status.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*model.Order, error) {
	st := model.OrderStatus(status)
	if !st.Valid() {
		return nil, model.ErrInvalidOrderStatus
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, st); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to update order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = st
	s.publish(ctx, events.OrderStatusChanged, order, nil)
	return order, nil
}

func (s *orderService) load(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		s.logger.Debug().Str("order_id", orderID.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// publish emits an order event. Failures are logged only.
func (s *orderService) publish(ctx context.Context, typ string, order *model.Order, itemID *uuid.UUID) {
	evt := events.Event{
		Type:        typ,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		ItemID:      itemID,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("event", typ).Str("order_id", order.ID.String()).Msg("failed to publish order event")
	}
}
