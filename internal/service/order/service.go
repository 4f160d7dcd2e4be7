package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/logging"
	orderrepo "storefront/internal/repository/order"
)

// DefaultListLimit is the admin order page size when none is given.
const DefaultListLimit = 10

type Service struct {
	repo      orderrepo.Repository
	products  productReader
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

type productReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo orderrepo.Repository, products productReader, publisher events.Publisher, logger *zap.Logger) *Service {
	logger = logging.OrNop(logger)
	if publisher == nil {
		publisher = events.NewLog(logger)
	}
	return &Service{
		repo:      repo,
		products:  products,
		publisher: publisher,
		logger:    logger.Named("order"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type ItemInput struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

// PlaceInput describes a checkout. With no Items the caller's cart is ordered.
// TaxPrice and ShippingPrice override the quoted charges for admins only.
type PlaceInput struct {
	Items           []ItemInput            `json:"orderItems"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	TaxPrice        *decimal.Decimal       `json:"taxPrice,omitempty"`
	ShippingPrice   *decimal.Decimal       `json:"shippingPrice,omitempty"`
	Notes           string                 `json:"orderNotes,omitempty"`
	// PlacementToken makes retries of the same checkout return the first order.
	PlacementToken string `json:"-"`
}

// PlaceOrder debits stock, stores the order and empties the caller's cart as
// one unit. It reports created=false when PlacementToken matched an earlier
// order, which is returned unchanged.
func (s *Service) PlaceOrder(ctx context.Context, caller domain.Identity, in PlaceInput) (order *domain.Order, created bool, err error) {
	if caller.UserID == "" {
		return nil, false, domain.ErrUnauthorized
	}
	method, err := domain.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, false, err
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return nil, false, err
	}

	var direct []domain.OrderItem
	if len(in.Items) > 0 {
		if direct, err = s.catalogItems(ctx, in.Items); err != nil {
			return nil, false, err
		}
	}
	now := s.now()

	build := func(cart domain.Cart) (*domain.Order, error) {
		items := direct
		if items == nil {
			if len(cart.Items) == 0 {
				return nil, fmt.Errorf("cart is empty: %w", domain.ErrValidation)
			}
			items = cart.OrderItems()
		}
		o, err := domain.NewOrder(caller.UserID, items, in.ShippingAddress, method, s.charges(caller, items, in), now)
		if err != nil {
			return nil, err
		}
		o.Notes = strings.TrimSpace(in.Notes)
		return o, nil
	}

	placed, created, err := s.repo.Place(ctx, caller.UserID, strings.TrimSpace(in.PlacementToken), build)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("order placed", zap.String("orderID", placed.ID), zap.String("userID", caller.UserID))
		s.publish(ctx, events.OrderPlaced, placed)
	}
	return placed, created, nil
}

// charges quotes tax and shipping for items. Only admins may override them.
func (s *Service) charges(caller domain.Identity, items []domain.OrderItem, in PlaceInput) domain.Charges {
	charges := domain.QuoteCharges(domain.ItemsTotal(items))
	if !caller.IsAdmin() {
		return charges
	}
	if in.TaxPrice != nil {
		charges.Tax = *in.TaxPrice
	}
	if in.ShippingPrice != nil {
		charges.Shipping = *in.ShippingPrice
	}
	charges.Total = charges.Items.Add(charges.Tax).Add(charges.Shipping)
	return charges
}

// CancelOrder cancels on behalf of the owner or an admin and returns the
// units to stock.
func (s *Service) CancelOrder(ctx context.Context, caller domain.Identity, orderID string) (*domain.Order, error) {
	updated, err := s.repo.Update(ctx, orderID, func(o *domain.Order) error {
		if !caller.CanAccess(o.UserID) {
			return fmt.Errorf("order %s: %w", orderID, domain.ErrForbidden)
		}
		return o.Cancel(caller, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("order cancelled", zap.String("orderID", orderID), zap.String("by", caller.UserID))
	s.publish(ctx, events.OrderCancelled, updated)
	return updated, nil
}

// UpdateStatus moves an order along the lifecycle. Admin only. A move to
// Cancelled restores stock the same way CancelOrder does.
func (s *Service) UpdateStatus(ctx context.Context, caller domain.Identity, orderID, status, note string) (*domain.Order, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("update order status: %w", domain.ErrForbidden)
	}
	target, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, orderID, func(o *domain.Order) error {
		if target == domain.StatusCancelled && strings.TrimSpace(note) == "" {
			return o.Cancel(caller, s.now())
		}
		return o.TransitionTo(target, note, s.now())
	})
	if err != nil {
		return nil, err
	}
	kind := events.OrderStatusChanged
	if updated.Status == domain.StatusCancelled {
		kind = events.OrderCancelled
	}
	s.logger.Info("order status updated", zap.String("orderID", orderID), zap.String("status", string(updated.Status)))
	s.publish(ctx, kind, updated)
	return updated, nil
}

// UpdatePaymentStatus records the payment provider's result for an order.
func (s *Service) UpdatePaymentStatus(ctx context.Context, caller domain.Identity, orderID, externalID, status string) (*domain.Order, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, fmt.Errorf("payment status required: %w", domain.ErrValidation)
	}
	updated, err := s.repo.Update(ctx, orderID, func(o *domain.Order) error {
		if !caller.CanAccess(o.UserID) {
			return fmt.Errorf("order %s: %w", orderID, domain.ErrForbidden)
		}
		o.RecordPayment(strings.TrimSpace(externalID), status, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.OrderPaymentUpdated, updated)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, caller domain.Identity, orderID string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(o.UserID) {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrForbidden)
	}
	return o, nil
}

func (s *Service) ListMine(ctx context.Context, caller domain.Identity) ([]domain.Order, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.ListByUser(ctx, caller.UserID)
}

// ListAll pages through every order, newest first. An empty status lists all.
func (s *Service) ListAll(ctx context.Context, caller domain.Identity, status string, page, limit int) ([]domain.Order, domain.Pagination, error) {
	if !caller.IsAdmin() {
		return nil, domain.Pagination{}, fmt.Errorf("list orders: %w", domain.ErrForbidden)
	}
	filter := domain.OrderFilter{Page: domain.NewPage(page, limit, DefaultListLimit)}
	if strings.TrimSpace(status) != "" {
		st, err := domain.ParseOrderStatus(status)
		if err != nil {
			return nil, domain.Pagination{}, err
		}
		filter.Status = st
	}
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return orders, filter.Page.Result(total), nil
}

// catalogItems snapshots explicitly requested lines at current catalog prices.
func (s *Service) catalogItems(ctx context.Context, in []ItemInput) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(in))
	for _, req := range in {
		if req.Quantity < 1 {
			return nil, fmt.Errorf("quantity for %s must be at least 1: %w", req.ProductID, domain.ErrValidation)
		}
		p, err := s.products.GetByID(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.IsActive {
			return nil, fmt.Errorf("product %s: %w", req.ProductID, domain.ErrNotFound)
		}
		if p.Stock < req.Quantity {
			return nil, fmt.Errorf("only %d units of %q left: %w", p.Stock, p.Name, domain.ErrInsufficientStock)
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Thumbnail(),
			Quantity:  req.Quantity,
			Price:     p.Price,
		})
	}
	return items, nil
}

// publish sends an event once the change is committed. Failures are logged
// and do not affect the caller.
func (s *Service) publish(ctx context.Context, kind events.Type, o *domain.Order) {
	e := events.NewOrderEvent(kind, *o, s.now())
	if err := s.publisher.PublishOrder(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("publish order event failed",
			zap.String("type", string(kind)),
			zap.String("orderID", o.ID),
			zap.Error(err),
		)
	}
}
