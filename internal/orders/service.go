package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/internal/cart"
	"github.com/angelmondragon/foodhall-backend/internal/coupons"
	"github.com/angelmondragon/foodhall-backend/internal/locks"
	"github.com/angelmondragon/foodhall-backend/internal/pricing"
	"github.com/angelmondragon/foodhall-backend/internal/wallet"
	"github.com/angelmondragon/foodhall-backend/pkg/db"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/metrics"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/foodhall-backend/pkg/pagination"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

// DefaultDeliveryWindow is added to the assignment time to estimate delivery.
const DefaultDeliveryWindow = 35 * time.Minute

// Service owns the order lifecycle: placement, transitions and courier assignment.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	Advance(ctx context.Context, actor Actor, orderID int64, to enums.OrderStatus) (*models.Order, error)
	Cancel(ctx context.Context, actor Actor, orderID int64) (*models.Order, error)
	AssignCourier(ctx context.Context, actor Actor, orderID, courierID int64) (*models.Order, error)
	Get(ctx context.Context, actor Actor, orderID int64) (*models.Order, error)
	ListForUser(ctx context.Context, userID int64, params ListParams) (*OrderPage, error)
	ListForSeller(ctx context.Context, sellerID int64, params ListParams) (*OrderPage, error)
	ListForCourier(ctx context.Context, courierID int64, params ListParams) (*OrderPage, error)
}

// CartSource is the checkout view of the cart.
type CartSource interface {
	Snapshot(ctx context.Context, userID int64) ([]pricing.Line, error)
	ClearTx(ctx context.Context, tx *gorm.DB, userID int64) error
}

type CouponValidator interface {
	Validate(ctx context.Context, code string, sellerID int64, subtotal decimal.Decimal) (*coupons.Coupon, error)
}

// WalletLedger is the part of the wallet the order flow writes to.
type WalletLedger interface {
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	AppendTx(ctx context.Context, tx *gorm.DB, input wallet.AppendInput) (*models.WalletTransaction, error)
}

type ServiceParams struct {
	Repo           Repository
	Tx             db.TxRunner
	Locker         locks.Locker
	Cart           CartSource
	Coupons        CouponValidator
	Wallet         WalletLedger
	Calculator     *pricing.Calculator
	Events         outbox.Emitter
	Metrics        *metrics.DomainMetrics
	Logger         *logger.Logger
	Now            func() time.Time
	DeliveryWindow time.Duration
}

type service struct {
	repo           Repository
	tx             db.TxRunner
	locker         locks.Locker
	cart           CartSource
	coupons        CouponValidator
	wallet         WalletLedger
	calculator     *pricing.Calculator
	events         outbox.Emitter
	metrics        *metrics.DomainMetrics
	logg           *logger.Logger
	now            func() time.Time
	deliveryWindow time.Duration
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Locker == nil:
		return nil, fmt.Errorf("locker required")
	case params.Cart == nil:
		return nil, fmt.Errorf("cart source required")
	case params.Coupons == nil:
		return nil, fmt.Errorf("coupon validator required")
	case params.Wallet == nil:
		return nil, fmt.Errorf("wallet ledger required")
	case params.Calculator == nil:
		return nil, fmt.Errorf("pricing calculator required")
	}
	svc := &service{
		repo:           params.Repo,
		tx:             params.Tx,
		locker:         params.Locker,
		cart:           params.Cart,
		coupons:        params.Coupons,
		wallet:         params.Wallet,
		calculator:     params.Calculator,
		events:         params.Events,
		metrics:        params.Metrics,
		logg:           params.Logger,
		now:            params.Now,
		deliveryWindow: params.DeliveryWindow,
	}
	if svc.events == nil {
		svc.events = outbox.NopEmitter{}
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.deliveryWindow <= 0 {
		svc.deliveryWindow = DefaultDeliveryWindow
	}
	return svc, nil
}

// PlaceOrder turns the user's cart into a pending order. Reads and pricing
// happen under the user lock before the transaction; the order insert, the
// wallet debit, the cart clear and the event commit or roll back together.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if input.UserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AddressID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", input.PaymentMethod)
	}

	unlock, err := s.locker.Lock(ctx, locks.UserKey(input.UserID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	lines, err := s.cart.Snapshot(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	sellerID, err := cart.SingleSeller(lines)
	if err != nil {
		return nil, err
	}

	var (
		discounter pricing.Discounter
		couponCode *string
	)
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		coupon, err := s.coupons.Validate(ctx, code, sellerID, pricing.Subtotal(lines))
		if err != nil {
			return nil, err
		}
		discounter = coupon
		couponCode = &coupon.Code
	}
	quote := s.calculator.Price(lines, discounter)

	debit := input.PaymentMethod.UsesWallet() && quote.Total.IsPositive()
	if debit {
		balance, err := s.wallet.Balance(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		if balance.LessThan(quote.Total) {
			s.metrics.WalletRejected(enums.WalletTxOrderPayment.String())
			return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientFunds, "wallet balance %s does not cover order total %s", types.FormatMoney(balance), types.FormatMoney(quote.Total)).
				WithDetails(map[string]string{
					"balance":  types.FormatMoney(balance),
					"required": types.FormatMoney(quote.Total),
				})
		}
	}

	order := &models.Order{
		OrderNumber:    s.orderNumber(),
		UserID:         input.UserID,
		SellerID:       sellerID,
		AddressID:      input.AddressID,
		PaymentMethod:  input.PaymentMethod,
		Subtotal:       quote.Subtotal,
		DeliveryFee:    quote.DeliveryFee,
		DiscountAmount: quote.DiscountAmount,
		CouponCode:     couponCode,
		TotalAmount:    quote.Total,
		Status:         enums.OrderStatusPending,
		Lines:          orderLines(lines),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "orders_order_number_key") || errors.Is(err, gorm.ErrDuplicatedKey) {
				return pkgerrors.Wrap(pkgerrors.CodeBusy, err, "order number collision")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if debit {
			if _, err := s.wallet.AppendTx(ctx, tx, wallet.AppendInput{
				UserID:         order.UserID,
				Type:           enums.WalletTxOrderPayment,
				Amount:         order.TotalAmount,
				RelatedOrderID: &order.ID,
			}); err != nil {
				return err
			}
		}
		if err := s.cart.ClearTx(ctx, tx, order.UserID); err != nil {
			return err
		}
		return s.emit(ctx, tx, order, Actor{UserID: order.UserID, Role: enums.RoleBuyer}, enums.EventOrderCreated, payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			UserID:        order.UserID,
			SellerID:      order.SellerID,
			PaymentMethod: order.PaymentMethod,
			Subtotal:      types.FormatMoney(order.Subtotal),
			DeliveryFee:   types.FormatMoney(order.DeliveryFee),
			Discount:      types.FormatMoney(order.DiscountAmount),
			Total:         types.FormatMoney(order.TotalAmount),
			CouponCode:    order.CouponCode,
			LineCount:     len(order.Lines),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderPlaced(order.PaymentMethod.String())
	logCtx := s.logg.WithUserID(ctx, order.UserID)
	logCtx = s.logg.WithOrderID(logCtx, order.ID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_number":   order.OrderNumber,
		"seller_id":      order.SellerID,
		"payment_method": order.PaymentMethod.String(),
		"total":          types.FormatMoney(order.TotalAmount),
	})
	s.logg.Info(logCtx, "order.placed")
	return order, nil
}

// Advance moves the order one step. Checks run in order: visibility, then
// legality, then the actor's role permissions. Cancelling a wallet-paid
// order refunds the full total in the same transaction.
func (s *service) Advance(ctx context.Context, actor Actor, orderID int64, to enums.OrderStatus) (*models.Order, error) {
	if !to.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", to)
	}
	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if !CanTransition(from, to) {
		return nil, illegalTransition(from, to)
	}
	if err := authorizeTransition(actor, order, to); err != nil {
		return nil, err
	}

	refund := to == enums.OrderStatusCancelled &&
		order.PaymentMethod.UsesWallet() &&
		order.TotalAmount.IsPositive()
	if refund {
		unlock, err := s.locker.Lock(ctx, locks.UserKey(order.UserID))
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	now := s.now().UTC()
	stamps := map[string]any{}
	switch to {
	case enums.OrderStatusDelivered:
		stamps["delivered_at"] = now
	case enums.OrderStatusCancelled:
		stamps["cancelled_at"] = now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, from, to, stamps)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return illegalTransition(from, to)
		}
		event := payloads.OrderStatusChangedEvent{
			OrderID:   order.ID,
			UserID:    order.UserID,
			SellerID:  order.SellerID,
			From:      from,
			To:        to,
			ChangedAt: now,
		}
		if refund {
			if _, err := s.wallet.AppendTx(ctx, tx, wallet.AppendInput{
				UserID:         order.UserID,
				Type:           enums.WalletTxRefund,
				Amount:         order.TotalAmount,
				RelatedOrderID: &order.ID,
			}); err != nil {
				return err
			}
			refunded := types.FormatMoney(order.TotalAmount)
			event.Refunded = &refunded
		}
		return s.emit(ctx, tx, order, actor, enums.EventOrderStatusChanged, event)
	})
	if err != nil {
		return nil, err
	}

	order.Status = to
	switch to {
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
	}

	s.metrics.OrderTransitioned(to.String())
	logCtx := s.logg.WithOrderID(ctx, order.ID)
	logCtx = s.logg.WithActorRole(logCtx, actor.Role.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"from":     from.String(),
		"to":       to.String(),
		"refunded": refund,
	})
	s.logg.Info(logCtx, "order.advanced")
	return order, nil
}

func (s *service) Cancel(ctx context.Context, actor Actor, orderID int64) (*models.Order, error) {
	return s.Advance(ctx, actor, orderID, enums.OrderStatusCancelled)
}

// AssignCourier hands a ready order to a courier and stamps the delivery estimate.
func (s *service) AssignCourier(ctx context.Context, actor Actor, orderID, courierID int64) (*models.Order, error) {
	if courierID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier id is required")
	}
	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.RoleAdmin && !(actor.Role == enums.RoleSeller && actor.ownsSeller(order.SellerID)) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins or the order's seller may assign couriers")
	}
	if order.Status != enums.OrderStatusReady {
		return nil, pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "courier can only be assigned to a ready order, order is %s", order.Status)
	}

	eta := s.now().UTC().Add(s.deliveryWindow)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).AssignCourier(ctx, order.ID, courierID, eta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign courier")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeIllegalTransition, "order is no longer ready")
		}
		return s.emit(ctx, tx, order, actor, enums.EventOrderCourierAssigned, payloads.OrderCourierAssignedEvent{
			OrderID:   order.ID,
			SellerID:  order.SellerID,
			CourierID: courierID,
		})
	})
	if err != nil {
		return nil, err
	}
	order.CourierID = &courierID
	order.EstimatedDeliveryAt = &eta

	logCtx := s.logg.WithOrderID(ctx, order.ID)
	logCtx = s.logg.WithField(logCtx, "courier_id", courierID)
	s.logg.Info(logCtx, "order.courier_assigned")
	return order, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID int64) (*models.Order, error) {
	return s.load(ctx, actor, orderID)
}

func (s *service) ListForUser(ctx context.Context, userID int64, params ListParams) (*OrderPage, error) {
	return s.list(ctx, ListFilter{UserID: &userID, Status: params.Status}, params.Params)
}

func (s *service) ListForSeller(ctx context.Context, sellerID int64, params ListParams) (*OrderPage, error) {
	return s.list(ctx, ListFilter{SellerID: &sellerID, Status: params.Status}, params.Params)
}

func (s *service) ListForCourier(ctx context.Context, courierID int64, params ListParams) (*OrderPage, error) {
	return s.list(ctx, ListFilter{CourierID: &courierID, Status: params.Status}, params.Params)
}

func (s *service) list(ctx context.Context, filter ListFilter, params pagination.Params) (*OrderPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var beforeID int64
	if cursor != nil {
		beforeID = cursor.Position
	}
	rows, err := s.repo.List(ctx, filter, beforeID, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page, next := pagination.Page(rows, params.Limit, func(o models.Order) int64 { return o.ID })
	return &OrderPage{Orders: page, NextCursor: next}, nil
}

func (s *service) load(ctx context.Context, actor Actor, orderID int64) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "order %d not found", orderID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !canSee(actor, order) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "order %d not found", orderID)
	}
	return order, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, order *models.Order, actor Actor, eventType enums.OutboxEventType, data any) error {
	err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
	}
	return nil
}

// orderNumber is FH-YYYYMMDD-xxxxxxxx with the suffix taken from a random uuid.
func (s *service) orderNumber() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("FH-%s-%s", s.now().UTC().Format("20060102"), strings.ToUpper(suffix))
}

func orderLines(lines []pricing.Line) []models.OrderLine {
	out := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.OrderLine{
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			UnitPrice:  line.UnitPrice,
			Quantity:   line.Quantity,
			LineTotal:  line.Total(),
		})
	}
	return out
}
