package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nattapol/talad/internal/billing"
	"github.com/nattapol/talad/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrBusy is returned when a mutating call arrives while another is still in
// flight for the same session. Callers surface it and let the user retry;
// nothing is queued.
var ErrBusy = &domain.Error{Code: domain.ECONFLICT, Message: "Another request is still being processed"}

// CommerceAPI is the slice of the upstream client the orchestrator drives.
type CommerceAPI interface {
	Cart(ctx context.Context, token string) ([]domain.CartItem, error)
	AddCartItem(ctx context.Context, token, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, token, itemID string) error
	ValidateCoupon(ctx context.Context, token, code string) (decimal.Decimal, error)
	SubmitOrder(ctx context.Context, token string, draft *domain.OrderDraft) (*domain.OrderConfirmation, error)
}

// Quote is the price breakdown for the current checkout session.
type Quote struct {
	Items      []domain.CartItem
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	CouponCode string
}

// OrderSubmission is the user's input at submit time. Line items never come
// from the client; they are rebuilt from the session's cart snapshot.
type OrderSubmission struct {
	Address       domain.ShippingAddress
	PaymentMethod string
	Slip          *domain.PaymentSlip
}

// OrderResult is the outcome of a successful submission.
type OrderResult struct {
	OrderID string

	// PaymentClientSecret is set for card payments when a billing provider
	// is configured; the frontend confirms the payment with it.
	PaymentClientSecret string
}

// CheckoutService sequences the cart and checkout round trips against the
// commerce API, enforces the local invariants (stock pre-check, address
// completeness, coupon replacement, total floor) and owns the per-session
// checkout state: cart snapshot, coupon application and busy flag.
type CheckoutService interface {
	// LoadCart fetches the cart and replaces the session snapshot
	// atomically. On failure the prior snapshot is left untouched.
	LoadCart(ctx context.Context, sess *Session) (*domain.CartSnapshot, error)

	// AddToCart re-reads the live cart, pre-checks stock locally and only
	// then issues the write. Returns the refreshed cart on success.
	AddToCart(ctx context.Context, sess *Session, productID string, quantity int) (*domain.CartSnapshot, error)

	// RemoveFromCart deletes the item and then unconditionally reloads the
	// cart; the server is the source of truth, never an optimistic delta.
	RemoveFromCart(ctx context.Context, sess *Session, itemID string) (*domain.CartSnapshot, error)

	// ApplyCoupon validates the code upstream. Success replaces any prior
	// application in full; rejection clears it so a failed retry never
	// leaves a stale discount applied.
	ApplyCoupon(ctx context.Context, sess *Session, code string) (*domain.CouponApplication, error)

	// Quote computes subtotal, discount and floored total for the session.
	Quote(ctx context.Context, sess *Session) (*Quote, error)

	// SubmitOrder validates the address locally, assembles the order draft
	// from the last-loaded snapshot and submits it. Success clears the
	// session's checkout state; failure leaves everything intact.
	SubmitOrder(ctx context.Context, sess *Session, sub OrderSubmission) (*OrderResult, error)

	// Reset discards all in-memory checkout state for a session. Called on
	// logout.
	Reset(sessionID string)
}

// checkoutState is the per-session mutable state the orchestrator owns.
type checkoutState struct {
	// inflight is the busy flag: at most one mutating call per session.
	inflight sync.Mutex

	// mu guards snapshot and coupon.
	mu       sync.Mutex
	snapshot *domain.CartSnapshot
	coupon   *domain.CouponApplication
}

type checkoutService struct {
	api      CommerceAPI
	catalog  CatalogService
	billing  billing.Provider // nil when card payments are not configured
	validate *validator.Validate
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*checkoutState
}

// NewCheckoutService creates the checkout orchestrator. billingProvider may
// be nil; card orders are then submitted without a payment intent.
func NewCheckoutService(api CommerceAPI, catalog CatalogService, billingProvider billing.Provider, logger *slog.Logger) CheckoutService {
	return &checkoutService{
		api:      api,
		catalog:  catalog,
		billing:  billingProvider,
		validate: validator.New(),
		logger:   logger,
		sessions: make(map[string]*checkoutState),
	}
}

func (s *checkoutService) stateFor(sessionID string) *checkoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &checkoutState{}
		s.sessions[sessionID] = st
	}
	return st
}

// beginMutation acquires the session busy flag without blocking. The caller
// must invoke the returned release func when the round trip completes.
func (s *checkoutService) beginMutation(st *checkoutState) (func(), error) {
	if !st.inflight.TryLock() {
		return nil, ErrBusy
	}
	return st.inflight.Unlock, nil
}

func (s *checkoutService) LoadCart(ctx context.Context, sess *Session) (*domain.CartSnapshot, error) {
	st := s.stateFor(sess.ID)

	items, err := s.api.Cart(ctx, sess.Token)
	if err != nil {
		return nil, err
	}

	snap := &domain.CartSnapshot{Items: items, LoadedAt: time.Now()}
	st.mu.Lock()
	st.snapshot = snap
	st.mu.Unlock()
	return snap, nil
}

func (s *checkoutService) AddToCart(ctx context.Context, sess *Session, productID string, quantity int) (*domain.CartSnapshot, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	st := s.stateFor(sess.ID)
	release, err := s.beginMutation(st)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read the live cart rather than trusting the cached snapshot;
	// another tab may have changed it since the last load.
	items, err := s.api.Cart(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	current := (&domain.CartSnapshot{Items: items}).QuantityOf(productID)

	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	// Local pre-check against last-known stock. No write is issued on
	// failure; the server may still reject independently.
	if current+quantity > product.Stock {
		return nil, domain.ErrStockExceeded
	}

	if err := s.api.AddCartItem(ctx, sess.Token, productID, quantity); err != nil {
		return nil, err
	}

	return s.reload(ctx, sess, st)
}

func (s *checkoutService) RemoveFromCart(ctx context.Context, sess *Session, itemID string) (*domain.CartSnapshot, error) {
	st := s.stateFor(sess.ID)
	release, err := s.beginMutation(st)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.api.RemoveCartItem(ctx, sess.Token, itemID); err != nil {
		return nil, err
	}

	return s.reload(ctx, sess, st)
}

// reload re-fetches the cart after a mutation so the returned state always
// matches server truth, at the cost of an extra round trip.
func (s *checkoutService) reload(ctx context.Context, sess *Session, st *checkoutState) (*domain.CartSnapshot, error) {
	items, err := s.api.Cart(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	snap := &domain.CartSnapshot{Items: items, LoadedAt: time.Now()}
	st.mu.Lock()
	st.snapshot = snap
	st.mu.Unlock()
	return snap, nil
}

func (s *checkoutService) ApplyCoupon(ctx context.Context, sess *Session, code string) (*domain.CouponApplication, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrEmptyCouponCode
	}

	st := s.stateFor(sess.ID)
	release, err := s.beginMutation(st)
	if err != nil {
		return nil, err
	}
	defer release()

	discount, err := s.api.ValidateCoupon(ctx, sess.Token, code)
	if err != nil {
		// A definite rejection must never leave a stale discount applied.
		// A transient failure leaves the prior application untouched so a
		// retry is safe.
		if !domain.IsCode(err, domain.EUNAVAILABLE) {
			st.mu.Lock()
			st.coupon = nil
			st.mu.Unlock()
		}
		return nil, err
	}

	app := &domain.CouponApplication{Code: code, Discount: discount}
	st.mu.Lock()
	st.coupon = app
	st.mu.Unlock()
	return app, nil
}

func (s *checkoutService) Quote(ctx context.Context, sess *Session) (*Quote, error) {
	st := s.stateFor(sess.ID)

	st.mu.Lock()
	snap := st.snapshot
	coupon := st.coupon
	st.mu.Unlock()

	if snap == nil {
		loaded, err := s.LoadCart(ctx, sess)
		if err != nil {
			return nil, err
		}
		snap = loaded
	}

	return buildQuote(snap, coupon), nil
}

func buildQuote(snap *domain.CartSnapshot, coupon *domain.CouponApplication) *Quote {
	quote := &Quote{
		Items:    snap.Items,
		Subtotal: snap.Subtotal(),
		Discount: decimal.Zero,
	}
	if coupon != nil {
		quote.Discount = coupon.Discount
		quote.CouponCode = coupon.Code
	}

	// The discount can never drive the total negative.
	quote.Total = quote.Subtotal.Sub(quote.Discount)
	if quote.Total.IsNegative() {
		quote.Total = decimal.Zero
	}
	return quote
}

func (s *checkoutService) SubmitOrder(ctx context.Context, sess *Session, sub OrderSubmission) (*OrderResult, error) {
	const op = "checkout.submit"

	st := s.stateFor(sess.ID)
	release, err := s.beginMutation(st)
	if err != nil {
		return nil, err
	}
	defer release()

	if !domain.ValidPaymentMethod(sub.PaymentMethod) {
		return nil, domain.Errorf(domain.EINVALID, op, "unknown payment method: %s", sub.PaymentMethod)
	}

	// Required-field check happens before any network call.
	if err := s.validate.Struct(sub.Address); err != nil {
		return nil, domain.Invalid(op, "Recipient, address line and city are required")
	}

	st.mu.Lock()
	snap := st.snapshot
	coupon := st.coupon
	st.mu.Unlock()

	// First touch without a prior cart view: load once. The snapshot is
	// deliberately NOT re-fetched when one exists; priceAtPurchase records
	// what the customer saw, and the order service re-validates price and
	// stock at write time.
	if snap == nil {
		items, err := s.api.Cart(ctx, sess.Token)
		if err != nil {
			return nil, err
		}
		snap = &domain.CartSnapshot{Items: items, LoadedAt: time.Now()}
		st.mu.Lock()
		st.snapshot = snap
		st.mu.Unlock()
	}
	if snap.Empty() {
		return nil, domain.Invalid(op, "Cart is empty")
	}

	lines := make([]domain.OrderLine, 0, len(snap.Items))
	for _, item := range snap.Items {
		lines = append(lines, domain.OrderLine{
			ProductID:       item.Product.ID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.Product.EffectiveUnitPrice(),
		})
	}

	draft := &domain.OrderDraft{
		Lines:         lines,
		Address:       sub.Address,
		PaymentMethod: sub.PaymentMethod,
	}
	if coupon != nil {
		draft.CouponCode = coupon.Code
	}
	// Binary evidence only travels with bank transfers.
	if sub.PaymentMethod == domain.PaymentBankTransfer {
		draft.Slip = sub.Slip
	}

	result := &OrderResult{}

	// Card payments: create the intent before submitting, so an intent
	// failure leaves everything intact and retryable. The idempotency key
	// is stable per snapshot, so a retry reuses the same intent.
	if sub.PaymentMethod == domain.PaymentCreditCard && s.billing != nil {
		total := buildQuote(snap, coupon).Total
		intent, err := s.billing.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
			AmountSatang:   total.Shift(2).Round(0).IntPart(),
			Currency:       "thb",
			Description:    "Storefront order for " + sess.User.Email,
			CustomerEmail:  sess.User.Email,
			IdempotencyKey: fmt.Sprintf("%s-%d", sess.ID, snap.LoadedAt.UnixNano()),
			Metadata:       map[string]string{"session_id": sess.ID},
		})
		if err != nil {
			return nil, domain.WrapError(err, domain.EPAYMENT, op, "Payment setup failed. Please try again.")
		}
		result.PaymentClientSecret = intent.ClientSecret
	}

	confirmation, err := s.api.SubmitOrder(ctx, sess.Token, draft)
	if err != nil {
		// Cart, coupon and address stay intact so the user can retry
		// without re-entering anything.
		return nil, err
	}
	result.OrderID = confirmation.OrderID

	// Order completion destroys the local checkout state.
	st.mu.Lock()
	st.snapshot = nil
	st.coupon = nil
	st.mu.Unlock()

	return result, nil
}

func (s *checkoutService) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
