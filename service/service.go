package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"cart-management/metrics"
	"cart-management/model"
	"cart-management/notify"
	"cart-management/store"
)

// DefaultKey is the KV key a cart is persisted under.
const DefaultKey = "@RocketShoes:cart"

var (
	// ErrStockExceeded is returned when the wanted amount is above the available stock.
	ErrStockExceeded = errors.New("requested quantity exceeds stock")
	// ErrLineNotFound is returned when an operation targets a product that is not in the cart.
	ErrLineNotFound = errors.New("product not in cart")

	// errNoop marks an operation that deliberately changed nothing.
	errNoop = errors.New("nothing to do")
)

const (
	opAdd    = "add"
	opRemove = "remove"
	opUpdate = "update"
)

type Dependencies struct {
	Stock    StockService
	Catalog  CatalogService
	KV       store.KV
	Notifier notify.Notifier
}

type Option func(*Service)

// WithKey sets the KV key the cart is stored under.
func WithKey(key string) Option {
	return func(s *Service) { s.key = key }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *metrics.CartMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithMessages(m Messages) Option {
	return func(s *Service) { s.messages = m }
}

// Service holds one cart in memory and writes it through to the KV on every
// successful change. Mutations on the same product run one at a time; the
// commit step always applies to the latest cart, so concurrent calls on
// different products do not overwrite each other.
type Service struct {
	stock    StockService
	catalog  CatalogService
	kv       store.KV
	notifier notify.Notifier
	log      *zap.Logger
	metrics  *metrics.CartMetrics
	messages Messages
	key      string

	locks productLocks

	mu        sync.RWMutex // guards cart and listeners
	cart      model.Cart
	listeners map[uint64]func(model.Cart)
	nextID    uint64
}

var _ CartService = (*Service)(nil)

func NewService(deps Dependencies, opts ...Option) *Service {
	s := &Service{
		stock:     deps.Stock,
		catalog:   deps.Catalog,
		kv:        deps.KV,
		notifier:  deps.Notifier,
		log:       zap.NewNop(),
		messages:  DefaultMessages,
		key:       DefaultKey,
		cart:      model.Cart{},
		listeners: make(map[uint64]func(model.Cart)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.Multi{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Initialize loads the persisted cart. A missing or unparsable value leaves
// the cart empty and nothing is reported to the user. A failed read also
// leaves the cart empty but is returned, since the stored cart may still be
// intact: callers must not let such a Service write over it.
func (s *Service) Initialize(ctx context.Context) error {
	loaded := model.Cart{}

	data, ok, err := s.kv.Get(ctx, s.key)
	switch {
	case err != nil:
		s.log.Warn("load persisted cart failed", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("load cart %q: %w", s.key, err)
	case !ok:
		s.log.Debug("no persisted cart", zap.String("key", s.key))
	default:
		c, err := model.Decode(data)
		if err != nil {
			s.log.Warn("discarding unparsable cart", zap.String("key", s.key), zap.Error(err))
			break
		}
		loaded = c
	}

	s.mu.Lock()
	s.cart = loaded
	s.mu.Unlock()
	return nil
}

// Cart returns a copy of the current cart.
func (s *Service) Cart() model.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Subscribe registers listener to receive a copy of the cart after every
// committed change. Listeners run while the cart is locked: they must not
// block or call back into the Service.
func (s *Service) Subscribe(listener func(model.Cart)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// AddProduct puts one more unit of productID in the cart, fetching its
// metadata from the catalog the first time it is added.
func (s *Service) AddProduct(ctx context.Context, productID int64) {
	err := s.addProduct(ctx, productID)
	s.finish(ctx, opAdd, productID, err, s.messages.AddFailed)
}

// RemoveProduct drops the line for productID.
func (s *Service) RemoveProduct(ctx context.Context, productID int64) {
	err := s.removeProduct(ctx, productID)
	s.finish(ctx, opRemove, productID, err, s.messages.RemoveFailed)
}

// UpdateProductAmount sets the amount of an existing line. Amounts <= 0 are
// ignored; removal goes through RemoveProduct.
func (s *Service) UpdateProductAmount(ctx context.Context, req UpdateProductAmount) {
	err := s.updateProductAmount(ctx, req)
	s.finish(ctx, opUpdate, req.ProductID, err, s.messages.UpdateFailed)
}

func (s *Service) addProduct(ctx context.Context, productID int64) error {
	unlock := s.locks.lock(productID)
	defer unlock()

	line, _, exists := s.Cart().Find(productID)

	stock, err := s.getStock(ctx, productID)
	if err != nil {
		return err
	}

	amount := line.Amount + 1
	if amount > stock.Amount {
		return ErrStockExceeded
	}

	product := line.Product
	if !exists {
		start := time.Now()
		product, err = s.catalog.GetProduct(ctx, productID)
		s.metrics.ObserveRemote("catalog", start)
		if err != nil {
			return err
		}
		product.ID = productID
	}

	return s.commit(ctx, func(c model.Cart) model.Cart {
		return c.WithAmount(productID, amount, product)
	})
}

func (s *Service) removeProduct(ctx context.Context, productID int64) error {
	unlock := s.locks.lock(productID)
	defer unlock()

	if _, _, ok := s.Cart().Find(productID); !ok {
		return ErrLineNotFound
	}
	return s.commit(ctx, func(c model.Cart) model.Cart {
		return c.Without(productID)
	})
}

func (s *Service) updateProductAmount(ctx context.Context, req UpdateProductAmount) error {
	if req.Amount <= 0 {
		return errNoop
	}

	unlock := s.locks.lock(req.ProductID)
	defer unlock()

	stock, err := s.getStock(ctx, req.ProductID)
	if err != nil {
		return err
	}
	if stock.Amount < req.Amount {
		return ErrStockExceeded
	}

	// updating a product that is not in the cart is silently ignored
	if _, _, ok := s.Cart().Find(req.ProductID); !ok {
		return errNoop
	}

	return s.commit(ctx, func(c model.Cart) model.Cart {
		return c.WithAmount(req.ProductID, req.Amount, model.Product{})
	})
}

func (s *Service) getStock(ctx context.Context, productID int64) (model.Stock, error) {
	start := time.Now()
	stock, err := s.stock.GetStock(ctx, productID)
	s.metrics.ObserveRemote("stock", start)
	return stock, err
}

// commit applies mutate to the latest cart, persists the result and only then
// swaps it in memory and notifies listeners.
func (s *Service) commit(ctx context.Context, mutate func(model.Cart) model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := mutate(s.cart)
	if err := next.Validate(); err != nil {
		return err
	}
	data, err := model.Encode(next)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}

	s.cart = next
	s.metrics.ObserveCartSize(len(next))
	for _, listener := range s.listeners {
		listener(next.Clone())
	}
	return nil
}

// finish is the operation boundary: it turns the result of an operation into
// at most one user-facing message and never lets the error escape.
func (s *Service) finish(ctx context.Context, op string, productID int64, err error, failed string) {
	fields := []zap.Field{zap.String("operation", op), zap.Int64("product_id", productID)}

	switch {
	case err == nil:
		s.metrics.Observe(op, metrics.OutcomeOK)
		s.log.Debug("cart updated", fields...)
	case errors.Is(err, errNoop):
		s.metrics.Observe(op, metrics.OutcomeIgnored)
		s.log.Debug("cart operation ignored", fields...)
	case errors.Is(err, ErrStockExceeded):
		s.metrics.Observe(op, metrics.OutcomeStockExceeded)
		s.log.Info("requested quantity exceeds stock", fields...)
		s.notifier.Error(ctx, s.messages.StockExceeded)
	case errors.Is(err, ErrLineNotFound):
		s.metrics.Observe(op, metrics.OutcomeNotFound)
		s.log.Info("product not in cart", fields...)
		s.notifier.Error(ctx, failed)
	default:
		s.metrics.Observe(op, metrics.OutcomeFailed)
		s.log.Warn("cart operation failed", append(fields, zap.Error(err))...)
		s.notifier.Error(ctx, failed)
	}
}
