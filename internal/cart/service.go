package cart

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/apperr"
	"storefront/internal/extras"
	"storefront/internal/models"
)

// ErrConflict is returned by SaveCart when the stored cart is no longer the
// version that was loaded.
var ErrConflict = errors.New("cart was changed by another request")

// saveAttempts bounds how often a mutation is replayed after ErrConflict.
const saveAttempts = 3

// Store persists carts by session id. Load returns an empty cart when the
// session has none yet. SaveCart only writes over the version the cart was
// loaded at and then advances c.Version.
type Store interface {
	LoadCart(ctx context.Context, sessionID string) (*Cart, error)
	SaveCart(ctx context.Context, c *Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}

// Catalog resolves the product and the extras groups offered with it.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (models.Product, error)
	ProductExtras(ctx context.Context, product models.Product) ([]models.ExtrasGroup, error)
}

// Service applies cart operations load-mutate-save. A failed save never leaves
// a half-applied cart behind because the mutated copy is discarded. A save
// that lost a race replays the mutation on a fresh load.
type Service struct {
	store   Store
	catalog Catalog
	now     func() time.Time
	log     logrus.FieldLogger
}

func NewService(store Store, catalog Catalog, log logrus.FieldLogger) *Service {
	return &Service{store: store, catalog: catalog, now: time.Now, log: log}
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	c, err := s.store.LoadCart(ctx, sessionID)
	if err != nil {
		return nil, apperr.Persistence("load cart", err)
	}
	return c, nil
}

func (s *Service) Add(ctx context.Context, sessionID, productID string, quantity int, selection extras.Selection) (*Cart, LineItem, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, LineItem{}, apperr.Persistence("load product", err)
	}
	groups, err := s.catalog.ProductExtras(ctx, product)
	if err != nil {
		return nil, LineItem{}, apperr.Persistence("load product extras", err)
	}

	var line LineItem
	c, err := s.mutate(ctx, sessionID, func(c *Cart) error {
		added, err := c.AddItem(product, quantity, groups, selection)
		line = added
		return err
	})
	if err != nil {
		return nil, LineItem{}, err
	}

	s.log.WithFields(logrus.Fields{
		"session":  sessionID,
		"product":  productID,
		"line":     line.Key,
		"quantity": line.Quantity,
	}).Debug("cart item added")
	return c, line, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, sessionID, key string, quantity int) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		return c.UpdateQuantity(key, quantity)
	})
}

func (s *Service) Remove(ctx context.Context, sessionID, key string) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		return c.RemoveItem(key)
	})
}

// Clear drops the session's cart entirely.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteCart(ctx, sessionID); err != nil {
		return apperr.Persistence("clear cart", err)
	}
	return nil
}

// OrderPlacer turns checked-out cart lines into an order.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, customer models.OrderCustomer, observations string, items []models.OrderItem) (models.Order, error)
}

// Checkout places an order for the session's cart and clears the cart. If
// placing the order fails the cart is kept so the customer can retry.
func (s *Service) Checkout(ctx context.Context, sessionID string, placer OrderPlacer, customer models.OrderCustomer, observations string) (models.Order, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return models.Order{}, err
	}
	if c.Empty() {
		return models.Order{}, apperr.Validation("cart", "cart is empty")
	}

	order, err := placer.PlaceOrder(ctx, customer, observations, c.OrderItems())
	if err != nil {
		return models.Order{}, err
	}

	if err := s.store.DeleteCart(ctx, sessionID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"session":  sessionID,
			"order_id": order.ID,
		}).Warn("cart not cleared after checkout")
	}
	return order, nil
}

// mutate loads the cart, applies change and saves it. When another request
// saved the cart in between, it starts over from a fresh load.
func (s *Service) mutate(ctx context.Context, sessionID string, change func(*Cart) error) (*Cart, error) {
	for attempt := 1; ; attempt++ {
		c, err := s.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if err := change(c); err != nil {
			return nil, err
		}
		c.UpdatedAt = s.now()

		err = s.store.SaveCart(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrConflict) || attempt == saveAttempts {
			return nil, apperr.Persistence("save cart", err)
		}
		s.log.WithFields(logrus.Fields{"session": sessionID, "attempt": attempt}).Debug("cart save conflict, retrying")
	}
}
