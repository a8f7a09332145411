package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/arbatrahul/ecommerce-cart-service/internal/cache"
	"github.com/arbatrahul/ecommerce-cart-service/internal/catalog"
	"github.com/arbatrahul/ecommerce-cart-service/internal/domain"
	"github.com/arbatrahul/ecommerce-cart-service/internal/events"
	"github.com/arbatrahul/ecommerce-cart-service/internal/repository"
)

// CartService orchestrates every cart mutation as one unit: product lookup,
// aggregate mutation, persistence, cache refresh, then event publish.
// The store write is the commit point; cache and publish come strictly
// after it and their failures never fail the request.
type CartService struct {
	repo      repository.CartRepository
	cache     cache.CartCache
	products  catalog.ProductLookup
	publisher events.EventPublisher
	sfg       singleflight.Group // Prevents cache stampede on reads

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, products catalog.ProductLookup, publisher events.EventPublisher) *CartService {
	return &CartService{
		repo:      repo,
		cache:     cache,
		products:  products,
		publisher: publisher,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing mutations for one user. Concurrent
// mutations for the same user must not interleave their read-modify-write
// sequences; different users proceed in parallel.
func (s *CartService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// GetOrCreateCart returns the user's cart, creating and persisting an empty
// one on first access. No event is emitted for creation.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) {
			cart = domain.NewCart(userID)
			if errUpsert := s.repo.UpsertCart(ctx, cart); errUpsert != nil {
				return nil, fmt.Errorf("failed to create cart: %w", errUpsert)
			}
		} else if errGet != nil {
			return nil, errGet
		}

		s.putCache(userID, cart)
		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddToCart resolves the product from the catalog and merges it into the
// cart. The published event carries the requested quantity, not the merged
// total.
func (s *CartService) AddToCart(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("product lookup failed: %w", err)
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.loadForMutation(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.AddItem(domain.CartItem{
		ProductID:       product.ID,
		ProductName:     product.Name,
		ProductImageRef: product.ImageURL,
		UnitPrice:       product.Price,
		Quantity:        quantity,
		AddedAt:         time.Now(),
	})

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", err)
	}

	s.putCache(userID, cart)
	s.publish(events.NewCartEvent(userID, events.EventItemAdded, productID, quantity))

	return cart, nil
}

// UpdateQuantity sets a new quantity for an existing item. A quantity of
// zero or less delegates to the remove path.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.loadForMutation(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !cart.UpdateItemQuantity(productID, quantity) {
		return nil, fmt.Errorf("%w: product %d", ErrItemNotFound, productID)
	}

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", err)
	}

	s.putCache(userID, cart)
	s.publish(events.NewCartEvent(userID, events.EventItemUpdated, productID, quantity))

	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, productID int64) (*domain.Cart, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.loadForMutation(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !cart.RemoveItem(productID) {
		return nil, fmt.Errorf("%w: product %d", ErrItemNotFound, productID)
	}

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", err)
	}

	s.putCache(userID, cart)
	s.publish(events.NewCartEvent(userID, events.EventItemRemoved, productID, 0))

	return cart, nil
}

// ClearCart empties the cart but keeps the record. The cache entry is
// evicted rather than refreshed so the next read rebuilds from the store.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.loadForMutation(ctx, userID)
	if err != nil {
		return err
	}

	cart.Clear()

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return fmt.Errorf("failed to persist cart: %w", err)
	}

	s.evictCache(userID)
	s.publish(events.NewCartEvent(userID, events.EventCartCleared, 0, 0))

	return nil
}

// PrepareCheckout returns the cart snapshot for the downstream order flow
// and evicts the cache entry. The items are intentionally left in place;
// the cart stays as-is until an explicit clear after order placement.
func (s *CartService) PrepareCheckout(ctx context.Context, userID string) (*domain.Cart, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.loadForMutation(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	s.publish(events.NewCartEvent(userID, events.EventCheckoutInitiated, 0, cart.TotalItemCount))
	s.evictCache(userID)

	return cart, nil
}

// loadForMutation reads the cart from the store, never the cache: a stale
// cache entry inside a read-modify-write would lose updates. A missing
// record yields a fresh empty cart; the mutation's own persist creates it.
func (s *CartService) loadForMutation(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.NewCart(userID), nil
		}
		return nil, err
	}
	return cart, nil
}

func (s *CartService) putCache(userID string, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Put(ctx, userID, cart); err != nil {
		log.Printf("cache put error: %v", err)
	}
}

func (s *CartService) evictCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Evict(ctx, userID); err != nil {
		log.Printf("cache evict error: %v", err)
	}
}

// publish is best-effort: the mutation is already committed, so a broker
// failure is logged and swallowed.
func (s *CartService) publish(event events.CartEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("failed to publish %s event for user %s: %v", event.EventType, event.UserID, err)
	}
}
