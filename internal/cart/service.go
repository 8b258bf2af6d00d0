package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Raghu1611/freshmart-sub000/internal/cache"
	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidQuantity rejects mutations that would drop a quantity below 1.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

type Service struct {
	repo  Repository
	cache cache.CartCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewService(repo Repository, cache cache.CartCache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// GetCart loads the user's cart, enforcing the rolling expiration
// window: a cart whose last write is older than CartTTL is discarded and
// an empty cart returned.
func (s *Service) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return s.checkExpiry(ctx, userID, cart)
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil && errors.Is(errGet, ErrCartNotFound) { // not found cart return empty cart
			return emptyCart(userID), nil
		}
		if errGet != nil {
			return nil, errGet // err from repo is not cache miss, return it
		}

		if cart.IsExpired(time.Now()) {
			return s.discardExpired(ctx, userID)
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), userID, cart)
			if errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil // cart was not in cache, return it from repo
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// checkExpiry applies the expiration window to a cache hit as well; the
// cache TTL is shorter than CartTTL but a stale entry must never revive
// an expired cart.
func (s *Service) checkExpiry(ctx context.Context, userID string, cart *domain.Cart) (*domain.Cart, error) {
	if !cart.IsExpired(time.Now()) {
		return cart, nil
	}
	return s.discardExpired(ctx, userID)
}

func (s *Service) discardExpired(ctx context.Context, userID string) (*domain.Cart, error) {
	errDelete := s.repo.DeleteCart(ctx, userID)
	if errDelete != nil && !errors.Is(errDelete, ErrCartNotFound) {
		log.Printf("repo delete expired cart error: %v", errDelete)
	}
	invalidateCache(s, userID)
	log.Printf("discarded expired cart for user %s", userID)
	return emptyCart(userID), nil
}

func (s *Service) AddItem(ctx context.Context, userID string, item domain.CartItem) error {
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}

	errAdd := s.repo.AddItem(ctx, userID, item)
	if errAdd != nil {
		log.Printf("repo add item error: %v", errAdd)
		return errAdd
	}

	invalidateCache(s, userID)
	return nil
}

func (s *Service) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	errUpdate := s.repo.UpdateItemQuantity(ctx, userID, productID, quantity)
	if errUpdate != nil {
		log.Printf("repo update item quantity error: %v", errUpdate)
		return errUpdate
	}

	invalidateCache(s, userID)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, userID string, productID int64) error {
	errRemove := s.repo.RemoveItem(ctx, userID, productID)
	if errRemove != nil {
		log.Printf("repo remove item error: %v", errRemove)
		return errRemove
	}

	invalidateCache(s, userID)
	return nil
}

// ClearCart removes the persisted cart immediately (post-checkout path).
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	errDelete := s.repo.DeleteCart(ctx, userID)
	if errDelete != nil && !errors.Is(errDelete, ErrCartNotFound) {
		log.Printf("repo delete cart error: %v", errDelete)
		return errDelete
	}

	invalidateCache(s, userID)
	return nil
}

// Totals prices the current cart.
func (s *Service) Totals(ctx context.Context, userID string) (domain.Pricing, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return domain.Pricing{}, err
	}
	return domain.PriceCart(cart), nil
}

func emptyCart(userID string) *domain.Cart {
	now := time.Now()
	return &domain.Cart{
		UserID:    userID,
		Items:     nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func invalidateCache(s *Service, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errInvalidate := s.cache.Delete(ctx, userID)
	if errInvalidate != nil {
		log.Printf("cache invalidate error: %v", errInvalidate)
	}
}
