package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/stridewear/storefront/internal/domain"
)

const allProductsKey = "all"

// Service serves catalog reads through the cache, guarding repository
// hits with singleflight so concurrent misses for the same key turn
// into one query.
type Service struct {
	repo   ProductRepository
	cache  ProductCache
	logger *zap.Logger
	sfg    singleflight.Group
}

func NewService(repo ProductRepository, cache ProductCache, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	v, err, _ := s.sfg.Do(fmt.Sprintf("product:%d", id), func() (interface{}, error) {
		product, err := s.cache.GetProduct(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("product cache get failed", zap.Int64("id", id), zap.Error(err))
		}

		product, err = s.repo.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.SetProduct(context.Background(), product); err != nil {
				s.logger.Warn("product cache set failed", zap.Int64("id", id), zap.Error(err))
			}
		}()

		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (s *Service) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	v, err, _ := s.sfg.Do("products:"+allProductsKey, func() (interface{}, error) {
		products, err := s.cache.GetProductList(ctx, allProductsKey)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("product list cache get failed", zap.Error(err))
		}

		products, err = s.repo.ListProducts(ctx)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.SetProductList(context.Background(), allProductsKey, products); err != nil {
				s.logger.Warn("product list cache set failed", zap.Error(err))
			}
		}()

		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Product), nil
}

func (s *Service) ListCollections(ctx context.Context) ([]*domain.Collection, error) {
	return s.repo.ListCollections(ctx)
}

// GetCollection returns the collection and its products.
func (s *Service) GetCollection(ctx context.Context, slug string) (*domain.Collection, []*domain.Product, error) {
	collection, err := s.repo.GetCollection(ctx, slug)
	if err != nil {
		return nil, nil, err
	}

	products, err := s.repo.ListCollectionProducts(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	return collection, products, nil
}

// Search is not cached: queries are long-tail and the debounced search
// input already limits request volume.
func (s *Service) Search(ctx context.Context, query string) ([]*domain.Product, error) {
	return s.repo.SearchProducts(ctx, query)
}
