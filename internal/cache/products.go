package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lukasbauer/vocalkart/internal/store"
)

const (
	generationKey = "vocalkart:products:gen"
	defaultTTL    = 30 * time.Second
)

// Repository is the product store being cached.
type Repository interface {
	CreateProduct(ctx context.Context, p store.NewProduct) (*store.Product, error)
	FindProductsByName(ctx context.Context, userID, name string) ([]store.Product, error)
}

// Products is a read-through cache for product name lookups. Every cache key
// embeds a generation counter that CreateProduct bumps, so a new product is
// visible to the next lookup without deleting keys. A nil redis client makes
// it a pass-through, and redis errors fall back to the repository.
type Products struct {
	repo   Repository
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewRedisClient connects to url. An empty url returns a nil client.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewProducts wraps repo. ttl <= 0 selects 30s.
func NewProducts(repo Repository, rdb *redis.Client, ttl time.Duration, logger *log.Logger) *Products {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Products{repo: repo, rdb: rdb, ttl: ttl, logger: logger}
}

// CreateProduct creates the product and invalidates cached lookups.
func (p *Products) CreateProduct(ctx context.Context, np store.NewProduct) (*store.Product, error) {
	product, err := p.repo.CreateProduct(ctx, np)
	if err != nil {
		return nil, err
	}
	if p.rdb != nil {
		if err := p.rdb.Incr(ctx, generationKey).Err(); err != nil {
			p.logger.Printf("products: failed to bump cache generation: %v", err)
		}
	}
	return product, nil
}

// FindProductsByName returns cached matches for name among userID's products,
// loading them from the repository on a miss.
func (p *Products) FindProductsByName(ctx context.Context, userID, name string) ([]store.Product, error) {
	if p.rdb == nil {
		return p.repo.FindProductsByName(ctx, userID, name)
	}

	key, err := p.key(ctx, userID, name)
	if err != nil {
		p.logger.Printf("products: cache unavailable: %v", err)
		return p.repo.FindProductsByName(ctx, userID, name)
	}

	cached, err := p.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var products []store.Product
		if err := json.Unmarshal(cached, &products); err == nil {
			return products, nil
		}
		p.logger.Printf("products: dropping unreadable cache entry %s", key)
	case !errors.Is(err, redis.Nil):
		p.logger.Printf("products: cache read failed: %v", err)
	}

	products, err := p.repo.FindProductsByName(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(products)
	if err == nil {
		err = p.rdb.Set(ctx, key, data, p.ttl).Err()
	}
	if err != nil {
		p.logger.Printf("products: cache write failed: %v", err)
	}
	return products, nil
}

func (p *Products) key(ctx context.Context, userID, name string) (string, error) {
	gen, err := p.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("vocalkart:products:v%d:owner:%s:name:%s", gen, userID, strings.ToLower(strings.TrimSpace(name))), nil
}
