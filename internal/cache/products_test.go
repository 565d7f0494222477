package cache

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lukasbauer/vocalkart/internal/store"
)

type fakeRepo struct {
	products  []store.Product
	findErr   error
	finds     int
	creates   int
	createErr error
}

func (r *fakeRepo) CreateProduct(ctx context.Context, p store.NewProduct) (*store.Product, error) {
	r.creates++
	if r.createErr != nil {
		return nil, r.createErr
	}
	prod := store.Product{ID: uuid.NewString(), Name: p.Name, Price: p.Price}
	r.products = append(r.products, prod)
	return &prod, nil
}

func (r *fakeRepo) FindProductsByName(ctx context.Context, userID, name string) ([]store.Product, error) {
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	return append([]store.Product(nil), r.products...), nil
}

// getTestRedis returns a redis client for testing.
// Skips the test if REDIS_URL is not set.
func getTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
	}

	client, err := NewRedisClient(context.Background(), url)
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	return client
}

func TestNewRedisClient_EmptyURL(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "")
	if client != nil || err != nil {
		t.Errorf("NewRedisClient(\"\") = %v, %v; want nil, nil", client, err)
	}
}

func TestNewRedisClient_BadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "not a url"); err == nil {
		t.Error("NewRedisClient with bad url should fail")
	}
}

func TestProducts_PassThroughWithoutRedis(t *testing.T) {
	repo := &fakeRepo{products: []store.Product{{ID: "p1", Name: "Tomatoes"}}}
	p := NewProducts(repo, nil, 0, log.New(io.Discard, "", 0))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := p.FindProductsByName(ctx, "seller-1", "tomato")
		if err != nil {
			t.Fatalf("FindProductsByName() error = %v", err)
		}
		if len(got) != 1 {
			t.Errorf("len = %d, want 1", len(got))
		}
	}
	if repo.finds != 2 {
		t.Errorf("repository finds = %d, want 2", repo.finds)
	}

	if _, err := p.CreateProduct(ctx, store.NewProduct{Name: "Rice"}); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if repo.creates != 1 {
		t.Errorf("repository creates = %d, want 1", repo.creates)
	}
}

func TestProducts_ErrorsPropagate(t *testing.T) {
	repo := &fakeRepo{findErr: errors.New("db down"), createErr: errors.New("db down")}
	p := NewProducts(repo, nil, 0, log.New(io.Discard, "", 0))

	if _, err := p.FindProductsByName(context.Background(), "seller-1", "x"); err == nil {
		t.Error("FindProductsByName should return the repository error")
	}
	if _, err := p.CreateProduct(context.Background(), store.NewProduct{Name: "x"}); err == nil {
		t.Error("CreateProduct should return the repository error")
	}
}

func TestProducts_ReadThroughAndInvalidate(t *testing.T) {
	rdb := getTestRedis(t)
	defer rdb.Close()

	repo := &fakeRepo{products: []store.Product{{ID: "p1", Name: "Tomatoes"}}}
	p := NewProducts(repo, rdb, time.Minute, log.New(io.Discard, "", 0))
	ctx := context.Background()
	name := "tomato-" + uuid.NewString()

	first, err := p.FindProductsByName(ctx, "seller-1", name)
	if err != nil {
		t.Fatalf("FindProductsByName() error = %v", err)
	}
	second, err := p.FindProductsByName(ctx, "seller-1", name)
	if err != nil {
		t.Fatalf("FindProductsByName() error = %v", err)
	}
	if repo.finds != 1 {
		t.Errorf("repository finds = %d, want 1 (second lookup cached)", repo.finds)
	}
	if len(first) != 1 || len(second) != 1 || second[0].ID != "p1" {
		t.Errorf("cached result = %+v, want [p1]", second)
	}

	if _, err := p.CreateProduct(ctx, store.NewProduct{Name: "Cherry tomatoes"}); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}

	third, err := p.FindProductsByName(ctx, "seller-1", name)
	if err != nil {
		t.Fatalf("FindProductsByName() error = %v", err)
	}
	if repo.finds != 2 {
		t.Errorf("repository finds = %d, want 2 after create", repo.finds)
	}
	if len(third) != 2 {
		t.Errorf("len after create = %d, want 2", len(third))
	}
}
