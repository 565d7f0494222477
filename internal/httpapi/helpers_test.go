package httpapi

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lukasbauer/vocalkart/internal/intent"
	"github.com/lukasbauer/vocalkart/internal/store"
	"github.com/lukasbauer/vocalkart/internal/voice"
)

const testSecret = "test-secret-key"

type fakeProducts struct {
	mu         sync.Mutex
	created    []store.NewProduct
	found      []store.Product
	searchedBy []string
	err        error
}

func (f *fakeProducts) CreateProduct(_ context.Context, p store.NewProduct) (*store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, p)
	return &store.Product{ID: "prod-1", Name: p.Name, Price: p.Price, StockQty: p.StockQty, UserID: p.UserID}, nil
}

func (f *fakeProducts) FindProductsByName(_ context.Context, userID, _ string) ([]store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchedBy = append(f.searchedBy, userID)
	return f.found, f.err
}

func newTestRouter(products *fakeProducts) *Router {
	logger := log.New(io.Discard, "", 0)
	r := &Router{
		cfg:      RouterConfig{JWTSecret: testSecret, DefaultCategory: "General"},
		logger:   logger,
		detector: intent.NewDetector(nil, logger),
		sessions: voice.NewSessionRegistry(),
	}
	if products != nil {
		r.products = products
	}
	return r
}

// withUser returns req with seller id attached as the authenticated user.
func withUser(req *http.Request, id string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), userContextKey, &AuthUser{ID: id}))
}

// getTestDB returns a database pool, skipping the test when DATABASE_URL is
// not set.
func getTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	db, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	return db
}
