package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Product is a catalog entry owned by one seller.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	StockQty    int       `json:"stock_qty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Category    string    `json:"category"`
	UserID      string    `json:"user_id"`
	Remarks     string    `json:"remarks"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProduct holds the fields for CreateProduct.
type NewProduct struct {
	Name        string
	Price       float64
	Description string
	StockQty    int
	ImageURL    *string
	Category    string
	UserID      string
	Remarks     string
}

const productColumns = `id, name, price, description, stock_qty, image_url, category, user_id, remarks, created_at, updated_at`

const maxNameMatches = 20

// CreateProduct inserts a product and returns the stored row.
func (s *Store) CreateProduct(ctx context.Context, p NewProduct) (*Product, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, errors.New("product name is required")
	}

	var out Product
	err := s.db.QueryRow(ctx, `
		INSERT INTO products (name, price, description, stock_qty, image_url, category, user_id, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+productColumns,
		strings.TrimSpace(p.Name), p.Price, p.Description, p.StockQty, p.ImageURL, p.Category, p.UserID, p.Remarks,
	).Scan(
		&out.ID, &out.Name, &out.Price, &out.Description, &out.StockQty, &out.ImageURL,
		&out.Category, &out.UserID, &out.Remarks, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FindProductsByName returns products of userID whose name contains name,
// ignoring case, oldest first. An empty name matches nothing; an empty userID
// searches every seller.
func (s *Store) FindProductsByName(ctx context.Context, userID, name string) ([]Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1::text = '' OR user_id = $1)
		  AND name ILIKE $2 ESCAPE '\'
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`, userID, containsPattern(name), maxNameMatches)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Price, &p.Description, &p.StockQty, &p.ImageURL,
			&p.Category, &p.UserID, &p.Remarks, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListProducts returns the newest products, optionally only those owned by
// userID.
func (s *Store) ListProducts(ctx context.Context, userID string, limit int) ([]Product, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE $1::text = '' OR user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Price, &p.Description, &p.StockQty, &p.ImageURL,
			&p.Category, &p.UserID, &p.Remarks, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct returns the product with id, or nil when it does not exist.
func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := s.db.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id::text = $1
	`, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.Description, &p.StockQty, &p.ImageURL,
		&p.Category, &p.UserID, &p.Remarks, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
