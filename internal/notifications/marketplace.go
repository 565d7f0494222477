package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn the marketplace bus needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Marketplace publishes product listings for marketplace integrations
// (Amazon, Blinkit) on a NATS subject per marketplace. The integration
// workers that consume them live outside this service.
type Marketplace struct {
	pub    Publisher
	prefix string
	logger *log.Logger
}

// Listing is the message body published for a marketplace.
type Listing struct {
	Marketplace string    `json:"marketplace"`
	ProductID   string    `json:"product_id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	StockQty    int       `json:"stock_qty"`
	Category    string    `json:"category,omitempty"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
}

// ConnectNATS connects to url. An empty url returns a nil connection.
func ConnectNATS(url string, logger *log.Logger) (*nats.Conn, error) {
	if url == "" {
		logger.Println("marketplace: NATS_URL not set, marketplace publishing disabled")
		return nil, nil
	}
	nc, err := nats.Connect(url, nats.Name("vocalkart"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Printf("marketplace: connected to NATS at %s", nc.ConnectedUrl())
	return nc, nil
}

// NewMarketplace creates a marketplace publisher. A nil pub disables it.
func NewMarketplace(pub Publisher, prefix string, logger *log.Logger) *Marketplace {
	if prefix == "" {
		prefix = "vocalkart.marketplace"
	}
	return &Marketplace{pub: pub, prefix: prefix, logger: logger}
}

// Enabled reports whether listings can be published.
func (m *Marketplace) Enabled() bool {
	return m != nil && m.pub != nil
}

// Subject returns the subject listings for marketplace are published on.
func (m *Marketplace) Subject(marketplace string) string {
	return m.prefix + "." + marketplace
}

// PublishListing publishes s as a listing for marketplace.
func (m *Marketplace) PublishListing(ctx context.Context, marketplace string, s ProductShare) error {
	if !m.Enabled() {
		return fmt.Errorf("marketplace publishing not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(Listing{
		Marketplace: marketplace,
		ProductID:   s.ProductID,
		Name:        s.Name,
		Price:       s.Price,
		StockQty:    s.StockQty,
		Category:    s.Category,
		URL:         s.URL,
		Description: s.Text,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}

	if err := m.pub.Publish(m.Subject(marketplace), data); err != nil {
		return fmt.Errorf("failed to publish listing: %w", err)
	}
	m.logger.Printf("marketplace: published %s to %s", s.ProductID, marketplace)
	return nil
}
