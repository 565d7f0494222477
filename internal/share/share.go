package share

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/lukasbauer/vocalkart/internal/metrics"
	"github.com/lukasbauer/vocalkart/internal/notifications"
	"github.com/lukasbauer/vocalkart/internal/store"
)

// Destination is one entry of the share menu.
type Destination string

const (
	DestWhatsApp Destination = "whatsapp"
	DestSMS      Destination = "sms"
	DestEmail    Destination = "email"
	DestDiscord  Destination = "discord"
	DestPush     Destination = "push"
	DestAmazon   Destination = "amazon"
	DestBlinkit  Destination = "blinkit"
)

// menu is the fixed order destinations are offered in.
var menu = []Destination{DestWhatsApp, DestSMS, DestEmail, DestDiscord, DestPush, DestAmazon, DestBlinkit}

const qrSize = 256

// ErrUnknownDestination is returned by Publish for a destination that is not
// on the menu or has no backend configured.
var ErrUnknownDestination = errors.New("unknown share destination")

// Artifacts is everything generated for sharing one product.
type Artifacts struct {
	URL    string `json:"url"`
	Text   string `json:"text"`
	QRCode []byte `json:"qr_code,omitempty"` // PNG
}

// PublisherFunc sends a product and its artifacts to one destination.
type PublisherFunc func(ctx context.Context, p store.Product, a *Artifacts) error

// Service generates share artifacts and publishes them.
type Service struct {
	baseURL    string
	publishers map[Destination]PublisherFunc
	logger     *log.Logger
}

// NewService creates a share service. Product URLs are built on baseURL.
func NewService(baseURL string, logger *log.Logger) *Service {
	if baseURL == "" {
		baseURL = "https://vocalkart.app"
	}
	return &Service{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		publishers: make(map[Destination]PublisherFunc),
		logger:     logger,
	}
}

// Register binds a destination to its backend. Destinations off the menu are
// ignored.
func (s *Service) Register(dest Destination, fn PublisherFunc) {
	if fn == nil || !onMenu(dest) {
		s.logger.Printf("share: ignoring publisher for %q", dest)
		return
	}
	s.publishers[dest] = fn
}

func onMenu(dest Destination) bool {
	for _, d := range menu {
		if d == dest {
			return true
		}
	}
	return false
}

// Destinations returns the configured destinations in menu order.
func (s *Service) Destinations() []Destination {
	out := make([]Destination, 0, len(s.publishers))
	for _, d := range menu {
		if _, ok := s.publishers[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// ProductURL returns the public page of product id.
func (s *Service) ProductURL(id string) string {
	return s.baseURL + "/product/" + id
}

// Generate builds the share URL, text and QR code for p.
func (s *Service) Generate(ctx context.Context, p store.Product) (*Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	url := s.ProductURL(p.ID)
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return &Artifacts{
		URL:    url,
		Text:   Text(p, url),
		QRCode: png,
	}, nil
}

// Text is the message sent with a shared product.
func Text(p store.Product, url string) string {
	return fmt.Sprintf("Check out my product: %s\nPrice: ₹%s\nStock: %d available\n\nView more: %s",
		p.Name, strconv.FormatFloat(p.Price, 'f', -1, 64), p.StockQty, url)
}

// Publish sends p to dest. Each call stands alone: a failure here does not
// affect publishes to other destinations.
func (s *Service) Publish(ctx context.Context, dest Destination, p store.Product, a *Artifacts) error {
	fn, ok := s.publishers[dest]
	if !ok {
		metrics.SharePublishTotal.WithLabelValues(string(dest), "rejected").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownDestination, dest)
	}
	if a == nil {
		var err error
		if a, err = s.Generate(ctx, p); err != nil {
			metrics.SharePublishTotal.WithLabelValues(string(dest), "failed").Inc()
			return err
		}
	}

	if err := fn(ctx, p, a); err != nil {
		s.logger.Printf("share: publish to %s failed for %s: %v", dest, p.ID, err)
		metrics.SharePublishTotal.WithLabelValues(string(dest), "failed").Inc()
		return fmt.Errorf("failed to publish to %s: %w", dest, err)
	}
	s.logger.Printf("share: published %s to %s", p.ID, dest)
	metrics.SharePublishTotal.WithLabelValues(string(dest), "ok").Inc()
	return nil
}

// PublishAll publishes to every destination in dests and returns the error of
// each one that failed.
func (s *Service) PublishAll(ctx context.Context, dests []Destination, p store.Product, a *Artifacts) map[Destination]error {
	failed := make(map[Destination]error)
	for _, d := range dests {
		if err := s.Publish(ctx, d, p, a); err != nil {
			failed[d] = err
		}
	}
	return failed
}

// ParseDestinations parses a list of destination names, dropping any that are
// not on the menu.
func ParseDestinations(names []string) []Destination {
	var out []Destination
	for _, n := range names {
		d := Destination(strings.ToLower(strings.TrimSpace(n)))
		if onMenu(d) {
			out = append(out, d)
		}
	}
	return out
}

func productShare(p store.Product, a *Artifacts) notifications.ProductShare {
	return notifications.ProductShare{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		StockQty:  p.StockQty,
		Category:  p.Category,
		URL:       a.URL,
		Text:      a.Text,
		QRCode:    a.QRCode,
	}
}
