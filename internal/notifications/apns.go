package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// shareAlertTTL is how long APNs keeps trying to deliver a share alert.
const shareAlertTTL = 24 * time.Hour

// APNsConfig identifies the .p8 signing key and the app receiving alerts.
type APNsConfig struct {
	KeyPath    string
	KeyID      string
	TeamID     string
	BundleID   string
	Production bool
}

func (c APNsConfig) complete() bool {
	return c.KeyPath != "" && c.KeyID != "" && c.TeamID != "" && c.BundleID != ""
}

// APNsClient pushes share alerts to the seller's iOS devices.
type APNsClient struct {
	client *apns2.Client
	topic  string
	logger *log.Logger
}

// NewAPNsClient loads the signing key and builds a token client. It returns
// nil, nil when the configuration is incomplete; a nil client sends nothing.
func NewAPNsClient(cfg APNsConfig, logger *log.Logger) (*APNsClient, error) {
	if !cfg.complete() {
		logger.Println("APNs: missing configuration, push sharing disabled")
		return nil, nil
	}

	key, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{AuthKey: key, KeyID: cfg.KeyID, TeamID: cfg.TeamID})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	logger.Printf("APNs: client ready (production=%v, topic=%s)", cfg.Production, cfg.BundleID)
	return &APNsClient{client: client, topic: cfg.BundleID, logger: logger}, nil
}

// Enabled reports whether push notifications can be sent.
func (c *APNsClient) Enabled() bool {
	return c != nil && c.client != nil
}

// productSharePayload builds the alert shown on the seller's other devices.
func productSharePayload(s ProductShare) *payload.Payload {
	return payload.NewPayload().
		AlertTitle(fmt.Sprintf("Shared: %s", s.Name)).
		AlertBody(fmt.Sprintf("%s, %d in stock. Tap to open the share sheet.", formatPrice(s.Price), s.StockQty)).
		Sound("default").
		Custom("notification_type", "product_shared").
		Custom("product_id", s.ProductID).
		Custom("url", s.URL)
}

// SendProductNotification pushes a shared product to one device.
func (c *APNsClient) SendProductNotification(ctx context.Context, deviceToken string, s ProductShare) error {
	if !c.Enabled() {
		return nil
	}

	res, err := c.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       c.topic,
		Payload:     productSharePayload(s),
		Expiration:  time.Now().Add(shareAlertTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to push to %s: %w", shortToken(deviceToken), err)
	}
	if !res.Sent() {
		return fmt.Errorf("APNs rejected push to %s: %d %s", shortToken(deviceToken), res.StatusCode, res.Reason)
	}

	c.logger.Printf("APNs: product %s pushed to %s", s.ProductID, shortToken(deviceToken))
	return nil
}

// shortToken keeps device tokens out of logs beyond a recognizable prefix.
func shortToken(t string) string {
	if len(t) > 16 {
		return t[:16]
	}
	return t
}
