package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/lukasbauer/vocalkart/internal/notifications"
	"github.com/lukasbauer/vocalkart/internal/store"
)

// Messenger sends text messages.
type Messenger interface {
	SendSMS(ctx context.Context, to, body string) error
	SendWhatsApp(ctx context.Context, to, body string) error
}

// Mailer emails a product share.
type Mailer interface {
	SendProductShare(ctx context.Context, to string, s notifications.ProductShare) error
}

// Announcer posts a product share to a channel.
type Announcer interface {
	NotifyProductShared(ctx context.Context, s notifications.ProductShare) error
}

// Pusher sends a push notification to one device.
type Pusher interface {
	SendProductNotification(ctx context.Context, deviceToken string, s notifications.ProductShare) error
}

// TokenSource lists the push tokens of a seller.
type TokenSource interface {
	GetUserPushTokens(ctx context.Context, userID string) ([]store.DevicePushToken, error)
}

// Lister publishes marketplace listings.
type Lister interface {
	PublishListing(ctx context.Context, marketplace string, s notifications.ProductShare) error
}

// WhatsApp sends the share text to a fixed WhatsApp recipient.
func WhatsApp(m Messenger, to string) PublisherFunc {
	return func(ctx context.Context, p store.Product, a *Artifacts) error {
		if to == "" {
			return errors.New("no WhatsApp recipient configured")
		}
		return m.SendWhatsApp(ctx, to, a.Text)
	}
}

// SMS sends the share text to a fixed phone number.
func SMS(m Messenger, to string) PublisherFunc {
	return func(ctx context.Context, p store.Product, a *Artifacts) error {
		if to == "" {
			return errors.New("no SMS recipient configured")
		}
		return m.SendSMS(ctx, to, a.Text)
	}
}

// Email mails the share, QR code attached, to a fixed address.
func Email(m Mailer, to string) PublisherFunc {
	return func(ctx context.Context, p store.Product, a *Artifacts) error {
		if to == "" {
			return errors.New("no email recipient configured")
		}
		return m.SendProductShare(ctx, to, productShare(p, a))
	}
}

// Discord announces the product on the community channel.
func Discord(d Announcer) PublisherFunc {
	return func(ctx context.Context, p store.Product, a *Artifacts) error {
		return d.NotifyProductShared(ctx, productShare(p, a))
	}
}

// Push notifies every registered device of the product's owner.
func Push(pusher Pusher, tokens TokenSource) PublisherFunc {
	return func(ctx context.Context, p store.Product, a *Artifacts) error {
		devices, err := tokens.GetUserPushTokens(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("failed to load push tokens: %w", err)
		}
		s := productShare(p, a)
		var errs []error
		sent := 0
		for _, d := range devices {
			// APNs only
			if d.Platform != "ios" {
				continue
			}
			sent++
			if err := pusher.SendProductNotification(ctx, d.Token, s); err != nil {
				errs = append(errs, err)
			}
		}
		if sent == 0 {
			return errors.New("no iOS devices registered")
		}
		return errors.Join(errs...)
	}
}

// Marketplace publishes a listing for one marketplace.
func Marketplace(l Lister, marketplace Destination) PublisherFunc {
	return func(ctx context.Context, p store.Product, a *Artifacts) error {
		return l.PublishListing(ctx, string(marketplace), productShare(p, a))
	}
}
