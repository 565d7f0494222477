package share

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/lukasbauer/vocalkart/internal/notifications"
	"github.com/lukasbauer/vocalkart/internal/store"
)

func testService() *Service {
	return NewService("https://shop.example/", log.New(io.Discard, "", 0))
}

func tomatoes() store.Product {
	return store.Product{ID: "p-1", Name: "Tomatoes", Price: 35, StockQty: 4, UserID: "seller-1"}
}

func TestGenerate(t *testing.T) {
	s := testService()
	a, err := s.Generate(context.Background(), tomatoes())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if a.URL != "https://shop.example/product/p-1" {
		t.Errorf("URL = %q, want %q", a.URL, "https://shop.example/product/p-1")
	}
	want := "Check out my product: Tomatoes\nPrice: ₹35\nStock: 4 available\n\nView more: https://shop.example/product/p-1"
	if a.Text != want {
		t.Errorf("Text = %q, want %q", a.Text, want)
	}
	if !bytes.HasPrefix(a.QRCode, []byte("\x89PNG")) {
		t.Error("QRCode is not a PNG")
	}
}

func TestTextFractionalPrice(t *testing.T) {
	p := tomatoes()
	p.Price = 12.5
	if got := Text(p, "u"); !strings.Contains(got, "Price: ₹12.5\n") {
		t.Errorf("Text = %q, want price ₹12.5", got)
	}
}

func TestGenerateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testService().Generate(ctx, tomatoes()); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestDestinationsMenuOrder(t *testing.T) {
	s := testService()
	noop := func(context.Context, store.Product, *Artifacts) error { return nil }
	s.Register(DestBlinkit, noop)
	s.Register(DestWhatsApp, noop)
	s.Register(DestEmail, noop)
	s.Register("fax", noop)

	got := s.Destinations()
	want := []Destination{DestWhatsApp, DestEmail, DestBlinkit}
	if len(got) != len(want) {
		t.Fatalf("Destinations() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Destinations()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPublishIndependent(t *testing.T) {
	s := testService()
	var calls []Destination
	s.Register(DestSMS, func(context.Context, store.Product, *Artifacts) error {
		calls = append(calls, DestSMS)
		return errors.New("twilio down")
	})
	s.Register(DestDiscord, func(context.Context, store.Product, *Artifacts) error {
		calls = append(calls, DestDiscord)
		return nil
	})

	a, _ := s.Generate(context.Background(), tomatoes())
	failed := s.PublishAll(context.Background(), []Destination{DestSMS, DestDiscord, DestAmazon}, tomatoes(), a)

	if len(calls) != 2 || calls[0] != DestSMS || calls[1] != DestDiscord {
		t.Errorf("calls = %v, want [sms discord]", calls)
	}
	if len(failed) != 2 {
		t.Fatalf("failed = %v, want sms and amazon", failed)
	}
	if failed[DestDiscord] != nil {
		t.Error("discord should not fail")
	}
	if !errors.Is(failed[DestAmazon], ErrUnknownDestination) {
		t.Errorf("amazon error = %v, want ErrUnknownDestination", failed[DestAmazon])
	}
}

func TestPublishGeneratesMissingArtifacts(t *testing.T) {
	s := testService()
	var got *Artifacts
	s.Register(DestDiscord, func(_ context.Context, _ store.Product, a *Artifacts) error {
		got = a
		return nil
	})
	if err := s.Publish(context.Background(), DestDiscord, tomatoes(), nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got == nil || got.URL == "" {
		t.Error("publisher did not receive generated artifacts")
	}
}

func TestParseDestinations(t *testing.T) {
	got := ParseDestinations([]string{" WhatsApp", "fax", "amazon", ""})
	if len(got) != 2 || got[0] != DestWhatsApp || got[1] != DestAmazon {
		t.Errorf("ParseDestinations = %v, want [whatsapp amazon]", got)
	}
}

type fakeMessenger struct {
	kind, to, body string
}

func (f *fakeMessenger) SendSMS(_ context.Context, to, body string) error {
	f.kind, f.to, f.body = "sms", to, body
	return nil
}

func (f *fakeMessenger) SendWhatsApp(_ context.Context, to, body string) error {
	f.kind, f.to, f.body = "whatsapp", to, body
	return nil
}

type fakePusher struct{ tokens []string }

func (f *fakePusher) SendProductNotification(_ context.Context, token string, _ notifications.ProductShare) error {
	f.tokens = append(f.tokens, token)
	return nil
}

type fakeTokens []store.DevicePushToken

func (f fakeTokens) GetUserPushTokens(context.Context, string) ([]store.DevicePushToken, error) {
	return f, nil
}

type fakeLister struct{ marketplace string }

func (f *fakeLister) PublishListing(_ context.Context, marketplace string, _ notifications.ProductShare) error {
	f.marketplace = marketplace
	return nil
}

func TestBackends(t *testing.T) {
	ctx := context.Background()
	a := &Artifacts{URL: "u", Text: "share text"}

	t.Run("whatsapp", func(t *testing.T) {
		m := &fakeMessenger{}
		if err := WhatsApp(m, "+9198")(ctx, tomatoes(), a); err != nil {
			t.Fatal(err)
		}
		if m.kind != "whatsapp" || m.to != "+9198" || m.body != "share text" {
			t.Errorf("sent %+v", m)
		}
	})

	t.Run("sms without recipient", func(t *testing.T) {
		if err := SMS(&fakeMessenger{}, "")(ctx, tomatoes(), a); err == nil {
			t.Error("expected error without recipient")
		}
	})

	t.Run("push ios only", func(t *testing.T) {
		p := &fakePusher{}
		tokens := fakeTokens{{Token: "ios-1", Platform: "ios"}, {Token: "and-1", Platform: "android"}}
		if err := Push(p, tokens)(ctx, tomatoes(), a); err != nil {
			t.Fatal(err)
		}
		if len(p.tokens) != 1 || p.tokens[0] != "ios-1" {
			t.Errorf("pushed to %v, want [ios-1]", p.tokens)
		}
	})

	t.Run("push without devices", func(t *testing.T) {
		if err := Push(&fakePusher{}, fakeTokens{})(ctx, tomatoes(), a); err == nil {
			t.Error("expected error without devices")
		}
	})

	t.Run("marketplace", func(t *testing.T) {
		l := &fakeLister{}
		if err := Marketplace(l, DestBlinkit)(ctx, tomatoes(), a); err != nil {
			t.Fatal(err)
		}
		if l.marketplace != "blinkit" {
			t.Errorf("marketplace = %q, want %q", l.marketplace, "blinkit")
		}
	})
}
