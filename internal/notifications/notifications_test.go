package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func sampleShare() ProductShare {
	return ProductShare{
		ProductID: "p-1",
		Name:      "Tomatoes",
		Price:     35,
		StockQty:  4,
		URL:       "https://vocalkart.app/product/p-1",
		Text:      "Check out my product: Tomatoes\nPrice: ₹35\nStock: 4 available\n\nView more: https://vocalkart.app/product/p-1",
		QRCode:    []byte{0x89, 'P', 'N', 'G'},
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{35, "₹35"},
		{0, "₹0"},
		{12.5, "₹12.50"},
		{99.99, "₹99.99"},
	}
	for _, tt := range tests {
		if got := formatPrice(tt.in); got != tt.want {
			t.Errorf("formatPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDiscordNotifyProductShared(t *testing.T) {
	var got discordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, testLogger())
	if err := d.NotifyProductShared(context.Background(), sampleShare()); err != nil {
		t.Fatalf("NotifyProductShared() error = %v", err)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(got.Embeds))
	}
	embed := got.Embeds[0]
	if embed.Title != "Tomatoes" {
		t.Errorf("title = %q, want %q", embed.Title, "Tomatoes")
	}
	if len(embed.Fields) != 2 || embed.Fields[0].Value != "₹35" || embed.Fields[1].Value != "4" {
		t.Errorf("fields = %+v, want price ₹35 and stock 4", embed.Fields)
	}
}

func TestDiscordErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, testLogger())
	if err := d.NotifyProductShared(context.Background(), sampleShare()); err == nil {
		t.Error("expected error for 400 response")
	}
}

func TestDiscordDisabled(t *testing.T) {
	d := NewDiscord("", testLogger())
	if d.Enabled() {
		t.Error("Enabled() = true with empty webhook")
	}
	if err := d.NotifyProductShared(context.Background(), sampleShare()); err != nil {
		t.Errorf("disabled notifier returned %v", err)
	}

	var nilDiscord *Discord
	if nilDiscord.Enabled() {
		t.Error("nil Discord reports enabled")
	}
}

func TestNewSMSClientMissingCredentials(t *testing.T) {
	if c := NewSMSClient(SMSConfig{AccountSID: "AC1"}, testLogger()); c != nil {
		t.Error("NewSMSClient without auth token should return nil")
	}

	var c *SMSClient
	if err := c.SendSMS(context.Background(), "+919800000000", "hi"); err != nil {
		t.Errorf("nil client SendSMS = %v, want nil", err)
	}
	if err := c.SendWhatsApp(context.Background(), "+919800000000", "hi"); err != nil {
		t.Errorf("nil client SendWhatsApp = %v, want nil", err)
	}
}

func TestSMSClientSend(t *testing.T) {
	tests := []struct {
		name     string
		whatsapp bool
		wantFrom string
		wantTo   string
	}{
		{"sms", false, "+15550001111", "+919800000000"},
		{"whatsapp", true, "whatsapp:+15550002222", "whatsapp:+919800000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasSuffix(r.URL.Path, "/Accounts/AC123/Messages.json") {
					t.Errorf("path = %q", r.URL.Path)
				}
				user, pass, ok := r.BasicAuth()
				if !ok || user != "AC123" || pass != "secret" {
					t.Errorf("basic auth = %q/%q, want AC123/secret", user, pass)
				}
				if err := r.ParseForm(); err != nil {
					t.Fatalf("ParseForm: %v", err)
				}
				if got := r.PostForm.Get("From"); got != tt.wantFrom {
					t.Errorf("From = %q, want %q", got, tt.wantFrom)
				}
				if got := r.PostForm.Get("To"); got != tt.wantTo {
					t.Errorf("To = %q, want %q", got, tt.wantTo)
				}
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
			}))
			defer srv.Close()

			c := NewSMSClient(SMSConfig{
				AccountSID:     "AC123",
				AuthToken:      "secret",
				SenderNumber:   "+15550001111",
				WhatsAppNumber: "+15550002222",
				BaseURL:        srv.URL,
			}, testLogger())

			var err error
			if tt.whatsapp {
				err = c.SendWhatsApp(context.Background(), "+919800000000", "hello")
			} else {
				err = c.SendSMS(context.Background(), "+919800000000", "hello")
			}
			if err != nil {
				t.Errorf("send error = %v", err)
			}
		})
	}
}

func TestSMSClientTwilioError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	c := NewSMSClient(SMSConfig{AccountSID: "AC1", AuthToken: "t", SenderNumber: "+1555", BaseURL: srv.URL}, testLogger())
	err := c.SendSMS(context.Background(), "bogus", "hi")
	if err == nil || !strings.Contains(err.Error(), "21211") {
		t.Errorf("error = %v, want Twilio code 21211", err)
	}
}

func TestSMSClientMissingSender(t *testing.T) {
	c := NewSMSClient(SMSConfig{AccountSID: "AC1", AuthToken: "t"}, testLogger())
	if err := c.SendSMS(context.Background(), "+91", "hi"); err == nil {
		t.Error("SendSMS without sender number should fail")
	}
	if err := c.SendWhatsApp(context.Background(), "+91", "hi"); err == nil {
		t.Error("SendWhatsApp without WhatsApp number should fail")
	}
}

func TestWhatsAppAddress(t *testing.T) {
	if got := whatsAppAddress("+9198"); got != "whatsapp:+9198" {
		t.Errorf("whatsAppAddress = %q, want %q", got, "whatsapp:+9198")
	}
	if got := whatsAppAddress("whatsapp:+9198"); got != "whatsapp:+9198" {
		t.Errorf("whatsAppAddress kept prefix = %q", got)
	}
}

func TestNewEmailClientMissingConfig(t *testing.T) {
	if c := NewEmailClient(EmailConfig{APIKey: "k"}, testLogger()); c != nil {
		t.Error("NewEmailClient without sender should return nil")
	}
	var c *EmailClient
	if err := c.SendProductShare(context.Background(), "a@b.c", sampleShare()); err != nil {
		t.Errorf("nil client SendProductShare = %v, want nil", err)
	}
}

func TestBuildShareEmail(t *testing.T) {
	s := sampleShare()
	msg := buildShareEmail(mail.NewEmail("Vocalkart", "shop@vocalkart.app"), "buyer@example.com", s)

	if msg.Subject != "Tomatoes - ₹35" {
		t.Errorf("subject = %q, want %q", msg.Subject, "Tomatoes - ₹35")
	}
	if len(msg.Personalizations) != 1 || msg.Personalizations[0].To[0].Address != "buyer@example.com" {
		t.Errorf("recipient not set: %+v", msg.Personalizations)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(msg.Attachments))
	}
	if msg.Attachments[0].Type != "image/png" {
		t.Errorf("attachment type = %q, want image/png", msg.Attachments[0].Type)
	}

	s.QRCode = nil
	msg = buildShareEmail(mail.NewEmail("Vocalkart", "shop@vocalkart.app"), "buyer@example.com", s)
	if len(msg.Attachments) != 0 {
		t.Errorf("attachments without QR = %d, want 0", len(msg.Attachments))
	}
}

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func TestMarketplacePublishListing(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMarketplace(pub, "", testLogger())

	if err := m.PublishListing(context.Background(), "blinkit", sampleShare()); err != nil {
		t.Fatalf("PublishListing() error = %v", err)
	}
	if pub.subject != "vocalkart.marketplace.blinkit" {
		t.Errorf("subject = %q, want %q", pub.subject, "vocalkart.marketplace.blinkit")
	}

	var l Listing
	if err := json.Unmarshal(pub.data, &l); err != nil {
		t.Fatalf("unmarshal listing: %v", err)
	}
	if l.Marketplace != "blinkit" || l.ProductID != "p-1" || l.Price != 35 {
		t.Errorf("listing = %+v", l)
	}
}

func TestMarketplaceErrors(t *testing.T) {
	var nilMarket *Marketplace
	if nilMarket.Enabled() {
		t.Error("nil marketplace reports enabled")
	}

	m := NewMarketplace(nil, "x", testLogger())
	if err := m.PublishListing(context.Background(), "amazon", sampleShare()); err == nil {
		t.Error("PublishListing without publisher should fail")
	}

	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	m = NewMarketplace(pub, "x", testLogger())
	if err := m.PublishListing(context.Background(), "amazon", sampleShare()); err == nil {
		t.Error("PublishListing should surface publish errors")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMarketplace(&fakePublisher{}, "x", testLogger()).PublishListing(ctx, "amazon", sampleShare()); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled PublishListing = %v, want context.Canceled", err)
	}
}

func TestConnectNATSEmptyURL(t *testing.T) {
	nc, err := ConnectNATS("", testLogger())
	if nc != nil || err != nil {
		t.Errorf("ConnectNATS(\"\") = %v, %v; want nil, nil", nc, err)
	}
}

func TestAPNsDisabled(t *testing.T) {
	c, err := NewAPNsClient(APNsConfig{}, testLogger())
	if err != nil || c != nil {
		t.Fatalf("NewAPNsClient(empty) = %v, %v; want nil, nil", c, err)
	}
	if c.Enabled() {
		t.Error("nil APNs client reports enabled")
	}
	if err := c.SendProductNotification(context.Background(), "token", sampleShare()); err != nil {
		t.Errorf("disabled SendProductNotification = %v, want nil", err)
	}
}

func TestAPNsMissingKeyFile(t *testing.T) {
	_, err := NewAPNsClient(APNsConfig{KeyPath: "/nonexistent/key.p8", KeyID: "K", TeamID: "T", BundleID: "app.vocalkart"}, testLogger())
	if err == nil {
		t.Error("expected error for missing key file")
	}
}

func TestProductSharePayload(t *testing.T) {
	raw, err := json.Marshal(productSharePayload(sampleShare()))
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	body := string(raw)
	for _, want := range []string{`"title":"Shared: Tomatoes"`, `"product_id":"p-1"`, `"notification_type":"product_shared"`} {
		if !strings.Contains(body, want) {
			t.Errorf("payload %s missing %s", body, want)
		}
	}
}

func TestShortToken(t *testing.T) {
	if got := shortToken("0123456789abcdefXYZ"); got != "0123456789abcdef" {
		t.Errorf("shortToken = %q", got)
	}
	if got := shortToken("abc"); got != "abc" {
		t.Errorf("shortToken(short) = %q", got)
	}
}
