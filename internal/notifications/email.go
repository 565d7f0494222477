package notifications

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailConfig holds configuration for SendGrid email.
type EmailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// EmailClient sends product shares by email via SendGrid.
type EmailClient struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *log.Logger
}

// NewEmailClient returns nil when the API key or sender is missing; a nil
// client ignores every send.
func NewEmailClient(cfg EmailConfig, logger *log.Logger) *EmailClient {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		logger.Println("email: missing SendGrid configuration, email sharing disabled")
		return nil
	}
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "Vocalkart"
	}
	return &EmailClient{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  fromName,
		logger:    logger,
	}
}

// SendProductShare emails the share text to to, with the QR code attached.
func (c *EmailClient) SendProductShare(ctx context.Context, to string, s ProductShare) error {
	if c == nil {
		return nil
	}

	message := buildShareEmail(mail.NewEmail(c.fromName, c.fromEmail), to, s)

	response, err := c.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid error: %w", err)
	}

	// SendGrid returns 2xx for success
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}

	c.logger.Printf("email: shared product %s with %s", s.ProductID, to)
	return nil
}

func buildShareEmail(from *mail.Email, to string, s ProductShare) *mail.SGMailV3 {
	subject := fmt.Sprintf("%s - %s", s.Name, formatPrice(s.Price))
	htmlBody := "<p>" + strings.ReplaceAll(html.EscapeString(s.Text), "\n", "<br>") + "</p>"

	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), s.Text, htmlBody)

	if len(s.QRCode) > 0 {
		attachment := mail.NewAttachment()
		attachment.SetContent(base64.StdEncoding.EncodeToString(s.QRCode))
		attachment.SetType("image/png")
		attachment.SetFilename("product-qr.png")
		attachment.SetDisposition("attachment")
		message.AddAttachment(attachment)
	}
	return message
}
