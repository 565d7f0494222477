package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIURL = "https://api.twilio.com/2010-04-01"

// SMSConfig holds configuration for SMS and WhatsApp messages via Twilio
type SMSConfig struct {
	AccountSID     string // Twilio Account SID
	AuthToken      string // Twilio Auth Token
	SenderNumber   string // SMS sender (E.164), empty disables SMS
	WhatsAppNumber string // WhatsApp-enabled sender (E.164), empty disables WhatsApp
	BaseURL        string // defaults to the Twilio REST API
}

// SMSClient sends messages via Twilio Programmable Messaging
type SMSClient struct {
	accountSID     string
	authToken      string
	senderNumber   string
	whatsAppNumber string
	baseURL        string
	httpClient     *http.Client
	logger         *log.Logger
}

// NewSMSClient creates a new Twilio messaging client. It returns nil when
// credentials are missing; a nil client ignores every send.
func NewSMSClient(cfg SMSConfig, logger *log.Logger) *SMSClient {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		logger.Println("SMS: missing Twilio credentials, SMS and WhatsApp sharing disabled")
		return nil
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = twilioAPIURL
	}

	logger.Printf("SMS: client initialized (sms=%q, whatsapp=%q)", cfg.SenderNumber, cfg.WhatsAppNumber)

	return &SMSClient{
		accountSID:     cfg.AccountSID,
		authToken:      cfg.AuthToken,
		senderNumber:   cfg.SenderNumber,
		whatsAppNumber: cfg.WhatsAppNumber,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		logger:         logger,
	}
}

// twilioMessageResponse represents a Twilio Messages API response
type twilioMessageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    int    `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Code         int    `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
}

// SendSMS sends an SMS message to the specified phone number
func (c *SMSClient) SendSMS(ctx context.Context, to, body string) error {
	if c == nil {
		return nil
	}
	if c.senderNumber == "" {
		return fmt.Errorf("SMS sender number not configured")
	}
	return c.send(ctx, c.senderNumber, to, body)
}

// SendWhatsApp sends a WhatsApp message through the Twilio WhatsApp sender
func (c *SMSClient) SendWhatsApp(ctx context.Context, to, body string) error {
	if c == nil {
		return nil
	}
	if c.whatsAppNumber == "" {
		return fmt.Errorf("WhatsApp sender number not configured")
	}
	return c.send(ctx, whatsAppAddress(c.whatsAppNumber), whatsAppAddress(to), body)
}

func (c *SMSClient) send(ctx context.Context, from, to, body string) error {
	apiURL := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	data := url.Values{}
	data.Set("To", to)
	data.Set("From", from)
	data.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("SMS: failed to send to %s: %v", to, err)
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	var msgResp twilioMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code, msg := msgResp.ErrorCode, msgResp.ErrorMessage
		if code == 0 {
			code, msg = msgResp.Code, msgResp.Message
		}
		c.logger.Printf("SMS: Twilio error (code=%d, msg=%s)", code, msg)
		return fmt.Errorf("Twilio API error: %d - %s", code, msg)
	}

	c.logger.Printf("SMS: sent successfully to %s (sid=%s, status=%s)", to, msgResp.SID, msgResp.Status)
	return nil
}

func whatsAppAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
