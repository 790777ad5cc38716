package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"seatbooking/internal/config"
	"seatbooking/internal/models"
)

// SMSChannel posts messages to a Twilio-compatible REST gateway.
type SMSChannel struct {
	cfg      config.SMSConfig
	client   *http.Client
	renderer *Renderer
}

func NewSMSChannel(cfg config.SMSConfig, renderer *Renderer) *SMSChannel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMSChannel{
		cfg:      cfg,
		client:   &http.Client{Timeout: timeout},
		renderer: renderer,
	}
}

func (c *SMSChannel) Name() models.Channel { return models.ChannelSMS }

// FormatPhone prefixes numbers without a leading + with the country code.
func FormatPhone(phone, countryCode string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return countryCode + phone
}

func (c *SMSChannel) Send(ctx context.Context, kind models.NotificationKind, b *models.Booking) error {
	content, err := c.renderer.Render(kind, b)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("To", FormatPhone(b.CustomerPhone, c.cfg.DefaultCountryCode))
	form.Set("From", c.cfg.From)
	form.Set("Body", content.Text)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("sms gateway response: %w", err)
	}
	if out.SID == "" {
		return fmt.Errorf("sms gateway accepted message without sid")
	}
	return nil
}
