package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"seatbooking/internal/config"
	"seatbooking/internal/models"
)

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailChannel struct {
	cfg      config.EmailConfig
	renderer *Renderer
	sendMail SendMailFunc
}

func NewEmailChannel(cfg config.EmailConfig, renderer *Renderer) *EmailChannel {
	return &EmailChannel{cfg: cfg, renderer: renderer, sendMail: smtp.SendMail}
}

func (c *EmailChannel) Name() models.Channel { return models.ChannelEmail }

func (c *EmailChannel) Send(ctx context.Context, kind models.NotificationKind, b *models.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(b.CustomerEmail) == "" {
		return fmt.Errorf("booking %s has no email address", b.ID)
	}
	content, err := c.renderer.Render(kind, b)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}
	from := c.cfg.From
	if from == "" {
		from = c.cfg.Username
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %q <%s>\r\n", brand, from)
	fmt.Fprintf(&msg, "To: %s\r\n", b.CustomerEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", content.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(content.HTML)

	addr := c.cfg.Host + ":" + strconv.Itoa(c.cfg.Port)
	if err := c.sendMail(addr, auth, from, []string{b.CustomerEmail}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp %s: %w", addr, err)
	}
	return nil
}
