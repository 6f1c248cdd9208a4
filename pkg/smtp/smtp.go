package smtp

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/calendar"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

const (
	AlertSubject       = "⚡ URGENT: Scheduled Power Outage Alert Near Your Location"
	CalendarAttachment = "outages.ics"
)

// Credentials are the resolved SMTP settings. They are bound once at startup.
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the sender address; Username is used when empty.
	From string
	// Domain is the right-hand side of generated Message-IDs.
	Domain string
	// SSL selects implicit TLS (port 465) instead of STARTTLS.
	SSL bool
}

// NewDialer builds an authenticated gomail dialer for c.
func NewDialer(c Credentials) *gomail.Dialer {
	dialer := gomail.NewDialer(c.Host, c.Port, c.Username, c.Password)
	dialer.SSL = c.SSL
	dialer.TLSConfig = &tls.Config{ServerName: c.Host, MinVersion: tls.VersionTLS12}
	return dialer
}

// Sender delivers composed messages. *gomail.Dialer implements it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Client is the mail client.
type Client struct {
	sender Sender
	from   string
	domain string
	// calendar is the zone of the attached .ics; nil disables the attachment.
	calendar *time.Location
	now      func() time.Time
}

// NewClient initializes Client.
func NewClient(sender Sender, creds Credentials) *Client {
	from := creds.From
	if from == "" {
		from = creds.Username
	}
	domain := creds.Domain
	if domain == "" {
		domain = creds.Host
	}
	return &Client{sender: sender, from: from, domain: domain, now: time.Now}
}

// WithCalendar attaches an iCalendar file of the outages, in loc, to every alert.
func (c *Client) WithCalendar(loc *time.Location) *Client {
	c.calendar = loc
	return c
}

// SendOutageAlert sends one digest listing every alert to a single recipient.
// Any transport, auth or protocol error is returned as is.
func (c *Client) SendOutageAlert(to string, alerts []dto.Alert) error {
	if len(alerts) == 0 {
		return errors.New("no alerts to send")
	}

	htmlBody, textBody, err := RenderOutageAlert(alerts)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("Message-ID", generateMessageID(c.domain))
	msg.SetHeader("Date", c.now().Format(time.RFC1123Z))
	msg.SetHeader("From", c.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", AlertSubject)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	if c.calendar != nil {
		ics, errICS := calendar.ExportAlertsToICS(alerts, c.calendar, c.now())
		if errICS != nil {
			return fmt.Errorf("build outage calendar: %w", errICS)
		}
		msg.Attach(CalendarAttachment,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, errWrite := w.Write(ics)
				return errWrite
			}),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {"text/calendar; charset=utf-8; method=PUBLISH"},
			}),
		)
	}

	if err = c.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send outage alert to %s: %w", to, err)
	}
	return nil
}

// RenderOutageAlert renders the HTML digest and its plain-text alternative.
func RenderOutageAlert(alerts []dto.Alert) (string, string, error) {
	var htmlBuf, textBuf bytes.Buffer
	if err := htmlTemplate.Execute(&htmlBuf, alerts); err != nil {
		return "", "", fmt.Errorf("render html alert: %w", err)
	}
	if err := textTemplate.Execute(&textBuf, alerts); err != nil {
		return "", "", fmt.Errorf("render text alert: %w", err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}

func generateMessageID(domain string) string {
	uniqueID := uuid.New().String()
	return fmt.Sprintf("<%s@%s>", uniqueID, domain)
}
