// Package email delivers critical performance alerts to operators.
package email

import (
	"fmt"
	"os"
	"strings"

	"github.com/resendlabs/resend-go"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/alerting"
)

// Service defines the interface for sending alert emails, allowing for mock
// implementations in tests.
type Service interface {
	SendAlertEmail(alert alerting.Alert) error
}

// ResendClient is the concrete implementation of the email Service using
// the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
	toEmails  []string
}

// NewService creates a new email service client, returning the Service
// interface.
func NewService() (Service, error) {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	recipients := os.Getenv("ALERT_EMAIL_TO")
	if recipients == "" {
		return nil, fmt.Errorf("ALERT_EMAIL_TO environment variable is required")
	}

	fromEmail := os.Getenv("ALERT_EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "alerts@stokcerdas.com"
	}

	fromName := os.Getenv("ALERT_EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "StokCerdas Monitoring"
	}

	return &ResendClient{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		toEmails:  strings.Split(recipients, ","),
	}, nil
}

// SendAlertEmail composes and sends one alert notification.
func (c *ResendClient) SendAlertEmail(alert alerting.Alert) error {
	subject := fmt.Sprintf("[%s] %s alert: %s", strings.ToUpper(string(alert.Severity)), alert.Category, alert.Message)

	var body strings.Builder
	fmt.Fprintf(&body, "<h2>%s</h2>", alert.Message)
	fmt.Fprintf(&body, "<p>Severity: <strong>%s</strong><br/>Category: %s<br/>Raised: %s</p>",
		alert.Severity, alert.Category, alert.Timestamp.Format("2006-01-02 15:04:05 MST"))
	if alert.TenantID != "" {
		fmt.Fprintf(&body, "<p>Tenant: %s</p>", alert.TenantID)
	}
	if len(alert.Recommendations) > 0 {
		body.WriteString("<h3>Recommendations</h3><ul>")
		for _, recommendation := range alert.Recommendations {
			fmt.Fprintf(&body, "<li>%s</li>", recommendation)
		}
		body.WriteString("</ul>")
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      c.toEmails,
		Subject: subject,
		Html:    body.String(),
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send alert email via Resend: %w", err)
	}

	return nil
}

// NoopService discards alert emails. Used when delivery is not configured
// and as a stand-in for tests.
type NoopService struct{}

// SendAlertEmail implements Service and does nothing.
func (NoopService) SendAlertEmail(alerting.Alert) error { return nil }

// AlertNotifier adapts the email service to the alert engine's notifier
// contract, delivering only critical alerts.
type AlertNotifier struct {
	service Service
}

// NewAlertNotifier wraps an email service for alert delivery.
func NewAlertNotifier(service Service) *AlertNotifier {
	return &AlertNotifier{service: service}
}

// Notify sends critical alerts by email and drops the rest.
func (n *AlertNotifier) Notify(alert alerting.Alert) error {
	if alert.Severity != alerting.SeverityCritical {
		return nil
	}
	return n.service.SendAlertEmail(alert)
}
