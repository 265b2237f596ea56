package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/wardenhq/warden/internal/model"
)

// SMTPConfig configures EmailDeliverer. No ecosystem mail client appears
// anywhere in the retrieval pack, so this is a genuine stdlib net/smtp
// client (see DESIGN.md) — grounded on kiloeyes/common/email_sender.py's
// plain SMTP delivery, the feature this deliverer restores per SPEC_FULL.md
// §12.
type SMTPConfig struct {
	Host string
	Port int
	From string
	Auth smtp.Auth
}

// EmailDeliverer sends a plain-text summary of the alarm event to the
// notification method's address.
type EmailDeliverer struct {
	cfg SMTPConfig
}

// NewEmailDeliverer builds an EmailDeliverer.
func NewEmailDeliverer(cfg SMTPConfig) *EmailDeliverer {
	return &EmailDeliverer{cfg: cfg}
}

// Deliver implements Deliverer.
func (e *EmailDeliverer) Deliver(_ context.Context, method model.NotificationMethod, event model.AlarmEvent) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	msg := buildEmailMessage(e.cfg.From, method.Address, event)
	return smtp.SendMail(addr, e.cfg.Auth, e.cfg.From, []string{method.Address}, msg)
}

func buildEmailMessage(from, to string, event model.AlarmEvent) []byte {
	subject := fmt.Sprintf("%s %s", event.AlarmDefinition.Name, event.State)
	body := fmt.Sprintf("%s\n\n%s", event.Reason, event.AlarmDefinition.Description)
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", from, to, subject, body))
}
