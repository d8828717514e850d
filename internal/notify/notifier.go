package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	billing "gestor-energia/internal/billing/domain"
)

// Notifier renders a composed report and delivers it per recipient.
type Notifier struct {
	channel  Channel
	template *Template
	subject  string
	logger   *log.Logger
}

// Option configures the notifier.
type Option func(*Notifier)

// WithSubject overrides the subject prefix.
func WithSubject(subject string) Option {
	return func(n *Notifier) {
		if subject != "" {
			n.subject = subject
		}
	}
}

// WithLogger attaches a logger for delivery failures.
func WithLogger(logger *log.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNotifier constructs a report notifier.
func NewNotifier(channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("report notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		channel:  channel,
		template: template,
		subject:  "Relatório de Custos",
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// SendReport implements application.ReportSender. Delivery continues past
// individual recipient failures; the error reports how many failed.
func (n *Notifier) SendReport(ctx context.Context, model billing.ReportModel, recipients []string) error {
	if n == nil || n.channel == nil {
		return errors.New("report notifier: nil channel")
	}

	content, err := n.template.Render(buildTemplateData(model))
	if err != nil {
		return err
	}
	subject := n.subject
	if model.CompetenceLabel != "" {
		subject = fmt.Sprintf("%s - %s", n.subject, model.CompetenceLabel)
	}

	sent := 0
	failed := 0
	for _, recipient := range recipients {
		recipient = strings.TrimSpace(recipient)
		if recipient == "" {
			continue
		}
		if err := n.channel.Send(ctx, recipient, subject, content); err != nil {
			failed++
			if n.logger != nil {
				n.logger.Printf("notify: send to %s failed: %v", recipient, err)
			}
			continue
		}
		sent++
	}
	if sent == 0 && failed == 0 {
		return errors.New("report notifier: no recipients")
	}
	if failed > 0 {
		return fmt.Errorf("report notifier: %d of %d deliveries failed", failed, sent+failed)
	}
	return nil
}
