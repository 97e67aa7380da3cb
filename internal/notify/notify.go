package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/dispensary/internal/metrics"
)

type Kind string

const (
	KindAdminChatMessage Kind = "admin_chat_message"
	KindSpecialOrder     Kind = "special_order"
)

// Notification is the unit queued for the worker and rendered into an email.
type Notification struct {
	Kind   Kind              `json:"kind"`
	To     string            `json:"to"`
	Fields map[string]string `json:"fields"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

func parse(text string) *template.Template {
	return template.Must(template.New("").Option("missingkey=zero").Parse(text))
}

var templates = map[Kind]struct {
	subject *template.Template
	body    *template.Template
}{
	KindAdminChatMessage: {
		subject: parse(`New chat message from {{or .customerName .customerEmail "a customer"}}`),
		body:    parse(`A customer sent a message to the staff chat.

Session:  {{.sessionId}}
Name:     {{or .customerName "-"}}
Email:    {{or .customerEmail "-"}}
{{- if .imageCount}}
Images:   {{.imageCount}}
{{- end}}

Message:
{{.message}}

Open the admin dashboard to claim the session and reply.
`),
	},
	KindSpecialOrder: {
		subject: parse(`Special order request {{.orderId}}`),
		body:    parse(`A new special order was submitted.

Order:     {{.orderId}}
Session:   {{or .sessionId "-"}}
Customer:  {{or .customerName "-"}} <{{.customerEmail}}>
Phone:     {{or .customerPhone "-"}}
Strain:    {{or .requestedStrain "-"}}
Quantity:  {{or .requestedQuantity "-"}}
Wanted by: {{or .requestedDate "-"}}

Details:
{{.requestDetails}}
`),
	},
}

// Render produces the email subject and body for n.
func Render(n Notification) (string, string, error) {
	tpl, ok := templates[n.Kind]
	if !ok {
		return "", "", fmt.Errorf("notify: unknown kind %q", n.Kind)
	}
	fields := map[string]string{}
	for k, v := range n.Fields {
		fields[k] = v
	}
	var subj, body bytes.Buffer
	if err := tpl.subject.Execute(&subj, fields); err != nil {
		return "", "", fmt.Errorf("notify: render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, fields); err != nil {
		return "", "", fmt.Errorf("notify: render body: %w", err)
	}
	return strings.TrimSpace(subj.String()), body.String(), nil
}

// Inline renders and sends in the calling goroutine.
type Inline struct {
	mailer Mailer
	logger *logrus.Logger
}

func NewInline(mailer Mailer, logger *logrus.Logger) *Inline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Inline{mailer: mailer, logger: logger}
}

func (n *Inline) Notify(ctx context.Context, note Notification) error {
	err := Deliver(ctx, n.mailer, note)
	metrics.Get().Notifications.WithLabelValues("inline", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	n.logger.WithFields(logrus.Fields{"kind": note.Kind, "to": note.To}).Info("notification sent")
	return nil
}

// Deliver renders note and hands it to mailer. Shared by the inline notifier
// and the queue worker.
func Deliver(ctx context.Context, mailer Mailer, note Notification) error {
	if strings.TrimSpace(note.To) == "" {
		return fmt.Errorf("notify: %s has no recipient", note.Kind)
	}
	subject, body, err := Render(note)
	if err != nil {
		return err
	}
	return mailer.Send(ctx, note.To, subject, body)
}

// Discard logs notifications instead of sending them. Used when no SMTP
// server or queue is configured.
type Discard struct {
	Logger *logrus.Logger
}

func (d Discard) Notify(ctx context.Context, note Notification) error {
	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{"kind": note.Kind, "to": note.To}).Info("notification not delivered: no mailer configured")
	}
	return nil
}
