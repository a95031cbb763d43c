// Transactional emails sent through Resend
package email

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/util"
	"time"

	"github.com/resend/resend-go/v2"
	log "github.com/sirupsen/logrus"
)

type Kind string

const (
	KindWelcome               Kind = "welcome"
	KindPaymentSuccess        Kind = "payment_success"
	KindPaymentFailed         Kind = "payment_failed"
	KindPasswordReset         Kind = "password_reset"
	KindSubscriptionCancelled Kind = "subscription_cancelled"
)

// Data is the union of the template fields; each template reads only what it needs.
type Data struct {
	Name      string
	PlanName  string
	Amount    float64
	ResetURL  string
	PeriodEnd time.Time
}

type Sender interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendPaymentSuccess(ctx context.Context, to, name, planName string, amount float64) error
	SendPaymentFailed(ctx context.Context, to, name string) error
	SendPasswordReset(ctx context.Context, to, resetToken string) error
	SendSubscriptionCancelled(ctx context.Context, to, name string, periodEnd time.Time) error
}

// Transport delivers a rendered email.
type Transport interface {
	Send(ctx context.Context, from, to, subject, html string) (string, error)
}

type ResendTransport struct {
	client *resend.Client
}

func NewResendTransport(apiKey string) *ResendTransport {
	return &ResendTransport{client: resend.NewClient(apiKey)}
}

func (t *ResendTransport) Send(ctx context.Context, from, to, subject, html string) (string, error) {
	sent, err := t.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return "", err
	}
	return sent.Id, nil
}

// Mailer renders the Portuguese templates and hands them to a Transport.
type Mailer struct {
	From        string
	FrontendURL string
	Transport   Transport
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		From:        config.EMAIL_FROM,
		FrontendURL: cfg.FrontendURL,
		Transport:   NewResendTransport(cfg.ResendAPIKey),
	}
}

func Render(kind Kind, data Data) (string, string, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("Render: unknown email kind %s", kind)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("Render: failed to execute %s template: %w", kind, err)
	}
	return subjects[kind], buf.String(), nil
}

func (m *Mailer) send(ctx context.Context, kind Kind, to string, data Data) error {
	subject, html, err := Render(kind, data)
	if err != nil {
		return err
	}
	id, err := m.Transport.Send(ctx, m.From, to, subject, html)
	config.CONFIG.DataDogClient.Incr("email.sent", []string{"kind:" + string(kind), fmt.Sprintf("success:%t", err == nil)}, 1)
	if err != nil {
		log.WithError(err).WithField("kind", kind).Errorf("failed to send email to %s", to)
		return fmt.Errorf("send: failed to send %s email: %w", kind, err)
	}
	log.WithField("kind", kind).Infof("email %s sent to %s", id, to)
	return nil
}

func (m *Mailer) SendWelcome(ctx context.Context, to, name string) error {
	return m.send(ctx, KindWelcome, to, Data{Name: name})
}

func (m *Mailer) SendPaymentSuccess(ctx context.Context, to, name, planName string, amount float64) error {
	return m.send(ctx, KindPaymentSuccess, to, Data{Name: name, PlanName: planName, Amount: amount})
}

func (m *Mailer) SendPaymentFailed(ctx context.Context, to, name string) error {
	return m.send(ctx, KindPaymentFailed, to, Data{Name: name})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, resetToken string) error {
	resetURL := m.FrontendURL + "/reset-password.html?token=" + url.QueryEscape(resetToken)
	log.Infof("SendPasswordReset: reset link for %s with token %s", to, util.Mask(resetToken, 10))
	return m.send(ctx, KindPasswordReset, to, Data{ResetURL: resetURL})
}

func (m *Mailer) SendSubscriptionCancelled(ctx context.Context, to, name string, periodEnd time.Time) error {
	return m.send(ctx, KindSubscriptionCancelled, to, Data{Name: name, PeriodEnd: periodEnd})
}
