// Package mailer renders and delivers the notification and error-digest
// emails.
package mailer

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"

	"rentalwatch/internal/errbuf"
	"rentalwatch/internal/metrics"
	"rentalwatch/internal/store"
	"rentalwatch/internal/watch"
)

const (
	notificationSubject = "🏠 New Listings Found!"
	errorSubject        = "🔧 Error Report"
)

const envelopeHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>New Listings Found!</title>
</head>
<body style="margin:0; padding:0; background-color:#ffffff;">
<div style="font-family: Arial, sans-serif; font-size: 14px; color: #333;">
`

const envelopeFooter = `
</div>
</body>
</html>`

var errorEntryTmpl = template.Must(template.New("errorEntry").Parse(strings.TrimSpace(`
<div>
<p><strong>Time:</strong> {{.Timestamp}}</p>
<p><strong>Path:</strong> {{.Path}}</p>
<p><strong>Method:</strong> {{.Method}}</p>
<p><strong>Message:</strong> {{.Message}}</p>
{{if .Stack}}<pre>{{.Stack}}</pre>
{{end}}</div>
`)))

// Config controls mailer behavior.
type Config struct {
	// ErrorDigestEnabled gates error-report emails.
	ErrorDigestEnabled bool
}

// Mailer flushes the notification digest and the error buffer by email.
type Mailer struct {
	transport watch.Transport
	digest    *store.Digest
	errs      *errbuf.Buffer
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Mailer.
func New(transport watch.Transport, digest *store.Digest, errs *errbuf.Buffer, cfg Config, logger *zap.Logger) *Mailer {
	return &Mailer{
		transport: transport,
		digest:    digest,
		errs:      errs,
		cfg:       cfg,
		logger:    logger,
	}
}

// SendNotification wraps the accumulated digest fragments in the HTML
// envelope and attempts delivery. Success clears the digest file; failure
// leaves it intact for retry next cycle.
func (m *Mailer) SendNotification(ctx context.Context) error {
	content, err := m.digest.Content()
	if err != nil {
		return fmt.Errorf("prepare notification: %w", err)
	}
	if content == "" {
		m.logger.Info("no new listings to send")
		return nil
	}

	html := envelopeHeader + content + envelopeFooter
	deliveryID, err := m.transport.Send(ctx, notificationSubject, html)
	if err != nil {
		errbuf.Capture(m.logger, m.errs, "Mailer", err, "Failed to send notification email")
		return nil
	}
	m.logger.Info("notification email sent", zap.String("delivery_id", deliveryID))
	metrics.RecordEmailSent("notification")

	if err := m.digest.Clear(); err != nil {
		errbuf.Capture(m.logger, m.errs, "Mailer", err, "Failed to clear notification digest")
	}
	return nil
}

// SendErrorDigest drains the error buffer into a report email. Entries are
// delivered at most once: a send failure after the flush loses them, an
// accepted tradeoff for an operator-facing side channel.
func (m *Mailer) SendErrorDigest(ctx context.Context) {
	if !m.cfg.ErrorDigestEnabled {
		return
	}
	if !m.errs.HasPending() {
		return
	}

	entries := m.errs.Flush()
	html, err := renderErrorDigest(entries)
	if err != nil {
		m.logger.Error("failed to render error digest", zap.Error(err))
		return
	}

	deliveryID, err := m.transport.Send(ctx, errorSubject, html)
	if err != nil {
		m.logger.Error("failed to send error report email", zap.Error(err))
		return
	}
	m.logger.Info("error report email sent",
		zap.String("delivery_id", deliveryID),
		zap.Int("entries", len(entries)),
	)
	metrics.RecordEmailSent("error_digest")
}

func renderErrorDigest(entries []watch.ErrorEntry) (string, error) {
	var parts []string
	for _, entry := range entries {
		var b strings.Builder
		if err := errorEntryTmpl.Execute(&b, entry); err != nil {
			return "", fmt.Errorf("render error entry: %w", err)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "<hr>"), nil
}
