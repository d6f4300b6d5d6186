// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package notify

import (
	"bytes"
	"cmp"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"slices"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/tomtom215/tracktarr/internal/config"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/models"
)

// Email is a rendered message.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type updateView struct {
	Title       string
	Year        string
	Episode     bool
	Season      int
	Number      int
	Status      string
	Description string
	Available   bool
}

type updatesView struct {
	ServiceName    string
	MediaServerURL string
	Updates        []updateView
}

var updatesHTML = template.Must(template.New("updates").Parse(`<!DOCTYPE html>
<html lang="fr"><body>
<h1>{{.ServiceName}}</h1>
{{range .Updates}}<div class="media-card">
<h2>{{.Title}} <span>{{.Year}}</span></h2>
{{if .Episode}}<p>Saison {{.Season}} Episode {{.Number}}</p>{{end}}
<p class="status">{{.Status}}</p>
<p>{{.Description}}</p>
{{if and .Available $.MediaServerURL}}<a href="{{$.MediaServerURL}}">Regarder sur {{$.ServiceName}}</a>{{end}}
</div>
{{end}}<p>Ceci est un service privé. Merci de ne pas partager vos identifiants.</p>
</body></html>
`))

var updatesText = texttemplate.Must(texttemplate.New("updates").Parse(`{{.ServiceName}}
{{range .Updates}}
{{.Title}} ({{.Year}}){{if .Episode}} - Saison {{.Season}} Episode {{.Number}}{{end}}
{{.Status}}
{{.Description}}
{{end}}`))

// sortUpdates orders by title, then by episode position.
func sortUpdates(updates []Update) []Update {
	sorted := slices.Clone(updates)
	slices.SortStableFunc(sorted, func(a, b Update) int {
		return cmp.Or(
			strings.Compare(a.Info.Title, b.Info.Title),
			cmp.Compare(a.Info.SeasonNumber(), b.Info.SeasonNumber()),
			cmp.Compare(a.Info.EpisodeNumber(), b.Info.EpisodeNumber()),
		)
	})
	return sorted
}

// RenderUpdates renders the batch email of a recipient.
func RenderUpdates(serviceName, mediaServerURL, to string, updates []Update) (Email, error) {
	view := updatesView{ServiceName: serviceName, MediaServerURL: mediaServerURL}
	for _, u := range sortUpdates(updates) {
		view.Updates = append(view.Updates, updateView{
			Title:       u.Info.Title,
			Year:        yearText(u.Info.Year),
			Episode:     u.Info.Type == media.TypeEpisode,
			Season:      u.Info.SeasonNumber(),
			Number:      u.Info.EpisodeNumber(),
			Status:      StatusLabel(u.Status),
			Description: statusStyles[u.Status].description,
			Available:   u.Status == models.StatusFulfilled,
		})
	}

	var html, text bytes.Buffer
	if err := updatesHTML.Execute(&html, view); err != nil {
		return Email{}, fmt.Errorf("render html: %w", err)
	}
	if err := updatesText.Execute(&text, view); err != nil {
		return Email{}, fmt.Errorf("render text: %w", err)
	}
	return Email{
		To:      to,
		Subject: fmt.Sprintf("📺 Mise à jour de vos demandes (%d)", len(updates)),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// UpdateSender renders batches and hands them to a Mailer. Its Send method
// is a BatchSender.
type UpdateSender struct {
	mailer         Mailer
	serviceName    string
	mediaServerURL string
}

// NewUpdateSender creates an UpdateSender.
func NewUpdateSender(mailer Mailer, serviceName, mediaServerURL string) *UpdateSender {
	return &UpdateSender{mailer: mailer, serviceName: serviceName, mediaServerURL: mediaServerURL}
}

// Send renders and sends one batch.
func (s *UpdateSender) Send(ctx context.Context, to string, updates []Update) error {
	msg, err := RenderUpdates(s.serviceName, s.mediaServerURL, to, updates)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

func noticeEmail(to string, notice Notice) Email {
	return Email{
		To:      to,
		Subject: notice.Subject,
		Text:    notice.Text,
		HTML:    "<p>" + strings.ReplaceAll(template.HTMLEscapeString(notice.Text), "\n", "<br>") + "</p>",
	}
}

// SMTPMailer sends email over SMTP with STARTTLS when the server offers it.
type SMTPMailer struct {
	host     string
	port     int
	user     string
	password string
	from     string
	timeout  time.Duration
}

// NewSMTPMailer creates a mailer from configuration.
func NewSMTPMailer(cfg *config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		timeout:  30 * time.Second,
	}
}

// Send delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Email) error {
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	dialer := &net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("start TLS: %w", err)
		}
	}
	if m.user != "" && m.password != "" {
		if err := client.Auth(smtp.PlainAuth("", m.user, m.password, m.host)); err != nil {
			return fmt.Errorf("SMTP authentication: %w", err)
		}
	}
	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("start message: %w", err)
	}
	if _, err := w.Write(buildMessage(m.from, msg)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	_ = client.Quit()
	return nil
}

// buildMessage writes a multipart/alternative message.
func buildMessage(from string, msg Email) []byte {
	var b strings.Builder
	boundary := fmt.Sprintf("tracktarr_%d", time.Now().UnixNano())

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", encodeHeader(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.Text)
	if msg.HTML != "" {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.HTML)
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// encodeHeader encodes non-ASCII header values as RFC 2047 words.
func encodeHeader(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.QEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
